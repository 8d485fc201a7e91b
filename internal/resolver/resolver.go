// Package resolver turns a discovery endpoint response into the URL of the
// real resource. Discovery endpoints are an indirection layer: the body
// names the download location either in a JSON field or as a bare URL
// embedded in text, and the caller picks the extraction strategy.
package resolver

import (
	"context"
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicdata/opendata-cli/internal/fetcher"
)

// ErrResolution marks discovery failures: unreachable endpoint, non-2xx
// status, unparsable body, or no URL match under the chosen rule.
var ErrResolution = eris.New("download URL resolution failed")

// Rule extracts a download URL from a discovery response body.
type Rule interface {
	// Extract applies the rule to the raw response body.
	Extract(body []byte) (string, error)

	// Name identifies the rule in logs and error messages.
	Name() string
}

// JSONField reads a string URL at a dot-separated field path of a JSON
// document, e.g. "object" or "result.download.url".
type JSONField struct {
	Path string
}

// Name implements Rule.
func (r JSONField) Name() string { return "json-field:" + r.Path }

// Extract implements Rule.
func (r JSONField) Extract(body []byte) (string, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", eris.Wrapf(ErrResolution, "body is not valid JSON: %v", err)
	}

	cur := doc
	for _, seg := range strings.Split(r.Path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return "", eris.Wrapf(ErrResolution, "field path %q: %q is not an object", r.Path, seg)
		}
		cur, ok = obj[seg]
		if !ok {
			return "", eris.Wrapf(ErrResolution, "field path %q: field %q not found", r.Path, seg)
		}
	}

	s, ok := cur.(string)
	if !ok {
		return "", eris.Wrapf(ErrResolution, "field path %q: value is not a string", r.Path)
	}
	if s == "" {
		return "", eris.Wrapf(ErrResolution, "field path %q: value is empty", r.Path)
	}
	return s, nil
}

// urlPattern matches an http(s) URL up to the next quote or whitespace.
var urlPattern = regexp.MustCompile(`https?://[^"'\s]+`)

// FirstURLMatch scans a raw text body for the first URL-shaped substring.
type FirstURLMatch struct {
	Pattern *regexp.Regexp
}

// NewFirstURLMatch returns a FirstURLMatch with the default URL pattern.
func NewFirstURLMatch() FirstURLMatch {
	return FirstURLMatch{Pattern: urlPattern}
}

// Name implements Rule.
func (r FirstURLMatch) Name() string { return "url-match" }

// Extract implements Rule.
func (r FirstURLMatch) Extract(body []byte) (string, error) {
	pat := r.Pattern
	if pat == nil {
		pat = urlPattern
	}
	m := pat.Find(body)
	if m == nil {
		return "", eris.Wrapf(ErrResolution, "no URL matching %s in body", pat.String())
	}
	return string(m), nil
}

// Resolve fetches the discovery endpoint and applies the rule to its body.
func Resolve(ctx context.Context, f fetcher.Fetcher, endpoint string, rule Rule) (string, error) {
	body, err := f.Download(ctx, endpoint)
	if err != nil {
		return "", eris.Wrapf(ErrResolution, "fetch discovery endpoint %s: %v", endpoint, err)
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return "", eris.Wrapf(ErrResolution, "read discovery response from %s: %v", endpoint, err)
	}

	resolved, err := rule.Extract(data)
	if err != nil {
		return "", eris.Wrapf(err, "resolve %s", endpoint)
	}

	zap.L().Debug("resolved download URL",
		zap.String("endpoint", endpoint),
		zap.String("rule", rule.Name()),
		zap.String("url", resolved),
	)

	return resolved, nil
}

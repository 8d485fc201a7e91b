package acquire

import (
	"context"
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/civicdata/opendata-cli/internal/fetcher"
	"github.com/civicdata/opendata-cli/internal/resolver"
)

// Source is one named acquisition in a manifest.
type Source struct {
	Name      string `yaml:"name"`
	Discovery string `yaml:"discovery"`
	Rule      string `yaml:"rule"`    // "json-field" or "url-match"
	Field     string `yaml:"field"`   // dot path, required for json-field
	Pattern   string `yaml:"pattern"` // optional regexp override for url-match
	Dest      string `yaml:"dest"`
	Archive   bool   `yaml:"archive"`
}

// Manifest is a YAML-declared batch of acquisition sources.
type Manifest struct {
	Sources []Source `yaml:"sources"`
}

// LoadManifest reads and validates a manifest from a YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "manifest: read %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "manifest: parse %s", path)
	}

	if len(m.Sources) == 0 {
		return nil, eris.Errorf("manifest %s declares no sources", path)
	}

	// Two sources writing the same destination directory have undefined
	// outcome, so reject the manifest outright.
	dests := make(map[string]string, len(m.Sources))
	for _, s := range m.Sources {
		if s.Name == "" {
			return nil, eris.New("manifest: source missing name")
		}
		if s.Discovery == "" {
			return nil, eris.Errorf("manifest: source %q missing discovery endpoint", s.Name)
		}
		if s.Dest == "" {
			return nil, eris.Errorf("manifest: source %q missing dest", s.Name)
		}
		if _, err := s.rule(); err != nil {
			return nil, err
		}
		if prev, ok := dests[s.Dest]; ok {
			return nil, eris.Errorf("manifest: sources %q and %q share dest %s", prev, s.Name, s.Dest)
		}
		dests[s.Dest] = s.Name
	}

	return &m, nil
}

// rule builds the resolver rule declared by the source.
func (s Source) rule() (resolver.Rule, error) {
	switch s.Rule {
	case "json-field":
		if s.Field == "" {
			return nil, eris.Errorf("manifest: source %q uses json-field but declares no field", s.Name)
		}
		return resolver.JSONField{Path: s.Field}, nil
	case "url-match":
		if s.Pattern == "" {
			return resolver.NewFirstURLMatch(), nil
		}
		pat, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "manifest: source %q pattern", s.Name)
		}
		return resolver.FirstURLMatch{Pattern: pat}, nil
	default:
		return nil, eris.Errorf("manifest: source %q has unknown rule %q", s.Name, s.Rule)
	}
}

// RunManifest acquires every source in the manifest. Sources run strictly
// one at a time unless concurrency is raised above 1; destinations are
// distinct by validation, so raised concurrency never races on a path.
// The first failure cancels the remaining sources.
func RunManifest(ctx context.Context, f fetcher.Fetcher, m *Manifest, concurrency int) ([]*Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	results := make([]*Result, len(m.Sources))
	for i, s := range m.Sources {
		i, s := i, s
		g.Go(func() error {
			rule, err := s.rule()
			if err != nil {
				return err
			}

			res, err := Run(ctx, f, Request{
				Discovery: s.Discovery,
				Rule:      rule,
				DestDir:   s.Dest,
				Archive:   s.Archive,
			})
			if err != nil {
				return eris.Wrapf(err, "source %q", s.Name)
			}

			zap.L().Info("source acquired",
				zap.String("source", s.Name),
				zap.String("url", res.ResolvedURL),
				zap.Int("extracted", len(res.Extracted)),
			)
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

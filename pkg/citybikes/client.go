// Package citybikes provides a client for the CityBikes bike-share
// directory API and flattens its nested station documents into flat,
// tabular records.
package citybikes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the CityBikes directory operations.
type Client interface {
	// Networks fetches the full network directory. No pagination: the
	// upstream service serves the whole directory in one response.
	Networks(ctx context.Context) ([]NetworkSummary, error)

	// Network fetches one network's detail document, including stations.
	Network(ctx context.Context, id string) (*Network, error)
}

// NetworkSummary is one entry of the network directory.
type NetworkSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Location Location `json:"location"`
}

// Location is the city a network operates in.
type Location struct {
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Network is the detail document of one bike-share network.
type Network struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Location Location      `json:"location"`
	Stations StationArrays `json:"stations"`
}

// StationArrays holds the five parallel arrays describing a network's
// stations; index i across all arrays describes one station.
type StationArrays struct {
	Name       []string  `json:"name"`
	FreeBikes  []int     `json:"free_bikes"`
	EmptySlots []int     `json:"empty_slots"`
	Latitude   []float64 `json:"latitude"`
	Longitude  []float64 `json:"longitude"`
}

type directoryResponse struct {
	Networks []NetworkSummary `json:"networks"`
}

type networkResponse struct {
	Network Network `json:"network"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.hc = hc
	}
}

// WithUserAgent sets the outbound User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	hc        *http.Client
}

// NewClient creates a CityBikes client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   "https://api.citybik.es/v2",
		userAgent: "opendata-cli/1.0",
		hc:        &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Networks(ctx context.Context) ([]NetworkSummary, error) {
	var resp directoryResponse
	if err := c.get(ctx, c.baseURL+"/networks", &resp); err != nil {
		return nil, eris.Wrap(err, "citybikes: fetch network directory")
	}
	return resp.Networks, nil
}

func (c *httpClient) Network(ctx context.Context, id string) (*Network, error) {
	var resp networkResponse
	if err := c.get(ctx, fmt.Sprintf("%s/networks/%s", c.baseURL, id), &resp); err != nil {
		return nil, eris.Wrapf(err, "citybikes: fetch network %s", id)
	}
	return &resp.Network, nil
}

func (c *httpClient) get(ctx context.Context, url string, into any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return eris.Wrapf(err, "get %s", url)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return eris.Wrapf(err, "decode response from %s", url)
	}

	return nil
}

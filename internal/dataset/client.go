// Package dataset downloads the example drug-gene tables.
package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tigerlily/tigerlily/internal/table"
)

const (
	// DefaultBaseURL hosts the example DrugBank DDI / BioSNAP tables.
	DefaultBaseURL = "https://raw.githubusercontent.com/benedekrozemberczki/datasets/master/tigerlily_example_data/"

	// DefaultTimeout is the HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RateLimit caps requests per second against the host.
	RateLimit = 5.0

	// maxTableSize bounds how much of a single table is read.
	maxTableSize = 512 << 20
)

// Names of the example tables.
const (
	EdgesFile    = "edges.csv"
	TargetFile   = "target.csv"
	PageRankFile = "pagerank_scores.csv"
)

// Files lists every table of the example dataset.
var Files = []string{EdgesFile, TargetFile, PageRankFile}

// Errors returned by Client.
var (
	ErrNotFound = errors.New("dataset file not found")
	ErrNetwork  = errors.New("network error fetching dataset")
	ErrTooLarge = errors.New("dataset file too large")
)

// Client fetches tables relative to a base URL.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	timeout    time.Duration
	maxSize    int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets the URL the table names are appended to.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout. It is applied to a copy of the
// HTTP client, so a client passed to WithHTTPClient is left untouched.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient creates a dataset client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    DefaultBaseURL,
		maxSize:    maxTableSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	return c
}

// BaseURL returns the URL tables are fetched from.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchRaw downloads the named table.
func (c *Client) FetchRaw(ctx context.Context, name string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+name, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetching %s: status %d", name, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrNetwork, name, err)
	}
	if int64(len(data)) > c.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, name, c.maxSize)
	}
	return data, nil
}

// ReadEdges fetches and parses the drug-gene graph edges.
func (c *Client) ReadEdges(ctx context.Context) ([]table.EdgeRecord, error) {
	data, err := c.FetchRaw(ctx, EdgesFile)
	if err != nil {
		return nil, err
	}
	return table.ReadEdges(bytes.NewReader(data))
}

// ReadTarget fetches and parses the labeled drug pairs.
func (c *Client) ReadTarget(ctx context.Context) ([]table.TargetRecord, error) {
	data, err := c.FetchRaw(ctx, TargetFile)
	if err != nil {
		return nil, err
	}
	return table.ReadTarget(bytes.NewReader(data))
}

// ReadPageRank fetches and parses the precomputed PageRank scores.
func (c *Client) ReadPageRank(ctx context.Context) ([]table.ScoreRecord, error) {
	data, err := c.FetchRaw(ctx, PageRankFile)
	if err != nil {
		return nil, err
	}
	return table.ReadScores(bytes.NewReader(data))
}

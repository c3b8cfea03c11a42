// Package tigergraph uploads the drug-gene graph to a TigerGraph server and
// runs personalized PageRank queries against it.
package tigergraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/tigerlily/tigerlily/internal/table"
)

const (
	// DefaultRESTPPPort is the RESTPP endpoint port.
	DefaultRESTPPPort = "9000"

	// DefaultGSQLPort is the GSQL server port.
	DefaultGSQLPort = "14240"

	// DefaultUsername is the default GSQL user.
	DefaultUsername = "tigergraph"

	// TokenLifetime is the requested token lifetime in seconds.
	TokenLifetime = "12000"

	// DefaultTimeout is the HTTP request timeout. Installing queries can
	// take minutes.
	DefaultTimeout = 10 * time.Minute

	// DefaultRateLimit is the default number of requests per second.
	DefaultRateLimit = 10.0

	// DefaultCacheSize is the number of pagerank responses kept in memory.
	DefaultCacheSize = 1024

	// DefaultBatchSize is the maximum number of edges per upsert request.
	DefaultBatchSize = 10000

	// DefaultEdgeType is the edge type of the drug-gene graph.
	DefaultEdgeType = "interacts"
)

// Client talks to the RESTPP and GSQL endpoints of one graph.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	cache      *lru.Cache[string, []table.ScoreRecord]
	progress   ProgressReporter

	restppURL string
	gsqlURL   string
	graph     string
	username  string
	secret    string
	password  string
	batchSize int
	cacheSize int

	mu    sync.RWMutex
	token string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRESTPPURL overrides the RESTPP base URL (host:9000 by default).
func WithRESTPPURL(u string) ClientOption {
	return func(c *Client) {
		c.restppURL = strings.TrimRight(u, "/")
	}
}

// WithGSQLURL overrides the GSQL base URL (host:14240 by default).
func WithGSQLURL(u string) ClientOption {
	return func(c *Client) {
		c.gsqlURL = strings.TrimRight(u, "/")
	}
}

// WithUsername sets the GSQL user.
func WithUsername(username string) ClientOption {
	return func(c *Client) {
		c.username = username
	}
}

// WithSecret sets the secret used to request a RESTPP token.
func WithSecret(secret string) ClientOption {
	return func(c *Client) {
		c.secret = secret
	}
}

// WithPassword sets the GSQL password.
func WithPassword(password string) ClientOption {
	return func(c *Client) {
		c.password = password
	}
}

// WithToken sets a RESTPP token directly, skipping Connect.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the maximum number of requests per second.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithCacheSize sets how many pagerank responses are cached. Zero disables
// the cache.
func WithCacheSize(n int) ClientOption {
	return func(c *Client) {
		c.cacheSize = n
	}
}

// WithBatchSize sets the maximum number of edges per upsert request.
func WithBatchSize(n int) ClientOption {
	return func(c *Client) {
		c.batchSize = n
	}
}

// WithProgressReporter receives one update per pagerank source.
func WithProgressReporter(p ProgressReporter) ClientOption {
	return func(c *Client) {
		c.progress = p
	}
}

// NewClient creates a client for graph on host (e.g. "https://x.i.tgcloud.io").
func NewClient(host, graph string, opts ...ClientOption) (*Client, error) {
	host = strings.TrimRight(host, "/")
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		logger:     slog.New(slog.DiscardHandler),
		restppURL:  host + ":" + DefaultRESTPPPort,
		gsqlURL:    host + ":" + DefaultGSQLPort,
		graph:      graph,
		username:   DefaultUsername,
		batchSize:  DefaultBatchSize,
		cacheSize:  DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.graph == "" {
		return nil, fmt.Errorf("graph name is required")
	}
	if c.batchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", c.batchSize)
	}
	if c.cacheSize > 0 {
		cache, err := lru.New[string, []table.ScoreRecord](c.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Graph returns the graph name.
func (c *Client) Graph() string {
	return c.graph
}

// restppResponse is the envelope of every RESTPP reply.
type restppResponse struct {
	Error   bool            `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Results json.RawMessage `json:"results"`
	Token   string          `json:"token"`
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		return fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	}
	if resp.StatusCode == 429 {
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Code: "http_error", Message: msg}
	}
	return nil
}

// do sends req through the rate limiter and returns the body of a
// successful response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	c.logger.Debug("tigergraph request", "method", req.Method, "url", req.URL.Redacted())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrNetwork, err)
	}
	return body, nil
}

// restpp calls a RESTPP endpoint and returns the decoded envelope.
func (c *Client) restpp(ctx context.Context, method, path string, body any, authenticated bool) (*restppResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.restppURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		c.mu.RLock()
		token := c.token
		c.mu.RUnlock()
		if token == "" {
			return nil, ErrNotConnected
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var env restppResponse
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if env.Error {
		return nil, &APIError{StatusCode: http.StatusOK, Code: env.Code, Message: env.Message}
	}
	return &env, nil
}

// decodeResults unmarshals the results field of env into out.
func decodeResults(env *restppResponse, out any) error {
	if len(env.Results) == 0 {
		return fmt.Errorf("%w: missing results", ErrInvalidResponse)
	}
	if err := json.Unmarshal(env.Results, out); err != nil {
		return fmt.Errorf("%w: decoding results: %v", ErrInvalidResponse, err)
	}
	return nil
}

// Connect requests a RESTPP token with the configured secret.
func (c *Client) Connect(ctx context.Context) error {
	if c.secret == "" {
		return fmt.Errorf("%w: no secret configured", ErrAuth)
	}

	q := url.Values{}
	q.Set("secret", c.secret)
	q.Set("lifetime", TokenLifetime)

	env, err := c.restpp(ctx, http.MethodGet, "/requesttoken?"+q.Encode(), nil, false)
	if err != nil {
		return fmt.Errorf("requesting token: %w", err)
	}

	// Older servers put the token at the top level.
	token := env.Token
	if token == "" && len(env.Results) > 0 {
		var results struct {
			Token string `json:"token"`
		}
		if err := decodeResults(env, &results); err != nil {
			return err
		}
		token = results.Token
	}
	if token == "" {
		return fmt.Errorf("%w: no token in response", ErrInvalidResponse)
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	c.logger.Info("connected to tigergraph", "graph", c.graph)
	return nil
}

// GSQL runs command on the GSQL server and returns its text output.
func (c *Client) GSQL(ctx context.Context, command string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.gsqlURL+"/gsqlserver/gsql/file", strings.NewReader(url.QueryEscape(command)))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.SetBasicAuth(c.username, c.password)

	data, err := c.do(req)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

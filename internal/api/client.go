// Package api implements the HTTP client for the agent backend: plain
// query, streaming query with fallback, code execution, and document
// ingestion.
package api

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"go.uber.org/zap"

	"github.com/dmelo/agentchat/internal/config"
)

const (
	// DefaultStreamDelay is the pause between simulated tokens on the
	// fallback path, matching the backend's own streaming cadence.
	DefaultStreamDelay = 30 * time.Millisecond

	// DefaultTimeout bounds every request, including a stalled primary
	// stream that never sends the end sentinel.
	DefaultTimeout = 120 * time.Second
)

// AgentClient is the main client for interacting with the agent backend
type AgentClient struct {
	httpClient  tls_client.HttpClient
	baseURL     string
	streamDelay time.Duration
	logger      *zap.Logger
	mu          sync.RWMutex
	closed      bool
}

// ClientOption is a function that configures the client
type ClientOption func(*AgentClient)

// WithBaseURL sets the backend address for the client
func WithBaseURL(baseURL string) ClientOption {
	return func(c *AgentClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithStreamDelay sets the inter-token delay for simulated streaming
func WithStreamDelay(delay time.Duration) ClientOption {
	return func(c *AgentClient) {
		c.streamDelay = delay
	}
}

// WithLogger sets the client's logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *AgentClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// withHTTPClient replaces the transport. Used by tests.
func withHTTPClient(httpClient tls_client.HttpClient) ClientOption {
	return func(c *AgentClient) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new AgentClient
func NewClient(opts ...ClientOption) (*AgentClient, error) {
	client := &AgentClient{
		baseURL:     config.DefaultBaseURL,
		streamDelay: DefaultStreamDelay,
		logger:      zap.NewNop(),
	}

	// Apply options
	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(int(DefaultTimeout / time.Second)),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// Close shuts down the client
func (c *AgentClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.httpClient.CloseIdleConnections()
}

// IsClosed returns whether the client is closed
func (c *AgentClient) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// BaseURL returns the configured backend address
func (c *AgentClient) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// endpoint joins a path onto the base URL
func (c *AgentClient) endpoint(path string) string {
	return c.BaseURL() + path
}

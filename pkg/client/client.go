package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Client provides HTTP client functionality to communicate with a taskr server
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Logger   *slog.Logger // Optional logger for client operations
	TLS      *TLSClientConfig
	Insecure bool // Skip TLS verification
}

// TLSClientConfig holds TLS configuration for client
type TLSClientConfig struct {
	Enabled    bool   // Enable TLS
	CACert     string // CA certificate file path
	ClientCert string // Client certificate file
	ClientKey  string // Client private key file
	ServerName string // Server name for verification
	SkipVerify bool   // Skip certificate verification
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080/api",
		Timeout: 10 * time.Second,
	}
}

// New creates a new taskr API client
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	transport := &http.Transport{}
	if config.TLS != nil && config.TLS.Enabled || config.Insecure {
		tlsConfig, err := setupClientTLS(config)
		if err != nil {
			config.Logger.Error("TLS setup failed", "error", err)
		} else {
			transport.TLSClientConfig = tlsConfig
		}
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		logger:  config.Logger,
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
	}
}

// IsReachable checks if the server is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		c.logger.Debug("Failed to create request for reachability check", "error", err)
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Server unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Read returns the todos of a session.
func (c *Client) Read(ctx context.Context, sessionID string, q ReadQuery) (Payload, error) {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Priority != "" {
		v.Set("priority", q.Priority)
	}
	if q.IncludeStats {
		v.Set("stats", "true")
	}
	u := c.sessionURL(sessionID) + "/todos"
	if len(v) > 0 {
		u += "?" + v.Encode()
	}
	return c.do(ctx, http.MethodGet, u, nil)
}

// Write replaces the todo list of a session.
func (c *Client) Write(ctx context.Context, sessionID string, todos []Todo) (Payload, error) {
	if todos == nil {
		todos = []Todo{}
	}
	return c.do(ctx, http.MethodPut, c.sessionURL(sessionID)+"/todos", map[string]any{"todos": todos})
}

// UpdateStatus changes the status of one todo.
func (c *Client) UpdateStatus(ctx context.Context, sessionID, todoID, status string) (Payload, error) {
	u := c.sessionURL(sessionID) + "/todos/" + url.PathEscape(todoID)
	return c.do(ctx, http.MethodPatch, u, map[string]string{"status": status})
}

// Add appends one todo to a session.
func (c *Client) Add(ctx context.Context, sessionID string, req AddRequest) (Payload, error) {
	return c.do(ctx, http.MethodPost, c.sessionURL(sessionID)+"/todos", req)
}

// Delete removes a session.
func (c *Client) Delete(ctx context.Context, sessionID string) (Payload, error) {
	return c.do(ctx, http.MethodDelete, c.sessionURL(sessionID), nil)
}

// Sessions lists every session.
func (c *Client) Sessions(ctx context.Context) (Payload, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+"/sessions", nil)
}

// Active returns the most recently updated session with open work.
func (c *Client) Active(ctx context.Context) (Payload, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+"/sessions/active", nil)
}

// Tool invokes an operation by tool name with raw arguments.
func (c *Client) Tool(ctx context.Context, name string, args map[string]any) (Payload, error) {
	if args == nil {
		args = map[string]any{}
	}
	return c.do(ctx, http.MethodPost, c.baseURL+"/tools/"+url.PathEscape(name), args)
}

func (c *Client) sessionURL(id string) string {
	return c.baseURL + "/sessions/" + url.PathEscape(id)
}

// setupClientTLS configures TLS settings for HTTP client
func setupClientTLS(config Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{}

	if config.Insecure {
		tlsConfig.InsecureSkipVerify = true
		return tlsConfig, nil
	}

	if config.TLS != nil {
		if config.TLS.SkipVerify {
			tlsConfig.InsecureSkipVerify = true
		}
		if config.TLS.ServerName != "" {
			tlsConfig.ServerName = config.TLS.ServerName
		}
		if config.TLS.CACert != "" {
			if err := loadCACert(tlsConfig, config.TLS.CACert); err != nil {
				return nil, fmt.Errorf("failed to load CA certificate: %w", err)
			}
		}
		if config.TLS.ClientCert != "" && config.TLS.ClientKey != "" {
			cert, err := tls.LoadX509KeyPair(config.TLS.ClientCert, config.TLS.ClientKey)
			if err != nil {
				return nil, fmt.Errorf("failed to load client certificate: %w", err)
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}
	}

	return tlsConfig, nil
}

// loadCACert loads CA certificate from file and adds it to TLS config
func loadCACert(tlsConfig *tls.Config, caCertPath string) error {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return fmt.Errorf("failed to read CA certificate file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return fmt.Errorf("failed to parse CA certificate")
	}

	tlsConfig.RootCAs = caCertPool
	return nil
}

// do sends body as JSON and decodes the payload. Error payloads are returned
// alongside an *APIError so callers can still render them.
func (c *Client) do(ctx context.Context, method, u string, body any) (Payload, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", u)
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var p Payload
	decodeErr := json.NewDecoder(resp.Body).Decode(&p)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if decodeErr != nil {
			return nil, fmt.Errorf("decode response: %w", decodeErr)
		}
		return p, nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if decodeErr == nil {
		apiErr.Message, _ = p["error"].(string)
	}
	c.logger.Debug("API request failed", "error", apiErr.Message, "status", resp.StatusCode)
	return p, apiErr
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the main LLMWatch API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
}

// Config holds the client configuration
type Config struct {
	BaseURL    string        // API base URL (e.g., "http://localhost:8080")
	APIKey     string        // Optional API key for authentication
	Timeout    time.Duration // HTTP client timeout (default: 30s)
	HTTPClient *http.Client  // Optional custom HTTP client
}

// NewClient creates a new LLMWatch API client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		apiKey:     cfg.APIKey,
	}
}

// envelope matches the API's success wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// paginatedEnvelope matches the API's paginated wrapper.
type paginatedEnvelope struct {
	Data       json.RawMessage `json:"data"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalItems int64           `json:"total_items"`
	TotalPages int             `json:"total_pages"`
}

// Page carries pagination metadata alongside a list result.
type Page struct {
	Page       int
	PageSize   int
	TotalItems int64
	TotalPages int
}

// doRequest performs a request and unwraps the success envelope into result.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	respBody, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if result == nil || len(respBody) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}

// doPaginated performs a request against a paginated endpoint.
func (c *Client) doPaginated(ctx context.Context, path string, result interface{}) (*Page, error) {
	respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var env paginatedEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return nil, fmt.Errorf("failed to parse response data: %w", err)
		}
	}
	return &Page{
		Page:       env.Page,
		PageSize:   env.PageSize,
		TotalItems: env.TotalItems,
		TotalPages: env.TotalPages,
	}, nil
}

// do performs the HTTP round trip and returns the raw body.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errEnv struct {
			Error APIError `json:"error"`
		}
		if err := json.Unmarshal(respBody, &errEnv); err != nil || errEnv.Error.Message == "" {
			return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
		}
		apiErr := errEnv.Error
		apiErr.StatusCode = resp.StatusCode
		return nil, &apiErr
	}

	return respBody, nil
}

// Chat returns the gateway service
func (c *Client) Chat() *ChatService {
	return &ChatService{client: c}
}

// Anomalies returns the anomaly detection service
func (c *Client) Anomalies() *AnomalyService {
	return &AnomalyService{client: c}
}

// Incidents returns the incident management service
func (c *Client) Incidents() *IncidentService {
	return &IncidentService{client: c}
}

// Baselines returns the baseline management service
func (c *Client) Baselines() *BaselineService {
	return &BaselineService{client: c}
}

// Metrics returns the metrics summary service
func (c *Client) Metrics() *MetricsService {
	return &MetricsService{client: c}
}

// Events returns the event stream service
func (c *Client) Events() *EventService {
	return &EventService{client: c}
}

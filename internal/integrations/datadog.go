package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DatadogClient submits metric series and events to the Datadog intake
// API. It is a thin HTTP client; queueing and flush cadence live in the
// telemetry service.
type DatadogClient struct {
	apiKey     string
	site       string
	httpClient *http.Client
}

// DatadogSeries is one metric series in a submission batch.
type DatadogSeries struct {
	Metric string       `json:"metric"`
	Type   string       `json:"type"`
	Points [][2]float64 `json:"points"`
	Tags   []string     `json:"tags,omitempty"`
}

// DatadogEvent is an event posted to the events stream.
type DatadogEvent struct {
	Title          string   `json:"title"`
	Text           string   `json:"text"`
	AlertType      string   `json:"alert_type,omitempty"`
	Priority       string   `json:"priority,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	SourceTypeName string   `json:"source_type_name,omitempty"`
}

type datadogSeriesPayload struct {
	Series []DatadogSeries `json:"series"`
}

// NewDatadogClient creates a Datadog intake client. An empty site selects
// datadoghq.com.
func NewDatadogClient(apiKey, site string) *DatadogClient {
	if site == "" {
		site = "datadoghq.com"
	}
	return &DatadogClient{
		apiKey: apiKey,
		site:   site,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Enabled reports whether the client has an API key to submit with.
func (c *DatadogClient) Enabled() bool {
	return c.apiKey != ""
}

// GaugePoint builds a single-point gauge series stamped with ts.
func GaugePoint(metric string, value float64, ts time.Time, tags []string) DatadogSeries {
	return DatadogSeries{
		Metric: metric,
		Type:   "gauge",
		Points: [][2]float64{{float64(ts.Unix()), value}},
		Tags:   tags,
	}
}

// SubmitSeries posts a batch of metric series to the v1 series intake.
func (c *DatadogClient) SubmitSeries(ctx context.Context, series []DatadogSeries) error {
	if len(series) == 0 {
		return nil
	}
	url := fmt.Sprintf("https://api.%s/api/v1/series", c.site)
	return c.post(ctx, url, datadogSeriesPayload{Series: series})
}

// SubmitEvent posts an event to the v1 events stream.
func (c *DatadogClient) SubmitEvent(ctx context.Context, event DatadogEvent) error {
	url := fmt.Sprintf("https://api.%s/api/v1/events", c.site)
	return c.post(ctx, url, event)
}

func (c *DatadogClient) post(ctx context.Context, url string, payload interface{}) error {
	if c.apiKey == "" {
		return fmt.Errorf("Datadog API key is not configured")
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("DD-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("intake request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

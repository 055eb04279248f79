package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// AnomalyService handles anomaly detection-related API calls
type AnomalyService struct {
	client *Client
}

// AnomalyListOptions contains options for listing anomalies
type AnomalyListOptions struct {
	ListOptions
	MetricName string     // filter by metric name
	Severity   string     // SEV-1, SEV-2, SEV-3
	Direction  string     // high, low
	PatternID  string     // filter by pattern ID
	Since      *time.Time // only anomalies detected after this time
}

// List retrieves persisted anomalies, most recent first
func (s *AnomalyService) List(ctx context.Context, opts *AnomalyListOptions) ([]Anomaly, *Page, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			query.Set("page_size", strconv.Itoa(opts.PageSize))
		}
		if opts.MetricName != "" {
			query.Set("metric", opts.MetricName)
		}
		if opts.Severity != "" {
			query.Set("severity", opts.Severity)
		}
		if opts.Direction != "" {
			query.Set("direction", opts.Direction)
		}
		if opts.PatternID != "" {
			query.Set("pattern_id", opts.PatternID)
		}
		if opts.Since != nil {
			query.Set("since", opts.Since.Format(time.RFC3339))
		}
	}

	path := "/api/v1/anomalies"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var anomalies []Anomaly
	page, err := s.client.doPaginated(ctx, path, &anomalies)
	if err != nil {
		return nil, nil, err
	}
	return anomalies, page, nil
}

// Recent retrieves the detection engine's in-memory recent anomalies
func (s *AnomalyService) Recent(ctx context.Context, limit int) ([]Anomaly, error) {
	path := "/api/v1/anomalies/recent"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var anomalies []Anomaly
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &anomalies); err != nil {
		return nil, err
	}
	return anomalies, nil
}

// observeRequest is the raw observation request body
type observeRequest struct {
	Metrics map[string]float64 `json:"metrics"`
}

// Observe feeds a raw metric batch into the detection engine
func (s *AnomalyService) Observe(ctx context.Context, metrics map[string]float64) (*ObserveResult, error) {
	var result ObserveResult
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/anomalies/observe", observeRequest{Metrics: metrics}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

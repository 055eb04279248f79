package client

import (
	"context"
	"net/http"
)

// MetricsService handles metrics summary API calls
type MetricsService struct {
	client *Client
}

// Summary retrieves the combined detection and session view
func (s *MetricsService) Summary(ctx context.Context) (*Summary, error) {
	var summary Summary
	if err := s.client.doRequest(ctx, http.MethodGet, "/api/v1/metrics/summary", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

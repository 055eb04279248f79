package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// IncidentService handles incident-related API calls
type IncidentService struct {
	client *Client
}

// IncidentListOptions contains options for listing incidents
type IncidentListOptions struct {
	ListOptions
	Status    string // open, acknowledged, resolved
	Severity  string // SEV-1, SEV-2, SEV-3
	PatternID string // filter by pattern ID
}

// List retrieves incidents, most recent first
func (s *IncidentService) List(ctx context.Context, opts *IncidentListOptions) ([]Incident, *Page, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			query.Set("page_size", strconv.Itoa(opts.PageSize))
		}
		if opts.Status != "" {
			query.Set("status", opts.Status)
		}
		if opts.Severity != "" {
			query.Set("severity", opts.Severity)
		}
		if opts.PatternID != "" {
			query.Set("pattern_id", opts.PatternID)
		}
	}

	path := "/api/v1/incidents"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var incidents []Incident
	page, err := s.client.doPaginated(ctx, path, &incidents)
	if err != nil {
		return nil, nil, err
	}
	return incidents, page, nil
}

// Get retrieves a single incident by ID
func (s *IncidentService) Get(ctx context.Context, id string) (*Incident, error) {
	var incident Incident
	if err := s.client.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/v1/incidents/%s", id), nil, &incident); err != nil {
		return nil, err
	}
	return &incident, nil
}

// Acknowledge marks an open incident as acknowledged
func (s *IncidentService) Acknowledge(ctx context.Context, id string) (*Incident, error) {
	var incident Incident
	if err := s.client.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/v1/incidents/%s/acknowledge", id), nil, &incident); err != nil {
		return nil, err
	}
	return &incident, nil
}

// Resolve marks an incident as resolved
func (s *IncidentService) Resolve(ctx context.Context, id string) (*Incident, error) {
	var incident Incident
	if err := s.client.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/v1/incidents/%s/resolve", id), nil, &incident); err != nil {
		return nil, err
	}
	return &incident, nil
}

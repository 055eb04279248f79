package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// BaselineService handles baseline snapshot API calls
type BaselineService struct {
	client *Client
}

// GenerateOptions controls synthetic baseline generation. Zero values
// keep the server defaults.
type GenerateOptions struct {
	Points      int     `json:"points,omitempty"`
	AnomalyRate float64 `json:"anomalyRate,omitempty"`
	Seed        int64   `json:"seed,omitempty"`
}

// Snapshot captures the detection engine's current state server-side
func (s *BaselineService) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/baseline/snapshot", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Generate seeds the detection engine with synthetic baselines
func (s *BaselineService) Generate(ctx context.Context, opts *GenerateOptions) (*Snapshot, error) {
	if opts == nil {
		opts = &GenerateOptions{}
	}
	var snap Snapshot
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/baseline/generate", opts, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// List retrieves stored snapshots, newest first
func (s *BaselineService) List(ctx context.Context, limit int) ([]Snapshot, error) {
	path := "/api/v1/baseline/snapshots"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var snaps []Snapshot
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

// Export downloads the detection engine's current state as raw JSON
func (s *BaselineService) Export(ctx context.Context) ([]byte, error) {
	return s.client.do(ctx, http.MethodGet, "/api/v1/baseline/export", nil)
}

// Import loads a previously exported baseline document
func (s *BaselineService) Import(ctx context.Context, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read baseline document: %w", err)
	}
	return s.client.doRequest(ctx, http.MethodPost, "/api/v1/baseline/import", json.RawMessage(data), nil)
}

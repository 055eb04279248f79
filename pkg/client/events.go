package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// EventService consumes the server's SSE stream
type EventService struct {
	client *Client
}

// Stream subscribes to the event stream and sends decoded events on the
// returned channel until ctx is canceled or the connection drops. The
// channel is closed when the stream ends; check the error callback for
// the reason.
func (s *EventService) Stream(ctx context.Context, onError func(error)) (<-chan Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.baseURL+"/api/v1/events", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if s.client.apiKey != "" {
		req.Header.Set("X-API-Key", s.client.apiKey)
	}

	// Streaming requests must not use the client-wide timeout
	resp, err := (&http.Client{Transport: s.client.httpClient.Transport}).Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("event stream rejected (status %d)", resp.StatusCode)
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			var event Event
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
				if onError != nil {
					onError(fmt.Errorf("failed to decode event: %w", err))
				}
				continue
			}

			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && onError != nil && ctx.Err() == nil {
			onError(err)
		}
	}()

	return events, nil
}

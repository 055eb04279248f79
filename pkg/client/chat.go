package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ChatService handles gateway-related API calls
type ChatService struct {
	client *Client
}

// chatRequest is the gateway request body
type chatRequest struct {
	Prompt string `json:"prompt"`
}

// Send forwards a prompt through the gateway and returns the completion
// together with the detection outcome of the exchange.
func (s *ChatService) Send(ctx context.Context, prompt string) (*ChatResponse, error) {
	var resp ChatResponse
	if err := s.client.doRequest(ctx, http.MethodPost, "/api/v1/chat", chatRequest{Prompt: prompt}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Interactions retrieves logged gateway exchanges, most recent first
func (s *ChatService) Interactions(ctx context.Context, opts *ListOptions) ([]Interaction, *Page, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			query.Set("page_size", strconv.Itoa(opts.PageSize))
		}
	}

	path := "/api/v1/interactions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var interactions []Interaction
	page, err := s.client.doPaginated(ctx, path, &interactions)
	if err != nil {
		return nil, nil, err
	}
	return interactions, page, nil
}

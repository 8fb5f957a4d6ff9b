package client

import (
	"context"
	"fmt"
	"net/http"
)

// NotifierClient delivers notification payloads to the external
// notification gateway. Delivery failures are returned to the caller
// so the dispatch job can retry the reservation later.
type NotifierClient struct {
	http *HttpClient
}

func NewNotifierClient(baseURL string) *NotifierClient {
	return &NotifierClient{
		http: NewHttpClient(baseURL),
	}
}

type NotifyRequest struct {
	UserID  string `json:"user_id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (n *NotifierClient) Send(ctx context.Context, req NotifyRequest) error {
	resp, err := n.http.POST(ctx, "/api/v1/notifications", req)
	if err != nil {
		return fmt.Errorf("notifier request failed: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notifier returned status %d", resp.StatusCode)
	}

	return nil
}

package client

import (
	"context"
	"fmt"
	"net/http"
)

// UserDirectoryClient resolves bidder identities against the external
// user directory service.
type UserDirectoryClient struct {
	http *HttpClient
}

func NewUserDirectoryClient(baseURL string) *UserDirectoryClient {
	return &UserDirectoryClient{
		http: NewHttpClient(baseURL),
	}
}

type UserProfile struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

func (u *UserDirectoryClient) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	resp, err := u.http.GET(ctx, "/api/v1/users/"+userID)
	if err != nil {
		return nil, fmt.Errorf("user directory request failed: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("user %s not found", userID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user directory returned status %d", resp.StatusCode)
	}

	var profile UserProfile
	if err := resp.DecodeJSON(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode user profile: %w", err)
	}

	return &profile, nil
}

// Package identity talks to the Clerk identity provider: batch user lookups for
// post enrichment and verification of browser session tokens.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/cppla/chirp/models"
)

// MaxUserListLimit is the largest id batch accepted by one GetUserList call.
const MaxUserListLimit = 110

// ErrBatchTooLarge is returned when a caller passes more than MaxUserListLimit ids.
var ErrBatchTooLarge = fmt.Errorf("user list batch exceeds %d ids", MaxUserListLimit)

// UpstreamError is a non-2xx answer from the Clerk Backend API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("clerk api returned status %d: %s", e.StatusCode, e.Body)
}

// ClerkClient calls the Clerk Backend API with the instance secret key.
type ClerkClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewClerkClient returns a client for baseURL (e.g. https://api.clerk.com/v1).
// Every request carries the secret key as a bearer token.
func NewClerkClient(baseURL, secretKey string, timeout time.Duration) *ClerkClient {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: secretKey, TokenType: "Bearer"})
	hc := oauth2.NewClient(context.Background(), ts)
	hc.Timeout = timeout
	return &ClerkClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
	}
}

// HTTPClient exposes the authenticated client, e.g. for fetching the instance JWKS.
func (c *ClerkClient) HTTPClient() *http.Client {
	return c.httpClient
}

// JWKSURL is the Backend API endpoint serving the instance signing keys.
func (c *ClerkClient) JWKSURL() string {
	return c.baseURL + "/jwks"
}

// GetUserList resolves ids to client-safe users with a single request. Unknown ids are
// simply absent from the result. Errors are returned as-is and never retried.
func (c *ClerkClient) GetUserList(ctx context.Context, ids []string) ([]models.ClientUser, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxUserListLimit {
		return nil, ErrBatchTooLarge
	}

	q := url.Values{}
	for _, id := range ids {
		q.Add("user_id", id)
	}
	q.Set("limit", strconv.Itoa(MaxUserListLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build user list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user list: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("decode user list: %w", err)
	}

	out := make([]models.ClientUser, 0, len(users))
	for _, u := range users {
		out = append(out, FilterUserForClient(u))
	}
	return out, nil
}

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/leapstack-labs/recipekit/internal/session"
)

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body returned by the login endpoint.
type LoginResponse struct {
	Token string        `json:"token"`
	User  *session.User `json:"user"`
}

// BusinessPod is one entry of GET /business-pods.
type BusinessPod struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status"`
	MemberCount int     `json:"member_count"`
	QEI         float64 `json:"qei"`
	Momentum    float64 `json:"momentum"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// Operation is one entry of GET /operations.
type Operation struct {
	ID        string         `json:"id"`
	PodID     string         `json:"pod_id,omitempty"`
	Type      string         `json:"type"`
	Status    string         `json:"status"`
	Progress  float64        `json:"progress"`
	Result    map[string]any `json:"result,omitempty"`
	CreatedAt string         `json:"created_at,omitempty"`
}

// Login exchanges credentials for a token and stores it in the client's session.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, PathLogin, creds, &out); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if out.Token == "" {
		return nil, fmt.Errorf("login failed: response carried no token")
	}
	c.session.Set(out.Token, out.User)
	return &out, nil
}

// BusinessPods lists the pods visible to the session.
func (c *Client) BusinessPods(ctx context.Context) ([]BusinessPod, error) {
	var out []BusinessPod
	if err := c.do(ctx, http.MethodGet, PathBusinessPods, nil, &out); err != nil {
		return nil, fmt.Errorf("list business pods: %w", err)
	}
	return out, nil
}

// Operations lists the operations visible to the session.
func (c *Client) Operations(ctx context.Context) ([]Operation, error) {
	var out []Operation
	if err := c.do(ctx, http.MethodGet, PathOperations, nil, &out); err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	return out, nil
}

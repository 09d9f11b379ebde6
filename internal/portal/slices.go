package portal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/leapstack-labs/recipekit/internal/api"
	"github.com/leapstack-labs/recipekit/internal/session"
)

// AuthSlice manages login state for one session.
type AuthSlice struct {
	client  *api.Client
	store   session.TokenStore
	profile string
	logger  *slog.Logger

	Async[*session.User]
}

// NewAuthSlice returns an auth slice. store may be nil, in which case tokens
// live only as long as the session.
func NewAuthSlice(client *api.Client, store session.TokenStore, profile string, logger *slog.Logger) *AuthSlice {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AuthSlice{client: client, store: store, profile: profile, logger: logger}
}

// Login authenticates and persists the token.
func (s *AuthSlice) Login(ctx context.Context, creds api.Credentials) (*session.User, error) {
	return s.Run(ctx, func(ctx context.Context) (*session.User, error) {
		res, err := s.client.Login(ctx, creds)
		if err != nil {
			return nil, err
		}
		if s.store != nil {
			if err := s.client.Session().Persist(ctx, s.store, s.profile); err != nil {
				// The session is still usable for this process.
				s.logger.Warn("failed to persist token", slog.String("error", err.Error()))
			}
		}
		return res.User, nil
	})
}

// Logout clears the session and the stored token.
func (s *AuthSlice) Logout(ctx context.Context) error {
	s.Reset()
	if s.store == nil {
		s.client.Session().Clear()
		return nil
	}
	return s.client.Session().Forget(ctx, s.store, s.profile)
}

// Restore loads a stored token into the session. It reports whether a token
// was found.
func (s *AuthSlice) Restore(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, errors.New("no token store configured")
	}
	sess := s.client.Session()
	if err := sess.Restore(ctx, s.store, s.profile); err != nil {
		return false, err
	}
	return sess.Authenticated(), nil
}

// BusinessPodsSlice holds the pod list.
type BusinessPodsSlice struct {
	client *api.Client
	Async[[]api.BusinessPod]
}

// NewBusinessPodsSlice returns an empty pod slice.
func NewBusinessPodsSlice(client *api.Client) *BusinessPodsSlice {
	return &BusinessPodsSlice{client: client}
}

// Fetch loads the pods.
func (s *BusinessPodsSlice) Fetch(ctx context.Context) ([]api.BusinessPod, error) {
	return s.Run(ctx, s.client.BusinessPods)
}

// OperationsSlice holds the operations list.
type OperationsSlice struct {
	client *api.Client
	Async[[]api.Operation]
}

// NewOperationsSlice returns an empty operations slice.
func NewOperationsSlice(client *api.Client) *OperationsSlice {
	return &OperationsSlice{client: client}
}

// Fetch loads the operations.
func (s *OperationsSlice) Fetch(ctx context.Context) ([]api.Operation, error) {
	return s.Run(ctx, s.client.Operations)
}

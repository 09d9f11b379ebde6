package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/leapstack-labs/recipekit/internal/session"
)

// LoadToken implements session.TokenStore.
func (s *SQLStore) LoadToken(ctx context.Context, profile string) (string, error) {
	var token string
	err := s.queryRow(ctx, `SELECT token FROM session_tokens WHERE profile = ?`, profile).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", session.ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// SaveToken implements session.TokenStore.
func (s *SQLStore) SaveToken(ctx context.Context, profile, token string) error {
	_, err := s.exec(ctx, `
		INSERT INTO session_tokens (profile, token, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (profile) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		profile, token, s.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// DeleteToken implements session.TokenStore. Deleting a missing token is not an error.
func (s *SQLStore) DeleteToken(ctx context.Context, profile string) error {
	if _, err := s.exec(ctx, `DELETE FROM session_tokens WHERE profile = ?`, profile); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

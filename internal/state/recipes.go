package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/recipekit/pkg/core"
)

// SaveRecipe inserts or replaces a recipe. An empty ID is assigned.
func (s *SQLStore) SaveRecipe(ctx context.Context, r *core.Recipe) error {
	if r == nil {
		return fmt.Errorf("save recipe: nil recipe")
	}
	if r.ID == "" {
		r.ID = generateID()
	}
	if r.Name == "" {
		r.Name = core.DefaultRecipeName
	}

	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode recipe: %w", err)
	}
	now := s.now()

	s.logger.Debug("saving recipe", slog.String("id", r.ID), slog.String("name", r.Name))

	_, err = s.exec(ctx, `
		INSERT INTO recipes (id, name, description, node_count, edge_count, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			node_count = excluded.node_count,
			edge_count = excluded.edge_count,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		r.ID, r.Name, r.Description, len(r.Nodes), len(r.Edges), string(body), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}
	return nil
}

// GetRecipe loads a recipe by id.
func (s *SQLStore) GetRecipe(ctx context.Context, id string) (*core.Recipe, error) {
	var body string
	err := s.queryRow(ctx, `SELECT body FROM recipes WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recipe %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	var r core.Recipe
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("failed to decode recipe %s: %w", id, err)
	}
	r.ID = id
	if r.Nodes == nil {
		r.Nodes = []core.Node{}
	}
	if r.Edges == nil {
		r.Edges = []core.Edge{}
	}
	return &r, nil
}

// ListRecipes returns summaries of all recipes, most recently updated first.
func (s *SQLStore) ListRecipes(ctx context.Context) ([]core.RecipeSummary, error) {
	rows, err := s.query(ctx, `
		SELECT id, name, description, node_count, edge_count, updated_at
		FROM recipes
		ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []core.RecipeSummary{}
	for rows.Next() {
		var (
			sum       core.RecipeSummary
			updatedAt time.Time
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Description, &sum.NodeCount, &sum.EdgeCount, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		sum.UpdatedAt = updatedAt.UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return out, nil
}

// DeleteRecipe removes a recipe and its compile history.
func (s *SQLStore) DeleteRecipe(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recipe %s: %w", id, core.ErrNotFound)
	}
	s.logger.Debug("deleted recipe", slog.String("id", id))
	return nil
}

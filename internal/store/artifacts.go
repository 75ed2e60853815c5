package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ArtifactStore persists trained optimizer artifacts keyed by user id.
// The blob is overwritten wholesale on retrain; last writer wins.
type ArtifactStore struct {
	pool *pgxpool.Pool
}

// Save upserts the artifact blob for a user
func (s *ArtifactStore) Save(ctx context.Context, userID string, blob []byte) error {
	query := `
		INSERT INTO optimizer_artifacts (user_id, blob, trained_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET blob = EXCLUDED.blob,
			trained_at = EXCLUDED.trained_at
	`

	_, err := s.pool.Exec(ctx, query, userID, blob, time.Now())
	if err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	return nil
}

// Load retrieves the artifact blob for a user
func (s *ArtifactStore) Load(ctx context.Context, userID string) ([]byte, error) {
	query := `SELECT blob FROM optimizer_artifacts WHERE user_id = $1`

	var blob []byte
	err := s.pool.QueryRow(ctx, query, userID).Scan(&blob)
	if err == pgx.ErrNoRows {
		return nil, ErrNoArtifact
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	return blob, nil
}

// Delete removes the artifact for a user, if any
func (s *ArtifactStore) Delete(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM optimizer_artifacts WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

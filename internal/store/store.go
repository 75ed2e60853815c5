// Package store provides pgx-backed persistence for users, credentials,
// metric samples, and optimizer artifacts.
package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations
type Store struct {
	pool *pgxpool.Pool

	Users       *UserStore
	Credentials *CredentialStore
	Metrics     *MetricStore
	Artifacts   *ArtifactStore
}

// New creates a new Store with all sub-stores initialized
func New(pool *pgxpool.Pool) *Store {
	s := &Store{
		pool: pool,
	}

	s.Users = &UserStore{pool: pool}
	s.Credentials = &CredentialStore{pool: pool}
	s.Metrics = &MetricStore{pool: pool}
	s.Artifacts = &ArtifactStore{pool: pool}

	return s
}

// NewStore creates a new Store from a database URL using the default
// pool configuration
func NewStore(databaseURL string) (*Store, error) {
	pool, err := NewPool(context.Background(), DefaultConfig(databaseURL))
	if err != nil {
		return nil, err
	}
	return New(pool), nil
}

// Close closes the database connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ady24s/Cloud9/pkg/types"
)

// CredentialStore handles encrypted cloud credential records. The
// one-record-per-(user, provider) invariant is enforced by a unique
// constraint on (user_id, provider) and an upsert on conflict.
type CredentialStore struct {
	pool *pgxpool.Pool
}

// Upsert creates or replaces the credential for (user, provider).
// Encrypted fields are replaced wholesale; there is no partial update.
func (s *CredentialStore) Upsert(ctx context.Context, cred *types.Credential) error {
	query := `
		INSERT INTO cloud_credentials (
			id, user_id, provider, access_key_enc, secret_key_enc, extra_json_enc,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, provider) DO UPDATE
		SET access_key_enc = EXCLUDED.access_key_enc,
			secret_key_enc = EXCLUDED.secret_key_enc,
			extra_json_enc = EXCLUDED.extra_json_enc,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	_, err := s.pool.Exec(ctx, query,
		cred.ID,
		cred.UserID,
		cred.Provider,
		cred.AccessKeyEnc,
		cred.SecretKeyEnc,
		cred.ExtraJSONEnc,
		cred.CreatedAt,
		cred.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}

	return nil
}

// Get retrieves the credential for (user, provider)
func (s *CredentialStore) Get(ctx context.Context, userID string, provider types.Provider) (*types.Credential, error) {
	query := `
		SELECT id, user_id, provider, access_key_enc, secret_key_enc, extra_json_enc,
			created_at, updated_at
		FROM cloud_credentials
		WHERE user_id = $1 AND provider = $2
	`

	var cred types.Credential
	err := s.pool.QueryRow(ctx, query, userID, provider).Scan(
		&cred.ID,
		&cred.UserID,
		&cred.Provider,
		&cred.AccessKeyEnc,
		&cred.SecretKeyEnc,
		&cred.ExtraJSONEnc,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	return &cred, nil
}

// ListForUser retrieves all credentials owned by a user
func (s *CredentialStore) ListForUser(ctx context.Context, userID string) ([]*types.Credential, error) {
	query := `
		SELECT id, user_id, provider, access_key_enc, secret_key_enc, extra_json_enc,
			created_at, updated_at
		FROM cloud_credentials
		WHERE user_id = $1
		ORDER BY provider
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []*types.Credential
	for rows.Next() {
		var cred types.Credential
		if err := rows.Scan(
			&cred.ID,
			&cred.UserID,
			&cred.Provider,
			&cred.AccessKeyEnc,
			&cred.SecretKeyEnc,
			&cred.ExtraJSONEnc,
			&cred.CreatedAt,
			&cred.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, &cred)
	}

	return creds, rows.Err()
}

// Delete revokes the credential for (user, provider)
func (s *CredentialStore) Delete(ctx context.Context, userID string, provider types.Provider) error {
	query := `DELETE FROM cloud_credentials WHERE user_id = $1 AND provider = $2`

	tag, err := s.pool.Exec(ctx, query, userID, provider)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DistinctUserIDs returns the ids of users holding at least one credential
func (s *CredentialStore) DistinctUserIDs(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT user_id FROM cloud_credentials`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list credential user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

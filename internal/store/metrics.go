package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ady24s/Cloud9/pkg/types"
)

const insertMetricQuery = `
	INSERT INTO cloud_metrics (
		id, provider, resource_id, resource_name, timestamp, cpu_usage,
		memory_usage, network_bytes, power, execution_time, resource_kind,
		region, state, user_id
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

// MetricStore handles the append-only metric sample table. There is no
// uniqueness constraint on (provider, resource_id, timestamp): the same
// sample appended twice yields two rows.
type MetricStore struct {
	pool *pgxpool.Pool
}

// Append inserts a single metric sample
func (s *MetricStore) Append(ctx context.Context, sample *types.MetricSample) error {
	_, err := s.pool.Exec(ctx, insertMetricQuery, metricArgs(sample)...)
	if err != nil {
		return fmt.Errorf("append metric: %w", err)
	}
	return nil
}

// AppendBatch inserts samples inside one transaction so a failing unit
// of work leaves no half-committed rows behind.
func (s *MetricStore) AppendBatch(ctx context.Context, samples []types.MetricSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append batch: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i := range samples {
		batch.Queue(insertMetricQuery, metricArgs(&samples[i])...)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("append batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append batch: %w", err)
	}
	return nil
}

// ListForUser retrieves a user's samples ordered by recency
func (s *MetricStore) ListForUser(ctx context.Context, userID string, limit int) ([]types.MetricSample, error) {
	query := `
		SELECT id, provider, resource_id, resource_name, timestamp, cpu_usage,
			memory_usage, network_bytes, power, execution_time, resource_kind,
			region, state, user_id
		FROM cloud_metrics
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()

	var samples []types.MetricSample
	for rows.Next() {
		var m types.MetricSample
		if err := rows.Scan(
			&m.ID,
			&m.Provider,
			&m.ResourceID,
			&m.ResourceName,
			&m.Timestamp,
			&m.CPUUsage,
			&m.MemoryUsage,
			&m.NetworkBytes,
			&m.Power,
			&m.ExecutionTime,
			&m.ResourceKind,
			&m.Region,
			&m.State,
			&m.UserID,
		); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		samples = append(samples, m)
	}

	return samples, rows.Err()
}

// DistinctUserIDs returns the ids of users with at least one stored sample
func (s *MetricStore) DistinctUserIDs(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT user_id FROM cloud_metrics WHERE user_id IS NOT NULL`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list metric user ids: %w", err)
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

func metricArgs(m *types.MetricSample) []any {
	return []any{
		m.ID,
		m.Provider,
		m.ResourceID,
		m.ResourceName,
		m.Timestamp,
		m.CPUUsage,
		m.MemoryUsage,
		m.NetworkBytes,
		m.Power,
		m.ExecutionTime,
		m.ResourceKind,
		m.Region,
		m.State,
		m.UserID,
	}
}

// Package store persists aggregate records and index series in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orunio/climate/backend/internal/contracts"
)

// ErrNotFound is returned when no row matches
var ErrNotFound = errors.New("not found")

const schema = `
	CREATE SCHEMA IF NOT EXISTS climate;

	CREATE TABLE IF NOT EXISTS climate.aggregate_runs (
		run_id      UUID PRIMARY KEY,
		region_key  TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		range_from  DATE NOT NULL,
		range_to    DATE NOT NULL,
		available   INT NOT NULL,
		skipped     INT NOT NULL,
		failed      INT NOT NULL,
		record      JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS aggregate_runs_region_idx
		ON climate.aggregate_runs (region_key, created_at DESC);

	CREATE TABLE IF NOT EXISTS climate.index_observations (
		region_key  TEXT NOT NULL,
		index_name  TEXT NOT NULL,
		obs_date    DATE NOT NULL,
		value       DOUBLE PRECISION NOT NULL,
		cloud_cover DOUBLE PRECISION NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (region_key, index_name, obs_date)
	);
`

// Repository handles persistence for aggregation runs
// ⭐ SSOT: climate 스키마 읽기/쓰기는 여기서만
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the schema and tables if missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveAggregate stores one run; saving the same run twice overwrites it
func (r *Repository) SaveAggregate(ctx context.Context, rec contracts.AggregateRecord) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	query := `
		INSERT INTO climate.aggregate_runs (
			run_id, region_key, created_at, range_from, range_to,
			available, skipped, failed, record
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			available = EXCLUDED.available,
			skipped = EXCLUDED.skipped,
			failed = EXCLUDED.failed,
			record = EXCLUDED.record
	`

	_, err = r.db.Exec(ctx, query,
		rec.RunID,
		rec.Region.Key,
		rec.Timestamp,
		rec.Range.From,
		rec.Range.To,
		len(rec.Available()),
		len(rec.Skipped()),
		len(rec.Failed()),
		recordJSON,
	)
	if err != nil {
		return fmt.Errorf("insert aggregate run: %w", err)
	}
	return nil
}

// LatestAggregate returns the most recent run for a region.
// Source data comes back as generic JSON values.
func (r *Repository) LatestAggregate(ctx context.Context, region string) (*contracts.AggregateRecord, error) {
	query := `
		SELECT record
		FROM climate.aggregate_runs
		WHERE region_key = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var recordJSON []byte
	if err := r.db.QueryRow(ctx, query, region).Scan(&recordJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("aggregate for %s: %w", region, ErrNotFound)
		}
		return nil, fmt.Errorf("query latest aggregate: %w", err)
	}

	var rec contracts.AggregateRecord
	if err := json.Unmarshal(recordJSON, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// SaveIndexSeries upserts one row per observation in a single batch
func (r *Repository) SaveIndexSeries(ctx context.Context, region string, s contracts.IndexTimeSeries) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Len() == 0 {
		return nil
	}

	query := `
		INSERT INTO climate.index_observations (
			region_key, index_name, obs_date, value, cloud_cover, updated_at
		) VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (region_key, index_name, obs_date) DO UPDATE SET
			value = EXCLUDED.value,
			cloud_cover = EXCLUDED.cloud_cover,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, p := range s.Points {
		batch.Queue(query, region, s.Index, p.Date, p.Value, p.CloudCover)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert %s observation %d: %w", s.Index, i, err)
		}
	}
	return nil
}

// IndexSeries loads stored observations between from and to, inclusive
func (r *Repository) IndexSeries(ctx context.Context, region, index string, from, to time.Time) (contracts.IndexTimeSeries, error) {
	query := `
		SELECT obs_date, value, cloud_cover
		FROM climate.index_observations
		WHERE region_key = $1 AND index_name = $2
		  AND obs_date BETWEEN $3 AND $4
		ORDER BY obs_date
	`

	rows, err := r.db.Query(ctx, query, region, index, from, to)
	if err != nil {
		return contracts.IndexTimeSeries{}, fmt.Errorf("query index series: %w", err)
	}
	defer rows.Close()

	s := contracts.IndexTimeSeries{Index: index}
	for rows.Next() {
		var p contracts.IndexPoint
		if err := rows.Scan(&p.Date, &p.Value, &p.CloudCover); err != nil {
			return contracts.IndexTimeSeries{}, fmt.Errorf("scan index observation: %w", err)
		}
		s.Points = append(s.Points, p)
	}
	if err := rows.Err(); err != nil {
		return contracts.IndexTimeSeries{}, fmt.Errorf("iterate index series: %w", err)
	}
	return s, nil
}

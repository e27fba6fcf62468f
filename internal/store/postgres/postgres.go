// Package postgres is the Store backing for multi-process deployments.
// The Pending→Running claim is a conditional UPDATE so concurrent queue
// managers cannot double-promote an execution.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/semmidev/custos/internal/domain"
	"github.com/semmidev/custos/internal/store"
)

type Store struct {
	db *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{db: pool}, nil
}

func (s *Store) Close() {
	s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	source_id TEXT NOT NULL,
	destination_id TEXT NOT NULL,
	encryption_profile_id TEXT NOT NULL DEFAULT '',
	retention JSONB,
	notify_condition TEXT NOT NULL DEFAULT 'ALWAYS',
	channel_ids JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS executions (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	ended_at TIMESTAMPTZ,
	log JSONB NOT NULL DEFAULT '[]',
	size BIGINT,
	remote_path TEXT,
	metadata JSONB NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS executions_status_created_idx
	ON executions (status, created_at, id);

CREATE TABLE IF NOT EXISTS encryption_profiles (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	wrapped_key BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

// Migrate creates the schema. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	var retention, channels []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, name, source_id, destination_id, encryption_profile_id, retention, notify_condition, channel_ids
		 FROM jobs WHERE id = $1`, id,
	).Scan(&job.ID, &job.Name, &job.SourceID, &job.DestinationID,
		&job.EncryptionProfileID, &retention, &job.NotifyCondition, &channels)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	if len(retention) > 0 {
		var policy domain.RetentionPolicy
		if err := json.Unmarshal(retention, &policy); err != nil {
			return nil, fmt.Errorf("decode job retention: %w", err)
		}
		job.Retention = &policy
	}
	if err := json.Unmarshal(channels, &job.ChannelIDs); err != nil {
		return nil, fmt.Errorf("decode job channels: %w", err)
	}
	return &job, nil
}

func (s *Store) PutJob(ctx context.Context, job *domain.Job) error {
	var retention []byte
	if job.Retention != nil {
		var err error
		retention, err = json.Marshal(job.Retention)
		if err != nil {
			return fmt.Errorf("encode job retention: %w", err)
		}
	}
	channels, err := json.Marshal(job.ChannelIDs)
	if err != nil {
		return fmt.Errorf("encode job channels: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO jobs (id, name, source_id, destination_id, encryption_profile_id, retention, notify_condition, channel_ids)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			source_id = EXCLUDED.source_id,
			destination_id = EXCLUDED.destination_id,
			encryption_profile_id = EXCLUDED.encryption_profile_id,
			retention = EXCLUDED.retention,
			notify_condition = EXCLUDED.notify_condition,
			channel_ids = EXCLUDED.channel_ids`,
		job.ID, job.Name, job.SourceID, job.DestinationID,
		job.EncryptionProfileID, retention, job.NotifyCondition, channels,
	)
	if err != nil {
		return fmt.Errorf("put job: %w", err)
	}
	return nil
}

func (s *Store) CreateExecution(ctx context.Context, exec *domain.Execution) error {
	logJSON, metaJSON, err := encodeExecution(exec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO executions (id, job_id, status, created_at, started_at, ended_at, log, size, remote_path, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		exec.ID, exec.JobID, exec.Status, exec.CreatedAt, exec.StartedAt,
		exec.EndedAt, logJSON, exec.Size, exec.RemotePath, metaJSON,
	)
	if err != nil {
		return fmt.Errorf("create execution: %w", err)
	}
	return nil
}

func (s *Store) UpdateExecution(ctx context.Context, exec *domain.Execution) error {
	logJSON, metaJSON, err := encodeExecution(exec)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE executions
		 SET status = $2, started_at = $3, ended_at = $4, log = $5, size = $6, remote_path = $7, metadata = $8
		 WHERE id = $1`,
		exec.ID, exec.Status, exec.StartedAt, exec.EndedAt,
		logJSON, exec.Size, exec.RemotePath, metaJSON,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetExecution(ctx context.Context, id string) (*domain.Execution, error) {
	exec, err := s.scanExecution(s.db.QueryRow(ctx,
		`SELECT id, job_id, status, created_at, started_at, ended_at, log, size, remote_path, metadata
		 FROM executions WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}
	return exec, nil
}

func (s *Store) CountRunning(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM executions WHERE status = $1`, domain.StatusRunning,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count running executions: %w", err)
	}
	return count, nil
}

func (s *Store) ListPending(ctx context.Context, limit int) ([]*domain.Execution, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, job_id, status, created_at, started_at, ended_at, log, size, remote_path, metadata
		 FROM executions WHERE status = $1
		 ORDER BY created_at ASC, id ASC
		 LIMIT $2`, domain.StatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending executions: %w", err)
	}
	defer rows.Close()

	var pending []*domain.Execution
	for rows.Next() {
		exec, err := s.scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending execution: %w", err)
		}
		pending = append(pending, exec)
	}
	return pending, rows.Err()
}

func (s *Store) ClaimPending(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE executions SET status = $2 WHERE id = $1 AND status = $3`,
		id, domain.StatusRunning, domain.StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim pending execution: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) CreateProfile(ctx context.Context, profile *domain.EncryptionProfile) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO encryption_profiles (id, name, description, wrapped_key, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		profile.ID, profile.Name, profile.Description, profile.WrappedKey, profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*domain.EncryptionProfile, error) {
	var profile domain.EncryptionProfile
	err := s.db.QueryRow(ctx,
		`SELECT id, name, description, wrapped_key, created_at
		 FROM encryption_profiles WHERE id = $1`, id,
	).Scan(&profile.ID, &profile.Name, &profile.Description, &profile.WrappedKey, &profile.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]*domain.EncryptionProfile, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, description, wrapped_key, created_at
		 FROM encryption_profiles ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*domain.EncryptionProfile
	for rows.Next() {
		var profile domain.EncryptionProfile
		if err := rows.Scan(&profile.ID, &profile.Name, &profile.Description,
			&profile.WrappedKey, &profile.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		profiles = append(profiles, &profile)
	}
	return profiles, rows.Err()
}

func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM encryption_profiles WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func encodeExecution(exec *domain.Execution) (logJSON, metaJSON []byte, err error) {
	logLines := exec.Log
	if logLines == nil {
		logLines = []string{}
	}
	logJSON, err = json.Marshal(logLines)
	if err != nil {
		return nil, nil, fmt.Errorf("encode execution log: %w", err)
	}

	meta := exec.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err = json.Marshal(meta)
	if err != nil {
		return nil, nil, fmt.Errorf("encode execution metadata: %w", err)
	}
	return logJSON, metaJSON, nil
}

func (s *Store) scanExecution(row pgx.Row) (*domain.Execution, error) {
	var exec domain.Execution
	var logJSON, metaJSON []byte
	var endedAt *time.Time

	if err := row.Scan(&exec.ID, &exec.JobID, &exec.Status, &exec.CreatedAt,
		&exec.StartedAt, &endedAt, &logJSON, &exec.Size, &exec.RemotePath, &metaJSON); err != nil {
		return nil, err
	}
	exec.EndedAt = endedAt

	if err := json.Unmarshal(logJSON, &exec.Log); err != nil {
		return nil, fmt.Errorf("decode execution log: %w", err)
	}
	if err := json.Unmarshal(metaJSON, &exec.Metadata); err != nil {
		return nil, fmt.Errorf("decode execution metadata: %w", err)
	}
	return &exec, nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// PostgresStore implements JobStore using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const jobColumns = `id, topic, topics, schedule, content_type, next_run, status, last_error, history, created_at, updated_at`

func (s *PostgresStore) List(ctx context.Context) ([]*models.Job, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, job *models.Job) error {
	topics := job.Topics
	if topics == nil {
		topics = []string{}
	}
	history := job.History
	if history == nil {
		history = []models.HistoryEntry{}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		   topic = EXCLUDED.topic,
		   topics = EXCLUDED.topics,
		   schedule = EXCLUDED.schedule,
		   content_type = EXCLUDED.content_type,
		   next_run = EXCLUDED.next_run,
		   status = EXCLUDED.status,
		   last_error = EXCLUDED.last_error,
		   history = EXCLUDED.history,
		   updated_at = EXCLUDED.updated_at`,
		job.ID, job.Topic, topics, job.Schedule, string(job.ContentType), job.NextRun,
		string(job.Status), job.LastError, history, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert job %s: %w", job.ID, err)
	}
	return nil
}

// Delete removes a job. Removing a missing job is not an error.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var (
		j           models.Job
		contentType string
		status      string
	)
	err := row.Scan(&j.ID, &j.Topic, &j.Topics, &j.Schedule, &contentType, &j.NextRun,
		&status, &j.LastError, &j.History, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	j.ContentType = models.ContentType(contentType)
	j.Status = models.JobStatus(status)
	if len(j.Topics) == 0 {
		j.Topics = nil
	}
	if len(j.History) == 0 {
		j.History = nil
	}
	return &j, nil
}

var _ JobStore = (*PostgresStore)(nil)

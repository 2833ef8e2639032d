package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

const statusColumns = `
	job_id, type, status, error_message, result_data,
	retry_count, max_retries, source, parent_id, correlation_id,
	metadata, started_at, completed_at, last_retry_at,
	created_at, updated_at`

// SetStatus upserts a status record. A row already in a terminal status
// is never overwritten; the conflict clause filters such writes out.
func (s *Store) SetStatus(ctx context.Context, info *job.StatusInfo) error {
	var parentID *string
	if !info.ParentID.IsNil() {
		v := info.ParentID.String()
		parentID = &v
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO copilot_status (
			job_id, type, status, error_message, result_data,
			retry_count, max_retries, source, parent_id, correlation_id,
			metadata, started_at, completed_at, last_retry_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			result_data = EXCLUDED.result_data,
			retry_count = EXCLUDED.retry_count,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			last_retry_at = EXCLUDED.last_retry_at,
			updated_at = EXCLUDED.updated_at
		WHERE copilot_status.status NOT IN ('completed', 'failed', 'cancelled', 'dead_letter')`,
		info.JobID.String(), info.Type, string(info.Status),
		info.ErrorMessage, info.ResultData,
		info.RetryCount, info.MaxRetries, info.Source, parentID, info.CorrelationID,
		info.Metadata, info.StartedAt, info.CompletedAt, info.LastRetryAt,
		info.CreatedAt, info.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("copilot/postgres: set status: %w", err)
	}
	return nil
}

// GetStatus retrieves a status record by job ID.
func (s *Store) GetStatus(ctx context.Context, jobID id.ID) (*job.StatusInfo, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+statusColumns+` FROM copilot_status WHERE job_id = $1`,
		jobID.String(),
	)

	info, err := scanStatus(row)
	if err != nil {
		if isNoRows(err) {
			return nil, copilot.ErrJobNotFound
		}
		return nil, fmt.Errorf("copilot/postgres: get status: %w", err)
	}
	return info, nil
}

// DeleteStatus removes a status record and its attempt history.
func (s *Store) DeleteStatus(ctx context.Context, jobID id.ID) error {
	jID := jobID.String()

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM copilot_status WHERE job_id = $1`, jID)
	if err != nil {
		return fmt.Errorf("copilot/postgres: delete status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return copilot.ErrJobNotFound
	}

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM copilot_attempts WHERE job_id = $1`, jID); err != nil {
		return fmt.Errorf("copilot/postgres: delete attempts: %w", err)
	}
	return nil
}

// ListByStatus returns records with the given status, newest first.
func (s *Store) ListByStatus(ctx context.Context, status job.Status, opts job.ListOpts) ([]*job.StatusInfo, error) {
	return s.List(ctx, job.Filter{Status: status, ListOpts: opts})
}

// ListByType returns records with the given job type, newest first.
func (s *Store) ListByType(ctx context.Context, jobType string, opts job.ListOpts) ([]*job.StatusInfo, error) {
	return s.List(ctx, job.Filter{Type: jobType, ListOpts: opts})
}

// ListBySource returns records with the given source, newest first.
func (s *Store) ListBySource(ctx context.Context, source string, opts job.ListOpts) ([]*job.StatusInfo, error) {
	return s.List(ctx, job.Filter{Source: source, ListOpts: opts})
}

// List returns records matching the combined filter, newest first.
func (s *Store) List(ctx context.Context, f job.Filter) ([]*job.StatusInfo, error) {
	query := `SELECT` + statusColumns + ` FROM copilot_status WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(f.Status))
		argIdx++
	}
	if f.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", argIdx)
		args = append(args, f.Type)
		argIdx++
	}
	if f.Source != "" {
		query += fmt.Sprintf(" AND source = $%d", argIdx)
		args = append(args, f.Source)
		argIdx++
	}

	query += " ORDER BY created_at DESC, job_id ASC"

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
		argIdx++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, f.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("copilot/postgres: list status: %w", err)
	}
	defer rows.Close()

	var infos []*job.StatusInfo
	for rows.Next() {
		info, scanErr := scanStatus(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("copilot/postgres: scan status row: %w", scanErr)
		}
		infos = append(infos, info)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("copilot/postgres: iterate status rows: %w", err)
	}
	return infos, nil
}

// AppendAttempt records one execution attempt for a job.
func (s *Store) AppendAttempt(ctx context.Context, att *job.Attempt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO copilot_attempts (
			id, job_id, number, started_at, finished_at,
			success, error, delay_ns, strategy
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		att.ID.String(), att.JobID.String(), att.Number,
		att.StartedAt, att.FinishedAt,
		att.Success, att.Error, int64(att.Delay), att.Strategy,
	)
	if err != nil {
		return fmt.Errorf("copilot/postgres: append attempt: %w", err)
	}
	return nil
}

// ListAttempts returns a job's attempts in execution order.
func (s *Store) ListAttempts(ctx context.Context, jobID id.ID) ([]*job.Attempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, job_id, number, started_at, finished_at,
			success, error, delay_ns, strategy
		FROM copilot_attempts
		WHERE job_id = $1
		ORDER BY number ASC`,
		jobID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("copilot/postgres: list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*job.Attempt
	for rows.Next() {
		var (
			att      job.Attempt
			idStr    string
			jobIDStr string
			delayNs  int64
		)
		if err := rows.Scan(
			&idStr, &jobIDStr, &att.Number, &att.StartedAt, &att.FinishedAt,
			&att.Success, &att.Error, &delayNs, &att.Strategy,
		); err != nil {
			return nil, fmt.Errorf("copilot/postgres: scan attempt row: %w", err)
		}

		att.ID, err = id.ParseAttemptID(idStr)
		if err != nil {
			return nil, fmt.Errorf("copilot/postgres: parse attempt id %q: %w", idStr, err)
		}
		att.JobID, err = id.ParseJobID(jobIDStr)
		if err != nil {
			return nil, fmt.Errorf("copilot/postgres: parse job id %q: %w", jobIDStr, err)
		}
		att.Delay = time.Duration(delayNs)
		attempts = append(attempts, &att)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("copilot/postgres: iterate attempt rows: %w", err)
	}
	return attempts, nil
}

// Metrics aggregates counts, durations, and failure rate in SQL, grouped
// by job type and status.
func (s *Store) Metrics(ctx context.Context) (*job.Metrics, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			type,
			status,
			COUNT(*),
			COALESCE(SUM(EXTRACT(EPOCH FROM (completed_at - started_at)))
				FILTER (WHERE started_at IS NOT NULL AND completed_at > started_at), 0),
			COUNT(*) FILTER (WHERE started_at IS NOT NULL AND completed_at > started_at),
			COALESCE(SUM(EXTRACT(EPOCH FROM (started_at - created_at)))
				FILTER (WHERE started_at > created_at), 0),
			COUNT(*) FILTER (WHERE started_at > created_at)
		FROM copilot_status
		GROUP BY type, status`,
	)
	if err != nil {
		return nil, fmt.Errorf("copilot/postgres: metrics: %w", err)
	}
	defer rows.Close()

	m := &job.Metrics{
		ByStatus: make(map[job.Status]int64),
		ByType:   make(map[string]*job.TypeMetrics),
	}

	type acc struct {
		processing      float64
		processingCount int64
		wait            float64
		waitCount       int64
		failed          int64
	}
	var overall acc
	perType := make(map[string]*acc)

	for rows.Next() {
		var (
			jobType    string
			status     string
			count      int64
			procSec    float64
			procCount  int64
			waitSec    float64
			waitCount  int64
		)
		if err := rows.Scan(&jobType, &status, &count,
			&procSec, &procCount, &waitSec, &waitCount); err != nil {
			return nil, fmt.Errorf("copilot/postgres: scan metrics row: %w", err)
		}

		st := job.Status(status)
		m.Total += count
		m.ByStatus[st] += count

		tm := m.ByType[jobType]
		if tm == nil {
			tm = &job.TypeMetrics{ByStatus: make(map[job.Status]int64)}
			m.ByType[jobType] = tm
			perType[jobType] = &acc{}
		}
		tm.Total += count
		tm.ByStatus[st] += count
		ta := perType[jobType]

		overall.processing += procSec
		overall.processingCount += procCount
		overall.wait += waitSec
		overall.waitCount += waitCount
		ta.processing += procSec
		ta.processingCount += procCount
		ta.wait += waitSec
		ta.waitCount += waitCount

		if st == job.StatusFailed || st == job.StatusDeadLetter {
			overall.failed += count
			ta.failed += count
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("copilot/postgres: iterate metrics rows: %w", err)
	}

	secs := func(total float64, n int64) time.Duration {
		if n == 0 {
			return 0
		}
		return time.Duration(total / float64(n) * float64(time.Second))
	}

	m.AvgProcessing = secs(overall.processing, overall.processingCount)
	m.AvgQueueWait = secs(overall.wait, overall.waitCount)
	if m.Total > 0 {
		m.FailureRate = float64(overall.failed) / float64(m.Total)
	}
	for jobType, tm := range m.ByType {
		ta := perType[jobType]
		tm.AvgProcessing = secs(ta.processing, ta.processingCount)
		tm.AvgQueueWait = secs(ta.wait, ta.waitCount)
		if tm.Total > 0 {
			tm.FailureRate = float64(ta.failed) / float64(tm.Total)
		}
	}

	return m, nil
}

// scanStatus scans a single status record row.
func scanStatus(row pgx.Row) (*job.StatusInfo, error) {
	var (
		info     job.StatusInfo
		jobIDStr string
		parentID *string
	)
	err := row.Scan(
		&jobIDStr, &info.Type, &info.Status, &info.ErrorMessage, &info.ResultData,
		&info.RetryCount, &info.MaxRetries, &info.Source, &parentID, &info.CorrelationID,
		&info.Metadata, &info.StartedAt, &info.CompletedAt, &info.LastRetryAt,
		&info.CreatedAt, &info.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	info.JobID, err = id.ParseJobID(jobIDStr)
	if err != nil {
		return nil, fmt.Errorf("copilot/postgres: parse job id %q: %w", jobIDStr, err)
	}
	if parentID != nil {
		info.ParentID, err = id.ParseJobID(*parentID)
		if err != nil {
			return nil, fmt.Errorf("copilot/postgres: parse parent id %q: %w", *parentID, err)
		}
	}
	return &info, nil
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
	"github.com/ronnygunawan/RG.OpenCopilot-sub005/job"
)

// SetStatus upserts a status record as a Hash. A record already in a
// terminal status is never overwritten.
func (s *Store) SetStatus(ctx context.Context, info *job.StatusInfo) error {
	jID := info.JobID.String()
	key := statusKey(jID)

	current, err := s.client.HGet(ctx, key, "status").Result()
	if err == nil && job.Status(current).Terminal() {
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, statusToMap(info))
	pipe.SAdd(ctx, statusIDsKey, jID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("copilot/redis: set status: %w", err)
	}
	return nil
}

// GetStatus retrieves a status record by job ID.
func (s *Store) GetStatus(ctx context.Context, jobID id.ID) (*job.StatusInfo, error) {
	return s.getStatusByKey(ctx, statusKey(jobID.String()))
}

// DeleteStatus removes a status record and its attempt history.
func (s *Store) DeleteStatus(ctx context.Context, jobID id.ID) error {
	jID := jobID.String()
	key := statusKey(jID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("copilot/redis: delete status exists: %w", err)
	}
	if exists == 0 {
		return copilot.ErrJobNotFound
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, attemptsKey(jID))
	pipe.SRem(ctx, statusIDsKey, jID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("copilot/redis: delete status: %w", err)
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
	infos, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*job.StatusInfo, 0, len(infos))
	for _, info := range infos {
		if f.Matches(info) {
			matched = append(matched, info)
		}
	}

	sort.Slice(matched, func(i, k int) bool {
		if !matched[i].CreatedAt.Equal(matched[k].CreatedAt) {
			return matched[i].CreatedAt.After(matched[k].CreatedAt)
		}
		return matched[i].JobID.String() < matched[k].JobID.String()
	})

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

// AppendAttempt records one execution attempt as a msgpack blob on the
// job's attempt List.
func (s *Store) AppendAttempt(ctx context.Context, att *job.Attempt) error {
	blob, err := msgpack.Marshal(att)
	if err != nil {
		return fmt.Errorf("copilot/redis: encode attempt: %w", err)
	}
	if err := s.client.RPush(ctx, attemptsKey(att.JobID.String()), blob).Err(); err != nil {
		return fmt.Errorf("copilot/redis: append attempt: %w", err)
	}
	return nil
}

// ListAttempts returns a job's attempts in execution order.
func (s *Store) ListAttempts(ctx context.Context, jobID id.ID) ([]*job.Attempt, error) {
	blobs, err := s.client.LRange(ctx, attemptsKey(jobID.String()), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("copilot/redis: list attempts: %w", err)
	}

	attempts := make([]*job.Attempt, 0, len(blobs))
	for _, blob := range blobs {
		var att job.Attempt
		if err := msgpack.Unmarshal([]byte(blob), &att); err != nil {
			return nil, fmt.Errorf("copilot/redis: decode attempt: %w", err)
		}
		attempts = append(attempts, &att)
	}

	sort.Slice(attempts, func(i, k int) bool {
		return attempts[i].Number < attempts[k].Number
	})
	return attempts, nil
}

// Metrics aggregates counts, durations, and failure rate across all
// status records.
func (s *Store) Metrics(ctx context.Context) (*job.Metrics, error) {
	infos, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	return job.ComputeMetrics(infos), nil
}

// ── helpers ──

func (s *Store) loadAll(ctx context.Context) ([]*job.StatusInfo, error) {
	ids, err := s.client.SMembers(ctx, statusIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("copilot/redis: list status smembers: %w", err)
	}

	infos := make([]*job.StatusInfo, 0, len(ids))
	for _, jID := range ids {
		info, getErr := s.getStatusByKey(ctx, statusKey(jID))
		if getErr != nil {
			continue // skip records deleted mid-scan
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (s *Store) getStatusByKey(ctx context.Context, key string) (*job.StatusInfo, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("copilot/redis: get status: %w", err)
	}
	if len(vals) == 0 {
		return nil, copilot.ErrJobNotFound
	}
	return mapToStatus(vals)
}

func statusToMap(info *job.StatusInfo) map[string]interface{} {
	m := map[string]interface{}{
		"job_id":         info.JobID.String(),
		"type":           info.Type,
		"status":         string(info.Status),
		"error":          info.ErrorMessage,
		"result":         string(info.ResultData),
		"retry_count":    strconv.Itoa(info.RetryCount),
		"max_retries":    strconv.Itoa(info.MaxRetries),
		"source":         info.Source,
		"correlation_id": info.CorrelationID,
		"metadata":       marshalJSON(info.Metadata),
		"created_at":     info.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":     info.UpdatedAt.Format(time.RFC3339Nano),
	}
	if !info.ParentID.IsNil() {
		m["parent_id"] = info.ParentID.String()
	}
	if info.StartedAt != nil {
		m["started_at"] = info.StartedAt.Format(time.RFC3339Nano)
	}
	if info.CompletedAt != nil {
		m["completed_at"] = info.CompletedAt.Format(time.RFC3339Nano)
	}
	if info.LastRetryAt != nil {
		m["last_retry_at"] = info.LastRetryAt.Format(time.RFC3339Nano)
	}
	return m
}

func mapToStatus(m map[string]string) (*job.StatusInfo, error) {
	jobID, err := id.ParseJobID(m["job_id"])
	if err != nil {
		return nil, fmt.Errorf("copilot/redis: parse job id: %w", err)
	}

	retryCount, _ := strconv.Atoi(m["retry_count"])               //nolint:errcheck // best-effort parse from trusted Redis data
	maxRetries, _ := strconv.Atoi(m["max_retries"])               //nolint:errcheck // best-effort parse from trusted Redis data
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	info := &job.StatusInfo{
		JobID:         jobID,
		Type:          m["type"],
		Status:        job.Status(m["status"]),
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
		ErrorMessage:  m["error"],
		RetryCount:    retryCount,
		MaxRetries:    maxRetries,
		Source:        m["source"],
		CorrelationID: m["correlation_id"],
		Metadata:      unmarshalMap(m["metadata"]),
	}
	if v := m["result"]; v != "" {
		info.ResultData = []byte(v)
	}
	if v := m["parent_id"]; v != "" {
		info.ParentID, _ = id.ParseJobID(v) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	if v := m["started_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		info.StartedAt = &t
	}
	if v := m["completed_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		info.CompletedAt = &t
	}
	if v := m["last_retry_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		info.LastRetryAt = &t
	}
	return info, nil
}

// marshalJSON is a helper to marshal to JSON string.
func marshalJSON(v interface{}) string {
	b, _ := json.Marshal(v) //nolint:errcheck // marshal should not fail for basic types
	return string(b)
}

// unmarshalMap parses a JSON map.
func unmarshalMap(s string) map[string]string {
	if s == "" || s == "null" {
		return nil
	}
	out := make(map[string]string)
	_ = json.Unmarshal([]byte(s), &out) //nolint:errcheck // best-effort parse from trusted Redis data
	return out
}

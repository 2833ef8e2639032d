package dlq

import (
	"time"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
)

// Entry represents a job that has exhausted its retry budget and been
// moved to the dead letter queue for inspection or replay.
type Entry struct {
	ID            id.ID             `json:"id"`
	JobID         id.ID             `json:"job_id"`
	JobType       string            `json:"job_type"`
	Payload       []byte            `json:"payload"`
	Error         string            `json:"error"`
	RetryCount    int               `json:"retry_count"`
	MaxRetries    int               `json:"max_retries"`
	Priority      int               `json:"priority"`
	Source        string            `json:"source,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	FailedAt      time.Time         `json:"failed_at"`
	ReplayedAt    *time.Time        `json:"replayed_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

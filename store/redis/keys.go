package redis

// Redis key naming conventions for engine data.
// All keys are prefixed with "copilot:" to avoid collisions.

const keyPrefix = "copilot:"

// ── Status keys ──

// statusKey returns the key for a status record Hash: copilot:status:{jobID}
func statusKey(jobID string) string { return keyPrefix + "status:" + jobID }

// statusIDsKey is the Set tracking all job IDs with status records.
const statusIDsKey = keyPrefix + "status_ids"

// attemptsKey returns the List key for a job's attempt history:
// copilot:attempts:{jobID}
func attemptsKey(jobID string) string { return keyPrefix + "attempts:" + jobID }

// ── DLQ keys ──

// dlqKey returns the key for a DLQ entry Hash: copilot:dlq:{id}
func dlqKey(id string) string { return keyPrefix + "dlq:" + id }

// dlqIDsKey is the Set tracking all DLQ entry IDs for enumeration.
const dlqIDsKey = keyPrefix + "dlq_ids"

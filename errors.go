package copilot

import "errors"

var (
	// Queue errors.
	ErrQueueFull   = errors.New("copilot: job queue full")
	ErrQueueClosed = errors.New("copilot: job queue closed")

	// Admission errors.
	ErrDuplicateJob   = errors.New("copilot: duplicate job")
	ErrUnknownJobType = errors.New("copilot: unknown job type")

	// Store errors.
	ErrNoStore         = errors.New("copilot: no store configured")
	ErrStoreClosed     = errors.New("copilot: store closed")
	ErrMigrationFailed = errors.New("copilot: migration failed")

	// Not found errors.
	ErrJobNotFound = errors.New("copilot: job not found")
	ErrDLQNotFound = errors.New("copilot: dlq entry not found")

	// Conflict errors.
	ErrJobAlreadyExists = errors.New("copilot: job already exists")
	ErrDuplicateHandler = errors.New("copilot: duplicate job handler")

	// State errors.
	ErrInvalidState       = errors.New("copilot: invalid state transition")
	ErrJobTerminal        = errors.New("copilot: job already in terminal state")
	ErrMaxRetriesExceeded = errors.New("copilot: max retries exceeded")
	ErrRegistryFrozen     = errors.New("copilot: registry frozen after start")
	ErrAlreadyStarted     = errors.New("copilot: engine already started")
	ErrNotStarted         = errors.New("copilot: engine not started")
)

// Package dedup provides in-flight duplicate suppression for dispatched
// jobs. A reservation is taken at dispatch time and held across retries;
// it is released only when the job reaches a terminal state, so a duplicate
// submission can never race an in-flight retry.
package dedup

import (
	"sync"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/id"
)

// Service is a concurrency-safe reservation table keyed by caller-derived
// dedup keys.
type Service struct {
	mu       sync.Mutex
	reserved map[string]id.ID
}

// NewService creates an empty reservation table.
func NewService() *Service {
	return &Service{
		reserved: make(map[string]id.ID),
	}
}

// TryReserve atomically reserves key for the given job. It returns false,
// leaving state unchanged, when another job currently holds the key.
// Empty keys are never reserved and always succeed.
func (s *Service) TryReserve(key string, jobID id.ID) bool {
	if key == "" {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.reserved[key]; taken {
		return false
	}

	s.reserved[key] = jobID

	return true
}

// Release frees the key, making it available for a fresh submission.
// Only the job holding the reservation may release it; stale releases
// from superseded jobs are ignored. Releasing an unknown or empty key
// is a no-op.
func (s *Service) Release(key string, jobID id.ID) {
	if key == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if holder, ok := s.reserved[key]; ok && holder == jobID {
		delete(s.reserved, key)
	}
}

// Holder returns the job currently holding the key, if any.
func (s *Service) Holder(key string) (id.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobID, ok := s.reserved[key]

	return jobID, ok
}

// Len returns the number of active reservations.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.reserved)
}

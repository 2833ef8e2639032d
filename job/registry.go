package job

import (
	"fmt"
	"sync"

	copilot "github.com/ronnygunawan/RG.OpenCopilot-sub005"
)

// Registry maps job types to handlers. Registration happens at startup;
// once the engine starts the registry freezes and rejects late mutation.
// Registering two handlers for the same type is a configuration error
// surfaced at registration time, not at dispatch time.
type Registry struct {
	mu       sync.RWMutex
	frozen   bool
	handlers map[string]Handler
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for its job type.
func (r *Registry) Register(h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("register handler for %q: %w", h.JobType(), copilot.ErrRegistryFrozen)
	}
	if _, exists := r.handlers[h.JobType()]; exists {
		return fmt.Errorf("register handler for %q: %w", h.JobType(), copilot.ErrDuplicateHandler)
	}

	r.handlers[h.JobType()] = h

	return nil
}

// Freeze prevents further registration. Called when the engine starts.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Get returns the handler for the given job type.
// Returns false if no handler is registered.
func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]

	return h, ok
}

// Types returns all registered job types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}

	return types
}

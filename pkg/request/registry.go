package request

import (
	"context"
	"sort"
	"sync"

	"github.com/studiolink/studiolink/pkg/protocol"
)

// Invocation carries everything a request implementation may consult:
// the calling session, the request data, and — when the request runs
// inside a batch — the batch's execution policy and frame scheduler.
type Invocation struct {
	Session   Session
	Data      map[string]any
	BatchMode protocol.BatchExecutionType
	Scheduler FrameScheduler
}

// Func implements one request type.
type Func func(ctx context.Context, inv *Invocation) Result

// Registry maps request types to their implementations. Registration
// happens at server construction; lookups happen on every inbound
// request.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]Func),
	}
}

// Register adds or replaces the implementation of a request type.
func (r *Registry) Register(requestType string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[requestType] = fn
}

// Lookup returns the implementation of a request type.
func (r *Registry) Lookup(requestType string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[requestType]
	return fn, ok
}

// Types returns every registered request type, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.funcs))
	for t := range r.funcs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

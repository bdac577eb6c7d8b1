package events

import "sync"

// SubscriptionRegistry tracks how many identified sessions are
// subscribed to each event category. Host callbacks consult it before
// building expensive payloads (volume meters in particular), so the
// bookkeeping has to stay consistent across concurrent Identify and
// Reidentify exchanges; the dispatcher serializes those per session
// with the session's operation lock, and the registry serializes
// cross-session updates with its own mutex.
type SubscriptionRegistry struct {
	mu     sync.RWMutex
	counts map[Subscription]uint64
}

// NewSubscriptionRegistry creates an empty registry.
func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{
		counts: make(map[Subscription]uint64),
	}
}

// Subscribe increments the refcount of every category set in mask.
func (r *SubscriptionRegistry) Subscribe(mask Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for bit := Subscription(1); bit != 0; bit <<= 1 {
		if mask&bit != 0 {
			r.counts[bit]++
		}
	}
}

// Unsubscribe decrements the refcount of every category set in mask.
// Decrementing a category with no subscribers is a no-op; that only
// happens if a caller unbalances Subscribe/Unsubscribe pairs.
func (r *SubscriptionRegistry) Unsubscribe(mask Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for bit := Subscription(1); bit != 0; bit <<= 1 {
		if mask&bit != 0 && r.counts[bit] > 0 {
			r.counts[bit]--
		}
	}
}

// Active reports whether any session is subscribed to every category
// in mask.
func (r *SubscriptionRegistry) Active(mask Subscription) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for bit := Subscription(1); bit != 0; bit <<= 1 {
		if mask&bit != 0 && r.counts[bit] == 0 {
			return false
		}
	}
	return mask != 0
}

// Count returns the refcount of a single category.
func (r *SubscriptionRegistry) Count(category Subscription) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counts[category]
}

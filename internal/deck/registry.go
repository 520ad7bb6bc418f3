package deck

import "sync"

// ContextRegistry maps on-screen key contexts to the action bound to them.
// It is owned by one Session and shared by its reader and poller.
type ContextRegistry struct {
	mu      sync.Mutex
	actions map[string]string
}

// NewContextRegistry creates an empty registry.
func NewContextRegistry() *ContextRegistry {
	return &ContextRegistry{actions: make(map[string]string)}
}

// Bind records that context shows action. Rebinding replaces the action.
func (r *ContextRegistry) Bind(context, action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[context] = action
}

// Unbind forgets context. Unknown contexts are ignored.
func (r *ContextRegistry) Unbind(context string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.actions, context)
}

// Action returns the action bound to context.
func (r *ContextRegistry) Action(context string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	action, ok := r.actions[context]
	return action, ok
}

// Len returns the number of bound contexts.
func (r *ContextRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actions)
}

// Each calls fn for every context bound to action while holding the
// registry lock, so an Unbind that returns first is never followed by an
// update for that context. fn must not call back into the registry.
func (r *ContextRegistry) Each(action string, fn func(context string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for context, a := range r.actions {
		if a == action {
			fn(context)
		}
	}
}

package action

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Registry is an in-process dispatcher for named actions. The set of
// declared names is fixed at construction; each action carries an optional
// write-once handler and an ordered list of subscribers.
//
// Control flow for Call(name, payload): with a handler attached the handler
// runs synchronously and receives a Done bound to the action; without one
// the payload is published immediately. Either way, publishing invokes the
// subscribers in subscription order on the calling goroutine.
//
// A Registry is safe for concurrent use. Publishing iterates over a
// snapshot of the subscriber list taken when the cycle starts, so a
// subscriber that unsubscribes itself (or adds others) affects the next
// cycle, not the current one.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*action
	tracer  tracerHook
}

// New creates a registry for exactly the action names given as keys of
// names. Values are ignored; only the key set matters. No action can be
// added or removed afterwards.
func New(names map[string]any, opts ...Option) *Registry {
	r := &Registry{
		actions: make(map[string]*action, len(names)),
	}
	for name := range names {
		r.actions[name] = &action{name: name}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterAsync attaches handler to a declared action, making it
// asynchronous/effectful. The handler slot is write-once: a second call
// for the same action fails with ErrHandlerAttached.
func (r *Registry) RegisterAsync(name string, handler Handler) error {
	if name == "" {
		return fmt.Errorf("register: %w", ErrInvalidName)
	}
	if handler == nil {
		return fmt.Errorf("register %q: %w", name, ErrNilHandler)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	act, ok := r.actions[name]
	if !ok {
		return fmt.Errorf("register %q: %w", name, ErrUnknownAction)
	}
	if act.handler != nil {
		return fmt.Errorf("register %q: %w", name, ErrHandlerAttached)
	}
	act.handler = handler
	return nil
}

// Call triggers an action. Unknown names are a silent no-op. With a
// handler attached, Call invokes it synchronously and returns; the handler
// owns completion through the Done it receives. Without a handler the
// payload is published to the current subscribers before Call returns.
func (r *Registry) Call(name string, payload any) {
	r.mu.RLock()
	act, ok := r.actions[name]
	var handler Handler
	if ok {
		handler = act.handler
	}
	r.mu.RUnlock()

	if !ok {
		return
	}

	if handler == nil {
		r.publish(name, payload)
		return
	}

	end := r.tracer.start("action.call", name)
	handler(Done{reg: r, name: name}, payload)
	end()
}

// On registers cb as a subscriber of the named action. It reports whether
// the callback was added: subscribing the same function twice is rejected
// (false, nil) and leaves exactly one entry. The same cb reference is the
// handle for Unsubscribe.
func (r *Registry) On(name string, cb Subscriber) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("subscribe: %w", ErrInvalidName)
	}
	if cb == nil {
		return false, fmt.Errorf("subscribe %q: %w", name, ErrNilSubscriber)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	act, ok := r.actions[name]
	if !ok {
		return false, fmt.Errorf("subscribe %q: %w", name, ErrUnknownAction)
	}

	key := reflect.ValueOf(cb).Pointer()
	for _, sub := range act.subs {
		if sub.key == key {
			return false, nil
		}
	}
	act.subs = append(act.subs, subscriber{fn: cb, key: key})
	return true, nil
}

// Unsubscribe removes the first subscriber matching cb from the named
// action. It is a no-op when the action is undeclared or cb was never
// subscribed.
func (r *Registry) Unsubscribe(name string, cb Subscriber) {
	if cb == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	act, ok := r.actions[name]
	if !ok {
		return
	}

	key := reflect.ValueOf(cb).Pointer()
	for i, sub := range act.subs {
		if sub.key == key {
			copy(act.subs[i:], act.subs[i+1:])
			act.subs = act.subs[:len(act.subs)-1]
			return
		}
	}
}

// Has reports whether name was declared when the registry was constructed.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.actions[name]
	return ok
}

// Names returns the declared action names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// publish invokes every subscriber currently registered for name, in
// subscription order, over a snapshot taken here. A panicking subscriber
// stops the remainder of the cycle; there is no isolation between
// subscribers. Unknown names are a no-op.
func (r *Registry) publish(name string, result any) {
	r.mu.RLock()
	act, ok := r.actions[name]
	var snapshot []subscriber
	if ok && len(act.subs) > 0 {
		snapshot = make([]subscriber, len(act.subs))
		copy(snapshot, act.subs)
	}
	r.mu.RUnlock()

	if !ok {
		return
	}

	end := r.tracer.startPublish("action.publish", name, len(snapshot))
	defer end()

	for _, sub := range snapshot {
		sub.fn(result)
	}
}

// count returns the number of subscribers, this is for testing only.
func (r *Registry) count(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if act, ok := r.actions[name]; ok {
		return len(act.subs)
	}
	return 0
}

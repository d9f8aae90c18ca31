// Package action implements an in-process action dispatcher: a registry of
// named operations that optionally run a caller-supplied handler before
// notifying subscribers that the operation completed.
package action

// Subscriber receives an action's result whenever that action completes.
// Subscribers are identified by function pointer; the same reference that
// was passed to On is the handle for Unsubscribe.
type Subscriber func(result any)

// Handler is an optional, caller-supplied function attached to an action
// with RegisterAsync. It is invoked synchronously by Call and is fully
// responsible for signalling completion through done. The dispatcher does
// not await, time out, or track in-flight calls; a handler that never
// invokes done simply never publishes.
type Handler func(done Done, payload any)

// Done signals completion of an action call. It is a first-class value
// bound to a single action: invoking it publishes the result to that
// action's current subscribers, synchronously, in subscription order.
//
// A handler may invoke Done zero, one, or many times; each invocation is
// an independent publish cycle.
type Done struct {
	reg  *Registry
	name string
}

// Invoke publishes result to the bound action's subscribers.
func (d Done) Invoke(result any) {
	if d.reg == nil {
		return
	}
	d.reg.publish(d.name, result)
}

// Action returns the name of the action this completion is bound to.
func (d Done) Action() string {
	return d.name
}

// subscriber pairs a callback with its identity key so duplicates can be
// rejected and Unsubscribe can find the first match.
type subscriber struct {
	fn  Subscriber
	key uintptr
}

// action is one declared operation: a write-once handler slot plus an
// ordered subscriber list. The name set is fixed when the owning Registry
// is constructed; only the handler slot and subscriber list ever change.
type action struct {
	name    string
	handler Handler // nil until RegisterAsync
	subs    []subscriber
}

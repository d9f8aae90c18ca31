package action

import "errors"

// Argument errors, raised synchronously by RegisterAsync and On.
var (
	ErrInvalidName   = errors.New("action name must be a non-empty string")
	ErrNilHandler    = errors.New("handler must not be nil")
	ErrNilSubscriber = errors.New("subscriber must not be nil")
)

// State errors, raised when an operation violates a registry invariant.
var (
	ErrUnknownAction   = errors.New("action is not declared in this registry")
	ErrHandlerAttached = errors.New("action already has a handler attached")
)

// Package observer implements a small generic publish/subscribe subject.
// Telemetry flush events and server audit events both fan out through it.
package observer

import (
	"context"
	"fmt"
	"sync"
)

// Observer defines the callback contract for receiving published events of type T.
type Observer[T any] interface {
	Notify(context.Context, T) error
}

// ObserverFunc adapts a standalone function into an Observer.
//
//revive:disable-next-line:exported
type ObserverFunc[T any] func(context.Context, T) error

// Notify executes the wrapped function.
func (f ObserverFunc[T]) Notify(ctx context.Context, evt T) error {
	if f == nil {
		return nil
	}
	return f(ctx, evt)
}

// Publisher publishes events to downstream observers.
type Publisher[T any] interface {
	Publish(context.Context, T)
}

// PanicError reports an observer that panicked while handling an event.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("observer panicked: %v", e.Value)
}

// Subject fans out events to registered observers in registration order.
// A failing or panicking observer never stops delivery to the rest.
type Subject[T any] struct {
	onError   func(error)
	observers []Observer[T]
	mu        sync.RWMutex
}

// NewSubject constructs a Subject with optional initial observers.
// Nil observers are ignored.
func NewSubject[T any](observers ...Observer[T]) *Subject[T] {
	s := &Subject[T]{}
	s.Attach(observers...)
	return s
}

// Publish invokes every observer with the provided event on the caller's goroutine.
func (s *Subject[T]) Publish(ctx context.Context, evt T) {
	if s == nil {
		return
	}
	s.mu.RLock()
	observers := s.observers
	errHandler := s.onError
	s.mu.RUnlock()

	for _, obs := range observers {
		if err := notify(ctx, obs, evt); err != nil && errHandler != nil {
			errHandler(err)
		}
	}
}

func notify[T any](ctx context.Context, obs Observer[T], evt T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return obs.Notify(ctx, evt)
}

// Attach registers additional observers to the subject.
func (s *Subject[T]) Attach(observers ...Observer[T]) {
	if s == nil || len(observers) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Publish reads the slice without the lock held; never append in place.
	next := make([]Observer[T], 0, len(s.observers)+len(observers))
	next = append(next, s.observers...)
	for _, o := range observers {
		if o != nil {
			next = append(next, o)
		}
	}
	s.observers = next
}

// Len returns the number of registered observers.
func (s *Subject[T]) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// SetErrorHandler configures a callback for observer failures.
func (s *Subject[T]) SetErrorHandler(fn func(error)) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

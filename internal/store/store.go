// Package store holds client-side state fetched from the Compere API.
//
// Stores cache server collections, expose derived views and apply optimistic
// local mutations after successful writes. Actions never return Go errors:
// each returns a Result carrying either data or a user-facing message. The
// server stays authoritative; local copies may diverge until the next fetch.
//
// Every store is safe for concurrent use. Each action's Result is its own;
// the shared Loading/LastError accessors are a convenience for views and follow
// last-writer-wins for LastError.
package store

import (
	"sync"

	"github.com/raphaelgruber/compere-go/internal/client"
)

// Result is the uniform outcome of a store action.
type Result[T any] struct {
	Success bool
	Data    T
	Error   string
}

// Empty is the Data type of actions with nothing to return.
type Empty = struct{}

func ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func fail[T any](msg string) Result[T] {
	return Result[T]{Error: msg}
}

// status tracks in-flight actions and the last error of a store.
type status struct {
	mu       sync.RWMutex
	inflight int
	lastErr  string
}

// begin marks an action as started and clears the last error.
func (s *status) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
	s.lastErr = ""
}

func (s *status) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight > 0 {
		s.inflight--
	}
}

// failWith records err's message (or fallback) as the last error and returns it.
func (s *status) failWith(err error, fallback string) string {
	msg := client.Message(err, fallback)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = msg
	return msg
}

// Loading reports whether any loading action is in flight.
func (s *status) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// LastError returns the message of the most recent failed action, or "".
func (s *status) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ClearError forgets the last error.
func (s *status) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
}

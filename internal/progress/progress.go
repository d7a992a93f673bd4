// Package progress carries status events from a background indexing task to
// the single reader streaming them to a client.
package progress

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Next once the stream is closed and drained.
var ErrClosed = errors.New("progress stream closed")

// Event is one status update. Exactly one event per stream carries Error or
// Complete, and it is the last one.
type Event struct {
	Progress *int   `json:"progress,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Complete bool   `json:"complete,omitempty"`
}

func (e Event) Terminal() bool {
	return e.Error != "" || e.Complete
}

// Percent returns the event's progress, or -1 when it has none.
func (e Event) Percent() int {
	if e.Progress == nil {
		return -1
	}
	return *e.Progress
}

// Stream is an unbounded FIFO with one producer and one consumer. Emitting
// never blocks, so a producer whose reader went away still runs to the end.
type Stream struct {
	mu         sync.Mutex
	queue      []Event
	ready      chan struct{}
	closed     bool
	terminated bool
}

func NewStream() *Stream {
	return &Stream{ready: make(chan struct{}, 1)}
}

// Failed returns a closed stream holding only an error event.
func Failed(message string) *Stream {
	s := NewStream()
	s.Fail(message)
	s.Close()
	return s
}

func (s *Stream) Progress(percent int, message string) {
	percent = max(0, min(percent, 100))
	s.emit(Event{Progress: &percent, Message: message})
}

func (s *Stream) Fail(message string) {
	s.emit(Event{Error: message})
}

func (s *Stream) Complete(message string) {
	done := 100
	s.emit(Event{Progress: &done, Message: message, Complete: true})
}

// Terminated reports whether an error or complete event has been emitted.
func (s *Stream) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// emit drops events after the terminal one and after Close.
func (s *Stream) emit(e Event) {
	s.mu.Lock()
	if s.closed || s.terminated {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, e)
	s.terminated = e.Terminal()
	s.mu.Unlock()
	s.signal()
}

// Close marks the end of the stream. Queued events are still delivered.
func (s *Stream) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()
}

func (s *Stream) signal() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Next blocks until an event is available. It returns ErrClosed after the
// last event of a closed stream, or ctx's error if ctx ends first.
func (s *Stream) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			e := s.queue[0]
			s.queue[0] = Event{}
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return e, nil
		}
		if s.closed {
			s.mu.Unlock()
			return Event{}, ErrClosed
		}
		s.mu.Unlock()

		select {
		case <-s.ready:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

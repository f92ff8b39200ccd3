// Package events delivers committed ledger notifications to subscribers.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/terra-clan/quest-ledger/internal/models"
)

// Sink receives events after their invocation committed
type Sink interface {
	Publish(ctx context.Context, evt models.Event) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, evt models.Event) error

// Publish implements Sink
func (f SinkFunc) Publish(ctx context.Context, evt models.Event) error {
	return f(ctx, evt)
}

// Discard drops every event
var Discard Sink = SinkFunc(func(context.Context, models.Event) error { return nil })

// Multi fans an event out to every sink and joins their errors
type Multi []Sink

// Publish implements Sink
func (m Multi) Publish(ctx context.Context, evt models.Event) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps events in memory
type Recorder struct {
	mu     sync.RWMutex
	events []models.Event
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish implements Sink
func (r *Recorder) Publish(_ context.Context, evt models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Event(nil), r.events...)
}

// Topics returns recorded topics in order
func (r *Recorder) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		topics = append(topics, evt.Topic)
	}
	return topics
}

// Since returns recorded events with a sequence greater than after
func (r *Recorder) Since(_ context.Context, after uint64, limit int) ([]models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.Event
	for _, evt := range r.events {
		if evt.Sequence <= after {
			continue
		}
		result = append(result, evt)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

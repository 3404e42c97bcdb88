package messaging

import (
	"context"
	"errors"

	"github.com/greenlink-eco/credit-engine/internal/domain"
)

// Fanout publishes every event to each wrapped publisher. One slow or
// failing sink does not stop the others; errors are joined.
type Fanout struct {
	publishers []Publisher
}

// NewFanout wraps a set of publishers as one.
func NewFanout(publishers ...Publisher) *Fanout {
	return &Fanout{publishers: publishers}
}

// Publish delivers to all sinks.
func (f *Fanout) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all sinks.
func (f *Fanout) Close() error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

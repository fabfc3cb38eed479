// Package emitter publishes Corral scan results to outputs: terminals,
// files and metrics backends.
package emitter

import (
	"context"
	"errors"

	"github.com/yairfalse/corral/pkg/resource"
)

// Emitter outputs a scan result to a backend.
type Emitter interface {
	// Emit publishes one scan result.
	Emit(ctx context.Context, result resource.ScanResult) error

	// Close cleans up resources.
	Close() error
}

// MultiEmitter fans out to multiple emitters.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates an emitter that sends to multiple backends.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// Emit sends to every emitter, returns first error.
func (m *MultiEmitter) Emit(ctx context.Context, result resource.ScanResult) error {
	for _, e := range m.emitters {
		if err := e.Emit(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every emitter and joins their errors.
func (m *MultiEmitter) Close() error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package eventsourcing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Repository loads aggregates by replaying their event stream and saves them
// by appending their uncommitted events at the revision they were loaded at.
//
// It never merges concurrent changes: a failed revision check surfaces as
// *StreamRevisionConflictError and the caller must reload and reapply the
// intent, which Update does with a bounded retry.
type Repository[T Entity] struct {
	store EventStore
	newFn func() T
	cfg   repositoryOptions
}

// repositoryOptions defines configuration for a Repository.
type repositoryOptions struct {
	// RetryStrategy bounds how Update retries on revision conflicts.
	RetryStrategy func() backoff.BackOff

	// MetadataFuncs enrich every envelope with metadata at save time.
	MetadataFuncs []func(ctx context.Context) map[string]any
}

// RepositoryOption customizes a Repository.
type RepositoryOption func(*repositoryOptions)

// WithRetryStrategy sets the retry strategy used by Update for concurrency
// conflicts. The factory is invoked per Update call so strategies are not
// shared across goroutines.
func WithRetryStrategy(factory func() backoff.BackOff) RepositoryOption {
	return func(cfg *repositoryOptions) { cfg.RetryStrategy = factory }
}

// WithMetadataExtractor adds a metadata function applied to every envelope
// saved through the repository. Multiple extractors are applied in order of
// registration.
func WithMetadataExtractor(fn func(ctx context.Context) map[string]any) RepositoryOption {
	return func(cfg *repositoryOptions) {
		cfg.MetadataFuncs = append(cfg.MetadataFuncs, fn)
	}
}

// NewRepository creates a repository for aggregates of type T. newFn must
// return a fresh zero-state aggregate ready to fold events.
func NewRepository[T Entity](store EventStore, newFn func() T, opts ...RepositoryOption) *Repository[T] {
	cfg := repositoryOptions{
		RetryStrategy: func() backoff.BackOff {
			// Bounded reload-and-retry: three attempts, constant spacing.
			return backoff.WithMaxRetries(backoff.NewConstantBackOff(25*time.Millisecond), 3)
		},
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &Repository[T]{store: store, newFn: newFn, cfg: cfg}
}

// GetByID reads the full event stream for id, folds the events in version
// order into a fresh aggregate and records the resulting version as the
// expected revision for a subsequent Save.
//
// A missing or empty stream yields ErrStreamNotFound. A version gap or
// duplicate yields ErrCorruptStream.
func (r *Repository[T]) GetByID(ctx context.Context, id string) (T, error) {
	var zero T

	iter, err := r.store.LoadStream(ctx, id)
	if err != nil {
		if errors.Is(err, ErrStreamNotFound) {
			return zero, fmt.Errorf("aggregate %q: %w", id, ErrStreamNotFound)
		}
		return zero, fmt.Errorf("load stream %q: %w", id, err)
	}

	aggregate := r.newFn()
	var version uint64

	for iter.Next(ctx) {
		envelope := iter.Value()
		if envelope.Version != version+1 {
			return zero, fmt.Errorf("stream %q: version %d follows %d: %w",
				id, envelope.Version, version, ErrCorruptStream)
		}
		aggregate.Apply(envelope.Event)
		version = envelope.Version
	}
	if err := iter.Err(); err != nil {
		return zero, fmt.Errorf("replay stream %q: %w", id, err)
	}

	if version == 0 {
		return zero, fmt.Errorf("aggregate %q: %w", id, ErrStreamNotFound)
	}

	aggregate.SetAggregateVersion(version)
	return aggregate, nil
}

// Save appends the aggregate's uncommitted events to its stream, asserting
// the stream is still at the revision the aggregate was loaded at. On success
// the committed version advances by the number of appended events and the
// uncommitted buffer is cleared.
//
// On a failed revision check the error wraps *StreamRevisionConflictError and
// the aggregate is left untouched so the caller can reload and retry.
func (r *Repository[T]) Save(ctx context.Context, aggregate T) (AppendResult, error) {
	events := aggregate.UncommittedEvents()
	if len(events) == 0 {
		return AppendResult{Successful: true, NextExpectedVersion: aggregate.AggregateVersion()}, nil
	}

	r.enrich(ctx, events)

	expected := Revision(aggregate.AggregateVersion())
	result, err := r.store.Save(ctx, events, expected)
	if err != nil {
		return result, fmt.Errorf("save aggregate %q: %w", aggregate.EntityID(), err)
	}

	aggregate.SetAggregateVersion(result.NextExpectedVersion)
	aggregate.ClearUncommittedEvents()
	return result, nil
}

// enrich runs the configured metadata functions over every envelope about to
// be persisted.
func (r *Repository[T]) enrich(ctx context.Context, events []Envelope) {
	if len(r.cfg.MetadataFuncs) == 0 {
		return
	}
	for i := range events {
		if events[i].Metadata == nil {
			events[i].Metadata = make(map[string]any)
		}
		for _, fn := range r.cfg.MetadataFuncs {
			for k, v := range fn(ctx) {
				events[i].Metadata[k] = v
			}
		}
	}
}

// Update loads the aggregate, invokes fn to apply an intent, and saves. On a
// concurrency conflict it reloads and reapplies fn, bounded by the configured
// retry strategy. Errors returned by fn are surfaced immediately and never
// retried; the store is not touched for them.
func (r *Repository[T]) Update(ctx context.Context, id string, fn func(T) error) (T, error) {
	return backoff.RetryWithData(func() (T, error) {
		var zero T

		aggregate, err := r.GetByID(ctx, id)
		if err != nil {
			return zero, backoff.Permanent(err)
		}

		if err := fn(aggregate); err != nil {
			return zero, backoff.Permanent(err)
		}

		if _, err := r.Save(ctx, aggregate); err != nil {
			var conflict *StreamRevisionConflictError
			if errors.As(err, &conflict) {
				return zero, err
			}
			return zero, backoff.Permanent(err)
		}
		return aggregate, nil
	}, r.cfg.RetryStrategy())
}

// CreateNew persists a brand-new aggregate, requiring that its stream does
// not exist yet.
func (r *Repository[T]) CreateNew(ctx context.Context, aggregate T) (AppendResult, error) {
	events := aggregate.UncommittedEvents()
	if len(events) == 0 {
		return AppendResult{Successful: true}, nil
	}

	r.enrich(ctx, events)

	result, err := r.store.Save(ctx, events, NoStream{})
	if err != nil {
		return result, fmt.Errorf("create aggregate %q: %w", aggregate.EntityID(), err)
	}

	aggregate.SetAggregateVersion(result.NextExpectedVersion)
	aggregate.ClearUncommittedEvents()
	return result, nil
}

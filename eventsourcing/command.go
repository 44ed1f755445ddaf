package eventsourcing

import (
	"context"

	"github.com/google/uuid"
)

// Command expresses an intent to change one aggregate.
type Command interface {
	AggregateID() uuid.UUID
}

// CommandHandler handles commands of a specific type. Implementations load
// the target aggregate, invoke the matching intent and persist the outcome;
// any domain state change is expressed via appended events, never by direct
// mutation.
type CommandHandler[C Command] func(ctx context.Context, command C) (AppendResult, error)

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	cqrs "github.com/terraskye/booking/eventsourcing"
)

var _ cqrs.EventStore = (*Store)(nil)

// Schema creates the append-only event log table. The unique
// (stream_id, version) index is what makes the optimistic check authoritative:
// even if two writers pass the in-transaction version read, only one insert
// for a given version can commit.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
	global_position BIGSERIAL PRIMARY KEY,
	event_id        UUID        NOT NULL,
	stream_id       TEXT        NOT NULL,
	version         BIGINT      NOT NULL,
	event_type      TEXT        NOT NULL,
	payload         JSONB       NOT NULL,
	metadata        JSONB       NOT NULL DEFAULT '{}',
	occurred_at     TIMESTAMPTZ NOT NULL,
	UNIQUE (stream_id, version)
);
`

// Store is an event store backed by Postgres. Save performs the
// assert-then-append step inside one transaction, so no in-process lock is
// needed; concurrent appends to the same stream are resolved by the unique
// version index.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the events table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure events schema: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, events []cqrs.Envelope, revision cqrs.StreamState) (cqrs.AppendResult, error) {
	if len(events) == 0 {
		return cqrs.AppendResult{Successful: true}, nil
	}

	streamID := events[0].StreamID
	for i, env := range events {
		if env.StreamID != streamID {
			return cqrs.AppendResult{}, fmt.Errorf(
				"save events to stream %q: %w: event %d has different stream ID %q",
				streamID, cqrs.ErrInvalidEventBatch, i, env.StreamID,
			)
		}
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return cqrs.AppendResult{}, fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const currentQuery = `SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = $1`
	var currentVersion uint64
	if err := tx.QueryRow(ctx, currentQuery, streamID).Scan(&currentVersion); err != nil {
		return cqrs.AppendResult{}, fmt.Errorf("read stream %q version: %w", streamID, err)
	}

	switch rev := revision.(type) {
	case cqrs.Any:
		// No concurrency check
	case cqrs.NoStream:
		if currentVersion != 0 {
			return cqrs.AppendResult{Successful: false},
				fmt.Errorf("stream %q: already exists: %w", streamID, cqrs.ErrStreamExists)
		}
	case cqrs.StreamExists:
		if currentVersion == 0 {
			return cqrs.AppendResult{Successful: false},
				fmt.Errorf("stream %q: should exist: %w", streamID, cqrs.ErrStreamNotFound)
		}
	case cqrs.Revision:
		if currentVersion != uint64(rev) {
			return cqrs.AppendResult{}, &cqrs.StreamRevisionConflictError{
				Stream:           streamID,
				ExpectedRevision: rev,
				ActualRevision:   cqrs.Revision(currentVersion),
			}
		}
	default:
		return cqrs.AppendResult{Successful: false},
			fmt.Errorf("unsupported revision type for stream %s: %w", streamID, cqrs.ErrInvalidRevision)
	}

	const insertQuery = `
INSERT INTO events (event_id, stream_id, version, event_type, payload, metadata, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING global_position`

	for i := range events {
		currentVersion++
		events[i].Version = currentVersion

		payload, err := json.Marshal(events[i].Event)
		if err != nil {
			return cqrs.AppendResult{}, cqrs.WrapEventStoreError(
				fmt.Errorf("cannot marshal event %q: %w", events[i].Event.EventType(), err))
		}
		metadata, err := json.Marshal(events[i].Metadata)
		if err != nil {
			return cqrs.AppendResult{}, cqrs.WrapEventStoreError(err)
		}

		err = tx.QueryRow(ctx, insertQuery,
			events[i].EventID,
			streamID,
			events[i].Version,
			events[i].Event.EventType(),
			payload,
			metadata,
			events[i].OccurredAt,
		).Scan(&events[i].GlobalVersion)
		if err != nil {
			if isUniqueViolation(err) {
				// Lost the race after the version read.
				return cqrs.AppendResult{}, &cqrs.StreamRevisionConflictError{
					Stream:           streamID,
					ExpectedRevision: cqrs.Revision(events[i].Version - 1),
					ActualRevision:   cqrs.Revision(events[i].Version),
				}
			}
			return cqrs.AppendResult{}, fmt.Errorf("append to stream %q: %w", streamID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return cqrs.AppendResult{}, &cqrs.StreamRevisionConflictError{
				Stream:           streamID,
				ExpectedRevision: cqrs.Revision(currentVersion - uint64(len(events))),
				ActualRevision:   cqrs.Revision(currentVersion),
			}
		}
		return cqrs.AppendResult{}, fmt.Errorf("commit append to stream %q: %w", streamID, err)
	}

	return cqrs.AppendResult{
		Successful:          true,
		NextExpectedVersion: currentVersion,
	}, nil
}

func (s *Store) LoadStream(ctx context.Context, id string) (*cqrs.Iterator[*cqrs.Envelope], error) {
	const query = `
SELECT event_id, stream_id, version, event_type, payload, metadata, occurred_at, global_position
FROM events
WHERE stream_id = $1
ORDER BY version`

	envelopes, err := s.query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if len(envelopes) == 0 {
		return nil, fmt.Errorf("load stream %q: %w", id, cqrs.ErrStreamNotFound)
	}
	return cqrs.NewSliceIterator(envelopes), nil
}

func (s *Store) LoadStreamFrom(ctx context.Context, id string, version uint64) (*cqrs.Iterator[*cqrs.Envelope], error) {
	const query = `
SELECT event_id, stream_id, version, event_type, payload, metadata, occurred_at, global_position
FROM events
WHERE stream_id = $1 AND version > $2
ORDER BY version`

	envelopes, err := s.query(ctx, query, id, version)
	if err != nil {
		return nil, err
	}
	return cqrs.NewSliceIterator(envelopes), nil
}

func (s *Store) LoadFromAll(ctx context.Context, version uint64) (*cqrs.Iterator[*cqrs.Envelope], error) {
	const query = `
SELECT event_id, stream_id, version, event_type, payload, metadata, occurred_at, global_position
FROM events
WHERE global_position > $1
ORDER BY global_position`

	envelopes, err := s.query(ctx, query, version)
	if err != nil {
		return nil, err
	}
	return cqrs.NewSliceIterator(envelopes), nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*cqrs.Envelope, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var envelopes []*cqrs.Envelope
	for rows.Next() {
		var (
			eventID    uuid.UUID
			streamID   string
			version    uint64
			eventType  string
			payload    []byte
			metadata   []byte
			occurredAt time.Time
			globalPos  uint64
		)
		if err := rows.Scan(&eventID, &streamID, &version, &eventType, &payload, &metadata, &occurredAt, &globalPos); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		ev, err := cqrs.NewEventByName(eventType)
		if err != nil {
			return nil, cqrs.WrapEventStoreError(fmt.Errorf("cannot create event %q: %w", eventType, err))
		}
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, cqrs.WrapEventStoreError(fmt.Errorf("cannot unmarshal event %q: %w", eventType, err))
		}

		md := make(map[string]any)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &md); err != nil {
				return nil, cqrs.WrapEventStoreError(err)
			}
		}

		envelopes = append(envelopes, &cqrs.Envelope{
			EventID:       eventID,
			StreamID:      streamID,
			Event:         ev,
			Metadata:      md,
			Version:       version,
			GlobalVersion: globalPos,
			OccurredAt:    occurredAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return envelopes, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

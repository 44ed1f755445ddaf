package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	cqrs "github.com/terraskye/booking/eventsourcing"
)

var _ cqrs.EventStore = (*FilesStore)(nil)

// FilesStore persists each event as one JSON file per stream directory, with
// a symlink per event under all/ forming the global stream. It is meant for
// local development; the mutex makes check-then-append atomic per process.
type FilesStore struct {
	baseDir   string
	mu        sync.Mutex
	bus       chan *cqrs.Envelope
	globalSeq uint64
}

func NewFileStore(dir string) (*FilesStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "all"), 0o755); err != nil {
		return nil, err
	}

	f := &FilesStore{
		baseDir: dir,
		bus:     make(chan *cqrs.Envelope, 100),
	}

	// Resume the global sequence from what is already on disk.
	entries, err := os.ReadDir(filepath.Join(dir, "all"))
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		parts := strings.SplitN(e.Name(), "-", 2)
		if seq, err := strconv.ParseUint(parts[0], 10, 64); err == nil && seq > f.globalSeq {
			f.globalSeq = seq
		}
	}

	return f, nil
}

func (f *FilesStore) streamDir(id string) string {
	return filepath.Join(f.baseDir, id)
}

func (f *FilesStore) Save(ctx context.Context, events []cqrs.Envelope, revision cqrs.StreamState) (cqrs.AppendResult, error) {
	if len(events) == 0 {
		return cqrs.AppendResult{Successful: true}, nil
	}

	id := events[0].StreamID
	for i, env := range events {
		if env.StreamID != id {
			return cqrs.AppendResult{}, fmt.Errorf(
				"save events to stream %q: %w: event %d has different stream ID %q",
				id, cqrs.ErrInvalidEventBatch, i, env.StreamID,
			)
		}
	}

	sdir := f.streamDir(id)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(sdir, 0o755); err != nil {
		return cqrs.AppendResult{}, err
	}

	// Determine current version
	files, _ := os.ReadDir(sdir)
	currentVersion := uint64(len(files))

	switch rev := revision.(type) {
	case cqrs.Any:
		// No concurrency check
	case cqrs.NoStream:
		if currentVersion != 0 {
			err := fmt.Errorf("stream %q: already exists: %w", id, cqrs.ErrStreamExists)
			return cqrs.AppendResult{Successful: false}, err
		}
	case cqrs.StreamExists:
		if currentVersion == 0 {
			err := fmt.Errorf("stream %q: should exist: %w", id, cqrs.ErrStreamNotFound)
			return cqrs.AppendResult{Successful: false}, err
		}
	case cqrs.Revision:
		if currentVersion != uint64(rev) {
			return cqrs.AppendResult{}, &cqrs.StreamRevisionConflictError{
				Stream:           id,
				ExpectedRevision: rev,
				ActualRevision:   cqrs.Revision(currentVersion),
			}
		}
	default:
		err := fmt.Errorf("unsupported revision type for stream %s: %w", id, cqrs.ErrInvalidRevision)
		return cqrs.AppendResult{Successful: false}, err
	}

	// Append events
	for i := range events {
		select {
		case <-ctx.Done():
			return cqrs.AppendResult{Successful: false}, ctx.Err()
		default:
		}
		currentVersion++
		f.globalSeq++
		events[i].Version = currentVersion
		events[i].GlobalVersion = f.globalSeq

		fname := fmt.Sprintf("%010d-%s.json", events[i].Version, events[i].Event.EventType())
		path := filepath.Join(sdir, fname)

		eventData, err := json.Marshal(events[i].Event)
		if err != nil {
			return cqrs.AppendResult{}, cqrs.WrapEventStoreError(fmt.Errorf("cannot marshal event %q: %w", events[i].Event.EventType(), err))
		}

		z := storedEvent{
			EventID:       events[i].EventID,
			StreamID:      events[i].StreamID,
			Metadata:      events[i].Metadata,
			EventType:     events[i].Event.EventType(),
			Data:          eventData,
			Version:       events[i].Version,
			GlobalVersion: events[i].GlobalVersion,
			OccurredAt:    events[i].OccurredAt,
		}

		serializedData, err := json.Marshal(z)
		if err != nil {
			return cqrs.AppendResult{}, cqrs.WrapEventStoreError(err)
		}

		if err := os.WriteFile(path, serializedData, 0o644); err != nil {
			return cqrs.AppendResult{}, err
		}
		// symlink to all/
		all := filepath.Join(f.baseDir, "all", fmt.Sprintf("%010d-%s.json", events[i].GlobalVersion, events[i].Event.EventType()))

		rel, _ := filepath.Rel(filepath.Join(f.baseDir, "all"), path)

		if err := os.Symlink(rel, all); err != nil {
			return cqrs.AppendResult{}, err
		}

		select {
		case f.bus <- &events[i]:
		default:
			// Drop if channel full
		}
	}

	return cqrs.AppendResult{
		Successful:          true,
		NextExpectedVersion: currentVersion,
	}, nil
}

func (f *FilesStore) LoadStream(ctx context.Context, id string) (*cqrs.Iterator[*cqrs.Envelope], error) {
	if _, err := os.Stat(f.streamDir(id)); os.IsNotExist(err) {
		return nil, fmt.Errorf("load stream %q: %w", id, cqrs.ErrStreamNotFound)
	}
	return f.loadFromDir(f.streamDir(id), 0)
}

func (f *FilesStore) LoadStreamFrom(ctx context.Context, id string, version uint64) (*cqrs.Iterator[*cqrs.Envelope], error) {
	if _, err := os.Stat(f.streamDir(id)); os.IsNotExist(err) {
		return nil, fmt.Errorf("load stream %q: %w", id, cqrs.ErrStreamNotFound)
	}
	return f.loadFromDir(f.streamDir(id), version)
}

func (f *FilesStore) loadFromDir(dir string, from uint64) (*cqrs.Iterator[*cqrs.Envelope], error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return cqrs.NewIteratorFunc(func(ctx context.Context) (*cqrs.Envelope, error) {
				return nil, io.EOF
			}), nil
		}
		return nil, err
	}

	idx := 0
	nextFunc := func(ctx context.Context) (*cqrs.Envelope, error) {
		for idx < len(files) {
			fi := files[idx]
			idx++
			if fi.IsDir() {
				continue
			}

			parts := strings.Split(fi.Name(), "-")
			if len(parts) < 2 {
				continue
			}
			ver, _ := strconv.ParseUint(parts[0], 10, 64)
			if ver <= from {
				continue
			}

			path := filepath.Join(dir, fi.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}

			var storedEv storedEvent
			if err := json.Unmarshal(data, &storedEv); err != nil {
				continue
			}

			ev, err := cqrs.NewEventByName(storedEv.EventType)
			if err != nil {
				return nil, cqrs.WrapEventStoreError(fmt.Errorf("cannot create event %q: %w", storedEv.EventType, err))
			}

			if err := json.Unmarshal(storedEv.Data, &ev); err != nil {
				return nil, cqrs.WrapEventStoreError(fmt.Errorf("cannot unmarshal event %q: %w", storedEv.EventType, err))
			}

			envelope := cqrs.Envelope{
				EventID:       storedEv.EventID,
				StreamID:      storedEv.StreamID,
				Event:         ev,
				Metadata:      storedEv.Metadata,
				Version:       storedEv.Version,
				GlobalVersion: storedEv.GlobalVersion,
				OccurredAt:    storedEv.OccurredAt,
			}

			return &envelope, nil
		}
		return nil, io.EOF
	}

	return cqrs.NewIteratorFunc(nextFunc), nil
}

func (f *FilesStore) LoadFromAll(ctx context.Context, version uint64) (*cqrs.Iterator[*cqrs.Envelope], error) {
	return f.loadFromDir(filepath.Join(f.baseDir, "all"), version)
}

// Events exposes a live tail of committed envelopes. Delivery is
// best-effort: when no reader keeps up, Save drops the envelope instead of
// blocking.
func (f *FilesStore) Events() <-chan *cqrs.Envelope {
	return f.bus
}

func (f *FilesStore) Close() error {
	close(f.bus)
	return nil
}

type storedEvent struct {
	EventID       uuid.UUID       `json:"event_id"`
	StreamID      string          `json:"stream_id"`
	Metadata      map[string]any  `json:"metadata"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Version       uint64          `json:"version"`
	GlobalVersion uint64          `json:"global_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

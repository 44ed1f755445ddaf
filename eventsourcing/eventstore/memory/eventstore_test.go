package memory_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	cqrs "github.com/terraskye/booking/eventsourcing"
	"github.com/terraskye/booking/eventsourcing/eventstore/memory"
)

type bookingPlaced struct {
	BookingID string
	GuestID   string
}

func (e bookingPlaced) AggregateID() string { return e.BookingID }
func (e bookingPlaced) EventType() string   { return "bookingPlaced" }

type bookingAccepted struct {
	BookingID string
}

func (e bookingAccepted) AggregateID() string { return e.BookingID }
func (e bookingAccepted) EventType() string   { return "bookingAccepted" }

func newEnvelope(streamID string, event cqrs.Event) cqrs.Envelope {
	return cqrs.Envelope{
		EventID:    uuid.New(),
		StreamID:   streamID,
		Event:      event,
		OccurredAt: time.Now(),
		Metadata:   map[string]any{},
	}
}

func collectAll(t *testing.T, iter *cqrs.Iterator[*cqrs.Envelope]) []*cqrs.Envelope {
	t.Helper()
	ctx := context.Background()
	var results []*cqrs.Envelope
	for iter.Next(ctx) {
		results = append(results, iter.Value())
	}
	if err := iter.Err(); err != nil && err != io.EOF {
		t.Fatalf("iterator error: %v", err)
	}
	return results
}

func TestSave_EmptySlice(t *testing.T) {
	store := memory.NewMemoryStore(10)
	defer store.Close()

	result, err := store.Save(context.Background(), []cqrs.Envelope{}, cqrs.Any{})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !result.Successful {
		t.Error("expected successful result")
	}
}

func TestSave_AssignsVersions(t *testing.T) {
	store := memory.NewMemoryStore(10)
	defer store.Close()

	events := []cqrs.Envelope{
		newEnvelope("booking-1", bookingPlaced{BookingID: "booking-1", GuestID: "guest-1"}),
		newEnvelope("booking-1", bookingAccepted{BookingID: "booking-1"}),
	}

	result, err := store.Save(context.Background(), events, cqrs.Any{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.NextExpectedVersion != 2 {
		t.Errorf("NextExpectedVersion = %d, want 2", result.NextExpectedVersion)
	}

	iter, err := store.LoadStream(context.Background(), "booking-1")
	if err != nil {
		t.Fatalf("LoadStream: %v", err)
	}
	got := collectAll(t, iter)
	if len(got) != 2 {
		t.Fatalf("loaded %d events, want 2", len(got))
	}
	for i, env := range got {
		if env.Version != uint64(i+1) {
			t.Errorf("event %d: Version = %d, want %d", i, env.Version, i+1)
		}
		if env.GlobalVersion != uint64(i+1) {
			t.Errorf("event %d: GlobalVersion = %d, want %d", i, env.GlobalVersion, i+1)
		}
	}
}

func TestSave_MixedStreamsRejected(t *testing.T) {
	store := memory.NewMemoryStore(10)
	defer store.Close()

	events := []cqrs.Envelope{
		newEnvelope("booking-1", bookingPlaced{BookingID: "booking-1"}),
		newEnvelope("booking-2", bookingPlaced{BookingID: "booking-2"}),
	}

	_, err := store.Save(context.Background(), events, cqrs.Any{})
	if !errors.Is(err, cqrs.ErrInvalidEventBatch) {
		t.Fatalf("error = %v, want %v", err, cqrs.ErrInvalidEventBatch)
	}
}

func TestSave_NoStream(t *testing.T) {
	store := memory.NewMemoryStore(10)
	defer store.Close()

	ev := newEnvelope("booking-1", bookingPlaced{BookingID: "booking-1"})
	if _, err := store.Save(context.Background(), []cqrs.Envelope{ev}, cqrs.NoStream{}); err != nil {
		t.Fatalf("first save: %v", err)
	}

	ev2 := newEnvelope("booking-1", bookingAccepted{BookingID: "booking-1"})
	_, err := store.Save(context.Background(), []cqrs.Envelope{ev2}, cqrs.NoStream{})
	if !errors.Is(err, cqrs.ErrStreamExists) {
		t.Fatalf("error = %v, want %v", err, cqrs.ErrStreamExists)
	}
}

func TestSave_StreamExists(t *testing.T) {
	store := memory.NewMemoryStore(10)
	defer store.Close()

	ev := newEnvelope("booking-1", bookingPlaced{BookingID: "booking-1"})
	_, err := store.Save(context.Background(), []cqrs.Envelope{ev}, cqrs.StreamExists{})
	if !errors.Is(err, cqrs.ErrStreamNotFound) {
		t.Fatalf("error = %v, want %v", err, cqrs.ErrStreamNotFound)
	}
}

func TestSave_RevisionMatch(t *testing.T) {
	store := memory.NewMemoryStore(10)
	defer store.Close()

	ev := newEnvelope("booking-1", bookingPlaced{BookingID: "booking-1"})
	if _, err := store.Save(context.Background(), []cqrs.Envelope{ev}, cqrs.NoStream{}); err != nil {
		t.Fatalf("first save: %v", err)
	}

	ev2 := newEnvelope("booking-1", bookingAccepted{BookingID: "booking-1"})
	result, err := store.Save(context.Background(), []cqrs.Envelope{ev2}, cqrs.Revision(1))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.NextExpectedVersion != 2 {
		t.Errorf("NextExpectedVersion = %d, want 2", result.NextExpectedVersion)
	}
}

func TestSave_RevisionConflict(t *testing.T) {
	store := memory.NewMemoryStore(10)
	defer store.Close()

	ev := newEnvelope("booking-1", bookingPlaced{BookingID: "booking-1"})
	if _, err := store.Save(context.Background(), []cqrs.Envelope{ev}, cqrs.NoStream{}); err != nil {
		t.Fatalf("first save: %v", err)
	}

	ev2 := newEnvelope("booking-1", bookingAccepted{BookingID: "booking-1"})
	_, err := store.Save(context.Background(), []cqrs.Envelope{ev2}, cqrs.Revision(5))

	var conflict *cqrs.StreamRevisionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want StreamRevisionConflictError", err)
	}
	if conflict.Stream != "booking-1" {
		t.Errorf("Stream = %q, want %q", conflict.Stream, "booking-1")
	}
	if conflict.ExpectedRevision != cqrs.Revision(5) {
		t.Errorf("ExpectedRevision = %d, want 5", conflict.ExpectedRevision)
	}
	if conflict.ActualRevision != cqrs.Revision(1) {
		t.Errorf("ActualRevision = %d, want 1", conflict.ActualRevision)
	}
}

func TestLoadStream_NotFound(t *testing.T) {
	store := memory.NewMemoryStore(10)
	defer store.Close()

	_, err := store.LoadStream(context.Background(), "missing")
	if !errors.Is(err, cqrs.ErrStreamNotFound) {
		t.Fatalf("error = %v, want %v", err, cqrs.ErrStreamNotFound)
	}
}

func TestLoadStreamFrom(t *testing.T) {
	store := memory.NewMemoryStore(10)
	defer store.Close()

	events := []cqrs.Envelope{
		newEnvelope("booking-1", bookingPlaced{BookingID: "booking-1"}),
		newEnvelope("booking-1", bookingAccepted{BookingID: "booking-1"}),
		newEnvelope("booking-1", bookingAccepted{BookingID: "booking-1"}),
	}
	if _, err := store.Save(context.Background(), events, cqrs.Any{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	iter, err := store.LoadStreamFrom(context.Background(), "booking-1", 1)
	if err != nil {
		t.Fatalf("LoadStreamFrom: %v", err)
	}
	got := collectAll(t, iter)
	if len(got) != 2 {
		t.Fatalf("loaded %d events, want 2", len(got))
	}
	if got[0].Version != 2 {
		t.Errorf("first Version = %d, want 2", got[0].Version)
	}
}

func TestLoadFromAll(t *testing.T) {
	store := memory.NewMemoryStore(10)
	defer store.Close()

	for _, id := range []string{"booking-1", "booking-2", "booking-3"} {
		ev := newEnvelope(id, bookingPlaced{BookingID: id})
		if _, err := store.Save(context.Background(), []cqrs.Envelope{ev}, cqrs.NoStream{}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	iter, err := store.LoadFromAll(context.Background(), 0)
	if err != nil {
		t.Fatalf("LoadFromAll: %v", err)
	}
	got := collectAll(t, iter)
	if len(got) != 3 {
		t.Fatalf("loaded %d events, want 3", len(got))
	}

	iter, err = store.LoadFromAll(context.Background(), 2)
	if err != nil {
		t.Fatalf("LoadFromAll from 2: %v", err)
	}
	got = collectAll(t, iter)
	if len(got) != 1 {
		t.Fatalf("loaded %d events, want 1", len(got))
	}
	if got[0].StreamID != "booking-3" {
		t.Errorf("StreamID = %q, want %q", got[0].StreamID, "booking-3")
	}
}

func TestEvents_TailsCommittedEnvelopes(t *testing.T) {
	store := memory.NewMemoryStore(10)
	defer store.Close()

	tail := store.Events()

	ev := newEnvelope("booking-1", bookingPlaced{BookingID: "booking-1", GuestID: "guest-1"})
	if _, err := store.Save(context.Background(), []cqrs.Envelope{ev}, cqrs.NoStream{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	select {
	case env := <-tail:
		if env.Event.EventType() != "bookingPlaced" {
			t.Errorf("EventType = %q, want %q", env.Event.EventType(), "bookingPlaced")
		}
		if env.Version != 1 || env.GlobalVersion != 1 {
			t.Errorf("Version = %d, GlobalVersion = %d, want 1, 1", env.Version, env.GlobalVersion)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for tail envelope")
	}
}

func TestEvents_FullTailDoesNotBlockSave(t *testing.T) {
	store := memory.NewMemoryStore(1)
	defer store.Close()

	// Nobody reads the tail; the buffer holds one envelope and further
	// appends must still commit.
	for i := 0; i < 5; i++ {
		ev := newEnvelope("booking-1", bookingAccepted{BookingID: "booking-1"})
		if _, err := store.Save(context.Background(), []cqrs.Envelope{ev}, cqrs.Any{}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	iter, err := store.LoadStream(context.Background(), "booking-1")
	if err != nil {
		t.Fatalf("LoadStream: %v", err)
	}
	if got := collectAll(t, iter); len(got) != 5 {
		t.Fatalf("stream has %d events, want 5", len(got))
	}
}

func TestClose_ClosesEventsChannel(t *testing.T) {
	store := memory.NewMemoryStore(10)

	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case _, ok := <-store.Events():
		if ok {
			t.Error("expected events channel to be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("expected events channel to be closed immediately")
	}
}

func TestSave_ConcurrentAppendsSameRevision(t *testing.T) {
	store := memory.NewMemoryStore(100)
	defer store.Close()

	ev := newEnvelope("booking-1", bookingPlaced{BookingID: "booking-1"})
	if _, err := store.Save(context.Background(), []cqrs.Envelope{ev}, cqrs.NoStream{}); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	const writers = 10
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := newEnvelope("booking-1", bookingAccepted{BookingID: "booking-1"})
			_, errs[i] = store.Save(context.Background(), []cqrs.Envelope{ev}, cqrs.Revision(1))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var conflict *cqrs.StreamRevisionConflictError
		if !errors.As(err, &conflict) {
			t.Errorf("unexpected error type: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d writers succeeded at revision 1, want exactly 1", succeeded)
	}

	iter, err := store.LoadStream(context.Background(), "booking-1")
	if err != nil {
		t.Fatalf("LoadStream: %v", err)
	}
	if got := collectAll(t, iter); len(got) != 2 {
		t.Fatalf("stream has %d events, want 2", len(got))
	}
}

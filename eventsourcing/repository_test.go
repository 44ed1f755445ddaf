package eventsourcing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	cqrs "github.com/terraskye/booking/eventsourcing"
	"github.com/terraskye/booking/eventsourcing/eventstore/memory"
)

type stayBooked struct {
	ID     string
	Nights int
}

func (e *stayBooked) AggregateID() string { return e.ID }
func (e *stayBooked) EventType() string   { return cqrs.TypeName(e) }

type nightsChanged struct {
	ID     string
	Nights int
}

func (e *nightsChanged) AggregateID() string { return e.ID }
func (e *nightsChanged) EventType() string   { return cqrs.TypeName(e) }

type stay struct {
	*cqrs.AggregateBase
	nights int
}

func newStay() *stay {
	return &stay{AggregateBase: cqrs.NewAggregateBase("")}
}

func (s *stay) Book(id string, nights int) {
	ev := &stayBooked{ID: id, Nights: nights}
	s.Apply(ev)
	s.AppendEvent(ev)
}

func (s *stay) ChangeNights(nights int) error {
	if nights <= 0 {
		return errors.New("nights must be positive")
	}
	ev := &nightsChanged{ID: s.EntityID(), Nights: nights}
	s.Apply(ev)
	s.AppendEvent(ev)
	return nil
}

func (s *stay) Apply(event cqrs.Event) {
	switch ev := event.(type) {
	case *stayBooked:
		s.SetEntityID(ev.ID)
		s.nights = ev.Nights
	case *nightsChanged:
		s.nights = ev.Nights
	}
}

func TestRepository_CreateNewAndGetByID(t *testing.T) {
	store := memory.NewMemoryStore(16)
	defer store.Close()

	repo := cqrs.NewRepository(store, newStay)

	s := newStay()
	s.Book("stay-1", 3)

	result, err := repo.CreateNew(t.Context(), s)
	if err != nil {
		t.Fatalf("CreateNew: unexpected error: %v", err)
	}
	if result.NextExpectedVersion != 1 {
		t.Errorf("NextExpectedVersion = %d, want 1", result.NextExpectedVersion)
	}
	if len(s.UncommittedEvents()) != 0 {
		t.Error("expected uncommitted events to be cleared after CreateNew")
	}

	loaded, err := repo.GetByID(t.Context(), "stay-1")
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}
	if loaded.nights != 3 {
		t.Errorf("nights = %d, want 3", loaded.nights)
	}
	if loaded.AggregateVersion() != 1 {
		t.Errorf("AggregateVersion = %d, want 1", loaded.AggregateVersion())
	}
}

func TestRepository_CreateNew_ExistingStream(t *testing.T) {
	store := memory.NewMemoryStore(16)
	defer store.Close()

	repo := cqrs.NewRepository(store, newStay)

	first := newStay()
	first.Book("stay-1", 2)
	if _, err := repo.CreateNew(t.Context(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := newStay()
	second.Book("stay-1", 5)
	_, err := repo.CreateNew(t.Context(), second)
	if !errors.Is(err, cqrs.ErrStreamExists) {
		t.Fatalf("error = %v, want %v", err, cqrs.ErrStreamExists)
	}
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	store := memory.NewMemoryStore(16)
	defer store.Close()

	repo := cqrs.NewRepository(store, newStay)

	_, err := repo.GetByID(t.Context(), "missing")
	if !errors.Is(err, cqrs.ErrStreamNotFound) {
		t.Fatalf("error = %v, want %v", err, cqrs.ErrStreamNotFound)
	}
}

func TestRepository_FoldEquivalence(t *testing.T) {
	store := memory.NewMemoryStore(16)
	defer store.Close()

	repo := cqrs.NewRepository(store, newStay)

	s := newStay()
	s.Book("stay-1", 2)
	if _, err := repo.CreateNew(t.Context(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.ChangeNights(4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.ChangeNights(7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Save(t.Context(), s); err != nil {
		t.Fatalf("Save: unexpected error: %v", err)
	}

	loaded, err := repo.GetByID(t.Context(), "stay-1")
	if err != nil {
		t.Fatalf("GetByID: unexpected error: %v", err)
	}

	if loaded.nights != s.nights {
		t.Errorf("replayed nights = %d, want %d", loaded.nights, s.nights)
	}
	if loaded.AggregateVersion() != s.AggregateVersion() {
		t.Errorf("replayed version = %d, want %d", loaded.AggregateVersion(), s.AggregateVersion())
	}
}

func TestRepository_Save_StaleRevisionConflicts(t *testing.T) {
	store := memory.NewMemoryStore(16)
	defer store.Close()

	repo := cqrs.NewRepository(store, newStay)

	s := newStay()
	s.Book("stay-1", 2)
	if _, err := repo.CreateNew(t.Context(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Two copies loaded at the same revision
	a, err := repo.GetByID(t.Context(), "stay-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := repo.GetByID(t.Context(), "stay-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := a.ChangeNights(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Save(t.Context(), a); err != nil {
		t.Fatalf("first save: unexpected error: %v", err)
	}

	if err := b.ChangeNights(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = repo.Save(t.Context(), b)

	var conflict *cqrs.StreamRevisionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want StreamRevisionConflictError", err)
	}
	if conflict.ExpectedRevision != cqrs.Revision(1) {
		t.Errorf("ExpectedRevision = %d, want 1", conflict.ExpectedRevision)
	}
	if conflict.ActualRevision != cqrs.Revision(2) {
		t.Errorf("ActualRevision = %d, want 2", conflict.ActualRevision)
	}
}

func TestRepository_Update_RetriesOnConflict(t *testing.T) {
	store := memory.NewMemoryStore(16)
	defer store.Close()

	repo := cqrs.NewRepository(store, newStay)

	s := newStay()
	s.Book("stay-1", 2)
	if _, err := repo.CreateNew(t.Context(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	attempts := 0
	updated, err := repo.Update(t.Context(), "stay-1", func(s *stay) error {
		attempts++
		if attempts == 1 {
			// Interleave a competing write so the first save conflicts.
			other, err := repo.GetByID(t.Context(), "stay-1")
			if err != nil {
				return err
			}
			if err := other.ChangeNights(9); err != nil {
				return err
			}
			if _, err := repo.Save(t.Context(), other); err != nil {
				return err
			}
		}
		return s.ChangeNights(4)
	})
	if err != nil {
		t.Fatalf("Update: unexpected error: %v", err)
	}

	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if updated.nights != 4 {
		t.Errorf("nights = %d, want 4", updated.nights)
	}
	if updated.AggregateVersion() != 3 {
		t.Errorf("AggregateVersion = %d, want 3", updated.AggregateVersion())
	}
}

func TestRepository_Update_DomainErrorNotRetried(t *testing.T) {
	store := memory.NewMemoryStore(16)
	defer store.Close()

	repo := cqrs.NewRepository(store, newStay)

	s := newStay()
	s.Book("stay-1", 2)
	if _, err := repo.CreateNew(t.Context(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	attempts := 0
	_, err := repo.Update(t.Context(), "stay-1", func(s *stay) error {
		attempts++
		return s.ChangeNights(-1)
	})
	if err == nil {
		t.Fatal("expected domain error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (domain errors must not be retried)", attempts)
	}
}

func TestRepository_WithRetryStrategy_GivesUpImmediately(t *testing.T) {
	store := memory.NewMemoryStore(16)
	defer store.Close()

	// Zero retries: the first conflict must surface to the caller.
	repo := cqrs.NewRepository(store, newStay, cqrs.WithRetryStrategy(func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 0)
	}))

	s := newStay()
	s.Book("stay-1", 2)
	if _, err := repo.CreateNew(t.Context(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	attempts := 0
	_, err := repo.Update(t.Context(), "stay-1", func(s *stay) error {
		attempts++
		other, err := repo.GetByID(t.Context(), "stay-1")
		if err != nil {
			return err
		}
		if err := other.ChangeNights(9); err != nil {
			return err
		}
		if _, err := repo.Save(t.Context(), other); err != nil {
			return err
		}
		return s.ChangeNights(4)
	})

	var conflict *cqrs.StreamRevisionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want StreamRevisionConflictError", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRepository_WithMetadataExtractor(t *testing.T) {
	store := memory.NewMemoryStore(16)
	defer store.Close()

	repo := cqrs.NewRepository(store, newStay, cqrs.WithMetadataExtractor(func(ctx context.Context) map[string]any {
		if id := cqrs.CausationFromContext(ctx); id != "" {
			return map[string]any{"causationId": id}
		}
		return nil
	}))

	ctx := cqrs.WithCausation(t.Context(), "bookStay")

	s := newStay()
	s.Book("stay-1", 3)
	if _, err := repo.CreateNew(ctx, s); err != nil {
		t.Fatalf("CreateNew: unexpected error: %v", err)
	}
	if err := s.ChangeNights(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Save(cqrs.WithCausation(t.Context(), "changeNights"), s); err != nil {
		t.Fatalf("Save: unexpected error: %v", err)
	}

	iter, err := store.LoadStream(t.Context(), "stay-1")
	if err != nil {
		t.Fatalf("LoadStream: %v", err)
	}

	want := []string{"bookStay", "changeNights"}
	i := 0
	for iter.Next(t.Context()) {
		env := iter.Value()
		if got := env.Metadata["causationId"]; got != want[i] {
			t.Errorf("event %d: causationId = %v, want %q", i, got, want[i])
		}
		i++
	}
	if i != len(want) {
		t.Fatalf("stream has %d events, want %d", i, len(want))
	}
}

// gapStore returns a stream whose versions skip from 1 to 3.
type gapStore struct {
	cqrs.EventStore
}

func (g gapStore) LoadStream(ctx context.Context, id string) (*cqrs.Iterator[*cqrs.Envelope], error) {
	return cqrs.NewSliceIterator([]*cqrs.Envelope{
		{StreamID: id, Version: 1, Event: &stayBooked{ID: id, Nights: 2}},
		{StreamID: id, Version: 3, Event: &nightsChanged{ID: id, Nights: 4}},
	}), nil
}

func TestRepository_GetByID_CorruptStream(t *testing.T) {
	store := memory.NewMemoryStore(16)
	defer store.Close()

	repo := cqrs.NewRepository[*stay](gapStore{store}, newStay)

	_, err := repo.GetByID(t.Context(), "stay-1")
	if !errors.Is(err, cqrs.ErrCorruptStream) {
		t.Fatalf("error = %v, want %v", err, cqrs.ErrCorruptStream)
	}
}

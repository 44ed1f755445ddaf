// Package projection maintains the query-side read models for bookings and
// accommodations. Projectors fold committed events into flat records served
// to the HTTP API and the availability checker.
package projection

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	cqrs "github.com/terraskye/booking/eventsourcing"
	"github.com/terraskye/booking/internal/domain/booking"
)

// ErrNotFound is returned when a read model does not exist.
var ErrNotFound = errors.New("read model not found")

// BookingReadModel is the flat query-side view of one booking.
type BookingReadModel struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Status      booking.Status `json:"status"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	Items       []booking.Item `json:"items"`
	Notes       string         `json:"notes,omitempty"`
	Version     uint64         `json:"version"`
	LastEventAt time.Time      `json:"last_event_at"`
}

var _ cqrs.ReadModel = (*BookingReadModel)(nil)

// AppliedVersion returns the stream position of the last event folded into
// this record.
func (m *BookingReadModel) AppliedVersion() uint64 {
	return m.Version
}

// Occupies reports whether this booking counts against accommodation
// capacity in its current status.
func (m *BookingReadModel) Occupies() bool {
	return m.Status.Occupies()
}

// Overlaps reports whether the booking's stay overlaps the half-open
// interval [start, end).
func (m *BookingReadModel) Overlaps(start, end time.Time) bool {
	return m.Start.Before(end) && start.Before(m.End)
}

// BookingRepository stores booking read models.
type BookingRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*BookingReadModel, error)
	List(ctx context.Context) ([]*BookingReadModel, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*BookingReadModel, error)

	// ListOverlapping returns every booking whose stay overlaps the
	// half-open interval [start, end), regardless of status.
	ListOverlapping(ctx context.Context, start, end time.Time) ([]*BookingReadModel, error)

	Save(ctx context.Context, model *BookingReadModel) error
}

// BookingProjector folds booking events into BookingReadModel records.
type BookingProjector struct {
	repo BookingRepository
}

// NewBookingProjector creates a projector writing into repo.
func NewBookingProjector(repo BookingRepository) *BookingProjector {
	return &BookingProjector{repo: repo}
}

// Processor returns the typed handler group for this projector, ready to be
// subscribed on an event bus or replayed against an event store.
func (p *BookingProjector) Processor() *cqrs.EventGroupProcessor {
	return cqrs.NewEventGroupProcessor(
		cqrs.OnEvent(p.onCreated),
		cqrs.OnEvent(p.onAccepted),
		cqrs.OnEvent(p.onRejected),
		cqrs.OnEvent(p.onConfirmed),
		cqrs.OnEvent(p.onCancelled),
		cqrs.OnEvent(p.onDateRangeChanged),
		cqrs.OnEvent(p.onAccommodationsChanged),
		cqrs.OnEvent(p.onNotesChanged),
	)
}

func (p *BookingProjector) onCreated(ctx context.Context, ev *booking.BookingCreated) error {
	items := make([]booking.Item, len(ev.Items))
	copy(items, ev.Items)

	return p.repo.Save(ctx, &BookingReadModel{
		ID:          ev.BookingID,
		UserID:      ev.UserID,
		Status:      booking.StatusPending,
		Start:       ev.DateRange.Start,
		End:         ev.DateRange.End,
		Items:       items,
		Notes:       ev.Notes,
		Version:     cqrs.VersionFromContext(ctx),
		LastEventAt: cqrs.OccurredAtFromContext(ctx),
	})
}

func (p *BookingProjector) onAccepted(ctx context.Context, ev *booking.BookingAccepted) error {
	return p.mutate(ctx, ev.BookingID, func(m *BookingReadModel) {
		m.Status = booking.StatusAccepted
	})
}

func (p *BookingProjector) onRejected(ctx context.Context, ev *booking.BookingRejected) error {
	return p.mutate(ctx, ev.BookingID, func(m *BookingReadModel) {
		m.Status = booking.StatusRejected
	})
}

func (p *BookingProjector) onConfirmed(ctx context.Context, ev *booking.BookingConfirmed) error {
	return p.mutate(ctx, ev.BookingID, func(m *BookingReadModel) {
		m.Status = booking.StatusConfirmed
	})
}

func (p *BookingProjector) onCancelled(ctx context.Context, ev *booking.BookingCancelled) error {
	return p.mutate(ctx, ev.BookingID, func(m *BookingReadModel) {
		m.Status = booking.StatusCancelled
	})
}

func (p *BookingProjector) onDateRangeChanged(ctx context.Context, ev *booking.BookingDateRangeChanged) error {
	return p.mutate(ctx, ev.BookingID, func(m *BookingReadModel) {
		m.Start = ev.NewRange.Start
		m.End = ev.NewRange.End
	})
}

func (p *BookingProjector) onAccommodationsChanged(ctx context.Context, ev *booking.BookingAccommodationsChanged) error {
	return p.mutate(ctx, ev.BookingID, func(m *BookingReadModel) {
		items := make([]booking.Item, len(ev.NewItems))
		copy(items, ev.NewItems)
		m.Items = items
	})
}

func (p *BookingProjector) onNotesChanged(ctx context.Context, ev *booking.BookingNotesChanged) error {
	return p.mutate(ctx, ev.BookingID, func(m *BookingReadModel) {
		m.Notes = ev.NewNotes
	})
}

// mutate loads the model, applies fn and saves it with the envelope's stream
// position. Events at or below the model's applied version are redeliveries
// and are dropped without touching the store.
func (p *BookingProjector) mutate(ctx context.Context, id uuid.UUID, fn func(*BookingReadModel)) error {
	model, err := p.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if alreadyApplied(ctx, model) {
		return nil
	}

	fn(model)
	model.Version = cqrs.VersionFromContext(ctx)
	model.LastEventAt = cqrs.OccurredAtFromContext(ctx)
	return p.repo.Save(ctx, model)
}

// alreadyApplied reports whether the event carried by ctx is at or below the
// version already folded into model.
func alreadyApplied(ctx context.Context, model cqrs.ReadModel) bool {
	version := cqrs.VersionFromContext(ctx)
	return version != 0 && version <= model.AppliedVersion()
}

package projection

import (
	"context"
	"time"

	"github.com/google/uuid"
	cqrs "github.com/terraskye/booking/eventsourcing"
	"github.com/terraskye/booking/internal/domain/accommodation"
)

// AccommodationReadModel is the flat query-side view of one catalog entry.
type AccommodationReadModel struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Type        accommodation.Type `json:"type"`
	MaxCapacity int                `json:"max_capacity"`
	IsActive    bool               `json:"is_active"`
	Version     uint64             `json:"version"`
	LastEventAt time.Time          `json:"last_event_at"`
}

var _ cqrs.ReadModel = (*AccommodationReadModel)(nil)

// AppliedVersion returns the stream position of the last event folded into
// this record.
func (m *AccommodationReadModel) AppliedVersion() uint64 {
	return m.Version
}

// AccommodationRepository stores accommodation read models.
type AccommodationRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*AccommodationReadModel, error)
	List(ctx context.Context) ([]*AccommodationReadModel, error)
	Save(ctx context.Context, model *AccommodationReadModel) error
}

// AccommodationProjector folds accommodation events into read models.
type AccommodationProjector struct {
	repo AccommodationRepository
}

// NewAccommodationProjector creates a projector writing into repo.
func NewAccommodationProjector(repo AccommodationRepository) *AccommodationProjector {
	return &AccommodationProjector{repo: repo}
}

// Processor returns the typed handler group for this projector.
func (p *AccommodationProjector) Processor() *cqrs.EventGroupProcessor {
	return cqrs.NewEventGroupProcessor(
		cqrs.OnEvent(p.onCreated),
		cqrs.OnEvent(p.onUpdated),
		cqrs.OnEvent(p.onDeactivated),
		cqrs.OnEvent(p.onReactivated),
	)
}

func (p *AccommodationProjector) onCreated(ctx context.Context, ev *accommodation.AccommodationCreated) error {
	return p.repo.Save(ctx, &AccommodationReadModel{
		ID:          ev.AccommodationID,
		Name:        ev.Name,
		Type:        ev.Type,
		MaxCapacity: ev.MaxCapacity,
		IsActive:    true,
		Version:     cqrs.VersionFromContext(ctx),
		LastEventAt: cqrs.OccurredAtFromContext(ctx),
	})
}

func (p *AccommodationProjector) onUpdated(ctx context.Context, ev *accommodation.AccommodationUpdated) error {
	return p.mutate(ctx, ev.AccommodationID, func(m *AccommodationReadModel) {
		m.Name = ev.Name
		m.Type = ev.Type
		m.MaxCapacity = ev.MaxCapacity
	})
}

func (p *AccommodationProjector) onDeactivated(ctx context.Context, ev *accommodation.AccommodationDeactivated) error {
	return p.mutate(ctx, ev.AccommodationID, func(m *AccommodationReadModel) {
		m.IsActive = false
	})
}

func (p *AccommodationProjector) onReactivated(ctx context.Context, ev *accommodation.AccommodationReactivated) error {
	return p.mutate(ctx, ev.AccommodationID, func(m *AccommodationReadModel) {
		m.IsActive = true
	})
}

func (p *AccommodationProjector) mutate(ctx context.Context, id uuid.UUID, fn func(*AccommodationReadModel)) error {
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

package app

import (
	"context"

	"github.com/sirupsen/logrus"
	cqrs "github.com/terraskye/booking/eventsourcing"
	"github.com/terraskye/booking/eventsourcing/logging"
	"github.com/terraskye/booking/internal/domain/accommodation"
)

// AccommodationService executes catalog commands.
type AccommodationService struct {
	repo *cqrs.Repository[*accommodation.Accommodation]

	create     cqrs.CommandHandler[CreateAccommodation]
	update     cqrs.CommandHandler[UpdateAccommodation]
	deactivate cqrs.CommandHandler[DeactivateAccommodation]
	reactivate cqrs.CommandHandler[ReactivateAccommodation]
}

// NewAccommodationService wires the command handlers with logging middleware.
func NewAccommodationService(repo *cqrs.Repository[*accommodation.Accommodation], logger *logrus.Entry) *AccommodationService {
	s := &AccommodationService{repo: repo}

	s.create = logging.WithCommandLogging(logger, s.handleCreate)
	s.update = logging.WithCommandLogging(logger, s.handleUpdate)
	s.deactivate = logging.WithCommandLogging(logger, s.handleDeactivate)
	s.reactivate = logging.WithCommandLogging(logger, s.handleReactivate)

	return s
}

func (s *AccommodationService) CreateAccommodation(ctx context.Context, cmd CreateAccommodation) (cqrs.AppendResult, error) {
	return s.create(ctx, cmd)
}

func (s *AccommodationService) UpdateAccommodation(ctx context.Context, cmd UpdateAccommodation) (cqrs.AppendResult, error) {
	return s.update(ctx, cmd)
}

func (s *AccommodationService) DeactivateAccommodation(ctx context.Context, cmd DeactivateAccommodation) (cqrs.AppendResult, error) {
	return s.deactivate(ctx, cmd)
}

func (s *AccommodationService) ReactivateAccommodation(ctx context.Context, cmd ReactivateAccommodation) (cqrs.AppendResult, error) {
	return s.reactivate(ctx, cmd)
}

func (s *AccommodationService) handleCreate(ctx context.Context, cmd CreateAccommodation) (cqrs.AppendResult, error) {
	aggregate, err := accommodation.Create(cmd.AccommodationID, cmd.Name, cmd.Type, cmd.MaxCapacity)
	if err != nil {
		return cqrs.AppendResult{}, err
	}
	return s.repo.CreateNew(ctx, aggregate)
}

func (s *AccommodationService) handleUpdate(ctx context.Context, cmd UpdateAccommodation) (cqrs.AppendResult, error) {
	return s.applyIntent(ctx, cmd.AggregateID().String(), func(a *accommodation.Accommodation) error {
		return a.Update(cmd.Name, cmd.Type, cmd.MaxCapacity)
	})
}

func (s *AccommodationService) handleDeactivate(ctx context.Context, cmd DeactivateAccommodation) (cqrs.AppendResult, error) {
	return s.applyIntent(ctx, cmd.AggregateID().String(), func(a *accommodation.Accommodation) error {
		return a.Deactivate()
	})
}

func (s *AccommodationService) handleReactivate(ctx context.Context, cmd ReactivateAccommodation) (cqrs.AppendResult, error) {
	return s.applyIntent(ctx, cmd.AggregateID().String(), func(a *accommodation.Accommodation) error {
		return a.Reactivate()
	})
}

func (s *AccommodationService) applyIntent(ctx context.Context, id string, fn func(*accommodation.Accommodation) error) (cqrs.AppendResult, error) {
	aggregate, err := s.repo.Update(ctx, id, fn)
	if err != nil {
		return cqrs.AppendResult{}, err
	}
	return cqrs.AppendResult{Successful: true, NextExpectedVersion: aggregate.AggregateVersion()}, nil
}

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	cqrs "github.com/terraskye/booking/eventsourcing"
	"github.com/terraskye/booking/eventsourcing/logging"
	"github.com/terraskye/booking/internal/availability"
	"github.com/terraskye/booking/internal/domain/booking"
	"github.com/terraskye/booking/internal/projection"
)

// BookingService executes booking commands. Each command loads the target
// aggregate, invokes one intent and appends the resulting events at the
// revision the aggregate was loaded at; concurrent writers lose the append
// race and are retried by the repository.
//
// Before a Create or a date/accommodation Change, the service runs the
// advisory availability check and validates person counts against the
// accommodation catalog. The availability result never blocks the command:
// two concurrent requests can both pass and both succeed, and overruns are
// resolved by the administrator's accept/reject workflow.
type BookingService struct {
	repo    *cqrs.Repository[*booking.Booking]
	catalog projection.AccommodationRepository
	checker *availability.Checker
	logger  *logrus.Entry

	create               cqrs.CommandHandler[CreateBooking]
	accept               cqrs.CommandHandler[AcceptBooking]
	reject               cqrs.CommandHandler[RejectBooking]
	confirm              cqrs.CommandHandler[ConfirmBooking]
	cancel               cqrs.CommandHandler[CancelBooking]
	changeDates          cqrs.CommandHandler[ChangeBookingDates]
	changeAccommodations cqrs.CommandHandler[ChangeBookingAccommodations]
	changeNotes          cqrs.CommandHandler[ChangeBookingNotes]
}

// NewBookingService wires the command handlers with logging middleware.
func NewBookingService(
	repo *cqrs.Repository[*booking.Booking],
	catalog projection.AccommodationRepository,
	checker *availability.Checker,
	logger *logrus.Entry,
) *BookingService {
	s := &BookingService{repo: repo, catalog: catalog, checker: checker, logger: logger}

	s.create = logging.WithCommandLogging(logger, s.handleCreate)
	s.accept = logging.WithCommandLogging(logger, s.handleAccept)
	s.reject = logging.WithCommandLogging(logger, s.handleReject)
	s.confirm = logging.WithCommandLogging(logger, s.handleConfirm)
	s.cancel = logging.WithCommandLogging(logger, s.handleCancel)
	s.changeDates = logging.WithCommandLogging(logger, s.handleChangeDates)
	s.changeAccommodations = logging.WithCommandLogging(logger, s.handleChangeAccommodations)
	s.changeNotes = logging.WithCommandLogging(logger, s.handleChangeNotes)

	return s
}

func (s *BookingService) CreateBooking(ctx context.Context, cmd CreateBooking) (cqrs.AppendResult, error) {
	return s.create(ctx, cmd)
}

func (s *BookingService) AcceptBooking(ctx context.Context, cmd AcceptBooking) (cqrs.AppendResult, error) {
	return s.accept(ctx, cmd)
}

func (s *BookingService) RejectBooking(ctx context.Context, cmd RejectBooking) (cqrs.AppendResult, error) {
	return s.reject(ctx, cmd)
}

func (s *BookingService) ConfirmBooking(ctx context.Context, cmd ConfirmBooking) (cqrs.AppendResult, error) {
	return s.confirm(ctx, cmd)
}

func (s *BookingService) CancelBooking(ctx context.Context, cmd CancelBooking) (cqrs.AppendResult, error) {
	return s.cancel(ctx, cmd)
}

func (s *BookingService) ChangeDates(ctx context.Context, cmd ChangeBookingDates) (cqrs.AppendResult, error) {
	return s.changeDates(ctx, cmd)
}

func (s *BookingService) ChangeAccommodations(ctx context.Context, cmd ChangeBookingAccommodations) (cqrs.AppendResult, error) {
	return s.changeAccommodations(ctx, cmd)
}

func (s *BookingService) ChangeNotes(ctx context.Context, cmd ChangeBookingNotes) (cqrs.AppendResult, error) {
	return s.changeNotes(ctx, cmd)
}

func (s *BookingService) handleCreate(ctx context.Context, cmd CreateBooking) (cqrs.AppendResult, error) {
	if err := s.validateAgainstCatalog(ctx, cmd.Items); err != nil {
		return cqrs.AppendResult{}, err
	}
	s.adviseAvailability(ctx, cmd.Dates, cmd.Items, nil)

	aggregate, err := booking.Create(cmd.BookingID, cmd.UserID, cmd.Dates, cmd.Items, cmd.Notes)
	if err != nil {
		return cqrs.AppendResult{}, err
	}
	return s.repo.CreateNew(ctx, aggregate)
}

func (s *BookingService) handleAccept(ctx context.Context, cmd AcceptBooking) (cqrs.AppendResult, error) {
	return s.update(ctx, cmd.BookingID.String(), func(b *booking.Booking) error {
		// Accepting is the authoritative capacity decision, so show the
		// administrator's view of current occupancy in the log.
		s.adviseAvailability(ctx, b.Dates(), b.Items(), ptr(cmd.BookingID))
		return b.Accept()
	})
}

func (s *BookingService) handleReject(ctx context.Context, cmd RejectBooking) (cqrs.AppendResult, error) {
	return s.update(ctx, cmd.BookingID.String(), func(b *booking.Booking) error {
		return b.Reject()
	})
}

func (s *BookingService) handleConfirm(ctx context.Context, cmd ConfirmBooking) (cqrs.AppendResult, error) {
	return s.update(ctx, cmd.BookingID.String(), func(b *booking.Booking) error {
		return b.Confirm()
	})
}

func (s *BookingService) handleCancel(ctx context.Context, cmd CancelBooking) (cqrs.AppendResult, error) {
	return s.update(ctx, cmd.BookingID.String(), func(b *booking.Booking) error {
		return b.Cancel()
	})
}

func (s *BookingService) handleChangeDates(ctx context.Context, cmd ChangeBookingDates) (cqrs.AppendResult, error) {
	return s.update(ctx, cmd.BookingID.String(), func(b *booking.Booking) error {
		s.adviseAvailability(ctx, cmd.NewRange, b.Items(), ptr(cmd.BookingID))
		return b.ChangeDateRange(cmd.NewRange, cmd.Reason)
	})
}

func (s *BookingService) handleChangeAccommodations(ctx context.Context, cmd ChangeBookingAccommodations) (cqrs.AppendResult, error) {
	if err := s.validateAgainstCatalog(ctx, cmd.NewItems); err != nil {
		return cqrs.AppendResult{}, err
	}
	return s.update(ctx, cmd.BookingID.String(), func(b *booking.Booking) error {
		s.adviseAvailability(ctx, b.Dates(), cmd.NewItems, ptr(cmd.BookingID))
		return b.ChangeAccommodations(cmd.NewItems, cmd.Reason)
	})
}

func (s *BookingService) handleChangeNotes(ctx context.Context, cmd ChangeBookingNotes) (cqrs.AppendResult, error) {
	return s.update(ctx, cmd.BookingID.String(), func(b *booking.Booking) error {
		return b.ChangeNotes(cmd.NewNotes, cmd.Reason)
	})
}

// update runs one intent through the repository's load-apply-save cycle and
// reports the aggregate's resulting version.
func (s *BookingService) update(ctx context.Context, id string, fn func(*booking.Booking) error) (cqrs.AppendResult, error) {
	aggregate, err := s.repo.Update(ctx, id, fn)
	if err != nil {
		return cqrs.AppendResult{}, err
	}
	return cqrs.AppendResult{Successful: true, NextExpectedVersion: aggregate.AggregateVersion()}, nil
}

// validateAgainstCatalog checks each requested item against the
// accommodation catalog: the accommodation must exist, be active, and the
// person count must not exceed its declared maximum. The catalog is only a
// validation source; the aggregate itself never reads it.
func (s *BookingService) validateAgainstCatalog(ctx context.Context, items []booking.Item) error {
	for _, item := range items {
		entry, err := s.catalog.Get(ctx, item.AccommodationID)
		if err != nil {
			if errors.Is(err, projection.ErrNotFound) {
				return &booking.ValidationError{
					Field:  "items",
					Reason: fmt.Sprintf("accommodation %s does not exist", item.AccommodationID),
				}
			}
			return fmt.Errorf("catalog lookup %s: %w", item.AccommodationID, err)
		}
		if !entry.IsActive {
			return &booking.ValidationError{
				Field:  "items",
				Reason: fmt.Sprintf("accommodation %s is not bookable", item.AccommodationID),
			}
		}
		if item.PersonCount > entry.MaxCapacity {
			return &booking.ValidationError{
				Field: "items",
				Reason: fmt.Sprintf("person count %d exceeds capacity %d of accommodation %s",
					item.PersonCount, entry.MaxCapacity, item.AccommodationID),
			}
		}
	}
	return nil
}

// adviseAvailability runs the advisory capacity check and logs a warning for
// each accommodation the requested items would overrun. Failures of the
// check itself are logged and otherwise ignored; the check must never make a
// command fail.
func (s *BookingService) adviseAvailability(ctx context.Context, dates booking.DateRange, items []booking.Item, exclude *uuid.UUID) {
	ids := make([]uuid.UUID, 0, len(items))
	requested := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		ids = append(ids, item.AccommodationID)
		requested[item.AccommodationID] += item.PersonCount
	}

	snapshots, err := s.checker.Check(ctx, dates, ids, exclude)
	if err != nil {
		s.logger.WithError(err).Warn("availability check failed")
		return
	}

	for id, snapshot := range snapshots {
		if requested[id] > snapshot.AvailableCapacity {
			s.logger.WithFields(logrus.Fields{
				"accommodation": id,
				"range":         dates.String(),
				"requested":     requested[id],
				"available":     snapshot.AvailableCapacity,
				"conflicts":     len(snapshot.Conflicts),
			}).Warn("requested persons exceed advisory availability")
		}
	}
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

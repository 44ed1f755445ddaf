package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	cqrs "github.com/terraskye/booking/eventsourcing"
	"github.com/terraskye/booking/eventsourcing/logging"
	"github.com/terraskye/booking/internal/projection"
)

// GetBooking fetches one booking read model by id.
type GetBooking struct {
	BookingID uuid.UUID
}

func (q GetBooking) ID() []byte { return []byte(q.BookingID.String()) }

// ListBookings fetches all bookings, optionally restricted to one user.
type ListBookings struct {
	UserID *uuid.UUID
}

func (q ListBookings) ID() []byte {
	if q.UserID == nil {
		return []byte("all")
	}
	return []byte(q.UserID.String())
}

// GetAccommodation fetches one catalog entry by id.
type GetAccommodation struct {
	AccommodationID uuid.UUID
}

func (q GetAccommodation) ID() []byte { return []byte(q.AccommodationID.String()) }

// ListAccommodations fetches the full catalog.
type ListAccommodations struct{}

func (q ListAccommodations) ID() []byte { return []byte("all") }

// RegisterQueryHandlers wires the read model queries onto the bus, each
// wrapped with logging middleware.
func RegisterQueryHandlers(
	bus *cqrs.QueryBus,
	bookings projection.BookingRepository,
	accommodations projection.AccommodationRepository,
	logger *logrus.Entry,
) {
	cqrs.RegisterQueryHandler[GetBooking, *projection.BookingReadModel](bus,
		logging.WithQueryLogging(logger, cqrs.NewQueryHandlerFunc(
			func(ctx context.Context, qry GetBooking) (*projection.BookingReadModel, error) {
				return bookings.Get(ctx, qry.BookingID)
			})))

	cqrs.RegisterQueryHandler[ListBookings, []*projection.BookingReadModel](bus,
		logging.WithQueryLogging(logger, cqrs.NewQueryHandlerFunc(
			func(ctx context.Context, qry ListBookings) ([]*projection.BookingReadModel, error) {
				if qry.UserID != nil {
					return bookings.ListByUser(ctx, *qry.UserID)
				}
				return bookings.List(ctx)
			})))

	cqrs.RegisterQueryHandler[GetAccommodation, *projection.AccommodationReadModel](bus,
		logging.WithQueryLogging(logger, cqrs.NewQueryHandlerFunc(
			func(ctx context.Context, qry GetAccommodation) (*projection.AccommodationReadModel, error) {
				return accommodations.Get(ctx, qry.AccommodationID)
			})))

	cqrs.RegisterQueryHandler[ListAccommodations, []*projection.AccommodationReadModel](bus,
		logging.WithQueryLogging(logger, cqrs.NewQueryHandlerFunc(
			func(ctx context.Context, qry ListAccommodations) ([]*projection.AccommodationReadModel, error) {
				return accommodations.List(ctx)
			})))
}

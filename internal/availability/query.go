package availability

import (
	"context"

	"github.com/google/uuid"
	cqrs "github.com/terraskye/booking/eventsourcing"
	"github.com/terraskye/booking/internal/domain/booking"
)

// CheckAvailability asks for the capacity picture of a set of accommodations
// over a date range.
type CheckAvailability struct {
	DateRange        booking.DateRange
	AccommodationIDs []uuid.UUID
	ExcludeBookingID *uuid.UUID
}

func (q CheckAvailability) ID() []byte {
	return []byte(q.DateRange.String())
}

// RegisterQueryHandlers wires the checker's queries onto the bus.
func RegisterQueryHandlers(bus *cqrs.QueryBus, checker *Checker) {
	cqrs.RegisterQueryHandler[CheckAvailability, map[uuid.UUID]Snapshot](bus,
		cqrs.NewQueryHandlerFunc(func(ctx context.Context, qry CheckAvailability) (map[uuid.UUID]Snapshot, error) {
			return checker.Check(ctx, qry.DateRange, qry.AccommodationIDs, qry.ExcludeBookingID)
		}))
}

// Package availability answers the advisory capacity question: for a date
// range and a set of accommodations, how much capacity is left once every
// occupying booking is counted?
//
// The answer is computed from the read models at call time and is never a
// reservation. Two requests can both see free capacity and both be created;
// the booking decision stays with the staff who accept or reject.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/terraskye/booking/internal/domain/booking"
	"github.com/terraskye/booking/internal/projection"
)

// Conflict describes one occupying booking that overlaps the requested range
// on a given accommodation.
type Conflict struct {
	BookingID   uuid.UUID      `json:"booking_id"`
	UserID      uuid.UUID      `json:"user_id"`
	Status      booking.Status `json:"status"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	PersonCount int            `json:"person_count"`
}

// Snapshot is the advisory capacity picture for one accommodation over the
// requested range.
type Snapshot struct {
	AccommodationID   uuid.UUID  `json:"accommodation_id"`
	MaxCapacity       int        `json:"max_capacity"`
	OccupiedCapacity  int        `json:"occupied_capacity"`
	AvailableCapacity int        `json:"available_capacity"`
	Conflicts         []Conflict `json:"conflicts,omitempty"`
}

// Checker computes availability snapshots from the booking and accommodation
// read models. Bookings are read fresh on every call; only the accommodation
// catalog may come through a cache.
type Checker struct {
	bookings       projection.BookingRepository
	accommodations projection.AccommodationRepository
}

// NewChecker creates a Checker over the given read model repositories.
func NewChecker(bookings projection.BookingRepository, accommodations projection.AccommodationRepository) *Checker {
	return &Checker{bookings: bookings, accommodations: accommodations}
}

// Check returns one snapshot per requested accommodation for the given date
// range. Bookings in an occupying status (Pending, Accepted, Confirmed) that
// overlap the half-open range count against capacity; Rejected, Cancelled and
// Completed ones do not. exclude, when non-nil, names a booking to leave out
// of the count, so a change to an existing booking is not blocked by its own
// current stay.
func (c *Checker) Check(ctx context.Context, dates booking.DateRange, accommodationIDs []uuid.UUID, exclude *uuid.UUID) (map[uuid.UUID]Snapshot, error) {
	if err := dates.Validate(); err != nil {
		return nil, err
	}
	if len(accommodationIDs) == 0 {
		return map[uuid.UUID]Snapshot{}, nil
	}

	overlapping, err := c.bookings.ListOverlapping(ctx, dates.Start, dates.End)
	if err != nil {
		return nil, fmt.Errorf("list overlapping bookings: %w", err)
	}

	result := make(map[uuid.UUID]Snapshot, len(accommodationIDs))
	for _, id := range accommodationIDs {
		if _, ok := result[id]; ok {
			continue
		}

		catalog, err := c.accommodations.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("accommodation %s: %w", id, err)
		}

		snapshot := Snapshot{
			AccommodationID: id,
			MaxCapacity:     catalog.MaxCapacity,
		}

		for _, b := range overlapping {
			if exclude != nil && b.ID == *exclude {
				continue
			}
			if !b.Occupies() {
				continue
			}
			for _, item := range b.Items {
				if item.AccommodationID != id {
					continue
				}
				snapshot.OccupiedCapacity += item.PersonCount
				snapshot.Conflicts = append(snapshot.Conflicts, Conflict{
					BookingID:   b.ID,
					UserID:      b.UserID,
					Status:      b.Status,
					Start:       b.Start,
					End:         b.End,
					PersonCount: item.PersonCount,
				})
			}
		}

		snapshot.AvailableCapacity = catalog.MaxCapacity - snapshot.OccupiedCapacity
		if snapshot.AvailableCapacity < 0 {
			snapshot.AvailableCapacity = 0
		}
		result[id] = snapshot
	}

	return result, nil
}

// Package app hosts the command side of the booking system: command types,
// the handlers that load an aggregate, invoke one intent and persist the
// outcome, and the advisory availability check run before creating or
// changing a stay.
package app

import (
	"github.com/google/uuid"
	"github.com/terraskye/booking/internal/domain/accommodation"
	"github.com/terraskye/booking/internal/domain/booking"
)

// CreateBooking requests a new booking for a family stay.
type CreateBooking struct {
	BookingID uuid.UUID
	UserID    uuid.UUID
	Dates     booking.DateRange
	Items     []booking.Item
	Notes     string
}

func (c CreateBooking) AggregateID() uuid.UUID { return c.BookingID }

// AcceptBooking marks a pending booking as accepted by an administrator.
type AcceptBooking struct {
	BookingID uuid.UUID
}

func (c AcceptBooking) AggregateID() uuid.UUID { return c.BookingID }

// RejectBooking declines a pending booking.
type RejectBooking struct {
	BookingID uuid.UUID
}

func (c RejectBooking) AggregateID() uuid.UUID { return c.BookingID }

// ConfirmBooking finalizes an accepted booking.
type ConfirmBooking struct {
	BookingID uuid.UUID
}

func (c ConfirmBooking) AggregateID() uuid.UUID { return c.BookingID }

// CancelBooking withdraws a booking from any non-terminal status.
type CancelBooking struct {
	BookingID uuid.UUID
}

func (c CancelBooking) AggregateID() uuid.UUID { return c.BookingID }

// ChangeBookingDates moves a pending booking to a new date range.
type ChangeBookingDates struct {
	BookingID uuid.UUID
	NewRange  booking.DateRange
	Reason    string
}

func (c ChangeBookingDates) AggregateID() uuid.UUID { return c.BookingID }

// ChangeBookingAccommodations replaces the accommodations of a pending
// booking.
type ChangeBookingAccommodations struct {
	BookingID uuid.UUID
	NewItems  []booking.Item
	Reason    string
}

func (c ChangeBookingAccommodations) AggregateID() uuid.UUID { return c.BookingID }

// ChangeBookingNotes replaces the notes of a pending booking.
type ChangeBookingNotes struct {
	BookingID uuid.UUID
	NewNotes  string
	Reason    string
}

func (c ChangeBookingNotes) AggregateID() uuid.UUID { return c.BookingID }

// CreateAccommodation adds a catalog entry.
type CreateAccommodation struct {
	AccommodationID uuid.UUID
	Name            string
	Type            accommodation.Type
	MaxCapacity     int
}

func (c CreateAccommodation) AggregateID() uuid.UUID { return c.AccommodationID }

// UpdateAccommodation replaces a catalog entry's details.
type UpdateAccommodation struct {
	AccommodationID uuid.UUID
	Name            string
	Type            accommodation.Type
	MaxCapacity     int
}

func (c UpdateAccommodation) AggregateID() uuid.UUID { return c.AccommodationID }

// DeactivateAccommodation removes an entry from the bookable catalog.
type DeactivateAccommodation struct {
	AccommodationID uuid.UUID
}

func (c DeactivateAccommodation) AggregateID() uuid.UUID { return c.AccommodationID }

// ReactivateAccommodation returns an entry to the bookable catalog.
type ReactivateAccommodation struct {
	AccommodationID uuid.UUID
}

func (c ReactivateAccommodation) AggregateID() uuid.UUID { return c.AccommodationID }

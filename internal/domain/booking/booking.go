// Package booking holds the event-sourced booking aggregate: the lifecycle
// state machine for a family's reservation of sleeping accommodations.
//
// State never mutates directly. Intent methods validate their guards, emit
// exactly one event on success, and Apply folds events into state; replaying
// the stream from scratch always reproduces the in-memory state.
package booking

import (
	"github.com/google/uuid"
	cqrs "github.com/terraskye/booking/eventsourcing"
)

// Booking is the aggregate for one booking record.
type Booking struct {
	*cqrs.AggregateBase

	userID uuid.UUID
	status Status
	dates  DateRange
	items  []Item
	notes  string
}

var _ cqrs.Entity = (*Booking)(nil)

// New returns a zero-state aggregate ready to fold events.
func New() *Booking {
	return &Booking{AggregateBase: cqrs.NewAggregateBase("")}
}

// Create builds a fresh Pending booking whose only event is BookingCreated.
func Create(id, userID uuid.UUID, dates DateRange, items []Item, notes string) (*Booking, error) {
	if err := dates.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateItems(items); err != nil {
		return nil, err
	}

	b := New()
	b.raise(&BookingCreated{
		BookingID: id,
		UserID:    userID,
		DateRange: dates,
		Items:     append([]Item(nil), items...),
		Notes:     notes,
	})
	return b, nil
}

// Accept moves a Pending booking to Accepted.
func (b *Booking) Accept() error {
	if b.status != StatusPending {
		return &InvalidTransitionError{Intent: "accept", Status: b.status}
	}
	b.raise(&BookingAccepted{BookingID: b.ID()})
	return nil
}

// Reject moves a Pending booking to Rejected.
func (b *Booking) Reject() error {
	if b.status != StatusPending {
		return &InvalidTransitionError{Intent: "reject", Status: b.status}
	}
	b.raise(&BookingRejected{BookingID: b.ID()})
	return nil
}

// Confirm moves an Accepted booking to Confirmed.
func (b *Booking) Confirm() error {
	if b.status != StatusAccepted {
		return &InvalidTransitionError{Intent: "confirm", Status: b.status}
	}
	b.raise(&BookingConfirmed{BookingID: b.ID()})
	return nil
}

// Cancel retires the booking unless it already reached a terminal state.
func (b *Booking) Cancel() error {
	switch b.status {
	case StatusCancelled, StatusRejected, StatusCompleted:
		return &InvalidTransitionError{Intent: "cancel", Status: b.status}
	}
	b.raise(&BookingCancelled{BookingID: b.ID()})
	return nil
}

// ChangeDateRange replaces the booked range on a Pending booking. Identical
// values emit no event. The optional reason is audit text only.
func (b *Booking) ChangeDateRange(newRange DateRange, reason string) error {
	if b.status != StatusPending {
		return &InvalidTransitionError{Intent: "change dates of", Status: b.status}
	}
	if err := newRange.Validate(); err != nil {
		return err
	}
	if err := validateReason(reason); err != nil {
		return err
	}
	if b.dates.Equal(newRange) {
		return nil
	}
	b.raise(&BookingDateRangeChanged{
		BookingID:     b.ID(),
		PreviousRange: b.dates,
		NewRange:      newRange,
		Reason:        reason,
	})
	return nil
}

// ChangeAccommodations replaces the booked items on a Pending booking.
// Identical item sets emit no event.
func (b *Booking) ChangeAccommodations(newItems []Item, reason string) error {
	if b.status != StatusPending {
		return &InvalidTransitionError{Intent: "change accommodations of", Status: b.status}
	}
	if err := ValidateItems(newItems); err != nil {
		return err
	}
	if err := validateReason(reason); err != nil {
		return err
	}
	if itemsEqual(b.items, newItems) {
		return nil
	}
	b.raise(&BookingAccommodationsChanged{
		BookingID: b.ID(),
		NewItems:  append([]Item(nil), newItems...),
		Reason:    reason,
	})
	return nil
}

// ChangeNotes replaces the notes on a Pending booking. Identical notes emit
// no event.
func (b *Booking) ChangeNotes(newNotes, reason string) error {
	if b.status != StatusPending {
		return &InvalidTransitionError{Intent: "change notes of", Status: b.status}
	}
	if err := validateReason(reason); err != nil {
		return err
	}
	if b.notes == newNotes {
		return nil
	}
	b.raise(&BookingNotesChanged{
		BookingID: b.ID(),
		NewNotes:  newNotes,
		Reason:    reason,
	})
	return nil
}

// ID returns the booking identifier.
func (b *Booking) ID() uuid.UUID {
	id, _ := uuid.Parse(b.EntityID())
	return id
}

func (b *Booking) UserID() uuid.UUID { return b.userID }
func (b *Booking) Status() Status    { return b.status }
func (b *Booking) Dates() DateRange  { return b.dates }
func (b *Booking) Notes() string     { return b.notes }

// Items returns a copy of the booked items.
func (b *Booking) Items() []Item {
	return append([]Item(nil), b.items...)
}

// raise folds the event into state and buffers it for persistence.
func (b *Booking) raise(event cqrs.Event) {
	b.Apply(event)
	b.AppendEvent(event)
}

// Apply is the pure fold over booking events. It performs no validation.
func (b *Booking) Apply(event cqrs.Event) {
	switch ev := event.(type) {
	case *BookingCreated:
		b.SetEntityID(ev.BookingID.String())
		b.userID = ev.UserID
		b.status = StatusPending
		b.dates = ev.DateRange
		b.items = append([]Item(nil), ev.Items...)
		b.notes = ev.Notes

	case *BookingAccepted:
		b.status = StatusAccepted

	case *BookingRejected:
		b.status = StatusRejected

	case *BookingConfirmed:
		b.status = StatusConfirmed

	case *BookingCancelled:
		b.status = StatusCancelled

	case *BookingDateRangeChanged:
		b.dates = ev.NewRange

	case *BookingAccommodationsChanged:
		b.items = append([]Item(nil), ev.NewItems...)

	case *BookingNotesChanged:
		b.notes = ev.NewNotes
	}
}

package booking

import (
	"github.com/google/uuid"
	cqrs "github.com/terraskye/booking/eventsourcing"
)

func init() {
	cqrs.RegisterEventByType(func() cqrs.Event { return &BookingCreated{} })
	cqrs.RegisterEventByType(func() cqrs.Event { return &BookingAccepted{} })
	cqrs.RegisterEventByType(func() cqrs.Event { return &BookingRejected{} })
	cqrs.RegisterEventByType(func() cqrs.Event { return &BookingConfirmed{} })
	cqrs.RegisterEventByType(func() cqrs.Event { return &BookingCancelled{} })
	cqrs.RegisterEventByType(func() cqrs.Event { return &BookingDateRangeChanged{} })
	cqrs.RegisterEventByType(func() cqrs.Event { return &BookingAccommodationsChanged{} })
	cqrs.RegisterEventByType(func() cqrs.Event { return &BookingNotesChanged{} })
}

type BookingCreated struct {
	BookingID uuid.UUID `json:"booking_id"`
	UserID    uuid.UUID `json:"user_id"`
	DateRange DateRange `json:"date_range"`
	Items     []Item    `json:"items"`
	Notes     string    `json:"notes,omitempty"`
}

func (e *BookingCreated) AggregateID() string { return e.BookingID.String() }
func (e *BookingCreated) EventType() string   { return cqrs.TypeName(e) }

type BookingAccepted struct {
	BookingID uuid.UUID `json:"booking_id"`
}

func (e *BookingAccepted) AggregateID() string { return e.BookingID.String() }
func (e *BookingAccepted) EventType() string   { return cqrs.TypeName(e) }

type BookingRejected struct {
	BookingID uuid.UUID `json:"booking_id"`
}

func (e *BookingRejected) AggregateID() string { return e.BookingID.String() }
func (e *BookingRejected) EventType() string   { return cqrs.TypeName(e) }

type BookingConfirmed struct {
	BookingID uuid.UUID `json:"booking_id"`
}

func (e *BookingConfirmed) AggregateID() string { return e.BookingID.String() }
func (e *BookingConfirmed) EventType() string   { return cqrs.TypeName(e) }

type BookingCancelled struct {
	BookingID uuid.UUID `json:"booking_id"`
}

func (e *BookingCancelled) AggregateID() string { return e.BookingID.String() }
func (e *BookingCancelled) EventType() string   { return cqrs.TypeName(e) }

type BookingDateRangeChanged struct {
	BookingID     uuid.UUID `json:"booking_id"`
	PreviousRange DateRange `json:"previous_range"`
	NewRange      DateRange `json:"new_range"`
	Reason        string    `json:"reason,omitempty"`
}

func (e *BookingDateRangeChanged) AggregateID() string { return e.BookingID.String() }
func (e *BookingDateRangeChanged) EventType() string   { return cqrs.TypeName(e) }

type BookingAccommodationsChanged struct {
	BookingID uuid.UUID `json:"booking_id"`
	NewItems  []Item    `json:"new_items"`
	Reason    string    `json:"reason,omitempty"`
}

func (e *BookingAccommodationsChanged) AggregateID() string { return e.BookingID.String() }
func (e *BookingAccommodationsChanged) EventType() string   { return cqrs.TypeName(e) }

type BookingNotesChanged struct {
	BookingID uuid.UUID `json:"booking_id"`
	NewNotes  string    `json:"new_notes"`
	Reason    string    `json:"reason,omitempty"`
}

func (e *BookingNotesChanged) AggregateID() string { return e.BookingID.String() }
func (e *BookingNotesChanged) EventType() string   { return cqrs.TypeName(e) }

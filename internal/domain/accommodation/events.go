package accommodation

import (
	"github.com/google/uuid"
	cqrs "github.com/terraskye/booking/eventsourcing"
)

func init() {
	cqrs.RegisterEventByType(func() cqrs.Event { return &AccommodationCreated{} })
	cqrs.RegisterEventByType(func() cqrs.Event { return &AccommodationUpdated{} })
	cqrs.RegisterEventByType(func() cqrs.Event { return &AccommodationDeactivated{} })
	cqrs.RegisterEventByType(func() cqrs.Event { return &AccommodationReactivated{} })
}

type AccommodationCreated struct {
	AccommodationID uuid.UUID `json:"accommodation_id"`
	Name            string    `json:"name"`
	Type            Type      `json:"type"`
	MaxCapacity     int       `json:"max_capacity"`
}

func (e *AccommodationCreated) AggregateID() string { return e.AccommodationID.String() }
func (e *AccommodationCreated) EventType() string   { return cqrs.TypeName(e) }

type AccommodationUpdated struct {
	AccommodationID uuid.UUID `json:"accommodation_id"`
	Name            string    `json:"name"`
	Type            Type      `json:"type"`
	MaxCapacity     int       `json:"max_capacity"`
}

func (e *AccommodationUpdated) AggregateID() string { return e.AccommodationID.String() }
func (e *AccommodationUpdated) EventType() string   { return cqrs.TypeName(e) }

type AccommodationDeactivated struct {
	AccommodationID uuid.UUID `json:"accommodation_id"`
}

func (e *AccommodationDeactivated) AggregateID() string { return e.AccommodationID.String() }
func (e *AccommodationDeactivated) EventType() string   { return cqrs.TypeName(e) }

type AccommodationReactivated struct {
	AccommodationID uuid.UUID `json:"accommodation_id"`
}

func (e *AccommodationReactivated) AggregateID() string { return e.AccommodationID.String() }
func (e *AccommodationReactivated) EventType() string   { return cqrs.TypeName(e) }

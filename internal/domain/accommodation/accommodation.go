// Package accommodation holds the event-sourced catalog aggregate for one
// sleeping accommodation: its name, kind and maximum capacity. The catalog
// feeds the availability checker and person-count validation; it owns no
// booking state.
package accommodation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	cqrs "github.com/terraskye/booking/eventsourcing"
)

// Type is the kind of sleeping accommodation on offer.
type Type string

const (
	TypeRoom       Type = "Room"
	TypeTent       Type = "Tent"
	TypeCamperSpot Type = "CamperSpot"
)

// ValidationError reports malformed input to an intent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// InvalidStateError reports an intent that is not legal in the
// accommodation's current state.
type InvalidStateError struct {
	Intent string
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s accommodation: %s", e.Intent, e.Reason)
}

// Accommodation is the aggregate for one catalog entry.
type Accommodation struct {
	*cqrs.AggregateBase

	name        string
	kind        Type
	maxCapacity int
	active      bool
}

var _ cqrs.Entity = (*Accommodation)(nil)

// New returns a zero-state aggregate ready to fold events.
func New() *Accommodation {
	return &Accommodation{AggregateBase: cqrs.NewAggregateBase("")}
}

// Create builds a fresh active accommodation.
func Create(id uuid.UUID, name string, kind Type, maxCapacity int) (*Accommodation, error) {
	if err := validate(name, maxCapacity); err != nil {
		return nil, err
	}

	a := New()
	a.raise(&AccommodationCreated{
		AccommodationID: id,
		Name:            name,
		Type:            kind,
		MaxCapacity:     maxCapacity,
	})
	return a, nil
}

// Update replaces the catalog details. Identical values emit no event.
func (a *Accommodation) Update(name string, kind Type, maxCapacity int) error {
	if err := validate(name, maxCapacity); err != nil {
		return err
	}
	if a.name == name && a.kind == kind && a.maxCapacity == maxCapacity {
		return nil
	}
	a.raise(&AccommodationUpdated{
		AccommodationID: a.ID(),
		Name:            name,
		Type:            kind,
		MaxCapacity:     maxCapacity,
	})
	return nil
}

// Deactivate removes the accommodation from the bookable catalog.
func (a *Accommodation) Deactivate() error {
	if !a.active {
		return &InvalidStateError{Intent: "deactivate", Reason: "already deactivated"}
	}
	a.raise(&AccommodationDeactivated{AccommodationID: a.ID()})
	return nil
}

// Reactivate returns the accommodation to the bookable catalog.
func (a *Accommodation) Reactivate() error {
	if a.active {
		return &InvalidStateError{Intent: "reactivate", Reason: "already active"}
	}
	a.raise(&AccommodationReactivated{AccommodationID: a.ID()})
	return nil
}

// ID returns the accommodation identifier.
func (a *Accommodation) ID() uuid.UUID {
	id, _ := uuid.Parse(a.EntityID())
	return id
}

func (a *Accommodation) Name() string     { return a.name }
func (a *Accommodation) Kind() Type       { return a.kind }
func (a *Accommodation) MaxCapacity() int { return a.maxCapacity }
func (a *Accommodation) IsActive() bool   { return a.active }

func validate(name string, maxCapacity int) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Reason: "cannot be empty"}
	}
	if maxCapacity <= 0 {
		return &ValidationError{Field: "maxCapacity", Reason: fmt.Sprintf("must be positive, got %d", maxCapacity)}
	}
	return nil
}

func (a *Accommodation) raise(event cqrs.Event) {
	a.Apply(event)
	a.AppendEvent(event)
}

// Apply is the pure fold over accommodation events.
func (a *Accommodation) Apply(event cqrs.Event) {
	switch ev := event.(type) {
	case *AccommodationCreated:
		a.SetEntityID(ev.AccommodationID.String())
		a.name = ev.Name
		a.kind = ev.Type
		a.maxCapacity = ev.MaxCapacity
		a.active = true

	case *AccommodationUpdated:
		a.name = ev.Name
		a.kind = ev.Type
		a.maxCapacity = ev.MaxCapacity

	case *AccommodationDeactivated:
		a.active = false

	case *AccommodationReactivated:
		a.active = true
	}
}

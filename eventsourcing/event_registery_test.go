package eventsourcing

import (
	"testing"
)

type roomOpened struct {
	ID string
}

func (e *roomOpened) AggregateID() string { return e.ID }
func (e *roomOpened) EventType() string   { return TypeName(e) }

func TestRegisterEventByType_RoundTrip(t *testing.T) {
	RegisterEventByType(func() Event { return &roomOpened{} })

	ev, err := NewEventByName("roomOpened")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ev.(*roomOpened); !ok {
		t.Fatalf("NewEventByName returned %T, want *roomOpened", ev)
	}
}

func TestRegisterEventByName_CustomName(t *testing.T) {
	RegisterEventByName("roomOpened.v2", func() Event { return &roomOpened{} })

	ev, err := NewEventByName("roomOpened.v2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ev.(*roomOpened); !ok {
		t.Fatalf("NewEventByName returned %T, want *roomOpened", ev)
	}
}

func TestRegisterEvent_DuplicatePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()

	RegisterEventByName("roomOpened.dup", func() Event { return &roomOpened{} })
	RegisterEventByName("roomOpened.dup", func() Event { return &roomOpened{} })
}

func TestRegisterEvent_NilFactoryPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on nil factory")
		}
	}()

	RegisterEventByName("roomOpened.nil", nil)
}

func TestNewEventByName_Unregistered(t *testing.T) {
	if _, err := NewEventByName("noSuchEvent"); err == nil {
		t.Fatal("expected error for unregistered event")
	}
}

func TestNewEventByName_FreshInstancePerCall(t *testing.T) {
	RegisterEventByName("roomOpened.fresh", func() Event { return &roomOpened{} })

	a, err := NewEventByName("roomOpened.fresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewEventByName("roomOpened.fresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct instances per call")
	}
}

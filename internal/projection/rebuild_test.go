package projection

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	cqrs "github.com/terraskye/booking/eventsourcing"
	"github.com/terraskye/booking/eventsourcing/eventstore/memory"
	"github.com/terraskye/booking/internal/domain/accommodation"
	"github.com/terraskye/booking/internal/domain/booking"
)

func TestRebuild_ReplaysFullLog(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStore(16)
	defer store.Close()

	bookingID := uuid.New()
	accommodationID := uuid.New()

	appendEvents := func(streamID string, revision cqrs.StreamState, events ...cqrs.Event) {
		t.Helper()
		envs := make([]cqrs.Envelope, len(events))
		for i, ev := range events {
			envs[i] = cqrs.Envelope{
				EventID:    uuid.New(),
				StreamID:   streamID,
				Event:      ev,
				OccurredAt: time.Now().UTC(),
			}
		}
		if _, err := store.Save(ctx, envs, revision); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	appendEvents("accommodation-"+accommodationID.String(), cqrs.NoStream{},
		&accommodation.AccommodationCreated{
			AccommodationID: accommodationID,
			Name:            "Tent A",
			Type:            accommodation.TypeTent,
			MaxCapacity:     3,
		})
	appendEvents("booking-"+bookingID.String(), cqrs.NoStream{},
		&booking.BookingCreated{
			BookingID: bookingID,
			UserID:    uuid.New(),
			DateRange: booking.DateRange{Start: date(1), End: date(3)},
			Items:     []booking.Item{{AccommodationID: accommodationID, PersonCount: 2}},
		},
		&booking.BookingAccepted{BookingID: bookingID})

	bookings := NewMemoryBookingRepository()
	accommodations := NewMemoryAccommodationRepository()

	err := Rebuild(ctx, store,
		NewBookingProjector(bookings).Processor(),
		NewAccommodationProjector(accommodations).Processor())
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	bm, err := bookings.Get(ctx, bookingID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if bm.Status != booking.StatusAccepted || bm.Version != 2 {
		t.Errorf("booking = %s v%d, want Accepted v2", bm.Status, bm.Version)
	}

	am, err := accommodations.Get(ctx, accommodationID)
	if err != nil {
		t.Fatalf("get accommodation: %v", err)
	}
	if am.Name != "Tent A" || !am.IsActive {
		t.Errorf("unexpected accommodation %+v", am)
	}
}

func TestRebuild_EmptyLog(t *testing.T) {
	store := memory.NewMemoryStore(1)
	defer store.Close()

	err := Rebuild(context.Background(), store,
		NewBookingProjector(NewMemoryBookingRepository()).Processor())
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
}

package app

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	cqrs "github.com/terraskye/booking/eventsourcing"
	"github.com/terraskye/booking/eventsourcing/eventstore/memory"
	"github.com/terraskye/booking/internal/availability"
	"github.com/terraskye/booking/internal/domain/booking"
	"github.com/terraskye/booking/internal/projection"
)

func date(day int) time.Time {
	return time.Date(2025, time.August, day, 0, 0, 0, 0, time.UTC)
}

func mustRange(t *testing.T, startDay, endDay int) booking.DateRange {
	t.Helper()
	r, err := booking.NewDateRange(date(startDay), date(endDay))
	if err != nil {
		t.Fatalf("date range: %v", err)
	}
	return r
}

func discardLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

type serviceFixture struct {
	store    *memory.MemoryStore
	repo     *cqrs.Repository[*booking.Booking]
	bookings *projection.MemoryBookingRepository
	catalog  *projection.MemoryAccommodationRepository
	service  *BookingService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	store := memory.NewMemoryStore(64)
	t.Cleanup(func() { store.Close() })

	bookings := projection.NewMemoryBookingRepository()
	catalog := projection.NewMemoryAccommodationRepository()
	repo := cqrs.NewRepository(store, booking.New)
	checker := availability.NewChecker(bookings, catalog)

	return &serviceFixture{
		store:    store,
		repo:     repo,
		bookings: bookings,
		catalog:  catalog,
		service:  NewBookingService(repo, catalog, checker, discardLogger()),
	}
}

func (f *serviceFixture) addAccommodation(t *testing.T, maxCapacity int, active bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if err := f.catalog.Save(context.Background(), &projection.AccommodationReadModel{
		ID:          id,
		Name:        "Cabin",
		MaxCapacity: maxCapacity,
		IsActive:    active,
	}); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	return id
}

func (f *serviceFixture) createBooking(t *testing.T, accommodationID uuid.UUID) uuid.UUID {
	t.Helper()
	bookingID := uuid.New()
	_, err := f.service.CreateBooking(context.Background(), CreateBooking{
		BookingID: bookingID,
		UserID:    uuid.New(),
		Dates:     mustRange(t, 1, 3),
		Items:     []booking.Item{{AccommodationID: accommodationID, PersonCount: 2}},
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return bookingID
}

func TestCreateBooking(t *testing.T) {
	f := newServiceFixture(t)
	accommodationID := f.addAccommodation(t, 4, true)

	bookingID := uuid.New()
	result, err := f.service.CreateBooking(context.Background(), CreateBooking{
		BookingID: bookingID,
		UserID:    uuid.New(),
		Dates:     mustRange(t, 1, 3),
		Items:     []booking.Item{{AccommodationID: accommodationID, PersonCount: 2}},
		Notes:     "arriving late",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !result.Successful || result.NextExpectedVersion != 1 {
		t.Errorf("result = %+v, want successful v1", result)
	}

	aggregate, err := f.repo.GetByID(context.Background(), bookingID.String())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if aggregate.Status() != booking.StatusPending {
		t.Errorf("status = %s, want %s", aggregate.Status(), booking.StatusPending)
	}
	if aggregate.Notes() != "arriving late" {
		t.Errorf("notes = %q", aggregate.Notes())
	}
}

func TestCreateBooking_CatalogValidation(t *testing.T) {
	f := newServiceFixture(t)
	small := f.addAccommodation(t, 2, true)
	inactive := f.addAccommodation(t, 4, false)

	tests := []struct {
		name  string
		items []booking.Item
	}{
		{"unknown accommodation", []booking.Item{{AccommodationID: uuid.New(), PersonCount: 1}}},
		{"inactive accommodation", []booking.Item{{AccommodationID: inactive, PersonCount: 1}}},
		{"person count over capacity", []booking.Item{{AccommodationID: small, PersonCount: 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateBooking(context.Background(), CreateBooking{
				BookingID: uuid.New(),
				UserID:    uuid.New(),
				Dates:     mustRange(t, 1, 3),
				Items:     tt.items,
			})
			var verr *booking.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
		})
	}
}

func TestCreateBooking_DuplicateID(t *testing.T) {
	f := newServiceFixture(t)
	accommodationID := f.addAccommodation(t, 4, true)
	bookingID := f.createBooking(t, accommodationID)

	_, err := f.service.CreateBooking(context.Background(), CreateBooking{
		BookingID: bookingID,
		UserID:    uuid.New(),
		Dates:     mustRange(t, 1, 3),
		Items:     []booking.Item{{AccommodationID: accommodationID, PersonCount: 1}},
	})
	if !errors.Is(err, cqrs.ErrStreamExists) {
		t.Errorf("err = %v, want ErrStreamExists", err)
	}
}

func TestCreateBooking_OverCapacityIsAdvisoryOnly(t *testing.T) {
	f := newServiceFixture(t)
	accommodationID := f.addAccommodation(t, 2, true)

	// A projected booking already fills the accommodation over the same
	// range. The advisory check logs the overrun but never blocks.
	f.bookings.Save(context.Background(), &projection.BookingReadModel{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Status: booking.StatusConfirmed,
		Start:  date(1),
		End:    date(5),
		Items:  []booking.Item{{AccommodationID: accommodationID, PersonCount: 2}},
	})

	_, err := f.service.CreateBooking(context.Background(), CreateBooking{
		BookingID: uuid.New(),
		UserID:    uuid.New(),
		Dates:     mustRange(t, 2, 4),
		Items:     []booking.Item{{AccommodationID: accommodationID, PersonCount: 2}},
	})
	if err != nil {
		t.Fatalf("create should succeed despite advisory overrun: %v", err)
	}
}

func TestBookingLifecycle(t *testing.T) {
	f := newServiceFixture(t)
	accommodationID := f.addAccommodation(t, 4, true)
	bookingID := f.createBooking(t, accommodationID)
	ctx := context.Background()

	if _, err := f.service.AcceptBooking(ctx, AcceptBooking{BookingID: bookingID}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	result, err := f.service.ConfirmBooking(ctx, ConfirmBooking{BookingID: bookingID})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.NextExpectedVersion != 3 {
		t.Errorf("version = %d, want 3", result.NextExpectedVersion)
	}

	aggregate, _ := f.repo.GetByID(ctx, bookingID.String())
	if aggregate.Status() != booking.StatusConfirmed {
		t.Errorf("status = %s, want %s", aggregate.Status(), booking.StatusConfirmed)
	}
}

func TestConfirmPendingBookingFails(t *testing.T) {
	f := newServiceFixture(t)
	accommodationID := f.addAccommodation(t, 4, true)
	bookingID := f.createBooking(t, accommodationID)

	_, err := f.service.ConfirmBooking(context.Background(), ConfirmBooking{BookingID: bookingID})
	var terr *booking.InvalidTransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want *InvalidTransitionError", err)
	}
}

func TestChangeDates(t *testing.T) {
	f := newServiceFixture(t)
	accommodationID := f.addAccommodation(t, 4, true)
	bookingID := f.createBooking(t, accommodationID)
	ctx := context.Background()

	_, err := f.service.ChangeDates(ctx, ChangeBookingDates{
		BookingID: bookingID,
		NewRange:  mustRange(t, 10, 14),
		Reason:    "shifted holiday",
	})
	if err != nil {
		t.Fatalf("change dates: %v", err)
	}

	aggregate, _ := f.repo.GetByID(ctx, bookingID.String())
	if !aggregate.Dates().Start.Equal(date(10)) {
		t.Errorf("start = %s, want %s", aggregate.Dates().Start, date(10))
	}
}

func TestChangeNotes_NoOpKeepsVersion(t *testing.T) {
	f := newServiceFixture(t)
	accommodationID := f.addAccommodation(t, 4, true)
	bookingID := f.createBooking(t, accommodationID)
	ctx := context.Background()

	if _, err := f.service.ChangeNotes(ctx, ChangeBookingNotes{BookingID: bookingID, NewNotes: "bring firewood"}); err != nil {
		t.Fatalf("change notes: %v", err)
	}
	result, err := f.service.ChangeNotes(ctx, ChangeBookingNotes{BookingID: bookingID, NewNotes: "bring firewood"})
	if err != nil {
		t.Fatalf("repeat change notes: %v", err)
	}
	if result.NextExpectedVersion != 2 {
		t.Errorf("version = %d, want 2", result.NextExpectedVersion)
	}
}

func TestCancelUnknownBooking(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.CancelBooking(context.Background(), CancelBooking{BookingID: uuid.New()})
	if !errors.Is(err, cqrs.ErrStreamNotFound) {
		t.Errorf("err = %v, want ErrStreamNotFound", err)
	}
}

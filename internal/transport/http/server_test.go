package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	cqrs "github.com/terraskye/booking/eventsourcing"
	"github.com/terraskye/booking/eventsourcing/eventstore/memory"
	"github.com/terraskye/booking/internal/app"
	"github.com/terraskye/booking/internal/availability"
	"github.com/terraskye/booking/internal/domain/accommodation"
	"github.com/terraskye/booking/internal/domain/booking"
	"github.com/terraskye/booking/internal/projection"
)

type apiFixture struct {
	store          *memory.MemoryStore
	server         *Server
	bookings       *projection.MemoryBookingRepository
	accommodations *projection.MemoryAccommodationRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewMemoryStore(64)
	t.Cleanup(func() { store.Close() })

	bookings := projection.NewMemoryBookingRepository()
	accommodations := projection.NewMemoryAccommodationRepository()
	checker := availability.NewChecker(bookings, accommodations)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	entry := logrus.NewEntry(logger)

	bookingService := app.NewBookingService(cqrs.NewRepository(store, booking.New), accommodations, checker, entry)
	accommodationService := app.NewAccommodationService(cqrs.NewRepository(store, accommodation.New), entry)

	queryBus := cqrs.NewQueryBus()
	app.RegisterQueryHandlers(queryBus, bookings, accommodations, entry)
	availability.RegisterQueryHandlers(queryBus, checker)

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := NewServer(bookingService, accommodationService, queryBus, slogger)

	return &apiFixture{
		store:          store,
		server:         server,
		bookings:       bookings,
		accommodations: accommodations,
	}
}

// project folds everything committed so far into the read models, standing in
// for the live bus subscription.
func (f *apiFixture) project(t *testing.T) {
	t.Helper()
	err := projection.Rebuild(context.Background(), f.store,
		projection.NewBookingProjector(f.bookings).Processor(),
		projection.NewAccommodationProjector(f.accommodations).Processor())
	if err != nil {
		t.Fatalf("project: %v", err)
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) createAccommodation(t *testing.T, maxCapacity int) uuid.UUID {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/accommodations", gin.H{
		"name":         "Lakeside Cabin",
		"type":         "Room",
		"max_capacity": maxCapacity,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create accommodation: status %d body %s", rec.Code, rec.Body)
	}

	var resp commandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	f.project(t)
	return resp.ID
}

func (f *apiFixture) createBooking(t *testing.T, accommodationID uuid.UUID, persons int) uuid.UUID {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/bookings", gin.H{
		"user_id": uuid.New(),
		"start":   "2025-08-01",
		"end":     "2025-08-03",
		"items": []gin.H{
			{"accommodation_id": accommodationID, "person_count": persons},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create booking: status %d body %s", rec.Code, rec.Body)
	}

	var resp commandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	f.project(t)
	return resp.ID
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestBookingFlow(t *testing.T) {
	f := newAPIFixture(t)
	accommodationID := f.createAccommodation(t, 4)
	bookingID := f.createBooking(t, accommodationID, 2)

	for _, action := range []string{"accept", "confirm"} {
		rec := f.do(t, http.MethodPost, fmt.Sprintf("/bookings/%s/%s", bookingID, action), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d body %s", action, rec.Code, rec.Body)
		}
	}
	f.project(t)

	rec := f.do(t, http.MethodGet, "/bookings/"+bookingID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}

	var model projection.BookingReadModel
	if err := json.Unmarshal(rec.Body.Bytes(), &model); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if model.Status != booking.StatusConfirmed {
		t.Errorf("status = %s, want %s", model.Status, booking.StatusConfirmed)
	}
	if model.Version != 3 {
		t.Errorf("version = %d, want 3", model.Version)
	}
}

func TestConfirmPendingBookingConflicts(t *testing.T) {
	f := newAPIFixture(t)
	accommodationID := f.createAccommodation(t, 4)
	bookingID := f.createBooking(t, accommodationID, 2)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/bookings/%s/confirm", bookingID), nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCreateBooking_ValidationErrors(t *testing.T) {
	f := newAPIFixture(t)
	accommodationID := f.createAccommodation(t, 2)

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{
			"end before start",
			gin.H{
				"user_id": uuid.New(), "start": "2025-08-03", "end": "2025-08-01",
				"items": []gin.H{{"accommodation_id": accommodationID, "person_count": 1}},
			},
			http.StatusBadRequest,
		},
		{
			"malformed date",
			gin.H{
				"user_id": uuid.New(), "start": "tuesday", "end": "2025-08-03",
				"items": []gin.H{{"accommodation_id": accommodationID, "person_count": 1}},
			},
			http.StatusBadRequest,
		},
		{
			"person count over capacity",
			gin.H{
				"user_id": uuid.New(), "start": "2025-08-01", "end": "2025-08-03",
				"items": []gin.H{{"accommodation_id": accommodationID, "person_count": 5}},
			},
			http.StatusBadRequest,
		},
		{
			"missing items",
			gin.H{"user_id": uuid.New(), "start": "2025-08-01", "end": "2025-08-03"},
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/bookings", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestGetBooking_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/bookings/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/bookings/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestChangeDates(t *testing.T) {
	f := newAPIFixture(t)
	accommodationID := f.createAccommodation(t, 4)
	bookingID := f.createBooking(t, accommodationID, 2)

	rec := f.do(t, http.MethodPatch, fmt.Sprintf("/bookings/%s/dates", bookingID), gin.H{
		"start":  "2025-08-10",
		"end":    "2025-08-14",
		"reason": "shifted holiday",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}
	f.project(t)

	rec = f.do(t, http.MethodGet, "/bookings/"+bookingID.String(), nil)
	var model projection.BookingReadModel
	if err := json.Unmarshal(rec.Body.Bytes(), &model); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := model.Start.Format("2006-01-02"); got != "2025-08-10" {
		t.Errorf("start = %s, want 2025-08-10", got)
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	accommodationID := f.createAccommodation(t, 4)

	// One pending booking of 3 persons overlapping the queried range.
	rec := f.do(t, http.MethodPost, "/bookings", gin.H{
		"user_id": uuid.New(),
		"start":   "2025-08-02",
		"end":     "2025-08-04",
		"items":   []gin.H{{"accommodation_id": accommodationID, "person_count": 3}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create booking: status %d", rec.Code)
	}
	f.project(t)

	rec = f.do(t, http.MethodGet,
		fmt.Sprintf("/availability?start=2025-08-01&end=2025-08-03&accommodation_ids=%s", accommodationID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}

	var out map[string]availability.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	snapshot := out[accommodationID.String()]
	if snapshot.AvailableCapacity != 1 {
		t.Errorf("available = %d, want 1", snapshot.AvailableCapacity)
	}
	if len(snapshot.Conflicts) != 1 {
		t.Errorf("conflicts = %d, want 1", len(snapshot.Conflicts))
	}
}

func TestAccommodationAdmin(t *testing.T) {
	f := newAPIFixture(t)
	accommodationID := f.createAccommodation(t, 4)

	rec := f.do(t, http.MethodPut, "/accommodations/"+accommodationID.String(), gin.H{
		"name":         "Lakeside Cabin",
		"type":         "Room",
		"max_capacity": 6,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/accommodations/%s/deactivate", accommodationID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate: status %d", rec.Code)
	}

	// Double deactivation is an invalid state transition.
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/accommodations/%s/deactivate", accommodationID), nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}

	f.project(t)
	rec = f.do(t, http.MethodGet, "/accommodations/"+accommodationID.String(), nil)
	var model projection.AccommodationReadModel
	if err := json.Unmarshal(rec.Body.Bytes(), &model); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if model.MaxCapacity != 6 || model.IsActive {
		t.Errorf("model = %+v, want capacity 6 inactive", model)
	}
}

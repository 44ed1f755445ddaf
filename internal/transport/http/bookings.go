package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cqrs "github.com/terraskye/booking/eventsourcing"
	"github.com/terraskye/booking/internal/app"
	"github.com/terraskye/booking/internal/domain/booking"
)

const dateLayout = "2006-01-02"

type bookingItemRequest struct {
	AccommodationID uuid.UUID `json:"accommodation_id" binding:"required"`
	PersonCount     int       `json:"person_count" binding:"required"`
}

type createBookingRequest struct {
	UserID uuid.UUID            `json:"user_id" binding:"required"`
	Start  string               `json:"start" binding:"required"`
	End    string               `json:"end" binding:"required"`
	Items  []bookingItemRequest `json:"items" binding:"required"`
	Notes  string               `json:"notes"`
}

type changeDatesRequest struct {
	Start  string `json:"start" binding:"required"`
	End    string `json:"end" binding:"required"`
	Reason string `json:"reason"`
}

type changeAccommodationsRequest struct {
	Items  []bookingItemRequest `json:"items" binding:"required"`
	Reason string               `json:"reason"`
}

type changeNotesRequest struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

type commandResponse struct {
	ID      uuid.UUID `json:"id"`
	Version uint64    `json:"version"`
}

func parseRange(c *gin.Context, start, end string) (booking.DateRange, bool) {
	startDate, err := time.Parse(dateLayout, start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date, want YYYY-MM-DD"})
		return booking.DateRange{}, false
	}
	endDate, err := time.Parse(dateLayout, end)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date, want YYYY-MM-DD"})
		return booking.DateRange{}, false
	}

	dates, err := booking.NewDateRange(startDate, endDate)
	if err != nil {
		writeError(c, err)
		return booking.DateRange{}, false
	}
	return dates, true
}

func toItems(reqs []bookingItemRequest) []booking.Item {
	items := make([]booking.Item, len(reqs))
	for i, r := range reqs {
		items[i] = booking.Item{AccommodationID: r.AccommodationID, PersonCount: r.PersonCount}
	}
	return items
}

func (s *Server) createBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dates, ok := parseRange(c, req.Start, req.End)
	if !ok {
		return
	}

	bookingID := uuid.New()
	result, err := s.bookings.CreateBooking(c.Request.Context(), app.CreateBooking{
		BookingID: bookingID,
		UserID:    req.UserID,
		Dates:     dates,
		Items:     toItems(req.Items),
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, commandResponse{ID: bookingID, Version: result.NextExpectedVersion})
}

func (s *Server) statusCommand(c *gin.Context, run func(uuid.UUID) (cqrs.AppendResult, error)) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := run(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, commandResponse{ID: id, Version: result.NextExpectedVersion})
}

func (s *Server) acceptBooking(c *gin.Context) {
	s.statusCommand(c, func(id uuid.UUID) (cqrs.AppendResult, error) {
		return s.bookings.AcceptBooking(c.Request.Context(), app.AcceptBooking{BookingID: id})
	})
}

func (s *Server) rejectBooking(c *gin.Context) {
	s.statusCommand(c, func(id uuid.UUID) (cqrs.AppendResult, error) {
		return s.bookings.RejectBooking(c.Request.Context(), app.RejectBooking{BookingID: id})
	})
}

func (s *Server) confirmBooking(c *gin.Context) {
	s.statusCommand(c, func(id uuid.UUID) (cqrs.AppendResult, error) {
		return s.bookings.ConfirmBooking(c.Request.Context(), app.ConfirmBooking{BookingID: id})
	})
}

func (s *Server) cancelBooking(c *gin.Context) {
	s.statusCommand(c, func(id uuid.UUID) (cqrs.AppendResult, error) {
		return s.bookings.CancelBooking(c.Request.Context(), app.CancelBooking{BookingID: id})
	})
}

func (s *Server) changeBookingDates(c *gin.Context) {
	var req changeDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dates, ok := parseRange(c, req.Start, req.End)
	if !ok {
		return
	}

	s.statusCommand(c, func(id uuid.UUID) (cqrs.AppendResult, error) {
		return s.bookings.ChangeDates(c.Request.Context(), app.ChangeBookingDates{
			BookingID: id,
			NewRange:  dates,
			Reason:    req.Reason,
		})
	})
}

func (s *Server) changeBookingAccommodations(c *gin.Context) {
	var req changeAccommodationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.statusCommand(c, func(id uuid.UUID) (cqrs.AppendResult, error) {
		return s.bookings.ChangeAccommodations(c.Request.Context(), app.ChangeBookingAccommodations{
			BookingID: id,
			NewItems:  toItems(req.Items),
			Reason:    req.Reason,
		})
	})
}

func (s *Server) changeBookingNotes(c *gin.Context) {
	var req changeNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.statusCommand(c, func(id uuid.UUID) (cqrs.AppendResult, error) {
		return s.bookings.ChangeNotes(c.Request.Context(), app.ChangeBookingNotes{
			BookingID: id,
			NewNotes:  req.Notes,
			Reason:    req.Reason,
		})
	})
}

func (s *Server) getBookingHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	model, err := s.getBooking.HandleQuery(c.Request.Context(), app.GetBooking{BookingID: id})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

func (s *Server) listBookingsHandler(c *gin.Context) {
	query := app.ListBookings{}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		query.UserID = &userID
	}

	models, err := s.listBookings.HandleQuery(c.Request.Context(), query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models)
}

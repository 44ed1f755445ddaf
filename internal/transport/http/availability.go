package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/terraskye/booking/internal/availability"
)

// availabilityHandler answers GET /availability?start=...&end=...&accommodation_ids=a,b[&exclude_booking_id=c].
func (s *Server) availabilityHandler(c *gin.Context) {
	dates, ok := parseRange(c, c.Query("start"), c.Query("end"))
	if !ok {
		return
	}

	rawIDs := c.Query("accommodation_ids")
	if rawIDs == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accommodation_ids is required"})
		return
	}

	var ids []uuid.UUID
	for _, raw := range strings.Split(rawIDs, ",") {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid accommodation id " + raw})
			return
		}
		ids = append(ids, id)
	}

	query := availability.CheckAvailability{DateRange: dates, AccommodationIDs: ids}
	if raw := c.Query("exclude_booking_id"); raw != "" {
		excludeID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exclude_booking_id"})
			return
		}
		query.ExcludeBookingID = &excludeID
	}

	snapshots, err := s.checkAvailability.HandleQuery(c.Request.Context(), query)
	if err != nil {
		writeError(c, err)
		return
	}

	// Stable JSON shape: map keys become object fields keyed by id.
	out := make(map[string]availability.Snapshot, len(snapshots))
	for id, snapshot := range snapshots {
		out[id.String()] = snapshot
	}
	c.JSON(http.StatusOK, out)
}

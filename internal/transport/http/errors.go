package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	cqrs "github.com/terraskye/booking/eventsourcing"
	"github.com/terraskye/booking/internal/domain/accommodation"
	"github.com/terraskye/booking/internal/domain/booking"
	"github.com/terraskye/booking/internal/projection"
)

// writeError maps domain and infrastructure errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var (
		bookingValidation       *booking.ValidationError
		accommodationValidation *accommodation.ValidationError
		transition              *booking.InvalidTransitionError
		state                   *accommodation.InvalidStateError
		conflict                *cqrs.StreamRevisionConflictError
	)

	switch {
	case errors.As(err, &bookingValidation), errors.As(err, &accommodationValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.As(err, &transition), errors.As(err, &state):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, cqrs.ErrStreamExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})

	case errors.As(err, &conflict):
		// The bounded retry in the repository is already exhausted here.
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent update, please try again"})

	case errors.Is(err, cqrs.ErrStreamNotFound), errors.Is(err, projection.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

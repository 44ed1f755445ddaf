package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cqrs "github.com/terraskye/booking/eventsourcing"
	"github.com/terraskye/booking/internal/app"
	"github.com/terraskye/booking/internal/domain/accommodation"
)

type accommodationRequest struct {
	Name        string             `json:"name" binding:"required"`
	Type        accommodation.Type `json:"type" binding:"required"`
	MaxCapacity int                `json:"max_capacity" binding:"required"`
}

func (s *Server) createAccommodation(c *gin.Context) {
	var req accommodationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := uuid.New()
	result, err := s.accommodations.CreateAccommodation(c.Request.Context(), app.CreateAccommodation{
		AccommodationID: id,
		Name:            req.Name,
		Type:            req.Type,
		MaxCapacity:     req.MaxCapacity,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, commandResponse{ID: id, Version: result.NextExpectedVersion})
}

func (s *Server) updateAccommodation(c *gin.Context) {
	var req accommodationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.statusCommand(c, func(id uuid.UUID) (cqrs.AppendResult, error) {
		return s.accommodations.UpdateAccommodation(c.Request.Context(), app.UpdateAccommodation{
			AccommodationID: id,
			Name:            req.Name,
			Type:            req.Type,
			MaxCapacity:     req.MaxCapacity,
		})
	})
}

func (s *Server) deactivateAccommodation(c *gin.Context) {
	s.statusCommand(c, func(id uuid.UUID) (cqrs.AppendResult, error) {
		return s.accommodations.DeactivateAccommodation(c.Request.Context(), app.DeactivateAccommodation{AccommodationID: id})
	})
}

func (s *Server) reactivateAccommodation(c *gin.Context) {
	s.statusCommand(c, func(id uuid.UUID) (cqrs.AppendResult, error) {
		return s.accommodations.ReactivateAccommodation(c.Request.Context(), app.ReactivateAccommodation{AccommodationID: id})
	})
}

func (s *Server) getAccommodationHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	model, err := s.getAccommodation.HandleQuery(c.Request.Context(), app.GetAccommodation{AccommodationID: id})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

func (s *Server) listAccommodationsHandler(c *gin.Context) {
	models, err := s.listAccommodations.HandleQuery(c.Request.Context(), app.ListAccommodations{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models)
}

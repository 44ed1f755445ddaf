// Package http exposes the booking system over a REST API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	cqrs "github.com/terraskye/booking/eventsourcing"
	"github.com/terraskye/booking/internal/app"
	"github.com/terraskye/booking/internal/availability"
	"github.com/terraskye/booking/internal/projection"
)

// Server routes HTTP requests to the command services and the query bus.
type Server struct {
	engine *gin.Engine
	logger *slog.Logger

	bookings       *app.BookingService
	accommodations *app.AccommodationService

	getBooking         cqrs.GenericQueryGateway[app.GetBooking, *projection.BookingReadModel]
	listBookings       cqrs.GenericQueryGateway[app.ListBookings, []*projection.BookingReadModel]
	getAccommodation   cqrs.GenericQueryGateway[app.GetAccommodation, *projection.AccommodationReadModel]
	listAccommodations cqrs.GenericQueryGateway[app.ListAccommodations, []*projection.AccommodationReadModel]
	checkAvailability  cqrs.GenericQueryGateway[availability.CheckAvailability, map[uuid.UUID]availability.Snapshot]
}

// NewServer builds the router. The query bus must already have the app and
// availability handlers registered.
func NewServer(
	bookings *app.BookingService,
	accommodations *app.AccommodationService,
	queryBus *cqrs.QueryBus,
	logger *slog.Logger,
) *Server {
	s := &Server{
		logger:             logger,
		bookings:           bookings,
		accommodations:     accommodations,
		getBooking:         cqrs.NewQueryGateway[app.GetBooking, *projection.BookingReadModel](queryBus),
		listBookings:       cqrs.NewQueryGateway[app.ListBookings, []*projection.BookingReadModel](queryBus),
		getAccommodation:   cqrs.NewQueryGateway[app.GetAccommodation, *projection.AccommodationReadModel](queryBus),
		listAccommodations: cqrs.NewQueryGateway[app.ListAccommodations, []*projection.AccommodationReadModel](queryBus),
		checkAvailability:  cqrs.NewQueryGateway[availability.CheckAvailability, map[uuid.UUID]availability.Snapshot](queryBus),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger), cors())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	bookingRoutes := engine.Group("/bookings")
	{
		bookingRoutes.POST("", s.createBooking)
		bookingRoutes.GET("", s.listBookingsHandler)
		bookingRoutes.GET("/:id", s.getBookingHandler)
		bookingRoutes.POST("/:id/accept", s.acceptBooking)
		bookingRoutes.POST("/:id/reject", s.rejectBooking)
		bookingRoutes.POST("/:id/confirm", s.confirmBooking)
		bookingRoutes.POST("/:id/cancel", s.cancelBooking)
		bookingRoutes.PATCH("/:id/dates", s.changeBookingDates)
		bookingRoutes.PATCH("/:id/accommodations", s.changeBookingAccommodations)
		bookingRoutes.PATCH("/:id/notes", s.changeBookingNotes)
	}

	accommodationRoutes := engine.Group("/accommodations")
	{
		accommodationRoutes.POST("", s.createAccommodation)
		accommodationRoutes.GET("", s.listAccommodationsHandler)
		accommodationRoutes.GET("/:id", s.getAccommodationHandler)
		accommodationRoutes.PUT("/:id", s.updateAccommodation)
		accommodationRoutes.POST("/:id/deactivate", s.deactivateAccommodation)
		accommodationRoutes.POST("/:id/reactivate", s.reactivateAccommodation)
	}

	engine.GET("/availability", s.availabilityHandler)

	s.engine = engine
	return s
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()

	s.logger.Info("http server listening", "addr", addr)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

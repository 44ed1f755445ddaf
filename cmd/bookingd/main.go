// Command bookingd runs the family booking service: an event-sourced write
// side, projected read models, the advisory availability checker and a REST
// API on top.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	cqrs "github.com/terraskye/booking/eventsourcing"
	busamqp "github.com/terraskye/booking/eventsourcing/eventbus/amqp"
	busmemory "github.com/terraskye/booking/eventsourcing/eventbus/memory"
	file "github.com/terraskye/booking/eventsourcing/eventstore/disk"
	storememory "github.com/terraskye/booking/eventsourcing/eventstore/memory"
	"github.com/terraskye/booking/eventsourcing/eventstore/postgres"
	"github.com/terraskye/booking/eventsourcing/logging"
	estelemetry "github.com/terraskye/booking/eventsourcing/otel"
	"github.com/terraskye/booking/internal/app"
	"github.com/terraskye/booking/internal/availability"
	"github.com/terraskye/booking/internal/config"
	"github.com/terraskye/booking/internal/domain/accommodation"
	"github.com/terraskye/booking/internal/domain/booking"
	"github.com/terraskye/booking/internal/projection"
	transport "github.com/terraskye/booking/internal/transport/http"
)

func main() {
	if err := run(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintln(os.Stderr, "bookingd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := cfg.NewLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Event store, wrapped with telemetry.
	var pool *pgxpool.Pool
	var store cqrs.EventStore
	switch cfg.EventStoreBackend {
	case config.BackendPostgres:
		pool, err = pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		pgStore := postgres.NewStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}
		store = pgStore

	case config.BackendDisk:
		store, err = file.NewFileStore(cfg.EventStoreDir)
		if err != nil {
			return fmt.Errorf("open file store: %w", err)
		}

	default:
		store = storememory.NewMemoryStore(1024)
	}
	store = estelemetry.WithEventStoreTelemetry(store)
	defer store.Close()

	// Event bus: in-process by default, RabbitMQ when configured.
	var bus cqrs.EventBus
	if cfg.AMQPURL != "" {
		bus, err = busamqp.NewEventBus(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("connect amqp: %w", err)
		}
	} else {
		bus = busmemory.NewEventBus(1024)
	}
	bus = estelemetry.WithEventBusTelemetry(bus)
	defer bus.Close()

	go func() {
		for err := range bus.Errors() {
			logger.Error("event handling failed", "err", err)
		}
	}()

	// Committed events flow to the bus after every append.
	store = cqrs.WithEventPublication(store, bus, func(err error) {
		logger.Warn("event dispatch failed", "err", err)
	})

	// Read model repositories.
	var bookings projection.BookingRepository
	var accommodations projection.AccommodationRepository
	if pool != nil {
		bookings, err = projection.NewPostgresBookingRepository(ctx, pool)
		if err != nil {
			return err
		}
		accommodations, err = projection.NewPostgresAccommodationRepository(ctx, pool)
		if err != nil {
			return err
		}
	} else {
		bookings = projection.NewMemoryBookingRepository()
		accommodations = projection.NewMemoryAccommodationRepository()
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		// Only the slow-moving catalog goes through the cache. Booking
		// occupancy is always read from the source so the availability
		// checker stays as fresh as the read model allows.
		accommodations = projection.NewCachedAccommodationRepository(accommodations, client, cfg.RedisTTL)
	}

	// Projectors: rebuild from the log on startup, then follow the bus.
	bookingProjector := projection.NewBookingProjector(bookings).Processor()
	accommodationProjector := projection.NewAccommodationProjector(accommodations).Processor()

	start := time.Now()
	if err := projection.Rebuild(ctx, store, bookingProjector, accommodationProjector); err != nil {
		return fmt.Errorf("rebuild read models: %w", err)
	}
	logger.Info("read models rebuilt", "took", time.Since(start))

	for name, projector := range map[string]*cqrs.EventGroupProcessor{
		"booking-projector":       bookingProjector,
		"accommodation-projector": accommodationProjector,
	} {
		err := bus.Subscribe(ctx, name,
			cqrs.MatchEventTypes(projector.StreamFilter()...),
			logging.WithLoggingMiddleware(logger, projector))
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", name, err)
		}
	}

	// Command and query sides.
	commandLogger := logrus.NewEntry(logrus.StandardLogger())
	checker := availability.NewChecker(bookings, accommodations)

	bookingService := app.NewBookingService(
		cqrs.NewRepository(store, booking.New, cqrs.WithMetadataExtractor(causationMetadata)),
		accommodations, checker, commandLogger)
	accommodationService := app.NewAccommodationService(
		cqrs.NewRepository(store, accommodation.New, cqrs.WithMetadataExtractor(causationMetadata)),
		commandLogger)

	queryBus := cqrs.NewQueryBus()
	app.RegisterQueryHandlers(queryBus, bookings, accommodations, commandLogger)
	availability.RegisterQueryHandlers(queryBus, checker)

	server := transport.NewServer(bookingService, accommodationService, queryBus, logger)
	return server.Run(ctx, cfg.HTTPAddr)
}

// causationMetadata stamps the dispatching command onto every persisted
// envelope. The command logging middleware records the command type as the
// causation before the handler runs.
func causationMetadata(ctx context.Context) map[string]any {
	if id := cqrs.CausationFromContext(ctx); id != "" {
		return map[string]any{"causationId": id}
	}
	return nil
}

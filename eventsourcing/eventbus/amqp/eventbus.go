// Package amqp provides an EventBus backed by RabbitMQ. Envelopes are
// published as JSON to a topic exchange with the event type as routing key;
// each subscriber gets its own durable queue bound to the keys its filter
// accepts, so independent services can consume the same event stream.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	cqrs "github.com/terraskye/booking/eventsourcing"
)

type wireEnvelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	StreamID      string          `json:"stream_id"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	Version       uint64          `json:"version"`
	GlobalVersion uint64          `json:"global_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type eventBus struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string

	mu      sync.Mutex
	subs    map[string]context.CancelFunc
	closed  bool
	errs    chan error
	wg      sync.WaitGroup
}

// NewEventBus dials RabbitMQ and declares the topic exchange.
func NewEventBus(url, exchange string) (cqrs.EventBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &eventBus{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		subs:     make(map[string]context.CancelFunc),
		errs:     make(chan error, 64),
	}, nil
}

func (b *eventBus) Dispatch(ctx context.Context, env *cqrs.Envelope) error {
	data, err := json.Marshal(env.Event)
	if err != nil {
		return fmt.Errorf("cannot marshal event %q: %w", env.Event.EventType(), err)
	}
	body, err := json.Marshal(wireEnvelope{
		EventID:       env.EventID,
		StreamID:      env.StreamID,
		EventType:     env.Event.EventType(),
		Data:          data,
		Metadata:      env.Metadata,
		Version:       env.Version,
		GlobalVersion: env.GlobalVersion,
		OccurredAt:    env.OccurredAt,
	})
	if err != nil {
		return err
	}
	return b.ch.PublishWithContext(ctx, b.exchange, env.Event.EventType(), false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   env.EventID.String(),
		Timestamp:   env.OccurredAt,
		Body:        body,
	})
}

// Subscribe declares a durable queue named after the subscriber, binds it to
// all routing keys, and consumes on a dedicated channel. The broker-side
// binding is wildcard; the filter still decides per event, so filters that
// are not expressible as routing keys keep working.
func (b *eventBus) Subscribe(
	ctx context.Context,
	name string,
	filter func(cqrs.Event) bool,
	handler cqrs.EventHandler,
	opts ...cqrs.SubscriberOption,
) error {
	if filter == nil || handler == nil {
		return errors.New("filter and handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New("eventbus is closed")
	}
	if _, exists := b.subs[name]; exists {
		return fmt.Errorf("handler with name %q already registered", name)
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	q, err := ch.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare queue %q: %w", name, err)
	}
	if err := ch.QueueBind(q.Name, "#", b.exchange, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("bind queue %q: %w", name, err)
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	deliveries, err := ch.ConsumeWithContext(workerCtx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		cancel()
		_ = ch.Close()
		return fmt.Errorf("consume queue %q: %w", name, err)
	}

	b.subs[name] = cancel
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer ch.Close()
		b.runSubscriber(workerCtx, name, filter, handler, deliveries)
	}()

	go func() {
		<-ctx.Done()
		b.removeSubscriber(name)
	}()

	return nil
}

func (b *eventBus) runSubscriber(
	ctx context.Context,
	name string,
	filter func(cqrs.Event) bool,
	handler cqrs.EventHandler,
	deliveries <-chan amqp.Delivery,
) {
	for d := range deliveries {
		env, err := decodeDelivery(d)
		if err != nil {
			b.report(fmt.Errorf("handler %q: %w", name, err))
			_ = d.Nack(false, false)
			continue
		}
		if !filter(env.Event) {
			_ = d.Ack(false)
			continue
		}
		if err := handler.Handle(cqrs.WithEnvelope(ctx, env), env.Event); err != nil {
			b.report(fmt.Errorf("handler %q: %w", name, err))
			_ = d.Nack(false, true)
			continue
		}
		_ = d.Ack(false)
	}
}

func decodeDelivery(d amqp.Delivery) (*cqrs.Envelope, error) {
	var wire wireEnvelope
	if err := json.Unmarshal(d.Body, &wire); err != nil {
		return nil, fmt.Errorf("cannot unmarshal envelope: %w", err)
	}
	ev, err := cqrs.NewEventByName(wire.EventType)
	if err != nil {
		return nil, fmt.Errorf("cannot create event %q: %w", wire.EventType, err)
	}
	if err := json.Unmarshal(wire.Data, &ev); err != nil {
		return nil, fmt.Errorf("cannot unmarshal event %q: %w", wire.EventType, err)
	}
	return &cqrs.Envelope{
		EventID:       wire.EventID,
		StreamID:      wire.StreamID,
		Event:         ev,
		Metadata:      wire.Metadata,
		Version:       wire.Version,
		GlobalVersion: wire.GlobalVersion,
		OccurredAt:    wire.OccurredAt,
	}, nil
}

func (b *eventBus) report(err error) {
	select {
	case b.errs <- err:
	default:
		// Drop error if channel full
	}
}

func (b *eventBus) removeSubscriber(name string) {
	b.mu.Lock()
	cancel, ok := b.subs[name]
	if ok {
		delete(b.subs, name)
	}
	b.mu.Unlock()
	if ok {
		cancel()
	}
}

func (b *eventBus) Errors() <-chan error {
	return b.errs
}

func (b *eventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for name, cancel := range b.subs {
		cancel()
		delete(b.subs, name)
	}
	b.mu.Unlock()

	b.wg.Wait()
	close(b.errs)

	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

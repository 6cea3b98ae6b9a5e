package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Bodegas-api/pkg/logger"
)

// ErrClosed se devuelve al suscribirse a un bus ya cerrado.
var ErrClosed = errors.New("bus de eventos cerrado")

// Resultados de entrega reportados a Metrics.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomePanic = "panic"
)

// Handler procesa un evento. Su error se registra en el log y nunca llega al publicador.
type Handler = func(ctx context.Context, payload any) error

// Metrics observa entregas del bus. Implementación nil = no se reporta nada.
type Metrics interface {
	EventDelivered(topic, subscriber, outcome string, elapsed time.Duration)
}

// Bus publicación/suscripción en proceso. Cada suscripción tiene su propio buzón sin límite
// y una goroutine consumidora; Publish nunca bloquea esperando a los suscriptores.
type Bus struct {
	log     *logger.Logger
	metrics Metrics
	tracer  trace.Tracer

	mu     sync.RWMutex
	subs   map[string][]*subscription
	closed bool
	wg     sync.WaitGroup
}

// New construye el bus. metrics puede ser nil.
func New(log *logger.Logger, metrics Metrics) *Bus {
	if log == nil {
		log = logger.Nop()
	}
	return &Bus{
		log:     log.Named("eventbus"),
		metrics: metrics,
		tracer:  otel.Tracer("github.com/jhoicas/Bodegas-api/internal/infrastructure/eventbus"),
		subs:    make(map[string][]*subscription),
	}
}

type envelope struct {
	topic   string
	payload any
	link    trace.Link
}

type subscription struct {
	topic   string
	name    string
	handler Handler

	mu     sync.Mutex
	queue  []envelope
	signal chan struct{}
	stop   chan struct{}
}

// Subscribe registra handler para topic con un nombre legible para logs y métricas.
// La suscripción vive hasta Close.
func (b *Bus) Subscribe(topic, name string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	s := &subscription{
		topic:   topic,
		name:    name,
		handler: handler,
		signal:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	b.subs[topic] = append(b.subs[topic], s)
	b.wg.Add(1)
	go b.consume(s)

	b.log.Debug().Str("topic", topic).Str("subscriber", name).Msg("suscripción registrada")
	return nil
}

// Publish encola payload en el buzón de cada suscriptor de topic y retorna de inmediato.
// El span activo en ctx se enlaza al span de cada entrega.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.log.Warn().Str("topic", topic).Msg("evento descartado: bus cerrado")
		return
	}
	env := envelope{topic: topic, payload: payload, link: trace.LinkFromContext(ctx)}
	for _, s := range b.subs[topic] {
		s.enqueue(env)
	}
}

func (s *subscription) enqueue(env envelope) {
	s.mu.Lock()
	s.queue = append(s.queue, env)
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscription) take() []envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.queue
	s.queue = nil
	return batch
}

func (b *Bus) consume(s *subscription) {
	defer b.wg.Done()
	for {
		select {
		case <-s.signal:
			for _, env := range s.take() {
				b.deliver(s, env)
			}
		case <-s.stop:
			// drenar lo pendiente antes de salir
			for batch := s.take(); len(batch) > 0; batch = s.take() {
				for _, env := range batch {
					b.deliver(s, env)
				}
			}
			return
		}
	}
}

func (b *Bus) deliver(s *subscription, env envelope) {
	start := time.Now()
	ctx, span := b.tracer.Start(context.Background(), "eventbus.deliver "+env.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithLinks(env.link),
		trace.WithAttributes(
			attribute.String("messaging.system", "inprocess"),
			attribute.String("messaging.destination", env.topic),
			attribute.String("messaging.consumer", s.name),
		),
	)
	defer span.End()

	outcome := OutcomeOK
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomePanic
			span.SetStatus(codes.Error, "panic en handler")
			b.log.WithContext(ctx).Error().
				Str("topic", env.topic).
				Str("subscriber", s.name).
				Interface("panic", r).
				Msg("handler de evento en pánico")
		}
		if b.metrics != nil {
			b.metrics.EventDelivered(env.topic, s.name, outcome, time.Since(start))
		}
	}()

	if err := s.handler(ctx, env.payload); err != nil {
		outcome = OutcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.log.WithContext(ctx).Error().
			Err(err).
			Str("topic", env.topic).
			Str("subscriber", s.name).
			Msg("handler de evento falló")
	}
}

// Close deja de aceptar eventos, drena los buzones y espera a los consumidores
// o a que ctx expire.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, list := range b.subs {
		for _, s := range list {
			close(s.stop)
		}
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.log.Info().Msg("bus de eventos drenado")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cerrar bus: %w", ctx.Err())
	}
}

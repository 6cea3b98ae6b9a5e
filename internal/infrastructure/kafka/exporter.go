package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	"github.com/jhoicas/Bodegas-api/pkg/logger"
)

// Bus suscripción al bus de eventos interno.
type Bus interface {
	Subscribe(topic, name string, handler func(ctx context.Context, payload any) error) error
}

// MovementMessage mensaje publicado en Kafka por cada movimiento confirmado.
type MovementMessage struct {
	EventID     string    `json:"event_id"`
	Kind        string    `json:"kind"`
	ProductID   string    `json:"product_id,omitempty"`
	CatalogID   int       `json:"catalog_id,omitempty"`
	WarehouseID string    `json:"warehouse_id"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Exporter reenvía los eventos de movimiento a un tópico de Kafka para consumidores externos.
// Es un suscriptor más del bus: un fallo de Kafka no afecta al movimiento ni al historial.
type Exporter struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewSyncProducer crea un productor síncrono con acks de todas las réplicas.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 3
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("crear productor Kafka: %w", err)
	}
	return producer, nil
}

// NewExporter construye el exportador sobre un productor ya creado.
func NewExporter(producer sarama.SyncProducer, topic string, log *logger.Logger) *Exporter {
	if log == nil {
		log = logger.Nop()
	}
	return &Exporter{producer: producer, topic: topic, log: log.Named("kafka-exporter")}
}

// Subscribe registra el exportador en el tópico de movimientos.
func (e *Exporter) Subscribe(bus Bus) error {
	return bus.Subscribe(entity.TopicProductMovement, "kafka.exporter", func(ctx context.Context, payload any) error {
		event, ok := payload.(entity.MovementEvent)
		if !ok {
			return fmt.Errorf("payload %T inesperado en %s", payload, entity.TopicProductMovement)
		}
		return e.Export(ctx, event)
	})
}

// Export publica un movimiento. La clave es el id del producto para conservar su orden por partición.
func (e *Exporter) Export(ctx context.Context, event entity.MovementEvent) error {
	ctx, span := otel.Tracer("kafka-exporter").Start(ctx, "kafka.publish.product_movement",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", e.topic),
			attribute.String("movement.kind", event.Kind),
		),
	)
	defer span.End()

	msg := MovementMessage{
		EventID:     uuid.New().String(),
		Kind:        event.Kind,
		WarehouseID: event.WarehouseID,
		From:        event.From,
		To:          event.To,
		OccurredAt:  event.OccurredAt,
	}
	key := event.WarehouseID
	if event.Product != nil {
		msg.ProductID = event.Product.ID
		msg.CatalogID = event.Product.CatalogID
		key = event.Product.ID
	}

	body, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "serializar movimiento")
		return fmt.Errorf("serializar movimiento: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(event.Kind)},
		{Key: []byte("event_id"), Value: []byte(msg.EventID)},
	}
	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	partition, offset, err := e.producer.SendMessage(&sarama.ProducerMessage{
		Topic:   e.topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(body),
		Headers: headers,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enviar mensaje")
		return fmt.Errorf("enviar movimiento a Kafka: %w", err)
	}

	span.SetAttributes(
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)
	e.log.WithContext(ctx).Debug().
		Str("event_id", msg.EventID).
		Str("kind", msg.Kind).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("movimiento exportado")
	return nil
}

// Close cierra el productor.
func (e *Exporter) Close() error {
	if e.producer != nil {
		return e.producer.Close()
	}
	return nil
}

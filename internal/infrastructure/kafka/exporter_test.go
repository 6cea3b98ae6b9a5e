package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	"github.com/jhoicas/Bodegas-api/internal/infrastructure/eventbus"
	"github.com/jhoicas/Bodegas-api/internal/infrastructure/kafka"
	"github.com/jhoicas/Bodegas-api/pkg/logger"
)

func TestExporter_PublicaMovimientoConClaveDeProducto(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	var got MovementCapture
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(got.check)

	exporter := kafka.NewExporter(producer, "movements", logger.Nop())
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	err := exporter.Export(context.Background(), entity.MovementEvent{
		Kind:        entity.MovementTransferred,
		Product:     &entity.Product{ID: "p1", CatalogID: 7},
		WarehouseID: "w2",
		From:        "w1",
		To:          "w2",
		OccurredAt:  at,
	})
	require.NoError(t, err)
	require.NoError(t, exporter.Close())

	assert.Equal(t, "movements", got.topic)
	assert.Equal(t, "p1", got.key)
	assert.Equal(t, entity.MovementTransferred, got.body.Kind)
	assert.Equal(t, "p1", got.body.ProductID)
	assert.Equal(t, 7, got.body.CatalogID)
	assert.Equal(t, "w1", got.body.From)
	assert.Equal(t, "w2", got.body.To)
	assert.True(t, at.Equal(got.body.OccurredAt))
	assert.NotEmpty(t, got.body.EventID)
}

func TestExporter_FalloDeKafkaSeDevuelve(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	exporter := kafka.NewExporter(producer, "movements", logger.Nop())
	err := exporter.Export(context.Background(), entity.MovementEvent{Kind: entity.MovementArrived, WarehouseID: "w1"})
	assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers))
	require.NoError(t, exporter.Close())
}

func TestExporter_SuscritoAlBus(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndSucceed()

	bus := eventbus.New(logger.Nop(), nil)
	exporter := kafka.NewExporter(producer, "movements", logger.Nop())
	require.NoError(t, exporter.Subscribe(bus))

	bus.Publish(context.Background(), entity.TopicProductMovement, entity.MovementEvent{Kind: entity.MovementArrived, WarehouseID: "w1"})
	bus.Publish(context.Background(), entity.TopicProductMovement, entity.MovementEvent{Kind: entity.MovementSent, WarehouseID: "w1"})
	require.NoError(t, bus.Close(context.Background()))
	require.NoError(t, exporter.Close())
}

// MovementCapture guarda el último mensaje visto por el mock.
type MovementCapture struct {
	topic string
	key   string
	body  kafka.MovementMessage
}

func (c *MovementCapture) check(msg *sarama.ProducerMessage) error {
	c.topic = msg.Topic
	key, err := msg.Key.Encode()
	if err != nil {
		return err
	}
	c.key = string(key)
	value, err := msg.Value.Encode()
	if err != nil {
		return err
	}
	return json.Unmarshal(value, &c.body)
}

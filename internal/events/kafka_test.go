package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublisher_PublishOrderPlaced(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	publisher := NewKafkaPublisherWithProducer(producer, "orders-test")

	var sent OrderPlacedEvent
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		return json.Unmarshal(val, &sent)
	})

	err := publisher.PublishOrderPlaced(context.Background(), OrderPlacedEvent{
		OrderID:       12,
		UserID:        3,
		TotalAmount:   decimal.NewFromInt(250),
		PaymentMethod: "cod",
		Status:        "Pending",
		Items: []OrderPlacedItem{
			{ProductID: 1, Category: "Laptops", Quantity: 2, Price: decimal.NewFromInt(100)},
			{ProductID: 2, Category: "Earbuds", Quantity: 1, Price: decimal.NewFromInt(50)},
		},
	})
	require.NoError(t, err)
	require.NoError(t, publisher.Close())

	assert.Equal(t, EventTypeOrderPlaced, sent.EventType)
	assert.NotEmpty(t, sent.EventID)
	assert.False(t, sent.Timestamp.IsZero())
	assert.Equal(t, int64(12), sent.OrderID)
	assert.True(t, decimal.NewFromInt(250).Equal(sent.TotalAmount))
	assert.Len(t, sent.Items, 2)
}

func TestKafkaPublisher_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	publisher := NewKafkaPublisherWithProducer(producer, "")
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := publisher.PublishOrderPlaced(context.Background(), OrderPlacedEvent{OrderID: 1, UserID: 1})

	assert.ErrorContains(t, err, "failed to send message to Kafka")
	assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers))
	require.NoError(t, publisher.Close())
}

func TestNewKafkaPublisherWithProducer_DefaultTopic(t *testing.T) {
	p := NewKafkaPublisherWithProducer(nil, "")
	assert.Equal(t, DefaultOrderTopic, p.topic)
	assert.NoError(t, p.Close())
}

func TestNewProducerConfig(t *testing.T) {
	cfg := NewProducerConfig()
	assert.True(t, cfg.Producer.Return.Successes)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.LessOrEqual(t, cfg.Net.DialTimeout, producerTimeout)
	assert.LessOrEqual(t, cfg.Net.ReadTimeout, producerTimeout)
	assert.LessOrEqual(t, cfg.Net.WriteTimeout, producerTimeout)
	assert.LessOrEqual(t, cfg.Producer.Timeout, producerTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestKafkaPublisher_SlowBrokerHonoursDeadline(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	publisher := NewKafkaPublisherWithProducer(producer, "orders-test")

	release := make(chan struct{})
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func([]byte) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := publisher.PublishOrderPlaced(ctx, OrderPlacedEvent{OrderID: 9, UserID: 4})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	close(release)
	require.NoError(t, publisher.Close())
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishOrderPlaced(context.Background(), OrderPlacedEvent{}))
	assert.NoError(t, p.Close())
}

package rabbitmq_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/dimasromerop/portal-giav/lib/service"
	"github.com/dimasromerop/portal-giav/rabbitmq"
	"github.com/dimasromerop/portal-giav/rabbitmq/mock_rabbitmq"
	"github.com/golang/mock/gomock"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

//go:generate mockgen -destination=./mock_rabbitmq/rabbitmq.go github.com/dimasromerop/portal-giav/rabbitmq AMQPClient

func testEvent(eventType service.PaymentEventType) service.PaymentEvent {
	intent := &models.PaymentIntent{
		ID:             12,
		Token:          "tok",
		BookingID:      42,
		CustomerID:     5001,
		UserID:         7,
		Amount:         25000,
		Currency:       "EUR",
		GatewayOrderID: "261017000012",
	}
	return service.NewPaymentEvent(eventType, intent, time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC))
}

func TestPublishPaymentEvent(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	amqpClient := mock_rabbitmq.NewMockAMQPClient(ctrl)
	amqpClient.EXPECT().
		ExchangeDeclare("payments", "topic", true, false, false, false, gomock.Any()).
		Times(1).
		Return(nil)

	client, err := rabbitmq.NewClient(amqpClient, rabbitmq.WithEventExchange("payments"))
	assert.NoError(t, err)

	event := testEvent(service.EventBookingFullyPaid)
	var published amqp.Publishing
	amqpClient.EXPECT().
		PublishWithContext(gomock.Any(), "payments", "payment.booking_fully_paid", false, false, gomock.Any()).
		Times(1).
		DoAndReturn(func(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
			published = msg
			return nil
		})

	assert.NoError(t, client.PublishPaymentEvent(context.Background(), event))
	assert.Equal(t, "application/json", published.ContentType)
	assert.Equal(t, amqp.Persistent, published.DeliveryMode)
	assert.Equal(t, event.ID.String(), published.MessageId)

	var decoded service.PaymentEvent
	assert.NoError(t, json.Unmarshal(published.Body, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, int64(42), decoded.BookingID)
	assert.Equal(t, int64(25000), decoded.Amount)
}

func TestPublishPaymentEventError(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	amqpClient := mock_rabbitmq.NewMockAMQPClient(ctrl)
	amqpClient.EXPECT().ExchangeDeclare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	amqpClient.EXPECT().
		PublishWithContext(gomock.Any(), "portal_payment_events", "payment.payment_confirmed", false, false, gomock.Any()).
		Return(rabbitmq.ErrReconnecting)

	client, err := rabbitmq.NewClient(amqpClient)
	assert.NoError(t, err)

	err = client.PublishPaymentEvent(context.Background(), testEvent(service.EventPaymentConfirmed))
	assert.ErrorIs(t, err, rabbitmq.ErrReconnecting)
}

func TestNewClientDeclareError(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	amqpClient := mock_rabbitmq.NewMockAMQPClient(ctrl)
	amqpClient.EXPECT().
		ExchangeDeclare(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("channel closed"))

	_, err := rabbitmq.NewClient(amqpClient)
	assert.Error(t, err)
}

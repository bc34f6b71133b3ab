package rabbitmq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dimasromerop/portal-giav/lib/service"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

// bufPool lets concurrent publishers reuse encoding buffers.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

const (
	contentTypeJSON = "application/json"

	defaultEventExchange = "portal_payment_events"
)

// Client publishes payment events to a topic exchange with routing key
// payment.<event type>.
type Client struct {
	amqpClient AMQPClient
	logger     *lecho.Logger

	eventExchange string
}

type ClientOption = func(client *Client)

func WithEventExchange(exchange string) ClientOption {
	return func(client *Client) {
		client.eventExchange = exchange
	}
}

func WithLogger(logger *lecho.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient declares the event exchange and returns a publisher on top of
// amqpClient.
func NewClient(amqpClient AMQPClient, options ...ClientOption) (*Client, error) {
	client := &Client{
		amqpClient: amqpClient,
		logger: lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		),
		eventExchange: defaultEventExchange,
	}
	for _, opt := range options {
		opt(client)
	}

	err := amqpClient.ExchangeDeclare(
		client.eventExchange,
		// topic lets the mailer bind only the event types it sends mail for
		"topic",
		// durable, not auto deleted
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Dial connects to uri and returns a ready publisher.
func Dial(uri string, options ...ClientOption) (*Client, error) {
	client := &Client{}
	for _, opt := range options {
		opt(client)
	}
	logger := client.logger
	if logger == nil {
		logger = lecho.New(os.Stdout, lecho.WithLevel(log.DEBUG), lecho.WithTimestamp())
		options = append(options, WithLogger(logger))
	}
	amqpClient, err := DialAMQP(uri, logger)
	if err != nil {
		return nil, err
	}
	c, err := NewClient(amqpClient, options...)
	if err != nil {
		amqpClient.Close()
		return nil, err
	}
	return c, nil
}

func RoutingKey(eventType service.PaymentEventType) string {
	return fmt.Sprintf("payment.%s", eventType)
}

func (client *Client) PublishPaymentEvent(ctx context.Context, event service.PaymentEvent) error {
	payload := bufPool.Get().(*bytes.Buffer)
	payload.Reset()
	defer bufPool.Put(payload)

	if err := json.NewEncoder(payload).Encode(event); err != nil {
		return err
	}

	err := client.amqpClient.PublishWithContext(ctx,
		client.eventExchange,
		RoutingKey(event.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:  contentTypeJSON,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID.String(),
			Timestamp:    event.OccurredAt,
			Type:         string(event.Type),
			Body:         payload.Bytes(),
		},
	)
	if err != nil {
		captureErr(client.logger, err)
		return err
	}

	client.logger.Debugf("Successfully published %s for intent %d to rabbitmq", event.Type, event.IntentID)
	return nil
}

func (client *Client) Close() error { return client.amqpClient.Close() }

func captureErr(logger *lecho.Logger, err error) {
	logger.Error(err)
	sentry.CaptureException(err)
}

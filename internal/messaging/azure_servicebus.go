package messaging

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/pickaudit/config"
)

// Event types published on the pickaudit queue
const (
	EventDatasetUploaded   = "dataset.uploaded"
	EventAnalysisRequested = "analysis.requested"
	EventAnalysisCompleted = "analysis.completed"
)

// ErrNoConnection is returned when the client was built without a
// connection string and a receiver is requested
var ErrNoConnection = errors.New("azure service bus connection string is empty")

// Publisher sends domain events
type Publisher interface {
	Publish(ctx context.Context, eventType string, body interface{}) error
	Close() error
}

// Event is a received message stripped down to what handlers need
type Event struct {
	ID     string
	Type   string
	Source string
	Time   time.Time
	Body   []byte
}

// Decode unmarshals the event body into v
func (e Event) Decode(v interface{}) error {
	if len(e.Body) == 0 {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(e.Body, v), "decode %s event", e.Type)
}

// ServiceBusClient publishes to and receives from one queue
type ServiceBusClient struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
	source    string
}

// NewServiceBusClient creates a new Azure Service Bus client
func NewServiceBusClient(cfg config.AzureConfig, source string) (*ServiceBusClient, error) {
	if cfg.QueueConnStr == "" {
		return nil, ErrNoConnection
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &ServiceBusClient{
		client:    client,
		sender:    sender,
		queueName: cfg.QueueName,
		source:    source,
	}, nil
}

// Publish sends one event to the queue
func (s *ServiceBusClient) Publish(ctx context.Context, eventType string, body interface{}) error {
	msg, err := NewMessage(eventType, s.source, body, time.Now())
	if err != nil {
		return err
	}
	if err := s.sender.SendMessage(ctx, msg, nil); err != nil {
		return errors.Wrapf(err, "failed to send %s to %s", eventType, s.queueName)
	}
	return nil
}

// NewProcessor creates a peek-lock receiver on the client's queue
func (s *ServiceBusClient) NewProcessor(batchSize int) (*Processor, error) {
	receiver, err := s.client.NewReceiverForQueue(s.queueName, &azservicebus.ReceiverOptions{
		ReceiveMode: azservicebus.ReceiveModePeekLock,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus receiver")
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Processor{receiver: receiver, batchSize: batchSize, queueName: s.queueName}, nil
}

// Close closes the Service Bus client
func (s *ServiceBusClient) Close() error {
	if s.sender != nil {
		if err := s.sender.Close(context.Background()); err != nil {
			return errors.Wrap(err, "close sender")
		}
	}
	if s.client != nil {
		return errors.Wrap(s.client.Close(context.Background()), "close client")
	}
	return nil
}

// NewMessage builds the wire message for an event
func NewMessage(eventType, source string, body interface{}, at time.Time) (*azservicebus.Message, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message body")
	}
	contentType := "application/json"
	subject := eventType
	return &azservicebus.Message{
		Body:        data,
		ContentType: &contentType,
		Subject:     &subject,
		ApplicationProperties: map[string]interface{}{
			"type":   eventType,
			"source": source,
			"time":   at.UTC().Format(time.RFC3339),
		},
	}, nil
}

// EventFromMessage reads the envelope of a received message
func EventFromMessage(msg *azservicebus.ReceivedMessage) Event {
	evt := Event{ID: msg.MessageID, Body: msg.Body}
	if msg.Subject != nil {
		evt.Type = *msg.Subject
	}
	if v, ok := msg.ApplicationProperties["type"].(string); ok && v != "" {
		evt.Type = v
	}
	if v, ok := msg.ApplicationProperties["source"].(string); ok {
		evt.Source = v
	}
	if v, ok := msg.ApplicationProperties["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			evt.Time = t
		}
	}
	return evt
}

// Handler processes one event. A returned error abandons the message so
// it is redelivered.
type Handler func(ctx context.Context, evt Event) error

// Processor pulls batches of messages and settles them after the handler
// has run
type Processor struct {
	receiver  *azservicebus.Receiver
	batchSize int
	queueName string
}

// Run receives until ctx is cancelled
func (p *Processor) Run(ctx context.Context, handle Handler) error {
	for {
		messages, err := p.receiver.ReceiveMessages(ctx, p.batchSize, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if IsDisconnectionError(err) {
				log.Warn().Err(err).Str("queue", p.queueName).Msg("Service Bus link lost, retrying")
				select {
				case <-time.After(5 * time.Second):
					continue
				case <-ctx.Done():
					return nil
				}
			}
			return errors.Wrapf(err, "receive from %s", p.queueName)
		}

		for _, msg := range messages {
			p.settle(ctx, msg, handle)
		}
	}
}

func (p *Processor) settle(ctx context.Context, msg *azservicebus.ReceivedMessage, handle Handler) {
	evt := EventFromMessage(msg)
	if err := handle(ctx, evt); err != nil {
		log.Error().Err(err).Str("event", evt.Type).Str("message_id", evt.ID).Msg("Event handler failed")
		if err := p.receiver.AbandonMessage(ctx, msg, nil); err != nil {
			log.Error().Err(err).Str("message_id", evt.ID).Msg("Failed to abandon message")
		}
		return
	}
	if err := p.receiver.CompleteMessage(ctx, msg, nil); err != nil {
		log.Error().Err(err).Str("message_id", evt.ID).Msg("Failed to complete message")
	}
}

// Close closes the receiver
func (p *Processor) Close() error {
	return errors.Wrap(p.receiver.Close(context.Background()), "close receiver")
}

// IsDisconnectionError checks if an error is a disconnection error
func IsDisconnectionError(err error) bool {
	if err == nil {
		return false
	}
	var sbErr *azservicebus.Error
	if errors.As(err, &sbErr) && sbErr.Code == azservicebus.CodeConnectionLost {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "amqp: link detached") ||
		strings.Contains(msg, "awaiting send: context deadline exceeded")
}

// NoopPublisher drops every event. It stands in when no connection string
// is configured.
type NoopPublisher struct{}

// Publish logs and discards the event
func (NoopPublisher) Publish(_ context.Context, eventType string, _ interface{}) error {
	log.Debug().Str("event", eventType).Msg("Service Bus disabled, event dropped")
	return nil
}

// Close implements Publisher
func (NoopPublisher) Close() error { return nil }

// NewPublisher returns a Service Bus publisher, or a NoopPublisher when the
// connection string is empty
func NewPublisher(cfg config.AzureConfig, source string) (Publisher, error) {
	if cfg.QueueConnStr == "" {
		return NoopPublisher{}, nil
	}
	return NewServiceBusClient(cfg, source)
}

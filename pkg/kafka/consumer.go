package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/TradeCatalog/pkg/logger"
)

const (
	defaultHandlerRetries = 3
	defaultRetryBackoff   = 100 * time.Millisecond
	fetchErrorBackoff     = time.Second
)

// TopicPrefix is the namespace shared by every platform topic.
const TopicPrefix = "marketplace"

// Topic constructs a fully-qualified topic name.
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}

// Handler is a function that processes a Kafka event.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int

	// MaxRetries is how many times the handler runs before the message is
	// dead-lettered. Zero means the default of 3.
	MaxRetries   int
	RetryBackoff time.Duration
}

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeadLetterPublisher receives messages that could not be processed.
type DeadLetterPublisher interface {
	Publish(ctx context.Context, msg kafka.Message, lastErr error, consumerGroup string) error
}

// Consumer reads one topic in a consumer group and commits each message
// after it is handled, dead-lettered or found undecodable.
type Consumer struct {
	reader     MessageReader
	topic      string
	group      string
	handler    Handler
	dlq        DeadLetterPublisher
	logger     *slog.Logger
	tracer     trace.Tracer
	maxRetries int
	backoff    time.Duration
	closeOnce  sync.Once
	closeErr   error
}

// NewConsumer creates a consumer backed by a kafka-go reader.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return newConsumer(r, cfg, handler, logger)
}

func newConsumer(r MessageReader, cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultHandlerRetries
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return &Consumer{
		reader:     r,
		topic:      cfg.Topic,
		group:      cfg.GroupID,
		handler:    handler,
		logger:     logger.With(slog.String("topic", cfg.Topic), slog.String("group", cfg.GroupID)),
		tracer:     otel.Tracer("github.com/utafrali/TradeCatalog/pkg/kafka"),
		maxRetries: retries,
		backoff:    backoff,
	}
}

// WithDLQ routes messages that exhaust their retries, or fail to decode, to p.
// Without a DLQ such messages are logged and skipped.
func (c *Consumer) WithDLQ(p DeadLetterPublisher) *Consumer {
	c.dlq = p
	return c
}

// Start consumes until ctx is canceled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping")
				return c.Close()
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return c.Close()
			case <-time.After(fetchErrorBackoff):
			}
			continue
		}

		c.handle(ctx, msg)
	}
}

// handle processes one message and commits it unless ctx was canceled
// mid-retry, in which case the message is redelivered after restart.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	ConsumerMessagesReceived.WithLabelValues(c.topic, c.group).Inc()
	start := time.Now()

	ctx = otel.GetTextMapPropagator().Extract(ctx, NewHeaderCarrier(&msg))
	ctx, span := c.tracer.Start(ctx, "consume "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
	defer span.End()

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to unmarshal event",
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		span.SetStatus(codes.Error, "undecodable message")
		c.deadLetter(ctx, msg, err)
		c.commit(ctx, msg)
		return
	}
	if event.CorrelationID != "" {
		ctx = logger.WithCorrelationID(ctx, event.CorrelationID)
	}
	span.SetAttributes(attribute.String("event.type", event.EventType))

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if lastErr = c.handler(ctx, event); lastErr == nil {
			break
		}
		c.logger.WarnContext(ctx, "handler failed",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.Int64("offset", msg.Offset),
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)
		if attempt == c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}
	ConsumerProcessingDuration.WithLabelValues(c.topic, c.group).Observe(time.Since(start).Seconds())

	if lastErr != nil {
		ConsumerMessagesFailed.WithLabelValues(c.topic, c.group).Inc()
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, "handler failed")
		c.deadLetter(ctx, msg, lastErr)
	} else {
		ConsumerMessagesProcessed.WithLabelValues(c.topic, c.group).Inc()
	}
	c.commit(ctx, msg)
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	if c.dlq == nil {
		c.logger.ErrorContext(ctx, "no DLQ configured, skipping message",
			slog.Int64("offset", msg.Offset),
			slog.String("error", cause.Error()),
		)
		return
	}
	if err := c.dlq.Publish(ctx, msg, cause, c.group); err != nil {
		return
	}
	ConsumerDLQPublished.WithLabelValues(c.topic, c.group).Inc()
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "failed to commit message",
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
	}
}

// Close closes the reader. It is safe to call multiple times.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.reader.Close()
	})
	return c.closeErr
}

// PingBrokers returns nil if at least one broker answers a metadata request.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}

	var lastErr error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("kafka ping: all brokers unreachable: %w", lastErr)
}

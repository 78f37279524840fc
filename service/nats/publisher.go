package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/coinguard/service/metrics"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher defines the interface for publishing redemption diagnostics.
type Publisher interface {
	// PublishShortfall publishes a single shortfall event to JetStream.
	PublishShortfall(ctx context.Context, event *ShortfallEvent) error

	// Close closes the connection to NATS.
	Close() error
}

// JetStreamPublisher publishes shortfall events to NATS JetStream.
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	stream  string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

const (
	// DefaultStreamName is the JetStream stream holding redemption events.
	DefaultStreamName = "REDEMPTIONS"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = SubjectPrefix + ".*"

	// StreamRetention is how long messages are retained.
	StreamRetention = 30 * 24 * time.Hour
)

// NewPublisher connects to NATS and ensures the stream exists. An empty
// stream name selects DefaultStreamName. m may be nil.
func NewPublisher(natsURL, stream string, logger *slog.Logger, m *metrics.Metrics) (*JetStreamPublisher, error) {
	if stream == "" {
		stream = DefaultStreamName
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("coinguard-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &JetStreamPublisher{
		nc:      nc,
		js:      js,
		stream:  stream,
		logger:  logger,
		metrics: m,
	}

	if err := publisher.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized",
		"url", natsURL,
		"stream", stream,
	)

	return publisher, nil
}

// ensureStream creates the JetStream stream if it doesn't exist.
func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := p.js.Stream(ctx, p.stream)
	if err == nil {
		info, err := stream.Info(ctx)
		if err == nil {
			p.logger.Debug("JetStream stream already exists",
				"stream", p.stream,
				"messages", info.State.Msgs,
			)
		}
		return nil
	}

	p.logger.Info("creating JetStream stream", "stream", p.stream)

	_, err = p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        p.stream,
		Description: "Redemption shortfall diagnostics",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	p.logger.Info("JetStream stream created successfully", "stream", p.stream)
	return nil
}

// PublishShortfall publishes a single shortfall event. The event id is used
// as the message id so JetStream drops duplicates.
func (p *JetStreamPublisher) PublishShortfall(ctx context.Context, event *ShortfallEvent) error {
	start := time.Now()
	subject := event.Subject()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal shortfall event: %w", err)
	}

	_, err = p.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.ID.String()))
	if p.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		p.metrics.RecordNATSPublish(subject, status, time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("failed to publish shortfall: %w", err)
	}

	p.logger.Debug("published shortfall event",
		"subject", subject,
		"id", event.ID,
		"txids", event.TxIDs,
	)

	return nil
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}

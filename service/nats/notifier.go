package nats

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/brojonat/coinguard/service/network"
	"github.com/brojonat/coinguard/service/validator"
)

// DefaultPublishTimeout bounds a single shortfall publish.
const DefaultPublishTimeout = 5 * time.Second

// ShortfallNotifier adapts a Publisher to validator.Notifier. Events are
// published in the background; failures are logged and never reach the
// caller.
type ShortfallNotifier struct {
	publisher Publisher
	params    *network.Params
	logger    *slog.Logger
	timeout   time.Duration

	wg sync.WaitGroup
}

var _ validator.Notifier = (*ShortfallNotifier)(nil)

// NewShortfallNotifier returns a notifier publishing events for params.
func NewShortfallNotifier(publisher Publisher, params *network.Params, logger *slog.Logger) *ShortfallNotifier {
	return &ShortfallNotifier{
		publisher: publisher,
		params:    params,
		logger:    logger,
		timeout:   DefaultPublishTimeout,
	}
}

// NotifyShortfall implements validator.Notifier.
func (n *ShortfallNotifier) NotifyShortfall(s validator.Shortfall) {
	event := FromShortfall(n.params, s)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.publisher.PublishShortfall(ctx, event); err != nil {
			n.logger.Error("failed to publish shortfall event",
				"id", event.ID,
				"subject", event.Subject(),
				"error", err,
			)
		}
	}()
}

// Wait blocks until every in-flight publish has finished.
func (n *ShortfallNotifier) Wait() {
	n.wg.Wait()
}

package worker

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/invoicing/internal/pkg/logger"
)

const (
	fetchBatch      = 10
	fetchWait       = 5 * time.Second
	fetchErrorPause = 5 * time.Second
)

// Fetcher pulls message batches from a durable consumer. *nats.Subscription implements it.
type Fetcher interface {
	Fetch(batch int, opts ...nats.PullOpt) ([]*nats.Msg, error)
}

// Consume pulls messages until ctx is done. Handled messages are acked,
// failed ones are nacked so JetStream redelivers them with backoff.
func Consume(ctx context.Context, sub Fetcher, handle func(data []byte) error, log *logger.Logger) {
	for ctx.Err() == nil {
		msgs, err := sub.Fetch(fetchBatch, nats.MaxWait(fetchWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			log.Error("Failed to fetch messages from JetStream", err)

			select {
			case <-time.After(fetchErrorPause):
			case <-ctx.Done():
			}
			continue
		}

		for _, msg := range msgs {
			if err := handle(msg.Data); err != nil {
				log.Error("Failed to handle event", err)

				if nakErr := msg.Nak(); nakErr != nil {
					log.Error("Failed to NAK message", nakErr)
				}
				continue
			}

			if ackErr := msg.Ack(); ackErr != nil {
				log.Error("Failed to ACK message", ackErr)
			}
		}
	}
}

package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/invoicing/internal/pkg/logger"
)

const (
	// StreamName is the JetStream stream for invoice lifecycle events
	StreamName = "INVOICES"

	// StreamSubjects defines the subjects this stream listens to
	StreamSubjects = "invoices.events"

	// ConsumerName is the durable consumer for the reorder worker
	ConsumerName = "reorder-worker"

	// MaxDeliveryAttempts is the max number of delivery attempts before discarding.
	// A discarded event only delays an alert until the product's next sale or refund.
	MaxDeliveryAttempts = 3

	// AckWait is how long to wait for acknowledgment before redelivery
	AckWait = 30 * time.Second

	// StreamMaxAge drops events nobody picked up within a week
	StreamMaxAge = 7 * 24 * time.Hour
)

// JetStreamManager is the part of nats.JetStreamContext used to provision the stream
type JetStreamManager interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	UpdateStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	ConsumerInfo(stream, name string, opts ...nats.JSOpt) (*nats.ConsumerInfo, error)
	AddConsumer(stream string, cfg *nats.ConsumerConfig, opts ...nats.JSOpt) (*nats.ConsumerInfo, error)
	UpdateConsumer(stream string, cfg *nats.ConsumerConfig, opts ...nats.JSOpt) (*nats.ConsumerInfo, error)
}

// Provisioner creates the invoice stream and the reorder consumer, and brings
// existing ones back in line when their mutable settings drifted
type Provisioner struct {
	js     JetStreamManager
	logger *logger.Logger
}

// NewProvisioner creates a new stream provisioner
func NewProvisioner(js JetStreamManager, log *logger.Logger) *Provisioner {
	return &Provisioner{
		js:     js,
		logger: log,
	}
}

// generateExponentialBackoff creates a backoff schedule for NATS redeliveries: 1s, 2s, 4s, ...
// MaxDeliver N requires N-1 backoff durations (first delivery is immediate)
func generateExponentialBackoff(maxDeliveryAttempts int) []time.Duration {
	if maxDeliveryAttempts <= 1 {
		return nil
	}

	backoff := make([]time.Duration, maxDeliveryAttempts-1)
	for i := range backoff {
		backoff[i] = time.Duration(1<<i) * time.Second
	}
	return backoff
}

// invoiceStreamConfig uses interest retention: the notifier reads the subject
// over core NATS while the reorder worker pulls from the durable consumer.
func invoiceStreamConfig() *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{StreamSubjects},
		Retention:   nats.InterestPolicy,
		Storage:     nats.FileStorage,
		Replicas:    1,
		MaxAge:      StreamMaxAge,
		Discard:     nats.DiscardOld,
		Description: "Invoice lifecycle events (finalized, cancelled)",
	}
}

func reorderConsumerConfig() *nats.ConsumerConfig {
	return &nats.ConsumerConfig{
		Durable:       ConsumerName,
		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       AckWait,
		MaxDeliver:    MaxDeliveryAttempts,
		FilterSubject: StreamSubjects,
		BackOff:       generateExponentialBackoff(MaxDeliveryAttempts),
		Description:   "Reorder worker consumer for invoice events",
	}
}

// EnsureStream creates the invoice stream, or updates MaxAge and subjects of an existing one
func (p *Provisioner) EnsureStream() error {
	want := invoiceStreamConfig()
	log := p.logger.WithFields(map[string]any{"stream": StreamName, "subjects": StreamSubjects})

	info, err := p.js.StreamInfo(StreamName)
	if errors.Is(err, nats.ErrStreamNotFound) {
		log.Info("Creating JetStream stream")
		if _, err := p.js.AddStream(want); err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	if !streamDrifted(info.Config, *want) {
		log.WithFields(map[string]any{
			"messages": info.State.Msgs,
			"bytes":    info.State.Bytes,
		}).Debug("JetStream stream up to date")
		return nil
	}

	// retention and storage cannot change on a live stream
	update := info.Config
	update.Subjects = want.Subjects
	update.MaxAge = want.MaxAge
	update.Description = want.Description
	if _, err := p.js.UpdateStream(&update); err != nil {
		return fmt.Errorf("failed to update stream: %w", err)
	}
	log.Info("JetStream stream updated")
	return nil
}

// EnsureConsumer creates the durable pull consumer for the reorder worker,
// or updates its delivery settings when they drifted
func (p *Provisioner) EnsureConsumer() error {
	want := reorderConsumerConfig()
	log := p.logger.WithFields(map[string]any{"stream": StreamName, "consumer": ConsumerName})

	info, err := p.js.ConsumerInfo(StreamName, ConsumerName)
	if errors.Is(err, nats.ErrConsumerNotFound) {
		log.Info("Creating JetStream consumer")
		if _, err := p.js.AddConsumer(StreamName, want); err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}

	if !consumerDrifted(info.Config, *want) {
		log.WithFields(map[string]any{
			"pending":     info.NumPending,
			"redelivered": info.NumRedelivered,
			"ack_pending": info.NumAckPending,
		}).Debug("JetStream consumer up to date")
		return nil
	}

	if _, err := p.js.UpdateConsumer(StreamName, want); err != nil {
		return fmt.Errorf("failed to update consumer: %w", err)
	}
	log.Info("JetStream consumer updated")
	return nil
}

func streamDrifted(have, want nats.StreamConfig) bool {
	if have.MaxAge != want.MaxAge || have.Description != want.Description {
		return true
	}
	return len(have.Subjects) != 1 || have.Subjects[0] != StreamSubjects
}

func consumerDrifted(have, want nats.ConsumerConfig) bool {
	if have.AckWait != want.AckWait || have.MaxDeliver != want.MaxDeliver {
		return true
	}
	if len(have.BackOff) != len(want.BackOff) {
		return true
	}
	for i := range have.BackOff {
		if have.BackOff[i] != want.BackOff[i] {
			return true
		}
	}
	return false
}

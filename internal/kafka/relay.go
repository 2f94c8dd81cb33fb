package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/ntentasd/colmena-telemetry/internal/metrics"
	"github.com/rs/zerolog"
)

// Relay consumes device readings from Kafka and hands them to a Writer.
type Relay struct {
	brokers []string
	topic   string
	group   string
	writer  Writer
	logger  zerolog.Logger

	// retryBackoff is the pause before rejoining after a failed session.
	retryBackoff time.Duration
	claimFailed  atomic.Bool
}

func NewRelay(brokers []string, topic, group string, writer Writer, logger zerolog.Logger) *Relay {
	return &Relay{
		brokers: brokers,
		topic:   topic,
		group:   group,
		writer:  writer,
		logger:  logger.With().Str("component", "relay").Str("topic", topic).Logger(),

		retryBackoff: 2 * time.Second,
	}
}

// Run joins the consumer group and consumes until ctx ends.
func (r *Relay) Run(ctx context.Context) error {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(r.brokers, r.group, cfg)
	if err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	defer group.Close()

	go func() {
		for err := range group.Errors() {
			r.logger.Warn().Err(err).Msg("consumer group error")
		}
	}()

	r.logger.Info().Strs("brokers", r.brokers).Str("group", r.group).Msg("relay started")

	for {
		// Consume returns on every rebalance, and when a claim gives up on a
		// message; the claim error itself goes to group.Errors().
		err := group.Consume(ctx, []string{r.topic}, r)
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return nil
		}
		if err != nil {
			r.logger.Error().Err(err).Msg("consume failed")
		}
		if ctx.Err() != nil {
			r.logger.Info().Msg("relay stopped")
			return nil
		}

		if err != nil || r.claimFailed.Swap(false) {
			r.logger.Warn().Dur("backoff", r.retryBackoff).Msg("rejoining after a failed session")
			select {
			case <-ctx.Done():
			case <-time.After(r.retryBackoff):
			}
		}
	}
}

func (r *Relay) Setup(s sarama.ConsumerGroupSession) error {
	r.logger.Debug().Interface("claims", s.Claims()).Msg("session started")
	return nil
}

func (r *Relay) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (r *Relay) ConsumeClaim(s sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-s.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			err := r.handle(s.Context(), msg)
			if err != nil && !errors.Is(err, ErrBadMessage) {
				// Ending the session before anything later is marked makes the
				// claim resume from this message.
				r.claimFailed.Store(true)
				return fmt.Errorf("partition %d offset %d: %w", msg.Partition, msg.Offset, err)
			}
			s.MarkMessage(msg, "")
		}
	}
}

func (r *Relay) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	reading, err := decodeReading(msg.Value, msg.Timestamp)
	if err != nil {
		metrics.RelayMessagesTotal.WithLabelValues("rejected").Inc()
		r.logger.Warn().Err(err).Int32("partition", msg.Partition).Int64("offset", msg.Offset).Msg("rejected message")
		return err
	}
	if reading.ID == "" {
		reading.ID = strconv.Itoa(int(msg.Partition)) + "-" + strconv.FormatInt(msg.Offset, 10)
	}

	if err := r.writer.WriteReading(ctx, reading); err != nil {
		metrics.RelayMessagesTotal.WithLabelValues("failed").Inc()
		r.logger.Error().Err(err).Str("id", reading.ID).Msg("failed to write reading")
		return err
	}

	metrics.RelayMessagesTotal.WithLabelValues("written").Inc()
	r.logger.Debug().
		Str("id", reading.ID).
		Float64("temperature", reading.Temperature).
		Float64("humidity", reading.Humidity).
		Msg("reading relayed")
	return nil
}

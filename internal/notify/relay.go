// Package notify fans messages out to the operator set.
package notify

import (
	"context"
	"fmt"

	"consultbot/internal/chat"
	"consultbot/internal/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Config controls the outbound rate of the relay.
type Config struct {
	RatePerSecond float64
	Burst         int
}

// Report summarizes a broadcast.
type Report struct {
	Delivered int
	Failed    int
}

// Relay delivers messages to operators. Each recipient is attempted
// independently and failures are never retried.
type Relay struct {
	sender     chat.Sender
	recipients []int64
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

func NewRelay(sender chat.Sender, recipients []int64, cfg Config, logger *zerolog.Logger) *Relay {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 30
	}
	return &Relay{
		sender:     sender,
		recipients: append([]int64(nil), recipients...),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		logger:     logger.With().Str("component", "relay").Logger(),
	}
}

// Broadcast sends msg to every operator. msg.To is ignored.
func (r *Relay) Broadcast(ctx context.Context, msg chat.Message) Report {
	var rep Report
	for _, id := range r.recipients {
		out := msg
		out.To = id
		if err := r.deliver(ctx, out); err != nil {
			rep.Failed++
			continue
		}
		rep.Delivered++
	}
	r.logger.Debug().Int("delivered", rep.Delivered).Int("failed", rep.Failed).Msg("broadcast finished")
	return rep
}

// Deliver sends msg to its own recipient and returns the delivery error.
func (r *Relay) Deliver(ctx context.Context, msg chat.Message) error {
	return r.deliver(ctx, msg)
}

func (r *Relay) deliver(ctx context.Context, msg chat.Message) error {
	if err := r.limiter.Wait(ctx); err != nil {
		r.logger.Warn().Err(err).Int64("recipient", msg.To).Msg("rate limiter wait aborted")
		metrics.IncNotification("failed")
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if err := r.sender.Send(ctx, msg); err != nil {
		ev := r.logger.Error().Err(err).Int64("recipient", msg.To)
		if de, ok := chat.AsDeliveryError(err); ok {
			ev = ev.Int("code", de.Code).Bool("permanent", de.Permanent())
		}
		ev.Msg("notification delivery failed")
		metrics.IncNotification("failed")
		return err
	}
	metrics.IncNotification("delivered")
	return nil
}

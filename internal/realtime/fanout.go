package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	shoppingdomain "shoplist-go/internal/domain/shopping"
	"shoplist-go/internal/metrics"
	"shoplist-go/pkg/logger"
)

// Event is the wire envelope sent to WebSocket clients.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Relay carries serialized events between server instances.
type Relay interface {
	Publish(ctx context.Context, message []byte) error
	// Subscribe blocks, calling deliver for every relayed message, until ctx
	// is done or the subscription fails.
	Subscribe(ctx context.Context, deliver func([]byte)) error
	Close() error
}

const defaultResubscribeDelay = time.Second

// Fanout implements shoppingdomain.Publisher. Without a relay events go
// straight to the local hub; with one they take a round trip through it so
// every instance, this one included, delivers them. While the relay
// subscription is down local clients are served directly.
type Fanout struct {
	hub              *Hub
	relay            Relay
	log              logger.Logger
	resubscribeDelay time.Duration
	subscribed       atomic.Bool
}

type FanoutOption func(*Fanout)

// WithResubscribeDelay sets the pause between relay subscription attempts.
func WithResubscribeDelay(d time.Duration) FanoutOption {
	return func(f *Fanout) {
		if d > 0 {
			f.resubscribeDelay = d
		}
	}
}

func NewFanout(hub *Hub, relay Relay, log logger.Logger, opts ...FanoutOption) *Fanout {
	f := &Fanout{hub: hub, relay: relay, log: log, resubscribeDelay: defaultResubscribeDelay}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Subscribed reports whether relayed events currently reach the local hub.
func (f *Fanout) Subscribed() bool {
	return f.subscribed.Load()
}

func (f *Fanout) Publish(ctx context.Context, topic shoppingdomain.Topic, payload any) error {
	message, err := Encode(topic, payload)
	if err != nil {
		return err
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(topic)).Inc()

	if f.relay == nil {
		f.hub.Broadcast(message)
		return nil
	}

	subscribed := f.subscribed.Load()
	if !subscribed {
		f.hub.Broadcast(message)
	}
	if err := f.relay.Publish(ctx, message); err != nil {
		if subscribed {
			// Local clients still get the update.
			f.hub.Broadcast(message)
		}
		return fmt.Errorf("relay publish: %w", err)
	}
	return nil
}

// Run forwards relayed events into the local hub until ctx is done. A failed
// subscription is retried after the resubscribe delay.
func (f *Fanout) Run(ctx context.Context) error {
	if f.relay == nil {
		<-ctx.Done()
		return nil
	}

	for {
		f.log.Info("realtime.relay: subscribing")
		f.subscribed.Store(true)
		err := f.relay.Subscribe(ctx, func(message []byte) {
			f.hub.Broadcast(message)
		})
		f.subscribed.Store(false)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errSubscriptionClosed
		}
		f.log.Error("realtime.relay: subscription lost, broadcasting locally", "error", err, "retry_in", f.resubscribeDelay.String())

		timer := time.NewTimer(f.resubscribeDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (f *Fanout) Close() error {
	f.hub.Close()
	if f.relay == nil {
		return nil
	}
	return f.relay.Close()
}

func Encode(topic shoppingdomain.Topic, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", topic, err)
	}
	return json.Marshal(Event{Event: string(topic), Data: data})
}

package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/becomap/becomap-go/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber sharing a NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeSiteRefresh delivers every site refresh to this instance.
// The consumer is ephemeral: each mapsim instance must see each
// refresh to nudge its own bridge sessions.
func (s *Subscriber) SubscribeSiteRefresh(ctx context.Context, handler func(ctx context.Context, ref *domain.SiteRefresh) error) error {
	sub, err := s.js.Subscribe("venue.refresh.>", func(msg *nats.Msg) {
		var ref domain.SiteRefresh
		if err := json.Unmarshal(msg.Data, &ref); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &ref); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeSessionEvents consumes session telemetry exactly once
// across instances via a shared durable.
func (s *Subscriber) SubscribeSessionEvents(ctx context.Context, handler func(ctx context.Context, ev *domain.SessionEvent) error) error {
	sub, err := s.js.Subscribe("venue.session.>", func(msg *nats.Msg) {
		var ev domain.SessionEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &ev); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("session-analytics"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus bridges in-process booking events onto NATS so the
// notification dispatcher and video provisioner collaborators can consume
// them out of process. Delivery is at-least-once; the envelope carries a
// message id for consumer-side deduplication.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/mimir_hire/internal/events"
	"github.com/friendsincode/mimir_hire/internal/telemetry"
)

// SubjectPrefix is the root of every published subject; the full subject is
// SubjectPrefix + "." + event type (e.g. "mimir.events.booking.created").
const SubjectPrefix = "mimir.events"

// Relay forwards bus events to NATS. With no NATS URL configured it runs in
// log-only mode, so single-node deployments work without a broker.
type Relay struct {
	conn   *nats.Conn
	bus    *events.Bus
	logger zerolog.Logger
	nodeID string
}

// envelope is the wire format for relayed events.
type envelope struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

// NewRelay connects to NATS and prepares the relay. An empty natsURL yields
// a log-only relay rather than an error.
func NewRelay(natsURL string, bus *events.Bus, logger zerolog.Logger) (*Relay, error) {
	relay := &Relay{
		bus:    bus,
		logger: logger.With().Str("component", "event_relay").Logger(),
		nodeID: nodeID(),
	}

	if natsURL == "" {
		relay.logger.Warn().Msg("NATS not configured, booking events will only be logged")
		return relay, nil
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("mimirhire-event-relay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	relay.conn = conn
	relay.logger.Info().Str("url", natsURL).Msg("connected to NATS")
	return relay, nil
}

// Start subscribes to every booking event type and forwards until the
// context is cancelled.
func (r *Relay) Start(ctx context.Context) {
	for _, eventType := range events.Types() {
		sub := r.bus.Subscribe(eventType)
		go r.forward(ctx, eventType, sub)
	}
}

func (r *Relay) forward(ctx context.Context, eventType events.EventType, sub events.Subscriber) {
	for {
		select {
		case <-ctx.Done():
			r.bus.Unsubscribe(eventType, sub)
			return
		case payload, ok := <-sub:
			if !ok {
				return
			}
			r.publish(eventType, payload)
		}
	}
}

func (r *Relay) publish(eventType events.EventType, payload events.Payload) {
	msg := envelope{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    r.nodeID,
		MessageID: uuid.NewString(),
	}

	if r.conn == nil {
		r.logger.Info().
			Str("event_type", string(eventType)).
			Interface("payload", payload).
			Msg("booking event (log-only relay)")
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("marshal event")
		return
	}

	subject := fmt.Sprintf("%s.%s", SubjectPrefix, eventType)
	if err := r.conn.Publish(subject, data); err != nil {
		// NATS buffers through reconnects; a hard publish failure is
		// logged and the event is dropped from this relay. Consumers
		// rebuild state from the ledger, which stays authoritative.
		r.logger.Error().Err(err).Str("subject", subject).Msg("publish event")
		return
	}

	telemetry.EventRelayPublishedTotal.WithLabelValues(string(eventType)).Inc()
	r.logger.Debug().
		Str("subject", subject).
		Str("message_id", msg.MessageID).
		Msg("event relayed")
}

// Close drains the NATS connection.
func (r *Relay) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Drain()
}

func nodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return uuid.NewString()
	}
	return host + "-" + uuid.NewString()[:8]
}

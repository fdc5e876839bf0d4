// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/curatus/internal/metrics"
	"github.com/tomtom215/curatus/internal/recerr"
)

const (
	maxReconnects   = 60
	reconnectWait   = 2 * time.Second
	publishRetries  = 3
	publishRetryGap = 100 * time.Millisecond

	busBreakerFailures = 5
	busBreakerOpen     = 30 * time.Second
)

// Publisher publishes job events over JetStream with circuit breaker
// protection. The job id rides as Nats-Msg-Id so re-enqueued jobs
// deduplicate inside the stream's duplicate window.
type Publisher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[interface{}]
	mu        sync.RWMutex
	closed    bool
}

// NewPublisher creates a JetStream publisher bound to an existing
// stream (EnsureStream must have run).
func NewPublisher(url string) (*Publisher, error) {
	logger := newLogAdapter()

	cfg := wmNats.PublisherConfig{
		URL:       url,
		Marshaler: &wmNats.NATSMarshaler{},
		NatsOptions: []natsgo.Option{
			natsgo.RetryOnFailedConnect(true),
			natsgo.MaxReconnects(maxReconnects),
			natsgo.ReconnectWait(reconnectWait),
		},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(publishRetries),
				natsgo.RetryWait(publishRetryGap),
			},
		},
	}

	pub, err := wmNats.NewPublisher(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create publisher: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:    "job-bus",
		Timeout: busBreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= busBreakerFailures
		},
	})

	return &Publisher{publisher: pub, breaker: breaker}, nil
}

// PublishJob validates, serializes and publishes one job event.
func (p *Publisher) PublishJob(_ context.Context, event *JobEvent) error {
	const op = "events.PublishJob"

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return recerr.Internal(op, fmt.Errorf("publisher is closed"))
	}
	p.mu.RUnlock()

	msg, err := event.Message()
	if err != nil {
		return err
	}
	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.publisher.Publish(event.Topic, msg)
	})
	if err != nil {
		return recerr.Transient(op, err)
	}
	metrics.RecordJobPublished(event.Topic)
	return nil
}

// Raw exposes the underlying watermill publisher. The router's poison
// queue publishes undecorated messages through it.
func (p *Publisher) Raw() message.Publisher {
	return p.publisher
}

// Close shuts down the publisher. Safe to call twice.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// NewSubscriber creates a durable queue subscriber bound to the job
// stream. Workers in the same queue group load-balance jobs.
func NewSubscriber(url, durableName, queueGroup string) (message.Subscriber, error) {
	logger := newLogAdapter()

	cfg := wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: queueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   2 * time.Minute,
		CloseTimeout:     30 * time.Second,
		NatsOptions: []natsgo.Option{
			natsgo.RetryOnFailedConnect(true),
			natsgo.MaxReconnects(maxReconnects),
			natsgo.ReconnectWait(reconnectWait),
		},
		Unmarshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			DurablePrefix: durableName,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.BindStream(StreamName),
				natsgo.MaxDeliver(5),
				natsgo.AckWait(2 * time.Minute),
				natsgo.DeliverNew(),
			},
		},
	}

	sub, err := wmNats.NewSubscriber(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create subscriber: %w", err)
	}
	return sub, nil
}

// Package events publishes pipeline lifecycle events (stage started,
// stage completed, stage failed — SPEC_FULL.md §10) to NATS. Adapted from
// the teacher's pkg/natsutil: same JSON-over-NATS publish helper with
// OTel trace-context propagation in message headers. Subscribe/Request
// are dropped — nothing in this pipeline answers a request, it only
// announces what already happened.
package events

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// StageEvent is published once per stage transition.
type StageEvent struct {
	Stage  string `json:"stage"`
	Status string `json:"status"` // "started", "completed", "failed"
	Detail string `json:"detail,omitempty"`
}

const Subject = "pipeline.stage"

type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publisher publishes StageEvents to a subject.
type Publisher struct {
	nc *nats.Conn
}

func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// Publish serializes the event as JSON and publishes it, injecting the
// caller's trace context into NATS message headers.
func (p *Publisher) Publish(ctx context.Context, ev StageEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: Subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return p.nc.PublishMsg(msg)
}

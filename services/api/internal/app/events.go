package app

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/events"
	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/obs"
)

var tracer trace.Tracer = otel.Tracer(obs.TracerName)

// EventPublisher sends domain events to the message broker.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type noopPublisher struct{}

func (noopPublisher) PublishJSON(context.Context, string, any) error { return nil }

// publishAll sends messages after the state change that produced them has
// committed. Failures are logged; the state change stands.
func publishAll(ctx context.Context, pub EventPublisher, log logrus.FieldLogger, msgs []events.Message) {
	for _, m := range msgs {
		if err := pub.PublishJSON(ctx, m.Key, m.Payload); err != nil {
			log.WithError(err).WithField("routing_key", m.Key).Warn("publish event failed")
		}
	}
}

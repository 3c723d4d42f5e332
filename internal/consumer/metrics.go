package consumer

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/activities/internal/events"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities_service",
		Subsystem: "consumer",
		Name:      "messages_processed_total",
		Help:      "Number of Kafka messages successfully handled.",
	}, []string{"topic", "event_type"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities_service",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Number of handler errors grouped by topic and event type.",
	}, []string{"topic", "event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities_service",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Records skipped as undecodable, by topic and by the part that was invalid.",
	}, []string{"topic", "reason"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "activities_service",
		Subsystem: "consumer",
		Name:      "last_message_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successfully processed message per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, decodeErrorCounter, lastMessageGauge)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

// Values of the decode_errors_total reason label.
const (
	decodeReasonHeaders = "headers"
	decodeReasonFraming = "framing"
	decodeReasonPayload = "payload"
)

func recordDecodeError(topic string, err error) {
	reason := decodeReasonPayload
	switch {
	case errors.Is(err, errMissingEventType):
		reason = decodeReasonHeaders
	case errors.Is(err, events.ErrInvalidFrame):
		reason = decodeReasonFraming
	}
	decodeErrorCounter.WithLabelValues(topic, reason).Inc()
}

package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "taskorbit"

// Metrics holds the instruments recorded by the chat pipeline.
type Metrics struct {
	TurnsStarted   metric.Int64Counter
	TurnsCompleted metric.Int64Counter
	TurnsFailed    metric.Int64Counter
	ToolCalls      metric.Int64Counter
	ModelCalls     metric.Int64Counter
	TokensIn       metric.Int64Counter
	TokensOut      metric.Int64Counter
	TurnDuration   metric.Float64Histogram
}

// NewMetrics creates every instrument on the global meter. The first
// registration error aborts construction.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	var err error
	counter := func(name, desc string) metric.Int64Counter {
		c, cErr := meter.Int64Counter(name, metric.WithDescription(desc))
		if err == nil {
			err = cErr
		}
		return c
	}
	histogram := func(name, desc string) metric.Float64Histogram {
		h, hErr := meter.Float64Histogram(name, metric.WithDescription(desc))
		if err == nil {
			err = hErr
		}
		return h
	}

	m := &Metrics{
		TurnsStarted:   counter("taskorbit.turns.started", "Chat turns started"),
		TurnsCompleted: counter("taskorbit.turns.completed", "Chat turns finished with an assistant reply"),
		TurnsFailed:    counter("taskorbit.turns.failed", "Chat turns aborted by an error"),
		ToolCalls:      counter("taskorbit.toolcalls", "Tool executions requested by the model"),
		ModelCalls:     counter("taskorbit.model.calls", "Model invocations"),
		TokensIn:       counter("taskorbit.model.tokens_in", "Prompt tokens consumed"),
		TokensOut:      counter("taskorbit.model.tokens_out", "Completion tokens produced"),
		TurnDuration:   histogram("taskorbit.turn.duration_seconds", "Wall clock duration of a chat turn"),
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

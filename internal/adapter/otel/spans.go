package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "taskorbit"

func start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartTurnSpan opens the root span for one chat turn. Model and tool call
// spans nest under it.
func StartTurnSpan(ctx context.Context, conversationID, userID string) (context.Context, trace.Span) {
	return start(ctx, "turn",
		attribute.String("conversation.id", conversationID),
		attribute.String("user.id", userID),
	)
}

// StartModelCallSpan covers a single model invocation round within a turn.
func StartModelCallSpan(ctx context.Context, model string, round int) (context.Context, trace.Span) {
	return start(ctx, "modelcall",
		attribute.String("model.name", model),
		attribute.Int("turn.round", round),
	)
}

// StartToolCallSpan covers one tool execution within a turn.
func StartToolCallSpan(ctx context.Context, callID, tool string) (context.Context, trace.Span) {
	return start(ctx, "toolcall",
		attribute.String("toolcall.id", callID),
		attribute.String("toolcall.tool", tool),
	)
}

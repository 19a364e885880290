// Package nats implements the message queue port using NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/TaskOrbit/internal/logger"
	"github.com/Strob0t/TaskOrbit/internal/port/messagequeue"
)

const streamName = "TASKORBIT"

const (
	headerRequestID  = "Request-Id"
	headerRetryCount = "Retry-Count"

	// maxRetries bounds handler redeliveries before a message moves to
	// its dead-letter subject.
	maxRetries = 3
)

// Queue implements messagequeue.Queue using NATS JetStream.
type Queue struct {
	nc *nats.Conn
	js jetstream.JetStream
}

var _ messagequeue.Queue = (*Queue)(nil)

// Connect establishes a connection to NATS and ensures the JetStream stream exists.
func Connect(ctx context.Context, url string) (*Queue, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	// Ensure the stream exists with subjects matching our topic patterns.
	// Dead-letter subjects (<subject>.dlq) fall under the same patterns,
	// so poison messages stay inspectable in the same stream.
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"chat.>", "tasks.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Queue{nc: nc, js: js}, nil
}

// Publish sends a message to the given subject. A request ID present in
// ctx travels as a message header so consumers log under the same ID.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	if reqID := logger.RequestID(ctx); reqID != "" {
		msg.Header.Set(headerRequestID, reqID)
	}
	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject.
//
// Payloads are validated against the subject's schema before the handler
// runs; messages that fail validation go straight to the dead-letter
// subject. When the handler returns an error the message is requeued with
// an incremented retry count until maxRetries, then dead-lettered.
func (q *Queue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		q.dispatch(msg, handler)
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

// dispatch validates and handles a single message, requeueing on handler
// failure and dead-lettering poison messages.
func (q *Queue) dispatch(msg jetstream.Msg, handler messagequeue.Handler) {
	subject := msg.Subject()

	// Restore the publisher's request ID so logs on both sides correlate.
	ctx := context.Background()
	if reqID := msg.Headers().Get(headerRequestID); reqID != "" {
		ctx = logger.WithRequestID(ctx, reqID)
	}

	if err := messagequeue.Validate(subject, msg.Data()); err != nil {
		slog.Error("message failed validation", "subject", subject, "error", err)
		q.moveToDLQ(ctx, msg)
		return
	}

	if err := handler(ctx, subject, msg.Data()); err != nil {
		retries := retryCount(msg.Headers())
		if retries >= maxRetries {
			slog.Error("message handler failed, retries exhausted",
				"subject", subject, "retries", retries, "error", err)
			q.moveToDLQ(ctx, msg)
			return
		}
		slog.Warn("message handler failed, requeueing",
			"subject", subject, "retry", retries+1, "error", err)
		q.requeue(ctx, msg, retries+1)
		return
	}

	if err := msg.Ack(); err != nil {
		slog.Error("nats ack failed", "subject", subject, "error", err)
	}
}

// requeue republishes the message with an incremented retry count and
// acks the original. Redelivery via Nak cannot carry the count, so the
// message makes a fresh trip through the stream instead.
func (q *Queue) requeue(ctx context.Context, msg jetstream.Msg, retries int) {
	next := &nats.Msg{
		Subject: msg.Subject(),
		Data:    msg.Data(),
		Header:  cloneHeader(msg.Headers()),
	}
	next.Header.Set(headerRetryCount, strconv.Itoa(retries))

	if _, err := q.js.PublishMsg(ctx, next); err != nil {
		slog.Error("nats requeue failed", "subject", msg.Subject(), "error", err)
		// Leave the original for JetStream to redeliver.
		if nakErr := msg.Nak(); nakErr != nil {
			slog.Error("nats nak failed", "error", nakErr)
		}
		return
	}
	if err := msg.Ack(); err != nil {
		slog.Error("nats ack failed", "subject", msg.Subject(), "error", err)
	}
}

// moveToDLQ forwards the message to its dead-letter subject and acks the
// original so it is not redelivered.
func (q *Queue) moveToDLQ(ctx context.Context, msg jetstream.Msg) {
	dlqSubject := msg.Subject() + ".dlq"
	next := &nats.Msg{
		Subject: dlqSubject,
		Data:    msg.Data(),
		Header:  cloneHeader(msg.Headers()),
	}

	if _, err := q.js.PublishMsg(ctx, next); err != nil {
		slog.Error("nats dlq publish failed", "subject", dlqSubject, "error", err)
		if nakErr := msg.Nak(); nakErr != nil {
			slog.Error("nats nak failed", "error", nakErr)
		}
		return
	}
	slog.Warn("message moved to dead-letter subject",
		"subject", msg.Subject(), "dlq", dlqSubject)
	if err := msg.Ack(); err != nil {
		slog.Error("nats ack failed", "subject", dlqSubject, "error", err)
	}
}

// KeyValue returns the named JetStream key-value bucket, creating it with
// the given TTL if it does not exist.
func (q *Queue) KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := q.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("nats keyvalue bucket %s: %w", bucket, err)
	}
	return kv, nil
}

// Drain processes in-flight messages on all subscriptions, then closes
// the connection.
func (q *Queue) Drain() error {
	if err := q.nc.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

// Close shuts down the NATS connection immediately.
func (q *Queue) Close() error {
	q.nc.Close()
	return nil
}

// IsConnected reports whether the NATS connection is currently up.
func (q *Queue) IsConnected() bool {
	return q.nc != nil && q.nc.IsConnected()
}

func retryCount(h nats.Header) int {
	n, err := strconv.Atoi(h.Get(headerRetryCount))
	if err != nil {
		return 0
	}
	return n
}

func cloneHeader(h nats.Header) nats.Header {
	out := nats.Header{}
	for k, values := range h {
		for _, v := range values {
			out.Add(k, v)
		}
	}
	return out
}

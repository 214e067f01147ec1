package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/footwear-qc/internal/infrastructure/resilience"
)

const workerQueueGroup = "workers"

type Queue struct {
	conn           *nats.Conn
	subject        string
	executor       *resilience.Executor
	handlerTimeout time.Duration
	onDelivery     func(lag time.Duration)
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	// HandlerTimeout bounds a single analysis run; zero means no limit.
	HandlerTimeout time.Duration
	// OnDelivery observes the time between publish and delivery.
	OnDelivery func(lag time.Duration)
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("footwear-qc"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", errString(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	onDelivery := options.OnDelivery
	if onDelivery == nil {
		onDelivery = func(time.Duration) {}
	}
	return &Queue{
		conn:           conn,
		subject:        subject,
		executor:       options.ResilienceExecutor,
		handlerTimeout: options.HandlerTimeout,
		onDelivery:     onDelivery,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishInspectionCreated(ctx context.Context, inspectionID string) error {
	data, err := encodeAnalysisRequest(inspectionID, time.Now())
	if err != nil {
		return err
	}

	err = q.executor.Execute(ctx, "nats.publish", func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	if err != nil {
		return temporaryPublishError(err)
	}
	return nil
}

// SubscribeInspectionCreated blocks until ctx is done, then drains in-flight
// messages before returning.
func (q *Queue) SubscribeInspectionCreated(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		req, err := decodeAnalysisRequest(msg.Data)
		if err != nil {
			slog.Error("nats_message_rejected", "subject", msg.Subject, "error", err.Error())
			return
		}
		if !req.PublishedAt.IsZero() {
			q.onDelivery(time.Since(req.PublishedAt))
		}

		handlerCtx, cancel := q.handlerContext(ctx)
		defer cancel()
		if err := handler(handlerCtx, req.InspectionID); err != nil {
			slog.Error("worker_handler_failed", "inspection_id", req.InspectionID, "error", err.Error())
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// handlerContext detaches from shutdown so a drained message finishes its run.
func (q *Queue) handlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(parent)
	if q.handlerTimeout > 0 {
		return context.WithTimeout(base, q.handlerTimeout)
	}
	return context.WithCancel(base)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

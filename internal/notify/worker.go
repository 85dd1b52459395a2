package notify

import (
	"context"
	"log/slog"
)

// Queue decouples the decision path from delivery latency: Notify enqueues
// and returns immediately, a Worker drains the inbox into the real notifier.
// A full inbox drops the event rather than stalling an admin decision.
type Queue struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewQueue(size int, logger *slog.Logger) *Queue {
	if size < 1 {
		size = 64
	}
	return &Queue{inbox: make(chan Event, size), logger: logger}
}

func (q *Queue) Notify(ctx context.Context, event Event) error {
	select {
	case q.inbox <- event:
		return nil
	default:
		q.logger.WarnContext(ctx, "notification inbox full, dropping event",
			slog.String("user_id", event.UserID),
			slog.String("channel", event.Channel))
		return nil
	}
}

// Worker consumes queued events and forwards them to the delivery notifier.
type Worker struct {
	queue    *Queue
	delivery Notifier
	logger   *slog.Logger
}

func NewWorker(queue *Queue, delivery Notifier, logger *slog.Logger) *Worker {
	return &Worker{queue: queue, delivery: delivery, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.queue.inbox:
			if err := w.delivery.Notify(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "notification delivery failed",
					slog.String("user_id", event.UserID),
					slog.String("channel", event.Channel),
					slog.Any("error", err))
			}
		}
	}
}

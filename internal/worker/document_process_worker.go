package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"edurag/internal/app"
	"edurag/internal/model"
	"edurag/internal/platform/rabbitmq"
)

// DocumentProcessor runs the pipeline for a stored document.
type DocumentProcessor interface {
	ProcessStored(ctx context.Context, documentID uint) (app.ProcessResult, error)
}

type ackAction int

const (
	ack ackAction = iota
	requeue
	discard
)

// DocumentProcessWorker consumes process jobs on prefetch goroutines, so up to
// prefetch documents are processed at once.
type DocumentProcessWorker struct {
	conn      *amqp.Connection
	processor DocumentProcessor
	queueName string
	prefetch  int
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDocumentProcessWorker(conn *amqp.Connection, processor DocumentProcessor, queueName string, prefetch int, logger *slog.Logger) *DocumentProcessWorker {
	if prefetch <= 0 {
		prefetch = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentProcessWorker{
		conn:      conn,
		processor: processor,
		queueName: queueName,
		prefetch:  prefetch,
		logger:    logger.With("component", "document_process_worker", "queue", queueName),
	}
}

func (w *DocumentProcessWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}
	if err := ch.Qos(w.prefetch, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()
		w.consume(workerCtx, deliveries)
	}()

	w.logger.Info("worker started", "prefetch", w.prefetch)
	return nil
}

// consume handles deliveries on prefetch goroutines and returns once all of
// them have stopped.
func (w *DocumentProcessWorker) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	var wg sync.WaitGroup
	for range w.prefetch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					switch w.handle(ctx, d.Body, d.Redelivered) {
					case ack:
						_ = d.Ack(false)
					case requeue:
						_ = d.Nack(false, true)
					case discard:
						_ = d.Nack(false, false)
					}
				}
			}
		}()
	}
	wg.Wait()
	if ctx.Err() == nil {
		w.logger.Warn("delivery channel closed")
	}
}

// handle processes one job body. A failed job is retried once.
func (w *DocumentProcessWorker) handle(ctx context.Context, body []byte, redelivered bool) ackAction {
	var job model.ProcessJob
	if err := json.Unmarshal(body, &job); err != nil || job.DocumentID == 0 {
		w.logger.Error("decode process job failed", "error", err, "body_size", len(body))
		return discard
	}
	logger := w.logger.With("job_id", job.JobID, "document_id", job.DocumentID)

	result, err := w.processor.ProcessStored(ctx, job.DocumentID)
	switch {
	case err == nil:
		logger.Info("process job done",
			"chunks", result.ChunksProcessed,
			"partial_failure", result.PartialFailure,
		)
		return ack
	case errors.Is(err, app.ErrDocumentNotFound):
		logger.Warn("document gone, dropping job")
		return ack
	case ctx.Err() != nil:
		return requeue
	case redelivered:
		logger.Error("process job failed again, discarding", "error", err)
		return discard
	default:
		logger.Warn("process job failed, requeueing", "error", err)
		return requeue
	}
}

func (w *DocumentProcessWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

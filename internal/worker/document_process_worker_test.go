package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	"edurag/internal/app"
)

type fakeProcessor struct {
	calls []uint
	err   error
}

func (f *fakeProcessor) ProcessStored(_ context.Context, id uint) (app.ProcessResult, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return app.ProcessResult{}, f.err
	}
	return app.ProcessResult{ChunksProcessed: 3, EmbeddedChunks: 3}, nil
}

func newTestWorker(p DocumentProcessor) *DocumentProcessWorker {
	return NewDocumentProcessWorker(nil, p, "rag.document.process", 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandle(t *testing.T) {
	body := []byte(`{"job_id":"j-1","document_id":7,"requested_at":"2026-01-02T03:04:05Z"}`)

	tests := []struct {
		name        string
		body        []byte
		err         error
		redelivered bool
		want        ackAction
		wantCalls   int
	}{
		{name: "success", body: body, want: ack, wantCalls: 1},
		{name: "malformed body", body: []byte(`{`), want: discard},
		{name: "missing document id", body: []byte(`{"job_id":"x"}`), want: discard},
		{name: "document deleted", body: body, err: app.ErrDocumentNotFound, want: ack, wantCalls: 1},
		{name: "first failure", body: body, err: errors.New("db down"), want: requeue, wantCalls: 1},
		{name: "second failure", body: body, err: errors.New("db down"), redelivered: true, want: discard, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProcessor{err: tt.err}
			got := newTestWorker(p).handle(context.Background(), tt.body, tt.redelivered)
			assert.Equal(t, tt.want, got)
			assert.Len(t, p.calls, tt.wantCalls)
			if tt.wantCalls > 0 {
				assert.Equal(t, uint(7), p.calls[0])
			}
		})
	}
}

func TestHandleRequeuesOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakeProcessor{err: context.Canceled}

	got := newTestWorker(p).handle(ctx, []byte(`{"document_id":1}`), true)
	assert.Equal(t, requeue, got)
}

func TestNewDocumentProcessWorkerDefaults(t *testing.T) {
	w := newTestWorker(&fakeProcessor{})
	assert.Equal(t, 1, w.prefetch)
}

type slowProcessor struct {
	mu          sync.Mutex
	delay       time.Duration
	inFlight    int
	maxInFlight int
}

func (p *slowProcessor) ProcessStored(_ context.Context, _ uint) (app.ProcessResult, error) {
	p.mu.Lock()
	p.inFlight++
	p.maxInFlight = max(p.maxInFlight, p.inFlight)
	p.mu.Unlock()

	time.Sleep(p.delay)

	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
	return app.ProcessResult{}, nil
}

type recordingAcker struct {
	mu    sync.Mutex
	acks  []uint64
	nacks []uint64
}

func (a *recordingAcker) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, tag)
	return nil
}

func (a *recordingAcker) Nack(tag uint64, _ bool, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks = append(a.nacks, tag)
	return nil
}

func (a *recordingAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestConsumeProcessesPrefetchJobsConcurrently(t *testing.T) {
	p := &slowProcessor{delay: 50 * time.Millisecond}
	w := NewDocumentProcessWorker(nil, p, "rag.document.process", 2, slog.New(slog.NewTextHandler(io.Discard, nil)))
	acker := &recordingAcker{}

	deliveries := make(chan amqp.Delivery, 4)
	for i := 1; i <= 4; i++ {
		deliveries <- amqp.Delivery{
			Acknowledger: acker,
			DeliveryTag:  uint64(i),
			Body:         []byte(fmt.Sprintf(`{"job_id":"j-%d","document_id":%d}`, i, i)),
		}
	}
	close(deliveries)

	w.consume(context.Background(), deliveries)

	assert.Equal(t, 2, p.maxInFlight)
	assert.ElementsMatch(t, []uint64{1, 2, 3, 4}, acker.acks)
	assert.Empty(t, acker.nacks)
}

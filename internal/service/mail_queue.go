package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

const (
	DefaultMailWorkers   = 2
	DefaultMailQueueSize = 100

	sendTimeout = 30 * time.Second
)

var (
	ErrMailQueueFull   = errors.New("mail queue full")
	ErrMailQueueClosed = errors.New("mail queue closed")
)

// MailDispatcher hands an email off for delivery without waiting for it
type MailDispatcher interface {
	Enqueue(m *ConfirmationMail) error
}

// MailQueue delivers confirmation emails on a fixed pool of workers.
// Delivery results are only logged, nothing is retried.
type MailQueue struct {
	mailer  Mailer
	jobs    chan *ConfirmationMail
	workers int
	pending atomic.Int32

	mu     sync.RWMutex
	closed bool
	wg     conc.WaitGroup
}

// NewMailQueue initializes a new mail queue that limits the
// max amount of emails that can wait for a worker at once
func NewMailQueue(mailer Mailer, workers, size int) *MailQueue {
	if workers <= 0 {
		workers = DefaultMailWorkers
	}
	if size <= 0 {
		size = DefaultMailQueueSize
	}

	zap.L().Debug("Initializing mail queue",
		zap.Int("workers", workers),
		zap.Int("max_queued", size),
		zap.String("provider", mailer.Provider()))

	return &MailQueue{
		mailer:  mailer,
		jobs:    make(chan *ConfirmationMail, size),
		workers: workers,
	}
}

func (q *MailQueue) StartWorkerPool() {
	for i := 0; i < q.workers; i++ {
		q.wg.Go(q.worker)
	}
}

func (q *MailQueue) worker() {
	for m := range q.jobs {
		q.deliver(m)
		q.pending.Add(-1)
	}
}

func (q *MailQueue) deliver(m *ConfirmationMail) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("Mail worker recovered from panic",
				zap.Any("panic", r),
				zap.String("request_id", m.RequestID),
				zap.String("record_id", m.RecordID))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	zap.L().Debug("Sending confirmation email",
		zap.String("request_id", m.RequestID),
		zap.String("record_id", m.RecordID))

	if err := q.mailer.SendConfirmation(ctx, m); err != nil {
		zap.L().Error("Failed to send confirmation email",
			zap.Error(err),
			zap.String("provider", q.mailer.Provider()),
			zap.String("request_id", m.RequestID),
			zap.String("record_id", m.RecordID))
		return
	}

	zap.L().Info("Confirmation email sent",
		zap.String("provider", q.mailer.Provider()),
		zap.String("request_id", m.RequestID),
		zap.String("record_id", m.RecordID))
}

// Enqueue never blocks. A full or closed queue drops the email and
// returns an error for the caller to log.
func (q *MailQueue) Enqueue(m *ConfirmationMail) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrMailQueueClosed
	}

	q.pending.Add(1)
	select {
	case q.jobs <- m:
		return nil
	default:
		q.pending.Add(-1)
		return ErrMailQueueFull
	}
}

// Pending returns the number of emails queued or being sent
func (q *MailQueue) Pending() int32 {
	return q.pending.Load()
}

// Shutdown stops accepting emails and waits for the queued ones to be
// delivered or for ctx to end
func (q *MailQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		zap.L().Warn("Mail queue shutdown timed out", zap.Int32("pending", q.pending.Load()))
		return ctx.Err()
	}
}

package bootstrap

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sergey0107/verification-products/internal/queue"
	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
	"github.com/Sergey0107/verification-products/internal/workerproc"
)

const (
	inlineRedeliveryDelay = 5 * time.Second
	inlineMaxRedeliveries = 3
)

// inlineQueue runs jobs in-process, for local runs without SQS.
// Retryable failures are re-dispatched after their backoff. Kept messages are redelivered
// after a short delay, a bounded number of times, the way SQS redelivers after the
// visibility timeout.
type inlineQueue struct {
	dispatcher *workerproc.Dispatcher
	sleep      func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newInlineQueue() *inlineQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &inlineQueue{ctx: ctx, cancel: cancel, sleep: sleepContext}
}

func (q *inlineQueue) setDispatcher(d *workerproc.Dispatcher) {
	q.mu.Lock()
	q.dispatcher = d
	q.mu.Unlock()
}

func (q *inlineQueue) Send(ctx context.Context, msg queue.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	q.mu.Lock()
	d := q.dispatcher
	q.mu.Unlock()
	if d == nil {
		return errors.New("inline queue has no dispatcher")
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.run(d, msg)
	}()
	return nil
}

func (q *inlineQueue) run(d *workerproc.Dispatcher, msg queue.Message) {
	redeliveries := 0
	for {
		err := d.Dispatch(q.ctx, msg)
		decision := workerproc.Decide(err)
		delay := decision.Backoff
		switch decision.Action {
		case workerproc.ActionDelete:
			return
		case workerproc.ActionKeep:
			if redeliveries >= inlineMaxRedeliveries {
				telemetry.Error("inline.job.dropped", map[string]any{
					"job_id": msg.JobID,
					"kind":   msg.Kind,
					"error":  err.Error(),
				})
				return
			}
			redeliveries++
			delay = inlineRedeliveryDelay
		}
		if q.sleep(q.ctx, delay) != nil {
			return
		}
	}
}

// Wait blocks until running jobs finish. On ctx expiry pending retries are abandoned.
func (q *inlineQueue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

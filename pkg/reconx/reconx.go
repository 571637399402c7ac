// Package reconx re-runs cascades that failed part-way. Services enqueue a
// task naming the cascade and its subject; a Runner hands each task to the
// registered handler, which must be safe to run more than once.
package reconx

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/logx"
)

// Handler re-runs one cascade. Returning an error schedules a retry.
type Handler func(ctx context.Context, task *Task) error

// Enqueuer is what services depend on.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind Kind, subject ...string) error
}

// Queue is the storage backend of the runner.
type Queue interface {
	Push(ctx context.Context, task Task) error
	// Pop blocks up to timeout and returns nil when nothing is ready. The
	// returned task has its attempt counter already incremented.
	Pop(ctx context.Context, timeout time.Duration) (*Task, error)
	Ack(ctx context.Context, id string) error
	Retry(ctx context.Context, task Task, delay time.Duration) error
	// PromoteDue moves delayed tasks whose time has come onto the ready list.
	PromoteDue(ctx context.Context) error
}

type Runner struct {
	queue    Queue
	opts     Options
	handlers map[Kind]Handler
	newID    func() string
	now      func() time.Time
	mu       sync.RWMutex
	running  bool
}

var _ Enqueuer = (*Runner)(nil)

func NewRunner(queue Queue, newID func() string, options ...Option) *Runner {
	opts := defaultOptions()
	for _, o := range options {
		o(&opts)
	}
	return &Runner{
		queue:    queue,
		opts:     opts,
		handlers: make(map[Kind]Handler),
		newID:    newID,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *Runner) Handle(kind Kind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

func (r *Runner) Enqueue(ctx context.Context, kind Kind, subject ...string) error {
	if kind == "" || len(subject) == 0 {
		return reconErrors.New(ErrInvalidTask).WithDetail("kind", kind)
	}
	now := r.now()
	task := Task{
		ID:          r.newID(),
		Kind:        kind,
		Subject:     subject,
		MaxAttempts: r.opts.MaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.queue.Push(ctx, task); err != nil {
		return err
	}
	logx.WithFields(logx.Fields{"task_id": task.ID, "kind": kind, "subject": subject}).Info("recon: task enqueued")
	return nil
}

// Start runs the workers and the promoter until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return reconErrors.New(ErrAlreadyRunning)
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	logx.Infof("recon: starting %d workers", r.opts.Concurrency)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.promoteLoop(ctx)
	}()
	for i := range r.opts.Concurrency {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r.workerLoop(ctx, id)
		}(i)
	}

	<-ctx.Done()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logx.Info("recon: workers stopped")
		return nil
	case <-time.After(r.opts.ShutdownTimeout):
		logx.Warn("recon: shutdown timed out")
		return reconErrors.New(ErrShutdownTimeout)
	}
}

func (r *Runner) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.queue.PromoteDue(ctx); err != nil && ctx.Err() == nil {
				logx.WithError(err).Warn("recon: promote failed")
			}
		}
	}
}

func (r *Runner) workerLoop(ctx context.Context, id int) {
	for ctx.Err() == nil {
		task, err := r.queue.Pop(ctx, r.opts.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logx.WithError(err).Warnf("recon: worker %d pop failed", id)
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.opts.PollInterval):
			}
			continue
		}
		if task == nil {
			continue
		}
		r.Process(ctx, task)
	}
}

// Process runs one task through its handler and records the outcome.
func (r *Runner) Process(ctx context.Context, task *Task) {
	r.mu.RLock()
	h, ok := r.handlers[task.Kind]
	r.mu.RUnlock()

	log := logx.WithFields(logx.Fields{"task_id": task.ID, "kind": task.Kind, "attempt": task.Attempts})

	if !ok {
		log.WithError(reconErrors.New(ErrNoHandler)).Error("recon: dropping task")
		if err := r.queue.Ack(ctx, task.ID); err != nil {
			log.WithError(err).Error("recon: ack failed")
		}
		return
	}

	start := time.Now()
	err := h(ctx, task)
	if err == nil {
		log.Since(start).Info("recon: task reconciled")
		if err := r.queue.Ack(ctx, task.ID); err != nil {
			log.WithError(err).Error("recon: ack failed")
		}
		return
	}

	task.LastError = err.Error()
	task.UpdatedAt = r.now()
	if task.Exhausted() {
		log.WithError(err).Error("recon: task exhausted its attempts")
		if err := r.queue.Ack(ctx, task.ID); err != nil {
			log.WithError(err).Error("recon: ack failed")
		}
		return
	}

	log.WithError(err).Warn("recon: task failed, retrying")
	if err := r.queue.Retry(ctx, *task, r.opts.RetryDelay); err != nil {
		log.WithError(err).Error("recon: retry failed")
	}
}

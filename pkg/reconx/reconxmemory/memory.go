// Package reconxmemory is an in-process reconx.Queue for tests and the
// memory store mode. Tasks do not survive a restart.
package reconxmemory

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/reconx"
)

type scheduled struct {
	id  string
	due time.Time
}

type Queue struct {
	mu      sync.Mutex
	tasks   map[string]reconx.Task
	ready   []string
	delayed []scheduled
	signal  chan struct{}
	now     func() time.Time
}

var _ reconx.Queue = (*Queue)(nil)

func New() *Queue {
	return &Queue{
		tasks:  make(map[string]reconx.Task),
		signal: make(chan struct{}, 1),
		now:    time.Now,
	}
}

func (q *Queue) Push(_ context.Context, task reconx.Task) error {
	q.mu.Lock()
	q.tasks[task.ID] = task
	q.ready = append(q.ready, task.ID)
	q.mu.Unlock()
	q.notify()
	return nil
}

func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*reconx.Task, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if task := q.take(); task != nil {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-timer.C:
			return nil, nil
		case <-q.signal:
		}
	}
}

func (q *Queue) take() *reconx.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.ready) > 0 {
		id := q.ready[0]
		q.ready = q.ready[1:]
		task, ok := q.tasks[id]
		if !ok {
			continue
		}
		task.Attempts++
		task.UpdatedAt = q.now().UTC()
		q.tasks[id] = task
		return &task
	}
	return nil
}

func (q *Queue) Ack(_ context.Context, id string) error {
	q.mu.Lock()
	delete(q.tasks, id)
	q.mu.Unlock()
	return nil
}

func (q *Queue) Retry(_ context.Context, task reconx.Task, delay time.Duration) error {
	q.mu.Lock()
	q.tasks[task.ID] = task
	q.delayed = append(q.delayed, scheduled{id: task.ID, due: q.now().Add(delay)})
	q.mu.Unlock()
	return nil
}

func (q *Queue) PromoteDue(_ context.Context) error {
	q.mu.Lock()
	now := q.now()
	kept := q.delayed[:0]
	promoted := 0
	for _, s := range q.delayed {
		if s.due.After(now) {
			kept = append(kept, s)
			continue
		}
		q.ready = append(q.ready, s.id)
		promoted++
	}
	q.delayed = kept
	q.mu.Unlock()

	if promoted > 0 {
		q.notify()
	}
	return nil
}

// Len reports how many tasks are stored, ready or delayed.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *Queue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sievelab/paperdex/internal/domain"
	"github.com/sievelab/paperdex/internal/metrics"
)

// Task is one unit of ingestion work. It carries the raw file bytes so
// workers never re-read the upload.
type Task struct {
	ID         string
	DocumentID string
	Data       []byte
	EnqueuedAt time.Time
}

// NewTask creates a task for a document.
func NewTask(documentID string, data []byte) Task {
	return Task{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Data:       data,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Queue is a bounded in-memory task queue. Enqueue never blocks: a full
// queue rejects the upload instead of stalling the HTTP handler.
type Queue struct {
	tasks chan Task
}

// NewQueue creates a queue holding at most capacity tasks.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{tasks: make(chan Task, capacity)}
}

// Enqueue adds a task, returning domain.ErrIngestQueueFull when the queue
// is at capacity.
func (q *Queue) Enqueue(t Task) error {
	select {
	case q.tasks <- t:
		metrics.IngestQueueDepth.Set(float64(len(q.tasks)))
		return nil
	default:
		return domain.ErrIngestQueueFull
	}
}

// Dequeue blocks until a task is available or the context is cancelled.
// The second return value is false when no task was obtained.
func (q *Queue) Dequeue(ctx context.Context) (Task, bool) {
	select {
	case t, ok := <-q.tasks:
		if !ok {
			return Task{}, false
		}
		metrics.IngestQueueDepth.Set(float64(len(q.tasks)))
		return t, true
	case <-ctx.Done():
		return Task{}, false
	}
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	return len(q.tasks)
}

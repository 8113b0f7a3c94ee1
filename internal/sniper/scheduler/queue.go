package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/Vodeneev/linesniper/internal/pkg/models"
)

// Task is one scheduled event refresh. Event is a copy taken when the queue was built.
type Task struct {
	Priority time.Duration
	Seq      uint64
	Event    models.Event
	Sport    models.SportConfig
}

func (t Task) less(o Task) bool {
	if t.Priority != o.Priority {
		return t.Priority < o.Priority
	}
	return t.Seq < o.Seq
}

type taskHeap []Task

func (h taskHeap) Len() int           { return len(h) }
func (h taskHeap) Less(i, j int) bool { return h[i].less(h[j]) }
func (h taskHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)        { *h = append(*h, x.(Task)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}

// Queue is a concurrency-safe min-priority queue of tasks.
// Ties on priority are served in insertion order.
type Queue struct {
	mu      sync.Mutex
	h       taskHeap
	nextSeq uint64
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push enqueues an event and assigns it the next sequence number.
func (q *Queue) Push(priority time.Duration, e models.Event, sport models.SportConfig) Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	t := Task{Priority: priority, Seq: q.nextSeq, Event: e, Sport: sport}
	q.nextSeq++
	heap.Push(&q.h, t)
	return t
}

// Pop removes the most urgent task. ok is false when the queue is empty.
func (q *Queue) Pop() (t Task, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.h) == 0 {
		return Task{}, false
	}
	return heap.Pop(&q.h).(Task), true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}

// Build enqueues every due event whose sport is tracked. Events of untracked sports are
// skipped and counted.
func Build(events []models.Event, sports models.SportSet, now time.Time) (*Queue, int) {
	q := NewQueue()
	untracked := 0
	for _, e := range events {
		cfg, ok := sports.Lookup(e.Sport)
		if !ok {
			untracked++
			continue
		}
		if !IsDue(e, now) {
			continue
		}
		q.Push(Priority(e, now), e, cfg)
	}
	return q, untracked
}

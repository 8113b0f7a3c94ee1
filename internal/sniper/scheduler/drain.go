package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// DrainStats counts the tasks processed by one Drain call.
type DrainStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Drain runs exactly workers goroutines that pop tasks until the queue is empty, and returns
// once every in-flight task has finished. A task error is counted, never propagated.
// Once ctx is done no new task is started.
func Drain(ctx context.Context, q *Queue, workers int, fn func(context.Context, Task) error) DrainStats {
	if workers < 1 {
		workers = 1
	}

	var processed, failed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				t, ok := q.Pop()
				if !ok {
					return
				}
				processed.Add(1)
				if err := runTask(ctx, fn, t); err != nil {
					failed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	p, f := int(processed.Load()), int(failed.Load())
	return DrainStats{Processed: p, Succeeded: p - f, Failed: f}
}

func runTask(ctx context.Context, fn func(context.Context, Task) error, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task for event %d panicked: %v", t.Event.ID, r)
		}
	}()
	return fn(ctx, t)
}

package judge

import (
	"context"
	"sync"
)

// job is the unit of work dispatched to a worker.
type job[T any] struct {
	index   int
	payload T
}

// workerPool is a fixed-size goroutine pool over a bounded queue.
// Each result is written to its job's index, so output order never depends on scheduling.
type workerPool[T, R any] struct {
	queue   chan job[T]
	process func(T) R
	results []R
	wg      sync.WaitGroup
}

// newWorkerPool starts n workers that fill a result slice of size total.
func newWorkerPool[T, R any](ctx context.Context, n, total int, fn func(T) R) *workerPool[T, R] {
	if n < 1 {
		n = 1
	}
	p := &workerPool[T, R]{
		queue:   make(chan job[T], n*4),
		process: fn,
		results: make([]R, total),
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	return p
}

func (p *workerPool[T, R]) run(ctx context.Context) {
	for {
		select {
		case j, ok := <-p.queue:
			if !ok {
				return
			}
			p.results[j.index] = p.process(j.payload)
		case <-ctx.Done():
			return
		}
	}
}

// Submit blocks until the job is queued or ctx is done.
func (p *workerPool[T, R]) Submit(ctx context.Context, index int, t T) bool {
	select {
	case p.queue <- job[T]{index: index, payload: t}:
		return true
	case <-ctx.Done():
		return false
	}
}

// Drain closes the queue, waits for all workers and returns the results.
func (p *workerPool[T, R]) Drain() []R {
	close(p.queue)
	p.wg.Wait()
	return p.results
}

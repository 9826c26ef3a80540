// Package worker provides a parallel image processing worker pool.
package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Processor handles a single image task.
type Processor interface {
	Process(ctx context.Context, task Task) (output string, err error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, task Task) (string, error)

func (f ProcessorFunc) Process(ctx context.Context, task Task) (string, error) {
	return f(ctx, task)
}

// Task represents a single image to process.
type Task struct {
	Input  string
	Output string
}

// Result represents the outcome of a task.
type Result struct {
	Task    Task
	Output  string
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Processor  Processor
	OnProgress ProgressFunc
}

// Pool runs a Processor over a batch of images with bounded parallelism.
type Pool struct {
	workers    int
	processor  Processor
	onProgress ProgressFunc

	mu        sync.Mutex
	completed int
	failed    int
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		processor:  cfg.Processor,
		onProgress: cfg.OnProgress,
	}
}

// Run processes every task and returns one result per task, in task order.
// At most Workers tasks run at once. Once ctx is cancelled the remaining
// tasks are not started; their results carry ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	p.mu.Lock()
	p.completed, p.failed = 0, 0
	p.mu.Unlock()

	results := make([]Result, len(tasks))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			results[i] = Result{Task: task, Err: err}
			p.record(results[i], len(tasks))
			continue
		}
		g.Go(func() error {
			results[i] = p.process(ctx, task)
			p.record(results[i], len(tasks))
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *Pool) process(ctx context.Context, task Task) Result {
	if err := ctx.Err(); err != nil {
		return Result{Task: task, Err: err}
	}

	start := time.Now()
	output, err := p.processor.Process(ctx, task)
	return Result{
		Task:    task,
		Output:  output,
		Err:     err,
		Elapsed: time.Since(start),
	}
}

// record counts a finished task. Progress callbacks are serialized.
func (p *Pool) record(r Result, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed++
	if r.Err != nil {
		p.failed++
	}
	if p.onProgress != nil {
		p.onProgress(p.completed, total, p.failed)
	}
}

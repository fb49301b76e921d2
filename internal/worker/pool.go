// Package worker converts batches of image files in parallel.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/MeKo-Tech/imagetools/internal/job"
)

// Processor converts a single task. Job events are passed to emit as they
// happen.
type Processor interface {
	Process(ctx context.Context, task Task, emit func(job.Event)) (output string, err error)
}

// Task names one input image.
type Task struct {
	Name string // output base name, usually the file name without extension
	Path string
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

// EventFunc receives the job events of every task. Calls for different
// tasks may happen concurrently.
type EventFunc func(task Task, e job.Event)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Processor  Processor
	OnProgress ProgressFunc
	OnEvent    EventFunc
}

// Pool runs tasks on a fixed number of goroutines.
type Pool struct {
	workers    int
	processor  Processor
	onProgress ProgressFunc
	onEvent    EventFunc
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
		onEvent:    cfg.OnEvent,
	}
}

// Run executes all tasks and returns one result per task, in completion
// order. Once ctx is done the remaining tasks are not started and report
// ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})

	go func() {
		completed, failed := 0, 0
		for result := range resultCh {
			results = append(results, result)

			completed++
			if result.Err != nil {
				failed++
			}
			if p.onProgress != nil {
				p.onProgress(completed, len(tasks), failed)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			results <- Result{Task: task, Err: ctx.Err()}
			continue
		default:
		}

		emit := func(job.Event) {}
		if p.onEvent != nil {
			emit = func(e job.Event) { p.onEvent(task, e) }
		}

		start := time.Now()
		output, err := p.processor.Process(ctx, task, emit)

		results <- Result{
			Task:    task,
			Output:  output,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}

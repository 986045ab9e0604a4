package server

import (
	"bytes"
	"context"
	"fmt"

	"github.com/GarageGames/Torque3D-sub044/console"
)

// Worker owns a console runtime and runs jobs against it one at a time.
// The runtime is not safe for concurrent use, so editor handlers reach it
// only through Query and Exec.
type Worker struct {
	rt   *console.Runtime
	jobs chan job

	life context.Context
	stop context.CancelFunc
}

type job struct {
	ctx  context.Context
	run  func(*console.Runtime) (interface{}, error)
	done chan outcome
}

type outcome struct {
	value interface{}
	err   error
}

// Execution is what running script text in the runtime produced.
type Execution struct {
	Result string `json:"result"`
	Output string `json:"output"`
}

// NewWorker starts serving jobs for rt.
func NewWorker(rt *console.Runtime) *Worker {
	life, stop := context.WithCancel(context.Background())
	w := &Worker{
		rt:   rt,
		jobs: make(chan job, 64),
		life: life,
		stop: stop,
	}
	go w.serve()
	return w
}

func (w *Worker) serve() {
	for {
		select {
		case <-w.life.Done():
			return
		case j := <-w.jobs:
			if w.life.Err() != nil {
				j.done <- outcome{err: errStopped}
				return
			}
			// A caller that gave up while queued gets nothing run for it
			if err := j.ctx.Err(); err != nil {
				j.done <- outcome{err: err}
				continue
			}
			j.done <- w.run(j)
		}
	}
}

// run executes one job. A Go panic escaping the runtime becomes the job's
// error; the interpreter's deferred frame pops leave the eval state
// balanced.
func (w *Worker) run(j job) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("runtime fault: %v", r)
			o = outcome{err: fmt.Errorf("%v", r)}
		}
	}()
	v, err := j.run(w.rt)
	return outcome{value: v, err: err}
}

func (w *Worker) submit(ctx context.Context, fn func(*console.Runtime) (interface{}, error)) (interface{}, error) {
	if w.life.Err() != nil {
		return nil, errStopped
	}
	j := job{ctx: ctx, run: fn, done: make(chan outcome, 1)}
	select {
	case w.jobs <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.life.Done():
		return nil, errStopped
	}
	select {
	case o := <-j.done:
		return o.value, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.life.Done():
		return nil, errStopped
	}
}

// Query runs a read of the runtime on the worker and returns its value.
func (w *Worker) Query(ctx context.Context, fn func(*console.Runtime) interface{}) (interface{}, error) {
	return w.submit(ctx, func(rt *console.Runtime) (interface{}, error) {
		return fn(rt), nil
	})
}

// Exec compiles and runs source under filename. Console text printed while
// it runs is captured into the Execution instead of the runtime's writer.
func (w *Worker) Exec(ctx context.Context, filename, source string) (Execution, error) {
	v, err := w.submit(ctx, func(rt *console.Runtime) (interface{}, error) {
		var buf bytes.Buffer
		prev := rt.Output()
		rt.SetOutput(&buf)
		defer rt.SetOutput(prev)

		res, err := rt.Eval(source, filename)
		if err != nil {
			return nil, err
		}
		return Execution{Result: res, Output: buf.String()}, nil
	})
	if err != nil {
		return Execution{}, err
	}
	return v.(Execution), nil
}

// Stop ends the worker. Pending and later calls fail with errStopped.
func (w *Worker) Stop() { w.stop() }

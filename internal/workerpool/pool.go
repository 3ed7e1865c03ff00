// Package workerpool provides the bounded task-submission abstraction
// used to run blocking ASR and translation calls off the audio-feeding
// goroutine. The interface mirrors the Submit(ctx, func()) contract the
// pack's frame.Service workers expose (github.com/pitabwire/frame's
// WorkManager pool), so a real frame-backed pool obtained from a hosting
// service satisfies Pool without adapting it.
package workerpool

import (
	"context"
	"fmt"
)

// Pool submits a task for execution, blocking until a worker slot is
// free or ctx is cancelled.
type Pool interface {
	Submit(ctx context.Context, task func()) error
	// Stop shuts the pool down. Outstanding tasks are allowed to finish;
	// no new tasks are accepted afterward.
	Stop()
}

// boundedPool is a fixed-size goroutine pool with a single shared queue.
type boundedPool struct {
	tasks chan func()
	done  chan struct{}
}

// New creates a Pool with size concurrent workers (size < 1 is treated as 1).
func New(size int) Pool {
	if size < 1 {
		size = 1
	}
	p := &boundedPool{
		tasks: make(chan func()),
		done:  make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		go p.run()
	}
	return p
}

func (p *boundedPool) run() {
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task()
		case <-p.done:
			return
		}
	}
}

// Submit blocks until a worker picks up task or ctx is done.
func (p *boundedPool) Submit(ctx context.Context, task func()) error {
	select {
	case p.tasks <- task:
		return nil
	case <-p.done:
		return fmt.Errorf("workerpool: stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the pool. Workers blocked receiving exit; in-flight tasks
// already picked up are allowed to finish.
func (p *boundedPool) Stop() {
	close(p.done)
}

package scheduler

import (
	"log"
	"sync"
	"time"

	"adboard-backend/pkg/utils"
)

// Task runs a function on a fixed interval, decoupled from any HTTP handler.
// Force runs it immediately without disturbing the ticker. A panicking run is
// recovered and reported so one bad tick cannot kill the loop.
type Task struct {
	name     string
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

// New creates a named task.
func New(name string, interval time.Duration, fn func()) *Task {
	return &Task{name: name, interval: interval, fn: fn}
}

// Start launches the ticker goroutine. Starting a started task is a no-op.
func (t *Task) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.stop = make(chan struct{})

	go func(stop chan struct{}) {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.invoke()
			case <-stop:
				return
			}
		}
	}(t.stop)

	log.Printf("⏱️  Task %q started (every %s)", t.name, t.interval)
}

// Stop halts the ticker. Stopping a stopped task is a no-op.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	close(t.stop)
	t.running = false
	log.Printf("⏹️  Task %q stopped", t.name)
}

// Force runs the task function once, immediately, on the caller's goroutine.
func (t *Task) Force() {
	t.invoke()
}

// Running reports whether the ticker is active.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Task) invoke() {
	defer func() {
		if r := recover(); r != nil {
			utils.CaptureSentryPanic("scheduler."+t.name, r)
			log.Printf("⚠️  Task %q panicked: %v", t.name, r)
		}
	}()
	t.fn()
}

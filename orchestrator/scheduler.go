package orchestrator

import "runtime"

// Scheduler dispatches graph builds. Schedule must not wait for task to
// finish unless the caller is fine with Update blocking.
type Scheduler interface {
	Schedule(task func())
}

// BackgroundScheduler runs every task on its own goroutine, yielding first
// so callers handling user input get to run before the build starts.
type BackgroundScheduler struct{}

func (BackgroundScheduler) Schedule(task func()) {
	go func() {
		runtime.Gosched()
		task()
	}()
}

// InlineScheduler runs tasks synchronously on the calling goroutine.
type InlineScheduler struct{}

func (InlineScheduler) Schedule(task func()) {
	task()
}

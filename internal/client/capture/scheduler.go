package capture

import (
	"sync"
	"time"
)

// Handle cancels a periodic task. Cancel blocks until a running invocation
// returns; afterwards the task is never invoked again. It must not be called
// from inside the task.
type Handle interface {
	Cancel()
}

type Scheduler interface {
	Every(interval time.Duration, fn func()) Handle
}

// TickerScheduler runs tasks on a time.Ticker goroutine.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) Handle {
	h := &tickerHandle{stop: make(chan struct{}), done: make(chan struct{})}

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				// stop wins over a tick that raced with it
				select {
				case <-h.stop:
					return
				default:
				}
				fn()
			}
		}
	}()

	return h
}

type tickerHandle struct {
	once sync.Once
	stop chan struct{}
	done chan struct{}
}

func (h *tickerHandle) Cancel() {
	h.once.Do(func() { close(h.stop) })
	<-h.done
}

// ManualScheduler runs tasks only when Tick is called.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	mu        sync.Mutex
	fn        func()
	cancelled bool
	interval  time.Duration
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) Every(interval time.Duration, fn func()) Handle {
	t := &manualTask{fn: fn, interval: interval}
	m.mu.Lock()
	m.tasks = append(m.tasks, t)
	m.mu.Unlock()
	return t
}

// Tick invokes every live task once, in registration order.
func (m *ManualScheduler) Tick() {
	m.mu.Lock()
	tasks := append([]*manualTask(nil), m.tasks...)
	m.mu.Unlock()

	for _, t := range tasks {
		t.run()
	}
}

// Active returns the number of tasks not yet cancelled.
func (m *ManualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, t := range m.tasks {
		t.mu.Lock()
		if !t.cancelled {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

func (t *manualTask) run() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return
	}
	t.fn()
}

func (t *manualTask) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

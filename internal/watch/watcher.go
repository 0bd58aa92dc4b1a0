package watch

import (
	"context"
	"sync"
	"time"

	"github.com/vk/assetgrid/internal/ctxlog"
)

// State is the phase of a watch session.
type State int

const (
	Idle State = iota
	Debouncing
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// RunFunc rebuilds the named tasks and returns the files it wrote. A
// returned error is logged and the session continues.
type RunFunc func(ctx context.Context, names []string) (written []string, err error)

// Notifier is told about the files written by each successful cycle.
type Notifier interface {
	Notify(ctx context.Context, files []string) error
}

// Watcher coalesces change events into rebuild cycles. Events arriving while
// a cycle runs are remembered and trigger exactly one follow-up cycle.
type Watcher struct {
	set      *Set
	run      RunFunc
	debounce time.Duration
	notifier Notifier

	mu     sync.Mutex
	state  State
	cycles int
}

// New creates a Watcher. notifier may be nil.
func New(set *Set, run RunFunc, debounce time.Duration, notifier Notifier) *Watcher {
	return &Watcher{set: set, run: run, debounce: debounce, notifier: notifier}
}

// State returns the current phase.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Cycles returns the number of completed rebuild cycles.
func (w *Watcher) Cycles() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cycles
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

type cycleResult struct {
	names   []string
	written []string
	err     error
}

// Serve consumes changed paths until ctx is done or events is closed. After
// events closes, any pending cycle still runs before Serve returns.
func (w *Watcher) Serve(ctx context.Context, events <-chan string) error {
	logger := ctxlog.FromContext(ctx)

	var (
		pending []string
		queued  = make(map[string]bool)
		timer   *time.Timer
		timerC  <-chan time.Time
		done    chan cycleResult
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	startTimer := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
		} else {
			timer.Stop()
			timer.Reset(w.debounce)
		}
		timerC = timer.C
		w.setState(Debouncing)
	}

	for {
		if events == nil && done == nil && timerC == nil {
			w.setState(Idle)
			return nil
		}

		select {
		case <-ctx.Done():
			if done != nil {
				<-done
			}
			w.setState(Idle)
			return nil

		case path, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			names := w.set.Match(path)
			if len(names) == 0 {
				continue
			}
			logger.Debug("Change detected.", "path", path, "tasks", names)
			for _, n := range names {
				if !queued[n] {
					queued[n] = true
					pending = append(pending, n)
				}
			}
			if done == nil {
				startTimer()
			}

		case <-timerC:
			timerC = nil
			names := pending
			pending, queued = nil, make(map[string]bool)
			done = make(chan cycleResult, 1)
			w.setState(Running)
			go func() {
				written, err := w.run(ctx, names)
				done <- cycleResult{names: names, written: written, err: err}
			}()

		case res := <-done:
			done = nil
			w.finish(ctx, res)
			if len(pending) > 0 {
				startTimer()
			} else {
				w.setState(Idle)
			}
		}
	}
}

func (w *Watcher) finish(ctx context.Context, res cycleResult) {
	logger := ctxlog.FromContext(ctx)

	w.mu.Lock()
	w.cycles++
	w.mu.Unlock()

	if res.err != nil {
		logger.Error("❌ Rebuild failed, still watching.", "tasks", res.names, "error", res.err)
		return
	}
	logger.Info("✅ Rebuild finished.", "tasks", res.names, "written", len(res.written))
	if w.notifier == nil || len(res.written) == 0 {
		return
	}
	if err := w.notifier.Notify(ctx, res.written); err != nil {
		logger.Warn("Live reload notification failed.", "error", err)
	}
}

package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/logging"
)

// WorkerState is the lifecycle of one pool worker.
type WorkerState int

const (
	// WorkerNotReady: spawned, performing one-time setup.
	WorkerNotReady WorkerState = iota
	// WorkerReady: idle, eligible for the next queued chunk.
	WorkerReady
	// WorkerWorking: executing one chunk operation.
	WorkerWorking
	// WorkerFailed: setup failed; permanently excluded from the pool.
	WorkerFailed
	// WorkerCrashed: an operation panicked; the worker is gone and may have
	// been replaced, subject to the restart ceiling.
	WorkerCrashed
)

func (s WorkerState) String() string {
	switch s {
	case WorkerNotReady:
		return "NOT_READY"
	case WorkerReady:
		return "READY"
	case WorkerWorking:
		return "WORKING"
	case WorkerFailed:
		return "FAILED"
	case WorkerCrashed:
		return "CRASHED"
	default:
		return fmt.Sprintf("WorkerState(%d)", int(s))
	}
}

// WorkerCrashError wraps a panic recovered inside a pool worker.
type WorkerCrashError struct {
	Value any
}

func (e *WorkerCrashError) Error() string {
	return fmt.Sprintf("worker crashed: %v", e.Value)
}

// Op performs one chunk operation. It returns the remote handle for
// uploads; download and delete ops return "".
type Op func(ctx context.Context, index int) (string, error)

// Result is one completed (or failed) chunk operation.
type Result struct {
	Index  int
	Handle string
	Err    error
}

// Pool is a fixed-size set of worker goroutines consuming chunk indices
// from a buffered queue. The queue capacity must be at least the total
// chunk count: every index is either queued, in flight or done, so Submit
// never blocks and re-enqueueing a failed chunk always has room.
//
// Workers perform a one-time setup before accepting work; setup failures
// exclude the worker permanently. Panics inside the operation turn into a
// CRASHED worker which the pool replaces, resuming the in-flight chunk,
// until the restart ceiling is spent. When no workers remain alive the
// pool reports common.ErrPoolExhausted on Fatal.
type Pool struct {
	size        int
	maxRestarts int
	setup       func(ctx context.Context) error
	op          Op
	log         logging.Logger

	tasks   chan int
	results chan Result
	fatal   chan error

	mu           sync.Mutex
	states       map[int]WorkerState
	current      map[int]int
	restartsUsed int
	alive        int
	nextWorkerID int
	exhausted    bool
}

func NewPool(size, queueCap, maxRestarts int, setup func(ctx context.Context) error, op Op, log logging.Logger) *Pool {
	return &Pool{
		size:        size,
		maxRestarts: maxRestarts,
		setup:       setup,
		op:          op,
		log:         log.With("module", "worker_pool"),
		tasks:       make(chan int, queueCap),
		results:     make(chan Result, queueCap),
		fatal:       make(chan error, 1),
		states:      make(map[int]WorkerState),
		current:     make(map[int]int),
	}
}

// Start spawns the workers. Cancelling ctx terminates them.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	p.alive = p.size
	p.nextWorkerID = p.size
	p.mu.Unlock()

	for id := 0; id < p.size; id++ {
		go p.worker(ctx, id)
	}
}

// Submit enqueues a chunk index. Safe to call from timers after the
// supervisor has given up; the buffered queue absorbs the send.
func (p *Pool) Submit(index int) {
	p.tasks <- index
}

// Results delivers one Result per finished operation, in completion order.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Fatal fires once when every worker has failed or crashed.
func (p *Pool) Fatal() <-chan error {
	return p.fatal
}

// States returns a snapshot of per-worker states.
func (p *Pool) States() map[int]WorkerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[int]WorkerState, len(p.states))
	for id, s := range p.states {
		out[id] = s
	}
	return out
}

func (p *Pool) worker(ctx context.Context, id int) {
	p.setState(id, WorkerNotReady)

	if p.setup != nil {
		if err := p.setup(ctx); err != nil {
			p.log.Error(ctx, "worker setup failed", "worker", id, "error", err)
			p.setState(id, WorkerFailed)
			p.workerGone(ctx)
			return
		}
	}
	p.setState(id, WorkerReady)

	for {
		select {
		case <-ctx.Done():
			return
		case index := <-p.tasks:
			p.setWorking(id, index)
			handle, err := p.runOp(ctx, index)

			var crash *WorkerCrashError
			if errors.As(err, &crash) {
				p.setState(id, WorkerCrashed)
				p.log.Error(ctx, "worker crashed", "worker", id, "chunk", index, "panic", crash.Value)
				p.restart(ctx, index)
				p.workerGone(ctx)
				return
			}

			p.setReady(id)
			select {
			case p.results <- Result{Index: index, Handle: handle, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Pool) runOp(ctx context.Context, index int) (handle string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &WorkerCrashError{Value: r}
		}
	}()
	return p.op(ctx, index)
}

// restart spawns a replacement worker for a crashed one, if the ceiling
// allows, and re-enqueues the crashed worker's in-flight chunk either way:
// surviving workers will pick it up even when no replacement is possible.
func (p *Pool) restart(ctx context.Context, index int) {
	p.mu.Lock()
	if p.restartsUsed >= p.maxRestarts {
		p.mu.Unlock()
		p.log.Warn(ctx, "worker restart ceiling spent", "max_restarts", p.maxRestarts)
		p.Submit(index)
		return
	}
	p.restartsUsed++
	id := p.nextWorkerID
	p.nextWorkerID++
	p.alive++
	p.mu.Unlock()

	p.log.Info(ctx, "restarting crashed worker", "replacement", id, "restarts_used", p.restartsUsed)
	go p.worker(ctx, id)
	p.Submit(index)
}

func (p *Pool) workerGone(ctx context.Context) {
	p.mu.Lock()
	p.alive--
	dead := p.alive == 0 && !p.exhausted
	if dead {
		p.exhausted = true
	}
	p.mu.Unlock()

	if dead {
		p.log.Error(ctx, "no pool workers left alive")
		select {
		case p.fatal <- common.ErrPoolExhausted:
		default:
		}
	}
}

func (p *Pool) setState(id int, s WorkerState) {
	p.mu.Lock()
	p.states[id] = s
	p.mu.Unlock()
}

func (p *Pool) setWorking(id, index int) {
	p.mu.Lock()
	p.states[id] = WorkerWorking
	p.current[id] = index
	p.mu.Unlock()
}

func (p *Pool) setReady(id int) {
	p.mu.Lock()
	p.states[id] = WorkerReady
	delete(p.current, id)
	p.mu.Unlock()
}

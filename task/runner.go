// Package task runs blocking calls off the caller goroutine and delivers
// results through callbacks. Callers submit a closure together with a result
// callback and an error callback; whichever applies is invoked from a worker
// goroutine once the closure returns. Delivery is fire-and-forget: a callback
// that panics, for example because its receiver has since been torn down, is
// swallowed and logged rather than taking down the worker.
package task

import (
	"errors"
	"sync"
	"time"
)

// ErrRunnerExiting signals that a shutdown of the Runner has been requested.
var ErrRunnerExiting = errors.New("task runner exiting")

// DefaultNumWorkers is the maximum number of concurrent workers spawned when
// the config leaves NumWorkers unset.
const DefaultNumWorkers = 8

// DefaultWorkerTimeout is the default duration after which a worker goroutine
// will exit to free up resources after having received no newly submitted
// tasks.
const DefaultWorkerTimeout = 5 * time.Second

// Config parameterizes the behavior of a Runner.
type Config struct {
	// NumWorkers is the maximum number of workers the Runner will permit
	// to be allocated. Once the maximum number is reached, any newly
	// submitted tasks are forced to be processed by existing worker
	// goroutines.
	NumWorkers int

	// WorkerTimeout is the duration after which a worker goroutine will
	// exit after having received no newly submitted tasks.
	WorkerTimeout time.Duration
}

// Runner maintains a pool of goroutines that execute submitted closures and
// deliver their outcome through per-task callbacks.
type Runner struct {
	started sync.Once
	stopped sync.Once

	cfg Config

	// requests is a channel where new tasks are submitted. Tasks
	// submitted through this channel may cause a new worker goroutine to
	// be allocated.
	requests chan *request

	// work is a channel where new tasks are submitted, but is only read
	// by active worker goroutines.
	work chan *request

	// workerSem is a channel-based semaphore that is used to limit the
	// total number of worker goroutines to the number prescribed by the
	// Config.
	workerSem chan struct{}

	wg   sync.WaitGroup
	quit chan struct{}
}

// request wraps a submitted closure together with its delivery step. The run
// closure executes the task and invokes the appropriate callback itself, so
// workers never need to know the task's result type.
type request struct {
	run func()
}

// NewRunner initializes a new Runner using the provided Config. Zero config
// fields are replaced with defaults.
func NewRunner(cfg Config) *Runner {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = DefaultNumWorkers
	}
	if cfg.WorkerTimeout <= 0 {
		cfg.WorkerTimeout = DefaultWorkerTimeout
	}

	return &Runner{
		cfg:       cfg,
		requests:  make(chan *request),
		work:      make(chan *request),
		workerSem: make(chan struct{}, cfg.NumWorkers),
		quit:      make(chan struct{}),
	}
}

// Start safely spins up the Runner.
func (r *Runner) Start() error {
	r.started.Do(func() {
		log.Debugf("Task runner starting with %d workers",
			r.cfg.NumWorkers)

		r.wg.Add(1)
		go r.requestHandler()
	})
	return nil
}

// Stop safely shuts down the Runner. Tasks already picked up by a worker run
// to completion; tasks still queued are discarded.
func (r *Runner) Stop() error {
	r.stopped.Do(func() {
		close(r.quit)
		r.wg.Wait()
	})
	return nil
}

// Run submits fn for execution on a worker goroutine. When fn returns without
// error, onResult is invoked with its value; otherwise onErr is invoked with
// the error. Either callback may be nil, in which case the corresponding
// outcome is dropped. Callbacks run on the worker goroutine, so they must not
// block for long. Run itself only blocks until the task is accepted and
// returns ErrRunnerExiting if the Runner is shutting down.
func Run[T any](r *Runner, fn func() (T, error), onResult func(T),
	onErr func(error)) error {

	return r.submit(&request{
		run: func() {
			result, err := fn()
			if err != nil {
				deliver(func() {
					if onErr != nil {
						onErr(err)
					}
				})
				return
			}

			deliver(func() {
				if onResult != nil {
					onResult(result)
				}
			})
		},
	})
}

// RunErr submits a closure that produces no value. onDone receives the
// closure's error, nil included. A nil onDone drops the outcome.
func (r *Runner) RunErr(fn func() error, onDone func(error)) error {
	return r.submit(&request{
		run: func() {
			err := fn()
			deliver(func() {
				if onDone != nil {
					onDone(err)
				}
			})
		},
	})
}

// submit hands a request to the pool, spawning a new worker if the limit has
// not yet been reached.
func (r *Runner) submit(req *request) error {
	select {

	// Send request to requestHandler, where either a new worker is
	// spawned or the task will be handed to an existing worker.
	case r.requests <- req:
		return nil

	// Fast path directly to existing worker.
	case r.work <- req:
		return nil

	case <-r.quit:
		return ErrRunnerExiting
	}
}

// deliver invokes a callback, recovering from any panic. Receivers may have
// been disposed between submission and completion; their callbacks are
// allowed to fail without consequence for the worker.
func deliver(cb func()) {
	defer func() {
		if p := recover(); p != nil {
			log.Warnf("Discarding task callback panic: %v", p)
		}
	}()

	cb()
}

// requestHandler processes incoming tasks by either allocating new worker
// goroutines to process the incoming tasks, or by feeding a submitted task to
// an already running worker goroutine.
func (r *Runner) requestHandler() {
	defer r.wg.Done()

	for {
		select {
		case req := <-r.requests:
			select {

			// If we have not reached our maximum number of
			// workers, spawn one to process the submitted request.
			case r.workerSem <- struct{}{}:
				r.wg.Add(1)
				go r.spawnWorker(req)

			// Otherwise, submit the task to any of the active
			// workers.
			case r.work <- req:

			case <-r.quit:
				return
			}

		case <-r.quit:
			return
		}
	}
}

// spawnWorker executes the initial request, then continues to process
// incoming tasks until the pool is shut down or no new tasks are received
// before the worker's timeout elapses.
//
// NOTE: This method MUST be run as a goroutine.
func (r *Runner) spawnWorker(req *request) {
	defer r.wg.Done()
	defer func() { <-r.workerSem }()

	req.run()

	// We'll use a timer to implement the worker timeouts, as this reduces
	// the number of total allocations that would otherwise be necessary
	// with time.After.
	var t *time.Timer
	for {
		select {

		// Process any new requests that get submitted. We use a
		// non-blocking case first so that under high load we can
		// spare allocating a timeout.
		case req := <-r.work:
			req.run()
			continue

		case <-r.quit:
			return

		default:
		}

		// There were no new requests that could be taken immediately
		// from the work channel. Initialize or reset the timeout,
		// which will fire if the worker doesn't receive a new task
		// before needing to exit.
		if t != nil {
			t.Reset(r.cfg.WorkerTimeout)
		} else {
			t = time.NewTimer(r.cfg.WorkerTimeout)
		}

		select {

		// Process any new requests that get submitted.
		case req := <-r.work:
			req.run()

			// Stop the timer, draining the timer's channel if a
			// notification was already delivered.
			if !t.Stop() {
				<-t.C
			}

		// The timeout has elapsed, meaning the worker did not receive
		// any new tasks. Exit to allow the worker to return and free
		// its resources.
		case <-t.C:
			return

		case <-r.quit:
			return
		}
	}
}

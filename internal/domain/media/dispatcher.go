package media

import (
	"context"
	"errors"
	"log"
	"runtime"
	"sync"
)

const queueDepth = 256

// Dispatcher is the in-process worker pool behind the pipeline. Upload
// handlers hand it ids and return immediately; a bounded set of workers
// runs Service.Process out-of-band. The pool is CPU-sized because the
// pipeline stages are decode/resize bound.
type Dispatcher struct {
	service *Service
	workers int
	jobs    chan string
	done    chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	stopped bool
}

func NewDispatcher(service *Service, workers int) *Dispatcher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Dispatcher{
		service: service,
		workers: workers,
		jobs:    make(chan string, queueDepth),
		done:    make(chan struct{}),
	}
}

// Start launches the workers. Idempotent per Dispatcher lifetime.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
}

// Enqueue hands an id to the pool. It never blocks the caller: if the
// buffered queue is full the handoff moves to its own goroutine, which
// gives up once the dispatcher stops. A dropped id is not lost work, the
// record stays pending and a later enqueue or restart picks it up.
func (d *Dispatcher) Enqueue(id string) {
	select {
	case d.jobs <- id:
	default:
		go func() {
			select {
			case d.jobs <- id:
			case <-d.done:
				log.Printf("media enqueue_dropped id=%s", id)
			}
		}()
	}
}

// Stop cancels in-flight runs and waits for the workers to drain.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	stopped := d.stopped
	d.stopped = true
	d.mu.Unlock()

	if !stopped {
		close(d.done)
	}
	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-d.jobs:
			if err := d.service.Process(ctx, id); err != nil {
				// Losing a claim race is normal, everything else was
				// already recorded on the media row; both just get logged.
				if errors.Is(err, ErrNotClaimable) {
					log.Printf("media claim_skipped id=%s", id)
				} else {
					log.Printf("media process_error id=%s error=%q", id, err)
				}
			}
		}
	}
}

package results

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// writeTimeout bounds each recorder write.
const writeTimeout = 5 * time.Second

type job struct {
	start  *Round
	finish *Finish
}

// Recorder writes round lifecycle changes on a single goroutine, in the
// order they were queued. Game events feed it while the engine lock is
// held, so queueing never blocks: when the buffer is full the write is
// dropped and logged.
type Recorder struct {
	store  *Store
	jobs   chan job
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// NewRecorder creates a recorder; call Run in its own goroutine.
func NewRecorder(store *Store, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Recorder{
		store: store,
		jobs:  make(chan job, buffer),
		done:  make(chan struct{}),
	}
}

// Run applies queued writes until Close is called and the queue drains.
func (r *Recorder) Run() {
	defer close(r.done)
	for j := range r.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		switch {
		case j.start != nil:
			if err := r.store.Start(ctx, *j.start); err != nil {
				log.Warn().Err(err).Str("round", j.start.ID).Msg("record round start")
			}
		case j.finish != nil:
			if err := r.store.Finish(ctx, *j.finish); err != nil {
				log.Warn().Err(err).Str("round", j.finish.RoundID).Msg("record round finish")
			}
		}
		cancel()
	}
}

// RoundStarted queues a Start write.
func (r *Recorder) RoundStarted(round Round) { r.enqueue(job{start: &round}) }

// RoundFinished queues a Finish write.
func (r *Recorder) RoundFinished(f Finish) { r.enqueue(job{finish: &f}) }

func (r *Recorder) enqueue(j job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.jobs <- j:
	default:
		log.Warn().Msg("results recorder queue full, dropping write")
	}
}

// Close stops accepting writes and waits for queued ones to finish.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.jobs)
	}
	r.mu.Unlock()
	<-r.done
}

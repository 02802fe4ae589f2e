package queue

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// saveTimeout bounds a single flush against a wedged disk.
const saveTimeout = 30 * time.Second

type saveJob struct {
	key string
	run func(ctx context.Context) error
}

// Saver coalesces persistence work: for each logical key only the most
// recently scheduled job survives, and pending jobs execute after an idle
// window with no new schedules. Stale jobs are dropped wholesale, never
// partially applied. Failures are logged and dropped.
type Saver struct {
	jobs  chan saveJob
	flush chan chan struct{}
	idle  time.Duration

	logger *log.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSaver starts a saver flushing after the given idle window.
func NewSaver(idle time.Duration, logger *log.Logger) *Saver {
	if logger == nil {
		logger = log.Default()
	}
	s := &Saver{
		jobs:   make(chan saveJob, 64),
		flush:  make(chan chan struct{}),
		idle:   idle,
		logger: logger,
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

// Schedule queues a save under the given key, superseding any pending job
// with the same key. Safe to call from any goroutine; a no-op after Close.
func (s *Saver) Schedule(key string, run func(ctx context.Context) error) {
	select {
	case s.jobs <- saveJob{key: key, run: run}:
	case <-s.done:
	}
}

// Flush runs all pending jobs now and waits for them to finish.
func (s *Saver) Flush() {
	ack := make(chan struct{})
	select {
	case s.flush <- ack:
		<-ack
	case <-s.done:
	}
}

// Close flushes pending jobs and stops the saver.
func (s *Saver) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}

func (s *Saver) loop() {
	defer s.wg.Done()

	pending := make(map[string]func(ctx context.Context) error)
	var order []string // flush in first-scheduled order

	add := func(j saveJob) {
		if _, ok := pending[j.key]; !ok {
			order = append(order, j.key)
		}
		pending[j.key] = j.run
	}

	run := func() {
		for _, key := range order {
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			if err := pending[key](ctx); err != nil {
				s.logger.Warn("queue save failed", "key", key, "err", err)
			}
			cancel()
		}
		pending = make(map[string]func(ctx context.Context) error)
		order = nil
	}

	timer := time.NewTimer(s.idle)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case j := <-s.jobs:
			add(j)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.idle)

		case <-timer.C:
			run()

		case ack := <-s.flush:
			s.drain(add)
			run()
			close(ack)

		case <-s.done:
			s.drain(add)
			run()
			return
		}
	}
}

// drain consumes whatever is already buffered without blocking.
func (s *Saver) drain(add func(saveJob)) {
	for {
		select {
		case j := <-s.jobs:
			add(j)
		default:
			return
		}
	}
}

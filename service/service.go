package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/logger"

	"github.com/ArtAndreev/timed-computing-service/stat"
	"github.com/ArtAndreev/timed-computing-service/task"
)

var (
	ErrClosed    = errors.New("service: closed")
	ErrQueueFull = errors.New("service: queue is full")
)

// Service runs request work on a fixed pool of workers and answers every
// request within its timeout. Work that misses the deadline is not stopped,
// it keeps its worker until it finishes and its result is dropped.
type Service struct {
	busy      int64 // first for 64-bit atomic alignment
	abandoned int64

	Name string

	cfg *Config
	lg  *logger.Logger

	in     chan *job
	stopCh chan struct{}
	once   sync.Once

	work func(difficulty uint32) time.Duration
}

type Snapshot struct {
	Name      string        `json:"name"`
	Parallel  int           `json:"parallel"`
	Capacity  int           `json:"capacity"`
	Queued    int           `json:"queued"`
	Busy      int64         `json:"busy"`
	Abandoned int64         `json:"abandoned"`
	Timeout   time.Duration `json:"timeout"`
}

func New(name string, config *Config) *Service {
	return &Service{
		Name: name,

		cfg: config,
		lg:  logger.Init(name, config.Verbose, false, os.Stdout),

		in:     make(chan *job, config.MaxClientConn),
		stopCh: make(chan struct{}),

		work: spin,
	}
}

func (s *Service) Run(wg *sync.WaitGroup) {
	wg.Add(s.cfg.Parallel)

	for i := 0; i < s.cfg.Parallel; i++ {
		go s.runWorker(wg)
	}
}

// Close stops the workers after their current job. Queued jobs are dropped
// and their callers time out.
func (s *Service) Close() {
	s.once.Do(func() {
		close(s.stopCh)
	})
}

func (s *Service) runWorker(wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case j := <-s.in:
			s.execute(j)
		}
	}
}

func (s *Service) execute(j *job) {
	atomic.AddInt64(&s.busy, 1)
	r := runWork(s.work, j.difficulty)
	atomic.AddInt64(&s.busy, -1)

	if r.err != nil {
		s.lg.Errorf("work item failed: %s", r.err)
	} else {
		stat.ObserveWork(r.elapsed)
	}

	if !j.deliver(r) {
		atomic.AddInt64(&s.abandoned, 1)
		stat.RecordAbandoned()
	}
}

// Dispatch runs the work of req and returns its response. It never blocks
// longer than the configured timeout; a timeout, a rejected submission, a
// failed work item and a canceled ctx are all reported as TimedOut.
func (s *Service) Dispatch(ctx context.Context, req task.Request) task.Response {
	resp := task.Response{
		ID:      req.ID,
		Outcome: s.race(ctx, req.Difficulty),
	}
	stat.RecordOutcome(resp.Outcome)

	return resp
}

func (s *Service) race(ctx context.Context, difficulty uint32) task.Outcome {
	if s.cfg.Timeout <= 0 {
		return task.TimedOut()
	}

	deadline := time.NewTimer(s.cfg.Timeout)
	defer deadline.Stop()

	j := newJob(difficulty)
	if err := s.submit(ctx, j, deadline.C); err != nil {
		stat.RecordRejected()
		if s.cfg.Verbose {
			s.lg.Warningf("cannot submit work item: %s", err)
		}
		return task.TimedOut()
	}

	select {
	case r := <-j.done:
		if r.err != nil {
			return task.TimedOut()
		}
		return task.Completed(millis(r.elapsed))
	case <-deadline.C:
	case <-ctx.Done():
	}

	j.abandon()

	return task.TimedOut()
}

func (s *Service) submit(ctx context.Context, j *job, deadline <-chan time.Time) error {
	select {
	case <-s.stopCh:
		return ErrClosed
	default:
	}

	select {
	case s.in <- j:
		return nil
	case <-s.stopCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-deadline:
		return ErrQueueFull
	}
}

func (s *Service) Snapshot() Snapshot {
	return Snapshot{
		Name:      s.Name,
		Parallel:  s.cfg.Parallel,
		Capacity:  cap(s.in),
		Queued:    len(s.in),
		Busy:      atomic.LoadInt64(&s.busy),
		Abandoned: atomic.LoadInt64(&s.abandoned),
		Timeout:   s.cfg.Timeout,
	}
}

package loader

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/logger"

	"github.com/ArtAndreev/timed-computing-service/client"
	"github.com/ArtAndreev/timed-computing-service/codec"
	"github.com/ArtAndreev/timed-computing-service/config"
	"github.com/ArtAndreev/timed-computing-service/stat"
	"github.com/ArtAndreev/timed-computing-service/task"
)

type Loader struct {
	cfg *config.Config

	rnd *rand.Rand
}

func New(cfg *config.Config) *Loader {
	return &Loader{
		cfg: cfg,

		rnd: rand.New(rand.NewSource(time.Now().UnixNano())), // nolint:gosec
	}
}

type request struct {
	name string
	req  task.Request
}

// Run sends every configured load to the service at cfg.Addr and returns the
// outcome counts per load name.
func (l *Loader) Run(ctx context.Context) (map[string]*stat.Stat, error) {
	loads := initLoads(l.cfg.Loads)

	loadCh := make(chan *request)
	wg := new(sync.WaitGroup)

	workers, err := l.runLoadWorkers(ctx, wg, loadCh)
	if err != nil {
		return nil, err
	}

	logger.Infof("started loading %s", l.cfg.Addr)

	began := time.Now()

	var id uint32

loop:
	for len(loads) > 0 {
		index := l.rnd.Intn(len(loads))
		load := loads[index]

		select {
		case loadCh <- &request{
			name: load.name,
			req:  task.Request{ID: id, Difficulty: load.difficulty(l.rnd)},
		}:
		case <-ctx.Done():
			break loop
		}

		id++
		load.cnt--

		if load.cnt <= 0 {
			loads = append(loads[:index], loads[index+1:]...)
		}
	}

	close(loadCh)
	wg.Wait()

	logger.Infof("ended loading, elapsed %s", time.Since(began))

	stats := aggregateStats(workers)
	logStats(l.cfg.Loads, stats)

	return stats, ctx.Err()
}

func (l *Loader) runLoadWorkers(ctx context.Context, wg *sync.WaitGroup, loadCh <-chan *request) ([]*worker, error) {
	workers := make([]*worker, 0, l.cfg.Parallel)

	var delay time.Duration
	if l.cfg.RPS > 0 {
		delay = time.Second / time.Duration(l.cfg.RPS)
	}

	for i := 0; i < l.cfg.Parallel; i++ {
		c, err := client.Dial(ctx, "load", l.cfg.Addr)
		if err != nil {
			for _, w := range workers {
				w.c.Close()
			}
			return nil, err
		}

		workers = append(workers, newWorker(c, delay, l.cfg.DrainTimeout, loadCh))
	}

	wg.Add(len(workers))
	for _, w := range workers {
		go w.Run(wg)
	}

	return workers, nil
}

func aggregateStats(workers []*worker) map[string]*stat.Stat {
	stats := make(map[string]*stat.Stat, 10)

	for _, w := range workers {
		for name, s := range w.Stat {
			total, ok := stats[name]
			if !ok {
				total = new(stat.Stat)
				stats[name] = total
			}
			total.Merge(s)
		}
	}

	return stats
}

func logStats(loadInfos map[string]*client.Config, stats map[string]*stat.Stat) {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	logger.Infof("=== Stats per load ===")

	for _, name := range names {
		s := stats[name]
		sent := float32(loadInfos[name].Count)

		logger.Infof("--- %s ---", name)
		logger.Infof("Completed: %d times (%.2f%%), elapsed min %d ms, mean %.2f ms, max %d ms",
			s.Completed, float32(s.Completed)/sent*100.0, s.MinElapsed, s.MeanElapsed(), s.MaxElapsed)
		logger.Infof("Timed out: %d times (%.2f%%)", s.TimedOut, float32(s.TimedOut)/sent*100.0)
		if s.Lost > 0 {
			logger.Warningf("Lost: %d times (%.2f%%)", s.Lost, float32(s.Lost)/sent*100.0)
		}
	}
}

type worker struct {
	Stat map[string]*stat.Stat

	c     *client.Client
	ch    <-chan *request
	delay time.Duration
	drain time.Duration

	mu      sync.Mutex
	pending map[uint32]string
}

func newWorker(c *client.Client, delay, drain time.Duration, ch <-chan *request) *worker {
	return &worker{
		Stat: make(map[string]*stat.Stat, 10),

		c:     c,
		ch:    ch,
		delay: delay,
		drain: drain,

		pending: make(map[uint32]string, 64),
	}
}

func (w *worker) Run(wg *sync.WaitGroup) {
	defer wg.Done()
	defer w.c.Close()

	received := make(chan struct{})
	go w.receive(received)

	for r := range w.ch {
		w.track(r)

		if err := w.c.Send(r.req); err != nil {
			logger.Warningf("%s: %s", w.c.GetName(), err)
		}

		if w.delay > 0 {
			time.Sleep(w.delay)
		}
	}

	if err := w.c.CloseWrite(); err != nil {
		logger.Warningf("%s: cannot close write side: %s", w.c.GetName(), err)
	}

	if w.drain > 0 {
		_ = w.c.SetReadDeadline(time.Now().Add(w.drain))
	}
	<-received

	w.mu.Lock()
	defer w.mu.Unlock()

	for id, name := range w.pending {
		w.statFor(name).AddLost(1)
		delete(w.pending, id)
	}
}

func (w *worker) receive(done chan<- struct{}) {
	defer close(done)

	for {
		resp, err := w.c.Recv()
		if errors.Is(err, codec.ErrBadResponse) {
			logger.Warningf("%s: %s", w.c.GetName(), err)
			continue
		}
		if err != nil {
			return
		}

		w.mu.Lock()
		name, ok := w.pending[resp.ID]
		if ok {
			delete(w.pending, resp.ID)
			w.statFor(name).Add(resp.Outcome)
		}
		w.mu.Unlock()

		if !ok {
			logger.Warningf("%s: response for unknown request %d", w.c.GetName(), resp.ID)
		}
	}
}

func (w *worker) track(r *request) {
	w.mu.Lock()
	w.pending[r.req.ID] = r.name
	w.statFor(r.name)
	w.mu.Unlock()
}

// statFor must be called with mu held.
func (w *worker) statFor(name string) *stat.Stat {
	s, ok := w.Stat[name]
	if !ok {
		s = new(stat.Stat)
		w.Stat[name] = s
	}

	return s
}

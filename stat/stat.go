package stat

import (
	"sync"

	"github.com/ArtAndreev/timed-computing-service/task"
)

// Stat aggregates responses seen by one load worker.
type Stat struct {
	mu sync.Mutex

	Completed int
	TimedOut  int
	Lost      int // sent but never answered

	MinElapsed uint64
	MaxElapsed uint64
	SumElapsed uint64
}

func (s *Stat) Add(o task.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed, ok := o.Elapsed()
	if !ok {
		s.TimedOut++
		return
	}

	if s.Completed == 0 || elapsed < s.MinElapsed {
		s.MinElapsed = elapsed
	}
	if elapsed > s.MaxElapsed {
		s.MaxElapsed = elapsed
	}
	s.SumElapsed += elapsed
	s.Completed++
}

func (s *Stat) AddLost(n int) {
	s.mu.Lock()
	s.Lost += n
	s.mu.Unlock()
}

// Merge folds other into s.
func (s *Stat) Merge(other *Stat) {
	other.mu.Lock()
	o := Stat{
		Completed:  other.Completed,
		TimedOut:   other.TimedOut,
		Lost:       other.Lost,
		MinElapsed: other.MinElapsed,
		MaxElapsed: other.MaxElapsed,
		SumElapsed: other.SumElapsed,
	}
	other.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if o.Completed > 0 {
		if s.Completed == 0 || o.MinElapsed < s.MinElapsed {
			s.MinElapsed = o.MinElapsed
		}
		if o.MaxElapsed > s.MaxElapsed {
			s.MaxElapsed = o.MaxElapsed
		}
	}
	s.SumElapsed += o.SumElapsed
	s.Completed += o.Completed
	s.TimedOut += o.TimedOut
	s.Lost += o.Lost
}

func (s *Stat) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.Completed + s.TimedOut + s.Lost
}

// MeanElapsed is the average completion time in milliseconds.
func (s *Stat) MeanElapsed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Completed == 0 {
		return 0
	}

	return float64(s.SumElapsed) / float64(s.Completed)
}

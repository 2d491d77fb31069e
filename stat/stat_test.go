package stat

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ArtAndreev/timed-computing-service/task"
)

func TestStatAdd(t *testing.T) {
	var s Stat

	s.Add(task.Completed(10))
	s.Add(task.Completed(2))
	s.Add(task.Completed(30))
	s.Add(task.TimedOut())
	s.AddLost(2)

	if s.Completed != 3 || s.TimedOut != 1 || s.Lost != 2 {
		t.Fatalf("counts = %d/%d/%d", s.Completed, s.TimedOut, s.Lost)
	}
	if s.MinElapsed != 2 || s.MaxElapsed != 30 {
		t.Errorf("min/max = %d/%d, want 2/30", s.MinElapsed, s.MaxElapsed)
	}
	if s.MeanElapsed() != 14 {
		t.Errorf("mean = %v, want 14", s.MeanElapsed())
	}
	if s.Total() != 6 {
		t.Errorf("total = %d, want 6", s.Total())
	}
}

func TestStatMerge(t *testing.T) {
	var a, b, empty Stat

	a.Add(task.Completed(5))
	b.Add(task.Completed(1))
	b.Add(task.Completed(9))
	b.Add(task.TimedOut())

	a.Merge(&b)
	a.Merge(&empty)

	if a.Completed != 3 || a.TimedOut != 1 {
		t.Fatalf("counts = %d/%d", a.Completed, a.TimedOut)
	}
	if a.MinElapsed != 1 || a.MaxElapsed != 9 || a.SumElapsed != 15 {
		t.Errorf("min/max/sum = %d/%d/%d", a.MinElapsed, a.MaxElapsed, a.SumElapsed)
	}
}

func TestRecordOutcome(t *testing.T) {
	completed := testutil.ToFloat64(requests.WithLabelValues("completed"))
	timedOut := testutil.ToFloat64(requests.WithLabelValues("timed_out"))

	RecordOutcome(task.Completed(3))
	RecordOutcome(task.TimedOut())
	RecordOutcome(task.TimedOut())

	if got := testutil.ToFloat64(requests.WithLabelValues("completed")) - completed; got != 1 {
		t.Errorf("completed delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(requests.WithLabelValues("timed_out")) - timedOut; got != 2 {
		t.Errorf("timed_out delta = %v, want 2", got)
	}
}

func TestRegisterMetricsTwice(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()
}

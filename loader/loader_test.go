package loader

import (
	"context"
	"math/rand"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ArtAndreev/timed-computing-service/client"
	"github.com/ArtAndreev/timed-computing-service/config"
	"github.com/ArtAndreev/timed-computing-service/server"
	"github.com/ArtAndreev/timed-computing-service/service"
)

func startBackend(t *testing.T, timeout time.Duration) string {
	t.Helper()

	srv := service.New("test", &service.Config{MaxClientConn: 64, Parallel: 2, Timeout: timeout})
	wg := new(sync.WaitGroup)
	srv.Run(wg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("cannot listen: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.New(&server.Config{}, srv).Serve(ctx, ln)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
		wg.Wait()
	})

	return ln.Addr().String()
}

func TestRunCountsEveryRequest(t *testing.T) {
	addr := startBackend(t, 5*time.Second)

	cfg := &config.Config{
		Addr: addr,
		Loads: map[string]*client.Config{
			"light": {Count: 20, DifficultyMax: 1000},
			"zero":  {Count: 10},
			"empty": {Count: 0},
		},
		Parallel:     3,
		DrainTimeout: 5 * time.Second,
	}

	stats, err := New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %s", err)
	}

	if _, ok := stats["empty"]; ok {
		t.Error("a load with zero count must not be sent")
	}

	for name, want := range map[string]int{"light": 20, "zero": 10} {
		s := stats[name]
		if s == nil {
			t.Fatalf("no stats for %s", name)
		}
		if s.Completed != want || s.TimedOut != 0 || s.Lost != 0 {
			t.Errorf("%s: completed/timed out/lost = %d/%d/%d, want %d/0/0", name, s.Completed, s.TimedOut, s.Lost, want)
		}
	}
}

func TestRunZeroTimeout(t *testing.T) {
	addr := startBackend(t, 0)

	cfg := &config.Config{
		Addr:         addr,
		Loads:        map[string]*client.Config{"any": {Count: 8, DifficultyMin: 1, DifficultyMax: 100}},
		Parallel:     2,
		RPS:          1000,
		DrainTimeout: 5 * time.Second,
	}

	stats, err := New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %s", err)
	}

	if s := stats["any"]; s == nil || s.TimedOut != 8 || s.Completed != 0 {
		t.Fatalf("expected every request to time out, got %+v", s)
	}
}

func TestRunDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := &config.Config{
		Addr:     addr,
		Loads:    map[string]*client.Config{"x": {Count: 1}},
		Parallel: 1,
	}

	if _, err := New(cfg).Run(context.Background()); err == nil {
		t.Fatal("expected a dial error")
	}
}

func TestLoadDifficultyInRange(t *testing.T) {
	loads := initLoads(map[string]*client.Config{
		"swapped": {Count: 1, DifficultyMin: 50, DifficultyMax: 10},
		"full":    {Count: 1, DifficultyMin: 0, DifficultyMax: 4294967295},
	})

	rnd := rand.New(rand.NewSource(1))
	for _, l := range loads {
		for i := 0; i < 1000; i++ {
			d := l.difficulty(rnd)
			if d < l.minDifficulty || d > l.maxDifficulty {
				t.Fatalf("%s: difficulty %d outside [%d, %d]", l.name, d, l.minDifficulty, l.maxDifficulty)
			}
		}
	}

	for _, l := range loads {
		if l.name == "swapped" && (l.minDifficulty != 10 || l.maxDifficulty != 50) {
			t.Errorf("swapped bounds not normalized: %+v", l)
		}
	}
}

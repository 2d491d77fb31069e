package service

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
)

const (
	jobPending int32 = iota
	jobDelivered
	jobAbandoned
)

type result struct {
	elapsed time.Duration
	err     error
}

type job struct {
	difficulty uint32
	state      int32

	done chan result // buffered, a worker never blocks on it
}

func newJob(difficulty uint32) *job {
	return &job{
		difficulty: difficulty,
		done:       make(chan result, 1),
	}
}

// abandon marks the job as no longer awaited. It reports false when the
// result had already been handed over.
func (j *job) abandon() bool {
	return atomic.CompareAndSwapInt32(&j.state, jobPending, jobAbandoned)
}

func (j *job) deliver(r result) bool {
	if !atomic.CompareAndSwapInt32(&j.state, jobPending, jobDelivered) {
		return false
	}
	j.done <- r

	return true
}

// spin busy-loops difficulty times and returns how long it took.
func spin(difficulty uint32) time.Duration {
	began := time.Now()

	var sink uint64
	for i := uint64(0); i < uint64(difficulty); i++ {
		sink += i
	}
	runtime.KeepAlive(sink)

	return time.Since(began)
}

func runWork(work func(uint32) time.Duration, difficulty uint32) (r result) {
	defer func() {
		if p := recover(); p != nil {
			r = result{err: fmt.Errorf("work panicked: %v", p)}
		}
	}()

	return result{elapsed: work(difficulty)}
}

func millis(d time.Duration) uint64 {
	if d < 0 {
		return 0
	}

	return uint64(d / time.Millisecond)
}

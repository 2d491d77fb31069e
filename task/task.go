package task

// Request is one decoded unit of synthetic work.
type Request struct {
	ID         uint32 // correlation token chosen by the caller
	Difficulty uint32 // busy loop iteration count
}

// Outcome is either Completed with the elapsed time or TimedOut.
type Outcome struct {
	timedOut bool
	elapsed  uint64 // milliseconds
}

func Completed(elapsedMS uint64) Outcome {
	return Outcome{elapsed: elapsedMS}
}

func TimedOut() Outcome {
	return Outcome{timedOut: true}
}

func (o Outcome) IsTimedOut() bool {
	return o.timedOut
}

// Elapsed returns the reported duration in milliseconds, ok is false for TimedOut.
func (o Outcome) Elapsed() (uint64, bool) {
	if o.timedOut {
		return 0, false
	}

	return o.elapsed, true
}

func (o Outcome) String() string {
	if o.timedOut {
		return "timed_out"
	}

	return "completed"
}

type Response struct {
	ID      uint32
	Outcome Outcome
}

package service

import (
	"time"
)

type Config struct {
	MaxClientConn int // capacity of the queue in front of the workers

	Timeout time.Duration // budget of every request, zero times out everything

	Parallel int // number of workers

	Verbose bool // log every rejected or failed work item
}

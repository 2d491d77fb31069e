package client

type Config struct {
	Count int // number of requests

	DifficultyMin uint32 // difficulty range requests are drawn from
	DifficultyMax uint32
}

package loader

import (
	"math/rand"

	"github.com/google/logger"

	"github.com/ArtAndreev/timed-computing-service/client"
)

type load struct {
	name string
	cnt  int

	minDifficulty uint32
	maxDifficulty uint32
}

func initLoads(loadParams map[string]*client.Config) []*load {
	loads := make([]*load, 0, len(loadParams))

	for n, l := range loadParams {
		if l.Count <= 0 {
			logger.Warningf("got load cfg %q with 0 load count: %+v", n, l)
			continue
		}

		minD, maxD := l.DifficultyMin, l.DifficultyMax
		if minD > maxD {
			minD, maxD = maxD, minD
		}

		loads = append(loads, &load{
			name: n,
			cnt:  l.Count,

			minDifficulty: minD,
			maxDifficulty: maxD,
		})
	}

	// For better random component
	rand.Shuffle(len(loads), func(i, j int) { loads[i], loads[j] = loads[j], loads[i] })

	return loads
}

func (l *load) difficulty(rnd *rand.Rand) uint32 {
	span := uint64(l.maxDifficulty) - uint64(l.minDifficulty) + 1

	return l.minDifficulty + uint32(rnd.Int63n(int64(span)))
}

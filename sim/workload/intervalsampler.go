package workload

import (
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// IntervalSampler returns the gap in microseconds until the next
// operation is issued.
type IntervalSampler interface {
	Next() int64
}

// UniformInterval draws from Uniform(0, 2*mean), which preserves the
// requested mean interarrival time under --intervaltype=unif.
type UniformInterval struct {
	dist distuv.Uniform
}

func NewUniformInterval(meanUs float64, rng *rand.Rand) *UniformInterval {
	return &UniformInterval{dist: distuv.Uniform{Min: 0, Max: 2 * meanUs, Src: rng}}
}

func (u *UniformInterval) Next() int64 {
	return int64(u.dist.Rand())
}

// PoissonInterval draws exponentially-distributed gaps, which is the
// interarrival process of a Poisson request stream, under
// --intervaltype=poiss.
type PoissonInterval struct {
	dist distuv.Exponential
}

func NewPoissonInterval(meanUs float64, rng *rand.Rand) *PoissonInterval {
	return &PoissonInterval{dist: distuv.Exponential{Rate: 1.0 / meanUs, Src: rng}}
}

func (p *PoissonInterval) Next() int64 {
	return int64(p.dist.Rand())
}

package workload

import (
	"math"
	"math/rand"
)

// KeySampler draws one key per call from a fixed key population.
type KeySampler interface {
	Next() string
}

// UniformKeySampler picks uniformly among its keys.
type UniformKeySampler struct {
	keys []string
	rng  *rand.Rand
}

func NewUniformKeySampler(keys []string, rng *rand.Rand) *UniformKeySampler {
	return &UniformKeySampler{keys: keys, rng: rng}
}

func (s *UniformKeySampler) Next() string {
	return s.keys[s.rng.Intn(len(s.keys))]
}

// ZipfKeySampler draws keys under a rank-biased Zipf law: the i-th key
// (0-indexed) has probability proportional to (i+1)^-alpha. The explicit
// cumulative table is the same construction the original benchmark's
// gen_zipf_dist used, kept here because gonum's distuv.Zipf parameterizes
// a different (Imax/V/S) family that doesn't correspond to rank-biased
// Zipf over a fixed key population.
type ZipfKeySampler struct {
	keys []string
	cdf  []float64
	rng  *rand.Rand
}

func NewZipfKeySampler(keys []string, alpha float64, rng *rand.Rand) *ZipfKeySampler {
	n := len(keys)
	weights := make([]float64, n)
	var norm float64
	for i := 0; i < n; i++ {
		w := 1.0 / math.Pow(float64(i+1), alpha)
		weights[i] = w
		norm += w
	}
	cdf := make([]float64, n)
	var running float64
	for i, w := range weights {
		running += w / norm
		cdf[i] = running
	}
	return &ZipfKeySampler{keys: keys, cdf: cdf, rng: rng}
}

func (s *ZipfKeySampler) Next() string {
	target := s.rng.Float64()
	lo, hi := 0, len(s.cdf)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if s.cdf[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return s.keys[lo]
}

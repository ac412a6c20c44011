// Package workload generates the (Operation, virtual_time) stream that
// drives a client application: key and interarrival sampling, GET/PUT/DEL
// ratio selection, and random alphanumeric keys and PUT values. The
// --initkey conversion of a first GET into a PUT is done by
// memcachekv.Client, not here.
package workload

import (
	"fmt"
	"math/rand"

	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

const randStringAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randString matches the original benchmark's rand_string: a uniformly
// random alphanumeric string of the given length.
func randString(rng *rand.Rand, length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = randStringAlphabet[rng.Intn(len(randStringAlphabet))]
	}
	return string(b)
}

// Config is the flat set of workload knobs a CLI run assembles from its
// flags (§6's "Workload knobs").
type Config struct {
	NumKeys      int
	KeyLength    int
	ValueLength  int
	GetRatio     float64
	PutRatio     float64
	KeyType      string // "unif" | "zipf"
	Alpha        float64
	IntervalType string // "unif" | "poiss"
	IntervalUs   float64
	Duration     int64
}

// Validate reports a malformed-argument error matching exit code 1.
func (c Config) Validate() error {
	if c.NumKeys < 1 {
		return fmt.Errorf("workload: keys must be >= 1, got %d", c.NumKeys)
	}
	if c.KeyLength < 1 {
		return fmt.Errorf("workload: length must be >= 1, got %d", c.KeyLength)
	}
	if c.GetRatio < 0 || c.PutRatio < 0 || c.GetRatio+c.PutRatio > 1 {
		return fmt.Errorf("workload: gets+puts must be within [0,1], got gets=%v puts=%v", c.GetRatio, c.PutRatio)
	}
	if c.KeyType != "unif" && c.KeyType != "zipf" {
		return fmt.Errorf("workload: unknown keytype %q", c.KeyType)
	}
	if c.IntervalType != "unif" && c.IntervalType != "poiss" {
		return fmt.Errorf("workload: unknown intervaltype %q", c.IntervalType)
	}
	if c.IntervalUs <= 0 {
		return fmt.Errorf("workload: interval must be > 0, got %v", c.IntervalUs)
	}
	return nil
}

// Generator implements kv.WorkloadGenerator: it draws a key and an
// operation type per call, advancing a monotonic virtual clock by a
// sampled interarrival gap, and halts (Next returns ok=false) once that
// clock passes Duration — "workload exhaustion" per §4.9.
type Generator struct {
	cfg      Config
	keys     KeySampler
	interval IntervalSampler
	rng      *rand.Rand
	timer    int64
}

var _ kv.WorkloadGenerator = (*Generator)(nil)

// NewGenerator builds the key population and samplers from cfg and
// returns a ready-to-drain Generator.
func NewGenerator(cfg Config, rng *rand.Rand) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	keyPool := make([]string, cfg.NumKeys)
	for i := range keyPool {
		keyPool[i] = randString(rng, cfg.KeyLength)
	}

	var keys KeySampler
	switch cfg.KeyType {
	case "zipf":
		keys = NewZipfKeySampler(keyPool, cfg.Alpha, rng)
	default:
		keys = NewUniformKeySampler(keyPool, rng)
	}

	var interval IntervalSampler
	switch cfg.IntervalType {
	case "poiss":
		interval = NewPoissonInterval(cfg.IntervalUs, rng)
	default:
		interval = NewUniformInterval(cfg.IntervalUs, rng)
	}

	return &Generator{cfg: cfg, keys: keys, interval: interval, rng: rng}, nil
}

// Next draws the next (Operation, issueTime) pair, or ok=false once the
// virtual clock has advanced past the configured duration.
func (g *Generator) Next() (kv.Operation, int64, bool) {
	g.timer += g.interval.Next()
	if g.timer > g.cfg.Duration {
		return kv.Operation{}, 0, false
	}

	key := g.keys.Next()
	choice := g.rng.Float64()

	var op kv.Operation
	switch {
	case choice < g.cfg.GetRatio:
		op = kv.Operation{Type: kv.GET, Key: key}
	case choice < g.cfg.GetRatio+g.cfg.PutRatio:
		op = kv.Operation{Type: kv.PUT, Key: key, Value: randString(g.rng, g.cfg.ValueLength)}
	default:
		op = kv.Operation{Type: kv.DEL, Key: key}
	}
	return op, g.timer, true
}

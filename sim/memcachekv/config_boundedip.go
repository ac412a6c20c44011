package memcachekv

import (
	"fmt"

	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

// IPLoadMode selects which of instantaneous load, projected load, or both
// must be exceeded before BoundedIPLoadConfig migrates a GET.
type IPLoadMode int

const (
	ILOAD IPLoadMode = iota
	PLOAD
	IPLOAD
)

// ParseIPLoadMode parses the CLI --iploadmode value for the vload family.
func ParseIPLoadMode(s string) (IPLoadMode, error) {
	switch s {
	case "iload":
		return ILOAD, nil
	case "pload":
		return PLOAD, nil
	case "ipload":
		return IPLOAD, nil
	default:
		return 0, fmt.Errorf("unknown instantaneous/projected load mode %q", s)
	}
}

type keyRate struct {
	count int64
	first int64
	last  int64
}

// rate returns ops/sec over [first, last]; 0 if fewer than two samples or
// a zero window, per spec's key-rate definition.
func (k *keyRate) rate() float64 {
	if k.count <= 1 {
		return 0
	}
	window := float64(k.last-k.first) / 1e6
	if window <= 0 {
		return 0
	}
	return float64(k.count) / window
}

// BoundedIPLoadConfig tracks, per node, instantaneous load (outstanding
// requests) and projected load (sum of per-key rates currently routed to
// that node), and migrates an overloaded GET per IPLoadMode.
type BoundedIPLoadConfig struct {
	numNodes int
	c        float64
	mode     IPLoadMode
	fallback *StaticConfig

	mapping map[string]int // routing: key -> destination node

	iload    []int64
	totalOut int64
	pload    []float64

	keyOwner map[string]int
	rates    map[string]*keyRate
}

// NewBoundedIPLoadConfig constructs a BoundedIPLoadConfig over numNodes
// nodes with bound c (≥ 1) in the given mode.
func NewBoundedIPLoadConfig(numNodes int, c float64, mode IPLoadMode) (*BoundedIPLoadConfig, error) {
	if numNodes < 1 {
		return nil, fmt.Errorf("memcachekv: BoundedIPLoadConfig requires at least one node, got %d", numNodes)
	}
	if c < 1 {
		return nil, fmt.Errorf("memcachekv: BoundedIPLoadConfig requires load_bound c >= 1, got %v", c)
	}
	fallback, err := NewStaticConfig(numNodes, 1)
	if err != nil {
		return nil, err
	}
	return &BoundedIPLoadConfig{
		numNodes: numNodes,
		c:        c,
		mode:     mode,
		fallback: fallback,
		mapping:  make(map[string]int),
		iload:    make([]int64, numNodes),
		pload:    make([]float64, numNodes),
		keyOwner: make(map[string]int),
		rates:    make(map[string]*keyRate),
	}, nil
}

func (c *BoundedIPLoadConfig) currentNode(key string) int {
	if n, ok := c.mapping[key]; ok {
		return n
	}
	base, _ := c.fallback.Map(key, kv.GET)
	return base.Destinations[0]
}

func (c *BoundedIPLoadConfig) meanIload() float64 {
	var sum int64
	for _, v := range c.iload {
		sum += v
	}
	return float64(sum) / float64(c.numNodes)
}

func (c *BoundedIPLoadConfig) meanPload() float64 {
	var sum float64
	for _, v := range c.pload {
		sum += v
	}
	return sum / float64(c.numNodes)
}

func (c *BoundedIPLoadConfig) Map(key string, opType kv.OpType) (MappedNodes, error) {
	node := c.currentNode(key)
	if opType != kv.GET {
		return MappedNodes{Destinations: []int{node}}, nil
	}

	meanI, meanP := c.meanIload(), c.meanPload()
	overloadedI := float64(c.iload[node]) > c.c*meanI
	overloadedP := c.pload[node] > c.c*meanP

	var trigger bool
	switch c.mode {
	case ILOAD:
		trigger = overloadedI
	case PLOAD:
		trigger = overloadedP
	case IPLOAD:
		trigger = overloadedI && overloadedP
	}
	if !trigger {
		return MappedNodes{Destinations: []int{node}}, nil
	}

	target, found := c.pickMigrationTarget(node, meanI, meanP)
	if !found {
		return MappedNodes{Destinations: []int{node}}, nil
	}
	c.mapping[key] = target
	return MappedNodes{Destinations: []int{node}, MigrationTargets: []int{target}}, nil
}

// pickMigrationTarget chooses a destination per mode: greedily lowest
// relevant load for ILOAD/PLOAD, or (for IPLOAD) the lowest-pload node
// that also fits under the iload bound.
func (c *BoundedIPLoadConfig) pickMigrationTarget(exclude int, meanI, meanP float64) (int, bool) {
	type cand struct {
		node int
		key  float64
	}
	cands := make([]cand, 0, c.numNodes-1)
	for n := 0; n < c.numNodes; n++ {
		if n == exclude {
			continue
		}
		switch c.mode {
		case ILOAD:
			cands = append(cands, cand{n, float64(c.iload[n])})
		default:
			cands = append(cands, cand{n, c.pload[n]})
		}
	}
	// simple insertion sort ascending by key; candidate counts are small
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && cands[j].key < cands[j-1].key; j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}

	if c.mode != IPLOAD {
		if len(cands) == 0 {
			return 0, false
		}
		return cands[0].node, true
	}
	for _, cd := range cands {
		if float64(c.iload[cd.node]) <= c.c*meanI {
			return cd.node, true
		}
	}
	return 0, false
}

func (c *BoundedIPLoadConfig) OpSend(nodeID int, op kv.Operation, time int64) {
	c.iload[nodeID]++
	c.totalOut++

	owner, ok := c.keyOwner[op.Key]
	if !ok {
		owner = c.currentNode(op.Key)
	}
	tracker, ok := c.rates[op.Key]
	if !ok {
		tracker = &keyRate{}
		c.rates[op.Key] = tracker
	}
	oldRate := tracker.rate()
	c.pload[owner] -= oldRate

	tracker.count++
	if tracker.count == 1 {
		tracker.first = time
	}
	tracker.last = time
	newRate := tracker.rate()

	c.keyOwner[op.Key] = nodeID
	c.pload[nodeID] += newRate
}

func (c *BoundedIPLoadConfig) OpReceive(nodeID int) {
	if c.iload[nodeID] > 0 {
		c.iload[nodeID]--
		c.totalOut--
	}
}

func (c *BoundedIPLoadConfig) Run(int64) {}

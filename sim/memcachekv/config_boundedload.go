package memcachekv

import (
	"fmt"

	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

// BoundedLoadConfig implements consistent hashing with bounded load: a
// key's writes and already-migrated reads always route to its current
// mapping, but a GET whose mapped node is overloaded (outstanding count
// over c · average) is served by the current node as usual while a
// migration hint tells the server to fan the value out to the next node
// (walking forward modulo N) whose outstanding count fits, and that node
// becomes the key's mapping for future requests.
type BoundedLoadConfig struct {
	numNodes int
	c        float64
	fallback *StaticConfig

	mapping     map[string]int
	outstanding []int64
	totalOut    int64
}

// NewBoundedLoadConfig constructs a BoundedLoadConfig over numNodes nodes
// with bound c (must be ≥ 1, per spec's policy-bounds error class).
func NewBoundedLoadConfig(numNodes int, c float64) (*BoundedLoadConfig, error) {
	if numNodes < 1 {
		return nil, fmt.Errorf("memcachekv: BoundedLoadConfig requires at least one node, got %d", numNodes)
	}
	if c < 1 {
		return nil, fmt.Errorf("memcachekv: BoundedLoadConfig requires load_bound c >= 1, got %v", c)
	}
	fallback, err := NewStaticConfig(numNodes, 1)
	if err != nil {
		return nil, err
	}
	return &BoundedLoadConfig{
		numNodes:    numNodes,
		c:           c,
		fallback:    fallback,
		mapping:     make(map[string]int),
		outstanding: make([]int64, numNodes),
	}, nil
}

func (c *BoundedLoadConfig) currentNode(key string) int {
	if n, ok := c.mapping[key]; ok {
		return n
	}
	base, _ := c.fallback.Map(key, kv.GET)
	return base.Destinations[0]
}

func (c *BoundedLoadConfig) Map(key string, opType kv.OpType) (MappedNodes, error) {
	node := c.currentNode(key)
	if opType != kv.GET {
		return MappedNodes{Destinations: []int{node}}, nil
	}

	expected := c.c * float64(c.totalOut) / float64(c.numNodes)
	if float64(c.outstanding[node]) <= expected {
		return MappedNodes{Destinations: []int{node}}, nil
	}

	for i := 1; i < c.numNodes; i++ {
		cand := (node + i) % c.numNodes
		if float64(c.outstanding[cand]) <= expected {
			c.mapping[key] = cand
			return MappedNodes{Destinations: []int{node}, MigrationTargets: []int{cand}}, nil
		}
	}
	return MappedNodes{Destinations: []int{node}}, nil
}

func (c *BoundedLoadConfig) OpSend(nodeID int, _ kv.Operation, _ int64) {
	c.outstanding[nodeID]++
	c.totalOut++
}

func (c *BoundedLoadConfig) OpReceive(nodeID int) {
	if c.outstanding[nodeID] > 0 {
		c.outstanding[nodeID]--
		c.totalOut--
	}
}

func (c *BoundedLoadConfig) Run(int64) {}

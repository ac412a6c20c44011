package memcachekv

import (
	"fmt"

	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

// BoundedAverageLoadConfig tracks each node's count/elapsed request rate
// and migrates an overloaded GET to the globally minimum-average node.
type BoundedAverageLoadConfig struct {
	numNodes int
	c        float64
	fallback *StaticConfig

	mapping map[string]int

	count     []int64
	firstSend []int64
	haveFirst []bool
	lastTime  int64
}

// NewBoundedAverageLoadConfig constructs a BoundedAverageLoadConfig over
// numNodes nodes with bound c (≥ 1).
func NewBoundedAverageLoadConfig(numNodes int, c float64) (*BoundedAverageLoadConfig, error) {
	if numNodes < 1 {
		return nil, fmt.Errorf("memcachekv: BoundedAverageLoadConfig requires at least one node, got %d", numNodes)
	}
	if c < 1 {
		return nil, fmt.Errorf("memcachekv: BoundedAverageLoadConfig requires load_bound c >= 1, got %v", c)
	}
	fallback, err := NewStaticConfig(numNodes, 1)
	if err != nil {
		return nil, err
	}
	return &BoundedAverageLoadConfig{
		numNodes:  numNodes,
		c:         c,
		fallback:  fallback,
		mapping:   make(map[string]int),
		count:     make([]int64, numNodes),
		firstSend: make([]int64, numNodes),
		haveFirst: make([]bool, numNodes),
	}, nil
}

func (c *BoundedAverageLoadConfig) currentNode(key string) int {
	if n, ok := c.mapping[key]; ok {
		return n
	}
	base, _ := c.fallback.Map(key, kv.GET)
	return base.Destinations[0]
}

func (c *BoundedAverageLoadConfig) average(node int) float64 {
	if !c.haveFirst[node] {
		return 0
	}
	elapsed := float64(c.lastTime-c.firstSend[node]) / 1e6
	if elapsed <= 0 {
		return 0
	}
	return float64(c.count[node]) / elapsed
}

func (c *BoundedAverageLoadConfig) mean() float64 {
	var sum float64
	for n := 0; n < c.numNodes; n++ {
		sum += c.average(n)
	}
	return sum / float64(c.numNodes)
}

func (c *BoundedAverageLoadConfig) Map(key string, opType kv.OpType) (MappedNodes, error) {
	node := c.currentNode(key)
	if opType != kv.GET {
		return MappedNodes{Destinations: []int{node}}, nil
	}

	mean := c.mean()
	if c.average(node) <= c.c*mean {
		return MappedNodes{Destinations: []int{node}}, nil
	}

	minNode, minAvg := node, c.average(node)
	for n := 0; n < c.numNodes; n++ {
		if a := c.average(n); a < minAvg {
			minNode, minAvg = n, a
		}
	}
	if minNode == node {
		return MappedNodes{Destinations: []int{node}}, nil
	}
	c.mapping[key] = minNode
	return MappedNodes{Destinations: []int{node}, MigrationTargets: []int{minNode}}, nil
}

func (c *BoundedAverageLoadConfig) OpSend(nodeID int, _ kv.Operation, time int64) {
	if !c.haveFirst[nodeID] {
		c.firstSend[nodeID] = time
		c.haveFirst[nodeID] = true
	}
	c.count[nodeID]++
	if time > c.lastTime {
		c.lastTime = time
	}
}

func (c *BoundedAverageLoadConfig) OpReceive(int) {}

func (c *BoundedAverageLoadConfig) Run(int64) {}

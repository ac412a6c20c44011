package memcachekv

import (
	"fmt"

	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

// RoutingConfig records the current key→node mapping only; it makes no
// migration decisions itself (§4.7). Migration is the migration-aware
// Server's job (§4.8): RoutingConfig implements MigrationAdvisor so the
// server can inspect node-level instantaneous/projected load after each
// op and ask RoutingConfig to update the mapping once it migrates a key.
type RoutingConfig struct {
	numNodes int
	c        float64
	fallback *StaticConfig

	mapping map[string]int

	iload    []int64
	pload    []float64
	keyOwner map[string]int
	rates    map[string]*keyRate
}

// NewRoutingConfig constructs a RoutingConfig over numNodes nodes with
// migration bound c (≥ 1).
func NewRoutingConfig(numNodes int, c float64) (*RoutingConfig, error) {
	if numNodes < 1 {
		return nil, fmt.Errorf("memcachekv: RoutingConfig requires at least one node, got %d", numNodes)
	}
	if c < 1 {
		return nil, fmt.Errorf("memcachekv: RoutingConfig requires load_bound c >= 1, got %v", c)
	}
	fallback, err := NewStaticConfig(numNodes, 1)
	if err != nil {
		return nil, err
	}
	return &RoutingConfig{
		numNodes: numNodes,
		c:        c,
		fallback: fallback,
		mapping:  make(map[string]int),
		iload:    make([]int64, numNodes),
		pload:    make([]float64, numNodes),
		keyOwner: make(map[string]int),
		rates:    make(map[string]*keyRate),
	}, nil
}

func (c *RoutingConfig) currentNode(key string) int {
	if n, ok := c.mapping[key]; ok {
		return n
	}
	base, _ := c.fallback.Map(key, kv.GET)
	return base.Destinations[0]
}

func (c *RoutingConfig) Map(key string, _ kv.OpType) (MappedNodes, error) {
	return MappedNodes{Destinations: []int{c.currentNode(key)}}, nil
}

func (c *RoutingConfig) meanIload() float64 {
	var sum int64
	for _, v := range c.iload {
		sum += v
	}
	return float64(sum) / float64(c.numNodes)
}

func (c *RoutingConfig) meanPload() float64 {
	var sum float64
	for _, v := range c.pload {
		sum += v
	}
	return sum / float64(c.numNodes)
}

func (c *RoutingConfig) OpSend(nodeID int, op kv.Operation, time int64) {
	c.iload[nodeID]++

	owner, ok := c.keyOwner[op.Key]
	if !ok {
		owner = c.currentNode(op.Key)
	}
	tracker, ok := c.rates[op.Key]
	if !ok {
		tracker = &keyRate{}
		c.rates[op.Key] = tracker
	}
	c.pload[owner] -= tracker.rate()
	tracker.count++
	if tracker.count == 1 {
		tracker.first = time
	}
	tracker.last = time
	c.keyOwner[op.Key] = nodeID
	c.pload[nodeID] += tracker.rate()
}

func (c *RoutingConfig) OpReceive(nodeID int) {
	if c.iload[nodeID] > 0 {
		c.iload[nodeID]--
	}
}

func (c *RoutingConfig) Run(int64) {}

// AfterOp implements MigrationAdvisor: if nodeID's instantaneous and
// projected load both exceed c·mean, it scans nodes in pload-ascending
// order for the first whose iload also fits under c·meanIload.
func (c *RoutingConfig) AfterOp(nodeID int, _ kv.Operation, _ int64) (int, bool) {
	meanI, meanP := c.meanIload(), c.meanPload()
	if float64(c.iload[nodeID]) <= c.c*meanI || c.pload[nodeID] <= c.c*meanP {
		return 0, false
	}

	type cand struct {
		node int
		load float64
	}
	cands := make([]cand, 0, c.numNodes-1)
	for n := 0; n < c.numNodes; n++ {
		if n == nodeID {
			continue
		}
		cands = append(cands, cand{n, c.pload[n]})
	}
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && cands[j].load < cands[j-1].load; j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}
	for _, cd := range cands {
		if float64(c.iload[cd.node]) <= c.c*meanI {
			return cd.node, true
		}
	}
	return 0, false
}

// ReportMigration records that dst is now the canonical holder of key.
func (c *RoutingConfig) ReportMigration(key string, _, dst int) {
	c.mapping[key] = dst
}

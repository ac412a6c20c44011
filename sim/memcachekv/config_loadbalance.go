package memcachekv

import (
	"fmt"
	"strconv"

	"github.com/pegasus-sim/pegasus-sim/sim"
	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

// LoadBalanceConfig periodically collects per-key request counts and
// greedily repacks keys onto nodes: the hottest remaining key goes on the
// coolest node if that node's accumulated load plus the key's rate still
// fits under maxRate, otherwise the key is replicated across progressively
// more of the coolest nodes until each one's share keeps it under maxRate
// (or every node has been tried). The resulting placement is authoritative
// until the next report interval.
type LoadBalanceConfig struct {
	numNodes       int
	maxRate        float64
	reportInterval int64

	fallback *StaticConfig

	counters   map[string]int64
	mapping    map[string][]int
	lastReport int64
}

// NewLoadBalanceConfig constructs a LoadBalanceConfig over numNodes nodes,
// rebalancing every reportIntervalUs microseconds; maxRate (requests/sec)
// caps the load the rebalance packs onto any one node.
func NewLoadBalanceConfig(numNodes int, maxRate float64, reportIntervalUs int64) (*LoadBalanceConfig, error) {
	if numNodes < 1 {
		return nil, fmt.Errorf("memcachekv: LoadBalanceConfig requires at least one node, got %d", numNodes)
	}
	if maxRate <= 0 {
		return nil, fmt.Errorf("memcachekv: LoadBalanceConfig requires max_rate > 0, got %v", maxRate)
	}
	fallback, err := NewStaticConfig(numNodes, 1)
	if err != nil {
		return nil, err
	}
	return &LoadBalanceConfig{
		numNodes:       numNodes,
		maxRate:        maxRate,
		reportInterval: reportIntervalUs,
		fallback:       fallback,
		counters:       make(map[string]int64),
		mapping:        make(map[string][]int),
	}, nil
}

func (c *LoadBalanceConfig) Map(key string, opType kv.OpType) (MappedNodes, error) {
	if dests, ok := c.mapping[key]; ok {
		cp := make([]int, len(dests))
		copy(cp, dests)
		return MappedNodes{Destinations: cp}, nil
	}
	return c.fallback.Map(key, opType)
}

func (c *LoadBalanceConfig) OpSend(_ int, op kv.Operation, _ int64) {
	c.counters[op.Key]++
}

func (c *LoadBalanceConfig) OpReceive(int) {}

func (c *LoadBalanceConfig) Run(time int64) {
	if c.reportInterval <= 0 {
		return
	}
	if time-c.lastReport < c.reportInterval {
		return
	}
	c.lastReport = time
	c.Rebalance()
}

// Rebalance recomputes the key→node placement from the counters
// accumulated since the last call, then resets them. Exported so tests
// can trigger it directly instead of waiting for Run's report interval
// to elapse.
func (c *LoadBalanceConfig) Rebalance() {
	windowSec := float64(c.reportInterval) / 1e6
	if windowSec <= 0 {
		windowSec = 1
	}

	keyRates := sim.NewLoadHeap()
	for key, count := range c.counters {
		keyRates.Insert(key, float64(count)/windowSec)
	}

	nodeLoads := sim.NewLoadHeap()
	for n := 0; n < c.numNodes; n++ {
		nodeLoads.Insert(fmt.Sprintf("%d", n), 0)
	}

	mapping := make(map[string][]int, keyRates.Len())
	for {
		key, rate, ok := keyRates.PopMax()
		if !ok {
			break
		}
		if _, coolestLoad, ok := nodeLoads.Peek(); ok && coolestLoad+rate <= c.maxRate {
			node, load, _ := nodeLoads.PopMin()
			mapping[key] = []int{parseNodeKey(node)}
			nodeLoads.Insert(node, load+rate)
			continue
		}

		// Grow the replica set one coolest-node-at-a-time until every node
		// in it would stay under maxRate once it takes an equal share of
		// rate, or until every node has been tried.
		popped := make([]struct {
			key  string
			load float64
		}, 0, c.numNodes)
		for {
			node, load, ok := nodeLoads.PopMin()
			if !ok {
				break
			}
			popped = append(popped, struct {
				key  string
				load float64
			}{node, load})

			perReplica := rate / float64(len(popped))
			fits := true
			for _, p := range popped {
				if p.load+perReplica > c.maxRate {
					fits = false
					break
				}
			}
			if fits {
				break
			}
		}
		perReplica := rate / float64(len(popped))
		dests := make([]int, 0, len(popped))
		for _, p := range popped {
			dests = append(dests, parseNodeKey(p.key))
			nodeLoads.Insert(p.key, p.load+perReplica)
		}
		mapping[key] = dests
	}

	c.mapping = mapping
	c.counters = make(map[string]int64)
}

func parseNodeKey(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

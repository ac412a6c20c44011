package memcachekv

import (
	"testing"

	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

func TestLoadBalanceConfig_Map_UsesFallbackBeforeFirstRebalance(t *testing.T) {
	// GIVEN a fresh LoadBalanceConfig with no rebalance yet performed
	c, err := NewLoadBalanceConfig(4, 10, 1000000)
	if err != nil {
		t.Fatalf("NewLoadBalanceConfig: %v", err)
	}

	// WHEN Map is called
	m, err := c.Map("k", kv.GET)

	// THEN it falls back to the static hash mapping
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	want, _ := c.fallback.Map("k", kv.GET)
	if m.Destinations[0] != want.Destinations[0] {
		t.Errorf("Map before rebalance: got %v, want fallback %v", m.Destinations, want.Destinations)
	}
}

func TestLoadBalanceConfig_Rebalance_PlacesLightKeysSingly(t *testing.T) {
	// GIVEN a config where one key was requested a few times, well under
	// maxRate
	c, err := NewLoadBalanceConfig(4, 100, 1000000)
	if err != nil {
		t.Fatalf("NewLoadBalanceConfig: %v", err)
	}
	for i := 0; i < 5; i++ {
		c.OpSend(0, kv.Operation{Key: "cool"}, 0)
	}

	// WHEN Rebalance is run
	c.Rebalance()

	// THEN the key is placed on exactly one node
	m, _ := c.Map("cool", kv.GET)
	if len(m.Destinations) != 1 {
		t.Errorf("Destinations for a light key: got %v, want exactly 1", m.Destinations)
	}
}

func TestLoadBalanceConfig_Rebalance_ReplicatesHotKeyAcrossNodes(t *testing.T) {
	// GIVEN a config where one key's measured rate is far above maxRate
	c, err := NewLoadBalanceConfig(4, 10, 1000000)
	if err != nil {
		t.Fatalf("NewLoadBalanceConfig: %v", err)
	}
	for i := 0; i < 100; i++ {
		c.OpSend(0, kv.Operation{Key: "hot"}, 0)
	}

	// WHEN Rebalance is run
	c.Rebalance()

	// THEN the key is replicated across more than one node to bring its
	// per-replica rate under maxRate
	m, _ := c.Map("hot", kv.GET)
	if len(m.Destinations) <= 1 {
		t.Errorf("Destinations for a hot key: got %v, want more than 1", m.Destinations)
	}
}

func TestLoadBalanceConfig_Rebalance_ConsidersNodesAccumulatedLoad(t *testing.T) {
	// GIVEN 2 nodes with max_rate=100 and three keys rated 90, 90, and 50
	// req/sec: each of the first two keys alone fits under max_rate, but by
	// the time the third key is placed, both nodes already carry a 90-rate
	// key, so dumping all 50 onto either one would push it to 140
	c, err := NewLoadBalanceConfig(2, 100, 1000000)
	if err != nil {
		t.Fatalf("NewLoadBalanceConfig: %v", err)
	}
	for i := 0; i < 90; i++ {
		c.OpSend(0, kv.Operation{Key: "a"}, 0)
		c.OpSend(0, kv.Operation{Key: "b"}, 0)
	}
	for i := 0; i < 50; i++ {
		c.OpSend(0, kv.Operation{Key: "c"}, 0)
	}

	// WHEN Rebalance is run
	c.Rebalance()

	// THEN the third key is replicated across both nodes rather than placed
	// singly on an already-loaded node
	m, _ := c.Map("c", kv.GET)
	if len(m.Destinations) != 2 {
		t.Errorf("Destinations for key c: got %v, want both nodes (replicated)", m.Destinations)
	}
}

func TestLoadBalanceConfig_Rebalance_ResetsCounters(t *testing.T) {
	// GIVEN a config with recorded sends
	c, err := NewLoadBalanceConfig(4, 10, 1000000)
	if err != nil {
		t.Fatalf("NewLoadBalanceConfig: %v", err)
	}
	c.OpSend(0, kv.Operation{Key: "k"}, 0)

	// WHEN Rebalance runs
	c.Rebalance()

	// THEN the per-key counters are cleared for the next window
	if len(c.counters) != 0 {
		t.Errorf("counters after Rebalance: got %v, want empty", c.counters)
	}
}

func TestLoadBalanceConfig_Run_OnlyRebalancesAtReportInterval(t *testing.T) {
	// GIVEN a config with a 1s report interval and one pending send
	c, err := NewLoadBalanceConfig(4, 10, 1000000)
	if err != nil {
		t.Fatalf("NewLoadBalanceConfig: %v", err)
	}
	c.OpSend(0, kv.Operation{Key: "k"}, 0)

	// WHEN Run is called before the interval elapses
	c.Run(500000)

	// THEN no rebalance happened yet (counters still populated)
	if len(c.counters) == 0 {
		t.Fatal("counters cleared before report interval elapsed")
	}

	// WHEN Run is called after the interval elapses
	c.Run(1000000)

	// THEN a rebalance happened (counters reset)
	if len(c.counters) != 0 {
		t.Error("Run did not rebalance once the report interval elapsed")
	}
}

func TestNewLoadBalanceConfig_RejectsNonPositiveMaxRate(t *testing.T) {
	if _, err := NewLoadBalanceConfig(4, 0, 1000000); err == nil {
		t.Error("NewLoadBalanceConfig with maxRate<=0 did not return an error")
	}
}

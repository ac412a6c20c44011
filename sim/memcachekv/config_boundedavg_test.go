package memcachekv

import (
	"testing"

	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

func TestBoundedAverageLoadConfig_Map_MigratesToGlobalMinimum(t *testing.T) {
	// GIVEN a config where node 0 has a high measured rate and node 3 has
	// none
	c, err := NewBoundedAverageLoadConfig(4, 1.0)
	if err != nil {
		t.Fatalf("NewBoundedAverageLoadConfig: %v", err)
	}
	base, _ := c.fallback.Map("hot", kv.GET)
	node := base.Destinations[0]
	for i := int64(0); i < 10; i++ {
		c.OpSend(node, kv.Operation{}, i*1000000)
	}
	c.lastTime = 10 * 1000000

	// WHEN a GET is mapped for that key
	m, err := c.Map("hot", kv.GET)

	// THEN it migrates away from the overloaded node to whichever node has
	// the lowest average rate
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(m.MigrationTargets) != 1 {
		t.Fatalf("expected a migration target, got %+v", m)
	}
	if m.MigrationTargets[0] == node {
		t.Error("migration target equals the overloaded node")
	}
}

func TestBoundedAverageLoadConfig_Map_NoMigrationWhenUnderBound(t *testing.T) {
	// GIVEN a fresh config with no recorded load
	c, err := NewBoundedAverageLoadConfig(4, 1.0)
	if err != nil {
		t.Fatalf("NewBoundedAverageLoadConfig: %v", err)
	}

	// WHEN a GET is mapped
	m, err := c.Map("k", kv.GET)

	// THEN it stays on the fallback mapping with no migration
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(m.MigrationTargets) != 0 {
		t.Errorf("unexpected migration with zero load: %+v", m)
	}
}

func TestBoundedAverageLoadConfig_average_NeverRecorded_ReturnsZero(t *testing.T) {
	// GIVEN a config with no OpSend calls for node 1
	c, err := NewBoundedAverageLoadConfig(4, 1.0)
	if err != nil {
		t.Fatalf("NewBoundedAverageLoadConfig: %v", err)
	}

	// WHEN average is computed for that node
	got := c.average(1)

	// THEN it returns 0 instead of dividing by a zero elapsed window
	if got != 0 {
		t.Errorf("average for untouched node: got %v, want 0", got)
	}
}

package memcachekv

import (
	"testing"

	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

func TestRoutingConfig_Map_UsesFallbackUntilMigrationReported(t *testing.T) {
	// GIVEN a fresh RoutingConfig
	c, err := NewRoutingConfig(4, 1.0)
	if err != nil {
		t.Fatalf("NewRoutingConfig: %v", err)
	}

	// WHEN Map is called before any migration has been reported
	m, err := c.Map("k", kv.GET)

	// THEN it matches the fallback static mapping
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	want, _ := c.fallback.Map("k", kv.GET)
	if m.Destinations[0] != want.Destinations[0] {
		t.Errorf("Map: got %v, want fallback %v", m.Destinations, want.Destinations)
	}
}

func TestRoutingConfig_ReportMigration_UpdatesMapping(t *testing.T) {
	// GIVEN a RoutingConfig and a key currently mapped by the fallback
	c, err := NewRoutingConfig(4, 1.0)
	if err != nil {
		t.Fatalf("NewRoutingConfig: %v", err)
	}
	base, _ := c.fallback.Map("k", kv.GET)
	dst := (base.Destinations[0] + 1) % 4

	// WHEN ReportMigration announces a move to dst
	c.ReportMigration("k", base.Destinations[0], dst)

	// THEN Map now returns dst
	m, _ := c.Map("k", kv.GET)
	if m.Destinations[0] != dst {
		t.Errorf("Map after ReportMigration: got %d, want %d", m.Destinations[0], dst)
	}
}

func TestRoutingConfig_AfterOp_NoMigrationWhenUnderBound(t *testing.T) {
	// GIVEN a fresh RoutingConfig with no recorded load
	c, err := NewRoutingConfig(4, 1.0)
	if err != nil {
		t.Fatalf("NewRoutingConfig: %v", err)
	}

	// WHEN AfterOp is checked for any node
	_, migrate := c.AfterOp(0, kv.Operation{}, 0)

	// THEN it does not recommend a migration
	if migrate {
		t.Error("AfterOp recommended migration with zero load")
	}
}

func TestRoutingConfig_AfterOp_RecommendsMigrationWhenOverloaded(t *testing.T) {
	// GIVEN a RoutingConfig where node 0 is heavily overloaded on both
	// instantaneous and projected load
	c, err := NewRoutingConfig(4, 1.0)
	if err != nil {
		t.Fatalf("NewRoutingConfig: %v", err)
	}
	for i := int64(0); i < 50; i++ {
		c.OpSend(0, kv.Operation{Key: "k"}, i*1000)
	}

	// WHEN AfterOp is checked for node 0
	target, migrate := c.AfterOp(0, kv.Operation{Key: "k"}, 50000)

	// THEN it recommends migrating away to a different, less loaded node
	if !migrate {
		t.Fatal("AfterOp did not recommend migration for an overloaded node")
	}
	if target == 0 {
		t.Error("AfterOp recommended migrating to the overloaded node itself")
	}
}

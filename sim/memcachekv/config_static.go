package memcachekv

import (
	"fmt"
	"hash/fnv"

	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

// StaticConfig maps every key to hash(key) mod N, replicated across a
// fixed replication factor of consecutive nodes starting at that hash.
// It carries no mutable state.
type StaticConfig struct {
	numNodes    int
	replication int
}

// NewStaticConfig constructs a StaticConfig over numNodes nodes with the
// given replication factor (number of destinations per key, clamped to
// numNodes). Rejected at construction per spec's "policy bounds" error
// class if numNodes < 1.
func NewStaticConfig(numNodes, replication int) (*StaticConfig, error) {
	if numNodes < 1 {
		return nil, fmt.Errorf("memcachekv: StaticConfig requires at least one node, got %d", numNodes)
	}
	if replication < 1 {
		replication = 1
	}
	if replication > numNodes {
		replication = numNodes
	}
	return &StaticConfig{numNodes: numNodes, replication: replication}, nil
}

func keyHash(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64()
}

func (c *StaticConfig) Map(key string, _ kv.OpType) (MappedNodes, error) {
	start := int(keyHash(key) % uint64(c.numNodes))
	dests := make([]int, c.replication)
	for i := range dests {
		dests[i] = (start + i) % c.numNodes
	}
	return MappedNodes{Destinations: dests}, nil
}

func (c *StaticConfig) OpSend(int, kv.Operation, int64) {}
func (c *StaticConfig) OpReceive(int)                   {}
func (c *StaticConfig) Run(int64)                       {}

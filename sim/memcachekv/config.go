package memcachekv

import "github.com/pegasus-sim/pegasus-sim/sim/kv"

// MappedNodes is the result of a configuration's destination-set lookup
// for a (key, op) pair: the destinations to send to, and an optional set
// of migration targets the server should fan a GET's value out to after
// serving it.
type MappedNodes struct {
	Destinations     []int
	MigrationTargets []int
}

// Configuration maps keys to destination nodes and tracks whatever load
// state a policy needs to make that decision. All policies in this
// package share this one interface; client and server applications only
// ever see Configuration, never a concrete policy type.
type Configuration interface {
	// Map returns the destination set (and optional migration hint) for
	// key under op.
	Map(key string, op kv.OpType) (MappedNodes, error)
	// OpSend is called once per message the client sends, recording that
	// nodeID was asked to perform op at time.
	OpSend(nodeID int, op kv.Operation, time int64)
	// OpReceive is called when the client receives a reply from nodeID.
	OpReceive(nodeID int)
	// Run is invoked once per tick so time-driven policies (periodic
	// rebalancing, rate-window bookkeeping) can advance.
	Run(time int64)
}

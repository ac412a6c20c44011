// Package sim provides the discrete-event simulation kernel for Pegasus:
// racks, nodes, messages, applications, and the tick-driven simulator loop.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - params.go: latency/transmission model and queue-capacity constants
//   - message.go: the Message interface and its BaseMessage implementation
//   - node.go: per-node inflight/ready queues, processor scheduling, the tick algorithm
//   - simulator.go: the fixed-tick driver loop that fans out to every node
//   - stats.go: latency histograms with optional per-epoch rollup
//   - rng.go: seeded, subsystem-partitioned randomness
//
// # Architecture
//
// sim defines the kernel and the Application extension point; concrete
// application behavior lives in sub-packages:
//   - sim/kv: Operation/Result types, the local store, workload generator contracts
//   - sim/memcachekv: memcache-style client/server app and its configuration policies
//   - sim/pegasuskv: directory-coherence client/server app
//   - sim/workload: key and interarrival-time samplers
//   - sim/ctlplane: UDP control-plane frame codec
//
// # Key Interfaces
//
//   - Application: Execute(now), MessageProcLatency(msg), Receive(msg, now)
//   - Message: SendTime, Len, Sender, Dest
package sim

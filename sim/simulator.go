package sim

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"
)

// ProtocolError is the one fatal error class the simulator raises: an
// unexpected message kind at its recipient, or a reply with no matching
// pending request id. Callers should treat it as invariant-violation
// severity (exit code 2), distinct from ordinary configuration errors.
type ProtocolError struct {
	Detail string
}

func (e *ProtocolError) Error() string { return "protocol error: " + e.Detail }

// NewProtocolError constructs a ProtocolError with a formatted detail.
func NewProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Detail: fmt.Sprintf(format, args...)}
}

// Simulator is the tick-driven driver loop: it owns the node table, the
// run clock, the shared Stats sink, and the seeded PartitionedRNG every
// other component draws from. It is the sole implementation of Network,
// so applications reach their peers only through it — never through a
// direct node pointer — keeping node/application references acyclic.
type Simulator struct {
	Duration int64
	Stats    *Stats

	nodes      map[int]*Node
	order      []int
	rng        *PartitionedRNG
	networkRNG *rand.Rand
}

// NewSimulator creates a Simulator with the given horizon (µs), epoch
// rollover window (µs, 0 disables), and RNG seed.
func NewSimulator(duration int64, epochLen int64, seed int64) *Simulator {
	rng := NewPartitionedRNG(NewSimulationKey(seed))
	return &Simulator{
		Duration:   duration,
		Stats:      NewStats(epochLen),
		nodes:      make(map[int]*Node),
		rng:        rng,
		networkRNG: rng.ForSubsystem(SubsystemNetwork),
	}
}

// RNG returns the simulator's shared PartitionedRNG, so callers can derive
// subsystem RNGs (workload generation, configuration policy randomness)
// seeded consistently with the run.
func (s *Simulator) RNG() *PartitionedRNG { return s.rng }

// AddNode registers a node with the simulator. The node must not already
// be registered under the same id.
func (s *Simulator) AddNode(n *Node) error {
	if _, exists := s.nodes[n.ID]; exists {
		return fmt.Errorf("node %d already registered", n.ID)
	}
	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
	sort.Ints(s.order)
	return nil
}

// Node looks up a registered node by id, or nil if absent.
func (s *Simulator) Node(id int) *Node { return s.nodes[id] }

// NodeIDs returns the registered node ids in ascending, deterministic
// order.
func (s *Simulator) NodeIDs() []int {
	ids := make([]int, len(s.order))
	copy(ids, s.order)
	return ids
}

// Send implements Network: it resolves msg's sender and destination
// nodes, samples the wire latency for the hop, and enqueues the message
// on the destination's inflight queue with its computed arrival time.
func (s *Simulator) Send(msg Message) error {
	sender, ok := s.nodes[msg.Sender()]
	if !ok {
		return NewProtocolError("unknown sender node %d", msg.Sender())
	}
	dest, ok := s.nodes[msg.Dest()]
	if !ok {
		return NewProtocolError("unknown destination node %d", msg.Dest())
	}
	distance := sender.RackID.Distance(dest.RackID)
	latency := Latency(s.networkRNG, msg.Len(), distance)
	dest.Enqueue(msg, msg.SendTime()+latency)
	return nil
}

// Run drives the simulation from tick MinPropgDelay through Duration,
// fanning out to every node in deterministic id order each tick, then
// rolling Stats forward. The loop stops at the first error, which is
// always either a *ProtocolError (fatal) or a node-clock-ordering bug in
// caller code.
func (s *Simulator) Run() error {
	for t := MinPropgDelay; t <= s.Duration; t += MinPropgDelay {
		for _, id := range s.order {
			if err := s.nodes[id].Run(t); err != nil {
				return err
			}
		}
		s.Stats.Run(t)
		if t%100000 == 0 {
			logrus.Debugf("[tick %d] clock advanced", t)
		}
	}
	return nil
}

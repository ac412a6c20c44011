package sim

import (
	"container/heap"
	"fmt"
	"math/rand"
)

// Rack is a topology identifier. Two nodes in the same rack are distance 1
// apart; nodes in different racks are distance 2 apart.
type Rack int

// Distance returns 1 if other is the same rack, else 2.
func (r Rack) Distance(other Rack) int64 {
	if r == other {
		return 1
	}
	return 2
}

// Network delivers a message to its destination node, applying the
// propagation and transmission latency model. The simulator is the only
// implementation; applications hold a Network reference (injected at
// construction) rather than a direct node pointer, so the node ↔
// application relationship never forms an ownership cycle (the simulator
// alone owns the node table).
type Network interface {
	Send(msg Message) error
}

// queuedMsg is an inflight or ready message awaiting delivery, ordered by
// arrival time with a monotone sequence number as a deterministic
// tie-breaker (I3: ready-queue head has earliest arrival time).
type queuedMsg struct {
	msg     Message
	arrival int64
	seq     uint64
}

// inflightHeap is a container/heap-ordered min-heap of queuedMsg by arrival
// time, used for a node's not-yet-arrived messages.
type inflightHeap []*queuedMsg

func (h inflightHeap) Len() int { return len(h) }
func (h inflightHeap) Less(i, j int) bool {
	if h[i].arrival != h[j].arrival {
		return h[i].arrival < h[j].arrival
	}
	return h[i].seq < h[j].seq
}
func (h inflightHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *inflightHeap) Push(x interface{}) {
	*h = append(*h, x.(*queuedMsg))
}
func (h *inflightHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// idleClockHeap is a min-heap of processor-idle clocks (virtual µs), used
// by Node.Run to always hand the next ready message to the earliest-idle
// processor.
type idleClockHeap []int64

func (h idleClockHeap) Len() int            { return len(h) }
func (h idleClockHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idleClockHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idleClockHeap) Push(x interface{}) { *h = append(*h, x.(int64)) }
func (h *idleClockHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// unfinishedMsg is a message whose processor service spans a tick
// boundary; it is carried forward and resumed by step 2 of Node.Run once
// finishTime is reached.
type unfinishedMsg struct {
	msg        Message
	finishTime int64
}

// Node is a single cache/client/directory host: a rack member with an
// inflight queue, a FIFO ready queue, P processors, and one bound
// Application.
type Node struct {
	ID            int
	RackID        Rack
	Procs         int
	LogicalClient bool
	DropTail      bool
	QueueCap      int

	Time int64

	app Application
	rng *rand.Rand

	inflight *inflightHeap
	seq      uint64

	ready []*queuedMsg

	unfinished []*unfinishedMsg

	DropCount int
}

// NewNode constructs a Node with the given id, rack, processor count, and
// bound application. rng seeds this node's packet-processing-latency
// draws. QueueCap defaults to DefaultNodeQueueCap when dropTail is
// enabled; pass 0 to accept the default.
func NewNode(id int, rack Rack, procs int, app Application, rng *rand.Rand, logicalClient, dropTail bool, queueCap int) *Node {
	if queueCap <= 0 {
		queueCap = DefaultNodeQueueCap
	}
	h := &inflightHeap{}
	heap.Init(h)
	return &Node{
		ID:            id,
		RackID:        rack,
		Procs:         procs,
		LogicalClient: logicalClient,
		DropTail:      dropTail,
		QueueCap:      queueCap,
		inflight:      h,
		rng:           rng,
		app:           app,
	}
}

// App returns the node's bound application.
func (n *Node) App() Application { return n.app }

// Enqueue places msg on the node's inflight queue with the given arrival
// time. It is called by Network.Send (the Simulator) after computing the
// wire latency for the hop.
func (n *Node) Enqueue(msg Message, arrival int64) {
	n.seq++
	heap.Push(n.inflight, &queuedMsg{msg: msg, arrival: arrival, seq: n.seq})
}

// effectiveCap returns the ready-queue capacity for this tick, per spec:
// cap + elapsed/min_proc_ltc additional slack for ticks that advance the
// clock by more than one minimal processing latency.
func (n *Node) effectiveCap(t int64) int {
	elapsed := t - n.Time
	slack := elapsed / MinPktProcLtc
	return n.QueueCap + int(slack)
}

// Run advances the node through tick t: promoting arrived inflight
// messages, resuming carried-over unfinished work, serving ready messages
// across P processors in earliest-idle order, letting the application emit
// new traffic, and finally advancing the node clock to t.
func (n *Node) Run(t int64) error {
	if t < n.Time {
		return fmt.Errorf("node %d: tick %d precedes current clock %d", n.ID, t, n.Time)
	}

	// Step 1: promote arrived inflight messages into the ready queue.
	readyCap := n.effectiveCap(t)
	for n.inflight.Len() > 0 && (*n.inflight)[0].arrival <= t {
		qm := heap.Pop(n.inflight).(*queuedMsg)
		if n.DropTail && !n.LogicalClient && len(n.ready) >= readyCap {
			n.DropCount++
			continue
		}
		n.ready = append(n.ready, qm)
	}

	// Step 2: resume unfinished work whose finish time has arrived.
	var stillUnfinished []*unfinishedMsg
	busy := 0
	for _, u := range n.unfinished {
		if u.finishTime <= t {
			if err := n.app.Receive(u.msg, u.finishTime); err != nil {
				return err
			}
		} else {
			stillUnfinished = append(stillUnfinished, u)
			busy++
		}
	}
	n.unfinished = stillUnfinished

	// Step 3: initialize idle-processor clocks at node-time.
	idleCount := n.Procs - busy
	if idleCount < 0 {
		idleCount = 0
	}
	idle := &idleClockHeap{}
	heap.Init(idle)
	for i := 0; i < idleCount; i++ {
		heap.Push(idle, n.Time)
	}

	// Step 4: repeatedly hand the ready-queue head to the earliest-idle
	// processor while it can serve it.
	for idle.Len() > 0 {
		if len(n.ready) == 0 {
			break
		}
		clock := heap.Pop(idle).(int64)
		head := n.ready[0]
		n.ready = n.ready[1:]

		var procTime int64
		if n.LogicalClient {
			procTime = maxInt64(clock, head.arrival)
		} else {
			pktLtc := PktProcLtc(n.rng)
			appLtc := n.app.MessageProcLatency(head.msg)
			procTime = maxInt64(clock, head.arrival) + pktLtc + appLtc
		}

		if procTime > t {
			n.unfinished = append(n.unfinished, &unfinishedMsg{msg: head.msg, finishTime: procTime})
			continue
		}
		if err := n.app.Receive(head.msg, procTime); err != nil {
			return err
		}
		heap.Push(idle, procTime)
	}

	// Step 5: let the application emit outbound traffic.
	if err := n.app.Execute(t); err != nil {
		return err
	}

	// Step 6: advance the node clock.
	n.Time = t
	return nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

package memcachekv

import (
	"math/rand"

	"github.com/pegasus-sim/pegasus-sim/sim"
	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

// pendingRequest tracks a client's in-flight operation: how many acks are
// expected, how many have arrived, and (for GET) the reply payload once
// it arrives.
type pendingRequest struct {
	op        kv.Operation
	issueTime int64
	expected  int
	received  int
	result    kv.Result
	hasResult bool
}

// Client is the memcache-style client application bound to one node. Per
// tick it drains its workload generator up to the current time, maps
// each operation through its Configuration, dispatches per the write
// mode, and matches replies back to pending requests.
type Client struct {
	nodeID    int
	net       sim.Network
	config    Configuration
	gen       kv.WorkloadGenerator
	stats     *kv.Stats
	rng       *rand.Rand
	writeMode WriteMode
	initKey   bool

	seenKeys map[string]bool
	pending  map[uint64]*pendingRequest
	nextID   uint64
	peeked   *peekedOp
	done     bool
}

type peekedOp struct {
	op        kv.Operation
	issueTime int64
}

// NewClient constructs a Client bound to nodeID, dispatching through net,
// resolving destinations via config, and drawing operations from gen.
func NewClient(nodeID int, net sim.Network, config Configuration, gen kv.WorkloadGenerator, stats *kv.Stats, rng *rand.Rand, writeMode WriteMode, initKey bool) *Client {
	return &Client{
		nodeID:    nodeID,
		net:       net,
		config:    config,
		gen:       gen,
		stats:     stats,
		rng:       rng,
		writeMode: writeMode,
		initKey:   initKey,
		seenKeys:  make(map[string]bool),
		pending:   make(map[uint64]*pendingRequest),
	}
}

// MessageProcLatency is 0: the client's reply-matching logic is
// effectively free compared to the network and server-side latencies
// being modeled.
func (c *Client) MessageProcLatency(sim.Message) int64 { return 0 }

// Execute drains due operations from the workload generator and issues
// them, in the order the generator produced them.
func (c *Client) Execute(now int64) error {
	c.config.Run(now)
	for {
		if c.peeked == nil {
			if c.done {
				return nil
			}
			op, issueTime, ok := c.gen.Next()
			if !ok {
				c.done = true
				return nil
			}
			op = c.applyInitKey(op)
			c.peeked = &peekedOp{op: op, issueTime: issueTime}
		}
		if c.peeked.issueTime > now {
			return nil
		}
		op := *c.peeked
		c.peeked = nil
		if err := c.issue(op); err != nil {
			return err
		}
	}
}

// applyInitKey converts the first GET of a never-seen key into a PUT,
// per the --initkey flag: this keeps cache hit-rate statistics from being
// dominated by guaranteed cold-start misses.
func (c *Client) applyInitKey(op kv.Operation) kv.Operation {
	if !c.initKey || op.Type != kv.GET {
		if op.Type == kv.PUT {
			c.seenKeys[op.Key] = true
		}
		return op
	}
	if c.seenKeys[op.Key] {
		return op
	}
	c.seenKeys[op.Key] = true
	return kv.Operation{Type: kv.PUT, Key: op.Key, Value: randomValue(c.rng, op.Key)}
}

func randomValue(rng *rand.Rand, key string) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 8)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

func (c *Client) issue(po peekedOp) error {
	mapped, err := c.config.Map(po.op.Key, po.op.Type)
	if err != nil {
		return err
	}
	if len(mapped.Destinations) == 0 {
		return sim.NewProtocolError("client %d: configuration returned no destinations for key %q", c.nodeID, po.op.Key)
	}

	reqID := c.nextID
	c.nextID++
	pr := &pendingRequest{op: po.op, issueTime: po.issueTime}

	switch po.op.Type {
	case kv.GET:
		dest := mapped.Destinations[c.rng.Intn(len(mapped.Destinations))]
		pr.expected = 1
		c.sendOne(dest, po.issueTime, reqID, po.op, mapped.MigrationTargets)
	case kv.PUT:
		switch c.writeMode {
		case ANYNODE:
			dest := mapped.Destinations[c.rng.Intn(len(mapped.Destinations))]
			pr.expected = 1
			c.sendOne(dest, po.issueTime, reqID, po.op, nil)
		case UPDATE:
			pr.expected = len(mapped.Destinations)
			for _, d := range mapped.Destinations {
				c.sendOne(d, po.issueTime, reqID, po.op, nil)
			}
		case INVALIDATE:
			pr.expected = len(mapped.Destinations)
			c.sendOne(mapped.Destinations[0], po.issueTime, reqID, po.op, nil)
			delOp := kv.Operation{Type: kv.DEL, Key: po.op.Key}
			for _, d := range mapped.Destinations[1:] {
				c.sendOne(d, po.issueTime, reqID, delOp, nil)
			}
		}
	case kv.DEL:
		pr.expected = len(mapped.Destinations)
		for _, d := range mapped.Destinations {
			c.sendOne(d, po.issueTime, reqID, po.op, nil)
		}
	}

	c.pending[reqID] = pr
	return nil
}

func (c *Client) sendOne(dest int, now int64, reqID uint64, op kv.Operation, migrationTargets []int) {
	msg := NewRequest(now, c.nodeID, dest, reqID, op, migrationTargets, false)
	if err := c.net.Send(msg); err != nil {
		return
	}
	c.config.OpSend(dest, op, now)
}

// Receive matches an incoming Reply to its pending request, reports
// completion to Stats once all expected acks have arrived, and raises a
// ProtocolError for any reply that doesn't match a live pending id (I4,
// P3).
func (c *Client) Receive(msg sim.Message, now int64) error {
	reply, ok := msg.(*Reply)
	if !ok {
		return sim.NewProtocolError("client %d: unexpected message type %T", c.nodeID, msg)
	}
	pr, ok := c.pending[reply.ReqID]
	if !ok {
		return sim.NewProtocolError("client %d: reply for unknown request id %d", c.nodeID, reply.ReqID)
	}

	c.config.OpReceive(reply.Sender())
	pr.received++
	if pr.op.Type == kv.GET {
		pr.result = reply.Result
		pr.hasResult = true
	}

	complete := pr.received >= pr.expected
	if pr.op.Type == kv.GET {
		complete = complete && pr.hasResult
	}
	if !complete {
		return nil
	}

	delete(c.pending, reply.ReqID)
	latency := now - pr.issueTime
	hit := pr.hasResult && pr.result.Code == kv.OK
	c.stats.Complete(pr.op, latency, hit)
	return nil
}

// PendingCount returns the number of in-flight requests, for tests
// asserting ack-accounting invariants.
func (c *Client) PendingCount() int { return len(c.pending) }

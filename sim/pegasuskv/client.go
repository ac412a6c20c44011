package pegasuskv

import (
	"math/rand"

	"github.com/pegasus-sim/pegasus-sim/sim"
	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

// pendingRequest tracks one in-flight operation. GET's expected-ack count
// (1) is known at issue time; a PUT/DEL's expected count only becomes
// known once the directory's DirReply reports the sharer-set size, hence
// the separate expectedKnown flag (the protocol's two-signal completion).
type pendingRequest struct {
	op            kv.Operation
	issueTime     int64
	expected      int
	expectedKnown bool
	received      int
	result        kv.Result
	hasResult     bool
}

// Client is the directory-coherence client application bound to one
// node: GETs go to a chosen cache node as a CacheReq, PUT/DEL go
// straight to the key's directory node as a DirReq.
type Client struct {
	nodeID int
	net    sim.Network
	config Configuration
	gen    kv.WorkloadGenerator
	stats  *kv.Stats
	rng    *rand.Rand

	pending map[uint64]*pendingRequest
	nextID  uint64
	peeked  *peekedOp
	done    bool
}

type peekedOp struct {
	op        kv.Operation
	issueTime int64
}

func NewClient(nodeID int, net sim.Network, config Configuration, gen kv.WorkloadGenerator, stats *kv.Stats, rng *rand.Rand) *Client {
	return &Client{
		nodeID:  nodeID,
		net:     net,
		config:  config,
		gen:     gen,
		stats:   stats,
		rng:     rng,
		pending: make(map[uint64]*pendingRequest),
	}
}

func (c *Client) MessageProcLatency(sim.Message) int64 { return 0 }

func (c *Client) Execute(now int64) error {
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
			c.peeked = &peekedOp{op: op, issueTime: issueTime}
		}
		if c.peeked.issueTime > now {
			return nil
		}
		po := *c.peeked
		c.peeked = nil
		if err := c.issue(po); err != nil {
			return err
		}
	}
}

func (c *Client) issue(po peekedOp) error {
	reqID := c.nextID
	c.nextID++

	switch po.op.Type {
	case kv.GET:
		dest := c.config.SelectCache(po.op.Key)
		c.pending[reqID] = &pendingRequest{op: po.op, issueTime: po.issueTime, expected: 1, expectedKnown: true}
		msg := NewCacheReq(po.issueTime, c.nodeID, dest, reqID, po.op.Key)
		return c.net.Send(msg)
	default: // PUT, DEL
		dest := c.config.SelectDirectory(po.op.Key)
		c.pending[reqID] = &pendingRequest{op: po.op, issueTime: po.issueTime}
		msg := NewDirReq(po.issueTime, c.nodeID, dest, reqID, po.op)
		return c.net.Send(msg)
	}
}

// Receive handles both of the client's two completion signals: a
// CacheReply (one ack, and for GET the value) and a DirReply (the
// expected-ack count for a PUT/DEL).
func (c *Client) Receive(msg sim.Message, now int64) error {
	switch m := msg.(type) {
	case *CacheReply:
		return c.receiveCacheReply(m, now)
	case *DirReply:
		return c.receiveDirReply(m, now)
	default:
		return sim.NewProtocolError("pegasuskv: client %d received unexpected message type %T", c.nodeID, msg)
	}
}

func (c *Client) receiveCacheReply(m *CacheReply, now int64) error {
	pr, ok := c.pending[m.ReqID]
	if !ok {
		return sim.NewProtocolError("pegasuskv: client %d received cache reply for unknown request %d", c.nodeID, m.ReqID)
	}
	pr.received++
	if pr.op.Type == kv.GET {
		pr.result = m.Result
		pr.hasResult = true
	}
	return c.maybeComplete(m.ReqID, pr, now)
}

func (c *Client) receiveDirReply(m *DirReply, now int64) error {
	pr, ok := c.pending[m.ReqID]
	if !ok {
		return sim.NewProtocolError("pegasuskv: client %d received directory reply for unknown request %d", c.nodeID, m.ReqID)
	}
	pr.expected = m.NumAcks
	pr.expectedKnown = true
	return c.maybeComplete(m.ReqID, pr, now)
}

func (c *Client) maybeComplete(reqID uint64, pr *pendingRequest, now int64) error {
	if !pr.expectedKnown || pr.received < pr.expected {
		return nil
	}
	if pr.op.Type == kv.GET && !pr.hasResult {
		return nil
	}
	delete(c.pending, reqID)
	latency := now - pr.issueTime
	hit := pr.op.Type != kv.GET || pr.result.Code == kv.OK
	c.stats.Complete(pr.op, latency, hit)
	return nil
}

// PendingCount returns the number of in-flight requests, for tests
// asserting ack-accounting invariants.
func (c *Client) PendingCount() int { return len(c.pending) }

package memcachekv

import (
	"math/rand"
	"testing"

	"github.com/pegasus-sim/pegasus-sim/sim"
	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

// fixedGenerator yields exactly the operations it's given, one per Next
// call, then reports exhaustion.
type fixedGenerator struct {
	ops   []kv.Operation
	times []int64
	i     int
}

func (g *fixedGenerator) Next() (kv.Operation, int64, bool) {
	if g.i >= len(g.ops) {
		return kv.Operation{}, 0, false
	}
	op, t := g.ops[g.i], g.times[g.i]
	g.i++
	return op, t, true
}

func newTestClient(t *testing.T, net *recordingNetwork, config Configuration, gen kv.WorkloadGenerator, writeMode WriteMode) (*Client, *kv.Stats) {
	t.Helper()
	stats := kv.NewStats(0)
	rng := rand.New(rand.NewSource(1))
	c := NewClient(0, net, config, gen, stats, rng, writeMode, false)
	return c, stats
}

func TestClient_Execute_IssuesDueOperationsAndStopsAtFuture(t *testing.T) {
	// GIVEN a client with two operations due at t=0 and t=100, and a third
	// due in the future at t=1000
	net := &recordingNetwork{}
	config, err := NewStaticConfig(2, 1)
	if err != nil {
		t.Fatalf("NewStaticConfig: %v", err)
	}
	gen := &fixedGenerator{
		ops:   []kv.Operation{{Type: kv.GET, Key: "a"}, {Type: kv.GET, Key: "b"}, {Type: kv.GET, Key: "c"}},
		times: []int64{0, 100, 1000},
	}
	client, _ := newTestClient(t, net, config, gen, ANYNODE)

	// WHEN Execute runs at virtual time 100
	if err := client.Execute(100); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	// THEN exactly the two due operations were issued, not the future one
	if len(net.sent) != 2 {
		t.Fatalf("sent message count: got %d, want 2", len(net.sent))
	}
	if client.PendingCount() != 2 {
		t.Errorf("PendingCount: got %d, want 2", client.PendingCount())
	}
}

func TestClient_Receive_CompletesOnceExpectedAcksArrive(t *testing.T) {
	// GIVEN a client that issued a PUT under UPDATE mode to 2 destinations
	net := &recordingNetwork{}
	config, err := NewStaticConfig(2, 2)
	if err != nil {
		t.Fatalf("NewStaticConfig: %v", err)
	}
	gen := &fixedGenerator{
		ops:   []kv.Operation{{Type: kv.PUT, Key: "k", Value: "v"}},
		times: []int64{0},
	}
	client, stats := newTestClient(t, net, config, gen, UPDATE)
	if err := client.Execute(0); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(net.sent) != 2 {
		t.Fatalf("sent message count: got %d, want 2", len(net.sent))
	}
	req0 := net.sent[0].(*Request)
	req1 := net.sent[1].(*Request)

	// WHEN only the first ack arrives
	reply0 := NewReply(50, req0.Dest(), 0, req0.ReqID, kv.Result{Code: kv.OK})
	if err := client.Receive(reply0, 50); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	// THEN the request is not yet complete
	if stats.TotalOps != 0 {
		t.Fatalf("TotalOps after one of two acks: got %d, want 0", stats.TotalOps)
	}

	// WHEN the second ack arrives
	reply1 := NewReply(60, req1.Dest(), 0, req1.ReqID, kv.Result{Code: kv.OK})
	if err := client.Receive(reply1, 60); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	// THEN the request completes and is reported to stats
	if stats.TotalOps != 1 {
		t.Errorf("TotalOps after both acks: got %d, want 1", stats.TotalOps)
	}
	if client.PendingCount() != 0 {
		t.Errorf("PendingCount after completion: got %d, want 0", client.PendingCount())
	}
}

func TestClient_Receive_UnknownRequestID_ReturnsProtocolError(t *testing.T) {
	// GIVEN a client with no pending requests
	net := &recordingNetwork{}
	config, err := NewStaticConfig(2, 1)
	if err != nil {
		t.Fatalf("NewStaticConfig: %v", err)
	}
	client, _ := newTestClient(t, net, config, &fixedGenerator{}, ANYNODE)

	// WHEN a reply arrives for a request id that was never issued
	err = client.Receive(NewReply(0, 1, 0, 999, kv.Result{Code: kv.OK}), 0)

	// THEN it returns a ProtocolError
	if _, ok := err.(*sim.ProtocolError); !ok {
		t.Fatalf("Receive for unknown id: got %v (%T), want *sim.ProtocolError", err, err)
	}
}

func TestClient_Issue_InvalidateMode_SendsPutThenDeletes(t *testing.T) {
	// GIVEN a client configured for INVALIDATE writes across 3 destinations
	net := &recordingNetwork{}
	config, err := NewStaticConfig(3, 3)
	if err != nil {
		t.Fatalf("NewStaticConfig: %v", err)
	}
	gen := &fixedGenerator{
		ops:   []kv.Operation{{Type: kv.PUT, Key: "k", Value: "v"}},
		times: []int64{0},
	}
	client, _ := newTestClient(t, net, config, gen, INVALIDATE)

	// WHEN Execute issues the PUT
	if err := client.Execute(0); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// THEN the first destination got a PUT and the rest got an implicit DEL
	if len(net.sent) != 3 {
		t.Fatalf("sent message count: got %d, want 3", len(net.sent))
	}
	first := net.sent[0].(*Request)
	if first.Op.Type != kv.PUT {
		t.Errorf("first destination op: got %v, want PUT", first.Op.Type)
	}
	for _, m := range net.sent[1:] {
		req := m.(*Request)
		if req.Op.Type != kv.DEL {
			t.Errorf("non-first destination op: got %v, want DEL", req.Op.Type)
		}
	}
}

func TestClient_ApplyInitKey_ConvertsFirstGetIntoPut(t *testing.T) {
	// GIVEN a client with --initkey enabled and a never-seen key
	net := &recordingNetwork{}
	config, err := NewStaticConfig(1, 1)
	if err != nil {
		t.Fatalf("NewStaticConfig: %v", err)
	}
	stats := kv.NewStats(0)
	rng := rand.New(rand.NewSource(1))
	gen := &fixedGenerator{
		ops:   []kv.Operation{{Type: kv.GET, Key: "fresh"}},
		times: []int64{0},
	}
	client := NewClient(0, net, config, gen, stats, rng, ANYNODE, true)

	// WHEN Execute issues the first GET for that key
	if err := client.Execute(0); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// THEN it was converted into a PUT on the wire
	if len(net.sent) != 1 {
		t.Fatalf("sent message count: got %d, want 1", len(net.sent))
	}
	req := net.sent[0].(*Request)
	if req.Op.Type != kv.PUT {
		t.Errorf("initkey-converted op: got %v, want PUT", req.Op.Type)
	}
}

package memcachekv

import (
	"github.com/pegasus-sim/pegasus-sim/sim"
	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

// MigrationAdvisor is the hook a migration-aware server (spec's
// RoutingConfig deployments, §4.8) uses to decide, after executing an
// operation, whether to push the current value to another node, and to
// tell the configuration about a migration it just received.
type MigrationAdvisor interface {
	// AfterOp is called once per executed operation; it returns a target
	// node id and migrate=true if the server should emit a migration PUT.
	AfterOp(nodeID int, op kv.Operation, now int64) (target int, migrate bool)
	// ReportMigration tells the configuration that dst just became the
	// canonical holder of key, migrated from src.
	ReportMigration(key string, src, dst int)
}

// Server is the memcache-style server application bound to one node. It
// executes each received request against a local Store, replies unless
// the request carries no return address (a migration PUT), and fans a
// GET's value out to migration targets when the client's configuration
// asked for it.
type Server struct {
	nodeID    int
	net       sim.Network
	store     *kv.Store
	migration MigrationAdvisor
}

// NewServer constructs a Server bound to nodeID. migration may be nil for
// policies that don't do server-side migration (everything but
// RoutingConfig).
func NewServer(nodeID int, net sim.Network, store *kv.Store, migration MigrationAdvisor) *Server {
	return &Server{nodeID: nodeID, net: net, store: store, migration: migration}
}

// Store returns the server's local key-value store, for tests asserting
// replication/invalidation scenarios against concrete store contents.
func (s *Server) Store() *kv.Store { return s.store }

func (s *Server) MessageProcLatency(sim.Message) int64 { return 0 }

// Execute is a no-op: the server only ever emits traffic reactively, in
// Receive.
func (s *Server) Execute(int64) error { return nil }

// Receive executes an incoming Request locally, replies unless it's a
// no-return migration PUT, and emits any migration traffic the request
// (or the server's own load) calls for.
func (s *Server) Receive(msg sim.Message, now int64) error {
	req, ok := msg.(*Request)
	if !ok {
		return sim.NewProtocolError("server %d: unexpected message type %T", s.nodeID, msg)
	}

	result := s.store.Execute(req.Op)

	if req.NoReturn {
		if s.migration != nil {
			s.migration.ReportMigration(req.Op.Key, req.Sender(), s.nodeID)
		}
		return nil
	}

	reply := NewReply(now, s.nodeID, req.Sender(), req.ReqID, result)
	if err := s.net.Send(reply); err != nil {
		return err
	}

	if req.Op.Type == kv.GET && len(req.MigrationTargets) > 0 {
		migOp := kv.Operation{Type: kv.PUT, Key: req.Op.Key, Value: result.Value}
		for _, target := range req.MigrationTargets {
			mig := NewRequest(now, s.nodeID, target, 0, migOp, nil, true)
			if err := s.net.Send(mig); err != nil {
				return err
			}
		}
	}

	if s.migration != nil {
		if target, migrate := s.migration.AfterOp(s.nodeID, req.Op, now); migrate {
			val, _ := s.store.Get(req.Op.Key)
			mig := NewRequest(now, s.nodeID, target, 0, kv.Operation{Type: kv.PUT, Key: req.Op.Key, Value: val}, nil, true)
			if err := s.net.Send(mig); err != nil {
				return err
			}
		}
	}

	return nil
}

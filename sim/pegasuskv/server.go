package pegasuskv

import (
	"github.com/pegasus-sim/pegasus-sim/sim"
	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

type pendingMiss struct {
	client int
	key    string
}

// Server runs on every node and handles whichever coherence role a
// message implies: cache node (CacheReq, and the CacheReply that later
// resolves a miss it forwarded), directory node (DirReq, for whichever
// keys Configuration routes here), or sharer (Forwarded).
type Server struct {
	nodeID int
	net    sim.Network
	store  *kv.Store
	config Configuration

	directory map[string]*DirectoryEntry
	misses    map[uint64]pendingMiss
}

func NewServer(nodeID int, net sim.Network, store *kv.Store, config Configuration) *Server {
	return &Server{
		nodeID:    nodeID,
		net:       net,
		store:     store,
		config:    config,
		directory: make(map[string]*DirectoryEntry),
		misses:    make(map[uint64]pendingMiss),
	}
}

func (s *Server) Store() *kv.Store { return s.store }

func (s *Server) MessageProcLatency(sim.Message) int64 { return 0 }

func (s *Server) Execute(int64) error { return nil }

func (s *Server) Receive(msg sim.Message, now int64) error {
	switch m := msg.(type) {
	case *CacheReq:
		return s.receiveCacheReq(m, now)
	case *DirReq:
		return s.receiveDirReq(m, now)
	case *Forwarded:
		return s.receiveForwarded(m, now)
	case *CacheReply:
		return s.receiveCacheReply(m, now)
	default:
		return sim.NewProtocolError("pegasuskv: server on node %d received unexpected message type %T", s.nodeID, msg)
	}
}

// receiveCacheReq serves a GET locally on a hit; on a miss it remembers
// the originating client and converts the request into a DIR_REQ sent
// to the key's directory node.
func (s *Server) receiveCacheReq(m *CacheReq, now int64) error {
	if s.store.Has(m.Key) {
		value, _ := s.store.Get(m.Key)
		reply := NewCacheReply(now, s.nodeID, m.Sender(), m.ReqID, kv.Result{Code: kv.OK, Value: value})
		return s.net.Send(reply)
	}

	s.misses[m.ReqID] = pendingMiss{client: m.Sender(), key: m.Key}
	dir := s.config.SelectDirectory(m.Key)
	req := NewDirReq(now, s.nodeID, dir, m.ReqID, kv.Operation{Type: kv.GET, Key: m.Key})
	return s.net.Send(req)
}

// receiveDirReq handles a request at this key's directory node,
// regardless of whether the sender is a cache node relaying a miss (GET)
// or a client (PUT/DEL).
func (s *Server) receiveDirReq(m *DirReq, now int64) error {
	entry, ok := s.directory[m.Op.Key]
	if !ok {
		entry = newDirectoryEntry()
		s.directory[m.Op.Key] = entry
	}

	switch m.Op.Type {
	case kv.GET:
		sharer, found := entry.pick(s.nodeID)
		if !found {
			reply := NewCacheReply(now, s.nodeID, m.Sender(), m.ReqID, kv.Result{Code: kv.NotFound})
			return s.net.Send(reply)
		}
		entry.add(m.Sender())
		fwd := NewForwarded(now, s.nodeID, sharer, m.ReqID, m.Op, m.Sender())
		return s.net.Send(fwd)

	case kv.PUT:
		if entry.len() == 0 {
			entry.add(s.nodeID)
		}
		if err := s.fanOut(entry, m, now); err != nil {
			return err
		}
		reply := NewDirReply(now, s.nodeID, m.Sender(), m.ReqID, entry.len())
		return s.net.Send(reply)

	case kv.DEL:
		numAcks := entry.len()
		if err := s.fanOut(entry, m, now); err != nil {
			return err
		}
		entry.clear()
		reply := NewDirReply(now, s.nodeID, m.Sender(), m.ReqID, numAcks)
		return s.net.Send(reply)

	default:
		return sim.NewProtocolError("pegasuskv: directory on node %d saw unexpected op type %v", s.nodeID, m.Op.Type)
	}
}

func (s *Server) fanOut(entry *DirectoryEntry, m *DirReq, now int64) error {
	for _, sharer := range entry.sorted() {
		fwd := NewForwarded(now, s.nodeID, sharer, m.ReqID, m.Op, m.Sender())
		if err := s.net.Send(fwd); err != nil {
			return err
		}
	}
	return nil
}

// receiveForwarded executes the directory's instruction locally and
// acks the party that should count it: the client for a PUT/DEL, or the
// cache node that owns the earlier miss for a GET.
func (s *Server) receiveForwarded(m *Forwarded, now int64) error {
	result := s.store.Execute(m.Op)
	reply := NewCacheReply(now, s.nodeID, m.ReplyTo, m.ReqID, result)
	return s.net.Send(reply)
}

// receiveCacheReply only ever arrives at a cache node resolving an
// earlier miss: install the value locally (on a hit) and forward the
// reply on to the original client.
func (s *Server) receiveCacheReply(m *CacheReply, now int64) error {
	miss, ok := s.misses[m.ReqID]
	if !ok {
		return sim.NewProtocolError("pegasuskv: node %d received cache reply for unknown request %d", s.nodeID, m.ReqID)
	}
	delete(s.misses, m.ReqID)

	if m.Result.Code == kv.OK {
		s.store.Execute(kv.Operation{Type: kv.PUT, Key: miss.key, Value: m.Result.Value})
	}
	reply := NewCacheReply(now, s.nodeID, miss.client, m.ReqID, m.Result)
	return s.net.Send(reply)
}

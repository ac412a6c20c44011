// Package pegasuskv implements the directory-coherence key-value
// application: cache nodes that serve GETs out of a local store, a
// directory node per key that tracks the sharer set and serializes
// PUT/DEL fan-out, and the SingleDirectoryConfig policy that assigns
// cache and directory roles.
package pegasuskv

import (
	"github.com/pegasus-sim/pegasus-sim/sim"
	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

// Representative wire sizes in bytes for transmission-delay computation.
const (
	CacheReqMsgLen   = 48
	DirReqMsgLen     = 64
	ForwardedMsgLen  = 64
	CacheReplyMsgLen = 32
	DirReplyMsgLen   = 16
)

// CacheReq is a client's GET sent to a chosen cache node.
type CacheReq struct {
	sim.BaseMessage
	ReqID uint64
	Key   string
}

// DirReq is a PUT or DEL sent directly to a key's directory node, or a
// GET forwarded by a cache node after a local miss.
type DirReq struct {
	sim.BaseMessage
	ReqID uint64
	Op    kv.Operation
}

// Forwarded is the directory's instruction to a sharer (or itself) to
// execute Op locally and reply to ReplyTo.
type Forwarded struct {
	sim.BaseMessage
	ReqID   uint64
	Op      kv.Operation
	ReplyTo int
}

// CacheReply carries a GET's result or a PUT/DEL ack back to its
// recipient — either the client directly, or (when resolving an earlier
// cache miss) the cache node that owns the miss.
type CacheReply struct {
	sim.BaseMessage
	ReqID  uint64
	Result kv.Result
}

// DirReply tells the client how many acks to expect for a PUT/DEL, once
// the directory knows the sharer-set size.
type DirReply struct {
	sim.BaseMessage
	ReqID   uint64
	NumAcks int
}

func NewCacheReq(sendTime int64, sender, dest int, reqID uint64, key string) *CacheReq {
	return &CacheReq{BaseMessage: sim.NewBaseMessage(sendTime, CacheReqMsgLen, sender, dest), ReqID: reqID, Key: key}
}

func NewDirReq(sendTime int64, sender, dest int, reqID uint64, op kv.Operation) *DirReq {
	return &DirReq{BaseMessage: sim.NewBaseMessage(sendTime, DirReqMsgLen, sender, dest), ReqID: reqID, Op: op}
}

func NewForwarded(sendTime int64, sender, dest int, reqID uint64, op kv.Operation, replyTo int) *Forwarded {
	return &Forwarded{BaseMessage: sim.NewBaseMessage(sendTime, ForwardedMsgLen, sender, dest), ReqID: reqID, Op: op, ReplyTo: replyTo}
}

func NewCacheReply(sendTime int64, sender, dest int, reqID uint64, result kv.Result) *CacheReply {
	return &CacheReply{BaseMessage: sim.NewBaseMessage(sendTime, CacheReplyMsgLen, sender, dest), ReqID: reqID, Result: result}
}

func NewDirReply(sendTime int64, sender, dest int, reqID uint64, numAcks int) *DirReply {
	return &DirReply{BaseMessage: sim.NewBaseMessage(sendTime, DirReplyMsgLen, sender, dest), ReqID: reqID, NumAcks: numAcks}
}

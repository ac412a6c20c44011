// Package memcachekv implements the memcache-style key-value application:
// a client that issues GET/PUT/DEL under a configurable write mode, a
// server that executes operations against a local store and optionally
// emits migration traffic, and the family of configuration policies that
// decide destination nodes and migration hints.
package memcachekv

import (
	"github.com/pegasus-sim/pegasus-sim/sim"
	"github.com/pegasus-sim/pegasus-sim/sim/kv"
)

// Representative wire sizes in bytes, used only for transmission-delay
// computation — the simulator never marshals a real payload.
const (
	RequestMsgLen = 64
	ReplyMsgLen   = 32
)

// Request is a client-to-server operation message. MigrationTargets is
// set on a GET when the configuration wants the server to fan the value
// out to additional nodes after serving it. NoReturn marks a
// server-to-server migration PUT, which expects no reply.
type Request struct {
	sim.BaseMessage
	ReqID            uint64
	Op               kv.Operation
	MigrationTargets []int
	NoReturn         bool
}

// Reply is a server-to-client response.
type Reply struct {
	sim.BaseMessage
	ReqID  uint64
	Result kv.Result
}

// NewRequest builds a Request message of the representative size
// RequestMsgLen.
func NewRequest(sendTime int64, sender, dest int, reqID uint64, op kv.Operation, migrationTargets []int, noReturn bool) *Request {
	return &Request{
		BaseMessage:      sim.NewBaseMessage(sendTime, RequestMsgLen, sender, dest),
		ReqID:            reqID,
		Op:               op,
		MigrationTargets: migrationTargets,
		NoReturn:         noReturn,
	}
}

// NewReply builds a Reply message.
func NewReply(sendTime int64, sender, dest int, reqID uint64, result kv.Result) *Reply {
	return &Reply{
		BaseMessage: sim.NewBaseMessage(sendTime, ReplyMsgLen, sender, dest),
		ReqID:       reqID,
		Result:      result,
	}
}

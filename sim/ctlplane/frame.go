// Package ctlplane encodes and decodes the little-endian UDP control-plane
// frames used to reset simulated node/key counts, pull stats, and drive
// key migration, matching the wire layout of the P4 data-plane's own
// control socket.
package ctlplane

import (
	"encoding/binary"
	"fmt"
)

// Identifier tags every frame so a listener can discard anything that
// isn't a control-plane packet before looking at Type.
const Identifier uint16 = 0xDEAC

// Type enumerates the frame kinds. Header is always 3 bytes:
// u16 identifier | u8 type.
type Type uint8

const (
	TypeReset Type = iota
	TypeStats
	TypeMigReq
	TypeMigRep
)

const headerSize = 3

// Header is the common 3-byte prefix of every frame.
type Header struct {
	Type Type
}

func encodeHeader(buf []byte, t Type) []byte {
	binary.LittleEndian.PutUint16(buf, Identifier)
	buf[2] = byte(t)
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < headerSize {
		return Header{}, fmt.Errorf("ctlplane: frame too short for header: %d bytes", len(buf))
	}
	id := binary.LittleEndian.Uint16(buf)
	if id != Identifier {
		return Header{}, fmt.Errorf("ctlplane: bad identifier 0x%04x", id)
	}
	return Header{Type: Type(buf[2])}, nil
}

// Reset carries the node and replicated-key counts a simulated deployment
// should reconfigure to.
type Reset struct {
	NumNodes uint16
	NumRKeys uint16
}

func EncodeReset(r Reset) []byte {
	buf := make([]byte, headerSize+4)
	encodeHeader(buf, TypeReset)
	binary.LittleEndian.PutUint16(buf[headerSize:], r.NumNodes)
	binary.LittleEndian.PutUint16(buf[headerSize+2:], r.NumRKeys)
	return buf
}

func DecodeReset(buf []byte) (Reset, error) {
	if _, err := decodeHeader(buf); err != nil {
		return Reset{}, err
	}
	if len(buf) < headerSize+4 {
		return Reset{}, fmt.Errorf("ctlplane: reset frame too short: %d bytes", len(buf))
	}
	return Reset{
		NumNodes: binary.LittleEndian.Uint16(buf[headerSize:]),
		NumRKeys: binary.LittleEndian.Uint16(buf[headerSize+2:]),
	}, nil
}

// Stats is a bare request for the current statistics snapshot; it carries
// no payload beyond the header.
type Stats struct{}

func EncodeStats() []byte {
	buf := make([]byte, headerSize)
	encodeHeader(buf, TypeStats)
	return buf
}

func DecodeStats(buf []byte) (Stats, error) {
	_, err := decodeHeader(buf)
	return Stats{}, err
}

// MigReq asks the receiving node to migrate the key range [Start, End)
// to DstNodeID.
type MigReq struct {
	Start     uint32
	End       uint32
	DstNodeID uint32
}

func EncodeMigReq(m MigReq) []byte {
	buf := make([]byte, headerSize+12)
	encodeHeader(buf, TypeMigReq)
	binary.LittleEndian.PutUint32(buf[headerSize:], m.Start)
	binary.LittleEndian.PutUint32(buf[headerSize+4:], m.End)
	binary.LittleEndian.PutUint32(buf[headerSize+8:], m.DstNodeID)
	return buf
}

func DecodeMigReq(buf []byte) (MigReq, error) {
	if _, err := decodeHeader(buf); err != nil {
		return MigReq{}, err
	}
	if len(buf) < headerSize+12 {
		return MigReq{}, fmt.Errorf("ctlplane: migreq frame too short: %d bytes", len(buf))
	}
	return MigReq{
		Start:     binary.LittleEndian.Uint32(buf[headerSize:]),
		End:       binary.LittleEndian.Uint32(buf[headerSize+4:]),
		DstNodeID: binary.LittleEndian.Uint32(buf[headerSize+8:]),
	}, nil
}

// MigRepAck values.
const (
	MigRepOK   = 0
	MigRepFail = 1
)

// MigRep acknowledges (or refuses) a MigReq.
type MigRep struct {
	Ack uint8
}

func EncodeMigRep(m MigRep) []byte {
	buf := make([]byte, headerSize+1)
	encodeHeader(buf, TypeMigRep)
	buf[headerSize] = m.Ack
	return buf
}

func DecodeMigRep(buf []byte) (MigRep, error) {
	if _, err := decodeHeader(buf); err != nil {
		return MigRep{}, err
	}
	if len(buf) < headerSize+1 {
		return MigRep{}, fmt.Errorf("ctlplane: migrep frame too short: %d bytes", len(buf))
	}
	return MigRep{Ack: buf[headerSize]}, nil
}

// DecodeType peeks the frame's type without fully decoding its payload,
// for a dispatcher that routes to the right Decode* function.
func DecodeType(buf []byte) (Type, error) {
	h, err := decodeHeader(buf)
	if err != nil {
		return 0, err
	}
	return h.Type, nil
}

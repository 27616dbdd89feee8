// Package wire implements the ENet datagram and command byte layout:
// encode/decode of protocol headers, command headers, and command
// trailers. It knows nothing about peers, channels, or timing — it is
// the pure byte-level codec the engine builds on.
package wire

import (
	"encoding/binary"
	"errors"
)

// ErrTruncated is returned whenever a buffer ends before a field it is
// expected to hold. Callers treat it as "drop the datagram", never as
// a reason to apply a partial command.
var ErrTruncated = errors.New("wire: truncated")

// ErrUnknownCommand is returned by DecodeCommand when the low bits of
// the command byte do not name a known command type.
var ErrUnknownCommand = errors.New("wire: unknown command type")

// ErrInvalidChannel is returned by DecodeCommand when a channel-scoped
// command names a channel id at or beyond the configured channel limit.
var ErrInvalidChannel = errors.New("wire: invalid channel id")

// ErrInvalidFragment is returned by DecodeCommand when a fragment's
// index is not less than its declared fragment count.
var ErrInvalidFragment = errors.New("wire: invalid fragment index")

// Command type identifiers. Values occupy the low 6 bits of the
// command header byte; the top two bits are reserved for the
// Acknowledge and Unsequenced flags (see CommandHeader).
const (
	CommandNone                   uint8 = 0
	CommandAcknowledge            uint8 = 1
	CommandConnect                uint8 = 2
	CommandVerifyConnect          uint8 = 3
	CommandDisconnect             uint8 = 4
	CommandPing                   uint8 = 5
	CommandSendReliable           uint8 = 6
	CommandSendUnreliable         uint8 = 7
	CommandSendFragment           uint8 = 8
	CommandSendUnsequenced        uint8 = 9
	CommandBandwidthLimit         uint8 = 10
	CommandThrottleConfigure      uint8 = 11
	CommandSendUnreliableFragment uint8 = 12
	CommandCount                  uint8 = 13
)

const (
	commandTypeMask   = 0x3F
	commandFlagAck    = 0x80
	commandFlagUnseq  = 0x40
	headerSizeProto   = 2 // peer id + flags, big-endian uint16
	headerSizeSent    = 2 // optional sent-time
	headerSizeCommand = 4 // command byte + channel id + reliable seq
)

// ProtocolHeaderSize is the fixed size of ProtocolHeader without the
// optional sent-time field.
const ProtocolHeaderSize = headerSizeProto

// ProtocolSentTimeSize is the size of the optional sent-time field.
const ProtocolSentTimeSize = headerSizeSent

// CommandHeaderSize is the size of the common 4-byte command header.
const CommandHeaderSize = headerSizeCommand

// Peer id sentinel values packed into the top bits of the protocol
// header's peer-id/flags word.
const (
	ProtocolMaximumPeerID  uint16 = 0x0FFF
	ProtocolHeaderFlagCompressed = 0x4000
	ProtocolHeaderFlagSentTime   = 0x8000
	protocolHeaderSessionMask    = 0x3000
	protocolHeaderSessionShift   = 12
)

// ProtocolHeader is the first thing on every ENet datagram.
type ProtocolHeader struct {
	PeerID     uint16
	SessionID  uint8 // 2-bit nonce, see protocolHeaderSessionMask
	Compressed bool
	HasSentTime bool
	SentTime   uint16
}

// Encode appends the header's wire representation to buf and returns
// the extended slice.
func (h ProtocolHeader) Encode(buf []byte) []byte {
	word := h.PeerID & ProtocolMaximumPeerID
	word |= (uint16(h.SessionID) << protocolHeaderSessionShift) & protocolHeaderSessionMask
	if h.Compressed {
		word |= ProtocolHeaderFlagCompressed
	}
	if h.HasSentTime {
		word |= ProtocolHeaderFlagSentTime
	}
	buf = appendUint16(buf, word)
	if h.HasSentTime {
		buf = appendUint16(buf, h.SentTime)
	}
	return buf
}

// DecodeProtocolHeader reads a ProtocolHeader from the front of buf
// and returns the header plus the number of bytes consumed.
func DecodeProtocolHeader(buf []byte) (ProtocolHeader, int, error) {
	if len(buf) < headerSizeProto {
		return ProtocolHeader{}, 0, ErrTruncated
	}
	word := binary.BigEndian.Uint16(buf)
	h := ProtocolHeader{
		PeerID:      word & ProtocolMaximumPeerID,
		SessionID:   uint8((word & protocolHeaderSessionMask) >> protocolHeaderSessionShift),
		Compressed:  word&ProtocolHeaderFlagCompressed != 0,
		HasSentTime: word&ProtocolHeaderFlagSentTime != 0,
	}
	n := headerSizeProto
	if h.HasSentTime {
		if len(buf) < n+headerSizeSent {
			return ProtocolHeader{}, 0, ErrTruncated
		}
		h.SentTime = binary.BigEndian.Uint16(buf[n:])
		n += headerSizeSent
	}
	return h, n, nil
}

// CommandHeader is the common 4-byte prefix of every command.
type CommandHeader struct {
	Type                   uint8
	Acknowledge            bool
	Unsequenced            bool
	ChannelID              uint8
	ReliableSequenceNumber uint16
}

func (h CommandHeader) Encode(buf []byte) []byte {
	b := h.Type & commandTypeMask
	if h.Acknowledge {
		b |= commandFlagAck
	}
	if h.Unsequenced {
		b |= commandFlagUnseq
	}
	buf = append(buf, b, h.ChannelID)
	return appendUint16(buf, h.ReliableSequenceNumber)
}

func DecodeCommandHeader(buf []byte) (CommandHeader, int, error) {
	if len(buf) < headerSizeCommand {
		return CommandHeader{}, 0, ErrTruncated
	}
	b := buf[0]
	h := CommandHeader{
		Type:                   b & commandTypeMask,
		Acknowledge:            b&commandFlagAck != 0,
		Unsequenced:            b&commandFlagUnseq != 0,
		ChannelID:              buf[1],
		ReliableSequenceNumber: binary.BigEndian.Uint16(buf[2:4]),
	}
	return h, headerSizeCommand, nil
}

func appendUint16(buf []byte, v uint16) []byte {
	return append(buf, byte(v>>8), byte(v))
}

func appendUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func readUint16(buf []byte) uint16 { return binary.BigEndian.Uint16(buf) }
func readUint32(buf []byte) uint32 { return binary.BigEndian.Uint32(buf) }

// ValidCommandType reports whether t names a known command type.
func ValidCommandType(t uint8) bool {
	return t > CommandNone && t < CommandCount
}

package enet

import "github.com/nullbyte-dev/goenet/internal/wire"

// outgoingCommand is the engine's bookkeeping for one command queued
// to, or already sent to, a peer (§3 OutgoingCommand). cmd carries
// the wire-level header and fields ready for wire.EncodeCommand;
// packet keeps the backing Packet alive (and is nil for
// payload-less system commands built directly from engine state).
type outgoingCommand struct {
	cmd              wire.Command
	reliable         bool
	sendAttempts     uint32
	sentTime         uint32
	hasBeenSent      bool
	roundTripTimeout uint32
	firstSendTime    uint32
	packet           *Packet
}

func (c *outgoingCommand) size() int {
	return wire.CommandHeaderSize + len(c.cmd.Payload) + trailerSize(c.cmd.Header.Type)
}

func trailerSize(t uint8) int {
	switch t {
	case wire.CommandAcknowledge:
		return 4
	case wire.CommandConnect, wire.CommandVerifyConnect:
		return 2 + 1 + 1 + 4*10
	case wire.CommandDisconnect:
		return 4
	case wire.CommandPing:
		return 0
	case wire.CommandSendReliable:
		return 2
	case wire.CommandSendUnreliable:
		return 4
	case wire.CommandSendUnsequenced:
		return 4
	case wire.CommandSendFragment, wire.CommandSendUnreliableFragment:
		return 4 + 16
	case wire.CommandBandwidthLimit:
		return 8
	case wire.CommandThrottleConfigure:
		return 12
	default:
		return 0
	}
}

// isAckedCommandType reports whether a command of this type is ever
// acknowledged. The caller must still check the command's own
// Acknowledge flag: a command of an otherwise-acked type can still
// arrive unflagged (DisconnectNow's best-effort Disconnect, for
// instance), and those must not be acked back.
func isAckedCommandType(t uint8) bool {
	switch t {
	case wire.CommandConnect, wire.CommandVerifyConnect, wire.CommandDisconnect,
		wire.CommandPing, wire.CommandSendReliable, wire.CommandSendFragment,
		wire.CommandBandwidthLimit, wire.CommandThrottleConfigure:
		return true
	default:
		return false
	}
}

// fragmentTrailerOverhead is the fixed size of a fragment command's
// trailer excluding its payload (start seq, data length, and the four
// uint32 fragment fields).
const fragmentTrailerOverhead = 2 + 2 + 4*4

// fragmentLength returns the maximum payload a single fragment
// command may carry while keeping the whole datagram within mtu
// (§4.3). The overhead always reserves the checksum's fixed 4 bytes,
// whether or not checksums are enabled; compression only ever shrinks
// the wire size further.
func fragmentLength(mtu uint32) uint32 {
	overhead := uint32(wire.ProtocolHeaderSize + wire.CommandHeaderSize + fragmentTrailerOverhead + 4)
	if mtu <= overhead {
		return 1
	}
	return mtu - overhead
}

// ackEntry is a pending Acknowledge the host owes a peer for one
// received reliable command.
type ackEntry struct {
	channelID    uint8
	reliableSeq  uint16
	receivedTime uint16
}

package enet

// PeerID identifies a peer slot in a Host's peer table. It is stable
// for the peer's lifetime in that slot; once the peer returns to
// Disconnected the slot, and therefore its PeerID, may be reused by a
// later connection.
type PeerID uint16

// ChannelID identifies one of a peer's independent ordered/unordered
// byte streams.
type ChannelID uint8

// Protocol-wide limits, matching the reference ENet protocol.
const (
	ProtocolMaximumPeerID      = 0x0FFF
	ProtocolMaximumChannels    = 255
	ProtocolMaximumMTU         = 4096
	ProtocolMinimumMTU         = 576
	DefaultMTU                 = 1400
	DefaultReliableWindowSize  = 4096
	MaxFragmentCount           = 1024 * 1024
	maxPeerLimit               = 4095
)

// Default per-peer tuning values, installed by newPeer and kept by
// peers that do not override them via Peer.SetTimeout / SetPingInterval.
const (
	DefaultPeerTimeoutLimit    = 32
	DefaultPeerTimeoutMinimum  = 5000
	DefaultPeerTimeoutMaximum  = 30000
	DefaultPingInterval        = 500
	DefaultPacketThrottleInterval     = 5000
	DefaultPacketThrottleAcceleration = 2
	DefaultPacketThrottleDeceleration = 2
	PacketThrottleScale        = 32
	bandwidthThrottleInterval  = 1000
	unsequencedWindowSize      = 1024
)

// broadcastChannelID is the sentinel channel id used by peer-scoped
// (as opposed to channel-scoped) commands on the wire.
const broadcastChannelID = 0xFF

package enet

import "errors"

// Error values returned across the public API boundary (§6/§7 of the
// specification). Wire-level and most peer-level faults never surface
// here; they show up as Disconnect events or as counters instead.
var (
	// ErrFailedToInitializeSocket is returned by NewHost when the
	// supplied Socket's Init fails.
	ErrFailedToInitializeSocket = errors.New("enet: failed to initialize socket")

	// ErrInvalidSettings is returned by NewHost when a HostSettings
	// field is out of range (§6).
	ErrInvalidSettings = errors.New("enet: invalid host settings")

	// ErrNoPeersAvailable is returned by Host.Connect when every peer
	// slot is occupied.
	ErrNoPeersAvailable = errors.New("enet: no peers available")

	// ErrPeerNotConnected is returned by Peer.Send when the peer is
	// not in the Connected state.
	ErrPeerNotConnected = errors.New("enet: peer not connected")

	// ErrChannelDoesNotExist is returned by Peer.Send when the
	// requested channel id is not less than the peer's channel count.
	ErrChannelDoesNotExist = errors.New("enet: channel does not exist")

	// ErrPacketTooLarge is returned by Peer.Send when an unreliable,
	// non-fragmentable packet exceeds what a single datagram can
	// carry, or any packet exceeds the protocol's absolute size limit.
	ErrPacketTooLarge = errors.New("enet: packet too large")
)

// ServiceError wraps a transport-layer fault surfaced from
// Host.Service (§7, tier 3). A subsequent Service call may succeed.
type ServiceError struct {
	Err error
}

func (e *ServiceError) Error() string { return "enet: service: " + e.Err.Error() }
func (e *ServiceError) Unwrap() error { return e.Err }

// DisconnectReason explains why a Disconnect event was raised for a
// peer.
type DisconnectReason uint8

const (
	// DisconnectReasonRequested means the remote peer (or the local
	// application) asked to disconnect.
	DisconnectReasonRequested DisconnectReason = iota
	// DisconnectReasonTimeout means no traffic was received from the
	// peer within its configured timeout.
	DisconnectReasonTimeout
	// DisconnectReasonRetransmitExceeded means a reliable command hit
	// its retransmit attempt ceiling without being acknowledged.
	DisconnectReasonRetransmitExceeded
)

func (r DisconnectReason) String() string {
	switch r {
	case DisconnectReasonRequested:
		return "requested"
	case DisconnectReasonTimeout:
		return "timeout"
	case DisconnectReasonRetransmitExceeded:
		return "retransmit-exceeded"
	default:
		return "unknown"
	}
}

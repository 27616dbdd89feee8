package enet

// EventType identifies what a Host.Service call reported (§4.5).
type EventType uint8

const (
	// EventNone means Service returned without anything to report
	// (it still performed its dispatch/receive/send/throttle work).
	EventNone EventType = iota
	// EventConnect reports a peer entering Connected, either because a
	// remote Connect was accepted or because a local Connect finished
	// its handshake.
	EventConnect
	// EventDisconnect reports a peer leaving service, requested or not.
	EventDisconnect
	// EventReceive reports one application packet dispatched in order
	// on one channel.
	EventReceive
)

func (t EventType) String() string {
	switch t {
	case EventNone:
		return "none"
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventReceive:
		return "receive"
	default:
		return "unknown"
	}
}

// Event is what Host.Service returns (§4.5). Its exact fields in use
// depend on Type: EventConnect and EventDisconnect set Peer and Data
// (the application-supplied connect/disconnect payload); EventDisconnect
// also sets Reason. EventReceive sets Peer, ChannelID, and Packet.
//
// Reason is captured on the event itself, rather than read back off
// Peer, because dispatch recycles (resets) a disconnected peer's slot
// before returning its final event — by the time a caller could call a
// method on Peer, its disconnect bookkeeping is already gone.
type Event[A Address] struct {
	Type      EventType
	Peer      *Peer[A]
	ChannelID ChannelID
	Data      uint32
	Reason    DisconnectReason
	Packet    *Packet
}

// EventNoRef is Event with the peer reference replaced by its stable
// PeerID, for callers that want to hold on to an event past the point
// where the peer itself might be recycled (§12, mirroring the
// reference implementation's owned event variant).
type EventNoRef struct {
	Type      EventType
	PeerID    PeerID
	ChannelID ChannelID
	Data      uint32
	Reason    DisconnectReason
	Packet    *Packet
}

// NoRef converts e to its owned form.
func (e Event[A]) NoRef() EventNoRef {
	var id PeerID
	if e.Peer != nil {
		id = e.Peer.id
	}
	return EventNoRef{
		Type:      e.Type,
		PeerID:    id,
		ChannelID: e.ChannelID,
		Data:      e.Data,
		Reason:    e.Reason,
		Packet:    e.Packet,
	}
}

// pendingEvent is the engine-internal, peer-queued form of an event
// awaiting dispatch through Host.Service; the peer itself is implicit
// (it's whichever peer's queue is being drained).
type pendingEvent struct {
	kind      EventType
	channelID uint8
	data      uint32
	reason    DisconnectReason
	packet    *Packet
}

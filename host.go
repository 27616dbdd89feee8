package enet

import (
	"math/rand"

	"github.com/nullbyte-dev/goenet/internal/wire"
)

const (
	maxDatagramsPerService = 256
	maxCommandsPerDatagram = 32
)

// Host owns a Socket, a fixed table of peer slots, and the single
// cooperative Service loop that drives every connection (§4.4). A
// Host is not safe for concurrent use — Service, Connect, Broadcast,
// and Flush must all be called from the same goroutine.
type Host[A Address] struct {
	settings HostSettings
	socket   Socket[A]
	peers    []*Peer[A]

	// addrIndex maps a transport address to the peer slot currently
	// using it, in place of the reference implementation's reliance on
	// the protocol header's embedded peer id for routing (see design
	// notes in DESIGN.md).
	addrIndex map[A]PeerID

	rng *rand.Rand
	now uint32

	bandwidthThrottleEpoch uint32
	recvBuf                [MTUMax]byte
	scratch                [MTUMax * 4]byte
	channelLimit           uint8

	totalSentData     uint64
	totalReceivedData uint64
	totalSentPackets   uint64
	totalReceivedPackets uint64
}

// NewHost creates a Host bound to socket with the given settings
// (§4.4, §6). Zero-valued settings fields are filled in by
// DefaultHostSettings' rules before validation.
func NewHost[A Address](socket Socket[A], settings HostSettings) (*Host[A], error) {
	settings.applyDefaults()
	if err := settings.validate(); err != nil {
		return nil, err
	}
	if err := socket.Init(SocketOptions{}); err != nil {
		return nil, ErrFailedToInitializeSocket
	}

	rng := newRNG(settings.Seed)
	h := &Host[A]{
		settings:     settings,
		socket:       socket,
		peers:        make([]*Peer[A], settings.PeerLimit),
		addrIndex:    make(map[A]PeerID, settings.PeerLimit),
		rng:          rng,
		channelLimit: uint8(settings.ChannelLimit),
	}
	for i := range h.peers {
		h.peers[i] = newPeer[A](PeerID(i), *new(A), settings.ChannelLimit, rng)
	}
	h.now = settings.Clock.NowMS()
	h.bandwidthThrottleEpoch = h.now
	return h, nil
}

// PeerCount returns the size of the host's peer table.
func (h *Host[A]) PeerCount() int { return len(h.peers) }

// Peers returns every peer slot, connected or not.
func (h *Host[A]) Peers() []*Peer[A] { return h.peers }

func (h *Host[A]) freeSlot() int {
	for i, p := range h.peers {
		if p.state == StateDisconnected {
			return i
		}
	}
	return -1
}

// Connect begins connecting to address on channelCount channels
// (clamped to the host's configured channel limit), attaching data as
// the Connect command's application payload (§4.5). The returned Peer
// is in StateConnecting until a later Service call delivers
// EventConnect or EventDisconnect for it.
func (h *Host[A]) Connect(address A, channelCount int, data uint32) (*Peer[A], error) {
	if channelCount <= 0 || channelCount > h.settings.ChannelLimit {
		channelCount = h.settings.ChannelLimit
	}
	idx := h.freeSlot()
	if idx < 0 {
		return nil, ErrNoPeersAvailable
	}
	p := h.peers[idx]
	p.address = address
	p.state = StateConnecting
	p.connectID = h.rng.Uint32()
	p.mtu = uint32(h.settings.MTU)
	p.windowSize = DefaultReliableWindowSize
	p.incomingSessionID = 0
	p.outgoingSessionID = 0
	p.lastReceiveTime = h.now
	p.lastSendTime = h.now
	h.addrIndex[address] = p.id

	cmd := wire.Command{
		Header:                     wire.CommandHeader{Type: wire.CommandConnect, Acknowledge: true, ChannelID: broadcastChannelID},
		OutgoingPeerID:             uint16(idx),
		IncomingSessionID:          p.incomingSessionID,
		OutgoingSessionID:          p.outgoingSessionID,
		MTU:                        p.mtu,
		WindowSize:                 p.windowSize,
		ChannelCount:               uint32(channelCount),
		IncomingBandwidth:          h.settings.IncomingBandwidth,
		OutgoingBandwidth:          h.settings.OutgoingBandwidth,
		PacketThrottleInterval:     p.packetThrottleInterval,
		PacketThrottleAcceleration: p.packetThrottleAcceleration,
		PacketThrottleDeceleration: p.packetThrottleDeceleration,
		ConnectID:                  p.connectID,
		ConnectData:                data,
	}
	p.queueOutgoing(cmd, true, nil)
	return p, nil
}

// Broadcast queues packet for delivery to every Connected peer on
// channelID (§4.5). Per-peer Send errors (e.g. an invalid channelID)
// are ignored for peers not presently eligible.
func (h *Host[A]) Broadcast(channelID ChannelID, packet *Packet) {
	for _, p := range h.peers {
		if p.state != StateConnected {
			continue
		}
		_ = p.Send(channelID, packet)
	}
}

// recyclePeer returns a peer slot to Disconnected and frees its
// address mapping once its EventDisconnect has been dispatched.
func (h *Host[A]) recyclePeer(p *Peer[A]) {
	var zero A
	if p.address != zero {
		delete(h.addrIndex, p.address)
	}
	p.reset()
}

// dispatch pops and wraps the oldest pending event across every peer,
// recycling a peer whose disconnect was just reported (§4.4 step 1).
func (h *Host[A]) dispatch() (Event[A], bool) {
	for _, p := range h.peers {
		pe, ok := p.popEvent()
		if !ok {
			continue
		}
		ev := Event[A]{Type: pe.kind, Peer: p, ChannelID: ChannelID(pe.channelID), Data: pe.data, Reason: pe.reason, Packet: pe.packet}
		if pe.kind == EventDisconnect {
			h.recyclePeer(p)
		}
		return ev, true
	}
	return Event[A]{}, false
}

// Service performs one pass of the host's cooperative loop — dispatch
// already-pending events, receive and process inbound datagrams,
// check peer timers, flush outbound datagrams, and recompute the
// bandwidth throttle — returning the first event produced along the
// way, or an EventNone event if the pass produced none (§4.4). It
// never blocks; callers poll it (typically in a loop with their own
// pacing).
func (h *Host[A]) Service() (Event[A], error) {
	h.now = h.settings.Clock.NowMS()

	if ev, ok := h.dispatch(); ok {
		return ev, nil
	}

	if err := h.receiveAll(); err != nil {
		return Event[A]{}, &ServiceError{Err: err}
	}
	if ev, ok := h.dispatch(); ok {
		return ev, nil
	}

	h.checkPeerTimers()
	if ev, ok := h.dispatch(); ok {
		return ev, nil
	}

	if err := h.sendAll(); err != nil {
		return Event[A]{}, &ServiceError{Err: err}
	}
	h.reapZombies()

	h.updateBandwidthThrottle()
	if ev, ok := h.dispatch(); ok {
		return ev, nil
	}

	return Event[A]{Type: EventNone}, nil
}

// reapZombies raises EventDisconnect for any Zombie peer whose queue
// has fully drained and that has not already had one queued. This is
// the completion of DisconnectNow's best-effort final send, and also
// of an incoming remote Disconnect's Acknowledge: both leave the peer
// Zombie without pushing the event directly, so sendAll gets a chance
// to flush whatever was still owed before the peer is dispatched and
// recycled.
func (h *Host[A]) reapZombies() {
	for _, p := range h.peers {
		if p.state != StateZombie {
			continue
		}
		if len(p.outgoingCommands) > 0 || len(p.sentReliableCommands) > 0 {
			continue
		}
		pending := false
		for _, pe := range p.pendingEvents {
			if pe.kind == EventDisconnect {
				pending = true
				break
			}
		}
		if pending {
			continue
		}
		p.pendingEvents = append(p.pendingEvents, pendingEvent{kind: EventDisconnect, data: p.disconnectData, reason: p.disconnectReason})
	}
}

// Flush immediately sends every peer's queued outgoing commands
// without waiting for the next Service call to reach the send stage
// (§4.5) — typically used right before tearing a Host down so a final
// Disconnect reaches its peers.
func (h *Host[A]) Flush() error {
	h.now = h.settings.Clock.NowMS()
	return h.sendAll()
}

// Statistics reports cumulative traffic counters for metrics export.
type Statistics struct {
	BytesSent       uint64
	BytesReceived   uint64
	PacketsSent     uint64
	PacketsReceived uint64
}

// Statistics returns the host's cumulative traffic counters.
func (h *Host[A]) Statistics() Statistics {
	return Statistics{
		BytesSent:       h.totalSentData,
		BytesReceived:   h.totalReceivedData,
		PacketsSent:     h.totalSentPackets,
		PacketsReceived: h.totalReceivedPackets,
	}
}

package enet

import (
	"math/rand"

	"github.com/nullbyte-dev/goenet/internal/wire"
)

// PeerState is a peer's position in the connection state machine
// (§3, §4.3).
type PeerState uint8

const (
	StateDisconnected PeerState = iota
	StateConnecting
	StateAcknowledgingConnect
	StateConnectionPending
	StateConnectionSucceeded
	StateConnected
	StateDisconnectLater
	StateDisconnecting
	StateAcknowledgingDisconnect
	StateZombie
)

func (s PeerState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAcknowledgingConnect:
		return "acknowledging-connect"
	case StateConnectionPending:
		return "connection-pending"
	case StateConnectionSucceeded:
		return "connection-succeeded"
	case StateConnected:
		return "connected"
	case StateDisconnectLater:
		return "disconnect-later"
	case StateDisconnecting:
		return "disconnecting"
	case StateAcknowledgingDisconnect:
		return "acknowledging-disconnect"
	case StateZombie:
		return "zombie"
	default:
		return "unknown"
	}
}

// Peer represents one remote endpoint a Host has a connection slot
// for (§3). A Peer is only ever reached through the Host that owns
// it — Host.Service returns events carrying a *Peer, and Peer.Send
// queues data the owning Host flushes on its next Service call; a
// Peer never reaches back into its Host.
type Peer[A Address] struct {
	id      PeerID
	address A
	state   PeerState

	incomingSessionID uint8
	outgoingSessionID uint8
	connectID         uint32

	mtu          uint32
	windowSize   uint32
	channels     []*channel

	incomingBandwidth uint32
	outgoingBandwidth uint32

	// outgoingDataTotal accumulates bytes sent since
	// bandwidthThrottleEpoch; incomingDataTotal is never incremented.
	// The host-level bandwidth throttle recompute only resets both
	// (§5).
	outgoingDataTotal      uint32
	incomingDataTotal      uint32
	bandwidthThrottleEpoch uint32

	packetThrottle             uint32
	packetThrottleLimit        uint32
	packetThrottleInterval     uint32
	packetThrottleAcceleration uint32
	packetThrottleDeceleration uint32
	packetThrottleEpoch        uint32
	packetsSentInEpoch         uint32
	packetsLostInEpoch         uint32
	packetLoss                 uint32

	// rttSumInEpoch/rttSamplesInEpoch accumulate every RTT sample folded
	// in since packetThrottleEpoch, so updateThrottle can compare the
	// interval's mean RTT against the recent low/high bounds (§4.3).
	rttSumInEpoch     uint32
	rttSamplesInEpoch uint32

	roundTripTime                uint32
	roundTripTimeVariance        uint32
	lowestRoundTripTime          uint32
	highestRoundTripTimeVariance uint32
	lastRoundTripTime            uint32

	timeoutLimit    uint32
	timeoutMinimum  uint32
	timeoutMaximum  uint32
	pingInterval    uint32
	lastReceiveTime uint32
	lastSendTime    uint32
	lastPingSent    uint32

	// earliestUnackedSendTime is when the oldest still-unacknowledged
	// reliable command currently in flight was first sent; once
	// now-earliestUnackedSendTime exceeds timeoutMaximum the peer is
	// dropped regardless of timeoutLimit (§4.3, hard timeout).
	earliestUnackedSendTime uint32

	disconnectData   uint32
	disconnectReason DisconnectReason

	outgoingCommands     []*outgoingCommand
	sentReliableCommands []*outgoingCommand
	acksToSend           []ackEntry

	pendingEvents []pendingEvent

	unsequencedWindow    [unsequencedWindowSize / 32]uint32
	incomingUnsequencedGroup uint16
	outgoingUnsequencedGroup uint16

	rng *rand.Rand

	needsDispatch bool
}

func newPeer[A Address](id PeerID, address A, channelLimit int, rng *rand.Rand) *Peer[A] {
	p := &Peer[A]{
		id:                         id,
		address:                    address,
		state:                      StateDisconnected,
		channels:                   make([]*channel, channelLimit),
		mtu:                        DefaultMTU,
		windowSize:                 DefaultReliableWindowSize,
		packetThrottle:             PacketThrottleScale,
		packetThrottleLimit:        PacketThrottleScale,
		packetThrottleInterval:     DefaultPacketThrottleInterval,
		packetThrottleAcceleration: DefaultPacketThrottleAcceleration,
		packetThrottleDeceleration: DefaultPacketThrottleDeceleration,
		timeoutLimit:               DefaultPeerTimeoutLimit,
		timeoutMinimum:             DefaultPeerTimeoutMinimum,
		timeoutMaximum:             DefaultPeerTimeoutMaximum,
		pingInterval:               DefaultPingInterval,
		rng:                        rng,
	}
	for i := range p.channels {
		p.channels[i] = newChannel()
	}
	return p
}

// reset returns the peer to a fresh Disconnected slot, ready for reuse
// by a later Connect.
func (p *Peer[A]) reset() {
	var zero A
	id := p.id
	channelLimit := len(p.channels)
	rng := p.rng
	*p = *newPeer[A](id, zero, channelLimit, rng)
}

// ID returns the peer's stable slot identifier.
func (p *Peer[A]) ID() PeerID { return p.id }

// State returns the peer's current connection state.
func (p *Peer[A]) State() PeerState { return p.state }

// Address returns the transport address the peer was created with.
func (p *Peer[A]) Address() A { return p.address }

// RoundTripTime returns the smoothed round-trip time estimate in
// milliseconds, or 0 if no reliable command has yet been acknowledged.
func (p *Peer[A]) RoundTripTime() uint32 { return p.roundTripTime }

// PacketLoss reports the most recently computed reliable-retransmit
// ratio, scaled to [0, PacketThrottleScale], updated once per
// packetThrottleInterval.
func (p *Peer[A]) PacketLoss() uint32 { return p.packetLoss }

// Send queues packet for delivery on channelID (§4.5). It returns
// ErrPeerNotConnected if the peer is not in the Connected state and
// ErrChannelDoesNotExist if channelID is out of range. Delivery itself
// happens on a later Host.Service call.
func (p *Peer[A]) Send(channelID ChannelID, packet *Packet) error {
	if p.state != StateConnected {
		return ErrPeerNotConnected
	}
	if int(channelID) >= len(p.channels) {
		return ErrChannelDoesNotExist
	}
	if packet.Len() > maxPacketSize {
		return ErrPacketTooLarge
	}
	ch := p.channels[channelID]
	reliable := packet.Flags().Has(PacketFlagReliable)
	threshold := fragmentLength(p.mtu)

	if !packet.Flags().Has(PacketFlagUnreliableFragment) && uint32(packet.Len()) > threshold {
		// Oversized packets without PacketFlagUnreliableFragment are
		// reliably fragmented, whatever other flags the caller asked
		// for (§3 Packet invariant).
		return p.sendFragmented(ch, uint8(channelID), packet, threshold)
	}

	if packet.Flags().Has(PacketFlagUnsequenced) {
		return p.queueUnsequenced(ch, uint8(channelID), packet)
	}

	if reliable {
		return p.queueReliable(ch, uint8(channelID), packet)
	}

	if !reliable && packet.Len() > int(p.mtu) {
		return ErrPacketTooLarge
	}
	return p.queueUnreliable(ch, uint8(channelID), packet)
}

func (p *Peer[A]) queueReliable(ch *channel, channelID uint8, packet *Packet) error {
	seq := ch.nextOutgoingReliable()
	cmd := wire.Command{
		Header:  wire.CommandHeader{Type: wire.CommandSendReliable, ChannelID: channelID, ReliableSequenceNumber: seq},
		Payload: packet.Data(),
	}
	p.queueOutgoing(cmd, true, packet.retain())
	return nil
}

// queueUnreliable applies the packet throttle's probabilistic
// admission gate before queuing an unreliable command: draw a value in
// [0, PacketThrottleScale) and only send if it falls below the current
// throttle (§4.3, §8). A gated-out send is not an error — it is the
// throttle doing exactly what it is for — so the packet is simply
// dropped without being queued.
func (p *Peer[A]) queueUnreliable(ch *channel, channelID uint8, packet *Packet) error {
	if p.packetThrottle < PacketThrottleScale {
		if uint32(p.rng.Int31n(PacketThrottleScale)) >= p.packetThrottle {
			return nil
		}
	}
	reliableSeq := ch.outgoingReliableSequenceNumber
	unreliableSeq := ch.nextOutgoingUnreliable()
	cmd := wire.Command{
		Header:                   wire.CommandHeader{Type: wire.CommandSendUnreliable, ChannelID: channelID, ReliableSequenceNumber: reliableSeq},
		UnreliableSequenceNumber: unreliableSeq,
		Payload:                  packet.Data(),
	}
	p.queueOutgoing(cmd, false, packet.retain())
	return nil
}

func (p *Peer[A]) queueUnsequenced(ch *channel, channelID uint8, packet *Packet) error {
	p.outgoingUnsequencedGroup++
	reliableSeq := ch.outgoingReliableSequenceNumber
	cmd := wire.Command{
		Header:           wire.CommandHeader{Type: wire.CommandSendUnsequenced, Unsequenced: true, ChannelID: channelID, ReliableSequenceNumber: reliableSeq},
		UnsequencedGroup: p.outgoingUnsequencedGroup,
		Payload:          packet.Data(),
	}
	p.queueOutgoing(cmd, false, packet.retain())
	return nil
}

func (p *Peer[A]) sendFragmented(ch *channel, channelID uint8, packet *Packet, threshold uint32) error {
	data := packet.Data()
	total := uint32(len(data))
	fragmentCount := (total + threshold - 1) / threshold
	if fragmentCount == 0 {
		fragmentCount = 1
	}
	if fragmentCount > MaxFragmentCount {
		return ErrPacketTooLarge
	}
	fragType := uint8(wire.CommandSendFragment)
	reliable := true
	if packet.Flags().Has(PacketFlagUnreliableFragment) {
		fragType = wire.CommandSendUnreliableFragment
		reliable = false
	}

	startSeq := ch.outgoingReliableSequenceNumber + 1
	for i := uint32(0); i < fragmentCount; i++ {
		offset := i * threshold
		end := offset + threshold
		if end > total {
			end = total
		}
		seq := ch.nextOutgoingReliable()
		cmd := wire.Command{
			Header:              wire.CommandHeader{Type: fragType, ChannelID: channelID, ReliableSequenceNumber: seq},
			StartSequenceNumber: startSeq,
			FragmentCount:       fragmentCount,
			FragmentNumber:      i,
			TotalLength:         total,
			FragmentOffset:      offset,
			Payload:             data[offset:end],
		}
		var pkt *Packet
		if i == fragmentCount-1 {
			pkt = packet.retain()
		}
		p.queueOutgoing(cmd, reliable, pkt)
	}
	return nil
}

// queueOutgoing appends a freshly built command to the send queue.
// reliable controls whether it is retransmitted and acknowledged;
// packet, if non-nil, keeps the backing buffer alive until every
// fragment referencing it has been sent.
func (p *Peer[A]) queueOutgoing(cmd wire.Command, reliable bool, packet *Packet) {
	if reliable {
		cmd.Header.Acknowledge = true
	}
	p.outgoingCommands = append(p.outgoingCommands, &outgoingCommand{
		cmd:      cmd,
		reliable: reliable,
		packet:   packet,
	})
}

// Ping queues a Ping command, used to keep the connection alive and
// refresh the round-trip time estimate when no application traffic is
// flowing (§4.3).
func (p *Peer[A]) Ping() {
	if p.state != StateConnected {
		return
	}
	p.queueOutgoing(wire.Command{
		Header: wire.CommandHeader{Type: wire.CommandPing, ChannelID: broadcastChannelID},
	}, true, nil)
}

// SetPingInterval overrides how often the Host sends a keepalive Ping
// to this peer when idle (§4.5). A zero interval restores the default.
func (p *Peer[A]) SetPingInterval(interval uint32) {
	if interval == 0 {
		interval = DefaultPingInterval
	}
	p.pingInterval = interval
}

// SetTimeout overrides the peer's timeout tuning (§4.5). A zero value
// for any parameter leaves that parameter unchanged.
func (p *Peer[A]) SetTimeout(limit, minimum, maximum uint32) {
	if limit != 0 {
		p.timeoutLimit = limit
	}
	if minimum != 0 {
		p.timeoutMinimum = minimum
	}
	if maximum != 0 {
		p.timeoutMaximum = maximum
	}
}

// Disconnect requests a graceful disconnect: any already-queued
// reliable data is allowed to finish sending, then a Disconnect
// command is sent and the Host waits for it to be acknowledged before
// raising EventDisconnect (§4.3, §4.5).
func (p *Peer[A]) Disconnect(data uint32) {
	if p.state == StateDisconnecting || p.state == StateDisconnected || p.state == StateZombie {
		return
	}
	p.disconnectData = data
	if p.state == StateConnecting || p.state == StateAcknowledgingConnect {
		p.state = StateZombie
		return
	}
	p.state = StateDisconnecting
	p.queueOutgoing(wire.Command{
		Header:         wire.CommandHeader{Type: wire.CommandDisconnect, Acknowledge: true, ChannelID: broadcastChannelID},
		DisconnectData: data,
	}, true, nil)
}

// DisconnectLater behaves like Disconnect but waits for every
// currently queued outgoing command to be sent (and, if reliable,
// acknowledged) before the Disconnect command itself is queued
// (§4.5).
func (p *Peer[A]) DisconnectLater(data uint32) {
	if p.state != StateConnected && p.state != StateDisconnectLater {
		p.Disconnect(data)
		return
	}
	if len(p.outgoingCommands) == 0 && len(p.sentReliableCommands) == 0 {
		p.Disconnect(data)
		return
	}
	p.disconnectData = data
	p.state = StateDisconnectLater
}

// DisconnectNow forcibly disconnects without waiting for any
// acknowledgement: a single best-effort Disconnect command is queued
// and the peer becomes a Zombie immediately. EventDisconnect is not
// raised until the Host's next Service call has had a chance to flush
// that final datagram (Host.reapZombies) — pushing it here would let
// dispatch recycle the peer, and its queued outgoing commands with
// it, before send ever ran (§4.5).
func (p *Peer[A]) DisconnectNow(data uint32) {
	if p.state == StateDisconnected {
		return
	}
	if p.state != StateConnecting && p.state != StateAcknowledgingConnect && p.state != StateZombie {
		p.queueOutgoing(wire.Command{
			Header:         wire.CommandHeader{Type: wire.CommandDisconnect, ChannelID: broadcastChannelID},
			DisconnectData: data,
		}, false, nil)
	}
	p.disconnectData = data
	p.disconnectReason = DisconnectReasonRequested
	p.state = StateZombie
}

// popEvent removes and returns the peer's oldest pending event, if
// any.
func (p *Peer[A]) popEvent() (pendingEvent, bool) {
	if len(p.pendingEvents) == 0 {
		return pendingEvent{}, false
	}
	e := p.pendingEvents[0]
	p.pendingEvents = p.pendingEvents[1:]
	return e, true
}

// recordRTT folds a freshly measured round trip into the smoothed
// estimate and its variance (§4.3), following the reference
// implementation's exponential-smoothing formula.
func (p *Peer[A]) recordRTT(rtt uint32) {
	if p.roundTripTime == 0 {
		p.roundTripTime = rtt
		p.roundTripTimeVariance = rtt / 2
	} else {
		if rtt >= p.roundTripTime {
			p.roundTripTime += (rtt - p.roundTripTime) / 8
		} else {
			p.roundTripTime -= (p.roundTripTime - rtt) / 8
		}
		p.roundTripTimeVariance = (3*p.roundTripTimeVariance + absDiffU32(rtt, p.roundTripTime)) / 4
	}
	if p.lowestRoundTripTime == 0 || p.roundTripTime < p.lowestRoundTripTime {
		p.lowestRoundTripTime = p.roundTripTime
	}
	if p.roundTripTimeVariance > p.highestRoundTripTimeVariance {
		p.highestRoundTripTimeVariance = p.roundTripTimeVariance
	}
	p.lastRoundTripTime = rtt
	p.rttSumInEpoch += rtt
	p.rttSamplesInEpoch++
}

func absDiffU32(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// acknowledge matches an incoming Acknowledge command against the
// peer's in-flight reliable commands, removing it and folding its
// round trip into the RTT estimate; it reports whether a match was
// found (§4.3).
func (p *Peer[A]) acknowledge(channelID uint8, reliableSeq uint16, now uint32) bool {
	for i, oc := range p.sentReliableCommands {
		if oc.cmd.Header.ChannelID != channelID || oc.cmd.Header.ReliableSequenceNumber != reliableSeq {
			continue
		}
		p.sentReliableCommands = append(p.sentReliableCommands[:i], p.sentReliableCommands[i+1:]...)
		if oc.packet != nil {
			oc.packet.release()
		}
		p.recordRTT(now - oc.sentTime)
		p.recalculateEarliestUnacked(now)

		switch oc.cmd.Header.Type {
		case wire.CommandVerifyConnect:
			if p.state == StateAcknowledgingConnect {
				p.state = StateConnected
				p.pendingEvents = append(p.pendingEvents, pendingEvent{kind: EventConnect, data: oc.cmd.ConnectData})
			}
		case wire.CommandDisconnect:
			if p.state == StateDisconnecting {
				p.state = StateZombie
				p.disconnectReason = DisconnectReasonRequested
				p.pendingEvents = append(p.pendingEvents, pendingEvent{kind: EventDisconnect, data: p.disconnectData, reason: p.disconnectReason})
			}
		}
		return true
	}
	return false
}

// DisconnectReason reports why the peer last transitioned to Zombie.
// It is only meaningful before the corresponding EventDisconnect has
// been dispatched — dispatch recycles the peer's slot immediately
// after, at which point Event.Reason on the returned event is the
// reliable source.
func (p *Peer[A]) DisconnectReason() DisconnectReason { return p.disconnectReason }

// recalculateEarliestUnacked recomputes earliestUnackedSendTime from
// whatever reliable commands are still in flight after an
// acknowledgement removed one.
func (p *Peer[A]) recalculateEarliestUnacked(now uint32) {
	if len(p.sentReliableCommands) == 0 {
		p.earliestUnackedSendTime = now
		return
	}
	earliest := p.sentReliableCommands[0].firstSendTime
	for _, oc := range p.sentReliableCommands[1:] {
		if oc.firstSendTime < earliest {
			earliest = oc.firstSendTime
		}
	}
	p.earliestUnackedSendTime = earliest
}

// queueAck records that an Acknowledge is owed for one received
// reliable command.
func (p *Peer[A]) queueAck(channelID uint8, reliableSeq uint16, sentTime uint16) {
	p.acksToSend = append(p.acksToSend, ackEntry{channelID: channelID, reliableSeq: reliableSeq, receivedTime: sentTime})
}

// checkUnsequenced reports whether group is new enough to accept,
// sliding the window forward when group is ahead of it (§3, §4.3).
func (p *Peer[A]) checkUnsequenced(group uint16) bool {
	const windowSize = unsequencedWindowSize
	if sequenceLess(group, p.incomingUnsequencedGroup) {
		return false
	}
	distance := uint32(group) - uint32(p.incomingUnsequencedGroup)
	if distance >= windowSize {
		for i := range p.unsequencedWindow {
			p.unsequencedWindow[i] = 0
		}
		p.incomingUnsequencedGroup = group
	} else if distance > 0 {
		for i := uint32(1); i <= distance; i++ {
			bit := (uint32(p.incomingUnsequencedGroup) + i) % windowSize
			p.unsequencedWindow[bit/32] &^= 1 << (bit % 32)
		}
		p.incomingUnsequencedGroup = group
	}
	bit := uint32(group) % windowSize
	word := bit / 32
	mask := uint32(1) << (bit % 32)
	if p.unsequencedWindow[word]&mask != 0 {
		return false
	}
	p.unsequencedWindow[word] |= mask
	return true
}

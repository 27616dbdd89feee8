package enet

import "github.com/nullbyte-dev/goenet/internal/wire"

// receiveAll drains every pending datagram off the socket, up to
// maxDatagramsPerService per Service call so a flood of inbound
// traffic can never starve the send stage entirely.
func (h *Host[A]) receiveAll() error {
	for i := 0; i < maxDatagramsPerService; i++ {
		addr, pr, ok, err := h.socket.Receive(&h.recvBuf)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if !pr.Complete {
			continue // oversized datagram, drop (§4.2)
		}
		h.totalReceivedData += uint64(pr.N)
		h.totalReceivedPackets++
		h.handleDatagram(addr, h.recvBuf[:pr.N])
	}
	return nil
}

// handleDatagram decodes one datagram's protocol header, undoes its
// checksum and compression if configured, and dispatches each command
// it carries in turn. Any decode failure drops the rest of the
// datagram rather than risk applying a partially-decoded command
// (§4.1, §7).
func (h *Host[A]) handleDatagram(addr A, raw []byte) {
	hdr, n, err := wire.DecodeProtocolHeader(raw)
	if err != nil {
		return
	}
	body := raw[n:]

	if h.settings.Checksum != nil {
		if len(body) < 4 {
			return
		}
		sum := body[:4]
		rest := body[4:]
		zero := [4]byte{}
		want := h.settings.Checksum.Sum([][]byte{raw[:n], zero[:], rest})
		got := uint32(sum[0])<<24 | uint32(sum[1])<<16 | uint32(sum[2])<<8 | uint32(sum[3])
		if want != got {
			return
		}
		body = rest
	}

	if hdr.Compressed {
		if h.settings.Compressor == nil {
			return
		}
		n, err := h.settings.Compressor.Decompress(body, h.scratch[:])
		if err != nil {
			return
		}
		body = h.scratch[:n]
	}

	now := h.now
	for len(body) > 0 {
		cmd, used, err := wire.DecodeCommand(body, h.channelLimit)
		if err != nil {
			return
		}
		h.handleCommand(addr, cmd, now)
		body = body[used:]
	}
}

// handleCommand routes one decoded command to the peer it concerns.
// Connect is special: it may name a peer that does not exist yet.
func (h *Host[A]) handleCommand(addr A, cmd wire.Command, now uint32) {
	if cmd.Header.Type == wire.CommandConnect {
		h.handleIncomingConnect(addr, cmd, now)
		return
	}

	pid, ok := h.addrIndex[addr]
	if !ok {
		return
	}
	p := h.peers[pid]
	if p.state == StateDisconnected {
		return
	}
	p.lastReceiveTime = now

	switch cmd.Header.Type {
	case wire.CommandAcknowledge:
		p.acknowledge(cmd.Header.ChannelID, cmd.ReceivedReliableSequenceNumber, now)
		return // Acknowledge is never itself acknowledged

	case wire.CommandVerifyConnect:
		h.handleVerifyConnect(p, cmd)

	case wire.CommandDisconnect:
		h.handleIncomingDisconnect(p, cmd)

	case wire.CommandPing:
		// lastReceiveTime update above is the whole point of a ping

	case wire.CommandSendReliable:
		if int(cmd.Header.ChannelID) < len(p.channels) {
			p.channels[cmd.Header.ChannelID].receiveReliable(cmd.Header.ReliableSequenceNumber, cmd.Payload)
		}

	case wire.CommandSendUnreliable:
		if int(cmd.Header.ChannelID) < len(p.channels) && len(cmd.Payload) > 0 {
			ch := p.channels[cmd.Header.ChannelID]
			if ch.receiveUnreliable(cmd.UnreliableSequenceNumber) {
				p.pendingEvents = append(p.pendingEvents, pendingEvent{
					kind: EventReceive, channelID: cmd.Header.ChannelID,
					packet: NewPacket(cmd.Payload, 0),
				})
			}
		}

	case wire.CommandSendUnsequenced:
		if p.checkUnsequenced(cmd.UnsequencedGroup) {
			p.pendingEvents = append(p.pendingEvents, pendingEvent{
				kind: EventReceive, channelID: cmd.Header.ChannelID,
				packet: NewPacket(cmd.Payload, PacketFlagUnsequenced),
			})
		}

	case wire.CommandSendFragment:
		if int(cmd.Header.ChannelID) < len(p.channels) {
			p.channels[cmd.Header.ChannelID].receiveReliableFragment(
				cmd.StartSequenceNumber, cmd.FragmentNumber, cmd.FragmentCount,
				cmd.TotalLength, cmd.FragmentOffset, cmd.Payload)
		}

	case wire.CommandSendUnreliableFragment:
		if int(cmd.Header.ChannelID) < len(p.channels) {
			ch := p.channels[cmd.Header.ChannelID]
			if data, complete := ch.receiveUnreliableFragment(
				cmd.StartSequenceNumber, cmd.FragmentNumber, cmd.FragmentCount,
				cmd.TotalLength, cmd.FragmentOffset, cmd.Payload); complete {
				p.pendingEvents = append(p.pendingEvents, pendingEvent{
					kind: EventReceive, channelID: cmd.Header.ChannelID,
					packet: NewPacketNoCopy(data, PacketFlagUnreliableFragment),
				})
			}
		}

	case wire.CommandBandwidthLimit:
		p.incomingBandwidth = cmd.BandwidthIncoming
		p.outgoingBandwidth = cmd.BandwidthOutgoing

	case wire.CommandThrottleConfigure:
		p.packetThrottleInterval = cmd.ThrottleInterval
		p.packetThrottleAcceleration = cmd.ThrottleAcceleration
		p.packetThrottleDeceleration = cmd.ThrottleDeceleration
	}

	if cmd.Header.Acknowledge && isAckedCommandType(cmd.Header.Type) {
		p.queueAck(cmd.Header.ChannelID, cmd.Header.ReliableSequenceNumber, uint16(now))
	}

	if cmd.Header.Type == wire.CommandSendReliable || cmd.Header.Type == wire.CommandSendFragment {
		if int(cmd.Header.ChannelID) < len(p.channels) {
			ch := p.channels[cmd.Header.ChannelID]
			for _, payload := range ch.drainReady() {
				p.pendingEvents = append(p.pendingEvents, pendingEvent{
					kind: EventReceive, channelID: cmd.Header.ChannelID,
					packet: NewPacketNoCopy(payload, PacketFlagReliable),
				})
			}
		}
	}
}

// handleIncomingConnect processes a Connect command from an address
// with no existing peer (the listening side of a handshake). A
// retransmitted Connect from an address already mid-handshake is
// acknowledged again without allocating a second slot.
func (h *Host[A]) handleIncomingConnect(addr A, cmd wire.Command, now uint32) {
	if pid, ok := h.addrIndex[addr]; ok {
		p := h.peers[pid]
		if p.state != StateDisconnected {
			p.queueAck(broadcastChannelID, cmd.Header.ReliableSequenceNumber, uint16(now))
			return
		}
	}

	idx := h.freeSlot()
	if idx < 0 {
		return // no room; the connecting side will time out and retry elsewhere
	}
	p := h.peers[idx]
	channelCount := int(cmd.ChannelCount)
	if channelCount <= 0 || channelCount > len(p.channels) {
		channelCount = len(p.channels)
	}

	p.address = addr
	p.state = StateAcknowledgingConnect
	p.connectID = cmd.ConnectID
	p.mtu = cmd.MTU
	if p.mtu > uint32(h.settings.MTU) {
		p.mtu = uint32(h.settings.MTU)
	}
	if p.mtu < ProtocolMinimumMTU {
		p.mtu = ProtocolMinimumMTU
	}
	p.windowSize = cmd.WindowSize
	p.incomingSessionID = cmd.OutgoingSessionID
	p.outgoingSessionID = cmd.IncomingSessionID
	p.incomingBandwidth = cmd.IncomingBandwidth
	p.outgoingBandwidth = cmd.OutgoingBandwidth
	p.packetThrottleInterval = cmd.PacketThrottleInterval
	p.packetThrottleAcceleration = cmd.PacketThrottleAcceleration
	p.packetThrottleDeceleration = cmd.PacketThrottleDeceleration
	p.lastReceiveTime = now
	p.lastSendTime = now
	h.addrIndex[addr] = p.id

	reply := wire.Command{
		Header:                     wire.CommandHeader{Type: wire.CommandVerifyConnect, Acknowledge: true, ChannelID: broadcastChannelID},
		OutgoingPeerID:             uint16(p.id),
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
		ConnectData:                cmd.ConnectData,
	}
	p.queueOutgoing(reply, true, nil)
	p.queueAck(broadcastChannelID, cmd.Header.ReliableSequenceNumber, uint16(now))
}

// handleVerifyConnect processes the reply to a locally initiated
// Connect, completing the handshake on the connecting side (§4.3).
func (h *Host[A]) handleVerifyConnect(p *Peer[A], cmd wire.Command) {
	if p.state != StateConnecting && p.state != StateAcknowledgingConnect {
		return
	}
	if cmd.ConnectID != p.connectID {
		// Answers a stale Connect from a previous occupant of this
		// slot; ignore.
		return
	}
	if cmd.MTU < p.mtu {
		p.mtu = cmd.MTU
	}
	p.windowSize = cmd.WindowSize
	p.incomingSessionID = cmd.OutgoingSessionID
	p.outgoingSessionID = cmd.IncomingSessionID
	p.packetThrottleInterval = cmd.PacketThrottleInterval
	p.packetThrottleAcceleration = cmd.PacketThrottleAcceleration
	p.packetThrottleDeceleration = cmd.PacketThrottleDeceleration
	p.state = StateConnected
	p.pendingEvents = append(p.pendingEvents, pendingEvent{kind: EventConnect, data: cmd.ConnectData})
}

// handleIncomingDisconnect processes a Disconnect command from the
// remote side (§4.3). It is ignored while the peer is Disconnected or
// Zombie, and while the handshake is still in progress (Connecting,
// AcknowledgingConnect); in every other state it takes effect. It
// does not raise EventDisconnect itself: the generic post-switch
// acknowledgement logic in handleCommand still owes the remote side an
// Acknowledge for this very command, and Host.reapZombies is what
// raises the event only once that ack (and anything else still queued)
// has actually been sent — pushing it here would let dispatch recycle
// the peer, and the queued ack with it, before send ever ran.
func (h *Host[A]) handleIncomingDisconnect(p *Peer[A], cmd wire.Command) {
	switch p.state {
	case StateDisconnected, StateZombie, StateConnecting, StateAcknowledgingConnect:
		return
	}
	p.disconnectData = cmd.DisconnectData
	p.disconnectReason = DisconnectReasonRequested
	p.state = StateZombie
}

package enet

import "github.com/nullbyte-dev/goenet/internal/wire"

// sendAll builds and writes one datagram per peer that has anything
// due to go out this pass (§4.4 step 3).
func (h *Host[A]) sendAll() error {
	for _, p := range h.peers {
		if p.state == StateDisconnected {
			continue
		}
		body := h.gatherDatagram(p)
		if len(body) == 0 {
			continue
		}

		outBody := body
		compressed := false
		if h.settings.Compressor != nil {
			out := make([]byte, len(body))
			n, err := h.settings.Compressor.Compress([][]byte{body}, out)
			if err == nil && n > 0 && n < len(body) {
				outBody = out[:n]
				compressed = true
			}
		}

		hdr := wire.ProtocolHeader{PeerID: uint16(p.id), SessionID: p.outgoingSessionID, Compressed: compressed}
		datagram := hdr.Encode(make([]byte, 0, wire.ProtocolHeaderSize+4+len(outBody)))
		headerLen := len(datagram)

		if h.settings.Checksum != nil {
			var zero [4]byte
			datagram = append(datagram, zero[:]...)
			datagram = append(datagram, outBody...)
			sum := h.settings.Checksum.Sum([][]byte{datagram[:headerLen], zero[:], outBody})
			datagram[headerLen] = byte(sum >> 24)
			datagram[headerLen+1] = byte(sum >> 16)
			datagram[headerLen+2] = byte(sum >> 8)
			datagram[headerLen+3] = byte(sum)
		} else {
			datagram = append(datagram, outBody...)
		}

		sent, err := h.socket.Send(p.address, datagram)
		if err != nil {
			return err
		}
		if sent > 0 {
			h.totalSentData += uint64(sent)
			h.totalSentPackets++
			p.outgoingDataTotal += uint32(sent)
		}
	}
	return nil
}

// gatherDatagram assembles one datagram's worth of command bytes for
// p: owed acknowledgements first, then due retransmits, then new
// commands, each bounded by the peer's MTU and the reliable window
// (§4.3, §5). It returns nil if there is nothing to send.
func (h *Host[A]) gatherDatagram(p *Peer[A]) []byte {
	budget := int(p.mtu) - wire.ProtocolHeaderSize
	if h.settings.Checksum != nil {
		budget -= 4
	}
	if budget <= 0 {
		return nil
	}

	buf := make([]byte, 0, budget)
	commandCount := 0

	for len(p.acksToSend) > 0 && commandCount < maxCommandsPerDatagram {
		a := p.acksToSend[0]
		enc := wire.EncodeAcknowledge(nil, a.channelID, a.reliableSeq, a.receivedTime)
		if len(buf)+len(enc) > budget {
			break
		}
		buf = append(buf, enc...)
		p.acksToSend = p.acksToSend[1:]
		commandCount++
	}

	for _, oc := range p.sentReliableCommands {
		if commandCount >= maxCommandsPerDatagram {
			break
		}
		if h.now-oc.sentTime < oc.roundTripTimeout {
			continue
		}
		enc := wire.EncodeCommand(nil, oc.cmd)
		if len(buf)+len(enc) > budget {
			continue
		}
		buf = append(buf, enc...)
		commandCount++
		oc.sendAttempts++
		p.packetsSentInEpoch++
		p.packetsLostInEpoch++
		oc.sentTime = h.now
		oc.roundTripTimeout = computeRTO(p.roundTripTime, p.roundTripTimeVariance, p.timeoutMinimum, p.timeoutMaximum, oc.sendAttempts)
		if oc.sendAttempts >= p.timeoutLimit {
			p.disconnectReason = DisconnectReasonRetransmitExceeded
			p.state = StateZombie
			p.pendingEvents = append(p.pendingEvents, pendingEvent{kind: EventDisconnect, data: p.disconnectData, reason: p.disconnectReason})
			return buf
		}
	}

	inFlight := reliableBytesInFlight(p)
	remaining := p.outgoingCommands[:0:0]
	for _, oc := range p.outgoingCommands {
		if commandCount >= maxCommandsPerDatagram {
			remaining = append(remaining, oc)
			continue
		}
		if oc.reliable && len(p.sentReliableCommands) > 0 && inFlight+uint32(oc.size()) > p.windowSize {
			remaining = append(remaining, oc)
			continue
		}
		enc := wire.EncodeCommand(nil, oc.cmd)
		if len(buf)+len(enc) > budget {
			remaining = append(remaining, oc)
			continue
		}
		buf = append(buf, enc...)
		commandCount++
		p.packetsSentInEpoch++
		if oc.reliable {
			oc.hasBeenSent = true
			oc.sentTime = h.now
			oc.firstSendTime = h.now
			oc.sendAttempts = 1
			oc.roundTripTimeout = computeRTO(p.roundTripTime, p.roundTripTimeVariance, p.timeoutMinimum, p.timeoutMaximum, 1)
			inFlight += uint32(oc.size())
			p.sentReliableCommands = append(p.sentReliableCommands, oc)
		} else if oc.packet != nil {
			oc.packet.release()
		}
	}
	p.outgoingCommands = remaining
	p.recalculateEarliestUnacked(h.now)

	if len(buf) == 0 {
		return nil
	}
	p.lastSendTime = h.now
	return buf
}

// computeRTO derives the retransmit timeout for the attempt-th send of
// a reliable command, backing off exponentially from the smoothed RTT
// estimate, floored at the peer's configured timeoutMinimum and capped
// at its timeoutMaximum (§4.3 RTT clamp).
func computeRTO(roundTripTime, roundTripTimeVariance, timeoutMinimum, timeoutMaximum, attempt uint32) uint32 {
	base := roundTripTime + 4*roundTripTimeVariance
	if base < timeoutMinimum {
		base = timeoutMinimum
	}
	shift := attempt - 1
	if shift > 10 {
		shift = 10
	}
	rto := base << shift
	if rto > timeoutMaximum || rto < base {
		rto = timeoutMaximum
	}
	return rto
}

func reliableBytesInFlight[A Address](p *Peer[A]) uint32 {
	var total uint32
	for _, oc := range p.sentReliableCommands {
		total += uint32(oc.size())
	}
	return total
}

// checkPeerTimers enforces per-peer timeouts, keeps idle connections
// alive with a Ping, promotes a DisconnectLater peer once its queue
// has drained, and recomputes the packet throttle (§4.3, §5).
func (h *Host[A]) checkPeerTimers() {
	for _, p := range h.peers {
		switch p.state {
		case StateDisconnected, StateZombie:
			continue
		}

		if len(p.sentReliableCommands) > 0 && h.now-p.earliestUnackedSendTime >= p.timeoutMaximum {
			p.disconnectReason = DisconnectReasonTimeout
			p.state = StateZombie
			p.pendingEvents = append(p.pendingEvents, pendingEvent{kind: EventDisconnect, data: p.disconnectData, reason: p.disconnectReason})
			continue
		}
		if p.lastReceiveTime != 0 && h.now-p.lastReceiveTime >= p.timeoutMaximum {
			p.disconnectReason = DisconnectReasonTimeout
			p.state = StateZombie
			p.pendingEvents = append(p.pendingEvents, pendingEvent{kind: EventDisconnect, data: p.disconnectData, reason: p.disconnectReason})
			continue
		}

		if p.state == StateDisconnectLater && len(p.outgoingCommands) == 0 && len(p.sentReliableCommands) == 0 {
			p.Disconnect(p.disconnectData)
			continue
		}

		if p.state == StateConnected && h.now-p.lastSendTime >= p.pingInterval && len(p.outgoingCommands) == 0 {
			p.Ping()
		}

		p.updateThrottle(h.now)
	}
}

// updateThrottle recomputes the packet throttle once per configured
// interval from the mean RTT observed over that interval: holding at
// or below the recent low RTT accelerates the throttle toward its
// limit, reaching the high RTT bound decelerates it, and anything in
// between leaves it alone (§4.3). packetLoss is a separate, purely
// observational retransmit-ratio statistic; it no longer drives the
// throttle itself.
func (p *Peer[A]) updateThrottle(now uint32) {
	if now-p.packetThrottleEpoch < p.packetThrottleInterval {
		return
	}
	if p.packetsSentInEpoch > 0 {
		p.packetLoss = p.packetsLostInEpoch * PacketThrottleScale / p.packetsSentInEpoch
	}
	p.packetThrottleEpoch = now
	p.packetsSentInEpoch = 0
	p.packetsLostInEpoch = 0

	if p.roundTripTime == 0 {
		// No RTT sample yet this connection; leave the throttle as-is.
		p.rttSumInEpoch = 0
		p.rttSamplesInEpoch = 0
		return
	}

	meanRTT := p.roundTripTime
	if p.rttSamplesInEpoch > 0 {
		meanRTT = p.rttSumInEpoch / p.rttSamplesInEpoch
	}
	p.rttSumInEpoch = 0
	p.rttSamplesInEpoch = 0

	highRTT := p.roundTripTime + 2*p.roundTripTimeVariance

	switch {
	case meanRTT <= p.lowestRoundTripTime:
		p.packetThrottle += p.packetThrottleAcceleration
		if p.packetThrottle > p.packetThrottleLimit {
			p.packetThrottle = p.packetThrottleLimit
		}
	case meanRTT >= highRTT:
		if p.packetThrottle > p.packetThrottleDeceleration {
			p.packetThrottle -= p.packetThrottleDeceleration
		} else {
			p.packetThrottle = 0
		}
	}
}

// updateBandwidthThrottle redistributes the host's configured
// outgoing bandwidth across connected peers once per
// bandwidthThrottleInterval, and resets their per-epoch traffic
// counters (§5, §6). It only updates packetThrottleLimit locally; see
// DESIGN.md for why the recomputed limit is not also transmitted to
// the peer via ThrottleConfigure/BandwidthLimit.
func (h *Host[A]) updateBandwidthThrottle() {
	if h.now-h.bandwidthThrottleEpoch < bandwidthThrottleInterval {
		return
	}
	h.bandwidthThrottleEpoch = h.now

	connected := 0
	for _, p := range h.peers {
		if p.state == StateConnected {
			connected++
		}
	}
	if connected == 0 {
		return
	}

	var share uint32
	if h.settings.OutgoingBandwidth > 0 {
		share = h.settings.OutgoingBandwidth / uint32(connected)
	}
	for _, p := range h.peers {
		if p.state != StateConnected {
			continue
		}
		limit := share
		if p.outgoingBandwidth > 0 && (limit == 0 || p.outgoingBandwidth < limit) {
			limit = p.outgoingBandwidth
		}
		p.packetThrottleLimit = PacketThrottleScale
		if limit > 0 {
			// A peer throttled to a small fraction of its requested share
			// gets a proportionally reduced throttle ceiling; a generous
			// share leaves the ceiling at its default maximum.
			if h.settings.OutgoingBandwidth > 0 && limit < h.settings.OutgoingBandwidth {
				p.packetThrottleLimit = PacketThrottleScale * limit / h.settings.OutgoingBandwidth
				if p.packetThrottleLimit == 0 {
					p.packetThrottleLimit = 1
				}
			}
		}
		p.outgoingDataTotal = 0
		p.incomingDataTotal = 0
	}
}

package enet

// fragmentAssembly accumulates the fragments of one reliably- or
// unreliably-fragmented message, keyed by its start sequence number
// (§3, §4.3). It mirrors IncomingCommand's fragment bookkeeping: a
// bitset of fragments seen, the declared total length, and the
// growing payload buffer.
type fragmentAssembly struct {
	data              []byte
	fragmentsReceived []bool
	fragmentsRemaining uint32
	totalLength       uint32
}

func newFragmentAssembly(totalLength, fragmentCount uint32) *fragmentAssembly {
	return &fragmentAssembly{
		data:               make([]byte, totalLength),
		fragmentsReceived:  make([]bool, fragmentCount),
		fragmentsRemaining: fragmentCount,
		totalLength:        totalLength,
	}
}

// addFragment copies payload at offset and marks fragmentNumber seen.
// It reports whether the message is now complete. Duplicate fragments
// are idempotent.
func (a *fragmentAssembly) addFragment(fragmentNumber, offset uint32, payload []byte) bool {
	if int(fragmentNumber) >= len(a.fragmentsReceived) {
		return false
	}
	if !a.fragmentsReceived[fragmentNumber] {
		a.fragmentsReceived[fragmentNumber] = true
		a.fragmentsRemaining--
	}
	end := offset + uint32(len(payload))
	if end > a.totalLength {
		end = a.totalLength
	}
	if offset < end {
		copy(a.data[offset:end], payload)
	}
	return a.fragmentsRemaining == 0
}

// reliableDelivery is a fully- or partially-received reliable command
// buffered until it can be dispatched in sequence order.
type reliableDelivery struct {
	ready   bool
	payload []byte
	frag    *fragmentAssembly
	// seqSpan is how many consecutive reliable sequence numbers this
	// delivery occupies: 1 for a plain command, fragmentCount for a
	// fragmented message (every fragment consumes its own reliable
	// sequence number, but the whole group dispatches as one delivery
	// once complete).
	seqSpan uint16
}

// channel is per-peer, per-channel sequencing and reassembly state
// (§3).
type channel struct {
	outgoingReliableSequenceNumber   uint16
	outgoingUnreliableSequenceNumber uint16
	incomingReliableSequenceNumber   uint16
	incomingUnreliableSequenceNumber uint16

	// reliableIncoming buffers commands received out of order and
	// fragments in progress, keyed by reliable sequence number (the
	// start sequence number, for fragmented messages).
	reliableIncoming map[uint16]*reliableDelivery

	// unreliableFragments buffers in-progress unreliable fragment
	// reassembly, keyed by start sequence number. Completed messages
	// are delivered immediately (no retransmit, no ordering wait).
	unreliableFragments map[uint16]*fragmentAssembly
}

func newChannel() *channel {
	return &channel{
		reliableIncoming:    make(map[uint16]*reliableDelivery),
		unreliableFragments: make(map[uint16]*fragmentAssembly),
	}
}

// nextOutgoingReliable increments and returns the channel's outgoing
// reliable sequence counter.
func (c *channel) nextOutgoingReliable() uint16 {
	c.outgoingReliableSequenceNumber++
	return c.outgoingReliableSequenceNumber
}

// nextOutgoingUnreliable increments and returns the channel's
// outgoing unreliable sequence counter.
func (c *channel) nextOutgoingUnreliable() uint16 {
	c.outgoingUnreliableSequenceNumber++
	return c.outgoingUnreliableSequenceNumber
}

// receiveReliable buffers a non-fragmented reliable command's payload
// for in-order dispatch.
func (c *channel) receiveReliable(seq uint16, payload []byte) {
	if _, exists := c.reliableIncoming[seq]; exists {
		return // duplicate retransmission
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	c.reliableIncoming[seq] = &reliableDelivery{ready: true, payload: cp, seqSpan: 1}
}

// receiveReliableFragment buffers one fragment of a reliably
// fragmented message, allocating the assembly on first sight.
func (c *channel) receiveReliableFragment(startSeq uint16, fragmentNumber, fragmentCount, totalLength, offset uint32, payload []byte) {
	d, exists := c.reliableIncoming[startSeq]
	if !exists {
		d = &reliableDelivery{frag: newFragmentAssembly(totalLength, fragmentCount), seqSpan: uint16(fragmentCount)}
		c.reliableIncoming[startSeq] = d
	}
	if d.ready || d.frag == nil {
		return // duplicate of an already-complete message
	}
	if d.frag.addFragment(fragmentNumber, offset, payload) {
		d.ready = true
		d.payload = d.frag.data
		d.frag = nil
	}
}

// drainReady pops every contiguous, ready delivery starting at
// incomingReliableSequenceNumber+1, advancing the counter, and
// returns their payloads in sequence order. A gap — a missing or
// not-yet-complete entry — stops the drain (§3, §8).
func (c *channel) drainReady() [][]byte {
	var out [][]byte
	for {
		next := c.incomingReliableSequenceNumber + 1
		d, exists := c.reliableIncoming[next]
		if !exists || !d.ready {
			return out
		}
		delete(c.reliableIncoming, next)
		span := d.seqSpan
		if span == 0 {
			span = 1
		}
		c.incomingReliableSequenceNumber = next + span - 1
		out = append(out, d.payload)
	}
}

// receiveUnreliable reports whether an unreliable-sequenced command
// with the given sequence number is new enough to deliver, updating
// the channel's high-water mark if so (§4.3).
func (c *channel) receiveUnreliable(seq uint16) bool {
	if sequenceGreater(seq, c.incomingUnreliableSequenceNumber) {
		c.incomingUnreliableSequenceNumber = seq
		return true
	}
	return false
}

// receiveUnreliableFragment buffers one fragment of an unreliably
// fragmented message and returns its assembled payload once complete
// (nil, false otherwise). A completed assembly is removed from
// unreliableFragments here; an incomplete one stays until its
// remaining fragments arrive.
func (c *channel) receiveUnreliableFragment(startSeq uint16, fragmentNumber, fragmentCount, totalLength, offset uint32, payload []byte) ([]byte, bool) {
	a, exists := c.unreliableFragments[startSeq]
	if !exists {
		a = newFragmentAssembly(totalLength, fragmentCount)
		c.unreliableFragments[startSeq] = a
	}
	if a.addFragment(fragmentNumber, offset, payload) {
		delete(c.unreliableFragments, startSeq)
		return a.data, true
	}
	return nil, false
}

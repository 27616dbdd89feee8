package enet

// PacketFlag marks how a Packet should be delivered (§3).
type PacketFlag uint8

const (
	// PacketFlagReliable requests guaranteed, ordered-within-channel
	// delivery with retransmission.
	PacketFlagReliable PacketFlag = 1 << iota
	// PacketFlagUnsequenced disables both reliability and per-channel
	// ordering; the packet is delivered at most once, in a window of
	// 1024 recent group ids, in arbitrary order.
	PacketFlagUnsequenced
	// PacketFlagUnreliableFragment marks a packet that is already one
	// fragment of a larger unreliable message and must not be
	// fragmented again.
	PacketFlagUnreliableFragment
	// PacketFlagNoAllocate marks a packet built by NewPacketNoCopy,
	// which wraps the caller's slice without copying it. The receiving
	// peer's fragment reassembler does not read this flag: it always
	// allocates a buffer of the message's total length.
	PacketFlagNoAllocate
)

// Has reports whether flag is set.
func (f PacketFlag) Has(flag PacketFlag) bool { return f&flag != 0 }

// maxPacketSize is the protocol's absolute ceiling on a single
// packet's payload length (2^32 - 1, per §3); in practice Go slices
// are bounded well below that on a 32-bit int platform, so this is a
// defensive constant rather than one ever reached in tests.
const maxPacketSize = 1<<32 - 1

// Packet is an immutable, reference-counted application payload (§3).
// A Packet may be shared between a peer's send queue, its fragment
// descriptors, and a delivered Receive event; the underlying buffer
// is released once every holder drops its reference.
type Packet struct {
	data  []byte
	flags PacketFlag
	refs  *int
}

// NewPacket copies data into a new Packet with the given flags.
func NewPacket(data []byte, flags PacketFlag) *Packet {
	cp := make([]byte, len(data))
	copy(cp, data)
	refs := 1
	return &Packet{data: cp, flags: flags, refs: &refs}
}

// NewPacketNoCopy wraps data directly (PacketFlagNoAllocate semantics
// for the sender side): the caller must not mutate data afterward.
func NewPacketNoCopy(data []byte, flags PacketFlag) *Packet {
	refs := 1
	return &Packet{data: data, flags: flags | PacketFlagNoAllocate, refs: &refs}
}

// Data returns the packet's payload. The returned slice must not be
// mutated.
func (p *Packet) Data() []byte { return p.data }

// Flags returns the flags the packet was created with.
func (p *Packet) Flags() PacketFlag { return p.flags }

// Len returns len(p.Data()).
func (p *Packet) Len() int { return len(p.data) }

func (p *Packet) retain() *Packet {
	*p.refs++
	return p
}

func (p *Packet) release() {
	*p.refs--
}

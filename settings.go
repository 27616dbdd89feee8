package enet

import (
	"math/rand"
	"time"
)

// Compressor is the whole-datagram compression capability (§6). The
// Host applies it to the command region of an outgoing datagram
// (everything after the checksum, if any) and to the same region of
// an incoming datagram whose header claims it was compressed.
type Compressor interface {
	// Compress writes a compressed form of the concatenation of in
	// into out and returns the number of bytes written. Returning an
	// error or a length not smaller than the input means the Host
	// sends the datagram uncompressed instead.
	Compress(in [][]byte, out []byte) (int, error)
	// Decompress writes the decompressed form of in into out and
	// returns the number of bytes written.
	Decompress(in []byte, out []byte) (int, error)
}

// Checksum is the optional integrity capability (§6). The Host calls
// it with the header (checksum field zeroed) followed by the command
// region, and stores the result immediately after the header.
type Checksum interface {
	Sum(in [][]byte) uint32
}

// Clock supplies the engine's monotonic millisecond time source. The
// zero value is never used directly; DefaultHostSettings installs
// SystemClock.
type Clock interface {
	NowMS() uint32
}

// SystemClock implements Clock over time.Now, relative to process
// start, wrapping the same way the reference implementation's
// millisecond timer does once it exceeds 32 bits (roughly 49 days).
type SystemClock struct {
	start time.Time
}

// NewSystemClock returns a Clock anchored to the current instant.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) NowMS() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// HostSettings configures a Host (§6). NewHost fills zero-valued
// fields with the values DefaultHostSettings uses before validating
// them, matching the teacher's flat-struct-with-constructor
// configuration idiom rather than a builder API.
type HostSettings struct {
	// PeerLimit bounds the size of the peer table, [1, 4095].
	PeerLimit int
	// ChannelLimit bounds channels per peer, [1, 255].
	ChannelLimit int
	// IncomingBandwidth and OutgoingBandwidth are bytes/sec; 0 means
	// unlimited.
	IncomingBandwidth uint32
	OutgoingBandwidth uint32
	// MTU bounds datagram size, [576, 4096].
	MTU int
	// Compressor and Checksum are optional codec plugs (§6).
	Compressor Compressor
	Checksum   Checksum
	// Clock is the monotonic millisecond time source. Defaults to
	// SystemClock.
	Clock Clock
	// Seed drives connect-id and throttle randomness. Defaults to a
	// value derived from Clock at NewHost time.
	Seed int64
}

// DefaultHostSettings returns a HostSettings with every field at its
// documented default (§6).
func DefaultHostSettings() HostSettings {
	return HostSettings{
		PeerLimit:         1,
		ChannelLimit:      ProtocolMaximumChannels,
		IncomingBandwidth: 0,
		OutgoingBandwidth: 0,
		MTU:               DefaultMTU,
		Clock:             NewSystemClock(),
	}
}

func (s *HostSettings) validate() error {
	if s.PeerLimit < 1 || s.PeerLimit > maxPeerLimit {
		return ErrInvalidSettings
	}
	if s.ChannelLimit < 1 || s.ChannelLimit > ProtocolMaximumChannels {
		return ErrInvalidSettings
	}
	if s.MTU < ProtocolMinimumMTU || s.MTU > ProtocolMaximumMTU {
		return ErrInvalidSettings
	}
	return nil
}

func (s *HostSettings) applyDefaults() {
	if s.PeerLimit == 0 {
		s.PeerLimit = 1
	}
	if s.ChannelLimit == 0 {
		s.ChannelLimit = ProtocolMaximumChannels
	}
	if s.MTU == 0 {
		s.MTU = DefaultMTU
	}
	if s.Clock == nil {
		s.Clock = NewSystemClock()
	}
	if s.Seed == 0 {
		s.Seed = int64(s.Clock.NowMS())
	}
}

func newRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

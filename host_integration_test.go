package enet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nullbyte-dev/goenet/internal/wire"
)

// manualClock is a Clock a test can advance deterministically, instead
// of depending on wall-clock time passing during the test run.
type manualClock struct{ ms uint32 }

func (c *manualClock) NowMS() uint32    { return c.ms }
func (c *manualClock) advance(d uint32) { c.ms += d }

// testPair wires two Hosts together over MemorySockets sharing one
// manualClock, so timeouts and retransmits are driven by explicit
// advances rather than real sleeps.
type testPair struct {
	t       *testing.T
	clock   *manualClock
	a, b    *Host[string]
	sa, sb  *MemorySocket[string]
	dropAtoB, dropBtoA func(data []byte) bool
}

func newTestPair(t *testing.T) *testPair {
	clock := &manualClock{ms: 1}
	sa := NewMemorySocket[string]()
	sb := NewMemorySocket[string]()

	settingsA := DefaultHostSettings()
	settingsA.Clock = clock
	settingsA.Seed = 1
	hostA, err := NewHost[string](sa, settingsA)
	require.NoError(t, err)

	settingsB := DefaultHostSettings()
	settingsB.Clock = clock
	settingsB.Seed = 2
	hostB, err := NewHost[string](sb, settingsB)
	require.NoError(t, err)

	return &testPair{t: t, clock: clock, a: hostA, b: hostB, sa: sa, sb: sb}
}

// drainEvents services h until it reports EventNone, collecting every
// event produced along the way.
func drainEvents(t *testing.T, h *Host[string]) []Event[string] {
	var out []Event[string]
	for {
		ev, err := h.Service()
		require.NoError(t, err)
		if ev.Type == EventNone {
			return out
		}
		out = append(out, ev)
	}
}

// tick drains both hosts, pipes whatever each produced to the other
// (unless a drop filter says otherwise), and advances the shared
// clock. It returns every event either host raised this tick.
func (p *testPair) tick(stepMS uint32) (aEvents, bEvents []Event[string]) {
	aEvents = drainEvents(p.t, p.a)
	bEvents = drainEvents(p.t, p.b)
	p.pipe()
	p.clock.advance(stepMS)
	return aEvents, bEvents
}

func (p *testPair) pipe() {
	for {
		addr, data, ok := p.sa.Read()
		if !ok {
			break
		}
		if p.dropAtoB != nil && p.dropAtoB(data) {
			continue
		}
		p.sb.Write(addr, data)
	}
	for {
		addr, data, ok := p.sb.Read()
		if !ok {
			break
		}
		if p.dropBtoA != nil && p.dropBtoA(data) {
			continue
		}
		p.sa.Write(addr, data)
	}
}

// connect drives the handshake to completion, returning each side's
// view of the resulting peer.
func (p *testPair) connect(t *testing.T) (peerA, peerB *Peer[string]) {
	peerA, err := p.a.Connect("peer-b", 2, 0)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		aEvents, bEvents := p.tick(10)
		for _, ev := range aEvents {
			if ev.Type == EventConnect {
				peerA = ev.Peer
			}
		}
		for _, ev := range bEvents {
			if ev.Type == EventConnect {
				peerB = ev.Peer
			}
		}
		if peerA.State() == StateConnected && peerB != nil && peerB.State() == StateConnected {
			return peerA, peerB
		}
	}
	t.Fatal("handshake did not complete")
	return nil, nil
}

func TestIntegrationEcho(t *testing.T) {
	p := newTestPair(t)
	peerA, peerB := p.connect(t)

	require.NoError(t, peerA.Send(0, NewPacket([]byte("ping"), PacketFlagReliable)))

	var echoed []byte
	for i := 0; i < 10 && echoed == nil; i++ {
		aEvents, bEvents := p.tick(10)
		for _, ev := range aEvents {
			if ev.Type == EventReceive {
				echoed = ev.Packet.Data()
			}
		}
		for _, ev := range bEvents {
			if ev.Type == EventReceive {
				require.Equal(t, "ping", string(ev.Packet.Data()))
				require.NoError(t, ev.Peer.Send(ev.ChannelID, NewPacket(ev.Packet.Data(), PacketFlagReliable)))
			}
		}
	}
	_ = peerB

	for i := 0; i < 10 && echoed == nil; i++ {
		aEvents, _ := p.tick(10)
		for _, ev := range aEvents {
			if ev.Type == EventReceive {
				echoed = ev.Packet.Data()
			}
		}
	}
	require.Equal(t, "ping", string(echoed))
}

func TestIntegrationOrderingUnderLoss(t *testing.T) {
	p := newTestPair(t)
	peerA, _ := p.connect(t)

	// Drop the first datagram carrying a reliable SendReliable command
	// (likely bundling all three queued sends); the retransmit must
	// still arrive, and the receiver must deliver every message in
	// order despite the loss.
	dropped := false
	p.dropAtoB = func(data []byte) bool {
		if dropped || len(data) <= wire.ProtocolHeaderSize {
			return false
		}
		if h, _, err := wire.DecodeCommandHeader(data[wire.ProtocolHeaderSize:]); err == nil && h.Type == wire.CommandSendReliable {
			dropped = true
			return true
		}
		return false
	}

	require.NoError(t, peerA.Send(0, NewPacket([]byte("one"), PacketFlagReliable)))
	require.NoError(t, peerA.Send(0, NewPacket([]byte("two"), PacketFlagReliable)))
	require.NoError(t, peerA.Send(0, NewPacket([]byte("three"), PacketFlagReliable)))

	var received []string
	for i := 0; i < 200 && len(received) < 3; i++ {
		_, bEvents := p.tick(50)
		for _, ev := range bEvents {
			if ev.Type == EventReceive {
				received = append(received, string(ev.Packet.Data()))
			}
		}
	}
	require.Equal(t, []string{"one", "two", "three"}, received)
}

func TestIntegrationFragmentation(t *testing.T) {
	p := newTestPair(t)
	peerA, _ := p.connect(t)

	big := make([]byte, 5000)
	for i := range big {
		big[i] = byte(i)
	}
	require.NoError(t, peerA.Send(0, NewPacket(big, PacketFlagReliable)))

	var got []byte
	for i := 0; i < 30 && got == nil; i++ {
		_, bEvents := p.tick(10)
		for _, ev := range bEvents {
			if ev.Type == EventReceive {
				got = ev.Packet.Data()
			}
		}
	}
	require.Equal(t, big, got)
}

func TestIntegrationUnsequencedWindow(t *testing.T) {
	p := newTestPair(t)
	peerA, _ := p.connect(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, peerA.Send(0, NewPacket([]byte{byte(i)}, PacketFlagUnsequenced)))
	}

	var received [][]byte
	for i := 0; i < 10; i++ {
		_, bEvents := p.tick(10)
		for _, ev := range bEvents {
			if ev.Type == EventReceive {
				received = append(received, ev.Packet.Data())
			}
		}
	}
	require.Len(t, received, 5)
}

func TestIntegrationHardTimeout(t *testing.T) {
	p := newTestPair(t)
	peerA, peerB := p.connect(t)
	_ = peerB

	// Sever the link entirely and let the hard timeout fire.
	p.dropAtoB = func([]byte) bool { return true }
	p.dropBtoA = func([]byte) bool { return true }

	var gotTimeout bool
	for i := 0; i < 40 && !gotTimeout; i++ {
		aEvents, _ := p.tick(1000)
		for _, ev := range aEvents {
			if ev.Type == EventDisconnect {
				require.Equal(t, DisconnectReasonTimeout, ev.Reason)
				gotTimeout = true
			}
		}
	}
	require.True(t, gotTimeout, "expected a hard timeout disconnect")
	require.Equal(t, StateDisconnected, peerA.State())
}

func TestIntegrationGracefulDisconnect(t *testing.T) {
	p := newTestPair(t)
	peerA, peerB := p.connect(t)

	peerA.Disconnect(42)

	var aDisconnected, bDisconnected bool
	for i := 0; i < 20 && (!aDisconnected || !bDisconnected); i++ {
		aEvents, bEvents := p.tick(10)
		for _, ev := range aEvents {
			if ev.Type == EventDisconnect {
				require.Equal(t, DisconnectReasonRequested, ev.Reason)
				aDisconnected = true
			}
		}
		for _, ev := range bEvents {
			if ev.Type == EventDisconnect {
				bDisconnected = true
			}
		}
	}
	require.True(t, aDisconnected)
	require.True(t, bDisconnected)
	require.Equal(t, StateDisconnected, peerA.State())
	require.Equal(t, StateDisconnected, peerB.State())
}

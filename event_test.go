package enet

import "testing"

func TestEventNoRefCarriesPeerID(t *testing.T) {
	p := newPeer[string](PeerID(7), "", 1, newRNG(1))
	ev := Event[string]{Type: EventDisconnect, Peer: p, Reason: DisconnectReasonTimeout, Data: 42}
	nr := ev.NoRef()
	if nr.PeerID != 7 {
		t.Errorf("expected PeerID 7, got %d", nr.PeerID)
	}
	if nr.Reason != DisconnectReasonTimeout {
		t.Errorf("expected reason carried through, got %v", nr.Reason)
	}
	if nr.Data != 42 {
		t.Errorf("expected data carried through, got %d", nr.Data)
	}
}

func TestEventNoRefNilPeer(t *testing.T) {
	ev := Event[string]{Type: EventNone}
	nr := ev.NoRef()
	if nr.PeerID != 0 {
		t.Errorf("expected zero-value PeerID for a nil Peer, got %d", nr.PeerID)
	}
}

func TestEventTypeString(t *testing.T) {
	cases := map[EventType]string{
		EventNone:       "none",
		EventConnect:    "connect",
		EventDisconnect: "disconnect",
		EventReceive:    "receive",
	}
	for et, want := range cases {
		if got := et.String(); got != want {
			t.Errorf("EventType(%d).String() = %q, want %q", et, got, want)
		}
	}
}

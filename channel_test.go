package enet

import "testing"

func TestChannelDrainReadyInOrder(t *testing.T) {
	c := newChannel()
	c.receiveReliable(2, []byte("second"))
	if out := c.drainReady(); len(out) != 0 {
		t.Fatalf("expected nothing ready before seq 1 arrives, got %v", out)
	}
	c.receiveReliable(1, []byte("first"))
	out := c.drainReady()
	if len(out) != 2 || string(out[0]) != "first" || string(out[1]) != "second" {
		t.Fatalf("expected [first second] in order, got %v", toStrings(out))
	}
	if c.incomingReliableSequenceNumber != 2 {
		t.Errorf("expected incoming sequence to advance to 2, got %d", c.incomingReliableSequenceNumber)
	}
}

func TestChannelDrainReadyDuplicateIgnored(t *testing.T) {
	c := newChannel()
	c.receiveReliable(1, []byte("a"))
	c.receiveReliable(1, []byte("b")) // retransmission of the same seq
	out := c.drainReady()
	if len(out) != 1 || string(out[0]) != "a" {
		t.Fatalf("expected duplicate retransmission ignored, got %v", toStrings(out))
	}
}

func TestChannelFragmentSpanGatesDelivery(t *testing.T) {
	c := newChannel()
	// A 3-fragment reliable message occupies reliable sequence numbers
	// 1..3; a plain reliable command at sequence 4 must not be
	// delivered until the whole fragment group completes.
	c.receiveReliableFragment(1, 0, 3, 9, 0, []byte("abc"))
	c.receiveReliable(4, []byte("after"))
	if out := c.drainReady(); len(out) != 0 {
		t.Fatalf("expected nothing ready with fragment group incomplete, got %v", toStrings(out))
	}

	c.receiveReliableFragment(1, 2, 3, 9, 6, []byte("ghi"))
	if out := c.drainReady(); len(out) != 0 {
		t.Fatalf("expected still nothing ready, middle fragment missing, got %v", toStrings(out))
	}

	c.receiveReliableFragment(1, 1, 3, 9, 3, []byte("def"))
	out := c.drainReady()
	if len(out) != 2 {
		t.Fatalf("expected the fragmented message and the trailing command, got %d", len(out))
	}
	if string(out[0]) != "abcdefghi" {
		t.Errorf("expected reassembled payload %q, got %q", "abcdefghi", out[0])
	}
	if string(out[1]) != "after" {
		t.Errorf("expected trailing command %q, got %q", "after", out[1])
	}
	if c.incomingReliableSequenceNumber != 4 {
		t.Errorf("expected incoming sequence to jump past the fragment span to 4, got %d", c.incomingReliableSequenceNumber)
	}
}

func TestChannelReceiveUnreliableHighWaterMark(t *testing.T) {
	c := newChannel()
	if !c.receiveUnreliable(5) {
		t.Errorf("expected first unreliable command to be new")
	}
	if c.receiveUnreliable(3) {
		t.Errorf("expected an older unreliable command to be dropped")
	}
	if !c.receiveUnreliable(6) {
		t.Errorf("expected a newer unreliable command to be accepted")
	}
}

func TestChannelUnreliableFragmentReassembly(t *testing.T) {
	c := newChannel()
	if _, complete := c.receiveUnreliableFragment(1, 0, 2, 6, 0, []byte("abc")); complete {
		t.Fatalf("expected incomplete after first fragment")
	}
	data, complete := c.receiveUnreliableFragment(1, 1, 2, 6, 3, []byte("def"))
	if !complete {
		t.Fatalf("expected complete after second fragment")
	}
	if string(data) != "abcdef" {
		t.Errorf("expected reassembled %q, got %q", "abcdef", data)
	}
	if _, exists := c.unreliableFragments[1]; exists {
		t.Errorf("expected completed assembly evicted from the in-progress map")
	}
}

func toStrings(bs [][]byte) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = string(b)
	}
	return out
}

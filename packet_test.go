package enet

import "testing"

func TestNewPacketCopiesData(t *testing.T) {
	src := []byte("hello")
	p := NewPacket(src, PacketFlagReliable)
	src[0] = 'X'
	if string(p.Data()) != "hello" {
		t.Errorf("expected packet data unaffected by mutation of source, got %q", p.Data())
	}
	if !p.Flags().Has(PacketFlagReliable) {
		t.Errorf("expected PacketFlagReliable set")
	}
}

func TestNewPacketNoCopySharesBuffer(t *testing.T) {
	src := []byte("hello")
	p := NewPacketNoCopy(src, 0)
	src[0] = 'X'
	if string(p.Data()) != "Xello" {
		t.Errorf("expected NewPacketNoCopy to share the backing array, got %q", p.Data())
	}
	if !p.Flags().Has(PacketFlagNoAllocate) {
		t.Errorf("expected PacketFlagNoAllocate implied by NewPacketNoCopy")
	}
}

func TestPacketRetainRelease(t *testing.T) {
	p := NewPacket([]byte("x"), 0)
	if *p.refs != 1 {
		t.Fatalf("expected initial refcount 1, got %d", *p.refs)
	}
	p.retain()
	if *p.refs != 2 {
		t.Fatalf("expected refcount 2 after retain, got %d", *p.refs)
	}
	p.release()
	p.release()
	if *p.refs != 0 {
		t.Fatalf("expected refcount 0 after releasing both references, got %d", *p.refs)
	}
}

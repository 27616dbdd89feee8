package wire

import "testing"

func TestProtocolHeaderRoundTrip(t *testing.T) {
	h := ProtocolHeader{PeerID: 42, SessionID: 2, Compressed: true, HasSentTime: true, SentTime: 1234}
	buf := h.Encode(nil)

	got, n, err := DecodeProtocolHeader(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if n != len(buf) {
		t.Errorf("expected to consume %d bytes, consumed %d", len(buf), n)
	}
	if got != h {
		t.Errorf("expected %+v, got %+v", h, got)
	}
}

func TestProtocolHeaderNoSentTime(t *testing.T) {
	h := ProtocolHeader{PeerID: 7}
	buf := h.Encode(nil)
	if len(buf) != ProtocolHeaderSize {
		t.Errorf("expected %d bytes, got %d", ProtocolHeaderSize, len(buf))
	}
	got, _, err := DecodeProtocolHeader(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.HasSentTime {
		t.Errorf("expected HasSentTime false")
	}
}

func TestDecodeProtocolHeaderTruncated(t *testing.T) {
	if _, _, err := DecodeProtocolHeader([]byte{0x01}); err != ErrTruncated {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestEncodeDecodeAcknowledge(t *testing.T) {
	buf := EncodeAcknowledge(nil, 3, 99, 5000)
	cmd, n, err := DecodeCommand(buf, 8)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if n != len(buf) {
		t.Errorf("expected to consume %d bytes, consumed %d", len(buf), n)
	}
	if cmd.Header.Type != CommandAcknowledge {
		t.Errorf("expected CommandAcknowledge, got %d", cmd.Header.Type)
	}
	if cmd.ReceivedReliableSequenceNumber != 99 || cmd.ReceivedSentTime != 5000 {
		t.Errorf("unexpected ack fields: %+v", cmd)
	}
}

func TestEncodeDecodeSendReliable(t *testing.T) {
	payload := []byte("hello world")
	buf := EncodeSendReliable(nil, 1, 17, payload)
	cmd, _, err := DecodeCommand(buf, 8)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if cmd.Header.ChannelID != 1 || cmd.Header.ReliableSequenceNumber != 17 {
		t.Errorf("unexpected header: %+v", cmd.Header)
	}
	if string(cmd.Payload) != string(payload) {
		t.Errorf("expected payload %q, got %q", payload, cmd.Payload)
	}
}

func TestEncodeDecodeConnect(t *testing.T) {
	fields := ConnectFields{
		OutgoingPeerID: 3, IncomingSessionID: 1, OutgoingSessionID: 2,
		MTU: 1400, WindowSize: 4096, ChannelCount: 4,
		IncomingBandwidth: 0, OutgoingBandwidth: 0,
		PacketThrottleInterval: 1000, PacketThrottleAcceleration: 2, PacketThrottleDeceleration: 2,
		ConnectID: 0xdeadbeef, Data: 7,
	}
	buf := EncodeConnect(nil, 0, fields)
	cmd, n, err := DecodeCommand(buf, 8)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if n != len(buf) {
		t.Errorf("expected to consume %d bytes, consumed %d", len(buf), n)
	}
	if cmd.ConnectID != fields.ConnectID || cmd.MTU != fields.MTU || cmd.ChannelCount != fields.ChannelCount {
		t.Errorf("unexpected connect fields: %+v", cmd)
	}
}

func TestEncodeDecodeFragment(t *testing.T) {
	payload := []byte("fragment-body")
	f := FragmentFields{StartSequenceNumber: 10, FragmentCount: 3, FragmentNumber: 1, TotalLength: 4096, FragmentOffset: 600}
	buf := EncodeSendFragment(nil, 0, 11, f, payload)
	cmd, _, err := DecodeCommand(buf, 8)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if cmd.FragmentCount != 3 || cmd.FragmentNumber != 1 || cmd.TotalLength != 4096 || cmd.FragmentOffset != 600 {
		t.Errorf("unexpected fragment fields: %+v", cmd)
	}
}

func TestDecodeCommandInvalidChannel(t *testing.T) {
	buf := EncodeSendReliable(nil, 5, 1, []byte("x"))
	if _, _, err := DecodeCommand(buf, 2); err != ErrInvalidChannel {
		t.Errorf("expected ErrInvalidChannel, got %v", err)
	}
}

func TestDecodeCommandInvalidFragmentIndex(t *testing.T) {
	f := FragmentFields{StartSequenceNumber: 1, FragmentCount: 2, FragmentNumber: 5, TotalLength: 100, FragmentOffset: 0}
	buf := EncodeSendFragment(nil, 0, 1, f, []byte("x"))
	if _, _, err := DecodeCommand(buf, 8); err != ErrInvalidFragment {
		t.Errorf("expected ErrInvalidFragment, got %v", err)
	}
}

func TestDecodeCommandTruncatedDropsWhole(t *testing.T) {
	buf := EncodeSendReliable(nil, 0, 1, []byte("hello"))
	truncated := buf[:len(buf)-2]
	if _, _, err := DecodeCommand(truncated, 8); err != ErrTruncated {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestDecodeCommandUnknownType(t *testing.T) {
	buf := []byte{0x3F, 0, 0, 0}
	if _, _, err := DecodeCommand(buf, 8); err != ErrUnknownCommand {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestCommandSequenceRoundTrip(t *testing.T) {
	var buf []byte
	buf = EncodeSendReliable(buf, 0, 1, []byte("a"))
	buf = EncodeSendReliable(buf, 0, 2, []byte("bb"))
	buf = EncodeAcknowledge(buf, 0, 1, 10)

	offset := 0
	var got []Command
	for offset < len(buf) {
		cmd, n, err := DecodeCommand(buf[offset:], 8)
		if err != nil {
			t.Fatalf("decode failed at offset %d: %v", offset, err)
		}
		got = append(got, cmd)
		offset += n
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(got))
	}
	if string(got[0].Payload) != "a" || string(got[1].Payload) != "bb" {
		t.Errorf("unexpected payloads: %q %q", got[0].Payload, got[1].Payload)
	}
	if got[2].Header.Type != CommandAcknowledge {
		t.Errorf("expected CommandAcknowledge last, got %d", got[2].Header.Type)
	}
}

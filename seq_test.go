package enet

import "testing"

func TestSequenceGreaterWraparound(t *testing.T) {
	if !sequenceGreater(1, 65535) {
		t.Errorf("expected 1 to be newer than 65535 across wraparound")
	}
	if sequenceGreater(65535, 1) {
		t.Errorf("expected 65535 to not be newer than 1 across wraparound")
	}
	if sequenceGreater(5, 10) {
		t.Errorf("expected 5 to not be newer than 10")
	}
	if !sequenceGreater(10, 5) {
		t.Errorf("expected 10 to be newer than 5")
	}
}

func TestSequenceLessAndGreaterEqual(t *testing.T) {
	if !sequenceLess(5, 10) {
		t.Errorf("expected 5 < 10")
	}
	if !sequenceGreaterEqual(10, 10) {
		t.Errorf("expected 10 >= 10")
	}
	if !sequenceGreaterEqual(1, 65535) {
		t.Errorf("expected 1 >= 65535 across wraparound")
	}
}

func TestSequenceDistance(t *testing.T) {
	if d := sequenceDistance(10, 5); d != 5 {
		t.Errorf("expected distance 5, got %d", d)
	}
	if d := sequenceDistance(1, 65535); d != 2 {
		t.Errorf("expected wraparound distance 2, got %d", d)
	}
}

package enet

import "testing"

func TestQueueUnreliableThrottleGateDropsBelowThreshold(t *testing.T) {
	p := newPeer[string](0, "", 1, newRNG(1))
	p.state = StateConnected
	p.packetThrottle = 0 // never admit

	for i := 0; i < 20; i++ {
		if err := p.Send(0, NewPacket([]byte("x"), 0)); err != nil {
			t.Fatalf("Send returned error %v, want nil (gated sends are silent drops)", err)
		}
	}
	if len(p.outgoingCommands) != 0 {
		t.Errorf("expected every unreliable send gated out with throttle 0, got %d queued", len(p.outgoingCommands))
	}
}

func TestQueueUnreliableThrottleGateAdmitsAtFullScale(t *testing.T) {
	p := newPeer[string](0, "", 1, newRNG(1))
	p.state = StateConnected
	p.packetThrottle = PacketThrottleScale // always admit

	for i := 0; i < 20; i++ {
		if err := p.Send(0, NewPacket([]byte("x"), 0)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(p.outgoingCommands) != 20 {
		t.Errorf("expected every unreliable send admitted at full throttle, got %d queued", len(p.outgoingCommands))
	}
}

func TestUpdateThrottleAcceleratesAtLowRTT(t *testing.T) {
	p := newPeer[string](0, "", 1, newRNG(1))
	p.packetThrottle = 10
	p.packetThrottleLimit = PacketThrottleScale
	p.lowestRoundTripTime = 50
	p.roundTripTime = 50
	p.roundTripTimeVariance = 0
	p.rttSumInEpoch = 50
	p.rttSamplesInEpoch = 1
	p.packetThrottleEpoch = 0

	p.updateThrottle(p.packetThrottleInterval)
	if p.packetThrottle != 10+p.packetThrottleAcceleration {
		t.Errorf("expected throttle to accelerate by %d, got %d", p.packetThrottleAcceleration, p.packetThrottle)
	}
}

func TestUpdateThrottleDeceleratesAtHighRTT(t *testing.T) {
	p := newPeer[string](0, "", 1, newRNG(1))
	p.packetThrottle = 20
	p.packetThrottleLimit = PacketThrottleScale
	p.lowestRoundTripTime = 10
	p.roundTripTime = 50
	p.roundTripTimeVariance = 5
	p.rttSumInEpoch = 1000 // mean RTT 1000, far above roundTripTime+2*variance=60
	p.rttSamplesInEpoch = 1
	p.packetThrottleEpoch = 0

	p.updateThrottle(p.packetThrottleInterval)
	if p.packetThrottle != 20-p.packetThrottleDeceleration {
		t.Errorf("expected throttle to decelerate by %d, got %d", p.packetThrottleDeceleration, p.packetThrottle)
	}
}

func TestUpdateThrottleIdleBeforeFirstRTTSample(t *testing.T) {
	p := newPeer[string](0, "", 1, newRNG(1))
	initial := p.packetThrottle
	p.packetThrottleEpoch = 0
	p.updateThrottle(p.packetThrottleInterval)
	if p.packetThrottle != initial {
		t.Errorf("expected throttle unchanged with no RTT sample yet, got %d, want %d", p.packetThrottle, initial)
	}
}

func TestComputeRTOFloorsAtTimeoutMinimum(t *testing.T) {
	rto := computeRTO(0, 0, 2000, 30000, 1)
	if rto != 2000 {
		t.Errorf("expected RTO floored at timeoutMinimum 2000, got %d", rto)
	}
}

func TestComputeRTOCapsAtTimeoutMaximum(t *testing.T) {
	rto := computeRTO(1000, 1000, 100, 5000, 10)
	if rto != 5000 {
		t.Errorf("expected RTO capped at timeoutMaximum 5000, got %d", rto)
	}
}

func TestSetTimeoutWiresRetransmitCeiling(t *testing.T) {
	p := newPeer[string](0, "", 1, newRNG(1))
	p.SetTimeout(3, 0, 0)
	if p.timeoutLimit != 3 {
		t.Fatalf("expected SetTimeout to set timeoutLimit to 3, got %d", p.timeoutLimit)
	}
}

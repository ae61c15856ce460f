package policy

import (
	"testing"
	"time"
)

func TestHeartbeatMonitorFiresOnTimeout(t *testing.T) {
	clock := newFakeClock()
	fired := make(chan struct{}, 1)
	h := NewHeartbeatMonitor(clock, 20*time.Millisecond, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	h.tickInterval = 2 * time.Millisecond
	h.Arm()
	defer h.Disarm()

	clock.Advance(25 * time.Millisecond)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("expected HeartbeatTimeout to fire")
	}
}

func TestHeartbeatMonitorPingResetsDeadline(t *testing.T) {
	clock := newFakeClock()
	fired := make(chan struct{}, 1)
	h := NewHeartbeatMonitor(clock, 20*time.Millisecond, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	h.tickInterval = 2 * time.Millisecond
	h.Arm()
	defer h.Disarm()

	clock.Advance(15 * time.Millisecond)
	h.Ping()
	clock.Advance(15 * time.Millisecond)

	select {
	case <-fired:
		t.Fatal("ping should have reset the deadline")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHeartbeatMonitorDisarmStopsFiring(t *testing.T) {
	clock := newFakeClock()
	fired := make(chan struct{}, 1)
	h := NewHeartbeatMonitor(clock, 10*time.Millisecond, func() {
		fired <- struct{}{}
	})
	h.tickInterval = 2 * time.Millisecond
	h.Arm()
	h.Disarm()
	if h.Armed() {
		t.Fatal("expected disarmed")
	}

	clock.Advance(50 * time.Millisecond)
	select {
	case <-fired:
		t.Fatal("disarmed monitor must not fire")
	case <-time.After(20 * time.Millisecond):
	}
}

package drone

import (
	"errors"
	"testing"
)

func TestSim_TakeoffLand(t *testing.T) {
	sim := NewSim()

	if err := sim.Takeoff(10); err != nil {
		t.Fatalf("Takeoff: %v", err)
	}
	state := sim.State()
	if !state.Flying || state.Altitude != 10 {
		t.Errorf("state after takeoff: %+v", state)
	}

	if err := sim.Land(); err != nil {
		t.Fatalf("Land: %v", err)
	}
	state = sim.State()
	if state.Flying || state.Altitude != 0 {
		t.Errorf("state after land: %+v", state)
	}
}

func TestSim_TakeoffBounds(t *testing.T) {
	sim := NewSim()

	if err := sim.Takeoff(0.5); err == nil {
		t.Error("altitude below minimum accepted")
	}
	if err := sim.Takeoff(101); err == nil {
		t.Error("altitude above maximum accepted")
	}
}

func TestSim_DoubleTakeoff(t *testing.T) {
	sim := NewSim()
	sim.Takeoff(10)

	if err := sim.Takeoff(20); !errors.Is(err, ErrAlreadyFlying) {
		t.Errorf("got %v, want ErrAlreadyFlying", err)
	}
}

func TestSim_MoveRequiresFlight(t *testing.T) {
	sim := NewSim()

	if err := sim.MoveTo(Position{X: 1}, 5); !errors.Is(err, ErrNotFlying) {
		t.Errorf("got %v, want ErrNotFlying", err)
	}
	if err := sim.Hover(); !errors.Is(err, ErrNotFlying) {
		t.Errorf("got %v, want ErrNotFlying", err)
	}
	if err := sim.Land(); !errors.Is(err, ErrNotFlying) {
		t.Errorf("got %v, want ErrNotFlying", err)
	}
}

func TestSim_MoveClampsVelocity(t *testing.T) {
	sim := NewSim()
	sim.Takeoff(10)

	if err := sim.MoveTo(Position{X: 5, Z: -10}, 100); err != nil {
		t.Fatalf("MoveTo: %v", err)
	}
	if v := sim.State().Velocity; v != MaxVelocity {
		t.Errorf("velocity: got %v, want clamped to %v", v, MaxVelocity)
	}
}

func TestSim_EmergencyStopAlwaysWorks(t *testing.T) {
	sim := NewSim()

	// Works even when already landed
	sim.EmergencyStop()

	sim.Takeoff(50)
	sim.EmergencyStop()

	state := sim.State()
	if state.Flying || state.Altitude != 0 || state.Velocity != 0 {
		t.Errorf("state after emergency stop: %+v", state)
	}
}

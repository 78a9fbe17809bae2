// Package drone provides an in-memory drone simulator backing the
// local actuation service. It models just enough flight state for the
// chat pipeline to be exercised end to end without AirSim.
package drone

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Safety limits matching the tool catalog bounds.
const (
	MinAltitude = 1.0
	MaxAltitude = 100.0
	MinVelocity = 1.0
	MaxVelocity = 20.0
)

// Flight errors reported to the bridge as actuation failures.
var (
	ErrNotFlying     = errors.New("drone is not flying")
	ErrAlreadyFlying = errors.New("drone is already flying")
)

// clamp restricts v to the range [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Position is a coordinate relative to the start position, NED frame
// (z is negative above ground).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// State is a snapshot of the simulated drone.
type State struct {
	Flying    bool      `json:"flying"`
	Position  Position  `json:"position"`
	Altitude  float64   `json:"altitude"`
	Velocity  float64   `json:"velocity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sim is the simulated drone. Safe for concurrent use; commands apply
// instantaneously.
type Sim struct {
	mu    sync.Mutex
	state State
}

// NewSim creates a landed drone at the origin.
func NewSim() *Sim {
	return &Sim{state: State{UpdatedAt: time.Now()}}
}

// Takeoff lifts the drone to the target altitude. The altitude must be
// within safety limits; taking off while airborne is an error.
func (s *Sim) Takeoff(altitude float64) error {
	if altitude < MinAltitude || altitude > MaxAltitude {
		return fmt.Errorf("altitude must be between %v and %v meters", MinAltitude, MaxAltitude)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Flying {
		return ErrAlreadyFlying
	}
	s.state.Flying = true
	s.state.Altitude = altitude
	s.state.Position.Z = -altitude
	s.state.Velocity = 0
	s.state.UpdatedAt = time.Now()
	return nil
}

// Land brings the drone down at its current position.
func (s *Sim) Land() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Flying {
		return ErrNotFlying
	}
	s.state.Flying = false
	s.state.Altitude = 0
	s.state.Position.Z = 0
	s.state.Velocity = 0
	s.state.UpdatedAt = time.Now()
	return nil
}

// MoveTo flies the drone to a position relative to start. Velocity is
// clamped to safety limits rather than rejected.
func (s *Sim) MoveTo(pos Position, velocity float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Flying {
		return ErrNotFlying
	}
	s.state.Position = pos
	s.state.Altitude = clamp(-pos.Z, 0, MaxAltitude)
	s.state.Velocity = clamp(velocity, MinVelocity, MaxVelocity)
	s.state.UpdatedAt = time.Now()
	return nil
}

// Hover holds the drone at its current position.
func (s *Sim) Hover() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Flying {
		return ErrNotFlying
	}
	s.state.Velocity = 0
	s.state.UpdatedAt = time.Now()
	return nil
}

// EmergencyStop cuts all motion immediately, wherever the drone is.
// Unlike Land it never fails.
func (s *Sim) EmergencyStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Flying = false
	s.state.Altitude = 0
	s.state.Position.Z = 0
	s.state.Velocity = 0
	s.state.UpdatedAt = time.Now()
}

// State returns a snapshot of the drone.
func (s *Sim) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Package antenna defines the scene-independent data model shared by the
// solver and the propagation engine: emitter/receiver descriptors, transfer
// events, and the world descriptor that ties them together by index.
package antenna

import "github.com/jeongseonghan/rfsim/internal/geom"

// EmissionKind selects an emitter's modulation.
type EmissionKind interface {
	isEmissionKind()
}

// Pulse is a continuous sinusoid with angular pulsation Omega (rad/s).
type Pulse struct {
	Omega float64
}

func (Pulse) isEmissionKind() {}

// OFDM is a byte payload to transmit as an OFDM symbol stream.
type OFDM struct {
	Payload []byte
}

func (OFDM) isEmissionKind() {}

// ReceptionKind selects how a receiver consumes its incoming samples.
type ReceptionKind int

const (
	ReceptionNone ReceptionKind = iota
	ReceptionOFDM
	ReceptionMoving // proxy receiver cycling through waypoint receivers
)

func (k ReceptionKind) String() string {
	switch k {
	case ReceptionNone:
		return "none"
	case ReceptionOFDM:
		return "ofdm"
	case ReceptionMoving:
		return "moving"
	default:
		return "unknown"
	}
}

// SignalEvent is one (time, gain) contribution to a receiver's transfer
// function. Within a single emitter/receiver event list, Time is strictly
// increasing after the solver's post-processing pass.
type SignalEvent struct {
	Time uint64
	Gain float64
}

// EventList is a time-sorted, deduplicated-by-time sequence of events for
// one (emitter, receiver) pair.
type EventList []SignalEvent

// MaxTime returns the largest time in the list, or 0 if the list is empty
// (an isolated receiver/emitter pair with no observed contribution).
func (l EventList) MaxTime() uint64 {
	var max uint64
	for _, e := range l {
		if e.Time > max {
			max = e.Time
		}
	}
	return max
}

// IsStrictlyIncreasing reports whether event times are strictly increasing,
// the invariant the solver's post-processing pass must establish.
func (l EventList) IsStrictlyIncreasing() bool {
	for i := 1; i < len(l); i++ {
		if l[i-1].Time >= l[i].Time {
			return false
		}
	}
	return true
}

// Emitter describes a signal source: a fixed position, a maximum power, and
// a modulation.
type Emitter struct {
	Position geom.Vec3
	MaxPower float64
	Kind     EmissionKind
}

// Receiver describes a signal sink: a fixed position, a reception kind, and
// the transfer matrix the solver populates — one event list per emitter
// index, regardless of whether that index is actually populated.
type Receiver struct {
	Position  geom.Vec3
	Kind      ReceptionKind
	Transfers []EventList // indexed by emitter index

	// Waypoints is only meaningful when Kind == ReceptionMoving: the
	// indices of the receivers this proxy cycles through, one per tick.
	Waypoints []int
}

// World is the complete, pre-solve (or solved) scene descriptor. Entries
// share one index space across Emitters, Receivers and Names: an index is an
// emitter when Emitters[i] != nil, a receiver when Receivers[i] != nil, and
// at most one of the two holds per index.
type World struct {
	Emitters  []*Emitter
	Receivers []*Receiver
	Names     []string

	// Obstacles is populated by scene-construction helpers and consumed
	// only by Solve; it is intentionally not part of the snapshot format.
	Obstacles []Obstacle
}

// Obstacle is a dielectric (or receiver-sensor) primitive placed in the
// scene, paired with its optical properties.
type Obstacle struct {
	Primitive geom.Primitive
	// RefractiveIndex is the medium's index of refraction. Rays pass through
	// a non-receiver obstacle with RefractiveIndex == physconst.AirIndex
	// without bending or reflecting. Its surface is still a hit: the path
	// segment leading up to each crossing is attenuated with this obstacle's
	// Absorbance rather than the air's.
	RefractiveIndex float64
	// Absorbance is the volumetric absorption coefficient used when a ray
	// exits this medium's own material (as opposed to travelling through
	// air).
	Absorbance float64
	// ReceiverIndex, when ReceiverIndex >= 0, marks this primitive as the
	// sensor sphere for Receivers[ReceiverIndex]. Exactly one of
	// {ReceiverIndex >= 0, RefractiveIndex != physconst.AirIndex} is the
	// intended interpretation of a primitive.
	ReceiverIndex int
}

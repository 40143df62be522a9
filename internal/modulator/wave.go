// Package modulator implements the engine's pluggable emitter and receiver
// modulators: a continuous-sine pulse emitter, and an OFDM transmit/receive
// pair built on internal/dsp's FFT.
package modulator

import (
	"math"

	"github.com/jeongseonghan/rfsim/internal/physconst"
)

// SimpleWave is the continuous sinusoid emitter (Pulse mode): a phase
// accumulator driven by an angular pulsation.
type SimpleWave struct {
	Omega float64 // rad/s
	phase float64
}

// NewSimpleWave builds a SimpleWave starting at phase 0.
func NewSimpleWave(omega float64) *SimpleWave {
	return &SimpleWave{Omega: omega}
}

// Tick implements engine.EmitterModulator.
func (s *SimpleWave) Tick() float64 {
	current := math.Sin(s.phase)
	s.phase = math.Mod(s.phase+s.Omega*physconst.TimePerBeat, 2*math.Pi)
	return current
}

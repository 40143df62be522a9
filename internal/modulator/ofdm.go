package modulator

import (
	"math"

	"github.com/jeongseonghan/rfsim/internal/dsp"
)

const (
	// CarrierGroupSize is K, the number of parallel orthogonal subcarriers.
	CarrierGroupSize = 8
	// SymbolDuration is D, the number of ticks spanned by one OFDM symbol.
	SymbolDuration = 2048
)

// wavetable returns W[k][i] = sin(2*pi*(k+1)*i/D) for k in [0,CarrierGroupSize).
func wavetable(k, i int) float64 {
	return math.Sin(2 * math.Pi * float64(k+1) * float64(i) / float64(SymbolDuration))
}

// bytesToBits expands a byte payload into a bit sequence, MSB first, then
// pads with zeros so the total length is a multiple of CarrierGroupSize.
func bytesToBits(payload []byte) []int {
	bits := make([]int, 0, len(payload)*8)
	for _, b := range payload {
		for shift := 7; shift >= 0; shift-- {
			bits = append(bits, int((b>>uint(shift))&1))
		}
	}
	for len(bits)%CarrierGroupSize != 0 {
		bits = append(bits, 0)
	}
	return bits
}

// deal distributes a bit sequence round-robin into K per-carrier sequences.
func deal(bits []int) [CarrierGroupSize][]int {
	var carriers [CarrierGroupSize][]int
	for i, b := range bits {
		k := i % CarrierGroupSize
		carriers[k] = append(carriers[k], b)
	}
	return carriers
}

// OFDMEmitter transmits a byte payload as a stream of OFDM symbols: K
// BPSK-keyed subcarriers per symbol, SymbolDuration ticks per symbol.
type OFDMEmitter struct {
	carriers [CarrierGroupSize][]int
	cursor   int // next bit index to latch per carrier
	clock    int // tick within the current symbol

	isPhased [CarrierGroupSize]bool
	done     bool
}

// NewOFDMEmitter builds an emitter for the given payload.
func NewOFDMEmitter(payload []byte) *OFDMEmitter {
	return &OFDMEmitter{carriers: deal(bytesToBits(payload))}
}

// Tick implements engine.EmitterModulator.
func (o *OFDMEmitter) Tick() float64 {
	if o.done {
		return 0
	}

	if o.clock == 0 {
		if o.cursor >= len(o.carriers[0]) {
			o.done = true
			return 0
		}
		for k := 0; k < CarrierGroupSize; k++ {
			o.isPhased[k] = o.carriers[k][o.cursor] != 0
		}
		o.cursor++
	}

	var current float64
	for k := 0; k < CarrierGroupSize; k++ {
		w := wavetable(k, o.clock)
		if o.isPhased[k] {
			current += w
		} else {
			current -= w
		}
	}

	o.clock = (o.clock + 1) % SymbolDuration
	return current
}

// OFDMReceiver demodulates an incoming OFDM signal into a decoded bitstream
// via a forward FFT per symbol, deferring acquisition until the first
// non-zero sample arrives.
type OFDMReceiver struct {
	buffer  []complex128
	clock   int
	started bool
	Bits    []int
}

// NewOFDMReceiver builds a receiver with an empty decoded bitstream.
func NewOFDMReceiver() *OFDMReceiver {
	return &OFDMReceiver{buffer: make([]complex128, SymbolDuration)}
}

// Tick implements engine.ReceiverModulator.
func (o *OFDMReceiver) Tick(current float64) {
	if !o.started {
		if current == 0 {
			return
		}
		o.started = true
	}

	o.buffer[o.clock] = complex(current, 0)
	o.clock++

	if o.clock == SymbolDuration {
		out := dsp.FFT(o.buffer)
		for k := 0; k < CarrierGroupSize; k++ {
			if real(out[k+1]) > 0 {
				o.Bits = append(o.Bits, 0)
			} else {
				o.Bits = append(o.Bits, 1)
			}
		}
		o.clock = 0
	}
}

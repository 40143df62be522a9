// Package dsp provides the spectral primitive the OFDM receiver needs to
// turn a tick window back into subcarrier amplitudes: a power-of-two
// Cooley-Tukey FFT/IFFT pair over complex128. Each transform works on a copy
// and leaves its input slice unchanged.
package dsp

import (
	"math"
	"math/cmplx"
)

// FFT returns the Discrete Fourier Transform of x, computed via the
// iterative radix-2 Cooley-Tukey algorithm. len(x) must be a power of two,
// except for the trivial lengths 0 and 1, which are returned unchanged.
func FFT(x []complex128) []complex128 {
	return transform(x, false)
}

// IFFT returns the inverse transform, normalized by 1/len(x).
func IFFT(x []complex128) []complex128 {
	out := transform(x, true)
	scale := complex(1/float64(len(out)), 0)
	for i := range out {
		out[i] *= scale
	}
	return out
}

func transform(x []complex128, inverse bool) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	copy(out, x)
	if n <= 1 {
		return out
	}
	if n&(n-1) != 0 {
		panic("dsp: FFT length must be a power of two")
	}

	bitReversalPermute(out)

	sign := -1.0
	if inverse {
		sign = 1.0
	}
	// Butterfly over successively doubling span widths: at span s, each
	// block of s samples is the combination of two independently
	// transformed blocks of s/2 samples computed in the previous pass.
	for span := 2; span <= n; span *= 2 {
		half := span / 2
		twiddle := cmplx.Exp(complex(0, sign*2*math.Pi/float64(span)))
		for blockStart := 0; blockStart < n; blockStart += span {
			w := complex(1, 0)
			for k := 0; k < half; k++ {
				even := out[blockStart+k]
				odd := w * out[blockStart+k+half]
				out[blockStart+k] = even + odd
				out[blockStart+k+half] = even - odd
				w *= twiddle
			}
		}
	}
	return out
}

// bitReversalPermute reorders x in place so the subsequent butterfly passes
// can combine adjacent pairs; index i and its bit-reversed counterpart swap
// exactly once.
func bitReversalPermute(x []complex128) {
	n := len(x)
	width := 0
	for size := n; size > 1; size >>= 1 {
		width++
	}
	for i := range x {
		j := bitReversed(i, width)
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}
}

func bitReversed(i, width int) int {
	r := 0
	for b := 0; b < width; b++ {
		r = (r << 1) | (i & 1)
		i >>= 1
	}
	return r
}

// RealFFT lifts real samples into the complex domain before transforming.
func RealFFT(x []float64) []complex128 {
	cx := make([]complex128, len(x))
	for i, v := range x {
		cx[i] = complex(v, 0)
	}
	return FFT(cx)
}

// RealIFFT discards the (expected-negligible) imaginary residue left by
// floating-point rounding and returns the real samples.
func RealIFFT(x []complex128) []float64 {
	inv := IFFT(x)
	out := make([]float64, len(inv))
	for i, v := range inv {
		out[i] = real(v)
	}
	return out
}

// Package simparams holds the solver's tuning constants as a plain struct
// with documented defaults. There is no flag/env parsing here: picking a
// scenario and wiring its parameters is the embedding application's job, not
// this package's.
package simparams

// Config tunes the Monte-Carlo ray tracer. Zero value is not meaningful; use
// Default() and override individual fields.
type Config struct {
	// NBSample rays are cast per emitter along each of the azimuth and
	// inclination axes, for NBSample*NBSample rays total per emitter.
	NBSample int

	// MinGain culls a ray once |energy/initialEnergy| drops below this
	// fraction.
	MinGain float64

	// BounceMargin offsets a bounced or refracted ray's new origin along the
	// surface normal, away from the surface, to avoid immediately
	// re-intersecting the primitive it just left.
	BounceMargin float64

	// AbsorbanceAir is the volumetric absorption coefficient applied to the
	// stretch of any ray's path travelled through air.
	AbsorbanceAir float64

	// MaxBounces safety-caps a single ray's traversal length. It is not part
	// of the physical model; it only guards against runaway loops in
	// degenerate geometry (e.g. near-parallel reflective surfaces that never
	// cross MinGain). Well-formed scenes never approach it.
	MaxBounces int

	// EventChannelCapacity sizes the bounded channel workers use to hand
	// finished events to the single collector goroutine.
	EventChannelCapacity int
}

// Default returns the solver's documented default tuning.
func Default() Config {
	return Config{
		NBSample:             256,
		MinGain:              1e-6,
		BounceMargin:         1e-4,
		AbsorbanceAir:        2e-4,
		MaxBounces:           10_000,
		EventChannelCapacity: 10_000,
	}
}

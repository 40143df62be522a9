package tracer

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jeongseonghan/rfsim/internal/antenna"
	"github.com/jeongseonghan/rfsim/internal/geom"
	"github.com/jeongseonghan/rfsim/internal/physconst"
	"github.com/jeongseonghan/rfsim/internal/simparams"
)

func unitVector(t *rapid.T, label string) geom.Vec3 {
	theta := rapid.Float64Range(0, math.Pi).Draw(t, label+"_theta")
	phi := rapid.Float64Range(0, 2*math.Pi).Draw(t, label+"_phi")
	return geom.NewVec3(math.Sin(theta)*math.Cos(phi), math.Sin(theta)*math.Sin(phi), math.Cos(theta))
}

// TestReflectPreservesMagnitude checks the reflection half of invariant 3
// (energy monotonicity): bouncing never changes a direction vector's norm,
// so reflection itself can only flip energy's sign, never its magnitude.
func TestReflectPreservesMagnitude(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		incident := unitVector(t, "incident")
		normal := unitVector(t, "normal")

		out := reflectVec(incident, normal)
		if math.Abs(out.Norm()-incident.Norm()) > 1e-9 {
			t.Fatalf("reflectVec changed magnitude: %v -> %v", incident.Norm(), out.Norm())
		}
	})
}

// TestRefractPreservesUnitLength exercises the refraction formula's geometric
// consistency: given angles that actually satisfy Snell's law for (eta, n1,
// n2), the refracted ray stays unit length.
func TestRefractPreservesUnitLength(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cos1 := rapid.Float64Range(0, 1).Draw(t, "cos1")
		eta := rapid.Float64Range(0.3, 1.0).Draw(t, "eta")

		sin1sq := 1 - cos1*cos1
		sin2sq := eta * eta * sin1sq
		if sin2sq > 1 {
			t.Skip("above critical angle, refraction undefined")
		}
		cos2 := math.Sqrt(1 - sin2sq)

		// Build an incident/normal pair consistent with cos1.
		normal := geom.NewVec3(0, 0, 1)
		incident := geom.NewVec3(math.Sqrt(sin1sq), 0, -cos1)

		out := refractVec(incident, normal, eta, cos1, cos2)
		if math.Abs(out.Norm()-1) > 1e-9 {
			t.Fatalf("refracted vector not unit length: %v (cos1=%v eta=%v)", out.Norm(), cos1, eta)
		}
	})
}

// TestAttenuationNeverAmplifies checks the multiplicative half of invariant
// 3: exp(-absorbance*d) is always in (0, 1] for non-negative inputs, so
// energy magnitude can only shrink along a path.
func TestAttenuationNeverAmplifies(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		absorbance := rapid.Float64Range(0, 10).Draw(t, "absorbance")
		d := rapid.Float64Range(0, 1000).Draw(t, "d")

		factor := math.Exp(-absorbance * d)
		if factor > 1+1e-12 {
			t.Fatalf("attenuation factor %v exceeds 1", factor)
		}
		if factor < 0 {
			t.Fatalf("attenuation factor %v is negative", factor)
		}
	})
}

// losWorld builds a scene with one emitter, one receiver sphere, and no
// other obstacles. The sensor sphere's own refractive index is air and its
// absorbance is set to absorbanceAir: a sphere indexed at n_air is optically
// indistinguishable from the air around it, so its own absorption
// coefficient must equal ABSORBANCE_AIR for the travelled-through-air
// attenuation in the traversal step to apply correctly up to the sensor.
func losWorld(receiverPos geom.Vec3, radius, absorbanceAir float64) *antenna.World {
	emitter := &antenna.Emitter{
		Position: geom.NewVec3(0, 0, 0),
		MaxPower: 1,
		Kind:     antenna.Pulse{Omega: 1e9},
	}
	receiver := &antenna.Receiver{
		Position: receiverPos,
		Kind:     antenna.ReceptionNone,
	}
	return &antenna.World{
		Emitters:  []*antenna.Emitter{emitter, nil},
		Receivers: []*antenna.Receiver{nil, receiver},
		Names:     []string{"tx", "rx"},
		Obstacles: []antenna.Obstacle{
			{
				Primitive:       geom.Sphere{Center: receiverPos, Radius: radius},
				RefractiveIndex: physconst.AirIndex,
				Absorbance:      absorbanceAir,
				ReceiverIndex:   1,
			},
		},
	}
}

// TestSolve_LineOfSight_SingleEventAtExpectedTick exercises invariant 4: an
// obstacle-free scene with one emitter and one receiver sphere produces a
// single, positive-gain event at the geometric time-of-flight tick.
func TestSolve_LineOfSight_SingleEventAtExpectedTick(t *testing.T) {
	receiverPos := geom.NewVec3(5, 0, 0)
	cfg := simparams.Default()
	cfg.NBSample = 128
	cfg.MinGain = 1e-9
	world := losWorld(receiverPos, 1.0, cfg.AbsorbanceAir)

	tr := New(cfg, nil)
	require.NoError(t, tr.Solve(context.Background(), world))

	events := world.Receivers[1].Transfers[0]
	require.Len(t, events, 1, "expected exactly one merged event at the line-of-sight tick")

	wantTick := physconst.DistanceToTick(receiverPos.Norm())
	assert.Equal(t, wantTick, events[0].Time)
	assert.Greater(t, events[0].Gain, 0.0)
}

// TestSolve_EventListsAreStrictlySorted exercises invariant 2 across every
// populated (emitter, receiver) row.
func TestSolve_EventListsAreStrictlySorted(t *testing.T) {
	cfg := simparams.Default()
	cfg.NBSample = 96
	cfg.MinGain = 1e-9
	world := losWorld(geom.NewVec3(3, 4, 0), 1.0, cfg.AbsorbanceAir)

	tr := New(cfg, nil)
	require.NoError(t, tr.Solve(context.Background(), world))

	for ri, receiver := range world.Receivers {
		if receiver == nil {
			continue
		}
		for ei, list := range receiver.Transfers {
			assert.True(t, list.IsStrictlyIncreasing(), "receiver %d emitter %d event list not strictly increasing", ri, ei)
			for _, ev := range list {
				assert.False(t, math.IsNaN(ev.Gain), "gain is NaN")
				assert.False(t, math.IsInf(ev.Gain, 0), "gain is infinite")
			}
		}
	}
}

// TestSolve_RespectsContextCancellation confirms Solve stops issuing work and
// surfaces the cancellation rather than running to completion.
func TestSolve_RespectsContextCancellation(t *testing.T) {
	cfg := simparams.Default()
	cfg.NBSample = 64
	world := losWorld(geom.NewVec3(5, 0, 0), 1.0, cfg.AbsorbanceAir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := New(cfg, nil)
	err := tr.Solve(ctx, world)
	assert.Error(t, err)
}

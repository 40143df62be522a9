package simulator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeongseonghan/rfsim/internal/antenna"
	"github.com/jeongseonghan/rfsim/internal/geom"
	"github.com/jeongseonghan/rfsim/internal/monitor"
	"github.com/jeongseonghan/rfsim/internal/physconst"
	"github.com/jeongseonghan/rfsim/internal/simparams"
)

func pulseLinkWorld() *antenna.World {
	emitter := &antenna.Emitter{
		Position: geom.NewVec3(0, 0, 0),
		MaxPower: 1,
		Kind:     antenna.Pulse{Omega: 1e9},
	}
	receiver := &antenna.Receiver{
		Position: geom.NewVec3(5, 0, 0),
		Kind:     antenna.ReceptionNone,
	}
	return &antenna.World{
		Emitters:  []*antenna.Emitter{emitter, nil},
		Receivers: []*antenna.Receiver{nil, receiver},
		Names:     []string{"tx", "rx"},
		Obstacles: []antenna.Obstacle{
			{
				Primitive:       geom.Sphere{Center: receiver.Position, Radius: 1.0},
				RefractiveIndex: physconst.AirIndex,
				Absorbance:      simparams.Default().AbsorbanceAir,
				ReceiverIndex:   1,
			},
		},
	}
}

// TestSimulator_SolveInstantiateRunProducesTrackerFiles exercises the whole
// driver lifecycle end to end and checks the tracer sideband's documented
// format: one file per tracked name, 4 bytes per tick.
func TestSimulator_SolveInstantiateRunProducesTrackerFiles(t *testing.T) {
	cfg := simparams.Default()
	cfg.NBSample = 64

	world := pulseLinkWorld()
	sim := New(world, cfg, nil)

	ctx := context.Background()
	require.NoError(t, sim.Solve(ctx))
	require.NoError(t, sim.Instantiate())

	outDir := t.TempDir()
	const ticks = 50
	require.NoError(t, sim.Run(ctx, outDir, []string{"tx", "rx"}, ticks))

	for _, name := range []string{"tx", "rx"} {
		info, err := os.Stat(filepath.Join(outDir, name+".bin"))
		require.NoError(t, err)
		require.Equal(t, int64(ticks*4), info.Size())
	}
}

// TestSimulator_TickDeterminism exercises invariant 7: two independent
// instantiate+run passes over the same solved world produce byte-identical
// tracer files, even though solving itself may be stochastic.
func TestSimulator_TickDeterminism(t *testing.T) {
	cfg := simparams.Default()
	cfg.NBSample = 48

	world := pulseLinkWorld()
	sim := New(world, cfg, nil)
	ctx := context.Background()
	require.NoError(t, sim.Solve(ctx))

	data, err := sim.Snapshot()
	require.NoError(t, err)

	runOnce := func() []byte {
		restored, err := Restore(data, cfg, nil)
		require.NoError(t, err)
		require.NoError(t, restored.Instantiate())

		dir := t.TempDir()
		require.NoError(t, restored.Run(ctx, dir, []string{"rx"}, 200))

		out, err := os.ReadFile(filepath.Join(dir, "rx.bin"))
		require.NoError(t, err)
		return out
	}

	first := runOnce()
	second := runOnce()
	require.True(t, bytes.Equal(first, second), "tracer output must be byte-identical across runs of a solved descriptor")
}

// TestSimulator_SetMonitorDoesNotDisruptRun exercises the optional progress
// hub: attaching one must not change the tick loop's outcome, only add a
// side broadcast.
func TestSimulator_SetMonitorDoesNotDisruptRun(t *testing.T) {
	cfg := simparams.Default()
	cfg.NBSample = 32

	world := pulseLinkWorld()
	sim := New(world, cfg, nil)
	ctx := context.Background()
	require.NoError(t, sim.Solve(ctx))
	require.NoError(t, sim.Instantiate())

	sim.SetMonitor(monitor.NewHub(nil))

	outDir := t.TempDir()
	require.NoError(t, sim.Run(ctx, outDir, []string{"rx"}, 20))

	info, err := os.Stat(filepath.Join(outDir, "rx.bin"))
	require.NoError(t, err)
	require.Equal(t, int64(20*4), info.Size())
}

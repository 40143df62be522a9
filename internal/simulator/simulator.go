// Package simulator is the top-level driver: construct a scene, solve its
// transfer functions, snapshot/restore a solved descriptor, instantiate
// engine state and run it for a fixed number of ticks, wiring together the
// solver, the propagation engine, the pluggable modulators, trackers and
// the snapshot codec.
package simulator

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/jeongseonghan/rfsim/internal/antenna"
	"github.com/jeongseonghan/rfsim/internal/engine"
	"github.com/jeongseonghan/rfsim/internal/modulator"
	"github.com/jeongseonghan/rfsim/internal/monitor"
	"github.com/jeongseonghan/rfsim/internal/simparams"
	"github.com/jeongseonghan/rfsim/internal/snapshot"
	"github.com/jeongseonghan/rfsim/internal/tracer"
	"github.com/jeongseonghan/rfsim/internal/tracker"
)

// Simulator owns one world descriptor through its whole lifecycle:
// construct, solve, snapshot/restore, instantiate, run.
type Simulator struct {
	world  *antenna.World
	cfg    simparams.Config
	logger *log.Logger

	tracer             *tracer.Tracer
	engine             *engine.Engine
	files              []*tracker.FileWriter
	receiverModulators map[int]*modulator.OFDMReceiver
	hub                *monitor.Hub
}

// SetMonitor attaches a Hub that Run will push tick progress to. Passing nil
// detaches monitoring.
func (s *Simulator) SetMonitor(hub *monitor.Hub) {
	s.hub = hub
}

// New constructs a Simulator around a world descriptor, pre-solve.
func New(world *antenna.World, cfg simparams.Config, logger *log.Logger) *Simulator {
	if logger == nil {
		logger = log.Default()
	}
	return &Simulator{
		world:  world,
		cfg:    cfg,
		logger: logger,
		tracer: tracer.New(cfg, logger),
	}
}

// Solve runs the Monte-Carlo ray tracer, populating the world's transfer
// tables.
func (s *Simulator) Solve(ctx context.Context) error {
	s.logger.Info("solving scene", "emitters", len(s.world.Emitters), "receivers", len(s.world.Receivers))
	if err := s.tracer.Solve(ctx, s.world); err != nil {
		return fmt.Errorf("simulator: solve: %w", err)
	}
	return nil
}

// Snapshot serializes the current (solved) world descriptor.
func (s *Simulator) Snapshot() ([]byte, error) {
	data, err := snapshot.Marshal(s.world)
	if err != nil {
		return nil, fmt.Errorf("simulator: snapshot: %w", err)
	}
	return data, nil
}

// Restore rebuilds a Simulator from a previously captured snapshot, without
// re-solving.
func Restore(data []byte, cfg simparams.Config, logger *log.Logger) (*Simulator, error) {
	world, err := snapshot.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("simulator: restore: %w", err)
	}
	return New(world, cfg, logger), nil
}

// OFDMReceiverBits returns the decoded bitstream for the receiver at idx.
// The index must have been instantiated with reception kind OFDM.
func (s *Simulator) OFDMReceiverBits(idx int) []int {
	rc := s.engine.Reception(idx)
	if rc == nil {
		return nil
	}
	if mod, ok := s.receiverModulators[idx]; ok {
		return mod.Bits
	}
	return nil
}

// Instantiate materializes engine state from the (solved) world descriptor
// and wires each emitter/receiver's kind to its concrete modulator.
func (s *Simulator) Instantiate() error {
	e, err := engine.New(s.world)
	if err != nil {
		return fmt.Errorf("simulator: instantiate: %w", err)
	}
	s.engine = e
	s.receiverModulators = make(map[int]*modulator.OFDMReceiver)

	for i, em := range s.world.Emitters {
		if em == nil {
			continue
		}
		switch k := em.Kind.(type) {
		case antenna.Pulse:
			e.SetEmitterModulator(i, modulator.NewSimpleWave(k.Omega))
		case antenna.OFDM:
			e.SetEmitterModulator(i, modulator.NewOFDMEmitter(k.Payload))
		default:
			return fmt.Errorf("simulator: emitter %d has unknown emission kind %T", i, em.Kind)
		}
	}

	for i, rc := range s.world.Receivers {
		if rc == nil {
			continue
		}
		switch rc.Kind {
		case antenna.ReceptionOFDM:
			mod := modulator.NewOFDMReceiver()
			e.SetReceiverModulator(i, mod)
			s.receiverModulators[i] = mod
		case antenna.ReceptionMoving:
			e.SetMovingReceiver(i, rc.Waypoints)
		}
	}

	return nil
}

// Run iterates the tick loop, writing one sample per tick to
// <outputDir>/<name>.bin for every name in toTrack.
func (s *Simulator) Run(ctx context.Context, outputDir string, toTrack []string, ticks int) error {
	if s.engine == nil {
		return fmt.Errorf("simulator: Run called before Instantiate")
	}

	for _, name := range toTrack {
		w, err := tracker.Open(outputDir, name)
		if err != nil {
			return fmt.Errorf("simulator: open tracker for %q: %w", name, err)
		}
		s.files = append(s.files, w)
		s.engine.RegisterTracker(name, w)
	}
	defer s.closeTrackers()

	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := s.engine.Tick(); err != nil {
			return fmt.Errorf("simulator: tick %d: %w", i, err)
		}
		if s.hub != nil {
			s.hub.BroadcastProgress(i+1, ticks)
		}
	}
	return nil
}

func (s *Simulator) closeTrackers() {
	for _, f := range s.files {
		if err := f.Close(); err != nil {
			s.logger.Error("closing tracker file", "error", err)
		}
	}
	s.files = nil
}

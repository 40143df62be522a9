// Command rfsim solves and runs a minimal built-in scene: one pulse emitter
// and one receiver, with no obstacle besides the receiver's sensor sphere.
// It exists to exercise the simulator
// package end to end, not to select among scenarios — that is left to
// embedding tools.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/jeongseonghan/rfsim/internal/antenna"
	"github.com/jeongseonghan/rfsim/internal/geom"
	"github.com/jeongseonghan/rfsim/internal/monitor"
	"github.com/jeongseonghan/rfsim/internal/physconst"
	"github.com/jeongseonghan/rfsim/internal/simparams"
	"github.com/jeongseonghan/rfsim/internal/simulator"
)

func main() {
	outputDir := flag.String("output-dir", "./output", "directory to write tracked .bin files into")
	ticks := flag.Int("ticks", 8192, "number of ticks to run after solving")
	nbSample := flag.Int("nb-sample", 128, "angular samples per axis, per emitter")
	monitorAddr := flag.String("monitor-addr", "", "if set, serve live tick-progress over WebSocket at this address (e.g. :8080)")
	flag.Parse()

	logger := log.New(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := simparams.Default()
	cfg.NBSample = *nbSample

	world := builtinScene()
	sim := simulator.New(world, cfg, logger)

	if *monitorAddr != "" {
		hub := monitor.NewHub(logger)
		srv := &http.Server{Addr: *monitorAddr, Handler: http.HandlerFunc(hub.ServeHTTP)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("monitor server stopped", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
		sim.SetMonitor(hub)
		logger.Info("monitor listening", "addr", *monitorAddr)
	}

	logger.Info("solving built-in scene")
	if err := sim.Solve(ctx); err != nil {
		logger.Fatal("solve failed", "error", err)
	}

	if err := sim.Instantiate(); err != nil {
		logger.Fatal("instantiate failed", "error", err)
	}

	logger.Info("running", "ticks", *ticks, "output_dir", *outputDir)
	if err := sim.Run(ctx, *outputDir, world.Names, *ticks); err != nil {
		logger.Fatal("run failed", "error", err)
	}

	logger.Info("done")
}

func builtinScene() *antenna.World {
	emitterPos := geom.NewVec3(-5, 0, 0)
	receiverPos := geom.NewVec3(5, 0, 0)
	cfg := simparams.Default()

	return &antenna.World{
		Names: []string{"tx", "rx"},
		Emitters: []*antenna.Emitter{
			{Position: emitterPos, MaxPower: 1, Kind: antenna.Pulse{Omega: 1e9}},
			nil,
		},
		Receivers: []*antenna.Receiver{
			nil,
			{Position: receiverPos, Kind: antenna.ReceptionNone},
		},
		Obstacles: []antenna.Obstacle{
			{
				Primitive:       geom.Sphere{Center: receiverPos, Radius: 0.5},
				RefractiveIndex: physconst.AirIndex,
				Absorbance:      cfg.AbsorbanceAir,
				ReceiverIndex:   1,
			},
		},
	}
}

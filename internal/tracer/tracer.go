// Package tracer implements the Monte-Carlo ray tracer: for every emitter it
// casts a dense angular grid of rays into the scene's BVH, follows each one
// through reflection, refraction and absorption until it either strikes a
// receiver's sensor sphere, runs out of energy, or escapes the scene, and
// reports every sensor strike as a transfer.Event.
package tracer

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/jeongseonghan/rfsim/internal/antenna"
	"github.com/jeongseonghan/rfsim/internal/bvh"
	"github.com/jeongseonghan/rfsim/internal/geom"
	"github.com/jeongseonghan/rfsim/internal/physconst"
	"github.com/jeongseonghan/rfsim/internal/simparams"
	"github.com/jeongseonghan/rfsim/internal/transfer"
)

// Tracer solves a world's transfer functions by Monte-Carlo ray tracing.
type Tracer struct {
	cfg    simparams.Config
	logger *log.Logger
}

// New builds a Tracer with the given tuning.
func New(cfg simparams.Config, logger *log.Logger) *Tracer {
	if logger == nil {
		logger = log.Default()
	}
	return &Tracer{cfg: cfg, logger: logger}
}

// Solve casts NBSample*NBSample rays per emitter, traces each to
// termination, and fills in world's receiver Transfers tables. It builds its
// own BVH from world.Obstacles on every call; callers that solve repeatedly
// against an unchanged scene should cache the tree themselves.
func (tr *Tracer) Solve(ctx context.Context, world *antenna.World) error {
	tree := buildTree(world)

	table := transfer.NewTable(len(world.Emitters), len(world.Receivers))
	events := make(chan transfer.Event, tr.cfg.EventChannelCapacity)

	var collector sync.WaitGroup
	collector.Add(1)
	go func() {
		defer collector.Done()
		for e := range events {
			table.Add(e)
		}
	}()

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for ide, emitter := range world.Emitters {
		if emitter == nil {
			continue
		}
		ide := ide
		emitter := emitter

		for alpha := 0; alpha < tr.cfg.NBSample; alpha++ {
			for beta := 0; beta < tr.cfg.NBSample; beta++ {
				if gctx.Err() != nil {
					break
				}
				alpha, beta := alpha, beta
				g.Go(func() error {
					traceOneRay(tree, world, ide, emitter, alpha, beta, tr.cfg, events)
					return gctx.Err()
				})
			}
		}
	}

	err := g.Wait()
	close(events)
	collector.Wait()

	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	table.Finalize(world)
	tr.logger.Debug("ray trace complete", "emitters", len(world.Emitters), "receivers", len(world.Receivers))
	return nil
}

func buildTree(world *antenna.World) *bvh.Tree {
	leaves := make([]bvh.Leaf, len(world.Obstacles))
	for i, obs := range world.Obstacles {
		leaves[i] = bvh.Leaf{Index: i, Primitive: obs.Primitive, Box: obs.Primitive.Bound()}
	}
	return bvh.Build(leaves)
}

// rayState is one in-flight ray's mutable traversal state.
type rayState struct {
	origin    geom.Vec3
	dir       geom.Vec3
	energy    float64
	maxEnergy float64
	distance  float64
	mediumN   float64
}

// traceOneRay follows a single ray from emission to termination, iteratively
// rather than recursively, emitting at most one transfer.Event (on a
// receiver strike) before returning.
func traceOneRay(tree *bvh.Tree, world *antenna.World, ide int, emitter *antenna.Emitter, alpha, beta int, cfg simparams.Config, events chan<- transfer.Event) {
	n := float64(cfg.NBSample)
	phi := 2 * math.Pi * float64(alpha) / n
	theta := math.Pi * float64(beta) / n

	dir := geom.NewVec3(
		math.Sin(theta)*math.Cos(phi),
		math.Sin(theta)*math.Sin(phi),
		math.Cos(theta),
	)
	weight := 2 * phi * (1 - math.Cos(theta/2)) / (n * n)
	energy := emitter.MaxPower * weight
	if energy == 0 {
		return
	}

	ray := rayState{
		origin:    emitter.Position,
		dir:       dir,
		energy:    energy,
		maxEnergy: energy,
		mediumN:   physconst.AirIndex,
	}

	for bounce := 0; bounce < cfg.MaxBounces; bounce++ {
		if math.Abs(ray.energy/ray.maxEnergy) < cfg.MinGain {
			return
		}

		hit, ok := tree.ClosestHit(geom.Ray{Origin: ray.origin, Dir: ray.dir})
		if !ok {
			return
		}
		obstacle := world.Obstacles[hit.Index]

		travelled := hit.Hit.T * ray.dir.Norm()
		ray.distance += travelled * ray.mediumN

		primN := obstacle.RefractiveIndex
		exitingToAir := primN == ray.mediumN
		absorbance := cfg.AbsorbanceAir
		if exitingToAir {
			absorbance = obstacle.Absorbance
		}
		ray.energy *= math.Exp(-absorbance * travelled)

		if obstacle.ReceiverIndex >= 0 {
			tick := physconst.DistanceToTick(ray.distance)
			events <- transfer.Event{
				EmitterIdx:  ide,
				ReceiverIdx: obstacle.ReceiverIndex,
				SignalEvent: antenna.SignalEvent{Time: tick, Gain: ray.energy},
			}
			return
		}

		n2 := primN
		if exitingToAir {
			n2 = physconst.AirIndex
		}

		hitPoint := ray.origin.Add(ray.dir.Mul(hit.Hit.T))
		normal := hit.Hit.Normal.Normalize()
		incident := ray.dir.Normalize()

		cos1 := -incident.Dot(normal)
		if cos1 < 0 {
			normal = normal.Mul(-1)
			cos1 = -cos1
		}

		newDir, reflected := bounceDirection(incident, normal, ray.mediumN, n2, cos1)

		if reflected {
			ray.energy = -ray.energy
		} else {
			ray.mediumN = n2
		}

		offsetSign := 1.0
		if newDir.Dot(normal) < 0 {
			offsetSign = -1.0
		}
		ray.origin = hitPoint.Add(normal.Mul(cfg.BounceMargin * offsetSign))
		ray.dir = newDir
	}
}

// bounceDirection resolves one surface interaction: entering a denser medium
// always reflects; otherwise the Fresnel magnitude (or deterministic total
// internal reflection past the critical angle) decides between reflection
// and refraction.
func bounceDirection(incident, normal geom.Vec3, n1, n2, cos1 float64) (dir geom.Vec3, reflected bool) {
	if n2/n1 > 1 {
		return reflectVec(incident, normal), true
	}

	eta := n1 / n2
	sin1sq := 1 - cos1*cos1
	sin2sq := eta * eta * sin1sq
	if sin2sq > 1 {
		// Past the critical angle: total internal reflection, taken
		// deterministically rather than sampled.
		return reflectVec(incident, normal), true
	}

	cos2 := math.Sqrt(1 - sin2sq)
	r := math.Abs((n1*cos2 - n2*cos1) / (n1*cos2 + n2*cos1))
	if rand.Float64() < r {
		return reflectVec(incident, normal), true
	}
	return refractVec(incident, normal, eta, cos1, cos2), false
}

func reflectVec(incident, normal geom.Vec3) geom.Vec3 {
	return incident.Sub(normal.Mul(2 * incident.Dot(normal)))
}

func refractVec(incident, normal geom.Vec3, eta, cos1, cos2 float64) geom.Vec3 {
	return incident.Mul(eta).Add(normal.Mul(eta*cos1 - cos2))
}

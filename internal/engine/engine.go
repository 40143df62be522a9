// Package engine implements the deterministic, tick-driven propagation
// engine: given a solved world's transfer tables, it drives emitter
// modulators, fans out each tick's samples into per-receiver ring buffers,
// advances those buffers, and hands the result to receiver modulators,
// moving-receiver proxies and trackers in a fixed pipeline order.
package engine

import (
	"fmt"

	"github.com/jeongseonghan/rfsim/internal/antenna"
	"github.com/jeongseonghan/rfsim/internal/ring"
)

// EmitterModulator produces one sample per tick for an emitter.
type EmitterModulator interface {
	Tick() float64
}

// ReceiverModulator consumes a receiver's freshly advanced sample each tick.
// It is driven after the advance phase, once Current reflects this tick's
// propagated value.
type ReceiverModulator interface {
	Tick(current float64)
}

// Tracker persists one tick's sample for a tracked entity.
type Tracker interface {
	Tick(sample float64) error
}

// incomingRow is one emitter's contribution to a receiver: its event list
// and the largest time in it, cached at instantiation time.
type incomingRow struct {
	emitterIdx int
	events     antenna.EventList
	maxTime    uint64
}

// Emission is one live emitter's per-tick state.
type Emission struct {
	Name      string
	Current   float64
	modulator EmitterModulator
}

// Reception is one live receiver's per-tick state: a sliding window of
// future samples owed to it, one incoming row per contributing emitter, and
// an optional receiver modulator.
type Reception struct {
	Name      string
	Current   float64
	buffer    *ring.Buffer[float64]
	incoming  []incomingRow
	modulator ReceiverModulator

	// waypoints, when non-nil, makes this a moving-receiver proxy: each
	// tick its Current is copied from Receptions[waypoints[cursor]] and
	// cursor advances modulo len(waypoints), instead of being driven by
	// propagation.
	waypoints []int
	cursor    int
}

// Engine is an instantiated, running simulation.
type Engine struct {
	emissions  []*Emission
	receptions []*Reception
	trackers   map[string]Tracker
	names      []string
}

// MalformedTransferRowError reports a (receiver, emitter) transfer row whose
// event times are not strictly increasing — an invariant solve() must
// establish; seeing this at instantiation means the solver has a bug.
type MalformedTransferRowError struct {
	ReceiverIdx, EmitterIdx int
}

func (e *MalformedTransferRowError) Error() string {
	return fmt.Sprintf("engine: transfer row (receiver %d, emitter %d) is not strictly increasing in time", e.ReceiverIdx, e.EmitterIdx)
}

// New instantiates engine state from a solved world. It validates every
// populated transfer row and sizes each receiver's ring buffer to
// max_t+1 (or 1, for an isolated receiver with no incoming events).
func New(world *antenna.World) (*Engine, error) {
	e := &Engine{
		trackers: make(map[string]Tracker),
		names:    world.Names,
	}

	e.emissions = make([]*Emission, len(world.Emitters))
	for i, em := range world.Emitters {
		if em == nil {
			continue
		}
		name := ""
		if i < len(world.Names) {
			name = world.Names[i]
		}
		e.emissions[i] = &Emission{Name: name}
	}

	e.receptions = make([]*Reception, len(world.Receivers))
	for ri, rc := range world.Receivers {
		if rc == nil {
			continue
		}
		name := ""
		if ri < len(world.Names) {
			name = world.Names[ri]
		}

		var maxT uint64
		incoming := make([]incomingRow, 0, len(rc.Transfers))
		for ei, list := range rc.Transfers {
			if !list.IsStrictlyIncreasing() {
				return nil, &MalformedTransferRowError{ReceiverIdx: ri, EmitterIdx: ei}
			}
			if len(list) == 0 {
				continue
			}
			if m := list.MaxTime(); m > maxT {
				maxT = m
			}
			incoming = append(incoming, incomingRow{emitterIdx: ei, events: list, maxTime: list.MaxTime()})
		}

		capacity := int(maxT) + 1
		e.receptions[ri] = &Reception{
			Name:     name,
			buffer:   ring.NewBuffer[float64](capacity),
			incoming: incoming,
		}
	}

	return e, nil
}

// SetEmitterModulator attaches a modulator to the emitter at idx.
func (e *Engine) SetEmitterModulator(idx int, m EmitterModulator) {
	e.emissions[idx].modulator = m
}

// SetReceiverModulator attaches a modulator to the receiver at idx.
func (e *Engine) SetReceiverModulator(idx int, m ReceiverModulator) {
	e.receptions[idx].modulator = m
}

// SetMovingReceiver turns the receiver at idx into a proxy cycling through
// the given waypoint receiver indices, one per tick.
func (e *Engine) SetMovingReceiver(idx int, waypointIndices []int) {
	e.receptions[idx].waypoints = append([]int(nil), waypointIndices...)
}

// RegisterTracker attaches a tracker under the given tracked name.
func (e *Engine) RegisterTracker(name string, t Tracker) {
	e.trackers[name] = t
}

// Emission returns the live emitter state at idx, or nil if idx is not an
// emitter.
func (e *Engine) Emission(idx int) *Emission { return e.emissions[idx] }

// Reception returns the live receiver state at idx, or nil if idx is not a
// receiver.
func (e *Engine) Reception(idx int) *Reception { return e.receptions[idx] }

// Tick advances the simulation by one tick through the fixed pipeline:
// emitter modulation, fan-out, advance, receiver modulation, moving-receiver
// proxying, then trackers.
func (e *Engine) Tick() error {
	e.modulateEmitters()
	e.fanOut()
	e.advance()
	e.modulateReceivers()
	e.moveProxies()
	return e.track()
}

func (e *Engine) modulateEmitters() {
	for _, em := range e.emissions {
		if em == nil || em.modulator == nil {
			continue
		}
		em.Current = em.modulator.Tick()
	}
}

// fanOut accumulates this tick's emitter samples into each receiver's
// sliding window. Receivers are independent of each other, so this runs
// one goroutine per receiver; a single receiver's buffer is only ever
// touched by its own goroutine, so no further synchronization is needed.
// An event time past a buffer's capacity is reported back by its goroutine
// and panics on the calling goroutine once every receiver has finished.
func (e *Engine) fanOut() {
	done := make(chan string, len(e.receptions))
	running := 0
	for _, rc := range e.receptions {
		if rc == nil {
			continue
		}
		rc := rc
		running++
		go func() {
			overflow := ""
			defer func() { done <- overflow }()
			for _, row := range rc.incoming {
				em := e.emissions[row.emitterIdx]
				if em == nil {
					continue
				}
				for _, ev := range row.events {
					slot := int(ev.Time)
					if slot >= rc.buffer.Len() {
						overflow = fmt.Sprintf("engine: signal event time %d exceeds ring buffer capacity %d", ev.Time, rc.buffer.Len())
						return
					}
					*rc.buffer.GetMut(slot) += em.Current * ev.Gain
				}
			}
		}()
	}
	overflow := ""
	for i := 0; i < running; i++ {
		if msg := <-done; msg != "" {
			overflow = msg
		}
	}
	if overflow != "" {
		panic(overflow)
	}
}

func (e *Engine) advance() {
	for _, rc := range e.receptions {
		if rc == nil {
			continue
		}
		rc.Current = rc.buffer.Pop()
	}
}

func (e *Engine) modulateReceivers() {
	for _, rc := range e.receptions {
		if rc == nil || rc.modulator == nil {
			continue
		}
		rc.modulator.Tick(rc.Current)
	}
}

// moveProxies copies each moving receiver's Current from its current
// waypoint's already-advanced Current this tick, then cycles to the next
// waypoint for the following tick.
func (e *Engine) moveProxies() {
	for _, rc := range e.receptions {
		if rc == nil || len(rc.waypoints) == 0 {
			continue
		}
		wp := e.receptions[rc.waypoints[rc.cursor]]
		if wp != nil {
			rc.Current = wp.Current
		}
		rc.cursor = (rc.cursor + 1) % len(rc.waypoints)
	}
}

func (e *Engine) track() error {
	for i, name := range e.names {
		t, ok := e.trackers[name]
		if !ok {
			continue
		}
		var sample float64
		if em := e.emissions[i]; em != nil {
			sample = em.Current
		} else if rc := e.receptions[i]; rc != nil {
			sample = rc.Current
		}
		if err := t.Tick(sample); err != nil {
			return fmt.Errorf("engine: tracker %q: %w", name, err)
		}
	}
	return nil
}

// Package transfer implements the solver's sparse (emitter, receiver) event
// table: raw events accumulate here during tracing, then Finalize collapses
// them into the time-sorted, deduplicated-by-time rows the propagation
// engine consumes.
package transfer

import (
	"sort"

	"github.com/jeongseonghan/rfsim/internal/antenna"
)

// Event is one raw contribution produced by the ray tracer, not yet grouped
// or sorted.
type Event struct {
	EmitterIdx  int
	ReceiverIdx int
	antenna.SignalEvent
}

// Table accumulates raw events from (possibly concurrent) tracer workers and
// flattens them into a World's per-receiver transfer rows.
type Table struct {
	numEmitters int
	// buckets[receiver][emitter][time] = summed gain
	buckets []map[int]map[uint64]float64
}

// NewTable allocates a table sized for numEmitters emitters and
// numReceivers receivers.
func NewTable(numEmitters, numReceivers int) *Table {
	t := &Table{numEmitters: numEmitters, buckets: make([]map[int]map[uint64]float64, numReceivers)}
	for i := range t.buckets {
		t.buckets[i] = make(map[int]map[uint64]float64)
	}
	return t
}

// Add records one event. Not safe for concurrent use; callers serialize
// writes through a single collector goroutine, per the solver's
// many-producers-to-one-consumer design.
func (t *Table) Add(e Event) {
	perEmitter := t.buckets[e.ReceiverIdx]
	times, ok := perEmitter[e.EmitterIdx]
	if !ok {
		times = make(map[uint64]float64)
		perEmitter[e.EmitterIdx] = times
	}
	times[e.Time] += e.Gain
}

// Finalize groups every (emitter, receiver) bucket by time, sums gains
// sharing a tick, sorts by time, and writes the resulting rows into the
// world's receivers. Safe to call once after all producers have finished.
func (t *Table) Finalize(world *antenna.World) {
	for ri, receiver := range world.Receivers {
		if receiver == nil {
			continue
		}
		receiver.Transfers = make([]antenna.EventList, t.numEmitters)
		for ei, times := range t.buckets[ri] {
			list := make(antenna.EventList, 0, len(times))
			for tm, gain := range times {
				list = append(list, antenna.SignalEvent{Time: tm, Gain: gain})
			}
			sort.Slice(list, func(a, b int) bool { return list[a].Time < list[b].Time })
			receiver.Transfers[ei] = list
		}
		for ei := range receiver.Transfers {
			if receiver.Transfers[ei] == nil {
				receiver.Transfers[ei] = antenna.EventList{}
			}
		}
	}
}

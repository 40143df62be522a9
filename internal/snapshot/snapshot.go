// Package snapshot serializes a solved world descriptor — emitters,
// receivers and their transfer rows, and names — to a human-readable
// keyed-record YAML text format, with a trailing CRC-32 checksum line for
// corruption detection, and reloads it without re-solving. Obstacles are
// intentionally omitted: they are consumed only by the solver.
package snapshot

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeongseonghan/rfsim/internal/antenna"
	"github.com/jeongseonghan/rfsim/internal/geom"
)

const checksumPrefix = "# checksum: "

type eventRecord struct {
	Time uint64  `yaml:"time"`
	Gain float64 `yaml:"gain"`
}

type emitterRecord struct {
	Index    int       `yaml:"index"`
	Position [3]float64 `yaml:"position"`
	MaxPower float64   `yaml:"max_power"`
	Kind     string    `yaml:"kind"` // "pulse" or "ofdm"
	Omega    float64   `yaml:"omega,omitempty"`
	Payload  []byte    `yaml:"payload,omitempty"`
}

type receiverRecord struct {
	Index     int             `yaml:"index"`
	Position  [3]float64      `yaml:"position"`
	Kind      string          `yaml:"kind"`
	Transfers [][]eventRecord `yaml:"transfers"` // indexed by emitter index
	Waypoints []int           `yaml:"waypoints,omitempty"`
}

type document struct {
	Names     []string         `yaml:"names"`
	Emitters  []emitterRecord  `yaml:"emitters"`
	Receivers []receiverRecord `yaml:"receivers"`
}

// Marshal serializes a solved world to the checksummed YAML snapshot
// format.
func Marshal(world *antenna.World) ([]byte, error) {
	doc := document{Names: world.Names}

	for i, em := range world.Emitters {
		if em == nil {
			continue
		}
		rec := emitterRecord{
			Index:    i,
			Position: [3]float64{em.Position.X, em.Position.Y, em.Position.Z},
			MaxPower: em.MaxPower,
		}
		switch k := em.Kind.(type) {
		case antenna.Pulse:
			rec.Kind = "pulse"
			rec.Omega = k.Omega
		case antenna.OFDM:
			rec.Kind = "ofdm"
			rec.Payload = k.Payload
		default:
			return nil, fmt.Errorf("snapshot: emitter %d has unknown emission kind %T", i, em.Kind)
		}
		doc.Emitters = append(doc.Emitters, rec)
	}

	for i, rc := range world.Receivers {
		if rc == nil {
			continue
		}
		rec := receiverRecord{
			Index:     i,
			Position:  [3]float64{rc.Position.X, rc.Position.Y, rc.Position.Z},
			Kind:      rc.Kind.String(),
			Waypoints: rc.Waypoints,
		}
		rec.Transfers = make([][]eventRecord, len(rc.Transfers))
		for ei, list := range rc.Transfers {
			row := make([]eventRecord, len(list))
			for j, ev := range list {
				row[j] = eventRecord{Time: ev.Time, Gain: ev.Gain}
			}
			rec.Transfers[ei] = row
		}
		doc.Receivers = append(doc.Receivers, rec)
	}

	body, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal: %w", err)
	}

	sum := crc32.ChecksumIEEE(body)
	var out bytes.Buffer
	out.Write(body)
	fmt.Fprintf(&out, "%s%08x\n", checksumPrefix, sum)
	return out.Bytes(), nil
}

// Unmarshal parses a checksummed YAML snapshot and reconstructs a world
// descriptor. Obstacles are left nil; restoring a snapshot never re-solves.
func Unmarshal(data []byte) (*antenna.World, error) {
	text := string(data)
	idx := strings.LastIndex(text, checksumPrefix)
	if idx < 0 {
		return nil, fmt.Errorf("snapshot: missing checksum line")
	}
	body := text[:idx]
	sumText := strings.TrimSpace(text[idx+len(checksumPrefix):])

	var wantSum uint32
	if _, err := fmt.Sscanf(sumText, "%08x", &wantSum); err != nil {
		return nil, fmt.Errorf("snapshot: malformed checksum line: %w", err)
	}
	if gotSum := crc32.ChecksumIEEE([]byte(body)); gotSum != wantSum {
		return nil, fmt.Errorf("snapshot: checksum mismatch: file has %08x, body hashes to %08x", wantSum, gotSum)
	}

	var doc document
	if err := yaml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}

	size := len(doc.Names)
	world := &antenna.World{
		Names:     doc.Names,
		Emitters:  make([]*antenna.Emitter, size),
		Receivers: make([]*antenna.Receiver, size),
	}

	for _, rec := range doc.Emitters {
		em := &antenna.Emitter{
			Position: vec3(rec.Position),
			MaxPower: rec.MaxPower,
		}
		switch rec.Kind {
		case "pulse":
			em.Kind = antenna.Pulse{Omega: rec.Omega}
		case "ofdm":
			em.Kind = antenna.OFDM{Payload: rec.Payload}
		default:
			return nil, fmt.Errorf("snapshot: emitter %d has unknown kind %q", rec.Index, rec.Kind)
		}
		if rec.Index < 0 || rec.Index >= size {
			return nil, fmt.Errorf("snapshot: emitter index %d out of range", rec.Index)
		}
		world.Emitters[rec.Index] = em
	}

	for _, rec := range doc.Receivers {
		rc := &antenna.Receiver{
			Position:  vec3(rec.Position),
			Kind:      receptionKindFromString(rec.Kind),
			Waypoints: rec.Waypoints,
		}
		rc.Transfers = make([]antenna.EventList, len(rec.Transfers))
		for ei, row := range rec.Transfers {
			list := make(antenna.EventList, len(row))
			for j, ev := range row {
				list[j] = antenna.SignalEvent{Time: ev.Time, Gain: ev.Gain}
			}
			rc.Transfers[ei] = list
		}
		if rec.Index < 0 || rec.Index >= size {
			return nil, fmt.Errorf("snapshot: receiver index %d out of range", rec.Index)
		}
		world.Receivers[rec.Index] = rc
	}

	return world, nil
}

func vec3(v [3]float64) geom.Vec3 {
	return geom.NewVec3(v[0], v[1], v[2])
}

func receptionKindFromString(s string) antenna.ReceptionKind {
	switch s {
	case "ofdm":
		return antenna.ReceptionOFDM
	case "moving":
		return antenna.ReceptionMoving
	default:
		return antenna.ReceptionNone
	}
}

package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeongseonghan/rfsim/internal/antenna"
	"github.com/jeongseonghan/rfsim/internal/geom"
)

func sampleWorld() *antenna.World {
	return &antenna.World{
		Names: []string{"tx", "rx"},
		Emitters: []*antenna.Emitter{
			{Position: geom.NewVec3(-5, 0, 0), MaxPower: 10, Kind: antenna.OFDM{Payload: []byte{0xBE, 0xEF}}},
			nil,
		},
		Receivers: []*antenna.Receiver{
			nil,
			{
				Position: geom.NewVec3(5, 0, 0),
				Kind:     antenna.ReceptionOFDM,
				Transfers: []antenna.EventList{
					{{Time: 10, Gain: 0.5}, {Time: 20, Gain: 0.25}},
					{},
				},
			},
		},
	}
}

func TestMarshalUnmarshal_RoundTrips(t *testing.T) {
	world := sampleWorld()

	data, err := Marshal(world)
	require.NoError(t, err)

	restored, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, world.Names, restored.Names)
	require.NotNil(t, restored.Emitters[0])
	assert.Equal(t, world.Emitters[0].MaxPower, restored.Emitters[0].MaxPower)
	assert.Equal(t, world.Emitters[0].Position, restored.Emitters[0].Position)
	assert.Equal(t, world.Emitters[0].Kind, restored.Emitters[0].Kind)

	require.NotNil(t, restored.Receivers[1])
	assert.Equal(t, world.Receivers[1].Kind, restored.Receivers[1].Kind)
	assert.Equal(t, world.Receivers[1].Transfers, restored.Receivers[1].Transfers)

	assert.Nil(t, restored.Emitters[1])
	assert.Nil(t, restored.Receivers[0])
}

func TestUnmarshal_DetectsCorruption(t *testing.T) {
	world := sampleWorld()
	data, err := Marshal(world)
	require.NoError(t, err)

	corrupted := append([]byte(nil), data...)
	// Flip a byte inside the YAML body, well before the checksum line.
	corrupted[0] ^= 0xFF

	_, err = Unmarshal(corrupted)
	assert.Error(t, err)
}

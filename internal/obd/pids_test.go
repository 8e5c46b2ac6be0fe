package obd

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand(t *testing.T) {
	rpm, ok := Lookup("RPM")
	require.True(t, ok)
	assert.Equal(t, "010C", rpm.Command())

	speed, ok := Lookup("SPEED")
	require.True(t, ok)
	assert.Equal(t, "010D", speed.Command())
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup("FLUX_CAPACITOR")
	assert.False(t, ok)
}

func TestDecodeFormulas(t *testing.T) {
	tests := []struct {
		sensor string
		data   []byte
		want   float64
	}{
		{"RPM", []byte{0x1A, 0xF8}, 1726},
		{"SPEED", []byte{0x40}, 64},
		{"COOLANT_TEMP", []byte{0x7B}, 83},
		{"COOLANT_TEMP", []byte{0x00}, -40},
		{"ENGINE_LOAD", []byte{0xFF}, 100},
		{"FUEL_PRESSURE", []byte{0x64}, 300},
		{"CONTROL_MODULE_VOLTAGE", []byte{0x33, 0x5A}, 13.146},
		{"DISTANCE_SINCE_CLEAR", []byte{0x04, 0xB0}, 1200},
	}

	for _, tt := range tests {
		t.Run(tt.sensor, func(t *testing.T) {
			p, ok := Lookup(tt.sensor)
			require.True(t, ok)
			require.Len(t, tt.data, p.Bytes)
			assert.InDelta(t, tt.want, p.Decode(tt.data), 0.0001)
		})
	}
}

func TestNamesSortedAndComplete(t *testing.T) {
	names := Names()
	assert.Len(t, names, 12)
	assert.True(t, sort.StringsAreSorted(names))
	assert.Contains(t, names, "HYBRID_BATTERY_REMAINING")
	assert.Contains(t, names, "CONTROL_MODULE_VOLTAGE")
}

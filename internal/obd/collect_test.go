package obd_test

import (
	"context"
	"testing"

	"obdiag/internal/obd"
	"obdiag/internal/obd/sim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSim(t *testing.T) *sim.Simulator {
	t.Helper()
	s := sim.New()
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	return s
}

func TestCollectSnapshot(t *testing.T) {
	s := startSim(t)
	s.Set("SPEED", 72)
	s.Set("RPM", 2400)
	s.InjectDTC("P0420", "Catalyst System Efficiency Below Threshold")
	s.InjectPendingDTC("P0130", "")

	snap, err := obd.Collect(s, obd.CollectOptions{
		Sensors:    []string{"SPEED", "RPM", "COOLANT_TEMP"},
		MaxRetries: 3,
	})
	require.NoError(t, err)

	require.Len(t, snap.Readings, 3)
	require.NotNil(t, snap.Readings["SPEED"])
	assert.Equal(t, 72.0, snap.Readings["SPEED"].Value)
	assert.Equal(t, "kph", snap.Readings["SPEED"].Unit)
	assert.Equal(t, 2400.0, snap.Readings["RPM"].Value)
	assert.Equal(t, 3, snap.Available())

	require.Len(t, snap.DTCs, 1)
	assert.Equal(t, "P0420", snap.DTCs[0].Code)
	require.Len(t, snap.Pending, 1)
	assert.Equal(t, "P0130", snap.Pending[0].Code)

	assert.Equal(t, "sim", snap.Connection.Port)
	assert.Equal(t, "connected", snap.Connection.Status)
	assert.False(t, snap.Timestamp.IsZero())
}

func TestCollectSkipsUnknownSensor(t *testing.T) {
	s := startSim(t)

	snap, err := obd.Collect(s, obd.CollectOptions{
		Sensors: []string{"SPEED", "FLUX_CAPACITOR"},
	})
	require.NoError(t, err)

	require.Len(t, snap.Readings, 1)
	assert.Contains(t, snap.Readings, "SPEED")
	assert.NotContains(t, snap.Readings, "FLUX_CAPACITOR")
}

func TestCollectNotConnected(t *testing.T) {
	s := sim.New()

	_, err := obd.Collect(s, obd.CollectOptions{Sensors: []string{"SPEED"}})
	assert.Error(t, err)
}

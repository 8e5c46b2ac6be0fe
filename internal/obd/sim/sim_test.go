package sim

import (
	"context"
	"testing"

	"obdiag/internal/obd"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle(t *testing.T) {
	s := New()
	assert.False(t, s.IsConnected())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsConnected())

	// Starting twice is a no-op
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsConnected())
}

func TestRestart(t *testing.T) {
	s := New()
	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsConnected())

	rpm, _ := obd.Lookup("RPM")
	_, err := s.Query(rpm)
	require.NoError(t, err)

	s.Stop()
	assert.False(t, s.IsConnected())
}

func TestQuery(t *testing.T) {
	s := New()
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	rpm, ok := obd.Lookup("RPM")
	require.True(t, ok)

	r, err := s.Query(rpm)
	require.NoError(t, err)
	assert.Equal(t, "RPM", r.Sensor)
	assert.Equal(t, "rpm", r.Unit)
	assert.GreaterOrEqual(t, r.Value, 600.0)
	assert.LessOrEqual(t, r.Value, 4000.0)
}

func TestQueryDisconnected(t *testing.T) {
	s := New()

	rpm, _ := obd.Lookup("RPM")
	_, err := s.Query(rpm)
	assert.Error(t, err)
}

func TestSetPinsValue(t *testing.T) {
	s := New()
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.Set("COOLANT_TEMP", 95)

	coolant, _ := obd.Lookup("COOLANT_TEMP")
	r, err := s.Query(coolant)
	require.NoError(t, err)
	assert.Equal(t, 95.0, r.Value)
}

func TestInjectAndClearDTCs(t *testing.T) {
	s := New()
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.InjectDTC("P0A80", "Hybrid Battery Pack Deterioration")
	s.InjectPendingDTC("P0130", "")

	stored, err := s.ReadDTCs()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "P0A80", stored[0].Code)

	pending, err := s.ReadPendingDTCs()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, s.ClearDTCs())

	stored, err = s.ReadDTCs()
	require.NoError(t, err)
	assert.Empty(t, stored)
	pending, err = s.ReadPendingDTCs()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestInfo(t *testing.T) {
	s := New()
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	info := s.Info()
	assert.Equal(t, "sim", info.Port)
	assert.Equal(t, "connected", info.Status)
	assert.Equal(t, 12.6, info.BatteryVoltage)
}

package signal

import (
	"testing"

	"obdiag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(sensor string, value float64, unit string) *models.Reading {
	return &models.Reading{Sensor: sensor, Value: value, Unit: unit}
}

func TestStandardizeKeysAndRounding(t *testing.T) {
	p := New()

	sensors := p.Standardize(map[string]*models.Reading{
		"SPEED":                  reading("SPEED", 64.0, "kph"),
		"RPM":                    reading("RPM", 3823.254, "rpm"),
		"COOLANT_TEMP":           reading("COOLANT_TEMP", 95.04, "celsius"),
		"ENGINE_LOAD":            reading("ENGINE_LOAD", 45.55, "percent"),
		"THROTTLE_POS":           reading("THROTTLE_POS", 38.5, "percent"),
		"FUEL_LEVEL":             reading("FUEL_LEVEL", 65.24, "percent"),
		"FUEL_PRESSURE":          reading("FUEL_PRESSURE", 350.0, "kilopascal"),
		"CONTROL_MODULE_VOLTAGE": reading("CONTROL_MODULE_VOLTAGE", 201.5, "volt"),
		"DISTANCE_SINCE_CLEAR":   reading("DISTANCE_SINCE_CLEAR", 1200, "kilometer"),
	})

	require.NotNil(t, sensors["speed_kph"])
	assert.Equal(t, 64.0, *sensors["speed_kph"])
	assert.Equal(t, 3823.25, *sensors["rpm"])
	assert.Equal(t, 95.0, *sensors["coolant_temp_c"])
	assert.Equal(t, 45.6, *sensors["engine_load_pct"])
	assert.Equal(t, 38.5, *sensors["throttle_pos_pct"])
	assert.Equal(t, 65.2, *sensors["fuel_level_pct"])
	assert.Equal(t, 350.0, *sensors["fuel_pressure_kpa"])
	assert.Equal(t, 201.5, *sensors["control_module_voltage_v"])
	assert.Equal(t, 1200.0, *sensors["distance_since_clear"])
}

func TestStandardizeUnitConversions(t *testing.T) {
	p := New()

	sensors := p.Standardize(map[string]*models.Reading{
		"SPEED":         reading("SPEED", 40, "mph"),
		"COOLANT_TEMP":  reading("COOLANT_TEMP", 203, "fahrenheit"),
		"FUEL_PRESSURE": reading("FUEL_PRESSURE", 50, "psi"),
	})

	assert.InDelta(t, 64.37, *sensors["speed_kph"], 0.001)
	assert.InDelta(t, 95.0, *sensors["coolant_temp_c"], 0.001)
	assert.InDelta(t, 344.7, *sensors["fuel_pressure_kpa"], 0.001)
}

func TestStandardizeMissingSensors(t *testing.T) {
	p := New()

	sensors := p.Standardize(map[string]*models.Reading{
		"RPM":                      reading("RPM", 800, "rpm"),
		"CONTROL_MODULE_VOLTAGE":   nil,
		"HYBRID_BATTERY_REMAINING": nil,
	})

	// Missing sensors keep their standardized key with a nil value
	require.Contains(t, sensors, "control_module_voltage_v")
	assert.Nil(t, sensors["control_module_voltage_v"])
	require.Contains(t, sensors, "hybrid_battery_remaining")
	assert.Nil(t, sensors["hybrid_battery_remaining"])
	require.NotNil(t, sensors["rpm"])
}

func TestDeriveStateHybridHighway(t *testing.T) {
	p := New()

	state := p.DeriveState(map[string]*float64{
		"speed_kph":                ptr(64.0),
		"rpm":                      ptr(3823.25),
		"coolant_temp_c":           ptr(95.0),
		"engine_load_pct":          ptr(45.5),
		"control_module_voltage_v": ptr(201.5),
	})

	assert.True(t, state.VehicleMoving)
	assert.False(t, state.VehicleStopped)
	assert.True(t, state.EngineRunning)
	assert.True(t, state.EngineNormalTemp)
	assert.True(t, state.ModerateLoad)
	assert.True(t, state.HighVoltagePresent)
	assert.False(t, state.LowVoltageSystem)
	assert.Equal(t, "normal", state.Mode)
}

func TestDeriveStateScenarios(t *testing.T) {
	tests := []struct {
		name    string
		speed   float64
		rpm     float64
		coolant float64
		load    float64
		voltage float64
		mode    string
	}{
		{"parked engine off", 0, 0, 25, 0, 12.6, "off"},
		{"idling", 0, 750, 92, 15, 201.0, "idle"},
		{"highway cruising", 110, 2200, 95, 25, 205.0, "cruising"},
		{"hard acceleration", 85, 5200, 98, 85, 210.0, "accelerating"},
		{"overheating crawl", 20, 1500, 115, 40, 200.0, "normal"},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := p.DeriveState(map[string]*float64{
				"speed_kph":                ptr(tt.speed),
				"rpm":                      ptr(tt.rpm),
				"coolant_temp_c":           ptr(tt.coolant),
				"engine_load_pct":          ptr(tt.load),
				"control_module_voltage_v": ptr(tt.voltage),
			})
			assert.Equal(t, tt.mode, state.Mode)
		})
	}
}

func TestDeriveStateFlags(t *testing.T) {
	p := New()

	overheating := p.DeriveState(map[string]*float64{
		"speed_kph":      ptr(20.0),
		"rpm":            ptr(1500.0),
		"coolant_temp_c": ptr(115.0),
	})
	assert.True(t, overheating.EngineOverheating)
	assert.False(t, overheating.EngineNormalTemp)

	highRPM := p.DeriveState(map[string]*float64{
		"rpm": ptr(5200.0),
	})
	assert.True(t, highRPM.EngineHighRPM)

	// No voltage sensor at all means a conventional 12V-only vehicle
	noVoltage := p.DeriveState(map[string]*float64{})
	assert.False(t, noVoltage.HighVoltagePresent)
	assert.True(t, noVoltage.LowVoltageSystem)
}

func TestProcessPipeline(t *testing.T) {
	p := New()

	result := p.Process(map[string]*models.Reading{
		"SPEED":                  reading("SPEED", 75.0, "kph"),
		"RPM":                    reading("RPM", 2850.5, "rpm"),
		"COOLANT_TEMP":           reading("COOLANT_TEMP", 93, "celsius"),
		"ENGINE_LOAD":            reading("ENGINE_LOAD", 42.3, "percent"),
		"CONTROL_MODULE_VOLTAGE": reading("CONTROL_MODULE_VOLTAGE", 203.4, "volt"),
	})

	require.NotNil(t, result.Sensors["speed_kph"])
	assert.Equal(t, 75.0, *result.Sensors["speed_kph"])
	assert.True(t, result.State.VehicleMoving)
	assert.True(t, result.State.EngineRunning)
	assert.True(t, result.State.HighVoltagePresent)
	assert.Equal(t, "normal", result.State.Mode)
}

package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	SetDefaults()

	s := Load()
	assert.Equal(t, DefaultPort(), s.Port)
	assert.Equal(t, 38400, s.Baud)
	assert.Equal(t, 5*time.Second, s.Timeout)
	assert.False(t, s.Sim)
	assert.Equal(t, DefaultSensors, s.Sensors)
	assert.True(t, s.HybridMode)
	assert.Equal(t, "output", s.ExportDir)
	assert.True(t, s.Pretty)
	assert.Empty(t, s.Broker)
	assert.Equal(t, "vehicle/diagnostics", s.Topic)
	assert.Equal(t, 3, s.MaxRetries)
	assert.True(t, s.GracefulDegradation)
	assert.False(t, s.Debug)
}

func TestLoadOverrides(t *testing.T) {
	viper.Reset()
	SetDefaults()
	viper.Set("port", "/dev/ttyACM0")
	viper.Set("baud", 115200)
	viper.Set("sim", true)
	viper.Set("sensors", []string{"RPM", "SPEED"})
	viper.Set("broker", "tcp://localhost:1883")

	s := Load()
	assert.Equal(t, "/dev/ttyACM0", s.Port)
	assert.Equal(t, 115200, s.Baud)
	assert.True(t, s.Sim)
	assert.Equal(t, []string{"RPM", "SPEED"}, s.Sensors)
	assert.Equal(t, "tcp://localhost:1883", s.Broker)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	viper.Reset()
	SetDefaults()
	viper.Set("baud", -1)
	viper.Set("timeout", 0)
	viper.Set("port", "")
	viper.Set("sensors", []string{})
	viper.Set("max-retries", 0)

	s := Load()
	assert.Equal(t, 38400, s.Baud)
	assert.Equal(t, 5*time.Second, s.Timeout)
	assert.Equal(t, DefaultPort(), s.Port)
	assert.Equal(t, DefaultSensors, s.Sensors)
	assert.Equal(t, 1, s.MaxRetries)
}

func TestLoadHybridModeOff(t *testing.T) {
	viper.Reset()
	SetDefaults()
	viper.Set("hybrid", false)

	s := Load()
	assert.NotContains(t, s.Sensors, "HYBRID_BATTERY_REMAINING")
	assert.Contains(t, s.Sensors, "RPM")
	assert.Contains(t, s.Sensors, "CONTROL_MODULE_VOLTAGE")
}

func TestDefaultPortNonEmpty(t *testing.T) {
	assert.NotEmpty(t, DefaultPort())
}

package config

import (
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Settings groups everything the pipeline needs to run. Values come from
// viper: defaults, then an optional obdiag.yaml, then command-line flags.
type Settings struct {
	Port    string
	Baud    int
	Timeout time.Duration

	// Sim runs against the built-in simulator instead of a real adapter.
	Sim bool

	Sensors    []string
	HybridMode bool

	ExportDir string
	Pretty    bool

	Broker string
	Topic  string

	MaxRetries          int
	GracefulDegradation bool

	Debug bool
}

// DefaultSensors is the sweep list queried on every scan. Hybrid-specific
// parameters may not answer on conventional vehicles; the collector treats
// that as a missing reading, not an error.
var DefaultSensors = []string{
	"SPEED",
	"RPM",
	"ENGINE_LOAD",
	"COOLANT_TEMP",
	"THROTTLE_POS",
	"INTAKE_TEMP",
	"FUEL_LEVEL",
	"FUEL_PRESSURE",
	"OIL_TEMP",
	"DISTANCE_SINCE_CLEAR",
	"HYBRID_BATTERY_REMAINING",
	"CONTROL_MODULE_VOLTAGE",
}

// hybridOnlySensors never answer on a conventional vehicle; they are dropped
// from the sweep when hybrid mode is off.
var hybridOnlySensors = map[string]bool{
	"HYBRID_BATTERY_REMAINING": true,
}

// DefaultPort picks the usual adapter device for the running OS.
func DefaultPort() string {
	switch runtime.GOOS {
	case "windows":
		return "COM3"
	case "darwin":
		return "/dev/tty.usbserial"
	default:
		return "/dev/ttyUSB0"
	}
}

// SetDefaults registers every settings key with viper.
func SetDefaults() {
	viper.SetDefault("port", DefaultPort())
	viper.SetDefault("baud", 38400)
	viper.SetDefault("timeout", 5*time.Second)
	viper.SetDefault("sim", false)
	viper.SetDefault("sensors", DefaultSensors)
	viper.SetDefault("hybrid", true)
	viper.SetDefault("output-dir", "output")
	viper.SetDefault("pretty", true)
	viper.SetDefault("broker", "")
	viper.SetDefault("topic", "vehicle/diagnostics")
	viper.SetDefault("max-retries", 3)
	viper.SetDefault("graceful", true)
	viper.SetDefault("debug", false)
}

// Load materializes the current viper state into a Settings value, falling
// back to defaults for anything invalid.
func Load() Settings {
	s := Settings{
		Port:                viper.GetString("port"),
		Baud:                viper.GetInt("baud"),
		Timeout:             viper.GetDuration("timeout"),
		Sim:                 viper.GetBool("sim"),
		Sensors:             viper.GetStringSlice("sensors"),
		HybridMode:          viper.GetBool("hybrid"),
		ExportDir:           viper.GetString("output-dir"),
		Pretty:              viper.GetBool("pretty"),
		Broker:              viper.GetString("broker"),
		Topic:               viper.GetString("topic"),
		MaxRetries:          viper.GetInt("max-retries"),
		GracefulDegradation: viper.GetBool("graceful"),
		Debug:               viper.GetBool("debug"),
	}

	if s.Port == "" {
		s.Port = DefaultPort()
	}
	if s.Baud <= 0 {
		s.Baud = 38400
	}
	if s.Timeout <= 0 {
		s.Timeout = 5 * time.Second
	}
	if len(s.Sensors) == 0 {
		s.Sensors = DefaultSensors
	}
	if !s.HybridMode {
		s.Sensors = dropHybridSensors(s.Sensors)
	}
	if s.ExportDir == "" {
		s.ExportDir = "output"
	}
	if s.MaxRetries < 1 {
		s.MaxRetries = 1
	}

	return s
}

func dropHybridSensors(sensors []string) []string {
	filtered := make([]string, 0, len(sensors))
	for _, name := range sensors {
		if hybridOnlySensors[name] {
			continue
		}
		filtered = append(filtered, name)
	}
	return filtered
}

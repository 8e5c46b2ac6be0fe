// Package signal normalizes raw sensor readings into standard units and
// derives a semantic vehicle state from them.
package signal

import (
	"math"
	"strings"

	"obdiag/internal/models"
)

// Result is the processed form of a sensor sweep: values in standard units
// keyed by snake_case names (nil for sensors that did not answer) plus the
// derived vehicle state.
type Result struct {
	Sensors map[string]*float64 `json:"sensors"`
	State   State               `json:"vehicle_state"`
}

// State is the semantic reading of what the vehicle is doing.
type State struct {
	VehicleMoving  bool `json:"vehicle_moving"`
	VehicleStopped bool `json:"vehicle_stopped"`

	EngineRunning bool `json:"engine_running"`
	EngineOff     bool `json:"engine_off"`
	EngineIdle    bool `json:"engine_idle"`
	EngineHighRPM bool `json:"engine_high_rpm"`

	EngineCold        bool `json:"engine_cold"`
	EngineWarm        bool `json:"engine_warm"`
	EngineNormalTemp  bool `json:"engine_normal_temp"`
	EngineOverheating bool `json:"engine_overheating"`

	LowLoad      bool `json:"low_load"`
	ModerateLoad bool `json:"moderate_load"`
	HighLoad     bool `json:"high_load"`

	HighVoltagePresent bool `json:"high_voltage_present"`
	LowVoltageSystem   bool `json:"low_voltage_system"`

	Mode string `json:"mode"`
}

// Processor converts raw OBD readings into normalized, usable form.
type Processor struct{}

func New() *Processor {
	return &Processor{}
}

// Process runs the complete pipeline: unit standardization followed by state
// derivation.
func (p *Processor) Process(readings map[string]*models.Reading) Result {
	sensors := p.Standardize(readings)
	return Result{
		Sensors: sensors,
		State:   p.DeriveState(sensors),
	}
}

// Standardize converts readings to standard units with clean keys.
//
// Standard units: speed km/h, temperature °C, pressure kPa, voltage V,
// ratios %. Source units in miles, Fahrenheit or psi are converted. Missing
// readings keep their key with a nil value so the export shows what was
// swept but unavailable.
func (p *Processor) Standardize(readings map[string]*models.Reading) map[string]*float64 {
	standard := make(map[string]*float64, len(readings))

	for name, r := range readings {
		if r == nil {
			standard[standardKey(name)] = nil
			continue
		}

		value := r.Value
		unit := strings.ToLower(r.Unit)

		switch {
		case name == "SPEED":
			if strings.Contains(unit, "mile") || strings.Contains(unit, "mph") {
				value *= 1.60934
			}
			standard["speed_kph"] = ptr(round(value, 2))

		case name == "RPM":
			standard["rpm"] = ptr(round(value, 2))

		case strings.Contains(name, "TEMP"):
			if strings.Contains(unit, "fahrenheit") {
				value = (value - 32) * 5 / 9
			}
			standard[tempKey(name)] = ptr(round(value, 1))

		case strings.Contains(name, "PRESSURE"):
			if strings.Contains(unit, "psi") {
				value *= 6.89476
			}
			standard[strings.ToLower(name)+"_kpa"] = ptr(round(value, 1))

		case strings.Contains(name, "VOLTAGE"):
			standard[strings.ToLower(name)+"_v"] = ptr(round(value, 2))

		case strings.Contains(name, "LOAD"), strings.Contains(name, "LEVEL"), strings.Contains(name, "POS"):
			standard[strings.ToLower(name)+"_pct"] = ptr(round(value, 1))

		default:
			standard[strings.ToLower(name)] = ptr(round(value, 2))
		}
	}

	return standard
}

// DeriveState reads the standardized values into a semantic vehicle state.
// Absent sensors count as zero, matching a vehicle at rest.
func (p *Processor) DeriveState(sensors map[string]*float64) State {
	speed := get(sensors, "speed_kph")
	rpm := get(sensors, "rpm")
	load := get(sensors, "engine_load_pct")
	coolant := get(sensors, "coolant_temp_c")
	voltage := get(sensors, "control_module_voltage_v")

	s := State{
		VehicleMoving:  speed > 5,
		VehicleStopped: speed < 1,

		EngineRunning: rpm > 300,
		EngineOff:     rpm < 100,
		EngineIdle:    rpm > 500 && rpm < 1000 && speed < 5,
		EngineHighRPM: rpm > 4000,

		EngineCold:        coolant < 60,
		EngineWarm:        coolant >= 60 && coolant < 90,
		EngineNormalTemp:  coolant >= 90 && coolant <= 110,
		EngineOverheating: coolant > 110,

		LowLoad:      load < 30,
		ModerateLoad: load >= 30 && load < 70,
		HighLoad:     load >= 70,
	}

	if voltage > 0 {
		s.HighVoltagePresent = voltage > 100
		s.LowVoltageSystem = voltage < 20
	} else {
		s.LowVoltageSystem = true
	}

	switch {
	case s.VehicleStopped && s.EngineRunning:
		s.Mode = "idle"
	case s.VehicleMoving && s.LowLoad:
		s.Mode = "cruising"
	case s.VehicleMoving && s.HighLoad:
		s.Mode = "accelerating"
	case speed < 1 && rpm < 100:
		s.Mode = "off"
	default:
		s.Mode = "normal"
	}

	return s
}

// standardKey maps a sensor name to its standardized key, used for sensors
// that did not answer.
func standardKey(name string) string {
	switch {
	case name == "SPEED":
		return "speed_kph"
	case name == "RPM":
		return "rpm"
	case strings.Contains(name, "TEMP"):
		return tempKey(name)
	case strings.Contains(name, "PRESSURE"):
		return strings.ToLower(name) + "_kpa"
	case strings.Contains(name, "VOLTAGE"):
		return strings.ToLower(name) + "_v"
	case strings.Contains(name, "LOAD"), strings.Contains(name, "LEVEL"), strings.Contains(name, "POS"):
		return strings.ToLower(name) + "_pct"
	}
	return strings.ToLower(name)
}

func tempKey(name string) string {
	return strings.Replace(strings.ToLower(name), "_temp", "_temp_c", 1)
}

func get(sensors map[string]*float64, key string) float64 {
	if v, ok := sensors[key]; ok && v != nil {
		return *v
	}
	return 0
}

func ptr(v float64) *float64 {
	return &v
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}

package obd

import (
	"fmt"
	"sort"
)

// PID describes one queryable OBD-II parameter: the service mode, the
// parameter code, the expected payload length and the SAE J1979 decode
// formula turning payload bytes into a value in Unit.
type PID struct {
	Name   string
	Mode   string
	Code   string
	Desc   string
	Unit   string
	Bytes  int
	Decode func(data []byte) float64
}

// Command is the hex string written to the adapter, e.g. "010C" for RPM.
func (p PID) Command() string {
	return fmt.Sprintf("%s%s", p.Mode, p.Code)
}

var registry = map[string]PID{
	"SPEED": {
		Name: "SPEED", Mode: "01", Code: "0D",
		Desc: "Vehicle Speed", Unit: "kph", Bytes: 1,
		Decode: func(d []byte) float64 { return float64(d[0]) },
	},
	"RPM": {
		Name: "RPM", Mode: "01", Code: "0C",
		Desc: "Engine RPM", Unit: "rpm", Bytes: 2,
		Decode: func(d []byte) float64 { return (float64(d[0])*256 + float64(d[1])) / 4 },
	},
	"ENGINE_LOAD": {
		Name: "ENGINE_LOAD", Mode: "01", Code: "04",
		Desc: "Calculated Engine Load", Unit: "percent", Bytes: 1,
		Decode: func(d []byte) float64 { return float64(d[0]) * 100 / 255 },
	},
	"COOLANT_TEMP": {
		Name: "COOLANT_TEMP", Mode: "01", Code: "05",
		Desc: "Engine Coolant Temperature", Unit: "celsius", Bytes: 1,
		Decode: func(d []byte) float64 { return float64(d[0]) - 40 },
	},
	"THROTTLE_POS": {
		Name: "THROTTLE_POS", Mode: "01", Code: "11",
		Desc: "Throttle Position", Unit: "percent", Bytes: 1,
		Decode: func(d []byte) float64 { return float64(d[0]) * 100 / 255 },
	},
	"INTAKE_TEMP": {
		Name: "INTAKE_TEMP", Mode: "01", Code: "0F",
		Desc: "Intake Air Temperature", Unit: "celsius", Bytes: 1,
		Decode: func(d []byte) float64 { return float64(d[0]) - 40 },
	},
	"FUEL_LEVEL": {
		Name: "FUEL_LEVEL", Mode: "01", Code: "2F",
		Desc: "Fuel Tank Level", Unit: "percent", Bytes: 1,
		Decode: func(d []byte) float64 { return float64(d[0]) * 100 / 255 },
	},
	"FUEL_PRESSURE": {
		Name: "FUEL_PRESSURE", Mode: "01", Code: "0A",
		Desc: "Fuel Pressure", Unit: "kilopascal", Bytes: 1,
		Decode: func(d []byte) float64 { return float64(d[0]) * 3 },
	},
	"OIL_TEMP": {
		Name: "OIL_TEMP", Mode: "01", Code: "5C",
		Desc: "Engine Oil Temperature", Unit: "celsius", Bytes: 1,
		Decode: func(d []byte) float64 { return float64(d[0]) - 40 },
	},
	"DISTANCE_SINCE_CLEAR": {
		Name: "DISTANCE_SINCE_CLEAR", Mode: "01", Code: "31",
		Desc: "Distance traveled since codes cleared", Unit: "kilometer", Bytes: 2,
		Decode: func(d []byte) float64 { return float64(d[0])*256 + float64(d[1]) },
	},
	"HYBRID_BATTERY_REMAINING": {
		Name: "HYBRID_BATTERY_REMAINING", Mode: "01", Code: "5B",
		Desc: "Hybrid Battery Pack Remaining Life", Unit: "percent", Bytes: 1,
		Decode: func(d []byte) float64 { return float64(d[0]) * 100 / 255 },
	},
	"CONTROL_MODULE_VOLTAGE": {
		Name: "CONTROL_MODULE_VOLTAGE", Mode: "01", Code: "42",
		Desc: "Control Module Voltage", Unit: "volt", Bytes: 2,
		Decode: func(d []byte) float64 { return (float64(d[0])*256 + float64(d[1])) / 1000 },
	},
}

// Lookup resolves a sensor name to its PID definition.
func Lookup(name string) (PID, bool) {
	p, ok := registry[name]
	return p, ok
}

// Names lists every registered sensor name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package dtc

import "strings"

// descriptions covers the codes a vehicle commonly reports without sending
// text. Unknown codes fall back to a range-based hint or "Unknown DTC".
var descriptions = map[string]string{
	// Powertrain codes
	"P0101": "Mass Air Flow Circuit Range/Performance",
	"P0102": "Mass Air Flow Circuit Low Input",
	"P0103": "Mass Air Flow Circuit High Input",
	"P0171": "System Too Lean (Bank 1)",
	"P0172": "System Too Rich (Bank 1)",
	"P0174": "System Too Lean (Bank 2)",
	"P0175": "System Too Rich (Bank 2)",
	"P0300": "Random/Multiple Cylinder Misfire Detected",
	"P0301": "Cylinder 1 Misfire Detected",
	"P0302": "Cylinder 2 Misfire Detected",
	"P0303": "Cylinder 3 Misfire Detected",
	"P0304": "Cylinder 4 Misfire Detected",
	"P0401": "Exhaust Gas Recirculation Flow Insufficient",
	"P0402": "Exhaust Gas Recirculation Flow Excessive",
	"P0420": "Catalyst System Efficiency Below Threshold",
	"P0440": "Evaporative Emission Control System Malfunction",
	"P0441": "Evaporative Emission Control System Incorrect Purge Flow",
	"P0442": "Evaporative Emission Control System Leak Detected (Small)",
	"P0443": "Evaporative Emission Control System Purge Control Valve Circuit",
	"P0455": "Evaporative Emission Control System Leak Detected (Large)",
	"P0500": "Vehicle Speed Sensor Malfunction",
	"P0505": "Idle Control System Malfunction",
	"P0506": "Idle Control System RPM Lower Than Expected",
	"P0507": "Idle Control System RPM Higher Than Expected",
	"P0562": "System Voltage Low",
	"P0601": "Internal Control Module Memory Check Sum Error",
	"P0602": "Control Module Programming Error",
	"P0606": "Control Module Processor Fault",

	// Hybrid/electric codes
	"P0A1F": "Hybrid Battery Voltage System",
	"P0A80": "Replace Hybrid Battery Pack",
	"P3000": "Hybrid Battery Voltage High",
	"P3001": "Hybrid Battery Voltage Low",

	// Chassis codes (TPMS and stability)
	"C1A00": "TPMS Control Module Malfunction",
	"C1A01": "TPMS Module Configuration Error",
	"C1A02": "TPMS RF Receiver Malfunction",
	"C2100": "Tire Pressure Too Low - Left Front",
	"C2101": "Tire Pressure Too Low - Right Front",
	"C2102": "Tire Pressure Too Low - Right Rear",
	"C2103": "Tire Pressure Too Low - Left Rear",

	// Body codes
	"B1000": "Body Control Module Malfunction",
	"B1342": "ECU Defective",
	"B1600": "Ignition Switch Malfunction",

	// Network codes
	"U0001": "High Speed CAN Communication Bus",
	"U0100": "Lost Communication With ECM/PCM",
	"U0101": "Lost Communication With TCM",
	"U0121": "Lost Communication With ABS Module",
	"U0140": "Lost Communication With Body Control Module",
	"U0155": "Lost Communication With Instrument Cluster",
}

// Describe returns a human-readable description for a code.
func Describe(code string) string {
	if desc, ok := descriptions[code]; ok {
		return desc
	}
	if strings.HasPrefix(code, "C1A") || strings.HasPrefix(code, "C2") {
		return "TPMS/Tire Pressure Related Code"
	}
	if strings.HasPrefix(code, "P0A") || strings.HasPrefix(code, "P1A") {
		return "Hybrid/Electric System Code"
	}
	return "Unknown DTC"
}

package models

import "time"

// Reading is a single decoded sensor value from the vehicle.
type Reading struct {
	Sensor string  `json:"sensor"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
}

// DTCEntry represents a diagnostic trouble code with description.
type DTCEntry struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ConnectionInfo describes the adapter connection a snapshot was taken over.
type ConnectionInfo struct {
	Port           string  `json:"port"`
	Protocol       string  `json:"protocol"`
	Status         string  `json:"status"`
	BatteryVoltage float64 `json:"battery_voltage,omitempty"`
}

// Snapshot is one complete sweep of the vehicle: sensor readings keyed by
// sensor name (nil entry means the sensor did not answer), stored and pending
// trouble codes, and the connection the data came from.
type Snapshot struct {
	Timestamp  time.Time           `json:"timestamp"`
	Readings   map[string]*Reading `json:"readings"`
	DTCs       []DTCEntry          `json:"dtcs"`
	Pending    []DTCEntry          `json:"pending"`
	Connection ConnectionInfo      `json:"connection"`
}

// Available counts the readings that actually carry a value.
func (s *Snapshot) Available() int {
	n := 0
	for _, r := range s.Readings {
		if r != nil {
			n++
		}
	}
	return n
}

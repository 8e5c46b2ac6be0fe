// Package export assembles the complete diagnostic report and writes it out
// as JSON for downstream analysis.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"obdiag/internal/dtc"
	"obdiag/internal/models"
	"obdiag/internal/signal"
)

const (
	reportVersion = "1.0"
	systemName    = "Hybrid Vehicle Diagnostic Intelligence System"
)

// Health status values, from best to worst.
const (
	HealthHealthy   = "HEALTHY"
	HealthAttention = "ATTENTION"
	HealthWarning   = "WARNING"
	HealthCritical  = "CRITICAL"
)

// Report is the complete diagnostic output.
type Report struct {
	Metadata     Metadata              `json:"metadata"`
	Connection   models.ConnectionInfo `json:"connection"`
	DTCs         DTCSection            `json:"dtcs"`
	Sensors      map[string]*float64   `json:"sensors"`
	VehicleState signal.State          `json:"vehicle_state"`
	Analysis     Analysis              `json:"analysis"`
}

type Metadata struct {
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	System    string `json:"system"`
}

type DTCSection struct {
	Count   int             `json:"count"`
	Codes   []dtc.ParsedDTC `json:"codes"`
	Pending []dtc.ParsedDTC `json:"pending,omitempty"`
	Summary Summary         `json:"summary"`
}

type Summary struct {
	Total          int `json:"total"`
	Critical       int `json:"critical"`
	Medium         int `json:"medium"`
	Low            int `json:"low"`
	SafetyCritical int `json:"safety_critical"`
	HybridRelated  int `json:"hybrid_related"`
}

type Analysis struct {
	HealthStatus            string   `json:"health_status"`
	Warnings                []string `json:"warnings"`
	Drivable                bool     `json:"drivable"`
	ImmediateActionRequired bool     `json:"immediate_action_required"`
	Recommendation          string   `json:"recommendation"`
}

// Exporter writes diagnostic reports into a directory.
type Exporter struct {
	dir    string
	pretty bool
}

// New creates an exporter. The directory is created on the first write.
func New(dir string, pretty bool) *Exporter {
	return &Exporter{dir: dir, pretty: pretty}
}

// Build combines a snapshot, its classified codes and the processed sensor
// data into one report.
func Build(snap *models.Snapshot, codes, pending []dtc.ParsedDTC, processed signal.Result) *Report {
	if codes == nil {
		codes = []dtc.ParsedDTC{}
	}
	return &Report{
		Metadata: Metadata{
			Timestamp: snap.Timestamp.Format(time.RFC3339),
			Version:   reportVersion,
			System:    systemName,
		},
		Connection: snap.Connection,
		DTCs: DTCSection{
			Count:   len(codes),
			Codes:   codes,
			Pending: pending,
			Summary: summarize(codes),
		},
		Sensors:      processed.Sensors,
		VehicleState: processed.State,
		Analysis:     analyze(codes, processed.State),
	}
}

func summarize(codes []dtc.ParsedDTC) Summary {
	s := Summary{Total: len(codes)}
	for _, c := range codes {
		switch c.Severity {
		case dtc.SeverityCritical:
			s.Critical++
		case dtc.SeverityMedium:
			s.Medium++
		case dtc.SeverityLow:
			s.Low++
		}
		if c.SafetyCritical {
			s.SafetyCritical++
		}
		if c.HybridRelated {
			s.HybridRelated++
		}
	}
	return s
}

func analyze(codes []dtc.ParsedDTC, state signal.State) Analysis {
	health := HealthHealthy
	warnings := []string{}

	criticalCount := 0
	safetyCount := 0
	for _, c := range codes {
		if c.Severity == dtc.SeverityCritical {
			criticalCount++
		}
		if c.SafetyCritical {
			safetyCount++
		}
	}

	switch {
	case safetyCount > 0:
		health = HealthCritical
		warnings = append(warnings, fmt.Sprintf("%d safety-critical fault(s) detected", safetyCount))
	case criticalCount > 0:
		health = HealthWarning
		warnings = append(warnings, fmt.Sprintf("%d critical fault(s) detected", criticalCount))
	case len(codes) > 0:
		health = HealthAttention
		warnings = append(warnings, fmt.Sprintf("%d fault code(s) present", len(codes)))
	}

	if state.EngineOverheating {
		health = HealthCritical
		warnings = append(warnings, "Engine overheating detected")
	}
	if state.EngineHighRPM {
		warnings = append(warnings, "Engine running at high RPM")
	}

	return Analysis{
		HealthStatus:            health,
		Warnings:                warnings,
		Drivable:                health != HealthCritical,
		ImmediateActionRequired: health == HealthCritical,
		Recommendation:          recommend(health, codes, state),
	}
}

func recommend(health string, codes []dtc.ParsedDTC, state signal.State) string {
	switch health {
	case HealthCritical:
		if state.EngineOverheating {
			return "STOP IMMEDIATELY: Engine overheating. Do not continue driving. Seek immediate service."
		}
		if safety := dtc.SafetyCritical(codes); len(safety) > 0 {
			return fmt.Sprintf("STOP IMMEDIATELY: Safety-critical fault detected (%s). Do not drive. Contact qualified technician.", safety[0].Code)
		}
		return "CRITICAL: Stop driving and seek immediate professional diagnosis."
	case HealthWarning:
		return "Schedule service soon. Critical fault codes detected. Avoid extended driving."
	case HealthAttention:
		return "Minor faults detected. Schedule service at your convenience."
	}
	return "Vehicle operating normally. No immediate action required."
}

// Marshal renders the report as JSON, honoring the pretty-print setting.
func (e *Exporter) Marshal(r *Report) ([]byte, error) {
	if e.pretty {
		return json.MarshalIndent(r, "", "  ")
	}
	return json.Marshal(r)
}

// Write saves the report. An empty filename generates a timestamped one.
// Returns the full path of the written file.
func (e *Exporter) Write(r *Report, filename string) (string, error) {
	if filename == "" {
		filename = fmt.Sprintf("diagnostic_%s.json", time.Now().Format("20060102_150405"))
	}
	if !strings.HasSuffix(filename, ".json") {
		filename += ".json"
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	data, err := e.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}

	path := filepath.Join(e.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

// Validate checks the report has the fields downstream consumers rely on.
func Validate(r *Report) error {
	if r == nil {
		return fmt.Errorf("nil report")
	}
	if r.Metadata.Timestamp == "" {
		return fmt.Errorf("missing timestamp in metadata")
	}
	if r.Metadata.Version == "" {
		return fmt.Errorf("missing version in metadata")
	}
	if r.Sensors == nil {
		return fmt.Errorf("missing sensors section")
	}
	if r.Analysis.HealthStatus == "" {
		return fmt.Errorf("missing health status")
	}
	return nil
}

// Package dtc classifies diagnostic trouble codes: domain, subsystem,
// severity, safety criticality and hybrid relevance, per the SAE J2012 code
// structure.
package dtc

import (
	"strings"

	"obdiag/internal/models"
)

// Severity buckets for a fault code.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// ParsedDTC is a trouble code with its classification metadata.
type ParsedDTC struct {
	Code           string   `json:"code"`
	Description    string   `json:"description"`
	Domain         string   `json:"domain"`
	CodeType       string   `json:"code_type"`
	Subsystem      string   `json:"subsystem"`
	Severity       Severity `json:"severity"`
	SafetyCritical bool     `json:"safety_critical"`
	HybridRelated  bool     `json:"hybrid_related"`
}

func (d ParsedDTC) String() string {
	return d.Code + ": " + d.Description + " [" + string(d.Severity) + "]"
}

// Parse classifies a single code. An empty description is filled from the
// built-in table when the code is known.
func Parse(code, description string) ParsedDTC {
	code = strings.ToUpper(strings.TrimSpace(code))
	if description == "" {
		description = Describe(code)
	}
	return ParsedDTC{
		Code:           code,
		Description:    description,
		Domain:         parseDomain(code),
		CodeType:       parseType(code),
		Subsystem:      identifySubsystem(code),
		Severity:       determineSeverity(code),
		SafetyCritical: isSafetyCritical(code),
		HybridRelated:  isHybridRelated(code),
	}
}

// ParseAll classifies every entry from a snapshot.
func ParseAll(entries []models.DTCEntry) []ParsedDTC {
	parsed := make([]ParsedDTC, 0, len(entries))
	for _, e := range entries {
		parsed = append(parsed, Parse(e.Code, e.Description))
	}
	return parsed
}

// GroupBySeverity buckets codes by severity. Every bucket is present even
// when empty.
func GroupBySeverity(codes []ParsedDTC) map[Severity][]ParsedDTC {
	grouped := map[Severity][]ParsedDTC{
		SeverityCritical: {},
		SeverityMedium:   {},
		SeverityLow:      {},
	}
	for _, c := range codes {
		grouped[c.Severity] = append(grouped[c.Severity], c)
	}
	return grouped
}

// SafetyCritical filters the codes that make the vehicle unsafe to drive.
func SafetyCritical(codes []ParsedDTC) []ParsedDTC {
	var out []ParsedDTC
	for _, c := range codes {
		if c.SafetyCritical {
			out = append(out, c)
		}
	}
	return out
}

// HybridRelated filters the codes touching the hybrid/electric system.
func HybridRelated(codes []ParsedDTC) []ParsedDTC {
	var out []ParsedDTC
	for _, c := range codes {
		if c.HybridRelated {
			out = append(out, c)
		}
	}
	return out
}

func parseDomain(code string) string {
	if code == "" {
		return "Unknown"
	}
	switch code[0] {
	case 'P':
		return "Powertrain"
	case 'C':
		return "Chassis"
	case 'B':
		return "Body"
	case 'U':
		return "Network"
	}
	return "Unknown"
}

func parseType(code string) string {
	if len(code) < 2 {
		return "Unknown"
	}
	switch code[1] {
	case '0', '2':
		return "Generic (SAE)"
	case '1', '3':
		return "Manufacturer-specific"
	}
	return "Unknown"
}

func identifySubsystem(code string) string {
	switch {
	case strings.HasPrefix(code, "P"):
		num := code[1:]
		switch {
		case strings.HasPrefix(num, "0A"), strings.HasPrefix(num, "1A"):
			return "Hybrid/Electric System"
		case strings.HasPrefix(num, "01"), strings.HasPrefix(num, "02"):
			return "Fuel/Air Metering and Auxiliary Emissions"
		case strings.HasPrefix(num, "03"):
			return "Ignition System"
		case strings.HasPrefix(num, "04"):
			return "Emissions Control"
		case strings.HasPrefix(num, "05"), strings.HasPrefix(num, "06"):
			return "Vehicle Speed & Idle Control"
		case strings.HasPrefix(num, "07"), strings.HasPrefix(num, "08"):
			return "Transmission"
		}
		return "Powertrain (General)"
	case strings.HasPrefix(code, "C"):
		return "Chassis System"
	case strings.HasPrefix(code, "B"):
		return "Body System"
	case strings.HasPrefix(code, "U"):
		return "Network Communication"
	}
	return "Unknown"
}

// Specific codes that are critical regardless of range: ECU memory,
// programming and processor faults.
var criticalCodes = map[string]bool{
	"P0601": true,
	"P0602": true,
	"P0606": true,
}

func determineSeverity(code string) Severity {
	if criticalCodes[code] {
		return SeverityCritical
	}
	for _, prefix := range []string{"P0A", "P06", "C0"} {
		if strings.HasPrefix(code, prefix) {
			return SeverityCritical
		}
	}
	for _, prefix := range []string{"P04", "P07", "P08"} {
		if strings.HasPrefix(code, prefix) {
			return SeverityMedium
		}
	}
	return SeverityLow
}

func isSafetyCritical(code string) bool {
	// High-voltage hybrid faults and chassis (brakes, stability) faults
	if strings.HasPrefix(code, "P0A") || strings.HasPrefix(code, "C") {
		return true
	}
	switch code {
	case "P0601", "P0602", "P0606", "P0562":
		return true
	}
	return false
}

func isHybridRelated(code string) bool {
	if strings.HasPrefix(code, "P0A") || strings.HasPrefix(code, "P1A") {
		return true
	}
	switch code {
	case "P3000", "P3001":
		return true
	}
	return false
}

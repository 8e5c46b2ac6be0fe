package dtc

import (
	"testing"

	"obdiag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHybridCode(t *testing.T) {
	d := Parse("P0A80", "Hybrid Battery Pack Deterioration")

	assert.Equal(t, "P0A80", d.Code)
	assert.Equal(t, "Hybrid Battery Pack Deterioration", d.Description)
	assert.Equal(t, "Powertrain", d.Domain)
	assert.Equal(t, "Generic (SAE)", d.CodeType)
	assert.Equal(t, "Hybrid/Electric System", d.Subsystem)
	assert.Equal(t, SeverityCritical, d.Severity)
	assert.True(t, d.SafetyCritical)
	assert.True(t, d.HybridRelated)
}

func TestParseClassification(t *testing.T) {
	tests := []struct {
		code      string
		domain    string
		codeType  string
		subsystem string
		severity  Severity
		safety    bool
		hybrid    bool
	}{
		{"P0420", "Powertrain", "Generic (SAE)", "Emissions Control", SeverityMedium, false, false},
		{"P0301", "Powertrain", "Generic (SAE)", "Ignition System", SeverityLow, false, false},
		{"C0071", "Chassis", "Generic (SAE)", "Chassis System", SeverityCritical, true, false},
		{"P0601", "Powertrain", "Generic (SAE)", "Vehicle Speed & Idle Control", SeverityCritical, true, false},
		{"B0001", "Body", "Generic (SAE)", "Body System", SeverityLow, false, false},
		{"U0100", "Network", "Generic (SAE)", "Network Communication", SeverityLow, false, false},
		{"P0715", "Powertrain", "Generic (SAE)", "Transmission", SeverityMedium, false, false},
		{"P0171", "Powertrain", "Generic (SAE)", "Fuel/Air Metering and Auxiliary Emissions", SeverityLow, false, false},
		{"P1A05", "Powertrain", "Manufacturer-specific", "Hybrid/Electric System", SeverityLow, false, true},
		{"P3000", "Powertrain", "Manufacturer-specific", "Powertrain (General)", SeverityLow, false, true},
		{"P0562", "Powertrain", "Generic (SAE)", "Vehicle Speed & Idle Control", SeverityLow, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			d := Parse(tt.code, "")
			assert.Equal(t, tt.domain, d.Domain)
			assert.Equal(t, tt.codeType, d.CodeType)
			assert.Equal(t, tt.subsystem, d.Subsystem)
			assert.Equal(t, tt.severity, d.Severity)
			assert.Equal(t, tt.safety, d.SafetyCritical)
			assert.Equal(t, tt.hybrid, d.HybridRelated)
		})
	}
}

func TestParseNormalizesCase(t *testing.T) {
	d := Parse(" p0420 ", "")
	assert.Equal(t, "P0420", d.Code)
	assert.Equal(t, "Catalyst System Efficiency Below Threshold", d.Description)
}

func TestParseAll(t *testing.T) {
	entries := []models.DTCEntry{
		{Code: "P0A80", Description: "Hybrid Battery Pack Deterioration"},
		{Code: "P0420"},
		{Code: "P0301"},
		{Code: "C0071", Description: "ABS Control Module Fault"},
		{Code: "P0601"},
	}

	parsed := ParseAll(entries)
	require.Len(t, parsed, 5)

	// Descriptions the vehicle sent stay, missing ones come from the table
	assert.Equal(t, "Hybrid Battery Pack Deterioration", parsed[0].Description)
	assert.Equal(t, "Catalyst System Efficiency Below Threshold", parsed[1].Description)
	assert.Equal(t, "ABS Control Module Fault", parsed[3].Description)
}

func TestGroupBySeverity(t *testing.T) {
	parsed := ParseAll([]models.DTCEntry{
		{Code: "P0A80"},
		{Code: "P0420"},
		{Code: "P0301"},
		{Code: "C0071"},
		{Code: "P0601"},
	})

	grouped := GroupBySeverity(parsed)
	assert.Len(t, grouped[SeverityCritical], 3)
	assert.Len(t, grouped[SeverityMedium], 1)
	assert.Len(t, grouped[SeverityLow], 1)
}

func TestSafetyCriticalFilter(t *testing.T) {
	parsed := ParseAll([]models.DTCEntry{
		{Code: "P0A80"},
		{Code: "P0420"},
		{Code: "P0301"},
		{Code: "C0071"},
		{Code: "P0601"},
	})

	safety := SafetyCritical(parsed)
	require.Len(t, safety, 3)
	codes := []string{safety[0].Code, safety[1].Code, safety[2].Code}
	assert.Equal(t, []string{"P0A80", "C0071", "P0601"}, codes)
}

func TestHybridFilter(t *testing.T) {
	parsed := ParseAll([]models.DTCEntry{
		{Code: "P0A80"},
		{Code: "P0420"},
		{Code: "P0A1F"},
		{Code: "P0301"},
		{Code: "P3000"},
	})

	hybrid := HybridRelated(parsed)
	require.Len(t, hybrid, 3)
	codes := []string{hybrid[0].Code, hybrid[1].Code, hybrid[2].Code}
	assert.Equal(t, []string{"P0A80", "P0A1F", "P3000"}, codes)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Catalyst System Efficiency Below Threshold", Describe("P0420"))
	assert.Equal(t, "TPMS/Tire Pressure Related Code", Describe("C2250"))
	assert.Equal(t, "Hybrid/Electric System Code", Describe("P0AFF"))
	assert.Equal(t, "Unknown DTC", Describe("P9999"))
}

func TestEmptyAndShortCodes(t *testing.T) {
	d := Parse("", "")
	assert.Equal(t, "Unknown", d.Domain)
	assert.Equal(t, "Unknown", d.CodeType)

	d = Parse("P", "")
	assert.Equal(t, "Powertrain", d.Domain)
	assert.Equal(t, "Unknown", d.CodeType)
}

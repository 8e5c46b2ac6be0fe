package elm

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"obdiag/internal/models"
	"obdiag/internal/obd"
)

var dtcLetters = []byte{'P', 'C', 'B', 'U'}

// cleanResponse strips whitespace, CR/LF and the SEARCHING... banner so the
// remainder is a plain hex string. Works for both spaced and ATS0 responses.
func cleanResponse(line string) string {
	line = strings.ToUpper(line)
	line = strings.ReplaceAll(line, "SEARCHING...", "")
	var sb strings.Builder
	for _, r := range line {
		switch r {
		case ' ', '\r', '\n', '\t', '.', ':':
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func hasErrorMarker(line string) bool {
	upper := strings.ToUpper(line)
	return strings.Contains(upper, "NO DATA") || strings.Contains(upper, "NODATA") ||
		strings.Contains(upper, "UNABLE TO CONNECT") || strings.Contains(upper, "ERROR") ||
		strings.Contains(upper, "?")
}

// parsePIDPayload extracts the payload bytes for a Mode 01 answer. A request
// "010C" is answered with "41 0C A B ..."; the positive response byte is the
// mode plus 0x40.
func parsePIDPayload(line string, p obd.PID) ([]byte, error) {
	if hasErrorMarker(line) {
		return nil, fmt.Errorf("adapter reported no data: %q", strings.TrimSpace(line))
	}

	cleaned := cleanResponse(line)
	prefix, err := responsePrefix(p.Mode)
	if err != nil {
		return nil, err
	}
	prefix += p.Code

	idx := strings.Index(cleaned, prefix)
	if idx < 0 {
		return nil, fmt.Errorf("no %s answer in response %q", prefix, strings.TrimSpace(line))
	}

	payload := cleaned[idx+len(prefix):]
	if len(payload) < p.Bytes*2 {
		return nil, fmt.Errorf("short payload for %s: %q", p.Name, payload)
	}

	data, err := hex.DecodeString(payload[:p.Bytes*2])
	if err != nil {
		return nil, fmt.Errorf("malformed payload for %s: %w", p.Name, err)
	}
	return data, nil
}

func responsePrefix(mode string) (string, error) {
	m, err := strconv.ParseUint(mode, 16, 8)
	if err != nil {
		return "", fmt.Errorf("invalid mode %q", mode)
	}
	return fmt.Sprintf("%02X", m+0x40), nil
}

// parseDTCPayload decodes a Mode 03/07 answer into trouble codes. Each DTC is
// two bytes per SAE J2012: the top two bits of the first byte select the
// letter (P/C/B/U), the remaining nibbles form the four digits.
//
// CAN responses carry a count byte after the positive response byte
// ("43 02 01 43 02 22"); the legacy ISO/J1850 format goes straight into code
// pairs. The caller says which framing the negotiated protocol uses.
func parseDTCPayload(line string, respByte byte, can bool) ([]models.DTCEntry, error) {
	if strings.TrimSpace(line) == "" {
		return nil, fmt.Errorf("empty response")
	}
	upper := strings.ToUpper(line)
	if strings.Contains(upper, "NO DATA") || strings.Contains(upper, "NODATA") {
		// Nothing stored in the ECU
		return nil, nil
	}
	if hasErrorMarker(line) {
		return nil, fmt.Errorf("adapter error: %q", strings.TrimSpace(line))
	}

	cleaned := cleanResponse(line)
	marker := fmt.Sprintf("%02X", respByte)

	idx := strings.Index(cleaned, marker)
	if idx < 0 {
		return nil, fmt.Errorf("no mode %02X answer in response %q", respByte-0x40, strings.TrimSpace(line))
	}

	payload, err := hex.DecodeString(trimOddTail(cleaned[idx+len(marker):]))
	if err != nil {
		return nil, fmt.Errorf("malformed DTC payload: %w", err)
	}
	if len(payload) == 0 {
		return nil, nil
	}

	if can {
		count := int(payload[0])
		if count == 0 {
			return nil, nil
		}
		if count*2 > len(payload)-1 {
			return nil, fmt.Errorf("DTC count %d exceeds payload %q", count, strings.TrimSpace(line))
		}
		return decodePairs(payload[1:], count), nil
	}
	return decodePairs(payload, len(payload)/2), nil
}

func trimOddTail(s string) string {
	if len(s)%2 != 0 {
		return s[:len(s)-1]
	}
	return s
}

func decodePairs(payload []byte, max int) []models.DTCEntry {
	var codes []models.DTCEntry
	for i := 0; i+1 < len(payload) && len(codes) < max; i += 2 {
		a, b := payload[i], payload[i+1]
		// Zero pairs and AA/FF fillers are padding
		if a == 0 && b == 0 {
			continue
		}
		if a == 0xAA || a == 0xFF {
			break
		}
		codes = append(codes, models.DTCEntry{Code: decodeDTC(a, b)})
	}
	return codes
}

func decodeDTC(a, b byte) string {
	letter := dtcLetters[(a&0xC0)>>6]
	first := (a & 0x30) >> 4
	second := a & 0x0F
	third := (b & 0xF0) >> 4
	fourth := b & 0x0F
	return fmt.Sprintf("%c%X%X%X%X", letter, first, second, third, fourth)
}

// parseVoltage parses an ATRV answer like "12.5V".
func parseVoltage(response string) (float64, error) {
	response = strings.TrimSpace(strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(response)), "V"))
	return strconv.ParseFloat(response, 64)
}

// Package elm implements the OBD provider over an ELM327-compatible serial
// adapter: AT-command initialization, protocol auto-detection and Mode
// 01/03/04/07 request framing on top of tarm/serial.
package elm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"obdiag/internal/models"
	"obdiag/internal/obd"
	"obdiag/pkg/log"

	"github.com/tarm/serial"
	"go.uber.org/zap"
)

const DefaultDelay = 100 * time.Millisecond

const (
	CommandReset           = "ATZ"
	CommandEchoOff         = "ATE0"
	CommandLineFeedsOff    = "ATL0"
	CommandHeadersOff      = "ATH0"
	CommandSpacesOff       = "ATS0"
	CommandSetProtocolAuto = "ATSP0"
	CommandProtocolNum     = "ATDPN"
	CommandReadVoltage     = "ATRV"

	CR = "\r"

	// Supported protocol IDs
	ProtocolAuto          = "0" // Automatic mode
	ProtocolJ1850PWM      = "1" // SAE J1850 PWM
	ProtocolJ1850VPW      = "2" // SAE J1850 VPW
	ProtocolISO9141       = "3" // ISO 9141-2
	ProtocolISO14230_5    = "4" // ISO 14230-4 (KWP 5BAUD)
	ProtocolISO14230      = "5" // ISO 14230-4 (KWP FAST)
	ProtocolISO15765_11   = "6" // ISO 15765-4 (CAN 11/500)
	ProtocolISO15765_29   = "7" // ISO 15765-4 (CAN 29/500)
	ProtocolISO15765_11_2 = "8" // ISO 15765-4 (CAN 11/250)
	ProtocolISO15765_29_2 = "9" // ISO 15765-4 (CAN 29/250)
	ProtocolSAEJ1939      = "A" // SAE J1939 (CAN 29/250)
)

var protocolNames = map[string]string{
	ProtocolAuto:          "Auto",
	ProtocolJ1850PWM:      "SAE J1850 PWM (41.6 kbaud)",
	ProtocolJ1850VPW:      "SAE J1850 VPW (10.4 kbaud)",
	ProtocolISO9141:       "ISO 9141-2 (5 baud init)",
	ProtocolISO14230_5:    "ISO 14230-4 KWP (5 baud init)",
	ProtocolISO14230:      "ISO 14230-4 KWP (fast init)",
	ProtocolISO15765_11:   "ISO 15765-4 CAN (11 bit ID, 500 kbaud)",
	ProtocolISO15765_29:   "ISO 15765-4 CAN (29 bit ID, 500 kbaud)",
	ProtocolISO15765_11_2: "ISO 15765-4 CAN (11 bit ID, 250 kbaud)",
	ProtocolISO15765_29_2: "ISO 15765-4 CAN (29 bit ID, 250 kbaud)",
	ProtocolSAEJ1939:      "SAE J1939 CAN (29 bit ID, 250 kbaud)",
}

// Config holds the serial connection parameters. Timeout is the read
// deadline applied to every command exchange; zero means 5 seconds.
type Config struct {
	Port    string
	Baud    int
	Timeout time.Duration
}

// ELM327 implements obd.Provider backed by a serial ELM327-like device.
type ELM327 struct {
	portName string
	baud     int
	timeout  time.Duration

	port   io.ReadWriteCloser
	reader *bufio.Reader

	protocol    string
	voltage     float64
	isConnected bool

	mu sync.Mutex
}

// New creates an ELM327 provider. Nothing is opened until Start.
func New(cfg Config) *ELM327 {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &ELM327{
		portName: cfg.Port,
		baud:     cfg.Baud,
		timeout:  cfg.Timeout,
	}
}

func (e *ELM327) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.open(ctx); err != nil {
		return fmt.Errorf("error while connecting: %w", err)
	}

	if err := e.initDevice(); err != nil {
		e.port.Close()
		return fmt.Errorf("initializing ELM327: %w", err)
	}

	// Try to detect protocol automatically first
	if err := e.autoDetectProtocol(); err != nil {
		log.Warn("Auto protocol detection failed, will try specific protocols", zap.Error(err))

		// Most likely first
		protocols := []string{
			ProtocolISO15765_11,
			ProtocolISO15765_11_2,
			ProtocolJ1850PWM,
			ProtocolISO9141,
			ProtocolISO14230,
		}

		detected := false
		for _, protocol := range protocols {
			if err := e.tryProtocol(protocol); err == nil {
				log.Info("Connected using protocol", zap.String("protocol", protocolNames[protocol]))
				e.protocol = protocol
				detected = true
				break
			}
		}
		if !detected {
			e.port.Close()
			return fmt.Errorf("no protocol could be negotiated with the vehicle")
		}
	}

	e.isConnected = true
	log.Info("Connected to vehicle",
		zap.String("port", e.portName),
		zap.Int("baud", e.baud),
		zap.String("protocol", protocolNames[e.protocol]))
	return nil
}

func (e *ELM327) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.port != nil {
		e.port.Close()
	}
	e.isConnected = false
}

func (e *ELM327) IsConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isConnected
}

// Query sends a PID request and decodes the answer.
func (e *ELM327) Query(p obd.PID) (*models.Reading, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isConnected {
		return nil, fmt.Errorf("not connected")
	}

	line, err := e.exchange(p.Command(), e.timeout)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", p.Name, err)
	}

	data, err := parsePIDPayload(line, p)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", p.Name, err)
	}

	return &models.Reading{
		Sensor: p.Name,
		Value:  p.Decode(data),
		Unit:   p.Unit,
	}, nil
}

func (e *ELM327) ReadDTCs() ([]models.DTCEntry, error) {
	return e.readCodes("03", 0x43)
}

func (e *ELM327) ReadPendingDTCs() ([]models.DTCEntry, error) {
	return e.readCodes("07", 0x47)
}

func (e *ELM327) readCodes(mode string, respByte byte) ([]models.DTCEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isConnected {
		return nil, fmt.Errorf("not connected")
	}

	line, err := e.exchange(mode, e.timeout)
	if err != nil {
		return nil, fmt.Errorf("mode %s query: %w", mode, err)
	}
	log.Debug("DTC raw response", zap.String("mode", mode), zap.String("response", line))

	return parseDTCPayload(line, respByte, e.isCAN())
}

// isCAN reports whether the negotiated protocol frames DTC answers with a
// leading count byte. Unknown protocols are assumed to be CAN, the common
// case on anything recent.
func (e *ELM327) isCAN() bool {
	switch e.protocol {
	case ProtocolJ1850PWM, ProtocolJ1850VPW, ProtocolISO9141, ProtocolISO14230_5, ProtocolISO14230:
		return false
	}
	return true
}

// ClearDTCs clears stored codes and the MIL (Mode 04). Use with caution:
// the vehicle loses its freeze-frame data too.
func (e *ELM327) ClearDTCs() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isConnected {
		return fmt.Errorf("not connected")
	}

	line, err := e.exchange("04", e.timeout)
	if err != nil {
		return fmt.Errorf("clearing codes: %w", err)
	}

	if strings.Contains(line, "44") || strings.Contains(strings.ToUpper(line), "OK") {
		log.Info("Trouble codes cleared")
		return nil
	}
	return fmt.Errorf("clearing codes: unexpected response %q", line)
}

func (e *ELM327) Info() models.ConnectionInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := "disconnected"
	if e.isConnected {
		status = "connected"
	}
	name := protocolNames[e.protocol]
	if name == "" {
		name = "Unknown"
	}
	return models.ConnectionInfo{
		Port:           e.portName,
		Protocol:       name,
		Status:         status,
		BatteryVoltage: e.voltage,
	}
}

func (e *ELM327) open(ctx context.Context) error {
	cfg := &serial.Config{
		Name:        e.portName,
		Baud:        e.baud,
		ReadTimeout: 200 * time.Millisecond,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}

	var p *serial.Port
	var err error
	maxRetries := 3

	for i := 0; i < maxRetries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p, err = serial.OpenPort(cfg)
		if err == nil {
			break
		}
		log.Warn("Failed to open port, retrying...", zap.Error(err), zap.Int("attempt", i+1))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return fmt.Errorf("failed to open port after %d attempts: %w", maxRetries, err)
	}

	e.port = p
	e.reader = bufio.NewReader(p)
	log.Info("Port opened", zap.String("port", e.portName), zap.Int("baud", e.baud))
	return nil
}

func (e *ELM327) initDevice() error {
	// Reset and wait for the device to settle
	if err := e.writeCommand(CommandReset); err != nil {
		return err
	}
	time.Sleep(1500 * time.Millisecond)

	resp, err := e.readResponse(e.timeout)
	if err != nil && resp == "" {
		return fmt.Errorf("no response to reset: %w", err)
	}
	if !strings.Contains(resp, "ELM") {
		log.Warn("Reset response did not identify an ELM327", zap.String("response", resp))
	}

	commands := []string{
		CommandEchoOff,
		CommandLineFeedsOff,
		CommandHeadersOff,
		CommandSpacesOff,
		CommandReadVoltage,
		CommandSetProtocolAuto,
	}

	for _, cmd := range commands {
		resp, err := e.exchange(cmd, e.timeout)
		log.Debug("Init command", zap.String("command", cmd), zap.String("response", resp))

		if cmd == CommandReadVoltage && err == nil && resp != "" {
			if v, err := parseVoltage(resp); err == nil {
				if v < 6.0 {
					return fmt.Errorf("battery voltage too low: %.1fV", v)
				}
				e.voltage = v
				log.Info("Battery voltage", zap.Float64("volts", v))
			}
			continue
		}

		// ATRV may not be supported everywhere; everything else must answer
		if resp == "" && cmd != CommandReadVoltage {
			return fmt.Errorf("command %s got no response", cmd)
		}
		time.Sleep(DefaultDelay)
	}

	return nil
}

// autoDetectProtocol lets the adapter negotiate (ATSP0), forces the detection
// with a 0100 request, then asks which protocol it landed on.
func (e *ELM327) autoDetectProtocol() error {
	resp, err := e.exchange("0100", e.timeout)
	if err != nil {
		return fmt.Errorf("probe request failed: %w", err)
	}
	upper := strings.ToUpper(resp)
	if strings.Contains(upper, "NO DATA") || strings.Contains(upper, "ERROR") ||
		strings.Contains(upper, "UNABLE TO CONNECT") {
		return fmt.Errorf("vehicle did not answer probe: %s", resp)
	}

	resp, err = e.exchange(CommandProtocolNum, e.timeout)
	if err != nil || resp == "" {
		return fmt.Errorf("no response from protocol query")
	}

	// Response is prefixed with "A" when the protocol was auto-negotiated
	num := strings.TrimPrefix(strings.TrimSpace(resp), "A")
	if _, ok := protocolNames[num]; !ok {
		return fmt.Errorf("unknown protocol number %q", num)
	}
	e.protocol = num
	log.Info("Protocol detected", zap.String("protocol", protocolNames[num]))
	return nil
}

// tryProtocol forces one protocol (ATTP) and tests it with a 0100 request.
func (e *ELM327) tryProtocol(protocol string) error {
	if _, err := e.exchange("ATTP"+protocol, e.timeout); err != nil {
		return fmt.Errorf("failed to set protocol %s: %w", protocol, err)
	}

	resp, err := e.exchange("0100", e.timeout)
	if err != nil || resp == "" {
		return fmt.Errorf("no response with protocol %s", protocol)
	}
	if strings.Contains(strings.ToUpper(resp), "UNABLE TO CONNECT") {
		return fmt.Errorf("unable to connect with protocol %s", protocol)
	}
	if !strings.Contains(resp, "41") {
		return fmt.Errorf("invalid probe answer with protocol %s: %q", protocol, resp)
	}
	return nil
}

// exchange writes one command and reads its prompt-terminated answer.
func (e *ELM327) exchange(cmd string, timeout time.Duration) (string, error) {
	if err := e.writeCommand(cmd); err != nil {
		return "", err
	}
	time.Sleep(DefaultDelay)
	return e.readResponse(timeout)
}

func (e *ELM327) writeCommand(cmd string) error {
	if e.port == nil {
		return fmt.Errorf("cannot send command: port is nil")
	}

	// Drain anything left over from a previous exchange
	for e.reader.Buffered() > 0 {
		_, _ = e.reader.ReadByte()
	}

	full := cmd + CR
	n, err := e.port.Write([]byte(full))
	if err != nil {
		return fmt.Errorf("writing command %q: %w", cmd, err)
	}
	if n != len(full) {
		return fmt.Errorf("incomplete write for command %q: %d/%d bytes", cmd, n, len(full))
	}
	log.Debug("Command sent", zap.String("command", cmd))
	return nil
}

// readResponse collects bytes until the ELM327 prompt '>' is seen or the
// timeout elapses. The prompt is excluded from the result. The serial port's
// own ReadTimeout keeps individual reads from blocking past the deadline.
func (e *ELM327) readResponse(timeout time.Duration) (string, error) {
	var sb strings.Builder
	deadline := time.Now().Add(timeout)
	buffer := make([]byte, 1)

	for time.Now().Before(deadline) {
		n, err := e.reader.Read(buffer)
		if err != nil {
			// Timeouts surface as EOF from the port; keep waiting until
			// the deadline
			if err == io.EOF {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			return strings.TrimSpace(sb.String()), err
		}
		if n == 0 {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		b := buffer[0]
		if b == '>' {
			return strings.TrimSpace(sb.String()), nil
		}
		// Filter control characters except CR/LF
		if b >= 32 && b <= 126 || b == '\r' || b == '\n' {
			sb.WriteByte(b)
		}
	}

	if sb.Len() > 0 {
		return strings.TrimSpace(sb.String()), nil
	}
	return "", fmt.Errorf("read timeout after %v", timeout)
}

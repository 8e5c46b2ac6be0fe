// Package sim is an in-process stand-in for an obdsim-backed adapter. It
// serves the same Provider interface as the serial implementation with
// random-walk sensor values and injectable trouble codes, which makes the
// rest of the pipeline testable without a vehicle.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"obdiag/internal/models"
	"obdiag/internal/obd"
)

type channel struct {
	value float64
	step  float64
	min   float64
	max   float64
}

// Simulator implements obd.Provider with simulated values.
type Simulator struct {
	mu      sync.RWMutex
	running bool

	channels map[string]*channel
	stored   []models.DTCEntry
	pending  []models.DTCEntry

	updateTicker *time.Ticker
	stopCh       chan struct{}
}

// New creates a simulator idling at operating temperature.
func New() *Simulator {
	return &Simulator{
		channels: map[string]*channel{
			"SPEED":                    {value: 0, step: 5, min: 0, max: 180},
			"RPM":                      {value: 800, step: 100, min: 600, max: 4000},
			"ENGINE_LOAD":              {value: 20, step: 5, min: 5, max: 95},
			"COOLANT_TEMP":             {value: 75, step: 1, min: 60, max: 110},
			"THROTTLE_POS":             {value: 12, step: 4, min: 0, max: 100},
			"INTAKE_TEMP":              {value: 25, step: 1, min: 10, max: 50},
			"FUEL_LEVEL":               {value: 65, step: 0.2, min: 0, max: 100},
			"FUEL_PRESSURE":            {value: 350, step: 6, min: 200, max: 450},
			"OIL_TEMP":                 {value: 85, step: 1, min: 60, max: 120},
			"DISTANCE_SINCE_CLEAR":     {value: 1200, step: 0.5, min: 0, max: 65535},
			"HYBRID_BATTERY_REMAINING": {value: 80, step: 0.3, min: 20, max: 100},
			"CONTROL_MODULE_VOLTAGE":   {value: 201.5, step: 1, min: 180, max: 220},
		},
	}
}

func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.updateTicker = time.NewTicker(1 * time.Second)
	s.stopCh = make(chan struct{})
	s.running = true

	ticker := s.updateTicker
	stop := s.stopCh
	go func() {
		for {
			select {
			case <-ticker.C:
				s.step()
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()
	return nil
}

func (s *Simulator) step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.channels {
		ch.value += (rand.Float64()*2 - 1) * ch.step
		if ch.value < ch.min {
			ch.value = ch.min
		}
		if ch.value > ch.max {
			ch.value = ch.max
		}
	}
	// Occasionally a simulated fault appears, and rarely one heals
	if rand.Float32() < 0.05 {
		s.stored = append(s.stored, models.DTCEntry{
			Code:        fmt.Sprintf("P%04d", rand.Intn(10000)),
			Description: "Random simulated fault",
		})
	}
	if len(s.stored) > 0 && rand.Float32() < 0.02 {
		s.stored = s.stored[1:]
	}
}

func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.updateTicker.Stop()
	close(s.stopCh)
	s.running = false
}

func (s *Simulator) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Simulator) Query(p obd.PID) (*models.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return nil, fmt.Errorf("not connected")
	}
	ch, ok := s.channels[p.Name]
	if !ok {
		return nil, fmt.Errorf("sensor %s not simulated", p.Name)
	}
	return &models.Reading{Sensor: p.Name, Value: ch.value, Unit: p.Unit}, nil
}

func (s *Simulator) ReadDTCs() ([]models.DTCEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DTCEntry, len(s.stored))
	copy(out, s.stored)
	return out, nil
}

func (s *Simulator) ReadPendingDTCs() ([]models.DTCEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DTCEntry, len(s.pending))
	copy(out, s.pending)
	return out, nil
}

func (s *Simulator) ClearDTCs() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = nil
	s.pending = nil
	return nil
}

func (s *Simulator) Info() models.ConnectionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := "disconnected"
	if s.running {
		status = "connected"
	}
	return models.ConnectionInfo{
		Port:           "sim",
		Protocol:       "ISO 15765-4 CAN (11 bit ID, 500 kbaud)",
		Status:         status,
		BatteryVoltage: 12.6,
	}
}

// InjectDTC plants a stored trouble code, for tests and demos.
func (s *Simulator) InjectDTC(code, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = append(s.stored, models.DTCEntry{Code: code, Description: description})
}

// InjectPendingDTC plants a pending trouble code.
func (s *Simulator) InjectPendingDTC(code, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, models.DTCEntry{Code: code, Description: description})
}

// Set pins a sensor channel to a fixed value.
func (s *Simulator) Set(sensor string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.channels[sensor]; ok {
		ch.value = value
		ch.step = 0
	}
}

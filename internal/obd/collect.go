package obd

import (
	"fmt"
	"time"

	"obdiag/internal/models"
	"obdiag/pkg/log"

	"go.uber.org/zap"
)

// CollectOptions tunes a snapshot sweep.
type CollectOptions struct {
	// Sensors to query, by registry name. Unknown names are skipped with a
	// warning.
	Sensors []string

	// MaxRetries is the number of attempts per sensor query.
	MaxRetries int

	// Graceful keeps the sweep going when the DTC query fails, recording an
	// empty code list instead of aborting.
	Graceful bool
}

// Collect takes one complete snapshot from the provider: every configured
// sensor, stored and pending trouble codes, and the connection info. A sensor
// that does not answer after MaxRetries ends up as a nil reading; the sweep
// itself only fails when the provider is disconnected or the DTC query fails
// without graceful degradation.
func Collect(p Provider, opts CollectOptions) (*models.Snapshot, error) {
	if !p.IsConnected() {
		return nil, fmt.Errorf("not connected")
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}

	snap := &models.Snapshot{
		Timestamp: time.Now(),
		Readings:  make(map[string]*models.Reading, len(opts.Sensors)),
	}

	for _, name := range opts.Sensors {
		pid, ok := Lookup(name)
		if !ok {
			log.Warn("Unknown sensor, skipping", zap.String("sensor", name))
			continue
		}
		snap.Readings[name] = querySensor(p, pid, opts.MaxRetries)
	}

	available := snap.Available()
	log.Info("Sensor sweep complete",
		zap.Int("collected", available),
		zap.Int("requested", len(snap.Readings)))

	dtcs, err := p.ReadDTCs()
	if err != nil {
		if !opts.Graceful {
			return nil, fmt.Errorf("reading trouble codes: %w", err)
		}
		log.Warn("DTC query failed, continuing without codes", zap.Error(err))
	}
	snap.DTCs = dtcs

	pending, err := p.ReadPendingDTCs()
	if err != nil {
		log.Warn("Pending DTC query failed", zap.Error(err))
	}
	snap.Pending = pending

	snap.Connection = p.Info()
	return snap, nil
}

func querySensor(p Provider, pid PID, retries int) *models.Reading {
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		r, err := p.Query(pid)
		if err == nil {
			log.Debug("Sensor read",
				zap.String("sensor", pid.Name),
				zap.Float64("value", r.Value),
				zap.String("unit", r.Unit))
			return r
		}
		lastErr = err
	}
	log.Debug("Sensor unavailable", zap.String("sensor", pid.Name), zap.Error(lastErr))
	return nil
}

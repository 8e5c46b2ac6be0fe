package obd

import (
	"context"

	"obdiag/internal/models"
)

// Provider abstracts access to an OBD-II device.
// It handles connecting, querying PIDs, and reading trouble codes.
type Provider interface {
	Start(ctx context.Context) error
	Stop()
	IsConnected() bool

	// Query requests a single sensor value. A nil error with a decoded
	// Reading means the vehicle answered the PID.
	Query(p PID) (*models.Reading, error)

	// ReadDTCs returns stored trouble codes (Mode 03).
	ReadDTCs() ([]models.DTCEntry, error)

	// ReadPendingDTCs returns pending trouble codes (Mode 07).
	ReadPendingDTCs() ([]models.DTCEntry, error)

	// ClearDTCs clears stored codes and the MIL (Mode 04).
	ClearDTCs() error

	Info() models.ConnectionInfo
}

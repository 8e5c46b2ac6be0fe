package monitor

import (
	"context"
	"fmt"

	"obdiag/internal/config"
	"obdiag/internal/displayer"
	"obdiag/internal/obd"
	"obdiag/internal/obd/elm"
	"obdiag/internal/obd/sim"
	"obdiag/pkg/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Run starts the live dashboard.
func Run(cmd *cobra.Command, args []string) {
	settings := config.Load()

	var provider obd.Provider
	if settings.Sim {
		provider = sim.New()
	} else {
		provider = elm.New(elm.Config{Port: settings.Port, Baud: settings.Baud, Timeout: settings.Timeout})
	}

	if err := provider.Start(context.Background()); err != nil {
		log.Fatal("failed to start OBD provider", zap.Error(err))
	}

	d := displayer.New(provider, obd.CollectOptions{
		Sensors:    settings.Sensors,
		MaxRetries: settings.MaxRetries,
		Graceful:   true,
	})
	if err := d.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

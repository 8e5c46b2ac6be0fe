package clear

import (
	"context"
	"fmt"

	"obdiag/internal/config"
	"obdiag/internal/obd"
	"obdiag/internal/obd/elm"
	"obdiag/internal/obd/sim"
	"obdiag/pkg/log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Run clears stored trouble codes (Mode 04). Requires --yes: the vehicle
// also loses freeze-frame data and readiness monitors reset.
func Run(cmd *cobra.Command, args []string) {
	if !viper.GetBool("yes") {
		fmt.Println("Clearing codes resets the check engine light, freeze-frame data and readiness monitors.")
		fmt.Println("Re-run with --yes to confirm.")
		return
	}

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
	defer provider.Stop()

	if err := provider.ClearDTCs(); err != nil {
		log.Fatal("failed to clear trouble codes", zap.Error(err))
	}
	fmt.Println("Trouble codes cleared.")
}

package scan

import (
	"context"
	"fmt"

	"obdiag/internal/config"
	"obdiag/internal/dtc"
	"obdiag/internal/export"
	"obdiag/internal/obd"
	"obdiag/internal/obd/elm"
	"obdiag/internal/obd/sim"
	"obdiag/internal/publish"
	"obdiag/internal/signal"
	"obdiag/pkg/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Run performs one complete diagnostic sweep: connect, collect, classify,
// process, export, optionally publish, then print a console summary.
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
	defer provider.Stop()

	snap, err := obd.Collect(provider, obd.CollectOptions{
		Sensors:    settings.Sensors,
		MaxRetries: settings.MaxRetries,
		Graceful:   settings.GracefulDegradation,
	})
	if err != nil {
		log.Fatal("diagnostic sweep failed", zap.Error(err))
	}

	codes := dtc.ParseAll(snap.DTCs)
	pending := dtc.ParseAll(snap.Pending)
	processed := signal.New().Process(snap.Readings)

	report := export.Build(snap, codes, pending, processed)
	if err := export.Validate(report); err != nil {
		log.Fatal("report validation failed", zap.Error(err))
	}

	exporter := export.New(settings.ExportDir, settings.Pretty)
	path, err := exporter.Write(report, "")
	if err != nil {
		log.Fatal("failed to write report", zap.Error(err))
	}
	log.Info("Report written", zap.String("path", path))

	if settings.Broker != "" {
		publishReport(exporter, report, settings)
	}

	printSummary(report, path)
}

func publishReport(exporter *export.Exporter, report *export.Report, settings config.Settings) {
	pub, err := publish.New(publish.Options{
		BrokerURL: settings.Broker,
		Topic:     settings.Topic,
	})
	if err != nil {
		log.Error("failed to connect to MQTT broker", zap.Error(err))
		return
	}
	defer pub.Close()

	payload, err := exporter.Marshal(report)
	if err != nil {
		log.Error("failed to encode report for publishing", zap.Error(err))
		return
	}
	if err := pub.Publish(payload); err != nil {
		log.Error("failed to publish report", zap.Error(err))
		return
	}
	log.Info("Report published", zap.String("topic", settings.Topic))
}

func printSummary(r *export.Report, path string) {
	fmt.Printf("Health: %s\n", r.Analysis.HealthStatus)
	for _, w := range r.Analysis.Warnings {
		fmt.Printf("  ! %s\n", w)
	}

	fmt.Printf("\nTrouble codes (%d):\n", r.DTCs.Count)
	if r.DTCs.Count == 0 {
		fmt.Println("  none")
	}
	for _, c := range r.DTCs.Codes {
		fmt.Printf("  - %s [%s] %s\n", c.Code, c.Severity, c.Description)
	}
	for _, c := range r.DTCs.Pending {
		fmt.Printf("  - %s [pending] %s\n", c.Code, c.Description)
	}

	fmt.Printf("\n%s\n", r.Analysis.Recommendation)
	fmt.Printf("\nReport: %s\n", path)
}

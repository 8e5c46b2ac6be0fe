package cmd

import (
	"fmt"
	"os"

	"obdiag/internal/cmd/clear"
	"obdiag/internal/cmd/monitor"
	"obdiag/internal/cmd/scan"
	"obdiag/internal/config"
	"obdiag/pkg/log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "obdiag",
	Short: "Vehicle diagnostics over OBD-II",
	Long:  "obdiag connects to a vehicle through an ELM327 adapter, collects trouble codes and sensor data, and exports a diagnostic report.",
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one diagnostic sweep and export the report",
	Run:   scan.Run,
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard of sensor values and trouble codes",
	Run:   monitor.Run,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear stored trouble codes and the check engine light",
	Run:   clear.Run,
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("sim", false, "Use the built-in simulator instead of a serial adapter")
	rootCmd.PersistentFlags().Bool("hybrid", true, "Sweep hybrid-specific sensors")
	rootCmd.PersistentFlags().String("port", config.DefaultPort(), "Serial port of the OBD-II adapter")
	rootCmd.PersistentFlags().Int("baud", 38400, "Baud rate for the serial connection")
	rootCmd.PersistentFlags().String("output-dir", "output", "Directory for exported reports")
	rootCmd.PersistentFlags().Bool("pretty", true, "Pretty-print exported JSON")
	rootCmd.PersistentFlags().String("broker", "", "MQTT broker URL to publish reports to (disabled when empty)")
	rootCmd.PersistentFlags().String("topic", "vehicle/diagnostics", "MQTT topic for published reports")

	clearCmd.Flags().Bool("yes", false, "Confirm clearing the codes")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("sim", rootCmd.PersistentFlags().Lookup("sim"))
	viper.BindPFlag("hybrid", rootCmd.PersistentFlags().Lookup("hybrid"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("baud", rootCmd.PersistentFlags().Lookup("baud"))
	viper.BindPFlag("output-dir", rootCmd.PersistentFlags().Lookup("output-dir"))
	viper.BindPFlag("pretty", rootCmd.PersistentFlags().Lookup("pretty"))
	viper.BindPFlag("broker", rootCmd.PersistentFlags().Lookup("broker"))
	viper.BindPFlag("topic", rootCmd.PersistentFlags().Lookup("topic"))
	viper.BindPFlag("yes", clearCmd.Flags().Lookup("yes"))

	config.SetDefaults()

	rootCmd.AddCommand(scanCmd, monitorCmd, clearCmd)
}

func initConfig() {
	viper.SetConfigName("obdiag")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/obdiag")
	// A missing config file is fine, flags and defaults cover everything
	_ = viper.ReadInConfig()
}

func initLogger() {
	log.InitLogger(viper.GetBool("debug"))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

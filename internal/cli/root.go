// Package cli enthält die Kommandos des greeter-Programms.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "greeter",
	Short: "Greets every new face in front of the camera",
	Long: `Face Greeter watches a camera, follows the faces it detects across frames and
plays a greeting clip for each new person. Encounters are counted per day,
identification photos are saved and events can be published via MQTT and
a small status API.

Without a subcommand greeter behaves like "greeter run".`,
	SilenceUsage: true,
	RunE:         runGreeter,
}

// Execute führt das Root-Kommando aus
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	addRunFlags(rootCmd)
}

package cli

import (
	"fmt"

	"face-greeter-go/internal/integrations/opencv"

	"github.com/spf13/cobra"
)

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "List available cameras",
	Long:  "Probe the camera indices and list the video devices found under /dev.",
	RunE: func(cmd *cobra.Command, args []string) error {
		maxIndex := mustGetInt(cmd, "max-index")

		fmt.Println("Checking available cameras...")
		for _, cam := range opencv.ListCameras(maxIndex) {
			fmt.Printf("Camera index %d: %s\n", cam.Index, cam.Status)
		}

		paths := opencv.DevicePaths()
		if len(paths) == 0 {
			fmt.Println("\nNo video devices found under /dev")
			return nil
		}
		fmt.Println("\nAvailable video devices:")
		for _, path := range paths {
			fmt.Printf("  %s\n", path)
		}
		return nil
	},
}

func init() {
	camerasCmd.Flags().Int("max-index", 10, "Number of camera indices to probe")
	rootCmd.AddCommand(camerasCmd)
}

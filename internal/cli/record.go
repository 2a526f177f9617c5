package cli

import (
	"fmt"

	"face-greeter-go/internal/integrations/audio"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a custom greeting",
	Long: `Record a greeting with the microphone and store it as custom_<name>.wav in
the audio directory. Use it with "greeter run --custom-voice <name>".`,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().String("name", "", "Name for the recording")
	recordCmd.Flags().Int("duration", 3, "Recording duration in seconds")
	recordCmd.Flags().Bool("list", false, "List existing recordings")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, release, err := loadConfig()
	if err != nil {
		return err
	}
	defer release()

	lib, err := audio.NewLibrary(cfg.Audio)
	if err != nil {
		return err
	}
	if mustGetBool(cmd, "list") {
		return printRecordings(lib)
	}

	name := mustGetString(cmd, "name")
	if name == "" {
		return fmt.Errorf("--name is required unless --list is given")
	}
	duration := mustGetInt(cmd, "duration")

	fmt.Printf("Recording %d seconds of audio...\n", duration)
	fmt.Println("Speak now...")
	path, err := audio.Record(cmd.Context(), lib, cfg.Audio.RecordCommand, name, duration)
	if err != nil {
		return err
	}
	fmt.Println("Finished recording!")
	fmt.Printf("Audio saved to %s\n", path)
	fmt.Printf("\nUse it with: greeter run --custom-voice %s\n", audio.SanitizeName(name))
	return nil
}

// printRecordings listet die eigenen Aufnahmen
func printRecordings(lib *audio.Library) error {
	names, err := lib.CustomRecordings()
	if err != nil {
		return fmt.Errorf("failed to list recordings: %w", err)
	}
	if len(names) == 0 {
		fmt.Println("No custom voice recordings found.")
		return nil
	}
	fmt.Println("\nAvailable custom voice recordings:")
	for i, name := range names {
		fmt.Printf("%d. %s\n", i+1, name)
	}
	return nil
}

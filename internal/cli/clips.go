package cli

import (
	"fmt"
	"os"

	"face-greeter-go/internal/integrations/audio"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var clipsCmd = &cobra.Command{
	Use:   "clips",
	Short: "Manage greeting clips",
}

var clipsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Synthesize the greeting clips",
	Long: `Create the default greeting, one greeting per configured language and the
clips for sequential greetings with the configured speech synthesizer
(espeak by default). Existing clips are kept unless --force is given.`,
	RunE: runClipsGenerate,
}

var clipsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show which greeting clips are available",
	RunE:  runClipsList,
}

func init() {
	clipsGenerateCmd.Flags().Bool("force", false, "Regenerate clips that already exist")
	clipsGenerateCmd.Flags().Int("encounters", 5, "Number of sequential encounter clips to create")
	clipsGenerateCmd.Flags().String("lang", "", "Language of the default and encounter clips (default: server.language)")

	clipsCmd.AddCommand(clipsGenerateCmd)
	clipsCmd.AddCommand(clipsListCmd)
	rootCmd.AddCommand(clipsCmd)
}

// generateResult zählt die Ergebnisse eines Generierungslaufs
type generateResult struct {
	Created int
	Skipped int
	Failed  int
}

func runClipsGenerate(cmd *cobra.Command, args []string) error {
	cfg, release, err := loadConfig()
	if err != nil {
		return err
	}
	defer release()

	lang := mustGetString(cmd, "lang")
	if lang == "" {
		lang = cfg.Server.Language
	}
	if err := os.MkdirAll(cfg.Audio.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create audio directory: %w", err)
	}

	lib, err := audio.NewLibrary(cfg.Audio)
	if err != nil {
		return err
	}
	phrases, err := audio.NewPhrases(lang)
	if err != nil {
		return err
	}

	generator := audio.NewGenerator(lib, phrases, cfg.Audio.SynthCommand, lang)
	jobs := generator.Plan(mustGetInt(cmd, "encounters"))
	force := mustGetBool(cmd, "force")

	bar := progressbar.NewOptions(len(jobs),
		progressbar.OptionSetDescription("Generating clips"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var result generateResult
	var failures []string
	for _, job := range jobs {
		created, err := generator.Generate(cmd.Context(), job, force)
		switch {
		case err != nil:
			result.Failed++
			failures = append(failures, job.Path)
		case created:
			result.Created++
		default:
			result.Skipped++
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	fmt.Printf("\nCreated: %d, skipped: %d, failed: %d\n", result.Created, result.Skipped, result.Failed)
	for _, path := range failures {
		fmt.Printf("  failed: %s\n", path)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d clips could not be generated", result.Failed)
	}
	return nil
}

func runClipsList(cmd *cobra.Command, args []string) error {
	cfg, release, err := loadConfig()
	if err != nil {
		return err
	}
	defer release()

	lib, err := audio.NewLibrary(cfg.Audio)
	if err != nil {
		return err
	}

	fmt.Printf("Audio directory: %s\n", lib.Dir())
	if _, err := lib.Default(); err != nil {
		fmt.Printf("Default clip:    missing (%s)\n", lib.DefaultPath())
	} else {
		fmt.Printf("Default clip:    %s\n", lib.DefaultPath())
	}

	available := make(map[string]bool)
	for _, lang := range lib.Languages() {
		available[lang] = true
	}
	fmt.Println("Languages:")
	for _, lang := range lib.ConfiguredLanguages() {
		status := "missing"
		if available[lang] {
			status = "ok"
		}
		fmt.Printf("  %-4s %s\n", lang, status)
	}

	return printRecordings(lib)
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"face-greeter-go/config"
	"face-greeter-go/internal/core/ledger"
	"face-greeter-go/internal/db"
	"face-greeter-go/internal/db/repository"
	"face-greeter-go/internal/util/timezone"

	"github.com/spf13/cobra"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the encounter ledger",
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show [day]",
	Short: "Show the greetings counted on a day (YYYYMMDD, default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLedgerShow,
}

var ledgerDaysCmd = &cobra.Command{
	Use:   "days",
	Short: "List the days stored in the ledger",
	RunE:  runLedgerDays,
}

func init() {
	ledgerShowCmd.Flags().Bool("json", false, "Output as JSON")
	ledgerCmd.AddCommand(ledgerShowCmd)
	ledgerCmd.AddCommand(ledgerDaysCmd)
	rootCmd.AddCommand(ledgerCmd)
}

// openStoreForCLI öffnet das konfigurierte Ledger-Backend ohne den restlichen Lauf
func openStoreForCLI(cfg *config.Config) (ledgerStore, func(), error) {
	if cfg.Ledger.Backend == config.LedgerBackendJSON {
		return ledger.NewJSONStore(cfg.Ledger.Dir), func() {}, nil
	}
	conn, err := db.Open(cfg.DB.File)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return repository.NewSQLiteRepository(conn), release, nil
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	cfg, release, err := loadConfig()
	if err != nil {
		return err
	}
	defer release()

	day := timezone.DayStamp(timezone.Now())
	if len(args) == 1 {
		if _, err := timezone.ParseDay(args[0]); err != nil {
			return fmt.Errorf("invalid day %q, expected YYYYMMDD", args[0])
		}
		day = args[0]
	}

	store, closeStore, err := openStoreForCLI(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	snapshot, err := ledger.LoadSnapshot(store, day)
	if err != nil {
		return fmt.Errorf("failed to load ledger for %s: %w", day, err)
	}
	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	}
	printSnapshot(os.Stdout, snapshot)
	return nil
}

// printSnapshot gibt einen Ledger-Stand als Tabelle aus
func printSnapshot(w io.Writer, snapshot ledger.Snapshot) {
	fmt.Fprintf(w, "Day %s: %d greetings\n", snapshot.Day, snapshot.TotalCount)
	for _, key := range snapshot.Keys() {
		fmt.Fprintf(w, "  %-48s %d\n", key, snapshot.PerKeyCounts[key])
	}
}

func runLedgerDays(cmd *cobra.Command, args []string) error {
	cfg, release, err := loadConfig()
	if err != nil {
		return err
	}
	defer release()

	store, closeStore, err := openStoreForCLI(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	days, err := store.Days()
	if err != nil {
		return fmt.Errorf("failed to list ledger days: %w", err)
	}
	if len(days) == 0 {
		fmt.Println("The ledger is empty.")
		return nil
	}
	for _, day := range days {
		fmt.Println(day)
	}
	return nil
}

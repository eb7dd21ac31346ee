package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/ai"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the attendance ledger",
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show [DD-MM-YYYY]",
	Short: "Show attendance for a day",
	Long: `Show the attendance entries for a day in arrival order.
Defaults to today when no date is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLedgerShow,
}

var ledgerReportCmd = &cobra.Command{
	Use:   "report [DD-MM-YYYY]",
	Short: "Summarize a day's attendance with an AI model",
	Long: `Generate a short natural language report of a day's attendance
using the selected AI provider. Defaults to today when no date is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLedgerReport,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerShowCmd)
	ledgerCmd.AddCommand(ledgerReportCmd)

	ledgerReportCmd.Flags().String("provider", "openai", "AI provider (openai, gemini, ollama, llamacpp)")
}

// ledgerDayArg parses the optional date argument, defaulting to today.
func ledgerDayArg(args []string) (time.Time, error) {
	if len(args) == 0 {
		return time.Now(), nil
	}
	day, err := ledger.ParseDay(args[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected DD-MM-YYYY", args[0])
	}
	return day, nil
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	day, err := ledgerDayArg(args)
	if err != nil {
		return err
	}

	store, closeStore, err := newLedgerStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := store.Entries(cmd.Context(), day)
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}

	if len(entries) == 0 {
		fmt.Printf("No attendance recorded for %s\n", ledger.DayString(day))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFIRST SEEN")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Timestamp)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d present on %s\n", len(entries), ledger.DayString(day))
	return nil
}

func runLedgerReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	day, err := ledgerDayArg(args)
	if err != nil {
		return err
	}

	store, closeStore, err := newLedgerStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := store.Entries(ctx, day)
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}

	provider, err := ai.NewProvider(ctx, mustGetString(cmd, "provider"), cfg)
	if err != nil {
		return err
	}

	summary, err := provider.SummarizeAttendance(ctx, ledger.DayString(day), entries)
	if err != nil {
		return fmt.Errorf("generating report: %w", err)
	}

	fmt.Println(summary)

	usage := provider.GetUsage()
	if usage.InputTokens > 0 || usage.OutputTokens > 0 {
		fmt.Printf("\nTokens: %d in, %d out (%s)\n", usage.InputTokens, usage.OutputTokens, provider.Name())
	}
	return nil
}

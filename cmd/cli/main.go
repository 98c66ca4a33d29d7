package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/gorecon/internal/adapter/ingest"
	"github.com/iho/gorecon/internal/adapter/report"
	"github.com/iho/gorecon/internal/adapter/repository/memory"
	"github.com/iho/gorecon/internal/matching"
	"github.com/iho/gorecon/internal/usecase"
)

var (
	ledgerPath string
	bankPath   string
	format     string
	tolerance  string
	dateRange  int
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gorecon",
		Short: "Transaction reconciliation tool",
		Long:  `Matches ledger transactions against bank statement lines and reports unmatched exceptions.`,
	}

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile a ledger CSV against a bank statement CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd)
		},
	}

	reconcileCmd.Flags().StringVar(&ledgerPath, "ledger", "", "Path to the ledger CSV file")
	reconcileCmd.Flags().StringVar(&bankPath, "bank", "", "Path to the bank statement CSV file")
	reconcileCmd.Flags().StringVar(&format, "format", "text", "Report format: text, json or csv")
	reconcileCmd.Flags().StringVar(&tolerance, "tolerance", "", "Amount tolerance override, e.g. 0.05")
	reconcileCmd.Flags().IntVar(&dateRange, "date-range", 0, "Date range override in days")
	reconcileCmd.Flags().BoolVar(&verbose, "verbose", false, "Log pipeline progress to stderr")
	reconcileCmd.MarkFlagRequired("ledger")
	reconcileCmd.MarkFlagRequired("bank")

	rootCmd.AddCommand(reconcileCmd)

	return rootCmd
}

func runReconcile(cmd *cobra.Command) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	logger := zerolog.Nop()
	if verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	ledger, ledgerRejected, err := ingest.NewReader("ledger").LoadFile(ledgerPath)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	bank, bankRejected, err := ingest.NewReader("bank").LoadFile(bankPath)
	if err != nil {
		return fmt.Errorf("load bank: %w", err)
	}

	uc := usecase.NewReconcileUseCase(
		memory.NewSessionRepository(0),
		memory.NewULIDGenerator(),
		logger,
		nil,
	)

	session, err := uc.Run(cmd.Context(), usecase.RunInput{
		Ledger:      ledger,
		Bank:        bank,
		Config:      cfg,
		PreRejected: append(ledgerRejected, bankRejected...),
	})
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	return report.Render(cmd.OutOrStdout(), session, report.Format(format))
}

func buildConfig() (matching.Config, error) {
	cfg := matching.Default()

	if tolerance != "" {
		tol, err := decimal.NewFromString(tolerance)
		if err != nil {
			return cfg, fmt.Errorf("invalid --tolerance: %w", err)
		}
		cfg.AmountTolerance = tol
	}

	if dateRange > 0 {
		cfg.DateRangeDays = dateRange
	}

	return cfg, cfg.Validate()
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scmdash/loader"
)

const reportTimeout = 2 * time.Minute

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <table> <file>",
		Short: "Load a CSV or XLSX sheet export into the local mirror",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := loader.ImportFile(a.db, args[0], args[1], a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows imported\n", args[0], n)
			return nil
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Copy every mirror table from the Apps Script backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			counts, err := loader.Sync(cmd.Context(), a.db, a.sheets, a.cfg.MirrorTables, a.logger)
			for _, table := range a.cfg.MirrorTables {
				if n, ok := counts[table]; ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows\n", table, n)
				}
			}
			return err
		},
	}
}

func newReportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the dashboard report as PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), reportTimeout)
			defer cancel()
			pdf, err := a.dashboardServer().ReportPDF(ctx)
			if err != nil {
				return fmt.Errorf("render report: %w", err)
			}
			if out == "" {
				out = fmt.Sprintf("reporte-%s.pdf", time.Now().Format("20060102"))
			}
			if err := os.WriteFile(out, pdf, 0644); err != nil {
				return err
			}
			a.logger.Info("report written", zap.String("path", out), zap.Int("bytes", len(pdf)))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output PDF path (default reporte-YYYYMMDD.pdf)")
	return cmd
}

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mfinch/pocketwatch/internal/budget"
	"github.com/mfinch/pocketwatch/internal/config"
	"github.com/mfinch/pocketwatch/internal/model"
	"github.com/mfinch/pocketwatch/internal/sheets"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a month's dashboard to Google Sheets",
		RunE:  runExport,
	}

	cmd.Flags().Int("year", 0, "reporting year (default: current month)")
	cmd.Flags().Int("month", 0, "reporting month 1-12 (default: current month)")

	return cmd
}

func sheetsConfig() sheets.Config {
	return sheets.Config{
		ClientID:      viper.GetString("sheets.client_id"),
		ClientSecret:  viper.GetString("sheets.client_secret"),
		TokenFile:     config.ExpandPath(viper.GetString("sheets.token_file")),
		SpreadsheetID: viper.GetString("sheets.spreadsheet_id"),
	}
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	year, _ := cmd.Flags().GetInt("year")
	month, _ := cmd.Flags().GetInt("month")
	if (year == 0) != (month == 0) {
		return fmt.Errorf("year and month must be provided together")
	}

	var period *model.Period
	if year != 0 {
		if month < 1 || month > 12 {
			return fmt.Errorf("invalid month %d", month)
		}
		period = &model.Period{Year: year, Month: time.Month(month)}
	}

	store, principal, err := openStoreWithPrincipal(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	logger := slog.Default()
	ledger := budget.NewLedger(store, logger)
	aggregator := budget.NewAggregator(store, ledger,
		viper.GetFloat64("categorization.confidence_threshold"), logger)

	dashboard, err := aggregator.BuildDashboard(ctx, principal, period)
	if err != nil {
		return fmt.Errorf("failed to build dashboard: %w", err)
	}

	exporter, err := sheets.NewExporter(ctx, sheetsConfig(), logger)
	if err != nil {
		return err
	}
	if err := exporter.Export(ctx, dashboard); err != nil {
		return err
	}

	fmt.Printf("Exported %s to spreadsheet %s\n", dashboard.Month, viper.GetString("sheets.spreadsheet_id"))
	return nil
}

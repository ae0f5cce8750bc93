package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mfinch/pocketwatch/internal/blob"
	"github.com/mfinch/pocketwatch/internal/budget"
	"github.com/mfinch/pocketwatch/internal/config"
	"github.com/mfinch/pocketwatch/internal/engine"
	"github.com/mfinch/pocketwatch/internal/llm"
	"github.com/mfinch/pocketwatch/internal/server"
	"github.com/mfinch/pocketwatch/internal/storage"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Start the receipt ingestion and budget API. Migrations are applied on
startup so a fresh database is usable immediately.`,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "listen address (overrides config)")
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := storage.NewSQLiteStorage(config.ExpandPath(viper.GetString("database.path")))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	uploadDir := config.ExpandPath(viper.GetString("storage.dir"))
	blobs, err := blob.NewLocalStore(uploadDir, "/uploads")
	if err != nil {
		return fmt.Errorf("failed to create blob store: %w", err)
	}

	client, err := llm.NewClient(llm.Config{
		Provider: viper.GetString("llm.provider"),
		APIKey:   viper.GetString("llm.api_key"),
		Model:    viper.GetString("llm.model"),
		Timeout:  viper.GetDuration("llm.timeout"),
	})
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	logger := slog.Default()
	categorizer := engine.NewCategorizer(client, logger)
	processor := engine.NewProcessor(client, categorizer, logger)
	ledger := budget.NewLedger(store, logger)

	threshold := viper.GetFloat64("categorization.confidence_threshold")
	aggregator := budget.NewAggregator(store, ledger, threshold, logger)

	srv := server.New(server.Config{
		ListenAddr:          viper.GetString("server.listen"),
		UploadDir:           uploadDir,
		MaxUploadBytes:      viper.GetInt64("server.max_upload_mb") << 20,
		ConfidenceThreshold: threshold,
	}, store, blobs, processor, ledger, aggregator, logger)

	return srv.Run()
}

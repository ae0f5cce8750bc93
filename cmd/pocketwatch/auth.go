package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfinch/pocketwatch/internal/sheets"
)

func authCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Google Sheets for report export",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := sheetsConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if _, err := sheets.Authenticate(cmd.Context(), cfg); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			fmt.Println("Authentication successful, token saved.")
			return nil
		},
	}
}

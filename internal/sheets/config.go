// Package sheets exports monthly spending reports to Google Sheets.
package sheets

import (
	"fmt"

	"github.com/mfinch/pocketwatch/internal/common"
)

// Config holds everything needed to talk to the Sheets API.
type Config struct {
	ClientID      string
	ClientSecret  string
	TokenFile     string
	SpreadsheetID string
}

// Validate checks that the required fields are set.
func (c Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("sheets client id: %w", common.ErrMissingConfig)
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("sheets client secret: %w", common.ErrMissingConfig)
	}
	if c.TokenFile == "" {
		return fmt.Errorf("sheets token file: %w", common.ErrMissingConfig)
	}
	if c.SpreadsheetID == "" {
		return fmt.Errorf("sheets spreadsheet id: %w", common.ErrMissingConfig)
	}
	return nil
}

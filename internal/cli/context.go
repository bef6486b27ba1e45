package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// contextWithTimeout derives a deadline-bound context from the command.
func contextWithTimeout(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, timeout)
}

// unknownToken builds the error for a token symbol missing from config.
func unknownToken(symbol string) error {
	return walleterr.WithSuggestion(
		walleterr.Wrap(walleterr.ErrValidation, "unknown token %q", symbol),
		"register the token under network.tokens in the config file",
	)
}

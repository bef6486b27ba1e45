package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidewallet/tide/internal/chain"
	"github.com/tidewallet/tide/internal/chain/eth/etherscan"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// historyIndex is the account index to list.
	historyIndex uint32
	// historyLimit caps the number of transactions shown.
	historyLimit int
)

// historyCmd lists recent transactions.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent transactions",
	Long: `Show recent transactions for an account, newest first.

Requires a block explorer API key under history.api_key in the config.`,
	Example: `  tide history
  tide history --limit 5`,
	RunE: runHistory,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Uint32Var(&historyIndex, "index", 0, "account index")
	historyCmd.Flags().IntVar(&historyLimit, "limit", etherscan.DefaultHistoryLimit, "maximum transactions to show")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	pin, err := promptPIN("PIN: ")
	if err != nil {
		return err
	}

	s, err := unlockedSession(pin, historyIndex)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, 60*time.Second)
	defer cancel()

	txs, err := s.GetHistory(ctx, historyIndex, historyLimit)
	if err != nil {
		return err
	}

	if len(txs) == 0 {
		outln(os.Stdout, "No transactions found.")
		return nil
	}

	for _, tx := range txs {
		status := ""
		if tx.Failed {
			status = "  FAILED"
		}
		outln(os.Stdout, "%s  %-8s  %s ETH  %s%s",
			tx.Timestamp.Format("2006-01-02 15:04"),
			tx.Direction,
			chain.FormatDecimalAmount(tx.Value, chain.DecimalsETH),
			tx.Hash,
			status)
	}
	return nil
}

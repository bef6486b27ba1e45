package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidewallet/tide/internal/chain"
	"github.com/tidewallet/tide/internal/session"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// balanceIndex is the account index to check.
	balanceIndex uint32
	// balanceToken is an optional ERC-20 token symbol.
	balanceToken string
)

// balanceCmd shows the balance for an account.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show account balance",
	Long: `Show the native or token balance for an account.

When the node is unreachable the last known balance is shown marked stale
instead of failing.`,
	Example: `  tide balance
  tide balance --token USDC
  tide balance --index 1`,
	RunE: runBalance,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(balanceCmd)

	balanceCmd.Flags().Uint32Var(&balanceIndex, "index", 0, "account index")
	balanceCmd.Flags().StringVar(&balanceToken, "token", "", "ERC-20 token symbol")
}

func runBalance(cmd *cobra.Command, _ []string) error {
	pin, err := promptPIN("PIN: ")
	if err != nil {
		return err
	}

	s, err := unlockedSession(pin, balanceIndex)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, 60*time.Second)
	defer cancel()

	symbol := "ETH"
	decimals := chain.DecimalsETH

	var balance *session.Balance
	if balanceToken == "" {
		b, err := s.FetchBalance(ctx, chain.ETH, balanceIndex)
		if err != nil {
			return err
		}
		balance = b
	} else {
		token, ok := cfg.Token(balanceToken)
		if !ok {
			return unknownToken(balanceToken)
		}
		symbol = token.Symbol
		decimals = token.Decimals

		b, err := s.FetchTokenBalance(ctx, balanceToken, balanceIndex)
		if err != nil {
			return err
		}
		balance = b
	}

	marker := ""
	if balance.Stale {
		marker = "  (stale)"
	}
	outln(os.Stdout, "%s  %s %s%s",
		balance.Address, chain.FormatDecimalAmount(balance.Amount, decimals), symbol, marker)
	return nil
}

package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tidewallet/tide/internal/chain"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// accountsIndex is the account index to derive.
	accountsIndex uint32
)

// accountsCmd derives and lists receive addresses.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Show receive addresses",
	Long: `Derive and show the receive addresses for an account index.

The same index always yields the same addresses; derivation is local and
needs no network access.`,
	Example: `  tide accounts
  tide accounts --index 2`,
	RunE: runAccounts,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(accountsCmd)

	accountsCmd.Flags().Uint32Var(&accountsIndex, "index", 0, "account index")
}

func runAccounts(_ *cobra.Command, _ []string) error {
	pin, err := promptPIN("PIN: ")
	if err != nil {
		return err
	}

	s, err := unlockedSession(pin, accountsIndex)
	if err != nil {
		return err
	}

	for _, chainID := range chain.All() {
		for _, account := range s.Accounts(chainID) {
			outln(os.Stdout, "%-4s %-12s %s",
				strings.ToUpper(chainID.String()), account.Path, account.Address)
		}
	}
	return nil
}

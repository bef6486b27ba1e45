package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tidewallet/tide/internal/vault"
	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// pinCmd is the parent command for PIN management.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Manage the wallet PIN",
}

// unlockCmd checks the PIN against the vault without any other action.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Verify the wallet PIN",
	Long:  `Verify the PIN against the seed vault. Useful as a scripting guard.`,
	RunE:  runUnlock,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var pinChangeCmd = &cobra.Command{
	Use:   "change",
	Short: "Change the wallet PIN",
	Long: `Change the PIN protecting the seed vault.

The seed is re-encrypted under the new PIN. The seed phrase itself does
not change.`,
	RunE: runPinChange,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(pinCmd)
	rootCmd.AddCommand(unlockCmd)
	pinCmd.AddCommand(pinChangeCmd)
}

func runUnlock(_ *cobra.Command, _ []string) error {
	pin, err := promptPIN("PIN: ")
	if err != nil {
		return err
	}

	storage := vault.NewFileStorage(filepath.Join(cfg.Home, "vault"))
	vlt := vault.New(storage)

	if !vlt.HasSeed() {
		return walleterr.WithSuggestion(
			walleterr.ErrSeedNotFound,
			"run 'tide init' to create a wallet",
		)
	}
	if !vlt.VerifyPIN(pin) {
		return walleterr.ErrAuthentication
	}

	outln(os.Stdout, "PIN OK.")
	return nil
}

func runPinChange(_ *cobra.Command, _ []string) error {
	current, err := promptPIN("Current PIN: ")
	if err != nil {
		return err
	}

	next, err := promptNewPIN()
	if err != nil {
		return err
	}

	storage := vault.NewFileStorage(filepath.Join(cfg.Home, "vault"))
	if err := vault.New(storage).ChangePIN(current, next); err != nil {
		return err
	}

	outln(os.Stdout, "PIN changed.")
	return nil
}

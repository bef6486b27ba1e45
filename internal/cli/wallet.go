package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tidewallet/tide/internal/hdkey"
	"github.com/tidewallet/tide/internal/vault"
	walleterr "github.com/tidewallet/tide/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// initWords is the mnemonic length for a new wallet.
	initWords int
)

// initCmd creates a new wallet.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new wallet",
	Long: `Create a new wallet with a freshly generated seed phrase.

The phrase is shown exactly once for backup, then stored encrypted under
your PIN. Anyone with the phrase controls the funds; write it down offline.`,
	Example: `  tide init
  tide init --words 24`,
	RunE: runInit,
}

// importCmd restores a wallet from an existing seed phrase.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore a wallet from a seed phrase",
	Long: `Restore a wallet from an existing 12 or 24 word seed phrase.

Numbered lists and stray whitespace pasted from backup notes are accepted.
Mistyped words get a closest-match suggestion.`,
	RunE: runImport,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(importCmd)

	initCmd.Flags().IntVar(&initWords, "words", 12, "seed phrase length: 12 or 24")
}

func runInit(_ *cobra.Command, _ []string) error {
	if err := ensureVaultEmpty(); err != nil {
		return err
	}

	mnemonic, err := hdkey.GenerateMnemonic(initWords)
	if err != nil {
		return err
	}

	pin, err := promptNewPIN()
	if err != nil {
		return err
	}

	s, _, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.Initialize(mnemonic, pin); err != nil {
		return err
	}

	accounts, err := s.DeriveAccounts(0)
	if err != nil {
		return err
	}

	outln(os.Stdout, "Wallet created.")
	outln(os.Stdout, "")
	outln(os.Stdout, "Seed phrase (write this down, it is shown only once):")
	for i, word := range strings.Fields(mnemonic) {
		outln(os.Stdout, "  %2d. %s", i+1, word)
	}
	outln(os.Stdout, "")
	for _, account := range accounts {
		outln(os.Stdout, "%-4s %s", strings.ToUpper(account.Chain.String()), account.Address)
	}

	logger.Debug("created wallet with %d-word phrase", initWords)
	return nil
}

func runImport(_ *cobra.Command, _ []string) error {
	if err := ensureVaultEmpty(); err != nil {
		return err
	}

	mnemonic, err := promptMnemonic()
	if err != nil {
		return err
	}

	if err := hdkey.ValidateMnemonic(mnemonic); err != nil {
		// Point at likely typos before giving up.
		for _, typo := range hdkey.DetectTypos(mnemonic) {
			outln(os.Stderr, "Did you mean %q instead of %q?", typo.Suggestion, typo.Word)
		}
		return err
	}

	pin, err := promptNewPIN()
	if err != nil {
		return err
	}

	s, _, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.Initialize(mnemonic, pin); err != nil {
		return err
	}

	accounts, err := s.DeriveAccounts(0)
	if err != nil {
		return err
	}

	outln(os.Stdout, "Wallet restored.")
	for _, account := range accounts {
		outln(os.Stdout, "%-4s %s", strings.ToUpper(account.Chain.String()), account.Address)
	}
	return nil
}

// ensureVaultEmpty refuses to overwrite an existing wallet.
func ensureVaultEmpty() error {
	storage := vault.NewFileStorage(filepath.Join(cfg.Home, "vault"))
	if vault.New(storage).HasSeed() {
		return walleterr.WithSuggestion(
			walleterr.Wrap(walleterr.ErrValidation, "a wallet already exists in %s", cfg.Home),
			"use --home for a separate wallet directory",
		)
	}
	return nil
}

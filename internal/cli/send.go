package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidewallet/tide/internal/chain"
	"github.com/tidewallet/tide/internal/contacts"
	walleterr "github.com/tidewallet/tide/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// sendTo is the recipient address or contact name.
	sendTo string
	// sendAmount is the decimal amount to send.
	sendAmount string
	// sendToken is an optional ERC-20 token symbol.
	sendToken string
	// sendIndex is the sending account index.
	sendIndex uint32
	// sendYes skips the confirmation prompt.
	sendYes bool
)

// sendCmd signs and broadcasts a transfer.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send ETH or an ERC-20 token",
	Long: `Send ETH or a configured ERC-20 token to an address or saved contact.

The transfer is shown for confirmation before anything is signed. Signing
happens locally; only the signed transaction leaves this machine.`,
	Example: `  tide send --to 0x742d35Cc6634C0532925a3b844Bc9e7595f8b2E0 --amount 0.1
  tide send --to alice --amount 25 --token USDC
  tide send --to alice --amount 0.5 --yes`,
	RunE: runSend,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient address or contact name (required)")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "amount to send (required)")
	sendCmd.Flags().StringVar(&sendToken, "token", "", "ERC-20 token symbol")
	sendCmd.Flags().Uint32Var(&sendIndex, "index", 0, "sending account index")
	sendCmd.Flags().BoolVar(&sendYes, "yes", false, "skip confirmation prompt")

	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("amount")
}

func runSend(cmd *cobra.Command, _ []string) error {
	pin, err := promptPIN("PIN: ")
	if err != nil {
		return err
	}

	s, err := unlockedSession(pin, sendIndex)
	if err != nil {
		return err
	}

	to, err := resolveRecipient(pin, sendTo)
	if err != nil {
		return err
	}

	symbol := "ETH"
	if sendToken != "" {
		token, ok := cfg.Token(sendToken)
		if !ok {
			return unknownToken(sendToken)
		}
		symbol = token.Symbol
	}

	pending, err := s.PrepareTransfer(sendIndex, to, sendAmount, sendToken)
	if err != nil {
		return err
	}

	outln(os.Stdout, "Send %s %s", sendAmount, symbol)
	outln(os.Stdout, "  to %s", pending.Transfer.To)

	ctx, cancel := contextWithTimeout(cmd, 90*time.Second)
	defer cancel()

	if !sendYes && !confirmPrompt("Proceed?") {
		if _, err := s.Reject(pending.ID); err != nil {
			return err
		}
		outln(os.Stdout, "Cancelled.")
		return nil
	}

	// The confirmation prompt can sit for a long time; re-resolve the
	// session so an idle-expired unlock aborts instead of signing.
	s, err = activeSession()
	if err != nil {
		return walleterr.WithSuggestion(err, "session expired at the prompt, run the command again")
	}

	result, err := s.Approve(ctx, pending.ID, pin)
	if err != nil {
		return err
	}

	decimals := chain.DecimalsETH
	outln(os.Stdout, "Broadcast %s", result.Transfer.Hash)
	outln(os.Stdout, "  nonce %d, max fee %s ETH",
		result.Transfer.Nonce, chain.FormatDecimalAmount(result.Transfer.Fee, decimals))
	return nil
}

// resolveRecipient treats anything that is not address-shaped as a
// contact name.
func resolveRecipient(pin, to string) (string, error) {
	if len(to) >= 2 && to[0] == '0' && (to[1] == 'x' || to[1] == 'X') {
		return to, nil
	}
	if len(to) > 0 && (to[0] == '1' || to[0] == '3') && len(to) > 20 {
		return to, nil
	}

	store := contacts.NewStore(filepath.Join(cfg.Home, "contacts"))
	contact, err := store.Get(pin, to)
	if err != nil {
		if walleterr.Is(err, walleterr.ErrContactNotFound) {
			return "", walleterr.WithSuggestion(err,
				"pass a full address or add the contact with 'tide contacts add'")
		}
		return "", err
	}
	return contact.Address, nil
}

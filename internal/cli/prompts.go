package cli

import (
	"bufio"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/tidewallet/tide/internal/hdkey"
	walleterr "github.com/tidewallet/tide/pkg/errors"
)

const minPINLength = 6

// promptPIN reads the PIN with hidden input.
func promptPIN(prompt string) (string, error) {
	out(os.Stderr, "%s", prompt)

	pin, err := term.ReadPassword(syscall.Stdin)
	outln(os.Stderr, "") // newline after hidden input

	if err != nil {
		return "", walleterr.Wrap(err, "reading PIN")
	}
	return string(pin), nil
}

// promptNewPIN reads a new PIN with confirmation.
func promptNewPIN() (string, error) {
	pin, err := promptPIN("Choose a PIN: ")
	if err != nil {
		return "", err
	}

	if len(pin) < minPINLength {
		return "", walleterr.WithSuggestion(
			walleterr.ErrValidation,
			"PIN must be at least 6 characters",
		)
	}

	confirm, err := promptPIN("Confirm PIN: ")
	if err != nil {
		return "", err
	}
	if pin != confirm {
		return "", walleterr.WithSuggestion(
			walleterr.ErrValidation,
			"PINs do not match",
		)
	}

	return pin, nil
}

// promptMnemonic reads a seed phrase from stdin. Input is visible; numbered
// lists and extra whitespace from backup notes are tolerated.
func promptMnemonic() (string, error) {
	outln(os.Stderr, "Enter your seed phrase (12 or 24 words):")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", walleterr.Wrap(err, "reading seed phrase")
	}

	return hdkey.NormalizeMnemonicInput(line), nil
}

// confirmPrompt asks a yes/no question, defaulting to no.
func confirmPrompt(question string) bool {
	out(os.Stderr, "%s [y/N]: ", question)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tidewallet/tide/internal/chain"
	"github.com/tidewallet/tide/internal/contacts"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// contactChain is the chain a contact address belongs to.
	contactChain string
	// contactNote is a free-form note on the contact.
	contactNote string
)

// contactsCmd is the parent command for the address book.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage the address book",
	Long: `Manage saved recipient addresses.

Contacts are stored encrypted under your PIN, next to the wallet vault.
Saved names can be used anywhere an address is expected.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var contactsAddCmd = &cobra.Command{
	Use:   "add <name> <address>",
	Short: "Save a contact",
	Args:  cobra.ExactArgs(2),
	Example: `  tide contacts add alice 0x742d35Cc6634C0532925a3b844Bc9e7595f8b2E0
  tide contacts add bob 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa --chain btc`,
	RunE: runContactsAdd,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved contacts",
	RunE:  runContactsList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var contactsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a contact",
	Args:  cobra.ExactArgs(1),
	RunE:  runContactsRemove,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var contactsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search contacts by name",
	Long:  `Search contacts by name. Close misspellings still match.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runContactsSearch,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(contactsCmd)
	contactsCmd.AddCommand(contactsAddCmd)
	contactsCmd.AddCommand(contactsListCmd)
	contactsCmd.AddCommand(contactsRemoveCmd)
	contactsCmd.AddCommand(contactsSearchCmd)

	contactsAddCmd.Flags().StringVar(&contactChain, "chain", "eth", "chain the address belongs to: eth, btc")
	contactsAddCmd.Flags().StringVar(&contactNote, "note", "", "free-form note")
}

func contactStore() *contacts.Store {
	return contacts.NewStore(filepath.Join(cfg.Home, "contacts"))
}

func runContactsAdd(_ *cobra.Command, args []string) error {
	pin, err := promptPIN("PIN: ")
	if err != nil {
		return err
	}

	contact := contacts.Contact{
		Name:    args[0],
		Address: args[1],
		Chain:   chain.ID(contactChain),
		Note:    contactNote,
	}
	if err := contactStore().Add(pin, contact); err != nil {
		return err
	}

	outln(os.Stdout, "Saved %s.", contact.Name)
	return nil
}

func runContactsList(_ *cobra.Command, _ []string) error {
	pin, err := promptPIN("PIN: ")
	if err != nil {
		return err
	}

	list, err := contactStore().List(pin)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		outln(os.Stdout, "No contacts saved.")
		return nil
	}

	for _, contact := range list {
		note := ""
		if contact.Note != "" {
			note = "  # " + contact.Note
		}
		outln(os.Stdout, "%-20s %-4s %s%s", contact.Name, contact.Chain, contact.Address, note)
	}
	return nil
}

func runContactsRemove(_ *cobra.Command, args []string) error {
	pin, err := promptPIN("PIN: ")
	if err != nil {
		return err
	}

	if err := contactStore().Remove(pin, args[0]); err != nil {
		return err
	}

	outln(os.Stdout, "Removed %s.", args[0])
	return nil
}

func runContactsSearch(_ *cobra.Command, args []string) error {
	pin, err := promptPIN("PIN: ")
	if err != nil {
		return err
	}

	results, err := contactStore().Search(pin, args[0])
	if err != nil {
		return err
	}
	if len(results) == 0 {
		outln(os.Stdout, "No matches.")
		return nil
	}

	for _, result := range results {
		outln(os.Stdout, "%-20s %-4s %s", result.Contact.Name, result.Contact.Chain, result.Contact.Address)
	}
	return nil
}

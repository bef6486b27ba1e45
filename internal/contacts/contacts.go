// Package contacts manages the encrypted address book. Entries are stored
// under the same PIN-derived envelope as the seed vault, so the address
// book never touches disk in plaintext.
package contacts

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/tidewallet/tide/internal/chain"
	"github.com/tidewallet/tide/internal/chain/eth"
	"github.com/tidewallet/tide/internal/fileutil"
	"github.com/tidewallet/tide/internal/vault"
	walleterr "github.com/tidewallet/tide/pkg/errors"
)

const (
	contactsFile = "contacts.json"

	filePerm = 0o600
	dirPerm  = 0o700

	// maxSearchDistance bounds fuzzy name matches; farther names are
	// considered unrelated rather than misspelled.
	maxSearchDistance = 3
)

// Contact is one address book entry.
type Contact struct {
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Chain     chain.ID  `json:"chain"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// envelope is the on-disk format: the contact list encrypted with a
// PIN-derived key.
type envelope struct {
	Ciphertext []byte    `json:"ciphertext"`
	IV         []byte    `json:"iv"`
	Salt       []byte    `json:"salt"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store is a file-backed encrypted address book.
type Store struct {
	path string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, contactsFile)}
}

// Add inserts a contact. Names are unique case-insensitively; the address
// must be valid for the contact's chain.
func (s *Store) Add(pin string, contact Contact) error {
	if strings.TrimSpace(contact.Name) == "" {
		return walleterr.Wrap(walleterr.ErrValidation, "contact name is empty")
	}
	if !contact.Chain.IsValid() {
		return walleterr.Wrap(walleterr.ErrValidation, "unsupported chain %q", contact.Chain)
	}
	if contact.Chain == chain.ETH {
		normalized, err := eth.NormalizeAddress(contact.Address)
		if err != nil {
			return err
		}
		contact.Address = normalized
	} else if strings.TrimSpace(contact.Address) == "" {
		return walleterr.Wrap(walleterr.ErrInvalidAddress, "address is empty")
	}

	list, err := s.load(pin)
	if err != nil {
		return err
	}

	for _, existing := range list {
		if strings.EqualFold(existing.Name, contact.Name) {
			return walleterr.WithDetails(
				walleterr.Wrap(walleterr.ErrValidation, "contact already exists"),
				map[string]string{"name": existing.Name},
			)
		}
	}

	now := time.Now().UTC()
	contact.CreatedAt = now
	contact.UpdatedAt = now
	list = append(list, contact)

	return s.save(pin, list)
}

// Get looks up a contact by exact name, case-insensitively.
func (s *Store) Get(pin, name string) (*Contact, error) {
	list, err := s.load(pin)
	if err != nil {
		return nil, err
	}

	for i := range list {
		if strings.EqualFold(list[i].Name, name) {
			return &list[i], nil
		}
	}

	return nil, s.notFound(name, list)
}

// GetByAddress looks up a contact by address.
func (s *Store) GetByAddress(pin, address string) (*Contact, error) {
	list, err := s.load(pin)
	if err != nil {
		return nil, err
	}

	for i := range list {
		if strings.EqualFold(list[i].Address, address) {
			return &list[i], nil
		}
	}

	return nil, walleterr.WithDetails(walleterr.ErrContactNotFound, map[string]string{
		"address": address,
	})
}

// List returns all contacts sorted by name.
func (s *Store) List(pin string) ([]Contact, error) {
	list, err := s.load(pin)
	if err != nil {
		return nil, err
	}

	sort.Slice(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	return list, nil
}

// Update replaces the address or note of an existing contact.
func (s *Store) Update(pin, name string, address, note string) error {
	list, err := s.load(pin)
	if err != nil {
		return err
	}

	for i := range list {
		if !strings.EqualFold(list[i].Name, name) {
			continue
		}
		if address != "" {
			if list[i].Chain == chain.ETH {
				normalized, normErr := eth.NormalizeAddress(address)
				if normErr != nil {
					return normErr
				}
				address = normalized
			}
			list[i].Address = address
		}
		if note != "" {
			list[i].Note = note
		}
		list[i].UpdatedAt = time.Now().UTC()
		return s.save(pin, list)
	}

	return s.notFound(name, list)
}

// Remove deletes a contact by name.
func (s *Store) Remove(pin, name string) error {
	list, err := s.load(pin)
	if err != nil {
		return err
	}

	for i := range list {
		if strings.EqualFold(list[i].Name, name) {
			return s.save(pin, append(list[:i], list[i+1:]...))
		}
	}

	return s.notFound(name, list)
}

// SearchResult is a fuzzy match with its edit distance.
type SearchResult struct {
	Contact  Contact
	Distance int
}

// Search finds contacts whose names contain the query or sit within a
// small edit distance of it, best matches first.
func (s *Store) Search(pin, query string) ([]SearchResult, error) {
	list, err := s.load(pin)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, walleterr.Wrap(walleterr.ErrValidation, "search query is empty")
	}

	var results []SearchResult
	for _, contact := range list {
		name := strings.ToLower(contact.Name)

		switch {
		case strings.Contains(name, query):
			results = append(results, SearchResult{Contact: contact, Distance: 0})
		default:
			if dist := levenshtein.ComputeDistance(query, name); dist <= maxSearchDistance {
				results = append(results, SearchResult{Contact: contact, Distance: dist})
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	return results, nil
}

// notFound builds a contact-not-found error, suggesting the closest
// existing name when one is plausible.
func (s *Store) notFound(name string, list []Contact) error {
	err := walleterr.WithDetails(walleterr.ErrContactNotFound, map[string]string{
		"name": name,
	})

	best := ""
	bestDist := maxSearchDistance + 1
	for _, contact := range list {
		dist := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(contact.Name))
		if dist < bestDist {
			bestDist = dist
			best = contact.Name
		}
	}
	if best != "" {
		err = walleterr.WithSuggestion(err, "did you mean "+best+"?")
	}

	return err
}

// load decrypts the address book. A missing file is an empty book.
func (s *Store) load(pin string) ([]Contact, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, walleterr.Wrap(err, "reading contacts file")
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, walleterr.Wrap(err, "parsing contacts file")
	}

	key := vault.DeriveKey(pin, env.Salt)
	defer vault.ZeroBytes(key)

	plaintext, err := vault.Decrypt(env.Ciphertext, key, env.IV)
	if err != nil {
		return nil, err
	}
	defer vault.ZeroBytes(plaintext)

	var list []Contact
	if err := json.Unmarshal(plaintext, &list); err != nil {
		return nil, walleterr.Wrap(err, "decoding contacts")
	}

	return list, nil
}

// save encrypts and atomically writes the address book with a fresh salt.
func (s *Store) save(pin string, list []Contact) error {
	plaintext, err := json.Marshal(list)
	if err != nil {
		return walleterr.Wrap(err, "encoding contacts")
	}
	defer vault.ZeroBytes(plaintext)

	salt, err := vault.NewSalt()
	if err != nil {
		return err
	}

	key := vault.DeriveKey(pin, salt)
	defer vault.ZeroBytes(key)

	ciphertext, iv, err := vault.Encrypt(plaintext, key)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(envelope{
		Ciphertext: ciphertext,
		IV:         iv,
		Salt:       salt,
		UpdatedAt:  time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return walleterr.Wrap(err, "encoding contacts file")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return walleterr.Wrap(err, "creating contacts directory")
	}

	return fileutil.WriteAtomic(s.path, data, filePerm)
}

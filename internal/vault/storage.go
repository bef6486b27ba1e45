package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidewallet/tide/internal/fileutil"
)

const (
	// seedFileName is the on-disk name of the seed record.
	seedFileName = "seed.json"

	// recordFilePermissions is the permission mode for record files.
	recordFilePermissions = 0o600

	// recordDirPermissions is the permission mode for the records directory.
	recordDirPermissions = 0o700
)

// SeedRecord is the persisted envelope for the encrypted seed phrase.
// Exactly one logical record exists per wallet identity.
type SeedRecord struct {
	ID         string    `json:"id"` // always "seed"
	Ciphertext []byte    `json:"ciphertext"`
	IV         []byte    `json:"iv"`
	Salt       []byte    `json:"salt"`
	CreatedAt  time.Time `json:"created_at"`
}

// Storage defines the persistence interface for seed records.
// Only the logical layout is fixed; implementations choose the medium.
type Storage interface {
	// LoadSeed reads the seed record. Returns os.ErrNotExist-compatible
	// errors when no record has been stored yet.
	LoadSeed() (*SeedRecord, error)

	// SaveSeed writes the seed record, atomically replacing any prior one.
	SaveSeed(rec *SeedRecord) error

	// HasSeed reports whether a seed record exists, without decryption.
	HasSeed() (bool, error)

	// DeleteSeed irreversibly removes the seed record.
	DeleteSeed() error
}

// FileStorage implements Storage on the filesystem.
type FileStorage struct {
	basePath string
}

// NewFileStorage creates a file-based storage rooted at basePath.
func NewFileStorage(basePath string) *FileStorage {
	return &FileStorage{basePath: basePath}
}

// LoadSeed reads and parses the seed record file.
func (s *FileStorage) LoadSeed() (*SeedRecord, error) {
	path := s.seedPath()
	// #nosec G304 -- path is derived from validated base path
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rec SeedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing seed record: %w", err)
	}

	return &rec, nil
}

// SaveSeed writes the seed record atomically with secure permissions.
func (s *FileStorage) SaveSeed(rec *SeedRecord) error {
	if err := os.MkdirAll(s.basePath, recordDirPermissions); err != nil {
		return fmt.Errorf("creating records directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling seed record: %w", err)
	}

	return fileutil.WriteAtomic(s.seedPath(), data, recordFilePermissions)
}

// HasSeed checks for the record file without reading it.
func (s *FileStorage) HasSeed() (bool, error) {
	_, err := os.Stat(s.seedPath())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteSeed removes the record file.
func (s *FileStorage) DeleteSeed() error {
	err := os.Remove(s.seedPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing seed record: %w", err)
	}
	return nil
}

func (s *FileStorage) seedPath() string {
	return filepath.Join(s.basePath, seedFileName)
}

// MemoryStorage implements Storage in memory, for tests and ephemeral use.
type MemoryStorage struct {
	rec *SeedRecord
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// LoadSeed returns the stored record or os.ErrNotExist.
func (s *MemoryStorage) LoadSeed() (*SeedRecord, error) {
	if s.rec == nil {
		return nil, os.ErrNotExist
	}
	cp := *s.rec
	return &cp, nil
}

// SaveSeed replaces the stored record.
func (s *MemoryStorage) SaveSeed(rec *SeedRecord) error {
	cp := *rec
	s.rec = &cp
	return nil
}

// HasSeed reports whether a record is held.
func (s *MemoryStorage) HasSeed() (bool, error) {
	return s.rec != nil, nil
}

// DeleteSeed drops the record.
func (s *MemoryStorage) DeleteSeed() error {
	s.rec = nil
	return nil
}

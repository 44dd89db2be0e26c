package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/echonet/echonet/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CorruptStoreError marks a registry file that exists but cannot be decoded.
// Loading never silently resets to an empty registry; the operator has to
// recover or remove the file explicitly.
type CorruptStoreError struct {
	Path  string
	Cause error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("registry store %s is corrupt: %v", e.Path, e.Cause)
}

func (e *CorruptStoreError) Unwrap() error {
	return e.Cause
}

// Store persists the full channel registry as one JSON document keyed by
// channel id. Callers serialize access themselves; every mutation cycle is
// load-mutate-save over the whole mapping.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (v *Store) Load() (map[string]*models.ChannelRecord, error) {
	raw, err := os.ReadFile(v.path)
	if os.IsNotExist(err) {
		return map[string]*models.ChannelRecord{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("unable to read registry store: %w", err)
	}

	records := map[string]*models.ChannelRecord{}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &CorruptStoreError{Path: v.path, Cause: err}
	}
	for id, record := range records {
		if record == nil || record.ChannelID != id || record.OwnerID == "" {
			return nil, &CorruptStoreError{
				Path:  v.path,
				Cause: fmt.Errorf("record %s is missing its identity", id),
			}
		}
		if record.PendingRequests == nil {
			record.PendingRequests = []string{}
		}
		if record.BlockedUsers == nil {
			record.BlockedUsers = []string{}
		}
	}

	return records, nil
}

// Save writes the whole mapping through a temp file in the same directory and
// renames it over the target, so a crash mid-write never truncates the store.
func (v *Store) Save(records map[string]*models.ChannelRecord) error {
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal registry store: %w", err)
	}

	return writeAtomic(v.path, raw)
}

func writeAtomic(path string, raw []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("unable to prepare store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("unable to create temp store file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to flush temp store file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("unable to replace store file: %w", err)
	}

	return nil
}

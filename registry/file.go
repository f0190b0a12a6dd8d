// Package registry persists records of provisioned clients on the local
// file system. The generated unit and vhost files remain the authoritative
// host state; this store is the operator-facing catalog behind the client
// listing endpoint.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/nasif43/bizcalc/interfaces"
)

const recordFile = "client.json"

// FileStore stores one client.json per client subtree under the clients
// directory, alongside the client's frontend, data, and uploads directories.
type FileStore struct {
	clientsDir string
	log        *slog.Logger
}

// NewFileStore creates a file-backed client store rooted at clientsDir,
// creating the directory if needed.
func NewFileStore(clientsDir string, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(clientsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create clients directory: %w", err)
	}
	return &FileStore{clientsDir: clientsDir, log: log}, nil
}

// Save writes the record for rec.ID, overwriting any previous version.
func (s *FileStore) Save(ctx context.Context, rec interfaces.ClientRecord) error {
	dir := filepath.Join(s.clientsDir, rec.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create client directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal client record: %w", err)
	}

	path := filepath.Join(dir, recordFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write client record: %w", err)
	}

	s.log.Debug("Saved client record", slog.String("path", path))
	return nil
}

// Get returns the record for the given client id. Returns
// interfaces.ErrClientNotFound if no record exists.
func (s *FileStore) Get(ctx context.Context, id string) (interfaces.ClientRecord, error) {
	path := filepath.Join(s.clientsDir, id, recordFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return interfaces.ClientRecord{}, interfaces.ErrClientNotFound
	}
	if err != nil {
		return interfaces.ClientRecord{}, fmt.Errorf("failed to read client record: %w", err)
	}

	var rec interfaces.ClientRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return interfaces.ClientRecord{}, fmt.Errorf("failed to parse client record: %w", err)
	}
	return rec, nil
}

// List returns the records of all provisioned clients, sorted by id.
// Client subtrees without a record file (provisioned before the store
// existed, or whose save failed) are skipped.
func (s *FileStore) List(ctx context.Context) ([]interfaces.ClientRecord, error) {
	entries, err := os.ReadDir(s.clientsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read clients directory: %w", err)
	}

	records := []interfaces.ClientRecord{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := s.Get(ctx, entry.Name())
		if err != nil {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

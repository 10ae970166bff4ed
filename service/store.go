package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/KishoreAkashYS/chargebee-cpf/config"
	"github.com/KishoreAkashYS/chargebee-cpf/model"
)

// ErrContractNotFound is returned when no record exists for an identifier.
var ErrContractNotFound = errors.New("contract not found")

// ContractStore persists contract records as one JSON file per contract_id
// and keeps the uploaded PDFs alongside. Each identifier is written by at
// most one upload and one confirmation, never concurrently; the mutex only
// guards directory-wide operations against each other.
type ContractStore struct {
	uploadDir  string
	extractDir string
	mu         sync.Mutex
}

func NewContractStore(cfg *config.StorageConfig) (*ContractStore, error) {
	for _, dir := range []string{cfg.UploadDir, cfg.ExtractDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}

	return &ContractStore{
		uploadDir:  cfg.UploadDir,
		extractDir: cfg.ExtractDir,
	}, nil
}

// Save writes the record to {contract_id}.json, replacing any previous
// version.
func (s *ContractStore) Save(record *model.ContractRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	path := filepath.Join(s.extractDir, record.ContractID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	return nil
}

// Get reads one record by contract identifier.
func (s *ContractStore) Get(id string) (*model.ContractRecord, error) {
	if !validRecordID(id) {
		return nil, ErrContractNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.extractDir, id+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	var record model.ContractRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
	}

	return &record, nil
}

// List returns summaries for all records, most recent first by filename
// ordering.
func (s *ContractStore) List() ([]model.ContractSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.extractDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	summaries := make([]model.ContractSummary, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.extractDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read record %s: %w", name, err)
		}

		var record model.ContractRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to decode record %s: %w", name, err)
		}

		summaries = append(summaries, model.ContractSummary{
			ContractID: record.ContractID,
			Filename:   record.Filename,
			Timestamp:  record.Timestamp,
			Status:     record.Status,
		})
	}

	return summaries, nil
}

// Clear removes every persisted record.
func (s *ContractStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFiles(s.extractDir, ".json")
}

// SaveUpload stores an uploaded PDF as {id}.pdf and returns its path.
func (s *ContractStore) SaveUpload(id string, r io.Reader) (string, error) {
	path := s.UploadPath(id)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	return path, nil
}

// UploadPath returns the on-disk path for a contract's uploaded PDF.
func (s *ContractStore) UploadPath(id string) string {
	return filepath.Join(s.uploadDir, id+".pdf")
}

// ClearUploads removes every uploaded PDF.
func (s *ContractStore) ClearUploads() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFiles(s.uploadDir, "")
}

func removeFiles(dir, suffix string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || (suffix != "" && !strings.HasSuffix(entry.Name(), suffix)) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// validRecordID rejects identifiers that could escape the storage directory.
func validRecordID(id string) bool {
	return id != "" &&
		!strings.ContainsAny(id, `/\`) &&
		!strings.Contains(id, "..")
}

package registration

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// storeFilePerm restricts the registrations file to the service user.
const storeFilePerm = 0o600

// Store persists the full registration table.
//
// Implementations must be safe to call from the Table, which serialises
// calls under its own lock.
type Store interface {
	// Load returns every stored record in file order.
	Load() ([]Record, error)

	// Save replaces the stored contents with records.
	Save(records []Record) error
}

// FileStore keeps one JSON record per line in a flat file:
//
//	{"devaddr":["192.168.1.20",null],"edgeid":"...","hubaddr":["192.168.1.50",39500]}
//
// The file is rewritten in full on every Save.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path.
// The file does not need to exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and validates every line of the file.
//
// Any unparsable line fails the whole load; callers treat that the same as
// a missing file and start with an empty table.
func (s *FileStore) Load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}

	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrStoreRead, line, err)
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrStoreRead, line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}

	return records, nil
}

// Save writes records to a temporary file and renames it over the store,
// so a crash mid-write never leaves a truncated file behind.
func (s *FileStore) Save(records []Record) error {
	var buf bytes.Buffer
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("%w: encoding %s: %w", ErrStoreWrite, rec, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	if err := tmp.Chmod(storeFilePerm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	return nil
}

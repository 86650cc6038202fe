package registration

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStore_SaveLoadKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".registrations")
	store := NewFileStore(path)

	records := []Record{
		testRecord(t, "10.0.0.7", "192.168.1.50:39500"),
		testRecord(t, "10.0.0.5:1000", "192.168.1.51:39500"),
	}
	if err := store.Save(records); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("Load() returned %d records, want %d", len(got), len(records))
	}
	for i := range records {
		if got[i] != records[i] {
			t.Errorf("record[%d] = %s, want %s", i, got[i], records[i])
		}
	}
}

func TestFileStore_LineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".registrations")
	store := NewFileStore(path)

	if err := store.Save([]Record{testRecord(t, "10.0.0.7", "192.168.1.50:39500")}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	want := `{"devaddr":["10.0.0.7",null],"edgeid":"aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee","hubaddr":["192.168.1.50",39500]}` + "\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestFileStore_LoadsSpacedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".registrations")
	content := `{"devaddr": ["192.168.1.20", 8000], "edgeid": "AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE", "hubaddr": ["192.168.1.50", 39500]}` + "\n\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Load() returned %d records, want 1", len(got))
	}
	if got[0].EdgeID != "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee" {
		t.Errorf("EdgeID = %q, want lower-case form", got[0].EdgeID)
	}
	if got[0].Device.String() != "192.168.1.20:8000" {
		t.Errorf("Device = %s, want 192.168.1.20:8000", got[0].Device)
	}
}

func TestFileStore_LoadErrors(t *testing.T) {
	valid := `{"devaddr":["10.0.0.7",null],"edgeid":"aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee","hubaddr":["192.168.1.50",39500]}`

	tests := []struct {
		name    string
		content string
	}{
		{name: "garbage line", content: valid + "\nnot json\n"},
		{name: "hub without port", content: `{"devaddr":["10.0.0.7",null],"edgeid":"aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee","hubaddr":["192.168.1.50",null]}`},
		{name: "bad edge id", content: `{"devaddr":["10.0.0.7",null],"edgeid":"nope","hubaddr":["192.168.1.50",39500]}`},
		{name: "missing edge id", content: `{"devaddr":["10.0.0.7",null],"hubaddr":["192.168.1.50",39500]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".registrations")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			_, err := NewFileStore(path).Load()
			if !errors.Is(err, ErrStoreRead) {
				t.Errorf("Load() error = %v, want %v", err, ErrStoreRead)
			}
		})
	}
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "nope")).Load()
	if !errors.Is(err, ErrStoreRead) {
		t.Errorf("Load() error = %v, want %v", err, ErrStoreRead)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want it to wrap os.ErrNotExist", err)
	}
}

func TestFileStore_SaveUnwritableDir(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing-dir", ".registrations"))
	err := store.Save(nil)
	if !errors.Is(err, ErrStoreWrite) {
		t.Errorf("Save() error = %v, want %v", err, ErrStoreWrite)
	}
}

func TestFileStore_SaveEmptyTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".registrations")
	store := NewFileStore(path)
	if err := store.Save([]Record{testRecord(t, "10.0.0.7", "192.168.1.50:39500")}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(nil); err != nil {
		t.Fatalf("Save(nil) error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.TrimSpace(string(data)) != "" {
		t.Errorf("file = %q, want empty", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (no leftover temp files)", len(entries))
	}
}

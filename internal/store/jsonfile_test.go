package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestJSONFile_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.json")
	file := NewJSONFile(path, nil)

	type record struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	if err := file.Save([]record{{Name: "a", Value: 1}, {Name: "b", Value: 2}}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	var got []record
	if err := file.Load(&got); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "a" || got[1].Value != 2 {
		t.Fatalf("unexpected roundtrip result: %+v", got)
	}
}

func TestJSONFile_LoadMissingFileKeepsDst(t *testing.T) {
	file := NewJSONFile(filepath.Join(t.TempDir(), "absent.json"), nil)

	got := []string{"seed"}
	if err := file.Load(&got); err != nil {
		t.Fatalf("Load of missing file must not error: %v", err)
	}
	if len(got) != 1 || got[0] != "seed" {
		t.Fatalf("dst must be untouched on missing file, got %v", got)
	}
}

func TestJSONFile_LoadCorruptFileKeepsDst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte(`{"half": `), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	file := NewJSONFile(path, nil)
	got := []string{}
	if err := file.Load(&got); err != nil {
		t.Fatalf("Load of corrupt file must not error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("dst must stay empty on corrupt file, got %v", got)
	}
}

func TestJSONFile_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	file := NewJSONFile(filepath.Join(dir, "data.json"), nil)

	if err := file.Save(map[string]int{"x": 1}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

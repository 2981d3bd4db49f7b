package snapshot

import (
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestSaveAndLoad(t *testing.T) {
	p, err := NewPersistence(filepath.Join(t.TempDir(), "nested", "data"))
	if err != nil {
		t.Fatalf("NewPersistence failed: %v", err)
	}

	in := []record{{ID: 1, Name: "Folk"}, {ID: 2, Name: "Jane"}}
	if err := p.Save("users", in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(p.DataDir, "users.json.tmp")); !os.IsNotExist(err) {
		t.Error("Temp file should have been renamed away")
	}

	var out []record
	ok, err := p.Load("users", &out)
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if len(out) != 2 || out[1].Name != "Jane" {
		t.Errorf("Unexpected snapshot: %+v", out)
	}
}

func TestLoadMissing(t *testing.T) {
	p, _ := NewPersistence(t.TempDir())

	var out []record
	ok, err := p.Load("absent", &out)
	if err != nil || ok {
		t.Errorf("Expected no snapshot, got ok=%v err=%v", ok, err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	p, _ := NewPersistence(t.TempDir())
	os.WriteFile(filepath.Join(p.DataDir, "users.json"), []byte("{not json"), 0o644)

	var out []record
	if _, err := p.Load("users", &out); err == nil {
		t.Error("Expected decode error")
	}
}

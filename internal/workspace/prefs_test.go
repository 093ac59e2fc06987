package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPreferences(t *testing.T) {
	prefs := NewPreferences(filepath.Join(t.TempDir(), "cfg", "prefs.toml"))

	if _, ok, err := prefs.Get(LastRootKey); err != nil || ok {
		t.Fatalf("Get on missing file = ok %v, err %v; want false, nil", ok, err)
	}

	if err := prefs.Put(LastRootKey, "/data/reels"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := prefs.Put("theme", "dark"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	v, ok, err := prefs.Get(LastRootKey)
	if err != nil || !ok || v != "/data/reels" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}

	if err := prefs.Delete(LastRootKey); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := prefs.Get(LastRootKey); ok {
		t.Error("key still present after Delete")
	}
	if v, _, _ := prefs.Get("theme"); v != "dark" {
		t.Errorf("unrelated key lost: %q", v)
	}
	if err := prefs.Delete("absent"); err != nil {
		t.Errorf("Delete of absent key: %v", err)
	}
}

func TestPreferencesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0644); err != nil {
		t.Fatal(err)
	}
	prefs := NewPreferences(path)

	if _, _, err := prefs.Get(LastRootKey); err == nil {
		t.Error("expected error reading corrupt preferences")
	}
	if err := prefs.Put(LastRootKey, "/x"); err != nil {
		t.Fatalf("Put should replace a corrupt file, got %v", err)
	}
	if v, ok, err := prefs.Get(LastRootKey); err != nil || !ok || v != "/x" {
		t.Errorf("Get after repair = %q, %v, %v", v, ok, err)
	}
}

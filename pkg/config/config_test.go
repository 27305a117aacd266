package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must be non-negative")
	}
	return nil
}

func TestParse_KeepsDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "寶釵")
	s := &sample{Name: "default", Count: 3}
	if err := Parse([]byte("name: ${SAMPLE_NAME}\n"), s); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Name != "寶釵" || s.Count != 3 {
		t.Errorf("got %+v", s)
	}
}

func TestParse_Validates(t *testing.T) {
	err := Parse([]byte("count: -1\n"), &sample{})
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &sample{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadIfExists(t *testing.T) {
	dir := t.TempDir()
	s := &sample{Count: 1}
	if err := LoadIfExists(filepath.Join(dir, "nope.yaml"), s); err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}

	bad := &sample{Count: -5}
	if err := LoadIfExists(filepath.Join(dir, "nope.yaml"), bad); err == nil {
		t.Fatal("defaults are still validated")
	}

	path := filepath.Join(dir, "c.yaml")
	if err := os.WriteFile(path, []byte("count: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadIfExists(path, s); err != nil {
		t.Fatalf("LoadIfExists: %v", err)
	}
	if s.Count != 9 {
		t.Errorf("count = %d", s.Count)
	}
}

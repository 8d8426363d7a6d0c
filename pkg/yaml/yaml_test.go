package yaml

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sampleConfig struct {
	Name    string   `yaml:"name"`
	BaseURL string   `yaml:"base_url"`
	Timeout string   `yaml:"timeout"`
	Tags    []string `yaml:"tags"`
}

func TestLoadYAML_ValidFile_PopulatesTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `name: billing
base_url: http://localhost:9000
timeout: 10s
tags:
  - invoices
  - payments
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	var config sampleConfig
	if err := LoadYAML(path, &config); err != nil {
		t.Fatalf("LoadYAML returned error: %v", err)
	}

	if config.Name != "billing" {
		t.Errorf("Name = %q, want %q", config.Name, "billing")
	}
	if config.BaseURL != "http://localhost:9000" {
		t.Errorf("BaseURL = %q, want %q", config.BaseURL, "http://localhost:9000")
	}
	if config.Timeout != "10s" {
		t.Errorf("Timeout = %q, want %q", config.Timeout, "10s")
	}
	if len(config.Tags) != 2 || config.Tags[0] != "invoices" || config.Tags[1] != "payments" {
		t.Errorf("Tags = %v, want [invoices payments]", config.Tags)
	}
}

func TestLoadYAML_EmptyPath_ReturnsError(t *testing.T) {
	var config sampleConfig
	err := LoadYAML("", &config)
	if err == nil {
		t.Fatal("expected error for empty path")
	}
	if !strings.Contains(err.Error(), "path cannot be empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadYAML_NilTarget_ReturnsError(t *testing.T) {
	err := LoadYAML("config.yaml", nil)
	if err == nil {
		t.Fatal("expected error for nil target")
	}
	if !strings.Contains(err.Error(), "target cannot be nil") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadYAML_MissingFile_ReturnsError(t *testing.T) {
	var config sampleConfig
	err := LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"), &config)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got: %v", err)
	}
}

func TestLoadYAML_MalformedContent_ReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("name: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	var config sampleConfig
	err := LoadYAML(path, &config)
	if err == nil {
		t.Fatal("expected error for malformed yaml")
	}
	if !strings.Contains(err.Error(), "failed to unmarshal") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSaveYAML_RoundTrip_PreservesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.yaml")

	original := sampleConfig{
		Name:    "inbox",
		BaseURL: "http://localhost:3000",
		Timeout: "5s",
		Tags:    []string{"conversations"},
	}
	if err := SaveYAML(path, original); err != nil {
		t.Fatalf("SaveYAML returned error: %v", err)
	}

	var loaded sampleConfig
	if err := LoadYAML(path, &loaded); err != nil {
		t.Fatalf("LoadYAML returned error: %v", err)
	}

	if loaded.Name != original.Name || loaded.BaseURL != original.BaseURL || loaded.Timeout != original.Timeout {
		t.Errorf("round trip mismatch: got %+v, want %+v", loaded, original)
	}
	if len(loaded.Tags) != 1 || loaded.Tags[0] != "conversations" {
		t.Errorf("Tags = %v, want [conversations]", loaded.Tags)
	}
}

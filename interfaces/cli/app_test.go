package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/modelcache/interfaces/cli"
)

func runApp(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errBuf bytes.Buffer
	app := cli.New().WithOutput(&out, &errBuf)
	err = app.ExecuteWithArgs(context.Background(), args)
	return out.String(), errBuf.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
name: test-cache
version: "1.0.0"
description: test configuration
tiers:
  fast:
    budget_bytes: 1048576
eviction:
  recency_weight: 0.6
  frequency_weight: 0.4
`

func TestApp_Version(t *testing.T) {
	t.Parallel()

	stdout, _, err := runApp(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(stdout, "modelcache version") {
		t.Errorf("output = %q", stdout)
	}
}

func TestApp_ValidateValid(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, validYAML)
	stdout, _, err := runApp(t, "validate", "-c", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(stdout, "Configuration is valid") {
		t.Errorf("output = %q", stdout)
	}
	if !strings.Contains(stdout, "test-cache") {
		t.Errorf("output missing name: %q", stdout)
	}
}

func TestApp_ValidateInvalid(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "name: broken\n")
	if _, _, err := runApp(t, "validate", "-c", path); err == nil {
		t.Fatal("expected validation error for missing version")
	}
}

func TestApp_ValidateMissingFlag(t *testing.T) {
	t.Parallel()

	if _, _, err := runApp(t, "validate"); err == nil {
		t.Fatal("expected error without config path")
	}
}

func TestApp_ValidateSchema(t *testing.T) {
	t.Parallel()

	stdout, _, err := runApp(t, "validate", "--schema")
	if err != nil {
		t.Fatalf("validate --schema: %v", err)
	}
	if !strings.Contains(stdout, "Cache Configuration") {
		t.Errorf("output = %q", stdout)
	}
}

func TestApp_ExportSchemaToFile(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "schema.json")
	stdout, _, err := runApp(t, "export-schema", "-o", out)
	if err != nil {
		t.Fatalf("export-schema: %v", err)
	}
	if !strings.Contains(stdout, "Schema exported") {
		t.Errorf("output = %q", stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if !strings.Contains(string(data), "similarity_threshold") {
		t.Error("schema missing expected property")
	}
}

func TestApp_InspectSections(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, validYAML)

	for _, section := range []string{"all", "lookup", "tiers", "eviction", "resilience"} {
		stdout, _, err := runApp(t, "inspect", "-c", path, "--section", section)
		if err != nil {
			t.Fatalf("inspect %s: %v", section, err)
		}
		if stdout == "" {
			t.Errorf("inspect %s: empty output", section)
		}
	}

	if _, _, err := runApp(t, "inspect", "-c", path, "--section", "bogus"); err == nil {
		t.Fatal("expected error for unknown section")
	}
}

func TestApp_InspectJSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, validYAML)
	stdout, _, err := runApp(t, "inspect", "-c", path, "--json", "--section", "tiers")
	if err != nil {
		t.Fatalf("inspect --json: %v", err)
	}
	if !strings.Contains(stdout, "\"fast\"") {
		t.Errorf("output = %q", stdout)
	}
}

func TestApp_Bench(t *testing.T) {
	t.Parallel()

	stdout, _, err := runApp(t, "bench", "--entries", "50", "--lookups", "100", "--value-bytes", "32")
	if err != nil {
		t.Fatalf("bench: %v", err)
	}
	if !strings.Contains(stdout, "Hit rate:") {
		t.Errorf("output = %q", stdout)
	}
}

func TestApp_StatsOnFreshDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stdout, _, err := runApp(t, "stats", "-d", dir, "--keys")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(stdout, "Entries: 0") {
		t.Errorf("output = %q", stdout)
	}
}

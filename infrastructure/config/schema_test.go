package config

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema()

	if schema.Schema != "https://json-schema.org/draft/2020-12/schema" {
		t.Errorf("Schema = %s, want draft 2020-12", schema.Schema)
	}
	if schema.Type != "object" {
		t.Errorf("Type = %s, want object", schema.Type)
	}
	if len(schema.Required) != 2 {
		t.Errorf("Required has %d entries, want 2", len(schema.Required))
	}

	for _, prop := range []string{"name", "version", "lookup", "tiers", "eviction", "resilience", "logging", "telemetry"} {
		if _, ok := schema.Properties[prop]; !ok {
			t.Errorf("schema missing property %q", prop)
		}
	}
}

func TestGenerateSchema_Tiers(t *testing.T) {
	tiers := GenerateSchema().Properties["tiers"]

	for _, tier := range []string{"fast", "shared", "durable"} {
		if _, ok := tiers.Properties[tier]; !ok {
			t.Errorf("tiers schema missing %q", tier)
		}
	}

	fast := tiers.Properties["fast"]
	budget, ok := fast.Properties["budget_bytes"]
	if !ok {
		t.Fatal("fast tier schema missing budget_bytes")
	}
	if budget.Type != "integer" {
		t.Errorf("budget_bytes type = %s, want integer", budget.Type)
	}
	if budget.Minimum == nil || *budget.Minimum != 0 {
		t.Error("budget_bytes should have minimum 0")
	}
}

func TestGenerateSchema_LookupBounds(t *testing.T) {
	lookup := GenerateSchema().Properties["lookup"]

	threshold, ok := lookup.Properties["similarity_threshold"]
	if !ok {
		t.Fatal("lookup schema missing similarity_threshold")
	}
	if threshold.Minimum == nil || *threshold.Minimum != 0 {
		t.Error("similarity_threshold should have minimum 0")
	}
	if threshold.Maximum == nil || *threshold.Maximum != 1 {
		t.Error("similarity_threshold should have maximum 1")
	}
	if threshold.Default != 0.85 {
		t.Errorf("similarity_threshold default = %v, want 0.85", threshold.Default)
	}
}

func TestGenerateSchema_LoggingEnums(t *testing.T) {
	logging := GenerateSchema().Properties["logging"]

	level, ok := logging.Properties["level"]
	if !ok {
		t.Fatal("logging schema missing level")
	}
	if len(level.Enum) != 6 {
		t.Errorf("level enum has %d values, want 6", len(level.Enum))
	}

	format := logging.Properties["format"]
	if len(format.Enum) != 2 {
		t.Errorf("format enum has %d values, want 2", len(format.Enum))
	}
}

func TestSchemaJSON(t *testing.T) {
	out, err := SchemaJSON()
	if err != nil {
		t.Fatalf("SchemaJSON() error = %v", err)
	}

	// Must be valid JSON
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("SchemaJSON() produced invalid JSON: %v", err)
	}

	if !strings.Contains(out, "Cache Configuration") {
		t.Error("SchemaJSON() should contain the schema title")
	}
	if !strings.Contains(out, "similarity_threshold") {
		t.Error("SchemaJSON() should contain lookup properties")
	}
}

package config

import (
	"encoding/json"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	ID                   string                 `json:"$id,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	AdditionalProperties *JSONSchema            `json:"additionalProperties,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	MinLength            *int                   `json:"minLength,omitempty"`
	MaxLength            *int                   `json:"maxLength,omitempty"`
	Pattern              string                 `json:"pattern,omitempty"`
	Format               string                 `json:"format,omitempty"`
	Ref                  string                 `json:"$ref,omitempty"`
	Definitions          map[string]*JSONSchema `json:"$defs,omitempty"`
	OneOf                []*JSONSchema          `json:"oneOf,omitempty"`
	AnyOf                []*JSONSchema          `json:"anyOf,omitempty"`
	AllOf                []*JSONSchema          `json:"allOf,omitempty"`
}

// GenerateSchema generates a JSON Schema for the CacheConfig.
func GenerateSchema() *JSONSchema {
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          "https://github.com/felixgeelhaar/modelcache/cache-config.schema.json",
		Title:       "Cache Configuration",
		Description: "Configuration schema for the modelcache runtime",
		Type:        "object",
		Required:    []string{"name", "version"},
		Properties: map[string]*JSONSchema{
			"name": {
				Type:        "string",
				Description: "A human-readable name for this configuration",
			},
			"version": {
				Type:        "string",
				Description: "The configuration schema version",
				Default:     "1.0",
			},
			"description": {
				Type:        "string",
				Description: "Describes the deployment",
			},
			"lookup":     generateLookupSchema(),
			"tiers":      generateTiersSchema(),
			"eviction":   generateEvictionSchema(),
			"resilience": generateResilienceSchema(),
			"logging":    generateLoggingSchema(),
			"telemetry":  generateTelemetrySchema(),
		},
	}
}

func generateLookupSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Lookup pipeline settings",
		Properties: map[string]*JSONSchema{
			"similarity_threshold": {
				Type:        "number",
				Description: "Minimum cosine similarity for a semantic hit",
				Minimum:     floatPtr(0),
				Maximum:     floatPtr(1),
				Default:     0.85,
			},
			"prefix_matching": {
				Type:        "boolean",
				Description: "Enable the token prefix stage",
				Default:     true,
			},
			"similarity_search": {
				Type:        "boolean",
				Description: "Enable the semantic stage",
				Default:     true,
			},
		},
	}
}

func generateTiersSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Per-tier settings",
		Properties: map[string]*JSONSchema{
			"fast": {
				Type:        "object",
				Description: "In-memory tier",
				Properties: map[string]*JSONSchema{
					"budget_bytes": {
						Type:        "integer",
						Description: "Byte budget of the fast tier",
						Minimum:     floatPtr(0),
					},
					"cleanup_interval": {
						Type:        "string",
						Description: "How often expired entries are swept",
						Format:      "duration",
						Default:     "1m",
					},
				},
			},
			"shared": {
				Type:        "object",
				Description: "Redis tier",
				Properties: map[string]*JSONSchema{
					"enabled": {
						Type:    "boolean",
						Default: false,
					},
					"address": {
						Type:        "string",
						Description: "Redis server address (host:port)",
					},
					"password": {
						Type:        "string",
						Description: "Authentication password",
					},
					"db": {
						Type:        "integer",
						Description: "Redis database index",
						Minimum:     floatPtr(0),
						Default:     0,
					},
					"key_prefix": {
						Type:        "string",
						Description: "Namespace prefix for all keys",
						Default:     "modelcache:",
					},
					"pool_size": {
						Type:        "integer",
						Description: "Maximum socket connections",
						Minimum:     floatPtr(1),
						Default:     10,
					},
					"dial_timeout": {
						Type:    "string",
						Format:  "duration",
						Default: "5s",
					},
				},
			},
			"durable": {
				Type:        "object",
				Description: "BadgerDB tier",
				Properties: map[string]*JSONSchema{
					"enabled": {
						Type:    "boolean",
						Default: false,
					},
					"dir": {
						Type:        "string",
						Description: "Directory to store data in",
					},
					"sync_writes": {
						Type:        "boolean",
						Description: "Synchronous writes for durability",
						Default:     false,
					},
					"gc_interval": {
						Type:        "string",
						Description: "Interval between value log GC runs",
						Format:      "duration",
						Default:     "5m",
					},
				},
			},
		},
	}
}

func generateEvictionSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Eviction and TTL policy settings",
		Properties: map[string]*JSONSchema{
			"recency_weight": {
				Type:        "number",
				Description: "Weight of recency in the hybrid score",
				Minimum:     floatPtr(0),
				Maximum:     floatPtr(1),
				Default:     0.6,
			},
			"frequency_weight": {
				Type:        "number",
				Description: "Weight of access frequency in the hybrid score",
				Minimum:     floatPtr(0),
				Maximum:     floatPtr(1),
				Default:     0.4,
			},
			"base_ttl": {
				Type:        "string",
				Description: "TTL for the lowest priority",
				Format:      "duration",
				Default:     "10m",
			},
			"min_ttl": {
				Type:    "string",
				Format:  "duration",
				Default: "1m",
			},
			"max_ttl": {
				Type:    "string",
				Format:  "duration",
				Default: "24h",
			},
		},
	}
}

func generateResilienceSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Resilience settings for network tiers",
		Properties: map[string]*JSONSchema{
			"timeout": {
				Type:        "string",
				Description: "Per-operation timeout against a network tier",
				Format:      "duration",
				Default:     "2s",
			},
			"retry": {
				Type:        "object",
				Description: "Retry behavior",
				Properties: map[string]*JSONSchema{
					"enabled": {
						Type:    "boolean",
						Default: true,
					},
					"max_attempts": {
						Type:    "integer",
						Minimum: floatPtr(1),
						Default: 3,
					},
					"initial_delay": {
						Type:    "string",
						Format:  "duration",
						Default: "50ms",
					},
					"max_delay": {
						Type:   "string",
						Format: "duration",
					},
					"multiplier": {
						Type:    "number",
						Minimum: floatPtr(1),
						Default: 2.0,
					},
				},
			},
			"circuit_breaker": {
				Type:        "object",
				Description: "Circuit breaker behavior",
				Properties: map[string]*JSONSchema{
					"enabled": {
						Type:    "boolean",
						Default: true,
					},
					"threshold": {
						Type:        "integer",
						Description: "Failures before opening",
						Minimum:     floatPtr(1),
						Default:     5,
					},
					"timeout": {
						Type:        "string",
						Description: "How long circuit stays open",
						Format:      "duration",
						Default:     "30s",
					},
				},
			},
			"bulkhead": {
				Type:        "object",
				Description: "Bulkhead behavior",
				Properties: map[string]*JSONSchema{
					"enabled": {
						Type:    "boolean",
						Default: true,
					},
					"max_concurrent": {
						Type:        "integer",
						Description: "Maximum concurrent operations",
						Minimum:     floatPtr(1),
						Default:     32,
					},
				},
			},
		},
	}
}

func generateLoggingSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Logging settings",
		Properties: map[string]*JSONSchema{
			"level": {
				Type:        "string",
				Description: "Minimum log level",
				Enum:        []string{"trace", "debug", "info", "warn", "error", "fatal"},
				Default:     "info",
			},
			"format": {
				Type:        "string",
				Description: "Output format",
				Enum:        []string{"json", "console"},
				Default:     "console",
			},
		},
	}
}

func generateTelemetrySchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Metrics settings",
		Properties: map[string]*JSONSchema{
			"enabled": {
				Type:        "boolean",
				Description: "Enable OpenTelemetry metrics",
				Default:     false,
			},
			"meter_name": {
				Type:        "string",
				Description: "Override the default meter name",
			},
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}

// SchemaJSON returns the JSON Schema as a JSON string.
func SchemaJSON() (string, error) {
	schema := GenerateSchema()
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

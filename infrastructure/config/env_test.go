package config

import (
	"errors"
	"testing"

	domainconfig "github.com/felixgeelhaar/modelcache/domain/config"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("CACHE_REDIS_ADDR", "redis-prod:6379")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bracket syntax", "${CACHE_REDIS_ADDR}", "redis-prod:6379"},
		{"dollar syntax", "$CACHE_REDIS_ADDR", "redis-prod:6379"},
		{"embedded in text", "address: ${CACHE_REDIS_ADDR}", "address: redis-prod:6379"},
		{"repeated reference", "${CACHE_REDIS_ADDR} ${CACHE_REDIS_ADDR}", "redis-prod:6379 redis-prod:6379"},
		{"unset becomes empty", "${CACHE_UNSET_VAR}", ""},
		{"plain text untouched", "budget_bytes: 1048576", "budget_bytes: 1048576"},
		{"incomplete syntax untouched", "${incomplete", "${incomplete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandEnv_Defaults(t *testing.T) {
	t.Setenv("CACHE_KEY_PREFIX", "prod:")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unset uses default", "${CACHE_UNSET_VAR:-modelcache:}", "modelcache:"},
		{"set wins over default", "${CACHE_KEY_PREFIX:-modelcache:}", "prod:"},
		{"empty default", "${CACHE_UNSET_VAR:-}", ""},
		{"default containing colon", "${CACHE_UNSET_VAR:-localhost:6379}", "localhost:6379"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandEnvStrict(t *testing.T) {
	t.Run("required reference fails when unset", func(t *testing.T) {
		_, err := ExpandEnvStrict("${CACHE_REDIS_PASSWORD:?password is required}")
		if !errors.Is(err, domainconfig.ErrMissingEnvVar) {
			t.Errorf("error = %v, want ErrMissingEnvVar", err)
		}
	})

	t.Run("plain reference fails when unset", func(t *testing.T) {
		_, err := ExpandEnvStrict("${CACHE_UNSET_VAR}")
		if !errors.Is(err, domainconfig.ErrMissingEnvVar) {
			t.Errorf("error = %v, want ErrMissingEnvVar", err)
		}
	})

	t.Run("set variables expand", func(t *testing.T) {
		t.Setenv("CACHE_DURABLE_DIR", "/var/lib/modelcache")
		got, err := ExpandEnvStrict("dir: ${CACHE_DURABLE_DIR}")
		if err != nil {
			t.Fatalf("ExpandEnvStrict() error = %v", err)
		}
		if got != "dir: /var/lib/modelcache" {
			t.Errorf("ExpandEnvStrict() = %q", got)
		}
	})
}

func TestExpandEnv_TierConfig(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache-shared:6379")
	t.Setenv("REDIS_PASSWORD", "s3cret")

	input := `
tiers:
  shared:
    enabled: true
    address: ${REDIS_ADDR}
    password: ${REDIS_PASSWORD}
    key_prefix: ${KEY_PREFIX:-modelcache:}
`
	want := `
tiers:
  shared:
    enabled: true
    address: cache-shared:6379
    password: s3cret
    key_prefix: modelcache:
`
	if got := ExpandEnv(input); got != want {
		t.Errorf("ExpandEnv() =\n%s\nwant:\n%s", got, want)
	}
}

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	domainconfig "github.com/felixgeelhaar/modelcache/domain/config"
)

// Expansion patterns, compiled once. Bracketed references support the
// shell-style ":-default" and ":?message" modifiers.
var (
	bracketRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*|:\?[^}]*)?\}`)
	simpleRef  = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// envExpander expands environment variable references in configuration
// strings. In strict mode an unset variable is an error instead of an
// empty string.
type envExpander struct {
	strict  bool
	missing []string
}

// resolveBracket resolves one ${VAR}, ${VAR:-default}, or ${VAR:?message}
// reference. The raw match is returned unchanged for failed required
// references so the error message can show them.
func (e *envExpander) resolveBracket(match string) string {
	inner := match[2 : len(match)-1]

	name, modifier, _ := strings.Cut(inner, ":")
	value, exists := os.LookupEnv(name)

	switch {
	case strings.HasPrefix(modifier, "-"):
		if !exists || value == "" {
			return modifier[1:]
		}
	case strings.HasPrefix(modifier, "?"):
		if !exists || value == "" {
			e.missing = append(e.missing, fmt.Sprintf("%s: %s", name, modifier[1:]))
			return match
		}
	default:
		if !exists {
			if e.strict {
				e.missing = append(e.missing, name)
			}
			return ""
		}
	}
	return value
}

// resolveSimple resolves a bare $VAR reference.
func (e *envExpander) resolveSimple(match string) string {
	name := match[1:]
	value, exists := os.LookupEnv(name)
	if !exists {
		if e.strict {
			e.missing = append(e.missing, name)
		}
		return ""
	}
	return value
}

// Expand replaces every environment variable reference in the input.
// Bracketed references are resolved first, then any remaining bare
// $VAR references.
func (e *envExpander) Expand(input string) (string, error) {
	e.missing = nil

	result := bracketRef.ReplaceAllStringFunc(input, e.resolveBracket)
	result = simpleRef.ReplaceAllStringFunc(result, e.resolveSimple)

	if len(e.missing) > 0 {
		return "", fmt.Errorf("%w: %s", domainconfig.ErrMissingEnvVar, strings.Join(e.missing, ", "))
	}
	return result, nil
}

// ExpandEnv expands environment variable references, treating unset
// variables as empty strings.
func ExpandEnv(input string) string {
	e := &envExpander{strict: false}
	result, _ := e.Expand(input)
	return result
}

// ExpandEnvStrict expands environment variable references and fails on
// unset variables.
func ExpandEnvStrict(input string) (string, error) {
	e := &envExpander{strict: true}
	return e.Expand(input)
}

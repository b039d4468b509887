package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	api "github.com/felixgeelhaar/modelcache/interfaces/api"
)

// inspectOptions holds options for the inspect command.
type inspectOptions struct {
	configPath string
	outputJSON bool
	section    string
}

// newInspectCmd creates the inspect command.
func (a *App) newInspectCmd() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect configuration details",
		Long: `Inspect and display detailed configuration information.

Sections:
  all         Show all configuration (default)
  lookup      Show lookup pipeline settings
  tiers       Show tier configuration
  eviction    Show eviction settings
  resilience  Show resilience configuration

Examples:
  # Inspect full configuration
  modelcache inspect -c config.yaml

  # Inspect specific section
  modelcache inspect -c config.yaml --section tiers

  # Output as JSON
  modelcache inspect -c config.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.inspectConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().BoolVar(&opts.outputJSON, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&opts.section, "section", "all", "Section to inspect (all, lookup, tiers, eviction, resilience)")

	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// inspectConfig inspects the configuration.
func (a *App) inspectConfig(opts *inspectOptions) error {
	loader := api.NewConfigLoader()
	config, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.outputJSON {
		return a.inspectJSON(config, opts.section)
	}

	return a.inspectText(config, opts.section)
}

// inspectJSON outputs configuration as JSON.
func (a *App) inspectJSON(config *api.CacheConfig, section string) error {
	var output any

	switch section {
	case "all":
		output = config
	case "lookup":
		output = config.Lookup
	case "tiers":
		output = config.Tiers
	case "eviction":
		output = config.Eviction
	case "resilience":
		output = config.Resilience
	default:
		return fmt.Errorf("unknown section: %s", section)
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	fmt.Fprintln(a.stdout, string(data))
	return nil
}

// inspectText outputs configuration as formatted text.
func (a *App) inspectText(config *api.CacheConfig, section string) error {
	if section == "all" || section == "" {
		fmt.Fprintf(a.stdout, "Configuration: %s (v%s)\n", config.Name, config.Version)
		if config.Description != "" {
			fmt.Fprintf(a.stdout, "Description: %s\n", config.Description)
		}
		fmt.Fprintln(a.stdout)
	}

	switch section {
	case "all":
		a.printLookup(config)
		a.printTiers(config)
		a.printEviction(config)
		a.printResilience(config)
	case "lookup":
		a.printLookup(config)
	case "tiers":
		a.printTiers(config)
	case "eviction":
		a.printEviction(config)
	case "resilience":
		a.printResilience(config)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}

	return nil
}

func (a *App) printLookup(config *api.CacheConfig) {
	fmt.Fprintln(a.stdout, "Lookup:")
	if config.Lookup.SimilarityThreshold > 0 {
		fmt.Fprintf(a.stdout, "  Similarity threshold: %.2f\n", config.Lookup.SimilarityThreshold)
	} else {
		fmt.Fprintln(a.stdout, "  Similarity threshold: default (0.85)")
	}
	fmt.Fprintf(a.stdout, "  Prefix matching: %s\n", toggleState(config.Lookup.PrefixMatching))
	fmt.Fprintf(a.stdout, "  Similarity search: %s\n", toggleState(config.Lookup.SimilaritySearch))
	fmt.Fprintln(a.stdout)
}

func (a *App) printTiers(config *api.CacheConfig) {
	fmt.Fprintln(a.stdout, "Tiers:")
	fmt.Fprintf(a.stdout, "  Fast: budget %d bytes, cleanup %s\n",
		config.Tiers.Fast.BudgetBytes, config.Tiers.Fast.CleanupInterval.Duration())
	if config.Tiers.Shared.Enabled {
		fmt.Fprintf(a.stdout, "  Shared: redis %s (db %d, prefix %q)\n",
			config.Tiers.Shared.Address, config.Tiers.Shared.DB, config.Tiers.Shared.KeyPrefix)
	} else {
		fmt.Fprintln(a.stdout, "  Shared: disabled")
	}
	if config.Tiers.Durable.Enabled {
		fmt.Fprintf(a.stdout, "  Durable: badger %s (sync writes: %t)\n",
			config.Tiers.Durable.Dir, config.Tiers.Durable.SyncWrites)
	} else {
		fmt.Fprintln(a.stdout, "  Durable: disabled")
	}
	fmt.Fprintln(a.stdout)
}

func (a *App) printEviction(config *api.CacheConfig) {
	fmt.Fprintln(a.stdout, "Eviction:")
	fmt.Fprintf(a.stdout, "  Recency weight: %.2f\n", config.Eviction.RecencyWeight)
	fmt.Fprintf(a.stdout, "  Frequency weight: %.2f\n", config.Eviction.FrequencyWeight)
	fmt.Fprintf(a.stdout, "  Base TTL: %s (min %s, max %s)\n",
		config.Eviction.BaseTTL.Duration(), config.Eviction.MinTTL.Duration(), config.Eviction.MaxTTL.Duration())
	fmt.Fprintln(a.stdout)
}

func (a *App) printResilience(config *api.CacheConfig) {
	fmt.Fprintln(a.stdout, "Resilience:")
	fmt.Fprintf(a.stdout, "  Operation timeout: %s\n", config.Resilience.Timeout.Duration())
	if config.Resilience.Retry.Enabled {
		fmt.Fprintf(a.stdout, "  Retry: %d attempts, initial delay %s, multiplier %.1f\n",
			config.Resilience.Retry.MaxAttempts,
			config.Resilience.Retry.InitialDelay.Duration(),
			config.Resilience.Retry.Multiplier)
	} else {
		fmt.Fprintln(a.stdout, "  Retry: disabled")
	}
	if config.Resilience.CircuitBreaker.Enabled {
		fmt.Fprintf(a.stdout, "  Circuit breaker: threshold %d, timeout %s\n",
			config.Resilience.CircuitBreaker.Threshold,
			config.Resilience.CircuitBreaker.Timeout.Duration())
	} else {
		fmt.Fprintln(a.stdout, "  Circuit breaker: disabled")
	}
	if config.Resilience.Bulkhead.Enabled {
		fmt.Fprintf(a.stdout, "  Bulkhead: max concurrent %d\n",
			config.Resilience.Bulkhead.MaxConcurrent)
	} else {
		fmt.Fprintln(a.stdout, "  Bulkhead: disabled")
	}
	fmt.Fprintln(a.stdout)
}

// toggleState renders a tri-state toggle: nil means default-on.
func toggleState(v *bool) string {
	switch {
	case v == nil:
		return "enabled (default)"
	case *v:
		return "enabled"
	default:
		return "disabled"
	}
}

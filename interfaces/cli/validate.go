package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	api "github.com/felixgeelhaar/modelcache/interfaces/api"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
	showSchema bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a cache configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Required fields (name, version)
  - Field types and constraints
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  modelcache validate -c config.yaml

  # Strict validation (fail on missing env vars)
  modelcache validate -c config.yaml --strict

  # Show the JSON schema for configuration
  modelcache validate --schema`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showSchema {
				return a.showConfigSchema()
			}
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")
	cmd.Flags().BoolVar(&opts.showSchema, "schema", false, "Show JSON schema for configuration")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	loaderOpts := []api.ConfigLoaderOption{
		api.ConfigWithValidation(true),
	}
	if opts.strict {
		loaderOpts = append(loaderOpts, api.ConfigWithStrictEnv(true))
	}

	loader := api.NewConfigLoaderWithOptions(loaderOpts...)
	config, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional validation via the builder
	builder := api.NewConfigBuilder(config)
	result, err := builder.Build()
	if err != nil {
		return fmt.Errorf("configuration build failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	fmt.Fprintf(a.stdout, "  Name: %s\n", config.Name)
	fmt.Fprintf(a.stdout, "  Version: %s\n", config.Version)
	if config.Description != "" {
		fmt.Fprintf(a.stdout, "  Description: %s\n", config.Description)
	}

	fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	fmt.Fprintf(a.stdout, "  Fast tier budget: %d bytes\n", result.FastBudgetBytes)
	fmt.Fprintf(a.stdout, "  Cleanup interval: %s\n", result.CleanupInterval)
	fmt.Fprintf(a.stdout, "  Similarity threshold: %.2f\n", result.SimilarityThreshold)

	if result.Shared != nil {
		fmt.Fprintf(a.stdout, "  Shared tier: redis %s (db %d)\n", result.Shared.Address, result.Shared.DB)
	} else {
		fmt.Fprintf(a.stdout, "  Shared tier: disabled\n")
	}
	if result.Durable != nil {
		fmt.Fprintf(a.stdout, "  Durable tier: badger %s\n", result.Durable.Dir)
	} else {
		fmt.Fprintf(a.stdout, "  Durable tier: disabled\n")
	}

	fmt.Fprintf(a.stdout, "  Eviction weights: recency %.2f, frequency %.2f\n",
		result.Eviction.RecencyWeight, result.Eviction.FrequencyWeight)
	fmt.Fprintf(a.stdout, "  TTL baseline: %s (min %s, max %s)\n",
		result.Eviction.BaseTTL, result.Eviction.MinTTL, result.Eviction.MaxTTL)

	if !result.PrefixMatching {
		fmt.Fprintf(a.stdout, "  Prefix matching: disabled\n")
	}
	if !result.SimilaritySearch {
		fmt.Fprintf(a.stdout, "  Similarity search: disabled\n")
	}
	if result.TelemetryEnabled {
		fmt.Fprintf(a.stdout, "  Telemetry: enabled\n")
	}

	return nil
}

// showConfigSchema displays the configuration JSON schema.
func (a *App) showConfigSchema() error {
	schemaJSON, err := api.ConfigSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}
	fmt.Fprintln(a.stdout, schemaJSON)
	return nil
}

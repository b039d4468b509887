package cli

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	api "github.com/felixgeelhaar/modelcache/interfaces/api"
)

// benchOptions holds options for the bench command.
type benchOptions struct {
	configPath string
	entries    int
	lookups    int
	valueBytes int
	seed       int64
}

// newBenchCmd creates the bench command.
func (a *App) newBenchCmd() *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Exercise a cache with a synthetic workload",
		Long: `Build a cache from configuration (or defaults) and run a synthetic
put/get workload against it, reporting throughput and hit rate.

Half of the lookups target stored entries, half target absent ones, so
the expected hit rate is around 50%.

Examples:
  # Defaults: in-memory only
  modelcache bench

  # Against a configured cache
  modelcache bench -c config.yaml --entries 10000 --lookups 50000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBench(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (default: built-in defaults)")
	cmd.Flags().IntVar(&opts.entries, "entries", 1000, "Number of entries to store")
	cmd.Flags().IntVar(&opts.lookups, "lookups", 5000, "Number of lookups to run")
	cmd.Flags().IntVar(&opts.valueBytes, "value-bytes", 256, "Payload size per entry")
	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "Workload random seed")

	return cmd
}

// runBench stores synthetic entries and measures lookup throughput.
func (a *App) runBench(cmd *cobra.Command, opts *benchOptions) error {
	var (
		m   *api.Manager
		err error
	)
	if opts.configPath != "" {
		m, err = api.NewManagerFromFile(opts.configPath)
	} else {
		m, err = api.NewManager()
	}
	if err != nil {
		return fmt.Errorf("failed to build cache: %w", err)
	}
	defer func() { _ = m.Close() }()

	ctx := cmd.Context()
	rng := rand.New(rand.NewSource(opts.seed))

	value := make([]byte, opts.valueBytes)
	rng.Read(value)

	putStart := time.Now()
	for i := 0; i < opts.entries; i++ {
		req := api.Request{
			Text:     fmt.Sprintf("bench entry %d", i),
			Modality: api.ModalityText,
		}
		if _, err := m.Put(ctx, req, value); err != nil {
			return fmt.Errorf("put %d failed: %w", i, err)
		}
	}
	putDur := time.Since(putStart)

	getStart := time.Now()
	for i := 0; i < opts.lookups; i++ {
		// Even draws target stored entries, odd draws absent ones.
		n := rng.Intn(opts.entries * 2)
		req := api.Request{
			Text:     fmt.Sprintf("bench entry %d", n),
			Modality: api.ModalityText,
		}
		if _, err := m.Get(ctx, req); err != nil {
			return fmt.Errorf("get failed: %w", err)
		}
	}
	getDur := time.Since(getStart)

	stats := m.Stats(ctx)

	fmt.Fprintf(a.stdout, "Puts:    %d in %s (%.0f/s)\n",
		opts.entries, putDur.Round(time.Millisecond), float64(opts.entries)/putDur.Seconds())
	fmt.Fprintf(a.stdout, "Lookups: %d in %s (%.0f/s)\n",
		opts.lookups, getDur.Round(time.Millisecond), float64(opts.lookups)/getDur.Seconds())
	fmt.Fprintf(a.stdout, "Hit rate: %.1f%%\n", stats.HitRate*100)
	fmt.Fprintf(a.stdout, "Fast tier: %d entries, %d bytes\n", stats.Fast.Entries, stats.Fast.Bytes)
	return nil
}

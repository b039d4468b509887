package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	badgerstore "github.com/felixgeelhaar/modelcache/infrastructure/storage/badger"
)

// statsOptions holds options for the stats command.
type statsOptions struct {
	dir       string
	keyPrefix string
	limit     int
	showKeys  bool
}

// newStatsCmd creates the stats command.
func (a *App) newStatsCmd() *cobra.Command {
	opts := &statsOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics for a durable tier directory",
		Long: `Open a BadgerDB durable tier directory and report its contents.

The directory must not be open in another process.

Examples:
  # Entry count and value log size
  modelcache stats -d /var/lib/modelcache

  # List stored keys
  modelcache stats -d /var/lib/modelcache --keys --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showStats(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "Durable tier directory (required)")
	cmd.Flags().StringVar(&opts.keyPrefix, "key-prefix", "", "Key prefix to filter on")
	cmd.Flags().IntVar(&opts.limit, "limit", 10, "Maximum number of keys to list")
	cmd.Flags().BoolVar(&opts.showKeys, "keys", false, "List stored keys")

	_ = cmd.MarkFlagRequired("dir")

	return cmd
}

// showStats opens the durable tier and prints entry statistics.
func (a *App) showStats(cmd *cobra.Command, opts *statsOptions) error {
	store, err := badgerstore.NewStore(badgerstore.Config{Dir: opts.dir})
	if err != nil {
		return fmt.Errorf("failed to open durable tier: %w", err)
	}
	defer func() { _ = store.Close() }()

	stats := store.Stats()
	lsm, vlog := store.DB().Size()

	fmt.Fprintf(a.stdout, "Durable tier: %s\n", opts.dir)
	fmt.Fprintf(a.stdout, "  Entries: %d\n", stats.Size)
	fmt.Fprintf(a.stdout, "  LSM size: %d bytes\n", lsm)
	fmt.Fprintf(a.stdout, "  Value log size: %d bytes\n", vlog)

	if !opts.showKeys {
		return nil
	}

	keys, err := store.Keys(cmd.Context(), opts.keyPrefix)
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}

	fmt.Fprintf(a.stdout, "\nKeys (%d total):\n", len(keys))
	for i, key := range keys {
		if i >= opts.limit {
			fmt.Fprintf(a.stdout, "  ... and %d more\n", len(keys)-opts.limit)
			break
		}
		fmt.Fprintf(a.stdout, "  %s\n", key)
	}
	return nil
}

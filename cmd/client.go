package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kalbasit/mule/pkg/cache"
	"github.com/kalbasit/mule/pkg/rls"
)

func clientCacheFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "cache",
			Usage:   "base URL of the cache daemon, e.g. http://host:3881",
			Sources: cli.EnvVars("MULE_CACHED"),
		},
	}
}

func clientRLSFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "rls",
			Usage:   "base URL of the RLS daemon, e.g. http://host:3880",
			Sources: cli.EnvVars("MULE_RLS"),
		},
	}
}

func cacheClient(cmd *cli.Command) (*cache.Client, error) {
	addr := cmd.String("cache")
	if addr == "" {
		return nil, ErrCacheAddrRequired
	}

	return cache.NewClient(addr), nil
}

func rlsClient(cmd *cli.Command) (*rls.Client, error) {
	addr := cmd.String("rls")
	if addr == "" {
		return nil, ErrRLSAddrRequired
	}

	return rls.NewClient(addr), nil
}

// parsePair splits a "key=value" CLI argument into its two halves.
func parsePair(s string) (string, string, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", fmt.Errorf("%w: %q (expected key=value)", ErrMalformedPairArg, s)
	}

	return k, v, nil
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "materialize a single LFN at a local path",
		ArgsUsage: "<lfn> <path>",
		Flags: append(clientCacheFlags(), &cli.BoolFlag{
			Name: "symlink", Usage: "materialize via symlink instead of copy",
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := cacheClient(cmd)
			if err != nil {
				return err
			}

			status, err := c.Get(ctx, cmd.Args().Get(0), cmd.Args().Get(1), cmd.Bool("symlink"))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.Writer, status)

			return nil
		},
	}
}

func multigetCommand() *cli.Command {
	return &cli.Command{
		Name:      "multiget",
		Usage:     "materialize many LFNs, one per lfn=path argument",
		ArgsUsage: "<lfn=path>...",
		Flags: append(clientCacheFlags(), &cli.BoolFlag{
			Name: "symlink", Usage: "materialize via symlink instead of copy",
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := cacheClient(cmd)
			if err != nil {
				return err
			}

			pairs := make([]cache.Pair, 0, cmd.Args().Len())

			for _, arg := range cmd.Args().Slice() {
				lfn, path, err := parsePair(arg)
				if err != nil {
					return err
				}

				pairs = append(pairs, cache.Pair{LFN: lfn, Path: path})
			}

			return c.MultiGet(ctx, pairs, cmd.Bool("symlink"))
		},
	}
}

func putCommand() *cli.Command {
	return &cli.Command{
		Name:      "put",
		Usage:     "publish a local file as an LFN",
		ArgsUsage: "<path> <lfn>",
		Flags: append(clientCacheFlags(), &cli.BoolFlag{
			Name: "rename", Usage: "rename the source file into the store instead of copying",
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := cacheClient(cmd)
			if err != nil {
				return err
			}

			return c.Put(ctx, cmd.Args().Get(0), cmd.Args().Get(1), cmd.Bool("rename"))
		},
	}
}

func multiputCommand() *cli.Command {
	return &cli.Command{
		Name:      "multiput",
		Usage:     "publish many local files, one per path=lfn argument",
		ArgsUsage: "<path=lfn>...",
		Flags: append(clientCacheFlags(), &cli.BoolFlag{
			Name: "rename", Usage: "rename the source files into the store instead of copying",
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := cacheClient(cmd)
			if err != nil {
				return err
			}

			pairs := make([]cache.Pair, 0, cmd.Args().Len())

			for _, arg := range cmd.Args().Slice() {
				path, lfn, err := parsePair(arg)
				if err != nil {
					return err
				}

				pairs = append(pairs, cache.Pair{LFN: lfn, Path: path})
			}

			return c.MultiPut(ctx, pairs, cmd.Bool("rename"))
		},
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "remove a record, its file, and its self-PFN RLS entry",
		ArgsUsage: "<lfn>",
		Flags: append(clientCacheFlags(), &cli.BoolFlag{
			Name: "force", Usage: "remove even if the record is not ready",
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := cacheClient(cmd)
			if err != nil {
				return err
			}

			return c.Remove(ctx, cmd.Args().Get(0), cmd.Bool("force"))
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list every record held by the cache",
		Flags: clientCacheFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := cacheClient(cmd)
			if err != nil {
				return err
			}

			records, err := c.List(ctx)
			if err != nil {
				return err
			}

			for _, r := range records {
				fmt.Fprintf(cmd.Writer, "%s\t%s\n", r.Status, r.LFN)
			}

			return nil
		},
	}
}

func rlsAddCommand() *cli.Command {
	return &cli.Command{
		Name:      "rls-add",
		Usage:     "add an (lfn, pfn) pair via the cache's RLS pass-through",
		ArgsUsage: "<lfn> <pfn>",
		Flags:     clientCacheFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := cacheClient(cmd)
			if err != nil {
				return err
			}

			return c.RLSAdd(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
		},
	}
}

func rlsDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "rls-delete",
		Usage:     "delete an (lfn, pfn) pair, or every pair for lfn if pfn is omitted",
		ArgsUsage: "<lfn> [pfn]",
		Flags:     clientCacheFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := cacheClient(cmd)
			if err != nil {
				return err
			}

			return c.RLSDelete(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
		},
	}
}

func rlsLookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "rls-lookup",
		Usage:     "list every PFN registered for an LFN",
		ArgsUsage: "<lfn>",
		Flags:     clientCacheFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := cacheClient(cmd)
			if err != nil {
				return err
			}

			pfns, err := c.RLSLookup(ctx, cmd.Args().Get(0))
			if err != nil {
				return err
			}

			for _, pfn := range pfns {
				fmt.Fprintln(cmd.Writer, pfn)
			}

			return nil
		},
	}
}

func bloomCommand() *cli.Command {
	return &cli.Command{
		Name:  "bloom",
		Usage: "print the base64 chunks of a Bloom filter over the cache's LFNs",
		Flags: append(clientCacheFlags(),
			&cli.IntFlag{Name: "m", Usage: "bit array size", Value: 8192 * 8},
			&cli.IntFlag{Name: "k", Usage: "number of hash functions", Value: 4},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := cacheClient(cmd)
			if err != nil {
				return err
			}

			chunks, err := c.GetBloomFilter(ctx, cmd.Int("m"), cmd.Int("k"))
			if err != nil {
				return err
			}

			for _, chunk := range chunks {
				fmt.Fprintln(cmd.Writer, chunk)
			}

			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print the cache's counters",
		Flags: clientCacheFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := cacheClient(cmd)
			if err != nil {
				return err
			}

			s, err := c.Stats(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.Writer, "gets=%d puts=%d hits=%d misses=%d near_misses=%d failures=%d duplicates=%d\n",
				s.Gets, s.Puts, s.Hits, s.Misses, s.NearMisses, s.Failures, s.Duplicates)

			return nil
		},
	}
}

func clearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "drop every record held by the cache",
		Flags: clientCacheFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := cacheClient(cmd)
			if err != nil {
				return err
			}

			return c.Clear(ctx)
		},
	}
}

func rlsClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "rls-clear",
		Usage: "drop every entry in the RLS the cache is configured against",
		Flags: clientCacheFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := cacheClient(cmd)
			if err != nil {
				return err
			}

			return c.RLSClear(ctx)
		},
	}
}

// The rls-direct-* commands bypass the cache entirely and talk to the RLS
// daemon directly, useful for cluster administration or benchmarking.

func rlsDirectAddCommand() *cli.Command {
	return &cli.Command{
		Name:      "rls-direct-add",
		Usage:     "add an (lfn, pfn) pair directly on the RLS daemon",
		ArgsUsage: "<lfn> <pfn>",
		Flags:     clientRLSFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := rlsClient(cmd)
			if err != nil {
				return err
			}

			return c.Add(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
		},
	}
}

func rlsDirectDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "rls-direct-delete",
		Usage:     "delete directly on the RLS daemon",
		ArgsUsage: "<lfn> [pfn]",
		Flags:     clientRLSFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := rlsClient(cmd)
			if err != nil {
				return err
			}

			return c.Delete(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
		},
	}
}

func rlsDirectLookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "rls-direct-lookup",
		Usage:     "lookup directly on the RLS daemon",
		ArgsUsage: "<lfn>",
		Flags:     clientRLSFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := rlsClient(cmd)
			if err != nil {
				return err
			}

			pfns, err := c.Lookup(ctx, cmd.Args().Get(0))
			if err != nil {
				return err
			}

			for _, pfn := range pfns {
				fmt.Fprintln(cmd.Writer, pfn)
			}

			return nil
		},
	}
}

func rlsDirectClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "rls-direct-clear",
		Usage: "drop every entry directly on the RLS daemon",
		Flags: clientRLSFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := rlsClient(cmd)
			if err != nil {
				return err
			}

			return c.Clear(ctx)
		},
	}
}

func rlsDirectAddBenchCommand() *cli.Command {
	return &cli.Command{
		Name:      "rls-direct-add-bench",
		Usage:     "benchmark concurrent rls-direct-add calls against a shared LFN, exercising same-key write contention",
		ArgsUsage: "<lfn> <count>",
		Flags:     clientRLSFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := rlsClient(cmd)
			if err != nil {
				return err
			}

			lfn := cmd.Args().Get(0)

			count := 10
			if s := cmd.Args().Get(1); s != "" {
				if _, err := fmt.Sscanf(s, "%d", &count); err != nil {
					return fmt.Errorf("error parsing count %q: %w", s, err)
				}
			}

			start := time.Now()

			errs := make(chan error, count)

			for i := range count {
				go func(i int) {
					errs <- c.Add(ctx, lfn, fmt.Sprintf("http://bench-%d:3881/%s", i, lfn))
				}(i)
			}

			var firstErr error

			for range count {
				if err := <-errs; err != nil && firstErr == nil {
					firstErr = err
				}
			}

			fmt.Fprintf(cmd.Writer, "added %d entries for %s in %s\n", count, lfn, time.Since(start))

			return firstErr
		},
	}
}

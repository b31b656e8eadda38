package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/kalbasit/mule/pkg/cache"
	"github.com/kalbasit/mule/pkg/config"
	"github.com/kalbasit/mule/pkg/contentstore"
	"github.com/kalbasit/mule/pkg/lock/local"
	"github.com/kalbasit/mule/pkg/rls"
	"github.com/kalbasit/mule/pkg/rpc"
	"github.com/kalbasit/mule/pkg/server"
	"github.com/kalbasit/mule/pkg/store"
)

// defaultRLSPort and defaultCachePort match the documented TCP ports: RLS
// on 3880, Cache on 3881.
const (
	defaultRLSPort   = "3880"
	defaultCachePort = "3881"
)

func rlsdCommand() *cli.Command {
	return &cli.Command{
		Name:  "rlsd",
		Usage: "run the Replica Location Service daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "address to listen on",
				Sources: cli.EnvVars("MULE_RLSD_ADDR"),
				Value:   ":" + defaultRLSPort,
			},
		},
		Action: rlsdAction(),
	}
}

func rlsdAction() cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		logger := zerolog.Ctx(ctx).With().Str("cmd", "rlsd").Logger()
		ctx = logger.WithContext(ctx)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return autoMaxProcs(ctx, 30*time.Second, logger) })

		st, err := store.Open(ctx, filepath.Join(homeDir(cmd), "var", "rls", "rls.db"))
		if err != nil {
			return fmt.Errorf("error opening the rls store: %w", err)
		}
		defer st.Close()

		st.SetLocker(local.NewLocker())

		service, err := rls.New(st)
		if err != nil {
			return fmt.Errorf("error creating the rls service: %w", err)
		}

		rpcSrv := rpc.NewServer()
		service.RegisterRPC(rpcSrv)

		srv := server.New(logger, nil, rpcSrv)

		return listenAndServe(ctx, logger, cmd.String("addr"), srv)
	}
}

func cachedCommand() *cli.Command {
	return &cli.Command{
		Name:  "cached",
		Usage: "run the per-node cache daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "address to listen on",
				Sources: cli.EnvVars("MULE_CACHED_ADDR"),
				Value:   ":" + defaultCachePort,
			},
			&cli.StringFlag{
				Name:     "hostname",
				Usage:    "hostname:port this node advertises to peers as its self-PFN",
				Sources:  cli.EnvVars("MULE_CACHED_HOSTNAME"),
				Required: true,
			},
			&cli.StringFlag{
				Name:    "cache-dir",
				Usage:   "content store root",
				Sources: cli.EnvVars("MULE_CACHE_DIR"),
			},
			&cli.StringFlag{
				Name:    "rls",
				Usage:   "base URL of the RLS daemon, e.g. http://host:3880",
				Sources: cli.EnvVars("MULE_RLS"),
			},
			&cli.IntFlag{
				Name:    "block-size",
				Usage:   "stream buffer size used when downloading",
				Sources: cli.EnvVars("MULE_BLOCK_SIZE"),
			},
			&cli.BoolFlag{
				Name:    "symlink",
				Usage:   "default symlink setting recorded on the cache (get and multiget take the choice from each request)",
				Sources: cli.EnvVars("MULE_SYMLINK"),
			},
			&cli.BoolFlag{
				Name:    "rename",
				Usage:   "default rename setting recorded on the cache (put and multiput take the choice from each request)",
				Sources: cli.EnvVars("MULE_RENAME"),
			},
		},
		Action: cachedAction(),
	}
}

func cachedAction() cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		logger := zerolog.Ctx(ctx).With().Str("cmd", "cached").Logger()
		ctx = logger.WithContext(ctx)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return autoMaxProcs(ctx, 30*time.Second, logger) })

		defaults := config.FromEnvironment()

		cacheDir := cmd.String("cache-dir")
		if cacheDir == "" {
			cacheDir = defaults.CacheDir
		}

		rlsAddr := cmd.String("rls")
		if rlsAddr == "" {
			rlsAddr = defaults.RLSAddr
		}

		if rlsAddr == "" {
			return ErrRLSAddrRequired
		}

		st, err := store.Open(ctx, filepath.Join(homeDir(cmd), "var", "cache", "cache.db"))
		if err != nil {
			return fmt.Errorf("error opening the cache store: %w", err)
		}
		defer st.Close()

		st.SetLocker(local.NewLocker())

		content, err := contentstore.New(cacheDir)
		if err != nil {
			return fmt.Errorf("error opening the content store: %w", err)
		}

		blockSize := cmd.Int("block-size")
		if blockSize == 0 {
			blockSize = defaults.BlockSize
		}

		c, err := cache.New(ctx, st, content, rls.NewClient(rlsAddr), cmd.String("hostname"),
			cache.WithBlockSize(blockSize),
			cache.WithDefaultSymlink(cmd.Bool("symlink") || defaults.Symlink),
			cache.WithDefaultRename(cmd.Bool("rename") || defaults.Rename),
		)
		if err != nil {
			return fmt.Errorf("error creating the cache: %w", err)
		}
		defer c.Close()

		rpcSrv := rpc.NewServer()
		c.RegisterRPC(rpcSrv)

		srv := server.New(logger, c, rpcSrv)

		return listenAndServe(ctx, logger, cmd.String("addr"), srv)
	}
}

func listenAndServe(ctx context.Context, logger zerolog.Logger, addr string, handler http.Handler) error {
	httpServer := &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("error shutting down http server")
		}
	}()

	logger.Info().Str("addr", addr).Msg("server started")

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("error starting the http listener: %w", err)
	}

	return nil
}

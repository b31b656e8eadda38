// Package cmd assembles the mule command-line surface: the two daemons
// (cached, rlsd) and the client command set that talks to them over RPC.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Version defines the version of the binary, meant to be set with ldflags
// at build time.
//
//nolint:gochecknoglobals
var Version = "dev"

// logMaxSizeKB is passed to lumberjack's MaxSize, which counts whole
// megabytes, so the daemon log rotates at 1 MB, not 100 KiB; logMaxBackups
// keeps 1 backup.
const (
	logMaxSizeKB   = 1
	logMaxBackups  = 1
	logFileName    = "mule.log"
	logDirVarSeg   = "var"
	defaultHomeDir = ".mule"
)

// New returns the root mule command.
func New() *cli.Command {
	return &cli.Command{
		Name:    "mule",
		Usage:   "distributed file-staging cache for scientific workflow execution",
		Version: Version,
		Before:  setupLogger,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "set the log level",
				Sources: cli.EnvVars("MULE_LOG_LEVEL"),
				Value:   "info",
				Validator: func(lvl string) error {
					_, err := zerolog.ParseLevel(lvl)

					return err
				},
			},
			&cli.StringFlag{
				Name:    "home",
				Usage:   "home directory under which var/cache, var/rls, and log files live",
				Sources: cli.EnvVars("MULE_HOME"),
				Value:   defaultHomeDir,
			},
		},
		Commands: []*cli.Command{
			cachedCommand(),
			rlsdCommand(),
			getCommand(),
			multigetCommand(),
			putCommand(),
			multiputCommand(),
			removeCommand(),
			listCommand(),
			rlsAddCommand(),
			rlsDeleteCommand(),
			rlsLookupCommand(),
			bloomCommand(),
			statsCommand(),
			clearCommand(),
			rlsClearCommand(),
			rlsDirectAddCommand(),
			rlsDirectDeleteCommand(),
			rlsDirectLookupCommand(),
			rlsDirectClearCommand(),
			rlsDirectAddBenchCommand(),
		},
	}
}

func setupLogger(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	lvl, err := zerolog.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return ctx, fmt.Errorf("error parsing the log-level: %w", err)
	}

	var output io.Writer = os.Stdout

	if term.IsTerminal(int(os.Stdout.Fd())) {
		output = zerolog.ConsoleWriter{Out: colorable.NewColorableStdout(), TimeFormat: time.RFC3339}
	}

	if home := cmd.String("home"); home != "" {
		logPath := filepath.Join(home, logDirVarSeg, logFileName)

		rotator := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    logMaxSizeKB,
			MaxBackups: logMaxBackups,
		}

		output = zerolog.MultiLevelWriter(output, rotator)
	}

	ctx = zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		Logger().
		WithContext(ctx)

	zerolog.Ctx(ctx).Info().Str("log_level", lvl.String()).Msg("logger created")

	return ctx, nil
}

func homeDir(cmd *cli.Command) string {
	return cmd.Root().String("home")
}

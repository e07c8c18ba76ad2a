package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/goforj/flyweight"
	"github.com/goforj/flyweight/internal/backend"
	"github.com/goforj/flyweight/internal/cliconfig"
)

var exampleUsage = strings.TrimSpace(`
  flyweight
  flyweight draw Red --x 10 --y 20 --radius 25
  flyweight --driver sql --sql-dsn "file:shapes.db" stats Red Blue
  flyweight --config $HOME/.flyweight/config.toml reset
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := cliconfig.Logger()
	if err := newRootCommand(os.Stdout, log).ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("flyweight")
		os.Exit(1)
	}
}

// app carries what every subcommand needs once configuration is resolved.
type app struct {
	cfg     cliconfig.Config
	cfgPath string
	out     io.Writer
	log     zerolog.Logger
}

func newRootCommand(out io.Writer, log zerolog.Logger) *cobra.Command {
	a := &app{cfg: cliconfig.DefaultConfig(), out: out, log: log}

	root := &cobra.Command{
		Use:           "flyweight",
		Short:         "Share shape objects by colour and show the reuse",
		Long:          "Requests Red, Blue and Green circles from a flyweight factory and draws each one.\nRecords and request counts are kept in the configured registry store.",
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.resolveConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withFactory(cmd.Context(), func(ctx context.Context, f *flyweight.Factory) error {
				return flyweight.Demo(ctx, a.out, f)
			})
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.flyweight/config.toml)")
	flags.StringVar(&a.cfg.Driver, "driver", a.cfg.Driver, "registry store: null, memory, file, redis, sql, nats, dynamodb")
	flags.StringVar(&a.cfg.Prefix, "prefix", a.cfg.Prefix, "key prefix on shared stores")
	flags.BoolVar(&a.cfg.Memo, "memo", a.cfg.Memo, "memoize registry reads within this process")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&a.cfg.FileDir, "file-dir", a.cfg.FileDir, "directory for the file store")
	flags.StringVar(&a.cfg.RedisAddr, "redis-addr", a.cfg.RedisAddr, "redis address")
	flags.StringVar(&a.cfg.RedisPassword, "redis-password", a.cfg.RedisPassword, "redis password")
	flags.IntVar(&a.cfg.RedisDB, "redis-db", a.cfg.RedisDB, "redis database number")
	flags.StringVar(&a.cfg.SQLDriver, "sql-driver", a.cfg.SQLDriver, "database/sql driver: sqlite, mysql, pgx")
	flags.StringVar(&a.cfg.SQLDSN, "sql-dsn", a.cfg.SQLDSN, "database/sql data source name")
	flags.StringVar(&a.cfg.SQLTable, "sql-table", a.cfg.SQLTable, "registry table name")
	flags.StringVar(&a.cfg.NATSURL, "nats-url", a.cfg.NATSURL, "NATS server URL")
	flags.StringVar(&a.cfg.NATSBucket, "nats-bucket", a.cfg.NATSBucket, "JetStream key-value bucket")
	flags.StringVar(&a.cfg.DynamoEndpoint, "dynamo-endpoint", a.cfg.DynamoEndpoint, "DynamoDB endpoint override (dynamodb-local)")
	flags.StringVar(&a.cfg.DynamoRegion, "dynamo-region", a.cfg.DynamoRegion, "AWS region")
	flags.StringVar(&a.cfg.DynamoTable, "dynamo-table", a.cfg.DynamoTable, "DynamoDB table name")

	root.AddCommand(a.newDrawCommand(), a.newStatsCommand(), a.newResetCommand())
	return root
}

// resolveConfig layers file, env and flags (highest wins) and sets the log level.
func (a *app) resolveConfig(cmd *cobra.Command) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cliconfig.ApplyFileConfig(&a.cfg, fc, changed)
	} else if a.cfgPath != "" {
		return fmt.Errorf("config file %s not found", a.cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	level, _ := cliconfig.ParseLevel(a.cfg.LogLevel)
	a.log = a.log.Level(level)

	logCfg := a.cfg
	if logCfg.RedisPassword != "" {
		logCfg.RedisPassword = "*****"
	}
	a.log.Debug().Interface("config", logCfg).Msg("configuration")
	return nil
}

// withFactory opens the configured store, builds a factory over it and runs fn.
func (a *app) withFactory(ctx context.Context, fn func(context.Context, *flyweight.Factory) error) error {
	store, closeStore, err := backend.Open(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			a.log.Warn().Err(err).Msg("close store")
		}
	}()

	f := flyweight.NewFactory(
		flyweight.WithRegistry(flyweight.NewRegistry(store)),
		flyweight.WithObserver(flyweight.Observers(
			flyweight.AnnounceTo(a.out),
			logObserver(a.log),
		)),
	)
	return fn(ctx, f)
}

func logObserver(log zerolog.Logger) flyweight.Observer {
	return flyweight.ObserverFunc(func(_ context.Context, op, kind, color string, hit bool, err error, dur time.Duration) {
		ev := log.Debug()
		if err != nil {
			ev = log.Error().Err(err)
		}
		ev.Str("op", op).
			Str("kind", kind).
			Str("color", color).
			Bool("hit", hit).
			Dur("took", dur).
			Msg("shape op")
	})
}

// Package cmd implements the dubboard CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/muesli/termenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/dubboard/internal/board"
	"github.com/twiced-technology-gmbh/dubboard/internal/cache"
	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/feed"
	"github.com/twiced-technology-gmbh/dubboard/internal/output"
	"github.com/twiced-technology-gmbh/dubboard/internal/store"
	"github.com/twiced-technology-gmbh/dubboard/internal/tui"
	"github.com/twiced-technology-gmbh/dubboard/internal/workspace"
)

// version is set at build time via ldflags.
var version = "dev"

// Global flags.
var (
	flagJSON     bool
	flagTable    bool
	flagCompact  bool
	flagDir      string
	flagNoColor  bool
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "dubboard",
	Short: "Production board for dubbing studios",
	Long: `dubboard tracks dubbing work (translation, casting, recording, mixing, QC
and delivery) on a shared board. Run dubboard with no arguments to open the
live terminal board; the other commands script the same board.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runTUI,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if flagNoColor || termenv.EnvNoColor() {
			output.DisableColor()
			tui.DisableStyles()
		}
		return setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagTable, "table", false, "output as table")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "compact", false, "compact one-line-per-record output")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "oneline", false, "alias for --compact")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "path to board directory")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable color output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error); env DUBBOARD_LOG_LEVEL")
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	_, err := rootCmd.ExecuteContextC(ctx)
	stop()
	if err == nil {
		return
	}

	var silent *clierr.SilentError
	if !errors.As(err, &silent) {
		if jsonMode() {
			output.JSONError(os.Stdout, err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	os.Exit(clierr.ExitCode(err))
}

func jsonMode() bool {
	return outputFormat() == output.FormatJSON
}

// setupLogging configures the standard logger. Logs always go to stderr so
// they never mix with command output.
func setupLogging() error {
	level := flagLogLevel
	if level == "" {
		level = os.Getenv("DUBBOARD_LOG_LEVEL")
	}
	if level == "" {
		level = "warn"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return clierr.Newf(clierr.InvalidInput, "invalid log level %q", level)
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)
	if jsonMode() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{DisableColors: flagNoColor || termenv.EnvNoColor()})
	}
	return nil
}

// resolveDir returns the board directory: --dir, or the nearest board
// directory above the working directory.
func resolveDir() (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return config.FindDir(cwd)
}

// loadConfig finds and loads the board config.
func loadConfig() (*config.Config, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}
	return config.Load(dir)
}

// outputFormat returns the detected output format from flags/env.
func outputFormat() output.Format {
	return output.Detect(flagJSON, flagTable, flagCompact)
}

// parseIDs splits a comma-separated ID string into deduplicated IDs.
func parseIDs(arg string) ([]string, error) {
	return board.ParseIDs(arg)
}

// backend is a mounted board with the stack its config selects.
type backend struct {
	cfg     *config.Config
	files   *store.Files
	session *workspace.Session
	closers []func() error
}

// openBoard wires the configured change feed and cache into a session and
// mounts the board. Writes are always announced on the configured feed;
// only watching sessions subscribe to it, one-shot commands listen on an
// in-process hub instead.
func openBoard(ctx context.Context, cfg *config.Config, watch bool) (*backend, error) {
	log := logrus.StandardLogger().WithField("board", cfg.BoardID())
	b := &backend{cfg: cfg}

	var (
		sub      feed.Subscriber
		fileOpts = []store.Option{store.WithLogger(log.WithField("component", "store"))}
	)
	switch cfg.Feed.Driver {
	case config.FeedRedis:
		rc := redis.NewClient(&redis.Options{Addr: cfg.FeedRedisAddr()})
		b.closers = append(b.closers, rc.Close)
		r := feed.NewRedis(rc, cfg.Feed.ChannelPrefix, log.WithField("component", "feed"))
		sub = r
		fileOpts = append(fileOpts, store.WithPublisher(r))
	case config.FeedFS:
		sub = feed.NewFS(cfg.TasksPath(), cfg.BoardID(), log.WithField("component", "feed"))
	default:
		hub := feed.NewHub()
		sub = hub
		fileOpts = append(fileOpts, store.WithPublisher(hub))
	}

	if !watch {
		sub = feed.NewHub()
	}

	var st cache.Store
	if cfg.Cache.Driver == config.CacheRedis {
		rc := redis.NewClient(&redis.Options{Addr: cfg.CacheRedisAddr()})
		b.closers = append(b.closers, rc.Close)
		st = cache.NewRedisStore(rc, cfg.Feed.ChannelPrefix)
	}

	b.files = store.NewFiles(cfg, fileOpts...)
	b.session = workspace.New(cfg, workspace.Options{
		Backend: b.files,
		Feed:    sub,
		Store:   st,
		Logger:  log.WithField("component", "workspace"),
	})
	if err := b.session.Mount(ctx, cfg.BoardID()); err != nil {
		b.Close()
		return nil, clierr.Wrap(clierr.FeedUnavailable, err, "watching board %s", cfg.BoardID())
	}
	return b, nil
}

// Close unmounts the board and releases connections.
func (b *backend) Close() {
	if b.session != nil {
		b.session.Unmount()
	}
	for _, c := range b.closers {
		if err := c(); err != nil {
			logrus.WithError(err).Debug("closing connection")
		}
	}
}

// runBatch executes fn for each ID and collects results. Returns a SilentError
// with exit code 1 if any operation failed (after outputting results).
func runBatch(ids []string, fn func(string) error) error {
	failed := make(map[string]error)
	for _, id := range ids {
		if err := fn(id); err != nil {
			failed[id] = err
		}
	}
	return reportBatch(ids, failed)
}

// reportBatch prints per-id outcomes.
func reportBatch(ids []string, failed map[string]error) error {
	results := make([]output.BatchResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, output.BatchResultOf(id, failed[id]))
	}

	if outputFormat() == output.FormatJSON {
		if err := output.JSON(os.Stdout, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if !r.OK {
				fmt.Fprintf(os.Stderr, "Error: task #%s: %s\n", r.ID, r.Error)
			}
		}
		output.Messagef(os.Stdout, "Completed %d/%d operations", len(ids)-len(failed), len(ids))
	}

	if len(failed) > 0 {
		return &clierr.SilentError{Code: 1}
	}
	return nil
}

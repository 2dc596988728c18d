package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"dashfeed/internal/config"
	"dashfeed/internal/core"
	"dashfeed/internal/feed"
	"dashfeed/internal/fetch"
	"dashfeed/internal/logging"
	"dashfeed/internal/present"
	"dashfeed/internal/sources"
	"dashfeed/internal/storage"
	_ "dashfeed/internal/storage/memory"
	_ "dashfeed/internal/storage/redis"
	_ "dashfeed/internal/storage/sqlite"
	"dashfeed/internal/types"
)

const defaultWidth = 80

type options struct {
	configPath string
	limit      int
	output     string
	verbose    bool
	noCache    bool
	showAge    bool
	deadline   time.Duration
	version    bool

	limitSet  bool
	outputSet bool
	ageSet    bool
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelOnSignal(cancel, os.Stderr, syscall.SIGINT, syscall.SIGTERM)

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "dashfeed: %v\n", err)
		os.Exit(1)
	}
}

// cancelOnSignal cancels the run on the first of sigs. Only the first is
// caught; a second one gets the default behaviour and ends the process.
func cancelOnSignal(cancel context.CancelFunc, stderr io.Writer, sigs ...os.Signal) chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, sigs...)

	go func() {
		sig := <-sigChan
		signal.Stop(sigChan)
		fmt.Fprintf(stderr, "\nReceived signal: %v, printing what has arrived so far\n", sig)
		cancel()
	}()

	return sigChan
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := pflag.NewFlagSet("dashfeed", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (default: user config dir)")
	fs.IntVarP(&opts.limit, "limit", "n", config.DefaultLimit, "How many entries to return")
	fs.StringVarP(&opts.output, "output", "o", config.OutputText, "Output format: text, rss, atom or json")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug details to stderr")
	fs.BoolVar(&opts.noCache, "no-cache", false, "Bypass the HTTP response cache")
	fs.BoolVar(&opts.showAge, "age", false, "Append how long ago each entry was published")
	fs.DurationVar(&opts.deadline, "deadline", 0, "Give up on feeds still loading after this long")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.limitSet = fs.Changed("limit")
	opts.outputSet = fs.Changed("output")
	opts.ageSet = fs.Changed("age")

	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if opts.version {
		fmt.Fprintln(stdout, fetch.UserAgent())
		return nil
	}

	if opts.configPath == "" {
		opts.configPath, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	if err := applyFlags(cfg, opts); err != nil {
		return err
	}

	level := cfg.LogLevel
	if opts.verbose {
		level = "debug"
	}
	logger := logging.New(level, stderr).With("run_id", uuid.NewString())

	store, err := storage.New(cfg.StorageConfig(), logger)
	if err != nil {
		logger.Warn("HTTP cache unavailable, fetching without it", "type", cfg.Cache.Type, "error", err)
		store = nil
	}
	if store != nil {
		defer func() {
			if err := store.Close(context.Background()); err != nil {
				logger.Warn("Failed to close HTTP cache", "error", err)
			}
		}()
	}

	fetchCfg := fetch.Config{
		Timeout:      cfg.FetchTimeout(),
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Logger:       logger,
	}
	if store != nil {
		fetchCfg.Cache = store
	}
	fetcher := fetch.New(fetchCfg)
	sources.UseFetcher(fetcher)

	srcs, err := cfg.Sources(ctx)
	if err != nil {
		return err
	}

	logger.Debug("Starting run", "config", opts.configPath, "sources", len(srcs), "limit", *cfg.Limit)

	runCtx := ctx
	if opts.deadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.deadline)
		defer cancel()
	}

	pipeline := core.NewPipeline(fetcher, feed.Parse, logger).WithConcurrency(cfg.Concurrency)

	result, err := pipeline.Aggregate(runCtx, srcs, *cfg.Limit)
	if err != nil {
		return err
	}

	reportFailures(logger, result.Failures)

	return write(stdout, cfg, result.Items)
}

func applyFlags(cfg *config.Config, opts *options) error {
	if opts.limitSet {
		if opts.limit < 0 {
			return types.ErrNegativeLimit
		}
		cfg.Limit = &opts.limit
	}

	if opts.outputSet {
		switch opts.output {
		case config.OutputText, config.OutputRSS, config.OutputAtom, config.OutputJSON:
			cfg.Output = opts.output
		default:
			return fmt.Errorf("unsupported output format: %s", opts.output)
		}
	}

	if opts.ageSet {
		cfg.ShowAge = opts.showAge
	}

	if opts.noCache {
		cfg.Cache.Type = storage.TypeNone
	}

	return nil
}

func reportFailures(logger *slog.Logger, failures []types.SourceFailure) {
	for _, f := range failures {
		attrs := []any{"url", f.Source.URL, "error", f.Err}
		if kind, ok := types.ParseErrorKindOf(f.Err); ok {
			attrs = append(attrs, "parse_error", kind.String())
		}
		logger.Info("Feed skipped", attrs...)
	}
}

func write(stdout io.Writer, cfg *config.Config, items []types.FeedItem) error {
	if cfg.Output != config.OutputText {
		return present.Export(stdout, cfg.Output, items, present.ExportOptions{
			Title:       "dashfeed",
			Description: "Latest entries across subscribed feeds",
		})
	}

	out := termenv.NewOutput(stdout)
	renderer := present.NewTextRenderer(out, present.TextOptions{
		Width:      terminalWidth(stdout),
		Hyperlinks: hyperlinks(stdout),
		ShowAge:    cfg.ShowAge,
	})
	return renderer.Render(items)
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return defaultWidth
}

func hyperlinks(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && present.SupportsHyperlinks(f)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"transittracker.app/internal/app"
	"transittracker.app/internal/config"
	"transittracker.app/internal/console"
	"transittracker.app/internal/geo"
	"transittracker.app/internal/report"
	"transittracker.app/internal/stops"
	"transittracker.app/internal/transit"
)

const version = "1.0.0"

type options struct {
	configFile string
	serve      bool
	search     string
	schedule   string
	near       string
	noPager    bool
	version    bool
}

func main() {
	cfg := config.NewConfig()

	var (
		opts     options
		env      string
		port     int
		provider string
	)
	flag.StringVar(&opts.configFile, "config", "", "Path to a YAML configuration file")
	flag.StringVar(&env, "env", cfg.Env, "Environment (development|staging|production)")
	flag.IntVar(&port, "port", cfg.Port, "Web board port (with -serve)")
	flag.StringVar(&provider, "provider", cfg.Provider, "Transit data provider (winnipeg|oba|gtfs)")
	flag.BoolVar(&opts.serve, "serve", false, "Run the web board instead of the console")
	flag.StringVar(&opts.search, "search", "", "Search for stops matching this query and exit")
	flag.StringVar(&opts.schedule, "schedule", "", "Show the schedule of this stop number and exit")
	flag.StringVar(&opts.near, "near", "", "Reference point \"lat,lon\" for stop distances")
	flag.BoolVar(&opts.noPager, "no-pager", false, "List stops without pausing between them")
	flag.BoolVar(&opts.version, "version", false, "Print the version and exit")
	flag.Parse()

	if opts.version {
		fmt.Println("transittracker", version)
		return
	}

	if err := config.ValidateConfigFlags(opts.serve, opts.search, opts.schedule, flag.Args()); err != nil {
		fmt.Println("Error:", err)
		flag.Usage()
		os.Exit(2)
	}

	if err := loadConfig(cfg, opts.configFile); err != nil {
		fmt.Println("Error loading configuration:", err)
		os.Exit(1)
	}
	// flags given explicitly win over the file and the environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "env":
			cfg.Env = env
		case "port":
			cfg.Port = port
		case "provider":
			cfg.Provider = provider
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	logOut := io.Writer(os.Stderr)
	if opts.serve {
		logOut = os.Stdout
	}
	logger := slog.New(slog.NewTextHandler(logOut, nil))

	if err := report.SetupSentry(cfg.Env, version); err != nil {
		logger.Warn("Sentry disabled", "error", err)
	}
	defer report.FlushSentry()
	report.ConfigureScope(cfg.Env, version, cfg.Provider)

	var near *geo.Point
	if opts.near != "" {
		p, err := geo.ParsePoint(opts.near)
		if err != nil {
			fmt.Println("Error:", err)
			os.Exit(2)
		}
		near = &p
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var term *console.Console
	if !opts.serve {
		term = console.New(os.Stdin, os.Stdout, nil, logger)
	}

	source, err := newSource(ctx, cfg, logger, term, opts.serve)
	if err != nil {
		logger.Error("Failed to set up provider", "provider", cfg.Provider, "error", err)
		report.ReportError(err, sentry.LevelFatal)
		exit(stop, 1)
	}
	warnOutsideCoverage(source, near, logger)

	if opts.serve {
		exit(stop, serve(ctx, cfg, source, logger, near))
	}
	exit(stop, runConsole(ctx, term, source, logger, near, opts))
}

// exit runs the deferred cleanup that os.Exit would skip.
func exit(stop context.CancelFunc, code int) {
	stop()
	report.FlushSentry()
	os.Exit(code)
}

// loadConfig overlays the optional config file and then the environment.
func loadConfig(cfg *config.Config, path string) error {
	if path != "" {
		if err := config.LoadConfigFromFile(path, cfg); err != nil {
			return err
		}
	}
	return config.ApplyEnv(cfg, os.Getenv)
}

func runConsole(ctx context.Context, term *console.Console, source stops.Source, logger *slog.Logger, near *geo.Point, opts options) int {
	term.SetSource(source)
	term.Near = near
	term.Paged = !opts.noPager

	action, subject := "", ""
	switch {
	case opts.search != "":
		action, subject = console.ActionSearch, opts.search
	case opts.schedule != "":
		action, subject = console.ActionSchedule, opts.schedule
	}

	err := term.Run(ctx, action, subject)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	default:
		logger.Error("Request failed", "provider", source.Name(), "error", err)
		report.ReportError(err)
		return 1
	}
}

func serve(ctx context.Context, cfg *config.Config, source stops.Source, logger *slog.Logger, near *geo.Point) int {
	board := app.New(cfg, source, logger, version)
	board.Near = near

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           board.Routes(ctx),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		// a schedule lookup may spend its whole retry budget upstream
		WriteTimeout: time.Duration(transit.DEFAULT_TOTAL_RETRIES+1)*cfg.Timeout + 10*time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "provider", source.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		logger.Error(err.Error())
		report.ReportError(err, sentry.LevelFatal)
		return 1
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return 1
	}
	logger.Info("server shut down successfully")
	return 0
}

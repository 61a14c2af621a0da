package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"grouptrip.org/gtfsdb"
	"grouptrip.org/internal/app"
	"grouptrip.org/internal/appconf"
	"grouptrip.org/internal/config"
	"grouptrip.org/internal/logging"
	"grouptrip.org/internal/restapi"
)

type CLI struct {
	Config string `help:"Path to a YAML config file." type:"path" env:"PLANNER_CONFIG"`
	Env    string `help:"Environment (development|test|production); overrides the config file."`

	Serve  ServeCmd  `cmd:"" default:"1" help:"Serve the planning API."`
	Import ImportCmd `cmd:"" help:"Import a GTFS feed into the schedule database."`
}

type ServeCmd struct {
	ShutdownTimeout time.Duration `help:"Grace period for in-flight requests on shutdown." default:"15s"`
}

type ImportCmd struct {
	GTFS  string    `help:"Path to a GTFS zip file." type:"existingfile" xor:"source" required:""`
	URL   string    `help:"URL of a GTFS zip file." xor:"source" required:""`
	From  time.Time `help:"First service date to materialize (YYYY-MM-DD); defaults to yesterday." format:"2006-01-02"`
	Days  int       `help:"Number of service days to materialize." default:"7"`
	Force bool      `help:"Import even when the feed is unchanged."`
}

// runtime carries what every command needs.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("planner"),
		kong.Description("Group trip transit planner."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cli.Env != "" {
		if _, err := appconf.EnvFlagToEnvironment(cli.Env); err != nil {
			kctx.FatalIfErrorf(err)
		}
		cfg.Env = cli.Env
	}

	logger := logging.NewStructuredLogger(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	kctx.FatalIfErrorf(kctx.Run(&runtime{cfg: cfg, logger: logger}))
}

func (c *ServeCmd) Run(rt *runtime) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.Start(ctx); err != nil {
		return err
	}

	api := restapi.NewRestAPI(application)
	defer api.Close()

	srv := &http.Server{
		Addr:         rt.cfg.Addr(),
		Handler:      api.Handler(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(rt.logger.Handler(), slog.LevelError),
	}

	serverErr := make(chan error, 1)
	go func() {
		rt.logger.Info("starting server", "addr", srv.Addr, "env", rt.cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	rt.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	rt.logger.Info("server stopped")
	return nil
}

func (c *ImportCmd) Run(rt *runtime) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	defer logging.SafeCloseWithLogging(store, rt.logger, "schedule_database")

	opts := gtfsdb.ImportOptions{
		WindowStart: c.From,
		Days:        c.Days,
		Force:       c.Force,
	}
	if c.URL != "" {
		err = store.DownloadAndStore(ctx, c.URL, opts)
	} else {
		err = store.ImportFromFile(ctx, c.GTFS, opts)
	}
	if err != nil {
		return err
	}

	counts, err := store.TableCounts(ctx)
	if err != nil {
		return err
	}
	attrs := []slog.Attr{slog.Duration("duration", store.ImportRuntime())}
	for table, n := range counts {
		attrs = append(attrs, slog.Int(table, n))
	}
	logging.LogOperation(rt.logger, "gtfs_import_finished", attrs...)
	return nil
}

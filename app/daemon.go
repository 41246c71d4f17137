package app

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gen2brain/beeep"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ayoisaiah/codetime/internal/control"
	"github.com/ayoisaiah/codetime/internal/devserver"
	"github.com/ayoisaiah/codetime/internal/logging"
	"github.com/ayoisaiah/codetime/internal/pathutil"
	"github.com/ayoisaiah/codetime/internal/remote"
	"github.com/ayoisaiah/codetime/store"
	"github.com/ayoisaiah/codetime/syncer"
	"github.com/ayoisaiah/codetime/tracker"
)

// pushes allowed per client per minute by the development aggregator.
const devRateLimit = 120

// firstNonEmptyString returns its first non-empty argument, or "" if all
// arguments are empty.
func firstNonEmptyString(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}

	return ""
}

func notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// daemonAction runs the tracker and the control API until interrupted.
func daemonAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(pathutil.LogFilePath(), cfg.Log, cfg.CLI.Debug)
	if err != nil {
		return err
	}

	defer closer.Close()

	slog.SetDefault(logger)

	logger.Debug("loaded config", slog.String("config", cfg.String()))

	db, err := store.NewClient(pathutil.DBFilePath())
	if errors.Is(err, store.ErrAlreadyRunning) {
		return errDaemonRunning
	}

	if err != nil {
		return err
	}

	defer db.Close()

	s := syncer.New(
		db,
		remote.New(&cfg.Sync, logger),
		syncer.WithLogger(logger),
		syncer.WithSource(cfg.Sync.Source),
	)

	t := tracker.New(
		cfg,
		db,
		s,
		tracker.WithLogger(logger),
		tracker.WithStatusFile(pathutil.StatusFilePath()),
		tracker.WithNotifier(notify),
	)

	srv := control.NewServer(cfg.Control.Listen, t, db, logger)

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pterm.Info.Printfln(
		"Tracking %s. Control API on http://%s",
		cfg.Workspace(),
		cfg.Control.Listen,
	)

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return t.Run(gctx)
	})

	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	return g.Wait()
}

// devServerAction runs the SQLite backed aggregator used in development.
func devServerAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(pathutil.LogFilePath(), cfg.Log, true)
	if err != nil {
		return err
	}

	defer closer.Close()

	dbPath := firstNonEmptyString(
		ctx.String("db"),
		cfg.DevServer.DBPath,
		pathutil.DevDBFilePath(),
	)

	addr := firstNonEmptyString(ctx.String("addr"), cfg.DevServer.Listen)

	db, err := devserver.OpenDB(dbPath)
	if err != nil {
		return err
	}

	defer db.Close()

	srv := devserver.New(db, devserver.Options{
		Logger:    logger.With("component", "aggregator"),
		Addr:      addr,
		APIKey:    cfg.DevServer.APIKey,
		RateLimit: devRateLimit,
	})

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pterm.Info.Printfln(
		"Aggregator listening on http://%s%s (database: %s)",
		addr,
		devserver.PushPath,
		dbPath,
	)

	return srv.ListenAndServe(runCtx)
}

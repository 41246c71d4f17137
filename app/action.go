package app

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/ayoisaiah/codetime/internal/config"
	"github.com/ayoisaiah/codetime/internal/control"
	"github.com/ayoisaiah/codetime/internal/logging"
	"github.com/ayoisaiah/codetime/internal/models"
	"github.com/ayoisaiah/codetime/internal/pathutil"
	"github.com/ayoisaiah/codetime/internal/remote"
	"github.com/ayoisaiah/codetime/internal/timeutil"
	"github.com/ayoisaiah/codetime/internal/ui"
	"github.com/ayoisaiah/codetime/stats"
	"github.com/ayoisaiah/codetime/store"
	"github.com/ayoisaiah/codetime/syncer"
	"github.com/ayoisaiah/codetime/tracker"
	"github.com/ayoisaiah/codetime/watch"
)

const (
	envUpdateNotifier  = "CODETIME_UPDATE_NOTIFIER"
	envNoColor         = "NO_COLOR"
	envCodetimeNoColor = "CODETIME_NO_COLOR"
)

// loadConfig merges the config file with the command-line flags.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	if err := pathutil.Initialize(); err != nil {
		return nil, err
	}

	cfg, err := config.New(
		config.WithViperConfig(pathutil.ConfigFilePath()),
		config.WithCLIConfig(ctx),
	)
	if err != nil {
		return nil, err
	}

	ui.DarkTheme = cfg.Display.DarkTheme

	return cfg, nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(config.Stdout, string(b))

	return err
}

// withTracker runs online against the daemon when its control API answers,
// and offline against the database when no daemon holds it.
func withTracker(
	ctx *cli.Context,
	online func(cfg *config.Config, c *control.Client) error,
	offline func(cfg *config.Config, db store.DB) error,
) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	client := control.NewClient(cfg.Control.Listen)

	err = client.Health(ctx.Context)
	if err == nil {
		return online(cfg, client)
	}

	if !errors.Is(err, control.ErrUnavailable) {
		return err
	}

	db, err := store.NewClient(pathutil.DBFilePath())
	if errors.Is(err, store.ErrAlreadyRunning) {
		return errDaemonUnreachable.Fmt(cfg.Control.Listen)
	}

	if err != nil {
		return err
	}

	defer db.Close()

	return offline(cfg, db)
}

// requireDaemon runs fn against the control API of a running daemon.
func requireDaemon(
	ctx *cli.Context,
	fn func(c *control.Client) error,
) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	err = fn(control.NewClient(cfg.Control.Listen))
	if errors.Is(err, control.ErrUnavailable) {
		pterm.Warning.Println("codetime is not running. Start it with `codetime daemon`")
		return nil
	}

	return err
}

func printStatus(s *models.Status) {
	pterm.Println(tracker.StatusText(s))

	language := s.Language
	if language == "" {
		language = "-"
	}

	user := s.Username
	if user == "" {
		user = ui.Yellow("not logged in")
	}

	rows := [][]string{
		{"Workspace", s.Workspace},
		{"Project time", timeutil.FormatHMS(s.ProjectSeconds)},
		{"Today", fmt.Sprintf(
			"%s logged, %s focused",
			ui.Green(timeutil.FormatDuration(s.TodayTotal)),
			ui.Green(timeutil.FormatDuration(s.TodayFocused)),
		)},
		{"Language", language},
		{"Tracking", ui.Toggle(s.Enabled, "on", "paused")},
		{"Editor", ui.Toggle(s.Focused, "focused", "unfocused")},
		{"User", user},
		{"Last sync", timeutil.FormatLastSync(s.LastSync, time.Now())},
	}

	_ = pterm.DefaultTable.WithData(rows).Render()
}

// statusAction prints the status published by the running tracker.
func statusAction(ctx *cli.Context) error {
	if err := pathutil.Initialize(); err != nil {
		return err
	}

	s, err := tracker.ReadStatus(pathutil.DBFilePath(), pathutil.StatusFilePath())
	if err != nil {
		return err
	}

	if s == nil {
		pterm.Info.Println("codetime is not running")
		return nil
	}

	if ctx.Bool("json") {
		return printJSON(s)
	}

	printStatus(s)

	return nil
}

func watchAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(pathutil.LogFilePath(), cfg.Log, false)
	if err != nil {
		return err
	}

	defer closer.Close()

	return watch.Run(control.NewClient(cfg.Control.Listen), logger.With("component", "watch"))
}

// statsAction reports the totals recorded within the filtered period.
func statsAction(ctx *cli.Context) error {
	filter, err := config.Filter(ctx, time.Now())
	if err != nil {
		return err
	}

	start := timeutil.DayKey(filter.StartTime)
	end := timeutil.DayKey(filter.EndTime)

	var days []models.DayTotals

	err = withTracker(ctx,
		func(_ *config.Config, c *control.Client) error {
			days, err = c.Stats(ctx.Context, start, end)
			return err
		},
		func(_ *config.Config, db store.DB) error {
			days, err = db.DayRange(start, end)
			return err
		},
	)
	if err != nil {
		return err
	}

	report := &stats.Report{
		Start: filter.StartTime,
		End:   filter.EndTime,
		Days:  days,
	}

	if ctx.Bool("json") {
		return printJSON(report)
	}

	return stats.Show(config.Stdout, report)
}

func projectsAction(ctx *cli.Context) error {
	var projects map[string]int64

	err := withTracker(ctx,
		func(_ *config.Config, c *control.Client) (err error) {
			projects, err = c.Projects(ctx.Context)
			return err
		},
		func(_ *config.Config, db store.DB) (err error) {
			projects, err = db.Projects()
			return err
		},
	)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printJSON(stats.SortProjects(projects))
	}

	return stats.ListProjects(config.Stdout, projects)
}

func reportSync(days int, skipped bool) {
	switch {
	case skipped:
		pterm.Warning.Println("No username is set. Run `codetime login <username>` first")
	case days == 0:
		pterm.Info.Println("Nothing to sync")
	default:
		pterm.Success.Printfln("Synced %d day(s)", days)
	}
}

// syncAction asks the daemon for a manual sync, or runs one directly when
// the daemon is not running.
func syncAction(ctx *cli.Context) error {
	return withTracker(ctx,
		func(_ *config.Config, c *control.Client) error {
			r, err := c.Sync(ctx.Context)
			if err != nil {
				return errSyncFailed.Wrap(err)
			}

			reportSync(r.Days, r.Skipped)

			return nil
		},
		func(cfg *config.Config, db store.DB) error {
			username, err := db.Username()
			if err != nil {
				return err
			}

			if cfg.User.Username != "" {
				username = cfg.User.Username
			}

			logger := logging.Discard()

			s := syncer.New(
				db,
				remote.New(&cfg.Sync, logger),
				syncer.WithLogger(logger),
				syncer.WithSource(cfg.Sync.Source),
			)

			spinner, _ := pterm.DefaultSpinner.Start("Syncing...")

			res, err := s.Sync(ctx.Context, username)

			_ = spinner.Stop()

			if err != nil {
				return errSyncFailed.Wrap(err)
			}

			reportSync(res.Days, res.Skipped)

			return nil
		},
	)
}

func printTracking(enabled bool) {
	if enabled {
		pterm.Success.Println("Tracking resumed")
		return
	}

	pterm.Info.Println("Tracking paused")
}

func toggleAction(ctx *cli.Context) error {
	return withTracker(ctx,
		func(_ *config.Config, c *control.Client) error {
			s, err := c.Toggle(ctx.Context)
			if err != nil {
				return err
			}

			printTracking(s.Enabled)

			return nil
		},
		func(_ *config.Config, db store.DB) error {
			enabled, err := db.Enabled()
			if err != nil {
				return err
			}

			if err := db.SetEnabled(!enabled); err != nil {
				return err
			}

			printTracking(!enabled)

			return nil
		},
	)
}

func enableAction(enabled bool) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		return withTracker(ctx,
			func(_ *config.Config, c *control.Client) error {
				var err error
				if enabled {
					_, err = c.Resume(ctx.Context)
				} else {
					_, err = c.Pause(ctx.Context)
				}

				if err != nil {
					return err
				}

				printTracking(enabled)

				return nil
			},
			func(_ *config.Config, db store.DB) error {
				if err := db.SetEnabled(enabled); err != nil {
					return err
				}

				printTracking(enabled)

				return nil
			},
		)
	}
}

func parseFocus(arg string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, errInvalidFocus.Fmt(arg)
	}
}

func focusAction(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return errMissingArgument.Fmt("<on|off>")
	}

	focused, err := parseFocus(ctx.Args().First())
	if err != nil {
		return err
	}

	return requireDaemon(ctx, func(c *control.Client) error {
		_, err := c.Focus(ctx.Context, focused)
		return err
	})
}

func languageAction(ctx *cli.Context) error {
	return requireDaemon(ctx, func(c *control.Client) error {
		_, err := c.Language(ctx.Context, ctx.Args().First())
		return err
	})
}

// loginAction stores the username used for syncing. Without an argument the
// user is prompted for one.
func loginAction(ctx *cli.Context) error {
	label := ctx.Args().First()

	if label == "" {
		var err error

		label, err = promptUsername()
		if err != nil {
			return err
		}
	}

	username := config.NormalizeUsername(label)
	if username == "" {
		return errMissingArgument.Fmt("username")
	}

	err := withTracker(ctx,
		func(_ *config.Config, c *control.Client) error {
			_, err := c.Login(ctx.Context, username)
			return err
		},
		func(_ *config.Config, db store.DB) error {
			return db.SetUsername(username)
		},
	)
	if err != nil {
		return err
	}

	pterm.Success.Printfln("Logged in as %s", username)

	return nil
}

func resetTodayAction(ctx *cli.Context) error {
	if !ctx.Bool("yes") {
		ok, err := confirm("Reset today's counters?")
		if err != nil || !ok {
			return err
		}
	}

	err := withTracker(ctx,
		func(_ *config.Config, c *control.Client) error {
			_, err := c.ResetToday(ctx.Context)
			return err
		},
		func(_ *config.Config, db store.DB) error {
			return db.ResetDay(timeutil.DayKey(time.Now()))
		},
	)
	if err != nil {
		return err
	}

	pterm.Success.Println("Today's counters have been reset")

	return nil
}

func resetProjectAction(ctx *cli.Context) error {
	if !ctx.Bool("yes") {
		ok, err := confirm("Reset the counter of the current project?")
		if err != nil || !ok {
			return err
		}
	}

	err := withTracker(ctx,
		func(_ *config.Config, c *control.Client) error {
			_, err := c.ResetProject(ctx.Context)
			return err
		},
		func(cfg *config.Config, db store.DB) error {
			return db.ResetProject(cfg.Workspace())
		},
	)
	if err != nil {
		return err
	}

	pterm.Success.Println("The project counter has been reset")

	return nil
}

// importAction merges an export of the editor extension's global state.
// The database must not be held by a daemon.
func importAction(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return errMissingArgument.Fmt("<file>")
	}

	if err := pathutil.Initialize(); err != nil {
		return err
	}

	path := ctx.Args().First()

	f, err := os.Open(path)
	if err != nil {
		return errOpenImport.Fmt(path).Wrap(err)
	}

	defer f.Close()

	db, err := store.NewClient(pathutil.DBFilePath())
	if errors.Is(err, store.ErrAlreadyRunning) {
		return errDaemonRequired.Fmt("import")
	}

	if err != nil {
		return err
	}

	defer db.Close()

	if err := db.ImportLegacy(f); err != nil {
		return err
	}

	pterm.Success.Printfln("Imported %s", path)

	return nil
}

// checkForUpdates alerts the user if there is a newer release than the one
// currently installed.
func checkForUpdates(app *cli.App) {
	spinner, _ := pterm.DefaultSpinner.Start("Checking for updates...")
	c := http.Client{Timeout: 10 * time.Second}

	resp, err := c.Get("https://github.com/ayoisaiah/codetime/releases/latest")
	if err != nil {
		spinner.Fail("HTTP Error: Failed to check for update")
		return
	}

	defer resp.Body.Close()

	var version string

	_, err = fmt.Sscanf(
		resp.Request.URL.String(),
		"https://github.com/ayoisaiah/codetime/releases/tag/%s",
		&version,
	)
	if err != nil {
		spinner.Fail("Failed to get latest version")
		return
	}

	if version == app.Version {
		spinner.Success(pterm.Sprintf(
			"Congratulations, you are using the latest version of %s",
			app.Name,
		))

		return
	}

	_ = spinner.Stop()

	pterm.Warning.Prefix = pterm.Prefix{
		Text:  "UPDATE AVAILABLE",
		Style: pterm.NewStyle(pterm.BgYellow, pterm.FgBlack),
	}
	pterm.Warning.Printfln(
		"A new release of codetime is available: %s at %s",
		version,
		resp.Request.URL.String(),
	)
}

func beforeAction(ctx *cli.Context) error {
	cli.AppHelpTemplate = helpText()

	oldVersionPrinter := cli.VersionPrinter
	cli.VersionPrinter = func(c *cli.Context) {
		oldVersionPrinter(c)

		if _, found := os.LookupEnv(envUpdateNotifier); found {
			checkForUpdates(c.App)
		}
	}

	pterm.Error.MessageStyle = pterm.NewStyle(pterm.FgRed)
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "ERROR",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}

	if _, exists := os.LookupEnv(envNoColor); exists {
		ui.DisableStyling()
	}

	if _, exists := os.LookupEnv(envCodetimeNoColor); exists {
		ui.DisableStyling()
	}

	if ctx.Bool("no-color") {
		ui.DisableStyling()
	}

	return nil
}

func printToday(day *models.DayTotals) error {
	pterm.DefaultSection.Println("Today")

	pterm.Printfln(
		"Time logged: %s\nFocused time: %s",
		ui.Green(timeutil.FormatDuration(day.Total)),
		ui.Green(timeutil.FormatDuration(day.Focused)),
	)

	langs := stats.Languages([]models.DayTotals{*day})
	if len(langs) == 0 {
		return nil
	}

	rows := make([][]string, len(langs))

	for i, l := range langs {
		rows[i] = []string{l.Language, timeutil.FormatHMS(l.Seconds)}
	}

	return ui.PrintTable(config.Stdout, []string{"LANGUAGE", "FOCUSED"}, rows)
}

// todayAction prints today's totals with the language breakdown.
func todayAction(ctx *cli.Context) error {
	day := &models.DayTotals{Day: timeutil.DayKey(time.Now())}

	err := withTracker(ctx,
		func(_ *config.Config, c *control.Client) error {
			s, err := c.Status(ctx.Context)
			if err != nil {
				return err
			}

			day.Total = s.TodayTotal
			day.Focused = s.TodayFocused
			day.Languages = s.Languages

			return nil
		},
		func(_ *config.Config, db store.DB) (err error) {
			day, err = db.Day(day.Day)
			return err
		},
	)
	if err != nil {
		return err
	}

	if ctx.Bool("json") {
		return printJSON(day)
	}

	return printToday(day)
}

// Package app wires codetime's commands to the tracker, the store and the
// control API
package app

import (
	"github.com/urfave/cli/v2"

	"github.com/ayoisaiah/codetime/internal/config"
)

// Get retrieves the codetime app instance.
func Get() *cli.App {
	return &cli.App{
		Name: "codetime",
		Usage: `
		codetime records how long you spend writing code, per day, per language
		and per project, and periodically pushes what has not been synced yet to
		a remote aggregator.`,
		UsageText:            "[COMMAND] [OPTIONS]",
		Version:              config.Version,
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:   "daemon",
				Usage:  "Run the tracker and the local control API",
				Action: daemonAction,
			},
			{
				Name:   "status",
				Usage:  "Print the status of the running tracker",
				Flags:  []cli.Flag{jsonFlag},
				Action: statusAction,
			},
			{
				Name:   "today",
				Usage:  "Print today's totals and language breakdown",
				Flags:  []cli.Flag{jsonFlag},
				Action: todayAction,
			},
			{
				Name:   "watch",
				Usage:  "Show a live view of the running tracker",
				Action: watchAction,
			},
			{
				Name: "stats",
				Usage: `
				Report the time recorded within a period. Defaults to the
				last 7 days`,
				Flags:  []cli.Flag{periodFlag, startFlag, endFlag, jsonFlag},
				Action: statsAction,
			},
			{
				Name:   "projects",
				Usage:  "List the time recorded per project",
				Flags:  []cli.Flag{jsonFlag},
				Action: projectsAction,
			},
			{
				Name:   "sync",
				Usage:  "Push the time that has not been synced yet",
				Action: syncAction,
			},
			{
				Name:   "toggle",
				Usage:  "Pause or resume tracking",
				Action: toggleAction,
			},
			{
				Name:   "pause",
				Usage:  "Pause tracking",
				Action: enableAction(false),
			},
			{
				Name:   "resume",
				Usage:  "Resume tracking",
				Action: enableAction(true),
			},
			{
				Name:      "focus",
				Usage:     "Report whether the editor has focus",
				ArgsUsage: "<on|off>",
				Action:    focusAction,
			},
			{
				Name:      "language",
				Usage:     "Report the language of the active document",
				ArgsUsage: "<language-id>",
				Action:    languageAction,
			},
			{
				Name:      "login",
				Usage:     "Set the username used when syncing",
				ArgsUsage: "[username]",
				Action:    loginAction,
			},
			{
				Name:   "reset-today",
				Usage:  "Reset today's counters",
				Flags:  []cli.Flag{yesFlag},
				Action: resetTodayAction,
			},
			{
				Name:   "reset-project",
				Usage:  "Reset the counter of the current project",
				Flags:  []cli.Flag{yesFlag},
				Action: resetProjectAction,
			},
			{
				Name:      "import",
				Usage:     "Import counters exported from the editor extension's global state",
				ArgsUsage: "<file>",
				Action:    importAction,
			},
			{
				Name:   "edit-config",
				Usage:  "Edit the configuration file",
				Action: editConfigAction,
			},
			{
				Name:   "dev-server",
				Usage:  "Run a local aggregator backed by SQLite for development",
				Flags:  []cli.Flag{devListenFlag, devDBFlag},
				Action: devServerAction,
			},
		},
		Flags:  globalFlags(),
		Before: beforeAction,
	}
}

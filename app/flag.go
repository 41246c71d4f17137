package app

import "github.com/urfave/cli/v2"

var (
	usernameFlag = &cli.StringFlag{
		Name:    "username",
		Aliases: []string{"u"},
		Usage:   "Username used when syncing (an email keeps only the part before '@')",
		EnvVars: []string{"CODETIME_USERNAME"},
	}

	endpointFlag = &cli.StringFlag{
		Name:  "endpoint",
		Usage: "URL of the remote aggregator that receives sync payloads",
	}

	workspaceFlag = &cli.StringFlag{
		Name:    "workspace",
		Aliases: []string{"w"},
		Usage:   "Project whose counter is incremented (defaults to the current directory)",
	}

	listenFlag = &cli.StringFlag{
		Name:  "listen",
		Usage: "Address of the local control API (default: 127.0.0.1:7878)",
	}

	syncIntervalFlag = &cli.StringFlag{
		Name:  "sync-interval",
		Usage: "How often accrued time is pushed to the aggregator (default: 14m)",
	}

	tickIntervalFlag = &cli.StringFlag{
		Name:  "tick-interval",
		Usage: "How often the heartbeat accrues elapsed time (default: 1s)",
	}

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging and mirror the log to stderr",
	}

	noColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable coloured output",
	}

	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the result as JSON",
	}

	yesFlag = &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Do not ask for confirmation",
	}

	periodFlag = &cli.StringFlag{
		Name:    "period",
		Aliases: []string{"p"},
		Usage:   "Reporting period: today, yesterday, 7days, 14days, 30days, 90days, 180days, 365days, all-time",
	}

	startFlag = &cli.StringFlag{
		Name:    "start",
		Aliases: []string{"s"},
		Usage:   "Start date of the reporting period (e.g. 2024-01-02, '3 days ago')",
	}

	endFlag = &cli.StringFlag{
		Name:    "end",
		Aliases: []string{"e"},
		Usage:   "End date of the reporting period (defaults to today)",
	}

	devListenFlag = &cli.StringFlag{
		Name:  "addr",
		Usage: "Address of the development aggregator (default: 127.0.0.1:8787)",
	}

	devDBFlag = &cli.StringFlag{
		Name:  "db",
		Usage: "Path to the SQLite database of the development aggregator",
	}
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		usernameFlag,
		endpointFlag,
		workspaceFlag,
		listenFlag,
		syncIntervalFlag,
		tickIntervalFlag,
		debugFlag,
		noColorFlag,
	}
}

package app

import (
	"fmt"

	"github.com/pterm/pterm"
)

func helpText() string {
	description := fmt.Sprintf(
		"%s\n\t\t{{.Usage}}\n\n",
		pterm.Yellow("DESCRIPTION"),
	)

	usage := fmt.Sprintf(
		"%s\n\t\t{{.HelpName}} {{if .UsageText}}{{ .UsageText }}{{end}}\n\n",
		pterm.Yellow("USAGE"),
	)

	version := fmt.Sprintf(
		"{{if .Version}}%s\n\t\t{{.Version}}{{end}}\n\n",
		pterm.Yellow("VERSION"),
	)

	commands := fmt.Sprintf(
		"%s\n{{range .VisibleCommands}}   %s{{ `\t`}}{{.Usage}}{{ `\n` }}{{end}}\n\n",
		pterm.Yellow("COMMANDS"),
		pterm.Green("{{join .Names `, `}}"),
	)

	options := fmt.Sprintf(
		"%s\n{{range .VisibleFlags}}\t\t{{if .Aliases}}{{range $element := .Aliases}}%s,{{end}}{{end}} %s\n\t\t\t\t{{.Usage}}\n\n{{end}}",
		pterm.Yellow("OPTIONS"),
		pterm.Green("-{{$element}}"),
		pterm.Green("--{{.Name}} {{.DefaultText}}"),
	)

	env := fmt.Sprintf(
		"%s\n\t\t%s\n\n",
		pterm.Yellow("ENVIRONMENTAL VARIABLES"),
		envHelp(),
	)

	files := fmt.Sprintf(
		"%s\n\t\t%s\n",
		pterm.Yellow("FILES"),
		filesHelp(),
	)

	return description + usage + version + commands + options + env + files
}

func envHelp() string {
	return `
CODETIME_NO_COLOR, NO_COLOR: set to any value to avoid printing ANSI escape sequences for color output.

CODETIME_ENV: suffixes the config, database, status and log file names so that environments (e.g. "dev") stay apart.

CODETIME_<SECTION>_<KEY>: overrides any config file key, e.g. CODETIME_SYNC_API_KEY or CODETIME_USER_USERNAME.

CODETIME_UPDATE_NOTIFIER: set to any value to check for a newer release when using the -v or --version flag.`
}

func filesHelp() string {
	return `
Configuration is read from $XDG_CONFIG_HOME/codetime/config.yml. Counters, the
status file and logs live under $XDG_DATA_HOME/codetime.`
}

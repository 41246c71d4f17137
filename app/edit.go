package app

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/kballard/go-shellquote"
	"github.com/urfave/cli/v2"

	"github.com/ayoisaiah/codetime/internal/osutil"
	"github.com/ayoisaiah/codetime/internal/pathutil"
)

func editorCommand() ([]string, error) {
	defaultEditor := "nano"

	if runtime.GOOS == osutil.Windows {
		defaultEditor = "C:\\Windows\\system32\\notepad.exe"
	}

	editor := firstNonEmptyString(
		os.Getenv("VISUAL"),
		os.Getenv("EDITOR"),
		defaultEditor,
	)

	// editors are often configured with flags, e.g. "code --wait"
	return shellquote.Split(editor)
}

// editConfigAction opens the config file in the user's default text editor.
func editConfigAction(ctx *cli.Context) error {
	// loading first writes the default file if it is missing
	if _, err := loadConfig(ctx); err != nil {
		return err
	}

	args, err := editorCommand()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return errMissingArgument.Fmt("$EDITOR")
	}

	args = append(args, pathutil.ConfigFilePath())

	cmd := exec.Command(args[0], args[1:]...)

	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout

	return cmd.Run()
}

package stats

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/maruel/natural"
	"github.com/pterm/pterm"

	"github.com/ayoisaiah/codetime/internal/timeutil"
	"github.com/ayoisaiah/codetime/internal/ui"
)

const noProjectsMsg = "No project time recorded yet"

// Project is the time recorded against a single workspace.
type Project struct {
	Workspace string `json:"workspace"`
	Seconds   int64  `json:"seconds"`
}

// SortProjects returns the projects largest first, ties ordered by a natural
// sort of the workspace path.
func SortProjects(projects map[string]int64) []Project {
	out := make([]Project, 0, len(projects))

	for ws, secs := range projects {
		out = append(out, Project{Workspace: ws, Seconds: secs})
	}

	slices.SortFunc(out, func(a, b Project) int {
		if c := cmp.Compare(b.Seconds, a.Seconds); c != 0 {
			return c
		}

		if natural.Less(a.Workspace, b.Workspace) {
			return -1
		}

		return 1
	})

	return out
}

// ListProjects prints a table of the time recorded per workspace.
func ListProjects(w io.Writer, projects map[string]int64) error {
	if len(projects) == 0 {
		pterm.Info.Println(noProjectsMsg)
		return nil
	}

	sorted := SortProjects(projects)

	rows := make([][]string, len(sorted))

	for i, p := range sorted {
		rows[i] = []string{
			fmt.Sprintf("%d", i+1),
			p.Workspace,
			timeutil.FormatHMS(p.Seconds),
			ui.Green(timeutil.FormatDuration(p.Seconds)),
		}
	}

	return ui.PrintTable(w, []string{"#", "PROJECT", "TIME", "APPROX"}, rows)
}

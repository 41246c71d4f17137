// Package stats reports coding time recorded by codetime
package stats

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/maruel/natural"
	"github.com/pterm/pterm"

	"github.com/ayoisaiah/codetime/internal/models"
	"github.com/ayoisaiah/codetime/internal/timeutil"
	"github.com/ayoisaiah/codetime/internal/ui"
)

const (
	barChartChar = "▇"
	noDataMsg    = "No coding time recorded for the specified time range"

	maxDailyBars   = 31
	maxMonthlyBars = 24
)

type aggregatePeriod string

const (
	daily   aggregatePeriod = "Daily"
	monthly aggregatePeriod = "Monthly"
	yearly  aggregatePeriod = "Yearly"
)

// Report is the data rendered by Show.
type Report struct {
	Start time.Time          `json:"start"`
	End   time.Time          `json:"end"`
	Days  []models.DayTotals `json:"days"`
}

// LanguageTotal is the focused time spent in a single language.
type LanguageTotal struct {
	Language string `json:"language"`
	Seconds  int64  `json:"seconds"`
}

type summary struct {
	languages  []LanguageTotal
	total      int64
	focused    int64
	avgTotal   int64
	avgFocused int64
	activeDays int
	days       int
}

// Languages sums the language breakdown of days, largest first. Ties are
// ordered by name.
func Languages(days []models.DayTotals) []LanguageTotal {
	totals := make(map[string]int64)

	for i := range days {
		for lang, secs := range days[i].Languages {
			totals[lang] += secs
		}
	}

	out := make([]LanguageTotal, 0, len(totals))

	for lang, secs := range totals {
		if secs <= 0 {
			continue
		}

		out = append(out, LanguageTotal{Language: lang, Seconds: secs})
	}

	slices.SortFunc(out, func(a, b LanguageTotal) int {
		if c := cmp.Compare(b.Seconds, a.Seconds); c != 0 {
			return c
		}

		if natural.Less(a.Language, b.Language) {
			return -1
		}

		return 1
	})

	return out
}

// start returns the first day of the report. All-time reports begin on
// the first recorded day.
func (r *Report) start() time.Time {
	if !r.Start.IsZero() || len(r.Days) == 0 {
		return r.Start
	}

	first, err := timeutil.ParseDay(r.Days[0].Day)
	if err != nil {
		return r.Start
	}

	return first
}

func computeSummary(r *Report) summary {
	var s summary

	for i := range r.Days {
		d := r.Days[i]

		s.total += d.Total
		s.focused += d.Focused

		if d.Total > 0 {
			s.activeDays++
		}
	}

	s.languages = Languages(r.Days)

	s.days = timeutil.DaysBetween(r.start(), r.End)
	s.avgTotal = s.total / int64(s.days)
	s.avgFocused = s.focused / int64(s.days)

	return s
}

type bucket struct {
	label   string
	seconds int64
}

// buckets groups days by period. Daily buckets include days with nothing
// recorded so that gaps stay visible.
func buckets(r *Report, period aggregatePeriod) []bucket {
	recorded := make(map[string]int64, len(r.Days))

	for i := range r.Days {
		recorded[r.Days[i].Day] = r.Days[i].Total
	}

	if period == daily {
		start := timeutil.RoundToStart(r.start())

		var out []bucket

		for d := start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
			out = append(out, bucket{
				label:   d.Format("Mon, Jan 02"),
				seconds: recorded[timeutil.DayKey(d)],
			})
		}

		return out
	}

	layout := "2006-01"
	if period == yearly {
		layout = "2006"
	}

	var out []bucket

	for i := range r.Days {
		t, err := timeutil.ParseDay(r.Days[i].Day)
		if err != nil {
			continue
		}

		label := t.Format(layout)

		if n := len(out); n > 0 && out[n-1].label == label {
			out[n-1].seconds += r.Days[i].Total
			continue
		}

		out = append(out, bucket{label: label, seconds: r.Days[i].Total})
	}

	return out
}

func historyPeriod(days int) aggregatePeriod {
	switch {
	case days <= maxDailyBars:
		return daily
	case days <= maxMonthlyBars*31:
		return monthly
	default:
		return yearly
	}
}

func getBarChart(data []bucket, period aggregatePeriod) string {
	if len(data) == 0 {
		return ""
	}

	header := ui.Blue(fmt.Sprintf("\n%s breakdown (minutes)", period))

	bars := make(pterm.Bars, 0, len(data))

	for _, b := range data {
		bars = append(bars, pterm.Bar{
			Label: b.label,
			Value: int(b.seconds / 60),
		})
	}

	chart, err := pterm.DefaultBarChart.WithHorizontalBarCharacter(barChartChar).
		WithHorizontal().
		WithShowValue().
		WithBars(bars).
		Srender()
	if err != nil {
		pterm.Error.Println(err)
		return ""
	}

	return header + chart
}

func getLanguages(languages []LanguageTotal) string {
	if len(languages) == 0 {
		return ""
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("\n%s\n", ui.Blue("Languages")))

	for _, l := range languages {
		builder.WriteString(fmt.Sprintf(
			"%s: %s\n",
			l.Language,
			ui.Green(timeutil.FormatDuration(l.Seconds)),
		))
	}

	return builder.String()
}

func getSummary(s summary) string {
	header := fmt.Sprintf("%s\n", ui.Blue("Summary"))

	var ratio int64
	if s.total > 0 {
		ratio = s.focused * 100 / s.total
	}

	return header +
		fmt.Sprintf("Time logged: %s\n", ui.Green(timeutil.FormatDuration(s.total))) +
		fmt.Sprintf("Focused time: %s (%d%%)\n", ui.Green(timeutil.FormatDuration(s.focused)), ratio) +
		fmt.Sprintf("Active days: %s\n", ui.Green(fmt.Sprintf("%d/%d", s.activeDays, s.days)))
}

func getAverages(s summary) string {
	header := fmt.Sprintf("\n%s\n", ui.Blue("Daily averages"))

	return header +
		fmt.Sprintf("Time logged: %s\n", ui.Green(timeutil.FormatDuration(s.avgTotal))) +
		fmt.Sprintf("Focused time: %s\n", ui.Green(timeutil.FormatDuration(s.avgFocused)))
}

// Show renders the report to w.
func Show(w io.Writer, r *Report) error {
	if len(r.Days) == 0 {
		pterm.Info.Println(noDataMsg)
		return nil
	}

	s := computeSummary(r)

	reportingStart := r.start().Format("January 02, 2006")
	reportingEnd := r.End.Format("January 02, 2006")
	timePeriod := "Reporting period: " + reportingStart + " - " + reportingEnd

	header := pterm.DefaultHeader.WithBackgroundStyle(pterm.NewStyle(pterm.BgYellow)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Sprintln(timePeriod)

	period := historyPeriod(s.days)

	output := fmt.Sprint(
		header,
		getSummary(s),
		getAverages(s),
		getLanguages(s.languages),
		getBarChart(buckets(r, period), period),
	)

	_, err := fmt.Fprintln(w, strings.TrimSpace(output))

	return err
}

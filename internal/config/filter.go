package config

import (
	"slices"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
	"github.com/urfave/cli/v2"

	"github.com/ayoisaiah/codetime/internal/timeutil"
)

// FilterConfig represents a date range used to report on stored totals.
type FilterConfig struct {
	StartTime time.Time
	EndTime   time.Time
}

// FilterOptions are the raw command-line values for a filter.
type FilterOptions struct {
	Period string
	Start  string
	End    string
}

// Filter initializes and returns a configuration to filter totals from
// command-line arguments. Without a period or start date it defaults to the
// last 7 days.
func Filter(ctx *cli.Context, now time.Time) (*FilterConfig, error) {
	return NewFilter(FilterOptions{
		Period: ctx.String("period"),
		Start:  ctx.String("start"),
		End:    ctx.String("end"),
	}, now)
}

// NewFilter builds a FilterConfig from opts relative to now.
func NewFilter(opts FilterOptions, now time.Time) (*FilterConfig, error) {
	filterCfg := &FilterConfig{}

	period := timeutil.Period(strings.TrimSpace(opts.Period))

	if period != "" && !slices.Contains(timeutil.PeriodCollection, period) {
		return nil, errInvalidPeriod.Fmt(period)
	}

	if period == "" && opts.Start == "" {
		period = timeutil.Period7Days
	}

	if period != "" {
		filterCfg.StartTime, filterCfg.EndTime = timeutil.PeriodRange(period, now)

		return filterCfg, nil
	}

	start, err := parseDate(opts.Start, now)
	if err != nil {
		return nil, err
	}

	filterCfg.StartTime = timeutil.RoundToStart(start)
	filterCfg.EndTime = timeutil.RoundToEnd(now)

	if opts.End != "" {
		end, err := parseDate(opts.End, now)
		if err != nil {
			return nil, err
		}

		filterCfg.EndTime = timeutil.RoundToEnd(end)
	}

	if filterCfg.EndTime.Before(filterCfg.StartTime) {
		return nil, errInvalidDateRange
	}

	return filterCfg, nil
}

// parseDate understands both absolute dates and relative expressions such as
// "3 days ago" or "last monday".
func parseDate(s string, now time.Time) (time.Time, error) {
	if t, err := timeutil.ParseDay(s); err == nil {
		return t, nil
	}

	dt, err := dps.Parse(&dps.Configuration{CurrentTime: now}, s)
	if err != nil || dt.Time.IsZero() {
		return time.Time{}, errInvalidDate.Fmt(s)
	}

	return dt.Time, nil
}

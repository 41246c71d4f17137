// Package delta computes the per-day increments that have not been sent to
// the aggregator yet.
package delta

import (
	"maps"
	"slices"

	"github.com/ayoisaiah/codetime/internal/models"
)

// DefaultSource tags payload entries when no source is configured.
const DefaultSource = "vscode"

func clamp(current, synced int64) int64 {
	return max(0, current-synced)
}

// days returns the union of the days in the total and focused maps in
// ascending order.
func days(s *models.Snapshot) []string {
	set := make(map[string]struct{}, len(s.Total))

	for day := range s.Total {
		set[day] = struct{}{}
	}

	for day := range s.Focused {
		set[day] = struct{}{}
	}

	return slices.Sorted(maps.Keys(set))
}

// Build compares current against synced and returns the payload to send and a
// deep copy of current. On a successful send the copy becomes the new synced
// baseline, so increments that land after Build are never marked as sent.
//
// Negative differences (a local reset after a sync) are clamped to zero and
// days without any positive delta are left out.
func Build(
	username, source string,
	current, synced *models.Snapshot,
) (models.Payload, *models.Snapshot) {
	used := current.Clone()
	base := synced.Clone()

	if source == "" {
		source = DefaultSource
	}

	payload := models.Payload{
		Username: username,
		Data:     []models.DayDelta{},
	}

	for _, day := range days(used) {
		entry := models.DayDelta{
			Day:               day,
			Source:            source,
			FocusedSeconds:    clamp(used.Focused[day], base.Focused[day]),
			TotalSeconds:      clamp(used.Total[day], base.Total[day]),
			LanguageBreakdown: make(map[string]int64),
		}

		for lang, secs := range used.Languages[day] {
			if d := clamp(secs, base.Language(day, lang)); d > 0 {
				entry.LanguageBreakdown[lang] = d
			}
		}

		if entry.FocusedSeconds == 0 && entry.TotalSeconds == 0 &&
			len(entry.LanguageBreakdown) == 0 {
			continue
		}

		payload.Data = append(payload.Data, entry)
	}

	return payload, used
}

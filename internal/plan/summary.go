package plan

import (
	"fmt"
	"strings"
	"time"
)

// GenerateSummary renders the day as shareable plain text: a dated
// header, the session notes if any, then one line per non-pending
// exercise with what actually happened.
func GenerateSummary(day DayRecord, date time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Workout summary for %s:\n", date.Format("Mon, 2 Jan 2006"))

	if notes := strings.TrimSpace(day.SessionNotes); notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", notes)
	}

	done := 0
	for i := range day.Exercises {
		ex := &day.Exercises[i]
		if ex.Pending() {
			continue
		}
		done++
		b.WriteString(summaryLine(ex))
		b.WriteByte('\n')
	}

	if done == 0 {
		b.WriteString("Nothing done yet.\n")
		return b.String()
	}

	stats := DailySummaryStats(day.Exercises)
	if stats.TotalVolume > 0 {
		fmt.Fprintf(&b, "Total volume: %s\n", trimFloat(stats.TotalVolume))
	}
	if stats.TotalCalories > 0 {
		fmt.Fprintf(&b, "Estimated calories: %d\n", stats.TotalCalories)
	}
	return b.String()
}

func summaryLine(ex *Exercise) string {
	var b strings.Builder
	fmt.Fprintf(&b, "• %s: ", ex.Name)

	if ex.Status == StatusSkipped {
		if note := strings.TrimSpace(ex.Note); note != "" {
			fmt.Fprintf(&b, "skipped (%s)", note)
		} else {
			b.WriteString("skipped")
		}
		return b.String()
	}

	switch ex.MetricType {
	case MetricTimeDistance:
		parts := make([]string, 0, 2)
		if ex.ActualDistance != "" {
			parts = append(parts, ex.ActualDistance)
		}
		if ex.ActualTime != "" {
			parts = append(parts, "in "+ex.ActualTime)
		}
		if len(parts) == 0 {
			b.WriteString("done")
		} else {
			b.WriteString(strings.Join(parts, " "))
		}
	case MetricTime:
		if ex.ActualTime != "" {
			b.WriteString(ex.ActualTime)
		} else {
			b.WriteString("done")
		}
	default:
		sets := make([]string, 0, len(ex.ActualSets))
		for _, s := range ex.ActualSets {
			switch {
			case s.Reps != "" && s.Weight != "":
				sets = append(sets, fmt.Sprintf("%s×%s", s.Reps, s.Weight))
			case s.Reps != "":
				sets = append(sets, s.Reps)
			}
		}
		if len(sets) == 0 {
			b.WriteString("done")
		} else {
			b.WriteString(strings.Join(sets, ", "))
		}
	}

	switch ex.Status {
	case StatusCompletedOver:
		b.WriteString(" ↑")
	case StatusCompletedUnder:
		b.WriteString(" ↓")
	}
	if ex.Calories != nil && *ex.Calories > 0 {
		fmt.Fprintf(&b, " (~%d kcal)", *ex.Calories)
	}
	return b.String()
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

package plan

import (
	"math"
	"sort"
)

// CompletionPercent is the share of non-pending exercises in the day,
// 0..100 rounded down. Skipped counts as done for this purpose: the day
// is "dealt with", not necessarily performed.
func CompletionPercent(exercises []Exercise) int {
	if len(exercises) == 0 {
		return 0
	}
	done := 0
	for i := range exercises {
		if !exercises[i].Pending() {
			done++
		}
	}
	return done * 100 / len(exercises)
}

// SortForDisplay orders exercises for the day view: pending first in
// their user-set order, then finished ones by completion time. The
// input is not modified.
func SortForDisplay(exercises []Exercise) []Exercise {
	out := make([]Exercise, len(exercises))
	copy(out, exercises)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Pending(), out[j].Pending()
		if pi != pj {
			return pi
		}
		if pi {
			return false
		}
		ti, tj := out[i].CompletedTimestamp, out[j].CompletedTimestamp
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.Before(*tj)
	})
	return out
}

// SummaryStats are the per-day aggregates shown next to the plan.
// Skipped exercises contribute to none of them.
type SummaryStats struct {
	ExercisesDone int     `json:"exercisesDone"`
	TotalVolume   float64 `json:"totalVolume"`
	TotalCalories int     `json:"totalCalories"`
}

// DailySummaryStats aggregates the day's completed work: number of
// completed exercises, total lifted volume (reps times weight over all
// recorded sets of weight/reps exercises, rounded to the nearest
// integer) and total estimated calories.
func DailySummaryStats(exercises []Exercise) SummaryStats {
	var stats SummaryStats
	for i := range exercises {
		ex := &exercises[i]
		if ex.Pending() || ex.Status == StatusSkipped {
			continue
		}
		stats.ExercisesDone++
		if ex.MetricType == MetricWeightReps {
			for _, s := range ex.ActualSets {
				stats.TotalVolume += ParseNumeric(s.Reps) * ParseNumeric(s.Weight)
			}
		}
		if ex.Calories != nil {
			stats.TotalCalories += *ex.Calories
		}
	}
	stats.TotalVolume = math.Round(stats.TotalVolume)
	return stats
}

// FindLastPerformance scans the plan backwards from (and excluding) the
// given day and returns the most recent non-pending entry of the named
// exercise, together with the day it happened on. A skipped entry still
// counts as the last time the exercise came up.
func FindLastPerformance(p Plan, name, beforeDay string) (Exercise, string, bool) {
	days := make([]string, 0, len(p))
	for day := range p {
		if day < beforeDay {
			days = append(days, day)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	for _, day := range days {
		record := p[day]
		for i := range record.Exercises {
			ex := record.Exercises[i]
			if ex.Name != name || ex.Pending() {
				continue
			}
			return ex, day, true
		}
	}
	return Exercise{}, "", false
}

// TrendIndicator compares the current target weight of the named
// exercise against its target weight the last time it came up. Only an
// increase produces an indicator: the returned percentage is how much
// heavier the current target is, nil otherwise.
func TrendIndicator(p Plan, name string, currentTargetWeight float64, beforeDay string) *float64 {
	if currentTargetWeight <= 0 {
		return nil
	}
	last, _, ok := FindLastPerformance(p, name, beforeDay)
	if !ok {
		return nil
	}
	prev := last.TargetWeightValue
	if prev <= 0 || currentTargetWeight <= prev {
		return nil
	}
	pct := (currentTargetWeight - prev) / prev * 100
	return &pct
}

// TrendPoint is one day's best lift of an exercise.
type TrendPoint struct {
	Day    string  `json:"day"`
	Weight float64 `json:"weight"`
}

// TrendSeries builds per-exercise weight progressions over the whole
// plan, chronological: one point per day a weight/reps exercise was
// completed with an actual weight on record. Series with a single
// point carry no trend and are dropped.
func TrendSeries(p Plan) map[string][]TrendPoint {
	series := make(map[string][]TrendPoint)
	days := make([]string, 0, len(p))
	for day := range p {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		record := p[day]
		for i := range record.Exercises {
			ex := record.Exercises[i]
			if ex.Pending() || ex.Status == StatusSkipped || ex.MetricType != MetricWeightReps {
				continue
			}
			weight := ex.MaxActualWeight()
			if weight <= 0 {
				continue
			}
			series[ex.Name] = append(series[ex.Name], TrendPoint{Day: day, Weight: weight})
		}
	}

	for name, points := range series {
		if len(points) < 2 {
			delete(series, name)
		}
	}
	return series
}

// PersonalBest is the all-time best of one exercise: the heaviest
// weight for weight/reps exercises, the longest distance for
// time/distance ones.
type PersonalBest struct {
	Exercise string     `json:"exercise"`
	Metric   MetricType `json:"metricType"`
	Value    float64    `json:"value"`
	Day      string     `json:"day"`
}

// PersonalBests returns the per-exercise all-time bests, biggest value
// first. For a lift the best is the heavier of the max actual set
// weight and the target, so a completed-but-unmeasured session still
// counts for what was planned; for a run the actual distance, falling
// back to the target distance.
func PersonalBests(p Plan) []PersonalBest {
	best := make(map[string]PersonalBest)
	for day, record := range p {
		for i := range record.Exercises {
			ex := record.Exercises[i]
			if ex.Pending() || ex.Status == StatusSkipped {
				continue
			}
			var value float64
			switch ex.MetricType {
			case MetricWeightReps:
				value = ex.MaxActualWeight()
				if ex.TargetWeightValue > value {
					value = ex.TargetWeightValue
				}
			case MetricTimeDistance:
				value = ParseNumeric(ex.ActualDistance)
				if value <= 0 {
					value = ParseNumeric(ex.TargetDistance)
				}
			default:
				continue
			}
			if value <= 0 {
				continue
			}
			if current, ok := best[ex.Name]; !ok || value > current.Value ||
				(value == current.Value && day < current.Day) {
				best[ex.Name] = PersonalBest{Exercise: ex.Name, Metric: ex.MetricType, Value: value, Day: day}
			}
		}
	}

	out := make([]PersonalBest, 0, len(best))
	for _, pb := range best {
		out = append(out, pb)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Exercise < out[j].Exercise
	})
	return out
}

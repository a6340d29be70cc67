package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSummary(t *testing.T) {
	date := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	benchCalories := 180
	bench := completedExercise("Bench Press", StatusCompletedOver, now, "40", "42.5")
	bench.Calories = &benchCalories
	// the third set was never ticked off but still shows up
	bench.ActualSets = append(bench.ActualSets, ActualSet{Reps: "8", Weight: "45"})
	run := Exercise{
		ID:             "run",
		Name:           "Morning Run",
		MetricType:     MetricTimeDistance,
		Status:         StatusCompleted,
		ActualDistance: "5km",
		ActualTime:     "28min",
	}
	skipped := Exercise{
		ID:     "squat",
		Name:   "Squat",
		Status: StatusSkipped,
		Note:   "knee pain",
	}
	pending := Exercise{ID: "row", Name: "Row", Status: StatusPending}

	day := DayRecord{
		Exercises:    []Exercise{bench, run, skipped, pending},
		SessionNotes: "push day",
	}

	summary := GenerateSummary(day, date)
	assert.Contains(t, summary, "Workout summary for Sat, 29 Aug 2026:")
	assert.Contains(t, summary, "Notes: push day")
	assert.Contains(t, summary, "• Bench Press: 10×40, 10×42.5, 8×45 ↑ (~180 kcal)")
	assert.Contains(t, summary, "• Morning Run: 5km in 28min")
	assert.Contains(t, summary, "• Squat: skipped (knee pain)")
	assert.NotContains(t, summary, "Row")
	// 10×40 + 10×42.5 + 8×45
	assert.Contains(t, summary, "Total volume: 1185")
	assert.Contains(t, summary, "Estimated calories: 180")
}

func TestGenerateSummary_emptyDay(t *testing.T) {
	date := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	summary := GenerateSummary(DayRecord{}, date)
	assert.Contains(t, summary, "Nothing done yet.")

	// all-pending day reads the same as an empty one
	day := DayRecord{Exercises: []Exercise{{ID: "a", Name: "Squat", Status: StatusPending}}}
	assert.Contains(t, GenerateSummary(day, date), "Nothing done yet.")
}

func TestGenerateSummary_deterministic(t *testing.T) {
	date := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	day := DayRecord{Exercises: []Exercise{
		completedExercise("Deadlift", StatusCompleted, now, "100"),
	}}
	assert.Equal(t, GenerateSummary(day, date), GenerateSummary(day, date))
}

package plan

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDay(t *testing.T, names ...string) DayRecord {
	t.Helper()
	var day DayRecord
	for _, name := range names {
		var err error
		day, _, err = AddExercise(day, NewExerciseSpec{
			Name:         name,
			Type:         "strength",
			MetricType:   MetricWeightReps,
			BodyPart:     gofakeit.RandomString([]string{"chest", "back", "legs"}),
			TargetSets:   "3",
			TargetReps:   "8-12",
			TargetWeight: "40kg",
		})
		require.NoError(t, err)
	}
	return day
}

func TestAddExercise(t *testing.T) {
	day := newTestDay(t, "Bench Press")
	require.Len(t, day.Exercises, 1)

	ex := day.Exercises[0]
	assert.NotEmpty(t, ex.ID)
	assert.Equal(t, "Bench Press", ex.Name)
	assert.Equal(t, StatusPending, ex.Status)
	assert.Equal(t, 40.0, ex.TargetWeightValue)
	assert.Nil(t, ex.CompletedTimestamp)
	assert.Zero(t, ex.Generation)

	_, _, err := AddExercise(day, NewExerciseSpec{Name: "   "})
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestAddExercise_preservesOrder(t *testing.T) {
	day := newTestDay(t, "Squat", "Bench Press", "Deadlift")
	require.Len(t, day.Exercises, 3)
	assert.Equal(t, "Squat", day.Exercises[0].Name)
	assert.Equal(t, "Bench Press", day.Exercises[1].Name)
	assert.Equal(t, "Deadlift", day.Exercises[2].Name)
}

func TestEditExercise(t *testing.T) {
	day := newTestDay(t, "Squat")
	id := day.Exercises[0].ID

	newWeight := "60"
	newNote := "felt heavy"
	edited := EditExercise(day, id, ExerciseUpdate{
		TargetWeight: &newWeight,
		Note:         &newNote,
	})

	ex := edited.Exercises[0]
	assert.Equal(t, "60", ex.TargetWeight)
	assert.Equal(t, 60.0, ex.TargetWeightValue)
	assert.Equal(t, "felt heavy", ex.Note)
	// untouched fields survive
	assert.Equal(t, "Squat", ex.Name)
	assert.Equal(t, "8-12", ex.TargetReps)

	// unknown id leaves the day as it was
	unchanged := EditExercise(day, "nope", ExerciseUpdate{Note: &newNote})
	assert.Equal(t, day, unchanged)
}

func TestDeleteExercise(t *testing.T) {
	day := newTestDay(t, "Squat", "Bench Press", "Deadlift")
	id := day.Exercises[1].ID

	day = DeleteExercise(day, id)
	require.Len(t, day.Exercises, 2)
	assert.Equal(t, "Squat", day.Exercises[0].Name)
	assert.Equal(t, "Deadlift", day.Exercises[1].Name)

	assert.Equal(t, day, DeleteExercise(day, "nope"))
}

func TestUpdateSet_growsWithPlaceholders(t *testing.T) {
	day := newTestDay(t, "Squat")
	id := day.Exercises[0].ID

	reps := "10"
	day, err := UpdateSet(day, id, 2, SetUpdate{Reps: &reps})
	require.NoError(t, err)

	sets := day.Exercises[0].ActualSets
	require.Len(t, sets, 3)
	assert.Equal(t, ActualSet{}, sets[0])
	assert.Equal(t, ActualSet{}, sets[1])
	assert.Equal(t, "10", sets[2].Reps)

	completed := true
	weight := "42.5"
	day, err = UpdateSet(day, id, 0, SetUpdate{Weight: &weight, Completed: &completed})
	require.NoError(t, err)
	assert.Equal(t, ActualSet{Weight: "42.5", Completed: true}, day.Exercises[0].ActualSets[0])

	_, err = UpdateSet(day, "nope", 0, SetUpdate{Reps: &reps})
	assert.ErrorIs(t, err, ErrExerciseNotFound)
	_, err = UpdateSet(day, id, -1, SetUpdate{Reps: &reps})
	assert.ErrorIs(t, err, ErrInvalidSetIndex)
}

func TestAddSet_duplicatesLast(t *testing.T) {
	day := newTestDay(t, "Squat")
	id := day.Exercises[0].ID

	// nothing recorded yet: nothing to duplicate, day unchanged
	unchanged, err := AddSet(day, id)
	require.NoError(t, err)
	assert.Equal(t, day, unchanged)
	assert.Empty(t, unchanged.Exercises[0].ActualSets)

	completed := true
	reps := "8"
	weight := "45"
	day, err = UpdateSet(day, id, 0, SetUpdate{Reps: &reps, Weight: &weight, Completed: &completed})
	require.NoError(t, err)

	day, err = AddSet(day, id)
	require.NoError(t, err)
	sets := day.Exercises[0].ActualSets
	require.Len(t, sets, 2)
	assert.Equal(t, "45", sets[1].Weight)
	assert.Equal(t, "8", sets[1].Reps)
	assert.False(t, sets[1].Completed)
}

func TestDeleteSet(t *testing.T) {
	day := newTestDay(t, "Squat")
	id := day.Exercises[0].ID

	day, err := ExpandSets(day, id)
	require.NoError(t, err)
	require.Len(t, day.Exercises[0].ActualSets, 3)

	day, err = DeleteSet(day, id, 1)
	require.NoError(t, err)
	assert.Len(t, day.Exercises[0].ActualSets, 2)

	_, err = DeleteSet(day, id, 5)
	assert.ErrorIs(t, err, ErrInvalidSetIndex)
}

func TestExpandSets(t *testing.T) {
	day := newTestDay(t, "Squat")
	id := day.Exercises[0].ID

	day, err := ExpandSets(day, id)
	require.NoError(t, err)
	sets := day.Exercises[0].ActualSets
	require.Len(t, sets, 3)
	for _, s := range sets {
		assert.Equal(t, "8", s.Reps)
		assert.Equal(t, "40kg", s.Weight)
		assert.False(t, s.Completed)
	}

	// second expand is a no-op
	again, err := ExpandSets(day, id)
	require.NoError(t, err)
	assert.Equal(t, day, again)
}

func TestCompleteExercise_classification(t *testing.T) {
	now := time.Now()
	for name, tc := range map[string]struct {
		targetWeight string
		setWeights   []string
		wantStatus   Status
	}{
		"over target":      {"40", []string{"40", "42.5"}, StatusCompletedOver},
		"under target":     {"40", []string{"35", "37.5"}, StatusCompletedUnder},
		"exactly target":   {"40", []string{"40", "40"}, StatusCompleted},
		"no weight target": {"", []string{"40"}, StatusCompleted},
		"no sets recorded": {"40", nil, StatusCompleted},
		"garbage weights":  {"40", []string{"heavy", "a lot"}, StatusCompletedUnder},
	} {
		t.Run(name, func(t *testing.T) {
			day, _, err := AddExercise(DayRecord{}, NewExerciseSpec{
				Name:         "Bench Press",
				MetricType:   MetricWeightReps,
				TargetSets:   "3",
				TargetReps:   "8-12",
				TargetWeight: tc.targetWeight,
			})
			require.NoError(t, err)
			id := day.Exercises[0].ID

			for i, w := range tc.setWeights {
				weight := w
				day, err = UpdateSet(day, id, i, SetUpdate{Weight: &weight})
				require.NoError(t, err)
			}

			day, err = CompleteExercise(day, id, now)
			require.NoError(t, err)

			ex := day.Exercises[0]
			assert.Equal(t, tc.wantStatus, ex.Status)
			require.NotNil(t, ex.CompletedTimestamp)
			assert.Equal(t, now, *ex.CompletedTimestamp)
			assert.Equal(t, 1, ex.Generation)
			if len(tc.setWeights) == 0 {
				// completing without recorded sets back-fills them from
				// the targets, so a performance record always exists
				require.Len(t, ex.ActualSets, 3)
				assert.Equal(t, ActualSet{Reps: "8", Weight: tc.targetWeight}, ex.ActualSets[0])
			}
		})
	}
}

func TestCompleteAndSkip_requirePending(t *testing.T) {
	now := time.Now()
	day := newTestDay(t, "Squat", "Bench Press")
	squat := day.Exercises[0].ID
	bench := day.Exercises[1].ID

	day, err := SkipExercise(day, squat, "knee pain", now)
	require.NoError(t, err)
	day, err = CompleteExercise(day, bench, now)
	require.NoError(t, err)

	// a skipped exercise cannot complete without an undo in between,
	// a completed one cannot be skipped, and neither resolves twice
	_, err = CompleteExercise(day, squat, now)
	assert.ErrorIs(t, err, ErrNotPending)
	_, err = SkipExercise(day, bench, "too tired", now)
	assert.ErrorIs(t, err, ErrNotPending)
	_, err = CompleteExercise(day, bench, now)
	assert.ErrorIs(t, err, ErrNotPending)
	_, err = SkipExercise(day, squat, "still hurts", now)
	assert.ErrorIs(t, err, ErrNotPending)

	day, err = UndoExercise(day, squat)
	require.NoError(t, err)
	day, err = CompleteExercise(day, squat, now)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, day.Exercises[0].Status)
}

func TestSkipExercise(t *testing.T) {
	day := newTestDay(t, "Squat")
	id := day.Exercises[0].ID

	_, err := SkipExercise(day, id, "  ", time.Now())
	assert.ErrorIs(t, err, ErrEmptySkipReason)
	assert.Equal(t, StatusPending, day.Exercises[0].Status)

	now := time.Now()
	day, err = SkipExercise(day, id, "shoulder pain", now)
	require.NoError(t, err)
	ex := day.Exercises[0]
	assert.Equal(t, StatusSkipped, ex.Status)
	assert.Equal(t, "shoulder pain", ex.Note)
	require.NotNil(t, ex.CompletedTimestamp)
}

func TestUndoExercise(t *testing.T) {
	day := newTestDay(t, "Squat")
	id := day.Exercises[0].ID

	day, err := SkipExercise(day, id, "gym closed", time.Now())
	require.NoError(t, err)

	day, err = UndoExercise(day, id)
	require.NoError(t, err)
	ex := day.Exercises[0]
	assert.Equal(t, StatusPending, ex.Status)
	assert.Nil(t, ex.CompletedTimestamp)
	assert.Nil(t, ex.Calories)
	// skip note survives the undo
	assert.Equal(t, "gym closed", ex.Note)
	assert.Equal(t, 1, ex.Generation)

	// undoing a pending exercise changes nothing
	again, err := UndoExercise(day, id)
	require.NoError(t, err)
	assert.Equal(t, day, again)
}

func TestUndoExercise_clearsPerformance(t *testing.T) {
	day := newTestDay(t, "Squat")
	id := day.Exercises[0].ID

	weight := "45"
	day, err := UpdateSet(day, id, 0, SetUpdate{Weight: &weight})
	require.NoError(t, err)
	day.Exercises[0].ActualTime = "30"
	day.Exercises[0].ActualDistance = "5"

	day, err = CompleteExercise(day, id, time.Now())
	require.NoError(t, err)
	day, applied := ApplyCalories(day, id, 1, 120)
	require.True(t, applied)
	require.NotNil(t, day.Exercises[0].Calories)

	day, err = UndoExercise(day, id)
	require.NoError(t, err)
	ex := day.Exercises[0]
	assert.Nil(t, ex.Calories)
	assert.Empty(t, ex.ActualSets)
	assert.Empty(t, ex.ActualTime)
	assert.Empty(t, ex.ActualDistance)
	assert.Equal(t, 2, ex.Generation)
}

func TestReorderExercises(t *testing.T) {
	day := newTestDay(t, "A", "B", "C", "D")
	ids := make(map[string]string)
	for _, ex := range day.Exercises {
		ids[ex.Name] = ex.ID
	}

	names := func(d DayRecord) []string {
		out := make([]string, 0, len(d.Exercises))
		for _, ex := range d.Exercises {
			out = append(out, ex.Name)
		}
		return out
	}

	moved := ReorderExercises(day, ids["D"], ids["B"])
	assert.Equal(t, []string{"A", "D", "B", "C"}, names(moved))

	moved = ReorderExercises(day, ids["A"], ids["C"])
	assert.Equal(t, []string{"B", "C", "A", "D"}, names(moved))

	assert.Equal(t, day, ReorderExercises(day, ids["A"], "nope"))
	assert.Equal(t, day, ReorderExercises(day, ids["A"], ids["A"]))
}

func TestApplyCalories_generationGuard(t *testing.T) {
	day := newTestDay(t, "Squat")
	id := day.Exercises[0].ID

	// pending: never applied
	_, applied := ApplyCalories(day, id, 0, 100)
	assert.False(t, applied)

	day, err := CompleteExercise(day, id, time.Now())
	require.NoError(t, err)

	// stale generation discarded
	_, applied = ApplyCalories(day, id, 0, 100)
	assert.False(t, applied)

	day, applied = ApplyCalories(day, id, 1, 100)
	require.True(t, applied)
	require.NotNil(t, day.Exercises[0].Calories)
	assert.Equal(t, 100, *day.Exercises[0].Calories)

	_, applied = ApplyCalories(day, "nope", 1, 100)
	assert.False(t, applied)
}

func TestEngineOps_doNotMutateInput(t *testing.T) {
	day := newTestDay(t, "Squat")
	id := day.Exercises[0].ID
	day, err := ExpandSets(day, id)
	require.NoError(t, err)

	snapshot := day.clone()

	weight := "100"
	_, err = UpdateSet(day, id, 0, SetUpdate{Weight: &weight})
	require.NoError(t, err)
	_, err = CompleteExercise(day, id, time.Now())
	require.NoError(t, err)
	_ = DeleteExercise(day, id)

	assert.Equal(t, snapshot, day)
}

func TestParseNumeric(t *testing.T) {
	for input, want := range map[string]float64{
		"40":     40,
		"40kg":   40,
		"12.5":   12.5,
		" 80 kg": 80,
		"heavy":  0,
		"":       0,
		"5km":    5,
	} {
		assert.Equal(t, want, ParseNumeric(input), "input: %q", input)
	}
}

func TestFirstRepsComponent(t *testing.T) {
	assert.Equal(t, "8", FirstRepsComponent("8-12"))
	assert.Equal(t, "10", FirstRepsComponent("10"))
	assert.Equal(t, "", FirstRepsComponent(""))
}

package plan

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrEmptyName        = errors.New("exercise name is empty")
	ErrEmptySkipReason  = errors.New("skip reason is empty")
	ErrInvalidSetIndex  = errors.New("invalid set index")
	ErrNotPending       = errors.New("exercise is not pending")
)

// NewExerciseSpec carries the creation-time fields of an exercise.
// Everything not listed here starts at its zero value, status pending.
type NewExerciseSpec struct {
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	MetricType     MetricType `json:"metricType"`
	BodyPart       string     `json:"bodyPart"`
	TargetSets     string     `json:"targetSets"`
	TargetReps     string     `json:"targetReps"`
	TargetWeight   string     `json:"targetWeight"`
	TargetTime     string     `json:"targetTime"`
	TargetDistance string     `json:"targetDistance"`
	DefaultUnit    string     `json:"defaultUnit"`
	Note           string     `json:"note"`
}

// ExerciseUpdate names the fields an edit may replace. Nil pointers
// leave the current value untouched.
type ExerciseUpdate struct {
	Name           *string `json:"name,omitempty"`
	TargetSets     *string `json:"targetSets,omitempty"`
	TargetReps     *string `json:"targetReps,omitempty"`
	TargetWeight   *string `json:"targetWeight,omitempty"`
	TargetTime     *string `json:"targetTime,omitempty"`
	TargetDistance *string `json:"targetDistance,omitempty"`
	Note           *string `json:"note,omitempty"`
}

// SetUpdate names the fields of one actual set an update may replace.
type SetUpdate struct {
	Reps      *string `json:"reps,omitempty"`
	Weight    *string `json:"weight,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// AddExercise appends a new pending exercise to the day. Target weight
// is parsed once, here, and cached on the exercise for all later
// classification and trend math.
func AddExercise(day DayRecord, spec NewExerciseSpec) (DayRecord, Exercise, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return day, Exercise{}, ErrEmptyName
	}
	ex := Exercise{
		ID:                uuid.NewString(),
		Name:              strings.TrimSpace(spec.Name),
		Type:              spec.Type,
		MetricType:        spec.MetricType,
		BodyPart:          spec.BodyPart,
		TargetSets:        spec.TargetSets,
		TargetReps:        spec.TargetReps,
		TargetWeight:      spec.TargetWeight,
		TargetWeightValue: ParseNumeric(spec.TargetWeight),
		TargetTime:        spec.TargetTime,
		TargetDistance:    spec.TargetDistance,
		DefaultUnit:       spec.DefaultUnit,
		Note:              spec.Note,
		Status:            StatusPending,
	}
	out := day.clone()
	out.Exercises = append(out.Exercises, ex)
	return out, ex, nil
}

// EditExercise replaces the given fields on the matching exercise.
// A changed target weight re-derives the cached numeric value. Editing
// an unknown id returns the day unchanged.
func EditExercise(day DayRecord, id string, update ExerciseUpdate) DayRecord {
	i := day.findExercise(id)
	if i < 0 {
		return day
	}
	out := day.clone()
	ex := &out.Exercises[i]
	if update.Name != nil {
		ex.Name = *update.Name
	}
	if update.TargetSets != nil {
		ex.TargetSets = *update.TargetSets
	}
	if update.TargetReps != nil {
		ex.TargetReps = *update.TargetReps
	}
	if update.TargetWeight != nil {
		ex.TargetWeight = *update.TargetWeight
		ex.TargetWeightValue = ParseNumeric(*update.TargetWeight)
	}
	if update.TargetTime != nil {
		ex.TargetTime = *update.TargetTime
	}
	if update.TargetDistance != nil {
		ex.TargetDistance = *update.TargetDistance
	}
	if update.Note != nil {
		ex.Note = *update.Note
	}
	return out
}

// DeleteExercise removes the matching exercise, preserving the order of
// the rest. Deleting an unknown id is a no-op.
func DeleteExercise(day DayRecord, id string) DayRecord {
	i := day.findExercise(id)
	if i < 0 {
		return day
	}
	out := day.clone()
	out.Exercises = append(out.Exercises[:i], out.Exercises[i+1:]...)
	return out
}

// UpdateSet applies the update to the set at setIndex of the matching
// exercise. When the actual sets list is shorter than setIndex+1 it is
// grown with empty placeholder sets first, so that a sparse UI can
// write set 3 before sets 1 and 2 exist.
func UpdateSet(day DayRecord, exerciseID string, setIndex int, update SetUpdate) (DayRecord, error) {
	i := day.findExercise(exerciseID)
	if i < 0 {
		return day, ErrExerciseNotFound
	}
	if setIndex < 0 {
		return day, fmt.Errorf("%w: %d", ErrInvalidSetIndex, setIndex)
	}
	out := day.clone()
	ex := &out.Exercises[i]
	for len(ex.ActualSets) <= setIndex {
		ex.ActualSets = append(ex.ActualSets, ActualSet{})
	}
	set := &ex.ActualSets[setIndex]
	if update.Reps != nil {
		set.Reps = *update.Reps
	}
	if update.Weight != nil {
		set.Weight = *update.Weight
	}
	if update.Completed != nil {
		set.Completed = *update.Completed
	}
	return out, nil
}

// AddSet appends one more actual set, duplicating the reps and weight
// of the last existing set so a straight-sets workout needs no retyping.
// The new set always starts not completed. With no sets recorded yet
// there is nothing to duplicate and the day stays unchanged.
func AddSet(day DayRecord, exerciseID string) (DayRecord, error) {
	i := day.findExercise(exerciseID)
	if i < 0 {
		return day, ErrExerciseNotFound
	}
	if len(day.Exercises[i].ActualSets) == 0 {
		return day, nil
	}
	out := day.clone()
	ex := &out.Exercises[i]
	last := ex.ActualSets[len(ex.ActualSets)-1]
	ex.ActualSets = append(ex.ActualSets, ActualSet{
		Reps:   last.Reps,
		Weight: last.Weight,
	})
	return out, nil
}

// DeleteSet removes the set at setIndex.
func DeleteSet(day DayRecord, exerciseID string, setIndex int) (DayRecord, error) {
	i := day.findExercise(exerciseID)
	if i < 0 {
		return day, ErrExerciseNotFound
	}
	out := day.clone()
	ex := &out.Exercises[i]
	if setIndex < 0 || setIndex >= len(ex.ActualSets) {
		return day, fmt.Errorf("%w: %d", ErrInvalidSetIndex, setIndex)
	}
	ex.ActualSets = append(ex.ActualSets[:setIndex], ex.ActualSets[setIndex+1:]...)
	return out, nil
}

// ExpandSets back-fills the actual sets of a weight exercise from its
// targets: target-sets many rows, reps defaulting to the first component
// of the (possibly ranged) reps target, weight to the target weight.
// Exercises that already have actual sets are left alone.
func ExpandSets(day DayRecord, exerciseID string) (DayRecord, error) {
	i := day.findExercise(exerciseID)
	if i < 0 {
		return day, ErrExerciseNotFound
	}
	if len(day.Exercises[i].ActualSets) > 0 {
		return day, nil
	}
	out := day.clone()
	expandFromTargets(&out.Exercises[i])
	return out, nil
}

func expandFromTargets(ex *Exercise) {
	count := ParseTargetSets(ex.TargetSets)
	if count <= 0 {
		count = 1
	}
	reps := FirstRepsComponent(ex.TargetReps)
	for s := 0; s < count; s++ {
		ex.ActualSets = append(ex.ActualSets, ActualSet{
			Reps:   reps,
			Weight: ex.TargetWeight,
		})
	}
}

// CompleteExercise marks a pending exercise done at the given instant
// and classifies the completion against the target weight: strictly
// heavier max actual weight means completed-over, strictly lighter
// (with a positive target) completed-under, everything else plain
// completed. Exercises without a weight target are always plain
// completed. When no sets were recorded the sets are back-filled from
// the targets first, so a completed exercise always carries a concrete
// performance record (and classifies as plain completed). An already
// resolved exercise has to go through undo first.
func CompleteExercise(day DayRecord, exerciseID string, now time.Time) (DayRecord, error) {
	i := day.findExercise(exerciseID)
	if i < 0 {
		return day, ErrExerciseNotFound
	}
	if !day.Exercises[i].Pending() {
		return day, ErrNotPending
	}
	out := day.clone()
	ex := &out.Exercises[i]
	if len(ex.ActualSets) == 0 {
		expandFromTargets(ex)
	}

	status := StatusCompleted
	if ex.TargetWeightValue > 0 {
		switch max := ex.MaxActualWeight(); {
		case max > ex.TargetWeightValue:
			status = StatusCompletedOver
		case max < ex.TargetWeightValue:
			status = StatusCompletedUnder
		}
	}

	ts := now
	ex.Status = status
	ex.CompletedTimestamp = &ts
	ex.Generation++
	return out, nil
}

// SkipExercise marks a pending exercise skipped with the given reason
// stored in the note. A blank reason is a validation error, and so is
// skipping an already resolved exercise.
func SkipExercise(day DayRecord, exerciseID, reason string, now time.Time) (DayRecord, error) {
	if strings.TrimSpace(reason) == "" {
		return day, ErrEmptySkipReason
	}
	i := day.findExercise(exerciseID)
	if i < 0 {
		return day, ErrExerciseNotFound
	}
	if !day.Exercises[i].Pending() {
		return day, ErrNotPending
	}
	out := day.clone()
	ex := &out.Exercises[i]
	ts := now
	ex.Status = StatusSkipped
	ex.Note = strings.TrimSpace(reason)
	ex.CompletedTimestamp = &ts
	return out, nil
}

// UndoExercise reverts a completed or skipped exercise to pending,
// clearing the completion timestamp and everything recorded as
// performance: actual sets, actual time/distance and the calorie
// estimate. The note survives undo, so a skip reason is still there
// when the exercise is skipped again. Undoing a pending exercise is a
// no-op.
func UndoExercise(day DayRecord, exerciseID string) (DayRecord, error) {
	i := day.findExercise(exerciseID)
	if i < 0 {
		return day, ErrExerciseNotFound
	}
	if day.Exercises[i].Pending() {
		return day, nil
	}
	out := day.clone()
	ex := &out.Exercises[i]
	ex.Status = StatusPending
	ex.CompletedTimestamp = nil
	ex.ActualSets = nil
	ex.ActualTime = ""
	ex.ActualDistance = ""
	ex.Calories = nil
	ex.Generation++
	return out, nil
}

// ReorderExercises moves the dragged exercise to the position of the
// target exercise, shifting everything in between. Unknown ids or
// dragging onto itself leave the day unchanged.
func ReorderExercises(day DayRecord, draggedID, targetID string) DayRecord {
	from := day.findExercise(draggedID)
	to := day.findExercise(targetID)
	if from < 0 || to < 0 || from == to {
		return day
	}
	out := day.clone()
	moved := out.Exercises[from]
	out.Exercises = append(out.Exercises[:from], out.Exercises[from+1:]...)
	out.Exercises = append(out.Exercises[:to], append([]Exercise{moved}, out.Exercises[to:]...)...)
	return out
}

// ApplyCalories attaches an asynchronous calorie estimate to the
// exercise, but only if the exercise is still in the generation the
// estimate was requested for and still in a completed state. Returns
// whether the estimate was applied.
func ApplyCalories(day DayRecord, exerciseID string, generation, calories int) (DayRecord, bool) {
	i := day.findExercise(exerciseID)
	if i < 0 {
		return day, false
	}
	ex := day.Exercises[i]
	if ex.Generation != generation || ex.Pending() || ex.Status == StatusSkipped {
		return day, false
	}
	out := day.clone()
	c := calories
	out.Exercises[i].Calories = &c
	return out, true
}

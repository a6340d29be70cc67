package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/2beens/workoutcompanion/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type estimatorMock struct {
	calories int
	err      error
	called   chan Exercise
}

func newEstimatorMock(calories int, err error) *estimatorMock {
	return &estimatorMock{
		calories: calories,
		err:      err,
		called:   make(chan Exercise, 10),
	}
}

func (e *estimatorMock) EstimateCalories(_ context.Context, exercise Exercise, _ int) (int, error) {
	e.called <- exercise
	return e.calories, e.err
}

type handlerTestSetup struct {
	handler   *Handler
	repo      *repoMock
	estimator *estimatorMock
	router    *mux.Router
}

func newHandlerTestSetup(t *testing.T) *handlerTestSetup {
	t.Helper()
	repo := NewMockRepo()
	estimator := newEstimatorMock(120, nil)
	handler := NewHandler(repo, estimator, metrics.NewTestManager(), "serj", 80)

	router := mux.NewRouter()
	handler.SetupPlanWideRoutes(router.PathPrefix("/plan").Subrouter())
	handler.SetupRoutes(router.PathPrefix("/plan").Subrouter())

	return &handlerTestSetup{
		handler:   handler,
		repo:      repo,
		estimator: estimator,
		router:    router,
	}
}

func (s *handlerTestSetup) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody *bytes.Reader
	if body != nil {
		bodyJson, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(bodyJson)
	} else {
		reqBody = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *handlerTestSetup) addExercise(t *testing.T, day, name string) Exercise {
	t.Helper()
	rec := s.do(t, "POST", "/plan/"+day+"/exercises", NewExerciseSpec{
		Name:         name,
		Type:         "strength",
		MetricType:   MetricWeightReps,
		TargetSets:   "3",
		TargetReps:   "8-12",
		TargetWeight: "40",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp ExerciseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Exercise
}

func TestHandler_AddAndGetDay(t *testing.T) {
	s := newHandlerTestSetup(t)

	// fresh day reads as empty
	rec := s.do(t, "GET", "/plan/2026-08-29", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dayResp DayResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dayResp))
	assert.Empty(t, dayResp.Exercises)
	assert.Equal(t, 0, dayResp.CompletionPercent)

	added := s.addExercise(t, "2026-08-29", "Bench Press")
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, StatusPending, added.Status)

	rec = s.do(t, "GET", "/plan/2026-08-29", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dayResp))
	require.Len(t, dayResp.Exercises, 1)
	assert.Equal(t, "Bench Press", dayResp.Exercises[0].Name)

	// invalid date rejected
	rec = s.do(t, "GET", "/plan/29-08-2026", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_AddExercise_validation(t *testing.T) {
	s := newHandlerTestSetup(t)

	rec := s.do(t, "POST", "/plan/2026-08-29/exercises", NewExerciseSpec{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// no content type header
	req, err := http.NewRequest("POST", "/plan/2026-08-29/exercises", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_EditAndDeleteExercise(t *testing.T) {
	s := newHandlerTestSetup(t)
	added := s.addExercise(t, "2026-08-29", "Squat")

	newWeight := "60"
	rec := s.do(t, "PUT", "/plan/2026-08-29/exercises/"+added.ID, ExerciseUpdate{TargetWeight: &newWeight})
	require.Equal(t, http.StatusOK, rec.Code)

	record, err := s.repo.GetDay(context.Background(), "serj", "2026-08-29")
	require.NoError(t, err)
	assert.Equal(t, 60.0, record.Exercises[0].TargetWeightValue)

	rec = s.do(t, "DELETE", "/plan/2026-08-29/exercises/"+added.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var delResp DeleteExerciseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &delResp))
	assert.Equal(t, added.ID, delResp.DeletedID)

	record, err = s.repo.GetDay(context.Background(), "serj", "2026-08-29")
	require.NoError(t, err)
	assert.Empty(t, record.Exercises)
}

func TestHandler_Sets(t *testing.T) {
	s := newHandlerTestSetup(t)
	added := s.addExercise(t, "2026-08-29", "Squat")
	base := "/plan/2026-08-29/exercises/" + added.ID

	rec := s.do(t, "POST", base+"/sets/expand", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	weight := "45"
	completed := true
	rec = s.do(t, "PUT", base+"/sets/0", SetUpdate{Weight: &weight, Completed: &completed})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "POST", base+"/sets", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	record, err := s.repo.GetDay(context.Background(), "serj", "2026-08-29")
	require.NoError(t, err)
	sets := record.Exercises[0].ActualSets
	require.Len(t, sets, 4)
	assert.Equal(t, "45", sets[0].Weight)
	assert.True(t, sets[0].Completed)
	// appended set duplicates the last one, not completed
	assert.Equal(t, "40", sets[3].Weight)
	assert.False(t, sets[3].Completed)

	rec = s.do(t, "DELETE", base+"/sets/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	record, err = s.repo.GetDay(context.Background(), "serj", "2026-08-29")
	require.NoError(t, err)
	assert.Len(t, record.Exercises[0].ActualSets, 3)

	rec = s.do(t, "PUT", base+"/sets/abc", SetUpdate{Weight: &weight})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, "PUT", "/plan/2026-08-29/exercises/nope/sets/0", SetUpdate{Weight: &weight})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_CompleteExercise_estimatesCalories(t *testing.T) {
	s := newHandlerTestSetup(t)
	added := s.addExercise(t, "2026-08-29", "Bench Press")

	weight := "42.5"
	completed := true
	rec := s.do(t, "PUT", "/plan/2026-08-29/exercises/"+added.ID+"/sets/0", SetUpdate{Weight: &weight, Completed: &completed})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "POST", "/plan/2026-08-29/exercises/"+added.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dayResp DayResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dayResp))
	require.Len(t, dayResp.Exercises, 1)
	assert.Equal(t, StatusCompletedOver, dayResp.Exercises[0].Status)

	select {
	case estimated := <-s.estimator.called:
		assert.Equal(t, added.ID, estimated.ID)
	case <-time.After(time.Second):
		t.Fatal("estimator never called")
	}
	s.handler.WaitEstimations()

	record, err := s.repo.GetDay(context.Background(), "serj", "2026-08-29")
	require.NoError(t, err)
	require.NotNil(t, record.Exercises[0].Calories)
	assert.Equal(t, 120, *record.Exercises[0].Calories)
}

func TestHandler_CompleteExercise_estimationFailureLeavesCaloriesEmpty(t *testing.T) {
	s := newHandlerTestSetup(t)
	s.estimator.err = errors.New("api down")
	added := s.addExercise(t, "2026-08-29", "Bench Press")

	rec := s.do(t, "POST", "/plan/2026-08-29/exercises/"+added.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	s.handler.WaitEstimations()

	record, err := s.repo.GetDay(context.Background(), "serj", "2026-08-29")
	require.NoError(t, err)
	assert.Nil(t, record.Exercises[0].Calories)
	assert.NotEqual(t, StatusPending, record.Exercises[0].Status)
}

func TestHandler_CompleteUndoRace_staleEstimateDiscarded(t *testing.T) {
	s := newHandlerTestSetup(t)
	added := s.addExercise(t, "2026-08-29", "Bench Press")
	base := "/plan/2026-08-29/exercises/" + added.ID

	rec := s.do(t, "POST", base+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	// undo before waiting out the estimation: the estimate must not land
	undoRec := s.do(t, "POST", base+"/undo", nil)
	require.Equal(t, http.StatusOK, undoRec.Code)
	s.handler.WaitEstimations()

	record, err := s.repo.GetDay(context.Background(), "serj", "2026-08-29")
	require.NoError(t, err)
	if record.Exercises[0].Status == StatusPending {
		assert.Nil(t, record.Exercises[0].Calories)
	}
}

func TestHandler_SkipAndUndo(t *testing.T) {
	s := newHandlerTestSetup(t)
	added := s.addExercise(t, "2026-08-29", "Squat")
	base := "/plan/2026-08-29/exercises/" + added.ID

	rec := s.do(t, "POST", base+"/skip", skipExerciseRequest{Reason: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, "POST", base+"/skip", skipExerciseRequest{Reason: "knee pain"})
	require.Equal(t, http.StatusOK, rec.Code)

	record, err := s.repo.GetDay(context.Background(), "serj", "2026-08-29")
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, record.Exercises[0].Status)
	assert.Equal(t, "knee pain", record.Exercises[0].Note)

	// a skipped exercise has to be undone before it can complete
	rec = s.do(t, "POST", base+"/complete", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, "POST", base+"/undo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	record, err = s.repo.GetDay(context.Background(), "serj", "2026-08-29")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, record.Exercises[0].Status)
	assert.Equal(t, "knee pain", record.Exercises[0].Note)
}

func TestHandler_Reorder(t *testing.T) {
	s := newHandlerTestSetup(t)
	a := s.addExercise(t, "2026-08-29", "A")
	s.addExercise(t, "2026-08-29", "B")
	c := s.addExercise(t, "2026-08-29", "C")

	rec := s.do(t, "POST", "/plan/2026-08-29/reorder", reorderRequest{DraggedID: c.ID, TargetID: a.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	record, err := s.repo.GetDay(context.Background(), "serj", "2026-08-29")
	require.NoError(t, err)
	assert.Equal(t, "C", record.Exercises[0].Name)
	assert.Equal(t, "A", record.Exercises[1].Name)
	assert.Equal(t, "B", record.Exercises[2].Name)

	rec = s.do(t, "POST", "/plan/2026-08-29/reorder", reorderRequest{DraggedID: "", TargetID: a.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_NotesAndSummary(t *testing.T) {
	s := newHandlerTestSetup(t)
	added := s.addExercise(t, "2026-08-29", "Bench Press")

	rec := s.do(t, "PUT", "/plan/2026-08-29/notes", updateNotesRequest{SessionNotes: "push day"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, "POST", "/plan/2026-08-29/exercises/"+added.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	s.handler.WaitEstimations()

	rec = s.do(t, "GET", "/plan/2026-08-29/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := rec.Body.String()
	assert.Contains(t, summary, "Notes: push day")
	assert.Contains(t, summary, "Bench Press")
}

func TestHandler_PlanWideRoutes(t *testing.T) {
	s := newHandlerTestSetup(t)
	ctx := context.Background()

	now := time.Now()
	for i, weights := range [][]string{{"40"}, {"42.5"}, {"45"}} {
		day := fmt.Sprintf("2026-08-%02d", 10+i)
		record := DayRecord{Exercises: []Exercise{
			completedExercise("Bench Press", StatusCompleted, now, weights...),
		}}
		require.NoError(t, s.repo.SaveDay(ctx, "serj", day, record))
	}

	rec := s.do(t, "GET", "/plan/trends", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var series map[string][]TrendPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Contains(t, series, "Bench Press")
	assert.Len(t, series["Bench Press"], 3)

	rec = s.do(t, "GET", "/plan/bests", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bests []PersonalBest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bests))
	require.Len(t, bests, 1)
	assert.Equal(t, 45.0, bests[0].Value)
	assert.Equal(t, MetricWeightReps, bests[0].Metric)

	rec = s.do(t, "GET", "/plan/exercise/Bench%20Press/last?before=2026-08-12&targetWeight=46.75", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var last LastPerformanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &last))
	assert.Equal(t, "2026-08-11", last.Day)
	require.NotNil(t, last.TrendIndicator)
	assert.InDelta(t, 10.0, *last.TrendIndicator, 0.001)

	rec = s.do(t, "GET", "/plan/exercise/Deadlift/last?before=2026-08-12", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package plan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/2beens/workoutcompanion/internal/telemetry/metrics"
	"github.com/2beens/workoutcompanion/internal/telemetry/tracing"
	"github.com/2beens/workoutcompanion/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type planRepo interface {
	GetDay(ctx context.Context, userID, day string) (*DayRecord, error)
	SaveDay(ctx context.Context, userID, day string, record DayRecord) error
	LoadPlan(ctx context.Context, userID string) (Plan, error)
	LoadPlanBefore(ctx context.Context, userID, beforeDay string, limit int) (Plan, error)
}

type calorieEstimator interface {
	EstimateCalories(ctx context.Context, exercise Exercise, userWeightKg int) (int, error)
}

type DayResponse struct {
	Day               string       `json:"day"`
	Exercises         []Exercise   `json:"exercises"`
	SessionNotes      string       `json:"sessionNotes"`
	CompletionPercent int          `json:"completionPercent"`
	Stats             SummaryStats `json:"stats"`
}

type ExerciseResponse struct {
	Day      string   `json:"day"`
	Exercise Exercise `json:"exercise"`
}

type DeleteExerciseResponse struct {
	DeletedID string `json:"deletedId"`
}

type LastPerformanceResponse struct {
	Day            string   `json:"day"`
	Exercise       Exercise `json:"exercise"`
	TrendIndicator *float64 `json:"trendIndicator,omitempty"`
}

type Handler struct {
	repo         planRepo
	estimator    calorieEstimator
	metrics      *metrics.Manager
	userID       string
	userWeightKg int

	// estimations tracks in-flight calorie estimation goroutines so
	// shutdown and tests can wait them out.
	estimations sync.WaitGroup
}

func NewHandler(
	repo planRepo,
	estimator calorieEstimator,
	metricsManager *metrics.Manager,
	userID string,
	userWeightKg int,
) *Handler {
	return &Handler{
		repo:         repo,
		estimator:    estimator,
		metrics:      metricsManager,
		userID:       userID,
		userWeightKg: userWeightKg,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/{date}", handler.HandleGetDay).Methods("GET", "OPTIONS").Name("get-day")
	router.HandleFunc("/{date}/exercises", handler.HandleAddExercise).Methods("POST", "OPTIONS").Name("add-exercise")
	router.HandleFunc("/{date}/exercises/{id}", handler.HandleEditExercise).Methods("PUT", "OPTIONS").Name("edit-exercise")
	router.HandleFunc("/{date}/exercises/{id}", handler.HandleDeleteExercise).Methods("DELETE", "OPTIONS").Name("delete-exercise")
	router.HandleFunc("/{date}/exercises/{id}/sets", handler.HandleAddSet).Methods("POST", "OPTIONS").Name("add-set")
	router.HandleFunc("/{date}/exercises/{id}/sets/expand", handler.HandleExpandSets).Methods("POST", "OPTIONS").Name("expand-sets")
	router.HandleFunc("/{date}/exercises/{id}/sets/{setIndex}", handler.HandleUpdateSet).Methods("PUT", "OPTIONS").Name("update-set")
	router.HandleFunc("/{date}/exercises/{id}/sets/{setIndex}", handler.HandleDeleteSet).Methods("DELETE", "OPTIONS").Name("delete-set")
	router.HandleFunc("/{date}/exercises/{id}/complete", handler.HandleCompleteExercise).Methods("POST", "OPTIONS").Name("complete-exercise")
	router.HandleFunc("/{date}/exercises/{id}/skip", handler.HandleSkipExercise).Methods("POST", "OPTIONS").Name("skip-exercise")
	router.HandleFunc("/{date}/exercises/{id}/undo", handler.HandleUndoExercise).Methods("POST", "OPTIONS").Name("undo-exercise")
	router.HandleFunc("/{date}/reorder", handler.HandleReorder).Methods("POST", "OPTIONS").Name("reorder")
	router.HandleFunc("/{date}/notes", handler.HandleUpdateNotes).Methods("PUT", "OPTIONS").Name("update-notes")
	router.HandleFunc("/{date}/summary", handler.HandleSummary).Methods("GET", "OPTIONS").Name("day-summary")
}

// SetupPlanWideRoutes attaches the routes that read across all days.
// They live on their own subrouter so {date} cannot shadow them.
func (handler *Handler) SetupPlanWideRoutes(router *mux.Router) {
	router.HandleFunc("/trends", handler.HandleTrends).Methods("GET", "OPTIONS").Name("trends")
	router.HandleFunc("/bests", handler.HandlePersonalBests).Methods("GET", "OPTIONS").Name("personal-bests")
	router.HandleFunc("/exercise/{name}/last", handler.HandleLastPerformance).Methods("GET", "OPTIONS").Name("last-performance")
}

// WaitEstimations blocks until all spawned calorie estimations have
// finished. Called on graceful shutdown.
func (handler *Handler) WaitEstimations() {
	handler.estimations.Wait()
}

func dayParam(r *http.Request) (string, bool) {
	date := mux.Vars(r)["date"]
	if _, err := time.Parse(DayKeyLayout, date); err != nil {
		return "", false
	}
	return date, true
}

// loadDay treats a never-stored day as an empty record, so that the
// first mutation of a fresh day needs no explicit creation step.
func (handler *Handler) loadDay(ctx context.Context, day string) (DayRecord, error) {
	record, err := handler.repo.GetDay(ctx, handler.userID, day)
	if errors.Is(err, ErrDayNotFound) {
		return DayRecord{}, nil
	}
	if err != nil {
		return DayRecord{}, err
	}
	return *record, nil
}

func (handler *Handler) writeDay(w http.ResponseWriter, day string, record DayRecord) {
	resp := DayResponse{
		Day:               day,
		Exercises:         SortForDisplay(record.Exercises),
		SessionNotes:      record.SessionNotes,
		CompletionPercent: CompletionPercent(record.Exercises),
		Stats:             DailySummaryStats(record.Exercises),
	}
	respJson, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("failed to marshal day response: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleGetDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.getDay")
	defer span.End()

	day, ok := dayParam(r)
	if !ok {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}

	record, err := handler.loadDay(ctx, day)
	if err != nil {
		log.Errorf("failed to get day %s: %s", day, err)
		http.Error(w, "error, failed to get day", http.StatusInternalServerError)
		return
	}

	handler.writeDay(w, day, record)
}

func (handler *Handler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.addExercise")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	day, ok := dayParam(r)
	if !ok {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}

	var spec NewExerciseSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		log.Errorf("add exercise, unmarshal json params: %s", err)
		http.Error(w, "add exercise failed", http.StatusBadRequest)
		return
	}

	record, err := handler.loadDay(ctx, day)
	if err != nil {
		log.Errorf("add exercise, get day %s: %s", day, err)
		http.Error(w, "error, failed to add exercise", http.StatusInternalServerError)
		return
	}

	record, added, err := AddExercise(record, spec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.SaveDay(ctx, handler.userID, day, record); err != nil {
		log.Errorf("add exercise, save day %s: %s", day, err)
		http.Error(w, "error, failed to add exercise", http.StatusInternalServerError)
		return
	}

	log.Debugf("exercise added to %s: [%s] %s", day, added.ID, added.Name)

	respJson, err := json.Marshal(ExerciseResponse{Day: day, Exercise: added})
	if err != nil {
		log.Errorf("failed to marshal added exercise: %s", err)
		http.Error(w, "error, failed to add exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusCreated)
}

func (handler *Handler) HandleEditExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.editExercise")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	day, ok := dayParam(r)
	if !ok {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]

	var update ExerciseUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Errorf("edit exercise, unmarshal json params: %s", err)
		http.Error(w, "edit exercise failed", http.StatusBadRequest)
		return
	}

	record, err := handler.loadDay(ctx, day)
	if err != nil {
		log.Errorf("edit exercise, get day %s: %s", day, err)
		http.Error(w, "error, failed to edit exercise", http.StatusInternalServerError)
		return
	}

	record = EditExercise(record, id, update)

	if err := handler.repo.SaveDay(ctx, handler.userID, day, record); err != nil {
		log.Errorf("edit exercise, save day %s: %s", day, err)
		http.Error(w, "error, failed to edit exercise", http.StatusInternalServerError)
		return
	}

	handler.writeDay(w, day, record)
}

func (handler *Handler) HandleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.deleteExercise")
	defer span.End()

	day, ok := dayParam(r)
	if !ok {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]

	record, err := handler.loadDay(ctx, day)
	if err != nil {
		log.Errorf("delete exercise, get day %s: %s", day, err)
		http.Error(w, "error, failed to delete exercise", http.StatusInternalServerError)
		return
	}

	record = DeleteExercise(record, id)

	if err := handler.repo.SaveDay(ctx, handler.userID, day, record); err != nil {
		log.Errorf("delete exercise, save day %s: %s", day, err)
		http.Error(w, "error, failed to delete exercise", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(DeleteExerciseResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "error, failed to delete exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func setIndexParam(r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(mux.Vars(r)["setIndex"])
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

func (handler *Handler) HandleUpdateSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.updateSet")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	day, ok := dayParam(r)
	if !ok {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]
	setIndex, ok := setIndexParam(r)
	if !ok {
		http.Error(w, "error, invalid set index", http.StatusBadRequest)
		return
	}

	var update SetUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Errorf("update set, unmarshal json params: %s", err)
		http.Error(w, "update set failed", http.StatusBadRequest)
		return
	}

	record, err := handler.loadDay(ctx, day)
	if err != nil {
		log.Errorf("update set, get day %s: %s", day, err)
		http.Error(w, "error, failed to update set", http.StatusInternalServerError)
		return
	}

	record, err = UpdateSet(record, id, setIndex, update)
	if err != nil {
		handler.writeEngineErr(w, err, "update set")
		return
	}

	if err := handler.repo.SaveDay(ctx, handler.userID, day, record); err != nil {
		log.Errorf("update set, save day %s: %s", day, err)
		http.Error(w, "error, failed to update set", http.StatusInternalServerError)
		return
	}

	handler.writeDay(w, day, record)
}

func (handler *Handler) HandleAddSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.addSet")
	defer span.End()

	day, ok := dayParam(r)
	if !ok {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]

	record, err := handler.loadDay(ctx, day)
	if err != nil {
		log.Errorf("add set, get day %s: %s", day, err)
		http.Error(w, "error, failed to add set", http.StatusInternalServerError)
		return
	}

	record, err = AddSet(record, id)
	if err != nil {
		handler.writeEngineErr(w, err, "add set")
		return
	}

	if err := handler.repo.SaveDay(ctx, handler.userID, day, record); err != nil {
		log.Errorf("add set, save day %s: %s", day, err)
		http.Error(w, "error, failed to add set", http.StatusInternalServerError)
		return
	}

	handler.writeDay(w, day, record)
}

func (handler *Handler) HandleDeleteSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.deleteSet")
	defer span.End()

	day, ok := dayParam(r)
	if !ok {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]
	setIndex, ok := setIndexParam(r)
	if !ok {
		http.Error(w, "error, invalid set index", http.StatusBadRequest)
		return
	}

	record, err := handler.loadDay(ctx, day)
	if err != nil {
		log.Errorf("delete set, get day %s: %s", day, err)
		http.Error(w, "error, failed to delete set", http.StatusInternalServerError)
		return
	}

	record, err = DeleteSet(record, id, setIndex)
	if err != nil {
		handler.writeEngineErr(w, err, "delete set")
		return
	}

	if err := handler.repo.SaveDay(ctx, handler.userID, day, record); err != nil {
		log.Errorf("delete set, save day %s: %s", day, err)
		http.Error(w, "error, failed to delete set", http.StatusInternalServerError)
		return
	}

	handler.writeDay(w, day, record)
}

func (handler *Handler) HandleExpandSets(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.expandSets")
	defer span.End()

	day, ok := dayParam(r)
	if !ok {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]

	record, err := handler.loadDay(ctx, day)
	if err != nil {
		log.Errorf("expand sets, get day %s: %s", day, err)
		http.Error(w, "error, failed to expand sets", http.StatusInternalServerError)
		return
	}

	record, err = ExpandSets(record, id)
	if err != nil {
		handler.writeEngineErr(w, err, "expand sets")
		return
	}

	if err := handler.repo.SaveDay(ctx, handler.userID, day, record); err != nil {
		log.Errorf("expand sets, save day %s: %s", day, err)
		http.Error(w, "error, failed to expand sets", http.StatusInternalServerError)
		return
	}

	handler.writeDay(w, day, record)
}

func (handler *Handler) HandleCompleteExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.completeExercise")
	defer span.End()

	day, ok := dayParam(r)
	if !ok {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]

	record, err := handler.loadDay(ctx, day)
	if err != nil {
		log.Errorf("complete exercise, get day %s: %s", day, err)
		http.Error(w, "error, failed to complete exercise", http.StatusInternalServerError)
		return
	}

	record, err = CompleteExercise(record, id, time.Now())
	if err != nil {
		handler.writeEngineErr(w, err, "complete exercise")
		return
	}

	if err := handler.repo.SaveDay(ctx, handler.userID, day, record); err != nil {
		log.Errorf("complete exercise, save day %s: %s", day, err)
		http.Error(w, "error, failed to complete exercise", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterExercisesCompleted.Inc()

	completed := record.Exercises[record.findExercise(id)]
	handler.spawnCalorieEstimation(day, completed)

	handler.writeDay(w, day, record)
}

// spawnCalorieEstimation asks the estimator for a calorie count in the
// background and applies it to the stored record, unless the exercise
// moved to another generation (undo / re-complete) in the meantime.
func (handler *Handler) spawnCalorieEstimation(day string, exercise Exercise) {
	if handler.estimator == nil {
		return
	}
	handler.metrics.CounterEstimations.Inc()
	handler.estimations.Add(1)
	go func() {
		defer handler.estimations.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		calories, err := handler.estimator.EstimateCalories(ctx, exercise, handler.userWeightKg)
		if err != nil {
			handler.metrics.CounterEstimationsFailed.Inc()
			log.Warnf("calorie estimation for [%s] %s failed: %s", exercise.ID, exercise.Name, err)
			return
		}

		record, err := handler.loadDay(ctx, day)
		if err != nil {
			log.Errorf("apply calories, get day %s: %s", day, err)
			return
		}
		record, applied := ApplyCalories(record, exercise.ID, exercise.Generation, calories)
		if !applied {
			log.Tracef("calorie estimate for [%s] %s discarded, exercise changed", exercise.ID, exercise.Name)
			return
		}
		if err := handler.repo.SaveDay(ctx, handler.userID, day, record); err != nil {
			log.Errorf("apply calories, save day %s: %s", day, err)
		}
	}()
}

type skipExerciseRequest struct {
	Reason string `json:"reason"`
}

func (handler *Handler) HandleSkipExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.skipExercise")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	day, ok := dayParam(r)
	if !ok {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]

	var req skipExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("skip exercise, unmarshal json params: %s", err)
		http.Error(w, "skip exercise failed", http.StatusBadRequest)
		return
	}

	record, err := handler.loadDay(ctx, day)
	if err != nil {
		log.Errorf("skip exercise, get day %s: %s", day, err)
		http.Error(w, "error, failed to skip exercise", http.StatusInternalServerError)
		return
	}

	record, err = SkipExercise(record, id, req.Reason, time.Now())
	if err != nil {
		handler.writeEngineErr(w, err, "skip exercise")
		return
	}

	if err := handler.repo.SaveDay(ctx, handler.userID, day, record); err != nil {
		log.Errorf("skip exercise, save day %s: %s", day, err)
		http.Error(w, "error, failed to skip exercise", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterExercisesSkipped.Inc()

	handler.writeDay(w, day, record)
}

func (handler *Handler) HandleUndoExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.undoExercise")
	defer span.End()

	day, ok := dayParam(r)
	if !ok {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}
	id := mux.Vars(r)["id"]

	record, err := handler.loadDay(ctx, day)
	if err != nil {
		log.Errorf("undo exercise, get day %s: %s", day, err)
		http.Error(w, "error, failed to undo exercise", http.StatusInternalServerError)
		return
	}

	record, err = UndoExercise(record, id)
	if err != nil {
		handler.writeEngineErr(w, err, "undo exercise")
		return
	}

	if err := handler.repo.SaveDay(ctx, handler.userID, day, record); err != nil {
		log.Errorf("undo exercise, save day %s: %s", day, err)
		http.Error(w, "error, failed to undo exercise", http.StatusInternalServerError)
		return
	}

	handler.writeDay(w, day, record)
}

type reorderRequest struct {
	DraggedID string `json:"draggedId"`
	TargetID  string `json:"targetId"`
}

func (handler *Handler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.reorder")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	day, ok := dayParam(r)
	if !ok {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("reorder, unmarshal json params: %s", err)
		http.Error(w, "reorder failed", http.StatusBadRequest)
		return
	}
	if req.DraggedID == "" || req.TargetID == "" {
		http.Error(w, "error, dragged or target id empty", http.StatusBadRequest)
		return
	}

	record, err := handler.loadDay(ctx, day)
	if err != nil {
		log.Errorf("reorder, get day %s: %s", day, err)
		http.Error(w, "error, failed to reorder", http.StatusInternalServerError)
		return
	}

	record = ReorderExercises(record, req.DraggedID, req.TargetID)

	if err := handler.repo.SaveDay(ctx, handler.userID, day, record); err != nil {
		log.Errorf("reorder, save day %s: %s", day, err)
		http.Error(w, "error, failed to reorder", http.StatusInternalServerError)
		return
	}

	handler.writeDay(w, day, record)
}

type updateNotesRequest struct {
	SessionNotes string `json:"sessionNotes"`
}

func (handler *Handler) HandleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.updateNotes")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	day, ok := dayParam(r)
	if !ok {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}

	var req updateNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update notes, unmarshal json params: %s", err)
		http.Error(w, "update notes failed", http.StatusBadRequest)
		return
	}

	record, err := handler.loadDay(ctx, day)
	if err != nil {
		log.Errorf("update notes, get day %s: %s", day, err)
		http.Error(w, "error, failed to update notes", http.StatusInternalServerError)
		return
	}

	record.SessionNotes = req.SessionNotes

	if err := handler.repo.SaveDay(ctx, handler.userID, day, record); err != nil {
		log.Errorf("update notes, save day %s: %s", day, err)
		http.Error(w, "error, failed to update notes", http.StatusInternalServerError)
		return
	}

	handler.writeDay(w, day, record)
}

func (handler *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.summary")
	defer span.End()

	day, ok := dayParam(r)
	if !ok {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}

	record, err := handler.loadDay(ctx, day)
	if err != nil {
		log.Errorf("summary, get day %s: %s", day, err)
		http.Error(w, "error, failed to get summary", http.StatusInternalServerError)
		return
	}

	date, _ := time.Parse(DayKeyLayout, day)
	pkg.WriteTextResponseOK(w, GenerateSummary(record, date))
}

func (handler *Handler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.trends")
	defer span.End()

	p, err := handler.repo.LoadPlan(ctx, handler.userID)
	if err != nil {
		log.Errorf("trends, load plan: %s", err)
		http.Error(w, "error, failed to get trends", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(TrendSeries(p))
	if err != nil {
		log.Errorf("failed to marshal trends: %s", err)
		http.Error(w, "error, failed to get trends", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandlePersonalBests(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.personalBests")
	defer span.End()

	p, err := handler.repo.LoadPlan(ctx, handler.userID)
	if err != nil {
		log.Errorf("personal bests, load plan: %s", err)
		http.Error(w, "error, failed to get personal bests", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(PersonalBests(p))
	if err != nil {
		log.Errorf("failed to marshal personal bests: %s", err)
		http.Error(w, "error, failed to get personal bests", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleLastPerformance(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.lastPerformance")
	defer span.End()

	name := mux.Vars(r)["name"]
	if name == "" {
		http.Error(w, "error, name empty", http.StatusBadRequest)
		return
	}
	before := r.URL.Query().Get("before")
	if _, err := time.Parse(DayKeyLayout, before); err != nil {
		http.Error(w, "error, invalid before date", http.StatusBadRequest)
		return
	}

	p, err := handler.repo.LoadPlanBefore(ctx, handler.userID, before, 0)
	if err != nil {
		log.Errorf("last performance, load plan: %s", err)
		http.Error(w, "error, failed to get last performance", http.StatusInternalServerError)
		return
	}

	last, day, found := FindLastPerformance(p, name, before)
	if !found {
		http.Error(w, "no previous performance", http.StatusNotFound)
		return
	}

	resp := LastPerformanceResponse{
		Day:            day,
		Exercise:       last,
		TrendIndicator: TrendIndicator(p, name, ParseNumeric(r.URL.Query().Get("targetWeight")), before),
	}
	respJson, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("failed to marshal last performance: %s", err)
		http.Error(w, "error, failed to get last performance", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) writeEngineErr(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, ErrExerciseNotFound):
		http.Error(w, "exercise not found", http.StatusNotFound)
	case errors.Is(err, ErrEmptySkipReason), errors.Is(err, ErrInvalidSetIndex),
		errors.Is(err, ErrEmptyName), errors.Is(err, ErrNotPending):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Errorf("%s: %s", op, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

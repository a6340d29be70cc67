package estimator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/2beens/workoutcompanion/internal/plan"

	"github.com/coocood/freecache"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func modelResponse(text string) generateResponse {
	return generateResponse{
		Candidates: []struct {
			Content content `json:"content"`
		}{
			{Content: content{Parts: []part{{Text: text}}}},
		},
	}
}

func newModelServer(t *testing.T, answer string, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "test-api-key", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Contents)
		require.NotEmpty(t, req.Contents[0].Parts)

		respJson, err := json.Marshal(modelResponse(answer))
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(respJson)
	}))
}

func testExercise() plan.Exercise {
	return plan.Exercise{
		ID:         "test-ex",
		Name:       "Bench Press",
		MetricType: plan.MetricWeightReps,
		ActualSets: []plan.ActualSet{
			{Reps: "10", Weight: "40", Completed: true},
			{Reps: "8", Weight: "42.5", Completed: true},
		},
	}
}

func TestApi_EstimateCalories(t *testing.T) {
	var calls int
	server := newModelServer(t, "The exercise burns around 120 kcal.", &calls)
	defer server.Close()

	api := NewApi(server.URL, "test-api-key", server.Client(), freecache.NewCache(1024*1024), nil)

	calories, err := api.EstimateCalories(context.Background(), testExercise(), 80)
	require.NoError(t, err)
	assert.Equal(t, 120, calories)
	assert.Equal(t, 1, calls)

	// same performance served from cache
	calories, err = api.EstimateCalories(context.Background(), testExercise(), 80)
	require.NoError(t, err)
	assert.Equal(t, 120, calories)
	assert.Equal(t, 1, calls)

	// different user weight is a different estimate
	_, err = api.EstimateCalories(context.Background(), testExercise(), 90)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestApi_EstimateCalories_noNumber(t *testing.T) {
	var calls int
	server := newModelServer(t, "I cannot estimate that.", &calls)
	defer server.Close()

	api := NewApi(server.URL, "test-api-key", server.Client(), freecache.NewCache(1024*1024), nil)

	_, err := api.EstimateCalories(context.Background(), testExercise(), 80)
	assert.ErrorIs(t, err, ErrNoNumber)
}

func TestApi_EstimateCalories_apiDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	api := NewApi(server.URL, "test-api-key", server.Client(), freecache.NewCache(1024*1024), nil)

	_, err := api.EstimateCalories(context.Background(), testExercise(), 80)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestApi_DescribeExercise(t *testing.T) {
	var calls int
	server := newModelServer(t, " A compound pressing movement. ", &calls)
	defer server.Close()

	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()
	mock.ExpectGet("exercise-description::bench press").RedisNil()
	mock.ExpectSet(
		"exercise-description::bench press",
		"A compound pressing movement.",
		30*24*time.Hour,
	).SetVal("OK")

	api := NewApi(server.URL, "test-api-key", server.Client(), freecache.NewCache(1024*1024), rdb)

	description, err := api.DescribeExercise(context.Background(), "Bench Press")
	require.NoError(t, err)
	assert.Equal(t, "A compound pressing movement.", description)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApi_DescribeExercise_fromRedis(t *testing.T) {
	var calls int
	server := newModelServer(t, "never used", &calls)
	defer server.Close()

	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()
	mock.ExpectGet("exercise-description::squat").SetVal("A squatting movement.")

	api := NewApi(server.URL, "test-api-key", server.Client(), freecache.NewCache(1024*1024), rdb)

	description, err := api.DescribeExercise(context.Background(), "Squat")
	require.NoError(t, err)
	assert.Equal(t, "A squatting movement.", description)
	assert.Zero(t, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

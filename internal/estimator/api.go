package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/workoutcompanion/internal/plan"
	"github.com/2beens/workoutcompanion/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	modelPath                 = "/v1beta/models/gemini-1.5-flash:generateContent"
	caloriesCacheTTLSeconds   = 24 * 60 * 60
	descriptionCacheExpiry    = 30 * 24 * time.Hour
	descriptionRedisKeyPrefix = "exercise-description::"
)

var (
	ErrEmptyResponse = errors.New("empty model response")
	ErrNoNumber      = errors.New("no number in model response")

	numberRegex = regexp.MustCompile(`\d+`)
)

// Api talks to the Gemini generative API for calorie estimates and
// exercise descriptions. Estimates are cached in-process, descriptions
// in redis (they never really change).
type Api struct {
	baseEndpoint string
	apiKey       string
	httpClient   *http.Client
	cache        *freecache.Cache
	redisClient  *redis.Client
}

func NewApi(
	baseEndpoint, apiKey string,
	httpClient *http.Client,
	cache *freecache.Cache,
	redisClient *redis.Client,
) *Api {
	return &Api{
		baseEndpoint: baseEndpoint,
		apiKey:       apiKey,
		httpClient:   httpClient,
		cache:        cache,
		redisClient:  redisClient,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// EstimateCalories asks the model for a single calorie number for the
// performed exercise. Identically performed exercises hit the
// in-process cache instead of the API.
func (api *Api) EstimateCalories(
	ctx context.Context,
	exercise plan.Exercise,
	userWeightKg int,
) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "estimator.estimateCalories")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", exercise.Name))

	cacheKey := caloriesCacheKey(exercise, userWeightKg)
	if cached, err := api.cache.Get(cacheKey); err == nil {
		if calories, err := strconv.Atoi(string(cached)); err == nil {
			span.SetAttributes(attribute.Bool("from-cache", true))
			log.Tracef("calories for [%s] served from cache: %d", exercise.Name, calories)
			return calories, nil
		}
	}

	prompt := caloriesPrompt(exercise, userWeightKg)
	answer, err := api.generate(ctx, prompt)
	if err != nil {
		return 0, err
	}

	match := numberRegex.FindString(answer)
	if match == "" {
		return 0, fmt.Errorf("%w: %q", ErrNoNumber, answer)
	}
	calories, err := strconv.Atoi(match)
	if err != nil {
		return 0, fmt.Errorf("parse calories %q: %w", match, err)
	}

	if err := api.cache.Set(cacheKey, []byte(strconv.Itoa(calories)), caloriesCacheTTLSeconds); err != nil {
		log.Warnf("failed to cache calories for [%s]: %s", exercise.Name, err)
	}

	span.SetAttributes(attribute.Int("calories", calories))
	return calories, nil
}

// DescribeExercise asks the model for a short description of the named
// exercise, cached in redis.
func (api *Api) DescribeExercise(ctx context.Context, name string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "estimator.describeExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", name))

	redisKey := descriptionRedisKeyPrefix + strings.ToLower(name)
	if api.redisClient != nil {
		cmd := api.redisClient.Get(ctx, redisKey)
		if cached := cmd.Val(); cached != "" {
			span.SetAttributes(attribute.Bool("from-cache", true))
			log.Tracef("description for [%s] served from redis", name)
			return cached, nil
		}
		if err := cmd.Err(); err != nil && !errors.Is(err, redis.Nil) {
			log.Errorf("failed to get description for [%s] from redis: %s", name, err)
		}
	}

	prompt := fmt.Sprintf(
		"Describe the exercise %q in two short sentences: how it is performed and which muscles it works. Plain text only.",
		name,
	)
	description, err := api.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	description = strings.TrimSpace(description)

	if api.redisClient != nil {
		if err := api.redisClient.Set(ctx, redisKey, description, descriptionCacheExpiry).Err(); err != nil {
			log.Errorf("failed to cache description for [%s] in redis: %s", name, err)
		}
	}

	return description, nil
}

func (api *Api) generate(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s%s?key=%s", api.baseEndpoint, modelPath, api.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := api.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call generative api: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generative api status %d: %s", resp.StatusCode, respBytes)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBytes, &genResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

func caloriesCacheKey(exercise plan.Exercise, userWeightKg int) []byte {
	var sets strings.Builder
	for _, s := range exercise.ActualSets {
		fmt.Fprintf(&sets, "%sx%s;", s.Reps, s.Weight)
	}
	return []byte(fmt.Sprintf(
		"calories::%s::%s::%s::%s::%d",
		strings.ToLower(exercise.Name), sets.String(),
		exercise.ActualTime, exercise.ActualDistance, userWeightKg,
	))
}

func caloriesPrompt(exercise plan.Exercise, userWeightKg int) string {
	var b strings.Builder
	fmt.Fprintf(&b,
		"Estimate the calories burned by a %d kg person doing the following exercise. Answer with a single number only.\n",
		userWeightKg,
	)
	fmt.Fprintf(&b, "Exercise: %s\n", exercise.Name)

	switch exercise.MetricType {
	case plan.MetricTimeDistance:
		if exercise.ActualDistance != "" {
			fmt.Fprintf(&b, "Distance: %s\n", exercise.ActualDistance)
		}
		if exercise.ActualTime != "" {
			fmt.Fprintf(&b, "Time: %s\n", exercise.ActualTime)
		}
	case plan.MetricTime:
		if exercise.ActualTime != "" {
			fmt.Fprintf(&b, "Duration: %s\n", exercise.ActualTime)
		}
	default:
		for i, s := range exercise.ActualSets {
			if !s.Completed {
				continue
			}
			fmt.Fprintf(&b, "Set %d: %s reps at %s\n", i+1, s.Reps, s.Weight)
		}
	}

	return b.String()
}

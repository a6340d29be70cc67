package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/workoutcompanion/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrDayNotFound = errors.New("day record not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// GetDay loads one day record. ErrDayNotFound when nothing was ever
// stored for that day.
func (r *Repo) GetDay(ctx context.Context, userID, day string) (_ *DayRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.plan.getDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("day", day))

	var exercisesJson []byte
	var sessionNotes string
	err = r.db.QueryRow(
		ctx,
		`SELECT exercises, session_notes FROM day_record WHERE user_id = $1 AND day = $2;`,
		userID, day,
	).Scan(&exercisesJson, &sessionNotes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDayNotFound
	}
	if err != nil {
		return nil, err
	}

	record := &DayRecord{SessionNotes: sessionNotes}
	if err := json.Unmarshal(exercisesJson, &record.Exercises); err != nil {
		return nil, fmt.Errorf("unmarshal exercises: %w", err)
	}
	return record, nil
}

// SaveDay upserts the whole day record.
func (r *Repo) SaveDay(ctx context.Context, userID, day string, record DayRecord) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.plan.saveDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("day", day),
		attribute.Int("exercises", len(record.Exercises)),
	)

	exercises := record.Exercises
	if exercises == nil {
		exercises = []Exercise{}
	}
	exercisesJson, err := json.Marshal(exercises)
	if err != nil {
		return fmt.Errorf("marshal exercises: %w", err)
	}

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO day_record
				(user_id, day, exercises, session_notes, updated_at)
				VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, day) DO UPDATE
				SET exercises = $3, session_notes = $4, updated_at = $5;`,
		userID, day, exercisesJson, record.SessionNotes, time.Now(),
	)
	return err
}

// LoadPlan loads all day records of the user, keyed by day.
func (r *Repo) LoadPlan(ctx context.Context, userID string) (_ Plan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.plan.loadPlan")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT day, exercises, session_notes FROM day_record WHERE user_id = $1 ORDER BY day;`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	p := make(Plan)
	for rows.Next() {
		var day string
		var exercisesJson []byte
		var sessionNotes string
		if err := rows.Scan(&day, &exercisesJson, &sessionNotes); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		record := DayRecord{SessionNotes: sessionNotes}
		if err := json.Unmarshal(exercisesJson, &record.Exercises); err != nil {
			return nil, fmt.Errorf("unmarshal exercises for %s: %w", day, err)
		}
		p[day] = record
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("days", len(p)))
	return p, nil
}

// LoadPlanBefore is LoadPlan restricted to days strictly before the
// given day, newest first, at most limit records (0 for no limit).
// Used by last-performance and trend lookups.
func (r *Repo) LoadPlanBefore(ctx context.Context, userID, beforeDay string, limit int) (_ Plan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.plan.loadPlanBefore")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("before", beforeDay))

	query := `SELECT day, exercises, session_notes FROM day_record WHERE user_id = $1 AND day < $2 ORDER BY day DESC`
	args := []interface{}{userID, beforeDay}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query+";", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	p := make(Plan)
	for rows.Next() {
		var day string
		var exercisesJson []byte
		var sessionNotes string
		if err := rows.Scan(&day, &exercisesJson, &sessionNotes); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		record := DayRecord{SessionNotes: sessionNotes}
		if err := json.Unmarshal(exercisesJson, &record.Exercises); err != nil {
			return nil, fmt.Errorf("unmarshal exercises for %s: %w", day, err)
		}
		p[day] = record
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return p, nil
}

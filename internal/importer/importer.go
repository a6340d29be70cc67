package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/2beens/workoutcompanion/internal/plan"
	"github.com/2beens/workoutcompanion/internal/telemetry/metrics"
	"github.com/2beens/workoutcompanion/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// csv columns:
// date,exerciseName,type,status,targetSets,targetReps,targetWeight,targetTime,targetDistance,sessionNotes
const expectedColumns = 10

var ErrEmptyImport = errors.New("no rows to import")

type planRepo interface {
	GetDay(ctx context.Context, userID, day string) (*plan.DayRecord, error)
	SaveDay(ctx context.Context, userID, day string, record plan.DayRecord) error
}

type Result struct {
	Imported    int      `json:"imported"`
	Skipped     int      `json:"skipped"`
	DaysTouched int      `json:"daysTouched"`
	SkippedRows []string `json:"skippedRows,omitempty"`
}

type Importer struct {
	repo    planRepo
	metrics *metrics.Manager
}

func NewImporter(repo planRepo, metricsManager *metrics.Manager) *Importer {
	return &Importer{
		repo:    repo,
		metrics: metricsManager,
	}
}

// ImportCSV reads workout history rows and merges them into the stored
// day records. Rows with an unparseable date or wrong column count are
// skipped and reported, never aborting the rest of the import.
func (i *Importer) ImportCSV(ctx context.Context, userID string, reader io.Reader) (_ *Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "importer.importCSV")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	result := &Result{}
	days := make(map[string]plan.DayRecord)
	dayNotes := make(map[string]string)

	rowNum := 0
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		rowNum++

		if rowNum == 1 && record[0] == "date" {
			// header row
			continue
		}

		day, entry, sessionNotes, rowErr := parseRow(record)
		if rowErr != nil {
			result.Skipped++
			result.SkippedRows = append(result.SkippedRows, fmt.Sprintf("row %d: %s", rowNum, rowErr))
			i.metrics.CounterImportSkippedRows.Inc()
			log.Warnf("import: skipping row %d: %s", rowNum, rowErr)
			continue
		}

		dayRecord, ok := days[day]
		if !ok {
			existing, err := i.repo.GetDay(ctx, userID, day)
			if err != nil && !errors.Is(err, plan.ErrDayNotFound) {
				return nil, fmt.Errorf("get day %s: %w", day, err)
			}
			if existing != nil {
				dayRecord = *existing
			}
		}
		dayRecord.Exercises = append(dayRecord.Exercises, entry)
		days[day] = dayRecord
		if sessionNotes != "" {
			dayNotes[day] = sessionNotes
		}
		result.Imported++
	}

	if result.Imported == 0 && result.Skipped == 0 {
		return nil, ErrEmptyImport
	}

	for day, record := range days {
		if notes, ok := dayNotes[day]; ok && record.SessionNotes == "" {
			record.SessionNotes = notes
		}
		if err := i.repo.SaveDay(ctx, userID, day, record); err != nil {
			return nil, fmt.Errorf("save day %s: %w", day, err)
		}
		result.DaysTouched++
	}

	i.metrics.CounterImportedRows.Add(float64(result.Imported))
	span.SetAttributes(
		attribute.Int("imported", result.Imported),
		attribute.Int("skipped", result.Skipped),
	)
	log.Debugf("import done: %d rows imported, %d skipped, %d days touched",
		result.Imported, result.Skipped, result.DaysTouched)

	return result, nil
}

func parseRow(record []string) (day string, entry plan.Exercise, sessionNotes string, err error) {
	if len(record) != expectedColumns {
		return "", plan.Exercise{}, "", fmt.Errorf("expected %d columns, got %d", expectedColumns, len(record))
	}

	date, err := time.Parse(plan.DayKeyLayout, strings.TrimSpace(record[0]))
	if err != nil {
		return "", plan.Exercise{}, "", fmt.Errorf("bad date %q", record[0])
	}
	day = date.Format(plan.DayKeyLayout)

	name := strings.TrimSpace(record[1])
	if name == "" {
		return "", plan.Exercise{}, "", errors.New("empty exercise name")
	}

	status, err := parseStatus(record[3])
	if err != nil {
		return "", plan.Exercise{}, "", err
	}

	entry = plan.Exercise{
		ID:                uuid.NewString(),
		Name:              name,
		Type:              strings.TrimSpace(record[2]),
		MetricType:        plan.MetricWeightReps,
		TargetSets:        strings.TrimSpace(record[4]),
		TargetReps:        strings.TrimSpace(record[5]),
		TargetWeight:      strings.TrimSpace(record[6]),
		TargetWeightValue: plan.ParseNumeric(record[6]),
		TargetTime:        strings.TrimSpace(record[7]),
		TargetDistance:    strings.TrimSpace(record[8]),
		Status:            status,
	}
	if entry.TargetDistance != "" || entry.TargetTime != "" {
		if entry.TargetDistance != "" {
			entry.MetricType = plan.MetricTimeDistance
		} else {
			entry.MetricType = plan.MetricTime
		}
	}

	// historical entries get their completion anchored to the imported
	// day, not to the moment of import
	if status != plan.StatusPending {
		completedAt := date.Add(12 * time.Hour)
		entry.CompletedTimestamp = &completedAt
	}

	return day, entry, strings.TrimSpace(record[9]), nil
}

func parseStatus(s string) (plan.Status, error) {
	switch plan.Status(strings.TrimSpace(strings.ToLower(s))) {
	case plan.StatusPending, "":
		return plan.StatusPending, nil
	case plan.StatusCompleted:
		return plan.StatusCompleted, nil
	case plan.StatusCompletedOver:
		return plan.StatusCompletedOver, nil
	case plan.StatusCompletedUnder:
		return plan.StatusCompletedUnder, nil
	case plan.StatusSkipped:
		return plan.StatusSkipped, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/2beens/workoutcompanion/internal/plan"

	log "github.com/sirupsen/logrus"
)

// Entry is one known exercise: the template day-plan exercises are
// created from.
type Entry struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	BodyPart    string          `json:"bodyPart"`
	MetricType  plan.MetricType `json:"metricType"`
	DefaultUnit string          `json:"defaultUnit"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ReadEntriesCSV reads catalog seed entries from CSV:
// ID,NAME,BODY_PART,METRIC_TYPE,DEFAULT_UNIT
func ReadEntriesCSV(csvReader *csv.Reader) ([]Entry, error) {
	log.Println("reading catalog CSV ...")

	var entries []Entry
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if len(record) != 5 {
			return nil, fmt.Errorf("record [%s] does not have 5 elements", record)
		}
		if record[0] == "id" {
			// header row
			continue
		}

		entries = append(entries, Entry{
			ID:          record[0],
			Name:        record[1],
			BodyPart:    record[2],
			MetricType:  plan.MetricType(record[3]),
			DefaultUnit: record[4],
			CreatedAt:   time.Now(),
		})
	}

	log.Printf("catalog CSV read, %d entries", len(entries))

	return entries, nil
}

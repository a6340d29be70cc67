package plan

import (
	"strings"
	"time"
)

// DayKeyLayout is the calendar-local date key format used all over
// the plan: day records are keyed, persisted and looked up by it.
const DayKeyLayout = "2006-01-02"

type MetricType string

const (
	MetricWeightReps   MetricType = "weight_reps"
	MetricBodyweight   MetricType = "bodyweight"
	MetricTimeDistance MetricType = "time_distance"
	MetricTime         MetricType = "time"
	MetricCustom       MetricType = "custom"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusCompleted      Status = "completed"
	StatusCompletedUnder Status = "completed-under"
	StatusCompletedOver  Status = "completed-over"
	StatusSkipped        Status = "skipped"
)

// ActualSet is one performed set of an exercise. Reps and weight stay
// strings, exactly as typed in, and are parsed leniently when volume
// or completion classification needs numbers.
type ActualSet struct {
	Reps      string `json:"reps"`
	Weight    string `json:"weight"`
	Completed bool   `json:"completed"`
}

// Exercise is one planned (and possibly performed) exercise within a
// day record. Target fields are set at creation and only change through
// an explicit edit; actual fields are mutated while working out.
type Exercise struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	MetricType MetricType `json:"metricType"`
	BodyPart   string     `json:"bodyPart"`

	TargetSets        string  `json:"targetSets"`
	TargetReps        string  `json:"targetReps"`
	TargetWeight      string  `json:"targetWeight"`
	TargetWeightValue float64 `json:"targetWeightValue"`
	TargetTime        string  `json:"targetTime"`
	TargetDistance    string  `json:"targetDistance"`
	DefaultUnit       string  `json:"defaultUnit"`

	ActualSets     []ActualSet `json:"actualSets"`
	ActualTime     string      `json:"actualTime"`
	ActualDistance string      `json:"actualDistance"`
	Note           string      `json:"note"`

	Status             Status     `json:"status"`
	CompletedTimestamp *time.Time `json:"completedTimestamp,omitempty"`
	Calories           *int       `json:"calories,omitempty"`

	// Generation guards late asynchronous enrichment (calorie estimates)
	// against applying to an exercise that was undone or re-done since
	// the request was issued. Bumped on complete and undo.
	Generation int `json:"generation"`
}

func (e *Exercise) Pending() bool {
	return e.Status == StatusPending
}

// MaxActualWeight returns the heaviest weight recorded across the
// actual sets, with non-numeric entries counting as 0.
func (e *Exercise) MaxActualWeight() float64 {
	var max float64
	for _, s := range e.ActualSets {
		if w := ParseNumeric(s.Weight); w > max {
			max = w
		}
	}
	return max
}

// DayRecord is the unit of persistence and mutation: the exercises
// planned for one calendar day, in user-significant order, plus free
// session notes.
type DayRecord struct {
	Exercises    []Exercise `json:"exercises"`
	SessionNotes string     `json:"sessionNotes"`
}

func (d DayRecord) findExercise(id string) int {
	for i := range d.Exercises {
		if d.Exercises[i].ID == id {
			return i
		}
	}
	return -1
}

// clone returns a deep copy, so that engine operations never alias the
// caller's slices.
func (d DayRecord) clone() DayRecord {
	out := DayRecord{SessionNotes: d.SessionNotes}
	if d.Exercises == nil {
		return out
	}
	out.Exercises = make([]Exercise, len(d.Exercises))
	copy(out.Exercises, d.Exercises)
	for i := range out.Exercises {
		if sets := out.Exercises[i].ActualSets; sets != nil {
			cp := make([]ActualSet, len(sets))
			copy(cp, sets)
			out.Exercises[i].ActualSets = cp
		}
	}
	return out
}

// Plan maps day keys (YYYY-MM-DD) to day records.
type Plan map[string]DayRecord

// ParseNumeric is the single best-effort numeric parse used for target
// weights, reps and distances: the leading numeric portion of the
// string is taken, anything else (units, garbage, empty) falls back
// to 0. "40kg" -> 40, "12.5" -> 12.5, "heavy" -> 0.
func ParseNumeric(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0
	}

	var value float64
	var frac float64
	inFrac := false
	for i := 0; i < end; i++ {
		if s[i] == '.' {
			inFrac = true
			frac = 0.1
			continue
		}
		digit := float64(s[i] - '0')
		if inFrac {
			value += digit * frac
			frac /= 10
		} else {
			value = value*10 + digit
		}
	}
	return value
}

// ParseTargetSets returns the number of sets a target-sets string asks
// for, 0 when it cannot be parsed.
func ParseTargetSets(s string) int {
	return int(ParseNumeric(s))
}

// FirstRepsComponent extracts the first component of a reps target that
// may be a range, e.g. "8-12" -> "8". Used as the default reps value
// when actual sets get back-filled from targets.
func FirstRepsComponent(targetReps string) string {
	first, _, _ := strings.Cut(targetReps, "-")
	return strings.TrimSpace(first)
}

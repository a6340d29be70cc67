package plan

import (
	"context"
	"sync"
)

type repoMock struct {
	mu   sync.Mutex
	days map[string]DayRecord
}

func NewMockRepo() *repoMock {
	return &repoMock{
		days: make(map[string]DayRecord),
	}
}

func dayKey(userID, day string) string {
	return userID + "::" + day
}

func (r *repoMock) GetDay(_ context.Context, userID, day string) (*DayRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.days[dayKey(userID, day)]
	if !ok {
		return nil, ErrDayNotFound
	}
	return &record, nil
}

func (r *repoMock) SaveDay(_ context.Context, userID, day string, record DayRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.days[dayKey(userID, day)] = record
	return nil
}

func (r *repoMock) LoadPlan(_ context.Context, userID string) (Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := make(Plan)
	prefix := userID + "::"
	for key, record := range r.days {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			p[key[len(prefix):]] = record
		}
	}
	return p, nil
}

func (r *repoMock) LoadPlanBefore(_ context.Context, userID, beforeDay string, _ int) (Plan, error) {
	all, _ := r.LoadPlan(context.Background(), userID)
	p := make(Plan)
	for day, record := range all {
		if day < beforeDay {
			p[day] = record
		}
	}
	return p, nil
}

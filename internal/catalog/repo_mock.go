package catalog

import (
	"context"
	"sort"
	"strings"
)

type repoMock struct {
	entries map[string]Entry
}

func NewMockRepo() *repoMock {
	return &repoMock{
		entries: make(map[string]Entry),
	}
}

func (r *repoMock) Add(_ context.Context, entry Entry) error {
	if _, ok := r.entries[entry.ID]; ok {
		return nil
	}
	r.entries[entry.ID] = entry
	return nil
}

func (r *repoMock) Get(_ context.Context, id string) (*Entry, error) {
	entry, ok := r.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return &entry, nil
}

func (r *repoMock) List(_ context.Context) ([]Entry, error) {
	entries := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func (r *repoMock) Search(ctx context.Context, query string) ([]Entry, error) {
	all, _ := r.List(ctx)
	query = strings.ToLower(query)
	var entries []Entry
	for _, entry := range all {
		if strings.Contains(strings.ToLower(entry.Name), query) ||
			strings.Contains(strings.ToLower(entry.BodyPart), query) {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (r *repoMock) Update(_ context.Context, entry Entry) error {
	if _, ok := r.entries[entry.ID]; !ok {
		return ErrEntryNotFound
	}
	r.entries[entry.ID] = entry
	return nil
}

func (r *repoMock) UpdateDescription(_ context.Context, id, description string) error {
	entry, ok := r.entries[id]
	if !ok {
		return ErrEntryNotFound
	}
	entry.Description = description
	r.entries[id] = entry
	return nil
}

func (r *repoMock) Delete(_ context.Context, id string) error {
	if _, ok := r.entries[id]; !ok {
		return ErrEntryNotFound
	}
	delete(r.entries, id)
	return nil
}

func (r *repoMock) Seed(ctx context.Context, entries []Entry) error {
	for _, entry := range entries {
		if err := r.Add(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

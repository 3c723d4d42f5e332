// Package memory provides an in-process activity store for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"example.com/activities/internal/domain"
	"example.com/activities/internal/persistence"
)

// Repository keeps activities in a map keyed by id.
type Repository struct {
	mu         sync.RWMutex
	activities map[string]domain.Activity
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{activities: make(map[string]domain.Activity)}
}

// Exists implements domain.ActivityRepository.
func (r *Repository) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.activities[id]
	return ok, nil
}

// InsertMany implements domain.ActivityRepository. Existing ids are left untouched.
func (r *Repository) InsertMany(_ context.Context, activities []domain.Activity) ([]domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]domain.Activity, 0, len(activities))
	for _, activity := range activities {
		if _, ok := r.activities[activity.ID]; ok {
			continue
		}
		r.activities[activity.ID] = activity
		stored = append(stored, activity)
	}
	return stored, nil
}

// FindByTrack implements domain.ActivityRepository.
func (r *Repository) FindByTrack(_ context.Context, trackID string) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.track(trackID, nil), nil
}

// ListByTrack implements domain.ActivityRepository.
func (r *Repository) ListByTrack(_ context.Context, trackID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := r.track(trackID, cursor)
	if limit <= 0 || len(results) < limit {
		return results, nil, nil
	}
	results = results[:limit]
	last := results[len(results)-1]
	return results, &domain.Cursor{OccurredAt: last.OccurredAt, ID: last.ID}, nil
}

// track returns a track's activities past cursor, newest first. Callers hold the lock.
func (r *Repository) track(trackID string, cursor *domain.Cursor) []domain.Activity {
	out := make([]domain.Activity, 0)
	for _, activity := range r.activities {
		if activity.TrackID == trackID && persistence.Before(activity, cursor) {
			out = append(out, activity)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	return out
}

// Walk visits activities oldest first, optionally restricted to one track.
func (r *Repository) Walk(_ context.Context, trackID string, fn func(domain.Activity) error) error {
	r.mu.RLock()
	all := make([]domain.Activity, 0, len(r.activities))
	for _, activity := range r.activities {
		if trackID == "" || activity.TrackID == trackID {
			all = append(all, activity)
		}
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].OccurredAt.Equal(all[j].OccurredAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].OccurredAt.Before(all[j].OccurredAt)
	})
	for _, activity := range all {
		if err := fn(activity); err != nil {
			return err
		}
	}
	return nil
}

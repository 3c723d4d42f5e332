// Package domain defines the business logic for the activities service.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"example.com/activities/internal/observability"
)

var (
	// ErrTrackNotFound indicates no activity is stored for the requested track.
	ErrTrackNotFound = errors.New("track not found")
	// ErrAmountComputation indicates a stored amount could not be parsed while folding a track.
	ErrAmountComputation = errors.New("cannot calculate amount")
	// ErrNothingToStore is returned when no candidate of an ingest batch could be persisted.
	ErrNothingToStore = errors.New("cannot store any activity")
)

// ActivityRepository captures persistence operations.
type ActivityRepository interface {
	ExistenceChecker
	// InsertMany stores activities, silently skipping ids that already exist, and returns the
	// activities it actually wrote in input order.
	InsertMany(ctx context.Context, activities []Activity) ([]Activity, error)
	// FindByTrack returns the full history of a track ordered by occurred_at descending.
	FindByTrack(ctx context.Context, trackID string) ([]Activity, error)
	ListByTrack(ctx context.Context, trackID string, cursor *Cursor, limit int) ([]Activity, *Cursor, error)
}

// Service orchestrates ingestion and aggregation.
type Service struct {
	repo       ActivityRepository
	checker    *Checker
	aggregator Aggregator
}

// NewService constructs a Service.
func NewService(repo ActivityRepository) *Service {
	return &Service{
		repo:    repo,
		checker: NewChecker(repo),
	}
}

// Ingest validates candidates and persists the unique valid subset, returning the activities this
// call stored. Ids taken by a concurrent request in the meantime are left out.
func (s *Service) Ingest(ctx context.Context, candidates []RawActivity) ([]Activity, error) {
	prepared, err := s.checker.Prepare(ctx, candidates)
	if err != nil {
		return nil, err
	}
	if len(prepared) == 0 {
		return nil, ErrNothingToStore
	}

	stored, err := s.repo.InsertMany(ctx, prepared)
	if err != nil {
		return nil, fmt.Errorf("store activities: %w", err)
	}
	if len(stored) == 0 {
		return nil, ErrNothingToStore
	}
	if len(stored) < len(prepared) {
		log.Printf("ingest: %d of %d activities were stored concurrently by another request", len(prepared)-len(stored), len(prepared))
	}

	observability.RecordIngestAccepted(len(stored))
	return stored, nil
}

// Aggregate computes the summary of a track from its full history.
func (s *Service) Aggregate(ctx context.Context, trackID string) (Summary, error) {
	start := time.Now()
	defer observability.ObserveAggregate(start)

	history, err := s.repo.FindByTrack(ctx, trackID)
	if err != nil {
		return Summary{}, err
	}
	return s.aggregator.Aggregate(history)
}

// History fetches a page of a track's activities, most recent first.
func (s *Service) History(ctx context.Context, trackID string, cursor *Cursor, limit int) ([]Activity, *Cursor, error) {
	return s.repo.ListByTrack(ctx, trackID, cursor, limit)
}

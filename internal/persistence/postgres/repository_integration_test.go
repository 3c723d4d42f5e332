//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/activities/internal/domain"
	"example.com/activities/internal/testsupport"
)

func TestRepositoryRoundTripFeedsAggregate(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)
	repo := NewRepository(pool)
	service := domain.NewService(repo)

	accepted, err := service.Ingest(ctx, []domain.RawActivity{
		{"id": "X13210000Z", "occurred_at": "2021-04-16T08:05:35.941465", "track_id": "T123456", "status": "S", "amount": "10.54"},
		{"id": "X13210001Z", "occurred_at": "2021-04-16T08:05:36.941465", "track_id": "T123456", "status": "A", "amount": "10.54"},
		{"id": "X13210002Z", "occurred_at": "2021-04-16T08:05:37.941465", "track_id": "T123456", "status": "R", "amount": "0.54"},
		{"id": "X13210003Z", "occurred_at": "2021-04-16T08:05:38.941465", "track_id": "T123456", "status": "S", "amount": "10.00"},
		{"id": "X13210004Z", "occurred_at": "2021-04-16T08:05:39.941465", "track_id": "T123456", "status": "A", "amount": "10.54"},
	})
	require.NoError(t, err)
	require.Len(t, accepted, 5)

	history, err := repo.FindByTrack(ctx, "T123456")
	require.NoError(t, err)
	require.Len(t, history, 5)
	require.Equal(t, "X13210004Z", history[0].ID)
	require.Equal(t, "10.54", history[4].Amount)
	require.Equal(t, time.Date(2021, time.April, 16, 8, 5, 35, 941465000, time.UTC), history[4].OccurredAt)

	summary, err := service.Aggregate(ctx, "T123456")
	require.NoError(t, err)
	require.Equal(t, domain.StatusAuthorized, summary.LastStatus)
	require.Equal(t, "20.00", summary.Amount.StringFixed(2))

	var outboxCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE event_type = 'activity.recorded'`).Scan(&outboxCount))
	require.Equal(t, 5, outboxCount)

	_, err = service.Ingest(ctx, []domain.RawActivity{
		{"id": "X13210000Z", "occurred_at": "2021-04-16T09:14:16.435742", "track_id": "TRACK_ID_3", "status": "A", "amount": 30},
	})
	require.ErrorIs(t, err, domain.ErrNothingToStore)
}

func TestRepositoryInsertManySkipsConflicts(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)
	repo := NewRepository(pool)

	activity := domain.Activity{
		ID:         "RACE-1",
		OccurredAt: time.Date(2021, time.April, 16, 8, 0, 0, 0, time.UTC),
		TrackID:    "T1",
		Status:     domain.StatusSettled,
		Amount:     "1.00",
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, err := repo.InsertMany(ctx, []domain.Activity{activity})
			require.NoError(t, err)
			mu.Lock()
			total += len(stored)
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Equal(t, 1, total)

	var outboxCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE aggregate_id = $1`, activity.ID).Scan(&outboxCount))
	require.Equal(t, 1, outboxCount)
}

func TestRepositoryListByTrackPaginates(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)
	repo := NewRepository(pool)

	base := time.Date(2021, time.April, 16, 8, 0, 0, 0, time.UTC)
	batch := make([]domain.Activity, 0, 3)
	for i, id := range []string{"P1", "P2", "P3"} {
		batch = append(batch, domain.Activity{ID: id, OccurredAt: base.Add(time.Duration(i) * time.Minute), TrackID: "PAGE", Amount: "1.00"})
	}
	stored, err := repo.InsertMany(ctx, batch)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	page, next, err := repo.ListByTrack(ctx, "PAGE", nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "P3", page[0].ID)
	require.NotNil(t, next)

	page, next, err = repo.ListByTrack(ctx, "PAGE", next, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "P1", page[0].ID)
	require.Nil(t, next)
}

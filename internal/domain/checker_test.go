package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/activities/internal/observability"
)

type stubStore struct {
	existing map[string]bool
	err      error
	calls    []string
}

func (s *stubStore) Exists(_ context.Context, id string) (bool, error) {
	s.calls = append(s.calls, id)
	if s.err != nil {
		return false, s.err
	}
	return s.existing[id], nil
}

func validRaw(id string) RawActivity {
	return RawActivity{
		"id":          id,
		"occurred_at": "2021-04-16T08:05:35.941465",
		"track_id":    "T123456",
		"status":      "S",
		"amount":      json.Number("10.54"),
	}
}

func TestDeduplicateKeepsLaterOccurrence(t *testing.T) {
	first := validRaw("X1")
	first["amount"] = "1.00"
	second := validRaw("X2")
	last := validRaw("X1")
	last["amount"] = "2.00"

	out := Deduplicate([]RawActivity{first, second, last})

	require.Len(t, out, 2)
	require.Equal(t, "X1", out[0]["id"])
	require.Equal(t, "2.00", out[0]["amount"])
	require.Equal(t, "X2", out[1]["id"])
}

func TestDeduplicatePassesThroughNonStringIDs(t *testing.T) {
	a := validRaw("X1")
	a["id"] = json.Number("12")
	b := validRaw("X1")
	b["id"] = json.Number("12")

	out := Deduplicate([]RawActivity{a, b})
	require.Len(t, out, 2)
}

func TestParseCandidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(RawActivity)
		reason string
	}{
		{name: "valid", mutate: func(RawActivity) {}},
		{name: "missing status is blank", mutate: func(r RawActivity) { delete(r, "status") }},
		{name: "empty track id", mutate: func(r RawActivity) { r["track_id"] = "" }},
		{name: "negative amount", mutate: func(r RawActivity) { r["amount"] = json.Number("-12.5") }},
		{name: "missing id", mutate: func(r RawActivity) { delete(r, "id") }, reason: RejectInvalidID},
		{name: "blank id", mutate: func(r RawActivity) { r["id"] = "  " }, reason: RejectInvalidID},
		{name: "id too long", mutate: func(r RawActivity) { r["id"] = "X123456789012345678901" }, reason: RejectInvalidID},
		{name: "numeric id", mutate: func(r RawActivity) { r["id"] = json.Number("42") }, reason: RejectInvalidID},
		{name: "timestamp without fraction", mutate: func(r RawActivity) { r["occurred_at"] = "2021-04-16T08:05:35" }, reason: RejectInvalidTimestamp},
		{name: "timestamp with zone", mutate: func(r RawActivity) { r["occurred_at"] = "2021-04-16T08:05:35.941465Z" }, reason: RejectInvalidTimestamp},
		{name: "timestamp out of range", mutate: func(r RawActivity) { r["occurred_at"] = "2021-13-16T08:05:35.1" }, reason: RejectInvalidTimestamp},
		{name: "track id too long", mutate: func(r RawActivity) { r["track_id"] = "T1234567890" }, reason: RejectInvalidTrackID},
		{name: "missing track id", mutate: func(r RawActivity) { delete(r, "track_id") }, reason: RejectInvalidTrackID},
		{name: "amount with three decimals", mutate: func(r RawActivity) { r["amount"] = json.Number("1.005") }, reason: RejectInvalidAmount},
		{name: "amount too large", mutate: func(r RawActivity) { r["amount"] = json.Number("1000000") }, reason: RejectInvalidAmount},
		{name: "amount not numeric", mutate: func(r RawActivity) { r["amount"] = "ten" }, reason: RejectInvalidAmount},
		{name: "amount missing", mutate: func(r RawActivity) { delete(r, "amount") }, reason: RejectInvalidAmount},
		{name: "unknown status", mutate: func(r RawActivity) { r["status"] = "T" }, reason: RejectInvalidStatus},
		{name: "status not a string", mutate: func(r RawActivity) { r["status"] = json.Number("1") }, reason: RejectInvalidStatus},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := validRaw("X13210000Z")
			tc.mutate(raw)

			activity, reason := ParseCandidate(raw)
			require.Equal(t, tc.reason, reason)
			if tc.reason == "" {
				require.Equal(t, "X13210000Z", activity.ID)
			}
		})
	}
}

func TestParseCandidateNormalizesValues(t *testing.T) {
	raw := validRaw("X1")
	raw["amount"] = json.Number("10.5")
	raw["occurred_at"] = "2021-04-16T08:05:35.9"

	activity, reason := ParseCandidate(raw)
	require.Empty(t, reason)
	require.Equal(t, "10.50", activity.Amount)
	require.Equal(t, time.Date(2021, time.April, 16, 8, 5, 35, 900000000, time.UTC), activity.OccurredAt)
	require.Equal(t, StatusSettled, activity.Status)
}

func TestParseAmountAcceptsTrailingZeros(t *testing.T) {
	amount, err := ParseAmount("10.5400")
	require.NoError(t, err)
	require.Equal(t, "10.54", amount.StringFixed(2))

	amount, err = ParseAmount(float64(30))
	require.NoError(t, err)
	require.Equal(t, "30.00", amount.StringFixed(2))

	_, err = ParseAmount(true)
	require.Error(t, err)
}

func TestCheckerPrepareDropsInvalidAndStored(t *testing.T) {
	store := &stubStore{existing: map[string]bool{"X3": true}}
	checker := NewChecker(store)

	invalid := validRaw("X2")
	invalid["status"] = "T"
	before := testutil.ToFloat64(observability.IngestRejected(RejectAlreadyStored))

	prepared, err := checker.Prepare(context.Background(), []RawActivity{validRaw("X1"), invalid, validRaw("X3")})
	require.NoError(t, err)
	require.Len(t, prepared, 1)
	require.Equal(t, "X1", prepared[0].ID)
	require.Equal(t, []string{"X3", "X1"}, store.calls)
	require.Equal(t, before+1, testutil.ToFloat64(observability.IngestRejected(RejectAlreadyStored)))
}

func TestCheckerPreparePropagatesLookupErrors(t *testing.T) {
	boom := errors.New("db down")
	checker := NewChecker(&stubStore{err: boom})

	_, err := checker.Prepare(context.Background(), []RawActivity{validRaw("X1")})
	require.ErrorIs(t, err, boom)
}

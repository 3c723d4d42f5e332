package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"example.com/activities/internal/observability"
)

// Rejection reasons reported to the ingest metrics.
const (
	RejectDuplicateInBatch = "duplicate_in_batch"
	RejectInvalidID        = "invalid_id"
	RejectInvalidTimestamp = "invalid_occurred_at"
	RejectInvalidTrackID   = "invalid_track_id"
	RejectInvalidAmount    = "invalid_amount"
	RejectInvalidStatus    = "invalid_status"
	RejectAlreadyStored    = "already_stored"
)

var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{1,6}$`)

var (
	amountIntegerLimit = decimal.New(1, 6)
	errAmountType      = errors.New("amount must be a number or a numeric string")
)

// ExistenceChecker reports whether an activity id is already stored.
type ExistenceChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Checker turns a batch of raw candidates into the records that may be persisted.
type Checker struct {
	store ExistenceChecker
}

// NewChecker constructs a Checker backed by the provided lookup.
func NewChecker(store ExistenceChecker) *Checker {
	return &Checker{store: store}
}

// Prepare deduplicates and validates candidates, dropping anything malformed or already stored.
// Only lookup failures are returned as errors.
func (c *Checker) Prepare(ctx context.Context, candidates []RawActivity) ([]Activity, error) {
	unique := Deduplicate(candidates)
	accepted := make([]Activity, 0, len(unique))
	for _, candidate := range unique {
		activity, reason := ParseCandidate(candidate)
		if reason != "" {
			observability.RecordIngestRejected(reason)
			continue
		}

		exists, err := c.store.Exists(ctx, activity.ID)
		if err != nil {
			return nil, fmt.Errorf("lookup activity %s: %w", activity.ID, err)
		}
		if exists {
			observability.RecordIngestRejected(RejectAlreadyStored)
			continue
		}
		accepted = append(accepted, activity)
	}
	return accepted, nil
}

// Deduplicate scans candidates from the tail and keeps the first occurrence of every id it meets,
// so the later of two duplicates wins. The result is in tail-first order. Candidates without a
// string id pass through untouched and are left for validation to discard.
func Deduplicate(candidates []RawActivity) []RawActivity {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]RawActivity, 0, len(candidates))
	for i := len(candidates) - 1; i >= 0; i-- {
		candidate := candidates[i]
		if id, ok := candidate["id"].(string); ok {
			if _, dup := seen[id]; dup {
				observability.RecordIngestRejected(RejectDuplicateInBatch)
				continue
			}
			seen[id] = struct{}{}
		}
		out = append(out, candidate)
	}
	return out
}

// ParseCandidate validates the shape of a single candidate. On failure the returned reason is
// one of the Reject* constants.
func ParseCandidate(raw RawActivity) (Activity, string) {
	id, ok := raw["id"].(string)
	if !ok || strings.TrimSpace(id) == "" || len(id) > MaxIDLength {
		return Activity{}, RejectInvalidID
	}

	occurredAt, err := ParseTimestamp(raw["occurred_at"])
	if err != nil {
		return Activity{}, RejectInvalidTimestamp
	}

	trackID, ok := raw["track_id"].(string)
	if !ok || len(trackID) > MaxTrackIDLength {
		return Activity{}, RejectInvalidTrackID
	}

	amount, err := ParseAmount(raw["amount"])
	if err != nil {
		return Activity{}, RejectInvalidAmount
	}

	var status Status
	switch v := raw["status"].(type) {
	case nil:
	case string:
		status = Status(v)
	default:
		return Activity{}, RejectInvalidStatus
	}
	if !status.Valid() {
		return Activity{}, RejectInvalidStatus
	}

	return Activity{
		ID:         id,
		OccurredAt: occurredAt,
		TrackID:    trackID,
		Status:     status,
		Amount:     amount.StringFixed(2),
	}, ""
}

// ParseTimestamp accepts only the strict wire layout; there is no fallback format.
func ParseTimestamp(value any) (time.Time, error) {
	text, ok := value.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("occurred_at must be a string, got %T", value)
	}
	if !timestampPattern.MatchString(text) {
		return time.Time{}, fmt.Errorf("occurred_at %q does not match %s", text, TimestampLayout)
	}
	return time.Parse(TimestampLayout, text)
}

// ParseAmount decodes a decimal(8,2) amount from a JSON number or string.
func ParseAmount(value any) (decimal.Decimal, error) {
	var (
		amount decimal.Decimal
		err    error
	)
	switch v := value.(type) {
	case json.Number:
		amount, err = decimal.NewFromString(v.String())
	case string:
		amount, err = decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		amount = decimal.NewFromFloat(v)
	case int:
		amount = decimal.NewFromInt(int64(v))
	case int64:
		amount = decimal.NewFromInt(v)
	case decimal.Decimal:
		amount = v
	default:
		return decimal.Decimal{}, errAmountType
	}
	if err != nil {
		return decimal.Decimal{}, err
	}

	if !amount.Equal(amount.Round(2)) {
		return decimal.Decimal{}, fmt.Errorf("amount %s has more than 2 fractional digits", amount)
	}
	if amount.Abs().GreaterThanOrEqual(amountIntegerLimit) {
		return decimal.Decimal{}, fmt.Errorf("amount %s has more than 6 integer digits", amount)
	}
	return amount, nil
}

package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Aggregator derives a track Summary from its history.
type Aggregator struct{}

// Aggregate expects history ordered most-recent-first. The latest record supplies the track and
// status; the balance is folded oldest to newest, adding settled and subtracting refunded amounts.
func (Aggregator) Aggregate(history []Activity) (Summary, error) {
	if len(history) == 0 {
		return Summary{}, ErrTrackNotFound
	}

	latest := history[0]
	amount := decimal.Zero
	for i := len(history) - 1; i >= 0; i-- {
		activity := history[i]
		switch activity.Status {
		case StatusSettled, StatusRefunded:
		default:
			continue
		}

		value, err := decimal.NewFromString(strings.TrimSpace(activity.Amount))
		if err != nil {
			return Summary{}, fmt.Errorf("%w: activity %s: %v", ErrAmountComputation, activity.ID, err)
		}
		if activity.Status == StatusSettled {
			amount = amount.Add(value)
		} else {
			amount = amount.Sub(value)
		}
	}

	return Summary{
		TrackID:    latest.TrackID,
		LastStatus: latest.Status,
		Amount:     amount,
	}, nil
}

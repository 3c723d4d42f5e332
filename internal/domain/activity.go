package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status tags an activity with its place in the payment lifecycle.
type Status string

const (
	StatusNone       Status = ""
	StatusAuthorized Status = "A"
	StatusSettled    Status = "S"
	StatusRefunded   Status = "R"
)

// Valid reports whether s is blank or one of the known status codes.
func (s Status) Valid() bool {
	switch s {
	case StatusNone, StatusAuthorized, StatusSettled, StatusRefunded:
		return true
	}
	return false
}

// Column limits of the activities table.
const (
	MaxIDLength      = 20
	MaxTrackIDLength = 10
)

// TimestampLayout is the accepted wire format for occurred_at (naive UTC, 1-6 fractional digits).
const TimestampLayout = "2006-01-02T15:04:05.999999"

// Activity is an immutable financial event stored under a track.
//
// Amount keeps the canonical decimal text of the stored numeric(8,2) value.
type Activity struct {
	ID         string
	OccurredAt time.Time
	TrackID    string
	Status     Status
	Amount     string
}

// RawActivity is an undecoded candidate record as received from a client.
type RawActivity map[string]any

// Summary is the derived view of a track: its latest status and net settled balance.
type Summary struct {
	TrackID    string
	LastStatus Status
	Amount     decimal.Decimal
}

// Cursor models the history pagination token.
type Cursor struct {
	OccurredAt time.Time
	ID         string
}

// FormatTimestamp renders t in the wire layout with six fractional digits.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000")
}

// Package sm2 implements the SM-2 review schedule: given a card's memory
// state and a recall quality it computes the next interval and ease factor.
package sm2

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Quality is the learner's self-reported recall, 0 (blackout) to 5 (perfect).
// Anything below PassThreshold counts as a failed recall.
type Quality int

// The review UI only offers these four grades.
const (
	Again Quality = 0
	Hard  Quality = 2
	Good  Quality = 3
	Easy  Quality = 5
)

const (
	MinQuality    Quality = 0
	MaxQuality    Quality = 5
	PassThreshold Quality = 3

	MinEaseFactor     = 1.3
	DefaultEaseFactor = 2.5

	// MaxIntervalDays keeps now+interval inside the int64 millisecond range.
	MaxIntervalDays = math.MaxInt32

	Day = 24 * time.Hour
)

// ErrInvalidQuality is returned for a quality outside 0..5.
var ErrInvalidQuality = errors.New("quality must be between 0 and 5")

// Valid reports whether q is inside 0..5.
func (q Quality) Valid() bool {
	return q >= MinQuality && q <= MaxQuality
}

// Passed reports whether q counts as a successful recall.
func (q Quality) Passed() bool {
	return q >= PassThreshold
}

// ParseQuality converts an integer grade, rejecting out-of-range values.
func ParseQuality(n int) (Quality, error) {
	q := Quality(n)
	if !q.Valid() {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidQuality, n)
	}
	return q, nil
}

// State holds the scheduling fields of a card.
type State struct {
	EaseFactor  float64
	Interval    int
	Repetitions int
}

// Initial is the state of a card that has never been reviewed.
func Initial() State {
	return State{EaseFactor: DefaultEaseFactor}
}

// sanitize repairs states that violate the bounds, e.g. hand-edited data.
func (s State) sanitize() State {
	if s.Repetitions < 0 {
		s.Repetitions = 0
	}
	if s.Interval < 0 {
		s.Interval = 0
	}
	if math.IsNaN(s.EaseFactor) || s.EaseFactor < MinEaseFactor {
		s.EaseFactor = MinEaseFactor
	}
	return s
}

// Next computes the state after a review with quality q.
func Next(s State, q Quality) (State, error) {
	if !q.Valid() {
		return s, fmt.Errorf("%w: got %d", ErrInvalidQuality, int(q))
	}
	s = s.sanitize()

	if !q.Passed() {
		s.Repetitions = 0
		s.Interval = 0
	} else {
		// The interval branch reads the count before this review is added.
		switch s.Repetitions {
		case 0:
			s.Interval = 1
		case 1:
			s.Interval = 6
		default:
			s.Interval = growInterval(s.Interval, s.EaseFactor)
		}
		s.Repetitions++
	}

	s.EaseFactor = nextEase(s.EaseFactor, q)
	return s, nil
}

// nextEase applies the SM-2 ease adjustment: +0.1 at quality 5, unchanged at
// 4, falling more steeply below, floored at MinEaseFactor.
func nextEase(ef float64, q Quality) float64 {
	miss := float64(MaxQuality - q)
	return math.Max(MinEaseFactor, ef+(0.1-miss*(0.08+miss*0.02)))
}

func growInterval(interval int, ef float64) int {
	grown := math.Round(float64(interval) * ef)
	if grown > MaxIntervalDays {
		return MaxIntervalDays
	}
	return int(grown)
}

// DueAt returns the epoch-millisecond time interval days after now. Days are
// fixed 24h spans with no calendar adjustment.
func DueAt(now int64, interval int) int64 {
	return now + int64(interval)*Day.Milliseconds()
}

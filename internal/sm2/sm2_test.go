package sm2

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func TestNextScenarios(t *testing.T) {
	t.Run("first successful review of a new card", func(t *testing.T) {
		got, err := Next(Initial(), Good)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Repetitions != 1 || got.Interval != 1 {
			t.Errorf("expected repetitions=1 interval=1, got %+v", got)
		}
		// 2.5 + (0.1 - 2*(0.08+2*0.02))
		if math.Abs(got.EaseFactor-2.36) > epsilon {
			t.Errorf("expected ease 2.36, got %v", got.EaseFactor)
		}
	})

	t.Run("second success jumps to six days", func(t *testing.T) {
		got, err := Next(State{EaseFactor: 2.5, Interval: 1, Repetitions: 1}, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Interval != 6 || got.Repetitions != 2 {
			t.Errorf("expected interval=6 repetitions=2, got %+v", got)
		}
		if math.Abs(got.EaseFactor-2.5) > epsilon {
			t.Errorf("expected quality 4 to leave ease at 2.5, got %v", got.EaseFactor)
		}
	})

	t.Run("failure resets progress", func(t *testing.T) {
		got, err := Next(State{EaseFactor: 2.0, Interval: 10, Repetitions: 3}, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Repetitions != 0 || got.Interval != 0 {
			t.Errorf("expected reset, got %+v", got)
		}
		if math.Abs(got.EaseFactor-1.54) > epsilon {
			t.Errorf("expected ease 1.54, got %v", got.EaseFactor)
		}
	})

	t.Run("ease never drops below the floor", func(t *testing.T) {
		s := State{EaseFactor: 1.3, Interval: 4, Repetitions: 2}
		for i := 0; i < 20; i++ {
			var err error
			s, err = Next(s, Again)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.EaseFactor != MinEaseFactor {
				t.Fatalf("review %d: expected ease clamped at %v, got %v", i, MinEaseFactor, s.EaseFactor)
			}
		}
	})

	t.Run("first success ignores ease factor", func(t *testing.T) {
		got, _ := Next(State{EaseFactor: 1.3, Interval: 0, Repetitions: 0}, Easy)
		if got.Interval != 1 {
			t.Errorf("expected interval 1, got %d", got.Interval)
		}
	})
}

func TestNextGrowsGeometrically(t *testing.T) {
	s := State{EaseFactor: 2.5, Interval: 6, Repetitions: 2}
	want := []int{15, 39}
	for i, w := range want {
		var err error
		s, err = Next(s, Easy)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Interval != w {
			t.Errorf("review %d: expected interval %d, got %d", i, w, s.Interval)
		}
	}
	if s.Repetitions != 4 {
		t.Errorf("expected 4 repetitions, got %d", s.Repetitions)
	}
	if math.Abs(s.EaseFactor-2.7) > epsilon {
		t.Errorf("expected ease 2.7 after two easy reviews, got %v", s.EaseFactor)
	}
}

func TestNextRoundsHalfAwayFromZero(t *testing.T) {
	got, _ := Next(State{EaseFactor: 2.5, Interval: 5, Repetitions: 2}, 4)
	if got.Interval != 13 {
		t.Errorf("expected round(12.5) = 13, got %d", got.Interval)
	}
}

func TestNextSaturatesInterval(t *testing.T) {
	got, err := Next(State{EaseFactor: 2.5, Interval: MaxIntervalDays, Repetitions: 40}, Easy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Interval != MaxIntervalDays {
		t.Errorf("expected interval to saturate at %d, got %d", MaxIntervalDays, got.Interval)
	}
}

func TestNextRejectsInvalidQuality(t *testing.T) {
	in := State{EaseFactor: 2.2, Interval: 3, Repetitions: 2}
	for _, q := range []Quality{-1, 6, 100} {
		got, err := Next(in, q)
		if !errors.Is(err, ErrInvalidQuality) {
			t.Errorf("quality %d: expected ErrInvalidQuality, got %v", q, err)
		}
		if got != in {
			t.Errorf("quality %d: expected state unchanged, got %+v", q, got)
		}
	}
}

func TestNextRepairsOutOfBoundsState(t *testing.T) {
	got, err := Next(State{EaseFactor: 0.5, Interval: -3, Repetitions: -2}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Repetitions != 1 || got.Interval != 1 || got.EaseFactor != MinEaseFactor {
		t.Errorf("expected {1.3 1 1}, got %+v", got)
	}

	got, _ = Next(State{EaseFactor: math.NaN()}, Good)
	if got.EaseFactor < MinEaseFactor {
		t.Errorf("expected NaN ease repaired, got %v", got.EaseFactor)
	}
}

func TestNextInvariants(t *testing.T) {
	qualities := []Quality{0, 1, 2, 3, 4, 5}
	s := Initial()
	// Walk a long deterministic sequence covering every transition.
	for i := 0; i < 500; i++ {
		q := qualities[(i*7+i/3)%len(qualities)]
		var err error
		s, err = Next(s, q)
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if s.EaseFactor < MinEaseFactor {
			t.Fatalf("step %d: ease %v below floor", i, s.EaseFactor)
		}
		if s.Interval < 0 || s.Repetitions < 0 {
			t.Fatalf("step %d: negative state %+v", i, s)
		}
		if !q.Passed() && (s.Interval != 0 || s.Repetitions != 0) {
			t.Fatalf("step %d: failure did not reset %+v", i, s)
		}
	}
}

func TestParseQuality(t *testing.T) {
	if q, err := ParseQuality(3); err != nil || q != Good {
		t.Errorf("expected Good, got %v %v", q, err)
	}
	if _, err := ParseQuality(7); !errors.Is(err, ErrInvalidQuality) {
		t.Errorf("expected ErrInvalidQuality, got %v", err)
	}
}

func TestDueAt(t *testing.T) {
	now := int64(1700000000000)
	if got := DueAt(now, 0); got != now {
		t.Errorf("expected zero interval to be due now, got %d", got)
	}
	if got := DueAt(now, 1); got != now+86_400_000 {
		t.Errorf("expected one day later, got %d", got)
	}
	if got := DueAt(now, MaxIntervalDays); got <= now {
		t.Errorf("expected no overflow at max interval, got %d", got)
	}
}

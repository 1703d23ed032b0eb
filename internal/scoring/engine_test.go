package scoring

import (
	"testing"
	"time"
)

func TestPrimaryListingStale(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	window := 48 * time.Hour

	cases := []struct {
		name     string
		lastSeen *time.Time
		want     bool
	}{
		{name: "never sighted", lastSeen: nil, want: true},
		{name: "seen this morning", lastSeen: timePtr(now.Add(-6 * time.Hour)), want: false},
		{name: "seen exactly at the window edge", lastSeen: timePtr(now.Add(-window)), want: false},
		{name: "one second past the window", lastSeen: timePtr(now.Add(-window - time.Second)), want: true},
		{name: "seen a week ago", lastSeen: timePtr(now.Add(-7 * 24 * time.Hour)), want: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := primaryListingStale(tc.lastSeen, now, window); got != tc.want {
				t.Fatalf("primaryListingStale(%v) = %t, want %t", tc.lastSeen, got, tc.want)
			}
		})
	}
}

func TestDelistedDecayReachableAfterStaleness(t *testing.T) {
	t.Parallel()

	// A once-listed product whose sighting goes stale must switch to the
	// sharper delisted curve, not keep the listed floor forever.
	base := 60
	age := 40

	listed := CurrentScore(base, age, true)
	delisted := CurrentScore(base, age, false)

	if delisted >= listed {
		t.Fatalf("delisted score %d should fall below listed score %d at age %d", delisted, listed, age)
	}
	if delisted != delistedFloor {
		t.Fatalf("delisted score at age %d = %d, want the %d floor", age, delisted, delistedFloor)
	}
}

func TestFoldPeak_NeverDecreases(t *testing.T) {
	t.Parallel()

	// Decaying recomputes: the stored peak must hold its high-water mark.
	peak := 0
	for _, current := range []int{40, 55, 52, 48, 30, 10, 0} {
		next := foldPeak(peak, current)
		if next < peak {
			t.Fatalf("foldPeak(%d, %d) = %d, decreased", peak, current, next)
		}
		peak = next
	}
	if peak != 55 {
		t.Fatalf("final peak = %d, want 55", peak)
	}

	if got := foldPeak(55, 80); got != 80 {
		t.Fatalf("foldPeak(55, 80) = %d, want 80", got)
	}
}

func TestLockIndex_BoundsAndStability(t *testing.T) {
	t.Parallel()

	for _, id := range []int64{0, 1, 63, 64, 65, 1_000_003, -1} {
		idx := lockIndex(id)
		if idx < 0 || idx >= lockStripes {
			t.Fatalf("lockIndex(%d) = %d, out of [0, %d)", id, idx, lockStripes)
		}
		if again := lockIndex(id); again != idx {
			t.Fatalf("lockIndex(%d) not stable: %d then %d", id, idx, again)
		}
	}
}

func TestLockProduct_Reentrant(t *testing.T) {
	t.Parallel()

	var engine Engine
	for i := 0; i < 3; i++ {
		unlock := engine.lockProduct(7)
		unlock()
	}

	// Different products on different stripes can hold locks concurrently.
	unlockA := engine.lockProduct(1)
	unlockB := engine.lockProduct(2)
	unlockB()
	unlockA()
}

func timePtr(t time.Time) *time.Time { return &t }

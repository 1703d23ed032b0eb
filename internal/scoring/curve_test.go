package scoring

import (
	"testing"
	"time"
)

const primaryKey = "amazon_movers"

func floatPtr(v float64) *float64 { return &v }

func primarySignal(value *float64, signalType string, detectedAt time.Time) SignalInput {
	return SignalInput{
		Source:     primaryKey,
		SignalType: signalType,
		Value:      value,
		DetectedAt: detectedAt,
	}
}

func mentionSignal(value float64, detectedAt time.Time) SignalInput {
	return SignalInput{
		Source:     "reddit_mentions",
		SignalType: SignalTypeMention,
		Value:      floatPtr(value),
		DetectedAt: detectedAt,
	}
}

func TestBaseScore_SalesJumpScenario(t *testing.T) {
	t.Parallel()

	day0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	signals := []SignalInput{
		primarySignal(floatPtr(200), SignalTypeSalesSpike, day0),
	}

	// 200% sales jump: min(70, floor(200/20)) = 10, no secondary yet.
	if got := BaseScore(signals, primaryKey, 50, true); got != 10 {
		t.Fatalf("expected base score 10 for 200%% jump, got %d", got)
	}
	if got := CurrentScore(10, 0, true); got != 10 {
		t.Fatalf("expected day-0 current score to equal base, got %d", got)
	}

	// Three mentions {120, 80, 60}: top 2 qualify, min(30, 2*15) = 30.
	signals = append(signals,
		mentionSignal(120, day0),
		mentionSignal(80, day0),
		mentionSignal(60, day0),
	)
	if got := BaseScore(signals, primaryKey, 50, true); got != 40 {
		t.Fatalf("expected base score 40 after qualifying mentions, got %d", got)
	}
}

func TestPrimaryContribution_CapAndFloor(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	huge := primarySignal(floatPtr(9000), SignalTypeSalesSpike, now)
	if got := PrimaryContribution(&huge, true); got != 70 {
		t.Fatalf("expected magnitude contribution capped at 70, got %d", got)
	}

	tiny := primarySignal(floatPtr(20), SignalTypeSalesSpike, now)
	if got := PrimaryContribution(&tiny, true); got != 10 {
		t.Fatalf("expected listed presence floor of 10, got %d", got)
	}
	if got := PrimaryContribution(&tiny, false); got != 1 {
		t.Fatalf("expected raw magnitude 1 when delisted, got %d", got)
	}

	watchlist := primarySignal(nil, SignalTypeWatchlist, now)
	if got := PrimaryContribution(&watchlist, true); got != 40 {
		t.Fatalf("expected flat watchlist contribution, got %d", got)
	}

	if got := PrimaryContribution(nil, false); got != 0 {
		t.Fatalf("expected zero contribution without primary signal, got %d", got)
	}
}

func TestPrimaryContribution_OnlyLatestCounts(t *testing.T) {
	t.Parallel()

	day0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	signals := []SignalInput{
		primarySignal(floatPtr(1400), SignalTypeSalesSpike, day0),
		primarySignal(floatPtr(200), SignalTypeSalesSpike, day0.Add(48*time.Hour)),
	}

	latest := LatestPrimary(signals, primaryKey)
	if latest == nil || latest.Value == nil || *latest.Value != 200 {
		t.Fatalf("expected the most recent primary signal to win")
	}
	// Two primary signals never stack: 10, not 70+10.
	if got := PrimaryContribution(latest, true); got != 10 {
		t.Fatalf("expected non-stacking primary contribution 10, got %d", got)
	}
}

func TestSecondaryContribution_ThresholdAndCap(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	none := []SignalInput{mentionSignal(50, now), mentionSignal(12, now)}
	if got := SecondaryContribution(none, primaryKey, 50); got != 0 {
		t.Fatalf("expected signals at or below threshold to contribute 0, got %d", got)
	}

	one := []SignalInput{mentionSignal(51, now)}
	if got := SecondaryContribution(one, primaryKey, 50); got != 15 {
		t.Fatalf("expected single qualifying mention to contribute 15, got %d", got)
	}

	many := []SignalInput{
		mentionSignal(500, now), mentionSignal(400, now),
		mentionSignal(300, now), mentionSignal(200, now),
	}
	if got := SecondaryContribution(many, primaryKey, 50); got != 30 {
		t.Fatalf("expected secondary contribution capped at 30, got %d", got)
	}
}

func TestCurrentScore_DecayMonotonicity(t *testing.T) {
	t.Parallel()

	for _, listed := range []bool{true, false} {
		previous := CurrentScore(90, 0, listed)
		for days := 1; days <= 60; days++ {
			current := CurrentScore(90, days, listed)
			if current > previous {
				t.Fatalf("decay must be non-increasing: listed=%t day=%d %d > %d", listed, days, current, previous)
			}
			if current < 0 || current > 100 {
				t.Fatalf("score out of bounds: %d", current)
			}
			previous = current
		}
	}
}

func TestCurrentScore_ListedNeverBelowDelisted(t *testing.T) {
	t.Parallel()

	for base := 0; base <= 100; base += 5 {
		for days := 0; days <= 60; days += 3 {
			listed := CurrentScore(base, days, true)
			delisted := CurrentScore(base, days, false)
			if listed < delisted {
				t.Fatalf("listed score below delisted at base=%d days=%d: %d < %d", base, days, listed, delisted)
			}
		}
	}
}

func TestCurrentScore_GraceWindowHoldsBase(t *testing.T) {
	t.Parallel()

	for days := 0; days <= 3; days++ {
		if got := CurrentScore(90, days, false); got != 90 {
			t.Fatalf("expected full base through grace window, got %d at day %d", got, days)
		}
	}
}

func TestCurrentScore_Base90Day25Scenario(t *testing.T) {
	t.Parallel()

	atDay3 := CurrentScore(90, 3, false)
	atDay25 := CurrentScore(90, 25, false)
	if atDay25 >= atDay3 {
		t.Fatalf("expected strict decay: day25 %d >= day3 %d", atDay25, atDay3)
	}

	stillListed := CurrentScore(90, 25, true)
	if atDay25 > stillListed {
		t.Fatalf("delisted product must not outscore a listed one: %d > %d", atDay25, stillListed)
	}
}

func TestBaseScore_Bounds(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	signals := []SignalInput{
		primarySignal(floatPtr(100000), SignalTypeSalesSpike, now),
		mentionSignal(10000, now), mentionSignal(9000, now), mentionSignal(8000, now),
	}
	got := BaseScore(signals, primaryKey, 50, true)
	if got < 0 || got > 100 {
		t.Fatalf("base score out of bounds: %d", got)
	}
	if got != 100 {
		t.Fatalf("expected saturated base score 100, got %d", got)
	}
}

func TestCurrentScore_NegativeInputsClamped(t *testing.T) {
	t.Parallel()

	if got := CurrentScore(-20, 10, false); got != 0 {
		t.Fatalf("expected negative base to clamp to 0, got %d", got)
	}
	if got := CurrentScore(50, -4, true); got != 50 {
		t.Fatalf("expected negative age to behave like day 0, got %d", got)
	}
}

// Package scoring owns every score written to a product. baseScore is the
// time-invariant strength derived from stored signals; currentScore applies
// the age-decay curve to it; peakScore is the high-water mark. Nothing else
// in the repository computes or writes these fields.
package scoring

import (
	"math"
	"sort"
	"time"
)

// Signal type tags used by the curve. Sources are free to tag signals with
// anything; only these two change how the math treats a reading.
const (
	SignalTypeSalesSpike = "sales_spike"
	SignalTypeWatchlist  = "watchlist"
	SignalTypeMention    = "mention"
)

// Curve constants. The decay shape is a tuning choice; the invariants that
// must hold are: currentScore(0) == baseScore, monotone non-increasing with
// age, listed never below delisted at the same age, floor >= 0.
const (
	maxScore = 100

	primaryCap              = 70
	primaryMagnitudeDivisor = 20
	primaryPresenceFloor    = 10
	primaryWatchlistFlat    = 40

	secondaryCap       = 30
	secondaryPerSignal = 15
	secondaryTopN      = 2

	graceDays           = 3
	listedDecayPerDay   = 1
	delistedDecayPerDay = 3
	delistedFloor       = 0
)

// SignalInput is the slice of a stored signal the curve needs.
type SignalInput struct {
	Source     string
	SignalType string
	Value      *float64
	DetectedAt time.Time
}

// LatestPrimary picks the single primary-source signal that counts: the
// most recent one. Primary signals never stack.
func LatestPrimary(signals []SignalInput, primaryKey string) *SignalInput {
	var latest *SignalInput
	for i := range signals {
		if signals[i].Source != primaryKey {
			continue
		}
		if latest == nil || signals[i].DetectedAt.After(latest.DetectedAt) {
			latest = &signals[i]
		}
	}
	return latest
}

// PrimaryContribution maps the latest primary signal to the 0-70 band.
// A percentage magnitude contributes floor(magnitude/20) capped at 70; a
// presence-only watchlist reading contributes a flat value; a listed
// product with zero or unknown magnitude still earns the presence floor.
func PrimaryContribution(latest *SignalInput, onPrimarySource bool) int {
	if latest == nil {
		if onPrimarySource {
			return primaryPresenceFloor
		}
		return 0
	}

	if latest.Value == nil || *latest.Value <= 0 {
		if latest.SignalType == SignalTypeWatchlist {
			return primaryWatchlistFlat
		}
		if onPrimarySource {
			return primaryPresenceFloor
		}
		return 0
	}

	contribution := int(math.Floor(*latest.Value / primaryMagnitudeDivisor))
	if contribution > primaryCap {
		contribution = primaryCap
	}
	if onPrimarySource && contribution < primaryPresenceFloor {
		contribution = primaryPresenceFloor
	}
	if contribution < 0 {
		contribution = 0
	}
	return contribution
}

// SecondaryContribution maps discussion signals to the 0-30 band: up to the
// top two signals by raw value among those exceeding minValue, 15 points
// each. Signals at or below the threshold contribute nothing; they are
// still stored for quote extraction elsewhere.
func SecondaryContribution(signals []SignalInput, primaryKey string, minValue float64) int {
	values := make([]float64, 0, len(signals))
	for _, signal := range signals {
		if signal.Source == primaryKey {
			continue
		}
		if signal.Value == nil || *signal.Value <= minValue {
			continue
		}
		values = append(values, *signal.Value)
	}
	if len(values) == 0 {
		return 0
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	qualifying := len(values)
	if qualifying > secondaryTopN {
		qualifying = secondaryTopN
	}

	contribution := qualifying * secondaryPerSignal
	if contribution > secondaryCap {
		contribution = secondaryCap
	}
	return contribution
}

// BaseScore combines both bands and clamps to [0, 100].
func BaseScore(signals []SignalInput, primaryKey string, secondaryMinValue float64, onPrimarySource bool) int {
	primary := PrimaryContribution(LatestPrimary(signals, primaryKey), onPrimarySource)
	secondary := SecondaryContribution(signals, primaryKey, secondaryMinValue)
	return clampScore(primary + secondary)
}

// CurrentScore applies age decay to a base score: full score through the
// grace window, then a linear decline, gentler with a higher floor while
// the product is still on the primary watch list.
func CurrentScore(baseScore, daysTrending int, onPrimarySource bool) int {
	base := clampScore(baseScore)
	if daysTrending < 0 {
		daysTrending = 0
	}
	if daysTrending <= graceDays {
		return base
	}

	aged := daysTrending - graceDays
	if onPrimarySource {
		return clampScore(maxInt(listedFloor(base), base-listedDecayPerDay*aged))
	}
	return clampScore(maxInt(delistedFloor, base-delistedDecayPerDay*aged))
}

// listedFloor is max(10, base/4), never above the base itself.
func listedFloor(base int) int {
	floor := base / 4
	if floor < primaryPresenceFloor {
		floor = primaryPresenceFloor
	}
	if floor > base {
		floor = base
	}
	return floor
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

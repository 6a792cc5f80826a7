// Package forecast estimates days remaining until a tank runs empty from a
// trailing window of readings, excluding refill events from the usage rate.
package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/tanksense/tanksense/pkg/types"
)

const (
	// DefaultRefillThreshold treats any single-step level rise of 25% or
	// more as a refill.
	DefaultRefillThreshold = 1.25

	// DefaultWindowDays is the trailing history window considered.
	DefaultWindowDays = 14

	// NeverEmpties is the days-to-empty sentinel when no consumption trend
	// exists: a single reading, or a window where every step is a refill.
	NeverEmpties = 9999
)

// Options configures a forecast.
type Options struct {
	// WindowDays is the trailing window length; DefaultWindowDays if zero.
	WindowDays int
	// RefillThreshold is the level ratio at or above which a step counts
	// as a refill; DefaultRefillThreshold if zero.
	RefillThreshold float64
	// AnchorLatest measures the window back from the newest reading
	// instead of the wall clock. Useful when the history is stale.
	AnchorLatest bool
	// Now overrides the wall clock. Zero means time.Now().
	Now time.Time
}

// UsageRate returns litres consumed per day over consecutive reading pairs.
// Readings must be sorted ascending by time. A pair whose level ratio
// (later / earlier) reaches refillThreshold is a refill and contributes
// neither consumption nor elapsed time. Returns 0 when no non-refill
// interval exists.
func UsageRate(readings []types.Reading, refillThreshold float64) float64 {
	var consumed float64
	var elapsedDays float64
	for i := 1; i < len(readings); i++ {
		earlier, later := readings[i-1], readings[i]
		if earlier.LevelLitres <= 0 {
			continue
		}
		ratio := float64(later.LevelLitres) / float64(earlier.LevelLitres)
		if ratio >= refillThreshold {
			// Refill day: oil went up, not down.
			continue
		}
		consumed += float64(earlier.LevelLitres - later.LevelLitres)
		elapsedDays += later.ReadingDate.Sub(earlier.ReadingDate).Hours() / 24
	}
	if elapsedDays == 0 {
		return 0
	}
	return consumed / elapsedDays
}

// DaysToEmpty projects how many whole days until the current level reaches
// zero at the given rate. A zero rate yields NeverEmpties rather than a
// division by zero.
func DaysToEmpty(currentLitres int, rate float64) int {
	if rate == 0 {
		return NeverEmpties
	}
	return int(float64(currentLitres) / math.Abs(rate))
}

// Forecast filters history to the trailing window, computes the usage rate
// over it and projects days to empty from the newest reading's level.
func Forecast(readings []types.Reading, opts Options) int {
	if opts.WindowDays == 0 {
		opts.WindowDays = DefaultWindowDays
	}
	if opts.RefillThreshold == 0 {
		opts.RefillThreshold = DefaultRefillThreshold
	}

	sorted := make([]types.Reading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ReadingDate.Before(sorted[j].ReadingDate)
	})
	if len(sorted) == 0 {
		return NeverEmpties
	}

	anchor := opts.Now
	if anchor.IsZero() {
		anchor = time.Now()
	}
	if opts.AnchorLatest {
		anchor = sorted[len(sorted)-1].ReadingDate
	}
	cutoff := anchor.AddDate(0, 0, -opts.WindowDays)

	window := sorted[:0:0]
	for _, r := range sorted {
		if !r.ReadingDate.Before(cutoff) {
			window = append(window, r)
		}
	}
	if len(window) == 0 {
		return NeverEmpties
	}

	rate := UsageRate(window, opts.RefillThreshold)
	return DaysToEmpty(window[len(window)-1].LevelLitres, rate)
}

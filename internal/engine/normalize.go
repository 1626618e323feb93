// internal/engine/normalize.go
package engine

import "peakform/coach-app/internal/domain"

// Rounding increments: long sessions snap to 10-minute steps, everything
// else to 5-minute steps. The weekly target total is always a 5-minute
// multiple.
const (
	shortIncrement = 5
	longIncrement  = 10
)

// NormalizeRules configures duration normalization for one plan week.
type NormalizeRules struct {
	// LongSessionDay marks a weekday (raw 0-6) whose sessions are long
	// regardless of duration. Nil disables the day rule.
	LongSessionDay *int
	// LongThresholdMinutes: raw durations at or above this are long.
	// Zero means the default of 90.
	LongThresholdMinutes int
}

// RulesFromSetup derives the normalization rules a plan's setup implies.
func RulesFromSetup(setup domain.PlanSetup) NormalizeRules {
	return NormalizeRules{
		LongSessionDay:       setup.LongSessionDay,
		LongThresholdMinutes: setup.LongThreshold(),
	}
}

// SessionDuration is the slice of a session the normalizer needs.
type SessionDuration struct {
	DurationMinutes int
	Locked          bool
	DayOfWeek       int
}

// NormalizeResult carries the per-session rounded durations plus the week
// totals. FinalTotal may legitimately differ from TargetTotal when every
// session is locked; that is accepted, not an error.
type NormalizeResult struct {
	Durations   []int
	TargetTotal int
	FinalTotal  int
}

// NormalizeDurations rounds a week's session durations to human-friendly
// increments and rebalances the unlocked ones so the week total still hits
// the raw sum rounded to the nearest 5 minutes. Every session is rounded;
// only unlocked sessions participate in rebalancing.
//
// Rebalancing adjusts one unlocked session per step by one increment in the
// direction that shrinks the gap, short sessions before long ones, never
// below zero, and runs at most |gap|/5 steps.
func NormalizeDurations(sessions []SessionDuration, rules NormalizeRules) NormalizeResult {
	threshold := rules.LongThresholdMinutes
	if threshold <= 0 {
		threshold = domain.DefaultLongSessionThresholdMinutes
	}

	long := make([]bool, len(sessions))
	out := make([]int, len(sessions))
	rawSum := 0
	for i, s := range sessions {
		rawSum += s.DurationMinutes
		long[i] = isLong(s, rules.LongSessionDay, threshold)
		inc := shortIncrement
		if long[i] {
			inc = longIncrement
		}
		out[i] = roundToIncrement(s.DurationMinutes, inc)
	}

	targetTotal := roundToIncrement(rawSum, shortIncrement)
	finalTotal := sum(out)

	// Provably terminating: every applied adjustment shrinks |gap| by at
	// least shortIncrement, so |gap|/shortIncrement steps suffice.
	gap := targetTotal - finalTotal
	maxSteps := abs(gap) / shortIncrement
	for step := 0; step < maxSteps && gap != 0; step++ {
		idx, inc := pickAdjustable(sessions, out, long, gap, threshold)
		if idx < 0 {
			break
		}
		if gap > 0 {
			out[idx] += inc
			gap -= inc
		} else {
			out[idx] -= inc
			gap += inc
		}
	}

	return NormalizeResult{
		Durations:   out,
		TargetTotal: targetTotal,
		FinalTotal:  sum(out),
	}
}

// isLong classifies a session: it sits on the plan's designated long day,
// or its raw duration reaches the threshold.
func isLong(s SessionDuration, longDay *int, threshold int) bool {
	if longDay != nil && s.DayOfWeek == *longDay {
		return true
	}
	return s.DurationMinutes >= threshold
}

// pickAdjustable returns the first unlocked session whose adjustment by its
// own increment strictly shrinks the gap without going below zero. Short
// sessions are preferred over long ones. Returns -1 when nothing can move.
func pickAdjustable(sessions []SessionDuration, out []int, long []bool, gap, threshold int) (int, int) {
	for _, wantLong := range []bool{false, true} {
		inc := shortIncrement
		if wantLong {
			inc = longIncrement
		}
		// An adjustment only helps if the increment fits inside the gap.
		if abs(gap) < inc {
			continue
		}
		for i, s := range sessions {
			if s.Locked || long[i] != wantLong {
				continue
			}
			if gap < 0 && out[i]-inc < 0 {
				continue
			}
			// A short session raised into the long range must land on the
			// long grid: renormalizing classifies it by its new duration.
			if !wantLong && gap > 0 {
				if next := out[i] + inc; next >= threshold && next%longIncrement != 0 {
					continue
				}
			}
			return i, inc
		}
	}
	return -1, 0
}

// roundToIncrement rounds v to the nearest multiple of inc, ties up, never
// below zero.
func roundToIncrement(v, inc int) int {
	if v <= 0 {
		return 0
	}
	return ((v + inc/2) / inc) * inc
}

func sum(vs []int) int {
	total := 0
	for _, v := range vs {
		total += v
	}
	return total
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Package opponent estimates the counterpart's utility function from
// observed offers only. The model assumes the counterpart offers values
// it likes often, and varies little on the issues it cares about most.
package opponent

import (
	"ubna/pkg/negotiation"
)

// Model is an online estimator of the counterpart's preferences.
// It is created on the first observed offer and mutated on every
// subsequent one; observation counts never decrease within a session.
type Model struct {
	counts       map[string]map[string]int // issue -> value -> observation count
	observations int
}

// NewModel creates an empty opponent model.
func NewModel() *Model {
	return &Model{counts: make(map[string]map[string]int)}
}

// Update records one observed offer. For every issue, the count of the
// value chosen in the bid is incremented.
func (m *Model) Update(bid negotiation.Bid) {
	for issue, value := range bid {
		valueCounts, ok := m.counts[issue]
		if !ok {
			valueCounts = make(map[string]int)
			m.counts[issue] = valueCounts
		}
		valueCounts[value]++
	}
	m.observations++
}

// Observations returns the number of offers observed so far.
func (m *Model) Observations() int {
	return m.observations
}

// Predict estimates the counterpart's utility for an arbitrary bid.
//
// Per-issue weight is the inverse of the number of distinct values seen
// on that issue (an issue the counterpart varies little on is inferred
// to matter more to them), renormalized so weights sum to 1. Per-value
// desirability is the value's observation count divided by the count of
// the most frequent value on the same issue, so the maximum-achievable
// prediction is exactly 1.0.
//
// Predict is undefined before the first Update; callers guard against a
// nil or empty model before scoring.
func (m *Model) Predict(bid negotiation.Bid) float64 {
	if m.observations == 0 {
		return 0
	}

	totalWeight := 0.0
	for _, valueCounts := range m.counts {
		totalWeight += 1.0 / float64(len(valueCounts))
	}
	if totalWeight == 0 {
		return 0
	}

	utility := 0.0
	for issue, valueCounts := range m.counts {
		weight := (1.0 / float64(len(valueCounts))) / totalWeight

		maxCount := 0
		for _, c := range valueCounts {
			if c > maxCount {
				maxCount = c
			}
		}
		if maxCount == 0 {
			continue
		}

		desirability := float64(valueCounts[bid[issue]]) / float64(maxCount)
		utility += weight * desirability
	}

	if utility < 0 {
		return 0
	}
	if utility > 1 {
		return 1
	}
	return utility
}

// Package bidding implements the proposal search machinery: a scalar
// bid scorer blending self-interest with the opponent model under time
// pressure, and a bounded candidate working set refreshed from uniform
// samples of the outcome space.
package bidding

import (
	"math"

	"ubna/pkg/negotiation"
	"ubna/pkg/opponent"
)

// Scorer combines own utility and predicted opponent utility into a
// single scalar used for ranking candidates and for accept/offer
// comparisons.
//
//	tp     = 1 − progress^(1/ε)
//	score  = α·tp·own + (1 − α·tp)·opponent
//
// With the default ε the pressure term stays near 1 for most of the
// session and collapses sharply close to the deadline, so the agent is
// self-interested early and accommodates the opponent's inferred
// preferences late, without ever abandoning its own profile.
type Scorer struct {
	Profile  negotiation.Profile
	Opponent *opponent.Model // nil until the first offer is observed
	Alpha    float64
	Epsilon  float64
}

// NewScorer creates a scorer with no opponent model attached yet.
func NewScorer(profile negotiation.Profile, alpha, epsilon float64) *Scorer {
	return &Scorer{Profile: profile, Alpha: alpha, Epsilon: epsilon}
}

// TimePressure returns 1 − progress^(1/ε), clamped for degenerate
// progress values at or beyond the deadline.
func (s *Scorer) TimePressure(progress float64) float64 {
	if progress <= 0 {
		return 1
	}
	if progress >= 1 {
		return 0
	}
	return 1 - math.Pow(progress, 1/s.Epsilon)
}

// Score returns the blended desirability of a bid at the given progress.
// Before any opponent offer has been observed the opponent term is
// omitted rather than failing.
func (s *Scorer) Score(bid negotiation.Bid, progress float64) float64 {
	tp := s.TimePressure(progress)
	score := s.Alpha * tp * s.Profile.Utility(bid)

	if s.Opponent != nil && s.Opponent.Observations() > 0 {
		score += (1 - s.Alpha*tp) * s.Opponent.Predict(bid)
	}
	return score
}

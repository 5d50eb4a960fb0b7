package bidding

import (
	"sort"

	"k8s.io/klog/v2"

	"ubna/pkg/negotiation"
	"ubna/pkg/opponent"
)

// Candidate is one member of the working set, with both utility
// dimensions evaluated at refresh time.
type Candidate struct {
	Bid             negotiation.Bid
	OwnUtility      float64
	OpponentUtility float64
}

// SpaceConfig bounds the candidate search.
type SpaceConfig struct {
	// SampleSize is how many outcomes to draw from the universe per refresh.
	SampleSize int

	// TopSlice is the number of best-by-own-utility bids kept from the
	// sample before refinement, bounding later cost.
	TopSlice int

	// TargetSize is the size of the working set after refinement, and
	// the floor the Pareto set is padded up to.
	TargetSize int

	// CongestionTolerance is the per-dimension utility tolerance within
	// which two candidates count as congesting each other.
	CongestionTolerance float64

	// NashWeight is the α in α·nash + (1−α)·congestion.
	NashWeight float64

	// MinObservedOffers is the minimum opponent observation count before
	// refinement trusts the model.
	MinObservedOffers int
}

// CandidateSpace is a bounded working set of outcomes ranked by joint
// desirability, used as the search space for proposals. Every refresh
// fully replaces the set from a fresh uniform sample, so stale entries
// never survive a refresh.
type CandidateSpace struct {
	cfg      SpaceConfig
	outcomes negotiation.OutcomeSpace
	profile  negotiation.Profile
	current  []Candidate
}

// NewCandidateSpace creates an empty candidate space. Call Refresh
// before Current.
func NewCandidateSpace(cfg SpaceConfig, outcomes negotiation.OutcomeSpace, profile negotiation.Profile) *CandidateSpace {
	return &CandidateSpace{cfg: cfg, outcomes: outcomes, profile: profile}
}

// Current returns the working set, ordered best first.
func (c *CandidateSpace) Current() []Candidate {
	return c.current
}

// Refresh repopulates the working set from a fresh uniform sample.
//
// The sample is ranked by own utility and cut to TopSlice. When the
// opponent has been recognized as non-random (refine) and the model has
// seen enough offers, a two-stage refinement runs: the Pareto-optimal
// subset over (own utility, predicted opponent utility), padded back up
// to TargetSize with the next-best bids by own utility, then a combined
// Nash-product/congestion score keeps the top TargetSize. Otherwise the
// set is simply the top TargetSize by own utility.
func (c *CandidateSpace) Refresh(model *opponent.Model, refine bool) {
	sample := c.outcomes.SampleUniform(c.cfg.SampleSize)

	cands := make([]Candidate, 0, len(sample))
	for _, bid := range sample {
		cand := Candidate{Bid: bid, OwnUtility: c.profile.Utility(bid)}
		if model != nil && model.Observations() > 0 {
			cand.OpponentUtility = model.Predict(bid)
		}
		cands = append(cands, cand)
	}
	sortByOwnUtility(cands)

	if len(cands) > c.cfg.TopSlice {
		cands = cands[:c.cfg.TopSlice]
	}

	if !refine || model == nil || model.Observations() < c.cfg.MinObservedOffers {
		if len(cands) > c.cfg.TargetSize {
			cands = cands[:c.cfg.TargetSize]
		}
		c.current = cands
		klog.V(2).InfoS("Candidate space refreshed", "size", len(c.current), "refined", false)
		return
	}

	front := ParetoFront(cands)
	front = padByOwnUtility(front, cands, c.cfg.TargetSize)
	front = c.rankCombined(front)
	if len(front) > c.cfg.TargetSize {
		front = front[:c.cfg.TargetSize]
	}
	c.current = front
	klog.V(2).InfoS("Candidate space refreshed", "size", len(c.current), "refined", true)
}

// ParetoFront returns the subset of candidates not Pareto-dominated on
// (own utility, predicted opponent utility). A candidate is dominated if
// another is weakly better on both dimensions and strictly better on at
// least one. The filter is idempotent: re-filtering its output returns
// the same set.
func ParetoFront(cands []Candidate) []Candidate {
	front := make([]Candidate, 0, len(cands))
	for i, x := range cands {
		dominated := false
		for j, y := range cands {
			if i == j {
				continue
			}
			if dominates(y, x) {
				dominated = true
				break
			}
		}
		if !dominated {
			front = append(front, x)
		}
	}
	return front
}

// dominates reports whether y is weakly better than x on both dimensions
// and strictly better on at least one.
func dominates(y, x Candidate) bool {
	if y.OwnUtility < x.OwnUtility || y.OpponentUtility < x.OpponentUtility {
		return false
	}
	return y.OwnUtility > x.OwnUtility || y.OpponentUtility > x.OpponentUtility
}

// padByOwnUtility tops the front up to floor members using the next-best
// candidates by own utility that are not already present.
func padByOwnUtility(front, all []Candidate, floor int) []Candidate {
	if len(front) >= floor {
		return front
	}

	seen := make(map[string]bool, len(front))
	for _, cand := range front {
		seen[cand.Bid.Key()] = true
	}
	for _, cand := range all {
		if len(front) >= floor {
			break
		}
		key := cand.Bid.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		front = append(front, cand)
	}
	return front
}

// rankCombined orders candidates by α·nash + (1−α)·normalized congestion
// descending, where nash is the product of the two utilities and
// congestion counts other candidates within CongestionTolerance on both
// dimensions.
func (c *CandidateSpace) rankCombined(cands []Candidate) []Candidate {
	congestion := make([]int, len(cands))
	maxCongestion := 0
	for i, x := range cands {
		for j, y := range cands {
			if i == j {
				continue
			}
			if abs(x.OwnUtility-y.OwnUtility) <= c.cfg.CongestionTolerance &&
				abs(x.OpponentUtility-y.OpponentUtility) <= c.cfg.CongestionTolerance {
				congestion[i]++
			}
		}
		if congestion[i] > maxCongestion {
			maxCongestion = congestion[i]
		}
	}

	combined := make([]float64, len(cands))
	for i, cand := range cands {
		nash := cand.OwnUtility * cand.OpponentUtility
		normCongestion := 0.0
		if maxCongestion > 0 {
			normCongestion = float64(congestion[i]) / float64(maxCongestion)
		}
		combined[i] = c.cfg.NashWeight*nash + (1-c.cfg.NashWeight)*normCongestion
	}

	order := make([]int, len(cands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return combined[order[a]] > combined[order[b]]
	})

	out := make([]Candidate, len(cands))
	for i, idx := range order {
		out[i] = cands[idx]
	}
	return out
}

func sortByOwnUtility(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].OwnUtility > cands[j].OwnUtility
	})
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

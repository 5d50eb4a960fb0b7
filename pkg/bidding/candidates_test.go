package bidding

import (
	"testing"

	"ubna/pkg/negotiation"
	"ubna/pkg/opponent"
)

// listSpace is a deterministic outcome space that cycles through a fixed
// list of bids.
type listSpace struct {
	bids []negotiation.Bid
}

func (s *listSpace) Size() int { return len(s.bids) }

func (s *listSpace) SampleUniform(n int) []negotiation.Bid {
	out := make([]negotiation.Bid, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.bids[i%len(s.bids)])
	}
	return out
}

func testSpace(values ...string) *listSpace {
	bids := make([]negotiation.Bid, 0, len(values))
	for _, v := range values {
		bids = append(bids, vbid(v))
	}
	return &listSpace{bids: bids}
}

func TestParetoFront(t *testing.T) {
	cands := []Candidate{
		{Bid: vbid("a"), OwnUtility: 0.9, OpponentUtility: 0.1},
		{Bid: vbid("b"), OwnUtility: 0.8, OpponentUtility: 0.5},
		{Bid: vbid("c"), OwnUtility: 0.5, OpponentUtility: 0.6},
		{Bid: vbid("d"), OwnUtility: 0.4, OpponentUtility: 0.4},
		{Bid: vbid("e"), OwnUtility: 0.9, OpponentUtility: 0.5},
	}

	front := ParetoFront(cands)

	want := map[string]bool{"c": true, "e": true}
	if len(front) != len(want) {
		t.Fatalf("Front has %d members, want %d: %v", len(front), len(want), front)
	}
	for _, cand := range front {
		if !want[cand.Bid["v"]] {
			t.Errorf("Dominated candidate %v survived the filter", cand.Bid)
		}
	}

	// Idempotence: filtering the front again changes nothing.
	again := ParetoFront(front)
	if len(again) != len(front) {
		t.Errorf("Re-filtering the front changed its size: %d -> %d", len(front), len(again))
	}
}

func TestParetoFrontKeepsEqualCandidates(t *testing.T) {
	cands := []Candidate{
		{Bid: vbid("a"), OwnUtility: 0.5, OpponentUtility: 0.5},
		{Bid: vbid("b"), OwnUtility: 0.5, OpponentUtility: 0.5},
	}
	front := ParetoFront(cands)
	if len(front) != 2 {
		t.Errorf("Utility-equal candidates should both survive, got %d", len(front))
	}
}

func TestRefreshUnrefined(t *testing.T) {
	profile := valueProfile{"a": 1.0, "b": 0.9, "c": 0.8, "d": 0.7, "e": 0.6, "f": 0.5}
	space := testSpace("d", "a", "f", "b", "e", "c")

	cs := NewCandidateSpace(SpaceConfig{
		SampleSize:        6,
		TopSlice:          6,
		TargetSize:        3,
		MinObservedOffers: 2,
	}, space, profile)

	cs.Refresh(nil, false)

	current := cs.Current()
	if len(current) != 3 {
		t.Fatalf("Working set size = %d, want 3", len(current))
	}
	for i, wantValue := range []string{"a", "b", "c"} {
		if current[i].Bid["v"] != wantValue {
			t.Errorf("current[%d] = %v, want value %q", i, current[i].Bid, wantValue)
		}
	}
}

func TestRefreshRequiresMatureModel(t *testing.T) {
	profile := valueProfile{"a": 1.0, "b": 0.9, "c": 0.8, "d": 0.7, "e": 0.6, "f": 0.5}
	space := testSpace("a", "b", "c", "d", "e", "f")

	cs := NewCandidateSpace(SpaceConfig{
		SampleSize:        6,
		TopSlice:          6,
		TargetSize:        3,
		NashWeight:        0.7,
		MinObservedOffers: 5,
	}, space, profile)

	model := opponent.NewModel()
	model.Update(vbid("f"))

	// Refinement requested, but the model is below the maturity floor:
	// the set must fall back to the plain top cut.
	cs.Refresh(model, true)
	current := cs.Current()
	if len(current) != 3 || current[0].Bid["v"] != "a" {
		t.Errorf("Immature model should yield the own-utility top cut, got %v", current)
	}
}

func TestRefreshRefined(t *testing.T) {
	profile := valueProfile{"a": 1.0, "b": 0.9, "c": 0.8, "d": 0.7, "e": 0.6, "f": 0.5}
	space := testSpace("a", "b", "c", "d", "e", "f")

	cs := NewCandidateSpace(SpaceConfig{
		SampleSize:          6,
		TopSlice:            6,
		TargetSize:          4,
		CongestionTolerance: 0.02,
		NashWeight:          0.7,
		MinObservedOffers:   2,
	}, space, profile)

	model := opponent.NewModel()
	model.Update(vbid("f"))
	model.Update(vbid("f"))

	cs.Refresh(model, true)
	current := cs.Current()

	// Pareto front is {a, f}; padding tops it up to four members with the
	// next-best own-utility bids, and the Nash term ranks f first since
	// every other candidate has a zero predicted opponent utility.
	if len(current) != 4 {
		t.Fatalf("Working set size = %d, want 4", len(current))
	}
	if current[0].Bid["v"] != "f" {
		t.Errorf("Top refined candidate = %v, want the joint-utility optimum f", current[0].Bid)
	}

	seen := map[string]bool{}
	for _, cand := range current {
		key := cand.Bid.Key()
		if seen[key] {
			t.Errorf("Duplicate candidate %v after padding", cand.Bid)
		}
		seen[key] = true
	}
	for _, wantValue := range []string{"a", "b", "c", "f"} {
		if !seen[vbid(wantValue).Key()] {
			t.Errorf("Expected candidate %q missing from refined set %v", wantValue, current)
		}
	}
}

func TestRefreshReplacesPreviousSet(t *testing.T) {
	profile := valueProfile{"a": 1.0, "b": 0.2}
	space := testSpace("a", "b")

	cs := NewCandidateSpace(SpaceConfig{
		SampleSize:        2,
		TopSlice:          2,
		TargetSize:        1,
		MinObservedOffers: 1,
	}, space, profile)

	cs.Refresh(nil, false)
	first := cs.Current()
	cs.Refresh(nil, false)
	second := cs.Current()

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("Working set sizes = %d/%d, want 1/1", len(first), len(second))
	}
	if !first[0].Bid.Equal(second[0].Bid) {
		t.Errorf("Deterministic space should refresh to the same set")
	}
}

package agent

import (
	"math"
	"testing"

	"ubna/pkg/negotiation"
)

// fakeProfile is a single-issue test profile: the utility of a bid is
// looked up from the value of issue "v".
type fakeProfile map[string]float64

func (p fakeProfile) Utility(bid negotiation.Bid) float64 {
	return p[bid["v"]]
}

// fakeSpace cycles deterministically through a fixed list of bids.
type fakeSpace struct {
	bids []negotiation.Bid
}

func (s *fakeSpace) Size() int { return len(s.bids) }

func (s *fakeSpace) SampleUniform(n int) []negotiation.Bid {
	out := make([]negotiation.Bid, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.bids[i%len(s.bids)])
	}
	return out
}

func vbid(value string) negotiation.Bid {
	return negotiation.Bid{"v": value}
}

func testProfile() fakeProfile {
	return fakeProfile{
		"u95": 0.95, "u90": 0.90, "u85": 0.85, "u80": 0.80, "u75": 0.75,
		"u70": 0.70, "u60": 0.60, "u50": 0.50, "u40": 0.40, "u30": 0.30,
		// Values outside the sampled space, used as opponent offers.
		"gold": 1.0, "low": 0.20,
	}
}

func testSpace() *fakeSpace {
	values := []string{"u95", "u90", "u85", "u80", "u75", "u70", "u60", "u50", "u40", "u30"}
	bids := make([]negotiation.Bid, 0, len(values))
	for _, v := range values {
		bids = append(bids, vbid(v))
	}
	return &fakeSpace{bids: bids}
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.SampleSize = 10
	cfg.TopSlice = 10
	cfg.CandidateTarget = 5
	cfg.RefreshCheckpoints = []int{2}
	cfg.MinObservedOffers = 2
	// Keep the probing protocol out of the way unless a test wants it.
	cfg.ProbeWindowStart = 50
	return cfg
}

func newTestController() *Controller {
	return NewController(testConfig(), testProfile(), testSpace())
}

func TestOpeningFirstOfferNearAspiration(t *testing.T) {
	c := newTestController()

	action := c.HandleTurn(0.1)
	if action.Kind != negotiation.ActionOffer {
		t.Fatalf("First turn action = %v, want an offer", action.Kind)
	}
	// Candidate utilities are {0.95, 0.90, 0.85, 0.80, 0.75}; the closest
	// to the 0.75 aspiration is 0.75 itself.
	if got := testProfile().Utility(action.Bid); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("First offer utility = %v, want 0.75", got)
	}
}

func TestOpeningNeverLowersOwnUtility(t *testing.T) {
	c := newTestController()

	first := c.HandleTurn(0.1)
	second := c.HandleTurn(0.15)

	profile := testProfile()
	if profile.Utility(second.Bid) < profile.Utility(first.Bid) {
		t.Errorf("Opening offer utility dropped: %v -> %v",
			profile.Utility(first.Bid), profile.Utility(second.Bid))
	}
}

func TestAcceptBetterThanCandidate(t *testing.T) {
	c := newTestController()

	// An offer strictly better than anything we can sample: accepting
	// dominates any counter-proposal.
	c.HandleOffer(vbid("gold"))
	action := c.HandleTurn(0.5)

	if action.Kind != negotiation.ActionAccept {
		t.Fatalf("Action = %v, want accept", action.Kind)
	}
	if action.Bid["v"] != "gold" {
		t.Errorf("Accepted bid = %v, want the received offer", action.Bid)
	}
}

func TestAcceptReasons(t *testing.T) {
	scenarios := []struct {
		name      string
		received  string
		stubborn  bool
		fallback  float64
		progress  float64
		candidate string
		want      string
		ok        bool
	}{
		{"late floor", "u85", false, 0, 0.96, "u95", "late_floor", true},
		{"stubborn fallback", "u50", true, 0.3, 0.985, "u95", "stubborn_fallback", true},
		{"forced", "u30", false, 0.9, 0.995, "u95", "forced", true},
		{"mid-session decent offer held", "u50", false, 0, 0.5, "u95", "", false},
		{"floor not reached", "u70", false, 0, 0.96, "u95", "", false},
	}

	for _, s := range scenarios {
		c := newTestController()
		c.lastReceived = vbid(s.received)
		c.stubborn = s.stubborn
		c.fallbackBeforeReceived = s.fallback

		got, ok := c.acceptReason(s.progress, vbid(s.candidate))
		if ok != s.ok || got != s.want {
			t.Errorf("%s: acceptReason = (%q, %v), want (%q, %v)", s.name, got, ok, s.want, s.ok)
		}
	}
}

func TestStubbornAcceptReachableThroughOfferFlow(t *testing.T) {
	c := newTestController()

	// A stubborn opponent keeps us far below the reservation utility,
	// then hands over its best offer yet just before the deadline.
	for i := 0; i < 3; i++ {
		c.HandleOffer(vbid("low"))
	}
	c.HandleOffer(vbid("u50"))

	// The endgame flags the opponent stubborn and answers with the
	// best-seen bid, which is the standing offer itself; the standing
	// offer must then be accepted because it beats everything seen
	// before it, not be re-proposed back.
	action := c.HandleTurn(0.985)
	if action.Kind != negotiation.ActionAccept {
		t.Fatalf("Best-ever offer from a stubborn opponent not accepted, got %v of %v", action.Kind, action.Bid)
	}
	if action.Bid["v"] != "u50" {
		t.Errorf("Accepted bid = %v, want the standing offer", action.Bid)
	}
}

func TestAcceptanceMonotoneInScore(t *testing.T) {
	// Offers with a higher blended score than an accepted offer must be
	// accepted too: the acceptance set is upward-closed in score.
	candidate := vbid("u75")
	accepted := false
	prevScore := -1.0

	for _, value := range []string{"u30", "u50", "u70", "u80", "u90", "u95", "gold"} {
		c := newTestController()
		c.lastReceived = vbid(value)

		score := c.scorer.Score(vbid(value), 0.5)
		if score < prevScore {
			t.Fatalf("Offer ladder not ordered by score at %q", value)
		}
		prevScore = score

		_, ok := c.acceptReason(0.5, candidate)
		if accepted && !ok {
			t.Errorf("Offer %q outscores an accepted offer but was rejected", value)
		}
		if ok {
			accepted = true
		}
	}
	if !accepted {
		t.Error("No offer on the ladder was accepted")
	}
}

func TestForcedValveAcceptsAnyOffer(t *testing.T) {
	c := newTestController()

	// An offer below the late floor from an opponent not flagged
	// stubborn: only the forced valve can accept it.
	c.HandleOffer(vbid("u70"))
	action := c.HandleTurn(0.995)

	if action.Kind != negotiation.ActionAccept {
		t.Errorf("Past the forced threshold any standing offer must be accepted, got %v", action.Kind)
	}
}

func TestNoAcceptWithoutReceivedOffer(t *testing.T) {
	c := newTestController()

	// Even past the forced threshold there is nothing to accept.
	action := c.HandleTurn(0.995)
	if action.Kind != negotiation.ActionOffer {
		t.Errorf("Action without a standing offer = %v, want offer", action.Kind)
	}
	if action.Bid == nil {
		t.Error("Offer emitted with a nil bid")
	}
}

func TestEndgameFlagsStubbornOpponent(t *testing.T) {
	c := newTestController()

	for i := 0; i < 3; i++ {
		c.HandleOffer(vbid("low"))
	}

	bid := c.endgameBid()
	if !c.Stubborn() {
		t.Fatal("Opponent below the reservation utility not flagged stubborn")
	}
	// The reply is the best-own-utility bid seen so far, which with no
	// offers made yet is the received bid itself.
	if !bid.Equal(vbid("low")) {
		t.Errorf("Stubborn endgame bid = %v, want the tracked fallback", bid)
	}
}

func TestEndgameKeepsFairOpponentUnflagged(t *testing.T) {
	c := newTestController()

	for i := 0; i < 3; i++ {
		c.HandleOffer(vbid("u70"))
	}

	c.endgameBid()
	if c.Stubborn() {
		t.Error("Opponent averaging above the reservation utility flagged stubborn")
	}
}

func TestFallbackChainPriority(t *testing.T) {
	c := newTestController()

	// Nothing offered or received yet: a fresh sample.
	if bid := c.fallbackChain(); bid == nil {
		t.Fatal("Fallback chain returned nil on a fresh session")
	}

	action := c.HandleTurn(0.1)
	if bid := c.fallbackChain(); !bid.Equal(action.Bid) {
		t.Errorf("Fallback = %v, want the previous offer %v", bid, action.Bid)
	}
}

func TestCheckpointRefresh(t *testing.T) {
	c := newTestController()

	c.HandleOffer(vbid("low"))
	if c.nextCheckpoint != 0 {
		t.Errorf("Checkpoint consumed after 1 offer, threshold is 2")
	}
	c.HandleOffer(vbid("low"))
	if c.nextCheckpoint != 1 {
		t.Errorf("Checkpoint not consumed after reaching the threshold")
	}
}

func TestProbeWindowOverridesOpening(t *testing.T) {
	cfg := testConfig()
	cfg.ProbeWindowStart = 0
	c := NewController(cfg, testProfile(), testSpace())

	// The first probe is the best candidate, not the aspiration-matched
	// opening bid.
	action := c.HandleTurn(0.01)
	if got := testProfile().Utility(action.Bid); math.Abs(got-0.95) > 1e-9 {
		t.Errorf("First probe utility = %v, want the best candidate 0.95", got)
	}
}

func TestBargainingRetainsUtilityFloor(t *testing.T) {
	c := newTestController()

	first := c.HandleTurn(0.1) // opening, utility 0.75
	bid := c.bargainingBid(0.5)

	profile := testProfile()
	floor := c.cfg.BargainingRetention * profile.Utility(first.Bid)
	if got := profile.Utility(bid); got < floor {
		t.Errorf("Bargaining bid utility %v below the retention floor %v", got, floor)
	}
}

func TestRecordAgreementAndSummary(t *testing.T) {
	c := newTestController()

	c.HandleOffer(vbid("u50"))
	c.HandleTurn(0.5)
	c.RecordAgreement(vbid("u85"))

	sum := c.HandleSessionEnd()
	if !sum.Accepted {
		t.Error("Summary not marked accepted")
	}
	if math.Abs(sum.AgreementUtility-0.85) > 1e-9 {
		t.Errorf("AgreementUtility = %v, want 0.85", sum.AgreementUtility)
	}
	if sum.OffersReceived != 1 || sum.OffersMade != 1 {
		t.Errorf("Offer counts = %d/%d, want 1/1", sum.OffersReceived, sum.OffersMade)
	}

	// The session is closed: further offers are ignored.
	c.HandleOffer(vbid("gold"))
	if len(c.received) != 1 {
		t.Error("Offer processed after session end")
	}
}

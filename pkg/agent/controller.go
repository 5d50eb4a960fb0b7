// Package agent implements the per-session decision core of the
// negotiation agent. The Controller reacts synchronously to exactly two
// protocol events, offer received and our turn, and owns all mutable
// session state: history, the opponent model, the candidate space and
// the recognition protocol. No decision path returns an error; every
// degenerate condition resolves to a defined fallback so an accept or
// offer action is emitted each turn.
package agent

import (
	"math"

	"k8s.io/klog/v2"

	"ubna/pkg/bidding"
	"ubna/pkg/negotiation"
	"ubna/pkg/opponent"
	"ubna/pkg/recognizer"
)

// Controller orchestrates one negotiation session.
type Controller struct {
	cfg        *Config
	profile    negotiation.Profile
	outcomes   negotiation.OutcomeSpace
	scorer     *bidding.Scorer
	candidates *bidding.CandidateSpace
	model      *opponent.Model // nil until the first offer is observed
	recognizer *recognizer.Recognizer

	received         []negotiation.Bid
	receivedOwnUtils []float64
	lastReceived     negotiation.Bid
	lastOffered      negotiation.Bid

	// fallbackBid is the maximum-own-utility bid seen so far, received
	// or offered.
	fallbackBid     negotiation.Bid
	fallbackUtility float64

	// fallbackBeforeReceived is the fallback utility as it stood before
	// the standing offer was folded into the tracker, so an accept
	// decision never compares the standing offer against itself.
	fallbackBeforeReceived float64

	// Immutable once set.
	recognized recognizer.Strategy
	stubborn   bool

	turn           int
	offersMade     int
	nextCheckpoint int
	ended          bool

	accepted         bool
	agreementUtility float64
}

// NewController creates the session state machine and populates the
// initial candidate working set.
func NewController(cfg *Config, profile negotiation.Profile, outcomes negotiation.OutcomeSpace) *Controller {
	scorer := bidding.NewScorer(profile, cfg.Alpha, cfg.Epsilon)

	candidates := bidding.NewCandidateSpace(bidding.SpaceConfig{
		SampleSize:          cfg.SampleSize,
		TopSlice:            cfg.TopSlice,
		TargetSize:          cfg.CandidateTarget,
		CongestionTolerance: cfg.CongestionTolerance,
		NashWeight:          cfg.NashWeight,
		MinObservedOffers:   cfg.MinObservedOffers,
	}, outcomes, profile)

	rec := recognizer.New(recognizer.Config{
		WindowStart: cfg.ProbeWindowStart,
		SelfMoves: recognizer.MoveThresholds{
			SilentDelta:          cfg.SelfSilentDelta,
			ConcessionDelta:      cfg.SelfConcessionDelta,
			LargeConcessionDelta: cfg.SelfLargeConcessionDelta,
			SelfishDelta:         cfg.SelfSelfishDelta,
		},
		OpponentMoves: recognizer.MoveThresholds{
			SilentDelta:          cfg.OppSilentDelta,
			ConcessionDelta:      cfg.OppConcessionDelta,
			LargeConcessionDelta: cfg.OppLargeConcessionDelta,
			SelfishDelta:         cfg.OppSelfishDelta,
		},
		RelativeSmallFactor: cfg.RelativeSmallFactor,
	}, profile, scorer)

	c := &Controller{
		cfg:        cfg,
		profile:    profile,
		outcomes:   outcomes,
		scorer:     scorer,
		candidates: candidates,
		recognizer: rec,
	}
	c.refreshCandidates()
	return c
}

// HandleOffer processes one received offer: it trains the opponent
// model, extends the history, feeds the recognition protocol, and
// triggers candidate refreshes at the configured checkpoints.
func (c *Controller) HandleOffer(bid negotiation.Bid) {
	if c.ended || bid == nil {
		return
	}

	if c.model == nil {
		c.model = opponent.NewModel()
		c.scorer.Opponent = c.model
	}
	c.model.Update(bid)

	own := c.profile.Utility(bid)
	c.lastReceived = bid
	c.received = append(c.received, bid)
	c.receivedOwnUtils = append(c.receivedOwnUtils, own)
	c.fallbackBeforeReceived = c.fallbackUtility
	c.trackFallback(bid, own)

	if c.recognizer.Probing() {
		c.recognizer.ObserveOpponent(bid)
		c.syncRecognition()
	}

	if c.nextCheckpoint < len(c.cfg.RefreshCheckpoints) &&
		len(c.received) >= c.cfg.RefreshCheckpoints[c.nextCheckpoint] {
		c.nextCheckpoint++
		c.refreshCandidates()
	}

	recordOfferReceived(own, c.model.Predict(bid))
}

// HandleTurn decides the agent's action for this turn: accept the last
// received offer or propose a candidate bid.
func (c *Controller) HandleTurn(progress float64) negotiation.Action {
	defer func() { c.turn++ }()

	candidate := c.nextBid(progress)

	if c.lastReceived != nil {
		if condition, ok := c.acceptReason(progress, candidate); ok {
			klog.V(2).InfoS("Accepting offer", "condition", condition, "progress", progress,
				"ownUtility", c.profile.Utility(c.lastReceived))
			recordAccept(condition)
			c.accepted = true
			c.agreementUtility = c.profile.Utility(c.lastReceived)
			return negotiation.NewAccept(c.lastReceived)
		}
	}

	c.lastOffered = candidate
	c.offersMade++
	c.trackFallback(candidate, c.profile.Utility(candidate))
	recordOfferMade()
	return negotiation.NewOffer(candidate)
}

// acceptReason evaluates the four disjunctive acceptance conditions and
// returns the name of the first one that holds.
func (c *Controller) acceptReason(progress float64, candidate negotiation.Bid) (string, bool) {
	received := c.lastReceived
	ownUtility := c.profile.Utility(received)

	if candidate != nil && c.scorer.Score(received, progress) > c.scorer.Score(candidate, progress) {
		return "better_than_candidate", true
	}
	if ownUtility >= c.cfg.LateAcceptFloor && progress > c.cfg.LateAcceptProgress {
		return "late_floor", true
	}
	if progress > c.cfg.StubbornAcceptProgress && c.stubborn && ownUtility > c.fallbackBeforeReceived {
		return "stubborn_fallback", true
	}
	if progress > c.cfg.ForcedAgreementProgress {
		return "forced", true
	}
	return "", false
}

// nextBid computes this turn's candidate bid: a probe while the turn
// index is inside the probing window, otherwise a phase bid.
func (c *Controller) nextBid(progress float64) negotiation.Bid {
	if c.recognized == recognizer.StrategyUnknown {
		if c.recognizer.InWindow(c.turn) && !c.recognizer.Done() {
			if bid := c.recognizer.NextProbe(c.candidates.Current(), progress, c.fallbackChain()); bid != nil {
				return bid
			}
		} else if c.recognizer.Probing() {
			// Window passed without the full protocol completing.
			c.recognizer.Finalize()
		}
		c.syncRecognition()
	}

	switch {
	case progress < c.cfg.OpeningPhaseEnd:
		return c.openingBid(progress)
	case progress < c.cfg.EndgamePhaseStart:
		return c.bargainingBid(progress)
	default:
		return c.endgameBid()
	}
}

// openingBid aims near the aspiration utility on the first offer and
// afterwards improves the blended score without lowering own utility.
func (c *Controller) openingBid(progress float64) negotiation.Bid {
	cands := c.candidates.Current()

	if c.lastOffered == nil {
		var best negotiation.Bid
		bestDist := math.Inf(1)
		for _, cand := range cands {
			d := math.Abs(cand.OwnUtility - c.cfg.AspirationUtility)
			if d < bestDist {
				best = cand.Bid
				bestDist = d
			}
		}
		if best != nil {
			return best
		}
		return c.fallbackChain()
	}

	prevUtility := c.profile.Utility(c.lastOffered)
	var best negotiation.Bid
	bestScore := math.Inf(-1)
	for _, cand := range cands {
		if cand.OwnUtility < prevUtility {
			continue
		}
		if score := c.scorer.Score(cand.Bid, progress); score > bestScore {
			best = cand.Bid
			bestScore = score
		}
	}
	if best != nil {
		return best
	}
	return c.fallbackChain()
}

// bargainingBid retains most of the previous offer's own utility and
// maximizes predicted opponent utility within that floor.
func (c *Controller) bargainingBid(progress float64) negotiation.Bid {
	if c.lastOffered == nil {
		return c.openingBid(progress)
	}

	floor := c.cfg.BargainingRetention * c.profile.Utility(c.lastOffered)
	var best negotiation.Bid
	bestValue := math.Inf(-1)
	for _, cand := range c.candidates.Current() {
		if cand.OwnUtility < floor {
			continue
		}
		value := cand.OpponentUtility
		if c.model != nil {
			value = c.model.Predict(cand.Bid)
		}
		if value > bestValue {
			best = cand.Bid
			bestValue = value
		}
	}
	if best != nil {
		return best
	}
	return c.fallbackChain()
}

// endgameBid compares the running average of what the opponent's offers
// gave each side. An opponent whose average advantage exceeds the
// configured gap, or who kept us below our reservation utility, is
// flagged stubborn and answered with the best-own-utility bid seen.
func (c *Controller) endgameBid() negotiation.Bid {
	if len(c.received) == 0 {
		return c.fallbackChain()
	}

	avgOwn := 0.0
	for _, u := range c.receivedOwnUtils {
		avgOwn += u
	}
	avgOwn /= float64(len(c.receivedOwnUtils))

	avgOpp := 0.0
	if c.model != nil {
		for _, bid := range c.received {
			avgOpp += c.model.Predict(bid)
		}
		avgOpp /= float64(len(c.received))
	}

	if avgOpp-avgOwn > c.cfg.StubbornGap || avgOwn < c.cfg.ReservationUtility {
		if !c.stubborn {
			klog.V(2).InfoS("Opponent flagged stubborn", "avgOwn", avgOwn, "avgOpponent", avgOpp)
		}
		c.stubborn = true
		if c.fallbackBid != nil {
			return c.fallbackBid
		}
	}
	return c.fallbackChain()
}

// fallbackChain resolves empty-candidate conditions in priority order:
// the previous offer, the best-seen fallback bid, a single fresh sample.
func (c *Controller) fallbackChain() negotiation.Bid {
	if c.lastOffered != nil {
		return c.lastOffered
	}
	if c.fallbackBid != nil {
		return c.fallbackBid
	}
	if sample := c.outcomes.SampleUniform(1); len(sample) > 0 {
		return sample[0]
	}
	return nil
}

func (c *Controller) trackFallback(bid negotiation.Bid, ownUtility float64) {
	if bid == nil {
		return
	}
	if c.fallbackBid == nil || ownUtility > c.fallbackUtility {
		c.fallbackBid = bid
		c.fallbackUtility = ownUtility
	}
}

// syncRecognition copies a concluded recognizer label into the session
// state exactly once.
func (c *Controller) syncRecognition() {
	if c.recognized == recognizer.StrategyUnknown && c.recognizer.Done() {
		c.recognized = c.recognizer.Strategy()
		recordRecognizedStrategy(string(c.recognized))
	}
}

// refreshCandidates rebuilds the candidate working set. Refinement runs
// only once the opponent is recognized as something other than random.
func (c *Controller) refreshCandidates() {
	refine := c.recognized != recognizer.StrategyUnknown && c.recognized != recognizer.StrategyRandom
	c.candidates.Refresh(c.model, refine)
	recordCandidateSetSize(len(c.candidates.Current()))
}

// RecognizedStrategy returns the concluded opponent archetype, or the
// empty string while unknown.
func (c *Controller) RecognizedStrategy() recognizer.Strategy {
	return c.recognized
}

// Stubborn reports whether the opponent has been flagged stubborn.
func (c *Controller) Stubborn() bool {
	return c.stubborn
}

// RecordAgreement marks the session as agreed on the given bid, used
// when the counterpart accepts one of our offers.
func (c *Controller) RecordAgreement(bid negotiation.Bid) {
	if bid == nil {
		return
	}
	c.accepted = true
	c.agreementUtility = c.profile.Utility(bid)
}

// HandleSessionEnd closes the session and returns its summary. After
// this no further accept/offer decisions occur.
func (c *Controller) HandleSessionEnd() Summary {
	c.ended = true
	return Summary{
		Recognized:       string(c.recognized),
		OffersReceived:   len(c.received),
		OffersMade:       c.offersMade,
		Accepted:         c.accepted,
		AgreementUtility: c.agreementUtility,
		Stubborn:         c.stubborn,
	}
}

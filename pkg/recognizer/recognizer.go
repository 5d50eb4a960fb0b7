package recognizer

import (
	"k8s.io/klog/v2"

	"ubna/pkg/bidding"
	"ubna/pkg/negotiation"
)

// Strategy is the recognized opponent archetype. Once concluded it is
// terminal for the session; recognition never re-runs.
type Strategy string

const (
	StrategyUnknown    Strategy = ""
	StrategyHardheaded Strategy = "hardheaded"
	StrategyConceder   Strategy = "conceder"
	StrategyTitForTat  Strategy = "tit-for-tat"
	StrategyRandom     Strategy = "random"
)

// Hypothesis is the partial-knowledge state of the narrowing protocol.
type Hypothesis int

const (
	HypothesisUnset Hypothesis = iota

	// HypothesisHardheadedOrRandom: the opponent moved no more than we
	// did and did not escalate.
	HypothesisHardheadedOrRandom

	// HypothesisConcederRandomTitForTat: the opponent moved at least as
	// much as we did.
	HypothesisConcederRandomTitForTat

	// HypothesisTitForTatOrRandom: under the conceder hypothesis, the
	// opponent answered our selfish probe selfishly.
	HypothesisTitForTatOrRandom

	// HypothesisConcederOrRandom: under the conceder hypothesis, the
	// opponent kept still or kept conceding.
	HypothesisConcederOrRandom
)

// probeRounds is the length of the probing protocol in agent turns.
const probeRounds = 4

// Config tunes the probing window and both move classifiers.
type Config struct {
	// WindowStart is the agent turn index (0-based) of the first probe.
	WindowStart int

	// SelfMoves classifies the agent's own probe moves on blended score.
	SelfMoves MoveThresholds

	// OpponentMoves classifies opponent moves on the own-utility delta
	// of their bids.
	OpponentMoves MoveThresholds

	// RelativeSmallFactor bounds how large the opponent's final move may
	// be, relative to our own, to still conclude hardheaded.
	RelativeSmallFactor float64
}

// Recognizer runs the four-round probing protocol. It records the
// agent's probe bids and the opponent's corresponding bids, narrows a
// hypothesis after rounds two and three, and concludes a terminal label
// after round four.
type Recognizer struct {
	cfg     Config
	profile negotiation.Profile
	scorer  *bidding.Scorer

	probeBids   []negotiation.Bid
	probeScores []float64
	oppUtils    []float64

	hypothesis Hypothesis
	concluded  Strategy
}

// New creates a recognizer. The scorer must be the same one the
// controller uses so self-moves are classified on the blended score.
func New(cfg Config, profile negotiation.Profile, scorer *bidding.Scorer) *Recognizer {
	return &Recognizer{cfg: cfg, profile: profile, scorer: scorer}
}

// InWindow reports whether the given agent turn index falls inside the
// probing window.
func (r *Recognizer) InWindow(turn int) bool {
	return turn >= r.cfg.WindowStart && turn < r.cfg.WindowStart+probeRounds
}

// Done reports whether a terminal label has been concluded.
func (r *Recognizer) Done() bool {
	return r.concluded != StrategyUnknown
}

// Strategy returns the concluded label, or StrategyUnknown.
func (r *Recognizer) Strategy() Strategy {
	return r.concluded
}

// Probing reports whether probes have started and no label is set yet,
// i.e. observed offers should be routed into the recognizer.
func (r *Recognizer) Probing() bool {
	return len(r.probeBids) > 0 && !r.Done()
}

// NextProbe returns the agent's probe bid for the current round.
//
// Round 1 offers the best available candidate as a baseline. Round 2 is
// a deliberate moderate concession. Round 3 depends on the hypothesis: a
// large concession under hardheaded-or-random, a mildly selfish move
// otherwise. Round 4 is a near-zero silent move. Every search falls back
// to repeating the previous probe when no candidate qualifies.
func (r *Recognizer) NextProbe(cands []bidding.Candidate, progress float64, fallback negotiation.Bid) negotiation.Bid {
	round := len(r.probeBids)

	var bid negotiation.Bid
	switch round {
	case 0:
		bid = bestByOwnUtility(cands)
	case 1:
		bid = r.searchMove(cands, progress, MoveConcession, MoveSmallConcession)
	case 2:
		if r.hypothesis == HypothesisHardheadedOrRandom {
			bid = r.searchMove(cands, progress, MoveLargeConcession, MoveConcession)
		} else {
			bid = r.searchMove(cands, progress, MoveSmallSelfish, MoveSelfish)
		}
	default:
		bid = r.searchMove(cands, progress, MoveSilent)
	}

	if bid == nil {
		bid = r.previousProbe()
	}
	if bid == nil {
		bid = fallback
	}
	if bid == nil {
		return nil
	}

	r.probeBids = append(r.probeBids, bid)
	r.probeScores = append(r.probeScores, r.scorer.Score(bid, progress))
	klog.V(3).InfoS("Probe emitted", "round", round+1, "score", r.probeScores[len(r.probeScores)-1])
	return bid
}

// ObserveOpponent records the opponent's bid for the current probe round
// and advances the hypothesis state machine. Offers observed before the
// first probe or after conclusion are ignored.
func (r *Recognizer) ObserveOpponent(bid negotiation.Bid) {
	if r.Done() || len(r.probeBids) == 0 {
		return
	}
	r.oppUtils = append(r.oppUtils, r.profile.Utility(bid))

	switch len(r.oppUtils) {
	case 2:
		r.formHypothesis()
	case 3:
		r.narrowHypothesis()
	case probeRounds:
		r.concludeFinal()
	}
}

// Finalize concludes the protocol when the window closes without the
// full four opponent responses. Without a completed protocol no pattern
// is attributable, so the label defaults to random.
func (r *Recognizer) Finalize() {
	if !r.Done() {
		r.conclude(StrategyRandom)
	}
}

// formHypothesis runs after the opponent's round-2 offer. The opponent's
// move magnitude is compared against the magnitude of our own round-1 to
// round-2 change.
func (r *Recognizer) formHypothesis() {
	if len(r.probeScores) < 2 {
		return
	}
	diff := r.oppUtils[0] - r.oppUtils[1]
	kind := ClassifyMove(diff, r.cfg.OpponentMoves)

	sigmaOpp := abs(diff)
	sigmaSelf := abs(r.probeScores[1] - r.probeScores[0])

	switch {
	case !kind.Escalating() && sigmaOpp <= sigmaSelf:
		r.hypothesis = HypothesisHardheadedOrRandom
	case sigmaOpp >= sigmaSelf:
		r.hypothesis = HypothesisConcederRandomTitForTat
	}
	klog.V(3).InfoS("Hypothesis formed", "move", kind, "sigmaOpp", sigmaOpp, "sigmaSelf", sigmaSelf, "hypothesis", r.hypothesis)
}

// narrowHypothesis runs after the opponent's round-3 offer.
func (r *Recognizer) narrowHypothesis() {
	diff := r.oppUtils[1] - r.oppUtils[2]
	kind := ClassifyMove(diff, r.cfg.OpponentMoves)

	switch r.hypothesis {
	case HypothesisHardheadedOrRandom:
		sigmaOpp := abs(diff)
		sigmaSelf := abs(r.lastProbeDelta())
		if !kind.Escalating() && sigmaOpp <= r.cfg.RelativeSmallFactor*sigmaSelf {
			r.conclude(StrategyHardheaded)
		} else {
			r.conclude(StrategyRandom)
		}
	case HypothesisConcederRandomTitForTat:
		if kind.Escalating() {
			r.hypothesis = HypothesisTitForTatOrRandom
		} else {
			r.hypothesis = HypothesisConcederOrRandom
		}
	}
}

// concludeFinal runs after the opponent's round-4 offer.
func (r *Recognizer) concludeFinal() {
	diff := r.oppUtils[2] - r.oppUtils[3]
	kind := ClassifyMove(diff, r.cfg.OpponentMoves)

	switch r.hypothesis {
	case HypothesisTitForTatOrRandom:
		if kind == MoveSilent {
			r.conclude(StrategyTitForTat)
		} else {
			r.conclude(StrategyRandom)
		}
	case HypothesisConcederOrRandom:
		if kind == MoveSilent || kind.Conceding() {
			r.conclude(StrategyConceder)
		} else {
			r.conclude(StrategyRandom)
		}
	default:
		r.conclude(StrategyRandom)
	}
}

func (r *Recognizer) conclude(s Strategy) {
	r.concluded = s
	klog.V(2).InfoS("Opponent strategy concluded", "strategy", s)
}

// searchMove finds the best-scoring candidate whose score delta against
// the previous probe classifies as one of the accepted move kinds, in
// preference order.
func (r *Recognizer) searchMove(cands []bidding.Candidate, progress float64, kinds ...MoveKind) negotiation.Bid {
	prev := r.previousProbe()
	if prev == nil {
		return nil
	}
	prevScore := r.probeScores[len(r.probeScores)-1]

	for _, want := range kinds {
		var best negotiation.Bid
		bestScore := 0.0
		for _, cand := range cands {
			score := r.scorer.Score(cand.Bid, progress)
			if ClassifyMove(score-prevScore, r.cfg.SelfMoves) != want {
				continue
			}
			if best == nil || score > bestScore {
				best = cand.Bid
				bestScore = score
			}
		}
		if best != nil {
			return best
		}
	}
	return nil
}

func (r *Recognizer) previousProbe() negotiation.Bid {
	if len(r.probeBids) == 0 {
		return nil
	}
	return r.probeBids[len(r.probeBids)-1]
}

// lastProbeDelta is the blended-score change of our most recent probe
// relative to the one before it.
func (r *Recognizer) lastProbeDelta() float64 {
	n := len(r.probeScores)
	if n < 2 {
		return 0
	}
	return r.probeScores[n-1] - r.probeScores[n-2]
}

func bestByOwnUtility(cands []bidding.Candidate) negotiation.Bid {
	var best negotiation.Bid
	bestUtil := -1.0
	for _, cand := range cands {
		if cand.OwnUtility > bestUtil {
			best = cand.Bid
			bestUtil = cand.OwnUtility
		}
	}
	return best
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Package recognizer classifies the counterpart's concession style into
// one of four archetypes (hardheaded, conceder, tit-for-tat, random) by
// running a four-round probing protocol inside a fixed window of turns
// and narrowing a hypothesis from the opponent's observed responses.
package recognizer

// MoveKind classifies a single move, ours or the opponent's, by the
// utility delta between the old and new bid.
type MoveKind string

const (
	MoveSilent          MoveKind = "silent"
	MoveSmallConcession MoveKind = "small_concession"
	MoveConcession      MoveKind = "concession"
	MoveLargeConcession MoveKind = "large_concession"
	MoveSmallSelfish    MoveKind = "small_selfish"
	MoveSelfish         MoveKind = "selfish"
)

// Escalating reports whether the move claimed ground for the mover.
func (k MoveKind) Escalating() bool {
	return k == MoveSelfish || k == MoveSmallSelfish
}

// Conceding reports whether the move ceded ground to the other party.
func (k MoveKind) Conceding() bool {
	return k == MoveConcession || k == MoveLargeConcession || k == MoveSmallConcession
}

// MoveThresholds are the classification boundaries for one move
// classifier. Self-moves are classified on the blended score delta and
// opponent-moves on the own-utility-of-their-bid delta; the two
// classifiers carry separate threshold sets.
type MoveThresholds struct {
	SilentDelta          float64
	ConcessionDelta      float64
	LargeConcessionDelta float64
	SelfishDelta         float64
}

// ClassifyMove classifies a move from its oriented utility delta.
// Callers orient diff so that a negative value means the mover ceded
// ground: for self-moves pass newScore−oldScore, for opponent-moves pass
// oldBenefit−newBenefit where benefit is our utility of their bid.
func ClassifyMove(diff float64, t MoveThresholds) MoveKind {
	mag := diff
	if mag < 0 {
		mag = -mag
	}
	if mag <= t.SilentDelta {
		return MoveSilent
	}
	if diff < 0 {
		switch {
		case mag >= t.LargeConcessionDelta:
			return MoveLargeConcession
		case mag >= t.ConcessionDelta:
			return MoveConcession
		default:
			return MoveSmallConcession
		}
	}
	if diff >= t.SelfishDelta {
		return MoveSelfish
	}
	return MoveSmallSelfish
}

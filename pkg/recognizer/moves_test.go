package recognizer

import "testing"

func TestClassifyMove(t *testing.T) {
	thresholds := MoveThresholds{
		SilentDelta:          0.02,
		ConcessionDelta:      0.05,
		LargeConcessionDelta: 0.15,
		SelfishDelta:         0.05,
	}

	scenarios := []struct {
		diff float64
		want MoveKind
	}{
		{0, MoveSilent},
		{0.02, MoveSilent},
		{-0.02, MoveSilent},
		{-0.03, MoveSmallConcession},
		{-0.05, MoveConcession},
		{-0.14, MoveConcession},
		{-0.15, MoveLargeConcession},
		{-0.6, MoveLargeConcession},
		{0.03, MoveSmallSelfish},
		{0.05, MoveSelfish},
		{0.4, MoveSelfish},
	}

	for _, s := range scenarios {
		if got := ClassifyMove(s.diff, thresholds); got != s.want {
			t.Errorf("ClassifyMove(%v) = %v, want %v", s.diff, got, s.want)
		}
	}
}

func TestMoveKindPredicates(t *testing.T) {
	scenarios := []struct {
		kind       MoveKind
		escalating bool
		conceding  bool
	}{
		{MoveSilent, false, false},
		{MoveSmallConcession, false, true},
		{MoveConcession, false, true},
		{MoveLargeConcession, false, true},
		{MoveSmallSelfish, true, false},
		{MoveSelfish, true, false},
	}

	for _, s := range scenarios {
		if got := s.kind.Escalating(); got != s.escalating {
			t.Errorf("%v.Escalating() = %v, want %v", s.kind, got, s.escalating)
		}
		if got := s.kind.Conceding(); got != s.conceding {
			t.Errorf("%v.Conceding() = %v, want %v", s.kind, got, s.conceding)
		}
	}
}

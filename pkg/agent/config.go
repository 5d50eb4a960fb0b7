package agent

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"k8s.io/klog/v2"
)

// Config holds all configurable parameters for the negotiation agent.
// Values can be overridden through environment variables.
type Config struct {
	// Alpha weights own utility against predicted opponent utility in
	// the blended score.
	Alpha float64 `env:"UBNA_ALPHA"`

	// Epsilon shapes the time-pressure curve 1 - progress^(1/epsilon).
	// Lower values keep the agent self-interested for longer.
	Epsilon float64 `env:"UBNA_EPSILON"`

	// AspirationUtility is the own-utility target of the very first offer.
	AspirationUtility float64 `env:"UBNA_ASPIRATION_UTILITY"`

	// OpeningPhaseEnd is the progress boundary between opening and bargaining.
	OpeningPhaseEnd float64 `env:"UBNA_OPENING_PHASE_END"`

	// EndgamePhaseStart is the progress boundary between bargaining and endgame.
	EndgamePhaseStart float64 `env:"UBNA_ENDGAME_PHASE_START"`

	// BargainingRetention is the fraction of the previous offer's own
	// utility a bargaining-phase candidate must retain.
	BargainingRetention float64 `env:"UBNA_BARGAINING_RETENTION"`

	// LateAcceptFloor is the own-utility floor for late-stage acceptance.
	LateAcceptFloor float64 `env:"UBNA_LATE_ACCEPT_FLOOR"`

	// LateAcceptProgress is the progress threshold for the late-stage floor.
	LateAcceptProgress float64 `env:"UBNA_LATE_ACCEPT_PROGRESS"`

	// StubbornAcceptProgress is the near-deadline threshold for the
	// stubborn-opponent acceptance path.
	StubbornAcceptProgress float64 `env:"UBNA_STUBBORN_ACCEPT_PROGRESS"`

	// ForcedAgreementProgress is the absolute final threshold past which
	// any received offer is accepted.
	ForcedAgreementProgress float64 `env:"UBNA_FORCED_AGREEMENT_PROGRESS"`

	// StubbornGap flags the opponent stubborn when their average
	// advantage over us exceeds it. Tunable, no derived "correct" value.
	StubbornGap float64 `env:"UBNA_STUBBORN_GAP"`

	// ReservationUtility flags the opponent stubborn when our average
	// utility of their offers falls below it.
	ReservationUtility float64 `env:"UBNA_RESERVATION_UTILITY"`

	// SampleSize is the uniform sample drawn per candidate refresh.
	SampleSize int `env:"UBNA_SAMPLE_SIZE"`

	// TopSlice bounds the sample cut kept before refinement.
	TopSlice int `env:"UBNA_TOP_SLICE"`

	// CandidateTarget is the candidate working-set size.
	CandidateTarget int `env:"UBNA_CANDIDATE_TARGET"`

	// CongestionTolerance is the per-dimension closeness tolerance of
	// the congestion score.
	CongestionTolerance float64 `env:"UBNA_CONGESTION_TOLERANCE"`

	// NashWeight weights the Nash product against congestion in refinement.
	NashWeight float64 `env:"UBNA_NASH_WEIGHT"`

	// MinObservedOffers gates candidate refinement on model maturity.
	MinObservedOffers int `env:"UBNA_MIN_OBSERVED_OFFERS"`

	// RefreshCheckpoints are the received-offer counts at which the
	// candidate space is rebuilt against the better-trained model.
	RefreshCheckpoints []int `env:"UBNA_REFRESH_CHECKPOINTS"`

	// ProbeWindowStart is the agent turn index of the first probe round.
	ProbeWindowStart int `env:"UBNA_PROBE_WINDOW_START"`

	// Self-move classification thresholds (blended-score deltas).
	SelfSilentDelta          float64 `env:"UBNA_SELF_SILENT_DELTA"`
	SelfConcessionDelta      float64 `env:"UBNA_SELF_CONCESSION_DELTA"`
	SelfLargeConcessionDelta float64 `env:"UBNA_SELF_LARGE_CONCESSION_DELTA"`
	SelfSelfishDelta         float64 `env:"UBNA_SELF_SELFISH_DELTA"`

	// Opponent-move classification thresholds (own-utility deltas of
	// their bids). Kept separate from the self-move set.
	OppSilentDelta          float64 `env:"UBNA_OPP_SILENT_DELTA"`
	OppConcessionDelta      float64 `env:"UBNA_OPP_CONCESSION_DELTA"`
	OppLargeConcessionDelta float64 `env:"UBNA_OPP_LARGE_CONCESSION_DELTA"`
	OppSelfishDelta         float64 `env:"UBNA_OPP_SELFISH_DELTA"`

	// RelativeSmallFactor bounds the opponent's move, relative to ours,
	// for the hardheaded conclusion.
	RelativeSmallFactor float64 `env:"UBNA_RELATIVE_SMALL_FACTOR"`

	// Seed seeds outcome-space sampling for reproducibility.
	Seed int64 `env:"UBNA_SEED"`

	// StoragePath is the SQLite file for the session learning artifact.
	// Empty disables persistence.
	StoragePath string `env:"UBNA_STORAGE_PATH"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Alpha:                   0.9,
		Epsilon:                 0.1,
		AspirationUtility:       0.75,
		OpeningPhaseEnd:         0.3,
		EndgamePhaseStart:       0.98,
		BargainingRetention:     0.9,
		LateAcceptFloor:         0.8,
		LateAcceptProgress:      0.95,
		StubbornAcceptProgress:  0.98,
		ForcedAgreementProgress: 0.99,
		StubbornGap:             0.4,
		ReservationUtility:      0.4,
		SampleSize:              5000,
		TopSlice:                300,
		CandidateTarget:         150,
		CongestionTolerance:     0.02,
		NashWeight:              0.7,
		MinObservedOffers:       100,
		RefreshCheckpoints:      []int{300, 600, 900},
		ProbeWindowStart:        4,

		SelfSilentDelta:          0.01,
		SelfConcessionDelta:      0.05,
		SelfLargeConcessionDelta: 0.15,
		SelfSelfishDelta:         0.05,

		OppSilentDelta:          0.02,
		OppConcessionDelta:      0.05,
		OppLargeConcessionDelta: 0.15,
		OppSelfishDelta:         0.05,

		RelativeSmallFactor: 0.5,
		Seed:                1,
		StoragePath:         "",
	}
}

// LoadConfig builds the configuration from defaults with environment
// variable overrides, then validates it.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.Log()
	return cfg, nil
}

// Validate checks ranges and orderings of the configured parameters.
func (c *Config) Validate() error {
	unitInterval := map[string]float64{
		"alpha":                   c.Alpha,
		"aspirationUtility":       c.AspirationUtility,
		"openingPhaseEnd":         c.OpeningPhaseEnd,
		"endgamePhaseStart":       c.EndgamePhaseStart,
		"bargainingRetention":     c.BargainingRetention,
		"lateAcceptFloor":         c.LateAcceptFloor,
		"lateAcceptProgress":      c.LateAcceptProgress,
		"stubbornAcceptProgress":  c.StubbornAcceptProgress,
		"forcedAgreementProgress": c.ForcedAgreementProgress,
		"stubbornGap":             c.StubbornGap,
		"reservationUtility":      c.ReservationUtility,
		"nashWeight":              c.NashWeight,
	}
	for name, v := range unitInterval {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s %v outside [0,1]", name, v)
		}
	}

	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon %v must be positive", c.Epsilon)
	}
	if c.OpeningPhaseEnd >= c.EndgamePhaseStart {
		return fmt.Errorf("openingPhaseEnd %v must precede endgamePhaseStart %v", c.OpeningPhaseEnd, c.EndgamePhaseStart)
	}
	if c.SampleSize <= 0 || c.TopSlice <= 0 || c.CandidateTarget <= 0 {
		return fmt.Errorf("sample bounds must be positive")
	}
	if c.CandidateTarget > c.TopSlice || c.TopSlice > c.SampleSize {
		return fmt.Errorf("need candidateTarget <= topSlice <= sampleSize, got %d/%d/%d", c.CandidateTarget, c.TopSlice, c.SampleSize)
	}
	if c.ProbeWindowStart < 0 {
		return fmt.Errorf("probeWindowStart %d must be non-negative", c.ProbeWindowStart)
	}
	for _, t := range []struct {
		name                            string
		silent, concession, large, self float64
	}{
		{"self", c.SelfSilentDelta, c.SelfConcessionDelta, c.SelfLargeConcessionDelta, c.SelfSelfishDelta},
		{"opp", c.OppSilentDelta, c.OppConcessionDelta, c.OppLargeConcessionDelta, c.OppSelfishDelta},
	} {
		if !(t.silent < t.concession && t.concession < t.large) {
			return fmt.Errorf("%s move thresholds must satisfy silent < concession < largeConcession", t.name)
		}
		if t.self <= t.silent {
			return fmt.Errorf("%s selfish threshold must exceed silent threshold", t.name)
		}
	}
	return nil
}

// Log prints the effective configuration at startup.
func (c *Config) Log() {
	klog.InfoS("Agent configuration",
		"alpha", c.Alpha,
		"epsilon", c.Epsilon,
		"aspirationUtility", c.AspirationUtility,
		"phases", fmt.Sprintf("opening<%v bargaining<%v endgame", c.OpeningPhaseEnd, c.EndgamePhaseStart),
		"sampleSize", c.SampleSize,
		"candidateTarget", c.CandidateTarget,
		"probeWindowStart", c.ProbeWindowStart,
		"stubbornGap", c.StubbornGap,
		"reservationUtility", c.ReservationUtility,
		"seed", c.Seed,
	)
}

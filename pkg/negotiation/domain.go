package negotiation

import (
	"fmt"
	"math/rand"
)

// Issue is a single negotiable dimension with a finite enumerated value set.
type Issue struct {
	Name   string
	Values []string
}

// Domain is the set of issues that together span the outcome space.
type Domain struct {
	Issues []Issue
}

// Validate checks that the domain has at least one issue and every issue
// has at least one value.
func (d *Domain) Validate() error {
	if len(d.Issues) == 0 {
		return fmt.Errorf("domain has no issues")
	}
	for _, issue := range d.Issues {
		if issue.Name == "" {
			return fmt.Errorf("domain has an unnamed issue")
		}
		if len(issue.Values) == 0 {
			return fmt.Errorf("issue %q has no values", issue.Name)
		}
	}
	return nil
}

// Size returns the number of distinct bids in the domain.
func (d *Domain) Size() int {
	size := 1
	for _, issue := range d.Issues {
		size *= len(issue.Values)
	}
	return size
}

// OutcomeSpace is an addressable universe of possible bids.
// The domain is assumed too large to enumerate exhaustively, so all
// search goes through bounded uniform sampling.
type OutcomeSpace interface {
	// Size returns the number of distinct outcomes.
	Size() int

	// SampleUniform draws n outcomes uniformly at random, with replacement.
	SampleUniform(n int) []Bid
}

// Profile is the agent's own utility function over the outcome space.
// It is deterministic, total, range-bounded to [0,1], and fixed for the
// lifetime of a session.
type Profile interface {
	Utility(bid Bid) float64
}

// DomainSpace is an OutcomeSpace backed by an enumerated Domain.
// The random source is explicit so sampling is reproducible in tests.
type DomainSpace struct {
	domain *Domain
	rng    *rand.Rand
}

// NewDomainSpace creates a sampling outcome space over the given domain.
func NewDomainSpace(domain *Domain, seed int64) *DomainSpace {
	return &DomainSpace{
		domain: domain,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Size returns the number of distinct outcomes in the domain.
func (s *DomainSpace) Size() int {
	return s.domain.Size()
}

// SampleUniform draws n bids by picking an independent uniform value for
// every issue.
func (s *DomainSpace) SampleUniform(n int) []Bid {
	bids := make([]Bid, 0, n)
	for i := 0; i < n; i++ {
		bid := make(Bid, len(s.domain.Issues))
		for _, issue := range s.domain.Issues {
			bid[issue.Name] = issue.Values[s.rng.Intn(len(issue.Values))]
		}
		bids = append(bids, bid)
	}
	return bids
}

// Package profile implements the linear-additive utility profile used as
// the agent's own preference function. A profile assigns each issue a
// weight and each value within an issue a utility in [0,1]; the utility
// of a bid is the weight-normalized sum over issues:
//
//	u(b) = Σ_i w_i · v_i(b[i]) / Σ_i w_i
//
// which guarantees u(b) ∈ [0,1] when all value utilities are in [0,1].
package profile

import (
	"encoding/json"
	"fmt"
	"os"

	"ubna/pkg/negotiation"
)

// LinearAdditive is a deterministic, total utility function over the
// outcome space. It is immutable after construction.
type LinearAdditive struct {
	weights map[string]float64            // issue -> normalized weight, sums to 1
	values  map[string]map[string]float64 // issue -> value -> utility in [0,1]
}

// New builds a linear-additive profile from raw issue weights and value
// utilities. Weights are normalized to sum to 1; value utilities must
// already lie in [0,1].
func New(weights map[string]float64, values map[string]map[string]float64) (*LinearAdditive, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("profile has no issues")
	}

	total := 0.0
	for issue, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("issue %q has negative weight %v", issue, w)
		}
		if _, ok := values[issue]; !ok {
			return nil, fmt.Errorf("issue %q has no value utilities", issue)
		}
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("issue weights sum to %v, must be positive", total)
	}

	normalized := make(map[string]float64, len(weights))
	for issue, w := range weights {
		normalized[issue] = w / total
	}

	vals := make(map[string]map[string]float64, len(values))
	for issue, valueUtils := range values {
		if len(valueUtils) == 0 {
			return nil, fmt.Errorf("issue %q has no values", issue)
		}
		vu := make(map[string]float64, len(valueUtils))
		for value, u := range valueUtils {
			if u < 0 || u > 1 {
				return nil, fmt.Errorf("issue %q value %q utility %v outside [0,1]", issue, value, u)
			}
			vu[value] = u
		}
		vals[issue] = vu
	}

	return &LinearAdditive{weights: normalized, values: vals}, nil
}

// Utility returns the agent's utility for a bid. Values the profile does
// not know contribute zero for their issue.
func (p *LinearAdditive) Utility(bid negotiation.Bid) float64 {
	u := 0.0
	for issue, weight := range p.weights {
		if valueUtils, ok := p.values[issue]; ok {
			u += weight * valueUtils[bid[issue]]
		}
	}
	if u < 0 {
		return 0
	}
	if u > 1 {
		return 1
	}
	return u
}

// fileIssue is the on-disk representation of one issue.
type fileIssue struct {
	Name   string             `json:"name"`
	Weight float64            `json:"weight"`
	Values map[string]float64 `json:"values"`
}

// fileProfile is the on-disk representation of a profile.
type fileProfile struct {
	Issues []fileIssue `json:"issues"`
}

// Load reads a profile JSON file and returns the profile together with
// the negotiation domain it spans.
func Load(path string) (*LinearAdditive, *negotiation.Domain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read profile: %w", err)
	}

	var fp fileProfile
	if err := json.Unmarshal(data, &fp); err != nil {
		return nil, nil, fmt.Errorf("parse profile: %w", err)
	}

	weights := make(map[string]float64, len(fp.Issues))
	values := make(map[string]map[string]float64, len(fp.Issues))
	domain := &negotiation.Domain{}

	for _, issue := range fp.Issues {
		weights[issue.Name] = issue.Weight
		values[issue.Name] = issue.Values

		valueNames := make([]string, 0, len(issue.Values))
		for value := range issue.Values {
			valueNames = append(valueNames, value)
		}
		domain.Issues = append(domain.Issues, negotiation.Issue{
			Name:   issue.Name,
			Values: valueNames,
		})
	}

	p, err := New(weights, values)
	if err != nil {
		return nil, nil, err
	}
	if err := domain.Validate(); err != nil {
		return nil, nil, err
	}
	return p, domain, nil
}

package negotiation

import (
	"sort"
	"strings"
)

// Bid is one complete assignment of values to negotiation issues.
// Bids are compared by content only, never by structural similarity;
// all comparisons between bids go through derived utilities.
type Bid map[string]string

// Key returns a canonical string form of the bid, usable as a map key.
// Issues are emitted in sorted order so two bids with equal content
// always produce the same key.
func (b Bid) Key() string {
	issues := make([]string, 0, len(b))
	for issue := range b {
		issues = append(issues, issue)
	}
	sort.Strings(issues)

	var sb strings.Builder
	sb.Grow(len(b) * 16)
	for _, issue := range issues {
		sb.WriteString(issue)
		sb.WriteByte('=')
		sb.WriteString(b[issue])
		sb.WriteByte(';')
	}
	return sb.String()
}

// Equal reports whether two bids assign the same value to every issue.
func (b Bid) Equal(other Bid) bool {
	if len(b) != len(other) {
		return false
	}
	for issue, value := range b {
		if other[issue] != value {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the bid.
func (b Bid) Clone() Bid {
	if b == nil {
		return nil
	}
	out := make(Bid, len(b))
	for issue, value := range b {
		out[issue] = value
	}
	return out
}

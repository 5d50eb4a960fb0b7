package negotiation

// ActionKind indicates which of the two turn decisions was taken.
type ActionKind string

const (
	// ActionAccept accepts the counterpart's last offer.
	ActionAccept ActionKind = "accept"

	// ActionOffer proposes a new bid to the counterpart.
	ActionOffer ActionKind = "offer"
)

// Action is the agent's decision for one turn. Exactly one action is
// emitted per YourTurn event.
type Action struct {
	Kind ActionKind
	Bid  Bid
}

// NewAccept builds an accept action for the given received bid.
func NewAccept(bid Bid) Action {
	return Action{Kind: ActionAccept, Bid: bid}
}

// NewOffer builds an offer action proposing the given bid.
func NewOffer(bid Bid) Action {
	return Action{Kind: ActionOffer, Bid: bid}
}

package domain

// CanBeat reports whether defense may legally be laid on top of attack.
//
// A spade can only be answered by a higher spade; trump never covers it.
// Otherwise a higher card of the same suit beats, and a trump beats any card
// of another suit.
func CanBeat(attack, defense Card, trump Suit) bool {
	if attack.Suit == Spades {
		return defense.Suit == Spades && defense.Rank > attack.Rank
	}
	if defense.Suit == attack.Suit {
		return defense.Rank > attack.Rank
	}
	return defense.Suit == trump && attack.Suit != trump
}

// BeatingCards returns the cards of hand that can beat attack, in hand order.
func BeatingCards(hand []Card, attack Card, trump Suit) []Card {
	var out []Card
	for _, c := range hand {
		if CanBeat(attack, c, trump) {
			out = append(out, c)
		}
	}
	return out
}

// PlacementRule decides whether card may be laid on a stage-1 pile whose
// top card is top.
type PlacementRule interface {
	CanPlace(card, top Card) bool
}

// PlacementFunc adapts a plain function to PlacementRule.
type PlacementFunc func(card, top Card) bool

// CanPlace implements PlacementRule.
func (f PlacementFunc) CanPlace(card, top Card) bool { return f(card, top) }

// NextRankRule accepts a card exactly one rank above the pile top, ignoring
// suit. A two goes on an ace.
type NextRankRule struct{}

// CanPlace implements PlacementRule.
func (NextRankRule) CanPlace(card, top Card) bool {
	if top.Rank == Ace {
		return card.Rank == Two
	}
	return card.Rank == top.Rank+1
}

// TrumpSelector fixes the trump suit at the stage 1 -> 2 transition given
// every card revealed from the deck during stage 1, oldest first.
type TrumpSelector interface {
	SelectTrump(revealed []Card) Suit
}

// TrumpFunc adapts a plain function to TrumpSelector.
type TrumpFunc func(revealed []Card) Suit

// SelectTrump implements TrumpSelector.
func (f TrumpFunc) SelectTrump(revealed []Card) Suit { return f(revealed) }

// LastRevealedTrump picks the suit of the most recently revealed non-spade
// card, falling back to Hearts.
type LastRevealedTrump struct{}

// SelectTrump implements TrumpSelector.
func (LastRevealedTrump) SelectTrump(revealed []Card) Suit {
	for i := len(revealed) - 1; i >= 0; i-- {
		if revealed[i].Suit != Spades {
			return revealed[i].Suit
		}
	}
	return Hearts
}

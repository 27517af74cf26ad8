package domain

import (
	"math/rand"
	"sort"

	"github.com/google/uuid"
)

// DeckSize is the number of cards in play for the whole game.
const DeckSize = 52

// NewDeck returns a sorted, face-down 52-card deck. Every card gets a fresh
// token so that duplicates of rank and suit can never be confused.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for r := Two; r <= Ace; r++ {
			deck = append(deck, Card{ID: uuid.NewString(), Rank: r, Suit: s})
		}
	}
	return deck
}

// ShuffleDeck returns a shuffled copy of the given deck.
func ShuffleDeck(deck []Card, rng *rand.Rand) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// SortHand orders cards by ascending rank, then suit. Hands keep their deal
// order in play; this is only used for stable listings.
func SortHand(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		return cardPower(cards[i]) < cardPower(cards[j])
	})
}

func cardPower(c Card) int {
	return int(c.Rank)*4 + int(c.Suit)
}

// IndexOfCard returns the position of the card with the given token, or -1.
func IndexOfCard(cards []Card, id string) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// RemoveCard removes the card with the given token and returns it along with
// the updated slice. The input slice is not modified.
func RemoveCard(cards []Card, id string) (Card, []Card, bool) {
	idx := IndexOfCard(cards, id)
	if idx < 0 {
		return Card{}, cards, false
	}
	removed := cards[idx]
	out := make([]Card, 0, len(cards)-1)
	out = append(out, cards[:idx]...)
	out = append(out, cards[idx+1:]...)
	return removed, out, true
}

func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}

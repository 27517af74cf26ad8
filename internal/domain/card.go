package domain

import "fmt"

// Suit is one of the four French suits.
type Suit int8

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// Suits lists every suit in deck order.
var Suits = [...]Suit{Spades, Hearts, Diamonds, Clubs}

func (s Suit) String() string {
	switch s {
	case Spades:
		return "spades"
	case Hearts:
		return "hearts"
	case Diamonds:
		return "diamonds"
	case Clubs:
		return "clubs"
	default:
		return fmt.Sprintf("suit(%d)", int8(s))
	}
}

// Symbol returns the single-glyph suit marker used in card labels.
func (s Suit) Symbol() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// ParseSuit maps the lowercase suit name back to a Suit.
func ParseSuit(name string) (Suit, error) {
	for _, s := range Suits {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown suit %q", name)
}

// Rank orders 2 < 3 < ... < 10 < J < Q < K < A.
type Rank int8

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

func (r Rank) String() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		if r >= Two && r <= Ten {
			return fmt.Sprintf("%d", int8(r))
		}
		return fmt.Sprintf("rank(%d)", int8(r))
	}
}

// Valid reports whether r is inside 2..A.
func (r Rank) Valid() bool {
	return r >= Two && r <= Ace
}

// Card is a single playing card. Rank and Suit never change after the deal;
// FaceUp flips when the card leaves a stock pile or the deck.
type Card struct {
	ID     string `json:"id"`
	Rank   Rank   `json:"rank"`
	Suit   Suit   `json:"suit"`
	FaceUp bool   `json:"face_up"`
}

// String renders the card as rank plus suit glyph, e.g. "10♥".
func (c Card) String() string {
	return c.Rank.String() + c.Suit.Symbol()
}

// SameFace reports whether two cards carry the same rank and suit.
func (c Card) SameFace(o Card) bool {
	return c.Rank == o.Rank && c.Suit == o.Suit
}

func (c Card) opened() Card {
	c.FaceUp = true
	return c
}

func (c Card) closed() Card {
	c.FaceUp = false
	return c
}

package domain

import (
	"testing"
)

func TestCanBeat(t *testing.T) {
	tests := []struct {
		name    string
		attack  Card
		defense Card
		trump   Suit
		want    bool
	}{
		{name: "higher same suit", attack: card("a", Seven, Diamonds), defense: card("d", Nine, Diamonds), trump: Hearts, want: true},
		{name: "lower same suit", attack: card("a", Nine, Diamonds), defense: card("d", Seven, Diamonds), trump: Hearts, want: false},
		{name: "equal rank same suit", attack: card("a", Nine, Clubs), defense: card("d", Nine, Clubs), trump: Hearts, want: false},
		{name: "trump over plain", attack: card("a", Ace, Clubs), defense: card("d", Two, Hearts), trump: Hearts, want: true},
		{name: "plain off suit", attack: card("a", Two, Clubs), defense: card("d", Ace, Diamonds), trump: Hearts, want: false},
		{name: "higher trump over trump", attack: card("a", Five, Hearts), defense: card("d", Six, Hearts), trump: Hearts, want: true},
		{name: "plain never beats trump", attack: card("a", Two, Hearts), defense: card("d", Ace, Clubs), trump: Hearts, want: false},
		{name: "spade needs higher spade", attack: card("a", Five, Spades), defense: card("d", Six, Spades), trump: Hearts, want: true},
		{name: "trump cannot cover spade", attack: card("a", Five, Spades), defense: card("d", Ace, Hearts), trump: Hearts, want: false},
		{name: "lower spade", attack: card("a", Queen, Spades), defense: card("d", Jack, Spades), trump: Diamonds, want: false},
		{name: "spade on plain without spade trump", attack: card("a", Three, Clubs), defense: card("d", Ace, Spades), trump: Hearts, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanBeat(tt.attack, tt.defense, tt.trump); got != tt.want {
				t.Fatalf("CanBeat(%s, %s, %s) = %v, want %v", tt.attack, tt.defense, tt.trump, got, tt.want)
			}
		})
	}
}

func TestBeatingCards(t *testing.T) {
	hand := []Card{card("1", Three, Diamonds), card("2", Ten, Diamonds), card("3", Four, Hearts), card("4", King, Spades)}
	got := BeatingCards(hand, card("a", Eight, Diamonds), Hearts)
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "3" {
		t.Fatalf("BeatingCards() = %v, want [10♦ 4♥]", got)
	}
}

func TestNextRankRule(t *testing.T) {
	rule := NextRankRule{}
	tests := []struct {
		name string
		card Card
		top  Card
		want bool
	}{
		{name: "one above", card: card("c", Eight, Clubs), top: card("t", Seven, Hearts), want: true},
		{name: "same rank", card: card("c", Seven, Clubs), top: card("t", Seven, Hearts), want: false},
		{name: "two above", card: card("c", Nine, Clubs), top: card("t", Seven, Hearts), want: false},
		{name: "one below", card: card("c", Six, Clubs), top: card("t", Seven, Hearts), want: false},
		{name: "two on ace", card: card("c", Two, Spades), top: card("t", Ace, Hearts), want: true},
		{name: "ace on king", card: card("c", Ace, Spades), top: card("t", King, Diamonds), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.CanPlace(tt.card, tt.top); got != tt.want {
				t.Fatalf("CanPlace(%s, %s) = %v, want %v", tt.card, tt.top, got, tt.want)
			}
		})
	}
}

func TestLastRevealedTrump(t *testing.T) {
	tests := []struct {
		name     string
		revealed []Card
		want     Suit
	}{
		{name: "nothing revealed", want: Hearts},
		{name: "only spades", revealed: []Card{card("1", Two, Spades), card("2", Ace, Spades)}, want: Hearts},
		{name: "last non spade", revealed: []Card{card("1", Two, Clubs), card("2", Four, Diamonds), card("3", Ace, Spades)}, want: Diamonds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (LastRevealedTrump{}).SelectTrump(tt.revealed); got != tt.want {
				t.Fatalf("SelectTrump() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewDeck(t *testing.T) {
	deck := NewDeck()
	if len(deck) != DeckSize {
		t.Fatalf("deck size = %d, want %d", len(deck), DeckSize)
	}

	ids := make(map[string]bool)
	faces := make(map[string]bool)
	for _, c := range deck {
		if c.FaceUp {
			t.Fatalf("card %s dealt face up", c)
		}
		if ids[c.ID] {
			t.Fatalf("duplicate token %s", c.ID)
		}
		ids[c.ID] = true
		if faces[c.String()] {
			t.Fatalf("duplicate card %s", c)
		}
		faces[c.String()] = true
	}
}

func TestRemoveCardLeavesInputIntact(t *testing.T) {
	cards := []Card{card("1", Two, Clubs), card("2", Three, Clubs), card("3", Four, Clubs)}
	removed, rest, ok := RemoveCard(cards, "2")
	if !ok || removed.ID != "2" {
		t.Fatalf("RemoveCard() = %v, %v", removed, ok)
	}
	if len(rest) != 2 || rest[0].ID != "1" || rest[1].ID != "3" {
		t.Fatalf("rest = %v", rest)
	}
	if cards[1].ID != "2" {
		t.Fatalf("input mutated: %v", cards)
	}
	if _, _, ok := RemoveCard(cards, "missing"); ok {
		t.Fatalf("RemoveCard(missing) reported success")
	}
}

func TestParseSuit(t *testing.T) {
	for _, s := range Suits {
		got, err := ParseSuit(s.String())
		if err != nil || got != s {
			t.Fatalf("ParseSuit(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseSuit("stars"); err == nil {
		t.Fatalf("expected error for unknown suit")
	}
}

package domain

import "time"

// Stage is the rule set a player is currently playing under.
type Stage int

const (
	// StagePlacement is stage 1: drawing from the deck and placing cards on
	// piles.
	StagePlacement Stage = 1
	// StageBeat is stage 2: beat-or-take tricks with a fixed trump.
	StageBeat Stage = 2
	// StageStock is stage 3: same rules as stage 2, entered per player once
	// the stock pile has been promoted into the hand.
	StageStock Stage = 3
)

// Phase is the sub-phase of the current turn.
type Phase string

const (
	PhaseAnalyzingHand     Phase = "analyzing_hand"
	PhaseWaitingDeckAction Phase = "waiting_deck_action"
	// PhaseShowingDeckHint is the renderer-side animation between a draw
	// request and the reveal. The engine passes through it atomically and
	// never stores it.
	PhaseShowingDeckHint        Phase = "showing_deck_hint"
	PhaseDeckCardRevealed       Phase = "deck_card_revealed"
	PhaseWaitingTargetSelection Phase = "waiting_target_selection"

	PhaseSelectingCard Phase = "selecting_card"
	PhaseWaitingBeat   Phase = "waiting_beat"

	PhaseFinished Phase = "finished"
)

// Difficulty is the AI tier of a bot seat.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty maps a config string to a Difficulty, defaulting to medium.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s)
	default:
		return DifficultyMedium
	}
}

// DeclarationStatus is the per-player state of the one-card mini-game.
type DeclarationStatus string

const (
	DeclarationNormal DeclarationStatus = "normal"
	// DeclarationAtRisk: exactly one open card, deadline still running.
	DeclarationAtRisk DeclarationStatus = "at_risk"
	// DeclarationExposed: deadline passed without a declaration; the player
	// can now be caught.
	DeclarationExposed  DeclarationStatus = "exposed"
	DeclarationDeclared DeclarationStatus = "declared"
	DeclarationCaught   DeclarationStatus = "caught"
)

// Declaration is the record kept for a player holding a single open card.
// Generation changes every time a new obligation starts, so a timer armed
// for an older obligation can recognise itself as stale.
type Declaration struct {
	Status     DeclarationStatus
	Deadline   time.Time
	Generation uint64
}

// Player is one seat at the table.
type Player struct {
	ID         string
	Seat       int
	Hand       []Card
	Stock      []Card
	IsBot      bool
	Difficulty Difficulty
	Stage      Stage
	Finished   bool

	Declaration Declaration
}

// Top returns the last card of the hand, the one the player acts with in
// stage 1 and the one opponents may build on.
func (p *Player) Top() (Card, bool) {
	if len(p.Hand) == 0 {
		return Card{}, false
	}
	return p.Hand[len(p.Hand)-1], true
}

// CardsLeft counts hand and stock cards.
func (p *Player) CardsLeft() int {
	return len(p.Hand) + len(p.Stock)
}

// PlayerSpec describes a seat to create at game start.
type PlayerSpec struct {
	ID         string
	IsBot      bool
	Difficulty Difficulty
}

// PenaltyContribution is a card handed over while settling a penalty.
type PenaltyContribution struct {
	PlayerID string
	Card     Card
}

// PendingPenalty is the settlement opened by a successful catch.
type PendingPenalty struct {
	AccuserID string
	AccusedID string
	// Needed lists contributors in seat order; Contributed records who has
	// already paid.
	Needed      []string
	Contributed map[string]bool
	Pile        []PenaltyContribution
}

// Owes reports whether playerID still has to hand over a card.
func (pp *PendingPenalty) Owes(playerID string) bool {
	if pp == nil {
		return false
	}
	for _, id := range pp.Needed {
		if id == playerID {
			return !pp.Contributed[playerID]
		}
	}
	return false
}

// Outstanding lists contributors that have not paid yet, in seat order.
func (pp *PendingPenalty) Outstanding() []string {
	var out []string
	for _, id := range pp.Needed {
		if !pp.Contributed[id] {
			out = append(out, id)
		}
	}
	return out
}

// TableStack is the unresolved trick. Only a take ever clears it.
type TableStack struct {
	cards []Card
}

// Len returns the number of cards on the table.
func (t *TableStack) Len() int { return len(t.cards) }

// Top returns the card that the next defence must beat.
func (t *TableStack) Top() (Card, bool) {
	if len(t.cards) == 0 {
		return Card{}, false
	}
	return t.cards[len(t.cards)-1], true
}

// Cards returns a copy of the stack, bottom first.
func (t *TableStack) Cards() []Card { return cloneCards(t.cards) }

func (t *TableStack) push(c Card) { t.cards = append(t.cards, c) }

func (t *TableStack) drain() []Card {
	out := t.cards
	t.cards = nil
	return out
}

// NewTableStack rebuilds a table from saved cards, bottom first.
func NewTableStack(cards ...Card) TableStack {
	return TableStack{cards: cloneCards(cards)}
}

package bot

import (
	"pidr/internal/domain"
)

// DecisionContext holds the state for one pass through the decision
// pipeline.
type DecisionContext struct {
	Snap    domain.Snapshot
	Self    domain.PlayerView
	Action  Action
	Decided bool
}

func (ctx *DecisionContext) decide(a Action) {
	ctx.Action = a
	ctx.Decided = true
}

// active reports whether the deciding player holds the turn.
func (ctx *DecisionContext) active() bool {
	return ctx.Snap.ActivePlayerID == ctx.Self.ID && ctx.Snap.Penalty == nil
}

// DecisionRule represents a logic unit that may settle the decision. Rules
// run in order; the first one to decide wins.
type DecisionRule interface {
	Name() string
	Apply(ctx *DecisionContext)
}

// cardPicker selects one card out of a non-empty candidate list.
type cardPicker func(cards []domain.Card) domain.Card

// targetPicker selects one player id out of a non-empty list.
type targetPicker func(ids []string) string

func runPipeline(snap domain.Snapshot, playerID string, rules []DecisionRule) (Action, error) {
	self, ok := snap.Player(playerID)
	if !ok || snap.Over || self.Finished {
		return Pass(), nil
	}
	ctx := &DecisionContext{Snap: snap, Self: self, Action: Pass()}
	for _, rule := range rules {
		rule.Apply(ctx)
		if ctx.Decided {
			break
		}
	}
	return ctx.Action, nil
}

// PenaltyRule hands over a card while the player owes one.
type PenaltyRule struct {
	Pick cardPicker
}

func (r *PenaltyRule) Name() string { return "Penalty" }

func (r *PenaltyRule) Apply(ctx *DecisionContext) {
	pp := ctx.Snap.Penalty
	if pp == nil || len(ctx.Self.Hand) == 0 {
		return
	}
	for _, id := range pp.Outstanding {
		if id == ctx.Self.ID {
			ctx.decide(PlayCard(r.Pick(ctx.Self.Hand).ID))
			return
		}
	}
}

// DeclareRule announces a single card while the deadline is running.
type DeclareRule struct{}

func (r *DeclareRule) Name() string { return "Declare" }

func (r *DeclareRule) Apply(ctx *DecisionContext) {
	if ctx.Self.Declaration == domain.DeclarationAtRisk {
		ctx.decide(Declare())
	}
}

// AccuseRule catches the first exposed opponent in seat order.
type AccuseRule struct{}

func (r *AccuseRule) Name() string { return "Accuse" }

func (r *AccuseRule) Apply(ctx *DecisionContext) {
	if ctx.Snap.Penalty != nil {
		return
	}
	for _, p := range ctx.Snap.Players {
		if p.ID != ctx.Self.ID && !p.Finished && p.Declaration == domain.DeclarationExposed {
			ctx.decide(Accuse(p.ID))
			return
		}
	}
}

// PlacementRule plays stage 1. Revealed decides what to do with a revealed
// deck card; the own top card always goes to an opponent when it fits.
type PlacementRule struct {
	Revealed     func(ctx *DecisionContext, card domain.Card, targets []string) Action
	PickOpponent targetPicker
}

func (r *PlacementRule) Name() string { return "Placement" }

func (r *PlacementRule) Apply(ctx *DecisionContext) {
	if !ctx.active() || ctx.Snap.Trump != nil {
		return
	}
	targets := ctx.Snap.PlacementTarget
	if ctx.Snap.Revealed != nil {
		ctx.decide(r.Revealed(ctx, *ctx.Snap.Revealed, targets))
		return
	}
	if len(targets) > 0 {
		ctx.decide(PlaceOnTarget(r.PickOpponent(targets)))
		return
	}
	ctx.decide(Draw())
}

// BeatRule plays stages 2 and 3. Lead picks the attack card; Answer picks
// among the cards that beat the table top. No beating card means Draw,
// which the caller applies as a take.
type BeatRule struct {
	Lead   func(hand []domain.Card, trump domain.Suit) domain.Card
	Answer cardPicker
}

func (r *BeatRule) Name() string { return "Beat" }

func (r *BeatRule) Apply(ctx *DecisionContext) {
	if !ctx.active() || ctx.Snap.Trump == nil || len(ctx.Self.Hand) == 0 {
		return
	}
	trump := *ctx.Snap.Trump
	top, ok := ctx.Snap.TableTop()
	if !ok {
		ctx.decide(PlayCard(r.Lead(ctx.Self.Hand, trump).ID))
		return
	}
	beats := domain.BeatingCards(ctx.Self.Hand, top, trump)
	if len(beats) == 0 {
		ctx.decide(Draw())
		return
	}
	ctx.decide(PlayCard(r.Answer(beats).ID))
}

func lowestCard(cards []domain.Card) domain.Card {
	best := cards[0]
	for _, c := range cards[1:] {
		if c.Rank < best.Rank {
			best = c
		}
	}
	return best
}

// lowestLead prefers the lowest non-trump card and falls back to the
// lowest trump.
func lowestLead(hand []domain.Card, trump domain.Suit) domain.Card {
	var plain []domain.Card
	for _, c := range hand {
		if c.Suit != trump {
			plain = append(plain, c)
		}
	}
	if len(plain) > 0 {
		return lowestCard(plain)
	}
	return lowestCard(hand)
}

func firstID(ids []string) string { return ids[0] }

func opponents(ids []string, self string) []string {
	var out []string
	for _, id := range ids {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

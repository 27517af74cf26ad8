package domain

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

const (
	MinPlayers = 3
	MaxPlayers = 9

	// StockSize is the number of face-down cards (penki) each player gets.
	StockSize = 2
	// OpeningHandSize is the number of face-up cards dealt to each hand.
	OpeningHandSize = 1

	DefaultDeclarationWindow = 5 * time.Second
)

// GameOptions carries the pluggable rules and the clock used for
// declaration deadlines. Zero values fall back to the defaults.
type GameOptions struct {
	Placement         PlacementRule
	Trump             TrumpSelector
	DeclarationWindow time.Duration
	Now               func() time.Time
}

func (o GameOptions) withDefaults() GameOptions {
	if o.Placement == nil {
		o.Placement = NextRankRule{}
	}
	if o.Trump == nil {
		o.Trump = LastRevealedTrump{}
	}
	if o.DeclarationWindow <= 0 {
		o.DeclarationWindow = DefaultDeclarationWindow
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Game is the authoritative state of one P.I.D.R. game. It is not safe for
// concurrent use; callers serialise access.
type Game struct {
	ID      string
	Players []*Player
	// Deck is face down except for a revealed top card; the top is the last
	// element.
	Deck        []Card
	TopRevealed bool
	Table       TableStack

	Phase    Phase
	ActiveID string
	Trump    Suit
	TrumpSet bool
	Penalty  *PendingPenalty

	// RevealedHistory lists every card revealed from the deck in stage 1.
	RevealedHistory []Card
	FinishOrder     []string
	Over            bool
	LoserID         string
	Version         uint64

	lastResolver string
	generation   uint64
	opts         GameOptions
}

// NewGame shuffles a fresh deck with rng and deals it: two face-down stock
// cards and one face-up hand card per player, the rest stays in the deck.
func NewGame(id string, specs []PlayerSpec, rng *rand.Rand, opts GameOptions) (*Game, error) {
	if len(specs) < MinPlayers {
		return nil, ErrTooFewPlayers
	}
	if len(specs) > MaxPlayers {
		return nil, ErrTooManyPlayers
	}
	if id == "" {
		id = uuid.NewString()
	}

	g := &Game{
		ID:   id,
		Deck: ShuffleDeck(NewDeck(), rng),
		opts: opts.withDefaults(),
	}

	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		pid := spec.ID
		if pid == "" {
			pid = fmt.Sprintf("seat-%d", i+1)
		}
		if seen[pid] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayer, pid)
		}
		seen[pid] = true

		difficulty := spec.Difficulty
		if spec.IsBot && difficulty == "" {
			difficulty = DifficultyMedium
		}
		g.Players = append(g.Players, &Player{
			ID:          pid,
			Seat:        i,
			IsBot:       spec.IsBot,
			Difficulty:  difficulty,
			Stage:       StagePlacement,
			Declaration: Declaration{Status: DeclarationNormal},
		})
	}

	for _, p := range g.Players {
		for i := 0; i < StockSize; i++ {
			p.Stock = append(p.Stock, g.popDeck().closed())
		}
	}
	for _, p := range g.Players {
		for i := 0; i < OpeningHandSize; i++ {
			p.Hand = append(p.Hand, g.popDeck().opened())
		}
	}

	g.ActiveID = g.Players[0].ID
	g.refreshPhase()
	return g, nil
}

// SetOptions replaces the rule plug-ins and clock, e.g. after restoring a
// saved game.
func (g *Game) SetOptions(opts GameOptions) {
	g.opts = opts.withDefaults()
}

// Reconcile recomputes derived state after a game was assembled by hand,
// e.g. when a saved table is restored: declaration records, the active
// seat, game over and the phase.
func (g *Game) Reconcile() {
	for _, p := range g.Players {
		g.syncDeclaration(p)
	}
	if !g.Over {
		g.ensureActive()
	}
	g.checkOver()
	g.refreshPhase()
}

// Player returns the seat with the given id, or nil.
func (g *Game) Player(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Revealed returns the face-up top deck card waiting to be resolved.
func (g *Game) Revealed() (Card, bool) {
	if !g.TopRevealed || len(g.Deck) == 0 {
		return Card{}, false
	}
	return g.Deck[len(g.Deck)-1], true
}

// InPlacementStage reports whether the game is still in stage 1.
func (g *Game) InPlacementStage() bool { return !g.TrumpSet }

// MinStage and MaxStage summarise the per-player stages of players still
// holding cards.
func (g *Game) MinStage() Stage { return g.stageBound(false) }

func (g *Game) MaxStage() Stage { return g.stageBound(true) }

func (g *Game) stageBound(highest bool) Stage {
	var out Stage
	for _, p := range g.Players {
		if p.Finished {
			continue
		}
		if out == 0 || (highest && p.Stage > out) || (!highest && p.Stage < out) {
			out = p.Stage
		}
	}
	if out == 0 {
		return StageStock
	}
	return out
}

// CardCount totals every card in the game. It is DeckSize in every
// reachable state.
func (g *Game) CardCount() int {
	n := len(g.Deck) + g.Table.Len()
	for _, p := range g.Players {
		n += len(p.Hand) + len(p.Stock)
	}
	if g.Penalty != nil {
		n += len(g.Penalty.Pile)
	}
	return n
}

// Now returns the game clock reading.
func (g *Game) Now() time.Time { return g.opts.Now() }

// ----- stages 2-3: beat or take -----

// Attack opens a trick with a card from the active player's hand.
func (g *Game) Attack(playerID, cardID string) error {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return err
	}
	if !g.TrumpSet {
		return illegal(ErrWrongStage)
	}
	if g.Table.Len() > 0 {
		return illegal(ErrTableNotEmpty)
	}
	card, hand, ok := RemoveCard(p.Hand, cardID)
	if !ok {
		return g.cardError(p, cardID)
	}

	p.Hand = hand
	g.Table.push(card.opened())
	g.settle(p)
	g.passTurn(p.ID)
	g.commit()
	return nil
}

// Defend lays a card that beats the table top; the next seat must answer it.
func (g *Game) Defend(playerID, cardID string) error {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return err
	}
	if !g.TrumpSet {
		return illegal(ErrWrongStage)
	}
	top, ok := g.Table.Top()
	if !ok {
		return illegal(ErrTableEmpty)
	}
	idx := IndexOfCard(p.Hand, cardID)
	if idx < 0 {
		return g.cardError(p, cardID)
	}
	if !CanBeat(top, p.Hand[idx], g.Trump) {
		return illegal(ErrDoesNotBeat)
	}

	card, hand, _ := RemoveCard(p.Hand, cardID)
	p.Hand = hand
	g.Table.push(card.opened())
	g.settle(p)
	g.passTurn(p.ID)
	g.commit()
	return nil
}

// Take moves the whole trick into the active player's hand. The next seat
// starts a new trick.
func (g *Game) Take(playerID string) error {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return err
	}
	if !g.TrumpSet {
		return illegal(ErrWrongStage)
	}
	if g.Table.Len() == 0 {
		return illegal(ErrTableEmpty)
	}

	for _, c := range g.Table.drain() {
		p.Hand = append(p.Hand, c.opened())
	}
	g.settle(p)
	g.passTurn(p.ID)
	g.commit()
	return nil
}

// ----- stage 1: placement -----

// PlaceOnTarget lays a card on the target's pile. With a revealed deck card
// that card is placed and any pile, own included, may be targeted;
// otherwise the player's own top card goes onto an opponent. The player
// keeps the turn.
func (g *Game) PlaceOnTarget(playerID, targetID string) error {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return err
	}
	if g.TrumpSet {
		return illegal(ErrWrongStage)
	}
	target := g.Player(targetID)
	if target == nil {
		return invalidTarget(ErrUnknownPlayer)
	}
	top, ok := target.Top()
	if !ok {
		return illegal(ErrPlacementRejected)
	}

	if revealed, ok := g.Revealed(); ok {
		if !g.opts.Placement.CanPlace(revealed, top) {
			return illegal(ErrPlacementRejected)
		}
		g.popDeck()
		target.Hand = append(target.Hand, revealed.opened())
		g.lastResolver = p.ID
		g.settle(target)
		g.maybeEndPlacement()
		g.commit()
		return nil
	}

	if target.ID == p.ID {
		return illegal(ErrSelfTarget)
	}
	card, ok := p.Top()
	if !ok {
		return illegal(ErrNoCardToPlace)
	}
	if !g.opts.Placement.CanPlace(card, top) {
		return illegal(ErrPlacementRejected)
	}

	p.Hand = p.Hand[:len(p.Hand)-1]
	target.Hand = append(target.Hand, card.opened())
	g.settle(p)
	g.settle(target)
	g.maybeEndPlacement()
	g.commit()
	return nil
}

// Draw reveals the top deck card. When a card is already revealed, Draw
// keeps it in the player's own hand and ends the turn. With an empty deck,
// Draw ends stage 1.
func (g *Game) Draw(playerID string) error {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return err
	}
	if g.TrumpSet {
		return illegal(ErrWrongStage)
	}

	if revealed, ok := g.Revealed(); ok {
		g.popDeck()
		p.Hand = append(p.Hand, revealed.opened())
		g.lastResolver = p.ID
		g.settle(p)
		g.passTurn(p.ID)
		g.maybeEndPlacement()
		g.commit()
		return nil
	}

	if len(g.Deck) == 0 {
		g.beginBeatStage()
		g.commit()
		return nil
	}

	top := len(g.Deck) - 1
	g.Deck[top] = g.Deck[top].opened()
	g.TopRevealed = true
	g.RevealedHistory = append(g.RevealedHistory, g.Deck[top])
	g.commit()
	return nil
}

// PlacementTargets lists the players whose pile accepts the card the active
// player would place now: the revealed deck card if any, else the active
// player's own top card.
func (g *Game) PlacementTargets() []string {
	if revealed, ok := g.Revealed(); ok {
		return g.targetsFor(revealed, "")
	}
	p := g.Player(g.ActiveID)
	if p == nil {
		return nil
	}
	card, ok := p.Top()
	if !ok {
		return nil
	}
	return g.targetsFor(card, p.ID)
}

func (g *Game) targetsFor(card Card, exclude string) []string {
	var out []string
	for _, q := range g.Players {
		if q.Finished || q.ID == exclude {
			continue
		}
		top, ok := q.Top()
		if ok && g.opts.Placement.CanPlace(card, top) {
			out = append(out, q.ID)
		}
	}
	return out
}

func (g *Game) maybeEndPlacement() {
	if g.TrumpSet || len(g.Deck) > 0 {
		return
	}
	if len(g.PlacementTargets()) > 0 {
		return
	}
	g.beginBeatStage()
}

func (g *Game) beginBeatStage() {
	g.Trump = g.opts.Trump.SelectTrump(g.RevealedHistory)
	g.TrumpSet = true
	g.TopRevealed = false
	for _, p := range g.Players {
		if !p.Finished {
			p.Stage = StageBeat
		}
	}
	if g.lastResolver != "" {
		g.ActiveID = g.lastResolver
	}
	for _, p := range g.Players {
		g.settle(p)
	}
	g.ensureActive()
}

// ----- declarations and penalties -----

// DeclareOneCard announces a single remaining card before the deadline.
func (g *Game) DeclareOneCard(playerID string) error {
	p := g.Player(playerID)
	if p == nil {
		return invalidTarget(ErrUnknownPlayer)
	}
	if g.Over {
		return illegal(ErrGameOver)
	}
	if p.Finished {
		return illegal(ErrPlayerFinished)
	}

	switch p.Declaration.Status {
	case DeclarationAtRisk:
		if !g.opts.Now().Before(p.Declaration.Deadline) {
			return illegal(ErrDeclarationLate)
		}
	case DeclarationExposed:
		return illegal(ErrDeclarationLate)
	case DeclarationDeclared:
		return illegal(ErrAlreadyDeclared)
	case DeclarationCaught:
		return illegal(ErrPenaltyPending)
	default:
		return illegal(ErrNotOneCard)
	}

	p.Declaration.Status = DeclarationDeclared
	g.commit()
	return nil
}

// ExpireDeclaration marks an undeclared single card as catchable once its
// deadline has passed. It is a no-op unless the record is still the
// at-risk obligation of the given generation.
func (g *Game) ExpireDeclaration(playerID string, generation uint64) bool {
	p := g.Player(playerID)
	if p == nil {
		return false
	}
	d := &p.Declaration
	if d.Status != DeclarationAtRisk || d.Generation != generation || g.opts.Now().Before(d.Deadline) {
		return false
	}
	d.Status = DeclarationExposed
	g.commit()
	return true
}

// AskHowManyCards catches a player who let the declaration deadline pass.
// Every other player still holding an open card owes one card to the
// accused.
func (g *Game) AskHowManyCards(accuserID, accusedID string) error {
	accuser := g.Player(accuserID)
	accused := g.Player(accusedID)
	if accuser == nil || accused == nil {
		return invalidTarget(ErrUnknownPlayer)
	}
	if g.Over {
		return illegal(ErrGameOver)
	}
	if accuserID == accusedID {
		return illegal(ErrSelfAccusation)
	}
	if accuser.Finished {
		return illegal(ErrPlayerFinished)
	}
	if g.Penalty != nil {
		return illegal(ErrPenaltyPending)
	}

	d := accused.Declaration
	switch d.Status {
	case DeclarationExposed:
	case DeclarationAtRisk:
		if g.opts.Now().Before(d.Deadline) {
			return illegal(ErrGraceWindow)
		}
	case DeclarationDeclared:
		return illegal(ErrAlreadyDeclared)
	default:
		return illegal(ErrNotOneCard)
	}

	pp := &PendingPenalty{
		AccuserID:   accuserID,
		AccusedID:   accusedID,
		Contributed: make(map[string]bool),
	}
	for _, q := range g.Players {
		if q.ID == accusedID || q.Finished || len(q.Hand) == 0 {
			continue
		}
		pp.Needed = append(pp.Needed, q.ID)
	}
	accused.Declaration.Status = DeclarationCaught
	g.Penalty = pp
	if len(pp.Needed) == 0 {
		g.resolvePenalty()
	}
	g.commit()
	return nil
}

// ContributePenaltyCard hands one face-up card from playerID's hand to the
// penalty pile. The pile goes to the accused once everybody has paid.
func (g *Game) ContributePenaltyCard(playerID, cardID string) error {
	p := g.Player(playerID)
	if p == nil {
		return invalidTarget(ErrUnknownPlayer)
	}
	if g.Penalty == nil {
		return illegal(ErrNoPenalty)
	}
	if !g.Penalty.Owes(playerID) {
		return illegal(ErrNotContributor)
	}
	card, hand, ok := RemoveCard(p.Hand, cardID)
	if !ok {
		return g.cardError(p, cardID)
	}

	p.Hand = hand
	g.Penalty.Pile = append(g.Penalty.Pile, PenaltyContribution{PlayerID: playerID, Card: card.opened()})
	g.Penalty.Contributed[playerID] = true
	g.settle(p)
	if len(g.Penalty.Outstanding()) == 0 {
		g.resolvePenalty()
	}
	g.commit()
	return nil
}

// CancelPenalty voids the pending accusation. Contributed cards go back to
// their owners and the accused is treated as having declared.
func (g *Game) CancelPenalty() error {
	if g.Penalty == nil {
		return illegal(ErrNoPenalty)
	}
	pp := g.Penalty
	g.Penalty = nil

	for _, c := range pp.Pile {
		q := g.Player(c.PlayerID)
		if q == nil {
			continue
		}
		if q.Finished {
			q.Finished = false
			g.FinishOrder = removeID(g.FinishOrder, q.ID)
		}
		q.Hand = append(q.Hand, c.Card)
		g.settle(q)
	}
	if accused := g.Player(pp.AccusedID); accused != nil {
		accused.Declaration.Status = DeclarationDeclared
	}
	g.ensureActive()
	g.commit()
	return nil
}

func (g *Game) resolvePenalty() {
	pp := g.Penalty
	g.Penalty = nil
	accused := g.Player(pp.AccusedID)
	if accused == nil {
		return
	}
	for _, c := range pp.Pile {
		accused.Hand = append(accused.Hand, c.Card.opened())
	}
	accused.Declaration.Status = DeclarationNormal
	g.settle(accused)
	g.ensureActive()
}

// ----- bookkeeping -----

func (g *Game) requireTurn(playerID string) (*Player, error) {
	p := g.Player(playerID)
	if p == nil {
		return nil, invalidTarget(ErrUnknownPlayer)
	}
	if g.Over {
		return nil, illegal(ErrGameOver)
	}
	if g.Penalty != nil {
		return nil, illegal(ErrPenaltyPending)
	}
	if p.Finished {
		return nil, illegal(ErrPlayerFinished)
	}
	if g.ActiveID != playerID {
		return nil, illegal(ErrNotYourTurn)
	}
	return p, nil
}

func (g *Game) cardError(p *Player, cardID string) error {
	if IndexOfCard(p.Stock, cardID) >= 0 {
		return illegal(ErrFaceDown)
	}
	return invalidTarget(ErrUnknownCard)
}

func (g *Game) popDeck() Card {
	top := len(g.Deck) - 1
	c := g.Deck[top]
	g.Deck = g.Deck[:top]
	g.TopRevealed = false
	return c
}

// settle applies the consequences of a hand change: stock promotion, a win,
// and the one-card declaration record.
func (g *Game) settle(p *Player) {
	if p.Finished {
		return
	}
	if len(p.Hand) == 0 && p.Stage >= StageBeat {
		if len(p.Stock) > 0 {
			for _, c := range p.Stock {
				p.Hand = append(p.Hand, c.opened())
			}
			p.Stock = nil
			p.Stage = StageStock
		} else {
			p.Finished = true
			g.FinishOrder = append(g.FinishOrder, p.ID)
		}
	}
	g.syncDeclaration(p)
}

func (g *Game) syncDeclaration(p *Player) {
	d := &p.Declaration
	if d.Status == DeclarationCaught {
		return
	}
	if p.Finished || p.Stage < StageBeat || len(p.Hand) != 1 {
		d.Status = DeclarationNormal
		d.Deadline = time.Time{}
		return
	}
	if d.Status == DeclarationNormal {
		g.generation++
		*d = Declaration{
			Status:     DeclarationAtRisk,
			Deadline:   g.opts.Now().Add(g.opts.DeclarationWindow),
			Generation: g.generation,
		}
	}
}

func (g *Game) passTurn(fromID string) {
	g.ActiveID = g.nextAfter(fromID)
}

func (g *Game) ensureActive() {
	if p := g.Player(g.ActiveID); p == nil || p.Finished {
		g.ActiveID = g.nextAfter(g.ActiveID)
	}
}

// nextAfter returns the next seat after fromID still holding cards.
func (g *Game) nextAfter(fromID string) string {
	start := 0
	for i, p := range g.Players {
		if p.ID == fromID {
			start = i
			break
		}
	}
	n := len(g.Players)
	for step := 1; step <= n; step++ {
		q := g.Players[(start+step)%n]
		if !q.Finished {
			return q.ID
		}
	}
	return ""
}

func (g *Game) checkOver() {
	if g.Over || g.Penalty != nil {
		return
	}
	var remaining []*Player
	for _, p := range g.Players {
		if !p.Finished {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) > 1 {
		return
	}
	g.Over = true
	if len(remaining) == 1 {
		g.LoserID = remaining[0].ID
	}
	g.ActiveID = ""
}

func (g *Game) refreshPhase() {
	switch {
	case g.Over:
		g.Phase = PhaseFinished
	case !g.TrumpSet:
		if revealed, ok := g.Revealed(); ok {
			if len(g.targetsFor(revealed, "")) > 0 {
				g.Phase = PhaseWaitingTargetSelection
			} else {
				g.Phase = PhaseDeckCardRevealed
			}
		} else if len(g.PlacementTargets()) > 0 {
			g.Phase = PhaseAnalyzingHand
		} else {
			g.Phase = PhaseWaitingDeckAction
		}
	default:
		g.Phase = PhaseSelectingCard
	}
}

func (g *Game) commit() {
	g.checkOver()
	g.refreshPhase()
	g.Version++
}

// Rankings returns finishers in order followed by the loser.
func (g *Game) Rankings() []string {
	out := append([]string(nil), g.FinishOrder...)
	if g.LoserID != "" {
		out = append(out, g.LoserID)
	}
	return out
}

// WinnerID is the first player to run out of cards.
func (g *Game) WinnerID() string {
	if len(g.FinishOrder) == 0 {
		return ""
	}
	return g.FinishOrder[0]
}

func removeID(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

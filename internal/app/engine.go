package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"pidr/internal/bot"
	"pidr/internal/domain"
	"pidr/internal/ports"
)

var (
	ErrNotStarted       = errors.New("no game in progress")
	ErrEngineClosed     = errors.New("engine closed")
	ErrConcurrentAction = errors.New("another action for this player is in progress")
	ErrDecisionInFlight = errors.New("a decision for this player is already pending")
	ErrNotABot          = errors.New("player is not a bot seat")
	ErrPassAction       = errors.New("pass is not applied to the game")

	errStaleDecision = errors.New("decision computed against an outdated state")
)

// Options configures an Engine. Zero values fall back to sensible
// defaults.
type Options struct {
	Logger            runtime.Logger
	Clock             Clock
	DeclarationWindow time.Duration
	Placement         domain.PlacementRule
	Trump             domain.TrumpSelector
	BotDelays         map[domain.Difficulty]bot.DelayRange
	DefaultDifficulty domain.Difficulty
	// DriveBots schedules bot decisions automatically after every
	// transition.
	DriveBots bool
	Listener  func(Event)
	Recorder  ports.ResultRecorder
	Signer    *ReceiptSigner
	// Context is handed to the Recorder.
	Context context.Context
}

// Engine is one authoritative game. All mutation goes through its methods;
// readers get snapshots.
type Engine struct {
	opts  Options
	log   runtime.Logger
	clock Clock

	actMu  sync.Mutex
	acting map[string]bool

	mu        sync.Mutex
	game      *domain.Game
	agents    map[string]*bot.Agent
	deadlines map[string]*deadline
	inflight  map[string]*decision
	ended     bool
	closed    bool
}

func NewEngine(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = discardLogger{}
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.BotDelays == nil {
		opts.BotDelays = bot.DefaultTuning.Delays
	}
	if opts.DefaultDifficulty == "" {
		opts.DefaultDifficulty = domain.DifficultyMedium
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	return &Engine{
		opts:      opts,
		log:       opts.Logger,
		clock:     opts.Clock,
		acting:    make(map[string]bool),
		agents:    make(map[string]*bot.Agent),
		deadlines: make(map[string]*deadline),
		inflight:  make(map[string]*decision),
	}
}

// Start deals a new game for the given seats. Any previous game is
// discarded together with its timers.
func (e *Engine) Start(specs []domain.PlayerSpec, seed int64) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	e.stopTimersLocked()

	game, err := domain.NewGame("", specs, rand.New(rand.NewSource(seed)), domain.GameOptions{
		Placement:         e.opts.Placement,
		Trump:             e.opts.Trump,
		DeclarationWindow: e.opts.DeclarationWindow,
		Now:               e.clock.Now,
	})
	if err != nil {
		e.mu.Unlock()
		return err
	}

	agents, err := e.agentsFor(game, seed)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	e.game = game
	e.agents = agents
	e.ended = false
	e.log.Info("Engine: game %s started with %d players", game.ID, len(game.Players))
	result := e.afterTransitionLocked()
	e.mu.Unlock()
	e.record(result)
	return nil
}

// Restore takes over a game assembled elsewhere, e.g. loaded from storage.
// Bot seats get fresh agents seeded from seed.
func (e *Engine) Restore(game *domain.Game, seed int64) error {
	if game == nil || len(game.Players) == 0 {
		return ErrNotStarted
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	e.stopTimersLocked()

	game.SetOptions(domain.GameOptions{
		Placement:         e.opts.Placement,
		Trump:             e.opts.Trump,
		DeclarationWindow: e.opts.DeclarationWindow,
		Now:               e.clock.Now,
	})
	game.Reconcile()
	agents, err := e.agentsFor(game, seed)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	e.game = game
	e.agents = agents
	e.ended = false
	e.log.Info("Engine: game %s restored at version %d", game.ID, game.Version)
	result := e.afterTransitionLocked()
	e.mu.Unlock()
	e.record(result)
	return nil
}

func (e *Engine) agentsFor(game *domain.Game, seed int64) (map[string]*bot.Agent, error) {
	agents := make(map[string]*bot.Agent)
	for i, p := range game.Players {
		if !p.IsBot {
			continue
		}
		difficulty := p.Difficulty
		if difficulty == "" {
			difficulty = e.opts.DefaultDifficulty
		}
		delay := bot.DefaultTuning.DelayFor(difficulty)
		if r, ok := e.opts.BotDelays[difficulty]; ok {
			delay = r
		}
		agent, err := bot.NewAgent(p.ID, difficulty, seed+int64(i)+1, delay)
		if err != nil {
			return nil, fmt.Errorf("bot seat %s: %w", p.ID, err)
		}
		agents[p.ID] = agent
	}
	return agents, nil
}

// StartGame seats one human ("p1") and fills the other seats with bots of
// the default difficulty.
func (e *Engine) StartGame(playerCount int, seed int64) error {
	if playerCount < domain.MinPlayers {
		return domain.ErrTooFewPlayers
	}
	if playerCount > domain.MaxPlayers {
		return domain.ErrTooManyPlayers
	}
	specs := []domain.PlayerSpec{{ID: "p1"}}
	for i := 2; i <= playerCount; i++ {
		specs = append(specs, domain.PlayerSpec{
			ID:         fmt.Sprintf("bot-%d", i),
			IsBot:      true,
			Difficulty: e.opts.DefaultDifficulty,
		})
	}
	return e.Start(specs, seed)
}

func (e *Engine) Attack(playerID, cardID string) error {
	return e.act(playerID, func(g *domain.Game) error { return g.Attack(playerID, cardID) })
}

func (e *Engine) Defend(playerID, cardID string) error {
	return e.act(playerID, func(g *domain.Game) error { return g.Defend(playerID, cardID) })
}

func (e *Engine) Take(playerID string) error {
	return e.act(playerID, func(g *domain.Game) error { return g.Take(playerID) })
}

func (e *Engine) Draw(playerID string) error {
	return e.act(playerID, func(g *domain.Game) error { return g.Draw(playerID) })
}

func (e *Engine) PlaceOnTarget(playerID, targetID string) error {
	return e.act(playerID, func(g *domain.Game) error { return g.PlaceOnTarget(playerID, targetID) })
}

func (e *Engine) DeclareOneCard(playerID string) error {
	return e.act(playerID, func(g *domain.Game) error { return g.DeclareOneCard(playerID) })
}

func (e *Engine) AskHowManyCards(accuserID, accusedID string) error {
	return e.act(accuserID, func(g *domain.Game) error { return g.AskHowManyCards(accuserID, accusedID) })
}

func (e *Engine) ContributePenaltyCard(playerID, cardID string) error {
	return e.act(playerID, func(g *domain.Game) error { return g.ContributePenaltyCard(playerID, cardID) })
}

func (e *Engine) CancelPenalty() error {
	return e.act("", func(g *domain.Game) error { return g.CancelPenalty() })
}

// ApplyAction applies an AI-style action on behalf of playerID. Draw means
// take in stages 2-3; PlayCard means attack, defend or a penalty card
// depending on the state.
func (e *Engine) ApplyAction(playerID string, action bot.Action) error {
	return e.act(playerID, func(g *domain.Game) error { return applyAction(g, playerID, action) })
}

// AIDecide returns what the AI would do for playerID right now. Human seats
// get the medium policy. It never changes the game.
func (e *Engine) AIDecide(playerID string) (bot.Action, error) {
	e.mu.Lock()
	if e.game == nil {
		e.mu.Unlock()
		return bot.Pass(), ErrNotStarted
	}
	if e.game.Player(playerID) == nil {
		e.mu.Unlock()
		return bot.Pass(), domain.Illegal(domain.ErrUnknownPlayer)
	}
	snap := e.game.Snapshot()
	agent := e.agents[playerID]
	e.mu.Unlock()

	if agent != nil {
		return agent.Decide(snap), nil
	}
	return bot.NewMediumBot(bot.DefaultTuning).CalculateMove(snap, playerID)
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() (domain.Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.game == nil {
		return domain.Snapshot{}, false
	}
	return e.game.Snapshot(), true
}

// Close stops every timer. The engine rejects actions afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.stopTimersLocked()
}

// act runs fn against the game for one player. A second action for the
// same player arriving while the first is still being applied is rejected,
// not queued.
func (e *Engine) act(playerID string, fn func(g *domain.Game) error) error {
	if playerID != "" {
		if !e.claim(playerID) {
			return domain.Illegal(ErrConcurrentAction)
		}
		defer e.release(playerID)
	}

	e.mu.Lock()
	switch {
	case e.closed:
		e.mu.Unlock()
		return ErrEngineClosed
	case e.game == nil:
		e.mu.Unlock()
		return ErrNotStarted
	}
	if err := fn(e.game); err != nil {
		e.mu.Unlock()
		return err
	}
	result := e.afterTransitionLocked()
	e.mu.Unlock()
	e.record(result)
	return nil
}

func (e *Engine) claim(playerID string) bool {
	e.actMu.Lock()
	defer e.actMu.Unlock()
	if e.acting[playerID] {
		return false
	}
	e.acting[playerID] = true
	return true
}

func (e *Engine) release(playerID string) {
	e.actMu.Lock()
	defer e.actMu.Unlock()
	delete(e.acting, playerID)
}

// afterTransitionLocked runs after every accepted change: it re-arms the
// declaration timers, drops outdated bot decisions, notifies the listener
// and either finishes the game or lets the bots think.
func (e *Engine) afterTransitionLocked() *ports.GameResult {
	e.syncDeadlinesLocked()
	e.cancelDecisionsLocked()

	snap := e.game.Snapshot()
	e.emit(Event{Kind: EventStateChanged, Payload: StateChangedPayload{Snapshot: snap}})

	if snap.Over {
		if e.ended {
			return nil
		}
		e.ended = true
		e.stopTimersLocked()
		result := e.resultLocked()
		e.log.Info("Engine: game %s over, winner %s, loser %s", result.GameID, result.WinnerID, result.LoserID)
		e.emit(Event{Kind: EventGameEnded, Payload: GameEndedPayload{Result: result}})
		return &result
	}

	if e.opts.DriveBots {
		e.scheduleBotsLocked(snap)
	}
	return nil
}

func (e *Engine) resultLocked() ports.GameResult {
	result := ports.GameResult{
		GameID:     e.game.ID,
		WinnerID:   e.game.WinnerID(),
		LoserID:    e.game.LoserID,
		Rankings:   e.game.Rankings(),
		FinishedAt: e.clock.Now(),
	}
	if e.opts.Signer != nil {
		receipt, err := e.opts.Signer.Sign(result)
		if err != nil {
			e.log.Warn("Engine: failed to sign result of game %s: %v", result.GameID, err)
		} else {
			result.Receipt = receipt
		}
	}
	return result
}

func (e *Engine) record(result *ports.GameResult) {
	if result == nil || e.opts.Recorder == nil {
		return
	}
	if err := e.opts.Recorder.RecordResult(e.opts.Context, *result); err != nil {
		e.log.Error("Engine: failed to record result of game %s: %v", result.GameID, err)
	}
}

func (e *Engine) emit(ev Event) {
	if e.opts.Listener != nil {
		e.opts.Listener(ev)
	}
}

func (e *Engine) stopTimersLocked() {
	for id, dl := range e.deadlines {
		dl.timer.Stop()
		delete(e.deadlines, id)
	}
	e.cancelDecisionsLocked()
}

// applyAction maps the AI action union onto game operations.
func applyAction(g *domain.Game, playerID string, action bot.Action) error {
	switch action.Kind {
	case bot.ActionPlayCard:
		if g.Penalty.Owes(playerID) {
			return g.ContributePenaltyCard(playerID, action.CardID)
		}
		if g.Table.Len() == 0 {
			return g.Attack(playerID, action.CardID)
		}
		return g.Defend(playerID, action.CardID)
	case bot.ActionDraw:
		if g.TrumpSet {
			return g.Take(playerID)
		}
		return g.Draw(playerID)
	case bot.ActionPlaceOnTarget:
		return g.PlaceOnTarget(playerID, action.TargetID)
	case bot.ActionDeclare:
		return g.DeclareOneCard(playerID)
	case bot.ActionAccuse:
		return g.AskHowManyCards(playerID, action.TargetID)
	case bot.ActionPass:
		return domain.Illegal(ErrPassAction)
	default:
		return domain.Illegal(fmt.Errorf("unknown action %s", action.Kind))
	}
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...interface{}) {}
func (discardLogger) Info(string, ...interface{})  {}
func (discardLogger) Warn(string, ...interface{})  {}
func (discardLogger) Error(string, ...interface{}) {}
func (discardLogger) WithField(string, interface{}) runtime.Logger {
	return discardLogger{}
}
func (discardLogger) WithFields(map[string]interface{}) runtime.Logger {
	return discardLogger{}
}
func (discardLogger) Fields() map[string]interface{} {
	return nil
}

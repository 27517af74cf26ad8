package nakama

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"pidr/internal/app"
	"pidr/internal/bot"
	"pidr/internal/config"
	"pidr/internal/domain"
)

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	cfg := config.GetGameConfig()
	state := newMatchState(cfg)
	state.BotsEnabled = true

	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if val, ok := env[envBotsEnabled]; ok {
			state.BotsEnabled = val == "true"
		}
		if val, ok := env[envReceiptSecret]; ok {
			state.ReceiptSecret = val
		}
		if val, ok := env[envBotAutoFillDelay]; ok {
			if i, err := strconv.Atoi(val); err == nil {
				state.BotAutoFillDelay = i
			}
		}
	}

	if nk != nil {
		state.Recorder = NewNakamaResultRecorder(nk, cfg.RewardForPlace, state.isBot, logger)
	}

	label, err := matchLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	return state, cfg.TickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Seated players may always come back.
	if matchState.seatOf(presence.GetUserId()) >= 0 {
		return state, true, ""
	}
	if matchState.Playing() {
		return state, false, "Game in progress"
	}
	if matchState.GetOpenSeatsCount() <= 0 && len(matchState.Bots) == 0 {
		return state, false, "Match full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p

		if matchState.seatOf(userID) >= 0 {
			logger.Info("MatchJoin: User %s reconnected.", userID)
			if matchState.Playing() {
				if snap, ok := matchState.Engine.Snapshot(); ok {
					mh.sendSnapshot(dispatcher, logger, p, snap)
				}
			}
			continue
		}

		if !mh.assignSeat(matchState, logger, userID) {
			logger.Warn("MatchJoin: User %s joined but no seat (empty or bot) was available.", userID)
		}
	}

	mh.refreshOwner(matchState, logger)
	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastMatchState(matchState, dispatcher, logger)
	return matchState
}

// assignSeat seats userID on the first free seat, or in the lobby on the
// first bot seat.
func (mh *matchHandler) assignSeat(state *MatchState, logger runtime.Logger, userID string) bool {
	for i, seat := range state.Seats {
		if seat == "" {
			state.Seats[i] = userID
			return true
		}
	}
	if state.Playing() {
		return false
	}
	for i, seat := range state.Seats {
		if state.isBot(seat) {
			logger.Info("MatchJoin: Replacing bot %s with human %s in seat %d", seat, userID, i)
			delete(state.Bots, seat)
			state.Seats[i] = userID
			return true
		}
	}
	return false
}

// MatchLeave is called when one or more players leave the match. During a
// game the seat stays reserved so the player can reconnect.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)
		if matchState.Playing() {
			continue
		}
		if seat := matchState.seatOf(userID); seat >= 0 {
			matchState.Seats[seat] = ""
			logger.Debug("MatchLeave: User %s left, seat %d freed.", userID, seat)
		}
	}

	if shouldTerminateNoHumans(matchState.Presences) {
		logger.Info("MatchLeave: Terminating match with no humans.")
		if matchState.Engine != nil {
			matchState.Engine.Close()
		}
		return nil
	}

	mh.refreshOwner(matchState, logger)
	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastMatchState(matchState, dispatcher, logger)
	return matchState
}

// refreshOwner keeps the owner seat on a connected human.
func (mh *matchHandler) refreshOwner(state *MatchState, logger runtime.Logger) {
	if state.OwnerSeat >= 0 && !state.cannotOwn(state.Seats[state.OwnerSeat]) {
		return
	}
	owner := findFirstHumanSeat(state.Seats[:], state.cannotOwn)
	if owner != state.OwnerSeat {
		state.OwnerSeat = owner
		logger.Debug("Owner set to seat %d.", owner)
	}
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpCancelPenalty:
			mh.handleCancelPenalty(matchState, dispatcher, logger, msg)
		case OpAttack, OpDefend, OpTake, OpDraw, OpPlace, OpDeclare, OpAsk, OpContribute:
			mh.handleAction(matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.BotsEnabled {
		mh.processBots(matchState, dispatcher, logger)
	}
	mh.flushEvents(matchState, dispatcher, logger)
	return matchState
}

// processBots fills a lobby with a single human once the auto-fill delay
// has passed. In-game bots are driven by the engine.
func (mh *matchHandler) processBots(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Playing() || state.GetHumanPlayerCount() != 1 || len(state.Bots) > 0 {
		state.LastSinglePlayerTick = 0
		return
	}
	if state.LastSinglePlayerTick == 0 {
		state.LastSinglePlayerTick = state.Tick
		logger.Debug("processBots: Single player detected, starting auto-fill timer.")
	}
	if state.Tick-state.LastSinglePlayerTick < int64(state.BotAutoFillDelay*state.Config.TickRate) {
		return
	}

	want := state.Config.BotSeats
	if want < app.MinPlayersToStartGame-1 {
		want = app.MinPlayersToStartGame - 1
	}
	defaultDifficulty := domain.ParseDifficulty(state.Config.DefaultBotDifficulty)
	next := 0
	added := 0
	for i := range state.Seats {
		if added >= want {
			break
		}
		if state.Seats[i] != "" {
			continue
		}
		var identity bot.BotIdentity
		identity, next = nextBotIdentity(state, next)
		difficulty := identity.Difficulty
		if difficulty == "" {
			difficulty = defaultDifficulty
		}
		state.Seats[i] = identity.UserID
		state.Bots[identity.UserID] = difficulty
		logger.Info("processBots: Added bot %s (%s, %s) to seat %d", identity.Username, identity.UserID, difficulty, i)
		added++
	}
	state.LastSinglePlayerTick = 0
	if added > 0 {
		mh.updateLabel(state, dispatcher, logger)
		mh.broadcastMatchState(state, dispatcher, logger)
	}
}

// nextBotIdentity returns the first roster identity from index from on that
// is not seated yet, and the index to continue from.
func nextBotIdentity(state *MatchState, from int) (bot.BotIdentity, int) {
	for i := from; i < from+2*app.MaxSeats; i++ {
		identity := bot.GetBotIdentity(i)
		if state.seatOf(identity.UserID) < 0 {
			return identity, i + 1
		}
	}
	id := "bot-" + uuid.NewString()
	return bot.BotIdentity{UserID: id, Username: id}, from + 1
}

func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	senderSeat := state.seatOf(senderID)

	logger.Info("StartGame: Request received from %s (seat=%d, owner_seat=%d, occupied=%d)", senderID, senderSeat, state.OwnerSeat, state.GetOccupiedSeatCount())

	if state.Playing() {
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeConflict, "game already running")
		return
	}
	if senderSeat < 0 || senderSeat != state.OwnerSeat {
		logger.Warn("StartGame: User %s tried to start game but is not owner (owner_seat=%d)", senderID, state.OwnerSeat)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeForbidden, "only the owner can start the game")
		return
	}
	activeCount := state.GetOccupiedSeatCount()
	if activeCount < app.MinPlayersToStartGame {
		logger.Warn("StartGame: Cannot start with %d players. Need at least %d.", activeCount, app.MinPlayersToStartGame)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeConflict, domain.ErrTooFewPlayers.Error())
		return
	}

	engine := mh.newEngine(ctx, state, logger)
	if err := engine.Start(state.playerSpecs(), time.Now().UnixNano()); err != nil {
		engine.Close()
		logger.Error("StartGame: Failed to start game: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeConflict, err.Error())
		return
	}
	state.Engine = engine
	state.LastResult = nil

	mh.updateLabel(state, dispatcher, logger)
	logger.Info("StartGame: Game started with %d players.", activeCount)
}

func (mh *matchHandler) newEngine(ctx context.Context, state *MatchState, logger runtime.Logger) *app.Engine {
	cfg := state.Config
	delays := make(map[domain.Difficulty]bot.DelayRange, len(cfg.BotDelays))
	for name := range cfg.BotDelays {
		difficulty := domain.Difficulty(name)
		if domain.ParseDifficulty(name) != difficulty {
			continue
		}
		if lo, hi, ok := cfg.BotDelay(name); ok {
			delays[difficulty] = bot.DelayRange{Min: lo, Max: hi}
		}
	}

	opts := app.Options{
		Logger:            logger,
		DeclarationWindow: cfg.DeclarationWindow(),
		BotDelays:         delays,
		DefaultDifficulty: domain.ParseDifficulty(cfg.DefaultBotDifficulty),
		DriveBots:         true,
		Listener:          state.Events.push,
		Recorder:          state.Recorder,
		Context:           ctx,
	}
	if state.ReceiptSecret != "" {
		opts.Signer = app.NewReceiptSigner(state.ReceiptSecret, cfg.ReceiptIssuer, cfg.ReceiptTTL())
	}
	return app.NewEngine(opts)
}

func (mh *matchHandler) handleAction(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if !state.Playing() {
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeConflict, app.ErrNotStarted.Error())
		return
	}
	req, err := decodeRequest(msg.GetData())
	if err != nil {
		logger.Warn("handleAction: User %s sent a bad request: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeIllegalAction, err.Error())
		return
	}

	engine := state.Engine
	switch msg.GetOpCode() {
	case OpAttack:
		err = engine.Attack(senderID, req.CardID)
	case OpDefend:
		err = engine.Defend(senderID, req.CardID)
	case OpTake:
		err = engine.Take(senderID)
	case OpDraw:
		err = engine.Draw(senderID)
	case OpPlace:
		err = engine.PlaceOnTarget(senderID, req.TargetID)
	case OpDeclare:
		err = engine.DeclareOneCard(senderID)
	case OpAsk:
		err = engine.AskHowManyCards(senderID, req.TargetID)
	case OpContribute:
		err = engine.ContributePenaltyCard(senderID, req.CardID)
	}
	if err != nil {
		logger.Warn("handleAction: User %s op %d rejected: %v", senderID, msg.GetOpCode(), err)
		mh.sendError(state, dispatcher, logger, senderID, errorCode(err), err.Error())
	}
}

// handleCancelPenalty lets the owner void a pending accusation.
func (mh *matchHandler) handleCancelPenalty(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if !state.Playing() {
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeConflict, app.ErrNotStarted.Error())
		return
	}
	if state.seatOf(senderID) != state.OwnerSeat {
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeForbidden, "only the owner can cancel a penalty")
		return
	}
	if err := state.Engine.CancelPenalty(); err != nil {
		mh.sendError(state, dispatcher, logger, senderID, errorCode(err), err.Error())
	}
}

func errorCode(err error) int {
	switch {
	case domain.IsIllegalAction(err):
		return ErrCodeIllegalAction
	case domain.IsInvalidTarget(err):
		return ErrCodeInvalidTarget
	default:
		return ErrCodeConflict
	}
}

// flushEvents sends the engine events queued since the last tick.
func (mh *matchHandler) flushEvents(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for _, ev := range state.Events.drain() {
		switch p := ev.Payload.(type) {
		case app.StateChangedPayload:
			for _, presence := range state.Presences {
				mh.sendSnapshot(dispatcher, logger, presence, p.Snapshot)
			}
		case app.GameEndedPayload:
			result := p.Result
			state.LastResult = &result
			data, err := encodeStruct(resultValue(result))
			if err != nil {
				logger.Error("Failed to marshal game result: %v", err)
			} else {
				dispatcher.BroadcastMessage(OpGameEnded, data, nil, nil, true)
			}
			if state.Engine != nil {
				state.Engine.Close()
				state.Engine = nil
			}
			mh.updateLabel(state, dispatcher, logger)
		default:
			logger.Warn("Unknown event kind: %v", ev.Kind)
		}
	}
}

// sendSnapshot sends the state as seen by one player: other hands are cut
// down to their top card.
func (mh *matchHandler) sendSnapshot(dispatcher runtime.MatchDispatcher, logger runtime.Logger, presence runtime.Presence, snap domain.Snapshot) {
	data, err := encodeStruct(snapshotValue(snap.ForViewer(presence.GetUserId())))
	if err != nil {
		logger.Error("Failed to marshal snapshot %d: %v", snap.Version, err)
		return
	}
	dispatcher.BroadcastMessage(OpState, data, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) broadcastMatchState(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	players := make([]interface{}, 0, len(state.Seats))
	for i, userID := range state.Seats {
		if userID == "" {
			continue
		}

		displayName := userID
		p, connected := state.Presences[userID]
		if connected {
			displayName = p.GetUsername()
		} else if name := bot.GetBotDisplayName(userID); name != "" {
			displayName = name
		}

		players = append(players, map[string]interface{}{
			"user_id":      userID,
			"seat":         i,
			"is_owner":     i == state.OwnerSeat,
			"is_bot":       state.isBot(userID),
			"connected":    connected,
			"display_name": displayName,
		})
	}

	data, err := encodeStruct(map[string]interface{}{
		"owner_seat": state.OwnerSeat,
		"tick":       state.Tick,
		"state":      stateName(state),
		"players":    players,
	})
	if err != nil {
		logger.Error("Failed to marshal lobby: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpLobby, data, nil, nil, true)
}

// sendError sends an error event to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	data, err := encodeStruct(map[string]interface{}{
		"code":    code,
		"message": message,
	})
	if err != nil {
		logger.Error("Failed to marshal error event: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}
	dispatcher.BroadcastMessage(OpError, data, []runtime.Presence{presence}, nil, true)
}

func stateName(state *MatchState) string {
	if state.Playing() {
		return "playing"
	}
	return "lobby"
}

func matchLabel(state *MatchState) (string, error) {
	label, err := structpb.NewStruct(map[string]interface{}{
		"game":    gameLabel,
		"open":    state.GetOpenSeatsCount(),
		"players": state.GetOccupiedSeatCount(),
		"state":   stateName(state),
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := matchLabel(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated, grace %d seconds", graceSeconds)
	if matchState, ok := state.(*MatchState); ok && matchState.Engine != nil {
		matchState.Engine.Close()
	}
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

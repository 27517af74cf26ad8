package nakama

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/heroiclabs/nakama-common/runtime"

	"pidr/internal/app"
	"pidr/internal/config"
	"pidr/internal/domain"
	"pidr/internal/ports"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode    int64
	data      []byte
	presences []runtime.Presence
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	messages     []sentMessage
	labelUpdates int
	lastLabel    string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.messages = append(md.messages, sentMessage{opCode: opCode, data: append([]byte(nil), data...), presences: presences})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

// sentTo returns the messages with opCode addressed to userID, broadcasts
// included.
func (md *mockDispatcher) sentTo(opCode int64, userID string) []sentMessage {
	var out []sentMessage
	for _, m := range md.messages {
		if m.opCode != opCode {
			continue
		}
		if len(m.presences) == 0 {
			out = append(out, m)
			continue
		}
		for _, p := range m.presences {
			if p.GetUserId() == userID {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

type mockPresence struct {
	userID string
}

func (p mockPresence) GetHidden() bool                   { return false }
func (p mockPresence) GetPersistence() bool              { return false }
func (p mockPresence) GetUsername() string               { return "name-" + p.userID }
func (p mockPresence) GetStatus() string                 { return "" }
func (p mockPresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }
func (p mockPresence) GetUserId() string                 { return p.userID }
func (p mockPresence) GetSessionId() string              { return "session-" + p.userID }
func (p mockPresence) GetNodeId() string                 { return "node" }

type mockMatchData struct {
	mockPresence
	opCode int64
	data   []byte
}

func (m mockMatchData) GetOpCode() int64      { return m.opCode }
func (m mockMatchData) GetData() []byte       { return m.data }
func (m mockMatchData) GetReliable() bool     { return true }
func (m mockMatchData) GetReceiveTime() int64 { return 0 }

func message(userID string, opCode int64, body string) runtime.MatchData {
	return mockMatchData{mockPresence: mockPresence{userID: userID}, opCode: opCode, data: []byte(body)}
}

func TestFindFirstHumanSeat(t *testing.T) {
	bots := map[string]bool{"bot-a": true, "bot-b": true}
	isBot := func(id string) bool { return bots[id] }

	tests := []struct {
		name  string
		seats []string
		want  int
	}{
		{
			name:  "FirstHumanAfterBot",
			seats: []string{"bot-a", "user-1", "", ""},
			want:  1,
		},
		{
			name:  "AllBots",
			seats: []string{"bot-a", "bot-b", "", ""},
			want:  -1,
		},
		{
			name:  "AllEmpty",
			seats: []string{"", "", "", ""},
			want:  -1,
		},
		{
			name:  "FirstHumanIsSeatZero",
			seats: []string{"user-1", "bot-a", "user-2", ""},
			want:  0,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if got := findFirstHumanSeat(test.seats, isBot); got != test.want {
				t.Fatalf("findFirstHumanSeat() = %d, want %d", got, test.want)
			}
		})
	}
}

func TestShouldTerminateNoHumans(t *testing.T) {
	tests := []struct {
		name      string
		presences map[string]runtime.Presence
		want      bool
	}{
		{
			name:      "NobodyConnected",
			presences: map[string]runtime.Presence{},
			want:      true,
		},
		{
			name:      "HumanConnected",
			presences: map[string]runtime.Presence{"user-1": mockPresence{userID: "user-1"}},
			want:      false,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if got := shouldTerminateNoHumans(test.presences); got != test.want {
				t.Fatalf("shouldTerminateNoHumans() = %t, want %t", got, test.want)
			}
		})
	}
}

func TestMatchLabel(t *testing.T) {
	state := newMatchState(config.Defaults())
	state.Seats[0] = "user-1"
	state.Seats[1] = "user-2"

	raw, err := matchLabel(state)
	if err != nil {
		t.Fatalf("matchLabel: %v", err)
	}
	var label map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &label); err != nil {
		t.Fatalf("label is not JSON: %v (%s)", err, raw)
	}

	want := map[string]interface{}{
		"game":    "pidr",
		"open":    float64(app.MaxSeats - 2),
		"players": float64(2),
		"state":   "lobby",
	}
	for k, v := range want {
		if label[k] != v {
			t.Errorf("label[%q] = %v, want %v", k, label[k], v)
		}
	}
}

func TestProcessBots_FillsSoloLobby(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	cfg := config.Defaults()
	cfg.TickRate = 1
	state := newMatchState(cfg)
	state.Seats[0] = "user-1"
	state.BotAutoFillDelay = 2
	state.LastSinglePlayerTick = 8
	state.Tick = 10

	handler.processBots(state, dispatcher, noopLogger{})

	if len(state.Bots) != cfg.BotSeats {
		t.Fatalf("Expected %d bots, got %d", cfg.BotSeats, len(state.Bots))
	}
	for id, difficulty := range state.Bots {
		if state.seatOf(id) < 0 {
			t.Errorf("bot %s has no seat", id)
		}
		if difficulty == "" {
			t.Errorf("bot %s has no difficulty", id)
		}
	}
	if got, want := state.GetOpenSeatsCount(), app.MaxSeats-1-cfg.BotSeats; got != want {
		t.Fatalf("Expected %d open seats after auto-fill, got %d", want, got)
	}
	if state.LastSinglePlayerTick != 0 {
		t.Fatalf("Expected auto-fill timer reset, got %d", state.LastSinglePlayerTick)
	}
	if len(dispatcher.sentTo(OpLobby, "user-1")) == 0 || dispatcher.labelUpdates == 0 {
		t.Fatalf("Expected lobby broadcast and label update after auto-fill")
	}

	// A second pass must not add more bots.
	state.Tick = 100
	handler.processBots(state, dispatcher, noopLogger{})
	if len(state.Bots) != cfg.BotSeats {
		t.Fatalf("Expected bot count to stay %d, got %d", cfg.BotSeats, len(state.Bots))
	}
}

func TestProcessBots_WaitsForDelay(t *testing.T) {
	handler := &matchHandler{}
	cfg := config.Defaults()
	state := newMatchState(cfg)
	state.Seats[0] = "user-1"
	state.Tick = 3

	handler.processBots(state, &mockDispatcher{}, noopLogger{})
	if len(state.Bots) != 0 {
		t.Fatalf("bots added before the delay passed")
	}
	if state.LastSinglePlayerTick != 3 {
		t.Fatalf("LastSinglePlayerTick = %d, want 3", state.LastSinglePlayerTick)
	}
}

func newTestMatch(t *testing.T, env map[string]string, users ...string) (*matchHandler, *MatchState, *mockDispatcher) {
	t.Helper()
	handler := &matchHandler{}
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_ENV, env)
	raw, tickRate, label := handler.MatchInit(ctx, noopLogger{}, nil, nil, nil)
	if raw == nil || tickRate <= 0 || label == "" {
		t.Fatalf("MatchInit returned state=%v tickRate=%d label=%q", raw, tickRate, label)
	}
	state := raw.(*MatchState)

	dispatcher := &mockDispatcher{}
	presences := make([]runtime.Presence, 0, len(users))
	for _, u := range users {
		presences = append(presences, mockPresence{userID: u})
	}
	handler.MatchJoin(ctx, noopLogger{}, nil, nil, dispatcher, 1, state, presences)
	t.Cleanup(func() {
		if state.Engine != nil {
			state.Engine.Close()
		}
	})
	return handler, state, dispatcher
}

func lastPayload(t *testing.T, msgs []sentMessage) map[string]interface{} {
	t.Helper()
	if len(msgs) == 0 {
		t.Fatal("no message sent")
	}
	m, err := decodeStruct(msgs[len(msgs)-1].data)
	if err != nil {
		t.Fatalf("decodeStruct: %v", err)
	}
	return m
}

func TestMatchInit_ReadsEnv(t *testing.T) {
	_, state, _ := newTestMatch(t, map[string]string{
		envBotsEnabled:      "false",
		envReceiptSecret:    "s3cret",
		envBotAutoFillDelay: "7",
	})
	if state.BotsEnabled {
		t.Error("BotsEnabled = true, want false")
	}
	if state.ReceiptSecret != "s3cret" {
		t.Errorf("ReceiptSecret = %q", state.ReceiptSecret)
	}
	if state.BotAutoFillDelay != 7 {
		t.Errorf("BotAutoFillDelay = %d, want 7", state.BotAutoFillDelay)
	}
}

func TestMatchFlow_StartAndMaskedState(t *testing.T) {
	handler, state, dispatcher := newTestMatch(t, map[string]string{envBotsEnabled: "false"}, "user-1", "user-2", "user-3")
	ctx := context.Background()

	if state.OwnerSeat != 0 {
		t.Fatalf("OwnerSeat = %d, want 0", state.OwnerSeat)
	}

	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 2, state, []runtime.MatchData{message("user-2", OpStartGame, "")})
	if state.Playing() {
		t.Fatal("non-owner started the game")
	}
	if code := lastPayload(t, dispatcher.sentTo(OpError, "user-2"))["code"]; code != float64(ErrCodeForbidden) {
		t.Fatalf("error code = %v, want %d", code, ErrCodeForbidden)
	}

	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 3, state, []runtime.MatchData{message("user-1", OpStartGame, "")})
	if !state.Playing() {
		t.Fatal("owner could not start the game")
	}
	if !json.Valid([]byte(dispatcher.lastLabel)) {
		t.Fatalf("label is not JSON: %s", dispatcher.lastLabel)
	}

	for _, viewer := range []string{"user-1", "user-2", "user-3"} {
		snap := lastPayload(t, dispatcher.sentTo(OpState, viewer))
		players, _ := snap["players"].([]interface{})
		if len(players) != 3 {
			t.Fatalf("%s sees %d players, want 3", viewer, len(players))
		}
		for _, raw := range players {
			p := raw.(map[string]interface{})
			hand, _ := p["hand"].([]interface{})
			if p["id"] != viewer && len(hand) > 1 {
				t.Errorf("%s sees %d cards of %s", viewer, len(hand), p["id"])
			}
			if p["hand_count"] != float64(domain.OpeningHandSize) || p["stock_count"] != float64(domain.StockSize) {
				t.Errorf("counts of %s = %v/%v", p["id"], p["hand_count"], p["stock_count"])
			}
		}
		if snap["active_player_id"] != "user-1" {
			t.Errorf("active = %v, want user-1", snap["active_player_id"])
		}
	}

	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 4, state, []runtime.MatchData{
		message("user-2", OpDraw, ""),
		message("user-1", OpPlace, `{"target_id":"nobody"}`),
	})
	if code := lastPayload(t, dispatcher.sentTo(OpError, "user-2"))["code"]; code != float64(ErrCodeIllegalAction) {
		t.Errorf("out of turn draw: code = %v, want %d", code, ErrCodeIllegalAction)
	}
	if code := lastPayload(t, dispatcher.sentTo(OpError, "user-1"))["code"]; code != float64(ErrCodeInvalidTarget) {
		t.Errorf("unknown target: code = %v, want %d", code, ErrCodeInvalidTarget)
	}

	before := len(dispatcher.sentTo(OpState, "user-1"))
	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 5, state, []runtime.MatchData{message("user-1", OpDraw, "")})
	if got := len(dispatcher.sentTo(OpState, "user-1")); got != before+1 {
		t.Fatalf("state messages after draw = %d, want %d", got, before+1)
	}
	if snap := lastPayload(t, dispatcher.sentTo(OpState, "user-3")); snap["revealed"] == nil {
		t.Error("revealed card missing after draw")
	}
}

func TestMatchLeave_KeepsSeatDuringGame(t *testing.T) {
	handler, state, dispatcher := newTestMatch(t, map[string]string{envBotsEnabled: "false"}, "user-1", "user-2", "user-3")
	ctx := context.Background()
	handler.MatchLoop(ctx, noopLogger{}, nil, nil, dispatcher, 2, state, []runtime.MatchData{message("user-1", OpStartGame, "")})

	out := handler.MatchLeave(ctx, noopLogger{}, nil, nil, dispatcher, 3, state, []runtime.Presence{mockPresence{userID: "user-1"}})
	if out == nil {
		t.Fatal("match terminated while humans are connected")
	}
	if state.seatOf("user-1") != 0 {
		t.Fatal("seat of a leaving player was freed during the game")
	}
	if state.OwnerSeat != 1 {
		t.Fatalf("OwnerSeat = %d, want 1", state.OwnerSeat)
	}

	_, ok, _ := handler.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, dispatcher, 4, state, mockPresence{userID: "user-1"}, nil)
	if !ok {
		t.Fatal("seated player could not rejoin")
	}
	_, ok, _ = handler.MatchJoinAttempt(ctx, noopLogger{}, nil, nil, dispatcher, 4, state, mockPresence{userID: "user-9"}, nil)
	if ok {
		t.Fatal("newcomer joined a running game")
	}

	out = handler.MatchLeave(ctx, noopLogger{}, nil, nil, dispatcher, 5, state, []runtime.Presence{
		mockPresence{userID: "user-2"}, mockPresence{userID: "user-3"},
	})
	if out != nil {
		t.Fatal("expected termination once no human is connected")
	}
}

func TestFlushEvents_GameEnded(t *testing.T) {
	handler := &matchHandler{}
	dispatcher := &mockDispatcher{}
	state := newMatchState(config.Defaults())
	state.Presences["u1"] = mockPresence{userID: "u1"}
	state.Engine = app.NewEngine(app.Options{})

	result := ports.GameResult{GameID: "g1", WinnerID: "u1", LoserID: "u3", Rankings: []string{"u1", "u2", "u3"}, Receipt: "token"}
	state.Events.push(app.Event{Kind: app.EventGameEnded, Payload: app.GameEndedPayload{Result: result}})

	handler.flushEvents(state, dispatcher, noopLogger{})

	if state.Playing() {
		t.Fatal("engine still attached after game end")
	}
	if state.LastResult == nil || state.LastResult.GameID != "g1" {
		t.Fatalf("LastResult = %+v", state.LastResult)
	}
	payload := lastPayload(t, dispatcher.sentTo(OpGameEnded, "u1"))
	if payload["loser_id"] != "u3" || payload["receipt"] != "token" {
		t.Fatalf("game ended payload = %v", payload)
	}
	if dispatcher.labelUpdates != 1 {
		t.Fatalf("labelUpdates = %d, want 1", dispatcher.labelUpdates)
	}
}

package nakama

import (
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"

	"pidr/internal/app"
	"pidr/internal/config"
	"pidr/internal/domain"
	"pidr/internal/ports"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	// Seats holds user ids; an empty string is a free seat.
	Seats     [app.MaxSeats]string         `json:"seats"`
	OwnerSeat int                          `json:"owner_seat"`
	Tick      int64                        `json:"tick"`
	Presences map[string]runtime.Presence  `json:"-"`
	Bots      map[string]domain.Difficulty `json:"-"`

	// Engine is nil while the match is in the lobby.
	Engine     *app.Engine          `json:"-"`
	Events     *eventQueue          `json:"-"`
	LastResult *ports.GameResult    `json:"-"`
	Recorder   ports.ResultRecorder `json:"-"`

	// Lobby settings; BotAutoFillDelay is in seconds.
	Config               *config.GameConfig `json:"-"`
	BotsEnabled          bool               `json:"bots_enabled"`
	BotAutoFillDelay     int                `json:"bot_auto_fill_delay"`
	LastSinglePlayerTick int64              `json:"last_single_player_tick"`
	ReceiptSecret        string             `json:"-"`
}

func newMatchState(cfg *config.GameConfig) *MatchState {
	return &MatchState{
		OwnerSeat:        -1,
		Presences:        make(map[string]runtime.Presence),
		Bots:             make(map[string]domain.Difficulty),
		Events:           &eventQueue{},
		Config:           cfg,
		BotAutoFillDelay: cfg.BotAutoFillDelaySeconds,
	}
}

func (ms *MatchState) Playing() bool { return ms.Engine != nil }

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetOccupiedSeatCount() int {
	return len(ms.Seats) - ms.GetOpenSeatsCount()
}

func (ms *MatchState) GetHumanPlayerCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" && !ms.isBot(seat) {
			count++
		}
	}
	return count
}

func (ms *MatchState) isBot(userID string) bool {
	_, ok := ms.Bots[userID]
	return ok
}

// cannotOwn reports whether userID is unfit to own the match: bots and
// players who are not connected.
func (ms *MatchState) cannotOwn(userID string) bool {
	_, connected := ms.Presences[userID]
	return ms.isBot(userID) || !connected
}

func (ms *MatchState) seatOf(userID string) int {
	for i, seat := range ms.Seats {
		if seat != "" && seat == userID {
			return i
		}
	}
	return -1
}

// playerSpecs lists the occupied seats in seat order.
func (ms *MatchState) playerSpecs() []domain.PlayerSpec {
	var specs []domain.PlayerSpec
	for _, seat := range ms.Seats {
		if seat == "" {
			continue
		}
		difficulty, bot := ms.Bots[seat]
		specs = append(specs, domain.PlayerSpec{ID: seat, IsBot: bot, Difficulty: difficulty})
	}
	return specs
}

// findFirstHumanSeat returns the first seat index with a human occupant or -1 if none exist.
func findFirstHumanSeat(seats []string, isBot func(string) bool) int {
	for i, userID := range seats {
		if userID != "" && !isBot(userID) {
			return i
		}
	}
	return -1
}

// shouldTerminateNoHumans returns true when no human is connected to the match.
func shouldTerminateNoHumans(presences map[string]runtime.Presence) bool {
	return len(presences) == 0
}

// eventQueue buffers engine events until the next MatchLoop tick. Engine
// timers push from their own goroutines.
type eventQueue struct {
	mu     sync.Mutex
	events []app.Event
}

func (q *eventQueue) push(ev app.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, ev)
}

func (q *eventQueue) drain() []app.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}

package app

import (
	"pidr/internal/domain"
	"pidr/internal/ports"
)

// EventKind identifies emitted engine events for transport dispatch.
type EventKind string

const (
	EventStateChanged EventKind = "state_changed"
	EventGameEnded    EventKind = "game_ended"
)

// Event is an engine event. Listeners receive it while the engine lock is
// held and must not call back into the engine.
type Event struct {
	Kind    EventKind
	Payload any
}

// StateChangedPayload carries the full observable state after an accepted
// action. Hands are unmasked; transports filter per viewer.
type StateChangedPayload struct {
	Snapshot domain.Snapshot
}

type GameEndedPayload struct {
	Result ports.GameResult
}

package bot

import (
	"fmt"

	"pidr/internal/domain"
)

// ActionKind tags the variant held by an Action.
type ActionKind int

const (
	ActionPass ActionKind = iota
	ActionPlayCard
	ActionDraw
	ActionPlaceOnTarget
	ActionDeclare
	ActionAccuse
)

func (k ActionKind) String() string {
	switch k {
	case ActionPass:
		return "pass"
	case ActionPlayCard:
		return "play_card"
	case ActionDraw:
		return "draw"
	case ActionPlaceOnTarget:
		return "place_on_target"
	case ActionDeclare:
		return "declare"
	case ActionAccuse:
		return "accuse"
	default:
		return fmt.Sprintf("action(%d)", int(k))
	}
}

// Action is the decision made by the AI. Exactly one variant is set:
// CardID only for PlayCard, TargetID only for PlaceOnTarget and Accuse.
type Action struct {
	Kind     ActionKind
	CardID   string
	TargetID string
}

func (a Action) String() string {
	switch a.Kind {
	case ActionPlayCard:
		return "play_card(" + a.CardID + ")"
	case ActionPlaceOnTarget, ActionAccuse:
		return a.Kind.String() + "(" + a.TargetID + ")"
	default:
		return a.Kind.String()
	}
}

func Pass() Action { return Action{Kind: ActionPass} }

func PlayCard(cardID string) Action { return Action{Kind: ActionPlayCard, CardID: cardID} }

func Draw() Action { return Action{Kind: ActionDraw} }

func PlaceOnTarget(targetID string) Action {
	return Action{Kind: ActionPlaceOnTarget, TargetID: targetID}
}

func Declare() Action { return Action{Kind: ActionDeclare} }

func Accuse(targetID string) Action { return Action{Kind: ActionAccuse, TargetID: targetID} }

// Brain is the interface that all bot strategies must implement. It only
// ever reads the snapshot.
type Brain interface {
	CalculateMove(snap domain.Snapshot, playerID string) (Action, error)
}

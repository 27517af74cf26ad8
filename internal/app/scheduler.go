package app

import (
	"errors"

	"pidr/internal/bot"
	"pidr/internal/domain"
)

// decision is a bot action waiting out its thinking delay.
type decision struct {
	version uint64
	action  bot.Action
	timer   Timer
}

// ScheduleBot starts one decision for a bot seat. Only one decision per
// player may be pending; a second call returns ErrDecisionInFlight.
func (e *Engine) ScheduleBot(playerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.game == nil {
		return ErrNotStarted
	}
	agent, ok := e.agents[playerID]
	if !ok {
		return ErrNotABot
	}
	if _, busy := e.inflight[playerID]; busy {
		return ErrDecisionInFlight
	}
	snap := e.game.Snapshot()
	action := agent.Decide(snap)
	if action.Kind == bot.ActionPass {
		return nil
	}
	e.scheduleLocked(agent, action, snap.Version)
	return nil
}

// PendingDecisions reports how many bot decisions are waiting.
func (e *Engine) PendingDecisions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inflight)
}

func (e *Engine) scheduleBotsLocked(snap domain.Snapshot) {
	for _, p := range snap.Players {
		agent, ok := e.agents[p.ID]
		if !ok {
			continue
		}
		if _, busy := e.inflight[p.ID]; busy {
			continue
		}
		action := agent.Decide(snap)
		if action.Kind == bot.ActionPass {
			continue
		}
		e.scheduleLocked(agent, action, snap.Version)
	}
}

func (e *Engine) scheduleLocked(agent *bot.Agent, action bot.Action, version uint64) {
	d := &decision{version: version, action: action}
	playerID := agent.ID
	d.timer = e.clock.AfterFunc(agent.ThinkDelay(), func() { e.resolve(playerID, d) })
	e.inflight[playerID] = d
	e.log.Debug("Engine: %s thinking about %s at version %d", playerID, action, version)
}

// cancelDecisionsLocked drops every pending decision. Callbacks that
// already fired find themselves replaced and give up.
func (e *Engine) cancelDecisionsLocked() {
	for id, d := range e.inflight {
		d.timer.Stop()
		delete(e.inflight, id)
	}
}

// resolve applies a decision once its delay ran out, unless the state moved
// on in the meantime.
func (e *Engine) resolve(playerID string, d *decision) {
	err := e.act(playerID, func(g *domain.Game) error {
		if e.inflight[playerID] != d {
			return errStaleDecision
		}
		delete(e.inflight, playerID)
		if g.Version != d.version {
			return errStaleDecision
		}
		return applyAction(g, playerID, d.action)
	})
	switch {
	case err == nil:
	case errors.Is(err, errStaleDecision), errors.Is(err, ErrConcurrentAction),
		errors.Is(err, ErrEngineClosed), errors.Is(err, ErrNotStarted):
		e.log.Debug("Engine: discarded decision %s for %s: %v", d.action, playerID, err)
	default:
		e.log.Warn("Engine: bot %s action %s rejected: %v", playerID, d.action, err)
	}
}

package app

import (
	"pidr/internal/domain"
)

// deadline is the armed expiry of one at-risk declaration.
type deadline struct {
	generation uint64
	timer      Timer
}

// syncDeadlinesLocked keeps exactly one timer per at-risk player, armed for
// the current obligation. Timers of obligations that ended are stopped.
func (e *Engine) syncDeadlinesLocked() {
	live := make(map[string]domain.Declaration)
	for _, p := range e.game.Players {
		if p.Declaration.Status == domain.DeclarationAtRisk {
			live[p.ID] = p.Declaration
		}
	}

	for id, dl := range e.deadlines {
		if d, ok := live[id]; !ok || d.Generation != dl.generation {
			dl.timer.Stop()
			delete(e.deadlines, id)
		}
	}

	now := e.clock.Now()
	for id, d := range live {
		if _, ok := e.deadlines[id]; ok {
			continue
		}
		playerID, generation := id, d.Generation
		wait := d.Deadline.Sub(now)
		if wait < 0 {
			wait = 0
		}
		e.deadlines[id] = &deadline{
			generation: generation,
			timer:      e.clock.AfterFunc(wait, func() { e.expire(playerID, generation) }),
		}
	}
}

// expire runs on the timer goroutine. It re-reads the live record, so a
// declaration processed first always wins.
func (e *Engine) expire(playerID string, generation uint64) {
	e.mu.Lock()
	if e.closed || e.game == nil {
		e.mu.Unlock()
		return
	}
	if dl, ok := e.deadlines[playerID]; ok && dl.generation == generation {
		delete(e.deadlines, playerID)
	}
	if !e.game.ExpireDeclaration(playerID, generation) {
		e.mu.Unlock()
		e.log.Debug("Engine: stale declaration timer for %s (generation %d)", playerID, generation)
		return
	}
	e.log.Info("Engine: %s missed the one-card declaration", playerID)
	result := e.afterTransitionLocked()
	e.mu.Unlock()
	e.record(result)
}

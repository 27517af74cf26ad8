package domain

// PlayerView is the public projection of one seat.
type PlayerView struct {
	ID          string            `json:"id"`
	Seat        int               `json:"seat"`
	IsBot       bool              `json:"is_bot"`
	Difficulty  Difficulty        `json:"difficulty,omitempty"`
	Stage       Stage             `json:"stage"`
	Phase       Phase             `json:"phase,omitempty"`
	Finished    bool              `json:"finished"`
	Hand        []Card            `json:"hand"`
	HandCount   int               `json:"hand_count"`
	StockCount  int               `json:"stock_count"`
	Declaration DeclarationStatus `json:"declaration"`
	// DeadlineUnixMs is set while an undeclared single card is at risk.
	DeadlineUnixMs int64 `json:"deadline_unix_ms,omitempty"`
	Generation     uint64 `json:"-"`
}

// Top returns the last visible hand card.
func (v PlayerView) Top() (Card, bool) {
	if len(v.Hand) == 0 {
		return Card{}, false
	}
	return v.Hand[len(v.Hand)-1], true
}

// PenaltyView describes an unsettled penalty.
type PenaltyView struct {
	AccuserID   string   `json:"accuser_id"`
	AccusedID   string   `json:"accused_id"`
	Outstanding []string `json:"outstanding"`
	PileCount   int      `json:"pile_count"`
}

// Snapshot is a read-only deep copy of a Game. Renderers and bots only ever
// see snapshots, never the live state.
type Snapshot struct {
	GameID          string       `json:"game_id"`
	Version         uint64       `json:"version"`
	Stage           Stage        `json:"stage"`
	MaxStage        Stage        `json:"max_stage"`
	Phase           Phase        `json:"phase"`
	ActivePlayerID  string       `json:"active_player_id"`
	Trump           *Suit        `json:"trump,omitempty"`
	Revealed        *Card        `json:"revealed,omitempty"`
	DeckCount       int          `json:"deck_count"`
	Table           []Card       `json:"table"`
	Players         []PlayerView `json:"players"`
	Penalty         *PenaltyView `json:"penalty,omitempty"`
	PlacementTarget []string     `json:"placement_targets,omitempty"`
	FinishOrder     []string     `json:"finish_order"`
	Over            bool         `json:"over"`
	WinnerID        string       `json:"winner_id,omitempty"`
	LoserID         string       `json:"loser_id,omitempty"`
}

// Snapshot copies the game state. Later mutations of g never show through.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		GameID:         g.ID,
		Version:        g.Version,
		Stage:          g.MinStage(),
		MaxStage:       g.MaxStage(),
		Phase:          g.Phase,
		ActivePlayerID: g.ActiveID,
		DeckCount:      len(g.Deck),
		Table:          g.Table.Cards(),
		FinishOrder:    append([]string(nil), g.FinishOrder...),
		Over:           g.Over,
		WinnerID:       g.WinnerID(),
		LoserID:        g.LoserID,
	}
	if g.TrumpSet {
		trump := g.Trump
		s.Trump = &trump
	}
	if c, ok := g.Revealed(); ok {
		s.Revealed = &c
	}
	if !g.TrumpSet && !g.Over && g.Penalty == nil {
		s.PlacementTarget = g.PlacementTargets()
	}
	if pp := g.Penalty; pp != nil {
		s.Penalty = &PenaltyView{
			AccuserID:   pp.AccuserID,
			AccusedID:   pp.AccusedID,
			Outstanding: pp.Outstanding(),
			PileCount:   len(pp.Pile),
		}
	}

	for _, p := range g.Players {
		v := PlayerView{
			ID:          p.ID,
			Seat:        p.Seat,
			IsBot:       p.IsBot,
			Difficulty:  p.Difficulty,
			Stage:       p.Stage,
			Phase:       g.playerPhase(p),
			Finished:    p.Finished,
			Hand:        cloneCards(p.Hand),
			HandCount:   len(p.Hand),
			StockCount:  len(p.Stock),
			Declaration: p.Declaration.Status,
			Generation:  p.Declaration.Generation,
		}
		if p.Declaration.Status == DeclarationAtRisk {
			v.DeadlineUnixMs = p.Declaration.Deadline.UnixMilli()
		}
		s.Players = append(s.Players, v)
	}
	return s
}

func (g *Game) playerPhase(p *Player) Phase {
	switch {
	case g.Over || p.Finished:
		return PhaseFinished
	case p.ID == g.ActiveID:
		return g.Phase
	case g.TrumpSet:
		return PhaseWaitingBeat
	default:
		return ""
	}
}

// Player returns the view for id.
func (s Snapshot) Player(id string) (PlayerView, bool) {
	for _, v := range s.Players {
		if v.ID == id {
			return v, true
		}
	}
	return PlayerView{}, false
}

// TableTop returns the card the next defence has to beat.
func (s Snapshot) TableTop() (Card, bool) {
	if len(s.Table) == 0 {
		return Card{}, false
	}
	return s.Table[len(s.Table)-1], true
}

// ForViewer hides the non-top hand cards of everybody but viewerID. Hand
// counts stay intact.
func (s Snapshot) ForViewer(viewerID string) Snapshot {
	out := s
	out.Players = make([]PlayerView, len(s.Players))
	for i, v := range s.Players {
		if v.ID != viewerID && len(v.Hand) > 1 {
			v.Hand = []Card{v.Hand[len(v.Hand)-1]}
		} else {
			v.Hand = cloneCards(v.Hand)
		}
		out.Players[i] = v
	}
	return out
}

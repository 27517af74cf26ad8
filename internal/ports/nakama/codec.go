package nakama

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"pidr/internal/domain"
	"pidr/internal/ports"
)

// actionRequest is the body of a client action message. Clients send a JSON
// object; unknown fields are ignored.
type actionRequest struct {
	CardID   string
	TargetID string
}

func decodeRequest(data []byte) (actionRequest, error) {
	var req actionRequest
	if len(data) == 0 {
		return req, nil
	}
	body := &structpb.Struct{}
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(data, body); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	fields := body.GetFields()
	req.CardID = fields["card_id"].GetStringValue()
	req.TargetID = fields["target_id"].GetStringValue()
	return req, nil
}

// encodeStruct marshals m as a binary protobuf Struct.
func encodeStruct(m map[string]interface{}) ([]byte, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

// decodeStruct is the client-side inverse of encodeStruct.
func decodeStruct(data []byte) (map[string]interface{}, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return nil, err
	}
	return st.AsMap(), nil
}

func stringsValue(ids []string) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func cardValue(c domain.Card) map[string]interface{} {
	return map[string]interface{}{
		"id":      c.ID,
		"rank":    int(c.Rank),
		"suit":    c.Suit.String(),
		"face_up": c.FaceUp,
	}
}

func cardsValue(cards []domain.Card) []interface{} {
	out := make([]interface{}, len(cards))
	for i, c := range cards {
		out[i] = cardValue(c)
	}
	return out
}

func playerValue(p domain.PlayerView) map[string]interface{} {
	v := map[string]interface{}{
		"id":          p.ID,
		"seat":        p.Seat,
		"is_bot":      p.IsBot,
		"difficulty":  string(p.Difficulty),
		"stage":       int(p.Stage),
		"phase":       string(p.Phase),
		"finished":    p.Finished,
		"hand":        cardsValue(p.Hand),
		"hand_count":  p.HandCount,
		"stock_count": p.StockCount,
		"declaration": string(p.Declaration),
	}
	if p.DeadlineUnixMs != 0 {
		v["deadline_unix_ms"] = p.DeadlineUnixMs
	}
	return v
}

// snapshotValue flattens a snapshot into Struct-compatible values.
func snapshotValue(s domain.Snapshot) map[string]interface{} {
	players := make([]interface{}, len(s.Players))
	for i, p := range s.Players {
		players[i] = playerValue(p)
	}
	v := map[string]interface{}{
		"game_id":           s.GameID,
		"version":           s.Version,
		"stage":             int(s.Stage),
		"max_stage":         int(s.MaxStage),
		"phase":             string(s.Phase),
		"active_player_id":  s.ActivePlayerID,
		"deck_count":        s.DeckCount,
		"table":             cardsValue(s.Table),
		"players":           players,
		"placement_targets": stringsValue(s.PlacementTarget),
		"finish_order":      stringsValue(s.FinishOrder),
		"over":              s.Over,
		"winner_id":         s.WinnerID,
		"loser_id":          s.LoserID,
	}
	if s.Trump != nil {
		v["trump"] = s.Trump.String()
	}
	if s.Revealed != nil {
		v["revealed"] = cardValue(*s.Revealed)
	}
	if pp := s.Penalty; pp != nil {
		v["penalty"] = map[string]interface{}{
			"accuser_id":  pp.AccuserID,
			"accused_id":  pp.AccusedID,
			"outstanding": stringsValue(pp.Outstanding),
			"pile_count":  pp.PileCount,
		}
	}
	return v
}

func resultValue(r ports.GameResult) map[string]interface{} {
	v := map[string]interface{}{
		"game_id":   r.GameID,
		"winner_id": r.WinnerID,
		"loser_id":  r.LoserID,
		"rankings":  stringsValue(r.Rankings),
	}
	if !r.FinishedAt.IsZero() {
		v["finished_at_unix_ms"] = r.FinishedAt.UnixMilli()
	}
	if r.Receipt != "" {
		v["receipt"] = r.Receipt
	}
	return v
}

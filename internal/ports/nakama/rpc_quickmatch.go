package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"
)

// quickMatchResponse is the payload returned to clients requesting a
// room-capable match without a room code.
type quickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// rpcQuickMatch finds any CardRush match still in its lobby phase with an
// open seat, or creates a fresh one. Grounded on the teacher's rpcQuickMatch,
// generalized from a fixed 4-seat cap to config.GetGameConfig().MaxPlayers.
func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	query := "+label.state:lobby +label.open:>=1"

	limit := 10
	authoritative := true
	minSize := 1
	maxSize := 0 // no server-side max: open-seat label already excludes full rooms

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, nilIfZero(maxSize), query)
	if err != nil {
		logger.Error("rpcQuickMatch: MatchList failed: %v", err)
		return "", err
	}

	if len(matches) > 0 {
		resp, _ := json.Marshal(quickMatchResponse{MatchID: matches[0].MatchId, IsNew: false})
		return string(resp), nil
	}

	code, err := roomRegistry.Generate()
	if err != nil {
		logger.Error("rpcQuickMatch: failed to generate room code: %v", err)
		return "", err
	}
	matchID, err := nk.MatchCreate(ctx, MatchNameCardRush, map[string]interface{}{"room_code": code})
	if err != nil {
		logger.Error("rpcQuickMatch: MatchCreate failed: %v", err)
		return "", err
	}
	roomRegistry.Put(code, matchID)

	resp, _ := json.Marshal(quickMatchResponse{MatchID: matchID, IsNew: true})
	return string(resp), nil
}

func nilIfZero(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

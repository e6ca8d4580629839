package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"
)

// createRoomResponse is create_room's ack(room_code) payload (spec.md §6).
type createRoomResponse struct {
	RoomCode string `json:"room_code"`
}

// rpcCreateRoomRequest is create_room's RPC request body.
type rpcCreateRoomRequest struct {
	Name string `json:"name"`
}

// rpcCreateRoom generates a unique room code, spins up the authoritative
// match for it, and records the code -> match id mapping in the process-wide
// Room Registry so a later join_room RPC (or reconnect) can find it. Grounded on the teacher's RpcFindMatch's MatchCreate call, generalized
// from "any open match" lookup to "this specific room code" lookup.
func rpcCreateRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req rpcCreateRoomRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		logger.Warn("RpcCreateRoom: invalid payload: %v", err)
		return "", err
	}

	code, err := roomRegistry.Generate()
	if err != nil {
		logger.Error("RpcCreateRoom: failed to generate room code: %v", err)
		return "", err
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameCardRush, map[string]interface{}{"room_code": code})
	if err != nil {
		logger.Error("RpcCreateRoom: failed to create match for room %s: %v", code, err)
		return "", err
	}
	roomRegistry.Put(code, matchID)

	resp, err := json.Marshal(createRoomResponse{RoomCode: code})
	if err != nil {
		return "", err
	}
	logger.Info("RpcCreateRoom: created room %s (match %s)", code, matchID)
	return string(resp), nil
}

// rpcJoinRoomRequest is join_room's RPC request body.
type rpcJoinRoomRequest struct {
	RoomCode string `json:"room_code"`
}

// joinRoomResponse resolves a room_code to the match id the client should
// join over the realtime socket; actual seat admission happens inside the
// match via the join_room opcode once connected.
type joinRoomResponse struct {
	MatchID string `json:"match_id"`
}

// rpcJoinRoom resolves a room code to its match id for the client to join.
func rpcJoinRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req rpcJoinRoomRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		logger.Warn("RpcJoinRoom: invalid payload: %v", err)
		return "", err
	}

	matchID, ok := roomRegistry.Get(req.RoomCode)
	if !ok {
		return "", errRoomNotFound
	}

	resp, err := json.Marshal(joinRoomResponse{MatchID: matchID})
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

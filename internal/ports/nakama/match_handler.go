package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"time"

	"cardrush/internal/auth"
	"cardrush/internal/config"
	"cardrush/internal/domain"
	"cardrush/internal/outcome"
	"cardrush/internal/room"

	"github.com/heroiclabs/nakama-common/runtime"
)

// matchLabel is the JSON match label Nakama indexes for nk.MatchList queries,
// grounded on the teacher's pb.MatchLabel (here JSON instead of protobuf,
// per SPEC_FULL.md §6's wire-codec decision).
type matchLabel struct {
	Open  int    `json:"open"`
	State string `json:"state"`
}

// MatchState holds the authoritative runtime state for one CardRush match.
// Grounded on the teacher's MatchState (Seats/Presences/App/Game), rehomed
// onto room.Coordinator (which already owns seat/connection bookkeeping and
// the domain.Engine) instead of a parallel seat array.
type MatchState struct {
	Coordinator *room.Coordinator
	Presences   map[string]runtime.Presence // connID (session id) -> presence
}

func newMatchHandler() *matchHandler { return &matchHandler{} }

type matchHandler struct{}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return newMatchHandler(), nil
}

// MatchInit is called when the match is created, either by create_room's
// RPC-side nk.MatchCreate call or by quick_match.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: could not load game config, using defaults: %v", err)
	}
	cfg := config.GetGameConfig()
	roomCode, _ := params["room_code"].(string)

	coordinator := room.NewCoordinator(
		roomCode,
		domain.Config{
			MinPlayers:    cfg.MinPlayers,
			MaxPlayers:    cfg.MaxPlayers,
			HandSize:      cfg.HandSize,
			PowerCardCost: cfg.PowerCardCost,
			PowerBagSize:  cfg.PowerBagSize,
		},
		cfg.TurnTimeoutSeconds,
		rand.New(rand.NewSource(time.Now().UnixNano())),
		outcome.NewNakamaReporter(nk, logger),
		logger,
	)

	state := &MatchState{
		Coordinator: coordinator,
		Presences:   make(map[string]runtime.Presence),
	}

	labelBytes, err := json.Marshal(matchLabel{Open: cfg.MaxPlayers, State: "lobby"})
	if err != nil {
		logger.Error("MatchInit: failed to marshal label: %v", err)
		return nil, 0, ""
	}

	const tickRate = 1 // 1 Hz; the turn timer counts ticks (SPEC_FULL.md §5).
	return state, tickRate, string(labelBytes)
}

// MatchJoinAttempt always admits the attempt; room.Coordinator.Join performs
// the real capacity/name/in-progress checks once the presence actually joins,
// since create_room/join_room's ack (success, reason) round-trips through the
// room-level response, not the low-level match-join handshake.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	return state, true, ""
}

// MatchJoin binds newly connected presences to the room once their join
// request (name, optional room_code) arrives over MatchLoop, mirroring the
// teacher's MatchJoin recording presences before any game semantics run.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}
	for _, p := range presences {
		matchState.Presences[p.GetSessionId()] = p
	}
	return matchState
}

// MatchLeave unbinds presences and lets the Coordinator decide seat/host
// fallout, per spec.md §4.4's disconnect(conn) semantics (seat retained for
// rejoin, not fully removed — explicit leave_room is a separate opcode).
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}
	for _, p := range presences {
		delete(matchState.Presences, p.GetSessionId())
		events := matchState.Coordinator.Disconnect(p.GetSessionId())
		mh.dispatchAll(matchState, dispatcher, logger, events)
	}
	if matchState.Coordinator.IsEmpty() {
		logger.Info("MatchLeave: room %s empty, terminating.", matchState.Coordinator.Code)
		return nil
	}
	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLoop is the single-threaded heart of the match: it drains inbound
// opcodes into room.Coordinator calls and drives the turn timer, grounded on
// the teacher's MatchLoop opcode switch.
func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	for _, msg := range messages {
		mh.handleMessage(ctx, matchState, dispatcher, logger, msg)
	}

	if events := matchState.Coordinator.Tick(); events != nil {
		mh.dispatchAll(matchState, dispatcher, logger, events)
	}

	if matchState.Coordinator.IsEmpty() {
		return nil
	}
	return matchState
}

func (mh *matchHandler) handleMessage(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	connID := msg.GetSessionId()
	c := state.Coordinator

	switch msg.GetOpCode() {
	case OpJoinRoom:
		var req joinRoomRequest
		if err := json.Unmarshal(msg.GetData(), &req); err != nil {
			logger.Warn("handleMessage: invalid join_room payload from %s: %v", connID, err)
			return
		}
		userID := msg.GetUserId()
		_, events, err := c.Join(connID, req.Name, userID)
		if err != nil {
			mh.sendError(state, dispatcher, logger, connID, err)
			return
		}
		mh.dispatchAll(state, dispatcher, logger, events)
		mh.updateLabel(state, dispatcher, logger)

	case OpStartGame:
		events, err := c.StartGame(connID)
		if err != nil {
			mh.sendError(state, dispatcher, logger, connID, err)
			return
		}
		mh.dispatchAll(state, dispatcher, logger, events)
		mh.updateLabel(state, dispatcher, logger)

	case OpPlayCard:
		var req playCardRequest
		if err := json.Unmarshal(msg.GetData(), &req); err != nil {
			logger.Warn("handleMessage: invalid play_card payload from %s: %v", connID, err)
			return
		}
		mh.dispatchAll(state, dispatcher, logger, c.PlayCard(connID, req.CardID, req.ChosenColor))

	case OpDrawCard:
		mh.dispatchAll(state, dispatcher, logger, c.Draw(connID))

	case OpDrawPowerCard:
		mh.dispatchAll(state, dispatcher, logger, c.DrawPowerCard(connID))

	case OpPlayPowerCard:
		var req playPowerCardRequest
		if err := json.Unmarshal(msg.GetData(), &req); err != nil {
			logger.Warn("handleMessage: invalid play_power_card payload from %s: %v", connID, err)
			return
		}
		mh.dispatchAll(state, dispatcher, logger, c.PlayPowerCard(connID, req.toDomain()))

	case OpLeaveRoom:
		events := c.Leave(connID)
		mh.dispatchAll(state, dispatcher, logger, events)
		mh.updateLabel(state, dispatcher, logger)

	case OpUpdateAuth:
		var req updateAuthRequest
		if err := json.Unmarshal(msg.GetData(), &req); err != nil {
			logger.Warn("handleMessage: invalid update_auth payload from %s: %v", connID, err)
			return
		}
		userID, err := auth.ResolveUserID(req.Token)
		if err != nil {
			logger.Warn("handleMessage: update_auth could not resolve user id for %s: %v", connID, err)
			return
		}
		c.UpdateAuth(connID, userID)

	case OpSendEmote:
		// send_emote is a stateless broadcast (spec.md §6, non-core): relay
		// the raw payload to the room without touching the Coordinator.
		if presences := mh.allPresences(state); len(presences) > 0 {
			dispatcher.BroadcastMessage(OpEmote, msg.GetData(), presences, nil, true)
		}

	default:
		logger.Warn("handleMessage: unknown opcode %d from %s", msg.GetOpCode(), connID)
	}
}

// dispatchAll translates room.Event values into wire messages and sends them,
// grounded on the teacher's broadcastEvent's recipient-resolution shape.
func (mh *matchHandler) dispatchAll(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []room.Event) {
	for _, ev := range events {
		opCode, data, err := encodeEvent(ev)
		if err != nil {
			logger.Error("dispatchAll: %v", err)
			continue
		}

		if len(ev.Recipients) == 0 {
			dispatcher.BroadcastMessage(opCode, data, nil, nil, true)
			continue
		}

		presences := mh.presencesFor(state, ev.Recipients)
		if len(presences) == 0 {
			// Intended recipients exist but none are connected right now
			// (e.g. mid-disconnect); must not fall back to a broadcast.
			continue
		}
		dispatcher.BroadcastMessage(opCode, data, presences, nil, true)
	}
}

func (mh *matchHandler) presencesFor(state *MatchState, playerIDs []domain.PlayerID) []runtime.Presence {
	var out []runtime.Presence
	for _, playerID := range playerIDs {
		connID, ok := state.Coordinator.ConnForPlayer(playerID)
		if !ok {
			continue
		}
		if p, ok := state.Presences[connID]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (mh *matchHandler) allPresences(state *MatchState) []runtime.Presence {
	out := make([]runtime.Presence, 0, len(state.Presences))
	for _, p := range state.Presences {
		out = append(out, p)
	}
	return out
}

func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, connID string, err error) {
	p, ok := state.Presences[connID]
	if !ok {
		logger.Warn("sendError: presence not found for conn %s", connID)
		return
	}
	data, marshalErr := json.Marshal(room.ErrorPayload{Message: err.Error()})
	if marshalErr != nil {
		logger.Error("sendError: failed to marshal: %v", marshalErr)
		return
	}
	dispatcher.BroadcastMessage(OpError, data, []runtime.Presence{p}, nil, true)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	labelState := "lobby"
	if state.Coordinator.CurrentStatus() == room.StatusInProgress {
		labelState = "playing"
	}
	labelBytes, err := json.Marshal(matchLabel{Open: state.Coordinator.OpenSeats(), State: labelState})
	if err != nil {
		logger.Error("updateLabel: failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("updateLabel: failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: match terminated, reason=%d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

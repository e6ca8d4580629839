package nakama

import (
	"encoding/json"
	"fmt"

	"cardrush/internal/domain"
	"cardrush/internal/room"
)

// Client -> server request bodies, JSON-decoded from runtime.MatchData.GetData().
// Grounded on the teacher's own flat top-level prototype (match.go in
// _examples/LarryBui-ThirteenV4), which decodes every inbound opcode with
// encoding/json rather than generated protobuf types.

type createRoomRequest struct {
	Name string `json:"name"`
}

type joinRoomRequest struct {
	RoomCode string `json:"room_code"`
	Name     string `json:"name"`
}

type playCardRequest struct {
	CardID      domain.CardID `json:"card_id"`
	ChosenColor *domain.Color `json:"chosen_color,omitempty"`
}

type playPowerCardRequest struct {
	CardID         domain.PowerCardID `json:"card_id"`
	TargetPlayerID *domain.PlayerID   `json:"target_player_id,omitempty"`
	Color          *domain.Color      `json:"color,omitempty"`
}

func (r playPowerCardRequest) toDomain() domain.PlayPowerCardRequest {
	return domain.PlayPowerCardRequest{
		CardID:         r.CardID,
		TargetPlayerID: r.TargetPlayerID,
		Color:          r.Color,
	}
}

type updateAuthRequest struct {
	Token string `json:"token"`
}

// eventOpCode maps a room.Event's Kind to its wire op code.
func eventOpCode(kind room.EventKind) (int64, error) {
	switch kind {
	case room.EventLobbyUpdate:
		return OpLobbyUpdate, nil
	case room.EventGameStarted:
		return OpGameStarted, nil
	case room.EventStateUpdate:
		return OpStateUpdate, nil
	case room.EventHandUpdate:
		return OpHandUpdate, nil
	case room.EventPowerStateUpdate:
		return OpPowerStateUpdate, nil
	case room.EventRushAlert:
		return OpRushAlert, nil
	case room.EventGameEnded:
		return OpGameEnded, nil
	case room.EventError:
		return OpError, nil
	case room.EventPlayerIdentified:
		return OpPlayerIdentified, nil
	default:
		return 0, fmt.Errorf("unknown event kind: %s", kind)
	}
}

// encodeEvent renders a room.Event as the (opcode, JSON body) pair dispatched
// over runtime.MatchDispatcher.BroadcastMessage.
func encodeEvent(ev room.Event) (int64, []byte, error) {
	opCode, err := eventOpCode(ev.Kind)
	if err != nil {
		return 0, nil, err
	}
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal %s payload: %w", ev.Kind, err)
	}
	return opCode, data, nil
}

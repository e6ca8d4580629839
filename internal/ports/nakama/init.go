package nakama

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"time"

	"cardrush/internal/registry"

	"github.com/heroiclabs/nakama-common/runtime"
)

// errRoomNotFound is returned by rpcJoinRoom when the room code has no live
// match registered, per spec.md §4.4's join_room "Room not found" reason.
var errRoomNotFound = errors.New("room not found")

// roomRegistry is the process-wide room code -> match id lookup (spec.md
// §4.5), grounded on the teacher's sync.Once-guarded package-level maps in
// bot/identities.go, generalized to internal/registry.Registry.
var roomRegistry = registry.New[string](rand.New(rand.NewSource(time.Now().UnixNano())))

// InitModule wires RPCs and the match handler for the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcCreateRoom, rpcCreateRoom); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcJoinRoom, rpcJoinRoom); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameCardRush, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(), nil
	}); err != nil {
		return err
	}

	logger.Info("CardRush Go module loaded.")
	return nil
}

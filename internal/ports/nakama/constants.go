package nakama

const (
	// RpcCreateRoom is the Nakama RPC id clients call to mint a new room.
	RpcCreateRoom = "create_room"

	// RpcJoinRoom is the Nakama RPC id clients call to resolve a room code
	// to the match id they should join over the realtime socket.
	RpcJoinRoom = "join_room"

	// RpcQuickMatch is the Nakama RPC id clients call to find or create a room-capable match.
	RpcQuickMatch = "quick_match"

	// MatchNameCardRush is the authoritative match handler name registered with Nakama.
	MatchNameCardRush = "cardrush_match"
)

// Op codes for client messages and server events, per spec.md §6.
const (
	// Client -> Server
	OpCreateRoom    int64 = 1
	OpJoinRoom      int64 = 2
	OpStartGame     int64 = 3
	OpPlayCard      int64 = 4
	OpDrawCard      int64 = 5
	OpDrawPowerCard int64 = 6
	OpPlayPowerCard int64 = 7
	OpLeaveRoom     int64 = 8
	OpSendEmote     int64 = 9
	OpUpdateAuth    int64 = 10

	// Server -> Client events
	OpLobbyUpdate      int64 = 101
	OpGameStarted      int64 = 102 // send privately
	OpStateUpdate      int64 = 103
	OpHandUpdate       int64 = 104 // send privately
	OpPowerStateUpdate int64 = 105 // send privately
	OpRushAlert        int64 = 106
	OpGameEnded        int64 = 107
	OpError            int64 = 108 // send privately
	OpPlayerIdentified int64 = 109 // send privately
	OpEmote            int64 = 110
)

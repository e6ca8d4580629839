// Package room implements the Room Coordinator of spec.md §4.4: the
// per-room lobby/game orchestrator that wraps a domain.Engine, tracks
// connection<->player bindings, runs the post-mutation emission pipeline,
// and drives the turn timer. Grounded on the teacher's internal/app
// package (Service + Event) merged with match_handler.go's per-match
// state ownership (connection maps, tick-driven timers).
package room

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"cardrush/internal/domain"
	"cardrush/internal/outcome"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Status is the room's lobby/game phase.
type Status int

const (
	StatusWaiting Status = iota
	StatusInProgress
)

// Player is the Coordinator's waiting-room view of a seated participant;
// domain.Player (hidden hand, power inventory) only exists once the engine
// is built.
type Player struct {
	ID        domain.PlayerID
	Name      string
	UserID    string // external auth user id; "" for an anonymous seat
	Connected bool
}

// Coordinator owns one room's lifecycle end to end, per spec.md §4.4. It
// assumes single-threaded access (spec.md §5); callers (the Nakama match
// loop) must serialize calls to it.
type Coordinator struct {
	Code string

	cfg                domain.Config
	turnTimeoutSeconds int
	rng                *rand.Rand
	reporter           outcome.Reporter
	logger             runtime.Logger

	players      []*Player
	hostPlayerID domain.PlayerID
	status       Status
	nextSeatSeq  int

	engine *domain.Engine

	connByPlayer map[domain.PlayerID]string
	playerByConn map[string]domain.PlayerID

	ticksSinceAction int
}

// NewCoordinator constructs an empty, waiting-room Coordinator for a
// freshly allocated room code.
func NewCoordinator(code string, cfg domain.Config, turnTimeoutSeconds int, rng *rand.Rand, reporter outcome.Reporter, logger runtime.Logger) *Coordinator {
	return &Coordinator{
		Code:                code,
		cfg:                 cfg,
		turnTimeoutSeconds:  turnTimeoutSeconds,
		rng:                 rng,
		reporter:            reporter,
		logger:              logger,
		status:              StatusWaiting,
		connByPlayer:        make(map[domain.PlayerID]string),
		playerByConn:        make(map[string]domain.PlayerID),
	}
}

// IsEmpty reports whether the room has no seated players. The Nakama match
// handler ends the match when it does; the room code's Room Registry entry
// is not removed.
func (c *Coordinator) IsEmpty() bool { return len(c.players) == 0 }

// CurrentStatus returns the room's current lobby/game phase.
func (c *Coordinator) CurrentStatus() Status { return c.status }

// ConnForPlayer resolves a seated player's currently bound connection id, if
// any, for transport-layer recipient resolution.
func (c *Coordinator) ConnForPlayer(playerID domain.PlayerID) (string, bool) {
	connID, ok := c.connByPlayer[playerID]
	return connID, ok
}

// OpenSeats reports the number of unfilled seats, for the match label the
// Nakama transport layer indexes via nk.MatchList.
func (c *Coordinator) OpenSeats() int {
	if c.cfg.MaxPlayers <= len(c.players) {
		return 0
	}
	return c.cfg.MaxPlayers - len(c.players)
}

// Join implements both create_room's "create first player (host)" and
// join_room's admission/rejoin rules (spec.md §4.4), since the only
// difference between them is whether the room already has players.
func (c *Coordinator) Join(connID, name, userID string) (domain.PlayerID, []Event, error) {
	name = strings.TrimSpace(name)

	// First seat: this is a create_room, always succeeds and becomes host.
	if len(c.players) == 0 {
		p := c.seatNewPlayer(connID, name, userID)
		c.hostPlayerID = p.ID
		return p.ID, []Event{c.lobbyUpdateEvent(), c.playerIdentifiedEvent(p.ID)}, nil
	}

	// Rejoin-by-name: a disconnected seat with a case-insensitive name match.
	for _, p := range c.players {
		if !p.Connected && strings.EqualFold(p.Name, name) {
			p.Connected = true
			if userID != "" {
				p.UserID = userID
			}
			c.bindConn(connID, p.ID)

			events := []Event{c.playerIdentifiedEvent(p.ID)}
			if c.status == StatusInProgress && c.engine != nil {
				events = append(events, Event{
					Kind: EventGameStarted,
					Payload: GameStartedPayload{
						PublicState: c.engine.PublicState(c.hostPlayerID),
						Hand:        c.engine.Hand(p.ID),
					},
					Recipients: []domain.PlayerID{p.ID},
				}, c.powerStateEvent(p.ID))
			} else {
				events = append(events, c.lobbyUpdateEvent())
			}
			return p.ID, events, nil
		}
	}

	if c.status != StatusWaiting {
		return "", nil, ErrGameInProgress
	}
	if len(c.players) >= c.cfg.MaxPlayers {
		return "", nil, ErrRoomFull
	}
	for _, p := range c.players {
		if strings.EqualFold(p.Name, name) {
			return "", nil, ErrNameInUse
		}
	}

	p := c.seatNewPlayer(connID, name, userID)
	return p.ID, []Event{c.lobbyUpdateEvent(), c.playerIdentifiedEvent(p.ID)}, nil
}

func (c *Coordinator) seatNewPlayer(connID, name, userID string) *Player {
	c.nextSeatSeq++
	p := &Player{
		ID:        domain.PlayerID(fmt.Sprintf("p%d", c.nextSeatSeq)),
		Name:      name,
		UserID:    userID,
		Connected: true,
	}
	c.players = append(c.players, p)
	c.bindConn(connID, p.ID)
	return p
}

func (c *Coordinator) bindConn(connID string, playerID domain.PlayerID) {
	c.connByPlayer[playerID] = connID
	c.playerByConn[connID] = playerID
}

// StartGame implements spec.md §4.4's start_game bullet.
func (c *Coordinator) StartGame(connID string) ([]Event, error) {
	playerID, ok := c.playerByConn[connID]
	if !ok {
		return nil, domain.ErrUnknownPlayer
	}
	if playerID != c.hostPlayerID {
		return nil, ErrNotHost
	}
	if c.status != StatusWaiting {
		return nil, ErrGameInProgress
	}
	if len(c.players) < c.cfg.MinPlayers {
		return nil, ErrTooFewPlayers
	}

	seats := make([]domain.SeatInfo, len(c.players))
	for i, p := range c.players {
		seats[i] = domain.SeatInfo{ID: p.ID, Name: p.Name}
	}
	engine, err := domain.NewEngine(c.rng, c.cfg, seats)
	if err != nil {
		return nil, err
	}
	c.engine = engine
	c.status = StatusInProgress
	c.ticksSinceAction = 0

	pub := engine.PublicState(c.hostPlayerID)
	events := make([]Event, 0, len(c.players)*2)
	for _, p := range c.players {
		events = append(events, Event{
			Kind:       EventGameStarted,
			Payload:    GameStartedPayload{PublicState: pub, Hand: engine.Hand(p.ID)},
			Recipients: []domain.PlayerID{p.ID},
		})
		events = append(events, c.powerStateEvent(p.ID))
	}
	return events, nil
}

// PlayCard implements spec.md §4.3 play_card, wired through the post-
// mutation pipeline.
func (c *Coordinator) PlayCard(connID string, cardID domain.CardID, chosenColor *domain.Color) []Event {
	return c.act(connID, func(playerID domain.PlayerID) (domain.Result, error) {
		return c.engine.PlayCard(playerID, cardID, chosenColor)
	})
}

// Draw implements spec.md §4.3 draw.
func (c *Coordinator) Draw(connID string) []Event {
	return c.act(connID, func(playerID domain.PlayerID) (domain.Result, error) {
		return c.engine.Draw(playerID)
	})
}

// DrawPowerCard implements spec.md §4.3 draw_power_card.
func (c *Coordinator) DrawPowerCard(connID string) []Event {
	return c.act(connID, func(playerID domain.PlayerID) (domain.Result, error) {
		return c.engine.DrawPowerCard(playerID)
	})
}

// PlayPowerCard implements spec.md §4.3 play_power_card.
func (c *Coordinator) PlayPowerCard(connID string, req domain.PlayPowerCardRequest) []Event {
	return c.act(connID, func(playerID domain.PlayerID) (domain.Result, error) {
		return c.engine.PlayPowerCard(playerID, req)
	})
}

// act resolves connID to a player, requires a started engine, invokes op,
// and on failure emits a connection-local error event instead of running
// the pipeline (spec.md §4.4: "on failure emit error to the originating
// connection only").
func (c *Coordinator) act(connID string, op func(domain.PlayerID) (domain.Result, error)) []Event {
	playerID, ok := c.playerByConn[connID]
	if !ok {
		return nil
	}
	if c.engine == nil {
		return []Event{c.errorEvent(playerID, domain.ErrGameNotStarted)}
	}

	before := c.handCounts()
	res, err := op(playerID)
	if err != nil {
		return []Event{c.errorEvent(playerID, err)}
	}
	return c.postMutationPipeline(playerID, res, before)
}

func (c *Coordinator) handCounts() map[domain.PlayerID]int {
	if c.engine == nil {
		return nil
	}
	counts := make(map[domain.PlayerID]int, len(c.players))
	for _, ps := range c.engine.PublicState(c.hostPlayerID).Players {
		counts[ps.ID] = ps.CardCount
	}
	return counts
}

// postMutationPipeline runs spec.md §4.4's fixed 7-step emission sequence.
func (c *Coordinator) postMutationPipeline(actorID domain.PlayerID, res domain.Result, before map[domain.PlayerID]int) []Event {
	var events []Event
	emitted := make(map[domain.PlayerID]bool)

	// 1. engine-reported affected ids.
	for _, id := range res.AffectedPlayerIDs {
		events = append(events, c.handUpdateEvent(id))
		emitted[id] = true
	}
	// 2. drain pending_hand_syncs for anything not already emitted.
	for _, id := range c.engine.DrainHandSyncs() {
		if !emitted[id] {
			events = append(events, c.handUpdateEvent(id))
			emitted[id] = true
		}
	}
	// 3. power state for the actor.
	events = append(events, c.powerStateEvent(actorID))

	// 4. rush alerts for anyone who crossed into hand-size 1.
	pub := c.engine.PublicState(c.hostPlayerID)
	for _, ps := range pub.Players {
		if ps.CardCount == 1 && before[ps.ID] != 1 {
			events = append(events, Event{
				Kind:    EventRushAlert,
				Payload: RushAlertPayload{PlayerID: ps.ID, PlayerName: ps.Name},
			})
		}
	}

	// 5. public state broadcast.
	events = append(events, Event{Kind: EventStateUpdate, Payload: StateUpdatePayload{PublicState: pub}})

	// 6/7. game end, or reschedule the turn timer. Only a mutation that
	// actually progresses the turn (spec.md §4.4.1) resets the clock; e.g.
	// a play_power_card that doesn't advance play must not grant the actor
	// a fresh 60s on the same turn.
	if res.WinnerID != "" {
		events = append(events, c.finishGame(res.WinnerID)...)
	} else if res.TurnAdvanced {
		c.ticksSinceAction = 0
	}
	return events
}

// Tick advances the turn timer by one second (spec.md §4.4.1); call once
// per Nakama match loop invocation.
func (c *Coordinator) Tick() []Event {
	if c.status != StatusInProgress || c.engine == nil {
		return nil
	}
	c.ticksSinceAction++
	if c.ticksSinceAction < c.turnTimeoutSeconds {
		return nil
	}
	c.ticksSinceAction = 0

	cur := c.engine.CurrentPlayerID()
	if cur == "" {
		return nil
	}
	before := c.handCounts()

	var (
		res domain.Result
		err error
	)
	if c.engine.PendingPowerDrawPlayerID() == cur {
		res, err = c.engine.DrawPowerCard(cur)
	} else {
		res, err = c.engine.Draw(cur)
	}
	if err != nil {
		if c.logger != nil {
			c.logger.Error("room %s: turn timer action failed for %s: %v", c.Code, cur, err)
		}
		return nil
	}
	return c.postMutationPipeline(cur, res, before)
}

// Disconnect implements spec.md §4.4's disconnect(conn): the seat is
// retained (for rejoin-by-name) but marked not-connected.
func (c *Coordinator) Disconnect(connID string) []Event {
	playerID, ok := c.playerByConn[connID]
	if !ok {
		return nil
	}
	delete(c.playerByConn, connID)
	delete(c.connByPlayer, playerID)

	if p := c.player(playerID); p != nil {
		p.Connected = false
	}

	if c.status == StatusWaiting && c.hostPlayerID == playerID {
		for _, p := range c.players {
			if p.Connected {
				c.hostPlayerID = p.ID
				break
			}
		}
	}
	return []Event{c.lobbyUpdateEvent()}
}

// Leave implements spec.md §4.4's leave_room(conn): the seat is freed
// entirely.
func (c *Coordinator) Leave(connID string) []Event {
	playerID, ok := c.playerByConn[connID]
	if !ok {
		return nil
	}
	delete(c.playerByConn, connID)
	delete(c.connByPlayer, playerID)
	c.removeSeat(playerID)

	if c.hostPlayerID == playerID && len(c.players) > 0 {
		c.hostPlayerID = c.players[0].ID
		for _, p := range c.players {
			if p.Connected {
				c.hostPlayerID = p.ID
				break
			}
		}
	}

	if c.status == StatusInProgress && c.engine != nil {
		res, err := c.engine.RemovePlayer(playerID)
		if err != nil {
			return nil
		}
		pub := c.engine.PublicState(c.hostPlayerID)
		events := []Event{{Kind: EventStateUpdate, Payload: StateUpdatePayload{PublicState: pub}}}
		if res.WinnerID != "" {
			events = append(events, c.finishGame(res.WinnerID)...)
		}
		return events
	}
	return []Event{c.lobbyUpdateEvent()}
}

func (c *Coordinator) removeSeat(playerID domain.PlayerID) {
	for i, p := range c.players {
		if p.ID == playerID {
			c.players = append(c.players[:i], c.players[i+1:]...)
			return
		}
	}
}

func (c *Coordinator) player(playerID domain.PlayerID) *Player {
	for _, p := range c.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// finishGame reports outcomes to the external collaborator (best-effort)
// and resets the room to waiting, per spec.md §4.4 step 6.
func (c *Coordinator) finishGame(winnerID domain.PlayerID) []Event {
	scores := c.engine.Scores()

	var outcomes []outcome.PlayerOutcome
	for _, p := range c.players {
		if p.UserID != "" {
			outcomes = append(outcomes, outcome.PlayerOutcome{UserID: p.UserID, DidWin: p.ID == winnerID})
		}
	}
	if c.reporter != nil && len(outcomes) > 0 {
		if err := c.reporter.ReportOutcomes(context.Background(), c.Code, outcomes); err != nil && c.logger != nil {
			c.logger.Error("room %s: failed to report outcomes: %v", c.Code, err)
		}
	}

	c.engine = nil
	c.status = StatusWaiting
	c.ticksSinceAction = 0

	return []Event{{Kind: EventGameEnded, Payload: GameEndedPayload{WinnerID: winnerID, Scores: scores}}}
}

func (c *Coordinator) lobbyUpdateEvent() Event {
	lobby := LobbyState{RoomCode: c.Code, HostPlayerID: c.hostPlayerID}
	for _, p := range c.players {
		lobby.Players = append(lobby.Players, LobbyPlayer{ID: p.ID, Name: p.Name, Connected: p.Connected})
	}
	return Event{Kind: EventLobbyUpdate, Payload: LobbyUpdatePayload{Lobby: lobby}}
}

func (c *Coordinator) playerIdentifiedEvent(playerID domain.PlayerID) Event {
	return Event{
		Kind:       EventPlayerIdentified,
		Payload:    PlayerIdentifiedPayload{PlayerID: playerID},
		Recipients: []domain.PlayerID{playerID},
	}
}

func (c *Coordinator) handUpdateEvent(playerID domain.PlayerID) Event {
	return Event{
		Kind:       EventHandUpdate,
		Payload:    HandUpdatePayload{Cards: c.engine.Hand(playerID)},
		Recipients: []domain.PlayerID{playerID},
	}
}

func (c *Coordinator) powerStateEvent(playerID domain.PlayerID) Event {
	ps := c.engine.PowerState(playerID)
	return Event{
		Kind:       EventPowerStateUpdate,
		Payload:    PowerStateUpdatePayload{Points: ps.Points, Cards: ps.Cards, RequiredDraws: ps.RequiredDraws},
		Recipients: []domain.PlayerID{playerID},
	}
}

func (c *Coordinator) errorEvent(playerID domain.PlayerID, err error) Event {
	return Event{
		Kind:       EventError,
		Payload:    ErrorPayload{Message: err.Error()},
		Recipients: []domain.PlayerID{playerID},
	}
}

// UpdateAuth rebinds the connection's external user id (spec.md §6
// update_auth), grounded on the teacher's AfterAuthenticateDevice binding
// a freshly resolved user id onto the current session.
func (c *Coordinator) UpdateAuth(connID, userID string) {
	playerID, ok := c.playerByConn[connID]
	if !ok {
		return
	}
	if p := c.player(playerID); p != nil {
		p.UserID = userID
	}
}

package domain

import (
	"math/rand"
	"time"
)

// Config holds the engine's tunable constants (spec.md §4.1, §4.3).
type Config struct {
	MinPlayers    int
	MaxPlayers    int
	HandSize      int
	PowerCardCost int
	PowerBagSize  int
}

// DefaultConfig returns the constants named in spec.md: 2-6 players, a
// 7-card opening hand, a power-card cost of 4 points.
func DefaultConfig() Config {
	return Config{
		MinPlayers:    2,
		MaxPlayers:    6,
		HandSize:      7,
		PowerCardCost: 4,
		PowerBagSize:  20,
	}
}

// SeatInfo is the minimal identity the Room Coordinator hands the engine
// at start() time; the engine owns everything else (hands, points, ...).
type SeatInfo struct {
	ID   PlayerID
	Name string
}

// Result is the structured outcome of an Engine mutation. Only the fields
// relevant to the call are populated; the zero value means "success, turn
// not advanced" (e.g. a power-card play). TurnAdvanced is set whenever the
// call moved the turn cursor.
type Result struct {
	WinnerID          PlayerID
	PowerDrawRequired bool
	AffectedPlayerIDs []PlayerID
	TurnAdvanced      bool
}

// Engine is the per-room authoritative state machine of spec.md §3/§4.3.
// All of its methods assume single-threaded-per-room access (spec.md §5);
// it performs no I/O and never suspends.
type Engine struct {
	rng *rand.Rand
	cfg Config

	players []*Player // seat order

	deck      []Card // top = front (index 0)
	discard   []Card // top = back (last index)
	powerDeck []PowerCard

	turnIndex    int
	direction    Direction
	drawStack    int
	currentColor Color

	pendingPowerDrawPlayerID PlayerID
	winnerID                 PlayerID

	pendingHandSyncs map[PlayerID]bool

	startedAt time.Time

	nextCardID      CardID
	nextPowerCardID PowerCardID
}

// NewEngine deals a fresh game for the given seats, per spec.md §4.3 start().
func NewEngine(rng *rand.Rand, cfg Config, seats []SeatInfo) (*Engine, error) {
	if len(seats) < cfg.MinPlayers {
		return nil, ErrTooFewPlayers
	}
	if len(seats) > cfg.MaxPlayers {
		return nil, ErrTooManyPlayers
	}

	e := &Engine{
		rng:              rng,
		cfg:              cfg,
		pendingHandSyncs: make(map[PlayerID]bool),
	}
	for _, s := range seats {
		e.players = append(e.players, &Player{ID: s.ID, Name: s.Name})
	}

	deck := NewDeck(&e.nextCardID)
	ShuffleDeck(rng, deck)

	for _, p := range e.players {
		p.Hand = append([]Card{}, deck[:cfg.HandSize]...)
		deck = deck[cfg.HandSize:]
		e.updateCalledUno(p)
	}

	// Rotate wild/wild4 cards to the bottom and reshuffle until a
	// non-wild card surfaces as the initial discard top (spec.md §4.3).
	var initial Card
	for {
		top := deck[0]
		deck = deck[1:]
		if top.Color != Wild {
			initial = top
			break
		}
		deck = append(deck, top)
		ShuffleDeck(rng, deck)
	}

	e.deck = deck
	e.discard = []Card{initial}
	e.currentColor = initial.Color
	e.direction = Clockwise
	e.drawStack = 0
	e.turnIndex = 0
	e.startedAt = time.Now()
	e.powerDeck = NewPowerBag(rng, &e.nextPowerCardID, cfg.PowerBagSize)

	return e, nil
}

// --- read accessors used by the Room Coordinator -----------------------

// CurrentPlayerID returns the id of the player whose turn it is. Empty
// once WinnerID is set (I7).
func (e *Engine) CurrentPlayerID() PlayerID {
	if e.winnerID != "" {
		return ""
	}
	return e.players[e.turnIndex].ID
}

// WinnerID returns the winning player's id, or "" if the game is ongoing.
func (e *Engine) WinnerID() PlayerID { return e.winnerID }

// PendingPowerDrawPlayerID returns the player currently gated on a forced
// power-card draw, or "" if none.
func (e *Engine) PendingPowerDrawPlayerID() PlayerID { return e.pendingPowerDrawPlayerID }

// StartedAt returns the timestamp start() was called.
func (e *Engine) StartedAt() time.Time { return e.startedAt }

// Hand returns a copy of the given player's hand, for a private hand_update.
func (e *Engine) Hand(id PlayerID) []Card {
	p := e.player(id)
	if p == nil {
		return nil
	}
	return append([]Card(nil), p.Hand...)
}

// PowerState returns the private power-inventory projection for id.
func (e *Engine) PowerState(id PlayerID) PowerState {
	p := e.player(id)
	if p == nil {
		return PowerState{}
	}
	return PowerState{
		Points:        p.PowerPoints,
		Cards:         append([]PowerCard(nil), p.PowerCards...),
		RequiredDraws: p.PowerPoints / e.cfg.PowerCardCost,
	}
}

// PublicState builds the room-multicast snapshot (spec.md §6). hostID is
// injected by the Room Coordinator, which owns host-seat tracking.
func (e *Engine) PublicState(hostID PlayerID) PublicState {
	summaries := make([]PlayerSummary, 0, len(e.players))
	for _, p := range e.players {
		summaries = append(summaries, p.summary(p.ID == hostID))
	}
	return PublicState{
		Players:                  summaries,
		CurrentPlayerID:          e.CurrentPlayerID(),
		Direction:                e.direction,
		DiscardTop:               e.discard[len(e.discard)-1],
		CurrentColor:             e.currentColor,
		DrawStack:                e.drawStack,
		StartedAt:                e.startedAt,
		PendingPowerDrawPlayerID: e.pendingPowerDrawPlayerID,
	}
}

// DrainHandSyncs returns and clears the set of players whose hand has
// changed since the last drain (spec.md §3 pending_hand_syncs), in seat
// order for determinism.
func (e *Engine) DrainHandSyncs() []PlayerID {
	if len(e.pendingHandSyncs) == 0 {
		return nil
	}
	out := make([]PlayerID, 0, len(e.pendingHandSyncs))
	for _, p := range e.players {
		if e.pendingHandSyncs[p.ID] {
			out = append(out, p.ID)
		}
	}
	e.pendingHandSyncs = make(map[PlayerID]bool)
	return out
}

// Scores computes the spec.md §4.4.2 game_ended scoreboard. Only valid
// once WinnerID is set.
func (e *Engine) Scores() map[PlayerID]int {
	scores := make(map[PlayerID]int, len(e.players))
	total := 0
	for _, p := range e.players {
		if p.ID == e.winnerID {
			continue
		}
		sum := 0
		for _, c := range p.Hand {
			sum += scoreValue(c)
		}
		scores[p.ID] = sum
		total += sum
	}
	if e.winnerID != "" {
		scores[e.winnerID] = total
	}
	return scores
}

// --- mutating operations -------------------------------------------------

// PlayCard implements spec.md §4.3 play_card.
func (e *Engine) PlayCard(playerID PlayerID, cardID CardID, chosenColor *Color) (Result, error) {
	if e.winnerID != "" {
		return Result{}, ErrGameEnded
	}
	if e.CurrentPlayerID() != playerID {
		return Result{}, ErrNotYourTurn
	}
	if e.pendingPowerDrawPlayerID != "" {
		return Result{}, ErrPowerDrawPending
	}

	pl := e.player(playerID)
	idx, card, ok := findCard(pl.Hand, cardID)
	if !ok {
		return Result{}, ErrCardNotInHand
	}
	top := e.discard[len(e.discard)-1]
	if !Legal(card, top, e.currentColor, e.drawStack) {
		return Result{}, ErrIllegalMove
	}
	if (card.Value == ValueWild || card.Value == Wild4) && (chosenColor == nil || *chosenColor == Wild) {
		return Result{}, ErrWildRequiresColor
	}

	pl.Hand = append(pl.Hand[:idx], pl.Hand[idx+1:]...)
	e.discard = append(e.discard, card)
	e.updateCalledUno(pl)
	e.markHandDirty(playerID)

	if len(pl.Hand) == 0 {
		e.winnerID = playerID
		return Result{WinnerID: playerID}, nil
	}

	steps := e.resolveCardEffect(card, chosenColor)
	pl.PowerPoints += powerPointValue(card.Value)

	required := pl.PowerPoints / e.cfg.PowerCardCost
	if required >= 1 {
		pl.AwaitingPowerDraw = true
		pl.PendingSkipCount = &steps
		e.pendingPowerDrawPlayerID = playerID
		return Result{PowerDrawRequired: true, AffectedPlayerIDs: []PlayerID{playerID}}, nil
	}

	e.advance(steps)
	return Result{AffectedPlayerIDs: []PlayerID{playerID}, TurnAdvanced: true}, nil
}

// resolveCardEffect applies the card's board effect (color/direction/draw
// stack) and returns the turn-advance step count, per spec.md §4.3's table.
func (e *Engine) resolveCardEffect(card Card, chosenColor *Color) int {
	switch card.Value {
	case Skip:
		e.currentColor = card.Color
		return advanceStepFor(Skip, len(e.players))
	case Reverse:
		e.direction = -e.direction
		e.currentColor = card.Color
		return advanceStepFor(Reverse, len(e.players))
	case Draw2:
		e.currentColor = card.Color
		e.drawStack += 2
		return advanceStepFor(Draw2, len(e.players))
	case ValueWild:
		e.currentColor = *chosenColor
		return advanceStepFor(ValueWild, len(e.players))
	case Wild4:
		e.currentColor = *chosenColor
		e.drawStack += 4
		return advanceStepFor(Wild4, len(e.players))
	default:
		e.currentColor = card.Color
		return advanceStepFor(card.Value, len(e.players))
	}
}

// Draw implements spec.md §4.3 draw().
func (e *Engine) Draw(playerID PlayerID) (Result, error) {
	if e.winnerID != "" {
		return Result{}, ErrGameEnded
	}
	if e.CurrentPlayerID() != playerID {
		return Result{}, ErrNotYourTurn
	}
	if e.pendingPowerDrawPlayerID != "" {
		return Result{}, ErrPowerDrawPending
	}

	pl := e.player(playerID)
	n := 1
	if e.drawStack > 0 {
		n = e.drawStack
		e.drawStack = 0
	}
	pl.Hand = append(pl.Hand, e.drawN(n)...)
	e.updateCalledUno(pl)
	e.markHandDirty(playerID)

	e.advance(1)
	return Result{AffectedPlayerIDs: []PlayerID{playerID}, TurnAdvanced: true}, nil
}

// DrawPowerCard implements spec.md §4.3 draw_power_card().
func (e *Engine) DrawPowerCard(playerID PlayerID) (Result, error) {
	if e.winnerID != "" {
		return Result{}, ErrGameEnded
	}
	if e.CurrentPlayerID() != playerID {
		return Result{}, ErrNotYourTurn
	}

	pl := e.player(playerID)
	if pl.PowerPoints/e.cfg.PowerCardCost < 1 {
		return Result{}, ErrInsufficientPoints
	}

	pl.PowerCards = append(pl.PowerCards, e.drawPowerCard())
	pl.PowerPoints -= e.cfg.PowerCardCost
	if pl.PowerPoints < 0 {
		pl.PowerPoints = 0
	}

	if pl.PowerPoints/e.cfg.PowerCardCost >= 1 {
		return Result{AffectedPlayerIDs: []PlayerID{playerID}}, nil
	}

	pl.AwaitingPowerDraw = false
	e.pendingPowerDrawPlayerID = ""
	steps := 1
	if pl.PendingSkipCount != nil {
		steps = *pl.PendingSkipCount
	}
	pl.PendingSkipCount = nil
	e.advance(steps)

	return Result{AffectedPlayerIDs: []PlayerID{playerID}, TurnAdvanced: true}, nil
}

// PlayPowerCardRequest carries the optional target/color arguments of
// play_power_card (spec.md §4.3).
type PlayPowerCardRequest struct {
	CardID         PowerCardID
	TargetPlayerID *PlayerID
	Color          *Color
}

// PlayPowerCard implements spec.md §4.3 play_power_card(). It validates
// the full effect plan before mutating any state, so no try/restore step
// is needed to satisfy the atomicity requirement in spec.md §9.
func (e *Engine) PlayPowerCard(playerID PlayerID, req PlayPowerCardRequest) (Result, error) {
	if e.winnerID != "" {
		return Result{}, ErrGameEnded
	}
	if e.CurrentPlayerID() != playerID {
		return Result{}, ErrNotYourTurn
	}
	if e.pendingPowerDrawPlayerID != "" {
		return Result{}, ErrPowerDrawPending
	}

	pl := e.player(playerID)
	if pl.PlayedPowerThisTurn {
		return Result{}, ErrAlreadyPlayedPower
	}
	idx, card, ok := findPowerCard(pl.PowerCards, req.CardID)
	if !ok {
		return Result{}, ErrPowerCardNotFound
	}

	var target *Player
	switch card.Type {
	case Freeze, SwapHands:
		if req.TargetPlayerID == nil || *req.TargetPlayerID == playerID {
			return Result{}, ErrMissingTarget
		}
		target = e.player(*req.TargetPlayerID)
		if target == nil {
			return Result{}, ErrMissingTarget
		}
	case ColorRush:
		if req.Color == nil || *req.Color == Wild {
			return Result{}, ErrMissingColor
		}
		if countColor(pl.Hand, *req.Color) == 0 {
			return Result{}, ErrNoMatchingColorInHand
		}
	}

	pl.PowerCards = append(pl.PowerCards[:idx], pl.PowerCards[idx+1:]...)
	pl.PlayedPowerThisTurn = true

	var affected []PlayerID
	switch card.Type {
	case CardRush:
		for _, other := range e.players {
			if other.ID == playerID {
				continue
			}
			other.Hand = append(other.Hand, e.drawN(2)...)
			e.updateCalledUno(other)
			e.markHandDirty(other.ID)
			affected = append(affected, other.ID)
		}
	case Freeze:
		target.FrozenForTurns += 2
	case ColorRush:
		kept := pl.Hand[:0:0]
		var removed []Card
		for _, c := range pl.Hand {
			if c.Color == *req.Color {
				removed = append(removed, c)
			} else {
				kept = append(kept, c)
			}
		}
		pl.Hand = kept
		e.deck = append(e.deck, removed...)
		ShuffleDeck(e.rng, e.deck)
		e.updateCalledUno(pl)
		e.markHandDirty(playerID)
		affected = append(affected, playerID)
	case SwapHands:
		pl.Hand, target.Hand = target.Hand, pl.Hand
		e.updateCalledUno(pl)
		e.updateCalledUno(target)
		e.markHandDirty(playerID)
		e.markHandDirty(target.ID)
		affected = append(affected, playerID, target.ID)
	}

	if (card.Type == ColorRush || card.Type == SwapHands) && len(pl.Hand) == 0 {
		e.winnerID = playerID
		return Result{WinnerID: playerID, AffectedPlayerIDs: affected}, nil
	}

	return Result{AffectedPlayerIDs: affected}, nil
}

// RemovePlayer implements spec.md §4.3.4 remove_player().
func (e *Engine) RemovePlayer(playerID PlayerID) (Result, error) {
	idx := -1
	for i, p := range e.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Result{}, ErrUnknownPlayer
	}

	e.players = append(e.players[:idx], e.players[idx+1:]...)
	delete(e.pendingHandSyncs, playerID)
	if e.pendingPowerDrawPlayerID == playerID {
		e.pendingPowerDrawPlayerID = ""
	}

	if len(e.players) == 0 {
		return Result{}, nil
	}
	if idx < e.turnIndex {
		e.turnIndex--
	}
	e.turnIndex = ((e.turnIndex % len(e.players)) + len(e.players)) % len(e.players)

	if len(e.players) == 1 {
		e.winnerID = e.players[0].ID
		return Result{WinnerID: e.winnerID}, nil
	}
	return Result{}, nil
}

// --- internal helpers -----------------------------------------------------

func (e *Engine) player(id PlayerID) *Player {
	for _, p := range e.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (e *Engine) updateCalledUno(p *Player) {
	p.CalledUno = len(p.Hand) == 1
}

func (e *Engine) markHandDirty(id PlayerID) {
	e.pendingHandSyncs[id] = true
}

// advance moves the turn cursor by steps seats in the current direction,
// then runs the frozen-turn resolution loop of spec.md §4.3.2.
func (e *Engine) advance(steps int) {
	e.turnIndex = e.stepIndex(e.turnIndex, steps)

	guard := 4 * len(e.players)
	for i := 0; i < guard; i++ {
		cur := e.players[e.turnIndex]
		if cur.FrozenForTurns <= 0 {
			break
		}
		cur.FrozenForTurns--
		if e.drawStack > 0 {
			drawn := e.drawN(e.drawStack)
			cur.Hand = append(cur.Hand, drawn...)
			e.updateCalledUno(cur)
			e.markHandDirty(cur.ID)
			e.drawStack = 0
		}
		e.turnIndex = e.stepIndex(e.turnIndex, 1)
	}

	newCur := e.players[e.turnIndex]
	newCur.PlayedPowerThisTurn = false
	newCur.CalledUno = len(newCur.Hand) == 1
}

func (e *Engine) stepIndex(idx, steps int) int {
	n := len(e.players)
	return ((idx+steps*int(e.direction))%n + n) % n
}

// drawN draws up to n cards, replenishing the deck from the discard pile
// when empty (spec.md §4.3.3). It returns fewer than n cards, never an
// error, when both piles are exhausted (spec.md B1).
func (e *Engine) drawN(n int) []Card {
	drawn := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		if len(e.deck) == 0 {
			e.replenishDeck()
			if len(e.deck) == 0 {
				break
			}
		}
		drawn = append(drawn, e.deck[0])
		e.deck = e.deck[1:]
	}
	return drawn
}

func (e *Engine) replenishDeck() {
	if len(e.discard) <= 1 {
		return
	}
	top := e.discard[len(e.discard)-1]
	rest := append([]Card(nil), e.discard[:len(e.discard)-1]...)
	ShuffleDeck(e.rng, rest)
	e.deck = append(e.deck, rest...)
	e.discard = []Card{top}
}

func (e *Engine) drawPowerCard() PowerCard {
	if len(e.powerDeck) == 0 {
		e.powerDeck = NewPowerBag(e.rng, &e.nextPowerCardID, e.cfg.PowerBagSize)
	}
	card := e.powerDeck[0]
	e.powerDeck = e.powerDeck[1:]
	return card
}

func findCard(hand []Card, id CardID) (int, Card, bool) {
	for i, c := range hand {
		if c.ID == id {
			return i, c, true
		}
	}
	return -1, Card{}, false
}

func findPowerCard(cards []PowerCard, id PowerCardID) (int, PowerCard, bool) {
	for i, c := range cards {
		if c.ID == id {
			return i, c, true
		}
	}
	return -1, PowerCard{}, false
}

func countColor(hand []Card, color Color) int {
	n := 0
	for _, c := range hand {
		if c.Color == color {
			n++
		}
	}
	return n
}

package domain

import (
	"errors"
	"math/rand"
	"testing"
)

func newTestEngine(t *testing.T, n int) *Engine {
	t.Helper()
	seats := make([]SeatInfo, n)
	for i := range seats {
		seats[i] = SeatInfo{ID: PlayerID(rune('A' + i)), Name: string(rune('A' + i))}
	}
	e, err := NewEngine(rand.New(rand.NewSource(1)), DefaultConfig(), seats)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func TestNewEngineDealsHands(t *testing.T) {
	e := newTestEngine(t, 3)
	for _, p := range e.players {
		if len(p.Hand) != DefaultConfig().HandSize {
			t.Errorf("player %s hand size = %d, want %d", p.ID, len(p.Hand), DefaultConfig().HandSize)
		}
	}
	if e.discard[len(e.discard)-1].Color == Wild {
		t.Errorf("initial discard top must not be wild: %+v", e.discard[len(e.discard)-1])
	}
	if e.direction != Clockwise {
		t.Errorf("initial direction = %v, want Clockwise", e.direction)
	}
	if e.CurrentPlayerID() != e.players[0].ID {
		t.Errorf("initial current player = %s, want %s", e.CurrentPlayerID(), e.players[0].ID)
	}
}

func TestNewEngineRejectsPlayerCounts(t *testing.T) {
	if _, err := NewEngine(rand.New(rand.NewSource(1)), DefaultConfig(), []SeatInfo{{ID: "a"}}); !errors.Is(err, ErrTooFewPlayers) {
		t.Errorf("1 player: err = %v, want ErrTooFewPlayers", err)
	}
	seats := make([]SeatInfo, 7)
	for i := range seats {
		seats[i] = SeatInfo{ID: PlayerID(rune('A' + i))}
	}
	if _, err := NewEngine(rand.New(rand.NewSource(1)), DefaultConfig(), seats); !errors.Is(err, ErrTooManyPlayers) {
		t.Errorf("7 players: err = %v, want ErrTooManyPlayers", err)
	}
}

func TestPlayCardNotYourTurn(t *testing.T) {
	e := newTestEngine(t, 2)
	other := e.players[1]
	_, err := e.PlayCard(other.ID, other.Hand[0].ID, nil)
	if !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("err = %v, want ErrNotYourTurn", err)
	}
}

func TestPlayCardNotInHand(t *testing.T) {
	e := newTestEngine(t, 2)
	cur := e.players[0]
	_, err := e.PlayCard(cur.ID, CardID(99999), nil)
	if !errors.Is(err, ErrCardNotInHand) {
		t.Fatalf("err = %v, want ErrCardNotInHand", err)
	}
}

func TestPlayCardIllegalMove(t *testing.T) {
	e := newTestEngine(t, 2)
	e.discard = []Card{{ID: 1000, Color: Red, Value: Five}}
	e.currentColor = Red
	cur := e.players[0]
	cur.Hand = []Card{{ID: 2000, Color: Blue, Value: Nine}}

	_, err := e.PlayCard(cur.ID, 2000, nil)
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("err = %v, want ErrIllegalMove", err)
	}
}

func TestPlayCardNumberAdvancesOneSeat(t *testing.T) {
	e := newTestEngine(t, 3)
	e.discard = []Card{{ID: 1000, Color: Red, Value: Five}}
	e.currentColor = Red
	cur := e.players[0]
	cur.Hand = []Card{{ID: 2000, Color: Red, Value: Seven}, {ID: 2001, Color: Blue, Value: Six}}

	res, err := e.PlayCard(cur.ID, 2000, nil)
	if err != nil {
		t.Fatalf("PlayCard() error = %v", err)
	}
	if res.WinnerID != "" {
		t.Errorf("unexpected winner %s", res.WinnerID)
	}
	if e.CurrentPlayerID() != e.players[1].ID {
		t.Errorf("current player = %s, want %s", e.CurrentPlayerID(), e.players[1].ID)
	}
	if e.currentColor != Red {
		t.Errorf("currentColor = %v, want Red", e.currentColor)
	}
	if len(cur.Hand) != 1 {
		t.Errorf("hand len = %d, want 1", len(cur.Hand))
	}
	if !cur.CalledUno {
		t.Errorf("CalledUno = false, want true at hand size 1")
	}
}

func TestPlayCardSkipAdvancesTwoSeats(t *testing.T) {
	e := newTestEngine(t, 3)
	e.discard = []Card{{ID: 1000, Color: Red, Value: Five}}
	e.currentColor = Red
	cur := e.players[0]
	cur.Hand = []Card{{ID: 2000, Color: Red, Value: Skip}, {ID: 2001, Color: Blue, Value: Six}}

	if _, err := e.PlayCard(cur.ID, 2000, nil); err != nil {
		t.Fatalf("PlayCard() error = %v", err)
	}
	if e.CurrentPlayerID() != e.players[2].ID {
		t.Errorf("current player = %s, want %s (skip over player 1)", e.CurrentPlayerID(), e.players[2].ID)
	}
}

func TestPlayCardReverseFlipsDirection(t *testing.T) {
	e := newTestEngine(t, 3)
	e.discard = []Card{{ID: 1000, Color: Red, Value: Five}}
	e.currentColor = Red
	cur := e.players[0]
	cur.Hand = []Card{{ID: 2000, Color: Red, Value: Reverse}, {ID: 2001, Color: Blue, Value: Six}}

	if _, err := e.PlayCard(cur.ID, 2000, nil); err != nil {
		t.Fatalf("PlayCard() error = %v", err)
	}
	if e.direction != CounterClockwise {
		t.Errorf("direction = %v, want CounterClockwise", e.direction)
	}
	if e.CurrentPlayerID() != e.players[2].ID {
		t.Errorf("current player = %s, want %s", e.CurrentPlayerID(), e.players[2].ID)
	}
}

func TestPlayCardReverseTwoPlayersActsLikeSkip(t *testing.T) {
	e := newTestEngine(t, 2)
	e.discard = []Card{{ID: 1000, Color: Red, Value: Five}}
	e.currentColor = Red
	cur := e.players[0]
	cur.Hand = []Card{{ID: 2000, Color: Red, Value: Reverse}, {ID: 2001, Color: Blue, Value: Six}}

	if _, err := e.PlayCard(cur.ID, 2000, nil); err != nil {
		t.Fatalf("PlayCard() error = %v", err)
	}
	if e.CurrentPlayerID() != cur.ID {
		t.Errorf("current player = %s, want %s (reverse with 2p returns turn to self)", e.CurrentPlayerID(), cur.ID)
	}
}

func TestPlayCardReverseAdoptsPlayedCardColor(t *testing.T) {
	e := newTestEngine(t, 3)
	e.discard = []Card{{ID: 1000, Color: Blue, Value: Reverse}}
	e.currentColor = Blue
	cur := e.players[0]
	cur.Hand = []Card{{ID: 2000, Color: Red, Value: Reverse}, {ID: 2001, Color: Green, Value: Six}}

	if _, err := e.PlayCard(cur.ID, 2000, nil); err != nil {
		t.Fatalf("PlayCard() error = %v", err)
	}
	if e.currentColor != Red {
		t.Errorf("currentColor = %v, want Red (the played Reverse card's color)", e.currentColor)
	}
}

func TestPlayCardWildRequiresColor(t *testing.T) {
	e := newTestEngine(t, 2)
	e.discard = []Card{{ID: 1000, Color: Red, Value: Five}}
	e.currentColor = Red
	cur := e.players[0]
	cur.Hand = []Card{{ID: 2000, Color: Wild, Value: ValueWild}, {ID: 2001, Color: Green, Value: Six}}

	if _, err := e.PlayCard(cur.ID, 2000, nil); !errors.Is(err, ErrWildRequiresColor) {
		t.Fatalf("err = %v, want ErrWildRequiresColor", err)
	}
	chosen := Blue
	if _, err := e.PlayCard(cur.ID, 2000, &chosen); err != nil {
		t.Fatalf("PlayCard() with color error = %v", err)
	}
	if e.currentColor != Blue {
		t.Errorf("currentColor = %v, want Blue", e.currentColor)
	}
}

func TestPlayCardWinsOnEmptyHand(t *testing.T) {
	e := newTestEngine(t, 2)
	e.discard = []Card{{ID: 1000, Color: Red, Value: Five}}
	e.currentColor = Red
	cur := e.players[0]
	cur.Hand = []Card{{ID: 2000, Color: Red, Value: Seven}}

	res, err := e.PlayCard(cur.ID, 2000, nil)
	if err != nil {
		t.Fatalf("PlayCard() error = %v", err)
	}
	if res.WinnerID != cur.ID {
		t.Fatalf("WinnerID = %s, want %s", res.WinnerID, cur.ID)
	}
	if e.WinnerID() != cur.ID {
		t.Errorf("e.WinnerID() = %s, want %s", e.WinnerID(), cur.ID)
	}
	if e.CurrentPlayerID() != "" {
		t.Errorf("CurrentPlayerID() after win = %q, want empty", e.CurrentPlayerID())
	}

	if _, err := e.Draw(e.players[1].ID); !errors.Is(err, ErrGameEnded) {
		t.Errorf("operation after win: err = %v, want ErrGameEnded", err)
	}
}

func TestPlayCardTriggersPowerDrawRequirement(t *testing.T) {
	e := newTestEngine(t, 2)
	e.discard = []Card{{ID: 1000, Color: Red, Value: Five}}
	e.currentColor = Red
	cur := e.players[0]
	cur.PowerPoints = 2 // + wild4's 3 = 5, crosses the cost-4 threshold
	cur.Hand = []Card{{ID: 2000, Color: Wild, Value: Wild4}, {ID: 2001, Color: Blue, Value: Six}}

	color := Blue
	res, err := e.PlayCard(cur.ID, 2000, &color)
	if err != nil {
		t.Fatalf("PlayCard() error = %v", err)
	}
	if !res.PowerDrawRequired {
		t.Fatalf("PowerDrawRequired = false, want true")
	}
	if e.pendingPowerDrawPlayerID != cur.ID {
		t.Errorf("pendingPowerDrawPlayerID = %s, want %s", e.pendingPowerDrawPlayerID, cur.ID)
	}
	// Turn must not have advanced yet.
	if e.CurrentPlayerID() != cur.ID {
		t.Errorf("CurrentPlayerID() = %s, want %s (turn should be gated)", e.CurrentPlayerID(), cur.ID)
	}

	// Any other operation by the same player is rejected until the draw.
	if _, err := e.Draw(cur.ID); !errors.Is(err, ErrPowerDrawPending) {
		t.Errorf("Draw() while gated: err = %v, want ErrPowerDrawPending", err)
	}

	drawRes, err := e.DrawPowerCard(cur.ID)
	if err != nil {
		t.Fatalf("DrawPowerCard() error = %v", err)
	}
	if drawRes.WinnerID != "" {
		t.Errorf("unexpected winner after power draw")
	}
	if e.pendingPowerDrawPlayerID != "" {
		t.Errorf("pendingPowerDrawPlayerID still set after satisfying requirement")
	}
	if e.CurrentPlayerID() != e.players[1].ID {
		t.Errorf("CurrentPlayerID() after draw = %s, want %s", e.CurrentPlayerID(), e.players[1].ID)
	}
	if len(cur.PowerCards) != 1 {
		t.Errorf("len(PowerCards) = %d, want 1", len(cur.PowerCards))
	}
	if cur.PowerPoints != 1 {
		t.Errorf("PowerPoints after one draw = %d, want 1", cur.PowerPoints)
	}
}

func TestDrawPowerCardInsufficientPoints(t *testing.T) {
	e := newTestEngine(t, 2)
	cur := e.players[0]
	cur.PowerPoints = 1
	if _, err := e.DrawPowerCard(cur.ID); !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("err = %v, want ErrInsufficientPoints", err)
	}
}

func TestDrawClearsStackAndAdvances(t *testing.T) {
	e := newTestEngine(t, 2)
	e.drawStack = 4
	cur := e.players[0]
	handBefore := len(cur.Hand)

	res, err := e.Draw(cur.ID)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if e.drawStack != 0 {
		t.Errorf("drawStack = %d, want 0", e.drawStack)
	}
	if len(cur.Hand) != handBefore+4 {
		t.Errorf("hand len = %d, want %d", len(cur.Hand), handBefore+4)
	}
	if e.CurrentPlayerID() != e.players[1].ID {
		t.Errorf("current player after draw = %s, want %s", e.CurrentPlayerID(), e.players[1].ID)
	}
	if len(res.AffectedPlayerIDs) != 1 || res.AffectedPlayerIDs[0] != cur.ID {
		t.Errorf("AffectedPlayerIDs = %v, want [%s]", res.AffectedPlayerIDs, cur.ID)
	}
}

func TestPlayPowerCardCardRushForcesOthersToDraw(t *testing.T) {
	e := newTestEngine(t, 3)
	cur := e.players[0]
	cur.PowerCards = []PowerCard{{ID: 1, Type: CardRush}}
	before1, before2 := len(e.players[1].Hand), len(e.players[2].Hand)

	res, err := e.PlayPowerCard(cur.ID, PlayPowerCardRequest{CardID: 1})
	if err != nil {
		t.Fatalf("PlayPowerCard() error = %v", err)
	}
	if len(e.players[1].Hand) != before1+2 || len(e.players[2].Hand) != before2+2 {
		t.Fatalf("opponents did not each draw 2: %d, %d", len(e.players[1].Hand), len(e.players[2].Hand))
	}
	if len(res.AffectedPlayerIDs) != 2 {
		t.Errorf("AffectedPlayerIDs = %v, want 2 entries", res.AffectedPlayerIDs)
	}
	if !cur.PlayedPowerThisTurn {
		t.Errorf("PlayedPowerThisTurn = false, want true")
	}
	if e.CurrentPlayerID() != cur.ID {
		t.Errorf("playing a power card must not advance the turn")
	}
	if res.TurnAdvanced {
		t.Errorf("TurnAdvanced = true, want false (room.Coordinator must not reset the turn timer on this play)")
	}
}

func TestPlayCardSetsTurnAdvanced(t *testing.T) {
	e := newTestEngine(t, 2)
	e.discard = []Card{{ID: 1000, Color: Red, Value: Five}}
	e.currentColor = Red
	cur := e.players[0]
	cur.Hand = []Card{{ID: 2000, Color: Red, Value: Six}, {ID: 2001, Color: Blue, Value: Eight}}

	res, err := e.PlayCard(cur.ID, 2000, nil)
	if err != nil {
		t.Fatalf("PlayCard() error = %v", err)
	}
	if !res.TurnAdvanced {
		t.Errorf("TurnAdvanced = false, want true for a play that doesn't trip the power-draw gate")
	}
}

func TestPlayPowerCardAlreadyPlayed(t *testing.T) {
	e := newTestEngine(t, 2)
	cur := e.players[0]
	cur.PlayedPowerThisTurn = true
	cur.PowerCards = []PowerCard{{ID: 1, Type: CardRush}}
	if _, err := e.PlayPowerCard(cur.ID, PlayPowerCardRequest{CardID: 1}); !errors.Is(err, ErrAlreadyPlayedPower) {
		t.Fatalf("err = %v, want ErrAlreadyPlayedPower", err)
	}
}

func TestPlayPowerCardFreezeSkipsTarget(t *testing.T) {
	e := newTestEngine(t, 3)
	cur := e.players[0]
	targetID := e.players[1].ID
	cur.PowerCards = []PowerCard{{ID: 1, Type: Freeze}}

	if _, err := e.PlayPowerCard(cur.ID, PlayPowerCardRequest{CardID: 1, TargetPlayerID: &targetID}); err != nil {
		t.Fatalf("PlayPowerCard() error = %v", err)
	}
	if e.players[1].FrozenForTurns != 2 {
		t.Fatalf("FrozenForTurns = %d, want 2", e.players[1].FrozenForTurns)
	}

	e.discard = []Card{{ID: 1000, Color: Red, Value: Five}}
	e.currentColor = Red
	cur.Hand = []Card{{ID: 2000, Color: Red, Value: Six}, {ID: 2001, Color: Blue, Value: Eight}}
	if _, err := e.PlayCard(cur.ID, 2000, nil); err != nil {
		t.Fatalf("PlayCard() error = %v", err)
	}
	if e.CurrentPlayerID() != e.players[2].ID {
		t.Errorf("current player = %s, want %s (frozen player 1 must be skipped)", e.CurrentPlayerID(), e.players[2].ID)
	}
	if e.players[1].FrozenForTurns != 1 {
		t.Errorf("FrozenForTurns after one skip = %d, want 1", e.players[1].FrozenForTurns)
	}
}

func TestPlayPowerCardFreezeMissingTarget(t *testing.T) {
	e := newTestEngine(t, 2)
	cur := e.players[0]
	cur.PowerCards = []PowerCard{{ID: 1, Type: Freeze}}
	if _, err := e.PlayPowerCard(cur.ID, PlayPowerCardRequest{CardID: 1}); !errors.Is(err, ErrMissingTarget) {
		t.Fatalf("err = %v, want ErrMissingTarget", err)
	}
	self := cur.ID
	if _, err := e.PlayPowerCard(cur.ID, PlayPowerCardRequest{CardID: 1, TargetPlayerID: &self}); !errors.Is(err, ErrMissingTarget) {
		t.Fatalf("self-target err = %v, want ErrMissingTarget", err)
	}
}

func TestPlayPowerCardColorRushRemovesMatchingCards(t *testing.T) {
	e := newTestEngine(t, 2)
	cur := e.players[0]
	cur.PowerCards = []PowerCard{{ID: 1, Type: ColorRush}}
	cur.Hand = []Card{
		{ID: 100, Color: Red, Value: One},
		{ID: 101, Color: Red, Value: Two},
		{ID: 102, Color: Blue, Value: Three},
	}

	red := Red
	res, err := e.PlayPowerCard(cur.ID, PlayPowerCardRequest{CardID: 1, Color: &red})
	if err != nil {
		t.Fatalf("PlayPowerCard() error = %v", err)
	}
	if len(cur.Hand) != 1 || cur.Hand[0].Color != Blue {
		t.Fatalf("hand after colorRush = %+v, want only the blue card", cur.Hand)
	}
	if len(res.AffectedPlayerIDs) != 1 || res.AffectedPlayerIDs[0] != cur.ID {
		t.Errorf("AffectedPlayerIDs = %v, want [%s]", res.AffectedPlayerIDs, cur.ID)
	}
}

func TestPlayPowerCardColorRushNoMatchingColor(t *testing.T) {
	e := newTestEngine(t, 2)
	cur := e.players[0]
	cur.PowerCards = []PowerCard{{ID: 1, Type: ColorRush}}
	cur.Hand = []Card{{ID: 100, Color: Blue, Value: One}}

	red := Red
	if _, err := e.PlayPowerCard(cur.ID, PlayPowerCardRequest{CardID: 1, Color: &red}); !errors.Is(err, ErrNoMatchingColorInHand) {
		t.Fatalf("err = %v, want ErrNoMatchingColorInHand", err)
	}
}

func TestPlayPowerCardColorRushWinsOnEmptyHand(t *testing.T) {
	e := newTestEngine(t, 2)
	cur := e.players[0]
	cur.PowerCards = []PowerCard{{ID: 1, Type: ColorRush}}
	cur.Hand = []Card{{ID: 100, Color: Red, Value: One}}

	red := Red
	res, err := e.PlayPowerCard(cur.ID, PlayPowerCardRequest{CardID: 1, Color: &red})
	if err != nil {
		t.Fatalf("PlayPowerCard() error = %v", err)
	}
	if res.WinnerID != cur.ID {
		t.Fatalf("WinnerID = %s, want %s", res.WinnerID, cur.ID)
	}
}

func TestPlayPowerCardSwapHands(t *testing.T) {
	e := newTestEngine(t, 2)
	cur := e.players[0]
	target := e.players[1]
	cur.PowerCards = []PowerCard{{ID: 1, Type: SwapHands}}
	cur.Hand = []Card{{ID: 100, Color: Red, Value: One}}
	target.Hand = []Card{{ID: 200, Color: Blue, Value: Two}, {ID: 201, Color: Green, Value: Three}}

	targetID := target.ID
	res, err := e.PlayPowerCard(cur.ID, PlayPowerCardRequest{CardID: 1, TargetPlayerID: &targetID})
	if err != nil {
		t.Fatalf("PlayPowerCard() error = %v", err)
	}
	if len(cur.Hand) != 2 || len(target.Hand) != 1 {
		t.Fatalf("hands after swap: cur=%d target=%d, want 2/1", len(cur.Hand), len(target.Hand))
	}
	if len(res.AffectedPlayerIDs) != 2 {
		t.Errorf("AffectedPlayerIDs = %v, want 2 entries", res.AffectedPlayerIDs)
	}
}

func TestRemovePlayerSoleSurvivorWins(t *testing.T) {
	e := newTestEngine(t, 2)
	loser := e.players[1].ID
	res, err := e.RemovePlayer(loser)
	if err != nil {
		t.Fatalf("RemovePlayer() error = %v", err)
	}
	if res.WinnerID == "" {
		t.Fatalf("WinnerID empty, want sole survivor to win")
	}
}

func TestRemovePlayerUnknown(t *testing.T) {
	e := newTestEngine(t, 2)
	if _, err := e.RemovePlayer("nobody"); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("err = %v, want ErrUnknownPlayer", err)
	}
}

func TestRemovePlayerNonCurrentKeepsCurrentPlayer(t *testing.T) {
	e := newTestEngine(t, 3)
	cur := e.players[0].ID
	middle := e.players[1].ID

	if _, err := e.RemovePlayer(middle); err != nil {
		t.Fatalf("RemovePlayer() error = %v", err)
	}
	if e.CurrentPlayerID() != cur {
		t.Errorf("current player changed after removing a non-current seat: %s, want %s", e.CurrentPlayerID(), cur)
	}
}

func TestDrainHandSyncs(t *testing.T) {
	e := newTestEngine(t, 2)
	if got := e.DrainHandSyncs(); got != nil {
		t.Fatalf("DrainHandSyncs() before any mutation = %v, want nil", got)
	}

	e.discard = []Card{{ID: 1000, Color: Red, Value: Five}}
	e.currentColor = Red
	cur := e.players[0]
	cur.Hand = []Card{{ID: 2000, Color: Red, Value: Seven}, {ID: 2001, Color: Blue, Value: Six}}
	if _, err := e.PlayCard(cur.ID, 2000, nil); err != nil {
		t.Fatalf("PlayCard() error = %v", err)
	}

	dirty := e.DrainHandSyncs()
	if len(dirty) != 1 || dirty[0] != cur.ID {
		t.Fatalf("DrainHandSyncs() = %v, want [%s]", dirty, cur.ID)
	}
	if got := e.DrainHandSyncs(); got != nil {
		t.Fatalf("DrainHandSyncs() after drain = %v, want nil", got)
	}
}

func TestScoresAssignsLoserTotalsToWinner(t *testing.T) {
	e := newTestEngine(t, 2)
	winner := e.players[0]
	loser := e.players[1]
	winner.Hand = nil
	loser.Hand = []Card{{Value: Seven}, {Value: Skip}}
	e.winnerID = winner.ID

	scores := e.Scores()
	if scores[loser.ID] != 27 {
		t.Errorf("loser score = %d, want 27", scores[loser.ID])
	}
	if scores[winner.ID] != 27 {
		t.Errorf("winner score = %d, want 27 (sum of losers)", scores[winner.ID])
	}
}

package domain

// Legal implements the rules predicate of spec.md §4.2: is card legal to
// play on top of top, under currentColor, with a pending drawStack?
//
// When drawStack > 0, stacking is permitted across draw2 and wild4 alike;
// otherwise a card is legal if it is wild, matches the current color, or
// matches the top card's value.
func Legal(card Card, top Card, currentColor Color, drawStack int) bool {
	if drawStack > 0 {
		return card.Value == Draw2 || card.Value == Wild4
	}
	return card.Color == Wild || card.Color == currentColor || card.Value == top.Value
}

// powerPointValue is the per-card power-meter award table of spec.md §4.3.
func powerPointValue(v Value) int {
	switch v {
	case Skip:
		return 1
	case Reverse:
		return 1
	case Draw2:
		return 2
	case ValueWild:
		return 2
	case Wild4:
		return 3
	default:
		return 0
	}
}

// advanceStepFor returns how many seats play_card's effect advances the
// turn cursor by, for a two-player game (reverse behaves like skip) and
// for larger games, per spec.md §4.3's effect table.
func advanceStepFor(v Value, numPlayers int) int {
	switch v {
	case Skip:
		return 2
	case Reverse:
		if numPlayers == 2 {
			return 2
		}
		return 1
	default:
		return 1
	}
}

// scoreValue is the per-card point value used by score computation
// (spec.md §4.4.2): number cards score their digit, skip/reverse/draw2
// score 20, wild/wild4 score 50.
func scoreValue(c Card) int {
	switch {
	case c.Value.IsNumber():
		return int(c.Value)
	case c.Value == Skip, c.Value == Reverse, c.Value == Draw2:
		return 20
	case c.Value == ValueWild, c.Value == Wild4:
		return 50
	default:
		return 0
	}
}

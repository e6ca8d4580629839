package domain

import "math/rand"

// standardColors are the four non-wild colors a number/action card can carry.
var standardColors = [4]Color{Red, Yellow, Green, Blue}

// NewDeck builds the 108-card standard deck described in spec.md §4.1:
// per color one 0, two each of 1-9, two each of skip/reverse/draw2, plus
// four wild and four wild4. Card ids are assigned sequentially starting
// from nextID and are unique within the returned deck.
func NewDeck(nextID *CardID) []Card {
	deck := make([]Card, 0, 108)
	add := func(c Color, v Value) {
		deck = append(deck, Card{ID: *nextID, Color: c, Value: v})
		*nextID++
	}

	for _, c := range standardColors {
		add(c, Zero)
		for _, v := range []Value{One, Two, Three, Four, Five, Six, Seven, Eight, Nine, Skip, Reverse, Draw2} {
			add(c, v)
			add(c, v)
		}
	}
	for i := 0; i < 4; i++ {
		add(Wild, ValueWild)
	}
	for i := 0; i < 4; i++ {
		add(Wild, Wild4)
	}
	return deck
}

// ShuffleDeck performs an in-place Fisher-Yates shuffle, grounded on the
// teacher's domain.ShuffleDeck. Determinism is not required by spec.md
// §4.1; callers that need it (tests) pass a seeded *rand.Rand via Engine.
func ShuffleDeck(rng *rand.Rand, deck []Card) {
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
}

// powerCardTypes is the uniform bag the power deck draws from.
var powerCardTypes = [4]PowerCardType{CardRush, Freeze, ColorRush, SwapHands}

// NewPowerBag builds a fresh uniform bag of n power cards, shuffled. The
// power deck is treated as inexhaustible (spec.md §4.1): when it empties,
// the engine calls NewPowerBag again to replenish it.
func NewPowerBag(rng *rand.Rand, nextID *PowerCardID, n int) []PowerCard {
	bag := make([]PowerCard, 0, n)
	for i := 0; i < n; i++ {
		bag = append(bag, PowerCard{ID: *nextID, Type: powerCardTypes[i%len(powerCardTypes)]})
		*nextID++
	}
	rng.Shuffle(len(bag), func(i, j int) { bag[i], bag[j] = bag[j], bag[i] })
	return bag
}

package engine

import (
	"math/rand"
	"time"
)

// Card is a two-character card code: rank then suit, e.g. "As", "Td", "9c".
type Card string

const (
	ranks = "23456789TJQKA"
	suits = "shdc"
)

// Rank returns the rank character of the card.
func (c Card) Rank() byte {
	if len(c) != 2 {
		return 0
	}
	return c[0]
}

// Suit returns the suit character of the card.
func (c Card) Suit() byte {
	if len(c) != 2 {
		return 0
	}
	return c[1]
}

// Valid reports whether the card is a well-formed standard-deck code.
func (c Card) Valid() bool {
	if len(c) != 2 {
		return false
	}
	return indexByte(ranks, c[0]) >= 0 && indexByte(suits, c[1]) >= 0
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// NewDeck returns a shuffled 52-card deck. A zero seed shuffles from the
// clock; any other value produces a deterministic order.
func NewDeck(seed int64) []Card {
	cards := make([]Card, 0, 52)
	for _, s := range suits {
		for _, r := range ranks {
			cards = append(cards, Card([]byte{byte(r), byte(s)}))
		}
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})

	return cards
}

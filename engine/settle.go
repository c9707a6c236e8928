package engine

import (
	"sort"

	pokereval "github.com/paulhankin/poker"
	"github.com/weedbox/pokerface/settlement"
)

func (h *holdem) Settle(st *HandState) (*Settlement, error) {
	if !st.Finished {
		return nil, ErrHandNotFinished
	}

	var contributed int64
	for i := range st.Seats {
		contributed += st.Seats[i].Contributed
	}

	unfolded := make([]int, 0, len(st.Seats))
	for i := range st.Seats {
		if !st.Seats[i].Folded {
			unfolded = append(unfolded, i)
		}
	}

	result := &Settlement{}

	if len(unfolded) == 1 {
		// Fold-win: the last seat standing takes everything, no reveal.
		winner := st.Seats[unfolded[0]].Seat
		result.Pots = []PotResult{{
			Pot:      0,
			Total:    contributed,
			Eligible: []int{winner},
			Winners:  []int{winner},
			Share:    map[int]int64{winner: contributed},
		}}
		return result, nil
	}

	scores := make(map[int]int, len(unfolded))
	describe := make(map[int]string, len(unfolded))
	result.Reveals = make(map[int][]Card, len(unfolded))
	for _, i := range unfolded {
		seat := &st.Seats[i]
		score, desc := evalSeven(seat.HoleCards, st.Board)
		scores[seat.Seat] = score
		describe[seat.Seat] = desc
		result.Reveals[seat.Seat] = append([]Card(nil), seat.HoleCards...)
	}

	pots := buildPots(st)

	var awarded int64
	for potIdx := range pots {
		pot := &pots[potIdx]
		pot.Pot = potIdx

		rank := settlement.NewPotRank()
		for _, seat := range pot.Eligible {
			rank.AddContributor(scores[seat], seat)
		}
		rank.Calculate()
		winners := rank.GetWinners()
		sort.Ints(winners)

		pot.Winners = winners
		pot.Share = splitPot(pot.Total, winners)
		pot.Describe = make(map[int]string, len(winners))
		for _, w := range winners {
			pot.Describe[w] = describe[w]
		}
		awarded += pot.Total
	}
	result.Pots = pots

	if awarded != contributed {
		return nil, ErrAccountingBroken
	}

	return result, nil
}

// buildPots layers the hand's contributions into a main pot and side pots.
// Folded chips join the lowest pots they reach; each pot is contested only by
// unfolded seats that fully matched its layer.
func buildPots(st *HandState) []PotResult {
	levels := make([]int64, 0, len(st.Seats))
	seen := make(map[int64]bool)
	for i := range st.Seats {
		seat := &st.Seats[i]
		if seat.Folded || seat.Contributed == 0 {
			continue
		}
		if !seen[seat.Contributed] {
			seen[seat.Contributed] = true
			levels = append(levels, seat.Contributed)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]PotResult, 0, len(levels))
	var prev int64
	for _, level := range levels {
		var amount int64
		eligible := make([]int, 0, len(st.Seats))
		for i := range st.Seats {
			seat := &st.Seats[i]
			slice := minInt64(seat.Contributed, level) - minInt64(seat.Contributed, prev)
			amount += slice
			if !seat.Folded && seat.Contributed >= level {
				eligible = append(eligible, seat.Seat)
			}
		}
		prev = level
		if amount > 0 {
			pots = append(pots, PotResult{Total: amount, Eligible: eligible})
		}
	}

	// A folded seat may have contributed past the deepest matched layer;
	// those chips belong to the last pot.
	var excess int64
	for i := range st.Seats {
		if st.Seats[i].Contributed > prev {
			excess += st.Seats[i].Contributed - prev
		}
	}
	if excess > 0 && len(pots) > 0 {
		pots[len(pots)-1].Total += excess
	}

	return pots
}

// splitPot divides a pot among winners; odd chips go to the earliest winners
// in seat order.
func splitPot(total int64, winners []int) map[int]int64 {
	share := make(map[int]int64, len(winners))
	if len(winners) == 0 {
		return share
	}
	each := total / int64(len(winners))
	remainder := total % int64(len(winners))
	for _, w := range winners {
		share[w] = each
		if remainder > 0 {
			share[w]++
			remainder--
		}
	}
	return share
}

// evalSeven scores a seat's best five-card hand from hole cards plus board.
// Higher scores win.
func evalSeven(hole, board []Card) (int, string) {
	cards := make([]pokereval.Card, 0, 7)
	for _, c := range hole {
		cards = append(cards, toLibCard(c))
	}
	for _, c := range board {
		cards = append(cards, toLibCard(c))
	}
	if len(cards) != 7 {
		return 0, ""
	}

	var seven [7]pokereval.Card
	copy(seven[:], cards)
	score := int(pokereval.Eval7(&seven))

	desc, err := pokereval.Describe(cards)
	if err != nil {
		desc = ""
	}
	return score, desc
}

func toLibCard(c Card) pokereval.Card {
	var suit pokereval.Suit
	switch c.Suit() {
	case 'c':
		suit = pokereval.Club
	case 'd':
		suit = pokereval.Diamond
	case 'h':
		suit = pokereval.Heart
	default:
		suit = pokereval.Spade
	}

	var rank pokereval.Rank
	switch c.Rank() {
	case 'A':
		rank = pokereval.Rank(1)
	case 'K':
		rank = pokereval.Rank(13)
	case 'Q':
		rank = pokereval.Rank(12)
	case 'J':
		rank = pokereval.Rank(11)
	case 'T':
		rank = pokereval.Rank(10)
	default:
		rank = pokereval.Rank(int(c.Rank() - '0'))
	}

	card, _ := pokereval.MakeCard(suit, rank)
	return card
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

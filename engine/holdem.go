package engine

// holdem is the native rules-engine implementation: standard-deck Texas
// Hold'em with no-limit, pot-limit, and fixed-limit betting.
type holdem struct {
	fixedRaiseCap int
}

// NewHoldem returns the native Engine implementation.
func NewHoldem() Engine {
	return &holdem{
		fixedRaiseCap: 4,
	}
}

func (h *holdem) NewHand(cfg HandConfig) (*HandState, error) {
	if len(cfg.Seats) < 2 {
		return nil, ErrNotEnoughSeats
	}
	if cfg.BB <= 0 || cfg.SB <= 0 || cfg.SB > cfg.BB || cfg.Ante < 0 {
		return nil, ErrInvalidConfig
	}

	seen := make(map[int]bool)
	buttonIdx := -1
	for i, sc := range cfg.Seats {
		if sc.Stack <= 0 || seen[sc.Seat] {
			return nil, ErrInvalidConfig
		}
		seen[sc.Seat] = true
		if sc.Seat == cfg.Button {
			buttonIdx = i
		}
	}
	if buttonIdx == -1 {
		return nil, ErrInvalidConfig
	}

	structure := cfg.Structure
	if structure == "" {
		structure = NoLimit
	}

	st := &HandState{
		Seats:      make([]SeatState, len(cfg.Seats)),
		Button:     cfg.Button,
		SB:         cfg.SB,
		BB:         cfg.BB,
		Ante:       cfg.Ante,
		Structure:  structure,
		Street:     StreetPreflop,
		CurrentBet: cfg.BB,
		MinRaiseTo: cfg.BB * 2,
		deck:       NewDeck(cfg.Seed),
	}
	for i, sc := range cfg.Seats {
		st.Seats[i] = SeatState{Seat: sc.Seat, Stack: sc.Stack}
	}

	for i := range st.Seats {
		cards, err := st.draw(2)
		if err != nil {
			return nil, err
		}
		st.Seats[i].HoleCards = cards
	}

	if cfg.Ante > 0 {
		for i := range st.Seats {
			st.payAnte(i, cfg.Ante)
		}
	}

	n := len(st.Seats)
	sbIdx := (buttonIdx + 1) % n
	bbIdx := (buttonIdx + 2) % n
	if n == 2 {
		// Heads-up: the button posts the small blind and acts first preflop.
		sbIdx = buttonIdx
		bbIdx = (buttonIdx + 1) % n
	}
	st.commit(sbIdx, cfg.SB)
	st.commit(bbIdx, cfg.BB)

	st.toAct = st.countEligible()
	st.Actor = st.nextEligible(bbIdx)
	if st.Actor == -1 || st.toAct == 0 {
		// Blinds left everyone all-in; run the board out immediately.
		st.runOut()
	}

	return st, nil
}

func (h *holdem) LegalActions(st *HandState) (int, ValidActions, error) {
	if st.Finished {
		return -1, ValidActions{}, ErrHandFinished
	}
	if st.Actor < 0 || st.Actor >= len(st.Seats) {
		return -1, ValidActions{}, ErrNotSeatTurn
	}

	seat := &st.Seats[st.Actor]
	toCall := st.CurrentBet - seat.Committed
	maxTotal := seat.Committed + seat.Stack

	va := ValidActions{
		CanFold:     true,
		CanAllIn:    seat.Stack > 0,
		AllInAmount: maxTotal,
	}

	if toCall <= 0 {
		va.CanCheck = true
	} else if seat.Stack > toCall {
		va.CanCall = true
		va.CallAmount = toCall
	}

	if st.CurrentBet == 0 && seat.Stack > st.minWager(st.Street) {
		va.CanBet = true
		va.MinBet = st.minWager(st.Street)
		va.MaxBet = h.maxWagerTo(st, seat)
		if va.MaxBet < va.MinBet {
			va.CanBet = false
		}
	}

	if st.CurrentBet > 0 && maxTotal > st.CurrentBet {
		minTo := st.MinRaiseTo
		maxTo := h.maxWagerTo(st, seat)
		if st.Structure == FixedLimit {
			minTo = st.CurrentBet + st.minWager(st.Street)
			maxTo = minTo
			if st.raiseCount >= h.fixedRaiseCap {
				maxTo = 0
			}
		}
		if maxTotal >= minTo && maxTo >= minTo {
			va.CanRaise = true
			va.MinRaiseTo = minTo
			va.MaxRaiseTo = maxTo
		}
	}

	return seat.Seat, va, nil
}

func (h *holdem) Apply(st *HandState, seatID int, act Action) (*HandState, error) {
	if st.Finished {
		return nil, ErrHandFinished
	}

	actingSeat, va, err := h.LegalActions(st)
	if err != nil {
		return nil, err
	}
	if actingSeat != seatID {
		return nil, ErrNotSeatTurn
	}
	if !va.Allows(act) {
		return nil, ErrIllegalAction
	}

	next := st.clone()
	seat := &next.Seats[next.Actor]

	switch act.Type {
	case ActionFold:
		seat.Folded = true
		next.toAct--

	case ActionCheck:
		next.toAct--

	case ActionCall:
		next.commit(next.Actor, next.CurrentBet)
		next.voluntaries++
		next.toAct--

	case ActionBet:
		next.commit(next.Actor, act.Chips)
		next.CurrentBet = act.Chips
		next.MinRaiseTo = act.Chips * 2
		next.raiseCount++
		next.voluntaries++
		next.toAct = next.countEligibleExcept(next.Actor)

	case ActionRaise:
		raiseSize := act.Chips - next.CurrentBet
		next.commit(next.Actor, act.Chips)
		next.CurrentBet = act.Chips
		next.MinRaiseTo = act.Chips + raiseSize
		next.raiseCount++
		next.voluntaries++
		next.toAct = next.countEligibleExcept(next.Actor)

	case ActionAllIn:
		total := seat.Committed + seat.Stack
		next.commit(next.Actor, total)
		next.voluntaries++
		if total > next.CurrentBet {
			// A short all-in raises the price to call but only a full
			// raise re-opens the betting.
			if total >= next.MinRaiseTo {
				next.MinRaiseTo = total + (total - next.CurrentBet)
				next.raiseCount++
			}
			next.CurrentBet = total
			next.toAct = next.countEligibleExcept(next.Actor)
		} else {
			next.toAct--
		}
	}

	next.afterAction()
	return next, nil
}

// minWager is the minimum opening bet for a street; fixed-limit doubles on
// turn and river.
func (st *HandState) minWager(street Street) int64 {
	if st.Structure == FixedLimit && (street == StreetTurn || street == StreetRiver) {
		return st.BB * 2
	}
	return st.BB
}

// maxWagerTo caps the total street wager by structure: stack for no-limit,
// pot-size for pot-limit.
func (h *holdem) maxWagerTo(st *HandState, seat *SeatState) int64 {
	maxTotal := seat.Committed + seat.Stack
	if st.Structure != PotLimit {
		return maxTotal
	}

	var pot int64
	for i := range st.Seats {
		pot += st.Seats[i].Contributed
	}
	toCall := st.CurrentBet - seat.Committed
	if toCall < 0 {
		toCall = 0
	}
	limit := st.CurrentBet + pot + toCall
	if limit < maxTotal {
		return limit
	}
	return maxTotal
}

func (st *HandState) afterAction() {
	if st.countUnfolded() == 1 {
		st.Finished = true
		st.Actor = -1
		return
	}

	if st.toAct <= 0 || st.countEligible() <= 1 && st.allMatched() {
		st.advanceStreet()
		return
	}

	st.Actor = st.nextEligible(st.Actor)
	if st.Actor == -1 {
		st.advanceStreet()
	}
}

// allMatched reports whether every eligible seat has matched the current bet,
// which closes the street once the remaining actor count can no longer
// change the price.
func (st *HandState) allMatched() bool {
	for i := range st.Seats {
		if st.eligible(i) && st.Seats[i].Committed < st.CurrentBet {
			return false
		}
	}
	return true
}

func (st *HandState) advanceStreet() {
	for i := range st.Seats {
		st.Seats[i].Committed = 0
	}
	st.CurrentBet = 0
	st.MinRaiseTo = st.BB
	st.raiseCount = 0

	switch st.Street {
	case StreetPreflop:
		st.Street = StreetFlop
		st.dealBoard(3)
		st.SawFlop = true
	case StreetFlop:
		st.Street = StreetTurn
		st.dealBoard(1)
	case StreetTurn:
		st.Street = StreetRiver
		st.dealBoard(1)
	case StreetRiver:
		st.Street = StreetShowdown
		st.Finished = true
		st.Actor = -1
		return
	}

	if st.countEligible() < 2 {
		st.runOut()
		return
	}

	buttonIdx := 0
	for i := range st.Seats {
		if st.Seats[i].Seat == st.Button {
			buttonIdx = i
			break
		}
	}
	st.Actor = st.nextEligible(buttonIdx)
	st.toAct = st.countEligible()
	if st.Actor == -1 {
		st.runOut()
	}
}

// runOut deals the remaining board when no further decisions are possible.
func (st *HandState) runOut() {
	for len(st.Board) < 5 {
		st.dealBoard(1)
		if len(st.Board) >= 3 {
			st.SawFlop = true
		}
	}
	st.SawFlop = true
	st.Street = StreetShowdown
	st.Finished = true
	st.Actor = -1
	st.toAct = 0
}

func (st *HandState) dealBoard(n int) {
	cards, err := st.draw(n)
	if err != nil {
		return
	}
	st.Board = append(st.Board, cards...)
}

func (st *HandState) draw(n int) ([]Card, error) {
	if len(st.deck) < n {
		return nil, ErrEmptyDeck
	}
	cards := st.deck[:n]
	st.deck = st.deck[n:]
	return cards, nil
}

// commit moves chips so the seat's street total becomes total, capped at
// all-in.
func (st *HandState) commit(idx int, total int64) {
	seat := &st.Seats[idx]
	amount := total - seat.Committed
	if amount >= seat.Stack {
		amount = seat.Stack
		seat.AllIn = true
	}
	if amount < 0 {
		amount = 0
	}
	seat.Stack -= amount
	seat.Committed += amount
	seat.Contributed += amount
}

// payAnte contributes directly to the pot without counting toward the
// street's bet matching.
func (st *HandState) payAnte(idx int, ante int64) {
	seat := &st.Seats[idx]
	amount := ante
	if amount >= seat.Stack {
		amount = seat.Stack
		seat.AllIn = true
	}
	seat.Stack -= amount
	seat.Contributed += amount
}

func (st *HandState) eligible(idx int) bool {
	seat := &st.Seats[idx]
	return !seat.Folded && !seat.AllIn && seat.Stack > 0
}

func (st *HandState) countEligible() int {
	n := 0
	for i := range st.Seats {
		if st.eligible(i) {
			n++
		}
	}
	return n
}

func (st *HandState) countEligibleExcept(idx int) int {
	n := st.countEligible()
	if st.eligible(idx) {
		n--
	}
	return n
}

func (st *HandState) countUnfolded() int {
	n := 0
	for i := range st.Seats {
		if !st.Seats[i].Folded {
			n++
		}
	}
	return n
}

func (st *HandState) nextEligible(from int) int {
	n := len(st.Seats)
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		if st.eligible(idx) {
			return idx
		}
	}
	return -1
}

func (st *HandState) clone() *HandState {
	next := *st
	next.Seats = make([]SeatState, len(st.Seats))
	copy(next.Seats, st.Seats)
	for i := range next.Seats {
		next.Seats[i].HoleCards = append([]Card(nil), st.Seats[i].HoleCards...)
	}
	next.Board = append([]Card(nil), st.Board...)
	next.deck = append([]Card(nil), st.deck...)
	return &next
}

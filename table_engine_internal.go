package cardroom

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/weedbox/timebank"
	"go.uber.org/zap"

	"github.com/openpoker/cardroom/engine"
)

const (
	GameEndReason_Completed   = "completed"
	GameEndReason_Stopped     = "stopped"
	GameEndReason_TableClosed = "table_closed"
	GameEndReason_Error       = "error"
)

func (te *tableEngine) beginGame() {
	te.lock.Lock()
	if te.status != TableStatus_Gathering {
		te.lock.Unlock()
		return
	}
	te.status = TableStatus_Playing
	te.stopRequested = false

	te.emitEvent(Event{
		Type:        EventGameStarted,
		GameStarted: &GameStartedPayload{Seats: te.rosterLocked()},
	})
	te.logger.Info("game started",
		zap.String("table_id", te.setting.TableID),
		zap.Int("players", te.seatedCount()))
	te.lock.Unlock()

	go te.runGame()
}

// runGame is the table's single thread of control: one hand at a time, never
// two decision points of the same hand concurrently.
func (te *tableEngine) runGame() {
	reason := GameEndReason_Completed

	for {
		te.lock.Lock()
		if te.status == TableStatus_Closed {
			reason = GameEndReason_TableClosed
			te.lock.Unlock()
			break
		}
		if te.stopRequested {
			reason = GameEndReason_Stopped
			te.lock.Unlock()
			break
		}
		if len(te.activeSeats()) < 2 {
			reason = GameEndReason_Completed
			te.lock.Unlock()
			break
		}
		te.lock.Unlock()

		if err := te.playHand(); err != nil {
			te.lock.Lock()
			te.emitErrorEvent("hand", err)
			te.lock.Unlock()
			reason = GameEndReason_Error
			break
		}
	}

	te.finishGame(reason)
}

func (te *tableEngine) playHand() error {
	te.lock.Lock()

	te.handNum++
	handID := uuid.New().String()
	meta := te.setting.Meta

	sb, bb, ante := meta.SB, meta.BB, meta.Ante
	level := 0
	if te.clock != nil {
		cur := te.clock.Current()
		sb, bb, ante = cur.SB, cur.BB, cur.Ante
		level = cur.Level
	}

	active := te.activeSeats()
	te.button = nextOccupied(te.button, active)

	seatConfigs := make([]engine.SeatConfig, 0, len(active))
	handInfos := make([]SeatInfo, 0, len(active))
	names := make(map[int]string, len(active))
	startStacks := make(map[int]int64, len(active))
	for _, seatID := range active {
		seat := te.seats[seatID]
		seatConfigs = append(seatConfigs, engine.SeatConfig{Seat: seatID, Stack: seat.info.Stack})
		handInfos = append(handInfos, seat.info)
		names[seatID] = seat.info.Name
		startStacks[seatID] = seat.info.Stack
	}

	seed := int64(0)
	if meta.Seed != 0 {
		seed = meta.Seed + int64(te.handNum)
	}

	st, err := te.game.NewHand(engine.HandConfig{
		Seats:     seatConfigs,
		Button:    te.button,
		SB:        sb,
		BB:        bb,
		Ante:      ante,
		Structure: meta.Structure,
		Seed:      seed,
	})
	if err != nil {
		te.lock.Unlock()
		return err
	}

	handNum := te.handNum
	te.emitHandEvent(handID, Event{
		Type: EventHandStarted,
		HandStarted: &HandStartedPayload{
			HandNum: handNum,
			Button:  te.button,
			SB:      sb,
			BB:      bb,
			Ante:    ante,
			Level:   level,
			Seats:   handInfos,
		},
	})
	te.logger.Info("hand started",
		zap.String("table_id", te.setting.TableID),
		zap.String("hand_id", handID),
		zap.Int("hand_num", handNum),
		zap.Int("button", te.button))

	for i := range st.Seats {
		te.emitHandEvent(handID, Event{
			Type: EventHoleCardsDealt,
			HoleCardsDealt: &HoleCardsDealtPayload{
				Seat:  st.Seats[i].Seat,
				Cards: append([]engine.Card(nil), st.Seats[i].HoleCards...),
			},
		})
	}

	te.emitBlindEvents(handID, st, ante)
	te.lock.Unlock()

	history := make([]ActionRecord, 0, 32)
	prevStreet := st.Street

	for !st.Finished {
		seatID, valid, err := te.game.LegalActions(st)
		if err != nil {
			return err
		}

		timeLimit := time.Duration(meta.ActionTimeoutSec) * time.Second
		requestID := uuid.New().String()

		te.lock.Lock()
		snapshot := te.buildSnapshot(st, handID, handNum, seatID, history)
		te.emitHandEvent(handID, Event{
			Type: EventActionRequested,
			ActionRequested: &ActionRequestedPayload{
				Seat:        seatID,
				RequestID:   requestID,
				Valid:       valid,
				TimeLimitMs: timeLimit.Milliseconds(),
			},
		})
		var src DecisionSource
		absent := true
		if seat, ok := te.seats[seatID]; ok {
			src = seat.source
			absent = seat.left
		}
		te.lock.Unlock()

		act, timedOut, answered := te.requestDecision(src, absent, snapshot, valid, timeLimit)

		defaulted := false
		if !answered || !valid.Allows(act) {
			if answered {
				te.logger.Warn("rule violation, substituting default action",
					zap.String("table_id", te.setting.TableID),
					zap.Int("seat", seatID),
					zap.String("action", string(act.Type)))
			}
			act = DefaultAction(valid)
			defaulted = true
		}

		next, err := te.game.Apply(st, seatID, act)
		if err != nil {
			// The valid set said yes but the engine said no; the default
			// must be accepted or the hand cannot make progress.
			act = DefaultAction(valid)
			defaulted = true
			next, err = te.game.Apply(st, seatID, act)
			if err != nil {
				return err
			}
		}

		// Normalize wager totals so event consumers see the street total
		// for calls and all-ins.
		normalized := act
		if normalized.Type == engine.ActionCall || normalized.Type == engine.ActionAllIn {
			if seat := next.SeatByID(seatID); seat != nil {
				normalized.Chips = seat.Committed
			}
		}

		te.lock.Lock()
		te.emitHandEvent(handID, Event{
			Type: EventActionTaken,
			ActionTaken: &ActionTakenPayload{
				Seat:      seatID,
				RequestID: requestID,
				Action:    normalized,
				TimedOut:  timedOut,
				Defaulted: defaulted,
			},
		})
		history = append(history, ActionRecord{Seat: seatID, Street: st.Street, Action: normalized, TimedOut: timedOut})

		st = next
		if st.Street != prevStreet {
			te.emitHandEvent(handID, Event{
				Type: EventStreetChanged,
				StreetChanged: &StreetChangedPayload{
					Street: st.Street,
					Board:  append([]engine.Card(nil), st.Board...),
					Pot:    contributedTotal(st),
				},
			})
			prevStreet = st.Street
		}
		te.lock.Unlock()
	}

	return te.settleHand(handID, handNum, st, names, startStacks)
}

func (te *tableEngine) settleHand(handID string, handNum int, st *engine.HandState, names map[int]string, startStacks map[int]int64) error {
	result, err := te.game.Settle(st)
	if err != nil {
		return err
	}

	total := contributedTotal(st)
	meta := te.setting.Meta

	rake := int64(0)
	if meta.Format == FormatCash {
		exempt := meta.Rake.NoFlopNoDrop && !st.SawFlop && !st.SawAction()
		if !exempt {
			rake = RakeAmount(total, meta.Rake)
		}
	}
	pots := applyRake(result.Pots, rake)

	var awarded int64
	shares := make(map[int]int64)
	for _, pot := range pots {
		awarded += pot.Total
		for seatID, amount := range pot.Share {
			shares[seatID] += amount
		}
	}
	if awarded+rake != total {
		return ErrDriverAccounting
	}

	te.lock.Lock()
	defer te.lock.Unlock()

	if len(result.Reveals) > 0 {
		describe := make(map[int]string)
		for _, pot := range pots {
			for seatID, desc := range pot.Describe {
				if desc != "" {
					describe[seatID] = desc
				}
			}
		}
		te.emitHandEvent(handID, Event{
			Type: EventShowdownReveal,
			ShowdownReveal: &ShowdownRevealPayload{
				Reveals:  result.Reveals,
				Describe: describe,
			},
		})
	}

	for _, pot := range pots {
		te.emitHandEvent(handID, Event{
			Type: EventPotAwarded,
			PotAwarded: &PotAwardedPayload{
				Pot:     pot.Pot,
				Amount:  pot.Total,
				Winners: pot.Winners,
				Share:   pot.Share,
			},
		})
	}

	// Write back final stacks.
	results := make([]HandResult, 0, len(st.Seats))
	for i := range st.Seats {
		seatState := &st.Seats[i]
		final := seatState.Stack + shares[seatState.Seat]
		if seat, ok := te.seats[seatState.Seat]; ok {
			seat.info.Stack = final
		}
		desc := ""
		for _, pot := range pots {
			if d, ok := pot.Describe[seatState.Seat]; ok {
				desc = d
			}
		}
		results = append(results, HandResult{
			Seat:        seatState.Seat,
			Name:        names[seatState.Seat],
			StackChange: final - startStacks[seatState.Seat],
			FinalStack:  final,
			Description: desc,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Seat < results[j].Seat })

	te.emitHandEvent(handID, Event{
		Type: EventHandEnded,
		HandEnded: &HandEndedPayload{
			HandNum: handNum,
			Results: results,
			Rake:    rake,
		},
	})

	// Eliminations.
	for _, result := range results {
		if result.FinalStack > 0 {
			continue
		}
		if seat, ok := te.seats[result.Seat]; ok && !seat.info.Out {
			seat.info.Out = true
			te.emitHandEvent(handID, Event{
				Type:             EventPlayerEliminated,
				PlayerEliminated: &PlayerEliminatedPayload{Seat: result.Seat, Name: result.Name},
			})
		}
	}

	// Mid-hand departures leave now.
	for seatID, seat := range te.seats {
		if seat.left {
			delete(te.seats, seatID)
			te.emitEvent(Event{
				Type:       EventPlayerLeft,
				PlayerLeft: &PlayerLeftPayload{Seat: seatID, Name: seat.info.Name},
			})
		}
	}

	if te.clock != nil && te.clock.AdvanceHand() {
		cur := te.clock.Current()
		te.emitEvent(Event{
			Type: EventBlindLevelChange,
			BlindLevelChange: &BlindLevelChangePayload{
				Level: cur.Level,
				SB:    cur.SB,
				BB:    cur.BB,
				Ante:  cur.Ante,
			},
		})
		te.logger.Info("blind level up",
			zap.String("table_id", te.setting.TableID),
			zap.Int("level", cur.Level),
			zap.Int64("sb", cur.SB),
			zap.Int64("bb", cur.BB))
	}

	return nil
}

// requestDecision issues one bounded-time request. It returns the action, a
// timed-out flag, and whether the source answered in time; a response that
// lands after the deadline goes to a buffered channel nobody reads again.
func (te *tableEngine) requestDecision(src DecisionSource, absent bool, snapshot *GameSnapshot, valid engine.ValidActions, timeLimit time.Duration) (engine.Action, bool, bool) {
	if src == nil || absent {
		return engine.Action{}, false, false
	}

	type response struct {
		act engine.Action
		err error
	}
	respCh := make(chan response, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		act, err := src.RequestAction(ctx, snapshot, valid, timeLimit)
		respCh <- response{act: act, err: err}
	}()

	timeoutCh := make(chan struct{})
	tb := timebank.NewTimeBank()
	if err := tb.NewTask(timeLimit, func(isCancelled bool) {
		if !isCancelled {
			close(timeoutCh)
		}
	}); err != nil {
		// Deadline machinery failed; fall back to an immediate default.
		cancel()
		return engine.Action{}, false, false
	}

	select {
	case resp := <-respCh:
		tb.Cancel()
		cancel()
		if resp.err != nil {
			return engine.Action{}, false, false
		}
		return resp.act, false, true
	case <-timeoutCh:
		cancel()
		return engine.Action{}, true, false
	}
}

// buildSnapshot assembles the requesting seat's view. Callers hold te.lock.
func (te *tableEngine) buildSnapshot(st *engine.HandState, handID string, handNum int, self int, history []ActionRecord) *GameSnapshot {
	seats := make([]SnapshotSeat, 0, len(st.Seats))
	var hole []engine.Card
	for i := range st.Seats {
		seatState := &st.Seats[i]
		name := ""
		if seat, ok := te.seats[seatState.Seat]; ok {
			name = seat.info.Name
		}
		seats = append(seats, SnapshotSeat{
			Seat:      seatState.Seat,
			Name:      name,
			Stack:     seatState.Stack,
			Committed: seatState.Committed,
			Folded:    seatState.Folded,
			AllIn:     seatState.AllIn,
		})
		if seatState.Seat == self {
			hole = append([]engine.Card(nil), seatState.HoleCards...)
		}
	}

	return &GameSnapshot{
		TableID:    te.setting.TableID,
		HandID:     handID,
		HandNum:    handNum,
		Time:       time.Now().UnixMilli(),
		Street:     st.Street,
		Board:      append([]engine.Card(nil), st.Board...),
		Pot:        contributedTotal(st),
		CurrentBet: st.CurrentBet,
		Button:     st.Button,
		Seats:      seats,
		Self:       self,
		HoleCards:  hole,
		History:    append([]ActionRecord(nil), history...),
	}
}

func (te *tableEngine) emitBlindEvents(handID string, st *engine.HandState, ante int64) {
	if ante > 0 {
		for i := range st.Seats {
			te.emitHandEvent(handID, Event{
				Type:        EventBlindPosted,
				BlindPosted: &BlindPostedPayload{Seat: st.Seats[i].Seat, Kind: "ante", Amount: ante},
			})
		}
	}

	sbSeat, bbSeat := blindSeats(st)
	if seat := st.SeatByID(sbSeat); seat != nil {
		amount := st.SB
		if seat.Committed < amount {
			amount = seat.Committed
		}
		te.emitHandEvent(handID, Event{
			Type:        EventBlindPosted,
			BlindPosted: &BlindPostedPayload{Seat: sbSeat, Kind: "small", Amount: amount},
		})
	}
	if seat := st.SeatByID(bbSeat); seat != nil {
		amount := st.BB
		if seat.Committed < amount {
			amount = seat.Committed
		}
		te.emitHandEvent(handID, Event{
			Type:        EventBlindPosted,
			BlindPosted: &BlindPostedPayload{Seat: bbSeat, Kind: "big", Amount: amount},
		})
	}
}

func (te *tableEngine) emitHandEvent(handID string, ev Event) {
	ev.HandID = handID
	te.emitEvent(ev)
}

func (te *tableEngine) finishGame(reason string) {
	te.lock.Lock()

	standings := te.standingsLocked()
	te.emitEvent(Event{
		Type:      EventGameEnded,
		GameEnded: &GameEndedPayload{Reason: reason, Standings: standings},
	})
	te.logger.Info("game ended",
		zap.String("table_id", te.setting.TableID),
		zap.String("reason", reason),
		zap.Int("hands", te.handNum))

	closed := te.status == TableStatus_Closed
	if !closed {
		te.status = TableStatus_Created
		for _, seat := range te.seats {
			if !seat.info.IsBot {
				seat.info.Ready = false
			}
		}
	}
	te.lock.Unlock()

	if closed || reason == GameEndReason_Error {
		te.teardown()
	}
}

func (te *tableEngine) teardown() {
	te.lock.Lock()
	te.status = TableStatus_Closed
	te.rg.Stop()
	te.tb.Cancel()
	log := te.log
	tableID := te.setting.TableID
	onClosed := te.onClosed
	te.lock.Unlock()

	if log != nil {
		log.Close()
	}
	onClosed(tableID)
}

// rosterLocked returns seat infos sorted by seat. Callers hold te.lock.
func (te *tableEngine) rosterLocked() []SeatInfo {
	roster := make([]SeatInfo, 0, len(te.seats))
	for _, seat := range te.seats {
		roster = append(roster, seat.info)
	}
	sort.Slice(roster, func(i, j int) bool { return roster[i].Seat < roster[j].Seat })
	return roster
}

// activeSeats lists seats that can be dealt in, ascending. Callers hold
// te.lock.
func (te *tableEngine) activeSeats() []int {
	active := make([]int, 0, len(te.seats))
	for seatID, seat := range te.seats {
		if !seat.left && !seat.info.Out && seat.info.Stack > 0 {
			active = append(active, seatID)
		}
	}
	sort.Ints(active)
	return active
}

// standingsLocked ranks seats by stack; eliminated seats trail. Callers hold
// te.lock.
func (te *tableEngine) standingsLocked() []Standing {
	roster := te.rosterLocked()
	sort.SliceStable(roster, func(i, j int) bool {
		if roster[i].Out != roster[j].Out {
			return !roster[i].Out
		}
		return roster[i].Stack > roster[j].Stack
	})

	standings := make([]Standing, 0, len(roster))
	for i, info := range roster {
		standings = append(standings, Standing{
			Position: i + 1,
			Seat:     info.Seat,
			Name:     info.Name,
			Stack:    info.Stack,
		})
	}
	return standings
}

// nextOccupied rotates the button clockwise to the next active seat.
func nextOccupied(button int, active []int) int {
	if len(active) == 0 {
		return button
	}
	for _, seatID := range active {
		if seatID > button {
			return seatID
		}
	}
	return active[0]
}

// blindSeats derives the small and big blind seats from hand state order:
// heads-up the button posts the small blind.
func blindSeats(st *engine.HandState) (int, int) {
	n := len(st.Seats)
	buttonIdx := 0
	for i := range st.Seats {
		if st.Seats[i].Seat == st.Button {
			buttonIdx = i
			break
		}
	}
	if n == 2 {
		return st.Seats[buttonIdx].Seat, st.Seats[(buttonIdx+1)%n].Seat
	}
	return st.Seats[(buttonIdx+1)%n].Seat, st.Seats[(buttonIdx+2)%n].Seat
}

func contributedTotal(st *engine.HandState) int64 {
	var total int64
	for i := range st.Seats {
		total += st.Seats[i].Contributed
	}
	return total
}

// applyRake deducts the rake from the pots, first pot first, re-splitting
// each affected pot's shares.
func applyRake(pots []engine.PotResult, rake int64) []engine.PotResult {
	out := make([]engine.PotResult, len(pots))
	copy(out, pots)

	remaining := rake
	for i := range out {
		if remaining <= 0 {
			break
		}
		take := remaining
		if take > out[i].Total {
			take = out[i].Total
		}
		out[i].Total -= take
		remaining -= take
		out[i].Share = splitShares(out[i].Total, out[i].Winners)
	}
	return out
}

// splitShares divides an amount among winners, odd chips to the earliest
// seats.
func splitShares(total int64, winners []int) map[int]int64 {
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

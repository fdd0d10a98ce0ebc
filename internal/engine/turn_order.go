package engine

import "slices"

// nextEligible returns the index of the first element at or after from
// (wrapping around) for which eligible holds.
func nextEligible(seq []string, from int, eligible func(string) bool) (int, bool) {
	n := len(seq)
	if n == 0 {
		return 0, false
	}
	from = ((from % n) + n) % n
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		if eligible(seq[idx]) {
			return idx, true
		}
	}
	return 0, false
}

func (r *Room) rebuildTurnOrder() {
	r.TurnOrder = make([]string, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		if id != r.ThinkerID {
			r.TurnOrder = append(r.TurnOrder, id)
		}
	}
	r.TurnIndex = 0
}

// CurrentAsker is the guesser whose turn it is to ask.
func (r *Room) CurrentAsker() (string, bool) {
	if r.Status != StatusPlaying || len(r.TurnOrder) == 0 {
		return "", false
	}
	return r.TurnOrder[r.TurnIndex], true
}

func (r *Room) advanceTurn() {
	if len(r.TurnOrder) == 0 {
		r.TurnIndex = 0
		return
	}
	idx, ok := nextEligible(r.TurnOrder, r.TurnIndex+1, r.isPresent)
	if !ok {
		idx = 0
	}
	r.TurnIndex = idx
}

// removeFromTurnOrder drops id and keeps TurnIndex on the same logical
// player. It reports whether id held the turn, in which case the turn has
// passed to whoever now sits at that index.
func (r *Room) removeFromTurnOrder(id string) bool {
	idx := slices.Index(r.TurnOrder, id)
	if idx < 0 {
		return false
	}
	r.TurnOrder = slices.Delete(r.TurnOrder, idx, idx+1)
	wasCurrent := idx == r.TurnIndex
	switch {
	case idx < r.TurnIndex:
		r.TurnIndex--
	case r.TurnIndex >= len(r.TurnOrder):
		r.TurnIndex = 0
	}
	return wasCurrent
}

// resumeTurn hands the turn to the current asker, or moves on to the guess
// phase once the budget is spent.
func (r *Room) resumeTurn() {
	if r.Status != StatusPlaying || r.closed {
		return
	}
	if r.AskedCount >= r.Rules.MaxQuestions {
		r.enterGuessPhase()
		return
	}
	if r.pending != nil {
		return
	}
	if _, ok := r.PendingQuestion(); ok {
		return
	}
	asker, ok := r.CurrentAsker()
	if !ok {
		r.timers.Cancel(askSlot)
		return
	}
	r.out.Broadcast(EvtTurn, TurnPayload{PlayerID: asker, Player: r.nameOf(asker)})
	r.arm(askSlot, Ticket{Target: asker})
}

func (r *Room) isPresent(id string) bool {
	_, ok := r.players[id]
	return ok
}

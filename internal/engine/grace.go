package engine

// suspendThinker vacates the thinker seat and pauses the round while the
// thinker has a chance to reconnect under the same name.
func (r *Room) suspendThinker(p *Player) {
	r.timers.Cancel(askSlot)
	r.timers.Cancel(answerSlot)
	r.dropRecord(p.ID)
	r.ThinkerID = ""
	if len(r.players) == 0 {
		r.terminate("Everyone left the room", "room is empty")
		return
	}
	r.pending = &GraceTicket{DisplayName: p.Name}
	r.arm(graceSlot, Ticket{})
	r.logf("%s (thinker) disconnected; waiting %s for them to return", p.Name, r.Rules.GracePeriod)
	r.broadcastState()
}

// reclaimThinker seats a returning thinker on their new connection.
func (r *Room) reclaimThinker(id, name string) {
	r.timers.Cancel(graceSlot)
	r.pending = nil
	r.addPlayer(id, name, RoleThinker)
	r.ThinkerID = id

	r.logf("%s (thinker) is back", name)
	r.out.Unicast(id, EvtHistory, HistoryPayload{Logs: r.Logs, Chat: r.Chat})
	r.out.Unicast(id, EvtSecretWord, SecretWordPayload{Word: r.SecretWord})
	r.broadcastState()

	if r.Status != StatusPlaying {
		return
	}
	if q, ok := r.PendingQuestion(); ok {
		r.out.Unicast(id, EvtNewQuestion, q)
		r.arm(answerSlot, Ticket{Target: id, QuestionID: q.ID})
		return
	}
	r.resumeTurn()
}

func (r *Room) graceExpired() {
	if r.pending == nil {
		return
	}
	name := r.pending.DisplayName
	r.logf("%s (thinker) did not come back", name)
	r.terminate("The thinker did not come back", "thinker did not return")
}

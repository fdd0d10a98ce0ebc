package engine

// touch clears the inactivity streak of a player who just acted.
func (r *Room) touch(id string) {
	if p, ok := r.players[id]; ok {
		p.ConsecutiveTimeouts = 0
	}
}

// recordTimeout charges a missed deadline to id and expels them once the
// streak reaches Rules.ExpelAfter. It reports whether id was expelled.
func (r *Room) recordTimeout(id string) bool {
	p, ok := r.players[id]
	if !ok {
		return false
	}
	p.ConsecutiveTimeouts++
	if p.ConsecutiveTimeouts < r.Rules.ExpelAfter {
		return false
	}
	r.expel(p)
	return true
}

func (r *Room) expel(p *Player) {
	r.logf("%s was removed for inactivity", p.Name)
	r.out.Unicast(p.ID, EvtExpelled, ClosedPayload{Reason: "inactivity"})
	if p.ID == r.ThinkerID {
		r.dropRecord(p.ID)
		r.ThinkerID = ""
		r.terminate("The thinker was removed for inactivity", "thinker expelled")
		return
	}
	r.removePlayer(p.ID)
}

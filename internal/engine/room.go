package engine

import "slices"

// Join adds a connection to the room. A join carrying the display name of a
// thinker inside the grace window reclaims the thinker seat instead.
func (r *Room) Join(id, name string) error {
	if r.closed {
		return ErrRoomClosed
	}
	name = normalizeName(name)
	if name == "" {
		return ErrEmptyName
	}
	if r.isPresent(id) {
		return ErrAlreadyInRoom
	}
	if r.pending != nil && r.pending.DisplayName == name {
		r.reclaimThinker(id, name)
		return nil
	}
	for _, p := range r.players {
		if p.Name == name {
			return ErrNameTaken
		}
	}

	role := RoleGuesser
	if r.ThinkerID == "" && r.pending == nil {
		role = RoleThinker
		r.ThinkerID = id
	}
	r.addPlayer(id, name, role)
	r.logf("%s joined", name)
	r.out.Unicast(id, EvtHistory, HistoryPayload{Logs: r.Logs, Chat: r.Chat})
	r.broadcastState()

	if role != RoleGuesser {
		return nil
	}
	switch r.Status {
	case StatusPlaying:
		r.TurnOrder = append(r.TurnOrder, id)
		if len(r.TurnOrder) == 1 {
			r.TurnIndex = 0
			r.resumeTurn()
		}
	case StatusGuessing:
		r.grantAttempts(id)
	}
	return nil
}

// Leave handles an explicit leave. A thinker walking out of a round ends it
// and closes the room.
func (r *Room) Leave(id string) error {
	p, ok := r.players[id]
	if !ok {
		return ErrNotInRoom
	}
	if id == r.ThinkerID && r.Status != StatusWaiting {
		r.logf("%s (thinker) left the game", p.Name)
		r.terminate("The thinker left the game", "thinker left")
		return nil
	}
	r.logf("%s left", p.Name)
	r.removePlayer(id)
	return nil
}

// Disconnect handles a dropped connection. A thinker disconnecting mid-round
// opens the grace window.
func (r *Room) Disconnect(id string) {
	p, ok := r.players[id]
	if !ok {
		return
	}
	if id == r.ThinkerID && r.Status != StatusWaiting {
		r.suspendThinker(p)
		return
	}
	r.logf("%s disconnected", p.Name)
	r.removePlayer(id)
}

// SendChat relays a chat line to the room.
func (r *Room) SendChat(id, text string) error {
	p, ok := r.players[id]
	if !ok {
		return ErrNotInRoom
	}
	text = normalizeName(text)
	if text == "" {
		return ErrEmptyText
	}
	line := ChatLine{PlayerID: id, Player: p.Name, Text: text}
	r.Chat = append(r.Chat, line)
	r.out.Broadcast(EvtChat, line)
	return nil
}

func (r *Room) addPlayer(id, name string, role Role) {
	r.players[id] = &Player{ID: id, Name: name, Role: role}
	r.joinOrder = append(r.joinOrder, id)
}

func (r *Room) dropRecord(id string) {
	delete(r.players, id)
	if idx := slices.Index(r.joinOrder, id); idx >= 0 {
		r.joinOrder = slices.Delete(r.joinOrder, idx, idx+1)
	}
	r.out.Detach(id)
}

// removePlayer takes a non-thinker (or a thinker between rounds) out of the
// room and repairs turn order, guess slots and the thinker seat.
func (r *Room) removePlayer(id string) {
	r.dropRecord(id)
	if len(r.players) == 0 {
		r.destroy("room is empty")
		return
	}

	wasCurrent := r.removeFromTurnOrder(id)
	switch r.Status {
	case StatusWaiting:
		if id == r.ThinkerID {
			r.ThinkerID = ""
			r.rotateThinker(id)
		}
	case StatusPlaying:
		if _, open := r.PendingQuestion(); wasCurrent && open {
			r.turnMoved = true
		}
		if wasCurrent {
			r.resumeTurn()
		} else if len(r.TurnOrder) == 0 {
			r.timers.Cancel(askSlot)
		}
	case StatusGuessing:
		r.removeGuesser(id)
	}
	if !r.closed {
		r.broadcastState()
	}
}

// destroy shuts the room down for good.
func (r *Room) destroy(reason string) {
	if r.closed {
		return
	}
	r.timers.CancelAll()
	r.pending = nil
	r.closed = true
	r.out.Broadcast(EvtRoomClosed, ClosedPayload{Reason: reason})
	for _, id := range slices.Clone(r.joinOrder) {
		r.out.Detach(id)
	}
}

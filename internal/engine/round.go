package engine

import "strings"

// StartRound begins a round with the thinker's secret word.
func (r *Room) StartRound(id, word string) error {
	if r.closed {
		return ErrRoomClosed
	}
	if id != r.ThinkerID {
		return ErrNotThinker
	}
	if r.Status != StatusWaiting {
		return ErrRoundInProgress
	}
	word = strings.TrimSpace(word)
	if word == "" {
		return ErrEmptySecret
	}

	r.SecretWord = word
	r.Questions = nil
	r.Guesses = nil
	r.FinalGuesses = nil
	r.AskedCount = 0
	r.GuessAttempts = nil
	r.turnMoved = false
	r.rebuildTurnOrder()
	for _, p := range r.players {
		p.ConsecutiveTimeouts = 0
	}
	r.Status = StatusPlaying

	r.out.Unicast(r.ThinkerID, EvtSecretWord, SecretWordPayload{Word: word})
	r.logf("%s started a new round", r.nameOf(r.ThinkerID))
	r.out.Broadcast(EvtRoundStarted, RoundStartedPayload{
		MaxQuestions: r.Rules.MaxQuestions,
		Players:      r.playerViews(),
	})
	r.broadcastCounter()
	r.broadcastState()
	r.resumeTurn()
	return nil
}

func (r *Room) roundEnded(message, winnerID string) RoundEndedPayload {
	return RoundEndedPayload{
		Code:         r.Code,
		Message:      message,
		SecretWord:   r.SecretWord,
		Questions:    append([]Question(nil), r.Questions...),
		Guesses:      append([]Guess(nil), r.Guesses...),
		FinalGuesses: append([]Guess(nil), r.FinalGuesses...),
		WinnerID:     winnerID,
		Winner:       r.nameOf(winnerID),
	}
}

// endRound closes the current round, hands the thinker role on and returns
// the room to waiting.
func (r *Room) endRound(message, winnerID string) {
	r.timers.CancelAll()
	r.pending = nil
	r.out.Broadcast(EvtRoundEnded, r.roundEnded(message, winnerID))
	r.logf("Round over: %s (the word was %q)", message, r.SecretWord)

	outgoing := r.ThinkerID
	r.rotateThinker(outgoing)

	r.Status = StatusWaiting
	r.SecretWord = ""
	r.GuessAttempts = nil
	r.broadcastState()
}

// terminate ends the round with the word revealed and no winner, then closes
// the room.
func (r *Room) terminate(message, reason string) {
	r.timers.CancelAll()
	if r.Status != StatusWaiting {
		r.out.Broadcast(EvtRoundEnded, r.roundEnded(message, ""))
	}
	r.Status = StatusWaiting
	r.SecretWord = ""
	r.GuessAttempts = nil
	r.destroy(reason)
}

// rotateThinker picks the guesser holding the turn, else any other member,
// else keeps the outgoing thinker.
func (r *Room) rotateThinker(outgoing string) {
	next := ""
	other := func(id string) bool { return id != outgoing && r.isPresent(id) }
	if idx, ok := nextEligible(r.TurnOrder, r.TurnIndex, other); ok {
		next = r.TurnOrder[idx]
	} else if idx, ok := nextEligible(r.joinOrder, 0, other); ok {
		next = r.joinOrder[idx]
	} else if r.isPresent(outgoing) {
		next = outgoing
	}

	r.ThinkerID = next
	for id, p := range r.players {
		if id == next {
			p.Role = RoleThinker
		} else {
			p.Role = RoleGuesser
		}
	}
	r.rebuildTurnOrder()
	if next != "" && next != outgoing {
		r.logf("%s is the new thinker", r.nameOf(next))
	}
}

// Close shuts the room down from outside, revealing the word if a round is
// live.
func (r *Room) Close(reason string) {
	if r.closed {
		return
	}
	r.logf("Room closed: %s", reason)
	r.terminate("The room was closed", reason)
}

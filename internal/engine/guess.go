package engine

import (
	"maps"
	"strings"
)

// SubmitGuess handles a guess at the secret word. While questions are still
// being asked only the current asker may guess, and a miss ends their turn.
// In the guess phase every guesser with attempts left may guess.
func (r *Room) SubmitGuess(id, text string) error {
	if r.closed {
		return ErrRoomClosed
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	switch r.Status {
	case StatusPlaying:
		return r.prematureGuess(id, text)
	case StatusGuessing:
		return r.finalGuess(id, text)
	default:
		return ErrNotPlaying
	}
}

func (r *Room) prematureGuess(id, text string) error {
	if err := r.checkAsker(id); err != nil {
		return err
	}
	r.touch(id)
	r.timers.Cancel(askSlot)

	g := Guess{PlayerID: id, Player: r.nameOf(id), Text: text, Correct: MatchesSecret(r.SecretWord, text)}
	r.Guesses = append(r.Guesses, g)
	r.out.Broadcast(EvtGuess, g)
	if g.Correct {
		r.endRound(g.Player+" guessed the word", id)
		return nil
	}
	if r.Rules.PrematureGuessCostsQuestion {
		r.AskedCount++
		r.broadcastCounter()
	}
	r.advanceTurn()
	r.resumeTurn()
	return nil
}

func (r *Room) finalGuess(id, text string) error {
	if id == r.ThinkerID {
		return ErrIsThinker
	}
	if !r.isPresent(id) {
		return ErrNotInRoom
	}
	if r.GuessAttempts[id] <= 0 {
		return ErrNoAttemptsLeft
	}
	r.touch(id)
	r.timers.Cancel(guessSlot(id))
	r.GuessAttempts[id]--

	g := Guess{PlayerID: id, Player: r.nameOf(id), Text: text, Correct: MatchesSecret(r.SecretWord, text)}
	r.FinalGuesses = append(r.FinalGuesses, g)
	r.out.Broadcast(EvtGuess, g)
	if g.Correct {
		r.endRound(g.Player+" guessed the word", id)
		return nil
	}
	if r.GuessAttempts[id] > 0 {
		r.arm(guessSlot(id), Ticket{Target: id})
	}
	r.checkGuessPhaseOver()
	return nil
}

// enterGuessPhase starts the final guessing with independent countdowns for
// every guesser.
func (r *Room) enterGuessPhase() {
	r.timers.Cancel(askSlot)
	r.timers.Cancel(answerSlot)
	r.Status = StatusGuessing
	r.GuessAttempts = make(map[string]int)
	guessers := make([]string, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		if id != r.ThinkerID {
			r.GuessAttempts[id] = r.Rules.GuessAttempts
			guessers = append(guessers, id)
		}
	}
	r.logf("No questions left: time to guess")
	r.out.Broadcast(EvtGuessPhase, GuessPhasePayload{Attempts: r.attemptsView()})
	r.broadcastState()
	for _, id := range guessers {
		r.arm(guessSlot(id), Ticket{Target: id})
	}
	r.checkGuessPhaseOver()
}

// grantAttempts lets a guesser who joins mid-phase take part.
func (r *Room) grantAttempts(id string) {
	r.GuessAttempts[id] = r.Rules.GuessAttempts
	r.out.Broadcast(EvtGuessPhase, GuessPhasePayload{Attempts: r.attemptsView()})
	r.arm(guessSlot(id), Ticket{Target: id})
}

func (r *Room) removeGuesser(id string) {
	if _, ok := r.GuessAttempts[id]; !ok {
		return
	}
	delete(r.GuessAttempts, id)
	r.timers.Cancel(guessSlot(id))
	r.checkGuessPhaseOver()
}

func (r *Room) guessTimeout(t Ticket) {
	if r.Status != StatusGuessing || !r.isPresent(t.Target) || r.GuessAttempts[t.Target] <= 0 {
		return
	}
	r.GuessAttempts[t.Target]--
	g := Guess{PlayerID: t.Target, Player: r.nameOf(t.Target), TimedOut: true}
	r.FinalGuesses = append(r.FinalGuesses, g)
	r.out.Broadcast(EvtGuess, g)

	if r.recordTimeout(t.Target) {
		return
	}
	if r.GuessAttempts[t.Target] > 0 {
		r.arm(guessSlot(t.Target), Ticket{Target: t.Target})
	}
	r.checkGuessPhaseOver()
}

// checkGuessPhaseOver ends the round without a winner once nobody has an
// attempt left.
func (r *Room) checkGuessPhaseOver() {
	if r.Status != StatusGuessing || r.closed {
		return
	}
	for _, left := range r.GuessAttempts {
		if left > 0 {
			return
		}
	}
	r.endRound("Nobody guessed the word", "")
}

func (r *Room) attemptsView() map[string]int {
	return maps.Clone(r.GuessAttempts)
}

package engine

import "strings"

// AskQuestion submits the current asker's question to the thinker.
func (r *Room) AskQuestion(id, text string) error {
	if err := r.checkAsker(id); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	r.touch(id)
	q := Question{ID: len(r.Questions) + 1, AskerID: id, Asker: r.nameOf(id), Text: text}
	r.Questions = append(r.Questions, q)
	r.timers.Cancel(askSlot)
	r.out.Broadcast(EvtNewQuestion, q)
	r.arm(answerSlot, Ticket{Target: r.ThinkerID, QuestionID: q.ID})
	return nil
}

// checkAsker validates that id may act on its turn right now.
func (r *Room) checkAsker(id string) error {
	if r.closed {
		return ErrRoomClosed
	}
	if !r.isPresent(id) {
		return ErrNotInRoom
	}
	if r.Status != StatusPlaying {
		return ErrNotPlaying
	}
	if id == r.ThinkerID {
		return ErrIsThinker
	}
	if r.pending != nil {
		return ErrRoundPaused
	}
	if _, ok := r.PendingQuestion(); ok {
		return ErrQuestionPending
	}
	if asker, ok := r.CurrentAsker(); !ok || asker != id {
		return ErrNotYourTurn
	}
	return nil
}

// AnswerQuestion records the thinker's answer and passes the turn on.
func (r *Room) AnswerQuestion(id string, questionID int, answer Answer) error {
	if r.closed {
		return ErrRoomClosed
	}
	if id != r.ThinkerID {
		return ErrNotThinker
	}
	if r.Status != StatusPlaying {
		return ErrNotPlaying
	}
	switch answer {
	case AnswerYes, AnswerNo, AnswerDontKnow:
	default:
		return ErrInvalidAnswer
	}
	idx := questionID - 1
	if idx < 0 || idx >= len(r.Questions) {
		return ErrQuestionNotFound
	}
	if r.Questions[idx].Answer != AnswerNone {
		return ErrAlreadyAnswered
	}

	r.touch(id)
	r.timers.Cancel(answerSlot)
	r.settleQuestion(idx, answer)
	return nil
}

// settleQuestion stores an answer, charges the budget and moves the turn on.
func (r *Room) settleQuestion(idx int, answer Answer) {
	r.Questions[idx].Answer = answer
	if answer.ConsumesBudget() {
		r.AskedCount++
	}
	r.out.Broadcast(EvtQuestionAnswered, r.Questions[idx])
	r.broadcastCounter()
	if r.turnMoved {
		r.turnMoved = false
	} else {
		r.advanceTurn()
	}
	r.resumeTurn()
}

func (r *Room) askTimeout(t Ticket) {
	if r.Status != StatusPlaying || r.pending != nil {
		return
	}
	if _, ok := r.PendingQuestion(); ok {
		return
	}
	if asker, ok := r.CurrentAsker(); !ok || asker != t.Target {
		return
	}

	r.AskedCount++
	r.logf("%s ran out of time to ask", r.nameOf(t.Target))
	r.broadcastCounter()
	if r.recordTimeout(t.Target) {
		return
	}
	r.advanceTurn()
	r.resumeTurn()
}

func (r *Room) answerTimeout(t Ticket) {
	if r.Status != StatusPlaying || t.Target != r.ThinkerID {
		return
	}
	q, ok := r.PendingQuestion()
	if !ok || q.ID != t.QuestionID {
		return
	}

	r.logf("%s ran out of time to answer", r.nameOf(t.Target))
	if r.recordTimeout(t.Target) {
		return
	}
	r.settleQuestion(q.ID-1, AnswerTimedOut)
}

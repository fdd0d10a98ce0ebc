package engine

import "time"

type Purpose string

const (
	PurposeAsk    Purpose = "ask"
	PurposeAnswer Purpose = "answer"
	PurposeGuess  Purpose = "guess"
	PurposeGrace  Purpose = "grace"
)

// Slot identifies a timer. Ask, answer and grace slots are room-wide; guess
// slots carry the guesser so each one has its own countdown.
type Slot struct {
	Purpose Purpose
	Player  string
}

var (
	askSlot    = Slot{Purpose: PurposeAsk}
	answerSlot = Slot{Purpose: PurposeAnswer}
	graceSlot  = Slot{Purpose: PurposeGrace}
)

func guessSlot(id string) Slot { return Slot{Purpose: PurposeGuess, Player: id} }

// Ticket is what a timer was armed for. Fire checks it against the live
// room before acting.
type Ticket struct {
	Target     string
	QuestionID int
}

// Scheduler arms and cancels the room's timers. Arming a slot replaces any
// timer already running in it. When a timer fires the owner calls Room.Fire
// with the same slot and ticket.
type Scheduler interface {
	Arm(slot Slot, d time.Duration, t Ticket)
	Cancel(slot Slot)
	CancelAll()
}

// arm starts a countdown and tells its target how long they have.
func (r *Room) arm(slot Slot, t Ticket) {
	d := r.Rules.TurnTimeout
	if slot.Purpose == PurposeGrace {
		d = r.Rules.GracePeriod
	} else {
		r.out.Unicast(t.Target, EvtCountdown, CountdownPayload{
			Purpose:    slot.Purpose,
			Seconds:    int(d.Seconds()),
			QuestionID: t.QuestionID,
		})
	}
	r.timers.Arm(slot, d, t)
}

// Fire runs the timeout for slot. Firings whose ticket no longer matches the
// room are ignored.
func (r *Room) Fire(slot Slot, t Ticket) {
	if r.closed {
		return
	}
	switch slot.Purpose {
	case PurposeAsk:
		r.askTimeout(t)
	case PurposeAnswer:
		r.answerTimeout(t)
	case PurposeGuess:
		r.guessTimeout(t)
	case PurposeGrace:
		r.graceExpired()
	}
}

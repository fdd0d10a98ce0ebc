package engine

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimers struct {
	armed     map[Slot]Ticket
	durations map[Slot]time.Duration
}

func newFakeTimers() *fakeTimers {
	return &fakeTimers{armed: map[Slot]Ticket{}, durations: map[Slot]time.Duration{}}
}

func (f *fakeTimers) Arm(slot Slot, d time.Duration, t Ticket) {
	f.armed[slot] = t
	f.durations[slot] = d
}

func (f *fakeTimers) Cancel(slot Slot) { delete(f.armed, slot) }

func (f *fakeTimers) CancelAll() { clear(f.armed) }

type sent struct {
	to      string
	evt     Event
	payload any
}

type recorder struct {
	unicasts   []sent
	broadcasts []sent
	detached   []string
}

func (r *recorder) Unicast(connID string, evt Event, payload any) {
	r.unicasts = append(r.unicasts, sent{to: connID, evt: evt, payload: payload})
}

func (r *recorder) Broadcast(evt Event, payload any) {
	r.broadcasts = append(r.broadcasts, sent{evt: evt, payload: payload})
}

func (r *recorder) Detach(connID string) { r.detached = append(r.detached, connID) }

func (r *recorder) lastBroadcast(evt Event) (any, bool) {
	for i := len(r.broadcasts) - 1; i >= 0; i-- {
		if r.broadcasts[i].evt == evt {
			return r.broadcasts[i].payload, true
		}
	}
	return nil, false
}

func (r *recorder) unicastTo(to string, evt Event) (any, bool) {
	for i := len(r.unicasts) - 1; i >= 0; i-- {
		if r.unicasts[i].to == to && r.unicasts[i].evt == evt {
			return r.unicasts[i].payload, true
		}
	}
	return nil, false
}

type fixture struct {
	room   *Room
	timers *fakeTimers
	out    *recorder
}

// newFixture builds a room created by "ana" with the given guessers joined.
func newFixture(t *testing.T, rules Rules, guessers ...string) *fixture {
	t.Helper()
	f := &fixture{timers: newFakeTimers(), out: &recorder{}}
	r, err := NewRoom("ABCD", "ana", "Ana", rules, f.timers, f.out)
	require.NoError(t, err)
	f.room = r
	for _, id := range guessers {
		require.NoError(t, r.Join(id, displayName(id)))
	}
	f.check(t)
	return f
}

func displayName(id string) string {
	return strings.ToUpper(id[:1]) + id[1:]
}

// fire delivers the timer armed in slot, the way the lobby does.
func (f *fixture) fire(t *testing.T, slot Slot) {
	t.Helper()
	ticket, ok := f.timers.armed[slot]
	require.Truef(t, ok, "no timer armed in %+v", slot)
	delete(f.timers.armed, slot)
	f.room.Fire(slot, ticket)
	f.check(t)
}

func (f *fixture) askAndAnswer(t *testing.T, asker string, a Answer) {
	t.Helper()
	require.NoError(t, f.room.AskQuestion(asker, "is it big?"))
	q, ok := f.room.PendingQuestion()
	require.True(t, ok)
	require.NoError(t, f.room.AnswerQuestion(f.room.ThinkerID, q.ID, a))
	f.check(t)
}

func (f *fixture) check(t *testing.T) {
	t.Helper()
	r := f.room
	assert.NotContains(t, r.TurnOrder, r.ThinkerID, "thinker must never be in the turn order")
	assert.Equal(t, r.Status != StatusWaiting, r.SecretWord != "", "secret word set iff a round is live")
	assert.Equal(t, r.Status == StatusGuessing, r.GuessAttempts != nil, "attempts set iff guessing")
	assert.GreaterOrEqual(t, r.AskedCount, 0)
	assert.LessOrEqual(t, r.AskedCount, r.Rules.MaxQuestions)
	if r.Status == StatusPlaying {
		assert.Less(t, r.AskedCount, r.Rules.MaxQuestions, "spent budget must move the room to guessing")
	}
	for _, p := range r.Players() {
		assert.Less(t, p.ConsecutiveTimeouts, r.Rules.ExpelAfter)
	}
}

func (f *fixture) askerTicket() Ticket { return f.timers.armed[askSlot] }

func TestScenario_FirstQuestionPassesTurn(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy")
	r := f.room

	require.NoError(t, r.StartRound("ana", "gatto"))
	f.check(t)
	assert.Equal(t, StatusPlaying, r.Status)
	assert.Equal(t, []string{"bo", "cy"}, r.TurnOrder)
	assert.Equal(t, Ticket{Target: "bo"}, f.askerTicket())
	assert.Equal(t, 60*time.Second, f.timers.durations[askSlot])

	secret, ok := f.out.unicastTo("ana", EvtSecretWord)
	require.True(t, ok)
	assert.Equal(t, SecretWordPayload{Word: "gatto"}, secret)
	started, ok := f.out.lastBroadcast(EvtRoundStarted)
	require.True(t, ok)
	assert.Equal(t, 20, started.(RoundStartedPayload).MaxQuestions)

	require.NoError(t, r.AskQuestion("bo", "È un animale?"))
	assert.NotContains(t, f.timers.armed, askSlot)
	assert.Equal(t, Ticket{Target: "ana", QuestionID: 1}, f.timers.armed[answerSlot])

	answer, err := ParseAnswer("Sì")
	require.NoError(t, err)
	require.NoError(t, r.AnswerQuestion("ana", 1, answer))
	f.check(t)

	assert.Equal(t, 1, r.AskedCount)
	asker, ok := r.CurrentAsker()
	require.True(t, ok)
	assert.Equal(t, "cy", asker)
	assert.Equal(t, Ticket{Target: "cy"}, f.askerTicket())
	assert.NotContains(t, f.timers.armed, answerSlot)
}

func TestStartRound_Validation(t *testing.T) {
	cases := []struct {
		name    string
		caller  string
		word    string
		wantErr error
	}{
		{name: "guesser cannot start", caller: "bo", word: "gatto", wantErr: ErrNotThinker},
		{name: "blank word", caller: "ana", word: "   ", wantErr: ErrEmptySecret},
		{name: "empty word", caller: "ana", word: "", wantErr: ErrEmptySecret},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, DefaultRules(), "bo")
			err := f.room.StartRound(tc.caller, tc.word)
			require.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, StatusWaiting, f.room.Status)
			assert.Empty(t, f.timers.armed)
		})
	}
}

func TestAskQuestion_RejectsOutOfTurn(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy")
	require.NoError(t, f.room.StartRound("ana", "gatto"))

	require.ErrorIs(t, f.room.AskQuestion("cy", "is it red?"), ErrNotYourTurn)
	require.ErrorIs(t, f.room.AskQuestion("ana", "is it red?"), ErrIsThinker)
	require.ErrorIs(t, f.room.AskQuestion("bo", "  "), ErrEmptyText)

	require.NoError(t, f.room.AskQuestion("bo", "is it red?"))
	require.ErrorIs(t, f.room.AskQuestion("bo", "is it blue?"), ErrQuestionPending)
	assert.Len(t, f.room.Questions, 1)
}

func TestAnswerQuestion_AlreadyAnsweredBroadcastsNothing(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy")
	require.NoError(t, f.room.StartRound("ana", "gatto"))
	f.askAndAnswer(t, "bo", AnswerNo)

	before := len(f.out.broadcasts)
	err := f.room.AnswerQuestion("ana", 1, AnswerYes)
	require.ErrorIs(t, err, ErrAlreadyAnswered)
	assert.Len(t, f.out.broadcasts, before)
	assert.Equal(t, AnswerNo, f.room.Questions[0].Answer)
	assert.Equal(t, 1, f.room.AskedCount)

	require.ErrorIs(t, f.room.AnswerQuestion("ana", 7, AnswerYes), ErrQuestionNotFound)
	require.ErrorIs(t, f.room.AnswerQuestion("bo", 1, AnswerYes), ErrNotThinker)
}

func TestAnswerQuestion_DontKnowKeepsBudget(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy")
	require.NoError(t, f.room.StartRound("ana", "gatto"))

	f.askAndAnswer(t, "bo", AnswerDontKnow)

	assert.Equal(t, 0, f.room.AskedCount)
	assert.Equal(t, Ticket{Target: "cy"}, f.askerTicket())
}

func TestParseAnswer(t *testing.T) {
	cases := []struct {
		in   string
		want Answer
		err  error
	}{
		{in: "Sì", want: AnswerYes},
		{in: "YES", want: AnswerYes},
		{in: " no ", want: AnswerNo},
		{in: "Non so", want: AnswerDontKnow},
		{in: "dont_know", want: AnswerDontKnow},
		{in: "maybe", want: AnswerNone, err: ErrInvalidAnswer},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseAnswer(tc.in)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatchesSecret_IgnoresCase(t *testing.T) {
	cases := []struct {
		guess string
		want  bool
	}{
		{guess: "elefante", want: true},
		{guess: "ELEFANTE", want: true},
		{guess: "  Elefante ", want: true},
		{guess: "Elefant", want: false},
		{guess: "", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.guess, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchesSecret("Elefante", tc.guess))
		})
	}
}

func TestAskTimeout_ThreeStrikesExpelsAndPassesTurn(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy", "dee")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))

	for strike := 1; strike <= 3; strike++ {
		require.Equal(t, Ticket{Target: "bo"}, f.askerTicket())
		f.fire(t, askSlot)
		if strike == 3 {
			break
		}
		p, _ := r.Player("bo")
		assert.Equal(t, strike, p.ConsecutiveTimeouts)
		f.askAndAnswer(t, "cy", AnswerYes)
		f.askAndAnswer(t, "dee", AnswerNo)
	}

	_, present := r.Player("bo")
	assert.False(t, present)
	assert.Equal(t, []string{"cy", "dee"}, r.TurnOrder)
	assert.Equal(t, Ticket{Target: "cy"}, f.askerTicket())
	assert.Equal(t, 7, r.AskedCount)
	assert.Contains(t, f.out.detached, "bo")
	_, ok := f.out.unicastTo("bo", EvtExpelled)
	assert.True(t, ok)
}

func TestAction_ResetsInactivity(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))

	f.fire(t, askSlot) // bo misses
	f.askAndAnswer(t, "cy", AnswerYes)
	f.askAndAnswer(t, "bo", AnswerYes)

	p, _ := r.Player("bo")
	assert.Equal(t, 0, p.ConsecutiveTimeouts)
}

func TestRemovePlayer_KeepsTurnOnSameGuesser(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy", "dee")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))
	f.askAndAnswer(t, "bo", AnswerYes)
	f.askAndAnswer(t, "cy", AnswerYes)
	require.Equal(t, Ticket{Target: "dee"}, f.askerTicket())

	require.NoError(t, r.Leave("bo"))
	f.check(t)
	asker, _ := r.CurrentAsker()
	assert.Equal(t, "dee", asker)
	assert.Equal(t, 1, r.TurnIndex)
	assert.Equal(t, Ticket{Target: "dee"}, f.askerTicket())

	r.Disconnect("dee")
	f.check(t)
	asker, _ = r.CurrentAsker()
	assert.Equal(t, "cy", asker)
	assert.Equal(t, Ticket{Target: "cy"}, f.askerTicket())
}

func TestRemovePlayer_AskerLeavesWithOpenQuestion(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy", "dee")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))
	require.NoError(t, r.AskQuestion("bo", "is it alive?"))

	require.NoError(t, r.Leave("bo"))
	f.check(t)
	assert.Equal(t, []string{"cy", "dee"}, r.TurnOrder)
	_, armed := f.timers.armed[askSlot]
	assert.False(t, armed, "no ask timer while the question is open")

	require.NoError(t, r.AnswerQuestion("ana", 1, AnswerYes))
	f.check(t)
	asker, ok := r.CurrentAsker()
	require.True(t, ok)
	assert.Equal(t, "cy", asker)
	assert.Equal(t, Ticket{Target: "cy"}, f.askerTicket())

	// The next answer moves the turn on as usual.
	f.askAndAnswer(t, "cy", AnswerNo)
	asker, _ = r.CurrentAsker()
	assert.Equal(t, "dee", asker)
}

func TestRemovePlayer_AskerDisconnectsBeforeAnswerTimeout(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy", "dee")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))
	require.NoError(t, r.AskQuestion("bo", "is it alive?"))

	r.Disconnect("bo")
	f.fire(t, answerSlot)

	assert.Equal(t, AnswerTimedOut, r.Questions[0].Answer)
	asker, _ := r.CurrentAsker()
	assert.Equal(t, "cy", asker)
	assert.Equal(t, Ticket{Target: "cy"}, f.askerTicket())
}

func TestRemovePlayer_LastGuesserClearsAskTimer(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo")
	require.NoError(t, f.room.StartRound("ana", "gatto"))
	require.Contains(t, f.timers.armed, askSlot)

	require.NoError(t, f.room.Leave("bo"))
	f.check(t)
	assert.NotContains(t, f.timers.armed, askSlot)
	assert.Empty(t, f.room.TurnOrder)

	require.NoError(t, f.room.Join("cy", "Cy"))
	assert.Equal(t, Ticket{Target: "cy"}, f.askerTicket())
}

func TestStaleTimers_AreIgnored(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))
	staleAsk := f.askerTicket()

	require.NoError(t, r.AskQuestion("bo", "is it alive?"))
	r.Fire(askSlot, staleAsk)
	f.check(t)
	p, _ := r.Player("bo")
	assert.Equal(t, 0, p.ConsecutiveTimeouts)
	assert.Equal(t, 0, r.AskedCount)
	assert.Contains(t, f.timers.armed, answerSlot)

	staleAnswer := f.timers.armed[answerSlot]
	require.NoError(t, r.AnswerQuestion("ana", 1, AnswerYes))
	r.Fire(answerSlot, staleAnswer)
	f.check(t)
	assert.Equal(t, 1, r.AskedCount)
	assert.Equal(t, AnswerYes, r.Questions[0].Answer)

	r.Fire(Slot{Purpose: PurposeGuess, Player: "bo"}, Ticket{Target: "bo"})
	r.Fire(graceSlot, Ticket{})
	assert.False(t, r.Closed())
	assert.Equal(t, StatusPlaying, r.Status)
}

func TestAnswerTimeout_MarksQuestionAndMovesOn(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))
	require.NoError(t, r.AskQuestion("bo", "is it alive?"))

	f.fire(t, answerSlot)

	assert.Equal(t, AnswerTimedOut, r.Questions[0].Answer)
	assert.Equal(t, 1, r.AskedCount)
	assert.Equal(t, Ticket{Target: "cy"}, f.askerTicket())
	p, _ := r.Player("ana")
	assert.Equal(t, 1, p.ConsecutiveTimeouts)
}

func TestThinkerExpelled_ClosesRoom(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))

	for _, asker := range []string{"bo", "cy", "bo"} {
		require.NoError(t, r.AskQuestion(asker, "is it alive?"))
		f.fire(t, answerSlot)
	}

	assert.True(t, r.Closed())
	assert.Empty(t, f.timers.armed)
	ended, ok := f.out.lastBroadcast(EvtRoundEnded)
	require.True(t, ok)
	assert.Equal(t, "gatto", ended.(RoundEndedPayload).SecretWord)
	assert.Empty(t, ended.(RoundEndedPayload).WinnerID)
	_, ok = f.out.lastBroadcast(EvtRoomClosed)
	assert.True(t, ok)
	require.ErrorIs(t, r.Join("dee", "Dee"), ErrRoomClosed)
}

func TestBudgetExhaustion_EntersGuessPhase(t *testing.T) {
	rules := DefaultRules()
	rules.MaxQuestions = 2
	f := newFixture(t, rules, "bo", "cy")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))

	f.askAndAnswer(t, "bo", AnswerYes)
	require.Equal(t, StatusPlaying, r.Status)
	f.fire(t, askSlot) // cy skips: the skip spends the last question

	assert.Equal(t, StatusGuessing, r.Status)
	assert.Equal(t, 2, r.AskedCount)
	assert.Equal(t, map[string]int{"bo": 2, "cy": 2}, r.GuessAttempts)
	assert.NotContains(t, f.timers.armed, askSlot)
	assert.Contains(t, f.timers.armed, guessSlot("bo"))
	assert.Contains(t, f.timers.armed, guessSlot("cy"))
}

func TestGuessPhase_AllAttemptsSpentThinkerWins(t *testing.T) {
	rules := DefaultRules()
	rules.MaxQuestions = 1
	f := newFixture(t, rules, "bo", "cy")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))
	f.askAndAnswer(t, "bo", AnswerYes)
	require.Equal(t, StatusGuessing, r.Status)

	require.NoError(t, r.SubmitGuess("bo", "cane"))
	f.check(t)
	assert.Contains(t, f.timers.armed, guessSlot("bo"))
	f.fire(t, guessSlot("cy"))
	require.NoError(t, r.SubmitGuess("bo", "topo"))
	f.check(t)
	assert.NotContains(t, f.timers.armed, guessSlot("bo"))
	require.ErrorIs(t, r.SubmitGuess("bo", "gatto"), ErrNoAttemptsLeft)
	require.Equal(t, StatusGuessing, r.Status)
	f.fire(t, guessSlot("cy"))

	assert.Equal(t, StatusWaiting, r.Status)
	ended, ok := f.out.lastBroadcast(EvtRoundEnded)
	require.True(t, ok)
	payload := ended.(RoundEndedPayload)
	assert.Empty(t, payload.WinnerID)
	assert.Equal(t, "gatto", payload.SecretWord)
	assert.Len(t, payload.FinalGuesses, 4)
	assert.Len(t, payload.Questions, 1)

	// cy held the turn when questions ran out, so cy thinks next.
	assert.Equal(t, "cy", r.ThinkerID)
	assert.Equal(t, []string{"ana", "bo"}, r.TurnOrder)
	ana, _ := r.Player("ana")
	assert.Equal(t, RoleGuesser, ana.Role)
	assert.Empty(t, f.timers.armed)
}

func TestGuessPhase_CorrectGuessWins(t *testing.T) {
	rules := DefaultRules()
	rules.MaxQuestions = 0
	f := newFixture(t, rules, "bo", "cy")
	r := f.room
	require.NoError(t, r.StartRound("ana", "Elefante"))
	require.Equal(t, StatusGuessing, r.Status)

	require.ErrorIs(t, r.SubmitGuess("ana", "elefante"), ErrIsThinker)
	require.NoError(t, r.SubmitGuess("cy", "ELEFANTE"))
	f.check(t)

	ended, ok := f.out.lastBroadcast(EvtRoundEnded)
	require.True(t, ok)
	assert.Equal(t, "cy", ended.(RoundEndedPayload).WinnerID)
	assert.Equal(t, "Cy", ended.(RoundEndedPayload).Winner)
	assert.Equal(t, StatusWaiting, r.Status)
}

func TestGuessPhase_LateJoinerGetsAttempts(t *testing.T) {
	rules := DefaultRules()
	rules.MaxQuestions = 0
	f := newFixture(t, rules, "bo")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))

	require.NoError(t, r.Join("dee", "Dee"))
	f.check(t)
	assert.Equal(t, 2, r.GuessAttempts["dee"])
	assert.Equal(t, Ticket{Target: "dee"}, f.timers.armed[guessSlot("dee")])
	_, ok := f.out.unicastTo("dee", EvtCountdown)
	assert.True(t, ok)
}

func TestGuessPhase_LeaverIsDropped(t *testing.T) {
	rules := DefaultRules()
	rules.MaxQuestions = 0
	f := newFixture(t, rules, "bo", "cy")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))
	require.NoError(t, r.SubmitGuess("bo", "cane"))
	require.NoError(t, r.SubmitGuess("bo", "topo"))

	require.NoError(t, r.Leave("cy"))
	f.check(t)

	assert.Equal(t, StatusWaiting, r.Status)
	assert.NotContains(t, f.timers.armed, guessSlot("cy"))
}

func TestPrematureGuess(t *testing.T) {
	t.Run("wrong guess spends the last question", func(t *testing.T) {
		rules := DefaultRules()
		rules.MaxQuestions = 1
		f := newFixture(t, rules, "bo", "cy")
		require.NoError(t, f.room.StartRound("ana", "gatto"))

		require.ErrorIs(t, f.room.SubmitGuess("cy", "cane"), ErrNotYourTurn)
		require.NoError(t, f.room.SubmitGuess("bo", "cane"))
		f.check(t)

		assert.Equal(t, StatusGuessing, f.room.Status)
		assert.Len(t, f.room.Guesses, 1)
	})

	t.Run("free wrong guess only passes the turn", func(t *testing.T) {
		rules := DefaultRules()
		rules.MaxQuestions = 1
		rules.PrematureGuessCostsQuestion = false
		f := newFixture(t, rules, "bo", "cy")
		require.NoError(t, f.room.StartRound("ana", "gatto"))

		require.NoError(t, f.room.SubmitGuess("bo", "cane"))
		f.check(t)

		assert.Equal(t, StatusPlaying, f.room.Status)
		assert.Equal(t, 0, f.room.AskedCount)
		assert.Equal(t, Ticket{Target: "cy"}, f.askerTicket())
	})

	t.Run("right guess wins and the winner thinks next", func(t *testing.T) {
		f := newFixture(t, DefaultRules(), "bo", "cy")
		require.NoError(t, f.room.StartRound("ana", "gatto"))

		require.NoError(t, f.room.SubmitGuess("bo", "Gatto"))
		f.check(t)

		ended, ok := f.out.lastBroadcast(EvtRoundEnded)
		require.True(t, ok)
		assert.Equal(t, "bo", ended.(RoundEndedPayload).WinnerID)
		assert.Equal(t, "bo", f.room.ThinkerID)
		assert.Equal(t, []string{"ana", "cy"}, f.room.TurnOrder)
	})
}

func TestGrace_ThinkerReclaimsSeat(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))
	require.NoError(t, r.AskQuestion("bo", "is it alive?"))

	r.Disconnect("ana")
	f.check(t)
	assert.NotContains(t, f.timers.armed, answerSlot)
	assert.Contains(t, f.timers.armed, graceSlot)
	assert.Equal(t, 30*time.Second, f.timers.durations[graceSlot])
	ticket, ok := r.PendingThinker()
	require.True(t, ok)
	assert.Equal(t, "Ana", ticket.DisplayName)
	assert.Empty(t, r.ThinkerID)
	require.ErrorIs(t, r.SubmitGuess("bo", "cane"), ErrRoundPaused)

	require.NoError(t, r.Join("ana-2", "Ana"))
	f.check(t)

	assert.Equal(t, "ana-2", r.ThinkerID)
	p, _ := r.Player("ana-2")
	assert.Equal(t, RoleThinker, p.Role)
	assert.Equal(t, 0, p.ConsecutiveTimeouts)
	assert.NotContains(t, f.timers.armed, graceSlot)
	assert.Equal(t, Ticket{Target: "ana-2", QuestionID: 1}, f.timers.armed[answerSlot])
	secret, ok := f.out.unicastTo("ana-2", EvtSecretWord)
	require.True(t, ok)
	assert.Equal(t, SecretWordPayload{Word: "gatto"}, secret)

	require.NoError(t, r.AnswerQuestion("ana-2", 1, AnswerYes))
	assert.Equal(t, 1, r.AskedCount)
}

func TestGrace_PausesAskingUntilReclaimed(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))

	r.Disconnect("ana")
	assert.NotContains(t, f.timers.armed, askSlot)
	require.ErrorIs(t, r.AskQuestion("bo", "is it alive?"), ErrRoundPaused)

	require.NoError(t, r.Join("ana-2", "Ana"))
	assert.Equal(t, Ticket{Target: "bo"}, f.askerTicket())
}

func TestGrace_ExpiryClosesRoom(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))
	require.NoError(t, r.AskQuestion("bo", "is it alive?"))
	r.Disconnect("ana")

	f.fire(t, graceSlot)

	assert.True(t, r.Closed())
	ended, ok := f.out.lastBroadcast(EvtRoundEnded)
	require.True(t, ok)
	assert.Equal(t, "gatto", ended.(RoundEndedPayload).SecretWord)
	assert.Empty(t, ended.(RoundEndedPayload).WinnerID)
	assert.ElementsMatch(t, []string{"ana", "bo", "cy"}, slices.Compact(slices.Sorted(slices.Values(f.out.detached))))
	require.ErrorIs(t, r.Join("ana-2", "Ana"), ErrRoomClosed)
}

func TestThinkerLeave_MidRoundClosesRoom(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))

	require.NoError(t, r.Leave("ana"))

	assert.True(t, r.Closed())
	assert.Empty(t, f.timers.armed)
	ended, ok := f.out.lastBroadcast(EvtRoundEnded)
	require.True(t, ok)
	assert.Equal(t, "gatto", ended.(RoundEndedPayload).SecretWord)
}

func TestThinkerLeave_WhileWaitingHandsOverRole(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo", "cy")
	r := f.room

	require.NoError(t, r.Leave("ana"))
	f.check(t)

	assert.False(t, r.Closed())
	assert.Equal(t, "bo", r.ThinkerID)
	bo, _ := r.Player("bo")
	assert.Equal(t, RoleThinker, bo.Role)
}

func TestLastPlayerLeaving_ClosesRoom(t *testing.T) {
	f := newFixture(t, DefaultRules())

	require.NoError(t, f.room.Leave("ana"))

	assert.True(t, f.room.Closed())
	require.ErrorIs(t, f.room.Leave("ana"), ErrNotInRoom)
}

func TestJoin_Validation(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo")

	require.ErrorIs(t, f.room.Join("x", "  "), ErrEmptyName)
	require.ErrorIs(t, f.room.Join("x", "Bo"), ErrNameTaken)
	require.ErrorIs(t, f.room.Join("bo", "Bob"), ErrAlreadyInRoom)

	require.NoError(t, f.room.Join("cy", "Cy"))
	history, ok := f.out.unicastTo("cy", EvtHistory)
	require.True(t, ok)
	assert.NotEmpty(t, history.(HistoryPayload).Logs)
}

func TestSendChat(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo")

	require.NoError(t, f.room.SendChat("bo", "ciao"))
	require.ErrorIs(t, f.room.SendChat("bo", " "), ErrEmptyText)
	require.ErrorIs(t, f.room.SendChat("zz", "hi"), ErrNotInRoom)

	assert.Equal(t, []ChatLine{{PlayerID: "bo", Player: "Bo", Text: "ciao"}}, f.room.Chat)
}

func TestNextEligible(t *testing.T) {
	seq := []string{"a", "b", "c", "d"}
	cases := []struct {
		name   string
		from   int
		skip   []string
		want   int
		wantOK bool
	}{
		{name: "first eligible", from: 0, want: 0, wantOK: true},
		{name: "wraps past end", from: 4, want: 0, wantOK: true},
		{name: "skips ineligible", from: 1, skip: []string{"b", "c"}, want: 3, wantOK: true},
		{name: "wraps while skipping", from: 3, skip: []string{"d", "a"}, want: 1, wantOK: true},
		{name: "none eligible", from: 2, skip: seq, wantOK: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := nextEligible(seq, tc.from, func(s string) bool { return !slices.Contains(tc.skip, s) })
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestApply_DispatchesCommands(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo")
	r := f.room

	require.ErrorIs(t, r.Apply("ana", Command{Type: "Dance"}), ErrUnsupportedCommand)
	require.NoError(t, r.Apply("ana", Command{Type: CmdStartRound, Text: "gatto"}))
	require.NoError(t, r.Apply("bo", Command{Type: CmdAskQuestion, Text: "is it alive?"}))
	require.ErrorIs(t, r.Apply("ana", Command{Type: CmdAnswerQuestion, QuestionID: 1, Answer: "perhaps"}), ErrInvalidAnswer)
	require.NoError(t, r.Apply("ana", Command{Type: CmdAnswerQuestion, QuestionID: 1, Answer: "no"}))
	require.NoError(t, r.Apply("bo", Command{Type: CmdChat, Text: "hmm"}))
	require.NoError(t, r.Apply("bo", Command{Type: CmdSubmitGuess, Text: "gatto"}))

	ended, ok := f.out.lastBroadcast(EvtRoundEnded)
	require.True(t, ok)
	assert.Equal(t, "bo", ended.(RoundEndedPayload).WinnerID)
}

func TestClose_RevealsWordAndDetachesEveryone(t *testing.T) {
	f := newFixture(t, DefaultRules(), "bo")
	r := f.room
	require.NoError(t, r.StartRound("ana", "gatto"))

	r.Close("server shutting down")
	assert.True(t, r.Closed())
	assert.Empty(t, f.timers.armed)

	ended, ok := f.out.lastBroadcast(EvtRoundEnded)
	require.True(t, ok)
	assert.Equal(t, "gatto", ended.(RoundEndedPayload).SecretWord)
	closed, ok := f.out.lastBroadcast(EvtRoomClosed)
	require.True(t, ok)
	assert.Equal(t, "server shutting down", closed.(ClosedPayload).Reason)
	assert.ElementsMatch(t, []string{"ana", "bo"}, f.out.detached)

	r.Close("again")
	assert.Len(t, f.out.detached, 2)
}

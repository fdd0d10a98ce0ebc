package engine

import "fmt"

type Event string

const (
	EvtRoomState        Event = "room_state"
	EvtTurn             Event = "turn"
	EvtNewQuestion      Event = "new_question"
	EvtQuestionAnswered Event = "question_answered"
	EvtQuestionCounter  Event = "question_counter"
	EvtGuess            Event = "guess"
	EvtGuessPhase       Event = "guess_phase"
	EvtRoundStarted     Event = "round_started"
	EvtSecretWord       Event = "secret_word"
	EvtRoundEnded       Event = "round_ended"
	EvtCountdown        Event = "countdown"
	EvtLog              Event = "log"
	EvtChat             Event = "chat"
	EvtHistory          Event = "history"
	EvtExpelled         Event = "expelled"
	EvtRoomClosed       Event = "room_closed"
)

// Notifier delivers room events to connections. Detach removes a connection
// from the room's broadcast group.
type Notifier interface {
	Unicast(connID string, evt Event, payload any)
	Broadcast(evt Event, payload any)
	Detach(connID string)
}

type PlayerView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type RoomState struct {
	Code         string       `json:"code"`
	Status       Status       `json:"status"`
	Players      []PlayerView `json:"players"`
	ThinkerID    string       `json:"thinker_id,omitempty"`
	AwaitingName string       `json:"awaiting_thinker,omitempty"`
	MaxQuestions int          `json:"max_questions"`
	AskedCount   int          `json:"asked_count"`
}

type Summary struct {
	Code    string
	Players int
	Status  Status
}

type TurnPayload struct {
	PlayerID string `json:"player_id"`
	Player   string `json:"player"`
}

type CounterPayload struct {
	Asked int `json:"asked"`
	Max   int `json:"max"`
}

type RoundStartedPayload struct {
	MaxQuestions int          `json:"max_questions"`
	Players      []PlayerView `json:"players"`
}

type SecretWordPayload struct {
	Word string `json:"word"`
}

type GuessPhasePayload struct {
	Attempts map[string]int `json:"attempts"`
}

type RoundEndedPayload struct {
	Code         string     `json:"code"`
	Message      string     `json:"message"`
	SecretWord   string     `json:"secret_word"`
	Questions    []Question `json:"questions"`
	Guesses      []Guess    `json:"guesses"`
	FinalGuesses []Guess    `json:"final_guesses"`
	WinnerID     string     `json:"winner_id,omitempty"`
	Winner       string     `json:"winner,omitempty"`
}

type CountdownPayload struct {
	Purpose    Purpose `json:"purpose"`
	Seconds    int     `json:"seconds"`
	QuestionID int     `json:"question_id,omitempty"`
}

type HistoryPayload struct {
	Logs []string   `json:"logs"`
	Chat []ChatLine `json:"chat"`
}

type ClosedPayload struct {
	Reason string `json:"reason"`
}

func (r *Room) Snapshot() RoomState {
	s := RoomState{
		Code:         r.Code,
		Status:       r.Status,
		Players:      r.playerViews(),
		ThinkerID:    r.ThinkerID,
		MaxQuestions: r.Rules.MaxQuestions,
		AskedCount:   r.AskedCount,
	}
	if r.pending != nil {
		s.AwaitingName = r.pending.DisplayName
	}
	return s
}

func (r *Room) Summary() Summary {
	return Summary{Code: r.Code, Players: len(r.players), Status: r.Status}
}

func (r *Room) playerViews() []PlayerView {
	views := make([]PlayerView, 0, len(r.joinOrder))
	for _, p := range r.Players() {
		views = append(views, PlayerView{ID: p.ID, Name: p.Name, Role: p.Role})
	}
	return views
}

func (r *Room) broadcastState() {
	r.out.Broadcast(EvtRoomState, r.Snapshot())
}

func (r *Room) broadcastCounter() {
	r.out.Broadcast(EvtQuestionCounter, CounterPayload{Asked: r.AskedCount, Max: r.Rules.MaxQuestions})
}

func (r *Room) logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	r.Logs = append(r.Logs, line)
	r.out.Broadcast(EvtLog, line)
}

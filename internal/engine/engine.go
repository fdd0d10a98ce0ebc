package engine

import "errors"

var ErrNotThinker = errors.New("only the thinker can do that")
var ErrIsThinker = errors.New("the thinker cannot do that")
var ErrNotYourTurn = errors.New("not your turn")
var ErrNotPlaying = errors.New("no round is being played")
var ErrRoundInProgress = errors.New("a round is already in progress")
var ErrEmptySecret = errors.New("secret word cannot be empty")
var ErrEmptyName = errors.New("display name cannot be empty")
var ErrNameTaken = errors.New("display name already in use")
var ErrEmptyText = errors.New("text cannot be empty")
var ErrQuestionPending = errors.New("a question is waiting for an answer")
var ErrQuestionNotFound = errors.New("question not found")
var ErrAlreadyAnswered = errors.New("question already answered")
var ErrInvalidAnswer = errors.New("invalid answer")
var ErrNoAttemptsLeft = errors.New("no guess attempts left")
var ErrRoundPaused = errors.New("round paused while the thinker reconnects")
var ErrNotInRoom = errors.New("not in this room")
var ErrAlreadyInRoom = errors.New("already in this room")
var ErrRoomClosed = errors.New("room closed")

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusGuessing Status = "guessing"
)

type Role string

const (
	RoleThinker Role = "thinker"
	RoleGuesser Role = "guesser"
)

type Answer string

const (
	AnswerNone     Answer = ""
	AnswerYes      Answer = "yes"
	AnswerNo       Answer = "no"
	AnswerDontKnow Answer = "dont_know"
	AnswerTimedOut Answer = "timed_out"
)

// ConsumesBudget reports whether an answered question counts against the
// question budget.
func (a Answer) ConsumesBudget() bool {
	return a != AnswerNone && a != AnswerDontKnow
}

type Player struct {
	ID                  string
	Name                string
	Role                Role
	ConsecutiveTimeouts int
}

type Question struct {
	ID      int    `json:"id"`
	AskerID string `json:"asker_id"`
	Asker   string `json:"asker"`
	Text    string `json:"text"`
	Answer  Answer `json:"answer,omitempty"`
}

type Guess struct {
	PlayerID string `json:"player_id"`
	Player   string `json:"player"`
	Text     string `json:"text,omitempty"`
	Correct  bool   `json:"correct"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

type ChatLine struct {
	PlayerID string `json:"player_id"`
	Player   string `json:"player"`
	Text     string `json:"text"`
}

// GraceTicket holds the vacated thinker seat while the thinker may reconnect.
type GraceTicket struct {
	DisplayName string
}

type Room struct {
	Code   string
	Status Status
	Rules  Rules

	players   map[string]*Player
	joinOrder []string

	ThinkerID  string
	pending    *GraceTicket
	SecretWord string

	Questions    []Question
	Guesses      []Guess
	FinalGuesses []Guess

	TurnOrder     []string
	TurnIndex     int
	// turnMoved is set when the asker of the open question left and the turn
	// already passed to whoever took their place.
	turnMoved     bool
	AskedCount    int
	GuessAttempts map[string]int

	Logs []string
	Chat []ChatLine

	timers Scheduler
	out    Notifier
	closed bool
}

// NewRoom creates a room in the waiting status with its creator as thinker.
func NewRoom(code, creatorID, creatorName string, rules Rules, timers Scheduler, out Notifier) (*Room, error) {
	name := normalizeName(creatorName)
	if name == "" {
		return nil, ErrEmptyName
	}
	r := &Room{
		Code:    code,
		Status:  StatusWaiting,
		Rules:   rules,
		players: make(map[string]*Player),
		timers:  timers,
		out:     out,
	}
	r.addPlayer(creatorID, name, RoleThinker)
	r.ThinkerID = creatorID
	r.logf("%s created the room", name)
	r.broadcastState()
	return r, nil
}

func (r *Room) Closed() bool { return r.closed }

func (r *Room) Player(id string) (Player, bool) {
	p, ok := r.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Players returns the room members in join order.
func (r *Room) Players() []Player {
	out := make([]Player, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		out = append(out, *r.players[id])
	}
	return out
}

func (r *Room) PendingThinker() (GraceTicket, bool) {
	if r.pending == nil {
		return GraceTicket{}, false
	}
	return *r.pending, true
}

// PendingQuestion returns the question still waiting for an answer, if any.
func (r *Room) PendingQuestion() (Question, bool) {
	if n := len(r.Questions); n > 0 && r.Questions[n-1].Answer == AnswerNone {
		return r.Questions[n-1], true
	}
	return Question{}, false
}

func (r *Room) nameOf(id string) string {
	if p, ok := r.players[id]; ok {
		return p.Name
	}
	return ""
}

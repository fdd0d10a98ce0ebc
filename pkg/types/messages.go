package types

// Client -> Server
// create_room:      code (optional, generated when empty), name
// join_room:        code, name
// leave_room:       {}
// start_round:      word                      (thinker only)
// ask_question:     text                      (current asker only)
// answer_question:  question_id, answer       (thinker only; yes | no | dont_know, aliases accepted)
// submit_guess:     text
// chat:             text
const (
	CreateRoom     = "create_room"
	JoinRoom       = "join_room"
	LeaveRoom      = "leave_room"
	StartRound     = "start_round"
	AskQuestion    = "ask_question"
	AnswerQuestion = "answer_question"
	SubmitGuess    = "submit_guess"
	Chat           = "chat"
)

// Server -> Client
// Every message is {type, room?, version?, payload?, error?}.
//
// room_state:        code, status, players[{id,name,role}], thinker_id, awaiting_thinker, max_questions, asked_count
// room_list:         RoomSummary[]
// turn:              player_id, player
// new_question:      id, asker_id, asker, text
// question_answered: id, asker_id, asker, text, answer
// question_counter:  asked, max
// guess:             player_id, player, text, correct, timed_out
// guess_phase:       attempts {player_id: remaining}
// round_started:     max_questions, players
// secret_word:       word                     (thinker only)
// round_ended:       message, secret_word, questions, guesses, final_guesses, winner_id, winner
// countdown:         purpose (ask | answer | guess), seconds, question_id
// log:               string
// chat:              player_id, player, text
// history:           logs, chat               (sent to a joining connection)
// expelled:          reason
// room_closed:       reason
// error:             error {code, message}
const (
	RoomList = "room_list"
	Error    = "error"
)

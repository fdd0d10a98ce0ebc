package engine

import "errors"

var ErrUnsupportedCommand = errors.New("unsupported command")

type CommandType string

const (
	CmdStartRound     CommandType = "StartRound"
	CmdAskQuestion    CommandType = "AskQuestion"
	CmdAnswerQuestion CommandType = "AnswerQuestion"
	CmdSubmitGuess    CommandType = "SubmitGuess"
	CmdChat           CommandType = "Chat"
)

/*
	CmdStartRound     -> secret_word (thinker) -> round_started -> turn -> countdown
	CmdAskQuestion    -> new_question -> countdown (thinker)
	CmdAnswerQuestion -> question_answered -> question_counter -> turn | guess_phase
	CmdSubmitGuess    -> guess -> round_ended | turn | countdown
	CmdChat           -> chat
*/

type Command struct {
	Type       CommandType
	Text       string
	QuestionID int
	Answer     string
}

// Apply runs a client command on behalf of connection id.
func (r *Room) Apply(id string, cmd Command) error {
	switch cmd.Type {
	case CmdStartRound:
		return r.StartRound(id, cmd.Text)
	case CmdAskQuestion:
		return r.AskQuestion(id, cmd.Text)
	case CmdAnswerQuestion:
		a, err := ParseAnswer(cmd.Answer)
		if err != nil {
			return err
		}
		return r.AnswerQuestion(id, cmd.QuestionID, a)
	case CmdSubmitGuess:
		return r.SubmitGuess(id, cmd.Text)
	case CmdChat:
		return r.SendChat(id, cmd.Text)
	default:
		return ErrUnsupportedCommand
	}
}

package lobby

import (
	"errors"

	"github.com/DoyleJ11/twenty-questions-backend/internal/engine"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{engine.ErrNotThinker, "not_thinker"},
	{engine.ErrIsThinker, "is_thinker"},
	{engine.ErrNotYourTurn, "not_your_turn"},
	{engine.ErrNotPlaying, "not_playing"},
	{engine.ErrRoundInProgress, "round_in_progress"},
	{engine.ErrEmptySecret, "empty_secret"},
	{engine.ErrEmptyName, "empty_name"},
	{engine.ErrNameTaken, "name_taken"},
	{engine.ErrEmptyText, "empty_text"},
	{engine.ErrQuestionPending, "question_pending"},
	{engine.ErrQuestionNotFound, "question_not_found"},
	{engine.ErrAlreadyAnswered, "already_answered"},
	{engine.ErrInvalidAnswer, "invalid_answer"},
	{engine.ErrNoAttemptsLeft, "no_attempts_left"},
	{engine.ErrRoundPaused, "round_paused"},
	{engine.ErrNotInRoom, "not_in_room"},
	{engine.ErrAlreadyInRoom, "already_in_room"},
	{engine.ErrRoomClosed, "room_closed"},
	{engine.ErrUnsupportedCommand, "unsupported"},
}

// ErrorCode maps an engine error to the code sent in error messages.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}

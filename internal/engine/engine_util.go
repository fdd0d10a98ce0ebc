package engine

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

type Rules struct {
	MaxQuestions  int
	TurnTimeout   time.Duration
	GracePeriod   time.Duration
	GuessAttempts int
	ExpelAfter    int

	// PrematureGuessCostsQuestion makes a wrong guess during the question
	// phase use up one question.
	PrematureGuessCostsQuestion bool
}

func DefaultRules() Rules {
	return Rules{
		MaxQuestions:                20,
		TurnTimeout:                 60 * time.Second,
		GracePeriod:                 30 * time.Second,
		GuessAttempts:               2,
		ExpelAfter:                  3,
		PrematureGuessCostsQuestion: true,
	}
}

var folder = cases.Fold()

func fold(s string) string {
	return folder.String(strings.TrimSpace(s))
}

// MatchesSecret compares a guess against the secret word ignoring case.
func MatchesSecret(secret, guess string) bool {
	return fold(secret) != "" && fold(secret) == fold(guess)
}

var answerAliases = map[string]Answer{
	"yes":        AnswerYes,
	"y":          AnswerYes,
	"sì":         AnswerYes,
	"si":         AnswerYes,
	"no":         AnswerNo,
	"n":          AnswerNo,
	"dont_know":  AnswerDontKnow,
	"don't know": AnswerDontKnow,
	"dont know":  AnswerDontKnow,
	"non so":     AnswerDontKnow,
	"?":          AnswerDontKnow,
}

// ParseAnswer maps what the thinker typed onto an Answer.
func ParseAnswer(s string) (Answer, error) {
	a, ok := answerAliases[fold(s)]
	if !ok {
		return AnswerNone, ErrInvalidAnswer
	}
	return a, nil
}

func normalizeName(s string) string {
	return strings.TrimSpace(s)
}

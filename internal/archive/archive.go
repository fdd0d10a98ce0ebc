// Package archive stores finished rounds. Recording is best effort: the game
// never waits on it.
package archive

import (
	"context"
	"time"

	"github.com/DoyleJ11/twenty-questions-backend/internal/engine"
)

type Recorder interface {
	RecordRound(ctx context.Context, rec *RoundRecord) error
	Recent(ctx context.Context, room string, limit int) ([]RoundRecord, error)
	Close() error
}

// Nop discards every round. Used when no database is configured.
type Nop struct{}

func (Nop) RecordRound(context.Context, *RoundRecord) error { return nil }
func (Nop) Close() error                                    { return nil }

func (Nop) Recent(context.Context, string, int) ([]RoundRecord, error) { return nil, nil }

// New returns a Postgres recorder for dsn, or Nop when dsn is empty.
func New(dsn string) (Recorder, error) {
	if dsn == "" {
		return Nop{}, nil
	}
	return NewPostgres(dsn)
}

type RoundRecord struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	RoomCode   string           `gorm:"size:16;index" json:"room_code"`
	SecretWord string           `gorm:"size:128" json:"secret_word"`
	Message    string           `json:"message"`
	WinnerID   string           `gorm:"size:64" json:"winner_id,omitempty"`
	Winner     string           `gorm:"size:64" json:"winner,omitempty"`
	GuessCount int              `json:"guess_count"`
	EndedAt    time.Time        `gorm:"index" json:"ended_at"`
	Questions  []QuestionRecord `gorm:"constraint:OnDelete:CASCADE" json:"questions"`
}

type QuestionRecord struct {
	ID            uint   `gorm:"primaryKey" json:"-"`
	RoundRecordID uint   `gorm:"index" json:"-"`
	Seq           int    `json:"seq"`
	Asker         string `gorm:"size:64" json:"asker"`
	Text          string `json:"text"`
	Answer        string `gorm:"size:16" json:"answer"`
}

func NewRoundRecord(p engine.RoundEndedPayload, endedAt time.Time) *RoundRecord {
	rec := &RoundRecord{
		RoomCode:   p.Code,
		SecretWord: p.SecretWord,
		Message:    p.Message,
		WinnerID:   p.WinnerID,
		Winner:     p.Winner,
		GuessCount: len(p.Guesses) + len(p.FinalGuesses),
		EndedAt:    endedAt.UTC(),
		Questions:  make([]QuestionRecord, 0, len(p.Questions)),
	}
	for _, q := range p.Questions {
		rec.Questions = append(rec.Questions, QuestionRecord{
			Seq:    q.ID,
			Asker:  q.Asker,
			Text:   q.Text,
			Answer: string(q.Answer),
		})
	}
	return rec
}

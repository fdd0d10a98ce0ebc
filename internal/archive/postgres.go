package archive

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Postgres struct {
	db *gorm.DB
}

// NewPostgres connects to dsn and migrates the archive tables.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: open postgres: %w", err)
	}
	if err := db.AutoMigrate(&RoundRecord{}, &QuestionRecord{}); err != nil {
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) RecordRound(ctx context.Context, rec *RoundRecord) error {
	if err := p.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("archive: record round in %s: %w", rec.RoomCode, err)
	}
	return nil
}

// Recent returns the latest rounds played in room, newest first.
func (p *Postgres) Recent(ctx context.Context, room string, limit int) ([]RoundRecord, error) {
	var out []RoundRecord
	err := p.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Where("room_code = ?", room).
		Order("ended_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("archive: recent rounds for %s: %w", room, err)
	}
	return out, nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

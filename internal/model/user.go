package model

import "time"

// User stores Telegram user metadata and cumulative usage counters.
// Rows are created on first observed interaction and refreshed on every
// subsequent one; they are never deleted by the bot.
type User struct {
	ID           uint  `gorm:"primaryKey"`
	TelegramID   int64 `gorm:"uniqueIndex"`
	Username     string
	LinkCount    int64 `gorm:"default:0"`
	LastActiveAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertFromTelegram finds or creates a user by TelegramID, refreshes the
// handle and bumps the last-activity timestamp. Safe to call on every update.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, username string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	now := time.Now()
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"username":       username,
			"last_active_at": now,
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		return &user, nil
	case err == gorm.ErrRecordNotFound:
		user = model.User{
			TelegramID:   telegramID,
			Username:     username,
			LastActiveAt: now,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

// IncrementLinkCount bumps the cumulative link counter by n as a single
// read-modify-write inside the store. Strict accuracy is not required.
func (r *UserRepository) IncrementLinkCount(ctx context.Context, telegramID int64, n int64) error {
	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("telegram_id = ?", telegramID).
		Update("link_count", gorm.Expr("link_count + ?", n)).Error; err != nil {
		return fmt.Errorf("increment link count: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CountActiveSince counts users whose last activity falls inside the window.
func (r *UserRepository) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("last_active_at >= ?", since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *UserRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

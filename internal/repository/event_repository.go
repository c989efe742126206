package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/model"
)

// EventRepository appends write-once facts (link generations, viral edges,
// search telemetry) and serves the aggregate reads for analytics.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) RecordLinkGeneration(ctx context.Context, event *model.LinkGeneration) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("record link generation: %w", err)
	}
	return nil
}

func (r *EventRepository) RecordViralInteraction(ctx context.Context, edge *model.ViralInteraction) error {
	if err := r.db.WithContext(ctx).Create(edge).Error; err != nil {
		return fmt.Errorf("record viral interaction: %w", err)
	}
	return nil
}

func (r *EventRepository) RecordSearchEvent(ctx context.Context, event *model.SearchEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("record search event: %w", err)
	}
	return nil
}

func (r *EventRepository) CountLinksSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.LinkGeneration{}).
		Where("created_at >= ?", since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *EventRepository) CountLinksAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.LinkGeneration{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountViralBetween counts viral edges in [since, until). Self-referrals
// (original == viral) are excluded unless includeSelf is set.
func (r *EventRepository) CountViralBetween(ctx context.Context, since, until time.Time, includeSelf bool) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.ViralInteraction{}).
		Where("created_at >= ? AND created_at < ?", since, until)
	if !includeSelf {
		q = q.Where("original_id <> viral_id")
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MerchantCount is one row of the top-merchant ranking.
type MerchantCount struct {
	MerchantSlug string `json:"merchant_slug"`
	Count        int64  `json:"count"`
}

// TopMerchantsSince groups link generations by merchant slug inside the window.
func (r *EventRepository) TopMerchantsSince(ctx context.Context, since time.Time, limit int) ([]MerchantCount, error) {
	var rows []MerchantCount
	if err := r.db.WithContext(ctx).Model(&model.LinkGeneration{}).
		Select("merchant_slug, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("merchant_slug").
		Order("count DESC, merchant_slug ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountEventsBetween sums link generations and viral interactions in
// [since, until), the unit the platform quota is expressed in.
func (r *EventRepository) CountEventsBetween(ctx context.Context, since, until time.Time) (int64, error) {
	var links, viral int64
	if err := r.db.WithContext(ctx).Model(&model.LinkGeneration{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Count(&links).Error; err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Model(&model.ViralInteraction{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Count(&viral).Error; err != nil {
		return 0, err
	}
	return links + viral, nil
}

// CountUsersActiveBetween counts distinct requesters that generated at least
// one link inside [since, until). Used for the daily trend series where the
// users table only knows the latest activity.
func (r *EventRepository) CountUsersActiveBetween(ctx context.Context, since, until time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.LinkGeneration{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Distinct("user_id").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *EventRepository) AverageSearchLatencySince(ctx context.Context, since time.Time) (float64, error) {
	var avg *float64
	if err := r.db.WithContext(ctx).Model(&model.SearchEvent{}).
		Select("AVG(latency_ms)").
		Where("created_at >= ?", since).
		Scan(&avg).Error; err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

func (r *EventRepository) CountSearchesSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.SearchEvent{}).
		Where("created_at >= ?", since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

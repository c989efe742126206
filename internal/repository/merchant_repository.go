package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/model"
)

// MerchantRepository reads the merchant catalog. The catalog is written only
// by the seed loader; all bot flows treat it as reference data.
type MerchantRepository struct {
	db *gorm.DB
}

func NewMerchantRepository(db *gorm.DB) *MerchantRepository {
	return &MerchantRepository{db: db}
}

func (r *MerchantRepository) FindBySlug(ctx context.Context, slug string) (*model.Merchant, error) {
	var merchant model.Merchant
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&merchant).Error; err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *MerchantRepository) ListAll(ctx context.Context) ([]model.Merchant, error) {
	var merchants []model.Merchant
	if err := r.db.WithContext(ctx).Order("slug ASC").Find(&merchants).Error; err != nil {
		return nil, err
	}
	return merchants, nil
}

// TopByRate returns the highest-reward merchants, used for the empty-query
// "popular" fallback.
func (r *MerchantRepository) TopByRate(ctx context.Context, limit int) ([]model.Merchant, error) {
	var merchants []model.Merchant
	if err := r.db.WithContext(ctx).
		Order("base_mpd DESC, slug ASC").
		Limit(limit).
		Find(&merchants).Error; err != nil {
		return nil, err
	}
	return merchants, nil
}

func (r *MerchantRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Merchant{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// seedRecord mirrors the catalog extract produced for SG merchants.
type seedRecord struct {
	BaseMPD      float64 `json:"base_mpd"`
	MerchantName string  `json:"merchantName"`
	MerchantSlug string  `json:"merchant_slug"`
	TrackingLink string  `json:"trackingLink"`
	Category     string  `json:"category,omitempty"`
	LogoURL      string  `json:"logo_url,omitempty"`
}

// SeedFromFile loads the catalog JSON into an empty merchants table. A
// populated table is left untouched so an external catalog process stays the
// source of truth.
func (r *MerchantRepository) SeedFromFile(ctx context.Context, path string) (int, error) {
	count, err := r.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read merchant seed %q: %w", path, err)
	}

	var records []seedRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return 0, fmt.Errorf("parse merchant seed %q: %w", path, err)
	}

	seeded := 0
	for _, rec := range records {
		slug := strings.TrimSpace(rec.MerchantSlug)
		name := strings.TrimSpace(rec.MerchantName)
		if slug == "" || name == "" || rec.TrackingLink == "" {
			continue
		}
		merchant := model.Merchant{
			Slug:             slug,
			Name:             name,
			TrackingTemplate: rec.TrackingLink,
			BaseMPD:          rec.BaseMPD,
			Category:         rec.Category,
			LogoURL:          rec.LogoURL,
		}
		if err := r.db.WithContext(ctx).Create(&merchant).Error; err != nil {
			return seeded, fmt.Errorf("seed merchant %q: %w", slug, err)
		}
		seeded++
	}
	return seeded, nil
}

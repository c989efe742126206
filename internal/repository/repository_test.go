package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&model.User{},
		&model.Merchant{},
		&model.LinkGeneration{},
		&model.ViralInteraction{},
		&model.SearchEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestUserUpsertIdempotent(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	first, err := users.UpsertFromTelegram(ctx, 42, "alice")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := users.UpsertFromTelegram(ctx, 42, "alice_renamed")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("upsert created a second row: %d vs %d", first.ID, second.ID)
	}
	if second.Username != "alice_renamed" {
		t.Errorf("username not refreshed: %q", second.Username)
	}

	var count int64
	db.Model(&model.User{}).Count(&count)
	if count != 1 {
		t.Errorf("users = %d, want 1", count)
	}
}

func TestUserIncrementLinkCount(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	if _, err := users.UpsertFromTelegram(ctx, 42, "alice"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := users.IncrementLinkCount(ctx, 42, 3); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := users.IncrementLinkCount(ctx, 42, 1); err != nil {
		t.Fatalf("increment: %v", err)
	}

	user, err := users.FindByTelegramID(ctx, 42)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if user.LinkCount != 4 {
		t.Errorf("link count = %d, want 4", user.LinkCount)
	}
}

func TestUserCountActiveSince(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	if _, err := users.UpsertFromTelegram(ctx, 1, "a"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := users.UpsertFromTelegram(ctx, 2, "b"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Push one user out of the window.
	stale := time.Now().AddDate(0, 0, -30)
	if err := db.Model(&model.User{}).Where("telegram_id = ?", 2).
		Update("last_active_at", stale).Error; err != nil {
		t.Fatalf("age user: %v", err)
	}

	active, err := users.CountActiveSince(ctx, time.Now().AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("count active: %v", err)
	}
	if active != 1 {
		t.Errorf("active = %d, want 1", active)
	}
}

func TestLinkGenerationNoDedup(t *testing.T) {
	db := newTestDB(t)
	events := NewEventRepository(db)
	ctx := context.Background()

	// The same user regenerating the same merchant is two facts, not one.
	for i := 0; i < 2; i++ {
		event := &model.LinkGeneration{
			UserID:        42,
			MerchantSlug:  "pelago",
			URL:           "https://pelago.com/?afid=42",
			TrackingToken: "tok",
		}
		if err := events.RecordLinkGeneration(ctx, event); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	count, err := events.CountLinksSince(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("links = %d, want 2", count)
	}
}

func TestTopByRateOrdering(t *testing.T) {
	db := newTestDB(t)
	merchants := NewMerchantRepository(db)
	ctx := context.Background()

	seed := []model.Merchant{
		{Slug: "low", Name: "Low", TrackingTemplate: "https://l/?u={{USER_ID}}", BaseMPD: 1.0},
		{Slug: "high", Name: "High", TrackingTemplate: "https://h/?u={{USER_ID}}", BaseMPD: 8.0},
		{Slug: "mid", Name: "Mid", TrackingTemplate: "https://m/?u={{USER_ID}}", BaseMPD: 4.0},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	top, err := merchants.TopByRate(ctx, 2)
	if err != nil {
		t.Fatalf("top by rate: %v", err)
	}
	if len(top) != 2 || top[0].Slug != "high" || top[1].Slug != "mid" {
		t.Errorf("top = %+v, want high then mid", top)
	}
}

func TestSeedFromFile(t *testing.T) {
	db := newTestDB(t)
	merchants := NewMerchantRepository(db)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "merchants.json")
	payload := `[
		{"merchant_slug": "pelago", "merchantName": "Pelago", "base_mpd": 8.0, "trackingLink": "https://pelago.com/?afid={{USER_ID}}"},
		{"merchant_slug": "klook", "merchantName": "Klook", "base_mpd": 6.5, "trackingLink": "https://klook.com/?aid={{USER_ID}}"}
	]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	seeded, err := merchants.SeedFromFile(ctx, path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if seeded != 2 {
		t.Fatalf("seeded = %d, want 2", seeded)
	}

	count, err := merchants.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("merchants = %d, want 2", count)
	}

	m, err := merchants.FindBySlug(ctx, "pelago")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if m.Name != "Pelago" || m.BaseMPD != 8.0 {
		t.Errorf("merchant = %+v", m)
	}

	// Re-seeding a populated table is a no-op.
	reseeded, err := merchants.SeedFromFile(ctx, path)
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if reseeded != 0 {
		t.Errorf("reseed touched a populated table: %d", reseeded)
	}
	count, _ = merchants.Count(ctx)
	if count != 2 {
		t.Errorf("reseed duplicated rows: %d", count)
	}
}

func TestCountViralBetweenSelfFilter(t *testing.T) {
	db := newTestDB(t)
	events := NewEventRepository(db)
	ctx := context.Background()

	now := time.Now()
	edges := []model.ViralInteraction{
		{OriginalID: 1, ViralID: 2, MerchantSlug: "pelago", Kind: "callback"},
		{OriginalID: 1, ViralID: 1, MerchantSlug: "pelago", Kind: "callback"},
	}
	for i := range edges {
		if err := events.RecordViralInteraction(ctx, &edges[i]); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	since, until := now.Add(-time.Hour), now.Add(time.Hour)

	excl, err := events.CountViralBetween(ctx, since, until, false)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if excl != 1 {
		t.Errorf("excluding self loops = %d, want 1", excl)
	}

	incl, err := events.CountViralBetween(ctx, since, until, true)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if incl != 2 {
		t.Errorf("including self loops = %d, want 2", incl)
	}
}

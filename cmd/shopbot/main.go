package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/bot"
	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/config"
	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/metrics"
	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/repository"
	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/server"
	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	merchantRepo := repository.NewMerchantRepository(db)
	eventRepo := repository.NewEventRepository(db)

	seeded, err := merchantRepo.SeedFromFile(ctx, cfg.MerchantSeedPath)
	if err != nil {
		log.Fatalf("seed merchants: %v", err)
	}
	if seeded > 0 {
		log.Printf("[info] seeded %d merchants from %s", seeded, cfg.MerchantSeedPath)
	}

	catalogSvc := service.NewCatalogService(merchantRepo, cfg.PageSize, cfg.PopularCount)
	analyticsSvc := service.NewAnalyticsService(userRepo, eventRepo, service.AnalyticsOptions{
		WindowDays:         cfg.AnalyticsWindowDays,
		TopLimit:           cfg.TopMerchantsLimit,
		TrendDays:          cfg.TrendDays,
		UsageSampleDays:    cfg.UsageSampleDays,
		MonthlyQuota:       cfg.MonthlyQuota,
		CountSelfReferrals: cfg.CountSelfReferrals,
	})
	botMetrics := metrics.NewBotMetrics()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("bot api: %v", err)
	}

	shopBot, err := bot.New(api, userRepo, merchantRepo, eventRepo, catalogSvc, botMetrics)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.ScheduleDaily(cfg.DigestTime, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		logAnalyticsDigest(jobCtx, analyticsSvc)
	}); err != nil {
		log.Fatalf("schedule digest: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	httpServer := server.New(shopBot, analyticsSvc, botMetrics)

	if cfg.WebhookURL != "" {
		webhook, err := tgbotapi.NewWebhook(cfg.WebhookURL)
		if err != nil {
			log.Fatalf("webhook config: %v", err)
		}
		if _, err := api.Request(webhook); err != nil {
			log.Fatalf("register webhook: %v", err)
		}
		log.Printf("[info] webhook registered at %s, serving on %s", cfg.WebhookURL, cfg.HTTPAddr)
		if err := httpServer.Run(cfg.HTTPAddr); err != nil {
			log.Fatalf("http server: %v", err)
		}
		return
	}

	// Polling mode: the HTTP surface still serves analytics and metrics.
	go func() {
		if err := httpServer.Run(cfg.HTTPAddr); err != nil {
			log.Printf("http server: %v", err)
		}
	}()

	log.Println("HeyMax shop bot started.")
	if err := shopBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}

func logAnalyticsDigest(ctx context.Context, analytics *service.AnalyticsService) {
	report, err := analytics.BuildReport(ctx, time.Now())
	if err != nil {
		log.Printf("analytics digest: %v", err)
		return
	}
	log.Printf("[info] digest coefficient_7d=%.2f links_7d=%d active_users_7d=%d projected_monthly=%d (%.1f%% of quota)",
		report.ViralMetrics.ViralCoefficient7d,
		report.LinkMetrics.Links,
		report.UserMetrics.ActiveUsers,
		report.UsageProjection.ProjectedMonthly,
		report.UsageProjection.QuotaPct,
	)
	switch report.HealthStatus {
	case service.HealthCritical:
		log.Printf("[warn] usage projection critical: %.1f%% of monthly quota", report.UsageProjection.QuotaPct)
	case service.HealthWarning:
		log.Printf("[warn] usage projection high: %.1f%% of monthly quota", report.UsageProjection.QuotaPct)
	}
}

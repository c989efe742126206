package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/bot"
	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/metrics"
	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/service"
)

// Server exposes the Telegram webhook plus the read-only observability
// surface: analytics document, health, Prometheus metrics.
type Server struct {
	engine     *gin.Engine
	bot        *bot.Bot
	analytics  *service.AnalyticsService
	botMetrics *metrics.BotMetrics
}

func New(b *bot.Bot, analytics *service.AnalyticsService, botMetrics *metrics.BotMetrics) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:     engine,
		bot:        b,
		analytics:  analytics,
		botMetrics: botMetrics,
	}

	engine.POST("/telegram/webhook", s.handleWebhook)
	engine.GET("/api/analytics", s.handleAnalytics)
	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

// handleWebhook ingests one Telegram update. It always answers 200: the
// platform re-delivers on non-200 and the flows are safe to re-run, so a
// handling failure is logged and counted instead of triggering a retry storm.
func (s *Server) handleWebhook(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		log.Printf("[warn] webhook decode: %v", err)
		s.botMetrics.RecordWebhookError()
		c.Status(http.StatusBadRequest)
		return
	}

	if err := s.bot.HandleUpdate(c.Request.Context(), update); err != nil {
		log.Printf("handle update: %v", err)
		s.botMetrics.RecordWebhookError()
	}
	c.Status(http.StatusOK)
}

func (s *Server) handleAnalytics(c *gin.Context) {
	report, err := s.analytics.BuildReport(c.Request.Context(), time.Now())
	if err != nil {
		log.Printf("[warn] build analytics report: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analytics unavailable"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

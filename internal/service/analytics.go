package service

import (
	"context"
	"time"

	"github.com/calvindotsg/heymax-shop-bot-sub000/internal/repository"
)

// Health states derived from the monthly usage projection.
const (
	HealthOK       = "ok"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

const (
	warningQuotaPct  = 80.0
	criticalQuotaPct = 95.0
	daysPerMonth     = 30
)

// AnalyticsOptions tunes the read-side aggregation windows.
type AnalyticsOptions struct {
	WindowDays         int
	TopLimit           int
	TrendDays          int
	UsageSampleDays    int
	MonthlyQuota       int64
	CountSelfReferrals bool
}

// AnalyticsService computes advisory rolling-window metrics from persisted
// events. Nothing on the hot path depends on its output.
type AnalyticsService struct {
	users  *repository.UserRepository
	events *repository.EventRepository
	opts   AnalyticsOptions
}

func NewAnalyticsService(users *repository.UserRepository, events *repository.EventRepository, opts AnalyticsOptions) *AnalyticsService {
	if opts.WindowDays <= 0 {
		opts.WindowDays = 7
	}
	if opts.TopLimit <= 0 {
		opts.TopLimit = 5
	}
	if opts.TrendDays <= 0 {
		opts.TrendDays = 14
	}
	if opts.UsageSampleDays <= 0 {
		opts.UsageSampleDays = 3
	}
	return &AnalyticsService{users: users, events: events, opts: opts}
}

// TrendPoint is one day of the viral-coefficient series.
type TrendPoint struct {
	Date        string  `json:"date"`
	Coefficient float64 `json:"coefficient"`
}

// UsageProjection extrapolates a short recent sample to a monthly volume and
// expresses it against the external platform quota.
type UsageProjection struct {
	SampleEvents     int64   `json:"sample_events"`
	SampleDays       int     `json:"sample_days"`
	ProjectedMonthly int64   `json:"projected_monthly"`
	MonthlyQuota     int64   `json:"monthly_quota"`
	QuotaPct         float64 `json:"quota_pct"`
	Status           string  `json:"status"`
}

// Report is the read-only analytics document served on request.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	UserMetrics struct {
		TotalUsers  int64 `json:"total_users"`
		ActiveUsers int64 `json:"active_users_7d"`
	} `json:"user_metrics"`
	LinkMetrics struct {
		TotalLinks int64 `json:"total_links"`
		Links      int64 `json:"links_7d"`
	} `json:"link_metrics"`
	ViralMetrics struct {
		ViralCoefficient7d float64      `json:"viral_coefficient_7d"`
		ViralInteractions  int64        `json:"viral_interactions_7d"`
		Trend              []TrendPoint `json:"trend"`
	} `json:"viral_metrics"`
	TopMerchants       []repository.MerchantCount `json:"top_merchants_7d"`
	PerformanceMetrics struct {
		Searches           int64   `json:"searches_7d"`
		AvgSearchLatencyMs float64 `json:"avg_search_latency_ms_7d"`
	} `json:"performance_metrics"`
	UsageProjection UsageProjection `json:"usage_projection"`
	HealthStatus    string          `json:"health_status"`
}

// ViralCoefficient is viral edges over distinct active users in
// [since, until). Zero users yields zero, never a division fault.
func (s *AnalyticsService) ViralCoefficient(ctx context.Context, since, until time.Time) (float64, error) {
	edges, err := s.events.CountViralBetween(ctx, since, until, s.opts.CountSelfReferrals)
	if err != nil {
		return 0, err
	}
	active, err := s.events.CountUsersActiveBetween(ctx, since, until)
	if err != nil {
		return 0, err
	}
	if active == 0 {
		return 0, nil
	}
	return float64(edges) / float64(active), nil
}

// Projection extrapolates event volume over the sample window to a monthly
// figure and flags it against the platform quota.
func (s *AnalyticsService) Projection(ctx context.Context, now time.Time) (UsageProjection, error) {
	since := now.AddDate(0, 0, -s.opts.UsageSampleDays)
	sample, err := s.events.CountEventsBetween(ctx, since, now)
	if err != nil {
		return UsageProjection{}, err
	}

	perDay := float64(sample) / float64(s.opts.UsageSampleDays)
	projected := int64(perDay * daysPerMonth)

	proj := UsageProjection{
		SampleEvents:     sample,
		SampleDays:       s.opts.UsageSampleDays,
		ProjectedMonthly: projected,
		MonthlyQuota:     s.opts.MonthlyQuota,
		Status:           HealthOK,
	}
	if s.opts.MonthlyQuota > 0 {
		proj.QuotaPct = float64(projected) / float64(s.opts.MonthlyQuota) * 100
	}
	switch {
	case proj.QuotaPct > criticalQuotaPct:
		proj.Status = HealthCritical
	case proj.QuotaPct > warningQuotaPct:
		proj.Status = HealthWarning
	}
	return proj, nil
}

// Trend computes the coefficient once per day for the configured trailing days.
func (s *AnalyticsService) Trend(ctx context.Context, now time.Time) ([]TrendPoint, error) {
	points := make([]TrendPoint, 0, s.opts.TrendDays)
	dayEnd := now.Truncate(24 * time.Hour).AddDate(0, 0, 1)
	for i := s.opts.TrendDays; i > 0; i-- {
		start := dayEnd.AddDate(0, 0, -i)
		end := start.AddDate(0, 0, 1)
		coeff, err := s.ViralCoefficient(ctx, start, end)
		if err != nil {
			return nil, err
		}
		points = append(points, TrendPoint{
			Date:        start.Format("2006-01-02"),
			Coefficient: coeff,
		})
	}
	return points, nil
}

// BuildReport assembles the full analytics document for the given instant.
func (s *AnalyticsService) BuildReport(ctx context.Context, now time.Time) (*Report, error) {
	windowStart := now.AddDate(0, 0, -s.opts.WindowDays)

	report := &Report{GeneratedAt: now}

	totalUsers, err := s.users.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	activeUsers, err := s.users.CountActiveSince(ctx, windowStart)
	if err != nil {
		return nil, err
	}
	report.UserMetrics.TotalUsers = totalUsers
	report.UserMetrics.ActiveUsers = activeUsers

	totalLinks, err := s.events.CountLinksAll(ctx)
	if err != nil {
		return nil, err
	}
	windowLinks, err := s.events.CountLinksSince(ctx, windowStart)
	if err != nil {
		return nil, err
	}
	report.LinkMetrics.TotalLinks = totalLinks
	report.LinkMetrics.Links = windowLinks

	edges, err := s.events.CountViralBetween(ctx, windowStart, now, s.opts.CountSelfReferrals)
	if err != nil {
		return nil, err
	}
	report.ViralMetrics.ViralInteractions = edges
	// The headline coefficient divides by users active in the window per the
	// users table, not just link generators.
	if activeUsers > 0 {
		report.ViralMetrics.ViralCoefficient7d = float64(edges) / float64(activeUsers)
	}
	trend, err := s.Trend(ctx, now)
	if err != nil {
		return nil, err
	}
	report.ViralMetrics.Trend = trend

	top, err := s.events.TopMerchantsSince(ctx, windowStart, s.opts.TopLimit)
	if err != nil {
		return nil, err
	}
	report.TopMerchants = top

	searches, err := s.events.CountSearchesSince(ctx, windowStart)
	if err != nil {
		return nil, err
	}
	latency, err := s.events.AverageSearchLatencySince(ctx, windowStart)
	if err != nil {
		return nil, err
	}
	report.PerformanceMetrics.Searches = searches
	report.PerformanceMetrics.AvgSearchLatencyMs = latency

	proj, err := s.Projection(ctx, now)
	if err != nil {
		return nil, err
	}
	report.UsageProjection = proj
	report.HealthStatus = proj.Status

	return report, nil
}

package model

import "time"

// LinkGeneration records one affiliate link actually returned to a requester.
// Append-only; duplicates are legitimate (the same user may request the same
// merchant twice) and must not be collapsed.
type LinkGeneration struct {
	ID            uint   `gorm:"primaryKey"`
	UserID        int64  `gorm:"index"`
	MerchantSlug  string `gorm:"index"`
	URL           string
	SearchTerm    *string
	ResultCount   int
	TrackingToken string
	CreatedAt     time.Time `gorm:"index"`
}

// ViralInteraction is an edge between the user who shared a link and the user
// who pressed the share button to generate their own copy.
type ViralInteraction struct {
	ID           uint   `gorm:"primaryKey"`
	OriginalID   int64  `gorm:"index"`
	ViralID      int64  `gorm:"index"`
	MerchantSlug string `gorm:"index"`
	ChatID       *int64
	Kind         string
	CreatedAt    time.Time `gorm:"index"`
}

// SearchEvent is optional telemetry consumed only by the analytics aggregator.
type SearchEvent struct {
	ID          uint `gorm:"primaryKey"`
	EventID     string
	Query       string
	ResultCount int
	LatencyMs   int64
	CreatedAt   time.Time `gorm:"index"`
}

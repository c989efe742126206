package model

import "time"

// Merchant is a catalog entry with a miles-per-dollar reward rate and a
// templated tracking link. The catalog is read-mostly: rows are written by the
// seed loader (or an external catalog process), never by the bot flows.
type Merchant struct {
	ID               uint   `gorm:"primaryKey"`
	Slug             string `gorm:"uniqueIndex"`
	Name             string `gorm:"index"`
	TrackingTemplate string
	BaseMPD          float64 `gorm:"index"`
	Category         string
	LogoURL          string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

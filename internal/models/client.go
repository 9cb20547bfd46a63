package models

import (
	"time"

	"gorm.io/gorm"
)

// Client is an ads-data principal linked to a portal user. Access and
// refresh tokens are stored AES-256-CBC encrypted ("ivhex:cipherhex").
type Client struct {
	gorm.Model

	ClientName       string `gorm:"not null"`
	MetaAdAccountID  string
	MetaAccessToken  string
	MetaRefreshToken string
	TokenExpiresAt   *time.Time
	AuthStatus       string `gorm:"not null;default:'ACTIVE'"` // ACTIVE, AUTH_REQUIRED, TOKEN_EXPIRED
	IsActive         bool   `gorm:"not null;default:true"`

	// Relationships
	RefreshLogs []TokenRefreshLog `gorm:"foreignKey:ClientID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Insights    []AdInsight       `gorm:"foreignKey:ClientID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

// TokenRefreshLog records every refresh attempt for audit.
type TokenRefreshLog struct {
	gorm.Model

	ClientID     uint `gorm:"not null;index"`
	Success      bool `gorm:"not null"`
	ErrorMessage string
	ExpiresAt    *time.Time
}

// AdInsight is one day of collected metrics for a single ad.
type AdInsight struct {
	gorm.Model

	ClientID     uint      `gorm:"not null;index"`
	Date         time.Time `gorm:"not null;index"`
	AdID         string    `gorm:"not null"`
	AdName       string
	CampaignID   string
	CampaignName string
	Platform     string
	Device       string
	Currency     string

	Impressions  int
	Reach        int
	Clicks       int
	Leads        int
	Spend        float64
	VideoViews   int
	AvgWatchTime float64
}

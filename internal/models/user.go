package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model

	ClientName   string `gorm:"not null;index:idx_users_client_phone"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	Phone        string `gorm:"not null;index:idx_users_client_phone"` // digits only, hyphens stripped
	Password     string `gorm:"not null"`                              // bcrypt hash of the 4-digit PIN
	SMSConsent   bool   `gorm:"not null;default:false"`
	EmailConsent bool   `gorm:"not null;default:false"`
	IsActive     bool   `gorm:"not null;default:true"`

	TelegramChatID  string
	TelegramEnabled bool `gorm:"not null;default:false"`

	AdsClientID *uint `gorm:"index"` // linked ads-data client, if any
	LastLoginAt *time.Time

	// Relationships
	Submission Submission            `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Workflows  []Workflow            `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Contracts  []Contract            `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Threads    []CommunicationThread `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

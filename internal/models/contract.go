package models

import (
	"time"

	"gorm.io/gorm"
)

// Package is a purchasable service plan referenced by contracts.
type Package struct {
	gorm.Model

	Name        string `gorm:"uniqueIndex;not null"`
	DisplayName string `gorm:"not null"`
	Price       int    `gorm:"not null"` // monthly fee in KRW
	Period      int    `gorm:"not null;default:12"`
	IsActive    bool   `gorm:"not null;default:true"`
}

// Contract is a single service agreement. The unique index on
// ContractNumber turns the daily-sequence race into a retryable conflict.
type Contract struct {
	gorm.Model

	ContractNumber string `gorm:"uniqueIndex;not null"` // YYYYMMDD-NNNN
	UserID         uint   `gorm:"not null;index"`
	PackageID      uint   `gorm:"not null"`

	CompanyName    string `gorm:"not null"`
	CEOName        string `gorm:"not null"`
	BusinessNumber string `gorm:"not null"`
	Address        string `gorm:"not null"`
	ContactName    string `gorm:"not null"`
	ContactPhone   string `gorm:"not null"`
	ContactEmail   string `gorm:"not null"`

	ContractPeriod  int `gorm:"not null;default:12"` // months
	MonthlyFee      int `gorm:"not null"`
	TotalAmount     int `gorm:"not null"`
	AdditionalNotes string

	ClientSignature string // data URL from the signature pad
	SignedAt        *time.Time
	SignedIP        string

	StartDate *time.Time
	EndDate   *time.Time

	Status string `gorm:"not null;default:'PENDING'"` // PENDING, SUBMITTED, APPROVED, ACTIVE, REJECTED, EXPIRED, CANCELLED

	// Relationships
	Package Package       `gorm:"foreignKey:PackageID;constraint:OnUpdate:Cascade,OnDelete:RESTRICT"`
	Logs    []ContractLog `gorm:"foreignKey:ContractID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

type ContractLog struct {
	gorm.Model

	ContractID uint   `gorm:"not null;index"`
	FromStatus string // empty for creation
	ToStatus   string `gorm:"not null"`
	ChangedBy  uint   `gorm:"not null"`
	Note       string
}

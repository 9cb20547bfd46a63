package models

import (
	"time"

	"gorm.io/gorm"
)

// Submission holds the onboarding material bundle a client provides once.
// Sensitive documents (business license, ID card, bank book) are never
// persisted here; their delivery is proven by signed upload receipts.
type Submission struct {
	gorm.Model

	UserID uint `gorm:"not null;uniqueIndex"`

	ProfilePhoto    string
	BrandName       string
	ContactEmail    string
	ContactPhone    string
	BankAccount     string
	DeliveryAddress string
	WebsiteStyle    string
	WebsiteColor    string
	BlogDesignNote  string
	AdditionalNote  string

	Status     string `gorm:"not null;default:'DRAFT'"` // DRAFT, SUBMITTED, IN_REVIEW, APPROVED, REJECTED
	IsComplete bool   `gorm:"not null;default:false"`
	Locked     bool   `gorm:"not null;default:false"` // set on submit, cleared by explicit edit-mode unlock

	SlackChannelID string
	SubmittedAt    *time.Time
	CompletedAt    *time.Time
}

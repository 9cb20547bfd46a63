package models

import (
	"time"

	"gorm.io/gorm"
)

// Workflow is one production task per deliverable type. Created in a fixed
// default set at signup, advanced by user approve/revision actions and by
// admin-side processing; never deleted.
type Workflow struct {
	gorm.Model

	UserID uint   `gorm:"not null;index"`
	Type   string `gorm:"not null"` // NAMECARD, NAMETAG, CONTRACT, ENVELOPE, WEBSITE, BLOG, META_ADS, NAVER_ADS
	Status string `gorm:"not null;default:'PENDING'"`

	DesignURL       string
	FinalURL        string
	TrackingNumber  string
	ShippingCarrier string

	RevisionCount int `gorm:"not null;default:0"`
	RevisionNote  string

	SubmittedAt      *time.Time
	DesignStartedAt  *time.Time
	DesignUploadedAt *time.Time
	OrderRequestedAt *time.Time
	OrderApprovedAt  *time.Time
	CompletedAt      *time.Time
	ShippedAt        *time.Time

	// Relationships
	Logs []WorkflowLog `gorm:"foreignKey:WorkflowID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

// WorkflowLog is an append-only audit row for a status transition.
type WorkflowLog struct {
	gorm.Model

	WorkflowID uint   `gorm:"not null;index"`
	FromStatus string // empty for the initial transition
	ToStatus   string `gorm:"not null"`
	ChangedBy  uint   `gorm:"not null"`
	Note       string
}

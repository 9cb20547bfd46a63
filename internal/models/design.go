package models

import (
	"time"

	"gorm.io/gorm"
)

// Design is the versioned review object attached 1:1 to a Workflow.
// Versions are monotonically numbered per design; approval pins one
// specific version number.
type Design struct {
	gorm.Model

	WorkflowID uint   `gorm:"not null;uniqueIndex"`
	Status     string `gorm:"not null;default:'DRAFT'"` // DRAFT, PENDING_REVIEW, REVISION_REQUESTED, APPROVED

	CurrentVersion  int `gorm:"not null;default:0"`
	ApprovedVersion *int
	ApprovedAt      *time.Time

	// Relationships
	Workflow Workflow        `gorm:"foreignKey:WorkflowID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Versions []DesignVersion `gorm:"foreignKey:DesignID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

type DesignVersion struct {
	gorm.Model

	DesignID   uint   `gorm:"not null;index:idx_design_version,unique"`
	Version    int    `gorm:"not null;index:idx_design_version,unique"`
	FileURL    string `gorm:"not null"`
	Note       string
	UploadedBy string // admin name

	// Relationships
	Feedbacks []DesignFeedback `gorm:"foreignKey:VersionID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

// DesignFeedback is one comment on a specific design version. AuthorType
// ("user" or "admin") drives presentation only; access control happens in
// the route.
type DesignFeedback struct {
	gorm.Model

	VersionID  uint   `gorm:"not null;index"`
	AuthorID   uint   `gorm:"not null"`
	AuthorType string `gorm:"not null"`
	AuthorName string `gorm:"not null"`
	Content    string `gorm:"not null"`
}

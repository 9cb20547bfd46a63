package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CommunicationThread is a support ticket between a customer and staff.
// No message may be appended once status is RESOLVED; any customer reply
// flips status back to OPEN.
type CommunicationThread struct {
	gorm.Model

	UserID   uint   `gorm:"not null;index"`
	Title    string `gorm:"not null"`
	Category string `gorm:"not null;default:'일반'"`
	Status   string `gorm:"not null;default:'OPEN'"` // OPEN, IN_PROGRESS, RESOLVED

	LastReplyAt time.Time `gorm:"not null"`

	// Relationships
	Messages []CommunicationMessage `gorm:"foreignKey:ThreadID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

type CommunicationMessage struct {
	gorm.Model

	ThreadID   uint   `gorm:"not null;index"`
	AuthorID   uint   `gorm:"not null"`
	AuthorType string `gorm:"not null"` // "user" or "admin"
	AuthorName string `gorm:"not null"`
	Content    string `gorm:"not null"`

	Attachments datatypes.JSON `gorm:"type:jsonb"` // array of public URLs

	IsReadByUser  bool `gorm:"not null;default:false"`
	IsReadByAdmin bool `gorm:"not null;default:false"`
	ReadByUserAt  *time.Time
	ReadByAdminAt *time.Time
}

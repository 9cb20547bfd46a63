package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/models"
	"github.com/polarad/portal/internal/types"
	"github.com/polarad/portal/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreateThreadRequest struct {
	Title       string   `json:"title" binding:"required"`
	Category    string   `json:"category"`
	Content     string   `json:"content" binding:"required"`
	Attachments []string `json:"attachments"`
}

type CreateMessageRequest struct {
	Content     string   `json:"content" binding:"required"`
	Attachments []string `json:"attachments"`
}

func attachmentsJSON(urls []string) (datatypes.JSON, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(urls)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// ListThreads returns the user's support threads, newest activity first,
// each flagged with whether it holds unread staff replies.
func ListThreads(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var threads []models.CommunicationThread

	if err := db.DB.Where("user_id = ?", userID).Order("last_reply_at desc").Find(&threads).Error; err != nil {
		log.Printf("Failed to list threads: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "문의 목록 조회 중 오류가 발생했습니다"})
		return
	}

	type threadWithUnread struct {
		models.CommunicationThread
		HasUnread bool `json:"hasUnread"`
	}

	result := make([]threadWithUnread, 0, len(threads))

	for _, thread := range threads {
		var unread int64

		err := db.DB.Model(&models.CommunicationMessage{}).
			Where("thread_id = ? AND author_type = ? AND is_read_by_user = ?", thread.ID, "admin", false).
			Count(&unread).Error
		if err != nil {
			log.Printf("Failed to count unread messages for thread %d: %v", thread.ID, err)
		}

		result = append(result, threadWithUnread{CommunicationThread: thread, HasUnread: unread > 0})
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "threads": result})
}

// CreateThread opens a thread with its first message in one transaction.
func CreateThread(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var req CreateThreadRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "제목과 내용을 입력해주세요"})
		return
	}

	attachments, err := attachmentsJSON(req.Attachments)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "유효하지 않은 첨부파일입니다"})
		return
	}

	category := req.Category
	if category == "" {
		category = "일반"
	}

	now := time.Now()

	thread := models.CommunicationThread{
		UserID:      currentUser.ID,
		Title:       req.Title,
		Category:    category,
		Status:      types.ThreadOpen,
		LastReplyAt: now,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&thread).Error; err != nil {
			return err
		}

		return tx.Create(&models.CommunicationMessage{
			ThreadID:     thread.ID,
			AuthorID:     currentUser.ID,
			AuthorType:   "user",
			AuthorName:   currentUser.Name,
			Content:      req.Content,
			Attachments:  attachments,
			IsReadByUser: true,
		}).Error
	})

	if err != nil {
		log.Printf("Failed to create thread for user %d: %v", currentUser.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "문의 등록 중 오류가 발생했습니다"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"success": true, "thread": thread})
}

// GetThread returns the thread with its messages and marks all staff
// replies as read by the user.
func GetThread(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var thread models.CommunicationThread

	err = db.DB.Preload("Messages", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at asc")
	}).Where("id = ?", ctx.Param("id")).First(&thread).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "문의를 찾을 수 없습니다"})
		} else {
			log.Printf("Failed to fetch thread: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "문의 조회 중 오류가 발생했습니다"})
		}
		return
	}

	if thread.UserID != userID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "접근 권한이 없습니다"})
		return
	}

	now := time.Now()

	err = db.DB.Model(&models.CommunicationMessage{}).
		Where("thread_id = ? AND author_type = ? AND is_read_by_user = ?", thread.ID, "admin", false).
		Updates(map[string]interface{}{"is_read_by_user": true, "read_by_user_at": now}).Error
	if err != nil {
		log.Printf("Failed to mark messages read for thread %d: %v", thread.ID, err)
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "thread": thread})
}

// CreateMessage appends a customer reply. RESOLVED threads reject new
// messages; a reply to an IN_PROGRESS thread reopens it as OPEN.
func CreateMessage(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var req CreateMessageRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "내용을 입력해주세요"})
		return
	}

	var thread models.CommunicationThread

	if err := db.DB.Where("id = ?", ctx.Param("id")).First(&thread).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "문의를 찾을 수 없습니다"})
		} else {
			log.Printf("Failed to fetch thread: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "메시지 등록 중 오류가 발생했습니다"})
		}
		return
	}

	if thread.UserID != currentUser.ID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "접근 권한이 없습니다"})
		return
	}

	if thread.Status == types.ThreadResolved {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "해결된 문의에는 메시지를 추가할 수 없습니다. 새 문의를 등록해주세요"})
		return
	}

	attachments, err := attachmentsJSON(req.Attachments)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "유효하지 않은 첨부파일입니다"})
		return
	}

	message := models.CommunicationMessage{
		ThreadID:     thread.ID,
		AuthorID:     currentUser.ID,
		AuthorType:   "user",
		AuthorName:   currentUser.Name,
		Content:      req.Content,
		Attachments:  attachments,
		IsReadByUser: true,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}

		return tx.Model(&models.CommunicationThread{}).Where("id = ?", thread.ID).Updates(map[string]interface{}{
			"status":        types.ThreadOpen,
			"last_reply_at": time.Now(),
		}).Error
	})

	if err != nil {
		log.Printf("Failed to append message to thread %d: %v", thread.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "메시지 등록 중 오류가 발생했습니다"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"success": true, "message": message})
}

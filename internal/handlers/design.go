package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/models"
	"github.com/polarad/portal/internal/services"
	"github.com/polarad/portal/internal/types"
	"github.com/polarad/portal/internal/utils"
	"gorm.io/gorm"
)

type DesignActionRequest struct {
	Action  string `json:"action" binding:"required"` // "approve", "request_revision", "feedback"
	Content string `json:"content"`
}

// ListDesigns returns the user's reviewable designs. DRAFT designs are
// staff-internal and never shown.
func ListDesigns(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var workflowIDs []uint

	if err := db.DB.Model(&models.Workflow{}).Where("user_id = ?", userID).Pluck("id", &workflowIDs).Error; err != nil {
		log.Printf("Failed to list workflow ids: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "시안 목록 조회 중 오류가 발생했습니다"})
		return
	}

	var designs []models.Design

	err = db.DB.Preload("Workflow").
		Preload("Versions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("version desc")
		}).
		Preload("Versions.Feedbacks", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at desc")
		}).
		Where("workflow_id IN ? AND status <> ?", workflowIDs, types.DesignDraft).
		Order("updated_at desc").
		Find(&designs).Error

	if err != nil {
		log.Printf("Failed to list designs: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "시안 목록 조회 중 오류가 발생했습니다"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "designs": designs})
}

func GetDesign(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var design models.Design

	err = db.DB.Preload("Workflow").
		Preload("Versions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("version desc")
		}).
		Preload("Versions.Feedbacks", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at asc")
		}).
		Where("id = ?", ctx.Param("id")).First(&design).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "시안을 찾을 수 없습니다"})
		} else {
			log.Printf("Failed to fetch design: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "시안 조회 중 오류가 발생했습니다"})
		}
		return
	}

	if design.Workflow.UserID != userID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "접근 권한이 없습니다"})
		return
	}

	if design.Status == types.DesignDraft {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "아직 공개되지 않은 시안입니다"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "design": design})
}

// DesignAction applies approve / request_revision / feedback. Approval
// pins approvedVersion to the current version and advances the owning
// workflow to ORDER_REQUESTED in the same transaction.
func DesignAction(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var req DesignActionRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "유효하지 않은 요청입니다"})
		return
	}

	var design models.Design

	err = db.DB.Preload("Workflow").
		Preload("Versions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("version desc").Limit(1)
		}).
		Where("id = ?", ctx.Param("id")).First(&design).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "시안을 찾을 수 없습니다"})
		} else {
			log.Printf("Failed to fetch design: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "처리 중 오류가 발생했습니다"})
		}
		return
	}

	if design.Workflow.UserID != currentUser.ID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "접근 권한이 없습니다"})
		return
	}

	if len(design.Versions) == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "시안 버전을 찾을 수 없습니다"})
		return
	}

	currentVersion := design.Versions[0]

	var message string

	switch req.Action {
	case "approve":
		if design.Status == types.DesignApproved {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "이미 확정된 시안입니다"})
			return
		}

		content := req.Content
		if content == "" {
			content = "시안을 확정합니다."
		}

		now := time.Now()

		err = db.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Design{}).Where("id = ?", design.ID).Updates(map[string]interface{}{
				"status":           types.DesignApproved,
				"approved_at":      now,
				"approved_version": design.CurrentVersion,
			}).Error; err != nil {
				return err
			}

			if err := tx.Create(&models.DesignFeedback{
				VersionID:  currentVersion.ID,
				AuthorID:   currentUser.ID,
				AuthorType: "user",
				AuthorName: currentUser.Name,
				Content:    content,
			}).Error; err != nil {
				return err
			}

			if err := tx.Model(&models.Workflow{}).Where("id = ?", design.WorkflowID).Updates(map[string]interface{}{
				"status":             types.WorkflowOrderRequested,
				"order_requested_at": now,
			}).Error; err != nil {
				return err
			}

			return tx.Create(&models.WorkflowLog{
				WorkflowID: design.WorkflowID,
				FromStatus: design.Workflow.Status,
				ToStatus:   types.WorkflowOrderRequested,
				ChangedBy:  currentUser.ID,
				Note:       "시안 확정",
			}).Error
		})

		if err != nil {
			log.Printf("Failed to approve design %d: %v", design.ID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "처리 중 오류가 발생했습니다"})
			return
		}

		message = "시안이 확정되었습니다."
		notifyDesignAction(currentUser.ID, currentUser.Name, currentUser.ClientName, design.Workflow.Type, "", false)

	case "request_revision":
		if req.Content == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "수정 요청 내용을 입력해주세요"})
			return
		}

		if design.Status == types.DesignApproved {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "이미 확정된 시안입니다"})
			return
		}

		err = db.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Design{}).Where("id = ?", design.ID).
				Update("status", types.DesignRevisionRequested).Error; err != nil {
				return err
			}

			return tx.Create(&models.DesignFeedback{
				VersionID:  currentVersion.ID,
				AuthorID:   currentUser.ID,
				AuthorType: "user",
				AuthorName: currentUser.Name,
				Content:    req.Content,
			}).Error
		})

		if err != nil {
			log.Printf("Failed to request revision on design %d: %v", design.ID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "처리 중 오류가 발생했습니다"})
			return
		}

		message = "수정 요청이 전달되었습니다."
		notifyDesignAction(currentUser.ID, currentUser.Name, currentUser.ClientName, design.Workflow.Type, req.Content, true)

	case "feedback":
		if req.Content == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "피드백 내용을 입력해주세요"})
			return
		}

		err = db.DB.Create(&models.DesignFeedback{
			VersionID:  currentVersion.ID,
			AuthorID:   currentUser.ID,
			AuthorType: "user",
			AuthorName: currentUser.Name,
			Content:    req.Content,
		}).Error

		if err != nil {
			log.Printf("Failed to add feedback on design %d: %v", design.ID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "처리 중 오류가 발생했습니다"})
			return
		}

		message = "피드백이 전송되었습니다."
		notifyDesignAction(currentUser.ID, currentUser.Name, currentUser.ClientName, design.Workflow.Type, req.Content, false)

	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "유효하지 않은 액션입니다"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// notifyDesignAction posts to the customer's Slack channel, best effort.
func notifyDesignAction(userID uint, userName, clientName, workflowType, content string, isRevision bool) {
	var submission models.Submission

	if err := db.DB.Where("user_id = ?", userID).First(&submission).Error; err != nil || submission.SlackChannelID == "" {
		return
	}

	label := types.WorkflowTypeLabels[workflowType]
	if label == "" {
		label = workflowType
	}

	var text string
	switch {
	case isRevision:
		text = fmt.Sprintf("✏️ %s님(%s)이 %s 시안 수정을 요청했습니다.\n> %s", userName, clientName, label, content)
	case content != "":
		text = fmt.Sprintf("💬 %s님(%s)이 %s 시안에 피드백을 남겼습니다.\n> %s", userName, clientName, label, content)
	default:
		text = fmt.Sprintf("✅ %s님(%s)이 %s 시안을 확정했습니다.", userName, clientName, label)
	}

	if err := services.Channels.PostMessage(submission.SlackChannelID, text); err != nil {
		log.Printf("[Slack] design notification failed: %v", err)
	}
}

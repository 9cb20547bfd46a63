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
	"github.com/polarad/portal/internal/types"
	"github.com/polarad/portal/internal/utils"
	"gorm.io/gorm"
)

type WorkflowActionRequest struct {
	Action       string `json:"action" binding:"required"` // "approve" or "revision"
	RevisionNote string `json:"revisionNote"`
}

func ListWorkflows(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var workflows []models.Workflow

	if err := db.DB.Where("user_id = ?", userID).Order("created_at asc").Find(&workflows).Error; err != nil {
		log.Printf("Failed to list workflows: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "워크플로우 조회 중 오류가 발생했습니다"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "workflows": workflows})
}

func GetWorkflow(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var workflow models.Workflow

	err = db.DB.Preload("Logs", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at desc")
	}).Where("id = ?", ctx.Param("id")).First(&workflow).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "워크플로우를 찾을 수 없습니다"})
		} else {
			log.Printf("Failed to fetch workflow: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "워크플로우 조회 중 오류가 발생했습니다"})
		}
		return
	}

	if workflow.UserID != userID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "접근 권한이 없습니다"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "workflow": workflow})
}

// UpdateWorkflow handles the two user-triggered transitions: approve and
// revision, both legal only from DESIGN_UPLOADED. The status write is
// guarded (UPDATE ... WHERE status = DESIGN_UPLOADED), so two racing
// actions resolve to exactly one winner.
func UpdateWorkflow(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var req WorkflowActionRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "유효하지 않은 요청입니다"})
		return
	}

	var workflow models.Workflow

	if err := db.DB.Where("id = ?", ctx.Param("id")).First(&workflow).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "워크플로우를 찾을 수 없습니다"})
		} else {
			log.Printf("Failed to fetch workflow: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "워크플로우 업데이트 중 오류가 발생했습니다"})
		}
		return
	}

	if workflow.UserID != currentUser.ID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "접근 권한이 없습니다"})
		return
	}

	if workflow.Status != types.WorkflowDesignUploaded {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "현재 상태에서는 이 작업을 수행할 수 없습니다"})
		return
	}

	now := time.Now()

	switch req.Action {
	case "approve":
		toStatus := types.WorkflowOrderRequested
		updates := map[string]interface{}{
			"status":             toStatus,
			"order_requested_at": now,
		}
		note := "고객 시안 승인"

		if types.DigitalWorkflowTypes[workflow.Type] {
			toStatus = types.WorkflowCompleted
			updates = map[string]interface{}{
				"status":       toStatus,
				"completed_at": now,
			}
			note = "고객 시안 승인 - 완료"
		}

		if err := transitionWorkflow(workflow.ID, currentUser.ID, updates, toStatus, note); err != nil {
			if errors.Is(err, errStaleWorkflowStatus) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "현재 상태에서는 이 작업을 수행할 수 없습니다"})
				return
			}
			log.Printf("Failed to approve workflow %d: %v", workflow.ID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "워크플로우 업데이트 중 오류가 발생했습니다"})
			return
		}

		message := "시안이 승인되었습니다. 발주가 요청되었습니다."
		if toStatus == types.WorkflowCompleted {
			message = "시안이 승인되었습니다. 작업이 완료되었습니다."
		}

		ctx.JSON(http.StatusOK, gin.H{"success": true, "message": message})

	case "revision":
		if req.RevisionNote == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "수정 요청 내용을 입력해주세요"})
			return
		}

		updates := map[string]interface{}{
			"status":            types.WorkflowInProgress,
			"revision_note":     req.RevisionNote,
			"revision_count":    gorm.Expr("revision_count + 1"),
			"design_started_at": now,
		}

		err := transitionWorkflow(workflow.ID, currentUser.ID, updates,
			types.WorkflowInProgress, "수정 요청: "+req.RevisionNote)
		if err != nil {
			if errors.Is(err, errStaleWorkflowStatus) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "현재 상태에서는 이 작업을 수행할 수 없습니다"})
				return
			}
			log.Printf("Failed to request revision on workflow %d: %v", workflow.ID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "워크플로우 업데이트 중 오류가 발생했습니다"})
			return
		}

		ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "수정 요청이 접수되었습니다."})

	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "유효하지 않은 요청입니다"})
	}
}

var errStaleWorkflowStatus = fmt.Errorf("workflow is no longer awaiting review")

// transitionWorkflow applies the guarded status update and its audit log
// row in one transaction.
func transitionWorkflow(workflowID, changedBy uint, updates map[string]interface{}, toStatus, note string) error {
	return db.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Workflow{}).
			Where("id = ? AND status = ?", workflowID, types.WorkflowDesignUploaded).
			Updates(updates)

		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			return errStaleWorkflowStatus
		}

		return tx.Create(&models.WorkflowLog{
			WorkflowID: workflowID,
			FromStatus: types.WorkflowDesignUploaded,
			ToStatus:   toStatus,
			ChangedBy:  changedBy,
			Note:       note,
		}).Error
	})
}

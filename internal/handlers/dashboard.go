package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/models"
	"github.com/polarad/portal/internal/types"
	"github.com/polarad/portal/internal/utils"
)

// currentContractStatuses pick the contract shown on the dashboard.
// Broader than the creation block: finalized contracts stay visible.
var currentContractStatuses = []string{
	types.ContractPending,
	types.ContractSubmitted,
	types.ContractApproved,
	types.ContractActive,
}

// GetDashboard aggregates the landing-page summary: submission state,
// per-workflow progress, active contract and unread support replies.
func GetDashboard(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var submission models.Submission
	if err := db.DB.Where("user_id = ?", userID).First(&submission).Error; err != nil {
		log.Printf("Failed to fetch submission for dashboard: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "대시보드 조회 중 오류가 발생했습니다"})
		return
	}

	var workflows []models.Workflow
	if err := db.DB.Where("user_id = ?", userID).Order("created_at asc").Find(&workflows).Error; err != nil {
		log.Printf("Failed to fetch workflows for dashboard: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "대시보드 조회 중 오류가 발생했습니다"})
		return
	}

	completed := 0
	awaitingReview := 0
	for _, workflow := range workflows {
		switch workflow.Status {
		case types.WorkflowCompleted, types.WorkflowShipped:
			completed++
		case types.WorkflowDesignUploaded:
			awaitingReview++
		}
	}

	var activeContract models.Contract
	hasContract := db.DB.Preload("Package").
		Where("user_id = ? AND status IN ?", userID, currentContractStatuses).
		Order("created_at desc").First(&activeContract).Error == nil

	var unreadReplies int64
	err = db.DB.Model(&models.CommunicationMessage{}).
		Joins("JOIN communication_threads ON communication_threads.id = communication_messages.thread_id").
		Where("communication_threads.user_id = ? AND communication_messages.author_type = ? AND communication_messages.is_read_by_user = ?",
			userID, "admin", false).
		Count(&unreadReplies).Error
	if err != nil {
		log.Printf("Failed to count unread replies: %v", err)
	}

	payload := gin.H{
		"submission": gin.H{
			"status":     submission.Status,
			"isComplete": submission.IsComplete,
			"locked":     submission.Locked,
		},
		"workflows": gin.H{
			"total":          len(workflows),
			"completed":      completed,
			"awaitingReview": awaitingReview,
			"items":          workflows,
		},
		"unreadReplies": unreadReplies,
	}

	if hasContract {
		payload["contract"] = activeContract
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "dashboard": payload})
}

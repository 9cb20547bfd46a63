package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/auth"
	"github.com/polarad/portal/internal/middleware"
	"github.com/polarad/portal/internal/models"
	"github.com/polarad/portal/internal/services"
	"github.com/polarad/portal/internal/types"
	"github.com/polarad/portal/internal/utils"
)

type SaveSubmissionRequest struct {
	ProfilePhoto    string `json:"profilePhoto"`
	BrandName       string `json:"brandName"`
	ContactEmail    string `json:"contactEmail"`
	ContactPhone    string `json:"contactPhone"`
	BankAccount     string `json:"bankAccount"`
	DeliveryAddress string `json:"deliveryAddress"`
	WebsiteStyle    string `json:"websiteStyle"`
	WebsiteColor    string `json:"websiteColor"`
	BlogDesignNote  string `json:"blogDesignNote"`
	AdditionalNote  string `json:"additionalNote"`

	// Signed delivery receipts for the three sensitive documents, issued
	// by the upload endpoint. A plain "uploaded" flag is not accepted.
	Receipts map[string]string `json:"receipts"`
}

func GetSubmission(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var submission models.Submission

	if err := db.DB.Where("user_id = ?", userID).First(&submission).Error; err != nil {
		log.Printf("Failed to fetch submission: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "자료 조회 중 오류가 발생했습니다"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "submission": submission})
}

// verifyReceipts checks one valid receipt per sensitive document type.
func verifyReceipts(userID uint, receipts map[string]string) bool {
	for docType := range types.SensitiveFileTypes {
		token, ok := receipts[docType]
		if !ok {
			return false
		}
		if err := auth.VerifyUploadReceipt(token, userID, docType); err != nil {
			return false
		}
	}
	return true
}

// SaveSubmission upserts the onboarding bundle. Completion requires the
// ordinary required fields plus all three sensitive-document receipts;
// the first completion creates the customer Slack channel, locks the
// submission and alerts staff.
func SaveSubmission(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var req SaveSubmissionRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "유효하지 않은 요청입니다"})
		return
	}

	var submission models.Submission

	if err := db.DB.Where("user_id = ?", currentUser.ID).First(&submission).Error; err != nil {
		log.Printf("Failed to fetch submission: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "자료 저장 중 오류가 발생했습니다"})
		return
	}

	// Submitted bundles stay frozen until the user explicitly re-enters
	// edit mode; the lock is enforced here, not in the UI.
	if submission.Locked {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "제출이 완료된 자료입니다. 수정하려면 먼저 수정 모드를 활성화해주세요"})
		return
	}

	receiptsOK := verifyReceipts(currentUser.ID, req.Receipts)

	isComplete := req.ProfilePhoto != "" &&
		req.BrandName != "" &&
		req.ContactEmail != "" &&
		req.ContactPhone != "" &&
		req.BankAccount != "" &&
		receiptsOK

	wasComplete := submission.IsComplete
	now := time.Now()

	updates := map[string]interface{}{
		"profile_photo":    req.ProfilePhoto,
		"brand_name":       req.BrandName,
		"contact_email":    req.ContactEmail,
		"contact_phone":    req.ContactPhone,
		"bank_account":     req.BankAccount,
		"delivery_address": req.DeliveryAddress,
		"website_style":    req.WebsiteStyle,
		"website_color":    req.WebsiteColor,
		"blog_design_note": req.BlogDesignNote,
		"additional_note":  req.AdditionalNote,
		"is_complete":      isComplete,
	}

	// Reviewed submissions keep their review verdict.
	if submission.Status != types.SubmissionApproved && submission.Status != types.SubmissionRejected {
		if isComplete {
			updates["status"] = types.SubmissionSubmitted
			updates["locked"] = true
			if submission.SubmittedAt == nil {
				updates["submitted_at"] = now
			}
			updates["completed_at"] = now
		} else {
			updates["status"] = types.SubmissionDraft
		}
	}

	if err := db.DB.Model(&submission).Updates(updates).Error; err != nil {
		log.Printf("Failed to save submission: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "자료 저장 중 오류가 발생했습니다"})
		return
	}

	if isComplete && !wasComplete {
		onSubmissionCompleted(currentUser, &submission, req)
	}

	if err := db.DB.Where("user_id = ?", currentUser.ID).First(&submission).Error; err != nil {
		log.Printf("Failed to reload submission: %v", err)
	}

	message := "임시 저장되었습니다"
	if isComplete {
		message = "자료가 제출되었습니다"
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "submission": submission, "message": message})
}

// onSubmissionCompleted runs the first-completion side effects: the
// customer channel (created idempotently, persisted once), the field
// summary post, already-uploaded ordinary files, and the staff alert.
// All best effort.
func onSubmissionCompleted(currentUser middleware.AuthenticatedUser, submission *models.Submission, req SaveSubmissionRequest) {
	var user models.User
	if err := db.DB.First(&user, currentUser.ID).Error; err != nil {
		log.Printf("Failed to load user %d for completion side effects: %v", currentUser.ID, err)
		return
	}

	channelID, err := ensureSlackChannel(&user, submission)
	if err != nil {
		log.Printf("[Slack] channel setup failed for user %d: %v", user.ID, err)
	}

	if channelID != "" {
		summary := fmt.Sprintf(
			"📝 제출 자료 요약\n• 브랜드명: %s\n• 대표 이메일: %s\n• 대표 번호: %s\n• 계좌 정보: %s\n• 배송 주소: %s\n• 홈페이지 스타일/컬러: %s / %s",
			req.BrandName, req.ContactEmail, req.ContactPhone, req.BankAccount,
			req.DeliveryAddress, req.WebsiteStyle, req.WebsiteColor)

		if err := services.Channels.PostMessage(channelID, summary); err != nil {
			log.Printf("[Slack] summary post failed: %v", err)
		}

		if req.ProfilePhoto != "" {
			if err := services.Channels.UploadFileFromURL(channelID, req.ProfilePhoto, "profile-photo", "프로필 사진"); err != nil {
				log.Printf("[Slack] profile photo share failed: %v", err)
			}
		}
	}

	services.SendAdminAlert("📥 새 자료 제출",
		fmt.Sprintf("%s님(%s)이 자료를 제출했습니다.\n관리자 페이지에서 확인해주세요.", user.Name, user.ClientName))

	if user.SMSConsent {
		sms := services.NewSMSClient()
		if sms.IsConfigured() {
			content := fmt.Sprintf("[폴라애드] %s님, 자료 제출이 완료되었습니다. 담당자 확인 후 작업이 시작됩니다.", user.Name)
			if err := sms.Send(user.Phone, content, "LMS"); err != nil {
				log.Printf("[SMS] submission confirmation failed for user %d: %v", user.ID, err)
			}
		}
	}
}

// ensureSlackChannel returns the customer's channel id, creating and
// persisting it exactly once. Deterministic channel naming makes retries
// reuse the same channel.
func ensureSlackChannel(user *models.User, submission *models.Submission) (string, error) {
	if submission.SlackChannelID != "" {
		return submission.SlackChannelID, nil
	}

	channelID, err := services.Channels.CreateSubmissionChannel(user.ClientName, user.Name, user.Email, user.Phone)
	if err != nil {
		return "", err
	}

	if err := db.DB.Model(&models.Submission{}).Where("id = ? AND (slack_channel_id IS NULL OR slack_channel_id = '')", submission.ID).
		Update("slack_channel_id", channelID).Error; err != nil {
		return "", err
	}

	submission.SlackChannelID = channelID
	return channelID, nil
}

// EnableEditMode unlocks a submitted bundle for further edits.
func EnableEditMode(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var submission models.Submission

	if err := db.DB.Where("user_id = ?", userID).First(&submission).Error; err != nil {
		log.Printf("Failed to fetch submission: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "처리 중 오류가 발생했습니다"})
		return
	}

	if !submission.Locked {
		ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "이미 수정 모드입니다"})
		return
	}

	if err := db.DB.Model(&submission).Update("locked", false).Error; err != nil {
		log.Printf("Failed to unlock submission: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "처리 중 오류가 발생했습니다"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "수정 모드가 활성화되었습니다"})
}

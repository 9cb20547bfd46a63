package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/auth"
	"github.com/polarad/portal/internal/models"
	"github.com/polarad/portal/internal/services"
	"github.com/polarad/portal/internal/types"
	"github.com/polarad/portal/internal/utils"
)

// UploadFile receives a multipart file. Sensitive documents (business
// license, ID card, bank book) are relayed to the customer's Slack
// channel and never written to storage; the caller gets back a signed
// receipt instead of a URL. Everything else goes to object storage.
func UploadFile(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "파일을 선택해주세요"})
		return
	}

	fileType := ctx.PostForm("fileType")
	if fileType == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "파일 유형을 지정해주세요"})
		return
	}

	if fileHeader.Size > services.MaxFileSize {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "파일 크기는 10MB를 초과할 수 없습니다"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if _, ok := services.AllowedContentTypes[contentType]; !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "지원하지 않는 파일 형식입니다 (JPG, PNG, WEBP, PDF만 가능)"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("Failed to open uploaded file: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "파일 업로드 중 오류가 발생했습니다"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, services.MaxFileSize+1))
	if err != nil {
		log.Printf("Failed to read uploaded file: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "파일 업로드 중 오류가 발생했습니다"})
		return
	}

	if len(content) > services.MaxFileSize {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "파일 크기는 10MB를 초과할 수 없습니다"})
		return
	}

	if types.SensitiveFileTypes[fileType] {
		uploadSensitiveFile(ctx, currentUser.ID, fileType, fileHeader.Filename, content)
		return
	}

	publicURL, key, err := services.Store.Upload(ctx.Request.Context(), currentUser.ID, fileHeader.Filename, contentType, content)
	if err != nil {
		log.Printf("Failed to store file for user %d: %v", currentUser.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "파일 업로드 중 오류가 발생했습니다"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "url": publicURL, "key": key})
}

// uploadSensitiveFile relays the document to Slack only. The channel is
// created on first use so sensitive uploads work before the bundle is
// submitted.
func uploadSensitiveFile(ctx *gin.Context, userID uint, fileType, fileName string, content []byte) {
	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		log.Printf("Failed to load user %d: %v", userID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "파일 업로드 중 오류가 발생했습니다"})
		return
	}

	var submission models.Submission
	if err := db.DB.Where("user_id = ?", userID).First(&submission).Error; err != nil {
		log.Printf("Failed to load submission for user %d: %v", userID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "파일 업로드 중 오류가 발생했습니다"})
		return
	}

	channelID, err := ensureSlackChannel(&user, &submission)
	if err != nil {
		log.Printf("[Slack] channel setup failed for user %d: %v", userID, err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "보안 문서 전송에 실패했습니다. 잠시 후 다시 시도해주세요"})
		return
	}

	title := types.SensitiveFileLabels[fileType]
	if title == "" {
		title = fileType
	}

	if err := services.Channels.UploadFile(channelID, content, fileName, title, user.Name); err != nil {
		log.Printf("[Slack] sensitive upload failed for user %d: %v", userID, err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "보안 문서 전송에 실패했습니다. 잠시 후 다시 시도해주세요"})
		return
	}

	receipt, err := auth.GenerateUploadReceipt(userID, fileType)
	if err != nil {
		log.Printf("Failed to issue upload receipt for user %d: %v", userID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "파일 업로드 중 오류가 발생했습니다"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"receipt": receipt,
		"message": "보안 문서가 안전하게 전달되었습니다. 서버에는 저장되지 않습니다",
	})
}

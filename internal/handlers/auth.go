package handlers

import (
	"errors"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/auth"
	"github.com/polarad/portal/internal/middleware"
	"github.com/polarad/portal/internal/models"
	"github.com/polarad/portal/internal/types"
	"github.com/polarad/portal/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type SignupRequest struct {
	ClientName   string `json:"clientName" binding:"required"`
	Email        string `json:"email" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	Password     string `json:"password" binding:"required"`
	SMSConsent   bool   `json:"smsConsent"`
	EmailConsent bool   `json:"emailConsent"`
}

type LoginRequest struct {
	ClientName string `json:"clientName" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	pinRe   = regexp.MustCompile(`^\d{4}$`)
)

func setAuthCookie(ctx *gin.Context, token string, maxAge int) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		Domain:   os.Getenv("DOMAIN"),
		MaxAge:   maxAge,
		Secure:   os.Getenv("COOKIE_SECURE") == "true",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Signup creates the user together with an empty submission and the
// default workflow set, all in one transaction.
func Signup(ctx *gin.Context) {
	var req SignupRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "필수 정보를 모두 입력해주세요"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = utils.NormalizePhone(req.Phone)

	if !emailRe.MatchString(req.Email) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "올바른 이메일 형식을 입력해주세요"})
		return
	}

	if !pinRe.MatchString(req.Password) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "비밀번호는 4자리 숫자로 입력해주세요"})
		return
	}

	var existing models.User

	err := db.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "이미 등록된 이메일입니다"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when checking existing email: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "회원가입 처리 중 오류가 발생했습니다"})
		return
	}

	err = db.DB.Where("client_name = ? AND phone = ?", req.ClientName, req.Phone).First(&existing).Error
	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "이미 가입된 클라이언트입니다"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when checking existing client: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "회원가입 처리 중 오류가 발생했습니다"})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "회원가입 처리 중 오류가 발생했습니다"})
		return
	}

	newUser := models.User{
		ClientName:   req.ClientName,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Password:     string(passwordHash),
		SMSConsent:   req.SMSConsent,
		EmailConsent: req.EmailConsent,
		IsActive:     true,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newUser).Error; err != nil {
			return err
		}

		if err := tx.Create(&models.Submission{UserID: newUser.ID, Status: types.SubmissionDraft}).Error; err != nil {
			return err
		}

		workflows := make([]models.Workflow, 0, len(types.DefaultWorkflowTypes))
		for _, workflowType := range types.DefaultWorkflowTypes {
			workflows = append(workflows, models.Workflow{
				UserID: newUser.ID,
				Type:   workflowType,
				Status: types.WorkflowPending,
			})
		}

		return tx.Create(&workflows).Error
	})

	if err != nil {
		log.Printf("Failed to create user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "회원가입 처리 중 오류가 발생했습니다"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"user": types.UserResponse{
			ID:         newUser.ID,
			ClientName: newUser.ClientName,
			Name:       newUser.Name,
			Email:      newUser.Email,
		},
	})
}

// Login authenticates by clientName + phone + 4-digit PIN.
func Login(ctx *gin.Context) {
	var req LoginRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "모든 정보를 입력해주세요"})
		return
	}

	if !pinRe.MatchString(req.Password) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "비밀번호는 4자리 숫자입니다"})
		return
	}

	var user models.User

	err := db.DB.Where("client_name = ? AND phone = ? AND is_active = ?",
		req.ClientName, utils.NormalizePhone(req.Phone), true).First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "등록된 정보를 찾을 수 없습니다"})
			return
		}
		log.Printf("Database error when fetching user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "로그인 처리 중 오류가 발생했습니다"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "비밀번호가 일치하지 않습니다"})
		return
	}

	now := time.Now()
	if err := db.DB.Model(&user).Update("last_login_at", now).Error; err != nil {
		log.Printf("Failed to update last login time: %v", err)
	}

	token, err := auth.GenerateJWT(user.ID, user.Email, user.Name, user.ClientName)
	if err != nil {
		log.Printf("Failed to generate JWT: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "로그인 처리 중 오류가 발생했습니다"})
		return
	}

	setAuthCookie(ctx, token, 60*60*24*7)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": types.UserResponse{
			ID:         user.ID,
			ClientName: user.ClientName,
			Name:       user.Name,
			Email:      user.Email,
		},
	})
}

func Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": types.UserResponse{
			ID:         currentUser.ID,
			ClientName: currentUser.ClientName,
			Name:       currentUser.Name,
			Email:      currentUser.Email,
		},
	})
}

// Profile returns the account details shown on the settings page,
// including notification preferences.
func Profile(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var user models.User

	if err := db.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "사용자를 찾을 수 없습니다"})
			return
		}
		log.Printf("Failed to fetch user profile: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "프로필 정보를 불러올 수 없습니다"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": gin.H{
			"id":              user.ID,
			"clientName":      user.ClientName,
			"name":            user.Name,
			"email":           user.Email,
			"phone":           user.Phone,
			"telegramChatId":  user.TelegramChatID,
			"telegramEnabled": user.TelegramEnabled,
			"smsConsent":      user.SMSConsent,
			"emailConsent":    user.EmailConsent,
			"createdAt":       user.CreatedAt,
		},
	})
}

func Logout(ctx *gin.Context) {
	setAuthCookie(ctx, "", -1)
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "로그아웃되었습니다"})
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/auth"
	"github.com/polarad/portal/internal/models"
	"github.com/polarad/portal/internal/types"
)

type AuthenticatedUser struct {
	ID         uint   `json:"id"`
	ClientName string `json:"clientName"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

const AuthCookieName = "auth-token"

// AuthMiddleware authenticates the session from the auth-token cookie
// (Authorization: Bearer is accepted as a fallback for API clients).
func AuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, err := ctx.Cookie(AuthCookieName)

		if err != nil || tokenString == "" {
			authHeader := ctx.GetHeader("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
			return
		}

		claims, err := auth.VerifyJWT(tokenString)

		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "유효하지 않은 인증 정보입니다"})
			return
		}

		var user models.User

		if err := db.DB.Where("id = ? AND is_active = ?", claims.UserID, true).First(&user).Error; err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "사용자를 찾을 수 없습니다"})
			return
		}

		ctx.Set(types.ContextUserKey, AuthenticatedUser{
			ID:         user.ID,
			ClientName: user.ClientName,
			Name:       user.Name,
			Email:      user.Email,
		})
		ctx.Next()
	}
}

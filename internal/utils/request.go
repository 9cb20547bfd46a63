package utils

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// ClientIP returns the first X-Forwarded-For entry, falling back to
// X-Real-IP, then the socket address.
func ClientIP(ctx *gin.Context) string {
	if forwarded := ctx.GetHeader("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	if realIP := ctx.GetHeader("X-Real-IP"); realIP != "" {
		return realIP
	}

	return ctx.ClientIP()
}

// NormalizePhone strips hyphens so numbers compare digits-only.
func NormalizePhone(phone string) string {
	return strings.ReplaceAll(phone, "-", "")
}

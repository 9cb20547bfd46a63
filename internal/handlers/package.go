package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/models"
)

// ListPackages returns the purchasable plans, cheapest first.
func ListPackages(ctx *gin.Context) {
	var packages []models.Package

	if err := db.DB.Where("is_active = ?", true).Order("price asc").Find(&packages).Error; err != nil {
		log.Printf("Failed to list packages: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "패키지 조회 중 오류가 발생했습니다"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "packages": packages})
}

package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/models"
	"github.com/polarad/portal/internal/utils"
)

type dailyInsight struct {
	Date        string  `json:"date"`
	Impressions int     `json:"impressions"`
	Reach       int     `json:"reach"`
	Clicks      int     `json:"clicks"`
	Leads       int     `json:"leads"`
	Spend       float64 `json:"spend"`
	VideoViews  int     `json:"videoViews"`
}

// GetAnalytics returns the user's collected ad metrics aggregated per
// day, defaulting to the last 30 days. Users without a linked ads client
// get an empty series, not an error.
func GetAnalytics(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		log.Printf("Failed to fetch user for analytics: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "광고 데이터 조회 중 오류가 발생했습니다"})
		return
	}

	if user.AdsClientID == nil {
		ctx.JSON(http.StatusOK, gin.H{"success": true, "linked": false, "daily": []dailyInsight{}})
		return
	}

	days := 30
	if raw := ctx.Query("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 1 && parsed <= 90 {
			days = parsed
		}
	}

	since := time.Now().AddDate(0, 0, -days)

	var insights []models.AdInsight

	err = db.DB.Where("client_id = ? AND date >= ?", *user.AdsClientID, since).
		Order("date asc").Find(&insights).Error
	if err != nil {
		log.Printf("Failed to fetch insights for client %d: %v", *user.AdsClientID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "광고 데이터 조회 중 오류가 발생했습니다"})
		return
	}

	byDay := make(map[string]*dailyInsight)
	order := make([]string, 0)

	for _, insight := range insights {
		day := insight.Date.Format("2006-01-02")

		entry, ok := byDay[day]
		if !ok {
			entry = &dailyInsight{Date: day}
			byDay[day] = entry
			order = append(order, day)
		}

		entry.Impressions += insight.Impressions
		entry.Reach += insight.Reach
		entry.Clicks += insight.Clicks
		entry.Leads += insight.Leads
		entry.Spend += insight.Spend
		entry.VideoViews += insight.VideoViews
	}

	daily := make([]dailyInsight, 0, len(order))
	totals := dailyInsight{}

	for _, day := range order {
		entry := byDay[day]
		daily = append(daily, *entry)

		totals.Impressions += entry.Impressions
		totals.Reach += entry.Reach
		totals.Clicks += entry.Clicks
		totals.Leads += entry.Leads
		totals.Spend += entry.Spend
		totals.VideoViews += entry.VideoViews
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"linked":  true,
		"days":    days,
		"daily":   daily,
		"totals": gin.H{
			"impressions": totals.Impressions,
			"reach":       totals.Reach,
			"clicks":      totals.Clicks,
			"leads":       totals.Leads,
			"spend":       totals.Spend,
			"videoViews":  totals.VideoViews,
		},
	})
}

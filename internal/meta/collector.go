package meta

import (
	"fmt"
	"log"
	"time"

	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/models"
	"gorm.io/gorm"
)

// collectWindowDays: each run re-pulls the last three days so late
// attribution updates from the Ads API overwrite earlier snapshots.
const collectWindowDays = 3

// CollectDailyInsights pulls recent metrics for every active ads client
// and replaces the stored rows for the window. One failing client does
// not stop the rest.
func CollectDailyInsights() error {
	var clients []models.Client

	err := db.DB.Where("is_active = ? AND meta_ad_account_id <> ''", true).Find(&clients).Error
	if err != nil {
		return fmt.Errorf("load ads clients: %w", err)
	}

	until := time.Now()
	since := until.AddDate(0, 0, -collectWindowDays)

	var failed int

	for _, client := range clients {
		if err := collectForClient(&client, since, until); err != nil {
			failed++
			log.Printf("[Meta] collection failed for %s: %v", client.ClientName, err)
		}
	}

	log.Printf("[Meta] collection finished: %d clients, %d failed", len(clients), failed)

	if failed == len(clients) && failed > 0 {
		return fmt.Errorf("collection failed for all %d clients", failed)
	}

	return nil
}

func collectForClient(client *models.Client, since, until time.Time) error {
	token, err := EnsureValidToken(client.ID)
	if err != nil {
		return fmt.Errorf("token for client %d: %w", client.ID, err)
	}

	insights, err := FetchInsights(client.MetaAdAccountID, token,
		since.Format("2006-01-02"), until.Format("2006-01-02"))
	if err != nil {
		return err
	}

	if len(insights) == 0 {
		return nil
	}

	rows := make([]models.AdInsight, 0, len(insights))
	for _, insight := range insights {
		rows = append(rows, models.AdInsight{
			ClientID:     client.ID,
			Date:         insight.Date,
			AdID:         insight.AdID,
			AdName:       insight.AdName,
			CampaignID:   insight.CampaignID,
			CampaignName: insight.CampaignName,
			Platform:     insight.Platform,
			Device:       insight.Device,
			Currency:     insight.Currency,
			Impressions:  insight.Impressions,
			Reach:        insight.Reach,
			Clicks:       insight.Clicks,
			Leads:        insight.Leads,
			Spend:        insight.Spend,
			VideoViews:   insight.VideoViews,
			AvgWatchTime: insight.AvgWatchTime,
		})
	}

	return db.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Unscoped().
			Where("client_id = ? AND date BETWEEN ? AND ?", client.ID, since, until).
			Delete(&models.AdInsight{}).Error
		if err != nil {
			return err
		}

		return tx.CreateInBatches(rows, 200).Error
	})
}

package meta

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// GraphAPIBase is overridable in tests.
var GraphAPIBase = "https://graph.facebook.com/v22.0"

// Insight is one normalized row of the Ads Insights API.
type Insight struct {
	Date         time.Time
	AdID         string
	AdName       string
	CampaignID   string
	CampaignName string
	Platform     string
	Device       string
	Currency     string
	Impressions  int
	Reach        int
	Clicks       int
	Leads        int
	Spend        float64
	VideoViews   int
	AvgWatchTime float64
}

type actionValue struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

type insightItem struct {
	DateStart          string        `json:"date_start"`
	AdID               string        `json:"ad_id"`
	AdName             string        `json:"ad_name"`
	CampaignID         string        `json:"campaign_id"`
	CampaignName       string        `json:"campaign_name"`
	PublisherPlatform  string        `json:"publisher_platform"`
	DevicePlatform     string        `json:"device_platform"`
	AccountCurrency    string        `json:"account_currency"`
	Impressions        string        `json:"impressions"`
	Reach              string        `json:"reach"`
	InlineLinkClicks   string        `json:"inline_link_clicks"`
	Spend              string        `json:"spend"`
	Actions            []actionValue `json:"actions"`
	VideoAvgTimeWached []actionValue `json:"video_avg_time_watched_actions"`
}

type insightsResponse struct {
	Data   []insightItem `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func actionInt(actions []actionValue, actionType string) int {
	for _, a := range actions {
		if a.ActionType == actionType {
			n, _ := strconv.Atoi(a.Value)
			return n
		}
	}
	return 0
}

func actionFloat(actions []actionValue, actionType string) float64 {
	for _, a := range actions {
		if a.ActionType == actionType {
			f, _ := strconv.ParseFloat(a.Value, 64)
			return f
		}
	}
	return 0
}

func atoiSafe(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// FetchInsights pulls daily ad-level metrics for the account over the
// given date range, following pagination until exhausted.
func FetchInsights(adAccountID, accessToken, since, until string) ([]Insight, error) {
	params := url.Values{}
	params.Set("access_token", accessToken)
	params.Set("level", "ad")
	params.Set("time_increment", "1")
	params.Set("time_range", fmt.Sprintf(`{"since":"%s","until":"%s"}`, since, until))
	params.Set("fields", "date_start,ad_id,ad_name,campaign_id,campaign_name,account_currency,impressions,reach,inline_link_clicks,spend,actions,video_avg_time_watched_actions")
	params.Set("breakdowns", "publisher_platform,device_platform")
	params.Set("limit", "500")

	next := fmt.Sprintf("%s/act_%s/insights?%s", GraphAPIBase, adAccountID, params.Encode())

	var insights []Insight

	for next != "" {
		resp, err := http.Get(next)
		if err != nil {
			return nil, fmt.Errorf("fetch insights: %w", err)
		}

		var body insightsResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()

		if decodeErr != nil {
			return nil, fmt.Errorf("decode insights response: %w", decodeErr)
		}

		if body.Error != nil {
			return nil, fmt.Errorf("Meta API error %d (%s): %s", body.Error.Code, body.Error.Type, body.Error.Message)
		}

		for _, item := range body.Data {
			date, err := time.Parse("2006-01-02", item.DateStart)
			if err != nil {
				continue
			}

			spend, _ := strconv.ParseFloat(item.Spend, 64)

			insights = append(insights, Insight{
				Date:         date,
				AdID:         item.AdID,
				AdName:       item.AdName,
				CampaignID:   item.CampaignID,
				CampaignName: item.CampaignName,
				Platform:     item.PublisherPlatform,
				Device:       item.DevicePlatform,
				Currency:     item.AccountCurrency,
				Impressions:  atoiSafe(item.Impressions),
				Reach:        atoiSafe(item.Reach),
				Clicks:       atoiSafe(item.InlineLinkClicks),
				Leads:        actionInt(item.Actions, "lead"),
				Spend:        spend,
				VideoViews:   actionInt(item.Actions, "video_view"),
				AvgWatchTime: actionFloat(item.VideoAvgTimeWached, "video_view"),
			})
		}

		next = body.Paging.Next
	}

	return insights, nil
}

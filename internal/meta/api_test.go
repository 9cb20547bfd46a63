package meta

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchInsightsFollowsPagination(t *testing.T) {
	var server *httptest.Server

	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "ad", r.URL.Query().Get("level"))

		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"data":[{
				"date_start":"2025-08-02","ad_id":"ad2","ad_name":"두번째",
				"impressions":"50","reach":"40","inline_link_clicks":"5","spend":"1000.5",
				"actions":[{"action_type":"lead","value":"2"}]
			}]}`)
			return
		}

		fmt.Fprintf(w, `{"data":[{
			"date_start":"2025-08-01","ad_id":"ad1","ad_name":"첫번째",
			"publisher_platform":"instagram","device_platform":"mobile","account_currency":"KRW",
			"impressions":"100","reach":"80","inline_link_clicks":"10","spend":"2500",
			"actions":[{"action_type":"video_view","value":"30"}],
			"video_avg_time_watched_actions":[{"action_type":"video_view","value":"7.5"}]
		}],"paging":{"next":"%s/act_123/insights?page=2"}}`, server.URL)
	}))
	defer server.Close()

	previous := GraphAPIBase
	GraphAPIBase = server.URL
	defer func() { GraphAPIBase = previous }()

	insights, err := FetchInsights("123", "token", "2025-08-01", "2025-08-02")
	require.NoError(t, err)
	require.Len(t, insights, 2)

	first := insights[0]
	assert.Equal(t, "ad1", first.AdID)
	assert.Equal(t, "instagram", first.Platform)
	assert.Equal(t, 100, first.Impressions)
	assert.Equal(t, 30, first.VideoViews)
	assert.InDelta(t, 7.5, first.AvgWatchTime, 0.001)
	assert.Equal(t, "2025-08-01", first.Date.Format("2006-01-02"))

	second := insights[1]
	assert.Equal(t, 2, second.Leads)
	assert.InDelta(t, 1000.5, second.Spend, 0.001)
}

func TestFetchInsightsSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`)
	}))
	defer server.Close()

	previous := GraphAPIBase
	GraphAPIBase = server.URL
	defer func() { GraphAPIBase = previous }()

	_, err := FetchInsights("123", "bad-token", "2025-08-01", "2025-08-02")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OAuthException")
}

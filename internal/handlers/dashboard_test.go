package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/models"
	"github.com/polarad/portal/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardAggregatesWorkflowCounts(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "client")

	namecard := workflowOfType(t, user.ID, types.WorkflowNamecard)
	setWorkflowStatus(t, namecard.ID, types.WorkflowCompleted)
	website := workflowOfType(t, user.ID, types.WorkflowWebsite)
	setWorkflowStatus(t, website.ID, types.WorkflowDesignUploaded)

	r := gin.New()
	r.GET("/api/dashboard", asUser(user), GetDashboard)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	body := decodeBody(t, recorder)

	dashboard := body["dashboard"].(map[string]interface{})
	workflows := dashboard["workflows"].(map[string]interface{})

	assert.EqualValues(t, len(types.DefaultWorkflowTypes), workflows["total"])
	assert.EqualValues(t, 1, workflows["completed"])
	assert.EqualValues(t, 1, workflows["awaitingReview"])
	assert.Nil(t, dashboard["contract"], "no contract yet")
}

func TestAnalyticsWithoutLinkedClientReturnsEmptySeries(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "client")

	r := gin.New()
	r.GET("/api/analytics", asUser(user), GetAnalytics)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/analytics", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, false, body["linked"])
	assert.Empty(t, body["daily"])
}

func TestAnalyticsAggregatesInsightsPerDay(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "client")

	client := models.Client{ClientName: user.ClientName, IsActive: true}
	require.NoError(t, db.DB.Create(&client).Error)
	require.NoError(t, db.DB.Model(&models.User{}).Where("id = ?", user.ID).
		Update("ads_client_id", client.ID).Error)

	day := time.Now().AddDate(0, 0, -1).Truncate(24 * time.Hour)

	// Two breakdown rows on the same day collapse into one series point.
	for _, insight := range []models.AdInsight{
		{ClientID: client.ID, Date: day, AdID: "ad1", Platform: "instagram", Impressions: 100, Clicks: 10, Spend: 1500, Leads: 1},
		{ClientID: client.ID, Date: day, AdID: "ad1", Platform: "facebook", Impressions: 50, Clicks: 5, Spend: 500, Leads: 2},
	} {
		require.NoError(t, db.DB.Create(&insight).Error)
	}

	r := gin.New()
	r.GET("/api/analytics", asUser(user), GetAnalytics)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/analytics?days=7", nil))

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	body := decodeBody(t, recorder)

	assert.Equal(t, true, body["linked"])

	daily := body["daily"].([]interface{})
	require.Len(t, daily, 1)

	point := daily[0].(map[string]interface{})
	assert.EqualValues(t, 150, point["impressions"])
	assert.EqualValues(t, 15, point["clicks"])
	assert.EqualValues(t, 2000, point["spend"])
	assert.EqualValues(t, 3, point["leads"])

	totals := body["totals"].(map[string]interface{})
	assert.EqualValues(t, 150, totals["impressions"])
}

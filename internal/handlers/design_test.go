package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/models"
	"github.com/polarad/portal/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func designRouter(user models.User) *gin.Engine {
	r := gin.New()
	authed := r.Group("/api", asUser(user))
	authed.GET("/designs", ListDesigns)
	authed.GET("/designs/:id", GetDesign)
	authed.POST("/designs/:id/actions", DesignAction)
	return r
}

func createDesignWithVersion(t *testing.T, userID uint, status string) models.Design {
	t.Helper()

	workflow := workflowOfType(t, userID, types.WorkflowNamecard)
	setWorkflowStatus(t, workflow.ID, types.WorkflowDesignUploaded)

	design := models.Design{
		WorkflowID:     workflow.ID,
		Status:         status,
		CurrentVersion: 1,
	}
	require.NoError(t, db.DB.Create(&design).Error)

	require.NoError(t, db.DB.Create(&models.DesignVersion{
		DesignID:   design.ID,
		Version:    1,
		FileURL:    "https://cdn.test/designs/v1.png",
		UploadedBy: "디자이너",
	}).Error)

	return design
}

func TestListDesignsHidesDrafts(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "client")
	createDesignWithVersion(t, user.ID, types.DesignDraft)
	r := designRouter(user)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/designs", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Empty(t, body["designs"], "DRAFT designs are staff-internal")
}

func TestGetDraftDesignForbidden(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "client")
	design := createDesignWithVersion(t, user.ID, types.DesignDraft)
	r := designRouter(user)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/designs/%d", design.ID), nil))

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestApproveDesignPinsVersionAndAdvancesWorkflow(t *testing.T) {
	setupTestDB(t)
	fake := useFakeChannels(t)
	user := createTestUser(t, "client")
	design := createDesignWithVersion(t, user.ID, types.DesignPendingReview)
	r := designRouter(user)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPost,
		fmt.Sprintf("/api/designs/%d/actions", design.ID), gin.H{"action": "approve"}))

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var reloaded models.Design
	require.NoError(t, db.DB.First(&reloaded, design.ID).Error)
	assert.Equal(t, types.DesignApproved, reloaded.Status)
	require.NotNil(t, reloaded.ApprovedVersion)
	assert.Equal(t, 1, *reloaded.ApprovedVersion)
	assert.NotNil(t, reloaded.ApprovedAt)

	var workflow models.Workflow
	require.NoError(t, db.DB.First(&workflow, design.WorkflowID).Error)
	assert.Equal(t, types.WorkflowOrderRequested, workflow.Status)

	var feedbackCount int64
	require.NoError(t, db.DB.Model(&models.DesignFeedback{}).Count(&feedbackCount).Error)
	assert.EqualValues(t, 1, feedbackCount, "approval records a feedback entry")

	// No channel is linked to this submission, so nothing is posted.
	assert.Empty(t, fake.messages)
}

func TestReapproveDesignRejected(t *testing.T) {
	setupTestDB(t)
	useFakeChannels(t)
	user := createTestUser(t, "client")
	design := createDesignWithVersion(t, user.ID, types.DesignApproved)
	r := designRouter(user)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPost,
		fmt.Sprintf("/api/designs/%d/actions", design.ID), gin.H{"action": "approve"}))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRequestRevisionRequiresContent(t *testing.T) {
	setupTestDB(t)
	useFakeChannels(t)
	user := createTestUser(t, "client")
	design := createDesignWithVersion(t, user.ID, types.DesignPendingReview)
	r := designRouter(user)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPost,
		fmt.Sprintf("/api/designs/%d/actions", design.ID), gin.H{"action": "request_revision"}))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRequestRevisionMovesStatusAndStoresFeedback(t *testing.T) {
	setupTestDB(t)
	useFakeChannels(t)
	user := createTestUser(t, "client")
	design := createDesignWithVersion(t, user.ID, types.DesignPendingReview)
	r := designRouter(user)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPost,
		fmt.Sprintf("/api/designs/%d/actions", design.ID),
		gin.H{"action": "request_revision", "content": "색상을 바꿔주세요"}))

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var reloaded models.Design
	require.NoError(t, db.DB.First(&reloaded, design.ID).Error)
	assert.Equal(t, types.DesignRevisionRequested, reloaded.Status)

	var feedback models.DesignFeedback
	require.NoError(t, db.DB.First(&feedback).Error)
	assert.Equal(t, "색상을 바꿔주세요", feedback.Content)
	assert.Equal(t, "user", feedback.AuthorType)
}

func TestDesignActionNotifiesLinkedChannel(t *testing.T) {
	setupTestDB(t)
	fake := useFakeChannels(t)
	user := createTestUser(t, "client")
	design := createDesignWithVersion(t, user.ID, types.DesignPendingReview)

	require.NoError(t, db.DB.Model(&models.Submission{}).Where("user_id = ?", user.ID).
		Update("slack_channel_id", "C999").Error)

	r := designRouter(user)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPost,
		fmt.Sprintf("/api/designs/%d/actions", design.ID),
		gin.H{"action": "feedback", "content": "확인했습니다"}))

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, fake.messages, 1)
	assert.Contains(t, fake.messages[0], "확인했습니다")
}

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/auth"
	"github.com/polarad/portal/internal/models"
	"github.com/polarad/portal/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submissionRouter(user models.User) *gin.Engine {
	r := gin.New()
	authed := r.Group("/api", asUser(user))
	authed.GET("/submissions", GetSubmission)
	authed.PUT("/submissions", SaveSubmission)
	authed.POST("/submissions/edit-mode", EnableEditMode)
	return r
}

func allReceipts(t *testing.T, userID uint) map[string]string {
	t.Helper()
	receipts := make(map[string]string)
	for docType := range types.SensitiveFileTypes {
		receipt, err := auth.GenerateUploadReceipt(userID, docType)
		require.NoError(t, err)
		receipts[docType] = receipt
	}
	return receipts
}

func completeSubmissionPayload(receipts map[string]string) gin.H {
	return gin.H{
		"profilePhoto": "https://cdn.test/uploads/1/photo.jpg",
		"brandName":    "폴라애드",
		"contactEmail": "shop@example.com",
		"contactPhone": "01012345678",
		"bankAccount":  "신한 110-123-456789",
		"receipts":     receipts,
	}
}

func TestPartialSaveStaysDraftAndUnlocked(t *testing.T) {
	setupTestDB(t)
	useFakeChannels(t)
	user := createTestUser(t, "client")
	r := submissionRouter(user)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPut, "/api/submissions", gin.H{
		"brandName": "폴라애드",
	}))

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var submission models.Submission
	require.NoError(t, db.DB.Where("user_id = ?", user.ID).First(&submission).Error)
	assert.Equal(t, types.SubmissionDraft, submission.Status)
	assert.False(t, submission.IsComplete)
	assert.False(t, submission.Locked)
	assert.Equal(t, "폴라애드", submission.BrandName)
}

func TestCompletionRequiresValidReceipts(t *testing.T) {
	setupTestDB(t)
	useFakeChannels(t)
	user := createTestUser(t, "client")
	other := createTestUser(t, "other")
	r := submissionRouter(user)

	// Receipts issued for a different user must not count.
	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPut, "/api/submissions",
		completeSubmissionPayload(allReceipts(t, other.ID))))

	require.Equal(t, http.StatusOK, recorder.Code)

	var submission models.Submission
	require.NoError(t, db.DB.Where("user_id = ?", user.ID).First(&submission).Error)
	assert.False(t, submission.IsComplete)
	assert.Equal(t, types.SubmissionDraft, submission.Status)
}

func TestCompleteSaveLocksAndCreatesChannelOnce(t *testing.T) {
	setupTestDB(t)
	fake := useFakeChannels(t)
	user := createTestUser(t, "client")
	r := submissionRouter(user)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPut, "/api/submissions",
		completeSubmissionPayload(allReceipts(t, user.ID))))

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var submission models.Submission
	require.NoError(t, db.DB.Where("user_id = ?", user.ID).First(&submission).Error)
	assert.True(t, submission.IsComplete)
	assert.True(t, submission.Locked)
	assert.Equal(t, types.SubmissionSubmitted, submission.Status)
	assert.Equal(t, "C123", submission.SlackChannelID)
	assert.NotNil(t, submission.SubmittedAt)
	assert.Equal(t, 1, fake.created)

	// Further writes are rejected while locked.
	recorder = httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPut, "/api/submissions",
		completeSubmissionPayload(allReceipts(t, user.ID))))
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// Unlock, resubmit: the stored channel id is reused, not recreated.
	recorder = httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPost, "/api/submissions/edit-mode", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPut, "/api/submissions",
		completeSubmissionPayload(allReceipts(t, user.ID))))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	require.NoError(t, db.DB.Where("user_id = ?", user.ID).First(&submission).Error)
	assert.Equal(t, "C123", submission.SlackChannelID)
	assert.Equal(t, 1, fake.created, "channel creation must be idempotent")
}

func TestChannelFailureDoesNotBlockSubmission(t *testing.T) {
	setupTestDB(t)
	fake := useFakeChannels(t)
	fake.fail = true
	user := createTestUser(t, "client")
	r := submissionRouter(user)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPut, "/api/submissions",
		completeSubmissionPayload(allReceipts(t, user.ID))))

	require.Equal(t, http.StatusOK, recorder.Code, "notification failures must not fail the save")

	var submission models.Submission
	require.NoError(t, db.DB.Where("user_id = ?", user.ID).First(&submission).Error)
	assert.True(t, submission.IsComplete)
	assert.Empty(t, submission.SlackChannelID)
}

func TestEditModeOnUnlockedSubmissionIsNoop(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "client")
	r := submissionRouter(user)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPost, "/api/submissions/edit-mode", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
}

package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/models"
	"github.com/polarad/portal/internal/services"
	"github.com/polarad/portal/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractRouter(user models.User) *gin.Engine {
	r := gin.New()
	authed := r.Group("/api", asUser(user))
	authed.GET("/contracts", ListContracts)
	authed.POST("/contracts", CreateContract)
	authed.GET("/contracts/:id", GetContract)
	authed.PATCH("/contracts/:id/sign", SignContract)
	authed.GET("/contracts/:id/pdf", DownloadContractPDF)
	return r
}

func createTestPackage(t *testing.T) models.Package {
	t.Helper()
	pkg := models.Package{
		Name:        "standard",
		DisplayName: "스탠다드",
		Price:       500000,
		Period:      12,
		IsActive:    true,
	}
	require.NoError(t, db.DB.Create(&pkg).Error)
	return pkg
}

func contractPayload(packageID uint) gin.H {
	return gin.H{
		"packageId":      packageID,
		"companyName":    "폴라애드 주식회사",
		"ceoName":        "김대표",
		"businessNumber": "123-45-67890",
		"address":        "서울시 강남구",
		"contactName":    "박담당",
		"contactPhone":   "010-1234-5678",
		"contactEmail":   "Contact@Example.com",
	}
}

func TestCreateContractAssignsDailySequenceNumber(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "client")
	pkg := createTestPackage(t)
	r := contractRouter(user)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPost, "/api/contracts", contractPayload(pkg.ID)))

	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var contract models.Contract
	require.NoError(t, db.DB.Where("user_id = ?", user.ID).First(&contract).Error)

	expected := time.Now().Format("20060102") + "-0001"
	assert.Equal(t, expected, contract.ContractNumber)
	assert.Equal(t, types.ContractPending, contract.Status)
	assert.Equal(t, pkg.Price, contract.MonthlyFee)
	assert.Equal(t, pkg.Price*pkg.Period, contract.TotalAmount)
	assert.Equal(t, "01012345678", contract.ContactPhone)
	assert.Equal(t, "contact@example.com", contract.ContactEmail)

	var logCount int64
	require.NoError(t, db.DB.Model(&models.ContractLog{}).Where("contract_id = ?", contract.ID).Count(&logCount).Error)
	assert.EqualValues(t, 1, logCount)
}

func TestCreateContractRejectedWhileOneInFlight(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "client")
	pkg := createTestPackage(t)
	r := contractRouter(user)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, jsonRequest(http.MethodPost, "/api/contracts", contractPayload(pkg.ID)))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, jsonRequest(http.MethodPost, "/api/contracts", contractPayload(pkg.ID)))
	assert.Equal(t, http.StatusBadRequest, second.Code)

	// A cancelled contract frees the slot.
	require.NoError(t, db.DB.Model(&models.Contract{}).Where("user_id = ?", user.ID).
		Update("status", types.ContractCancelled).Error)

	third := httptest.NewRecorder()
	r.ServeHTTP(third, jsonRequest(http.MethodPost, "/api/contracts", contractPayload(pkg.ID)))
	require.Equal(t, http.StatusCreated, third.Code, third.Body.String())

	var latest models.Contract
	require.NoError(t, db.DB.Where("user_id = ?", user.ID).Order("id desc").First(&latest).Error)
	assert.Equal(t, time.Now().Format("20060102")+"-0002", latest.ContractNumber)
}

func TestCreateContractAllowedWhileOneIsActive(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "client")
	pkg := createTestPackage(t)
	r := contractRouter(user)

	active := models.Contract{
		ContractNumber: "20250101-0001",
		UserID:         user.ID,
		PackageID:      pkg.ID,
		CompanyName:    "폴라애드 주식회사",
		CEOName:        "김대표",
		BusinessNumber: "123-45-67890",
		Address:        "서울시 강남구",
		ContactName:    "박담당",
		ContactPhone:   "01012345678",
		ContactEmail:   "contact@example.com",
		ContractPeriod: 12,
		MonthlyFee:     500000,
		TotalAmount:    6000000,
		Status:         types.ContractActive,
	}
	require.NoError(t, db.DB.Create(&active).Error)

	// A running contract does not block a renewal request.
	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPost, "/api/contracts", contractPayload(pkg.ID)))
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var count int64
	require.NoError(t, db.DB.Model(&models.Contract{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestConcurrentContractCreationsYieldOneSuccess(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "client")
	pkg := createTestPackage(t)
	r := contractRouter(user)

	const racers = 2

	codes := make([]int, racers)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recorder := httptest.NewRecorder()
			r.ServeHTTP(recorder, jsonRequest(http.MethodPost, "/api/contracts", contractPayload(pkg.ID)))
			codes[i] = recorder.Code
		}(i)
	}
	wg.Wait()

	created := 0
	rejected := 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusBadRequest:
			rejected++
		}
	}
	assert.Equal(t, 1, created, "exactly one creation wins")
	assert.Equal(t, racers-1, rejected)

	var count int64
	require.NoError(t, db.DB.Model(&models.Contract{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDatabaseRejectsSecondInFlightContract(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "client")
	pkg := createTestPackage(t)

	base := models.Contract{
		UserID:         user.ID,
		PackageID:      pkg.ID,
		CompanyName:    "폴라애드 주식회사",
		CEOName:        "김대표",
		BusinessNumber: "123-45-67890",
		Address:        "서울시 강남구",
		ContactName:    "박담당",
		ContactPhone:   "01012345678",
		ContactEmail:   "contact@example.com",
		ContractPeriod: 12,
		MonthlyFee:     500000,
		TotalAmount:    6000000,
	}

	first := base
	first.ContractNumber = "20250101-0001"
	first.Status = types.ContractPending
	require.NoError(t, db.DB.Create(&first).Error)

	// Even a raw insert cannot produce a second in-flight contract.
	second := base
	second.ContractNumber = "20250101-0002"
	second.Status = types.ContractSubmitted
	require.Error(t, db.DB.Create(&second).Error)

	// Terminal statuses sit outside the index.
	cancelled := base
	cancelled.ContractNumber = "20250101-0003"
	cancelled.Status = types.ContractCancelled
	require.NoError(t, db.DB.Create(&cancelled).Error)
}

func TestSignContractMovesPendingToSubmitted(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "client")
	pkg := createTestPackage(t)
	r := contractRouter(user)

	created := httptest.NewRecorder()
	r.ServeHTTP(created, jsonRequest(http.MethodPost, "/api/contracts", contractPayload(pkg.ID)))
	require.Equal(t, http.StatusCreated, created.Code)

	var contract models.Contract
	require.NoError(t, db.DB.Where("user_id = ?", user.ID).First(&contract).Error)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPatch,
		fmt.Sprintf("/api/contracts/%d/sign", contract.ID),
		gin.H{"signature": "data:image/png;base64,aGVsbG8="}))

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	require.NoError(t, db.DB.First(&contract, contract.ID).Error)
	assert.Equal(t, types.ContractSubmitted, contract.Status)
	assert.NotNil(t, contract.SignedAt)
	assert.NotEmpty(t, contract.ClientSignature)

	// Signing again is rejected.
	recorder = httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPatch,
		fmt.Sprintf("/api/contracts/%d/sign", contract.ID),
		gin.H{"signature": "data:image/png;base64,aGVsbG8="}))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSignContractNotifiesOptedInTelegramUser(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "client")
	pkg := createTestPackage(t)
	r := contractRouter(user)

	require.NoError(t, db.DB.Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{"telegram_enabled": true, "telegram_chat_id": "777"}).Error)

	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		raw, _ := io.ReadAll(req.Body)
		bodies = append(bodies, string(raw))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	previous := services.TelegramAPIBase
	services.TelegramAPIBase = server.URL
	defer func() { services.TelegramAPIBase = previous }()
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")

	created := httptest.NewRecorder()
	r.ServeHTTP(created, jsonRequest(http.MethodPost, "/api/contracts", contractPayload(pkg.ID)))
	require.Equal(t, http.StatusCreated, created.Code)

	var contract models.Contract
	require.NoError(t, db.DB.Where("user_id = ?", user.ID).First(&contract).Error)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, jsonRequest(http.MethodPatch,
		fmt.Sprintf("/api/contracts/%d/sign", contract.ID),
		gin.H{"signature": "data:image/png;base64,aGVsbG8="}))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	require.NotEmpty(t, bodies, "customer chat must receive the confirmation")
	assert.Contains(t, bodies[0], `"chat_id":"777"`)
	assert.Contains(t, bodies[0], contract.ContractNumber)
	assert.Contains(t, bodies[0], pkg.DisplayName)
}

func TestContractPDFOnlyForFinalizedContracts(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "client")
	pkg := createTestPackage(t)
	r := contractRouter(user)

	contract := models.Contract{
		ContractNumber: "20250101-0001",
		UserID:         user.ID,
		PackageID:      pkg.ID,
		CompanyName:    "폴라애드 주식회사",
		CEOName:        "김대표",
		BusinessNumber: "123-45-67890",
		Address:        "서울시 강남구",
		ContactName:    "박담당",
		ContactPhone:   "01012345678",
		ContactEmail:   "contact@example.com",
		ContractPeriod: 12,
		MonthlyFee:     500000,
		TotalAmount:    6000000,
		Status:         types.ContractPending,
	}
	require.NoError(t, db.DB.Create(&contract).Error)

	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/contracts/%d/pdf", contract.ID), nil))
	assert.Equal(t, http.StatusBadRequest, recorder.Code, "pending contracts are not downloadable")

	require.NoError(t, db.DB.Model(&contract).Update("status", types.ContractActive).Error)

	recorder = httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/contracts/%d/pdf", contract.ID), nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/pdf", recorder.Header().Get("Content-Type"))
	assert.True(t, bytesHasPDFHeader(recorder.Body.Bytes()))
}

func bytesHasPDFHeader(b []byte) bool {
	return len(b) > 4 && string(b[:5]) == "%PDF-"
}

func TestContractOwnershipEnforced(t *testing.T) {
	setupTestDB(t)
	owner := createTestUser(t, "owner")
	intruder := createTestUser(t, "intruder")
	pkg := createTestPackage(t)

	ownerRouter := contractRouter(owner)
	created := httptest.NewRecorder()
	ownerRouter.ServeHTTP(created, jsonRequest(http.MethodPost, "/api/contracts", contractPayload(pkg.ID)))
	require.Equal(t, http.StatusCreated, created.Code)

	var contract models.Contract
	require.NoError(t, db.DB.Where("user_id = ?", owner.ID).First(&contract).Error)

	r := contractRouter(intruder)
	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/contracts/%d", contract.ID), nil))

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

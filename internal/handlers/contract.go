package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/models"
	"github.com/polarad/portal/internal/services"
	"github.com/polarad/portal/internal/types"
	"github.com/polarad/portal/internal/utils"
	"gorm.io/gorm"
)

type CreateContractRequest struct {
	PackageID       uint   `json:"packageId" binding:"required"`
	CompanyName     string `json:"companyName" binding:"required"`
	CEOName         string `json:"ceoName" binding:"required"`
	BusinessNumber  string `json:"businessNumber" binding:"required"`
	Address         string `json:"address" binding:"required"`
	ContactName     string `json:"contactName" binding:"required"`
	ContactPhone    string `json:"contactPhone" binding:"required"`
	ContactEmail    string `json:"contactEmail" binding:"required"`
	ContractPeriod  int    `json:"contractPeriod"`
	AdditionalNotes string `json:"additionalNotes"`
}

type SignContractRequest struct {
	Signature string `json:"signature" binding:"required"`
}

func ListContracts(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var contracts []models.Contract

	if err := db.DB.Preload("Package").Where("user_id = ?", userID).Order("created_at desc").Find(&contracts).Error; err != nil {
		log.Printf("Failed to list contracts: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "계약 조회 중 오류가 발생했습니다"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "contracts": contracts})
}

func GetContract(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var contract models.Contract

	err = db.DB.Preload("Package").Preload("Logs", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at desc")
	}).Where("id = ?", ctx.Param("id")).First(&contract).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "계약을 찾을 수 없습니다"})
		} else {
			log.Printf("Failed to fetch contract: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "계약 조회 중 오류가 발생했습니다"})
		}
		return
	}

	if contract.UserID != userID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "접근 권한이 없습니다"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "contract": contract})
}

// inFlightContractStatuses block a new contract while one is awaiting
// review. Finalized contracts (APPROVED, ACTIVE) do not block, so a
// customer can request a renewal.
var inFlightContractStatuses = []string{
	types.ContractPending,
	types.ContractSubmitted,
}

// CreateContract opens a new agreement. Contract numbers are
// YYYYMMDD-NNNN, where NNNN restarts at 0001 each day; the in-flight
// check and the sequence run in one transaction, retried when two
// racing creations land on the same number.
func CreateContract(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var req CreateContractRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "필수 정보를 모두 입력해주세요"})
		return
	}

	var pkg models.Package

	if err := db.DB.Where("id = ? AND is_active = ?", req.PackageID, true).First(&pkg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "선택한 패키지를 찾을 수 없습니다"})
		} else {
			log.Printf("Failed to fetch package: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "계약 생성 중 오류가 발생했습니다"})
		}
		return
	}

	period := req.ContractPeriod
	if period <= 0 {
		period = pkg.Period
	}

	contract := models.Contract{
		UserID:          currentUser.ID,
		PackageID:       pkg.ID,
		CompanyName:     req.CompanyName,
		CEOName:         req.CEOName,
		BusinessNumber:  req.BusinessNumber,
		Address:         req.Address,
		ContactName:     req.ContactName,
		ContactPhone:    utils.NormalizePhone(req.ContactPhone),
		ContactEmail:    strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		ContractPeriod:  period,
		MonthlyFee:      pkg.Price,
		TotalAmount:     pkg.Price * period,
		AdditionalNotes: req.AdditionalNotes,
		Status:          types.ContractPending,
	}

	if err := createContractWithNumber(&contract, currentUser.ID); err != nil {
		if errors.Is(err, errContractInFlight) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "이미 진행 중인 계약이 있습니다"})
			return
		}
		log.Printf("Failed to create contract for user %d: %v", currentUser.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "계약 생성 중 오류가 발생했습니다"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"success": true, "contract": contract})
}

// createContractWithNumber enforces the single-in-flight rule and
// assigns the next daily sequence number, all inside one transaction.
// Two unique indexes arbitrate races: idx_contracts_one_in_flight
// (partial, user_id where status in PENDING/SUBMITTED) turns a
// concurrent duplicate creation into errContractInFlight, and the index
// on contract_number turns a sequence collision into a retry with a
// fresh number.
func createContractWithNumber(contract *models.Contract, changedBy uint) error {
	const maxAttempts = 3

	var err error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = db.DB.Transaction(func(tx *gorm.DB) error {
			var inFlight int64
			if err := tx.Model(&models.Contract{}).
				Where("user_id = ? AND status IN ?", contract.UserID, inFlightContractStatuses).
				Count(&inFlight).Error; err != nil {
				return err
			}

			if inFlight > 0 {
				return errContractInFlight
			}

			prefix := time.Now().Format("20060102")

			var count int64
			if err := tx.Model(&models.Contract{}).
				Where("contract_number LIKE ?", prefix+"-%").
				Count(&count).Error; err != nil {
				return err
			}

			contract.ContractNumber = fmt.Sprintf("%s-%04d", prefix, count+1)

			if err := tx.Create(contract).Error; err != nil {
				return err
			}

			return tx.Create(&models.ContractLog{
				ContractID: contract.ID,
				ToStatus:   types.ContractPending,
				ChangedBy:  changedBy,
				Note:       "계약 생성",
			}).Error
		})

		if err == nil {
			return nil
		}

		if errors.Is(err, errContractInFlight) {
			return err
		}

		if !isDuplicateKeyError(err) {
			return err
		}

		if isInFlightConflict(err) {
			return errContractInFlight
		}

		contract.ID = 0
	}

	return err
}

var errContractInFlight = fmt.Errorf("user already has a contract awaiting review")

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

// isInFlightConflict matches a duplicate on the partial in-flight index
// rather than on contract_number.
func isInFlightConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "idx_contracts_one_in_flight") || strings.Contains(msg, "contracts.user_id")
}

// SignContract records the customer signature and moves the contract
// from PENDING to SUBMITTED.
func SignContract(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var req SignContractRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "서명을 입력해주세요"})
		return
	}

	var contract models.Contract

	if err := db.DB.Preload("Package").Where("id = ?", ctx.Param("id")).First(&contract).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "계약을 찾을 수 없습니다"})
		} else {
			log.Printf("Failed to fetch contract: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "계약 서명 중 오류가 발생했습니다"})
		}
		return
	}

	if contract.UserID != currentUser.ID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "접근 권한이 없습니다"})
		return
	}

	if contract.Status != types.ContractPending {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "서명할 수 없는 계약 상태입니다"})
		return
	}

	now := time.Now()

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Contract{}).
			Where("id = ? AND status = ?", contract.ID, types.ContractPending).
			Updates(map[string]interface{}{
				"client_signature": req.Signature,
				"signed_at":        now,
				"signed_ip":        utils.ClientIP(ctx),
				"status":           types.ContractSubmitted,
			})

		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			return errStaleContractStatus
		}

		return tx.Create(&models.ContractLog{
			ContractID: contract.ID,
			FromStatus: types.ContractPending,
			ToStatus:   types.ContractSubmitted,
			ChangedBy:  currentUser.ID,
			Note:       "고객 서명 완료",
		}).Error
	})

	if err != nil {
		if errors.Is(err, errStaleContractStatus) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "서명할 수 없는 계약 상태입니다"})
			return
		}
		log.Printf("Failed to sign contract %d: %v", contract.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "계약 서명 중 오류가 발생했습니다"})
		return
	}

	services.SendAdminAlert("✍️ 계약 서명 완료",
		fmt.Sprintf("%s님(%s)이 계약 %s에 서명했습니다.", currentUser.Name, currentUser.ClientName, contract.ContractNumber))

	if err := services.Email.SendContractRequestNotification(contract.ContactEmail, contract.ContractNumber, contract.CompanyName); err != nil {
		log.Printf("Failed to send contract notification email: %v", err)
	}

	notifyContractSubmitted(currentUser.ID, &contract)

	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "계약 서명이 완료되었습니다"})
}

var errStaleContractStatus = fmt.Errorf("contract is no longer signable")

// notifyContractSubmitted confirms receipt to the customer's own
// Telegram chat when they opted in. Best effort.
func notifyContractSubmitted(userID uint, contract *models.Contract) {
	var owner models.User

	if err := db.DB.First(&owner, userID).Error; err != nil {
		log.Printf("Failed to load user %d for Telegram notice: %v", userID, err)
		return
	}

	if !owner.TelegramEnabled || owner.TelegramChatID == "" {
		return
	}

	text := services.FormatContractSubmittedMessage(
		contract.CompanyName, contract.ContractNumber, contract.Package.DisplayName)

	if err := services.SendTelegramMessage(owner.TelegramChatID, text); err != nil {
		log.Printf("Failed to send contract Telegram notice to user %d: %v", userID, err)
	}
}

// downloadableContractStatuses gate the PDF endpoint.
var downloadableContractStatuses = map[string]bool{
	types.ContractApproved: true,
	types.ContractActive:   true,
	types.ContractExpired:  true,
}

// DownloadContractPDF renders the signed agreement as a PDF. Only
// finalized contracts can be downloaded.
func DownloadContractPDF(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "인증이 필요합니다"})
		return
	}

	var contract models.Contract

	if err := db.DB.Preload("Package").Where("id = ?", ctx.Param("id")).First(&contract).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "계약을 찾을 수 없습니다"})
		} else {
			log.Printf("Failed to fetch contract: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "계약서 생성 중 오류가 발생했습니다"})
		}
		return
	}

	if contract.UserID != userID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "접근 권한이 없습니다"})
		return
	}

	if !downloadableContractStatuses[contract.Status] {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "승인된 계약만 다운로드할 수 있습니다"})
		return
	}

	pdfBytes, err := services.RenderContractPDF(&contract)
	if err != nil {
		log.Printf("Failed to render contract %s: %v", contract.ContractNumber, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "계약서 생성 중 오류가 발생했습니다"})
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="contract-%s.pdf"`, contract.ContractNumber))
	ctx.Data(http.StatusOK, "application/pdf", pdfBytes)
}

package meta

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/polarad/portal/db"
	"github.com/polarad/portal/internal/models"
	"github.com/polarad/portal/internal/services"
	"github.com/polarad/portal/internal/types"
)

// expiryBuffer: tokens are refreshed when they expire within the hour, so
// a collection run never starts with a token about to lapse.
const expiryBuffer = time.Hour

// EnsureValidToken must be called before any data-collection use of a
// client's access token. It returns a decrypted, non-expiring-soon token
// or refreshes first.
func EnsureValidToken(clientID uint) (string, error) {
	var client models.Client

	if err := db.DB.First(&client, clientID).Error; err != nil {
		return "", fmt.Errorf("client %d not found: %w", clientID, err)
	}

	now := time.Now()
	expired := client.TokenExpiresAt == nil || client.TokenExpiresAt.Before(now)
	expiringSoon := client.TokenExpiresAt == nil || client.TokenExpiresAt.Before(now.Add(expiryBuffer))

	if !expired && !expiringSoon && client.MetaAccessToken != "" {
		token, err := Decrypt(client.MetaAccessToken)
		if err == nil {
			return token, nil
		}
		log.Printf("[Meta] stored token for %s is unreadable, refreshing: %v", client.ClientName, err)
	}

	if expired {
		log.Printf("[Meta] token expired for %s, refreshing", client.ClientName)
	} else {
		log.Printf("[Meta] token expiring soon for %s, refreshing", client.ClientName)
	}

	token, _, err := RefreshToken(clientID)
	return token, err
}

type tokenExchangeResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Error       *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// RefreshToken performs the fb_exchange_token OAuth exchange, persists the
// new token encrypted and records a refresh-attempt log row. On failure
// the client's auth status moves to AUTH_REQUIRED (no usable refresh
// token) or TOKEN_EXPIRED (exchange rejected) and an admin alert fires.
func RefreshToken(clientID uint) (string, time.Time, error) {
	var client models.Client

	if err := db.DB.First(&client, clientID).Error; err != nil {
		return "", time.Time{}, fmt.Errorf("client %d not found: %w", clientID, err)
	}

	if client.MetaRefreshToken == "" {
		UpdateAuthStatus(clientID, types.AuthStatusAuthRequired)
		return "", time.Time{}, logRefreshFailure(clientID, fmt.Errorf("no refresh token found"))
	}

	refreshToken, err := Decrypt(client.MetaRefreshToken)
	if err != nil {
		UpdateAuthStatus(clientID, types.AuthStatusAuthRequired)
		return "", time.Time{}, logRefreshFailure(clientID, fmt.Errorf("failed to decrypt refresh token: %w", err))
	}

	appID := os.Getenv("META_APP_ID")
	appSecret := os.Getenv("META_APP_SECRET")

	if appID == "" || appSecret == "" {
		return "", time.Time{}, fmt.Errorf("META_APP_ID or META_APP_SECRET not configured")
	}

	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", appID)
	params.Set("client_secret", appSecret)
	params.Set("fb_exchange_token", refreshToken)

	resp, err := http.Get(GraphAPIBase + "/oauth/access_token?" + params.Encode())
	if err != nil {
		UpdateAuthStatus(clientID, types.AuthStatusTokenExpired)
		return "", time.Time{}, logRefreshFailure(clientID, fmt.Errorf("token exchange request failed: %w", err))
	}
	defer resp.Body.Close()

	var exchange tokenExchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&exchange); err != nil {
		UpdateAuthStatus(clientID, types.AuthStatusTokenExpired)
		return "", time.Time{}, logRefreshFailure(clientID, fmt.Errorf("decode token exchange response: %w", err))
	}

	if resp.StatusCode >= 400 || exchange.Error != nil {
		UpdateAuthStatus(clientID, types.AuthStatusTokenExpired)

		msg := resp.Status
		if exchange.Error != nil {
			msg = exchange.Error.Message
		}
		return "", time.Time{}, logRefreshFailure(clientID, fmt.Errorf("token exchange rejected: %s", msg))
	}

	if exchange.AccessToken == "" {
		return "", time.Time{}, logRefreshFailure(clientID, fmt.Errorf("no access_token in Meta API response"))
	}

	encrypted, err := Encrypt(exchange.AccessToken)
	if err != nil {
		return "", time.Time{}, logRefreshFailure(clientID, fmt.Errorf("encrypt access token: %w", err))
	}

	expiresAt := time.Now().Add(time.Duration(exchange.ExpiresIn) * time.Second)

	if err := db.DB.Model(&models.Client{}).Where("id = ?", clientID).Updates(map[string]interface{}{
		"meta_access_token": encrypted,
		"token_expires_at":  expiresAt,
		"auth_status":       types.AuthStatusActive,
	}).Error; err != nil {
		return "", time.Time{}, fmt.Errorf("persist refreshed token: %w", err)
	}

	refreshLog := models.TokenRefreshLog{
		ClientID:  clientID,
		Success:   true,
		ExpiresAt: &expiresAt,
	}

	if err := db.DB.Create(&refreshLog).Error; err != nil {
		log.Printf("[Meta] failed to store refresh log for client %d: %v", clientID, err)
	}

	log.Printf("[Meta] token refreshed for %s, expires in %ds", client.ClientName, exchange.ExpiresIn)

	return exchange.AccessToken, expiresAt, nil
}

func logRefreshFailure(clientID uint, cause error) error {
	refreshLog := models.TokenRefreshLog{
		ClientID:     clientID,
		Success:      false,
		ErrorMessage: cause.Error(),
	}

	if err := db.DB.Create(&refreshLog).Error; err != nil {
		log.Printf("[Meta] failed to store refresh log for client %d: %v", clientID, err)
	}

	return cause
}

// UpdateAuthStatus moves the client's auth status and alerts the staff
// chat when manual re-authorization is needed.
func UpdateAuthStatus(clientID uint, status string) {
	var client models.Client

	if err := db.DB.First(&client, clientID).Error; err != nil {
		log.Printf("[Meta] auth status update failed, client %d not found: %v", clientID, err)
		return
	}

	if err := db.DB.Model(&client).Update("auth_status", status).Error; err != nil {
		log.Printf("[Meta] auth status update failed for %s: %v", client.ClientName, err)
		return
	}

	if status == types.AuthStatusAuthRequired || status == types.AuthStatusTokenExpired {
		services.SendAdminAlert("🔐 Meta 인증 필요",
			fmt.Sprintf("클라이언트 <b>%s</b>의 인증 상태가 %s로 변경되었습니다.\nMeta 비즈니스 관리자에서 토큰을 갱신해 주세요.", client.ClientName, status))
	}
}

// MonitorExpiringTokens sends one admin digest listing active clients
// whose tokens expire within seven days. Called from the scheduler.
func MonitorExpiringTokens() error {
	now := time.Now()
	cutoff := now.AddDate(0, 0, 7)

	var expiring []models.Client

	err := db.DB.Where("is_active = ? AND token_expires_at IS NOT NULL AND token_expires_at BETWEEN ? AND ?",
		true, now, cutoff).Find(&expiring).Error
	if err != nil {
		return fmt.Errorf("query expiring tokens: %w", err)
	}

	if len(expiring) == 0 {
		return nil
	}

	message := fmt.Sprintf("⚠️ %d개의 토큰이 7일 이내에 만료됩니다:\n\n", len(expiring))

	for _, client := range expiring {
		daysLeft := int(client.TokenExpiresAt.Sub(now).Hours() / 24)
		message += fmt.Sprintf("• %s: %d일 남음 (만료: %s)\n",
			client.ClientName, daysLeft, client.TokenExpiresAt.Format("2006-01-02 15:04"))
	}

	message += "\n만료 1시간 전에 자동 갱신이 시도됩니다. 수동 조치가 필요할 수 있는 토큰 목록입니다."

	services.SendAdminAlert("🔐 토큰 만료 경고", message)
	return nil
}

package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
)

// TelegramAPIBase is overridable in tests.
var TelegramAPIBase = "https://api.telegram.org"

type telegramSendRequest struct {
	ChatID              string `json:"chat_id"`
	Text                string `json:"text"`
	ParseMode           string `json:"parse_mode"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendTelegramMessage posts an HTML-formatted message to a chat through
// the Bot API.
func SendTelegramMessage(chatID, text string) error {
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}

	payload := telegramSendRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", TelegramAPIBase, botToken)

	resp, err := http.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}
	defer resp.Body.Close()

	var result telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode Telegram response: %w", err)
	}

	if !result.OK {
		return fmt.Errorf("Telegram API error: %s", result.Description)
	}

	return nil
}

// FormatContractSubmittedMessage builds the confirmation sent to a
// customer's own chat after their contract request is received.
func FormatContractSubmittedMessage(companyName, contractNumber, packageName string) string {
	return fmt.Sprintf(`📝 <b>[Polarad] 계약 요청 접수 완료</b>

안녕하세요, %s님!

계약 요청이 정상적으로 접수되었습니다.

<b>계약번호:</b> %s
<b>요청 패키지:</b> %s

관리자 검토 후 승인 결과를 안내드리겠습니다.
감사합니다.`, companyName, contractNumber, packageName)
}

// SendAdminAlert notifies the staff chat. Missing credentials are treated
// as "alerts disabled", not an error.
func SendAdminAlert(title, message string) {
	adminChatID := os.Getenv("TELEGRAM_ADMIN_CHAT_ID")
	if adminChatID == "" || os.Getenv("TELEGRAM_BOT_TOKEN") == "" {
		log.Println("[Telegram] admin alert skipped: credentials not set")
		return
	}

	text := fmt.Sprintf("<b>%s</b>\n\n%s", title, message)

	if err := SendTelegramMessage(adminChatID, text); err != nil {
		log.Printf("[Telegram] admin alert failed: %v", err)
	}
}

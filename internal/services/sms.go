package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// SENSAPIBase is overridable in tests.
var SENSAPIBase = "https://sens.apigw.ntruss.com"

// SMSClient sends SMS/LMS through the Naver Cloud SENS API. Requests are
// authenticated with an HMAC-SHA256 signature over method, URI, timestamp
// and access key, per the SENS protocol.
type SMSClient struct {
	AccessKey   string
	SecretKey   string
	ServiceID   string
	SenderPhone string
}

func NewSMSClient() *SMSClient {
	return &SMSClient{
		AccessKey:   os.Getenv("NCP_ACCESS_KEY"),
		SecretKey:   os.Getenv("NCP_SECRET_KEY"),
		ServiceID:   os.Getenv("NCP_SERVICE_ID"),
		SenderPhone: os.Getenv("NCP_SENDER_PHONE"),
	}
}

func (c *SMSClient) IsConfigured() bool {
	return c.AccessKey != "" && c.SecretKey != "" && c.ServiceID != "" && c.SenderPhone != ""
}

func (c *SMSClient) makeSignature(timestamp, method, uri string) string {
	message := method + " " + uri + "\n" + timestamp + "\n" + c.AccessKey

	mac := hmac.New(sha256.New, []byte(c.SecretKey))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type smsMessage struct {
	To string `json:"to"`
}

type smsSendRequest struct {
	Type     string       `json:"type"`
	From     string       `json:"from"`
	Content  string       `json:"content"`
	Messages []smsMessage `json:"messages"`
}

type smsSendResponse struct {
	RequestID  string `json:"requestId"`
	StatusCode string `json:"statusCode"`
	StatusName string `json:"statusName"`
}

// Send delivers one message. msgType is "SMS" (90 bytes) or "LMS".
func (c *SMSClient) Send(to, content, msgType string) error {
	if !c.IsConfigured() {
		return fmt.Errorf("NCP SENS credentials are not configured")
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	uri := fmt.Sprintf("/sms/v2/services/%s/messages", c.ServiceID)

	payload := smsSendRequest{
		Type:     msgType,
		From:     strings.ReplaceAll(c.SenderPhone, "-", ""),
		Content:  content,
		Messages: []smsMessage{{To: strings.ReplaceAll(to, "-", "")}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal SMS payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, SENSAPIBase+uri, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("x-ncp-apigw-timestamp", timestamp)
	req.Header.Set("x-ncp-iam-access-key", c.AccessKey)
	req.Header.Set("x-ncp-apigw-signature-v2", c.makeSignature(timestamp, http.MethodPost, uri))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		var result smsSendResponse
		_ = json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("SENS returned status %d (%s)", resp.StatusCode, result.StatusName)
	}

	return nil
}

package services

import "log"

// EmailSender delivers transactional mail. The production transport is not
// wired yet; the default implementation logs and succeeds so callers keep
// their fire-and-forget semantics.
// TODO: connect a real provider once the sending domain is verified.
type EmailSender interface {
	SendContractRequestNotification(to, contractNumber, companyName string) error
}

var Email EmailSender = logEmailSender{}

type logEmailSender struct{}

func (logEmailSender) SendContractRequestNotification(to, contractNumber, companyName string) error {
	log.Printf("[Email] 계약 접수 알림 발송: %s, 계약번호: %s, 회사명: %s", to, contractNumber, companyName)
	return nil
}

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sensitive documents are never stored server-side, so the completion
// endpoint cannot re-check object storage. Instead the upload endpoint
// issues a short-lived signed receipt per delivered document, and the
// submission save requires one valid receipt per document type.

const receiptTTL = time.Hour

// GenerateUploadReceipt signs a receipt proving that the named sensitive
// document was delivered to Slack for this user.
func GenerateUploadReceipt(userID uint, docType string) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  userID,
		"doc_type": docType,
		"purpose":  "upload-receipt",
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(receiptTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// VerifyUploadReceipt checks the receipt's signature, expiry, owner and
// document type.
func VerifyUploadReceipt(tokenString string, userID uint, docType string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})

	if err != nil || !token.Valid {
		return fmt.Errorf("invalid or expired receipt")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("invalid receipt claims")
	}

	if purpose, _ := claims["purpose"].(string); purpose != "upload-receipt" {
		return fmt.Errorf("not an upload receipt")
	}

	claimedID, ok := claims["user_id"].(float64)
	if !ok || uint(claimedID) != userID {
		return fmt.Errorf("receipt belongs to another user")
	}

	if claimedType, _ := claims["doc_type"].(string); claimedType != docType {
		return fmt.Errorf("receipt is for document type %q, want %q", claimedType, docType)
	}

	return nil
}

package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret string

func InitJWTSecret() error {
	jwtSecret = os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	return nil
}

// UserClaims is the session payload carried by the auth-token cookie.
// Authentication is a pure function of (token, secret); there is no
// server-side session state.
type UserClaims struct {
	UserID     uint
	Email      string
	Name       string
	ClientName string
}

func GenerateJWT(userID uint, email, name, clientName string) (string, error) {
	claims := jwt.MapClaims{
		"user_id":     userID,
		"email":       email,
		"name":        name,
		"client_name": clientName,
		"type":        "user",
		"iat":         time.Now().Unix(),
		"exp":         time.Now().Add(time.Hour * 168).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// VerifyJWT validates the signature and the "user" principal type and
// returns the session claims.
func VerifyJWT(tokenString string) (*UserClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if principal, _ := claims["type"].(string); principal != "user" {
		return nil, fmt.Errorf("invalid principal type")
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid user ID in token claims")
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	clientName, _ := claims["client_name"].(string)

	return &UserClaims{
		UserID:     uint(userIDFloat),
		Email:      email,
		Name:       name,
		ClientName: clientName,
	}, nil
}

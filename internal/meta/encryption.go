package meta

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Access tokens are stored AES-256-CBC encrypted as "ivhex:cipherhex",
// with a fresh random IV per encryption. The 32-byte key comes from
// TOKEN_ENCRYPTION_KEY (64 hex characters).

func encryptionKey() ([]byte, error) {
	key := os.Getenv("TOKEN_ENCRYPTION_KEY")

	if key == "" {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY environment variable is not set")
	}

	if len(key) != 64 {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY must be 64 hex characters (32 bytes)")
	}

	return hex.DecodeString(key)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}

	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, fmt.Errorf("invalid padding")
	}

	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("invalid padding")
		}
	}

	return data[:len(data)-padding], nil
}

// Encrypt returns "ivhex:cipherhex" for the given plaintext.
func Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("nothing to encrypt")
	}

	key, err := encryptionKey()
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. The input must be "ivhex:cipherhex".
func Decrypt(encrypted string) (string, error) {
	if encrypted == "" {
		return "", fmt.Errorf("nothing to decrypt")
	}

	parts := strings.Split(encrypted, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid encrypted text format")
	}

	key, err := encryptionKey()
	if err != nil {
		return "", err
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return "", fmt.Errorf("invalid IV")
	}

	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	if len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext is not block-aligned")
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}

	return string(unpadded), nil
}

// ValidateKey reports whether the configured encryption key is usable.
func ValidateKey() error {
	_, err := encryptionKey()
	return err
}

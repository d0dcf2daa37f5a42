package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Ошибки деривации ключей
var (
	ErrEmptyPassphrase = errors.New("passphrase is empty")
	ErrShortSalt       = errors.New("salt must be at least 16 bytes")
)

const (
	// SaltLength — длина соли для PBKDF2 (16 байт достаточно для уникальности)
	SaltLength = 16

	// KeyIterations — количество итераций PBKDF2
	// OWASP рекомендует минимум 600000 для PBKDF2-HMAC-SHA256
	KeyIterations = 600000

	// DerivedKeyLength — длина производного ключа (32 байта для AES-256)
	DerivedKeyLength = 32
)

// DeriveKey растягивает парольную фразу в 32-байтовый ключ AES-256
// через PBKDF2-HMAC-SHA256. Парольная фраза из конфигурации может быть
// короче 32 байт — деривация всегда дает ключ правильной длины.
func DeriveKey(passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	if len(salt) < SaltLength {
		return nil, ErrShortSalt
	}
	return pbkdf2.Key([]byte(passphrase), salt, KeyIterations, DerivedKeyLength, sha256.New), nil
}

// GenerateSalt генерирует криптографически стойкую случайную соль
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// SignHMAC вычисляет HMAC-SHA256 подпись сообщения и возвращает hex-строку.
// Используется для подписи REST-запросов к бирже (api-signature header).
func SignHMAC(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC проверяет подпись в константное время
func VerifyHMAC(secret, message, signature string) bool {
	expected := SignHMAC(secret, message)
	return hmac.Equal([]byte(expected), []byte(signature))
}

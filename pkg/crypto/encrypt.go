package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// Ошибки шифрования
var (
	ErrInvalidKeyLength   = errors.New("encryption key must be exactly 32 bytes for AES-256")
	ErrInvalidCiphertext  = errors.New("invalid ciphertext")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrDecryptionFailed   = errors.New("decryption failed: authentication error")
)

// Encrypt шифрует plaintext ключом AES-256-GCM и возвращает base64.
// Формат: base64(nonce || ciphertext || tag).
func Encrypt(plaintext string, key []byte) (string, error) {
	if len(key) != DerivedKeyLength {
		return "", ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt расшифровывает base64 ciphertext ключом AES-256-GCM
func Decrypt(ciphertextBase64 string, key []byte) (string, error) {
	if len(key) != DerivedKeyLength {
		return "", ErrInvalidKeyLength
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextBase64)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrCiphertextTooShort
	}

	nonce, ciphertextData := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertextData, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// ============================================================
// Секреты на парольной фразе
// ============================================================

// EncryptSecret шифрует секрет парольной фразой из конфигурации.
// Соль деривации хранится в начале результата:
// base64(salt || nonce || ciphertext || tag).
func EncryptSecret(plaintext, passphrase string) (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	key, err := DeriveKey(passphrase, salt)
	if err != nil {
		return "", err
	}

	sealed, err := Encrypt(plaintext, key)
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(append(salt, raw...)), nil
}

// DecryptSecret расшифровывает секрет, зашифрованный EncryptSecret
func DecryptSecret(sealedBase64, passphrase string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealedBase64)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(raw) < SaltLength {
		return "", ErrCiphertextTooShort
	}

	salt, sealed := raw[:SaltLength], raw[SaltLength:]
	key, err := DeriveKey(passphrase, salt)
	if err != nil {
		return "", err
	}
	return Decrypt(base64.StdEncoding.EncodeToString(sealed), key)
}

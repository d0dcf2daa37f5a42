package utils

import (
	"errors"
	"fmt"
	"strings"
)

// validator.go - валидация входных данных
//
// Назначение:
// Проверка корректности данных, приходящих из API и конфигурации.
//
// Функции:
// - ValidateSymbol: проверка формата символа (ETHUSDT)
// - NormalizeSymbol: нормализация символа к каноническому виду
// - ValidateAPIKey / ValidateAPISecret: базовая проверка учётных данных
// - ValidationErrors: накопление ошибок по нескольким полям
//
// Возвращают error с описанием проблемы или nil

// Ошибки валидации
var (
	ErrInvalidSymbol    = errors.New("invalid symbol format")
	ErrInvalidAPIKey    = errors.New("invalid API key format")
	ErrInvalidAPISecret = errors.New("invalid API secret")
)

const (
	minSymbolLength = 2
	maxSymbolLength = 30
	minAPIKeyLength = 16
)

// ValidateSymbol проверяет формат торгового символа.
//
// Допустимы буквы, цифры и разделители - _ /
// Длина от 2 до 30 символов.
func ValidateSymbol(symbol string) error {
	if len(symbol) < minSymbolLength || len(symbol) > maxSymbolLength {
		return fmt.Errorf("%w: length must be %d-%d characters, got %d",
			ErrInvalidSymbol, minSymbolLength, maxSymbolLength, len(symbol))
	}

	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '/':
		default:
			return fmt.Errorf("%w: unexpected character %q", ErrInvalidSymbol, r)
		}
	}

	return nil
}

// NormalizeSymbol приводит символ к каноническому виду: верхний регистр
// без разделителей (btc-usdt -> BTCUSDT).
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "/", "")
	return s
}

// IsValidSymbol возвращает true если символ проходит валидацию
func IsValidSymbol(symbol string) bool {
	return ValidateSymbol(symbol) == nil
}

// ValidateAPIKey проверяет формат API ключа биржи.
//
// Минимум 16 символов, допустимы буквы, цифры, дефисы и подчёркивания.
func ValidateAPIKey(apiKey string) error {
	if len(apiKey) < minAPIKeyLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrInvalidAPIKey, minAPIKeyLength)
	}

	for _, r := range apiKey {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return fmt.Errorf("%w: unexpected character %q", ErrInvalidAPIKey, r)
		}
	}

	return nil
}

// IsValidAPIKey возвращает true если ключ проходит валидацию
func IsValidAPIKey(apiKey string) bool {
	return ValidateAPIKey(apiKey) == nil
}

// ValidateAPISecret проверяет секрет биржи.
//
// Секреты могут содержать произвольные символы, проверяется только длина.
func ValidateAPISecret(secret string) error {
	if len(secret) < minAPIKeyLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrInvalidAPISecret, minAPIKeyLength)
	}
	return nil
}

// ============================================================
// Накопление ошибок валидации
// ============================================================

// ValidationError описывает ошибку валидации одного поля
type ValidationError struct {
	Field   string
	Message string
}

// Error реализует интерфейс error
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors накапливает ошибки по нескольким полям
type ValidationErrors []ValidationError

// Add добавляет ошибку с текстовым описанием
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// AddError добавляет ошибку если err != nil
func (v *ValidationErrors) AddError(field string, err error) {
	if err == nil {
		return
	}
	v.Add(field, err.Error())
}

// HasErrors возвращает true если накоплена хотя бы одна ошибка
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

// Error реализует интерфейс error: объединяет все ошибки в одну строку
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}

	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

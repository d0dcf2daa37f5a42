package venue

import (
	"errors"
	"fmt"

	"tradecore/internal/models"
)

// Ошибки адаптера площадки
var (
	ErrInstrumentNotFound = errors.New("instrument not registered")
	ErrMissingCredentials = errors.New("api key and secret are required")
	ErrNoOrderID          = errors.New("either client order id or venue order id is required")
)

// APIError - ошибка, возвращённая REST API площадки.
//
// Message сохраняется дословно: broadcaster классифицирует отказы
// по подстрокам сообщения ("уже отменён" считается успехом).
type APIError struct {
	Venue    models.Venue
	Status   int
	Name     string
	Message  string
	Original error
}

func (e *APIError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Venue, e.Name, e.Message, e.Original)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Venue, e.Name, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Original
}

// IsAuthError сообщает, является ли ошибка отказом аутентификации
func (e *APIError) IsAuthError() bool {
	return e.Status == 401 || e.Status == 403
}

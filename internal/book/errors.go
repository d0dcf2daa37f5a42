package book

import (
	"fmt"

	"tradecore/internal/models"
)

// errors.go - классифицированные ошибки книги ордеров
//
// Все нарушения целостности возвращаются значениями:
// книга никогда не паникует на некорректном входе адаптера.

// InvalidBookOperationError - операция не поддерживается данным типом книги
type InvalidBookOperationError struct {
	Operation string
	BookType  models.BookType
}

func (e *InvalidBookOperationError) Error() string {
	return fmt.Sprintf("invalid book operation %s for book type %s", e.Operation, e.BookType)
}

// OrdersCrossedError - лучший bid не ниже лучшего ask
type OrdersCrossedError struct {
	BestBid models.Price
	BestAsk models.Price
}

func (e *OrdersCrossedError) Error() string {
	return fmt.Sprintf("orders crossed: best bid %s >= best ask %s", e.BestBid, e.BestAsk)
}

// TooManyLevelsError - в L1 книге больше одного уровня на сторону
type TooManyLevelsError struct {
	Side   models.OrderSide
	Levels int
}

func (e *TooManyLevelsError) Error() string {
	return fmt.Sprintf("too many levels for L1 book: side %s has %d levels", e.Side, e.Levels)
}

// OrderNotFoundError - ордер отсутствует в уровне или лестнице
type OrderNotFoundError struct {
	OrderID uint64
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order %d not found in book", e.OrderID)
}

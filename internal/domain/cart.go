package domain

import (
	"strings"
	"time"
)

// CartLine — позиция корзины: снимок товара на момент выбора.
// Название дублируется намеренно, чтобы история заказов не зависела
// от последующих изменений каталога.
type CartLine struct {
	ProductCode string
	ProductName string
	Quantity    float64
	AddedAt     time.Time
}

// ValidateInvariants проверяет инварианты позиции корзины.
func (l *CartLine) ValidateInvariants() []error {
	var errs []error

	if strings.TrimSpace(l.ProductCode) == "" {
		errs = append(errs, ErrLineCodeRequired)
	}
	if l.Quantity <= 0 {
		errs = append(errs, ErrLineQtyInvalid)
	}

	return errs
}

// CloneLines возвращает независимую копию списка позиций.
func CloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return nil
	}
	result := make([]CartLine, len(lines))
	copy(result, lines)
	return result
}

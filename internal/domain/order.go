package domain

import "time"

// Order — финализированный заказ. После записи в журнал не изменяется.
type Order struct {
	// ID — внутренний идентификатор записи.
	ID string
	// Code — человекочитаемый номер заказа вида PED-..., показывается пользователю.
	Code string
	// Lines — снимок корзины в порядке выбора позиций.
	Lines []CartLine
	// CreatedAt фиксирует момент финализации.
	CreatedAt time.Time
}

// ValidateInvariants проверяет инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.ID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrEmptyOrder)
	}
	for i := range o.Lines {
		errs = append(errs, o.Lines[i].ValidateInvariants()...)
	}

	return errs
}

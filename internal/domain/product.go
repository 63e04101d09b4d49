package domain

import (
	"math"
	"strings"
	"time"
)

// Unit задаёт единицу измерения складской позиции.
type Unit string

const (
	// UnitKilogram — весовой товар, килограммы.
	UnitKilogram Unit = "kg"
	// UnitGram — весовой товар, граммы.
	UnitGram Unit = "g"
	// UnitPiece — штучный товар.
	UnitPiece Unit = "un"
	// UnitSachet — саше/пакетик.
	UnitSachet Unit = "sache"
)

// Valid проверяет, что единица измерения относится к поддерживаемым значениям.
func (u Unit) Valid() bool {
	switch u {
	case UnitKilogram, UnitGram, UnitPiece, UnitSachet:
		return true
	default:
		return false
	}
}

// expiresSoonWindow — запас срока годности, ниже которого позиция подсвечивается на витрине.
const expiresSoonWindow = 7 * 24 * time.Hour

// Product описывает складскую позицию каталога.
type Product struct {
	// Code — уникальный код товара, неизменяемый после регистрации.
	Code string
	// Name — человекочитаемое название.
	Name string
	// Quantity — текущий остаток. Весовые единицы допускают дробные значения.
	Quantity float64
	// Unit — единица измерения остатка.
	Unit Unit
	// ExpiresAt — срок годности.
	ExpiresAt time.Time
	// Location — место хранения (опционально).
	Location string
	// Lot — номер партии (опционально).
	Lot       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты позиции и возвращает список замечаний.
func (p *Product) ValidateInvariants() []error {
	var errs []error

	if strings.TrimSpace(p.Code) == "" {
		errs = append(errs, ErrProductCodeRequired)
	}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.Quantity < 0 {
		errs = append(errs, ErrQuantityNegative)
	}
	if !p.Unit.Valid() {
		errs = append(errs, ErrUnitInvalid)
	}
	if p.ExpiresAt.IsZero() {
		errs = append(errs, ErrExpirationRequired)
	}

	return errs
}

// DaysUntilExpiry возвращает число дней до конца срока годности (может быть отрицательным).
func (p Product) DaysUntilExpiry(now time.Time) int {
	return int(math.Ceil(p.ExpiresAt.Sub(now).Hours() / 24))
}

// ExpiresSoon сообщает, истекает ли срок годности в ближайшую неделю.
func (p Product) ExpiresSoon(now time.Time) bool {
	return !p.ExpiresAt.After(now.Add(expiresSoonWindow))
}

// Matches проверяет позицию на соответствие поисковому запросу:
// подстрока названия без учёта регистра либо подстрока кода.
func (p Product) Matches(query string) bool {
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
		return true
	}
	return strings.Contains(p.Code, query)
}

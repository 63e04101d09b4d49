package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/lucashmcosta/estoque/internal/domain"
)

func validProduct() domain.Product {
	now := time.Now().UTC()
	return domain.Product{
		Code:      "001",
		Name:      "Produto A",
		Quantity:  10,
		Unit:      domain.UnitPiece,
		ExpiresAt: now.AddDate(0, 6, 0),
		Location:  "A-01",
		Lot:       "L-2024-01",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestProductValidateInvariants_Valid(t *testing.T) {
	p := validProduct()
	if errs := p.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestProductValidateInvariants_Violations(t *testing.T) {
	p := validProduct()
	p.Code = " "
	p.Quantity = -1
	p.Unit = "litros"

	errs := p.ValidateInvariants()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}

	want := []error{domain.ErrProductCodeRequired, domain.ErrQuantityNegative, domain.ErrUnitInvalid}
	for _, expected := range want {
		found := false
		for _, err := range errs {
			if errors.Is(err, expected) {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected error %v in %v", expected, errs)
		}
	}
}

func TestUnitValid(t *testing.T) {
	for _, unit := range []domain.Unit{domain.UnitKilogram, domain.UnitGram, domain.UnitPiece, domain.UnitSachet} {
		if !unit.Valid() {
			t.Fatalf("unit %q must be valid", unit)
		}
	}
	if domain.Unit("caixa").Valid() {
		t.Fatal("unknown unit must be invalid")
	}
}

func TestProductExpiresSoon(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	p := validProduct()
	p.ExpiresAt = now.AddDate(0, 0, 3)
	if !p.ExpiresSoon(now) {
		t.Fatal("product expiring in 3 days must be flagged")
	}
	if p.DaysUntilExpiry(now) != 3 {
		t.Fatalf("expected 3 days, got %d", p.DaysUntilExpiry(now))
	}

	p.ExpiresAt = now.AddDate(0, 0, 30)
	if p.ExpiresSoon(now) {
		t.Fatal("product expiring in 30 days must not be flagged")
	}
}

func TestProductMatches(t *testing.T) {
	p := validProduct()

	cases := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"produto", true},
		{"PRODUTO A", true},
		{"001", true},
		{"00", true},
		{"banana", false},
	}
	for _, tc := range cases {
		if got := p.Matches(tc.query); got != tc.want {
			t.Fatalf("Matches(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}

package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/lucashmcosta/estoque/internal/domain"
	"github.com/lucashmcosta/estoque/internal/storage/memory"
)

func newProduct(code, name string, qty float64) domain.Product {
	now := time.Now().UTC()
	return domain.Product{
		Code:      code,
		Name:      name,
		Quantity:  qty,
		Unit:      domain.UnitPiece,
		ExpiresAt: now.AddDate(1, 0, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCatalogRepository_AddGet(t *testing.T) {
	repo := memory.NewCatalogRepository()

	if err := repo.Add(newProduct("001", "Produto A", 10)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	stored, err := repo.Get("001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Name != "Produto A" {
		t.Fatalf("expected name Produto A, got %s", stored.Name)
	}
}

func TestCatalogRepository_AddDuplicate(t *testing.T) {
	repo := memory.NewCatalogRepository()
	if err := repo.Add(newProduct("001", "Produto A", 10)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	err := repo.Add(newProduct("001", "Produto B", 5))
	if !errors.Is(err, domain.ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestCatalogRepository_GetMissing(t *testing.T) {
	repo := memory.NewCatalogRepository()
	if _, err := repo.Get("999"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCatalogRepository_SearchInsertionOrder(t *testing.T) {
	repo := memory.NewCatalogRepository()
	for _, p := range []domain.Product{
		newProduct("003", "Produto C", 7),
		newProduct("001", "Produto A", 10),
		newProduct("002", "Produto B", 15),
	} {
		if err := repo.Add(p); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	all, err := repo.Search("")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 products, got %d", len(all))
	}
	for i, code := range []string{"003", "001", "002"} {
		if all[i].Code != code {
			t.Fatalf("expected %s at position %d, got %s", code, i, all[i].Code)
		}
	}

	byName, err := repo.Search("produto b")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(byName) != 1 || byName[0].Code != "002" {
		t.Fatalf("expected product 002, got %v", byName)
	}

	byCode, err := repo.Search("00")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(byCode) != 3 {
		t.Fatalf("expected 3 matches by code substring, got %d", len(byCode))
	}
}

func TestCatalogRepository_ListAvailable(t *testing.T) {
	repo := memory.NewCatalogRepository()
	if err := repo.Add(newProduct("001", "Produto A", 10)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := repo.Add(newProduct("002", "Produto B", 0)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	available, err := repo.ListAvailable()
	if err != nil {
		t.Fatalf("list available failed: %v", err)
	}
	if len(available) != 1 || available[0].Code != "001" {
		t.Fatalf("expected only product 001, got %v", available)
	}
}

func TestCatalogRepository_Decrement(t *testing.T) {
	repo := memory.NewCatalogRepository()
	if err := repo.Add(newProduct("001", "Produto A", 10)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	updated, err := repo.Decrement("001", 3)
	if err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if updated.Quantity != 7 {
		t.Fatalf("expected quantity 7, got %v", updated.Quantity)
	}
}

func TestCatalogRepository_DecrementUnderflow(t *testing.T) {
	repo := memory.NewCatalogRepository()
	if err := repo.Add(newProduct("001", "Produto A", 2)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if _, err := repo.Decrement("001", 5); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	stored, err := repo.Get("001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Quantity != 2 {
		t.Fatalf("quantity must be unchanged, got %v", stored.Quantity)
	}
}

func TestCatalogRepository_DecrementInvalidAmount(t *testing.T) {
	repo := memory.NewCatalogRepository()
	if err := repo.Add(newProduct("001", "Produto A", 2)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if _, err := repo.Decrement("001", 0); !errors.Is(err, domain.ErrDecrementInvalid) {
		t.Fatalf("expected ErrDecrementInvalid, got %v", err)
	}
}

func TestCatalogRepository_DecrementBatch(t *testing.T) {
	repo := memory.NewCatalogRepository()
	if err := repo.Add(newProduct("001", "Produto A", 10)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := repo.Add(newProduct("002", "Produto B", 5)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	updated, err := repo.DecrementBatch([]domain.CartLine{
		{ProductCode: "001", Quantity: 3},
		{ProductCode: "002", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("decrement batch failed: %v", err)
	}
	if len(updated) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(updated))
	}
	if updated[0].Quantity != 7 || updated[1].Quantity != 3 {
		t.Fatalf("unexpected quantities: %v %v", updated[0].Quantity, updated[1].Quantity)
	}
}

func TestCatalogRepository_DecrementBatchAggregatesDuplicates(t *testing.T) {
	repo := memory.NewCatalogRepository()
	if err := repo.Add(newProduct("001", "Produto A", 5)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	// Две позиции одного товара суммарно превышают остаток: batch обязан упасть целиком.
	_, err := repo.DecrementBatch([]domain.CartLine{
		{ProductCode: "001", Quantity: 3},
		{ProductCode: "001", Quantity: 3},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	stored, err := repo.Get("001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Quantity != 5 {
		t.Fatalf("quantity must be unchanged, got %v", stored.Quantity)
	}
}

func TestCatalogRepository_DecrementBatchAtomicOnFailure(t *testing.T) {
	repo := memory.NewCatalogRepository()
	if err := repo.Add(newProduct("001", "Produto A", 10)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := repo.Add(newProduct("002", "Produto B", 1)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	_, err := repo.DecrementBatch([]domain.CartLine{
		{ProductCode: "001", Quantity: 3},
		{ProductCode: "002", Quantity: 2},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	first, _ := repo.Get("001")
	if first.Quantity != 10 {
		t.Fatalf("no line may be applied on failure, got %v", first.Quantity)
	}
}

func TestCatalogRepository_IncrementBatchRestores(t *testing.T) {
	repo := memory.NewCatalogRepository()
	if err := repo.Add(newProduct("001", "Produto A", 10)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	lines := []domain.CartLine{{ProductCode: "001", Quantity: 4}}
	if _, err := repo.DecrementBatch(lines); err != nil {
		t.Fatalf("decrement batch failed: %v", err)
	}
	if _, err := repo.IncrementBatch(lines); err != nil {
		t.Fatalf("increment batch failed: %v", err)
	}

	stored, _ := repo.Get("001")
	if stored.Quantity != 10 {
		t.Fatalf("expected restored quantity 10, got %v", stored.Quantity)
	}
}

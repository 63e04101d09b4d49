package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProductDocument — представление позиции каталога в документном хранилище.
// Имена полей совпадают с полями мобильного приложения, коллекция `estoque`.
type ProductDocument struct {
	Codigo        string    `json:"codigo"`
	Nome          string    `json:"nome"`
	Quantidade    float64   `json:"quantidade"`
	UnidadeMedida string    `json:"unidadeMedida"`
	Validade      time.Time `json:"validade"`
	Localizacao   string    `json:"localizacao,omitempty"`
	Lote          string    `json:"lote,omitempty"`
	CriadoEm      time.Time `json:"criadoEm"`
	AtualizadoEm  time.Time `json:"atualizadoEm"`
}

// OrderItemDocument — позиция заказа в документе коллекции `historico`.
type OrderItemDocument struct {
	Codigo     string  `json:"codigo"`
	Nome       string  `json:"nome"`
	Quantidade float64 `json:"quantidade"`
}

// OrderDocument — представление заказа в документном хранилище.
type OrderDocument struct {
	ID     string              `json:"id"`
	Codigo string              `json:"codigo"`
	Data   time.Time           `json:"data"`
	Itens  []OrderItemDocument `json:"itens"`
}

// NewProductDocument строит документ из доменной позиции.
func NewProductDocument(p Product) ProductDocument {
	return ProductDocument{
		Codigo:        p.Code,
		Nome:          p.Name,
		Quantidade:    p.Quantity,
		UnidadeMedida: string(p.Unit),
		Validade:      p.ExpiresAt,
		Localizacao:   p.Location,
		Lote:          p.Lot,
		CriadoEm:      p.CreatedAt,
		AtualizadoEm:  p.UpdatedAt,
	}
}

// ToProduct конвертирует документ в доменную позицию с проверкой инвариантов.
func (d ProductDocument) ToProduct() (Product, error) {
	product := Product{
		Code:      d.Codigo,
		Name:      d.Nome,
		Quantity:  d.Quantidade,
		Unit:      Unit(d.UnidadeMedida),
		ExpiresAt: d.Validade,
		Location:  d.Localizacao,
		Lot:       d.Lote,
		CreatedAt: d.CriadoEm,
		UpdatedAt: d.AtualizadoEm,
	}
	if errs := product.ValidateInvariants(); len(errs) > 0 {
		return Product{}, fmt.Errorf("product document %s: %w", d.Codigo, errs[0])
	}
	return product, nil
}

// NewOrderDocument строит документ из финализированного заказа.
func NewOrderDocument(o Order) OrderDocument {
	items := make([]OrderItemDocument, 0, len(o.Lines))
	for _, line := range o.Lines {
		items = append(items, OrderItemDocument{
			Codigo:     line.ProductCode,
			Nome:       line.ProductName,
			Quantidade: line.Quantity,
		})
	}
	return OrderDocument{
		ID:     o.ID,
		Codigo: o.Code,
		Data:   o.CreatedAt,
		Itens:  items,
	}
}

// ToOrder конвертирует документ в доменный заказ с проверкой инвариантов.
func (d OrderDocument) ToOrder() (Order, error) {
	lines := make([]CartLine, 0, len(d.Itens))
	for _, item := range d.Itens {
		lines = append(lines, CartLine{
			ProductCode: item.Codigo,
			ProductName: item.Nome,
			Quantity:    item.Quantidade,
		})
	}
	order := Order{
		ID:        d.ID,
		Code:      d.Codigo,
		Lines:     lines,
		CreatedAt: d.Data,
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return Order{}, fmt.Errorf("order document %s: %w", d.ID, errs[0])
	}
	return order, nil
}

// DecodeProductDocument разбирает JSON-документ коллекции `estoque`.
func DecodeProductDocument(payload []byte) (ProductDocument, error) {
	var doc ProductDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return ProductDocument{}, fmt.Errorf("decode product document: %w", err)
	}
	return doc, nil
}

// DecodeOrderDocument разбирает JSON-документ коллекции `historico`.
func DecodeOrderDocument(payload []byte) (OrderDocument, error) {
	var doc OrderDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return OrderDocument{}, fmt.Errorf("decode order document: %w", err)
	}
	return doc, nil
}

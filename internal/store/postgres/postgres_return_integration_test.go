package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"dhukaan/backend/internal/domain"
)

func TestAppendReturnEventRestocksInventory(t *testing.T) {
	databaseURL := os.Getenv("DHUKAAN_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set DHUKAAN_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("p-ret-it-%d", stamp)
	txID := fmt.Sprintf("tx-ret-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, txID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventory_events WHERE product_id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	if _, err := s.CreateProduct(ctx, domain.Product{
		ID:         productID,
		Name:       "Return IT Product",
		Category:   "test",
		PriceLaari: 2500,
		Stock:      10,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	now := time.Now().UTC()
	tx := domain.Transaction{
		ID: txID,
		Items: []domain.TransactionLine{
			{ProductID: productID, Name: "Return IT Product", UnitPriceLaari: 2500, Quantity: 2},
		},
		SubtotalLaari: 5000,
		TotalLaari:    5000,
		PaymentStatus: domain.PaymentStatusPaid,
		PaymentMethod: domain.PaymentMethodCash,
		CreatedAt:     now,
	}
	deltas := []domain.StockDelta{
		{ProductID: productID, Delta: -2, Type: domain.InventoryEventSale, RelatedID: txID},
	}
	if _, err := s.CommitSale(ctx, tx, deltas, nil); err != nil {
		t.Fatalf("commit sale: %v", err)
	}

	event := domain.ReturnEvent{
		ID:          fmt.Sprintf("ret-it-%d", stamp),
		Date:        now.Add(time.Minute),
		Items:       []domain.ReturnLine{{ProductID: productID, Quantity: 1}},
		RefundLaari: 2500,
	}
	restock := []domain.StockDelta{
		{ProductID: productID, Delta: 1, Type: domain.InventoryEventReturn, RelatedID: txID},
	}
	if _, err := s.AppendReturnEvent(ctx, txID, event, restock, nil); err != nil {
		t.Fatalf("append return: %v", err)
	}

	product, err := s.GetProductByID(ctx, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 9 {
		t.Fatalf("expected stock 9 after sale of 2 and return of 1, got %d", product.Stock)
	}

	stored, err := s.GetTransactionByID(ctx, txID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if len(stored.Returns) != 1 || stored.Returns[0].RefundLaari != 2500 {
		t.Fatalf("expected recorded return event, got %+v", stored.Returns)
	}
}

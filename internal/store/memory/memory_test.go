package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"dhukaan/backend/internal/domain"
	"dhukaan/backend/internal/store"
)

func saleFixture(txID string) (domain.Transaction, []domain.StockDelta) {
	tx := domain.Transaction{
		ID: txID,
		Items: []domain.TransactionLine{
			{ProductID: "p-tuna-can", Name: "Canned Tuna 185g", UnitPriceLaari: 2400, WholesalePriceLaari: 1700, Quantity: 2},
		},
		SubtotalLaari: 4800,
		TotalLaari:    4800,
		PaymentStatus: domain.PaymentStatusPaid,
		PaymentMethod: domain.PaymentMethodCash,
		CreatedAt:     time.Now().UTC(),
	}
	deltas := []domain.StockDelta{
		{ProductID: "p-tuna-can", Delta: -2, Type: domain.InventoryEventSale, RelatedID: txID},
	}
	return tx, deltas
}

func TestCommitSaleLoyaltyFailureLeavesNothingApplied(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	tx, deltas := saleFixture("tx-loyalty-miss")
	_, err := s.CommitSale(ctx, tx, deltas, &store.LoyaltyUpdate{
		CustomerID: "cust-ghost",
		Points:     100,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown loyalty customer, got %v", err)
	}

	product, err := s.GetProductByID(ctx, "p-tuna-can")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Stock != 180 {
		t.Fatalf("expected stock untouched at 180, got %d", product.Stock)
	}
	if _, err := s.GetTransactionByID(ctx, tx.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected transaction absent after rejected commit, got %v", err)
	}
}

func TestCommitSaleAppliesLoyaltyWithSale(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	tx, deltas := saleFixture("tx-loyalty-hit")
	tx.CustomerID = "cust-hassan"
	if _, err := s.CommitSale(ctx, tx, deltas, &store.LoyaltyUpdate{
		CustomerID: "cust-hassan",
		Points:     498,
		TierID:     "tier-bronze",
	}); err != nil {
		t.Fatalf("commit sale failed: %v", err)
	}

	customer, err := s.GetCustomerByID(ctx, "cust-hassan")
	if err != nil {
		t.Fatalf("get customer failed: %v", err)
	}
	if customer.LoyaltyPoints != 498 {
		t.Fatalf("expected 498 points, got %d", customer.LoyaltyPoints)
	}
	product, err := s.GetProductByID(ctx, "p-tuna-can")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Stock != 178 {
		t.Fatalf("expected stock 178 after sale, got %d", product.Stock)
	}
}

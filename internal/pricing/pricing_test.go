package pricing

import (
	"testing"
	"time"

	"dhukaan/backend/internal/domain"
)

var pricingCatalog = map[string]domain.Product{
	"p-rice": {ID: "p-rice", Name: "Rice 5kg", PriceLaari: 2500, Stock: 20},
	"p-oil":  {ID: "p-oil", Name: "Cooking Oil", PriceLaari: 1250, Stock: 8},
}

func TestSubtotalSumsLines(t *testing.T) {
	subtotal, err := Subtotal([]domain.CartItem{
		{ProductID: "p-rice", Quantity: 2},
		{ProductID: "p-oil", Quantity: 1},
	}, pricingCatalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subtotal != 6250 {
		t.Fatalf("expected 6250, got %d", subtotal)
	}
}

func TestSubtotalRejectsUnknownProduct(t *testing.T) {
	if _, err := Subtotal([]domain.CartItem{{ProductID: "p-nope", Quantity: 1}}, pricingCatalog); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPromotionPercentageFloors(t *testing.T) {
	promo := domain.Promotion{Code: "TEN", Type: domain.PromotionTypePercentage, Value: 10}
	discount, err := PromotionDiscount(promo, 1255)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if discount != 125 {
		t.Fatalf("expected 125, got %d", discount)
	}
}

func TestPromotionFixedClampsToSubtotal(t *testing.T) {
	promo := domain.Promotion{Code: "BIGOFF", Type: domain.PromotionTypeFixed, Value: 100}
	discount, err := PromotionDiscount(promo, 4000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if discount != 4000 {
		t.Fatalf("expected clamp to 4000, got %d", discount)
	}
}

func TestPromotionRejectsBadPercentage(t *testing.T) {
	promo := domain.Promotion{Code: "BAD", Type: domain.PromotionTypePercentage, Value: 150}
	if _, err := PromotionDiscount(promo, 1000); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGiftCardDeductionCapsAtRemaining(t *testing.T) {
	card := domain.GiftCard{ID: "gc-1", CurrentBalanceLaari: 9000, Enabled: true}
	if got := GiftCardDeduction(card, 4500, time.Now()); got != 4500 {
		t.Fatalf("expected 4500, got %d", got)
	}
}

func TestGiftCardDeductionCapsAtBalance(t *testing.T) {
	card := domain.GiftCard{ID: "gc-1", CurrentBalanceLaari: 3000, Enabled: true}
	if got := GiftCardDeduction(card, 4500, time.Now()); got != 3000 {
		t.Fatalf("expected 3000, got %d", got)
	}
}

func TestGiftCardDeductionExpiredCoversNothing(t *testing.T) {
	expired := time.Now().Add(-24 * time.Hour)
	card := domain.GiftCard{ID: "gc-1", CurrentBalanceLaari: 3000, Enabled: true, ExpiresAt: &expired}
	if got := GiftCardDeduction(card, 4500, time.Now()); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

// A MVR 50 cart with a 10% promotion and a MVR 30 gift card must land on
// MVR 15: the promotion applies first, then the card covers MVR 30 of the
// remaining MVR 45.
func TestComputePromotionBeforeGiftCard(t *testing.T) {
	catalog := map[string]domain.Product{
		"p-a": {ID: "p-a", PriceLaari: 5000, Stock: 5},
	}
	promo := domain.Promotion{Code: "TEN", Type: domain.PromotionTypePercentage, Value: 10, Active: true}
	card := domain.GiftCard{ID: "gc-1", CurrentBalanceLaari: 3000, Enabled: true}

	quote, err := Compute([]domain.CartItem{{ProductID: "p-a", Quantity: 1}}, catalog, &promo, &card, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.SubtotalLaari != 5000 {
		t.Fatalf("expected subtotal 5000, got %d", quote.SubtotalLaari)
	}
	if quote.PromoDiscountLaari != 500 {
		t.Fatalf("expected promo discount 500, got %d", quote.PromoDiscountLaari)
	}
	if quote.GiftCardDeductionLaari != 3000 {
		t.Fatalf("expected gift card deduction 3000, got %d", quote.GiftCardDeductionLaari)
	}
	if quote.TotalLaari != 1500 {
		t.Fatalf("expected total 1500, got %d", quote.TotalLaari)
	}
}

func TestComputeGiftCardNeverOverdraws(t *testing.T) {
	catalog := map[string]domain.Product{
		"p-a": {ID: "p-a", PriceLaari: 1000, Stock: 5},
	}
	card := domain.GiftCard{ID: "gc-1", CurrentBalanceLaari: 5000, Enabled: true}

	quote, err := Compute([]domain.CartItem{{ProductID: "p-a", Quantity: 1}}, catalog, nil, &card, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.GiftCardDeductionLaari != 1000 {
		t.Fatalf("expected deduction 1000, got %d", quote.GiftCardDeductionLaari)
	}
	if quote.TotalLaari != 0 {
		t.Fatalf("expected total 0, got %d", quote.TotalLaari)
	}
}

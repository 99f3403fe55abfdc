// Package pricing computes checkout totals in laari. Discounts layer in a
// fixed order: the promotion reduces the subtotal first, then a gift card
// covers as much of the discounted amount as its balance allows. Neither
// layer can push the total below zero.
package pricing

import (
	"fmt"
	"math"
	"time"

	"dhukaan/backend/internal/domain"
)

type Quote struct {
	SubtotalLaari          int64
	PromoDiscountLaari     int64
	GiftCardDeductionLaari int64
	TotalLaari             int64
}

// Subtotal sums line prices for a cart, using each product's current price.
func Subtotal(items []domain.CartItem, catalog map[string]domain.Product) (int64, error) {
	var subtotal int64
	for _, item := range items {
		product, ok := catalog[item.ProductID]
		if !ok {
			return 0, fmt.Errorf("unknown product %q", item.ProductID)
		}
		if item.Quantity <= 0 {
			return 0, fmt.Errorf("product %q: quantity must be positive", item.ProductID)
		}
		subtotal += product.PriceLaari * int64(item.Quantity)
	}
	return subtotal, nil
}

// PromotionDiscount computes how much promo takes off a subtotal. Percentage
// promotions use Value as a percent; fixed promotions use Value as an amount
// in rufiyaa. The discount is clamped to the subtotal.
func PromotionDiscount(promo domain.Promotion, subtotalLaari int64) (int64, error) {
	var discount int64
	switch promo.Type {
	case domain.PromotionTypePercentage:
		if promo.Value <= 0 || promo.Value > 100 {
			return 0, fmt.Errorf("promotion %q: percentage out of range", promo.Code)
		}
		discount = int64(math.Floor(float64(subtotalLaari) * promo.Value / 100))
	case domain.PromotionTypeFixed:
		if promo.Value <= 0 {
			return 0, fmt.Errorf("promotion %q: fixed amount must be positive", promo.Code)
		}
		discount = int64(math.Round(promo.Value * 100))
	default:
		return 0, fmt.Errorf("promotion %q: unknown type %q", promo.Code, promo.Type)
	}
	if discount > subtotalLaari {
		discount = subtotalLaari
	}
	return discount, nil
}

// GiftCardDeduction returns how much of remaining a card can cover. Disabled
// and expired cards cover nothing here; the caller rejects them upfront so
// the operator gets a clear error instead of a silent zero.
func GiftCardDeduction(card domain.GiftCard, remainingLaari int64, now time.Time) int64 {
	if !card.Enabled || card.CurrentBalanceLaari <= 0 {
		return 0
	}
	if card.ExpiresAt != nil && now.After(*card.ExpiresAt) {
		return 0
	}
	deduction := card.CurrentBalanceLaari
	if deduction > remainingLaari {
		deduction = remainingLaari
	}
	return deduction
}

// Compute runs the full pricing pipeline for a cart. Either promo or card
// may be nil when the sale carries no such layer.
func Compute(items []domain.CartItem, catalog map[string]domain.Product, promo *domain.Promotion, card *domain.GiftCard, now time.Time) (Quote, error) {
	subtotal, err := Subtotal(items, catalog)
	if err != nil {
		return Quote{}, err
	}
	quote := Quote{SubtotalLaari: subtotal, TotalLaari: subtotal}
	if promo != nil {
		discount, err := PromotionDiscount(*promo, subtotal)
		if err != nil {
			return Quote{}, err
		}
		quote.PromoDiscountLaari = discount
		quote.TotalLaari -= discount
	}
	if card != nil {
		deduction := GiftCardDeduction(*card, quote.TotalLaari, now)
		quote.GiftCardDeductionLaari = deduction
		quote.TotalLaari -= deduction
	}
	if quote.TotalLaari < 0 {
		quote.TotalLaari = 0
	}
	return quote, nil
}

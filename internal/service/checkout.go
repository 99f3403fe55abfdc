package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"dhukaan/backend/internal/domain"
	"dhukaan/backend/internal/ident"
	"dhukaan/backend/internal/inventory"
	"dhukaan/backend/internal/pricing"
	"dhukaan/backend/internal/store"
)

// PreviewCheckout prices a cart without touching stock, so the till can
// show the layered totals before the operator commits.
func (s *Service) PreviewCheckout(ctx context.Context, req domain.PreviewRequest) (domain.PreviewResponse, error) {
	items := normalizeItems(req.CartItems)
	if len(items) == 0 {
		return domain.PreviewResponse{}, store.ErrInvalidRequest
	}

	catalog, err := s.catalog(ctx)
	if err != nil {
		return domain.PreviewResponse{}, err
	}
	if err := s.checkAvailability(items, catalog); err != nil {
		return domain.PreviewResponse{}, err
	}

	promo, card, err := s.resolveDiscounts(ctx, req.PromotionCode, req.GiftCardCode)
	if err != nil {
		return domain.PreviewResponse{}, err
	}

	quote, err := pricing.Compute(items, catalog, promo, card, time.Now().UTC())
	if err != nil {
		return domain.PreviewResponse{}, err
	}

	return domain.PreviewResponse{
		SubtotalLaari:          quote.SubtotalLaari,
		PromoDiscountLaari:     quote.PromoDiscountLaari,
		GiftCardDeductionLaari: quote.GiftCardDeductionLaari,
		TotalLaari:             quote.TotalLaari,
	}, nil
}

// CommitSale settles a cart: it prices the sale, enforces the credit gate,
// deducts component stock atomically, debits the gift card, awards loyalty
// points and, for an offline till, queues the record for the next flush.
func (s *Service) CommitSale(ctx context.Context, req domain.CommitSaleRequest) (domain.CommitSaleResponse, error) {
	items := normalizeItems(req.CartItems)
	if len(items) == 0 {
		return domain.CommitSaleResponse{}, store.ErrInvalidRequest
	}

	catalog, err := s.catalog(ctx)
	if err != nil {
		return domain.CommitSaleResponse{}, err
	}
	if err := s.checkAvailability(items, catalog); err != nil {
		return domain.CommitSaleResponse{}, err
	}

	promo, card, err := s.resolveDiscounts(ctx, req.PromotionCode, req.GiftCardCode)
	if err != nil {
		return domain.CommitSaleResponse{}, err
	}

	now := time.Now().UTC()
	quote, err := pricing.Compute(items, catalog, promo, card, now)
	if err != nil {
		return domain.CommitSaleResponse{}, err
	}

	var customer *domain.Customer
	if req.CustomerID != "" {
		customer, err = s.repo.GetCustomerByID(ctx, req.CustomerID)
		if err != nil {
			return domain.CommitSaleResponse{}, err
		}
	}

	method, status, err := s.settlePayment(ctx, req.PaymentMethod, quote, customer)
	if err != nil {
		return domain.CommitSaleResponse{}, err
	}

	txID := ident.New("tx")
	deltas, err := inventory.SaleDeltas(items, catalog, txID)
	if err != nil {
		return domain.CommitSaleResponse{}, fmt.Errorf("%w: %v", store.ErrInvalidRequest, err)
	}

	lines := make([]domain.TransactionLine, 0, len(items))
	for _, item := range items {
		product := catalog[item.ProductID]
		lines = append(lines, domain.TransactionLine{
			ProductID:           product.ID,
			Name:                product.Name,
			UnitPriceLaari:      product.PriceLaari,
			WholesalePriceLaari: product.WholesalePriceLaari,
			Quantity:            item.Quantity,
		})
	}

	tx := domain.Transaction{
		ID:            txID,
		CustomerID:    req.CustomerID,
		Items:         lines,
		SubtotalLaari: quote.SubtotalLaari,
		DiscountLaari: quote.PromoDiscountLaari,
		TotalLaari:    quote.TotalLaari,
		PaymentStatus: status,
		PaymentMethod: method,
		CreatedAt:     now,
	}
	if promo != nil {
		tx.PromotionCode = promo.Code
	}
	if card != nil && quote.GiftCardDeductionLaari > 0 {
		tx.GiftCardPayments = []domain.GiftCardPayment{{
			CardID:      card.ID,
			AmountLaari: quote.GiftCardDeductionLaari,
		}}
	}

	var loyalty *store.LoyaltyUpdate
	var pointsEarned int64
	var loyaltyTierID string
	if customer != nil && s.cfg.LoyaltyEnabled {
		earned, newPoints, tierID, err := s.computeLoyalty(ctx, customer, quote.TotalLaari)
		if err != nil {
			return domain.CommitSaleResponse{}, err
		}
		if earned > 0 {
			loyalty = &store.LoyaltyUpdate{CustomerID: customer.ID, Points: newPoints, TierID: tierID}
		}
		pointsEarned = earned
		loyaltyTierID = tierID
	}

	committed, err := s.repo.CommitSale(ctx, tx, deltas, loyalty)
	if err != nil {
		return domain.CommitSaleResponse{}, err
	}

	resp := domain.CommitSaleResponse{
		Transaction:   *committed,
		PointsEarned:  pointsEarned,
		LoyaltyTierID: loyaltyTierID,
	}

	if req.Offline {
		if err := s.offline.Enqueue(ctx, *committed); err != nil {
			s.log.WithError(err).WithField("transaction_id", committed.ID).Error("failed to queue offline transaction")
		} else {
			resp.Queued = true
		}
	}

	s.logAudit(ctx, "sale_commit", "transaction", committed.ID,
		fmt.Sprintf("total=%d,method=%s,status=%s,offline=%t", committed.TotalLaari, method, status, req.Offline))
	return resp, nil
}

// SyncOnline flushes the offline backlog oldest first. The queue is cleared
// only after the whole batch lands, so a failed flush replays next time.
func (s *Service) SyncOnline(ctx context.Context) (domain.SyncResponse, error) {
	pending, err := s.offline.List(ctx)
	if err != nil {
		return domain.SyncResponse{}, err
	}
	if len(pending) == 0 {
		return domain.SyncResponse{Flushed: 0}, nil
	}

	if err := s.repo.AppendTransactions(ctx, pending); err != nil {
		return domain.SyncResponse{}, err
	}
	if err := s.offline.Clear(ctx); err != nil {
		return domain.SyncResponse{}, err
	}

	s.logAudit(ctx, "offline_flush", "queue", "offline", fmt.Sprintf("count=%d", len(pending)))
	s.log.WithField("count", len(pending)).Info("offline queue flushed")
	return domain.SyncResponse{Flushed: len(pending)}, nil
}

func (s *Service) OfflineQueueLength(ctx context.Context) (int, error) {
	return s.offline.Len(ctx)
}

// settlePayment decides the recorded payment method and status. A sale the
// gift card fully covers settles as a gift card sale; a partial cover plus
// another tender records as "multiple". Credit sales pass the credit gate
// and stay unpaid until a statement settles them.
func (s *Service) settlePayment(ctx context.Context, requested string, quote pricing.Quote, customer *domain.Customer) (string, string, error) {
	method := requested
	if method == "" {
		method = domain.PaymentMethodCash
	}
	if !isSupportedPaymentMethod(method) {
		return "", "", store.ErrInvalidRequest
	}

	if quote.GiftCardDeductionLaari > 0 {
		if quote.TotalLaari == 0 {
			method = domain.PaymentMethodGiftCard
		} else if method != domain.PaymentMethodCredit {
			method = domain.PaymentMethodMultiple
		}
	}

	if method != domain.PaymentMethodCredit {
		return method, domain.PaymentStatusPaid, nil
	}

	if customer == nil {
		return "", "", store.ErrInvalidRequest
	}
	if customer.CreditBlocked {
		return "", "", store.ErrCreditBlocked
	}
	outstanding, err := s.outstandingCredit(ctx, customer.ID)
	if err != nil {
		return "", "", err
	}
	if outstanding+quote.TotalLaari > customer.MaximumCreditLimitLaari {
		remaining := customer.MaximumCreditLimitLaari - outstanding
		if remaining < 0 {
			remaining = 0
		}
		return "", "", &store.CreditLimitError{RemainingLaari: remaining}
	}
	return method, domain.PaymentStatusUnpaid, nil
}

func (s *Service) outstandingCredit(ctx context.Context, customerID string) (int64, error) {
	unpaid, err := s.repo.ListCustomerTransactions(ctx, customerID, domain.PaymentStatusUnpaid)
	if err != nil {
		return 0, err
	}
	var outstanding int64
	for _, tx := range unpaid {
		outstanding += tx.TotalLaari
	}
	return outstanding, nil
}

// computeLoyalty prices the points a sale earns: one floor over
// total × rate × tier multiplier, with the multiplier from the customer's
// tier before this sale's points land. The new balance may promote the
// customer to a higher tier; tiers never demote. The caller persists the
// result together with the sale itself.
func (s *Service) computeLoyalty(ctx context.Context, customer *domain.Customer, totalLaari int64) (int64, int64, string, error) {
	tiers, err := s.repo.ListLoyaltyTiers(ctx)
	if err != nil {
		return 0, 0, "", err
	}

	multiplier := 1.0
	currentMin := int64(-1)
	for _, tier := range tiers {
		if tier.ID == customer.LoyaltyTierID {
			multiplier = tier.PointMultiplier
			currentMin = tier.MinPoints
		}
	}

	earned := int64(math.Floor(float64(totalLaari) * float64(s.cfg.LoyaltyPointsPerRufiyaa) * multiplier / 100))
	if earned <= 0 {
		return 0, customer.LoyaltyPoints, customer.LoyaltyTierID, nil
	}

	newPoints := customer.LoyaltyPoints + earned
	newTierID := customer.LoyaltyTierID
	for _, tier := range tiers {
		if newPoints >= tier.MinPoints && tier.MinPoints > currentMin {
			newTierID = tier.ID
			currentMin = tier.MinPoints
		}
	}
	return earned, newPoints, newTierID, nil
}

func (s *Service) resolveDiscounts(ctx context.Context, promoCode string, giftCardCode string) (*domain.Promotion, *domain.GiftCard, error) {
	var promo *domain.Promotion
	if promoCode != "" {
		found, err := s.repo.GetPromotionByCode(ctx, promoCode)
		if err != nil {
			if IsNotFound(err) {
				return nil, nil, store.ErrInvalidPromotion
			}
			return nil, nil, err
		}
		if !found.Active {
			return nil, nil, store.ErrInvalidPromotion
		}
		promo = found
	}

	var card *domain.GiftCard
	if giftCardCode != "" {
		found, err := s.repo.GetGiftCardByCode(ctx, giftCardCode)
		if err != nil {
			if IsNotFound(err) {
				return nil, nil, store.ErrInvalidGiftCard
			}
			return nil, nil, err
		}
		if !found.Enabled || found.CurrentBalanceLaari <= 0 {
			return nil, nil, store.ErrInvalidGiftCard
		}
		if found.ExpiresAt != nil && time.Now().UTC().After(*found.ExpiresAt) {
			return nil, nil, store.ErrInvalidGiftCard
		}
		card = found
	}

	return promo, card, nil
}

// checkAvailability verifies the cart names known products and effective
// stock covers it, bundles included, before any pricing happens. The store
// re-checks stock atomically at commit time.
func (s *Service) checkAvailability(items []domain.CartItem, catalog map[string]domain.Product) error {
	deltas, err := inventory.SaleDeltas(items, catalog, "preview")
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidRequest, err)
	}
	for _, d := range deltas {
		product, ok := catalog[d.ProductID]
		if !ok {
			return store.ErrInvalidRequest
		}
		if product.Stock+d.Delta < 0 {
			return store.ErrInsufficientStock
		}
	}
	return nil
}

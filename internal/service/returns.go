package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dhukaan/backend/internal/domain"
	"dhukaan/backend/internal/ident"
	"dhukaan/backend/internal/inventory"
	"dhukaan/backend/internal/store"
)

// ProcessReturn records a partial or full return against a transaction.
// Every return checks cumulative history: across all returns on the same
// transaction, no product may exceed its sold quantity. Store credit is
// valued at the sale price of the returned units.
func (s *Service) ProcessReturn(ctx context.Context, req domain.ReturnRequest) (domain.ReturnResponse, error) {
	if req.TransactionID == "" || len(req.Items) == 0 {
		return domain.ReturnResponse{}, store.ErrInvalidRequest
	}

	tx, err := s.repo.GetTransactionByID(ctx, req.TransactionID)
	if err != nil {
		return domain.ReturnResponse{}, err
	}

	sold := make(map[string]int, len(tx.Items))
	unitPrice := make(map[string]int64, len(tx.Items))
	for _, line := range tx.Items {
		sold[line.ProductID] += line.Quantity
		unitPrice[line.ProductID] = line.UnitPriceLaari
	}

	alreadyReturned := make(map[string]int)
	for _, event := range tx.Returns {
		for _, line := range event.Items {
			alreadyReturned[line.ProductID] += line.Quantity
		}
	}

	requested := make(map[string]int, len(req.Items))
	var grossRefund int64
	for _, line := range req.Items {
		if line.Quantity < 1 {
			return domain.ReturnResponse{}, store.ErrInvalidReturnQuantity
		}
		soldQty, ok := sold[line.ProductID]
		if !ok {
			return domain.ReturnResponse{}, store.ErrInvalidReturnQuantity
		}
		requested[line.ProductID] += line.Quantity
		if alreadyReturned[line.ProductID]+requested[line.ProductID] > soldQty {
			return domain.ReturnResponse{}, store.ErrInvalidReturnQuantity
		}
		grossRefund += unitPrice[line.ProductID] * int64(line.Quantity)
	}
	refund := grossRefund

	catalog, err := s.catalog(ctx)
	if err != nil {
		return domain.ReturnResponse{}, err
	}

	returnID := ident.New("ret")
	deltas, err := inventory.ReturnDeltas(req.Items, catalog, returnID)
	if err != nil {
		return domain.ReturnResponse{}, fmt.Errorf("%w: %v", store.ErrInvalidRequest, err)
	}

	event := domain.ReturnEvent{
		ID:          returnID,
		Date:        time.Now().UTC(),
		Items:       req.Items,
		RefundLaari: refund,
	}

	var storeCredit *domain.GiftCard
	if req.IssueStoreCredit && refund > 0 {
		storeCredit = &domain.GiftCard{
			ID:                  strings.ToUpper(ident.New("gc")),
			InitialBalanceLaari: refund,
			CustomerID:          tx.CustomerID,
		}
	}

	recorded, err := s.repo.AppendReturnEvent(ctx, tx.ID, event, deltas, storeCredit)
	if err != nil {
		return domain.ReturnResponse{}, err
	}

	resp := domain.ReturnResponse{
		ReturnEvent:      *recorded,
		RefundValueLaari: refund,
	}
	if storeCredit != nil {
		card, err := s.repo.GetGiftCardByCode(ctx, recorded.StoreCreditCardID)
		if err == nil {
			resp.StoreCredit = card
		}
	}

	s.logAudit(ctx, "return_process", "transaction", tx.ID,
		fmt.Sprintf("return_id=%s,refund=%d,store_credit=%t", recorded.ID, refund, storeCredit != nil))
	return resp, nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	tx, err := s.repo.GetTransactionByID(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

func (s *Service) ListTransactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListTransactions(ctx, limit)
}

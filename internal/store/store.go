package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dhukaan/backend/internal/domain"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrCreditBlocked          = errors.New("customer credit is blocked")
	ErrCreditLimitExceeded    = errors.New("credit limit exceeded")
	ErrInvalidReturnQuantity  = errors.New("invalid return quantity")
	ErrInvalidPromotion       = errors.New("invalid promotion")
	ErrInvalidGiftCard        = errors.New("invalid gift card")
	ErrDuplicatePromotionCode = errors.New("duplicate promotion code")
)

// CreditLimitError carries the remaining headroom so the till can show the
// operator how much credit the customer has left.
type CreditLimitError struct {
	RemainingLaari int64
}

func (e *CreditLimitError) Error() string {
	return fmt.Sprintf("credit limit exceeded: %d laari remaining", e.RemainingLaari)
}

func (e *CreditLimitError) Unwrap() error {
	return ErrCreditLimitExceeded
}

// LoyaltyUpdate carries the customer point balance and tier that must land
// together with the sale that earned them.
type LoyaltyUpdate struct {
	CustomerID string
	Points     int64
	TierID     string
}

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)

	ApplyStockDeltas(ctx context.Context, deltas []domain.StockDelta) error
	ListInventoryEvents(ctx context.Context, productID string, limit int) ([]domain.InventoryEvent, error)
	SumSaleQuantities(ctx context.Context, from time.Time, to time.Time) (map[string]int, error)

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	SetCustomerCreditBlocked(ctx context.Context, id string, blocked bool) error

	ListLoyaltyTiers(ctx context.Context) ([]domain.LoyaltyTier, error)
	CreateLoyaltyTier(ctx context.Context, tier domain.LoyaltyTier) (*domain.LoyaltyTier, error)

	CreateGiftCard(ctx context.Context, card domain.GiftCard) (*domain.GiftCard, error)
	GetGiftCardByCode(ctx context.Context, code string) (*domain.GiftCard, error)
	ListGiftCards(ctx context.Context) ([]domain.GiftCard, error)
	SetGiftCardEnabled(ctx context.Context, code string, enabled bool) (*domain.GiftCard, error)

	CreatePromotion(ctx context.Context, promo domain.Promotion) (*domain.Promotion, error)
	UpdatePromotion(ctx context.Context, promo domain.Promotion) (*domain.Promotion, error)
	ListPromotions(ctx context.Context) ([]domain.Promotion, error)
	GetPromotionByCode(ctx context.Context, code string) (*domain.Promotion, error)

	CreateWholesaler(ctx context.Context, wholesaler domain.Wholesaler) (*domain.Wholesaler, error)
	ListWholesalers(ctx context.Context) ([]domain.Wholesaler, error)

	CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) (*domain.PurchaseOrder, error)
	GetPurchaseOrderByID(ctx context.Context, id string) (*domain.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, status string, limit int) ([]domain.PurchaseOrder, error)
	ProcessPurchaseOrder(ctx context.Context, id string, at time.Time) (*domain.PurchaseOrder, error)

	CommitSale(ctx context.Context, tx domain.Transaction, deltas []domain.StockDelta, loyalty *LoyaltyUpdate) (*domain.Transaction, error)
	AppendTransactions(ctx context.Context, txs []domain.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, limit int) ([]domain.Transaction, error)
	ListCustomerTransactions(ctx context.Context, customerID string, paymentStatus string) ([]domain.Transaction, error)
	SetTransactionPaymentStatus(ctx context.Context, id string, status string) error
	AppendReturnEvent(ctx context.Context, transactionID string, event domain.ReturnEvent, deltas []domain.StockDelta, storeCredit *domain.GiftCard) (*domain.ReturnEvent, error)

	CreateDailyReport(ctx context.Context, report domain.DailyReport) (*domain.DailyReport, error)
	ListDailyReports(ctx context.Context, limit int) ([]domain.DailyReport, error)
	ReportedTransactionIDs(ctx context.Context) (map[string]struct{}, error)

	CreateMonthlyStatement(ctx context.Context, statement domain.MonthlyStatement) (*domain.MonthlyStatement, error)
	ListMonthlyStatements(ctx context.Context, customerID string, status string) ([]domain.MonthlyStatement, error)
	UpdateMonthlyStatement(ctx context.Context, statement domain.MonthlyStatement) (*domain.MonthlyStatement, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

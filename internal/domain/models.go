package domain

import "time"

type BundleComponent struct {
	ComponentID string `json:"component_id"`
	Quantity    int    `json:"quantity"`
}

type Product struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Category            string            `json:"category"`
	PriceLaari          int64             `json:"price_laari"`
	WholesalePriceLaari int64             `json:"wholesale_price_laari"`
	Stock               int               `json:"stock"`
	IsBundle            bool              `json:"is_bundle"`
	BundleItems         []BundleComponent `json:"bundle_items,omitempty"`
	Active              bool              `json:"active"`
}

type ProductCreateRequest struct {
	Name                string            `json:"name" validate:"required"`
	Category            string            `json:"category" validate:"required"`
	PriceLaari          int64             `json:"price_laari" validate:"gt=0"`
	WholesalePriceLaari int64             `json:"wholesale_price_laari" validate:"gte=0"`
	InitialStock        int               `json:"initial_stock" validate:"gte=0"`
	IsBundle            bool              `json:"is_bundle"`
	BundleItems         []BundleComponent `json:"bundle_items,omitempty"`
}

type ProductUpdateRequest struct {
	Name                *string `json:"name,omitempty"`
	Category            *string `json:"category,omitempty"`
	PriceLaari          *int64  `json:"price_laari,omitempty"`
	WholesalePriceLaari *int64  `json:"wholesale_price_laari,omitempty"`
	Active              *bool   `json:"active,omitempty"`
}

// ProductView is a Product plus its derived sellable stock. For bundles the
// stored Stock field is meaningless; EffectiveStock is what the till shows.
type ProductView struct {
	Product
	EffectiveStock int `json:"effective_stock"`
}

type Customer struct {
	ID                      string `json:"id"`
	Name                    string `json:"name"`
	Phone                   string `json:"phone,omitempty"`
	MaximumCreditLimitLaari int64  `json:"maximum_credit_limit_laari"`
	CreditBlocked           bool   `json:"credit_blocked"`
	LoyaltyPoints           int64  `json:"loyalty_points"`
	LoyaltyTierID           string `json:"loyalty_tier_id,omitempty"`
}

type CustomerCreateRequest struct {
	Name                    string `json:"name" validate:"required"`
	Phone                   string `json:"phone"`
	MaximumCreditLimitLaari int64  `json:"maximum_credit_limit_laari" validate:"gte=0"`
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type TransactionLine struct {
	ProductID           string `json:"product_id"`
	Name                string `json:"name"`
	UnitPriceLaari      int64  `json:"unit_price_laari"`
	WholesalePriceLaari int64  `json:"wholesale_price_laari"`
	Quantity            int    `json:"quantity"`
}

type GiftCardPayment struct {
	CardID      string `json:"card_id"`
	AmountLaari int64  `json:"amount_laari"`
}

type ReturnLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason,omitempty"`
}

type ReturnEvent struct {
	ID                string       `json:"id"`
	Date              time.Time    `json:"date"`
	Items             []ReturnLine `json:"items"`
	RefundLaari       int64        `json:"refund_laari"`
	StoreCreditCardID string       `json:"store_credit_card_id,omitempty"`
}

type Transaction struct {
	ID               string            `json:"id"`
	CustomerID       string            `json:"customer_id"`
	Items            []TransactionLine `json:"items"`
	SubtotalLaari    int64             `json:"subtotal_laari"`
	DiscountLaari    int64             `json:"discount_laari"`
	PromotionCode    string            `json:"promotion_code,omitempty"`
	TotalLaari       int64             `json:"total_laari"`
	PaymentStatus    string            `json:"payment_status"`
	PaymentMethod    string            `json:"payment_method"`
	GiftCardPayments []GiftCardPayment `json:"gift_card_payments,omitempty"`
	Returns          []ReturnEvent     `json:"returns,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

type InventoryEvent struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	Type           string    `json:"type"`
	QuantityChange int       `json:"quantity_change"`
	Date           time.Time `json:"date"`
	RelatedID      string    `json:"related_id,omitempty"`
	Notes          string    `json:"notes,omitempty"`
}

// StockDelta is one pending stock mutation. Applying a batch of deltas is
// all-or-nothing: every resulting stock level must stay non-negative.
type StockDelta struct {
	ProductID string
	Delta     int
	Type      string
	RelatedID string
	Notes     string
}

type GiftCard struct {
	ID                  string     `json:"id"`
	InitialBalanceLaari int64      `json:"initial_balance_laari"`
	CurrentBalanceLaari int64      `json:"current_balance_laari"`
	Enabled             bool       `json:"enabled"`
	CustomerID          string     `json:"customer_id,omitempty"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
}

type GiftCardCreateRequest struct {
	Code                string `json:"code"`
	InitialBalanceLaari int64  `json:"initial_balance_laari" validate:"gt=0"`
	CustomerID          string `json:"customer_id"`
	ExpiresAt           string `json:"expires_at,omitempty"`
}

type Promotion struct {
	ID     string  `json:"id"`
	Code   string  `json:"code"`
	Type   string  `json:"type"`
	Value  float64 `json:"value"`
	Active bool    `json:"active"`
}

type PromotionCreateRequest struct {
	Code  string  `json:"code" validate:"required"`
	Type  string  `json:"type" validate:"required,oneof=percentage fixed"`
	Value float64 `json:"value" validate:"gt=0"`
}

type PromotionUpdateRequest struct {
	Code   *string  `json:"code,omitempty"`
	Type   *string  `json:"type,omitempty"`
	Value  *float64 `json:"value,omitempty"`
	Active *bool    `json:"active,omitempty"`
}

type LoyaltyTier struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	MinPoints       int64   `json:"min_points"`
	PointMultiplier float64 `json:"point_multiplier"`
}

type Wholesaler struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type WholesalerCreateRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
}

type PurchaseOrderItem struct {
	ProductID          string `json:"product_id"`
	Quantity           int    `json:"quantity"`
	PurchasePriceLaari int64  `json:"purchase_price_laari"`
}

type PurchaseOrder struct {
	ID           string              `json:"id"`
	WholesalerID string              `json:"wholesaler_id"`
	Status       string              `json:"status"`
	Items        []PurchaseOrderItem `json:"items"`
	CreatedAt    time.Time           `json:"created_at"`
	ProcessedAt  *time.Time          `json:"processed_at,omitempty"`
}

type PurchaseOrderCreateRequest struct {
	WholesalerID string              `json:"wholesaler_id" validate:"required"`
	Items        []PurchaseOrderItem `json:"items" validate:"required,min=1"`
}

type DailyReport struct {
	ID                  string           `json:"id"`
	Date                string           `json:"date"`
	TransactionIDs      []string         `json:"transaction_ids"`
	TotalSalesLaari     int64            `json:"total_sales_laari"`
	TotalDiscountsLaari int64            `json:"total_discounts_laari"`
	TotalReturnsLaari   int64            `json:"total_returns_laari"`
	NetSalesLaari       int64            `json:"net_sales_laari"`
	TotalProfitLaari    int64            `json:"total_profit_laari"`
	PaymentBreakdown    map[string]int64 `json:"payment_breakdown"`
	CreatedAt           time.Time        `json:"created_at"`
}

type MonthlyStatement struct {
	ID             string    `json:"id"`
	CustomerID     string    `json:"customer_id"`
	PeriodYear     int       `json:"period_year"`
	PeriodMonth    int       `json:"period_month"`
	TransactionIDs []string  `json:"transaction_ids"`
	TotalDueLaari  int64     `json:"total_due_laari"`
	DueDate        time.Time `json:"due_date"`
	Status         string    `json:"status"`
	OverdueStatus  string    `json:"overdue_status"`
	CreatedAt      time.Time `json:"created_at"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type Actor struct {
	Username string
	Role     string
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type CashierCreateRequest struct {
	Username string `json:"username" validate:"required,min=4"`
	Password string `json:"password" validate:"required,min=6"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type PreviewRequest struct {
	CartItems     []CartItem `json:"cart_items" validate:"required,min=1"`
	PromotionCode string     `json:"promotion_code,omitempty"`
	GiftCardCode  string     `json:"gift_card_code,omitempty"`
}

type PreviewResponse struct {
	SubtotalLaari          int64 `json:"subtotal_laari"`
	PromoDiscountLaari     int64 `json:"promo_discount_laari"`
	GiftCardDeductionLaari int64 `json:"gift_card_deduction_laari"`
	TotalLaari             int64 `json:"total_laari"`
}

type CommitSaleRequest struct {
	CustomerID    string     `json:"customer_id"`
	CartItems     []CartItem `json:"cart_items" validate:"required,min=1"`
	PromotionCode string     `json:"promotion_code,omitempty"`
	GiftCardCode  string     `json:"gift_card_code,omitempty"`
	PaymentMethod string     `json:"payment_method"`
	Offline       bool       `json:"offline,omitempty"`
}

type CommitSaleResponse struct {
	Transaction   Transaction `json:"transaction"`
	PointsEarned  int64       `json:"points_earned"`
	LoyaltyTierID string      `json:"loyalty_tier_id,omitempty"`
	Queued        bool        `json:"queued"`
}

type ReturnRequest struct {
	TransactionID    string       `json:"transaction_id" validate:"required"`
	Items            []ReturnLine `json:"items" validate:"required,min=1"`
	IssueStoreCredit bool         `json:"issue_store_credit"`
}

type ReturnResponse struct {
	ReturnEvent      ReturnEvent `json:"return_event"`
	RefundValueLaari int64       `json:"refund_value_laari"`
	StoreCredit      *GiftCard   `json:"store_credit,omitempty"`
}

type AdjustStockRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Delta     int    `json:"delta" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

type SyncResponse struct {
	Flushed int `json:"flushed"`
}

type DepletionForecast struct {
	ProductID      string  `json:"product_id"`
	Name           string  `json:"name"`
	EffectiveStock int     `json:"effective_stock"`
	DailyVelocity  float64 `json:"daily_velocity"`
	DaysToStockout float64 `json:"days_to_stockout"`
}

type DepletionForecastResponse struct {
	GeneratedAt  string              `json:"generated_at"`
	LookbackDays int                 `json:"lookback_days"`
	Forecasts    []DepletionForecast `json:"forecasts"`
}

const (
	PaymentStatusPaid   = "paid"
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusReview = "review"
)

const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
	PaymentMethodGiftCard = "giftcard"
	PaymentMethodCredit   = "credit"
	PaymentMethodMultiple = "multiple"
)

const (
	InventoryEventSale       = "sale"
	InventoryEventReturn     = "return"
	InventoryEventPurchase   = "purchase"
	InventoryEventAdjustment = "adjustment"
)

const (
	PromotionTypePercentage = "percentage"
	PromotionTypeFixed      = "fixed"
)

const (
	PurchaseOrderPending   = "pending"
	PurchaseOrderProcessed = "processed"
)

const (
	StatementStatusDue  = "due"
	StatementStatusPaid = "paid"

	OverdueStatusNone      = "none"
	OverdueStatusSevenDays = "7_days_overdue"
)

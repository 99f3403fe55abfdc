package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"dhukaan/backend/internal/config"
	"dhukaan/backend/internal/domain"
	"dhukaan/backend/internal/forecast"
	"dhukaan/backend/internal/ident"
	"dhukaan/backend/internal/inventory"
	"dhukaan/backend/internal/queue"
	"dhukaan/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo       store.Repository
	offline    queue.OfflineQueue
	forecaster *forecast.Engine
	cfg        config.Config
	log        *logrus.Entry
}

func New(repo store.Repository, offline queue.OfflineQueue, forecaster *forecast.Engine, cfg config.Config, logger *logrus.Logger) *Service {
	if offline == nil {
		offline = queue.NewMemoryQueue()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Service{
		repo:       repo,
		offline:    offline,
		forecaster: forecaster,
		cfg:        cfg,
		log:        logger.WithField("component", "service"),
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.ProductView, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	catalog := make(map[string]domain.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}

	views := make([]domain.ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, domain.ProductView{
			Product:        p,
			EffectiveStock: inventory.EffectiveStock(p, catalog),
		})
	}
	return views, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.ProductView, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.ProductView{}, err
	}
	catalog, err := s.catalog(ctx)
	if err != nil {
		return domain.ProductView{}, err
	}
	return domain.ProductView{
		Product:        *product,
		EffectiveStock: inventory.EffectiveStock(*product, catalog),
	}, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.ProductView, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.ProductView{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Category == "" || req.PriceLaari < 1 || req.InitialStock < 0 {
		return domain.ProductView{}, store.ErrInvalidRequest
	}
	if req.IsBundle && req.InitialStock != 0 {
		return domain.ProductView{}, store.ErrInvalidRequest
	}

	product := domain.Product{
		Name:                req.Name,
		Category:            req.Category,
		PriceLaari:          req.PriceLaari,
		WholesalePriceLaari: req.WholesalePriceLaari,
		IsBundle:            req.IsBundle,
		BundleItems:         req.BundleItems,
		Active:              true,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.ProductView{}, err
	}

	if req.InitialStock > 0 {
		err := s.repo.ApplyStockDeltas(ctx, []domain.StockDelta{{
			ProductID: created.ID,
			Delta:     req.InitialStock,
			Type:      domain.InventoryEventAdjustment,
			Notes:     "initial stock",
		}})
		if err != nil {
			return domain.ProductView{}, err
		}
		created.Stock = req.InitialStock
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("name=%s,price=%d,stock=%d", created.Name, created.PriceLaari, req.InitialStock))

	catalog, err := s.catalog(ctx)
	if err != nil {
		return domain.ProductView{}, err
	}
	return domain.ProductView{
		Product:        *created,
		EffectiveStock: inventory.EffectiveStock(*created, catalog),
	}, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.ProductView, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.ProductView{}, fmt.Errorf("admin role required")
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.ProductView{}, err
	}

	if req.Name != nil {
		existing.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		existing.Category = strings.TrimSpace(*req.Category)
	}
	if req.PriceLaari != nil {
		existing.PriceLaari = *req.PriceLaari
	}
	if req.WholesalePriceLaari != nil {
		existing.WholesalePriceLaari = *req.WholesalePriceLaari
	}
	if req.Active != nil {
		existing.Active = *req.Active
	}

	updated, err := s.repo.UpdateProduct(ctx, *existing)
	if err != nil {
		return domain.ProductView{}, err
	}

	s.logAudit(ctx, "product_update", "product", updated.ID, fmt.Sprintf("name=%s,price=%d,active=%t", updated.Name, updated.PriceLaari, updated.Active))

	catalog, err := s.catalog(ctx)
	if err != nil {
		return domain.ProductView{}, err
	}
	return domain.ProductView{
		Product:        *updated,
		EffectiveStock: inventory.EffectiveStock(*updated, catalog),
	}, nil
}

// AdjustStock applies a manual correction with a mandatory reason, so every
// hand adjustment leaves an explainable inventory event.
func (s *Service) AdjustStock(ctx context.Context, req domain.AdjustStockRequest) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	if req.ProductID == "" || req.Delta == 0 || strings.TrimSpace(req.Reason) == "" {
		return store.ErrInvalidRequest
	}

	err := s.repo.ApplyStockDeltas(ctx, []domain.StockDelta{{
		ProductID: req.ProductID,
		Delta:     req.Delta,
		Type:      domain.InventoryEventAdjustment,
		Notes:     strings.TrimSpace(req.Reason),
	}})
	if err != nil {
		return err
	}

	s.logAudit(ctx, "stock_adjust", "product", req.ProductID, fmt.Sprintf("delta=%d,reason=%s", req.Delta, req.Reason))
	return nil
}

func (s *Service) ListInventoryEvents(ctx context.Context, productID string, limit int) ([]domain.InventoryEvent, error) {
	return s.repo.ListInventoryEvents(ctx, productID, limit)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.MaximumCreditLimitLaari < 0 {
		return domain.Customer{}, store.ErrInvalidRequest
	}

	limit := req.MaximumCreditLimitLaari
	if limit == 0 {
		limit = s.cfg.DefaultCreditLimitLaari
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:                    req.Name,
		Phone:                   strings.TrimSpace(req.Phone),
		MaximumCreditLimitLaari: limit,
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_create", "customer", created.ID, fmt.Sprintf("name=%s,credit_limit=%d", created.Name, created.MaximumCreditLimitLaari))
	return *created, nil
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	customer, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) UpdateCustomer(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Customer{}, fmt.Errorf("admin role required")
	}

	updated, err := s.repo.UpdateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit(ctx, "customer_update", "customer", updated.ID, fmt.Sprintf("credit_limit=%d", updated.MaximumCreditLimitLaari))
	return *updated, nil
}

func (s *Service) SetCustomerCreditBlocked(ctx context.Context, id string, blocked bool) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	if err := s.repo.SetCustomerCreditBlocked(ctx, id, blocked); err != nil {
		return err
	}
	s.logAudit(ctx, "customer_credit_block", "customer", id, fmt.Sprintf("blocked=%t", blocked))
	return nil
}

func (s *Service) ListLoyaltyTiers(ctx context.Context) ([]domain.LoyaltyTier, error) {
	return s.repo.ListLoyaltyTiers(ctx)
}

func (s *Service) CreateLoyaltyTier(ctx context.Context, tier domain.LoyaltyTier) (domain.LoyaltyTier, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.LoyaltyTier{}, fmt.Errorf("admin role required")
	}
	created, err := s.repo.CreateLoyaltyTier(ctx, tier)
	if err != nil {
		return domain.LoyaltyTier{}, err
	}
	s.logAudit(ctx, "loyalty_tier_create", "loyalty_tier", created.ID, fmt.Sprintf("name=%s,min_points=%d", created.Name, created.MinPoints))
	return *created, nil
}

func (s *Service) CreateGiftCard(ctx context.Context, req domain.GiftCardCreateRequest) (domain.GiftCard, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.GiftCard{}, fmt.Errorf("admin role required")
	}
	if req.InitialBalanceLaari < 1 {
		return domain.GiftCard{}, store.ErrInvalidRequest
	}

	card := domain.GiftCard{
		ID:                  strings.TrimSpace(req.Code),
		InitialBalanceLaari: req.InitialBalanceLaari,
		CustomerID:          strings.TrimSpace(req.CustomerID),
	}
	if req.ExpiresAt != "" {
		expires, err := time.Parse("2006-01-02", req.ExpiresAt)
		if err != nil {
			return domain.GiftCard{}, store.ErrInvalidRequest
		}
		card.ExpiresAt = &expires
	}

	created, err := s.repo.CreateGiftCard(ctx, card)
	if err != nil {
		return domain.GiftCard{}, err
	}
	s.logAudit(ctx, "gift_card_create", "gift_card", created.ID, fmt.Sprintf("balance=%d", created.InitialBalanceLaari))
	return *created, nil
}

func (s *Service) ListGiftCards(ctx context.Context) ([]domain.GiftCard, error) {
	return s.repo.ListGiftCards(ctx)
}

func (s *Service) GetGiftCard(ctx context.Context, code string) (domain.GiftCard, error) {
	card, err := s.repo.GetGiftCardByCode(ctx, code)
	if err != nil {
		return domain.GiftCard{}, err
	}
	return *card, nil
}

func (s *Service) SetGiftCardEnabled(ctx context.Context, code string, enabled bool) (domain.GiftCard, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.GiftCard{}, fmt.Errorf("admin role required")
	}
	card, err := s.repo.SetGiftCardEnabled(ctx, code, enabled)
	if err != nil {
		return domain.GiftCard{}, err
	}
	s.logAudit(ctx, "gift_card_toggle", "gift_card", card.ID, fmt.Sprintf("enabled=%t", enabled))
	return *card, nil
}

func (s *Service) CreatePromotion(ctx context.Context, req domain.PromotionCreateRequest) (domain.Promotion, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Promotion{}, fmt.Errorf("admin role required")
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Code == "" || req.Value <= 0 {
		return domain.Promotion{}, store.ErrInvalidRequest
	}
	if req.Type == domain.PromotionTypePercentage && req.Value > 100 {
		return domain.Promotion{}, store.ErrInvalidRequest
	}

	created, err := s.repo.CreatePromotion(ctx, domain.Promotion{
		Code:  req.Code,
		Type:  req.Type,
		Value: req.Value,
	})
	if err != nil {
		return domain.Promotion{}, err
	}
	s.logAudit(ctx, "promotion_create", "promotion", created.ID, fmt.Sprintf("code=%s,type=%s,value=%v", created.Code, created.Type, created.Value))
	return *created, nil
}

func (s *Service) UpdatePromotion(ctx context.Context, id string, req domain.PromotionUpdateRequest) (domain.Promotion, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Promotion{}, fmt.Errorf("admin role required")
	}

	promos, err := s.repo.ListPromotions(ctx)
	if err != nil {
		return domain.Promotion{}, err
	}
	var existing *domain.Promotion
	for i := range promos {
		if promos[i].ID == id {
			existing = &promos[i]
			break
		}
	}
	if existing == nil {
		return domain.Promotion{}, store.ErrNotFound
	}

	if req.Code != nil {
		existing.Code = strings.ToUpper(strings.TrimSpace(*req.Code))
	}
	if req.Type != nil {
		existing.Type = *req.Type
	}
	if req.Value != nil {
		existing.Value = *req.Value
	}
	if req.Active != nil {
		existing.Active = *req.Active
	}

	updated, err := s.repo.UpdatePromotion(ctx, *existing)
	if err != nil {
		return domain.Promotion{}, err
	}
	s.logAudit(ctx, "promotion_update", "promotion", updated.ID, fmt.Sprintf("code=%s,active=%t", updated.Code, updated.Active))
	return *updated, nil
}

func (s *Service) ListPromotions(ctx context.Context) ([]domain.Promotion, error) {
	return s.repo.ListPromotions(ctx)
}

func (s *Service) CreateWholesaler(ctx context.Context, req domain.WholesalerCreateRequest) (domain.Wholesaler, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Wholesaler{}, fmt.Errorf("admin role required")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Wholesaler{}, store.ErrInvalidRequest
	}
	created, err := s.repo.CreateWholesaler(ctx, domain.Wholesaler{
		Name:  req.Name,
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		return domain.Wholesaler{}, err
	}
	s.logAudit(ctx, "wholesaler_create", "wholesaler", created.ID, fmt.Sprintf("name=%s", created.Name))
	return *created, nil
}

func (s *Service) ListWholesalers(ctx context.Context) ([]domain.Wholesaler, error) {
	return s.repo.ListWholesalers(ctx)
}

func (s *Service) CreatePurchaseOrder(ctx context.Context, req domain.PurchaseOrderCreateRequest) (domain.PurchaseOrder, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.PurchaseOrder{}, fmt.Errorf("admin role required")
	}
	if req.WholesalerID == "" || len(req.Items) == 0 {
		return domain.PurchaseOrder{}, store.ErrInvalidRequest
	}

	created, err := s.repo.CreatePurchaseOrder(ctx, domain.PurchaseOrder{
		WholesalerID: req.WholesalerID,
		Items:        req.Items,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	s.logAudit(ctx, "purchase_order_create", "purchase_order", created.ID, fmt.Sprintf("wholesaler=%s,items=%d", created.WholesalerID, len(created.Items)))
	return *created, nil
}

func (s *Service) ListPurchaseOrders(ctx context.Context, status string, limit int) ([]domain.PurchaseOrder, error) {
	return s.repo.ListPurchaseOrders(ctx, status, limit)
}

func (s *Service) ProcessPurchaseOrder(ctx context.Context, id string) (domain.PurchaseOrder, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.PurchaseOrder{}, fmt.Errorf("admin role required")
	}

	processed, err := s.repo.ProcessPurchaseOrder(ctx, id, time.Now().UTC())
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	s.logAudit(ctx, "purchase_order_process", "purchase_order", processed.ID, fmt.Sprintf("items=%d", len(processed.Items)))
	return *processed, nil
}

func (s *Service) CreateCashier(ctx context.Context, req domain.CashierCreateRequest) (domain.CashierUser, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.CashierUser{}, fmt.Errorf("admin role required")
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if len(req.Username) < 4 || len(req.Password) < 6 {
		return domain.CashierUser{}, store.ErrInvalidRequest
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.CashierUser{}, err
	}

	user := domain.UserAccount{
		Username:  req.Username,
		Password:  string(hash),
		Role:      "cashier",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return domain.CashierUser{}, err
	}

	s.logAudit(ctx, "cashier_create", "user", user.Username, "role=cashier")
	return domain.CashierUser{
		Username:  user.Username,
		Role:      user.Role,
		Active:    user.Active,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (s *Service) ListCashiers(ctx context.Context) ([]domain.CashierUser, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]domain.CashierUser, 0, len(users))
	for _, u := range users {
		result = append(result, domain.CashierUser{
			Username:  u.Username,
			Role:      u.Role,
			Active:    u.Active,
			CreatedAt: u.CreatedAt,
		})
	}
	return result, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	var from, to time.Time
	if date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, store.ErrInvalidRequest
		}
		from = day
		to = day.Add(24 * time.Hour)
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

// DepletionForecast projects which products run out inside the threshold
// window, based on sale velocity over the configured lookback.
func (s *Service) DepletionForecast(ctx context.Context) (domain.DepletionForecastResponse, error) {
	catalog, err := s.catalog(ctx)
	if err != nil {
		return domain.DepletionForecastResponse{}, err
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -s.forecaster.LookbackDays())
	saleSums, err := s.repo.SumSaleQuantities(ctx, from, now)
	if err != nil {
		return domain.DepletionForecastResponse{}, err
	}

	return s.forecaster.Forecast(ctx, catalog, saleSums, now), nil
}

func (s *Service) catalog(ctx context.Context) (map[string]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	catalog := make(map[string]domain.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}
	return catalog, nil
}

func normalizeItems(items []domain.CartItem) []domain.CartItem {
	agg := make(map[string]int, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		if item.ProductID == "" || item.Quantity < 1 {
			continue
		}
		if _, seen := agg[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		agg[item.ProductID] += item.Quantity
	}

	normalized := make([]domain.CartItem, 0, len(agg))
	for _, id := range order {
		normalized = append(normalized, domain.CartItem{ProductID: id, Quantity: agg[id]})
	}
	return normalized
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            ident.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"action": action,
			"entity": entityType + "/" + entityID,
		}).Warn("failed to write audit log")
	}
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case domain.PaymentMethodCash, domain.PaymentMethodCard, domain.PaymentMethodTransfer,
		domain.PaymentMethodGiftCard, domain.PaymentMethodCredit, domain.PaymentMethodMultiple:
		return true
	}
	return false
}

// IsNotFound reports whether err maps to a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

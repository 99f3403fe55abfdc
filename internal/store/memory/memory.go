package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"dhukaan/backend/internal/domain"
	"dhukaan/backend/internal/ident"
	"dhukaan/backend/internal/store"
)

type Store struct {
	mu               sync.RWMutex
	products         map[string]domain.Product
	events           []domain.InventoryEvent
	customers        map[string]domain.Customer
	tiersByID        map[string]domain.LoyaltyTier
	giftCardsByID    map[string]domain.GiftCard
	promosByID       map[string]domain.Promotion
	wholesalersByID  map[string]domain.Wholesaler
	purchaseOrders   map[string]domain.PurchaseOrder
	transactionsByID map[string]*domain.Transaction
	reports          []domain.DailyReport
	reportedTx       map[string]struct{}
	statementsByID   map[string]domain.MonthlyStatement
	auditLogs        []domain.AuditLog
	usersByUsername  map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; when
// unset, hardcoded dev defaults are used with a warning. The in-memory store
// is never used in production (set DATABASE_URL for PostgreSQL).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	products := []domain.Product{
		{ID: "p-rice-5kg", Name: "Basmati Rice 5kg", Category: "grocery", PriceLaari: 14500, WholesalePriceLaari: 11200, Stock: 60, Active: true},
		{ID: "p-tuna-can", Name: "Canned Tuna 185g", Category: "grocery", PriceLaari: 2400, WholesalePriceLaari: 1700, Stock: 180, Active: true},
		{ID: "p-coconut", Name: "Young Coconut", Category: "produce", PriceLaari: 1500, WholesalePriceLaari: 900, Stock: 90, Active: true},
		{ID: "p-roshi-flour", Name: "Roshi Flour 1kg", Category: "grocery", PriceLaari: 1900, WholesalePriceLaari: 1300, Stock: 120, Active: true},
		{ID: "p-chili-paste", Name: "Rihaakuru Jar", Category: "grocery", PriceLaari: 5500, WholesalePriceLaari: 3900, Stock: 40, Active: true},
		{ID: "p-tea-pack", Name: "Black Tea 100 Bags", Category: "beverage", PriceLaari: 4200, WholesalePriceLaari: 3000, Stock: 55, Active: true},
		{ID: "p-sugar-1kg", Name: "Sugar 1kg", Category: "grocery", PriceLaari: 2100, WholesalePriceLaari: 1500, Stock: 75, Active: true},
		{ID: "p-soap-bar", Name: "Bath Soap Bar", Category: "household", PriceLaari: 1100, WholesalePriceLaari: 700, Stock: 140, Active: true},
		{
			ID: "p-breakfast-set", Name: "Mas Huni Breakfast Set", Category: "bundle",
			PriceLaari: 5200, WholesalePriceLaari: 0, IsBundle: true, Active: true,
			BundleItems: []domain.BundleComponent{
				{ComponentID: "p-tuna-can", Quantity: 1},
				{ComponentID: "p-coconut", Quantity: 1},
				{ComponentID: "p-roshi-flour", Quantity: 1},
			},
		},
		{
			ID: "p-tea-time-set", Name: "Tea Time Set", Category: "bundle",
			PriceLaari: 5800, WholesalePriceLaari: 0, IsBundle: true, Active: true,
			BundleItems: []domain.BundleComponent{
				{ComponentID: "p-tea-pack", Quantity: 1},
				{ComponentID: "p-sugar-1kg", Quantity: 1},
			},
		},
	}

	tiers := []domain.LoyaltyTier{
		{ID: "tier-bronze", Name: "Bronze", MinPoints: 0, PointMultiplier: 1.0},
		{ID: "tier-silver", Name: "Silver", MinPoints: 500, PointMultiplier: 1.25},
		{ID: "tier-gold", Name: "Gold", MinPoints: 2000, PointMultiplier: 1.5},
	}

	customers := []domain.Customer{
		{ID: "cust-walkin", Name: "Walk-in", MaximumCreditLimitLaari: 0, LoyaltyTierID: "tier-bronze"},
		{ID: "cust-hassan", Name: "Hassan Waheed", Phone: "+960 777 1010", MaximumCreditLimitLaari: 50000, LoyaltyPoints: 450, LoyaltyTierID: "tier-bronze"},
		{ID: "cust-aminath", Name: "Aminath Shifa", Phone: "+960 999 2020", MaximumCreditLimitLaari: 150000, LoyaltyPoints: 1200, LoyaltyTierID: "tier-silver"},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}
	customerMap := make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		customerMap[c.ID] = c
	}
	tierMap := make(map[string]domain.LoyaltyTier, len(tiers))
	for _, t := range tiers {
		tierMap[t.ID] = t
	}

	return &Store{
		products:  productMap,
		events:    make([]domain.InventoryEvent, 0, 256),
		customers: customerMap,
		tiersByID: tierMap,
		giftCardsByID: map[string]domain.GiftCard{
			"GC-EIDH-2026": {ID: "GC-EIDH-2026", InitialBalanceLaari: 10000, CurrentBalanceLaari: 10000, Enabled: true},
		},
		promosByID: map[string]domain.Promotion{
			"promo-ramazan": {ID: "promo-ramazan", Code: "RAMAZAN10", Type: domain.PromotionTypePercentage, Value: 10, Active: true},
		},
		wholesalersByID: map[string]domain.Wholesaler{
			"ws-male-trading": {ID: "ws-male-trading", Name: "Male' Trading Co", Phone: "+960 330 4455", CreatedAt: time.Now().UTC()},
		},
		purchaseOrders:   make(map[string]domain.PurchaseOrder),
		transactionsByID: make(map[string]*domain.Transaction),
		reports:          make([]domain.DailyReport, 0, 32),
		reportedTx:       make(map[string]struct{}),
		statementsByID:   make(map[string]domain.MonthlyStatement),
		auditLogs:        make([]domain.AuditLog, 0, 128),
		usersByUsername:  seedUsers(),
	}
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, cloneProduct(p))
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.Category == "" || product.PriceLaari < 1 {
		return nil, store.ErrInvalidRequest
	}
	if product.ID == "" {
		product.ID = ident.New("p")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrInvalidRequest
	}
	if product.IsBundle {
		if len(product.BundleItems) == 0 {
			return nil, store.ErrInvalidRequest
		}
		for _, item := range product.BundleItems {
			component, ok := s.products[item.ComponentID]
			if !ok || component.IsBundle || item.Quantity < 1 {
				return nil, store.ErrInvalidRequest
			}
		}
		product.Stock = 0
	}

	product.Active = true
	s.products[product.ID] = cloneProduct(product)
	created := cloneProduct(product)
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := cloneProduct(product)
	return &copyProduct, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Name == "" || product.Category == "" || product.PriceLaari < 1 {
		return nil, store.ErrInvalidRequest
	}
	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}

	// The stock level and bundle recipe only change through stock deltas
	// and dedicated flows, never through a plain product update.
	product.Stock = existing.Stock
	product.IsBundle = existing.IsBundle
	product.BundleItems = existing.BundleItems
	s.products[product.ID] = cloneProduct(product)
	updated := cloneProduct(product)
	return &updated, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok && p.Active {
			result[id] = cloneProduct(p)
		}
	}
	return result, nil
}

func (s *Store) ApplyStockDeltas(_ context.Context, deltas []domain.StockDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyStockDeltasLocked(deltas, time.Now().UTC())
}

// applyStockDeltasLocked applies a batch all-or-nothing: it first verifies
// every resulting stock level stays non-negative, then mutates and records
// one inventory event per delta. Callers hold the write lock.
func (s *Store) applyStockDeltasLocked(deltas []domain.StockDelta, at time.Time) error {
	for _, d := range deltas {
		product, exists := s.products[d.ProductID]
		if !exists {
			return fmt.Errorf("product %s unavailable", d.ProductID)
		}
		if product.IsBundle {
			return fmt.Errorf("product %s is a bundle and holds no stock", d.ProductID)
		}
		if d.Delta == 0 || d.Type == "" {
			return store.ErrInvalidRequest
		}
		if product.Stock+d.Delta < 0 {
			return store.ErrInsufficientStock
		}
	}

	for _, d := range deltas {
		product := s.products[d.ProductID]
		product.Stock += d.Delta
		s.products[d.ProductID] = product
		s.events = append(s.events, domain.InventoryEvent{
			ID:             ident.New("ev"),
			ProductID:      d.ProductID,
			Type:           d.Type,
			QuantityChange: d.Delta,
			Date:           at,
			RelatedID:      d.RelatedID,
			Notes:          d.Notes,
		})
	}
	return nil
}

func (s *Store) ListInventoryEvents(_ context.Context, productID string, limit int) ([]domain.InventoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 200
	}
	result := make([]domain.InventoryEvent, 0, limit)
	for _, ev := range s.events {
		if productID != "" && ev.ProductID != productID {
			continue
		}
		result = append(result, ev)
	}

	slices.SortFunc(result, func(a, b domain.InventoryEvent) int {
		if a.Date.Equal(b.Date) {
			return cmpString(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) SumSaleQuantities(_ context.Context, from time.Time, to time.Time) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[string]int)
	for _, ev := range s.events {
		if ev.Type != domain.InventoryEventSale {
			continue
		}
		if ev.Date.Before(from) || !ev.Date.Before(to) {
			continue
		}
		sums[ev.ProductID] += -ev.QuantityChange
	}
	return sums, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.Name == "" || customer.MaximumCreditLimitLaari < 0 {
		return nil, store.ErrInvalidRequest
	}
	if customer.ID == "" {
		customer.ID = ident.New("cust")
	}
	if _, exists := s.customers[customer.ID]; exists {
		return nil, store.ErrInvalidRequest
	}

	s.customers[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customers[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCustomer := customer
	return &copyCustomer, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" || customer.Name == "" || customer.MaximumCreditLimitLaari < 0 {
		return nil, store.ErrInvalidRequest
	}
	existing, exists := s.customers[customer.ID]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Loyalty state and the credit block only move through their own flows.
	customer.LoyaltyPoints = existing.LoyaltyPoints
	customer.LoyaltyTierID = existing.LoyaltyTierID
	customer.CreditBlocked = existing.CreditBlocked
	s.customers[customer.ID] = customer
	updated := customer
	return &updated, nil
}

func (s *Store) SetCustomerCreditBlocked(_ context.Context, id string, blocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, exists := s.customers[id]
	if !exists {
		return store.ErrNotFound
	}
	customer.CreditBlocked = blocked
	s.customers[id] = customer
	return nil
}

func (s *Store) ListLoyaltyTiers(_ context.Context) ([]domain.LoyaltyTier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tiers := make([]domain.LoyaltyTier, 0, len(s.tiersByID))
	for _, t := range s.tiersByID {
		tiers = append(tiers, t)
	}
	slices.SortFunc(tiers, func(a, b domain.LoyaltyTier) int {
		if a.MinPoints == b.MinPoints {
			return cmpString(a.ID, b.ID)
		}
		if a.MinPoints < b.MinPoints {
			return -1
		}
		return 1
	})
	return tiers, nil
}

func (s *Store) CreateLoyaltyTier(_ context.Context, tier domain.LoyaltyTier) (*domain.LoyaltyTier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tier.Name == "" || tier.MinPoints < 0 || tier.PointMultiplier < 1 {
		return nil, store.ErrInvalidRequest
	}
	if tier.ID == "" {
		tier.ID = ident.New("tier")
	}
	if _, exists := s.tiersByID[tier.ID]; exists {
		return nil, store.ErrInvalidRequest
	}
	s.tiersByID[tier.ID] = tier
	created := tier
	return &created, nil
}

func (s *Store) CreateGiftCard(_ context.Context, card domain.GiftCard) (*domain.GiftCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if card.InitialBalanceLaari < 1 {
		return nil, store.ErrInvalidRequest
	}
	if card.ID == "" {
		card.ID = strings.ToUpper(ident.New("gc"))
	} else {
		card.ID = strings.ToUpper(card.ID)
	}
	if _, exists := s.giftCardsByID[card.ID]; exists {
		return nil, store.ErrInvalidRequest
	}
	card.CurrentBalanceLaari = card.InitialBalanceLaari
	card.Enabled = true
	s.giftCardsByID[card.ID] = cloneGiftCard(card)
	created := cloneGiftCard(card)
	return &created, nil
}

func (s *Store) GetGiftCardByCode(_ context.Context, code string) (*domain.GiftCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	card, exists := s.giftCardsByID[strings.ToUpper(code)]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCard := cloneGiftCard(card)
	return &copyCard, nil
}

func (s *Store) ListGiftCards(_ context.Context) ([]domain.GiftCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cards := make([]domain.GiftCard, 0, len(s.giftCardsByID))
	for _, c := range s.giftCardsByID {
		cards = append(cards, cloneGiftCard(c))
	}
	slices.SortFunc(cards, func(a, b domain.GiftCard) int {
		return cmpString(a.ID, b.ID)
	})
	return cards, nil
}

func (s *Store) SetGiftCardEnabled(_ context.Context, code string, enabled bool) (*domain.GiftCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToUpper(code)
	card, exists := s.giftCardsByID[key]
	if !exists {
		return nil, store.ErrNotFound
	}
	card.Enabled = enabled
	s.giftCardsByID[key] = card
	updated := cloneGiftCard(card)
	return &updated, nil
}

func (s *Store) CreatePromotion(_ context.Context, promo domain.Promotion) (*domain.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if promo.Code == "" || promo.Value <= 0 {
		return nil, store.ErrInvalidRequest
	}
	if promo.Type != domain.PromotionTypePercentage && promo.Type != domain.PromotionTypeFixed {
		return nil, store.ErrInvalidRequest
	}
	for _, existing := range s.promosByID {
		if strings.EqualFold(existing.Code, promo.Code) {
			return nil, store.ErrDuplicatePromotionCode
		}
	}
	if promo.ID == "" {
		promo.ID = ident.New("promo")
	}
	promo.Active = true
	s.promosByID[promo.ID] = promo
	created := promo
	return &created, nil
}

func (s *Store) UpdatePromotion(_ context.Context, promo domain.Promotion) (*domain.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if promo.ID == "" || promo.Code == "" || promo.Value <= 0 {
		return nil, store.ErrInvalidRequest
	}
	if _, exists := s.promosByID[promo.ID]; !exists {
		return nil, store.ErrNotFound
	}
	for id, existing := range s.promosByID {
		if id != promo.ID && strings.EqualFold(existing.Code, promo.Code) {
			return nil, store.ErrDuplicatePromotionCode
		}
	}
	s.promosByID[promo.ID] = promo
	updated := promo
	return &updated, nil
}

func (s *Store) ListPromotions(_ context.Context) ([]domain.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	promos := make([]domain.Promotion, 0, len(s.promosByID))
	for _, p := range s.promosByID {
		promos = append(promos, p)
	}
	slices.SortFunc(promos, func(a, b domain.Promotion) int {
		return cmpString(a.Code, b.Code)
	})
	return promos, nil
}

func (s *Store) GetPromotionByCode(_ context.Context, code string) (*domain.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.promosByID {
		if strings.EqualFold(p.Code, code) {
			copyPromo := p
			return &copyPromo, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateWholesaler(_ context.Context, wholesaler domain.Wholesaler) (*domain.Wholesaler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if wholesaler.Name == "" {
		return nil, store.ErrInvalidRequest
	}
	if wholesaler.ID == "" {
		wholesaler.ID = ident.New("ws")
	}
	if _, exists := s.wholesalersByID[wholesaler.ID]; exists {
		return nil, store.ErrInvalidRequest
	}
	if wholesaler.CreatedAt.IsZero() {
		wholesaler.CreatedAt = time.Now().UTC()
	}
	s.wholesalersByID[wholesaler.ID] = wholesaler
	created := wholesaler
	return &created, nil
}

func (s *Store) ListWholesalers(_ context.Context) ([]domain.Wholesaler, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wholesalers := make([]domain.Wholesaler, 0, len(s.wholesalersByID))
	for _, w := range s.wholesalersByID {
		wholesalers = append(wholesalers, w)
	}
	slices.SortFunc(wholesalers, func(a, b domain.Wholesaler) int {
		return cmpString(a.Name, b.Name)
	})
	return wholesalers, nil
}

func (s *Store) CreatePurchaseOrder(_ context.Context, po domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if po.WholesalerID == "" || len(po.Items) == 0 {
		return nil, store.ErrInvalidRequest
	}
	if _, exists := s.wholesalersByID[po.WholesalerID]; !exists {
		return nil, store.ErrNotFound
	}
	for _, item := range po.Items {
		product, ok := s.products[item.ProductID]
		if !ok || product.IsBundle || item.Quantity < 1 || item.PurchasePriceLaari < 0 {
			return nil, store.ErrInvalidRequest
		}
	}
	if po.ID == "" {
		po.ID = ident.New("po")
	}
	po.Status = domain.PurchaseOrderPending
	po.ProcessedAt = nil
	if po.CreatedAt.IsZero() {
		po.CreatedAt = time.Now().UTC()
	}
	s.purchaseOrders[po.ID] = clonePurchaseOrder(po)
	created := clonePurchaseOrder(po)
	return &created, nil
}

func (s *Store) GetPurchaseOrderByID(_ context.Context, id string) (*domain.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	po, exists := s.purchaseOrders[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyPO := clonePurchaseOrder(po)
	return &copyPO, nil
}

func (s *Store) ListPurchaseOrders(_ context.Context, status string, limit int) ([]domain.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	orders := make([]domain.PurchaseOrder, 0, len(s.purchaseOrders))
	for _, po := range s.purchaseOrders {
		if status != "" && po.Status != status {
			continue
		}
		orders = append(orders, clonePurchaseOrder(po))
	}
	slices.SortFunc(orders, func(a, b domain.PurchaseOrder) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

// ProcessPurchaseOrder moves a pending order to processed and restocks its
// items in the same critical section, so stock and status never disagree.
func (s *Store) ProcessPurchaseOrder(_ context.Context, id string, at time.Time) (*domain.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	po, exists := s.purchaseOrders[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	if po.Status != domain.PurchaseOrderPending {
		return nil, store.ErrInvalidRequest
	}

	deltas := make([]domain.StockDelta, 0, len(po.Items))
	for _, item := range po.Items {
		deltas = append(deltas, domain.StockDelta{
			ProductID: item.ProductID,
			Delta:     item.Quantity,
			Type:      domain.InventoryEventPurchase,
			RelatedID: po.ID,
		})
	}
	if err := s.applyStockDeltasLocked(deltas, at); err != nil {
		return nil, err
	}

	po.Status = domain.PurchaseOrderProcessed
	processedAt := at
	po.ProcessedAt = &processedAt
	s.purchaseOrders[id] = clonePurchaseOrder(po)
	processed := clonePurchaseOrder(po)
	return &processed, nil
}

// CommitSale persists a transaction, applies its stock deltas, debits its
// gift card payments and settles any loyalty update in one critical section.
// Any failure leaves nothing applied.
func (s *Store) CommitSale(_ context.Context, tx domain.Transaction, deltas []domain.StockDelta, loyalty *store.LoyaltyUpdate) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" || len(tx.Items) == 0 {
		return nil, store.ErrInvalidRequest
	}
	if _, exists := s.transactionsByID[tx.ID]; exists {
		return nil, store.ErrInvalidRequest
	}

	for _, payment := range tx.GiftCardPayments {
		card, ok := s.giftCardsByID[strings.ToUpper(payment.CardID)]
		if !ok || !card.Enabled {
			return nil, store.ErrInvalidGiftCard
		}
		if payment.AmountLaari < 1 || card.CurrentBalanceLaari < payment.AmountLaari {
			return nil, store.ErrInvalidGiftCard
		}
	}

	if loyalty != nil {
		if loyalty.Points < 0 {
			return nil, store.ErrInvalidRequest
		}
		if _, exists := s.customers[loyalty.CustomerID]; !exists {
			return nil, store.ErrNotFound
		}
	}

	if err := s.applyStockDeltasLocked(deltas, tx.CreatedAt); err != nil {
		return nil, err
	}

	for _, payment := range tx.GiftCardPayments {
		key := strings.ToUpper(payment.CardID)
		card := s.giftCardsByID[key]
		card.CurrentBalanceLaari -= payment.AmountLaari
		s.giftCardsByID[key] = card
	}

	if loyalty != nil {
		customer := s.customers[loyalty.CustomerID]
		customer.LoyaltyPoints = loyalty.Points
		if loyalty.TierID != "" {
			customer.LoyaltyTierID = loyalty.TierID
		}
		s.customers[loyalty.CustomerID] = customer
	}

	stored := cloneTransaction(&tx)
	s.transactionsByID[tx.ID] = stored
	committed := cloneTransaction(stored)
	return committed, nil
}

// AppendTransactions inserts already-settled transaction records, the shape
// an offline queue flush produces. Stock and gift card side effects were
// applied when each sale was taken, so only the records land here. Records
// already present are skipped to keep a replayed flush harmless.
func (s *Store) AppendTransactions(_ context.Context, txs []domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range txs {
		if tx.ID == "" || len(tx.Items) == 0 {
			return store.ErrInvalidRequest
		}
		if _, exists := s.transactionsByID[tx.ID]; exists {
			continue
		}
		s.transactionsByID[tx.ID] = cloneTransaction(&tx)
	}
	return nil
}

func (s *Store) GetTransactionByID(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactionsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneTransaction(tx), nil
}

func (s *Store) ListTransactions(_ context.Context, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = len(s.transactionsByID)
	}
	txs := make([]domain.Transaction, 0, len(s.transactionsByID))
	for _, tx := range s.transactionsByID {
		txs = append(txs, *cloneTransaction(tx))
	}
	slices.SortFunc(txs, func(a, b domain.Transaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func (s *Store) ListCustomerTransactions(_ context.Context, customerID string, paymentStatus string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := make([]domain.Transaction, 0, 16)
	for _, tx := range s.transactionsByID {
		if tx.CustomerID != customerID {
			continue
		}
		if paymentStatus != "" && tx.PaymentStatus != paymentStatus {
			continue
		}
		txs = append(txs, *cloneTransaction(tx))
	}
	slices.SortFunc(txs, func(a, b domain.Transaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return txs, nil
}

func (s *Store) SetTransactionPaymentStatus(_ context.Context, id string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactionsByID[id]
	if !ok {
		return store.ErrNotFound
	}
	if status != domain.PaymentStatusPaid && status != domain.PaymentStatusUnpaid && status != domain.PaymentStatusReview {
		return store.ErrInvalidRequest
	}
	tx.PaymentStatus = status
	return nil
}

// AppendReturnEvent records a return against its transaction, restocks the
// returned components and optionally mints a store-credit gift card, all in
// one critical section.
func (s *Store) AppendReturnEvent(_ context.Context, transactionID string, event domain.ReturnEvent, deltas []domain.StockDelta, storeCredit *domain.GiftCard) (*domain.ReturnEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactionsByID[transactionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if event.ID == "" || len(event.Items) == 0 {
		return nil, store.ErrInvalidRequest
	}

	if storeCredit != nil {
		if storeCredit.ID == "" || storeCredit.InitialBalanceLaari < 1 {
			return nil, store.ErrInvalidRequest
		}
		if _, exists := s.giftCardsByID[strings.ToUpper(storeCredit.ID)]; exists {
			return nil, store.ErrInvalidRequest
		}
	}

	if err := s.applyStockDeltasLocked(deltas, event.Date); err != nil {
		return nil, err
	}

	if storeCredit != nil {
		card := cloneGiftCard(*storeCredit)
		card.ID = strings.ToUpper(card.ID)
		card.CurrentBalanceLaari = card.InitialBalanceLaari
		card.Enabled = true
		s.giftCardsByID[card.ID] = card
		event.StoreCreditCardID = card.ID
	}

	tx.Returns = append(tx.Returns, cloneReturnEvent(event))
	recorded := cloneReturnEvent(event)
	return &recorded, nil
}

// CreateDailyReport persists a settlement report and marks its transactions
// as reported in the same critical section. A transaction that already
// belongs to an earlier report rejects the whole batch.
func (s *Store) CreateDailyReport(_ context.Context, report domain.DailyReport) (*domain.DailyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if report.ID == "" || report.Date == "" {
		return nil, store.ErrInvalidRequest
	}
	for _, txID := range report.TransactionIDs {
		if _, ok := s.transactionsByID[txID]; !ok {
			return nil, store.ErrNotFound
		}
		if _, reported := s.reportedTx[txID]; reported {
			return nil, store.ErrInvalidRequest
		}
	}

	for _, txID := range report.TransactionIDs {
		s.reportedTx[txID] = struct{}{}
	}
	s.reports = append(s.reports, cloneDailyReport(report))
	created := cloneDailyReport(report)
	return &created, nil
}

func (s *Store) ListDailyReports(_ context.Context, limit int) ([]domain.DailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 50
	}
	reports := make([]domain.DailyReport, 0, len(s.reports))
	for _, r := range s.reports {
		reports = append(reports, cloneDailyReport(r))
	}
	slices.SortFunc(reports, func(a, b domain.DailyReport) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

func (s *Store) ReportedTransactionIDs(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reported := make(map[string]struct{}, len(s.reportedTx))
	for id := range s.reportedTx {
		reported[id] = struct{}{}
	}
	return reported, nil
}

func (s *Store) CreateMonthlyStatement(_ context.Context, statement domain.MonthlyStatement) (*domain.MonthlyStatement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if statement.CustomerID == "" || statement.PeriodYear < 2000 || statement.PeriodMonth < 1 || statement.PeriodMonth > 12 {
		return nil, store.ErrInvalidRequest
	}
	if _, ok := s.customers[statement.CustomerID]; !ok {
		return nil, store.ErrNotFound
	}
	for _, existing := range s.statementsByID {
		if existing.CustomerID == statement.CustomerID &&
			existing.PeriodYear == statement.PeriodYear &&
			existing.PeriodMonth == statement.PeriodMonth {
			return nil, store.ErrInvalidRequest
		}
	}
	if statement.ID == "" {
		statement.ID = ident.New("stmt")
	}
	if statement.CreatedAt.IsZero() {
		statement.CreatedAt = time.Now().UTC()
	}
	s.statementsByID[statement.ID] = cloneStatement(statement)
	created := cloneStatement(statement)
	return &created, nil
}

func (s *Store) ListMonthlyStatements(_ context.Context, customerID string, status string) ([]domain.MonthlyStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statements := make([]domain.MonthlyStatement, 0, len(s.statementsByID))
	for _, st := range s.statementsByID {
		if customerID != "" && st.CustomerID != customerID {
			continue
		}
		if status != "" && st.Status != status {
			continue
		}
		statements = append(statements, cloneStatement(st))
	}
	slices.SortFunc(statements, func(a, b domain.MonthlyStatement) int {
		if a.PeriodYear != b.PeriodYear {
			if a.PeriodYear > b.PeriodYear {
				return -1
			}
			return 1
		}
		if a.PeriodMonth != b.PeriodMonth {
			if a.PeriodMonth > b.PeriodMonth {
				return -1
			}
			return 1
		}
		return cmpString(a.CustomerID, b.CustomerID)
	})
	return statements, nil
}

func (s *Store) UpdateMonthlyStatement(_ context.Context, statement domain.MonthlyStatement) (*domain.MonthlyStatement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if statement.ID == "" {
		return nil, store.ErrInvalidRequest
	}
	if _, exists := s.statementsByID[statement.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.statementsByID[statement.ID] = cloneStatement(statement)
	updated := cloneStatement(statement)
	return &updated, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = ident.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 200
	}
	result := make([]domain.AuditLog, 0, limit)
	for _, entry := range s.auditLogs {
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && entry.CreatedAt.After(to) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" || user.Role == "" {
		return store.ErrInvalidRequest
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidRequest
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	if password == "" {
		return store.ErrInvalidRequest
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneProduct(src domain.Product) domain.Product {
	clone := src
	clone.BundleItems = append([]domain.BundleComponent(nil), src.BundleItems...)
	return clone
}

func cloneGiftCard(src domain.GiftCard) domain.GiftCard {
	clone := src
	if src.ExpiresAt != nil {
		expires := *src.ExpiresAt
		clone.ExpiresAt = &expires
	}
	return clone
}

func clonePurchaseOrder(src domain.PurchaseOrder) domain.PurchaseOrder {
	clone := src
	clone.Items = append([]domain.PurchaseOrderItem(nil), src.Items...)
	if src.ProcessedAt != nil {
		processed := *src.ProcessedAt
		clone.ProcessedAt = &processed
	}
	return clone
}

func cloneReturnEvent(src domain.ReturnEvent) domain.ReturnEvent {
	clone := src
	clone.Items = append([]domain.ReturnLine(nil), src.Items...)
	return clone
}

func cloneTransaction(src *domain.Transaction) *domain.Transaction {
	clone := *src
	clone.Items = append([]domain.TransactionLine(nil), src.Items...)
	clone.GiftCardPayments = append([]domain.GiftCardPayment(nil), src.GiftCardPayments...)
	clone.Returns = make([]domain.ReturnEvent, 0, len(src.Returns))
	for _, ret := range src.Returns {
		clone.Returns = append(clone.Returns, cloneReturnEvent(ret))
	}
	return &clone
}

func cloneDailyReport(src domain.DailyReport) domain.DailyReport {
	clone := src
	clone.TransactionIDs = append([]string(nil), src.TransactionIDs...)
	if src.PaymentBreakdown != nil {
		clone.PaymentBreakdown = make(map[string]int64, len(src.PaymentBreakdown))
		for k, v := range src.PaymentBreakdown {
			clone.PaymentBreakdown[k] = v
		}
	}
	return clone
}

func cloneStatement(src domain.MonthlyStatement) domain.MonthlyStatement {
	clone := src
	clone.TransactionIDs = append([]string(nil), src.TransactionIDs...)
	return clone
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"dhukaan/backend/internal/domain"
	"dhukaan/backend/internal/ident"
	"dhukaan/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, price_laari, wholesale_price_laari, stock, is_bundle, bundle_items, active
		FROM products
		WHERE active = true
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var bundleRaw []byte
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.PriceLaari, &p.WholesalePriceLaari, &p.Stock, &p.IsBundle, &bundleRaw, &p.Active); err != nil {
		return domain.Product{}, err
	}
	if len(bundleRaw) > 0 {
		if err := json.Unmarshal(bundleRaw, &p.BundleItems); err != nil {
			return domain.Product{}, err
		}
	}
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Category == "" || product.PriceLaari < 1 {
		return nil, store.ErrInvalidRequest
	}
	if product.ID == "" {
		product.ID = ident.New("p")
	}
	if product.IsBundle {
		if len(product.BundleItems) == 0 {
			return nil, store.ErrInvalidRequest
		}
		product.Stock = 0
	}
	product.Active = true

	bundleRaw, err := json.Marshal(product.BundleItems)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, price_laari, wholesale_price_laari, stock, is_bundle, bundle_items, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now(),now())
	`, product.ID, product.Name, product.Category, product.PriceLaari, product.WholesalePriceLaari, product.Stock, product.IsBundle, bundleRaw, product.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, price_laari, wholesale_price_laari, stock, is_bundle, bundle_items, active
		FROM products
		WHERE id = $1
	`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Category == "" || product.PriceLaari < 1 {
		return nil, store.ErrInvalidRequest
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, price_laari = $4, wholesale_price_laari = $5, active = $6, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Category, product.PriceLaari, product.WholesalePriceLaari, product.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProductByID(ctx, product.ID)
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, price_laari, wholesale_price_laari, stock, is_bundle, bundle_items, active
		FROM products
		WHERE active = true AND id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) ApplyStockDeltas(ctx context.Context, deltas []domain.StockDelta) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := applyDeltasTx(ctx, tx, deltas, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

// applyDeltasTx mutates stock and records one inventory event per delta
// inside the caller's transaction. A delta that would push stock negative
// fails the batch.
func applyDeltasTx(ctx context.Context, tx *sql.Tx, deltas []domain.StockDelta, at time.Time) error {
	for _, d := range deltas {
		if d.Delta == 0 || d.Type == "" {
			return store.ErrInvalidRequest
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock + $2, updated_at = now()
			WHERE id = $1 AND is_bundle = false AND stock + $2 >= 0
		`, d.ProductID, d.Delta)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `
				SELECT EXISTS(SELECT 1 FROM products WHERE id = $1 AND is_bundle = false)
			`, d.ProductID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return store.ErrNotFound
			}
			return store.ErrInsufficientStock
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO inventory_events (id, product_id, type, quantity_change, date, related_id, notes)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, ident.New("ev"), d.ProductID, d.Type, d.Delta, at, nullIfEmpty(d.RelatedID), nullIfEmpty(d.Notes))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListInventoryEvents(ctx context.Context, productID string, limit int) ([]domain.InventoryEvent, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, type, quantity_change, date, COALESCE(related_id, ''), COALESCE(notes, '')
		FROM inventory_events
		WHERE ($1 = '' OR product_id = $1)
		ORDER BY date DESC, id DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.InventoryEvent, 0, limit)
	for rows.Next() {
		var ev domain.InventoryEvent
		if err := rows.Scan(&ev.ID, &ev.ProductID, &ev.Type, &ev.QuantityChange, &ev.Date, &ev.RelatedID, &ev.Notes); err != nil {
			return nil, err
		}
		ev.Date = ev.Date.UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) SumSaleQuantities(ctx context.Context, from time.Time, to time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, COALESCE(SUM(-quantity_change), 0)
		FROM inventory_events
		WHERE type = 'sale' AND date >= $1 AND date < $2
		GROUP BY product_id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := make(map[string]int)
	for rows.Next() {
		var productID string
		var sold int
		if err := rows.Scan(&productID, &sold); err != nil {
			return nil, err
		}
		sums[productID] = sold
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sums, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" || customer.MaximumCreditLimitLaari < 0 {
		return nil, store.ErrInvalidRequest
	}
	if customer.ID == "" {
		customer.ID = ident.New("cust")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, max_credit_limit_laari, credit_blocked, loyalty_points, loyalty_tier_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now(),now())
	`, customer.ID, customer.Name, nullIfEmpty(customer.Phone), customer.MaximumCreditLimitLaari, customer.CreditBlocked, customer.LoyaltyPoints, nullIfEmpty(customer.LoyaltyTierID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(phone, ''), max_credit_limit_laari, credit_blocked, loyalty_points, COALESCE(loyalty_tier_id, '')
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.MaximumCreditLimitLaari, &c.CreditBlocked, &c.LoyaltyPoints, &c.LoyaltyTierID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(phone, ''), max_credit_limit_laari, credit_blocked, loyalty_points, COALESCE(loyalty_tier_id, '')
		FROM customers
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.MaximumCreditLimitLaari, &c.CreditBlocked, &c.LoyaltyPoints, &c.LoyaltyTierID); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || customer.Name == "" || customer.MaximumCreditLimitLaari < 0 {
		return nil, store.ErrInvalidRequest
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, max_credit_limit_laari = $4, updated_at = now()
		WHERE id = $1
	`, customer.ID, customer.Name, nullIfEmpty(customer.Phone), customer.MaximumCreditLimitLaari)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetCustomerByID(ctx, customer.ID)
}

func (s *Store) SetCustomerCreditBlocked(ctx context.Context, id string, blocked bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET credit_blocked = $2, updated_at = now()
		WHERE id = $1
	`, id, blocked)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) ListLoyaltyTiers(ctx context.Context) ([]domain.LoyaltyTier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, min_points, point_multiplier
		FROM loyalty_tiers
		ORDER BY min_points ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tiers := make([]domain.LoyaltyTier, 0, 8)
	for rows.Next() {
		var tier domain.LoyaltyTier
		if err := rows.Scan(&tier.ID, &tier.Name, &tier.MinPoints, &tier.PointMultiplier); err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tiers, nil
}

func (s *Store) CreateLoyaltyTier(ctx context.Context, tier domain.LoyaltyTier) (*domain.LoyaltyTier, error) {
	if tier.Name == "" || tier.MinPoints < 0 || tier.PointMultiplier < 1 {
		return nil, store.ErrInvalidRequest
	}
	if tier.ID == "" {
		tier.ID = ident.New("tier")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO loyalty_tiers (id, name, min_points, point_multiplier)
		VALUES ($1,$2,$3,$4)
	`, tier.ID, tier.Name, tier.MinPoints, tier.PointMultiplier)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	created := tier
	return &created, nil
}

func (s *Store) CreateGiftCard(ctx context.Context, card domain.GiftCard) (*domain.GiftCard, error) {
	if card.InitialBalanceLaari < 1 {
		return nil, store.ErrInvalidRequest
	}
	if card.ID == "" {
		card.ID = strings.ToUpper(ident.New("gc"))
	} else {
		card.ID = strings.ToUpper(card.ID)
	}
	card.CurrentBalanceLaari = card.InitialBalanceLaari
	card.Enabled = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gift_cards (id, initial_balance_laari, current_balance_laari, enabled, customer_id, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())
	`, card.ID, card.InitialBalanceLaari, card.CurrentBalanceLaari, card.Enabled, nullIfEmpty(card.CustomerID), nullTime(card.ExpiresAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	created := card
	return &created, nil
}

func scanGiftCard(row rowScanner) (domain.GiftCard, error) {
	var card domain.GiftCard
	var expires sql.NullTime
	if err := row.Scan(&card.ID, &card.InitialBalanceLaari, &card.CurrentBalanceLaari, &card.Enabled, &card.CustomerID, &expires); err != nil {
		return domain.GiftCard{}, err
	}
	if expires.Valid {
		t := expires.Time.UTC()
		card.ExpiresAt = &t
	}
	return card, nil
}

func (s *Store) GetGiftCardByCode(ctx context.Context, code string) (*domain.GiftCard, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, initial_balance_laari, current_balance_laari, enabled, COALESCE(customer_id, ''), expires_at
		FROM gift_cards
		WHERE id = $1
	`, strings.ToUpper(code))
	card, err := scanGiftCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (s *Store) ListGiftCards(ctx context.Context) ([]domain.GiftCard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, initial_balance_laari, current_balance_laari, enabled, COALESCE(customer_id, ''), expires_at
		FROM gift_cards
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := make([]domain.GiftCard, 0, 32)
	for rows.Next() {
		card, err := scanGiftCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

func (s *Store) SetGiftCardEnabled(ctx context.Context, code string, enabled bool) (*domain.GiftCard, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE gift_cards
		SET enabled = $2
		WHERE id = $1
	`, strings.ToUpper(code), enabled)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetGiftCardByCode(ctx, code)
}

func (s *Store) CreatePromotion(ctx context.Context, promo domain.Promotion) (*domain.Promotion, error) {
	if promo.Code == "" || promo.Value <= 0 {
		return nil, store.ErrInvalidRequest
	}
	if promo.Type != domain.PromotionTypePercentage && promo.Type != domain.PromotionTypeFixed {
		return nil, store.ErrInvalidRequest
	}
	if promo.ID == "" {
		promo.ID = ident.New("promo")
	}
	promo.Active = true

	// Promotion codes are unique case-insensitively; the unique index on
	// lower(code) backs this up under concurrency.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO promotions (id, code, type, value, active, created_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, promo.ID, promo.Code, promo.Type, promo.Value, promo.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicatePromotionCode
		}
		return nil, err
	}

	created := promo
	return &created, nil
}

func (s *Store) UpdatePromotion(ctx context.Context, promo domain.Promotion) (*domain.Promotion, error) {
	if promo.ID == "" || promo.Code == "" || promo.Value <= 0 {
		return nil, store.ErrInvalidRequest
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE promotions
		SET code = $2, type = $3, value = $4, active = $5
		WHERE id = $1
	`, promo.ID, promo.Code, promo.Type, promo.Value, promo.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicatePromotionCode
		}
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	updated := promo
	return &updated, nil
}

func (s *Store) ListPromotions(ctx context.Context) ([]domain.Promotion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, type, value, active
		FROM promotions
		ORDER BY code ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	promos := make([]domain.Promotion, 0, 16)
	for rows.Next() {
		var promo domain.Promotion
		if err := rows.Scan(&promo.ID, &promo.Code, &promo.Type, &promo.Value, &promo.Active); err != nil {
			return nil, err
		}
		promos = append(promos, promo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return promos, nil
}

func (s *Store) GetPromotionByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	var promo domain.Promotion
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, type, value, active
		FROM promotions
		WHERE lower(code) = lower($1)
	`, code).Scan(&promo.ID, &promo.Code, &promo.Type, &promo.Value, &promo.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &promo, nil
}

func (s *Store) CreateWholesaler(ctx context.Context, wholesaler domain.Wholesaler) (*domain.Wholesaler, error) {
	if wholesaler.Name == "" {
		return nil, store.ErrInvalidRequest
	}
	if wholesaler.ID == "" {
		wholesaler.ID = ident.New("ws")
	}
	if wholesaler.CreatedAt.IsZero() {
		wholesaler.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wholesalers (id, name, phone, created_at)
		VALUES ($1,$2,$3,$4)
	`, wholesaler.ID, wholesaler.Name, nullIfEmpty(wholesaler.Phone), wholesaler.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	created := wholesaler
	return &created, nil
}

func (s *Store) ListWholesalers(ctx context.Context) ([]domain.Wholesaler, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(phone, ''), created_at
		FROM wholesalers
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wholesalers := make([]domain.Wholesaler, 0, 16)
	for rows.Next() {
		var w domain.Wholesaler
		if err := rows.Scan(&w.ID, &w.Name, &w.Phone, &w.CreatedAt); err != nil {
			return nil, err
		}
		w.CreatedAt = w.CreatedAt.UTC()
		wholesalers = append(wholesalers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return wholesalers, nil
}

func (s *Store) CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	if po.WholesalerID == "" || len(po.Items) == 0 {
		return nil, store.ErrInvalidRequest
	}
	if po.ID == "" {
		po.ID = ident.New("po")
	}
	po.Status = domain.PurchaseOrderPending
	po.ProcessedAt = nil
	if po.CreatedAt.IsZero() {
		po.CreatedAt = time.Now().UTC()
	}

	itemsRaw, err := json.Marshal(po.Items)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO purchase_orders (id, wholesaler_id, status, items, created_at, processed_at)
		VALUES ($1,$2,$3,$4,$5,NULL)
	`, po.ID, po.WholesalerID, po.Status, itemsRaw, po.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	created := po
	return &created, nil
}

func scanPurchaseOrder(row rowScanner) (domain.PurchaseOrder, error) {
	var po domain.PurchaseOrder
	var itemsRaw []byte
	var processed sql.NullTime
	if err := row.Scan(&po.ID, &po.WholesalerID, &po.Status, &itemsRaw, &po.CreatedAt, &processed); err != nil {
		return domain.PurchaseOrder{}, err
	}
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &po.Items); err != nil {
			return domain.PurchaseOrder{}, err
		}
	}
	po.CreatedAt = po.CreatedAt.UTC()
	if processed.Valid {
		t := processed.Time.UTC()
		po.ProcessedAt = &t
	}
	return po, nil
}

func (s *Store) GetPurchaseOrderByID(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, wholesaler_id, status, items, created_at, processed_at
		FROM purchase_orders
		WHERE id = $1
	`, id)
	po, err := scanPurchaseOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &po, nil
}

func (s *Store) ListPurchaseOrders(ctx context.Context, status string, limit int) ([]domain.PurchaseOrder, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wholesaler_id, status, items, created_at, processed_at
		FROM purchase_orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.PurchaseOrder, 0, limit)
	for rows.Next() {
		po, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, po)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) ProcessPurchaseOrder(ctx context.Context, id string, at time.Time) (*domain.PurchaseOrder, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT id, wholesaler_id, status, items, created_at, processed_at
		FROM purchase_orders
		WHERE id = $1
		FOR UPDATE
	`, id)
	po, err := scanPurchaseOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
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
	if err := applyDeltasTx(ctx, tx, deltas, at); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE purchase_orders
		SET status = $2, processed_at = $3
		WHERE id = $1
	`, po.ID, domain.PurchaseOrderProcessed, at)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	po.Status = domain.PurchaseOrderProcessed
	processedAt := at
	po.ProcessedAt = &processedAt
	return &po, nil
}

func (s *Store) CommitSale(ctx context.Context, saleTx domain.Transaction, deltas []domain.StockDelta, loyalty *store.LoyaltyUpdate) (*domain.Transaction, error) {
	if saleTx.ID == "" || len(saleTx.Items) == 0 {
		return nil, store.ErrInvalidRequest
	}
	if loyalty != nil && loyalty.Points < 0 {
		return nil, store.ErrInvalidRequest
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, payment := range saleTx.GiftCardPayments {
		if payment.AmountLaari < 1 {
			return nil, store.ErrInvalidGiftCard
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE gift_cards
			SET current_balance_laari = current_balance_laari - $2
			WHERE id = $1 AND enabled = true AND current_balance_laari >= $2
		`, strings.ToUpper(payment.CardID), payment.AmountLaari)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrInvalidGiftCard
		}
	}

	if err := applyDeltasTx(ctx, tx, deltas, saleTx.CreatedAt); err != nil {
		return nil, err
	}

	if err := insertTransactionTx(ctx, tx, saleTx); err != nil {
		return nil, err
	}

	if loyalty != nil {
		res, err := tx.ExecContext(ctx, `
			UPDATE customers
			SET loyalty_points = $2,
			    loyalty_tier_id = COALESCE(NULLIF($3, ''), loyalty_tier_id),
			    updated_at = now()
			WHERE id = $1
		`, loyalty.CustomerID, loyalty.Points, loyalty.TierID)
		if err != nil {
			return nil, err
		}
		if err := requireAffected(res); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	committed := saleTx
	return &committed, nil
}

func insertTransactionTx(ctx context.Context, tx *sql.Tx, saleTx domain.Transaction) error {
	itemsRaw, err := json.Marshal(saleTx.Items)
	if err != nil {
		return err
	}
	paymentsRaw, err := json.Marshal(saleTx.GiftCardPayments)
	if err != nil {
		return err
	}
	returnsRaw, err := json.Marshal(saleTx.Returns)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, customer_id, items, subtotal_laari, discount_laari, promotion_code, total_laari, payment_status, payment_method, gift_card_payments, returns, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, saleTx.ID, nullIfEmpty(saleTx.CustomerID), itemsRaw, saleTx.SubtotalLaari, saleTx.DiscountLaari,
		nullIfEmpty(saleTx.PromotionCode), saleTx.TotalLaari, saleTx.PaymentStatus, saleTx.PaymentMethod,
		paymentsRaw, returnsRaw, saleTx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidRequest
		}
		return err
	}
	return nil
}

func (s *Store) AppendTransactions(ctx context.Context, txs []domain.Transaction) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, saleTx := range txs {
		if saleTx.ID == "" || len(saleTx.Items) == 0 {
			return store.ErrInvalidRequest
		}
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)
		`, saleTx.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := insertTransactionTx(ctx, tx, saleTx); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var t domain.Transaction
	var itemsRaw, paymentsRaw, returnsRaw []byte
	if err := row.Scan(&t.ID, &t.CustomerID, &itemsRaw, &t.SubtotalLaari, &t.DiscountLaari, &t.PromotionCode,
		&t.TotalLaari, &t.PaymentStatus, &t.PaymentMethod, &paymentsRaw, &returnsRaw, &t.CreatedAt); err != nil {
		return domain.Transaction{}, err
	}
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &t.Items); err != nil {
			return domain.Transaction{}, err
		}
	}
	if len(paymentsRaw) > 0 {
		if err := json.Unmarshal(paymentsRaw, &t.GiftCardPayments); err != nil {
			return domain.Transaction{}, err
		}
	}
	if len(returnsRaw) > 0 {
		if err := json.Unmarshal(returnsRaw, &t.Returns); err != nil {
			return domain.Transaction{}, err
		}
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

const transactionColumns = `id, COALESCE(customer_id, ''), items, subtotal_laari, discount_laari, COALESCE(promotion_code, ''), total_laari, payment_status, payment_method, gift_card_payments, returns, created_at`

func (s *Store) GetTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1
	`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTransactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		ORDER BY created_at DESC, id DESC
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0, 64)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *Store) ListCustomerTransactions(ctx context.Context, customerID string, paymentStatus string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE customer_id = $1 AND ($2 = '' OR payment_status = $2)
		ORDER BY created_at ASC, id ASC
	`, customerID, paymentStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0, 16)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *Store) SetTransactionPaymentStatus(ctx context.Context, id string, status string) error {
	if status != domain.PaymentStatusPaid && status != domain.PaymentStatusUnpaid && status != domain.PaymentStatusReview {
		return store.ErrInvalidRequest
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET payment_status = $2
		WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) AppendReturnEvent(ctx context.Context, transactionID string, event domain.ReturnEvent, deltas []domain.StockDelta, storeCredit *domain.GiftCard) (*domain.ReturnEvent, error) {
	if event.ID == "" || len(event.Items) == 0 {
		return nil, store.ErrInvalidRequest
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT returns
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, transactionID)
	var returnsRaw []byte
	if err := row.Scan(&returnsRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	var returns []domain.ReturnEvent
	if len(returnsRaw) > 0 {
		if err := json.Unmarshal(returnsRaw, &returns); err != nil {
			return nil, err
		}
	}

	if err := applyDeltasTx(ctx, tx, deltas, event.Date); err != nil {
		return nil, err
	}

	if storeCredit != nil {
		if storeCredit.ID == "" || storeCredit.InitialBalanceLaari < 1 {
			return nil, store.ErrInvalidRequest
		}
		cardID := strings.ToUpper(storeCredit.ID)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO gift_cards (id, initial_balance_laari, current_balance_laari, enabled, customer_id, expires_at, created_at)
			VALUES ($1,$2,$2,true,$3,NULL,now())
		`, cardID, storeCredit.InitialBalanceLaari, nullIfEmpty(storeCredit.CustomerID))
		if err != nil {
			if isUniqueViolation(err) {
				return nil, store.ErrInvalidRequest
			}
			return nil, err
		}
		event.StoreCreditCardID = cardID
	}

	returns = append(returns, event)
	updatedRaw, err := json.Marshal(returns)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE transactions
		SET returns = $2
		WHERE id = $1
	`, transactionID, updatedRaw)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	recorded := event
	return &recorded, nil
}

func (s *Store) CreateDailyReport(ctx context.Context, report domain.DailyReport) (*domain.DailyReport, error) {
	if report.ID == "" || report.Date == "" {
		return nil, store.ErrInvalidRequest
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	idsRaw, err := json.Marshal(report.TransactionIDs)
	if err != nil {
		return nil, err
	}
	breakdownRaw, err := json.Marshal(report.PaymentBreakdown)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO daily_reports (id, report_date, transaction_ids, total_sales_laari, total_discounts_laari, total_returns_laari, net_sales_laari, total_profit_laari, payment_breakdown, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, report.ID, report.Date, idsRaw, report.TotalSalesLaari, report.TotalDiscountsLaari, report.TotalReturnsLaari,
		report.NetSalesLaari, report.TotalProfitLaari, breakdownRaw, report.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	// The primary key on reported_transactions makes the partition
	// permanent: a transaction claimed by an earlier report fails this
	// insert and rolls back the whole report.
	for _, txID := range report.TransactionIDs {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO reported_transactions (transaction_id, report_id)
			SELECT $1, $2 WHERE EXISTS(SELECT 1 FROM transactions WHERE id = $1)
		`, txID, report.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, store.ErrInvalidRequest
			}
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := report
	return &created, nil
}

func (s *Store) ListDailyReports(ctx context.Context, limit int) ([]domain.DailyReport, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_date, transaction_ids, total_sales_laari, total_discounts_laari, total_returns_laari, net_sales_laari, total_profit_laari, payment_breakdown, created_at
		FROM daily_reports
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]domain.DailyReport, 0, limit)
	for rows.Next() {
		var r domain.DailyReport
		var idsRaw, breakdownRaw []byte
		if err := rows.Scan(&r.ID, &r.Date, &idsRaw, &r.TotalSalesLaari, &r.TotalDiscountsLaari, &r.TotalReturnsLaari,
			&r.NetSalesLaari, &r.TotalProfitLaari, &breakdownRaw, &r.CreatedAt); err != nil {
			return nil, err
		}
		if len(idsRaw) > 0 {
			if err := json.Unmarshal(idsRaw, &r.TransactionIDs); err != nil {
				return nil, err
			}
		}
		if len(breakdownRaw) > 0 {
			if err := json.Unmarshal(breakdownRaw, &r.PaymentBreakdown); err != nil {
				return nil, err
			}
		}
		r.CreatedAt = r.CreatedAt.UTC()
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *Store) ReportedTransactionIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id FROM reported_transactions
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reported := make(map[string]struct{}, 256)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		reported[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reported, nil
}

func (s *Store) CreateMonthlyStatement(ctx context.Context, statement domain.MonthlyStatement) (*domain.MonthlyStatement, error) {
	if statement.CustomerID == "" || statement.PeriodYear < 2000 || statement.PeriodMonth < 1 || statement.PeriodMonth > 12 {
		return nil, store.ErrInvalidRequest
	}
	if statement.ID == "" {
		statement.ID = ident.New("stmt")
	}
	if statement.CreatedAt.IsZero() {
		statement.CreatedAt = time.Now().UTC()
	}

	idsRaw, err := json.Marshal(statement.TransactionIDs)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO monthly_statements (id, customer_id, period_year, period_month, transaction_ids, total_due_laari, due_date, status, overdue_status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, statement.ID, statement.CustomerID, statement.PeriodYear, statement.PeriodMonth, idsRaw,
		statement.TotalDueLaari, statement.DueDate, statement.Status, statement.OverdueStatus, statement.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	created := statement
	return &created, nil
}

func (s *Store) ListMonthlyStatements(ctx context.Context, customerID string, status string) ([]domain.MonthlyStatement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, period_year, period_month, transaction_ids, total_due_laari, due_date, status, overdue_status, created_at
		FROM monthly_statements
		WHERE ($1 = '' OR customer_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY period_year DESC, period_month DESC, customer_id ASC
	`, customerID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statements := make([]domain.MonthlyStatement, 0, 32)
	for rows.Next() {
		var st domain.MonthlyStatement
		var idsRaw []byte
		if err := rows.Scan(&st.ID, &st.CustomerID, &st.PeriodYear, &st.PeriodMonth, &idsRaw,
			&st.TotalDueLaari, &st.DueDate, &st.Status, &st.OverdueStatus, &st.CreatedAt); err != nil {
			return nil, err
		}
		if len(idsRaw) > 0 {
			if err := json.Unmarshal(idsRaw, &st.TransactionIDs); err != nil {
				return nil, err
			}
		}
		st.DueDate = st.DueDate.UTC()
		st.CreatedAt = st.CreatedAt.UTC()
		statements = append(statements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return statements, nil
}

func (s *Store) UpdateMonthlyStatement(ctx context.Context, statement domain.MonthlyStatement) (*domain.MonthlyStatement, error) {
	if statement.ID == "" {
		return nil, store.ErrInvalidRequest
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE monthly_statements
		SET status = $2, overdue_status = $3
		WHERE id = $1
	`, statement.ID, statement.Status, statement.OverdueStatus)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	updated := statement
	return &updated, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = ident.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, nullZeroTime(from), nullZeroTime(to), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" || user.Role == "" {
		return store.ErrInvalidRequest
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,true,$4,now())
	`, username, user.Password, user.Role, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidRequest
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRequest
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullZeroTime(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val
}
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	"github.com/FeliksML/web-cellar-sub000/pkg/database"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

// orderSelect fetches orders with their items aggregated as JSON, avoiding
// one items query per order.
const orderSelect = `
	SELECT
		o.id, o.order_number, o.user_id, o.status, o.payment_status, o.payment_method,
		o.payment_intent_id, o.fulfillment_type, o.requested_date, o.requested_time_slot,
		o.contact_email, o.contact_phone, o.customer_notes, o.internal_notes,
		o.shipping_address, o.billing_address, o.billing_same_as_shipping, o.promo_code,
		o.subtotal, o.shipping_cost, o.tax_amount, o.discount_amount, o.total,
		o.confirmed_at, o.preparing_at, o.ready_at, o.completed_at, o.cancelled_at,
		o.cancellation_reason, o.created_at, o.updated_at,
		COALESCE((
			SELECT JSONB_AGG(JSONB_BUILD_OBJECT(
				'id', oi.id,
				'order_id', oi.order_id,
				'product_id', oi.product_id,
				'product_name', oi.product_name,
				'product_sku', oi.product_sku,
				'product_snapshot', oi.product_snapshot,
				'quantity', oi.quantity,
				'unit_price', oi.unit_price,
				'subtotal', oi.subtotal,
				'special_instructions', oi.special_instructions
			) ORDER BY oi.line_number, oi.created_at, oi.id)
			FROM order_items oi
			WHERE oi.order_id = o.id
		), '[]'::jsonb) AS items`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts a new order and its items atomically, reserving stock and
// consuming one use of the promo code.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) ([]domain.LowStockProduct, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	shippingJSON, billingJSON, err := marshalAddresses(o)
	if err != nil {
		return nil, err
	}

	orderQuery := `
		INSERT INTO orders (
			id, order_number, user_id, status, payment_status, payment_method, payment_intent_id,
			fulfillment_type, requested_date, requested_time_slot, contact_email, contact_phone,
			customer_notes, internal_notes, shipping_address, billing_address,
			billing_same_as_shipping, promo_code, subtotal, shipping_cost, tax_amount,
			discount_amount, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25)`

	if _, err := tx.Exec(ctx, orderQuery,
		o.ID,
		o.OrderNumber,
		o.UserID,
		o.Status,
		o.PaymentStatus,
		o.PaymentMethod,
		o.PaymentIntentID,
		o.FulfillmentType,
		o.RequestedDate,
		o.RequestedTimeSlot,
		o.ContactEmail,
		o.ContactPhone,
		o.CustomerNotes,
		o.InternalNotes,
		shippingJSON,
		billingJSON,
		o.BillingSameAsShipping,
		o.PromoCode,
		o.Subtotal,
		o.ShippingCost,
		o.TaxAmount,
		o.DiscountAmount,
		o.Total,
		o.CreatedAt,
		o.UpdatedAt,
	); err != nil {
		if _, ok := database.IsUniqueViolation(err); ok {
			return nil, repository.ErrOrderNumberTaken
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	var lowStock []domain.LowStockProduct
	itemQuery := `
		INSERT INTO order_items (
			id, order_id, product_id, product_name, product_sku, product_snapshot,
			quantity, unit_price, subtotal, special_instructions, line_number, reserved_quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	for i, item := range o.Items {
		reserved := 0
		if item.ProductID != nil {
			var low *domain.LowStockProduct
			low, reserved, err = reserveStock(ctx, tx, *item.ProductID, item.ProductName, item.Quantity)
			if err != nil {
				return nil, err
			}
			if low != nil {
				lowStock = append(lowStock, *low)
			}
		}

		if _, err := tx.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.ProductName,
			item.ProductSKU,
			[]byte(item.ProductSnapshot),
			item.Quantity,
			item.UnitPrice,
			item.Subtotal,
			item.SpecialInstructions,
			i+1,
			reserved,
		); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	if o.PromoCode != "" {
		ct, err := tx.Exec(ctx, `
			UPDATE promo_codes SET usage_count = usage_count + 1, updated_at = NOW()
			WHERE code = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`,
			o.PromoCode,
		)
		if err != nil {
			return nil, fmt.Errorf("increment promo usage: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return nil, apperrors.Conflict("Promo code usage limit reached")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return lowStock, nil
}

// reserveStock locks the product row and takes quantity units from stock.
// Backordered units beyond the stock on hand are not taken, so reserved is
// the number of units actually removed. low is set when the remaining stock
// is at or below the product's threshold.
func reserveStock(ctx context.Context, tx pgx.Tx, productID, name string, quantity int) (low *domain.LowStockProduct, reserved int, err error) {
	var (
		p         domain.LowStockProduct
		tracked   bool
		backorder bool
	)
	err = tx.QueryRow(ctx, `
		SELECT id, name, sku, stock_quantity, low_stock_threshold, track_inventory, allow_backorder
		FROM products
		WHERE id = $1
		FOR UPDATE`,
		productID,
	).Scan(&p.ID, &p.Name, &p.SKU, &p.StockQuantity, &p.LowStockThreshold, &tracked, &backorder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, apperrors.Conflict(name + " is no longer available")
		}
		return nil, 0, fmt.Errorf("lock product: %w", err)
	}

	if !tracked {
		return nil, 0, nil
	}
	if p.StockQuantity < quantity && !backorder {
		return nil, 0, apperrors.Conflict("Insufficient stock for " + p.Name)
	}

	reserved = min(max(p.StockQuantity, 0), quantity)
	p.StockQuantity = max(p.StockQuantity-quantity, 0)
	if _, err := tx.Exec(ctx,
		`UPDATE products SET stock_quantity = $1, updated_at = NOW() WHERE id = $2`,
		p.StockQuantity, productID,
	); err != nil {
		return nil, 0, fmt.Errorf("reserve stock: %w", err)
	}

	if p.StockQuantity <= p.LowStockThreshold {
		return &p, reserved, nil
	}
	return nil, reserved, nil
}

// GetByID retrieves an order by ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, orderSelect+` FROM orders o WHERE o.id = $1`, id))
}

// GetByNumber retrieves an order by its order number.
func (r *OrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, orderSelect+` FROM orders o WHERE o.order_number = $1`, orderNumber))
}

// GetByPaymentIntent retrieves the order paid by a provider payment intent.
func (r *OrderRepository) GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx, orderSelect+` FROM orders o WHERE o.payment_intent_id = $1`, intentID))
}

// List returns orders matching filter, newest first, with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	add := func(clause string, v any) {
		conditions = append(conditions, fmt.Sprintf(clause, argIndex))
		args = append(args, v)
		argIndex++
	}

	if filter.UserID != nil {
		add("o.user_id = $%d", *filter.UserID)
	}
	if filter.Status != nil {
		add("o.status = $%d", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		add("o.payment_status = $%d", *filter.PaymentStatus)
	}
	if filter.FulfillmentType != nil {
		add("o.fulfillment_type = $%d", *filter.FulfillmentType)
	}
	if filter.DateFrom != nil {
		add("o.requested_date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("o.requested_date <= $%d", *filter.DateTo)
	}
	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(o.order_number ILIKE $%d OR o.contact_email ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+*filter.Search+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	query := fmt.Sprintf(`%s, count(*) OVER() AS total_count FROM orders o%s
		ORDER BY o.created_at DESC
		LIMIT $%d OFFSET $%d`, orderSelect, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var (
		orders     = []domain.Order{}
		totalCount int
	)
	for rows.Next() {
		o, err := scanOrder(rows, &totalCount)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, totalCount, nil
}

// UpdateStatus persists the lifecycle fields of o if its stored status is
// still fromStatus. Cancelling returns the units reserved at checkout.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *domain.Order, fromStatus string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $1, confirmed_at = $2, preparing_at = $3, ready_at = $4, completed_at = $5,
		    cancelled_at = $6, cancellation_reason = $7, updated_at = $8
		WHERE id = $9 AND status = $10`,
		o.Status,
		o.ConfirmedAt,
		o.PreparingAt,
		o.ReadyAt,
		o.CompletedAt,
		o.CancelledAt,
		o.CancellationReason,
		o.UpdatedAt,
		o.ID,
		fromStatus,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrOrderChanged
	}

	if o.Status == domain.OrderStatusCancelled {
		if _, err := tx.Exec(ctx, `
			UPDATE products p
			SET stock_quantity = p.stock_quantity + r.quantity, updated_at = NOW()
			FROM (
				SELECT product_id, SUM(reserved_quantity) AS quantity
				FROM order_items
				WHERE order_id = $1 AND product_id IS NOT NULL AND reserved_quantity > 0
				GROUP BY product_id
			) r
			WHERE p.id = r.product_id AND p.track_inventory`,
			o.ID,
		); err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// UpdateNotes replaces the internal notes of an order.
func (r *OrderRepository) UpdateNotes(ctx context.Context, id, notes string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET internal_notes = $1, updated_at = NOW() WHERE id = $2`, notes, id)
	if err != nil {
		return fmt.Errorf("update order notes: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdatePayment persists the payment fields of o along with its status, as
// long as the stored statuses still match from.
func (r *OrderRepository) UpdatePayment(ctx context.Context, o *domain.Order, from domain.OrderState) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET payment_status = $1, payment_intent_id = $2, status = $3, confirmed_at = $4, updated_at = $5
		WHERE id = $6 AND status = $7 AND payment_status = $8`,
		o.PaymentStatus,
		o.PaymentIntentID,
		o.Status,
		o.ConfirmedAt,
		o.UpdatedAt,
		o.ID,
		from.Status,
		from.PaymentStatus,
	)
	if err != nil {
		return fmt.Errorf("update order payment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrOrderChanged
	}
	return nil
}

// FindCompletedItem returns the most recent completed order item of userID
// for productID, or nil when the user never received the product.
func (r *OrderRepository) FindCompletedItem(ctx context.Context, userID, productID string) (*string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		SELECT oi.id
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.user_id = $1 AND oi.product_id = $2 AND o.status IN ('delivered', 'picked_up')
		ORDER BY o.completed_at DESC NULLS LAST
		LIMIT 1`,
		userID, productID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find completed order item: %w", err)
	}
	return &id, nil
}

func marshalAddresses(o *domain.Order) (shipping, billing []byte, err error) {
	if o.ShippingAddress != nil {
		if shipping, err = json.Marshal(o.ShippingAddress); err != nil {
			return nil, nil, fmt.Errorf("marshal shipping address: %w", err)
		}
	}
	if o.BillingAddress != nil {
		if billing, err = json.Marshal(o.BillingAddress); err != nil {
			return nil, nil, fmt.Errorf("marshal billing address: %w", err)
		}
	}
	return shipping, billing, nil
}

// scanOrder scans one row of orderSelect. extra receives trailing columns
// such as a window count.
func scanOrder(row pgx.Row, extra ...any) (*domain.Order, error) {
	var (
		o            domain.Order
		shippingJSON []byte
		billingJSON  []byte
		itemsJSON    []byte
	)

	dest := []any{
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentMethod,
		&o.PaymentIntentID,
		&o.FulfillmentType,
		&o.RequestedDate,
		&o.RequestedTimeSlot,
		&o.ContactEmail,
		&o.ContactPhone,
		&o.CustomerNotes,
		&o.InternalNotes,
		&shippingJSON,
		&billingJSON,
		&o.BillingSameAsShipping,
		&o.PromoCode,
		&o.Subtotal,
		&o.ShippingCost,
		&o.TaxAmount,
		&o.DiscountAmount,
		&o.Total,
		&o.ConfirmedAt,
		&o.PreparingAt,
		&o.ReadyAt,
		&o.CompletedAt,
		&o.CancelledAt,
		&o.CancellationReason,
		&o.CreatedAt,
		&o.UpdatedAt,
		&itemsJSON,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if len(shippingJSON) > 0 {
		o.ShippingAddress = &domain.AddressSnapshot{}
		if err := json.Unmarshal(shippingJSON, o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal shipping address: %w", err)
		}
	}
	if len(billingJSON) > 0 {
		o.BillingAddress = &domain.AddressSnapshot{}
		if err := json.Unmarshal(billingJSON, o.BillingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal billing address: %w", err)
		}
	}

	o.Items = []domain.OrderItem{}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}

	return &o, nil
}

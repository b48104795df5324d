package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/ids"
	"storefront/internal/models"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

type OrderLine struct {
	ProductID string
	Quantity  int
}

type OrderFilter struct {
	// UserID restricts the listing to one customer when set.
	UserID string
	Limit  int
	Offset int
}

const orderColumns = `id, user_id, total_price_cents, status, created_at, updated_at`

func scanOrder(row pgx.Row) (models.Order, error) {
	var order models.Order
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.TotalPriceCents,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, ErrOrderNotFound
	}
	return order, err
}

// Create places an order for userID. Prices are read from the products and
// stock is reserved in the same transaction. When clearCartID is set the cart
// is emptied as part of the transaction.
func (r *OrderRepository) Create(ctx context.Context, userID string, lines []OrderLine, clearCartID string) (models.Order, error) {
	lines = mergeLines(lines)
	if len(lines) == 0 {
		return models.Order{}, fmt.Errorf("%w: order has no items", ErrConstraint)
	}

	var order models.Order
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		items := make([]models.OrderItem, 0, len(lines))
		var total int64
		for _, line := range lines {
			price, err := reserveStock(ctx, tx, line)
			if err != nil {
				return err
			}
			total += price * int64(line.Quantity)
			items = append(items, models.OrderItem{
				ID:         ids.New(),
				ProductID:  line.ProductID,
				Quantity:   line.Quantity,
				PriceCents: price,
			})
		}

		created, err := scanOrder(tx.QueryRow(ctx, `
			INSERT INTO orders (id, user_id, total_price_cents, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			RETURNING `+orderColumns,
			ids.New(), userID, total, models.OrderStatusPending,
		))
		if err != nil {
			return mapWriteError(err)
		}

		for i := range items {
			items[i].OrderID = created.ID
			if err := tx.QueryRow(ctx, `
				INSERT INTO order_items (id, order_id, product_id, quantity, price_cents, created_at)
				VALUES ($1, $2, $3, $4, $5, NOW())
				RETURNING created_at`,
				items[i].ID, items[i].OrderID, items[i].ProductID, items[i].Quantity, items[i].PriceCents,
			).Scan(&items[i].CreatedAt); err != nil {
				return mapWriteError(err)
			}
		}

		if clearCartID != "" {
			if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, clearCartID); err != nil {
				return err
			}
		}

		created.Items = items
		order = created
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

// reserveStock decrements the product's stock and returns its unit price.
func reserveStock(ctx context.Context, tx pgx.Tx, line OrderLine) (int64, error) {
	var price int64
	err := tx.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
		RETURNING price_cents`,
		line.ProductID, line.Quantity,
	).Scan(&price)
	if err == nil {
		return price, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, line.ProductID).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
	}
	return 0, fmt.Errorf("%w: %s", ErrInsufficientStock, line.ProductID)
}

// mergeLines folds duplicate products together and sorts by product id so
// concurrent orders lock product rows in the same order.
func mergeLines(lines []OrderLine) []OrderLine {
	byProduct := make(map[string]int, len(lines))
	for _, line := range lines {
		byProduct[line.ProductID] += line.Quantity
	}
	merged := make([]OrderLine, 0, len(byProduct))
	for productID, qty := range byProduct {
		merged = append(merged, OrderLine{ProductID: productID, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged
}

// GetByID loads the order with its items and payment, if any.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (models.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return models.Order{}, err
	}

	itemsByOrder, err := r.itemsFor(ctx, []string{order.ID})
	if err != nil {
		return models.Order{}, err
	}
	order.Items = itemsByOrder[order.ID]
	if order.Items == nil {
		order.Items = []models.OrderItem{}
	}

	payment, err := scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1`, order.ID))
	switch {
	case err == nil:
		order.Payment = &payment
	case !errors.Is(err, ErrPaymentNotFound):
		return models.Order{}, err
	}
	return order, nil
}

func (r *OrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, filter.UserID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	orderIDs := make([]string, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
		orderIDs = append(orderIDs, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemsByOrder, err := r.itemsFor(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = itemsByOrder[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []models.OrderItem{}
		}
	}
	return orders, nil
}

func (r *OrderRepository) itemsFor(ctx context.Context, orderIDs []string) (map[string][]models.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price_cents, created_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at, id`,
		orderIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]models.OrderItem, len(orderIDs))
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.PriceCents, &item.CreatedAt); err != nil {
			return nil, err
		}
		out[item.OrderID] = append(out[item.OrderID], item)
	}
	return out, rows.Err()
}

// UpdateStatus moves the order to next if the transition is allowed.
// Cancelling returns the reserved stock to the products.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, next models.OrderStatus) (models.Order, error) {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var current models.OrderStatus
		if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return err
		}
		if !current.CanTransition(next) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, next)
		}

		if _, err := tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, next); err != nil {
			return err
		}
		if next == models.OrderStatusCancelled {
			return restock(ctx, tx, id)
		}
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes the order. Stock still reserved by a pending or paid order
// is released first.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var current models.OrderStatus
		if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return err
		}
		if current == models.OrderStatusPending || current == models.OrderStatusPaid {
			if err := restock(ctx, tx, id); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
		return err
	})
}

func restock(ctx context.Context, tx pgx.Tx, orderID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE products p
		SET stock = p.stock + oi.quantity, updated_at = NOW()
		FROM order_items oi
		WHERE oi.order_id = $1 AND oi.product_id = p.id`,
		orderID,
	)
	return err
}

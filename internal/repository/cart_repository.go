package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/ids"
	"storefront/internal/models"
)

type CartRepository struct {
	pool *pgxpool.Pool
}

func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

const cartItemColumns = `id, cart_id, product_id, quantity, created_at, updated_at`

func scanCartItem(row pgx.Row) (models.CartItem, error) {
	var item models.CartItem
	err := row.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.CartItem{}, ErrCartItemNotFound
	}
	return item, err
}

// GetByUser returns the user's cart with each line's product attached.
func (r *CartRepository) GetByUser(ctx context.Context, userID string) (models.Cart, error) {
	var cart models.Cart
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`,
		userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Cart{}, ErrCartNotFound
		}
		return models.Cart{}, err
	}

	const query = `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
		       p.id, p.name, p.description, p.price_cents, p.stock, p.category_id, p.created_at, p.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
	`
	rows, err := r.pool.Query(ctx, query, cart.ID)
	if err != nil {
		return models.Cart{}, err
	}
	defer rows.Close()

	cart.Items = make([]models.CartItem, 0)
	for rows.Next() {
		var item models.CartItem
		var product models.Product
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&item.CreatedAt,
			&item.UpdatedAt,
			&product.ID,
			&product.Name,
			&product.Description,
			&product.PriceCents,
			&product.Stock,
			&product.CategoryID,
			&product.CreatedAt,
			&product.UpdatedAt,
		); err != nil {
			return models.Cart{}, err
		}
		item.Product = &product
		cart.Items = append(cart.Items, item)
	}
	return cart, rows.Err()
}

// Ensure returns the user's cart, creating it on first use.
func (r *CartRepository) Ensure(ctx context.Context, userID string) (models.Cart, error) {
	const query = `
		INSERT INTO carts (id, user_id, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING id, user_id, created_at, updated_at
	`
	var cart models.Cart
	if err := r.pool.QueryRow(ctx, query, ids.New(), userID).
		Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt); err != nil {
		return models.Cart{}, mapWriteError(err)
	}
	cart.Items = []models.CartItem{}
	return cart, nil
}

// AddItem inserts a line or, if the product is already in the cart, adds
// quantity to the existing line.
func (r *CartRepository) AddItem(ctx context.Context, cartID, productID string, quantity int) (models.CartItem, error) {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING ` + cartItemColumns

	item, err := scanCartItem(r.pool.QueryRow(ctx, query, ids.New(), cartID, productID, quantity))
	if err != nil {
		err = mapWriteError(err)
		if errors.Is(err, ErrReferenced) {
			return models.CartItem{}, ErrProductNotFound
		}
		return models.CartItem{}, err
	}
	return item, nil
}

func (r *CartRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) (models.CartItem, error) {
	query := `
		UPDATE cart_items SET quantity = $3, updated_at = NOW()
		WHERE id = $1 AND cart_id = $2
		RETURNING ` + cartItemColumns

	item, err := scanCartItem(r.pool.QueryRow(ctx, query, itemID, cartID, quantity))
	if err != nil {
		return models.CartItem{}, mapWriteError(err)
	}
	return item, nil
}

func (r *CartRepository) RemoveItem(ctx context.Context, cartID, itemID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`, itemID, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, cartID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return err
}

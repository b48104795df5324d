package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/models"
)

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `
	id, order_id, amount_cents, method, status,
	stripe_payment_intent_id, stripe_payment_method_id, created_at, updated_at`

func scanPayment(row pgx.Row) (models.Payment, error) {
	var payment models.Payment
	err := row.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.AmountCents,
		&payment.Method,
		&payment.Status,
		&payment.StripePaymentIntentID,
		&payment.StripePaymentMethodID,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Payment{}, ErrPaymentNotFound
	}
	return payment, err
}

// Create records a payment. A second payment for the same order fails with
// ErrDuplicate.
func (r *PaymentRepository) Create(ctx context.Context, payment models.Payment) (models.Payment, error) {
	query := `
		INSERT INTO payments (
			id, order_id, amount_cents, method, status,
			stripe_payment_intent_id, stripe_payment_method_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
		RETURNING ` + paymentColumns

	created, err := scanPayment(r.pool.QueryRow(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.AmountCents,
		payment.Method,
		payment.Status,
		payment.StripePaymentIntentID,
		payment.StripePaymentMethodID,
	))
	if err != nil {
		err = mapWriteError(err)
		if errors.Is(err, ErrReferenced) {
			return models.Payment{}, ErrOrderNotFound
		}
		return models.Payment{}, err
	}
	return created, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (models.Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

func (r *PaymentRepository) List(ctx context.Context, limit, offset int) ([]models.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// Update writes the status and processor references. A successful payment
// marks its pending order as paid in the same transaction.
func (r *PaymentRepository) Update(ctx context.Context, payment models.Payment) (models.Payment, error) {
	var updated models.Payment
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		updated, err = scanPayment(tx.QueryRow(ctx, `
			UPDATE payments
			SET status = $2,
			    stripe_payment_intent_id = $3,
			    stripe_payment_method_id = $4,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING `+paymentColumns,
			payment.ID,
			payment.Status,
			payment.StripePaymentIntentID,
			payment.StripePaymentMethodID,
		))
		if err != nil {
			return mapWriteError(err)
		}

		if updated.Status == models.PaymentStatusSuccess {
			_, err = tx.Exec(ctx, `
				UPDATE orders SET status = $2, updated_at = NOW()
				WHERE id = $1 AND status = $3`,
				updated.OrderID, models.OrderStatusPaid, models.OrderStatusPending,
			)
		}
		return err
	})
	if err != nil {
		return models.Payment{}, err
	}
	return updated, nil
}

func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

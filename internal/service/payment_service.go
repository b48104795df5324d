package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/events"
	"storefront/internal/ids"
	"storefront/internal/models"
	"storefront/internal/repository"
)

var (
	ErrPaymentNotFound = apperr.NotFound("Payment not found")
	ErrPaymentExists   = apperr.Conflict("Order already has a payment")

	errOrderIDRequired         = apperr.Validation("Order ID is required")
	errInvalidPaymentMethod    = apperr.Validation("Invalid payment method")
	errInvalidPaymentStatus    = apperr.Validation("Invalid payment status")
	errAmountMismatch          = apperr.Validation("Payment amount must equal the order total")
	errOrderNotAwaitingPayment = apperr.Validation("Order is not awaiting payment")
)

type PaymentStore interface {
	Create(ctx context.Context, payment models.Payment) (models.Payment, error)
	GetByID(ctx context.Context, id string) (models.Payment, error)
	List(ctx context.Context, limit, offset int) ([]models.Payment, error)
	Update(ctx context.Context, payment models.Payment) (models.Payment, error)
	Delete(ctx context.Context, id string) error
}

// PaymentOrders is the part of the order store used to check payments.
type PaymentOrders interface {
	GetByID(ctx context.Context, id string) (models.Order, error)
}

type PaymentService struct {
	payments  PaymentStore
	orders    PaymentOrders
	publisher events.Publisher
	log       zerolog.Logger
}

func NewPaymentService(payments PaymentStore, orders PaymentOrders, publisher events.Publisher, log zerolog.Logger) *PaymentService {
	return &PaymentService{payments: payments, orders: orders, publisher: publisher, log: log}
}

type CreatePaymentInput struct {
	OrderID               string
	AmountCents           int64
	Method                models.PaymentMethod
	StripePaymentIntentID *string
	StripePaymentMethodID *string
}

type UpdatePaymentInput struct {
	Status                models.PaymentStatus
	StripePaymentIntentID *string
	StripePaymentMethodID *string
}

type paymentEventData struct {
	PaymentID   string               `json:"paymentId"`
	OrderID     string               `json:"orderId"`
	Status      models.PaymentStatus `json:"status"`
	AmountCents int64                `json:"amountCents"`
}

func paymentEvent(payment models.Payment) paymentEventData {
	return paymentEventData{
		PaymentID:   payment.ID,
		OrderID:     payment.OrderID,
		Status:      payment.Status,
		AmountCents: payment.AmountCents,
	}
}

func (s *PaymentService) Create(ctx context.Context, actor Actor, input CreatePaymentInput) (models.Payment, error) {
	orderID := strings.TrimSpace(input.OrderID)
	if orderID == "" {
		return models.Payment{}, errOrderIDRequired
	}
	if input.Method != models.PaymentMethodCard {
		return models.Payment{}, errInvalidPaymentMethod
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return models.Payment{}, notFound(err, repository.ErrOrderNotFound, ErrOrderNotFound, "get order")
	}
	if !actor.Owns(order.UserID) {
		return models.Payment{}, ErrForbidden
	}
	if order.Payment != nil {
		return models.Payment{}, ErrPaymentExists
	}
	if order.Status != models.OrderStatusPending {
		return models.Payment{}, errOrderNotAwaitingPayment
	}
	if input.AmountCents != order.TotalPriceCents {
		return models.Payment{}, errAmountMismatch
	}

	payment, err := s.payments.Create(ctx, models.Payment{
		ID:                    ids.New(),
		OrderID:               order.ID,
		AmountCents:           input.AmountCents,
		Method:                input.Method,
		Status:                models.PaymentStatusPending,
		StripePaymentIntentID: input.StripePaymentIntentID,
		StripePaymentMethodID: input.StripePaymentMethodID,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return models.Payment{}, ErrPaymentExists
		case errors.Is(err, repository.ErrOrderNotFound):
			return models.Payment{}, ErrOrderNotFound
		}
		return models.Payment{}, fmt.Errorf("create payment: %w", err)
	}

	publish(ctx, s.publisher, s.log, events.PaymentCreated, paymentEvent(payment))
	return payment, nil
}

// Get returns a payment to an admin or to the owner of its order.
func (s *PaymentService) Get(ctx context.Context, actor Actor, id string) (models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return models.Payment{}, notFound(err, repository.ErrPaymentNotFound, ErrPaymentNotFound, "get payment")
	}
	if actor.IsAdmin() {
		return payment, nil
	}
	order, err := s.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return models.Payment{}, notFound(err, repository.ErrOrderNotFound, ErrOrderNotFound, "get order")
	}
	if !actor.Owns(order.UserID) {
		return models.Payment{}, ErrForbidden
	}
	return payment, nil
}

func (s *PaymentService) List(ctx context.Context, actor Actor, page Page) ([]models.Payment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	limit, offset := page.Bounds()
	payments, err := s.payments.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

func (s *PaymentService) Update(ctx context.Context, actor Actor, id string, input UpdatePaymentInput) (models.Payment, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Payment{}, err
	}
	if !input.Status.Valid() {
		return models.Payment{}, errInvalidPaymentStatus
	}

	current, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return models.Payment{}, notFound(err, repository.ErrPaymentNotFound, ErrPaymentNotFound, "get payment")
	}
	current.Status = input.Status
	if input.StripePaymentIntentID != nil {
		current.StripePaymentIntentID = input.StripePaymentIntentID
	}
	if input.StripePaymentMethodID != nil {
		current.StripePaymentMethodID = input.StripePaymentMethodID
	}

	payment, err := s.payments.Update(ctx, current)
	if err != nil {
		return models.Payment{}, notFound(err, repository.ErrPaymentNotFound, ErrPaymentNotFound, "update payment")
	}

	publish(ctx, s.publisher, s.log, events.PaymentStatusChanged(string(payment.Status)), paymentEvent(payment))
	return payment, nil
}

func (s *PaymentService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.payments.Delete(ctx, id); err != nil {
		return notFound(err, repository.ErrPaymentNotFound, ErrPaymentNotFound, "delete payment")
	}
	return nil
}

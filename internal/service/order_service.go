package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/repository"
)

var (
	ErrOrderNotFound     = apperr.NotFound("Order not found")
	ErrInsufficientStock = apperr.Conflict("Insufficient stock")

	errEmptyOrder        = apperr.Validation("Order must contain at least one item")
	errInvalidStatus     = apperr.Validation("Invalid order status")
	errInvalidTransition = apperr.Validation("Order status transition not allowed")
)

type OrderStore interface {
	Create(ctx context.Context, userID string, lines []repository.OrderLine, clearCartID string) (models.Order, error)
	GetByID(ctx context.Context, id string) (models.Order, error)
	List(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, next models.OrderStatus) (models.Order, error)
	Delete(ctx context.Context, id string) error
}

// OrderCarts is the part of the cart store used during checkout.
type OrderCarts interface {
	GetByUser(ctx context.Context, userID string) (models.Cart, error)
}

type OrderService struct {
	orders    OrderStore
	carts     OrderCarts
	publisher events.Publisher
	log       zerolog.Logger
}

func NewOrderService(orders OrderStore, carts OrderCarts, publisher events.Publisher, log zerolog.Logger) *OrderService {
	return &OrderService{orders: orders, carts: carts, publisher: publisher, log: log}
}

type OrderItemInput struct {
	ProductID string
	Quantity  int
}

type orderEventData struct {
	OrderID         string             `json:"orderId"`
	UserID          string             `json:"userId"`
	Status          models.OrderStatus `json:"status"`
	TotalPriceCents int64              `json:"totalPriceCents"`
}

func orderEvent(order models.Order) orderEventData {
	return orderEventData{
		OrderID:         order.ID,
		UserID:          order.UserID,
		Status:          order.Status,
		TotalPriceCents: order.TotalPriceCents,
	}
}

// Create places an order. With no items the caller's cart is checked out
// and emptied in the same transaction.
func (s *OrderService) Create(ctx context.Context, actor Actor, items []OrderItemInput) (models.Order, error) {
	var (
		lines       []repository.OrderLine
		clearCartID string
	)
	if len(items) > 0 {
		for _, item := range items {
			productID := strings.TrimSpace(item.ProductID)
			if productID == "" {
				return models.Order{}, errProductIDRequired
			}
			if item.Quantity < 1 {
				return models.Order{}, errQuantityTooLow
			}
			lines = append(lines, repository.OrderLine{ProductID: productID, Quantity: item.Quantity})
		}
	} else {
		cart, err := s.carts.GetByUser(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrCartNotFound) {
				return models.Order{}, errEmptyOrder
			}
			return models.Order{}, fmt.Errorf("get cart: %w", err)
		}
		for _, item := range cart.Items {
			lines = append(lines, repository.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		clearCartID = cart.ID
	}
	if len(lines) == 0 {
		return models.Order{}, errEmptyOrder
	}

	order, err := s.orders.Create(ctx, actor.UserID, lines, clearCartID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientStock):
			return models.Order{}, ErrInsufficientStock
		case errors.Is(err, repository.ErrProductNotFound):
			return models.Order{}, ErrProductNotFound
		}
		return models.Order{}, fmt.Errorf("create order: %w", err)
	}

	publish(ctx, s.publisher, s.log, events.OrderCreated, orderEvent(order))
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, actor Actor, id string) (models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return models.Order{}, notFound(err, repository.ErrOrderNotFound, ErrOrderNotFound, "get order")
	}
	if !actor.Owns(order.UserID) {
		return models.Order{}, ErrForbidden
	}
	return order, nil
}

// List returns every order for admins and the caller's own orders otherwise.
func (s *OrderService) List(ctx context.Context, actor Actor, page Page) ([]models.Order, error) {
	limit, offset := page.Bounds()
	filter := repository.OrderFilter{Limit: limit, Offset: offset}
	if !actor.IsAdmin() {
		filter.UserID = actor.UserID
	}
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, id string, status models.OrderStatus) (models.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Order{}, err
	}
	switch status {
	case models.OrderStatusPending, models.OrderStatusPaid, models.OrderStatusShipped,
		models.OrderStatusDelivered, models.OrderStatusCancelled:
	default:
		return models.Order{}, errInvalidStatus
	}

	order, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return models.Order{}, errInvalidTransition
		}
		return models.Order{}, notFound(err, repository.ErrOrderNotFound, ErrOrderNotFound, "update order")
	}

	publish(ctx, s.publisher, s.log, events.OrderStatusChanged, orderEvent(order))
	return order, nil
}

func (s *OrderService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return notFound(err, repository.ErrOrderNotFound, ErrOrderNotFound, "delete order")
	}
	return nil
}

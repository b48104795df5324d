package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repository"
)

var (
	ErrCartNotFound     = apperr.NotFound("Cart not found")
	ErrCartItemNotFound = apperr.NotFound("Cart item not found")

	errProductIDRequired = apperr.Validation("Product ID is required")
	errQuantityTooLow    = apperr.Validation("Quantity must be at least 1")
)

type CartStore interface {
	GetByUser(ctx context.Context, userID string) (models.Cart, error)
	Ensure(ctx context.Context, userID string) (models.Cart, error)
	AddItem(ctx context.Context, cartID, productID string, quantity int) (models.CartItem, error)
	UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) (models.CartItem, error)
	RemoveItem(ctx context.Context, cartID, itemID string) error
	Clear(ctx context.Context, cartID string) error
}

// CartService manages the caller's own cart. A cart is created the first
// time an item is added.
type CartService struct {
	carts CartStore
	log   zerolog.Logger
}

func NewCartService(carts CartStore, log zerolog.Logger) *CartService {
	return &CartService{carts: carts, log: log}
}

func (s *CartService) Get(ctx context.Context, actor Actor) (models.Cart, error) {
	cart, err := s.carts.GetByUser(ctx, actor.UserID)
	if err != nil {
		return models.Cart{}, notFound(err, repository.ErrCartNotFound, ErrCartNotFound, "get cart")
	}
	return cart, nil
}

func (s *CartService) AddItem(ctx context.Context, actor Actor, productID string, quantity int) (models.CartItem, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return models.CartItem{}, errProductIDRequired
	}
	if quantity < 1 {
		return models.CartItem{}, errQuantityTooLow
	}

	cart, err := s.carts.Ensure(ctx, actor.UserID)
	if err != nil {
		return models.CartItem{}, fmt.Errorf("ensure cart: %w", err)
	}
	item, err := s.carts.AddItem(ctx, cart.ID, productID, quantity)
	if err != nil {
		return models.CartItem{}, notFound(err, repository.ErrProductNotFound, ErrProductNotFound, "add cart item")
	}
	return item, nil
}

func (s *CartService) UpdateItem(ctx context.Context, actor Actor, itemID string, quantity int) (models.CartItem, error) {
	if quantity < 1 {
		return models.CartItem{}, errQuantityTooLow
	}
	cart, err := s.Get(ctx, actor)
	if err != nil {
		return models.CartItem{}, err
	}
	item, err := s.carts.UpdateItemQuantity(ctx, cart.ID, itemID, quantity)
	if err != nil {
		return models.CartItem{}, notFound(err, repository.ErrCartItemNotFound, ErrCartItemNotFound, "update cart item")
	}
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, actor Actor, itemID string) error {
	cart, err := s.Get(ctx, actor)
	if err != nil {
		return err
	}
	if err := s.carts.RemoveItem(ctx, cart.ID, itemID); err != nil {
		return notFound(err, repository.ErrCartItemNotFound, ErrCartItemNotFound, "remove cart item")
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, actor Actor) error {
	cart, err := s.Get(ctx, actor)
	if err != nil {
		return err
	}
	if err := s.carts.Clear(ctx, cart.ID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

package models

import "time"

type Cart struct {
	ID        string
	UserID    string
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CartItem struct {
	ID        string
	CartID    string
	ProductID string
	Quantity  int
	Product   *Product
	CreatedAt time.Time
	UpdatedAt time.Time
}

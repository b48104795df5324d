package models

import "time"

type Review struct {
	ID        string
	UserID    string
	ProductID string
	Rating    int
	Comment   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

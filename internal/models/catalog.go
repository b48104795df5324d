package models

import "time"

type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID          string
	Name        string
	Description string
	PriceCents  int64
	Stock       int
	CategoryID  string
	Images      []ProductImage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProductImage struct {
	ID        string
	ProductID string
	Bucket    string
	ObjectKey string
	URL       string
	Format    string
	SizeBytes int64
	Checksum  []byte
	Position  int
	CreatedAt time.Time
}

package handlers

import (
	"time"

	"storefront/internal/models"
)

type userResponse struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	PhoneNumber *string   `json:"phoneNumber"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Role:        string(u.Role),
		PhoneNumber: u.PhoneNumber,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

type sessionResponse struct {
	ID        string    `json:"id"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type categoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newCategoryResponse(c models.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

type imageResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	SizeBytes int64     `json:"sizeBytes"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

func newImageResponse(img models.ProductImage) imageResponse {
	return imageResponse{
		ID:        img.ID,
		URL:       img.URL,
		Format:    img.Format,
		SizeBytes: img.SizeBytes,
		Position:  img.Position,
		CreatedAt: img.CreatedAt,
	}
}

type productResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	PriceCents  int64           `json:"priceCents"`
	Stock       int             `json:"stock"`
	CategoryID  string          `json:"categoryId"`
	Images      []imageResponse `json:"images"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func newProductResponse(p models.Product) productResponse {
	images := make([]imageResponse, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, newImageResponse(img))
	}
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Stock:       p.Stock,
		CategoryID:  p.CategoryID,
		Images:      images,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type productSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	Stock      int    `json:"stock"`
}

type cartItemResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Product   *productSummary `json:"product,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func newCartItemResponse(item models.CartItem) cartItemResponse {
	resp := cartItemResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	if item.Product != nil {
		resp.Product = &productSummary{
			ID:         item.Product.ID,
			Name:       item.Product.Name,
			PriceCents: item.Product.PriceCents,
			Stock:      item.Product.Stock,
		}
	}
	return resp
}

type cartResponse struct {
	ID    string             `json:"id"`
	Items []cartItemResponse `json:"items"`
}

func newCartResponse(cart models.Cart) cartResponse {
	items := make([]cartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, newCartItemResponse(item))
	}
	return cartResponse{ID: cart.ID, Items: items}
}

type paymentResponse struct {
	ID                    string    `json:"id"`
	OrderID               string    `json:"orderId"`
	AmountCents           int64     `json:"amountCents"`
	Method                string    `json:"method"`
	Status                string    `json:"status"`
	StripePaymentIntentID *string   `json:"stripePaymentIntentId"`
	StripePaymentMethodID *string   `json:"stripePaymentMethodId"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

func newPaymentResponse(p models.Payment) paymentResponse {
	return paymentResponse{
		ID:                    p.ID,
		OrderID:               p.OrderID,
		AmountCents:           p.AmountCents,
		Method:                string(p.Method),
		Status:                string(p.Status),
		StripePaymentIntentID: p.StripePaymentIntentID,
		StripePaymentMethodID: p.StripePaymentMethodID,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

type orderItemResponse struct {
	ID         string `json:"id"`
	ProductID  string `json:"productId"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"priceCents"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"userId"`
	TotalPriceCents int64               `json:"totalPriceCents"`
	Status          string              `json:"status"`
	Items           []orderItemResponse `json:"items"`
	Payment         *paymentResponse    `json:"payment"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func newOrderResponse(o models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			PriceCents: item.PriceCents,
		})
	}
	resp := orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		TotalPriceCents: o.TotalPriceCents,
		Status:          string(o.Status),
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.Payment != nil {
		payment := newPaymentResponse(*o.Payment)
		resp.Payment = &payment
	}
	return resp
}

type reviewResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newReviewResponse(r models.Review) reviewResponse {
	return reviewResponse{
		ID:        r.ID,
		UserID:    r.UserID,
		ProductID: r.ProductID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// mapSlice converts a listing with fn.
func mapSlice[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"storefront/internal/events"
	"storefront/internal/ids"
	"storefront/internal/models"
	"storefront/internal/repository"
	"storefront/internal/security"
	"storefront/internal/tasks"
)

var cheapArgon2 = security.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8}

func testHasher() *security.PasswordHasher {
	return security.NewPasswordHasher(cheapArgon2)
}

func testTokens() *security.TokenIssuer {
	return security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
}

var (
	admin    = Actor{UserID: "admin-1", Role: models.UserRoleAdmin}
	customer = Actor{UserID: "user-1", Role: models.UserRoleCustomer}
	stranger = Actor{UserID: "user-2", Role: models.UserRoleCustomer}
)

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]models.User
	order []string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]models.User{}}
}

func (f *fakeUsers) emailTaken(email, exceptID string) bool {
	for id, u := range f.byID {
		if u.Email == email && id != exceptID {
			return true
		}
	}
	return false
}

func (f *fakeUsers) Create(_ context.Context, user models.User) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emailTaken(user.Email, "") {
		return models.User{}, repository.ErrDuplicate
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.byID[user.ID] = user
	f.order = append(f.order, user.ID)
	return user, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) List(_ context.Context, limit, offset int) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.User{}
	for i := offset; i < len(f.order) && len(out) < limit; i++ {
		if u, ok := f.byID[f.order[i]]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) Update(_ context.Context, user models.User) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[user.ID]; !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	if f.emailTaken(user.Email, user.ID) {
		return models.User{}, repository.ErrDuplicate
	}
	user.UpdatedAt = time.Now()
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUsers) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) SetResetCode(_ context.Context, id string, codeHash []byte, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.ResetCodeHash = codeHash
	u.ResetCodeExpiresAt = &expiresAt
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id string, passwordHash []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetCodeHash = nil
	u.ResetCodeExpiresAt = nil
	f.byID[id] = u
	return nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions []models.Session
}

func (f *fakeSessions) Create(_ context.Context, session models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session.CreatedAt = time.Now()
	f.sessions = append(f.sessions, session)
	return nil
}

func (f *fakeSessions) FindByRefreshHash(_ context.Context, refreshHash []byte) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if bytes.Equal(s.RefreshTokenHash, refreshHash) {
			return s, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (f *fakeSessions) ListByUser(_ context.Context, userID string) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Session{}
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessions) deleteWhere(match func(models.Session) bool) int64 {
	kept := f.sessions[:0]
	var removed int64
	for _, s := range f.sessions {
		if match(s) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	f.sessions = kept
	return removed
}

func (f *fakeSessions) DeleteByRefreshHash(_ context.Context, refreshHash []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteWhere(func(s models.Session) bool { return bytes.Equal(s.RefreshTokenHash, refreshHash) }) == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}

func (f *fakeSessions) DeleteByID(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteWhere(func(s models.Session) bool { return s.ID == id && s.UserID == userID }) == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}

func (f *fakeSessions) DeleteByUser(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteWhere(func(s models.Session) bool { return s.UserID == userID }), nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fakeTasks struct {
	mu    sync.Mutex
	tasks []tasks.Task
}

func (f *fakeTasks) Enqueue(_ context.Context, task tasks.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return nil
}

type fakeCategories struct {
	byID  map[string]models.Category
	inUse map[string]bool
}

func newFakeCategories() *fakeCategories {
	return &fakeCategories{byID: map[string]models.Category{}, inUse: map[string]bool{}}
}

func (f *fakeCategories) nameTaken(name, exceptID string) bool {
	for id, c := range f.byID {
		if c.Name == name && id != exceptID {
			return true
		}
	}
	return false
}

func (f *fakeCategories) Create(_ context.Context, category models.Category) (models.Category, error) {
	if f.nameTaken(category.Name, "") {
		return models.Category{}, repository.ErrDuplicate
	}
	f.byID[category.ID] = category
	return category, nil
}

func (f *fakeCategories) GetByID(_ context.Context, id string) (models.Category, error) {
	c, ok := f.byID[id]
	if !ok {
		return models.Category{}, repository.ErrCategoryNotFound
	}
	return c, nil
}

func (f *fakeCategories) List(_ context.Context, limit, _ int) ([]models.Category, error) {
	out := []models.Category{}
	for _, c := range f.byID {
		if len(out) == limit {
			break
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCategories) Update(_ context.Context, category models.Category) (models.Category, error) {
	if _, ok := f.byID[category.ID]; !ok {
		return models.Category{}, repository.ErrCategoryNotFound
	}
	if f.nameTaken(category.Name, category.ID) {
		return models.Category{}, repository.ErrDuplicate
	}
	f.byID[category.ID] = category
	return category, nil
}

func (f *fakeCategories) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	if f.inUse[id] {
		return repository.ErrReferenced
	}
	delete(f.byID, id)
	return nil
}

type fakeProducts struct {
	byID       map[string]models.Product
	referenced map[string]bool
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{byID: map[string]models.Product{}, referenced: map[string]bool{}}
}

func (f *fakeProducts) Create(_ context.Context, product models.Product) (models.Product, error) {
	product.Images = []models.ProductImage{}
	f.byID[product.ID] = product
	return product, nil
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (models.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return models.Product{}, repository.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProducts) List(_ context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	out := []models.Product{}
	for _, p := range f.byID {
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProducts) Update(_ context.Context, product models.Product) (models.Product, error) {
	if _, ok := f.byID[product.ID]; !ok {
		return models.Product{}, repository.ErrProductNotFound
	}
	f.byID[product.ID] = product
	return product, nil
}

func (f *fakeProducts) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrProductNotFound
	}
	if f.referenced[id] {
		return repository.ErrReferenced
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeProducts) AddImage(_ context.Context, image models.ProductImage) (models.ProductImage, error) {
	p, ok := f.byID[image.ProductID]
	if !ok {
		return models.ProductImage{}, repository.ErrProductNotFound
	}
	image.Position = len(p.Images)
	p.Images = append(p.Images, image)
	f.byID[p.ID] = p
	return image, nil
}

func (f *fakeProducts) DeleteImage(_ context.Context, productID, imageID string) (models.ProductImage, error) {
	p, ok := f.byID[productID]
	if !ok {
		return models.ProductImage{}, repository.ErrImageNotFound
	}
	for i, img := range p.Images {
		if img.ID == imageID {
			p.Images = append(p.Images[:i], p.Images[i+1:]...)
			f.byID[productID] = p
			return img, nil
		}
	}
	return models.ProductImage{}, repository.ErrImageNotFound
}

type fakeObjectStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjectStore) Bucket() string { return "images" }

func (f *fakeObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	f.objects[key] = data
	f.types[key] = contentType
	return int64(len(data)), nil
}

func (f *fakeObjectStore) Remove(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) PublicURL(key string) string {
	return "http://cdn.test/images/" + key
}

// fakeCommerce backs carts, orders and payments with one shared state so
// checkout and payment flows behave like the real transaction.
type fakeCommerce struct {
	products *fakeProducts
	carts    map[string]*models.Cart
	orders   map[string]models.Order
	payments map[string]models.Payment
}

func newFakeCommerce(products *fakeProducts) *fakeCommerce {
	return &fakeCommerce{
		products: products,
		carts:    map[string]*models.Cart{},
		orders:   map[string]models.Order{},
		payments: map[string]models.Payment{},
	}
}

type fakeCarts struct{ *fakeCommerce }

func (f fakeCarts) GetByUser(_ context.Context, userID string) (models.Cart, error) {
	cart, ok := f.carts[userID]
	if !ok {
		return models.Cart{}, repository.ErrCartNotFound
	}
	out := *cart
	out.Items = append([]models.CartItem(nil), cart.Items...)
	return out, nil
}

func (f fakeCarts) Ensure(_ context.Context, userID string) (models.Cart, error) {
	cart, ok := f.carts[userID]
	if !ok {
		cart = &models.Cart{ID: ids.New(), UserID: userID, Items: []models.CartItem{}}
		f.carts[userID] = cart
	}
	return *cart, nil
}

func (f fakeCarts) cartByID(cartID string) *models.Cart {
	for _, c := range f.carts {
		if c.ID == cartID {
			return c
		}
	}
	return nil
}

func (f fakeCarts) AddItem(_ context.Context, cartID, productID string, quantity int) (models.CartItem, error) {
	if _, ok := f.products.byID[productID]; !ok {
		return models.CartItem{}, repository.ErrProductNotFound
	}
	cart := f.cartByID(cartID)
	for i, item := range cart.Items {
		if item.ProductID == productID {
			cart.Items[i].Quantity += quantity
			return cart.Items[i], nil
		}
	}
	item := models.CartItem{ID: ids.New(), CartID: cartID, ProductID: productID, Quantity: quantity}
	cart.Items = append(cart.Items, item)
	return item, nil
}

func (f fakeCarts) UpdateItemQuantity(_ context.Context, cartID, itemID string, quantity int) (models.CartItem, error) {
	cart := f.cartByID(cartID)
	for i, item := range cart.Items {
		if item.ID == itemID {
			cart.Items[i].Quantity = quantity
			return cart.Items[i], nil
		}
	}
	return models.CartItem{}, repository.ErrCartItemNotFound
}

func (f fakeCarts) RemoveItem(_ context.Context, cartID, itemID string) error {
	cart := f.cartByID(cartID)
	for i, item := range cart.Items {
		if item.ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return nil
		}
	}
	return repository.ErrCartItemNotFound
}

func (f fakeCarts) Clear(_ context.Context, cartID string) error {
	if cart := f.cartByID(cartID); cart != nil {
		cart.Items = []models.CartItem{}
	}
	return nil
}

type fakeOrders struct{ *fakeCommerce }

func (f fakeOrders) Create(_ context.Context, userID string, lines []repository.OrderLine, clearCartID string) (models.Order, error) {
	for _, line := range lines {
		p, ok := f.products.byID[line.ProductID]
		if !ok {
			return models.Order{}, repository.ErrProductNotFound
		}
		if p.Stock < line.Quantity {
			return models.Order{}, repository.ErrInsufficientStock
		}
	}
	order := models.Order{ID: ids.New(), UserID: userID, Status: models.OrderStatusPending}
	for _, line := range lines {
		p := f.products.byID[line.ProductID]
		p.Stock -= line.Quantity
		f.products.byID[p.ID] = p
		order.TotalPriceCents += p.PriceCents * int64(line.Quantity)
		order.Items = append(order.Items, models.OrderItem{
			ID:         ids.New(),
			OrderID:    order.ID,
			ProductID:  p.ID,
			Quantity:   line.Quantity,
			PriceCents: p.PriceCents,
		})
	}
	if clearCartID != "" {
		_ = fakeCarts(f).Clear(context.Background(), clearCartID)
	}
	f.orders[order.ID] = order
	return order, nil
}

func (f fakeOrders) GetByID(_ context.Context, id string) (models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return models.Order{}, repository.ErrOrderNotFound
	}
	for _, p := range f.payments {
		if p.OrderID == id {
			payment := p
			order.Payment = &payment
		}
	}
	return order, nil
}

func (f fakeOrders) List(_ context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	out := []models.Order{}
	for _, o := range f.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (f fakeOrders) UpdateStatus(_ context.Context, id string, next models.OrderStatus) (models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return models.Order{}, repository.ErrOrderNotFound
	}
	if !order.Status.CanTransition(next) {
		return models.Order{}, repository.ErrInvalidTransition
	}
	if next == models.OrderStatusCancelled {
		f.restock(order)
	}
	order.Status = next
	f.orders[id] = order
	return order, nil
}

func (f fakeOrders) restock(order models.Order) {
	for _, item := range order.Items {
		p := f.products.byID[item.ProductID]
		p.Stock += item.Quantity
		f.products.byID[p.ID] = p
	}
}

func (f fakeOrders) Delete(_ context.Context, id string) error {
	order, ok := f.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if order.Status == models.OrderStatusPending || order.Status == models.OrderStatusPaid {
		f.restock(order)
	}
	delete(f.orders, id)
	return nil
}

type fakePayments struct{ *fakeCommerce }

func (f fakePayments) Create(_ context.Context, payment models.Payment) (models.Payment, error) {
	if _, ok := f.orders[payment.OrderID]; !ok {
		return models.Payment{}, repository.ErrOrderNotFound
	}
	for _, p := range f.payments {
		if p.OrderID == payment.OrderID {
			return models.Payment{}, repository.ErrDuplicate
		}
	}
	f.payments[payment.ID] = payment
	return payment, nil
}

func (f fakePayments) GetByID(_ context.Context, id string) (models.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return models.Payment{}, repository.ErrPaymentNotFound
	}
	return p, nil
}

func (f fakePayments) List(_ context.Context, _, _ int) ([]models.Payment, error) {
	out := []models.Payment{}
	for _, p := range f.payments {
		out = append(out, p)
	}
	return out, nil
}

func (f fakePayments) Update(_ context.Context, payment models.Payment) (models.Payment, error) {
	if _, ok := f.payments[payment.ID]; !ok {
		return models.Payment{}, repository.ErrPaymentNotFound
	}
	f.payments[payment.ID] = payment
	if payment.Status == models.PaymentStatusSuccess {
		order := f.orders[payment.OrderID]
		if order.Status == models.OrderStatusPending {
			order.Status = models.OrderStatusPaid
			f.orders[order.ID] = order
		}
	}
	return payment, nil
}

func (f fakePayments) Delete(_ context.Context, id string) error {
	if _, ok := f.payments[id]; !ok {
		return repository.ErrPaymentNotFound
	}
	delete(f.payments, id)
	return nil
}

type fakeReviews struct {
	products *fakeProducts
	byID     map[string]models.Review
}

func (f *fakeReviews) Create(_ context.Context, review models.Review) (models.Review, error) {
	if _, ok := f.products.byID[review.ProductID]; !ok {
		return models.Review{}, repository.ErrProductNotFound
	}
	for _, r := range f.byID {
		if r.UserID == review.UserID && r.ProductID == review.ProductID {
			return models.Review{}, repository.ErrDuplicate
		}
	}
	f.byID[review.ID] = review
	return review, nil
}

func (f *fakeReviews) GetByID(_ context.Context, id string) (models.Review, error) {
	r, ok := f.byID[id]
	if !ok {
		return models.Review{}, repository.ErrReviewNotFound
	}
	return r, nil
}

func (f *fakeReviews) List(_ context.Context, filter repository.ReviewFilter) ([]models.Review, error) {
	out := []models.Review{}
	for _, r := range f.byID {
		if filter.ProductID != "" && r.ProductID != filter.ProductID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReviews) Update(_ context.Context, review models.Review) (models.Review, error) {
	if _, ok := f.byID[review.ID]; !ok {
		return models.Review{}, repository.ErrReviewNotFound
	}
	f.byID[review.ID] = review
	return review, nil
}

func (f *fakeReviews) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return repository.ErrReviewNotFound
	}
	delete(f.byID, id)
	return nil
}

type recordingPublisher struct {
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.types = append(p.types, event.Type)
	return nil
}

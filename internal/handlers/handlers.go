package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/service"
)

type Services struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Catalog  *service.CatalogService
	Images   *service.ProductImageService
	Carts    *service.CartService
	Orders   *service.OrderService
	Payments *service.PaymentService
	Reviews  *service.ReviewService
}

type HandlerSet struct {
	log    zerolog.Logger
	cfg    *config.AppConfig
	svc    Services
	checks []HealthCheck
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, svc Services, checks ...HealthCheck) HandlerSet {
	return HandlerSet{
		log:    log,
		cfg:    cfg,
		svc:    svc,
		checks: checks,
	}
}

func (h HandlerSet) Routes(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	authenticated := middleware.Auth(h.svc.Auth)
	adminOnly := middleware.RequireRoles(models.UserRoleAdmin)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.Use(middleware.RateLimit(h.cfg.RateLimit, h.log))
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
		auth.POST("/lost-email", h.LostEmail)
		auth.POST("/lost-code", h.LostCode)

		auth.GET("/me", authenticated, h.Me)
		auth.GET("/sessions", authenticated, h.ListSessions)
		auth.DELETE("/sessions/:id", authenticated, h.RevokeSession)
	}

	users := v1.Group("/users", authenticated)
	{
		users.GET("", adminOnly, h.ListUsers)
		users.POST("", adminOnly, h.CreateUser)
		users.GET("/:id", h.GetUser)
		users.PATCH("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
	}

	categories := v1.Group("/categories")
	{
		categories.GET("", h.ListCategories)
		categories.GET("/:id", h.GetCategory)
		categories.POST("", authenticated, adminOnly, h.CreateCategory)
		categories.PATCH("/:id", authenticated, adminOnly, h.UpdateCategory)
		categories.DELETE("/:id", authenticated, adminOnly, h.DeleteCategory)
	}

	products := v1.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
		products.POST("", authenticated, adminOnly, h.CreateProduct)
		products.PATCH("/:id", authenticated, adminOnly, h.UpdateProduct)
		products.DELETE("/:id", authenticated, adminOnly, h.DeleteProduct)
		products.POST("/:id/images", authenticated, adminOnly, h.UploadProductImage)
		products.DELETE("/:id/images/:imageId", authenticated, adminOnly, h.DeleteProductImage)
	}

	cart := v1.Group("/cart", authenticated)
	{
		cart.GET("", h.GetCart)
		cart.POST("/item", h.AddCartItem)
		cart.PATCH("/item/:id", h.UpdateCartItem)
		cart.DELETE("/item/:id", h.RemoveCartItem)
		cart.DELETE("/clear", h.ClearCart)
	}

	orders := v1.Group("/orders", authenticated)
	{
		orders.GET("", h.ListOrders)
		orders.POST("", h.CreateOrder)
		orders.GET("/:id", h.GetOrder)
		orders.PATCH("/:id", adminOnly, h.UpdateOrder)
		orders.DELETE("/:id", adminOnly, h.DeleteOrder)
	}

	payments := v1.Group("/payments", authenticated)
	{
		payments.GET("", adminOnly, h.ListPayments)
		payments.POST("", h.CreatePayment)
		payments.GET("/:id", h.GetPayment)
		payments.PATCH("/:id", adminOnly, h.UpdatePayment)
		payments.DELETE("/:id", adminOnly, h.DeletePayment)
	}

	reviews := v1.Group("/reviews")
	{
		reviews.GET("", h.ListReviews)
		reviews.GET("/:id", h.GetReview)
		reviews.POST("", authenticated, h.CreateReview)
		reviews.PATCH("/:id", authenticated, h.UpdateReview)
		reviews.DELETE("/:id", authenticated, h.DeleteReview)
	}
}

// actor builds the service caller from the user stored by middleware.Auth.
func actor(c *gin.Context) service.Actor {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return service.Actor{}
	}
	return service.Actor{UserID: user.ID, Role: user.Role}
}

func page(c *gin.Context) service.Page {
	number, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return service.Page{Number: number, Limit: limit}
}

// fail records err for middleware.Errors to render.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

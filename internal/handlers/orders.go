package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/service"
)

type orderItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type createOrderRequest struct {
	Items []orderItemRequest `json:"items" binding:"omitempty,dive"`
}

// CreateOrder accepts explicit items or an empty body, which checks out the
// caller's cart.
func (h HandlerSet) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, err)
		return
	}

	items := make([]service.OrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.OrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.svc.Orders.Create(c.Request.Context(), actor(c), items)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Order created successfully", "order": newOrderResponse(order)})
}

func (h HandlerSet) ListOrders(c *gin.Context) {
	orders, err := h.svc.Orders.List(c.Request.Context(), actor(c), page(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Orders retrieved successfully", "orders": mapSlice(orders, newOrderResponse)})
}

func (h HandlerSet) GetOrder(c *gin.Context) {
	order, err := h.svc.Orders.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order retrieved successfully", "order": newOrderResponse(order)})
}

type updateOrderRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING PAID SHIPPED DELIVERED CANCELLED"`
}

func (h HandlerSet) UpdateOrder(c *gin.Context) {
	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	order, err := h.svc.Orders.UpdateStatus(c.Request.Context(), actor(c), c.Param("id"), models.OrderStatus(req.Status))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order updated successfully", "order": newOrderResponse(order)})
}

func (h HandlerSet) DeleteOrder(c *gin.Context) {
	if err := h.svc.Orders.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted successfully"})
}

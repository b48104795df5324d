package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) GetCart(c *gin.Context) {
	cart, err := h.svc.Carts.Get(c.Request.Context(), actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart retrieved successfully", "cart": newCartResponse(cart)})
}

type addCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

func (h HandlerSet) AddCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	item, err := h.svc.Carts.AddItem(c.Request.Context(), actor(c), req.ProductID, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Cart item added successfully", "cartItem": newCartItemResponse(item)})
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

func (h HandlerSet) UpdateCartItem(c *gin.Context) {
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	item, err := h.svc.Carts.UpdateItem(c.Request.Context(), actor(c), c.Param("id"), req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart item updated successfully", "cartItem": newCartItemResponse(item)})
}

func (h HandlerSet) RemoveCartItem(c *gin.Context) {
	if err := h.svc.Carts.RemoveItem(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart item removed successfully"})
}

func (h HandlerSet) ClearCart(c *gin.Context) {
	if err := h.svc.Carts.Clear(c.Request.Context(), actor(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared successfully"})
}

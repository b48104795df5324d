package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/service"
)

type createPaymentRequest struct {
	OrderID               string  `json:"orderId" binding:"required"`
	AmountCents           int64   `json:"amountCents" binding:"min=0"`
	Method                string  `json:"method" binding:"required,oneof=CARD"`
	StripePaymentIntentID *string `json:"stripePaymentIntentId"`
	StripePaymentMethodID *string `json:"stripePaymentMethodId"`
}

func (h HandlerSet) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	payment, err := h.svc.Payments.Create(c.Request.Context(), actor(c), service.CreatePaymentInput{
		OrderID:               req.OrderID,
		AmountCents:           req.AmountCents,
		Method:                models.PaymentMethod(req.Method),
		StripePaymentIntentID: req.StripePaymentIntentID,
		StripePaymentMethodID: req.StripePaymentMethodID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Payment created successfully", "payment": newPaymentResponse(payment)})
}

func (h HandlerSet) ListPayments(c *gin.Context) {
	payments, err := h.svc.Payments.List(c.Request.Context(), actor(c), page(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payments retrieved successfully", "payments": mapSlice(payments, newPaymentResponse)})
}

func (h HandlerSet) GetPayment(c *gin.Context) {
	payment, err := h.svc.Payments.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment retrieved successfully", "payment": newPaymentResponse(payment)})
}

type updatePaymentRequest struct {
	Status                string  `json:"status" binding:"required,oneof=PENDING SUCCESS FAILED"`
	StripePaymentIntentID *string `json:"stripePaymentIntentId"`
	StripePaymentMethodID *string `json:"stripePaymentMethodId"`
}

func (h HandlerSet) UpdatePayment(c *gin.Context) {
	var req updatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	payment, err := h.svc.Payments.Update(c.Request.Context(), actor(c), c.Param("id"), service.UpdatePaymentInput{
		Status:                models.PaymentStatus(req.Status),
		StripePaymentIntentID: req.StripePaymentIntentID,
		StripePaymentMethodID: req.StripePaymentMethodID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment updated successfully", "payment": newPaymentResponse(payment)})
}

func (h HandlerSet) DeletePayment(c *gin.Context) {
	if err := h.svc.Payments.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment deleted successfully"})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/service"
)

func (h HandlerSet) ListReviews(c *gin.Context) {
	reviews, err := h.svc.Reviews.List(c.Request.Context(), service.ReviewQuery{
		ProductID: c.Query("productId"),
		Page:      page(c),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reviews retrieved successfully", "reviews": mapSlice(reviews, newReviewResponse)})
}

func (h HandlerSet) GetReview(c *gin.Context) {
	review, err := h.svc.Reviews.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review retrieved successfully", "review": newReviewResponse(review)})
}

type createReviewRequest struct {
	ProductID string  `json:"productId" binding:"required"`
	Rating    int     `json:"rating" binding:"required,min=1,max=5"`
	Comment   *string `json:"comment"`
}

func (h HandlerSet) CreateReview(c *gin.Context) {
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	review, err := h.svc.Reviews.Create(c.Request.Context(), actor(c), service.CreateReviewInput{
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Review created successfully", "review": newReviewResponse(review)})
}

type updateReviewRequest struct {
	Rating  *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Comment *string `json:"comment"`
}

func (h HandlerSet) UpdateReview(c *gin.Context) {
	var req updateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	review, err := h.svc.Reviews.Update(c.Request.Context(), actor(c), c.Param("id"), service.UpdateReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review updated successfully", "review": newReviewResponse(review)})
}

func (h HandlerSet) DeleteReview(c *gin.Context) {
	if err := h.svc.Reviews.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}

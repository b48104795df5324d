package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/service"
)

type categoryRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h HandlerSet) ListCategories(c *gin.Context) {
	categories, err := h.svc.Catalog.ListCategories(c.Request.Context(), page(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Categories retrieved successfully",
		"categories": mapSlice(categories, newCategoryResponse),
	})
}

func (h HandlerSet) GetCategory(c *gin.Context) {
	category, err := h.svc.Catalog.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category retrieved successfully", "category": newCategoryResponse(category)})
}

func (h HandlerSet) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	category, err := h.svc.Catalog.CreateCategory(c.Request.Context(), actor(c), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Category created successfully", "category": newCategoryResponse(category)})
}

func (h HandlerSet) UpdateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	category, err := h.svc.Catalog.UpdateCategory(c.Request.Context(), actor(c), c.Param("id"), req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category updated successfully", "category": newCategoryResponse(category)})
}

func (h HandlerSet) DeleteCategory(c *gin.Context) {
	if err := h.svc.Catalog.DeleteCategory(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}

func (h HandlerSet) ListProducts(c *gin.Context) {
	products, err := h.svc.Catalog.ListProducts(c.Request.Context(), service.ProductQuery{
		CategoryID: c.Query("categoryId"),
		Page:       page(c),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Products retrieved successfully",
		"products": mapSlice(products, newProductResponse),
	})
}

func (h HandlerSet) GetProduct(c *gin.Context) {
	product, err := h.svc.Catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product retrieved successfully", "product": newProductResponse(product)})
}

type createProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	PriceCents  *int64 `json:"priceCents" binding:"required,min=0"`
	Stock       *int   `json:"stock" binding:"required,min=0"`
	CategoryID  string `json:"categoryId" binding:"required"`
}

func (h HandlerSet) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	product, err := h.svc.Catalog.CreateProduct(c.Request.Context(), actor(c), service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  *req.PriceCents,
		Stock:       *req.Stock,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Product created successfully", "product": newProductResponse(product)})
}

type updateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"priceCents" binding:"omitempty,min=0"`
	Stock       *int    `json:"stock" binding:"omitempty,min=0"`
	CategoryID  *string `json:"categoryId"`
}

func (h HandlerSet) UpdateProduct(c *gin.Context) {
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	product, err := h.svc.Catalog.UpdateProduct(c.Request.Context(), actor(c), c.Param("id"), service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully", "product": newProductResponse(product)})
}

func (h HandlerSet) DeleteProduct(c *gin.Context) {
	if err := h.svc.Catalog.DeleteProduct(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
	"storefront/internal/service"
)

var errFileRequired = apperr.Validation("file is required")

func (h HandlerSet) UploadProductImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.HTTP.MaxUploadBytes+1<<20)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		fail(c, errFileRequired)
		return
	}
	defer file.Close()

	image, err := h.svc.Images.Upload(c.Request.Context(), actor(c), service.UploadImageInput{
		ProductID:    c.Param("id"),
		File:         file,
		DeclaredType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Image uploaded successfully", "image": newImageResponse(image)})
}

func (h HandlerSet) DeleteProductImage(c *gin.Context) {
	if err := h.svc.Images.Delete(c.Request.Context(), actor(c), c.Param("id"), c.Param("imageId")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully"})
}

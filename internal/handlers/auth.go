package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/middleware"
	"storefront/internal/service"
)

type registerRequest struct {
	FirstName   string  `json:"firstName" binding:"required"`
	LastName    string  `json:"lastName" binding:"required"`
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required,min=6"`
	PhoneNumber *string `json:"phoneNumber" binding:"omitempty,phone"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (h HandlerSet) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	pair, err := h.svc.Auth.Register(c.Request.Context(), service.RegisterInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	pair, err := h.svc.Auth.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req refreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	accessToken, err := h.svc.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}

func (h HandlerSet) Logout(c *gin.Context) {
	var req refreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	if err := h.svc.Auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

type lostEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h HandlerSet) LostEmail(c *gin.Context) {
	var req lostEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	result, err := h.svc.Auth.LostEmail(c.Request.Context(), req.Email)
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{"message": "Email sent", "success": true}
	if result.Code != "" {
		resp["code"] = result.Code
	}
	c.JSON(http.StatusOK, resp)
}

type lostCodeRequest struct {
	Email     string `json:"email" binding:"required,email"`
	ResetCode string `json:"reset_code" binding:"required"`
	Password  string `json:"password" binding:"required,min=6"`
}

func (h HandlerSet) LostCode(c *gin.Context) {
	var req lostCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}

	if err := h.svc.Auth.LostCode(c.Request.Context(), service.LostCodeInput{
		Email:     req.Email,
		ResetCode: req.ResetCode,
		Password:  req.Password,
	}); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully", "success": true})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, service.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User retrieved successfully", "user": newUserResponse(user)})
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	sessions, err := h.svc.Auth.ListSessions(c.Request.Context(), actor(c).UserID)
	if err != nil {
		fail(c, err)
		return
	}

	resp := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, sessionResponse{
			ID:        s.ID,
			IPAddress: s.IPAddress,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": resp})
}

func (h HandlerSet) RevokeSession(c *gin.Context) {
	if err := h.svc.Auth.RevokeSession(c.Request.Context(), actor(c).UserID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

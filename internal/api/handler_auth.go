package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dormitory-backend/internal/auth"
	"dormitory-backend/internal/model"
	"dormitory-backend/internal/store"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Login exchanges staff credentials for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}

	u, err := h.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		h.respondError(c, err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, expires, err := h.auth.Generate(u)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, User: u})
}

// Me returns the authenticated user.
func (h *Handler) Me(c *gin.Context) {
	u, err := h.store.GetUser(c.Request.Context(), auth.UserID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// ListUsers returns every staff account.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

type createUserRequest struct {
	Name        string     `json:"name" binding:"required,notblank,max=128"`
	Email       string     `json:"email" binding:"required,email,max=128"`
	Password    string     `json:"password" binding:"required,min=8"`
	Role        model.Role `json:"role" binding:"required,oneof=admin manager cashier"`
	DormitoryID *int64     `json:"dormitory_id" binding:"omitempty,gt=0"`
}

// CreateUser adds a staff account.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if !h.bind(c, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	u := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		DormitoryID:  req.DormitoryID,
	}
	if err := h.store.CreateUser(c.Request.Context(), u); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// DeleteUser removes a staff account. Admins cannot delete themselves.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if id == auth.UserID(c) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "cannot delete your own account"})
		return
	}
	if err := h.store.DeleteUser(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// internal/handlers/auth/auth_handler.go
package auth

import (
	"errors"
	"net/http"

	"mealbox-service/internal/domain/user"
	"mealbox-service/internal/middleware"
	xerrors "mealbox-service/internal/pkg/errors"
	"mealbox-service/internal/pkg/response"
	service "mealbox-service/internal/service/auth"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrConflict) {
			response.Conflict(c, "email already registered", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to register", err)
		return
	}

	response.Success(c, http.StatusCreated, "registered successfully", result)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrInvalidCredentials) {
			response.Unauthorized(c, "invalid email or password")
			return
		}
		if errors.Is(err, xerrors.ErrForbidden) {
			response.Forbidden(c, "account is not active")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to login", err)
		return
	}

	response.Success(c, http.StatusOK, "logged in successfully", result)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)
	jti := middleware.MustGetJTI(c)

	if err := h.authService.Logout(c.Request.Context(), jti, identityID); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to logout", err)
		return
	}
	response.Success(c, http.StatusOK, "logged out successfully", nil)
}

func (h *AuthHandler) LogoutAll(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)

	if err := h.authService.LogoutAll(c.Request.Context(), identityID); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to logout", err)
		return
	}
	response.Success(c, http.StatusOK, "all sessions revoked", nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)

	u, err := h.authService.GetUser(c.Request.Context(), identityID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	response.Success(c, http.StatusOK, "user retrieved", u)
}

package handler

import (
	"net/http"

	"casametrix_front/internal/auth/service"
	"casametrix_front/internal/auth/transport"
	"casametrix_front/platform/apperr"
	"casametrix_front/platform/httpkit"
	"casametrix_front/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the credential routes, which get the stricter limiter.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.Login)
	rg.POST("/register", h.Register)
}

func (h *Handler) Login(c *gin.Context) {
	browserID, ok := httpkit.MustBrowserID(c)
	if !ok {
		return
	}
	var req transport.LoginRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.svc.Login(c.Request.Context(), browserID, req.Email, req.Password)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.AuthResponse{Authenticated: true, User: toUserResponse(user)})
}

func (h *Handler) Register(c *gin.Context) {
	browserID, ok := httpkit.MustBrowserID(c)
	if !ok {
		return
	}
	var req transport.RegisterRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.svc.Register(c.Request.Context(), browserID, req.Email, req.Password)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.AuthResponse{Authenticated: true, User: toUserResponse(user)})
}

func (h *Handler) Me(c *gin.Context) {
	browserID, ok := httpkit.MustBrowserID(c)
	if !ok {
		return
	}
	user, err := h.svc.Me(c.Request.Context(), browserID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.AuthResponse{Authenticated: true, User: toUserResponse(user)})
}

func (h *Handler) Logout(c *gin.Context) {
	browserID, ok := httpkit.MustBrowserID(c)
	if !ok {
		return
	}
	msg, err := h.svc.Logout(c.Request.Context(), browserID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.AuthResponse{Authenticated: false, Message: msg})
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return false
	}
	return true
}

func toUserResponse(u service.User) *transport.UserResponse {
	return &transport.UserResponse{
		UserID:   u.UserID,
		OrgID:    u.OrgID,
		Email:    u.Email,
		FullName: u.FullName,
		IsAdmin:  u.IsAdmin,
	}
}

package http

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smrs-space/smrs-backend/internal/accounts/domain"
	"github.com/smrs-space/smrs-backend/internal/accounts/service"
	"github.com/smrs-space/smrs-backend/internal/auth"
	"github.com/smrs-space/smrs-backend/internal/response"
)

type Handler struct {
	svc *service.Service
}

// RegisterPublic mounts the routes reachable without a token.
func RegisterPublic(rg *gin.RouterGroup, svc *service.Service) {
	h := &Handler{svc: svc}

	rg.POST("/login", h.login)
	rg.POST("/register", h.create)
	rg.POST("/forgot-password", h.forgotPassword)
}

// Register mounts the authenticated account routes; admin-only routes expect
// auth.AdminRequired() on the group.
func Register(rg *gin.RouterGroup, admin *gin.RouterGroup, svc *service.Service) {
	h := &Handler{svc: svc}

	rg.GET("/me", h.me)
	rg.PUT("/me", h.update)
	rg.PUT("/me/password", h.changePassword)

	admin.GET("", h.list)
	admin.PUT("/:id/lock", h.lock)
	admin.PUT("/:id/activate", h.activate)
	admin.DELETE("/:id", h.delete)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid body")
		return
	}

	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res, "Login successfully")
}

type createReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Age      int    `json:"age"`
	Avatar   string `json:"avatar"`
	Role     string `json:"role"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid body")
		return
	}

	acc, err := h.svc.Create(c.Request.Context(), domain.CreateInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Age:      req.Age,
		Avatar:   req.Avatar,
		Role:     req.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, acc, "Account created successfully")
}

func (h *Handler) me(c *gin.Context) {
	acc, err := h.svc.GetMe(c.Request.Context(), auth.AccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, acc, "Get account successfully")
}

type updateReq struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Age    int    `json:"age"`
	Avatar string `json:"avatar"`
}

func (h *Handler) update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid body")
		return
	}

	acc, err := h.svc.Update(c.Request.Context(), auth.AccountID(c), domain.UpdateInput{
		Name:   req.Name,
		Phone:  req.Phone,
		Age:    req.Age,
		Avatar: req.Avatar,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, acc, "Account updated successfully")
}

func (h *Handler) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	items, total, err := h.svc.List(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	response.OK(c, response.NewPage(items, total, page, size), "Get accounts successfully")
}

func (h *Handler) lock(c *gin.Context) {
	if err := h.svc.Lock(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil, "Account locked successfully")
}

func (h *Handler) activate(c *gin.Context) {
	if err := h.svc.Activate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil, "Account activated successfully")
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil, "Account deleted successfully")
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.NewPassword) == "" {
		response.BadRequest(c, "new password is required")
		return
	}

	err := h.svc.ChangePassword(c.Request.Context(), auth.AccountID(c), req.OldPassword, req.NewPassword)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil, "Password changed successfully")
}

type forgotPasswordReq struct {
	Email string `json:"email"`
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var req forgotPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		response.BadRequest(c, "email is required")
		return
	}

	if err := h.svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil, "Temporary password sent")
}

package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smrs-space/smrs-backend/internal/auth"
	"github.com/smrs-space/smrs-backend/internal/members/service"
	"github.com/smrs-space/smrs-backend/internal/response"
)

type Handler struct {
	svc *service.Service
}

func Register(rg *gin.RouterGroup, svc *service.Service) {
	h := &Handler{svc: svc}

	rg.GET("/invitations", h.myInvitations)
	rg.POST("/invitations", h.invite)
	rg.PUT("/invitations/:id/approve", h.approve)
	rg.PUT("/invitations/:id/cancel", h.cancel)
	rg.GET("/my-projects", h.myProjects)
	rg.GET("/my-active-project", h.myActiveProject)
	rg.GET("/projects/:id/members", h.projectMembers)
}

func (h *Handler) myInvitations(c *gin.Context) {
	items, err := h.svc.ListMyInvitations(c.Request.Context(), auth.AccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items, "Get invitations successfully")
}

type inviteReq struct {
	ProjectID  string `json:"project_id"`
	AccountID  string `json:"account_id"`
	MemberRole string `json:"member_role"`
}

func (h *Handler) invite(c *gin.Context) {
	var req inviteReq
	if err := c.ShouldBindJSON(&req); err != nil ||
		strings.TrimSpace(req.ProjectID) == "" || strings.TrimSpace(req.AccountID) == "" {
		response.BadRequest(c, "invalid body")
		return
	}

	inv, err := h.svc.Invite(c.Request.Context(),
		strings.TrimSpace(req.ProjectID), strings.TrimSpace(req.AccountID),
		strings.ToUpper(strings.TrimSpace(req.MemberRole)),
		auth.AccountID(c), auth.Role(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, inv, "Invitation created successfully")
}

func (h *Handler) approve(c *gin.Context) {
	if err := h.svc.Approve(c.Request.Context(), c.Param("id"), auth.AccountID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil, "Invitation approved successfully")
}

func (h *Handler) cancel(c *gin.Context) {
	if err := h.svc.Cancel(c.Request.Context(), c.Param("id"), auth.AccountID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil, "Invitation cancelled successfully")
}

func (h *Handler) myProjects(c *gin.Context) {
	items, err := h.svc.ListMyProjects(c.Request.Context(), auth.AccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items, "Get my projects successfully")
}

func (h *Handler) myActiveProject(c *gin.Context) {
	d, err := h.svc.MyActiveMembership(c.Request.Context(), auth.AccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if d == nil {
		response.OK(c, nil, "No active project found")
		return
	}
	response.OK(c, d, "Get active project successfully")
}

func (h *Handler) projectMembers(c *gin.Context) {
	items, err := h.svc.ListProjectMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items, "Get project members successfully")
}

package http

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/smrs-space/smrs-backend/internal/plagiarism/service"
	"github.com/smrs-space/smrs-backend/internal/response"
)

type Handler struct {
	svc *service.Service
}

// Register mounts the authenticated proxy routes.
func Register(rg *gin.RouterGroup, svc *service.Service) {
	h := &Handler{svc: svc}

	rg.POST("/login", h.login)
	rg.PUT("/submit/:scanId", h.submit)
	rg.PATCH("/start/:scanId", h.start)
	rg.GET("/result/:scanId", h.result)
	rg.GET("/scan/:scanId", h.scan)
}

// RegisterWebhook mounts the vendor callback route; the vendor cannot carry
// our bearer token, so this stays outside the authenticated group.
func RegisterWebhook(rg *gin.RouterGroup, svc *service.Service) {
	h := &Handler{svc: svc}
	rg.POST("/webhook/status/:status/:scanId", h.webhook)
}

func (h *Handler) login(c *gin.Context) {
	token, err := h.svc.RefreshToken(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"access_token": token}, "Login successfully")
}

func (h *Handler) submit(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		response.BadRequest(c, "submission body is required")
		return
	}

	if err := h.svc.Submit(c.Request.Context(), c.Param("scanId"), body); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil, "Scan submitted successfully")
}

func (h *Handler) start(c *gin.Context) {
	data, err := h.svc.Start(c.Request.Context(), c.Param("scanId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(200, "application/json", data)
}

func (h *Handler) result(c *gin.Context) {
	data, err := h.svc.Result(c.Request.Context(), c.Param("scanId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(200, "application/json", data)
}

func (h *Handler) scan(c *gin.Context) {
	rec, err := h.svc.Scan(c.Request.Context(), c.Param("scanId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rec, "Get scan successfully")
}

func (h *Handler) webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "invalid body")
		return
	}

	err = h.svc.Webhook(c.Request.Context(), c.Param("status"), c.Param("scanId"), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil, "Status recorded")
}

package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smrs-space/smrs-backend/internal/auth"
	"github.com/smrs-space/smrs-backend/internal/projects/domain"
	"github.com/smrs-space/smrs-backend/internal/projects/service"
	"github.com/smrs-space/smrs-backend/internal/response"
)

type Handler struct {
	svc *service.Service
}

func Register(rg *gin.RouterGroup, svc *service.Service) {
	h := &Handler{svc: svc}

	rg.GET("", h.list)
	rg.GET("/search", h.search)
	rg.POST("", h.create)
	rg.GET("/:id", h.detail)
	rg.PUT("/:id/status", h.updateStatus)
	rg.DELETE("/:id", h.delete)
}

type fileReq struct {
	FilePath string `json:"file_path"`
	Type     string `json:"type"`
}

type imageReq struct {
	URL string `json:"url"`
}

type createReq struct {
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Type          string     `json:"type"`
	DueDate       time.Time  `json:"due_date"`
	Files         []fileReq  `json:"files"`
	Images        []imageReq `json:"images"`
	InvitedEmails []string   `json:"invited_emails"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		response.BadRequest(c, "invalid body")
		return
	}

	in := domain.CreateInput{
		Name:          req.Name,
		Description:   req.Description,
		Type:          req.Type,
		DueDate:       req.DueDate,
		InvitedEmails: req.InvitedEmails,
	}
	for _, f := range req.Files {
		in.Files = append(in.Files, domain.ProjectFile{FilePath: f.FilePath, Type: f.Type})
	}
	for _, img := range req.Images {
		in.Images = append(in.Images, domain.ProjectImage{URL: img.URL})
	}

	p, err := h.svc.Create(c.Request.Context(), auth.AccountID(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p, "Project created successfully")
}

func (h *Handler) searchQuery(c *gin.Context) domain.SearchQuery {
	return domain.SearchQuery{
		Name:        c.Query("name"),
		Description: c.Query("description"),
		Status:      strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		OwnerID:     c.Query("owner_id"),
		Page:        intQuery(c, "page", 1),
		Size:        intQuery(c, "size", 10),
		SortBy:      c.DefaultQuery("sort_by", "id"),
		SortDir:     c.DefaultQuery("sort_dir", "desc"),
	}
}

func (h *Handler) list(c *gin.Context) {
	q := h.searchQuery(c)
	items, total, err := h.svc.Search(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, size := service.NormalizePaging(q.Page, q.Size)
	response.OK(c, response.NewPage(items, total, page, size), "Get projects successfully")
}

func (h *Handler) search(c *gin.Context) {
	// same decision table as list; kept as a separate route to match the API
	h.list(c)
}

func (h *Handler) detail(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, d, "Get project successfully")
}

type updateStatusReq struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Status) == "" {
		response.BadRequest(c, "status is required")
		return
	}

	d, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status,
		auth.AccountID(c), auth.Role(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, d, "Project status updated successfully")
}

func (h *Handler) delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), c.Param("id"), auth.AccountID(c), auth.Role(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil, "Project deleted successfully")
}

func intQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n := 0
	for _, r := range v {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	return n
}

package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smrs-space/smrs-backend/internal/response"
	"github.com/smrs-space/smrs-backend/internal/storage"
)

const presignExpiry = 15 * time.Minute

type Handler struct {
	store *storage.ObjectStore
}

func Register(rg *gin.RouterGroup, store *storage.ObjectStore) {
	h := &Handler{store: store}

	rg.POST("/upload", h.upload)
	rg.GET("/presign", h.presign)
	rg.DELETE("", h.remove)
}

func (h *Handler) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close()

	key, err := h.store.Upload(c.Request.Context(), fh.Filename, f, fh.Size,
		fh.Header.Get("Content-Type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"key": key}, "File uploaded successfully")
}

func (h *Handler) presign(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		response.BadRequest(c, "key is required")
		return
	}

	url, err := h.store.PresignedGet(c.Request.Context(), key, presignExpiry)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"url": url}, "Presigned URL generated")
}

func (h *Handler) remove(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		response.BadRequest(c, "key is required")
		return
	}

	if err := h.store.Remove(c.Request.Context(), key); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil, "File removed successfully")
}

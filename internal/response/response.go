package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smrs-space/smrs-backend/internal/apperr"
)

// Envelope is the uniform payload shape for every workflow operation:
// either a success payload plus message, or a failure message.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type Page struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Size       int         `json:"size"`
	TotalPages int         `json:"total_pages"`
}

func NewPage(items interface{}, total int64, page, size int) Page {
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Page{Items: items, Total: total, Page: page, Size: size, TotalPages: pages}
}

func OK(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func Created(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Message: message})
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message)
}

// Error converts a workflow failure into the envelope, mapping the error
// kind to an HTTP status. Unrecognized errors become a 500 with the error
// text, matching how the original surfaced fail messages.
func Error(c *gin.Context, err error) {
	Fail(c, StatusFor(err), err.Error())
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrInvalidState),
		errors.Is(err, apperr.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

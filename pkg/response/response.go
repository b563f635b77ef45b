package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sma-adp-datatable/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	Message string                 `json:"message"`
	Data    interface{}            `json:"data"`
	Error   *appErrors.Error       `json:"error,omitempty"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
	Links   *Links                 `json:"links,omitempty"`
}

// Links carries navigation URLs for paginated collections.
type Links struct {
	Self string `json:"self"`
	Next string `json:"next,omitempty"`
	Prev string `json:"prev,omitempty"`
}

// JSON sends a success response with optional metadata.
func JSON(c *gin.Context, status int, message string, data interface{}, meta map[string]interface{}, links *Links) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	if message == "" {
		message = http.StatusText(status)
	}
	c.JSON(status, Envelope{Message: message, Data: data, Meta: meta, Links: links})
}

// OK responds with HTTP 200 and no metadata.
func OK(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusOK, message, data, nil, nil)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusCreated, message, data, nil, nil)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, Envelope{Message: appErr.Message, Error: appErr})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

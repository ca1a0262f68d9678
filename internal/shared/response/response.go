package response

import (
	"github.com/gin-gonic/gin"
)

// ListMeta accompanies list responses.
type ListMeta struct {
	Total int `json:"total"`
}

// ErrorBody is the error member of a failed response. The leave store
// client reads Code and Message back from it.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the body shape of every JSON response.
type Envelope struct {
	Ok    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Meta  *ListMeta  `json:"meta,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

func Success(c *gin.Context, status int, data any, meta *ListMeta) {
	c.JSON(status, Envelope{Ok: true, Data: data, Meta: meta})
}

// List writes items with their count.
func List[T any](c *gin.Context, status int, items []T) {
	if items == nil {
		items = []T{}
	}
	Success(c, status, items, &ListMeta{Total: len(items)})
}

func Error(c *gin.Context, status int, code, message string, details any) {
	c.AbortWithStatusJSON(status, Envelope{
		Ok:    false,
		Error: &ErrorBody{Code: code, Message: message, Details: details},
	})
}

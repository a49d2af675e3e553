package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sprs-api/internal/models"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
)

const failedKey = "response_failed"

// Envelope represents the common response contract.
type Envelope struct {
	Success    bool                   `json:"success"`
	Message    string                 `json:"message"`
	Data       interface{}            `json:"data"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, message string, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Success: true, Message: message, Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// OK responds with HTTP 200 and a success envelope.
func OK(c *gin.Context, message string, data interface{}) {
	JSON(c, http.StatusOK, message, data, nil)
}

// Error sends an error response converting the error to the common structure.
// Declared business failures keep HTTP 200 and signal the outcome through
// success=false; authentication and infrastructure errors keep their status.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.Set(failedKey, true)
	status := appErr.Status
	if appErrors.IsBusiness(appErr) {
		status = http.StatusOK
	}
	c.JSON(status, Envelope{Success: false, Message: appErr.Message, Error: appErr})
}

// ErrorWithStatus sends an error envelope with an explicit HTTP status, used
// where the transport status itself carries the outcome (route-level access).
func ErrorWithStatus(c *gin.Context, status int, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.Set(failedKey, true)
	c.JSON(status, Envelope{Success: false, Message: appErr.Message, Error: appErr})
}

// Failed reports whether an error envelope was written for this request.
func Failed(c *gin.Context) bool {
	return c.GetBool(failedKey)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

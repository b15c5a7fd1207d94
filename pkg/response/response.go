package response

import "github.com/gin-gonic/gin"

// ErrorBody is the error envelope returned by every failing endpoint.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error sends an error response with a machine-readable code and a human
// message.
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorBody{Error: code, Message: message})
}

// ErrorWithDetails sends an error response carrying structured details, such
// as per-field validation problems.
func ErrorWithDetails(c *gin.Context, status int, code, message string, details any) {
	c.JSON(status, ErrorBody{Error: code, Message: message, Details: details})
}

// BadRequest sends a 400 validation error
func BadRequest(c *gin.Context, message string) {
	Error(c, 400, "validation_error", message)
}

// NotFound sends a 404 not found response
func NotFound(c *gin.Context, code, message string) {
	Error(c, 404, code, message)
}

// Conflict sends a 409 conflict response
func Conflict(c *gin.Context, code, message string) {
	Error(c, 409, code, message)
}

// InternalError sends a 500 internal server error response
func InternalError(c *gin.Context, message string) {
	Error(c, 500, "internal_error", message)
}

package shared

import (
	"errors"
	"net/http"

	"github.com/leafbox-next/internal/http/response"
	"github.com/leafbox-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MappedError translates one service error into a client response.
type MappedError struct {
	Target  error
	Code    int
	Message string
}

// RequestLog logger carrying the request id.
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError writes the failure envelope and logs err when present.
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		log := RequestLog(c)
		if code >= http.StatusInternalServerError {
			log.Errorw("handler_error", "code", appErr.Status, "message", appErr.Message, "error", err)
		} else {
			log.Warnw("handler_error", "code", appErr.Status, "message", appErr.Message, "error", err)
		}
	}
	response.Error(c, appErr.Status, appErr.Message)
}

// RespondMappedError answers with the first rule matching err, or the
// fallback. Only unmatched errors are logged; rule messages are safe to
// show and never echo internal detail.
func RespondMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Message, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackMsg, err)
}

// ConcatMappedErrors joins rule groups, earlier groups winning.
func ConcatMappedErrors(groups ...[]MappedError) []MappedError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]MappedError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

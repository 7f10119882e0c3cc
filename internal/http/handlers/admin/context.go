package admin

import (
	"strings"
	"time"

	handlershared "github.com/leafbox-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

// adminID acting admin for audit logs; zero when the middleware did not
// set one.
func adminID(c *gin.Context) uint {
	value, exists := c.Get(handlershared.ContextAdminID)
	if !exists {
		return 0
	}
	switch v := value.(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	case float64:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}

// parseTimeNullable accepts RFC3339 or a plain date.
func parseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

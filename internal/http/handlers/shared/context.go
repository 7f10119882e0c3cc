package shared

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middlewares
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextAdminID   = "admin_id"
	ContextAdminRole = "admin_role"
)

// OptionalUserID returns the authenticated customer, or nil for guests.
func OptionalUserID(c *gin.Context) *uint {
	value, exists := c.Get(ContextUserID)
	if !exists {
		return nil
	}
	var id uint
	switch v := value.(type) {
	case uint:
		id = v
	case int:
		if v > 0 {
			id = uint(v)
		}
	case float64:
		if v > 0 {
			id = uint(v)
		}
	}
	if id == 0 {
		return nil
	}
	return &id
}

// ParamUint parses a positive numeric path parameter.
func ParamUint(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}

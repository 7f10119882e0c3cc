package router

import (
	"strings"

	"github.com/leafbox-next/internal/authz"
	handlershared "github.com/leafbox-next/internal/http/handlers/shared"
	"github.com/leafbox-next/internal/http/response"
	"github.com/leafbox-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AdminRole full access role on back-office tokens
const AdminRole = authz.RoleAdmin

// AdminClaims back-office token. Tokens are issued by the auth service;
// this process only verifies them.
type AdminClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// UserClaims storefront customer token
type UserClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AdminJWTAuthMiddleware requires a valid HS256 back-office token that
// names a role. What the role may do is checked by AdminAuthzMiddleware.
func AdminJWTAuthMiddleware(secretKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" {
			logger.Errorw("admin_jwt_secret_missing")
			response.Unauthorized(c, "authentication is not configured")
			c.Abort()
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "missing or malformed authorization header")
			c.Abort()
			return
		}
		claims := &AdminClaims{}
		if err := parseToken(tokenString, secretKey, claims); err != nil || claims.AdminID == 0 {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		role := strings.ToLower(strings.TrimSpace(claims.Role))
		if role == "" {
			response.Forbidden(c, "admin role required")
			c.Abort()
			return
		}
		c.Set(handlershared.ContextAdminID, claims.AdminID)
		c.Set(handlershared.ContextAdminRole, role)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// AdminAuthzMiddleware checks the token role against the route policy.
// Without an enforcer only the full access role passes.
func AdminAuthzMiddleware(enforcer *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(handlershared.ContextAdminRole)
		object := c.FullPath()
		if object == "" {
			object = c.Request.URL.Path
		}

		allowed := role == AdminRole
		if enforcer != nil {
			ok, err := enforcer.EnforceRole(role, object, c.Request.Method)
			if err != nil {
				logger.Errorw("admin_authz_enforce_failed", "role", role, "path", object, "error", err)
			}
			allowed = ok
		}
		if !allowed {
			logger.Warnw("admin_authz_denied",
				"admin_id", c.GetUint(handlershared.ContextAdminID),
				"role", role,
				"method", c.Request.Method,
				"path", object,
			)
			response.Forbidden(c, "permission denied")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalUserJWTMiddleware attaches the customer when a valid token is
// sent. Guests and bad tokens pass through as guests.
func OptionalUserJWTMiddleware(secretKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" {
			c.Next()
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		claims := &UserClaims{}
		if err := parseToken(tokenString, secretKey, claims); err != nil || claims.UserID == 0 {
			logger.Debugw("user_jwt_ignored", "path", c.Request.URL.Path, "error", err)
			c.Next()
			return
		}
		c.Set(handlershared.ContextUserID, claims.UserID)
		c.Set(handlershared.ContextUserEmail, claims.Email)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func parseToken(tokenString, secretKey string, claims jwt.Claims) error {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

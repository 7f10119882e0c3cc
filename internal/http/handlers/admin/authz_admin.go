package admin

import (
	"net/http"

	"github.com/leafbox-next/internal/authz"
	"github.com/leafbox-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// RolePolicyRequest one allow rule for a custom role
type RolePolicyRequest struct {
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// AdminListRoles GET /admin/authz/roles
func (h *Handler) AdminListRoles(c *gin.Context) {
	roles, err := h.Authz.ListRoles()
	if err != nil {
		respondWithMappedError(c, err, authzErrorRules)
		return
	}
	response.Success(c, gin.H{"roles": roles, "builtin": builtinRoleNames()})
}

// AdminGetRolePolicies GET /admin/authz/roles/:role/policies
func (h *Handler) AdminGetRolePolicies(c *gin.Context) {
	policies, err := h.Authz.GetRolePolicies(c.Param("role"))
	if err != nil {
		respondWithMappedError(c, err, authzErrorRules)
		return
	}
	response.Success(c, policies)
}

// AdminGrantRolePolicy POST /admin/authz/roles/:role/policies
func (h *Handler) AdminGrantRolePolicy(c *gin.Context) {
	var req RolePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest, err)
		return
	}
	role := c.Param("role")
	if err := h.Authz.GrantRolePolicy(role, req.Object, req.Action); err != nil {
		respondWithMappedError(c, err, authzErrorRules)
		return
	}
	requestLog(c).Infow("admin_role_policy_granted", "admin_id", adminID(c), "role", role, "object", req.Object, "action", req.Action)
	h.respondRolePolicies(c, role)
}

// AdminRevokeRolePolicy DELETE /admin/authz/roles/:role/policies
func (h *Handler) AdminRevokeRolePolicy(c *gin.Context) {
	var req RolePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest, err)
		return
	}
	role := c.Param("role")
	if err := h.Authz.RevokeRolePolicy(role, req.Object, req.Action); err != nil {
		respondWithMappedError(c, err, authzErrorRules)
		return
	}
	requestLog(c).Infow("admin_role_policy_revoked", "admin_id", adminID(c), "role", role, "object", req.Object, "action", req.Action)
	h.respondRolePolicies(c, role)
}

func (h *Handler) respondRolePolicies(c *gin.Context, role string) {
	policies, err := h.Authz.GetRolePolicies(role)
	if err != nil {
		respondWithMappedError(c, err, authzErrorRules)
		return
	}
	response.Success(c, policies)
}

func builtinRoleNames() []string {
	seeds := authz.BuiltinRoleSeeds()
	names := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		names = append(names, seed.Role)
	}
	return names
}

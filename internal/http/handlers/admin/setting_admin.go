package admin

import (
	"net/http"

	"github.com/leafbox-next/internal/http/response"
	"github.com/leafbox-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminGetShippingSetting GET /admin/settings/shipping
func (h *Handler) AdminGetShippingSetting(c *gin.Context) {
	setting, err := h.SettingService.GetShippingSetting(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, msgInternalError, err)
		return
	}
	response.Success(c, setting)
}

// AdminUpdateShippingSetting PUT /admin/settings/shipping
func (h *Handler) AdminUpdateShippingSetting(c *gin.Context) {
	var req service.ShippingSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest, err)
		return
	}
	setting, err := h.SettingService.UpdateShippingSetting(c.Request.Context(), req)
	if err != nil {
		respondWithMappedError(c, err, settingErrorRules)
		return
	}
	requestLog(c).Infow("admin_shipping_setting_updated",
		"admin_id", adminID(c),
		"free_threshold", setting.FreeThreshold.String(),
		"flat_fee", setting.FlatFee.String(),
	)
	response.Success(c, setting)
}

package public

import (
	"net/http"

	"github.com/leafbox-next/internal/constants"
	handlershared "github.com/leafbox-next/internal/http/handlers/shared"
	"github.com/leafbox-next/internal/http/response"
	"github.com/leafbox-next/internal/models"

	"github.com/gin-gonic/gin"
)

// ListProvinces GET /locations/provinces. The ship-to-recipient sentinel
// is chosen with a flag, never from the list.
func (h *Handler) ListProvinces(c *gin.Context) {
	rows, err := h.LocationRepo.ListProvinces()
	if err != nil {
		respondError(c, http.StatusInternalServerError, msgInternalError, err)
		return
	}
	provinces := make([]models.Province, 0, len(rows))
	for _, row := range rows {
		if row.ID == constants.ShipToRecipientProvinceID {
			continue
		}
		provinces = append(provinces, row)
	}
	response.Success(c, provinces)
}

// ListAmphures GET /locations/provinces/:id/amphures
func (h *Handler) ListAmphures(c *gin.Context) {
	provinceID, ok := handlershared.ParamUint(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, msgBadRequest, nil)
		return
	}
	rows, err := h.LocationRepo.ListAmphures(provinceID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, msgInternalError, err)
		return
	}
	response.Success(c, rows)
}

// ListTambons GET /locations/amphures/:id/tambons
func (h *Handler) ListTambons(c *gin.Context) {
	amphureID, ok := handlershared.ParamUint(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, msgBadRequest, nil)
		return
	}
	rows, err := h.LocationRepo.ListTambons(amphureID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, msgInternalError, err)
		return
	}
	response.Success(c, rows)
}

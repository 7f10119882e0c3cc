package admin

import (
	"net/http"
	"strings"

	handlershared "github.com/leafbox-next/internal/http/handlers/shared"
	"github.com/leafbox-next/internal/http/response"
	"github.com/leafbox-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ResolvePendingPaymentRequest order the payment belongs to
type ResolvePendingPaymentRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// AdminListPendingPayments GET /admin/pending-payments
func (h *Handler) AdminListPendingPayments(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	rows, total, err := h.PendingPaymentRepo.List(repository.PendingPaymentListFilter{
		Page:     page,
		PageSize: pageSize,
		Gateway:  strings.ToLower(strings.TrimSpace(c.Query("gateway"))),
		Status:   strings.ToLower(strings.TrimSpace(c.Query("status"))),
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, msgInternalError, err)
		return
	}
	response.SuccessWithPage(c, rows, response.NewPagination(page, pageSize, total))
}

// AdminResolvePendingPayment POST /admin/pending-payments/:id/resolve
func (h *Handler) AdminResolvePendingPayment(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, msgBadRequest, nil)
		return
	}
	var req ResolvePendingPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest, err)
		return
	}
	order, err := h.ReconcileService.ResolvePendingPayment(c.Request.Context(), id, req.OrderID)
	if err != nil {
		respondWithMappedError(c, err, pendingPaymentErrorRules)
		return
	}
	requestLog(c).Infow("admin_pending_payment_resolved",
		"admin_id", adminID(c),
		"pending_payment_id", id,
		"order_id", req.OrderID,
	)
	response.SuccessWithMsg(c, "pending payment resolved", order)
}

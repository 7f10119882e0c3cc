package admin

import (
	"net/http"
	"strings"

	"github.com/leafbox-next/internal/constants"
	handlershared "github.com/leafbox-next/internal/http/handlers/shared"
	"github.com/leafbox-next/internal/http/response"
	"github.com/leafbox-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// UpdateOrderStatusRequest target status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderCommentRequest back-office note
type UpdateOrderCommentRequest struct {
	AdminComment string `json:"admin_comment" binding:"max=2000"`
}

// RejectPaymentRequest reason shown to staff
type RejectPaymentRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// AdminListOrders GET /admin/orders
func (h *Handler) AdminListOrders(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	createdFrom, err := parseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest, err)
		return
	}
	createdTo, err := parseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest, err)
		return
	}

	filter := repository.OrderListFilter{
		Page:          page,
		PageSize:      pageSize,
		Status:        strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		PaymentStatus: strings.ToUpper(strings.TrimSpace(c.Query("payment_status"))),
		Gateway:       strings.ToLower(strings.TrimSpace(c.Query("gateway"))),
		OrderNumber:   strings.TrimSpace(c.Query("order_number")),
		Search:        strings.TrimSpace(c.Query("search")),
		CreatedFrom:   createdFrom,
		CreatedTo:     createdTo,
	}
	if filter.Status != "" {
		if _, ok := constants.ParseOrderStatus(filter.Status); !ok {
			respondError(c, http.StatusBadRequest, "unknown order status", nil)
			return
		}
	}
	if filter.PaymentStatus != "" {
		if _, ok := constants.ParsePaymentStatus(filter.PaymentStatus); !ok {
			respondError(c, http.StatusBadRequest, "unknown payment status", nil)
			return
		}
	}

	orders, total, err := h.OrderService.ListOrdersForAdmin(filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, msgInternalError, err)
		return
	}
	response.SuccessWithPage(c, orders, response.NewPagination(page, pageSize, total))
}

// AdminGetOrder GET /admin/orders/:id
func (h *Handler) AdminGetOrder(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, msgBadRequest, nil)
		return
	}
	order, err := h.OrderService.GetOrder(id)
	if err != nil {
		respondWithMappedError(c, err, orderErrorRules)
		return
	}
	response.Success(c, order)
}

// AdminUpdateOrderStatus PATCH /admin/orders/:id/status
func (h *Handler) AdminUpdateOrderStatus(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, msgBadRequest, nil)
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest, err)
		return
	}
	target, valid := constants.ParseOrderStatus(req.Status)
	if !valid {
		respondError(c, http.StatusBadRequest, "unknown order status", nil)
		return
	}
	order, err := h.OrderService.UpdateStatus(id, target)
	if err != nil {
		respondWithMappedError(c, err, orderErrorRules)
		return
	}
	requestLog(c).Infow("admin_order_status_updated", "admin_id", adminID(c), "order_id", id, "status", target)
	response.Success(c, order)
}

// AdminUpdateOrderComment PATCH /admin/orders/:id/comment
func (h *Handler) AdminUpdateOrderComment(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, msgBadRequest, nil)
		return
	}
	var req UpdateOrderCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest, err)
		return
	}
	order, err := h.OrderService.UpdateAdminComment(id, req.AdminComment)
	if err != nil {
		respondWithMappedError(c, err, orderErrorRules)
		return
	}
	response.Success(c, order)
}

// AdminDeleteOrder DELETE /admin/orders/:id
func (h *Handler) AdminDeleteOrder(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, msgBadRequest, nil)
		return
	}
	if err := h.OrderService.DeleteOrder(id); err != nil {
		respondWithMappedError(c, err, orderErrorRules)
		return
	}
	requestLog(c).Infow("admin_order_deleted", "admin_id", adminID(c), "order_id", id)
	response.SuccessWithMsg(c, "order deleted", gin.H{"id": id})
}

// AdminConfirmPayment POST /admin/orders/:id/payment/confirm
func (h *Handler) AdminConfirmPayment(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, msgBadRequest, nil)
		return
	}
	order, err := h.ManualPaymentService.AdminConfirm(c.Request.Context(), id)
	if err != nil {
		respondWithMappedError(c, err, paymentReviewErrorRules)
		return
	}
	requestLog(c).Infow("admin_payment_confirmed", "admin_id", adminID(c), "order_id", id)
	response.SuccessWithMsg(c, "payment confirmed", order)
}

// AdminRejectPayment POST /admin/orders/:id/payment/reject
func (h *Handler) AdminRejectPayment(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, msgBadRequest, nil)
		return
	}
	var req RejectPaymentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, msgBadRequest, err)
			return
		}
	}
	order, err := h.ManualPaymentService.AdminReject(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondWithMappedError(c, err, paymentReviewErrorRules)
		return
	}
	requestLog(c).Infow("admin_payment_rejected", "admin_id", adminID(c), "order_id", id)
	response.SuccessWithMsg(c, "payment rejected", order)
}

package public

import (
	"net/http"
	"strings"
	"time"

	"github.com/leafbox-next/internal/constants"
	"github.com/leafbox-next/internal/http/response"
	"github.com/leafbox-next/internal/models"
	"github.com/leafbox-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PaymentStatusResponse status pair reported to the storefront
type PaymentStatusResponse struct {
	OrderNumber   string                  `json:"order_number"`
	Status        constants.OrderStatus   `json:"status"`
	PaymentStatus constants.PaymentStatus `json:"payment_status"`
	FinalAmount   models.Money            `json:"final_amount"`
	PaidAt        *time.Time              `json:"paid_at"`
}

func newPaymentStatusResponse(order *models.Order) PaymentStatusResponse {
	return PaymentStatusResponse{
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		FinalAmount:   order.FinalAmount,
		PaidAt:        order.PaidAt,
	}
}

// SubmitSlip POST /payments/slip
func (h *Handler) SubmitSlip(c *gin.Context) {
	var req service.SubmitSlipInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest, err)
		return
	}
	req.OrderNumber = strings.TrimSpace(req.OrderNumber)
	order, err := h.ManualPaymentService.SubmitSlip(c.Request.Context(), req)
	if err != nil {
		respondWithMappedError(c, err, slipErrorRules)
		return
	}
	response.SuccessWithMsg(c, "slip received, awaiting review", newPaymentStatusResponse(order))
}

// VerifyPayment GET /payments/verify/:order_number
func (h *Handler) VerifyPayment(c *gin.Context) {
	orderNumber := strings.TrimSpace(c.Param("order_number"))
	if orderNumber == "" {
		respondError(c, http.StatusBadRequest, msgBadRequest, nil)
		return
	}
	order, err := h.ReconcileService.VerifyPayment(c.Request.Context(), orderNumber)
	if err != nil {
		respondWithMappedError(c, err, verifyErrorRules)
		return
	}
	response.Success(c, newPaymentStatusResponse(order))
}

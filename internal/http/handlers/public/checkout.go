package public

import (
	"net/http"
	"strings"

	"github.com/leafbox-next/internal/constants"
	handlershared "github.com/leafbox-next/internal/http/handlers/shared"
	"github.com/leafbox-next/internal/http/response"
	"github.com/leafbox-next/internal/models"
	"github.com/leafbox-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckoutPaymentRequest payment variant chosen at checkout
type CheckoutPaymentRequest struct {
	Method    string `json:"method" binding:"required"`
	CardToken string `json:"card_token"`
	ChargeID  string `json:"charge_id"`
}

// CheckoutRequest checkout body
type CheckoutRequest struct {
	Customer     service.CustomerInput    `json:"customer"`
	Shipping     service.ShippingInput    `json:"shipping"`
	Items        []service.OrderItemInput `json:"items" binding:"required,min=1"`
	DiscountCode string                   `json:"discount_code"`
	Payment      CheckoutPaymentRequest   `json:"payment"`
}

// CheckoutResponse what the storefront needs to continue
type CheckoutResponse struct {
	OrderID       uint                    `json:"order_id"`
	OrderNumber   string                  `json:"order_number"`
	Status        constants.OrderStatus   `json:"status"`
	PaymentStatus constants.PaymentStatus `json:"payment_status"`
	FinalAmount   models.Money            `json:"final_amount"`
	URL           string                  `json:"url,omitempty"`
}

// QuoteRequest cart to price
type QuoteRequest struct {
	Items        []service.OrderItemInput `json:"items" binding:"required,min=1"`
	DiscountCode string                   `json:"discount_code"`
}

// Checkout POST /checkout
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest, err)
		return
	}
	intent, err := service.ParsePaymentIntent(req.Payment.Method, req.Payment.CardToken, req.Payment.ChargeID)
	if err != nil {
		respondWithMappedError(c, err, checkoutErrorRules)
		return
	}

	result, err := h.CheckoutService.Checkout(c.Request.Context(), service.CheckoutInput{
		Order: service.CreateOrderInput{
			UserID:       handlershared.OptionalUserID(c),
			Customer:     req.Customer,
			Shipping:     req.Shipping,
			Items:        req.Items,
			DiscountCode: strings.TrimSpace(req.DiscountCode),
			ClientIP:     c.ClientIP(),
		},
		Intent: intent,
	})
	if err != nil {
		respondWithMappedError(c, err, checkoutErrorRules)
		return
	}

	order := result.Order
	requestLog(c).Infow("checkout_completed",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"variant", intent.Variant(),
		"payment_status", order.PaymentStatus,
	)
	response.Created(c, "order created", CheckoutResponse{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		FinalAmount:   order.FinalAmount,
		URL:           result.RedirectURL,
	})
}

// Quote POST /checkout/quote
func (h *Handler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, msgBadRequest, err)
		return
	}
	quote, err := h.OrderService.Quote(c.Request.Context(), req.Items, strings.TrimSpace(req.DiscountCode))
	if err != nil {
		respondWithMappedError(c, err, orderInputErrorRules)
		return
	}
	response.Success(c, quote)
}

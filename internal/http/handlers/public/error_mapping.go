package public

import (
	"net/http"

	handlershared "github.com/leafbox-next/internal/http/handlers/shared"
	"github.com/leafbox-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError service error to response rule
type mappedHandlerError = handlershared.MappedError

const (
	msgBadRequest    = "invalid request"
	msgInternalError = "internal server error"
)

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError) {
	handlershared.RespondMappedError(c, err, rules, http.StatusInternalServerError, msgInternalError)
}

var orderInputErrorRules = []mappedHandlerError{
	{Target: service.ErrInvalidOrderInput, Code: http.StatusBadRequest, Message: "order details are incomplete or invalid"},
	{Target: service.ErrInvalidOrderItem, Code: http.StatusBadRequest, Message: "order items are invalid"},
	{Target: service.ErrProductNotFound, Code: http.StatusBadRequest, Message: "product not found"},
	{Target: service.ErrProductNotAvailable, Code: http.StatusBadRequest, Message: "product is not available"},
	{Target: service.ErrLocationNotFound, Code: http.StatusBadRequest, Message: "shipping location not found"},
	{Target: service.ErrDiscountInvalid, Code: http.StatusBadRequest, Message: "discount code is invalid"},
	{Target: service.ErrDiscountExpired, Code: http.StatusBadRequest, Message: "discount code has expired"},
	{Target: service.ErrDiscountUsedUp, Code: http.StatusBadRequest, Message: "discount code has been used up"},
	{Target: service.ErrDiscountMinAmount, Code: http.StatusBadRequest, Message: "order does not reach the discount minimum"},
}

var checkoutErrorRules = handlershared.ConcatMappedErrors(orderInputErrorRules, []mappedHandlerError{
	{Target: service.ErrInvalidPaymentMethod, Code: http.StatusBadRequest, Message: "payment method is invalid"},
	{Target: service.ErrGatewayDisabled, Code: http.StatusBadRequest, Message: "payment method is not available"},
	{Target: service.ErrAmountMismatch, Code: http.StatusBadRequest, Message: "payment amount does not match the order"},
	{Target: service.ErrAmountBelowMinimum, Code: http.StatusBadRequest, Message: "order total is zero, please use bank transfer or cash on delivery"},
	{Target: service.ErrPaymentRejected, Code: http.StatusPaymentRequired, Message: "payment was declined"},
	{Target: service.ErrGatewayUnavailable, Code: http.StatusBadGateway, Message: "payment provider is unavailable, please retry"},
	{Target: service.ErrOrderNumberExhausted, Code: http.StatusServiceUnavailable, Message: "could not allocate an order number, please retry"},
})

var slipErrorRules = []mappedHandlerError{
	{Target: service.ErrInvalidOrderInput, Code: http.StatusBadRequest, Message: "slip details are incomplete or invalid"},
	{Target: service.ErrOrderNotFound, Code: http.StatusNotFound, Message: "order not found"},
	{Target: service.ErrSlipNotAllowed, Code: http.StatusConflict, Message: "this order does not accept a transfer slip"},
}

var verifyErrorRules = []mappedHandlerError{
	{Target: service.ErrOrderNotFound, Code: http.StatusNotFound, Message: "order not found"},
	{Target: service.ErrGatewayUnavailable, Code: http.StatusBadGateway, Message: "payment provider is unavailable, please retry"},
}

var webhookErrorRules = []mappedHandlerError{
	{Target: service.ErrSignatureInvalid, Code: http.StatusBadRequest, Message: "signature verification failed"},
	{Target: service.ErrWebhookPayloadInvalid, Code: http.StatusBadRequest, Message: "webhook payload invalid"},
	{Target: service.ErrGatewayDisabled, Code: http.StatusNotFound, Message: "gateway not enabled"},
}

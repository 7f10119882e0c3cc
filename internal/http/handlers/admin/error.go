package admin

import (
	"net/http"

	"github.com/leafbox-next/internal/authz"
	handlershared "github.com/leafbox-next/internal/http/handlers/shared"
	"github.com/leafbox-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type mappedHandlerError = handlershared.MappedError

const (
	msgBadRequest    = "invalid request"
	msgInternalError = "internal server error"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError) {
	handlershared.RespondMappedError(c, err, rules, http.StatusInternalServerError, msgInternalError)
}

var orderErrorRules = []mappedHandlerError{
	{Target: service.ErrOrderNotFound, Code: http.StatusNotFound, Message: "order not found"},
	{Target: service.ErrInvalidStatusTransition, Code: http.StatusConflict, Message: "status change not allowed"},
	{Target: service.ErrInvalidOrderInput, Code: http.StatusBadRequest, Message: msgBadRequest},
}

var paymentReviewErrorRules = handlershared.ConcatMappedErrors(orderErrorRules, []mappedHandlerError{
	{Target: service.ErrInvalidPaymentMethod, Code: http.StatusConflict, Message: "order is not paid by bank transfer"},
	{Target: service.ErrPaymentNotPending, Code: http.StatusConflict, Message: "payment is not awaiting review"},
	{Target: service.ErrWebhookPayloadInvalid, Code: http.StatusBadRequest, Message: msgBadRequest},
})

var pendingPaymentErrorRules = handlershared.ConcatMappedErrors(orderErrorRules, []mappedHandlerError{
	{Target: service.ErrPendingPaymentNotOpen, Code: http.StatusConflict, Message: "pending payment not found or already resolved"},
})

var settingErrorRules = []mappedHandlerError{
	{Target: service.ErrShippingSettingBad, Code: http.StatusBadRequest, Message: "shipping threshold and fee must not be negative"},
}

var authzErrorRules = []mappedHandlerError{
	{Target: authz.ErrRoleImmutable, Code: http.StatusConflict, Message: "builtin roles cannot be changed"},
	{Target: authz.ErrRoleRequired, Code: http.StatusBadRequest, Message: "role is required"},
	{Target: authz.ErrActionRequired, Code: http.StatusBadRequest, Message: "action is required"},
	{Target: authz.ErrUnavailable, Code: http.StatusServiceUnavailable, Message: "authorization is unavailable"},
}

// internal/handlers/payment/payment_handler.go
package payment

import (
	"errors"
	"io"
	"net/http"

	"mealbox-service/internal/domain/order"
	xerrors "mealbox-service/internal/pkg/errors"
	"mealbox-service/internal/pkg/response"
	service "mealbox-service/internal/service/payment"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Checkout opens a gateway checkout session for a plan purchase. The buyer
// does not need an account yet.
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req order.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	session, err := h.paymentService.CreateCheckout(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "meal plan not found")
		case errors.Is(err, xerrors.ErrInvalidInput),
			errors.Is(err, xerrors.ErrCouponInactive),
			errors.Is(err, xerrors.ErrCouponExhausted):
			response.ValidationError(c, "checkout rejected", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to create checkout", err)
		}
		return
	}
	response.Success(c, http.StatusCreated, "checkout session created", session)
}

// Callback is the synchronous completion channel: the storefront posts the
// gateway's redirect parameters here.
func (h *PaymentHandler) Callback(c *gin.Context) {
	var req struct {
		GatewayOrderID   string `json:"razorpay_order_id" binding:"required"`
		GatewayPaymentID string `json:"razorpay_payment_id" binding:"required"`
		Signature        string `json:"razorpay_signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	sub, err := h.paymentService.ConfirmRedirect(c.Request.Context(), req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrUnauthorized):
			response.Unauthorized(c, "payment signature verification failed")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "payment could not be confirmed", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to confirm payment", err)
		}
		return
	}
	response.Success(c, http.StatusOK, "payment confirmed", sub)
}

// Webhook is the asynchronous completion channel. Reconciliation is
// idempotent, so receiving the same capture twice is harmless.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "failed to read body", err)
		return
	}
	signature := c.GetHeader("X-Razorpay-Signature")

	if err := h.paymentService.HandleWebhook(c.Request.Context(), body, signature); err != nil {
		switch {
		case errors.Is(err, xerrors.ErrUnauthorized):
			response.Unauthorized(c, "webhook signature verification failed")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "webhook rejected", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to process webhook", err)
		}
		return
	}
	response.Success(c, http.StatusOK, "webhook processed", nil)
}

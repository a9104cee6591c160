package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gigmarket/internal/apperrors"
	"github.com/Skotchmaster/gigmarket/internal/logging"
	"github.com/Skotchmaster/gigmarket/internal/mykafka"
	"github.com/Skotchmaster/gigmarket/internal/payment"
)

const maxWebhookBody = 1 << 20

type CheckoutCreator interface {
	CreateSession(req payment.CheckoutRequest) (string, error)
}

type PaymentHandler struct {
	Checkout CheckoutCreator
	Verifier *payment.Verifier
	Producer mykafka.Publisher
}

// jobRef accepts jobId as either a JSON number or a string.
type jobRef string

func (j *jobRef) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if string(b) == "null" {
		*j = ""
		return nil
	}
	*j = jobRef(b)
	return nil
}

type checkoutRequest struct {
	Amount   int64  `json:"amount" validate:"gte=0"`
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
	JobID    jobRef `json:"jobId"`
}

func (h *PaymentHandler) CreateCheckout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment_checkout")

	if h.Checkout == nil {
		return apperrors.Unavailable("payments are not configured")
	}

	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	url, err := h.Checkout.CreateSession(payment.CheckoutRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		JobID:    string(req.JobID),
	})
	if err != nil {
		if errors.Is(err, payment.ErrInvalidAmount) {
			return apperrors.Validation(err.Error())
		}
		l.Error("checkout_failed", "status", 500, "error", err)
		return apperrors.Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

// Webhook is called by the payment provider and is never behind the gate.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment_webhook")

	payload, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			l.Warn("webhook_rejected", "status", 413, "limit", tooBig.Limit)
			return apperrors.New(apperrors.CodeValidation, "Webhook Error: payload too large", http.StatusRequestEntityTooLarge)
		}
		return apperrors.Validation("Webhook Error: cannot read body")
	}

	ev, err := h.Verifier.Verify(payload, c.Request().Header.Get(payment.SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrSignatureInvalid):
			l.Warn("webhook_rejected", "status", 400, "error", err)
			return apperrors.SignatureInvalid("Webhook Error: "+err.Error(), err)
		case errors.Is(err, payment.ErrMalformedPayload):
			l.Warn("webhook_malformed", "status", 400, "error", err)
			return apperrors.Validation("Webhook Error: " + err.Error())
		default:
			return apperrors.Internal(err)
		}
	}

	l.Info("webhook_received", "event_id", ev.ID, "type", ev.Type, "verified", ev.Verified)
	publish(ctx, h.Producer, mykafka.TopicPaymentEvents, ev.ID, map[string]any{
		"type":       "payment_event_received",
		"event_id":   ev.ID,
		"event_type": ev.Type,
		"verified":   ev.Verified,
	})

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

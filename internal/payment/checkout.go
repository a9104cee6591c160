package payment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

const (
	DefaultAmount   int64 = 1000
	DefaultCurrency       = "usd"
)

var ErrInvalidAmount = errors.New("amount must be positive")

type CheckoutRequest struct {
	Amount   int64
	Currency string
	JobID    string
}

type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Checkout creates hosted payment sessions.
type Checkout struct {
	sessions   sessionAPI
	successURL string
	cancelURL  string
}

func NewCheckout(secretKey, successURL, cancelURL string) *Checkout {
	sc := client.New(secretKey, nil)
	return &Checkout{sessions: sc.CheckoutSessions, successURL: successURL, cancelURL: cancelURL}
}

// ProductName is the line item label shown on the hosted page.
func ProductName(jobID string) string {
	if strings.TrimSpace(jobID) == "" {
		jobID = "demo"
	}
	return "Payment for job " + jobID
}

// CreateSession returns the hosted checkout URL.
func (c *Checkout) CreateSession(req CheckoutRequest) (string, error) {
	if req.Amount == 0 {
		req.Amount = DefaultAmount
	}
	if req.Amount < 0 {
		return "", ErrInvalidAmount
	}
	if req.Currency == "" {
		req.Currency = DefaultCurrency
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(strings.ToLower(req.Currency)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(ProductName(req.JobID)),
				},
				UnitAmount: stripe.Int64(req.Amount),
			},
			Quantity: stripe.Int64(1),
		}},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(c.successURL),
		CancelURL:  stripe.String(c.cancelURL),
	}
	if req.JobID != "" {
		params.AddMetadata("job_id", req.JobID)
	}

	sess, err := c.sessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

package lib

import (
	"github.com/stripe/stripe-go/v82"
)

// NewStripeClient builds the API client once at process start; callers pass
// it down instead of reaching for a package global.
func NewStripeClient(apiKey string) *stripe.Client {
	return stripe.NewClient(apiKey)
}

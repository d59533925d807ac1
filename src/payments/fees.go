package payments

import (
	"math"
	"strings"

	"payflow/src/types"
)

// FeeRate is a per-method (percentage, fixed) pair. Percent is expressed as
// a percentage, so 2.9 means 2.9% of the gross amount.
type FeeRate struct {
	Percent float64
	Fixed   float64
}

type FeeSchedule map[types.PaymentMethod]FeeRate

func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		types.METHOD_CARD:          {Percent: 2.9, Fixed: 0.30},
		types.METHOD_PAYPAL:        {Percent: 3.4, Fixed: 0.35},
		types.METHOD_BANK_TRANSFER: {Percent: 0.5, Fixed: 0},
		types.METHOD_CASH:          {Percent: 0, Fixed: 0},
		types.METHOD_OTHER:         {Percent: 0, Fixed: 0},
	}
}

// ApplyOverrides replaces percentage rates from configuration. Keys are
// upper-cased method names (FEE_RATE_CARD=2.5 -> "CARD": 2.5).
func (s FeeSchedule) ApplyOverrides(overrides map[string]float64) FeeSchedule {
	for key, percent := range overrides {
		method := types.PaymentMethod(strings.ToLower(key))
		if rate, ok := s[method]; ok {
			rate.Percent = percent
			s[method] = rate
		}
	}
	return s
}

type FeeBreakdown struct {
	PercentageFee float64 `json:"percentageFee"`
	FixedFee      float64 `json:"fixedFee"`
	TotalFees     float64 `json:"totalFees"`
	NetAmount     float64 `json:"netAmount"`
}

// CalculateFees is a pure function of (amount, method). All results are
// rounded half-up at the cent. No clamp is applied: for amounts below the
// fixed fee the net goes negative, which upstream validation (amount > 0 and
// the gateway's own minimums) keeps out of real traffic.
func (s FeeSchedule) CalculateFees(amount float64, method types.PaymentMethod) FeeBreakdown {
	rate := s[method]
	percentageFee := round2(amount * rate.Percent / 100)
	fixedFee := round2(rate.Fixed)
	totalFees := round2(percentageFee + fixedFee)
	return FeeBreakdown{
		PercentageFee: percentageFee,
		FixedFee:      fixedFee,
		TotalFees:     totalFees,
		NetAmount:     round2(amount - totalFees),
	}
}

// round2 rounds half away from zero at two decimals, which for the positive
// monetary values used here is round-half-up at the cent.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

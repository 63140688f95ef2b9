package desk

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount parses a user-typed amount. Non-numeric input, NaN,
// infinities and values <= 0 are all rejected with ErrInvalidAmount.
func ParseAmount(input string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if !validAmount(amount) {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

// validAmount reports whether a is a finite positive number.
func validAmount(a float64) bool {
	return !math.IsNaN(a) && !math.IsInf(a, 0) && a > 0
}

// TotalCost is the displayed trade value: amount * price. Display only;
// the server recomputes the amount actually charged at settlement.
func TotalCost(amount, price float64) float64 {
	return amount * price
}

// CommissionAmount is the displayed commission for a trade, given the
// commission percent from the last quote.
func CommissionAmount(amount, price, commissionPercent float64) float64 {
	return amount * price * (commissionPercent / 100)
}

// TotalWithCommission is the displayed total charged for a buy.
func TotalWithCommission(amount, price, commissionPercent float64) float64 {
	return TotalCost(amount, price) + CommissionAmount(amount, price, commissionPercent)
}

package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// DaysPerMonth is the fixed month length used for daily rates.
const DaysPerMonth = 30

var (
	daysPerMonth      = decimal.NewFromInt(DaysPerMonth)
	depositMultiplier = decimal.NewFromInt(2)
)

// CalculateRent returns the rent owed for an occupancy starting at start.
// An open-ended stay bills the flat monthly rent. A closed stay bills
// monthly/30 per day, counting both endpoints.
func CalculateRent(monthly decimal.Decimal, start time.Time, end *time.Time) (decimal.Decimal, error) {
	span, err := NewSpan(start, end)
	if err != nil {
		return decimal.Zero, err
	}
	if span.End == nil {
		return monthly, nil
	}
	days := decimal.NewFromInt(int64(span.Days()))
	return monthly.Mul(days).Div(daysPerMonth), nil
}

// DailyRate is monthly/30.
func DailyRate(monthly decimal.Decimal) decimal.Decimal {
	return monthly.Div(daysPerMonth)
}

// SecurityDeposit is the default deposit snapshotted on a new allocation.
func SecurityDeposit(monthly decimal.Decimal) decimal.Decimal {
	return monthly.Mul(depositMultiplier)
}

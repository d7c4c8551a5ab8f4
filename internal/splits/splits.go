// Package splits divides a shared expense among trip participants and
// derives who owes whom from a set of split expenses.
package splits

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "tripsync/internal/errors"
	"tripsync/internal/models"
)

// Tolerance is the largest accepted gap between declared and expected totals.
var Tolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// Participant is one person taking part in a split. Value is ignored for
// equal splits, is an amount for custom-amount splits and a percentage for
// custom-percentage splits.
type Participant struct {
	UserID string
	Value  decimal.Decimal
}

// Share is a participant's computed owed amount.
type Share struct {
	UserID     string
	Amount     decimal.Decimal
	Percentage *decimal.Decimal
}

// zero-decimal and three-decimal ISO 4217 currencies; all others use two.
var minorUnits = map[string]int32{
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "ISK": 0, "JPY": 0, "KMF": 0, "KRW": 0,
	"PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0, "XOF": 0, "XPF": 0,
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
}

// MinorUnits returns the number of decimal places used by a currency.
func MinorUnits(currency string) int32 {
	if places, ok := minorUnits[strings.ToUpper(currency)]; ok {
		return places
	}
	return 2
}

// FitsCurrency reports whether amount is expressible in the currency's minor
// unit, e.g. 10.5 fits USD but 10.005 does not.
func FitsCurrency(amount decimal.Decimal, currency string) bool {
	return amount.Equal(amount.Truncate(MinorUnits(currency)))
}

// Calculate computes each participant's share of amount according to mode.
// Shares are returned in participant input order.
func Calculate(amount decimal.Decimal, currency string, mode models.SplitType, participants []Participant) ([]Share, error) {
	if !amount.IsPositive() {
		return nil, invalid("amount must be greater than zero")
	}
	if err := validateParticipants(participants); err != nil {
		return nil, err
	}

	places := MinorUnits(currency)
	if !FitsCurrency(amount, currency) {
		return nil, invalid(fmt.Sprintf("amount %s has more decimals than %s allows", amount.String(), strings.ToUpper(currency)))
	}
	if mode == models.SplitTypeCustomAmount {
		for _, p := range participants {
			if !FitsCurrency(p.Value, currency) {
				return nil, invalid(fmt.Sprintf("split amount %s has more decimals than %s allows", p.Value.String(), strings.ToUpper(currency)))
			}
		}
	}
	switch mode {
	case models.SplitTypeEqual:
		return equal(amount, places, participants), nil
	case models.SplitTypeCustomAmount:
		return customAmounts(amount, participants)
	case models.SplitTypeCustomPercentage:
		return customPercentages(amount, places, participants)
	}
	return nil, invalid(fmt.Sprintf("unsupported split type %q", mode))
}

func validateParticipants(participants []Participant) error {
	if len(participants) == 0 {
		return invalid("at least one participant is required")
	}
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		if p.UserID == "" {
			return invalid("participant user id is required")
		}
		if _, dup := seen[p.UserID]; dup {
			return invalid("participant " + p.UserID + " appears more than once")
		}
		seen[p.UserID] = struct{}{}
		if p.Value.IsNegative() {
			return invalid("split values cannot be negative")
		}
	}
	return nil
}

// equal gives everyone amount/n rounded to the currency's minor unit. The
// last participant in input order absorbs the rounding remainder.
func equal(amount decimal.Decimal, places int32, participants []Participant) []Share {
	n := decimal.NewFromInt(int64(len(participants)))
	raw := make([]decimal.Decimal, len(participants))
	for i := range raw {
		raw[i] = amount.Div(n)
	}
	amounts := allocate(amount, places, raw)

	shares := make([]Share, len(participants))
	for i, p := range participants {
		shares[i] = Share{UserID: p.UserID, Amount: amounts[i]}
	}
	return shares
}

// allocate rounds every raw share but the last to places and hands the last
// share whatever is left of amount. When rounding up would leave the last
// share negative, the leading shares are truncated instead.
func allocate(amount decimal.Decimal, places int32, raw []decimal.Decimal) []decimal.Decimal {
	last := len(raw) - 1
	out := make([]decimal.Decimal, len(raw))

	leading := decimal.Zero
	for i := 0; i < last; i++ {
		out[i] = raw[i].Round(places)
		leading = leading.Add(out[i])
	}
	if leading.GreaterThan(amount) {
		leading = decimal.Zero
		for i := 0; i < last; i++ {
			out[i] = raw[i].Truncate(places)
			// percentages inside tolerance can still overshoot by a minor unit
			if remaining := amount.Sub(leading); out[i].GreaterThan(remaining) {
				out[i] = remaining
			}
			leading = leading.Add(out[i])
		}
	}
	out[last] = amount.Sub(leading)
	return out
}

func customAmounts(amount decimal.Decimal, participants []Participant) ([]Share, error) {
	total := decimal.Zero
	shares := make([]Share, len(participants))
	for i, p := range participants {
		total = total.Add(p.Value)
		shares[i] = Share{UserID: p.UserID, Amount: p.Value}
	}
	if total.Sub(amount).Abs().GreaterThan(Tolerance) {
		return nil, invalid(fmt.Sprintf("split amounts total %s but expense amount is %s", total.StringFixed(2), amount.StringFixed(2)))
	}
	return shares, nil
}

// customPercentages converts percentages to amounts; like equal, the last
// participant absorbs the rounding remainder so shares sum to amount exactly.
func customPercentages(amount decimal.Decimal, places int32, participants []Participant) ([]Share, error) {
	total := decimal.Zero
	for _, p := range participants {
		total = total.Add(p.Value)
	}
	if total.Sub(hundred).Abs().GreaterThan(Tolerance) {
		return nil, invalid(fmt.Sprintf("split percentages total %s, expected 100", total.String()))
	}

	raw := make([]decimal.Decimal, len(participants))
	for i, p := range participants {
		raw[i] = amount.Mul(p.Value).Div(hundred)
	}
	amounts := allocate(amount, places, raw)

	shares := make([]Share, len(participants))
	for i, p := range participants {
		pct := p.Value
		shares[i] = Share{UserID: p.UserID, Amount: amounts[i], Percentage: &pct}
	}
	return shares, nil
}

// Total sums the amounts of shares.
func Total(shares []Share) decimal.Decimal {
	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(s.Amount)
	}
	return total
}

func invalid(msg string) *apperrors.AppError {
	return apperrors.WithMessage(apperrors.ErrInvalidSplit, msg)
}

package splits

import (
	"sort"

	"github.com/shopspring/decimal"

	"tripsync/internal/models"
)

// Balance is a user's net position across a trip's expenses: positive means
// the group owes them, negative means they owe the group.
type Balance struct {
	UserID string          `json:"user_id"`
	Paid   decimal.Decimal `json:"paid"`
	Owed   decimal.Decimal `json:"owed"`
	Net    decimal.Decimal `json:"net"`
}

// Transfer is a single payment that moves a debtor toward zero.
type Transfer struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// Balances computes paid/owed/net per user. An expense without splits is
// treated as owed entirely by its payer, so it does not move any balance.
// Results are sorted by user id.
func Balances(expenses []models.Expense) []Balance {
	byUser := make(map[string]*Balance)
	get := func(id string) *Balance {
		b, ok := byUser[id]
		if !ok {
			b = &Balance{UserID: id, Paid: decimal.Zero, Owed: decimal.Zero}
			byUser[id] = b
		}
		return b
	}

	for _, e := range expenses {
		get(e.PaidByID).Paid = get(e.PaidByID).Paid.Add(e.Amount)
		if len(e.Splits) == 0 {
			get(e.PaidByID).Owed = get(e.PaidByID).Owed.Add(e.Amount)
			continue
		}
		for _, s := range e.Splits {
			b := get(s.UserID)
			b.Owed = b.Owed.Add(s.Amount)
		}
	}

	out := make([]Balance, 0, len(byUser))
	for _, b := range byUser {
		b.Net = b.Paid.Sub(b.Owed)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Settle produces transfers that bring every balance to zero, greedily
// matching the largest debtor with the largest creditor.
func Settle(balances []Balance) []Transfer {
	type position struct {
		id     string
		amount decimal.Decimal
	}
	var debtors, creditors []position
	for _, b := range balances {
		switch {
		case b.Net.IsNegative():
			debtors = append(debtors, position{b.UserID, b.Net.Neg()})
		case b.Net.IsPositive():
			creditors = append(creditors, position{b.UserID, b.Net})
		}
	}
	byAmount := func(p []position) func(i, j int) bool {
		return func(i, j int) bool {
			if c := p[i].amount.Cmp(p[j].amount); c != 0 {
				return c > 0
			}
			return p[i].id < p[j].id
		}
	}
	sort.Slice(debtors, byAmount(debtors))
	sort.Slice(creditors, byAmount(creditors))

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		if amount.IsPositive() {
			transfers = append(transfers, Transfer{From: debtors[i].id, To: creditors[j].id, Amount: amount})
		}
		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)
		if debtors[i].amount.IsZero() {
			i++
		}
		if creditors[j].amount.IsZero() {
			j++
		}
	}
	return transfers
}

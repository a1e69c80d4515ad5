package search

import (
	"math"

	"nestquest/server/internal/models"
)

type budgetRange struct {
	Min float64
	Max float64
}

// budgetTables maps a transaction type and bracket label to its price bound.
// Rent brackets are monthly amounts in rupees; sale brackets use lakh/crore
// denominations. Extend here, not at call sites.
var budgetTables = map[models.TransactionType]map[string]budgetRange{
	models.TransactionRent: {
		"< 10k per month":  {0, 10000},
		"10-20k per month": {10000, 20000},
		"20-40k per month": {20000, 40000},
		"> 40k per month":  {40001, math.Inf(1)},
	},
	models.TransactionSale: {
		"< 50 lakhs": {0, 5000000},
		"< 1 crore":  {0, 10000000},
		"< 2 crore":  {0, 20000000},
		"< 5 crore":  {0, 50000000},
		"5 crore+":   {50000001, math.Inf(1)},
	},
}

// BudgetRange maps a bracket label to its numeric bound. Unknown labels and
// unknown transaction types yield the unrestricted range [0, +Inf).
func BudgetRange(t models.TransactionType, label string) (min, max float64) {
	if table, ok := budgetTables[t]; ok {
		if r, ok := table[label]; ok {
			return r.Min, r.Max
		}
	}
	return 0, math.Inf(1)
}

package models

import "math"

// BudgetConstraint is a closed-open price bound scoped to a transaction type.
// Max may be +Inf for open-ended brackets.
type BudgetConstraint struct {
	Type TransactionType
	Min  float64
	Max  float64
}

// SearchCriteria is the normalized, store-agnostic form of all active search
// filters. A nil/empty field means no constraint on that dimension; the zero
// value matches every listing.
type SearchCriteria struct {
	Bedrooms      []int
	PropertyTypes []string
	Budget        *BudgetConstraint
}

// IsEmpty reports whether the criteria constrains anything at all.
func (c SearchCriteria) IsEmpty() bool {
	return len(c.Bedrooms) == 0 && len(c.PropertyTypes) == 0 && c.Budget == nil
}

// Matches reports whether a listing satisfies every active constraint.
// Constraints across fields are conjunctive; members within a field are
// alternatives.
func (c SearchCriteria) Matches(l *Listing) bool {
	if len(c.Bedrooms) > 0 && !containsInt(c.Bedrooms, l.Bedrooms) {
		return false
	}
	if len(c.PropertyTypes) > 0 && !containsString(c.PropertyTypes, l.PropertyType) {
		return false
	}
	if c.Budget != nil {
		if l.Price.Type != c.Budget.Type {
			return false
		}
		if l.Price.Amount < c.Budget.Min {
			return false
		}
		if !math.IsInf(c.Budget.Max, 1) && l.Price.Amount > c.Budget.Max {
			return false
		}
	}
	return true
}

// SearchResult is a distance-ordered page of listings plus the matched count.
type SearchResult struct {
	Count    int       `json:"count"`
	Listings []Listing `json:"data"`
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

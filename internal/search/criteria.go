package search

import (
	"strconv"
	"strings"

	"nestquest/server/internal/models"
)

// RawParams is the untyped filter input as it arrives from the transport
// layer. Every field is optional.
type RawParams struct {
	Bedroom      string
	PropertyType string
	BudgetType   string
	Budget       string
}

// ComposeCriteria normalizes raw filter parameters into SearchCriteria.
// Comma lists become set-membership constraints. A budget bracket is only
// honored together with its transaction type; either one alone carries no
// meaning and is dropped rather than rejected.
func ComposeCriteria(p RawParams) models.SearchCriteria {
	var c models.SearchCriteria

	for _, part := range strings.Split(p.Bedroom, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		c.Bedrooms = append(c.Bedrooms, n)
	}

	for _, part := range strings.Split(p.PropertyType, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c.PropertyTypes = append(c.PropertyTypes, part)
	}

	if p.BudgetType != "" && p.Budget != "" {
		t := models.TransactionType(p.BudgetType)
		min, max := BudgetRange(t, p.Budget)
		c.Budget = &models.BudgetConstraint{Type: t, Min: min, Max: max}
	}

	return c
}

// Package catalog filters and searches the menu.
package catalog

import (
	"strings"

	"github.com/Skotchmaster/food_client/internal/models"
)

const (
	PriceUnder100 = "under-100"
	Price100To200 = "100-200"
	Price200To300 = "200-300"
	PriceAbove300 = "above-300"
	CategoryAll   = "all"
	PriceRangeAll = "all"
)

type Criteria struct {
	Search     string `query:"search"`
	Category   string `query:"category"`
	PriceRange string `query:"price"`
}

// Filter keeps the order of foods. Empty criteria match everything.
func Filter(foods []models.Food, c Criteria) []models.Food {
	search := strings.ToLower(strings.TrimSpace(c.Search))
	out := make([]models.Food, 0, len(foods))
	for _, f := range foods {
		if search != "" &&
			!strings.Contains(strings.ToLower(f.Name), search) &&
			!strings.Contains(strings.ToLower(f.Description), search) {
			continue
		}
		if c.Category != "" && c.Category != CategoryAll && f.Category != c.Category {
			continue
		}
		if !inRange(f.Price, c.PriceRange) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func inRange(price float64, r string) bool {
	switch r {
	case PriceUnder100:
		return price < 100
	case Price100To200:
		return price >= 100 && price <= 200
	case Price200To300:
		return price >= 200 && price <= 300
	case PriceAbove300:
		return price > 300
	default:
		return true
	}
}

// Categories lists the distinct non-empty categories in menu order.
func Categories(foods []models.Food) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range foods {
		if f.Category == "" || seen[f.Category] {
			continue
		}
		seen[f.Category] = true
		out = append(out, f.Category)
	}
	return out
}

// Calculate turns a 1-based page into an offset; size falls back to 10.
func Calculate(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 10
	}
	from = (page - 1) * size
	return from, size
}

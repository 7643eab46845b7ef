package cart

import (
	"encoding/json"
	"strings"

	"github.com/Skotchmaster/food_client/internal/models"
)

type storedLine struct {
	FoodID   *int64   `json:"foodId"`
	Name     *string  `json:"name"`
	Price    *float64 `json:"price"`
	Quantity *int     `json:"quantity"`
}

func (s storedLine) valid() bool {
	return s.FoodID != nil && *s.FoodID > 0 &&
		s.Name != nil && strings.TrimSpace(*s.Name) != "" &&
		s.Price != nil &&
		s.Quantity != nil && *s.Quantity > 0
}

// sanitize keeps the lines that satisfy the cart invariants and folds
// duplicate food ids into the first occurrence.
func sanitize(items []json.RawMessage) []models.CartLine {
	lines := make([]models.CartLine, 0, len(items))
	for _, item := range items {
		var s storedLine
		if err := json.Unmarshal(item, &s); err != nil || !s.valid() {
			continue
		}
		if i := indexOf(lines, *s.FoodID); i >= 0 {
			lines[i].Quantity += *s.Quantity
			continue
		}
		lines = append(lines, models.CartLine{
			FoodID:    *s.FoodID,
			Name:      *s.Name,
			UnitPrice: *s.Price,
			Quantity:  *s.Quantity,
		})
	}
	return lines
}

package service

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ladle-Labs/flavorbook-back/internal/db"
)

type (
	// AggregatedItem is one line of the shopping list: the summed amount of
	// an ingredient across every recipe in the user's cart.
	AggregatedItem struct {
		Name            string
		MeasurementUnit string
		Amount          uint
	}

	ShoppingList struct {
		db     *gorm.DB
		logger *zap.SugaredLogger
	}
)

func NewShoppingList(db *gorm.DB, l *zap.SugaredLogger) *ShoppingList {
	return &ShoppingList{
		db:     db,
		logger: l,
	}
}

// Aggregate collects the ingredient rows of every recipe in the user's cart
// and sums amounts per ingredient name, preserving first-seen order.
//
// Grouping is by display name only: two ingredient ids sharing a name merge,
// and the unit shown is the one of the first row seen. This matches the
// report's historical behavior and is deliberately kept.
func (s *ShoppingList) Aggregate(user *db.User) ([]AggregatedItem, error) {
	sql, args, err := squirrel.
		Select("i.name", "i.measurement_unit", "ri.amount").
		From("recipe_ingredients ri").
		Join("ingredients i ON i.id = ri.ingredient_id").
		Join("cart_items ci ON ci.recipe_id = ri.recipe_id").
		Where(squirrel.Eq{"ci.user_id": user.ID}).
		OrderBy("ri.id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	type scanRow struct {
		Name            string
		MeasurementUnit string
		Amount          uint
	}
	rows := make([]scanRow, 0)
	res := s.db.Raw(sql, args...).Scan(&rows)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan")
	}

	items := make([]AggregatedItem, 0, len(rows))
	seen := make(map[string]int, len(rows))
	for _, row := range rows {
		if i, ok := seen[row.Name]; ok {
			items[i].Amount += row.Amount
			continue
		}
		seen[row.Name] = len(items)
		items = append(items, AggregatedItem{
			Name:            row.Name,
			MeasurementUnit: row.MeasurementUnit,
			Amount:          row.Amount,
		})
	}
	return items, nil
}

// Render produces the downloadable text report. The format is a compatibility
// contract; do not change it.
func Render(items []AggregatedItem) string {
	b := strings.Builder{}
	b.WriteString("Shopping list:\n\n")
	for _, item := range items {
		fmt.Fprintf(&b, "%s (%s) - %d\n", item.Name, item.MeasurementUnit, item.Amount)
	}
	return b.String()
}

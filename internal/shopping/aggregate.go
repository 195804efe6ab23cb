package shopping

import (
	"sort"
	"strings"

	"household-planner/internal/meal"
)

// Aggregate combines the ingredients of the given meals into one line per
// ingredient name. Quantities are collected as-is rather than summed; units
// and free-text amounts from recipe snapshots are not reliably arithmetic.
func Aggregate(meals []meal.Meal) []AggregatedIngredient {
	type key struct {
		name string
		unit string
	}

	index := make(map[key]*AggregatedIngredient)
	var order []key

	for _, m := range meals {
		for _, ing := range m.Recipe.Ingredients {
			k := key{name: strings.ToLower(strings.TrimSpace(ing.Name)), unit: ing.Unit}
			if k.name == "" {
				continue
			}

			agg, ok := index[k]
			if !ok {
				agg = &AggregatedIngredient{Name: ing.Name, Unit: ing.Unit}
				index[k] = agg
				order = append(order, k)
			}
			if ing.Quantity != "" {
				agg.Quantities = append(agg.Quantities, ing.Quantity)
			}
			agg.MealIDs = append(agg.MealIDs, m.ID)
		}
	}

	result := make([]AggregatedIngredient, 0, len(order))
	for _, k := range order {
		result = append(result, *index[k])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result
}

// ToItems converts aggregated ingredients into shopping list items.
func ToItems(aggregated []AggregatedIngredient) []Item {
	items := make([]Item, 0, len(aggregated))
	for _, agg := range aggregated {
		items = append(items, Item{
			Name:     agg.Name,
			Quantity: strings.Join(agg.Quantities, " + "),
			Unit:     agg.Unit,
		})
	}
	return items
}

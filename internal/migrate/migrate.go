// Package migrate rewrites the free-text book and origin references held
// by ingredient and recipe records. It only touches records; renaming or
// removing the catalog entries themselves is the caller's business.
package migrate

import (
	"strings"

	"potiondb/internal/model"
)

// Result lists the records a migration changed.
type Result struct {
	Ingredients []string
	Recipes     []string
}

// Touched returns the number of changed records.
func (r Result) Touched() int { return len(r.Ingredients) + len(r.Recipes) }

// Merge adds the records of o, keeping each name once.
func (r *Result) Merge(o Result) {
	r.Ingredients = model.Unique(append(r.Ingredients, o.Ingredients...))
	r.Recipes = model.Unique(append(r.Recipes, o.Recipes...))
}

// BookReference replaces old with new in the books of every ingredient and
// recipe. An empty new removes the reference. Lists are deduplicated
// keeping first occurrences, so running it twice changes nothing.
func BookReference(ds *model.Dataset, old, new string) (Result, error) {
	old, new = strings.TrimSpace(old), strings.TrimSpace(new)
	if old == "" {
		return Result{}, model.Errorf(model.KindValidation, "book to migrate is required")
	}
	var res Result
	if old == new {
		return res, nil
	}
	ds.Ingredients.Each(func(ing *model.Ingredient) bool {
		out, changed := replace(ing.Books, old, new)
		if changed {
			ing.Books = out
			res.Ingredients = append(res.Ingredients, ing.Name)
		}
		return changed
	})
	ds.Recipes.Each(func(r *model.Recipe) bool {
		out, changed := replace(r.Books, old, new)
		if changed {
			r.Books = out
			res.Recipes = append(res.Recipes, r.Name)
		}
		return changed
	})
	return res, nil
}

// OriginReference replaces old with new in the origins of every
// ingredient. Both arguments may be full paths; only their last segment
// is used.
func OriginReference(ds *model.Dataset, old, new string) (Result, error) {
	old, new = model.LabelOf(old), model.LabelOf(new)
	if old == "" {
		return Result{}, model.Errorf(model.KindValidation, "origin to migrate is required")
	}
	var res Result
	if old == new {
		return res, nil
	}
	ds.Ingredients.Each(func(ing *model.Ingredient) bool {
		out, changed := replace(ing.Origins, old, new)
		if changed {
			ing.Origins = out
			res.Ingredients = append(res.Ingredients, ing.Name)
		}
		return changed
	})
	return res, nil
}

// replace swaps every occurrence of old for new (dropping it when new is
// empty) and deduplicates. changed is false when old does not occur.
func replace(items []string, old, new string) ([]string, bool) {
	found := false
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == old {
			found = true
			if new == "" {
				continue
			}
			it = new
		}
		out = append(out, it)
	}
	if !found {
		return items, false
	}
	return model.Unique(out), true
}

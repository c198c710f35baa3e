// Package suggest helps fill in recipes: ingredients by category, combo
// completion and difficulty totals.
package suggest

import (
	"cmp"
	"slices"
	"strings"

	"potiondb/internal/model"
)

// ByCategory lists the ingredients of cat sorted by difficulty, then name
// (case-insensitive). cat accepts category aliases.
func ByCategory(ds *model.Dataset, cat string) ([]model.Ingredient, error) {
	c, err := model.ParseCategory(cat)
	if err != nil {
		return nil, err
	}
	var out []model.Ingredient
	for _, ing := range ds.Ingredients.List() {
		if ing.Category == c {
			out = append(out, ing)
		}
	}
	sortByDifficulty(out, true)
	return out, nil
}

func sortByDifficulty(items []model.Ingredient, ascending bool) {
	slices.SortStableFunc(items, func(a, b model.Ingredient) int {
		if a.Difficulty != b.Difficulty {
			if ascending {
				return cmp.Compare(a.Difficulty, b.Difficulty)
			}
			return cmp.Compare(b.Difficulty, a.Difficulty)
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}

// Options tune CompleteCombo.
type Options struct {
	// Hardest picks the highest difficulty instead of the lowest.
	Hardest bool
	// Books, when set, limits candidates to ingredients sharing a book.
	Books []string
	// Origins, when set, limits candidates to ingredients sharing an origin.
	Origins []string
}

// Combo is one Binder / Catalyst / Reactant slot assignment. Empty slots
// had no candidate.
type Combo struct {
	Binder   string
	Catalyst string
	Reactant string
}

// Members returns the non-empty slots in Binder, Catalyst, Reactant order.
func (c Combo) Members() []string {
	var out []string
	for _, m := range []string{c.Binder, c.Catalyst, c.Reactant} {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// CompleteCombo fills the empty slots of partial with the easiest (or
// hardest) matching ingredient. Slots already set are kept as given.
func CompleteCombo(ds *model.Dataset, partial Combo, opts Options) Combo {
	pick := func(cat model.Category) string {
		var cands []model.Ingredient
		for _, ing := range ds.Ingredients.List() {
			if ing.Category == cat && shares(ing.Books, opts.Books) && shares(ing.Origins, opts.Origins) {
				cands = append(cands, ing)
			}
		}
		if len(cands) == 0 {
			return ""
		}
		sortByDifficulty(cands, !opts.Hardest)
		return cands[0].Name
	}
	out := partial
	if out.Binder == "" {
		out.Binder = pick(model.Binder)
	}
	if out.Catalyst == "" {
		out.Catalyst = pick(model.Catalyst)
	}
	if out.Reactant == "" {
		out.Reactant = pick(model.Reactant)
	}
	return out
}

// shares reports whether have contains one of want. An empty want matches
// everything.
func shares(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

// Difficulty sums the difficulty of every member of an alternative.
func Difficulty(ds *model.Dataset, members []string) (int, error) {
	total := 0
	for _, name := range members {
		ing, ok := ds.Ingredients.Lookup(name)
		if !ok {
			return 0, model.Errorf(model.KindNotFound, "ingredient not found: %q", name)
		}
		total += ing.Difficulty
	}
	return total, nil
}

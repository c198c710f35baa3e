// Package integrity builds the cross-record inspection report of a dataset.
package integrity

import (
	"slices"

	"potiondb/internal/model"
	"potiondb/internal/validate"
)

// Report lists every consistency problem found in a dataset. Each field is
// sorted and free of duplicates.
type Report struct {
	MissingBooks      []string `json:"missingBooks"`
	InvalidOrigins    []string `json:"invalidOrigins"`
	UnusedIngredients []string `json:"unusedIngredients"`
	InvalidRecipes    []string `json:"invalidRecipes"`
	DuplicateNames    []string `json:"duplicateNames"`
	AmbiguousOrigins  []string `json:"ambiguousOrigins"`
}

// Clean reports whether no problem was found.
func (r Report) Clean() bool {
	for _, s := range r.Sections() {
		if len(s.Items) > 0 {
			return false
		}
	}
	return true
}

// Section is one named field of a report, for display.
type Section struct {
	Title string
	Items []string
}

// Sections returns the report fields in display order.
func (r Report) Sections() []Section {
	return []Section{
		{"Missing books", r.MissingBooks},
		{"Invalid origins", r.InvalidOrigins},
		{"Unused ingredients", r.UnusedIngredients},
		{"Invalid recipes", r.InvalidRecipes},
		{"Duplicate names", r.DuplicateNames},
		{"Ambiguous origins", r.AmbiguousOrigins},
	}
}

// Inspect checks ds without modifying it.
func Inspect(ds *model.Dataset) Report {
	ings := ds.Ingredients.List()
	recs := ds.Recipes.List()
	tree := ds.OriginTree()

	var (
		refBooks   []string
		refOrigins []string
	)
	for _, ing := range ings {
		refBooks = append(refBooks, ing.Books...)
		refOrigins = append(refOrigins, ing.Origins...)
	}
	for _, r := range recs {
		refBooks = append(refBooks, r.Books...)
	}

	var rep Report
	for _, b := range refBooks {
		if b != "" && !ds.HasBook(b) {
			rep.MissingBooks = append(rep.MissingBooks, b)
		}
	}

	paths := tree.Paths()
	ambiguous := tree.AmbiguousLabels()
	for _, o := range refOrigins {
		if o == "" {
			continue
		}
		switch {
		case tree.HasLabel(o):
			if slices.Contains(ambiguous, o) {
				rep.AmbiguousOrigins = append(rep.AmbiguousOrigins, o)
			}
		case slices.Contains(paths, o):
		default:
			rep.InvalidOrigins = append(rep.InvalidOrigins, o)
		}
	}

	used := make(map[string]bool)
	for _, r := range recs {
		for _, c := range r.Combos {
			for _, name := range c {
				used[name] = true
			}
		}
	}
	for _, ing := range ings {
		if !used[ing.Name] {
			rep.UnusedIngredients = append(rep.UnusedIngredients, ing.Name)
		}
	}

	for _, r := range recs {
		if !recipeValid(r, ds.Ingredients) {
			rep.InvalidRecipes = append(rep.InvalidRecipes, r.Name)
		}
	}

	rep.DuplicateNames = append(model.Duplicates(ds.Ingredients.Names()), model.Duplicates(ds.Recipes.Names())...)

	rep.MissingBooks = sortedSet(rep.MissingBooks)
	rep.InvalidOrigins = sortedSet(rep.InvalidOrigins)
	rep.UnusedIngredients = sortedSet(rep.UnusedIngredients)
	rep.InvalidRecipes = sortedSet(rep.InvalidRecipes)
	rep.DuplicateNames = sortedSet(rep.DuplicateNames)
	rep.AmbiguousOrigins = sortedSet(rep.AmbiguousOrigins)
	return rep
}

func recipeValid(r model.Recipe, lookup model.IngredientLookup) bool {
	combos := validate.CleanCombos(r.Combos)
	if len(combos) == 0 {
		return false
	}
	for _, c := range combos {
		if _, err := model.CheckCombo(c, lookup); err != nil {
			return false
		}
	}
	return true
}

// sortedSet sorts and deduplicates items. The result is never nil so that
// encoded reports show empty lists.
func sortedSet(items []string) []string {
	out := slices.Clone(items)
	if out == nil {
		out = []string{}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

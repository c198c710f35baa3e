// Package validate checks ingredient and recipe records against the books
// catalog, the origin tree and the ingredient collection, normalizing the
// references they hold.
package validate

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"potiondb/internal/model"
)

// Ingredient validates ing and returns its normalized form: trimmed text
// fields, canonical category, origins reduced to bare labels and
// deduplicated, books deduplicated. knownBooks is the books catalog.
func Ingredient(ing model.Ingredient, knownBooks []string, tree *model.Tree) (model.Ingredient, error) {
	out := ing.Clone()
	out.Name = strings.TrimSpace(out.Name)
	if out.Name == "" {
		return model.Ingredient{}, model.Errorf(model.KindValidation, "ingredient name is required")
	}
	out.ShortEffect = strings.TrimSpace(out.ShortEffect)
	out.Effect = strings.TrimSpace(out.Effect)

	cat, err := model.ParseCategory(string(out.Category))
	if err != nil {
		return model.Ingredient{}, err
	}
	out.Category = cat

	books, err := Books(out.Books, knownBooks)
	if err != nil {
		return model.Ingredient{}, err
	}
	out.Books = books

	origins, err := Origins(out.Origins, tree)
	if err != nil {
		return model.Ingredient{}, err
	}
	out.Origins = origins
	return out, nil
}

// Recipe validates r and returns its normalized form. Combo members are
// trimmed and empty members or alternatives dropped; every remaining
// alternative must satisfy the combo rule against lookup.
func Recipe(r model.Recipe, lookup model.IngredientLookup, knownBooks []string) (model.Recipe, error) {
	out := r.Clone()
	out.Name = strings.TrimSpace(out.Name)
	if out.Name == "" {
		return model.Recipe{}, model.Errorf(model.KindValidation, "recipe name is required")
	}
	out.Desc = strings.TrimSpace(out.Desc)
	out.Emoji = strings.TrimSpace(out.Emoji)
	if out.Bonus != nil && *out.Bonus < 0 {
		return model.Recipe{}, model.Errorf(model.KindValidation, "recipe bonus must not be negative: %v", *out.Bonus)
	}

	out.Combos = CleanCombos(out.Combos)
	if len(out.Combos) == 0 {
		return model.Recipe{}, model.Errorf(model.KindRecipe, "recipe %q needs at least one non-empty alternative", out.Name)
	}
	for i, combo := range out.Combos {
		if _, err := model.CheckCombo(combo, lookup); err != nil {
			return model.Recipe{}, comboError(out.Name, i, err, lookup)
		}
	}

	books, err := Books(out.Books, knownBooks)
	if err != nil {
		return model.Recipe{}, err
	}
	out.Books = books
	return out, nil
}

// comboError prefixes a combo failure with the recipe and alternative it
// came from, keeping its kind.
func comboError(recipe string, idx int, err error, lookup model.IngredientLookup) error {
	var e *model.Error
	if !errors.As(err, &e) {
		return err
	}
	msg := fmt.Sprintf("recipe %q, alternative %d: %s", recipe, idx+1, e.Msg)
	if names, ok := lookup.(interface{ Names() []string }); ok && e.Kind == model.KindNotFound {
		msg += didYouMean(missingName(e.Msg), names.Names())
	}
	return &model.Error{Kind: e.Kind, Msg: msg}
}

// missingName extracts the quoted name from an "ingredient not found" message.
func missingName(msg string) string {
	i := strings.IndexByte(msg, '"')
	j := strings.LastIndexByte(msg, '"')
	if i < 0 || j <= i {
		return ""
	}
	return msg[i+1 : j]
}

// CleanCombos trims members and drops empty members and alternatives.
func CleanCombos(combos [][]string) [][]string {
	var out [][]string
	for _, row := range combos {
		var cleaned []string
		for _, m := range row {
			if s := strings.TrimSpace(m); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		if len(cleaned) > 0 {
			out = append(out, cleaned)
		}
	}
	return out
}

// Books cleans refs and checks each title against the catalog. All unknown
// titles are reported in one BookError.
func Books(refs, knownBooks []string) ([]string, error) {
	books := model.CleanList(refs)
	var unknown []string
	for _, b := range books {
		if !slices.Contains(knownBooks, b) {
			unknown = append(unknown, b)
		}
	}
	switch len(unknown) {
	case 0:
		return books, nil
	case 1:
		return nil, model.Errorf(model.KindBook, "unknown book: %q%s", unknown[0], didYouMean(unknown[0], knownBooks))
	default:
		return nil, model.Errorf(model.KindBook, "unknown books: %s", quoteAll(unknown))
	}
}

// Origin reduces ref (a label or a slash path) to its bare label and
// checks the label exists somewhere in tree.
func Origin(ref string, tree *model.Tree) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", model.Errorf(model.KindOrigin, "empty origin")
	}
	label := model.LabelOf(ref)
	if label == "" {
		return "", model.Errorf(model.KindOrigin, "empty origin in %q", ref)
	}
	if !tree.HasLabel(label) {
		return "", model.Errorf(model.KindOrigin, "unknown origin: %q%s", ref, didYouMean(label, tree.Labels()))
	}
	return label, nil
}

// Origins normalizes every reference with Origin and deduplicates the
// result, keeping first occurrences. The first invalid reference fails.
func Origins(refs []string, tree *model.Tree) ([]string, error) {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		label, err := Origin(ref, tree)
		if err != nil {
			return nil, err
		}
		out = append(out, label)
	}
	return model.Unique(out), nil
}

func quoteAll(items []string) string {
	q := make([]string, len(items))
	for i, it := range items {
		q[i] = fmt.Sprintf("%q", it)
	}
	return strings.Join(q, ", ")
}

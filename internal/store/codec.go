package store

// codec.go - JSON encoding of the ingredient and recipe collections.
//
// The key order of both record shapes is fixed so files round-trip with
// minimal diffs:
//
//	ingredients.json  [{name, cat, difficulty, shortEffect, effect, origins, books}]
//	recipes.json      [{emoji, name, desc, ingredients, books, bonus}]
//
// A recipe's combos are stored under "ingredients"; an unset bonus is "".

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"potiondb/internal/model"
)

type ingredientDTO struct {
	Name        string     `json:"name"`
	Cat         string     `json:"cat"`
	Difficulty  difficulty `json:"difficulty"`
	ShortEffect string     `json:"shortEffect"`
	Effect      string     `json:"effect"`
	Origins     []string   `json:"origins"`
	Books       []string   `json:"books"`
}

type recipeDTO struct {
	Emoji       string     `json:"emoji"`
	Name        string     `json:"name"`
	Desc        string     `json:"desc"`
	Ingredients [][]string `json:"ingredients"`
	Books       []string   `json:"books"`
	Bonus       bonus      `json:"bonus"`
}

// difficulty accepts integers, integral floats, numeric strings and
// null/"" (zero). Anything else is a ValidationError.
type difficulty int

func (d *difficulty) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*d = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
		if s == "" {
			*d = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return model.Errorf(model.KindValidation, "difficulty must be an integer, got %s", string(b))
	}
	*d = difficulty(f)
	return nil
}

// bonus is an optional number written as "" when unset.
type bonus struct{ v *float64 }

func (b bonus) MarshalJSON() ([]byte, error) {
	if b.v == nil {
		return []byte(`""`), nil
	}
	return json.Marshal(*b.v)
}

// UnmarshalJSON is lenient: values that are not numbers load as unset.
func (b *bonus) UnmarshalJSON(data []byte) error {
	b.v = nil
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		b.v = &v
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			b.v = &f
		}
	}
	return nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func ingredientToDTO(ing model.Ingredient) ingredientDTO {
	return ingredientDTO{
		Name:        ing.Name,
		Cat:         string(ing.Category),
		Difficulty:  difficulty(ing.Difficulty),
		ShortEffect: ing.ShortEffect,
		Effect:      ing.Effect,
		Origins:     nonNil(ing.Origins),
		Books:       nonNil(ing.Books),
	}
}

// ingredientFromDTO trims text fields and canonicalizes known category
// aliases. Unknown categories are kept verbatim for the integrity report.
func ingredientFromDTO(d ingredientDTO) model.Ingredient {
	cat := model.Category(strings.TrimSpace(d.Cat))
	if c, err := model.ParseCategory(d.Cat); err == nil {
		cat = c
	}
	return model.Ingredient{
		Name:        strings.TrimSpace(d.Name),
		Category:    cat,
		Difficulty:  int(d.Difficulty),
		ShortEffect: strings.TrimSpace(d.ShortEffect),
		Effect:      strings.TrimSpace(d.Effect),
		Origins:     d.Origins,
		Books:       d.Books,
	}
}

func recipeToDTO(r model.Recipe) recipeDTO {
	combos := make([][]string, len(r.Combos))
	for i, c := range r.Combos {
		combos[i] = nonNil(c)
	}
	return recipeDTO{
		Emoji:       r.Emoji,
		Name:        r.Name,
		Desc:        r.Desc,
		Ingredients: combos,
		Books:       nonNil(r.Books),
		Bonus:       bonus{r.Bonus},
	}
}

func recipeFromDTO(d recipeDTO) model.Recipe {
	var combos [][]string
	for _, row := range d.Ingredients {
		var cleaned []string
		for _, m := range row {
			if m = strings.TrimSpace(m); m != "" {
				cleaned = append(cleaned, m)
			}
		}
		if len(cleaned) > 0 {
			combos = append(combos, cleaned)
		}
	}
	return model.Recipe{
		Name:   strings.TrimSpace(d.Name),
		Desc:   strings.TrimSpace(d.Desc),
		Emoji:  strings.TrimSpace(d.Emoji),
		Bonus:  d.Bonus.v,
		Combos: combos,
		Books:  d.Books,
	}
}

// EncodeIngredients renders the ingredient collection as indented JSON.
func EncodeIngredients(items []model.Ingredient) ([]byte, error) {
	dtos := make([]ingredientDTO, len(items))
	for i, ing := range items {
		dtos[i] = ingredientToDTO(ing)
	}
	return encodeJSON(dtos)
}

// DecodeIngredients parses an ingredient collection. Empty input is an
// empty collection.
func DecodeIngredients(data []byte) ([]model.Ingredient, error) {
	var dtos []ingredientDTO
	if err := decodeJSON(data, &dtos); err != nil {
		return nil, err
	}
	out := make([]model.Ingredient, len(dtos))
	for i, d := range dtos {
		out[i] = ingredientFromDTO(d)
	}
	return out, nil
}

// EncodeRecipes renders the recipe collection as indented JSON.
func EncodeRecipes(items []model.Recipe) ([]byte, error) {
	dtos := make([]recipeDTO, len(items))
	for i, r := range items {
		dtos[i] = recipeToDTO(r)
	}
	return encodeJSON(dtos)
}

// DecodeRecipes parses a recipe collection.
func DecodeRecipes(data []byte) ([]model.Recipe, error) {
	var dtos []recipeDTO
	if err := decodeJSON(data, &dtos); err != nil {
		return nil, err
	}
	out := make([]model.Recipe, len(dtos))
	for i, d := range dtos {
		out[i] = recipeFromDTO(d)
	}
	return out, nil
}

// encodeJSON indents with two spaces and leaves non-ASCII and HTML
// characters unescaped.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeJSON(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

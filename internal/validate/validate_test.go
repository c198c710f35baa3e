package validate_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"potiondb/internal/model"
	"potiondb/internal/validate"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var books = []string{"Herbal Basics", "Bestiary of Catalysts"}

// originTree builds Tothymia/{Silvanea/{Elenart}, Terragard}.
func originTree(t *testing.T) *model.Tree {
	t.Helper()
	tree := model.NewTree()
	toth, _ := tree.Add(model.Root, "Tothymia")
	silv, _ := tree.Add(toth, "Silvanea")
	if _, err := tree.Add(silv, "Elenart"); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.Add(toth, "Terragard"); err != nil {
		t.Fatal(err)
	}
	return tree
}

func ingredients() *model.IngredientRepo {
	ds := model.NewDataset()
	for _, ing := range []model.Ingredient{
		{Name: "Salt", Category: model.Binder},
		{Name: "Resin", Category: model.Binder},
		{Name: "Ember", Category: model.Catalyst},
		{Name: "Root", Category: model.Reactant},
	} {
		ds.Ingredients.Add(ing)
	}
	return ds.Ingredients
}

// ---------------------------------------------------------------------------
// Ingredient
// ---------------------------------------------------------------------------

func TestIngredientNormalizes(t *testing.T) {
	tree := originTree(t)
	in := model.Ingredient{
		Name:     "  Moonmoss ",
		Category: "réactif",
		Origins:  []string{"Tothymia/Silvanea/Elenart", "Elenart", " Terragard "},
		Books:    []string{"Herbal Basics", " Herbal Basics", ""},
	}
	got, err := validate.Ingredient(in, books, tree)
	if err != nil {
		t.Fatalf("Ingredient: %v", err)
	}
	want := model.Ingredient{
		Name:     "Moonmoss",
		Category: model.Reactant,
		Origins:  []string{"Elenart", "Terragard"},
		Books:    []string{"Herbal Basics"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("normalized ingredient mismatch (-want +got):\n%s", diff)
	}
	// Every stored reference is now a member of its catalog.
	for _, o := range got.Origins {
		if !tree.HasLabel(o) {
			t.Errorf("origin %q not in tree", o)
		}
	}
	for _, b := range got.Books {
		if !strings.Contains(strings.Join(books, "\n"), b) {
			t.Errorf("book %q not in catalog", b)
		}
	}
	if in.Name != "  Moonmoss " {
		t.Error("input record was mutated")
	}
}

func TestIngredientErrors(t *testing.T) {
	tree := originTree(t)
	base := model.Ingredient{Name: "Moss", Category: model.Reactant}
	tests := []struct {
		name   string
		mutate func(*model.Ingredient)
		want   error
	}{
		{"empty name", func(i *model.Ingredient) { i.Name = "  " }, model.ErrValidation},
		{"bad category", func(i *model.Ingredient) { i.Category = "solvent" }, model.ErrCategory},
		{"unknown origin", func(i *model.Ingredient) { i.Origins = []string{"Atlantis"} }, model.ErrOrigin},
		{"unknown origin path", func(i *model.Ingredient) { i.Origins = []string{"Tothymia/Nowhere"} }, model.ErrOrigin},
		{"empty origin", func(i *model.Ingredient) { i.Origins = []string{""} }, model.ErrOrigin},
		{"trailing slash", func(i *model.Ingredient) { i.Origins = []string{"Tothymia/"} }, model.ErrOrigin},
		{"unknown book", func(i *model.Ingredient) { i.Books = []string{"Necronomicon"} }, model.ErrBook},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := base.Clone()
			tt.mutate(&ing)
			_, err := validate.Ingredient(ing, books, tree)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want kind %v", err, tt.want.(*model.Error).Kind)
			}
			if !errors.Is(err, model.ErrValidation) {
				t.Errorf("%v should also be a ValidationError", err)
			}
		})
	}
}

func TestUnknownReferenceSuggestsClosest(t *testing.T) {
	tree := originTree(t)
	_, err := validate.Ingredient(model.Ingredient{Name: "Moss", Category: model.Reactant, Books: []string{"Herbal Basic"}}, books, tree)
	if err == nil || !strings.Contains(err.Error(), `did you mean "Herbal Basics"?`) {
		t.Errorf("expected book suggestion, got %v", err)
	}
	_, err = validate.Ingredient(model.Ingredient{Name: "Moss", Category: model.Reactant, Origins: []string{"Terragrad"}}, books, tree)
	if err == nil || !strings.Contains(err.Error(), `did you mean "Terragard"?`) {
		t.Errorf("expected origin suggestion, got %v", err)
	}
}

func TestUnknownBooksListedTogether(t *testing.T) {
	_, err := validate.Books([]string{"X", "Herbal Basics", "Y"}, books)
	if !errors.Is(err, model.ErrBook) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), `"X", "Y"`) {
		t.Errorf("message should list both titles: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Recipe
// ---------------------------------------------------------------------------

func TestRecipeCombos(t *testing.T) {
	lookup := ingredients()
	tests := []struct {
		name   string
		combos [][]string
		want   error
	}{
		{"single reactant", [][]string{{"Root"}}, nil},
		{"full trio", [][]string{{"Salt", "Ember", "Root"}}, nil},
		{"two binders", [][]string{{"Salt", "Resin", "Root"}}, model.ErrRecipe},
		{"missing reactant", [][]string{{"Salt", "Ember"}}, model.ErrRecipe},
		{"unknown ingredient", [][]string{{"Root", "Ghost"}}, model.ErrNotFound},
		{"only empties", [][]string{{"", " "}, {}}, model.ErrRecipe},
		{"no combos", nil, model.ErrRecipe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validate.Recipe(model.Recipe{Name: "Tonic", Combos: tt.combos}, lookup, books)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want kind %v", err, tt.want.(*model.Error).Kind)
			}
		})
	}
}

func TestRecipeNormalizes(t *testing.T) {
	bonus := 2.5
	in := model.Recipe{
		Name:   " Tonic ",
		Desc:   " restores ",
		Emoji:  " 🧪 ",
		Bonus:  &bonus,
		Combos: [][]string{{" Root ", ""}, {}, {"Salt", "Ember", "Root"}},
		Books:  []string{"Herbal Basics", "Herbal Basics"},
	}
	got, err := validate.Recipe(in, ingredients(), books)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Tonic" || got.Desc != "restores" || got.Emoji != "🧪" {
		t.Errorf("text fields not trimmed: %+v", got)
	}
	if diff := cmp.Diff([][]string{{"Root"}, {"Salt", "Ember", "Root"}}, got.Combos); diff != "" {
		t.Errorf("combos mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Herbal Basics"}, got.Books); diff != "" {
		t.Errorf("books mismatch (-want +got):\n%s", diff)
	}
}

func TestRecipeErrors(t *testing.T) {
	lookup := ingredients()
	neg := -1.0
	if _, err := validate.Recipe(model.Recipe{Name: "", Combos: [][]string{{"Root"}}}, lookup, books); !errors.Is(err, model.ErrValidation) {
		t.Errorf("empty name err = %v", err)
	}
	if _, err := validate.Recipe(model.Recipe{Name: "T", Bonus: &neg, Combos: [][]string{{"Root"}}}, lookup, books); !errors.Is(err, model.ErrValidation) {
		t.Errorf("negative bonus err = %v", err)
	}
	if _, err := validate.Recipe(model.Recipe{Name: "T", Combos: [][]string{{"Root"}}, Books: []string{"Nope"}}, lookup, books); !errors.Is(err, model.ErrBook) {
		t.Errorf("unknown book err = %v", err)
	}
}

func TestRecipeErrorNamesAlternative(t *testing.T) {
	_, err := validate.Recipe(model.Recipe{Name: "Tonic", Combos: [][]string{{"Root"}, {"Rot"}}}, ingredients(), books)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "alternative 2") || !strings.Contains(msg, `did you mean "Root"?`) {
		t.Errorf("unexpected message: %s", msg)
	}
}

// ---------------------------------------------------------------------------
// Closest
// ---------------------------------------------------------------------------

func TestClosest(t *testing.T) {
	cands := []string{"inspect", "ingredient", "origin"}
	tests := []struct {
		word string
		want string
		ok   bool
	}{
		{"inspect", "inspect", true},
		{"INSPECT", "inspect", true},
		{"inspct", "inspect", true},
		{"orign", "origin", true},
		{"zzzzzz", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := validate.Closest(tt.word, cands)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Closest(%q) = %q, %v; want %q, %v", tt.word, got, ok, tt.want, tt.ok)
		}
	}
}

package integrity_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"potiondb/internal/integrity"
	"potiondb/internal/model"
)

func consistent(t *testing.T) *model.Dataset {
	t.Helper()
	ds := model.NewDataset()
	ds.SetBooks([]string{"Herbal Basics"})
	tree := ds.OriginTree()
	toth, _ := tree.Add(model.Root, "Tothymia")
	if _, err := tree.Add(toth, "Elenart"); err != nil {
		t.Fatal(err)
	}
	for _, ing := range []model.Ingredient{
		{Name: "Moss", Category: model.Reactant, Origins: []string{"Elenart"}, Books: []string{"Herbal Basics"}},
		{Name: "Salt", Category: model.Binder, Origins: []string{"Tothymia/Elenart"}},
	} {
		if err := ds.Ingredients.Add(ing); err != nil {
			t.Fatal(err)
		}
	}
	if err := ds.Recipes.Add(model.Recipe{Name: "Tonic", Combos: [][]string{{"Salt", "Moss"}}, Books: []string{"Herbal Basics"}}); err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestInspectClean(t *testing.T) {
	rep := integrity.Inspect(consistent(t))
	if !rep.Clean() {
		t.Errorf("expected clean report, got %+v", rep)
	}
}

func TestInspectFindsProblems(t *testing.T) {
	ds := consistent(t)
	ds.Ingredients.Load(append(ds.Ingredients.List(),
		model.Ingredient{Name: "Ember", Category: model.Catalyst, Origins: []string{"Atlantis"}, Books: []string{"Lost Tome"}},
		model.Ingredient{Name: "Ember", Category: model.Catalyst},
	))
	ds.Recipes.Load(append(ds.Recipes.List(),
		model.Recipe{Name: "Sludge", Combos: [][]string{{"Salt", "Ember"}}, Books: []string{"Z Almanac"}},
		model.Recipe{Name: "Void"},
		model.Recipe{Name: "Ghostly", Combos: [][]string{{"Moss"}, {"Ghost"}}},
	))

	got := integrity.Inspect(ds)
	want := integrity.Report{
		MissingBooks:      []string{"Lost Tome", "Z Almanac"},
		InvalidOrigins:    []string{"Atlantis"},
		UnusedIngredients: []string{},
		InvalidRecipes:    []string{"Ghostly", "Sludge", "Void"},
		DuplicateNames:    []string{"Ember"},
		AmbiguousOrigins:  []string{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if got.Clean() {
		t.Error("report with problems reported clean")
	}
}

func TestDuplicateNamesAcrossCollections(t *testing.T) {
	ds := model.NewDataset()
	ds.Ingredients.Load([]model.Ingredient{
		{Name: "A", Category: model.Reactant},
		{Name: "B", Category: model.Reactant},
		{Name: "A", Category: model.Reactant},
	})
	ds.Recipes.Load([]model.Recipe{
		{Name: "R", Combos: [][]string{{"A"}}},
		{Name: "R", Combos: [][]string{{"B"}}},
		{Name: "A", Combos: [][]string{{"B"}}},
	})
	got := integrity.Inspect(ds).DuplicateNames
	if diff := cmp.Diff([]string{"A", "R"}, got); diff != "" {
		t.Errorf("DuplicateNames (-want +got):\n%s", diff)
	}
}

func TestUnusedIngredients(t *testing.T) {
	ds := consistent(t)
	if err := ds.Ingredients.Add(model.Ingredient{Name: "Ember", Category: model.Catalyst}); err != nil {
		t.Fatal(err)
	}
	if err := ds.Ingredients.Add(model.Ingredient{Name: "Ash", Category: model.Reactant}); err != nil {
		t.Fatal(err)
	}
	got := integrity.Inspect(ds).UnusedIngredients
	if diff := cmp.Diff([]string{"Ash", "Ember"}, got); diff != "" {
		t.Errorf("UnusedIngredients (-want +got):\n%s", diff)
	}
}

func TestAmbiguousOrigins(t *testing.T) {
	ds := consistent(t)
	tree := ds.OriginTree()
	other, _ := tree.Add(model.Root, "Varn")
	if _, err := tree.Add(other, "Elenart"); err != nil {
		t.Fatal(err)
	}
	rep := integrity.Inspect(ds)
	if diff := cmp.Diff([]string{"Elenart"}, rep.AmbiguousOrigins); diff != "" {
		t.Errorf("AmbiguousOrigins (-want +got):\n%s", diff)
	}
	if len(rep.InvalidOrigins) != 0 {
		t.Errorf("ambiguous labels are not invalid: %v", rep.InvalidOrigins)
	}
}

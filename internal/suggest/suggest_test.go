package suggest_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"potiondb/internal/model"
	"potiondb/internal/suggest"
)

func dataset(t *testing.T) *model.Dataset {
	t.Helper()
	ds := model.NewDataset()
	for _, ing := range []model.Ingredient{
		{Name: "salt", Category: model.Binder, Difficulty: 2, Books: []string{"B1"}},
		{Name: "Resin", Category: model.Binder, Difficulty: 2, Origins: []string{"Varn"}},
		{Name: "Clay", Category: model.Binder, Difficulty: 5, Books: []string{"B2"}},
		{Name: "Ember", Category: model.Catalyst, Difficulty: 1, Books: []string{"B2"}},
		{Name: "Moss", Category: model.Reactant, Difficulty: -1, Origins: []string{"Varn"}},
		{Name: "Root", Category: model.Reactant, Difficulty: 4, Books: []string{"B1"}},
	} {
		if err := ds.Ingredients.Add(ing); err != nil {
			t.Fatal(err)
		}
	}
	return ds
}

func names(items []model.Ingredient) []string {
	var out []string
	for _, ing := range items {
		out = append(out, ing.Name)
	}
	return out
}

func TestByCategory(t *testing.T) {
	ds := dataset(t)
	got, err := suggest.ByCategory(ds, "liant")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Resin", "salt", "Clay"}, names(got)); diff != "" {
		t.Errorf("binders (-want +got):\n%s", diff)
	}
	if _, err := suggest.ByCategory(ds, "solvent"); !errors.Is(err, model.ErrCategory) {
		t.Errorf("err = %v", err)
	}
}

func TestCompleteCombo(t *testing.T) {
	ds := dataset(t)
	tests := []struct {
		name    string
		partial suggest.Combo
		opts    suggest.Options
		want    suggest.Combo
	}{
		{"easiest", suggest.Combo{}, suggest.Options{}, suggest.Combo{Binder: "Resin", Catalyst: "Ember", Reactant: "Moss"}},
		{"hardest", suggest.Combo{}, suggest.Options{Hardest: true}, suggest.Combo{Binder: "Clay", Catalyst: "Ember", Reactant: "Root"}},
		{"keeps given", suggest.Combo{Reactant: "Root"}, suggest.Options{}, suggest.Combo{Binder: "Resin", Catalyst: "Ember", Reactant: "Root"}},
		{"book filter", suggest.Combo{}, suggest.Options{Books: []string{"B1"}}, suggest.Combo{Binder: "salt", Reactant: "Root"}},
		{"origin filter", suggest.Combo{}, suggest.Options{Origins: []string{"Varn"}}, suggest.Combo{Binder: "Resin", Reactant: "Moss"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := suggest.CompleteCombo(ds, tt.partial, tt.opts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("combo (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComboMembers(t *testing.T) {
	c := suggest.Combo{Binder: "Resin", Reactant: "Moss"}
	if diff := cmp.Diff([]string{"Resin", "Moss"}, c.Members()); diff != "" {
		t.Errorf("members (-want +got):\n%s", diff)
	}
}

func TestDifficulty(t *testing.T) {
	ds := dataset(t)
	got, err := suggest.Difficulty(ds, []string{"Clay", "Ember", "Moss"})
	if err != nil || got != 5 {
		t.Errorf("Difficulty = %d, %v; want 5", got, err)
	}
	if _, err := suggest.Difficulty(ds, []string{"Ghost"}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestByCategoryExtremeDifficulties(t *testing.T) {
	ds := model.NewDataset()
	for _, ing := range []model.Ingredient{
		{Name: "Max", Category: model.Reactant, Difficulty: math.MaxInt},
		{Name: "Min", Category: model.Reactant, Difficulty: math.MinInt},
		{Name: "Zero", Category: model.Reactant},
	} {
		if err := ds.Ingredients.Add(ing); err != nil {
			t.Fatal(err)
		}
	}
	got, err := suggest.ByCategory(ds, "Reactant")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Min", "Zero", "Max"}, names(got)); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
	c := suggest.CompleteCombo(ds, suggest.Combo{}, suggest.Options{Hardest: true})
	if c.Reactant != "Max" {
		t.Errorf("hardest reactant = %q, want Max", c.Reactant)
	}
}

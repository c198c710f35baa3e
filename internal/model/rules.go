package model

// IngredientLookup resolves an ingredient by name.
type IngredientLookup interface {
	Lookup(name string) (Ingredient, bool)
}

// LookupFunc adapts a function to IngredientLookup.
type LookupFunc func(name string) (Ingredient, bool)

func (f LookupFunc) Lookup(name string) (Ingredient, bool) { return f(name) }

// ComboCounts holds the per-category member counts of one alternative.
type ComboCounts struct {
	Binders   int
	Catalysts int
	Reactants int
}

// CheckCombo validates one recipe alternative: every member must resolve
// through lookup, and the alternative needs at least one Reactant, at most
// one Binder and at most one Catalyst.
func CheckCombo(members []string, lookup IngredientLookup) (ComboCounts, error) {
	var c ComboCounts
	if len(members) == 0 {
		return c, Errorf(KindRecipe, "an alternative must contain at least one ingredient")
	}
	for _, name := range members {
		if name == "" {
			return c, Errorf(KindNotFound, "empty ingredient name")
		}
		ing, ok := lookup.Lookup(name)
		if !ok {
			return c, Errorf(KindNotFound, "ingredient not found: %q", name)
		}
		cat, err := ParseCategory(string(ing.Category))
		if err != nil {
			return c, err
		}
		switch cat {
		case Binder:
			c.Binders++
		case Catalyst:
			c.Catalysts++
		case Reactant:
			c.Reactants++
		}
	}
	if c.Reactants < 1 {
		return c, Errorf(KindRecipe, "each alternative needs at least one Reactant")
	}
	if c.Binders > 1 || c.Catalysts > 1 {
		return c, Errorf(KindRecipe, "at most one Binder and one Catalyst per alternative")
	}
	return c, nil
}

package model

import "strings"

// Category is one of the three ingredient roles inside a combo.
type Category string

const (
	Binder   Category = "Binder"
	Catalyst Category = "Catalyst"
	Reactant Category = "Reactant"
)

// Categories lists the categories in display order.
var Categories = []Category{Binder, Catalyst, Reactant}

var categoryAliases = map[string]Category{
	"binder":     Binder,
	"liant":      Binder,
	"catalyst":   Catalyst,
	"catalyseur": Catalyst,
	"cata":       Catalyst,
	"reactant":   Reactant,
	"réactif":    Reactant,
	"reactif":    Reactant,
}

// ParseCategory normalizes s (case-insensitive, aliases accepted) to a
// Category. Unknown values yield a CategoryError.
func ParseCategory(s string) (Category, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return "", Errorf(KindCategory, "missing category")
	}
	if c, ok := categoryAliases[v]; ok {
		return c, nil
	}
	return "", Errorf(KindCategory, "unknown category: %q", s)
}

package model

import (
	"slices"
	"strings"
)

// Dataset is a fully loaded catalog: both record collections plus the
// shared books catalog and origin tree. It is the unit that stores load
// and commit.
type Dataset struct {
	Ingredients *IngredientRepo
	Recipes     *RecipeRepo

	books []string
	tree  *Tree
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		Ingredients: &IngredientRepo{},
		Recipes:     &RecipeRepo{},
		tree:        NewTree(),
	}
}

// Books returns a copy of the books catalog.
func (d *Dataset) Books() []string { return slices.Clone(d.books) }

// SetBooks replaces the books catalog. Titles are trimmed, empties and
// duplicates dropped, first-occurrence order kept.
func (d *Dataset) SetBooks(books []string) { d.books = CleanList(books) }

// HasBook reports whether title is in the catalog.
func (d *Dataset) HasBook(title string) bool { return slices.Contains(d.books, title) }

// OriginTree returns the live origin tree. Callers that mutate it own the
// consequences; use SetOriginTree with a clone for staged edits.
func (d *Dataset) OriginTree() *Tree { return d.tree }

// SetOriginTree replaces the origin tree. A nil tree becomes empty.
func (d *Dataset) SetOriginTree(t *Tree) {
	if t == nil {
		t = NewTree()
	}
	d.tree = t
}

// Clone returns a deep copy of d.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Ingredients: &IngredientRepo{items: make([]Ingredient, len(d.Ingredients.items))},
		Recipes:     &RecipeRepo{items: make([]Recipe, len(d.Recipes.items))},
		books:       slices.Clone(d.books),
		tree:        d.tree.Clone(),
	}
	for i, ing := range d.Ingredients.items {
		out.Ingredients.items[i] = ing.Clone()
	}
	for i, r := range d.Recipes.items {
		out.Recipes.items[i] = r.Clone()
	}
	return out
}

// ---------------------------------------------------------------------------
// Ingredients
// ---------------------------------------------------------------------------

// IngredientRepo is the in-memory ingredient collection. It keeps the load
// order of records and enforces name uniqueness on Add.
type IngredientRepo struct {
	items []Ingredient
}

// List returns copies of every ingredient, in collection order.
func (r *IngredientRepo) List() []Ingredient {
	out := make([]Ingredient, len(r.items))
	for i, ing := range r.items {
		out[i] = ing.Clone()
	}
	return out
}

// Len returns the number of ingredients.
func (r *IngredientRepo) Len() int { return len(r.items) }

func (r *IngredientRepo) index(name string) int {
	return slices.IndexFunc(r.items, func(ing Ingredient) bool { return ing.Name == name })
}

// Get returns the ingredient called name.
func (r *IngredientRepo) Get(name string) (Ingredient, error) {
	i := r.index(name)
	if i < 0 {
		return Ingredient{}, Errorf(KindNotFound, "ingredient not found: %q", name)
	}
	return r.items[i].Clone(), nil
}

// Add appends ing; the name must be free.
func (r *IngredientRepo) Add(ing Ingredient) error {
	if r.index(ing.Name) >= 0 {
		return Errorf(KindDuplicateName, "ingredient already exists: %q", ing.Name)
	}
	r.items = append(r.items, ing.Clone())
	return nil
}

// Update replaces the ingredient with the same name.
func (r *IngredientRepo) Update(ing Ingredient) error {
	i := r.index(ing.Name)
	if i < 0 {
		return Errorf(KindNotFound, "ingredient not found: %q", ing.Name)
	}
	r.items[i] = ing.Clone()
	return nil
}

// Rename changes the name of an ingredient in place, keeping its position.
func (r *IngredientRepo) Rename(oldName, newName string) error {
	i := r.index(oldName)
	if i < 0 {
		return Errorf(KindNotFound, "ingredient not found: %q", oldName)
	}
	if oldName != newName && r.index(newName) >= 0 {
		return Errorf(KindDuplicateName, "ingredient already exists: %q", newName)
	}
	r.items[i].Name = newName
	return nil
}

// Delete removes the ingredient called name. Missing names are ignored.
func (r *IngredientRepo) Delete(name string) {
	r.items = slices.DeleteFunc(r.items, func(ing Ingredient) bool { return ing.Name == name })
}

// Load replaces the collection as read from storage, duplicates included,
// so that integrity checks can see them.
func (r *IngredientRepo) Load(items []Ingredient) {
	r.items = make([]Ingredient, len(items))
	for i, ing := range items {
		r.items[i] = ing.Clone()
	}
}

// Each calls fn with a pointer to every stored ingredient, in order, and
// reports how many calls returned true (changed).
func (r *IngredientRepo) Each(fn func(*Ingredient) bool) int {
	n := 0
	for i := range r.items {
		if fn(&r.items[i]) {
			n++
		}
	}
	return n
}

// Names returns every ingredient name in collection order.
func (r *IngredientRepo) Names() []string {
	out := make([]string, len(r.items))
	for i, ing := range r.items {
		out[i] = ing.Name
	}
	return out
}

// Lookup implements the lookup used by combo validation.
func (r *IngredientRepo) Lookup(name string) (Ingredient, bool) {
	i := r.index(name)
	if i < 0 {
		return Ingredient{}, false
	}
	return r.items[i], true
}

// ---------------------------------------------------------------------------
// Recipes
// ---------------------------------------------------------------------------

// RecipeRepo is the in-memory recipe collection.
type RecipeRepo struct {
	items []Recipe
}

// List returns copies of every recipe, in collection order.
func (r *RecipeRepo) List() []Recipe {
	out := make([]Recipe, len(r.items))
	for i, rec := range r.items {
		out[i] = rec.Clone()
	}
	return out
}

// Len returns the number of recipes.
func (r *RecipeRepo) Len() int { return len(r.items) }

func (r *RecipeRepo) index(name string) int {
	return slices.IndexFunc(r.items, func(rec Recipe) bool { return rec.Name == name })
}

// Get returns the recipe called name.
func (r *RecipeRepo) Get(name string) (Recipe, error) {
	i := r.index(name)
	if i < 0 {
		return Recipe{}, Errorf(KindNotFound, "recipe not found: %q", name)
	}
	return r.items[i].Clone(), nil
}

// Add appends rec; the name must be free.
func (r *RecipeRepo) Add(rec Recipe) error {
	if r.index(rec.Name) >= 0 {
		return Errorf(KindDuplicateName, "recipe already exists: %q", rec.Name)
	}
	r.items = append(r.items, rec.Clone())
	return nil
}

// Update replaces the recipe with the same name.
func (r *RecipeRepo) Update(rec Recipe) error {
	i := r.index(rec.Name)
	if i < 0 {
		return Errorf(KindNotFound, "recipe not found: %q", rec.Name)
	}
	r.items[i] = rec.Clone()
	return nil
}

// Delete removes the recipe called name. Missing names are ignored.
func (r *RecipeRepo) Delete(name string) {
	r.items = slices.DeleteFunc(r.items, func(rec Recipe) bool { return rec.Name == name })
}

// Load replaces the collection as read from storage.
func (r *RecipeRepo) Load(items []Recipe) {
	r.items = make([]Recipe, len(items))
	for i, rec := range items {
		r.items[i] = rec.Clone()
	}
}

// Each calls fn with a pointer to every stored recipe and reports how many
// calls returned true.
func (r *RecipeRepo) Each(fn func(*Recipe) bool) int {
	n := 0
	for i := range r.items {
		if fn(&r.items[i]) {
			n++
		}
	}
	return n
}

// Names returns every recipe name in collection order.
func (r *RecipeRepo) Names() []string {
	out := make([]string, len(r.items))
	for i, rec := range r.items {
		out[i] = rec.Name
	}
	return out
}

// SortedNames returns names sorted case-insensitively, for display.
func SortedNames(names []string) []string {
	out := slices.Clone(names)
	slices.SortFunc(out, func(a, b string) int {
		if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return out
}

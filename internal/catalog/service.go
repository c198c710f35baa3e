// Package catalog implements the catalog use cases: record CRUD, books and
// origin tree maintenance, and dataset checks.
//
// Every command runs over a freshly loaded snapshot of the dataset. The
// change and the reference migration it implies are applied to that
// snapshot, which is then committed through the store in one step. A
// command that fails at any point writes nothing.
package catalog

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"potiondb/internal/migrate"
	"potiondb/internal/model"
	"potiondb/internal/store"
	"potiondb/internal/validate"
)

// Service runs catalog commands against a store. Commands are serialized.
type Service struct {
	store store.Store
	log   *zap.Logger
	mu    sync.Mutex
}

// New returns a service over st. A nil logger disables logging.
func New(st store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, log: log}
}

// Dataset returns a snapshot of the stored dataset.
func (s *Service) Dataset(ctx context.Context) (*model.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load(ctx)
}

// change is the body of a mutating command. It edits ds in place and
// returns the log fields describing what it did. noop reports that nothing
// needs committing.
type change func(ds *model.Dataset) (fields []zap.Field, noop bool, err error)

// apply loads a snapshot, runs fn and commits the result.
func (s *Service) apply(ctx context.Context, command string, fn change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	fields, noop, err := fn(ds)
	if err != nil {
		s.log.Debug("command rejected", zap.String("command", command), zap.Error(err))
		return err
	}
	if noop {
		s.log.Debug("command changed nothing", append([]zap.Field{zap.String("command", command)}, fields...)...)
		return nil
	}
	if err := s.store.Commit(ctx, ds); err != nil {
		return err
	}
	s.log.Info("catalog updated", append([]zap.Field{zap.String("command", command)}, fields...)...)
	return nil
}

func touched(res migrate.Result) []zap.Field {
	return []zap.Field{
		zap.Int("touched", res.Touched()),
		zap.Strings("ingredients", res.Ingredients),
		zap.Strings("recipes", res.Recipes),
	}
}

func requireName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", model.Errorf(model.KindValidation, "%s name is required", kind)
	}
	return name, nil
}

// ---------------------------------------------------------------------------
// Ingredients
// ---------------------------------------------------------------------------

// Ingredients lists every ingredient in collection order.
func (s *Service) Ingredients(ctx context.Context) ([]model.Ingredient, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Ingredients.List(), nil
}

// CreateIngredient validates and adds ing. It returns the stored form.
func (s *Service) CreateIngredient(ctx context.Context, ing model.Ingredient) (model.Ingredient, error) {
	var out model.Ingredient
	err := s.apply(ctx, "ingredient.create", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		v, err := validate.Ingredient(ing, ds.Books(), ds.OriginTree())
		if err != nil {
			return nil, false, err
		}
		if err := ds.Ingredients.Add(v); err != nil {
			return nil, false, err
		}
		out = v
		return []zap.Field{zap.String("name", v.Name)}, false, nil
	})
	return out, err
}

// UpdateIngredient validates ing and replaces the ingredient of the same
// name.
func (s *Service) UpdateIngredient(ctx context.Context, ing model.Ingredient) (model.Ingredient, error) {
	var out model.Ingredient
	err := s.apply(ctx, "ingredient.update", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		v, err := validate.Ingredient(ing, ds.Books(), ds.OriginTree())
		if err != nil {
			return nil, false, err
		}
		if err := ds.Ingredients.Update(v); err != nil {
			return nil, false, err
		}
		out = v
		return []zap.Field{zap.String("name", v.Name)}, false, nil
	})
	return out, err
}

// RenameIngredient renames an ingredient and rewrites every recipe combo
// that names it. It returns the recipes that were rewritten.
func (s *Service) RenameIngredient(ctx context.Context, oldName, newName string) ([]string, error) {
	var recipes []string
	err := s.apply(ctx, "ingredient.rename", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		oldName, err := requireName("ingredient", oldName)
		if err != nil {
			return nil, false, err
		}
		newName, err := requireName("new ingredient", newName)
		if err != nil {
			return nil, false, err
		}
		if oldName == newName {
			if _, err := ds.Ingredients.Get(oldName); err != nil {
				return nil, false, err
			}
			return nil, true, nil
		}
		if err := ds.Ingredients.Rename(oldName, newName); err != nil {
			return nil, false, err
		}
		ds.Recipes.Each(func(r *model.Recipe) bool {
			changed := false
			for _, combo := range r.Combos {
				for i, m := range combo {
					if m == oldName {
						combo[i] = newName
						changed = true
					}
				}
			}
			if changed {
				recipes = append(recipes, r.Name)
			}
			return changed
		})
		return []zap.Field{
			zap.String("old", oldName),
			zap.String("new", newName),
			zap.Strings("recipes", recipes),
		}, false, nil
	})
	return recipes, err
}

// DeleteIngredient removes the named ingredient. It returns the recipes
// that still name it and are now invalid.
func (s *Service) DeleteIngredient(ctx context.Context, name string) ([]string, error) {
	var users []string
	err := s.apply(ctx, "ingredient.delete", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		name, err := requireName("ingredient", name)
		if err != nil {
			return nil, false, err
		}
		if _, err := ds.Ingredients.Get(name); err != nil {
			return nil, false, err
		}
		ds.Ingredients.Delete(name)
		for _, r := range ds.Recipes.List() {
			if r.Uses(name) {
				users = append(users, r.Name)
			}
		}
		return []zap.Field{zap.String("name", name), zap.Strings("brokenRecipes", users)}, false, nil
	})
	return users, err
}

// DuplicateIngredient copies the named ingredient under a free
// "<name> (copy)" name and returns that name.
func (s *Service) DuplicateIngredient(ctx context.Context, name string) (string, error) {
	var newName string
	err := s.apply(ctx, "ingredient.duplicate", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		src, err := ds.Ingredients.Get(name)
		if err != nil {
			return nil, false, err
		}
		src.Name = model.CopyName(name, nameSet(ds.Ingredients.Names()))
		v, err := validate.Ingredient(src, ds.Books(), ds.OriginTree())
		if err != nil {
			return nil, false, err
		}
		if err := ds.Ingredients.Add(v); err != nil {
			return nil, false, err
		}
		newName = v.Name
		return []zap.Field{zap.String("source", name), zap.String("name", newName)}, false, nil
	})
	return newName, err
}

func nameSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// ---------------------------------------------------------------------------
// Recipes
// ---------------------------------------------------------------------------

// Recipes lists every recipe in collection order.
func (s *Service) Recipes(ctx context.Context) ([]model.Recipe, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Recipes.List(), nil
}

// CreateRecipe validates and adds r.
func (s *Service) CreateRecipe(ctx context.Context, r model.Recipe) (model.Recipe, error) {
	var out model.Recipe
	err := s.apply(ctx, "recipe.create", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		v, err := validate.Recipe(r, ds.Ingredients, ds.Books())
		if err != nil {
			return nil, false, err
		}
		if err := ds.Recipes.Add(v); err != nil {
			return nil, false, err
		}
		out = v
		return []zap.Field{zap.String("name", v.Name), zap.Int("alternatives", len(v.Combos))}, false, nil
	})
	return out, err
}

// UpdateRecipe validates r and replaces the recipe of the same name.
func (s *Service) UpdateRecipe(ctx context.Context, r model.Recipe) (model.Recipe, error) {
	var out model.Recipe
	err := s.apply(ctx, "recipe.update", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		v, err := validate.Recipe(r, ds.Ingredients, ds.Books())
		if err != nil {
			return nil, false, err
		}
		if err := ds.Recipes.Update(v); err != nil {
			return nil, false, err
		}
		out = v
		return []zap.Field{zap.String("name", v.Name), zap.Int("alternatives", len(v.Combos))}, false, nil
	})
	return out, err
}

// DeleteRecipe removes the named recipe.
func (s *Service) DeleteRecipe(ctx context.Context, name string) error {
	return s.apply(ctx, "recipe.delete", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		name, err := requireName("recipe", name)
		if err != nil {
			return nil, false, err
		}
		if _, err := ds.Recipes.Get(name); err != nil {
			return nil, false, err
		}
		ds.Recipes.Delete(name)
		return []zap.Field{zap.String("name", name)}, false, nil
	})
}

// DuplicateRecipe copies the named recipe and returns the copy's name.
func (s *Service) DuplicateRecipe(ctx context.Context, name string) (string, error) {
	var newName string
	err := s.apply(ctx, "recipe.duplicate", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		src, err := ds.Recipes.Get(name)
		if err != nil {
			return nil, false, err
		}
		src.Name = model.CopyName(name, nameSet(ds.Recipes.Names()))
		v, err := validate.Recipe(src, ds.Ingredients, ds.Books())
		if err != nil {
			return nil, false, err
		}
		if err := ds.Recipes.Add(v); err != nil {
			return nil, false, err
		}
		newName = v.Name
		return []zap.Field{zap.String("source", name), zap.String("name", newName)}, false, nil
	})
	return newName, err
}

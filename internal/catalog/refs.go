package catalog

// refs.go - books catalog and origin tree commands. Renames and removals
// cascade into the records that reference the changed entry within the
// same commit.

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"potiondb/internal/integrity"
	"potiondb/internal/migrate"
	"potiondb/internal/model"
	"potiondb/internal/validate"
)

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

// Books returns the books catalog.
func (s *Service) Books(ctx context.Context) ([]string, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Books(), nil
}

func bookTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", model.Errorf(model.KindValidation, "book title is required")
	}
	return t, nil
}

// AddBook adds title to the catalog, which is kept sorted.
func (s *Service) AddBook(ctx context.Context, title string) error {
	return s.apply(ctx, "book.add", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		t, err := bookTitle(title)
		if err != nil {
			return nil, false, err
		}
		if ds.HasBook(t) {
			return nil, false, model.Errorf(model.KindDuplicateName, "book already exists: %q", t)
		}
		books := append(ds.Books(), t)
		slices.Sort(books)
		ds.SetBooks(books)
		return []zap.Field{zap.String("title", t)}, false, nil
	})
}

// RenameBook renames a catalog entry in place and migrates every record
// reference from old to new.
func (s *Service) RenameBook(ctx context.Context, oldTitle, newTitle string) (migrate.Result, error) {
	var res migrate.Result
	err := s.apply(ctx, "book.rename", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		oldT, err := bookTitle(oldTitle)
		if err != nil {
			return nil, false, err
		}
		newT, err := bookTitle(newTitle)
		if err != nil {
			return nil, false, err
		}
		books := ds.Books()
		i := slices.Index(books, oldT)
		if i < 0 {
			return nil, false, model.Errorf(model.KindNotFound, "book not found: %q", oldT)
		}
		if newT == oldT {
			return nil, true, nil
		}
		if ds.HasBook(newT) {
			return nil, false, model.Errorf(model.KindDuplicateName, "book already exists: %q", newT)
		}
		books[i] = newT
		ds.SetBooks(books)
		if res, err = migrate.BookReference(ds, oldT, newT); err != nil {
			return nil, false, err
		}
		return append([]zap.Field{zap.String("old", oldT), zap.String("new", newT)}, touched(res)...), false, nil
	})
	return res, err
}

// RemoveBook drops title from the catalog and from every record. Removing
// an unknown title is a no-op.
func (s *Service) RemoveBook(ctx context.Context, title string) (migrate.Result, error) {
	var res migrate.Result
	err := s.apply(ctx, "book.remove", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		t, err := bookTitle(title)
		if err != nil {
			return nil, false, err
		}
		if !ds.HasBook(t) {
			return []zap.Field{zap.String("title", t)}, true, nil
		}
		ds.SetBooks(slices.DeleteFunc(ds.Books(), func(b string) bool { return b == t }))
		if res, err = migrate.BookReference(ds, t, ""); err != nil {
			return nil, false, err
		}
		return append([]zap.Field{zap.String("title", t)}, touched(res)...), false, nil
	})
	return res, err
}

// MigrateBookRefs moves record references from old to new without
// touching the catalog. new must be in the catalog, or empty to drop the
// references.
func (s *Service) MigrateBookRefs(ctx context.Context, oldTitle, newTitle string) (migrate.Result, error) {
	var res migrate.Result
	err := s.apply(ctx, "book.migrate", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		newT := strings.TrimSpace(newTitle)
		if newT != "" {
			if _, err := validate.Books([]string{newT}, ds.Books()); err != nil {
				return nil, false, err
			}
		}
		var err error
		if res, err = migrate.BookReference(ds, oldTitle, newT); err != nil {
			return nil, false, err
		}
		fields := append([]zap.Field{zap.String("old", strings.TrimSpace(oldTitle)), zap.String("new", newT)}, touched(res)...)
		return fields, res.Touched() == 0, nil
	})
	return res, err
}

// ---------------------------------------------------------------------------
// Origins
// ---------------------------------------------------------------------------

// OriginTree returns the origin tree.
func (s *Service) OriginTree(ctx context.Context) (*model.Tree, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.OriginTree(), nil
}

func lookupNode(tree *model.Tree, path string) (model.NodeID, error) {
	id, ok := tree.Lookup(path)
	if !ok {
		return 0, model.Errorf(model.KindNotFound, "origin node not found: %q", path)
	}
	return id, nil
}

// uniqueLabel rejects a label already used anywhere in the tree, so that
// bare-label references stay unambiguous.
func uniqueLabel(tree *model.Tree, label string) error {
	if tree.HasLabel(label) {
		return model.Errorf(model.KindDuplicateName, "origin %q already exists at %s",
			label, tree.Path(tree.Find(label)[0]))
	}
	return nil
}

// AddOrigin adds label under the node at parentPath ("" for the root) and
// returns the new node's path.
func (s *Service) AddOrigin(ctx context.Context, parentPath, label string) (string, error) {
	var path string
	err := s.apply(ctx, "origin.add", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		tree := ds.OriginTree()
		parent, err := lookupNode(tree, parentPath)
		if err != nil {
			return nil, false, err
		}
		label := strings.TrimSpace(label)
		if label == "" {
			return nil, false, model.Errorf(model.KindValidation, "origin name is required")
		}
		if err := uniqueLabel(tree, label); err != nil {
			return nil, false, err
		}
		id, err := tree.Add(parent, label)
		if err != nil {
			return nil, false, err
		}
		path = tree.Path(id)
		return []zap.Field{zap.String("path", path)}, false, nil
	})
	return path, err
}

// RenameOrigin relabels the node at path and migrates ingredient
// references from the old label to the new one.
func (s *Service) RenameOrigin(ctx context.Context, path, newLabel string) (migrate.Result, error) {
	var res migrate.Result
	err := s.apply(ctx, "origin.rename", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		tree := ds.OriginTree()
		id, err := lookupNode(tree, path)
		if err != nil {
			return nil, false, err
		}
		if id == model.Root {
			return nil, false, model.Errorf(model.KindNotFound, "origin node not found: %q", path)
		}
		newLabel := strings.TrimSpace(newLabel)
		if newLabel == "" {
			return nil, false, model.Errorf(model.KindValidation, "new origin name is required")
		}
		oldLabel := tree.Label(id)
		if newLabel == oldLabel {
			return nil, true, nil
		}
		if err := uniqueLabel(tree, newLabel); err != nil {
			return nil, false, err
		}
		if err := tree.Rename(id, newLabel); err != nil {
			return nil, false, err
		}
		fields := []zap.Field{zap.String("path", path), zap.String("old", oldLabel), zap.String("new", newLabel)}
		if tree.HasLabel(oldLabel) {
			// Another node still carries the old label; its references stay.
			s.log.Warn("origin label still used elsewhere, references kept", zap.String("label", oldLabel))
			return fields, false, nil
		}
		if res, err = migrate.OriginReference(ds, oldLabel, newLabel); err != nil {
			return nil, false, err
		}
		return append(fields, touched(res)...), false, nil
	})
	return res, err
}

// RemoveOrigin removes the node at path with its subtree and strips the
// removed labels from every ingredient, unless another node still carries
// them. Removing an unknown path is a no-op.
func (s *Service) RemoveOrigin(ctx context.Context, path string) (migrate.Result, error) {
	var res migrate.Result
	err := s.apply(ctx, "origin.remove", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		tree := ds.OriginTree()
		id, ok := tree.Lookup(path)
		if !ok || id == model.Root {
			return []zap.Field{zap.String("path", path)}, true, nil
		}
		removed := tree.Remove(id)
		for _, label := range model.Unique(removed) {
			if tree.HasLabel(label) {
				continue
			}
			r, err := migrate.OriginReference(ds, label, "")
			if err != nil {
				return nil, false, err
			}
			res.Merge(r)
		}
		return append([]zap.Field{zap.String("path", path), zap.Strings("removed", removed)}, touched(res)...), false, nil
	})
	return res, err
}

// MigrateOriginRefs moves ingredient references from old to new without
// touching the tree. new must be a tree label, or empty to drop the
// references.
func (s *Service) MigrateOriginRefs(ctx context.Context, oldRef, newRef string) (migrate.Result, error) {
	var res migrate.Result
	err := s.apply(ctx, "origin.migrate", func(ds *model.Dataset) ([]zap.Field, bool, error) {
		if strings.TrimSpace(newRef) != "" {
			if _, err := validate.Origin(newRef, ds.OriginTree()); err != nil {
				return nil, false, err
			}
		}
		var err error
		if res, err = migrate.OriginReference(ds, oldRef, newRef); err != nil {
			return nil, false, err
		}
		fields := append([]zap.Field{zap.String("old", oldRef), zap.String("new", newRef)}, touched(res)...)
		return fields, res.Touched() == 0, nil
	})
	return res, err
}

// ---------------------------------------------------------------------------
// Dataset
// ---------------------------------------------------------------------------

// ValidateDataset checks every record and name uniqueness, returning the
// first problem found: ingredients first, then recipes.
func (s *Service) ValidateDataset(ctx context.Context) error {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return err
	}
	books, tree := ds.Books(), ds.OriginTree()

	seen := map[string]bool{}
	for _, ing := range ds.Ingredients.List() {
		if _, err := validate.Ingredient(ing, books, tree); err != nil {
			return prefixed("ingredient", ing.Name, err)
		}
		if seen[ing.Name] {
			return model.Errorf(model.KindDuplicateName, "duplicate ingredient: %q", ing.Name)
		}
		seen[ing.Name] = true
	}

	seen = map[string]bool{}
	for _, r := range ds.Recipes.List() {
		if _, err := validate.Recipe(r, ds.Ingredients, books); err != nil {
			return prefixed("recipe", r.Name, err)
		}
		if seen[r.Name] {
			return model.Errorf(model.KindDuplicateName, "duplicate recipe: %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// prefixed names the failing record in a domain error, keeping its kind.
func prefixed(kind, name string, err error) error {
	var e *model.Error
	if !errors.As(err, &e) || strings.Contains(e.Msg, fmt.Sprintf("%q", name)) {
		return err
	}
	return &model.Error{Kind: e.Kind, Msg: fmt.Sprintf("%s %q: %s", kind, name, e.Msg)}
}

// Inspect returns the integrity report of the stored dataset.
func (s *Service) Inspect(ctx context.Context) (integrity.Report, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return integrity.Report{}, err
	}
	return integrity.Inspect(ds), nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"potiondb/internal/model"
)

// SQLite stores a dataset in one SQLite database. Record order is kept in
// position columns; a commit replaces every table in one transaction.
type SQLite struct {
	Path string

	db  *sql.DB
	log *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, log *zap.Logger) (*SQLite, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, model.Wrap(err, "create database dir")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, model.Wrap(err, "open database")
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, model.Wrap(err, "pragma %q", p)
		}
	}

	s := &SQLite{Path: path, db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, model.Wrap(err, "migrate")
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS books (
			position INTEGER PRIMARY KEY,
			title    TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS origin_nodes (
			id        INTEGER PRIMARY KEY,
			parent_id INTEGER REFERENCES origin_nodes(id) ON DELETE CASCADE,
			label     TEXT    NOT NULL,
			position  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_origin_parent ON origin_nodes(parent_id, position);

		CREATE TABLE IF NOT EXISTS ingredients (
			position     INTEGER PRIMARY KEY,
			name         TEXT    NOT NULL,
			category     TEXT    NOT NULL,
			difficulty   INTEGER NOT NULL DEFAULT 0,
			short_effect TEXT    NOT NULL DEFAULT '',
			effect       TEXT    NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_ingredients_name ON ingredients(name);

		CREATE TABLE IF NOT EXISTS ingredient_origins (
			ingredient INTEGER NOT NULL REFERENCES ingredients(position) ON DELETE CASCADE,
			position   INTEGER NOT NULL,
			origin     TEXT    NOT NULL,
			PRIMARY KEY (ingredient, position)
		);

		CREATE TABLE IF NOT EXISTS ingredient_books (
			ingredient INTEGER NOT NULL REFERENCES ingredients(position) ON DELETE CASCADE,
			position   INTEGER NOT NULL,
			book       TEXT    NOT NULL,
			PRIMARY KEY (ingredient, position)
		);

		CREATE TABLE IF NOT EXISTS recipes (
			position    INTEGER PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			emoji       TEXT NOT NULL DEFAULT '',
			bonus       REAL
		);

		CREATE INDEX IF NOT EXISTS idx_recipes_name ON recipes(name);

		CREATE TABLE IF NOT EXISTS recipe_combos (
			recipe     INTEGER NOT NULL REFERENCES recipes(position) ON DELETE CASCADE,
			alt        INTEGER NOT NULL,
			position   INTEGER NOT NULL,
			ingredient TEXT    NOT NULL,
			PRIMARY KEY (recipe, alt, position)
		);

		CREATE TABLE IF NOT EXISTS recipe_books (
			recipe   INTEGER NOT NULL REFERENCES recipes(position) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			book     TEXT    NOT NULL,
			PRIMARY KEY (recipe, position)
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Load ────────────────────────────────────────────────────────────────────

// Load reads the whole dataset inside one read transaction.
func (s *SQLite) Load(ctx context.Context) (*model.Dataset, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, model.Wrap(err, "load: begin tx")
	}
	defer tx.Rollback()

	ds := model.NewDataset()

	books, err := queryStrings(ctx, tx, `SELECT title FROM books ORDER BY position`)
	if err != nil {
		return nil, model.Wrap(err, "load books")
	}
	ds.SetBooks(books)

	tree, err := loadTree(ctx, tx)
	if err != nil {
		return nil, model.Wrap(err, "load origins")
	}
	ds.SetOriginTree(tree)

	ings, err := loadIngredients(ctx, tx)
	if err != nil {
		return nil, model.Wrap(err, "load ingredients")
	}
	ds.Ingredients.Load(ings)

	recs, err := loadRecipes(ctx, tx)
	if err != nil {
		return nil, model.Wrap(err, "load recipes")
	}
	ds.Recipes.Load(recs)
	return ds, nil
}

func queryStrings(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// loadTree rebuilds the tree from rows ordered parents-first. Stored ids
// are remapped to the ids of the new tree.
func loadTree(ctx context.Context, tx *sql.Tx) (*model.Tree, error) {
	rows, err := tx.QueryContext(ctx, `
		WITH RECURSIVE walk(id, parent_id, label, position, depth) AS (
			SELECT id, parent_id, label, position, 0 FROM origin_nodes WHERE parent_id IS NULL
			UNION ALL
			SELECT n.id, n.parent_id, n.label, n.position, w.depth + 1
			FROM origin_nodes n JOIN walk w ON n.parent_id = w.id
		)
		SELECT id, parent_id, label FROM walk ORDER BY depth, parent_id, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tree := model.NewTree()
	ids := map[int64]model.NodeID{}
	for rows.Next() {
		var (
			id     int64
			parent sql.NullInt64
			label  string
		)
		if err := rows.Scan(&id, &parent, &label); err != nil {
			return nil, err
		}
		p := model.Root
		if parent.Valid {
			mapped, ok := ids[parent.Int64]
			if !ok {
				continue
			}
			p = mapped
		}
		nid, err := tree.Add(p, label)
		if err != nil {
			return nil, fmt.Errorf("origin node %d: %w", id, err)
		}
		ids[id] = nid
	}
	return tree, rows.Err()
}

func loadIngredients(ctx context.Context, tx *sql.Tx) ([]model.Ingredient, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT position, name, category, difficulty, short_effect, effect
		FROM ingredients ORDER BY position`)
	if err != nil {
		return nil, err
	}
	var (
		out []model.Ingredient
		pos []int64
	)
	for rows.Next() {
		var (
			p   int64
			ing model.Ingredient
			cat string
		)
		if err := rows.Scan(&p, &ing.Name, &cat, &ing.Difficulty, &ing.ShortEffect, &ing.Effect); err != nil {
			rows.Close()
			return nil, err
		}
		ing.Category = model.Category(cat)
		out = append(out, ing)
		pos = append(pos, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	for i, p := range pos {
		if out[i].Origins, err = queryStrings(ctx, tx,
			`SELECT origin FROM ingredient_origins WHERE ingredient = ? ORDER BY position`, p); err != nil {
			return nil, err
		}
		if out[i].Books, err = queryStrings(ctx, tx,
			`SELECT book FROM ingredient_books WHERE ingredient = ? ORDER BY position`, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func loadRecipes(ctx context.Context, tx *sql.Tx) ([]model.Recipe, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT position, name, description, emoji, bonus FROM recipes ORDER BY position`)
	if err != nil {
		return nil, err
	}
	var (
		out []model.Recipe
		pos []int64
	)
	for rows.Next() {
		var (
			p     int64
			r     model.Recipe
			bonus sql.NullFloat64
		)
		if err := rows.Scan(&p, &r.Name, &r.Desc, &r.Emoji, &bonus); err != nil {
			rows.Close()
			return nil, err
		}
		if bonus.Valid {
			b := bonus.Float64
			r.Bonus = &b
		}
		out = append(out, r)
		pos = append(pos, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	for i, p := range pos {
		if out[i].Combos, err = loadCombos(ctx, tx, p); err != nil {
			return nil, err
		}
		if out[i].Books, err = queryStrings(ctx, tx,
			`SELECT book FROM recipe_books WHERE recipe = ? ORDER BY position`, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func loadCombos(ctx context.Context, tx *sql.Tx, recipe int64) ([][]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT alt, ingredient FROM recipe_combos WHERE recipe = ? ORDER BY alt, position`, recipe)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var (
		combos [][]string
		last   int64 = -1
	)
	for rows.Next() {
		var (
			alt  int64
			name string
		)
		if err := rows.Scan(&alt, &name); err != nil {
			return nil, err
		}
		if alt != last {
			combos = append(combos, nil)
			last = alt
		}
		combos[len(combos)-1] = append(combos[len(combos)-1], name)
	}
	return combos, rows.Err()
}

// ─── Commit ──────────────────────────────────────────────────────────────────

// Commit replaces the stored dataset with ds in one transaction.
func (s *SQLite) Commit(ctx context.Context, ds *model.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Wrap(err, "commit: begin tx")
	}
	defer tx.Rollback()

	for _, table := range []string{
		"recipe_books", "recipe_combos", "recipes",
		"ingredient_books", "ingredient_origins", "ingredients",
		"origin_nodes", "books",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return model.Wrap(err, "clear %s", table)
		}
	}

	for i, title := range ds.Books() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO books (position, title) VALUES (?, ?)`, i, title); err != nil {
			return model.Wrap(err, "insert book %q", title)
		}
	}
	if err := insertTree(ctx, tx, ds.OriginTree()); err != nil {
		return model.Wrap(err, "insert origins")
	}
	for i, ing := range ds.Ingredients.List() {
		if err := insertIngredient(ctx, tx, i, ing); err != nil {
			return model.Wrap(err, "insert ingredient %q", ing.Name)
		}
	}
	for i, r := range ds.Recipes.List() {
		if err := insertRecipe(ctx, tx, i, r); err != nil {
			return model.Wrap(err, "insert recipe %q", r.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Wrap(err, "commit")
	}
	s.log.Debug("sqlite commit",
		zap.String("path", s.Path),
		zap.Int("ingredients", ds.Ingredients.Len()),
		zap.Int("recipes", ds.Recipes.Len()))
	return nil
}

func insertTree(ctx context.Context, tx *sql.Tx, tree *model.Tree) error {
	var err error
	tree.Walk(func(id model.NodeID, _ int) bool {
		if err != nil {
			return false
		}
		var parent any
		if p := tree.Parent(id); p != model.Root {
			parent = int64(p)
		}
		pos := 0
		for i, c := range tree.Children(tree.Parent(id)) {
			if c == id {
				pos = i
			}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO origin_nodes (id, parent_id, label, position) VALUES (?, ?, ?, ?)`,
			int64(id), parent, tree.Label(id), pos)
		return err == nil
	})
	return err
}

func insertIngredient(ctx context.Context, tx *sql.Tx, pos int, ing model.Ingredient) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ingredients (position, name, category, difficulty, short_effect, effect)
		VALUES (?, ?, ?, ?, ?, ?)`,
		pos, ing.Name, string(ing.Category), ing.Difficulty, ing.ShortEffect, ing.Effect); err != nil {
		return err
	}
	for i, o := range ing.Origins {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ingredient_origins (ingredient, position, origin) VALUES (?, ?, ?)`, pos, i, o); err != nil {
			return err
		}
	}
	for i, b := range ing.Books {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ingredient_books (ingredient, position, book) VALUES (?, ?, ?)`, pos, i, b); err != nil {
			return err
		}
	}
	return nil
}

func insertRecipe(ctx context.Context, tx *sql.Tx, pos int, r model.Recipe) error {
	var bonus any
	if r.Bonus != nil {
		bonus = *r.Bonus
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO recipes (position, name, description, emoji, bonus) VALUES (?, ?, ?, ?, ?)`,
		pos, r.Name, r.Desc, r.Emoji, bonus); err != nil {
		return err
	}
	for alt, combo := range r.Combos {
		for i, name := range combo {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO recipe_combos (recipe, alt, position, ingredient) VALUES (?, ?, ?, ?)`,
				pos, alt, i, name); err != nil {
				return err
			}
		}
	}
	for i, b := range r.Books {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_books (recipe, position, book) VALUES (?, ?, ?)`, pos, i, b); err != nil {
			return err
		}
	}
	return nil
}

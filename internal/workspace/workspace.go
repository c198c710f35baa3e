// Package workspace manages the ~/.potiondb/ directory hierarchy.
//
// Directory layout:
//
//	~/.potiondb/<workspace>/
//	    ingredients.json
//	    recipes.json
//	    data.js
//	    potiondb.sqlite        # only when the sqlite backend is used
package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Data file names inside a workspace.
const (
	IngredientsFile = "ingredients.json"
	RecipesFile     = "recipes.json"
	DataJSFile      = "data.js"
	SQLiteFile      = "potiondb.sqlite"
)

// seed is the content of a fresh workspace.
var seed = map[string]string{
	IngredientsFile: "[]\n",
	RecipesFile:     "[]\n",
	DataJSFile:      "export const ORIGIN_TREE = {};\n\nexport const BOOKS = [];\n",
}

// Workspace is a named dataset directory (~/.potiondb/<name>/).
type Workspace struct {
	Name string
	Dir  string
}

// Paths locates the data files of a workspace.
type Paths struct {
	Ingredients string
	Recipes     string
	DataJS      string
	SQLite      string
}

// baseDir returns the base ~/.potiondb directory.
func baseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".potiondb"), nil
}

func dirFor(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid workspace name %q", name)
	}
	base, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, name), nil
}

// Init creates ~/.potiondb/<name>/ seeded with empty data files and errors
// if it already exists.
func Init(name string) (*Workspace, error) {
	return InitFrom(name, "")
}

// InitFrom creates a workspace like Init, copying the data files found in
// srcDir instead of seeding empty ones. Files missing from srcDir are
// seeded.
func InitFrom(name, srcDir string) (*Workspace, error) {
	dir, err := dirFor(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("workspace %q already exists at %s", name, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	for file, content := range seed {
		dst := filepath.Join(dir, file)
		if srcDir != "" {
			src := filepath.Join(srcDir, file)
			if _, err := os.Stat(src); err == nil {
				if err := copyFile(src, dst); err != nil {
					return nil, fmt.Errorf("copy %s: %w", file, err)
				}
				continue
			}
		}
		if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("seed %s: %w", file, err)
		}
	}
	return &Workspace{Name: name, Dir: dir}, nil
}

// Open opens an existing workspace directory. Returns an error if not found.
func Open(name string) (*Workspace, error) {
	dir, err := dirFor(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("workspace %q not found (run 'potiondb init %s' first)", name, name)
	}
	return &Workspace{Name: name, Dir: dir}, nil
}

// Paths returns the data file locations of w.
func (w *Workspace) Paths() Paths {
	return Paths{
		Ingredients: filepath.Join(w.Dir, IngredientsFile),
		Recipes:     filepath.Join(w.Dir, RecipesFile),
		DataJS:      filepath.Join(w.Dir, DataJSFile),
		SQLite:      filepath.Join(w.Dir, SQLiteFile),
	}
}

// List returns the names of all workspaces under ~/.potiondb/.
func List() ([]string, error) {
	base, err := baseDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read potiondb dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Remove deletes a workspace and all its contents.
func Remove(name string) error {
	dir, err := dirFor(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("workspace %q not found", name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}

// copyFile copies a single file from src to dst, preserving permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
